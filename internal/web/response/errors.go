package response

import (
	"net/http"

	"github.com/conduit-lang/metagate/internal/rpc"
)

const (
	// CodeInvalidRequest marks failures caused by the caller (4xx)
	CodeInvalidRequest = "invalid_request_error"
	// CodeAPIError marks every other failure
	CodeAPIError = "api_error"

	MalformedBodyUserMessage      = "Something went wrong. Please review your data."
	MalformedBodyDeveloperMessage = "The JSON message sent is invalid"
)

// ErrorEnvelope is the public error body
type ErrorEnvelope struct {
	Code             string        `json:"code"`
	UserMessage      string        `json:"userMessage"`
	DeveloperMessage string        `json:"developerMessage"`
	ValidationErrors []interface{} `json:"validationErrors"`
	DocumentationURL *string       `json:"documentationUrl"`
}

// Translator maps failures onto the public error envelope. Every handler
// renders errors through one Translator.
type Translator struct {
	documentationURL *string
}

// NewTranslator creates a Translator. An empty docURL renders as null.
func NewTranslator(docURL string) *Translator {
	t := &Translator{}
	if docURL != "" {
		t.documentationURL = &docURL
	}
	return t
}

// Translate returns the HTTP status and envelope for err
func (t *Translator) Translate(err error) (int, *ErrorEnvelope) {
	rpcErr := rpc.AsError(err)
	if rpcErr == nil {
		rpcErr = rpc.NewError(http.StatusInternalServerError, "", "")
	}
	return statusFromCode(rpcErr.Code), t.envelope(rpcErr)
}

// RenderError writes the envelope for err
func (t *Translator) RenderError(w http.ResponseWriter, err error) {
	status, env := t.Translate(err)
	RenderJSON(w, status, env)
}

// RenderMalformedBody writes the fixed 400 envelope for an unparseable body
func (t *Translator) RenderMalformedBody(w http.ResponseWriter) {
	t.RenderError(w, rpc.NewError(http.StatusBadRequest, MalformedBodyUserMessage, MalformedBodyDeveloperMessage))
}

func (t *Translator) envelope(e *rpc.Error) *ErrorEnvelope {
	code := CodeAPIError
	if e.Code/100 == 4 {
		code = CodeInvalidRequest
	}
	validation := e.ValidationErrors
	if validation == nil {
		validation = []interface{}{}
	}
	return &ErrorEnvelope{
		Code:             code,
		UserMessage:      e.UserMessage,
		DeveloperMessage: e.DeveloperMessage,
		ValidationErrors: validation,
		DocumentationURL: t.documentationURL,
	}
}

// statusFromCode uses the backend code as HTTP status when it is one
func statusFromCode(code int) int {
	if code < 100 || code > 599 {
		return http.StatusInternalServerError
	}
	return code
}
