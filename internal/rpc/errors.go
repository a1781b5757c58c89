package rpc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

const defaultUserMessage = "Something went wrong. Please try again later."

// Error is a failure reported by a backend service
type Error struct {
	Code             int           `json:"code"`
	UserMessage      string        `json:"userMessage"`
	DeveloperMessage string        `json:"developerMessage"`
	ValidationErrors []interface{} `json:"validationErrors,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.DeveloperMessage)
}

// NewError creates an Error
func NewError(code int, userMessage, developerMessage string) *Error {
	return &Error{Code: code, UserMessage: userMessage, DeveloperMessage: developerMessage}
}

// AsError returns err as an *Error. Errors that did not come from a backend
// become 504 on deadline, 502 on transport failure and 500 otherwise.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		if rpcErr.Code == 0 {
			out := *rpcErr
			out.Code = http.StatusInternalServerError
			return &out
		}
		return rpcErr
	}
	code := http.StatusInternalServerError
	var tErr *TransportError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		code = http.StatusGatewayTimeout
	case errors.As(err, &tErr):
		code = http.StatusBadGateway
	}
	return &Error{Code: code, UserMessage: defaultUserMessage, DeveloperMessage: err.Error()}
}

// TransportError wraps a failure to reach or talk to a backend
type TransportError struct {
	Model string
	Err   error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("rpc transport %s: %v", e.Model, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }
