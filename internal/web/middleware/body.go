package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/conduit-lang/metagate/internal/rpc"
	webcontext "github.com/conduit-lang/metagate/internal/web/context"
	"github.com/conduit-lang/metagate/internal/web/response"
)

// DefaultBodyLimit caps decoded request bodies
const DefaultBodyLimit = 1 << 20

// JSONBody decodes JSON object bodies into the context. Bodies with a
// non-JSON content type are ignored; an unparseable JSON body is answered
// with the fixed malformed-body envelope.
func JSONBody(translator *response.Translator, limit int64) Middleware {
	if limit <= 0 {
		limit = DefaultBodyLimit
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body == nil || r.Body == http.NoBody || !isJSON(r.Header.Get("Content-Type")) {
				next.ServeHTTP(w, r)
				return
			}

			raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
			if err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					translator.RenderError(w, rpc.NewError(http.StatusRequestEntityTooLarge,
						response.MalformedBodyUserMessage, "The request body is too large"))
					return
				}
				translator.RenderMalformedBody(w)
				return
			}
			if len(bytes.TrimSpace(raw)) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			dec := json.NewDecoder(bytes.NewReader(raw))
			dec.UseNumber()
			var v interface{}
			if err := dec.Decode(&v); err != nil || dec.More() {
				translator.RenderMalformedBody(w)
				return
			}

			if obj, ok := v.(map[string]interface{}); ok {
				r = r.WithContext(webcontext.SetBody(r.Context(), obj))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// isJSON accepts application/json, any +json type, and a missing type
func isJSON(contentType string) bool {
	if contentType == "" {
		return true
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	return mt == "application/json" || strings.HasSuffix(mt, "+json")
}
