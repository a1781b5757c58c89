package router

import (
	"fmt"
	"net/http"

	"github.com/conduit-lang/metagate/internal/rpc"
	"github.com/conduit-lang/metagate/internal/web/response"
)

// NotFoundHandler answers unknown paths with the public error envelope
func NotFoundHandler(t *response.Translator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t.RenderError(w, rpc.NewError(http.StatusNotFound,
			"The requested resource was not found",
			fmt.Sprintf("No route matches %s %s", r.Method, r.URL.Path)))
	}
}

// MethodNotAllowedHandler answers known paths requested with the wrong method
func MethodNotAllowedHandler(t *response.Translator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t.RenderError(w, rpc.NewError(http.StatusMethodNotAllowed,
			"The requested resource does not support this operation",
			fmt.Sprintf("Method %s is not allowed for %s", r.Method, r.URL.Path)))
	}
}

// SetupDefaultErrorHandlers installs the envelope handlers on r
func SetupDefaultErrorHandlers(r *Router, t *response.Translator) {
	r.NotFound(NotFoundHandler(t))
	r.MethodNotAllowed(MethodNotAllowedHandler(t))
}
