package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/conduit-lang/metagate/internal/log"
	"github.com/conduit-lang/metagate/internal/rpc"
	"github.com/conduit-lang/metagate/internal/web/response"
)

// Recovery turns a panic into a 500 error envelope and logs the stack
func Recovery(translator *response.Translator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				log.From(r.Context()).Error("panic recovered",
					zap.Any("panic", rec),
					zap.ByteString("stack", debug.Stack()),
				)
				translator.RenderError(w, &rpc.Error{
					Code:             http.StatusInternalServerError,
					UserMessage:      "An unexpected error occurred",
					DeveloperMessage: fmt.Sprint(rec),
				})
			}()

			next.ServeHTTP(w, r)
		})
	}
}
