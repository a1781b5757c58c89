package middleware

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/conduit-lang/metagate/internal/log"
	webcontext "github.com/conduit-lang/metagate/internal/web/context"
)

// ClaimsDecoder validates a bearer token and returns its claims
type ClaimsDecoder interface {
	Decode(token string) (map[string]interface{}, error)
}

// Principal decodes the bearer token, if any, and stores its claims in the
// context. It never rejects a request; a missing or invalid token simply
// leaves the request without a principal.
func Principal(decoder ClaimsDecoder) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r.Header.Get("Authorization"))
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := decoder.Decode(token)
			if err != nil {
				log.From(r.Context()).Warn("ignoring invalid bearer token", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			r = r.WithContext(webcontext.SetPrincipal(r.Context(), webcontext.Principal(claims)))
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
