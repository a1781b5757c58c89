package router

import (
	"net/http"
	"regexp"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/conduit-lang/metagate/internal/routes"
	"github.com/conduit-lang/metagate/internal/web/middleware"
)

// Router manages HTTP routing using chi framework
type Router struct {
	mux    chi.Router
	logger *zap.Logger

	// method + param-agnostic pattern, so /a/{x} and /a/{y} collide
	shapes map[string]string

	// For introspection and debugging
	registeredRoutes []*RouteInfo
}

// RouteInfo provides metadata about a route for introspection
type RouteInfo struct {
	Method     string
	Pattern    string
	Version    string
	Model      string
	Kind       string
	Name       string
	Parameters []string
}

// NewRouter creates a new Router instance
func NewRouter(logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		mux:              chi.NewRouter(),
		logger:           logger,
		shapes:           make(map[string]string),
		registeredRoutes: make([]*RouteInfo, 0),
	}
}

// ServeHTTP implements http.Handler interface
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Use adds middleware to every route. It must be called before any route is
// registered.
func (r *Router) Use(middlewares ...middleware.Middleware) {
	for _, m := range middlewares {
		r.mux.Use(m)
	}
}

// Get registers an operational GET endpoint outside the compiled table
func (r *Router) Get(pattern string, handler http.Handler) {
	r.mux.Method(http.MethodGet, pattern, handler)
}

// Mount registers compiled routes in order. The first route of a given shape
// wins; later ones are skipped with a warning.
func (r *Router) Mount(rs []routes.Route) {
	for _, rt := range rs {
		pattern := rt.Path.Pattern()
		key := rt.Method + " " + shape(pattern)
		if prev, ok := r.shapes[key]; ok {
			r.logger.Warn("route shadowed by an earlier route",
				zap.String("route", rt.String()),
				zap.String("kept", prev),
				zap.String("model", rt.Model))
			continue
		}
		r.shapes[key] = rt.String()

		r.mux.Method(rt.Method, pattern, rt.Handler)
		r.registeredRoutes = append(r.registeredRoutes, &RouteInfo{
			Method:     rt.Method,
			Pattern:    pattern,
			Version:    rt.Version,
			Model:      rt.Model,
			Kind:       string(rt.Kind),
			Name:       rt.Name,
			Parameters: rt.Path.Params(),
		})
	}
}

// GetRoutes returns all mounted routes for introspection
func (r *Router) GetRoutes() []*RouteInfo {
	return r.registeredRoutes
}

// NotFound sets the handler for 404 Not Found
func (r *Router) NotFound(handler http.HandlerFunc) {
	r.mux.NotFound(handler)
}

// MethodNotAllowed sets the handler for 405 Method Not Allowed
func (r *Router) MethodNotAllowed(handler http.HandlerFunc) {
	r.mux.MethodNotAllowed(handler)
}

var paramPattern = regexp.MustCompile(`\{[^}]*\}`)

// shape erases parameter names from a chi pattern
func shape(pattern string) string {
	return paramPattern.ReplaceAllString(pattern, "{}")
}
