// Package app assembles the gateway from configuration.
package app

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/conduit-lang/metagate/internal/cli/config"
	"github.com/conduit-lang/metagate/internal/embed"
	"github.com/conduit-lang/metagate/internal/handlers"
	"github.com/conduit-lang/metagate/internal/metadata"
	"github.com/conduit-lang/metagate/internal/paths"
	"github.com/conduit-lang/metagate/internal/routes"
	"github.com/conduit-lang/metagate/internal/rpc"
	"github.com/conduit-lang/metagate/internal/serialize"
	"github.com/conduit-lang/metagate/internal/web/auth"
	"github.com/conduit-lang/metagate/internal/web/middleware"
	"github.com/conduit-lang/metagate/internal/web/request"
	"github.com/conduit-lang/metagate/internal/web/response"
	"github.com/conduit-lang/metagate/internal/web/router"
)

const (
	HealthPath  = "/healthz"
	MetricsPath = "/metrics"
)

// App is the assembled gateway. It is immutable once built.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Index    *metadata.Index
	Services *rpc.Registry
	Routes   []routes.Route
	Router   *router.Router
}

// Option customizes New
type Option func(*options)

type options struct {
	factory  rpc.Factory
	registry *prometheus.Registry
}

// WithClientFactory replaces the JSON-RPC client factory
func WithClientFactory(f rpc.Factory) Option {
	return func(o *options) { o.factory = f }
}

// LoadIndex reads the metadata directory and the inline metadata of cfg and
// builds the validated index. A missing directory is not an error when
// inline metadata exists.
func LoadIndex(cfg *config.Config) (*metadata.Index, error) {
	var fromDir map[string]map[string]metadata.Descriptor
	if cfg.MetadataDir != "" {
		d, err := metadata.LoadDir(cfg.MetadataDir)
		switch {
		case err == nil:
			fromDir = d
		case errors.Is(err, fs.ErrNotExist) && len(cfg.Metadata) > 0:
		default:
			return nil, err
		}
	}

	inline, err := metadata.Decode(cfg.Metadata)
	if err != nil {
		return nil, err
	}
	merged, err := metadata.Merge(fromDir, inline)
	if err != nil {
		return nil, err
	}
	if len(merged) == 0 {
		return nil, fmt.Errorf("app: no metadata found in %q or inline", cfg.MetadataDir)
	}
	return metadata.Build(merged)
}

// New builds the gateway. Startup fails on any metadata definition error.
func New(cfg *config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	o := &options{registry: prometheus.NewRegistry()}
	for _, opt := range opts {
		opt(o)
	}
	if o.factory == nil {
		o.factory = rpc.JSONRPCFactory(rpc.WithLogger(logger))
	}
	o.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ix, err := LoadIndex(cfg)
	if err != nil {
		return nil, err
	}

	rpcMetrics := rpc.NewMetrics(o.registry)
	factory := func(model string, sc rpc.ServiceConfig) (rpc.Client, error) {
		c, err := o.factory(model, sc)
		if err != nil {
			return nil, err
		}
		return rpcMetrics.Instrument(model, c), nil
	}
	services, err := rpc.NewRegistry(modelNames(ix), cfg.Runtime.DefaultService, cfg.Runtime.Services, factory)
	if err != nil {
		return nil, err
	}

	builder := paths.NewBuilder(ix)
	serializers, err := serialize.NewRegistry(ix, builder, cfg.Runtime.BaseURL)
	if err != nil {
		_ = services.Close()
		return nil, err
	}

	translator := response.NewTranslator(cfg.Runtime.DocumentationURL)
	compiler := &routes.Compiler{
		Lookup:      ix,
		Builder:     builder,
		Generator:   handlers.NewGenerator(translator, embed.NewResolver(services, serializers, ix)),
		Translator:  translator,
		Services:    services,
		Serializers: serializers,
		Settings: request.Settings{
			ExcludeQueryString: cfg.Runtime.ExcludeQueryString,
			Claims:             cfg.Runtime.Claims,
		},
	}
	compiled, err := compiler.CompileAll(ix)
	if err != nil {
		_ = services.Close()
		return nil, err
	}

	r := router.NewRouter(logger)
	stack := []middleware.Middleware{
		middleware.RequestID(),
		middleware.Logging(logger, HealthPath, MetricsPath),
		middleware.Recovery(translator),
		middleware.NewHTTPMetrics(o.registry).Middleware(),
	}
	if cfg.Auth.JWTSecret != "" {
		stack = append(stack, middleware.Principal(auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.Issuer)))
	}
	r.Use(stack...)
	router.SetupDefaultErrorHandlers(r, translator)
	r.Get(HealthPath, http.HandlerFunc(health))
	r.Get(MetricsPath, promhttp.HandlerFor(o.registry, promhttp.HandlerOpts{}))
	r.Mount(compiled)

	logger.Info("gateway assembled",
		zap.Strings("versions", ix.Versions()),
		zap.Int("models", len(ix.All())),
		zap.Int("routes", len(r.GetRoutes())))

	return &App{
		Config:   cfg,
		Logger:   logger,
		Index:    ix,
		Services: services,
		Routes:   compiled,
		Router:   r,
	}, nil
}

// Handler returns the root HTTP handler
func (a *App) Handler() http.Handler {
	return a.Router
}

// Close releases backend connections
func (a *App) Close() error {
	return a.Services.Close()
}

func health(w http.ResponseWriter, r *http.Request) {
	response.RenderJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// modelNames lists every model across versions once
func modelNames(ix *metadata.Index) []string {
	seen := map[string]bool{}
	var out []string
	for _, m := range ix.All() {
		if !seen[m.ModelName] {
			seen[m.ModelName] = true
			out = append(out, m.ModelName)
		}
	}
	return out
}
