package rpc

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/imdario/mergo"
)

// ServiceConfig locates one backend service
type ServiceConfig struct {
	Network   string        `mapstructure:"network" json:"network,omitempty"`
	Address   string        `mapstructure:"address" json:"address,omitempty"`
	Namespace string        `mapstructure:"namespace" json:"namespace,omitempty"` // prefixed to every verb
	Timeout   time.Duration `mapstructure:"timeout" json:"timeout,omitempty"`
}

// Resolve merges the model-specific config over the defaults
func Resolve(model string, defaults ServiceConfig, overrides map[string]ServiceConfig) (ServiceConfig, error) {
	cfg := overrides[model]
	if err := mergo.Merge(&cfg, defaults); err != nil {
		return ServiceConfig{}, fmt.Errorf("rpc: merge %s service config: %w", model, err)
	}
	if cfg.Network == "" {
		cfg.Network = "tcp"
	}
	if cfg.Address == "" {
		return ServiceConfig{}, fmt.Errorf("rpc: no service address configured for %s", model)
	}
	return cfg, nil
}

// Factory builds the client of one model
type Factory func(model string, cfg ServiceConfig) (Client, error)

// JSONRPCFactory returns a Factory producing JSONRPCClients
func JSONRPCFactory(opts ...JSONRPCOption) Factory {
	return func(model string, cfg ServiceConfig) (Client, error) {
		return NewJSONRPCClient(model, cfg, opts...), nil
	}
}

// Registry maps model names to services. It is built once at startup and
// read-only afterwards.
type Registry struct {
	services map[string]*Service
}

// NewRegistry builds a service for every model
func NewRegistry(models []string, defaults ServiceConfig, overrides map[string]ServiceConfig, factory Factory) (*Registry, error) {
	r := &Registry{services: make(map[string]*Service, len(models))}
	for _, model := range models {
		if _, ok := r.services[model]; ok {
			continue
		}
		cfg, err := Resolve(model, defaults, overrides)
		if err != nil {
			return nil, err
		}
		client, err := factory(model, cfg)
		if err != nil {
			return nil, fmt.Errorf("rpc: client for %s: %w", model, err)
		}
		r.services[model] = NewService(model, client)
	}
	return r, nil
}

// NewStaticRegistry wraps prebuilt clients
func NewStaticRegistry(clients map[string]Client) *Registry {
	r := &Registry{services: make(map[string]*Service, len(clients))}
	for model, c := range clients {
		r.services[model] = NewService(model, c)
	}
	return r
}

// Service returns the service of model
func (r *Registry) Service(model string) (*Service, bool) {
	s, ok := r.services[model]
	return s, ok
}

// Models returns the registered model names, sorted
func (r *Registry) Models() []string {
	out := make([]string, 0, len(r.services))
	for m := range r.services {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// Close closes every client that holds resources
func (r *Registry) Close() error {
	var errs []error
	for _, model := range r.Models() {
		if c, ok := unwrap(r.services[model].Client).(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", model, err))
			}
		}
	}
	return errors.Join(errs...)
}

func unwrap(c Client) Client {
	for {
		w, ok := c.(interface{ Unwrap() Client })
		if !ok {
			return c
		}
		c = w.Unwrap()
	}
}
