// Package rpc is the boundary to the per-model backend services.
package rpc

import (
	"context"

	"github.com/conduit-lang/metagate/internal/metadata"
)

// Payload is the body of an RPC call
type Payload map[string]interface{}

// Clone returns a shallow copy of p
func (p Payload) Clone() Payload {
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Headers are forwarded alongside every call
type Headers map[string]string

// Response is a successful RPC result. A zero Status means the backend did
// not specify one.
type Response struct {
	Status  int         `json:"status,omitempty"`
	Payload interface{} `json:"payload"`
}

// Client performs a single RPC round-trip. Failures are returned as errors;
// use AsError to obtain the public shape.
type Client interface {
	Call(ctx context.Context, verb string, payload Payload, headers Headers) (*Response, error)
}

// ClientFunc adapts a function to Client
type ClientFunc func(ctx context.Context, verb string, payload Payload, headers Headers) (*Response, error)

// Call implements Client
func (f ClientFunc) Call(ctx context.Context, verb string, payload Payload, headers Headers) (*Response, error) {
	return f(ctx, verb, payload, headers)
}

// Service binds a Client to one model and adds the standard verbs
type Service struct {
	Model  string
	Client Client
}

// NewService creates a Service
func NewService(model string, c Client) *Service {
	return &Service{Model: model, Client: c}
}

// Call issues an arbitrary verb
func (s *Service) Call(ctx context.Context, verb string, payload Payload, headers Headers) (*Response, error) {
	return s.Client.Call(ctx, verb, payload, headers)
}

func (s *Service) List(ctx context.Context, payload Payload, headers Headers) (*Response, error) {
	return s.Call(ctx, string(metadata.VerbList), payload, headers)
}

func (s *Service) Get(ctx context.Context, payload Payload, headers Headers) (*Response, error) {
	return s.Call(ctx, string(metadata.VerbGet), payload, headers)
}

func (s *Service) Create(ctx context.Context, payload Payload, headers Headers) (*Response, error) {
	return s.Call(ctx, string(metadata.VerbCreate), payload, headers)
}

func (s *Service) Update(ctx context.Context, payload Payload, headers Headers) (*Response, error) {
	return s.Call(ctx, string(metadata.VerbUpdate), payload, headers)
}

func (s *Service) Remove(ctx context.Context, payload Payload, headers Headers) (*Response, error) {
	return s.Call(ctx, string(metadata.VerbRemove), payload, headers)
}

func (s *Service) Count(ctx context.Context, payload Payload, headers Headers) (*Response, error) {
	return s.Call(ctx, string(metadata.VerbCount), payload, headers)
}

func (s *Service) Batch(ctx context.Context, payload Payload, headers Headers) (*Response, error) {
	return s.Call(ctx, string(metadata.VerbBatch), payload, headers)
}
