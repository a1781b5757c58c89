// Package rpctest provides an in-memory rpc.Client for tests.
package rpctest

import (
	"context"
	"sync"

	"github.com/conduit-lang/metagate/internal/rpc"
)

// Call is one recorded invocation
type Call struct {
	Verb    string
	Payload rpc.Payload
	Headers rpc.Headers
}

// Fake records calls and answers them from per-verb scripts.
// It is safe for concurrent use.
type Fake struct {
	mu        sync.Mutex
	calls     []Call
	responses map[string]*rpc.Response
	errors    map[string]error
	handlers  map[string]rpc.ClientFunc
}

// New creates an empty Fake. Unscripted verbs answer with a nil payload.
func New() *Fake {
	return &Fake{
		responses: make(map[string]*rpc.Response),
		errors:    make(map[string]error),
		handlers:  make(map[string]rpc.ClientFunc),
	}
}

// Respond scripts a successful response for verb
func (f *Fake) Respond(verb string, status int, payload interface{}) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[verb] = &rpc.Response{Status: status, Payload: payload}
	return f
}

// Fail scripts an error for verb
func (f *Fake) Fail(verb string, err error) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errors[verb] = err
	return f
}

// Handle scripts a function for verb
func (f *Fake) Handle(verb string, fn rpc.ClientFunc) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[verb] = fn
	return f
}

// Call implements rpc.Client
func (f *Fake) Call(ctx context.Context, verb string, payload rpc.Payload, headers rpc.Headers) (*rpc.Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Verb: verb, Payload: payload.Clone(), Headers: cloneHeaders(headers)})
	fn := f.handlers[verb]
	err := f.errors[verb]
	res := f.responses[verb]
	f.mu.Unlock()

	if fn != nil {
		return fn(ctx, verb, payload, headers)
	}
	if err != nil {
		return nil, err
	}
	if res == nil {
		return &rpc.Response{}, nil
	}
	out := *res
	return &out, nil
}

// Calls returns every recorded call
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CallsTo returns the recorded calls of verb
func (f *Fake) CallsTo(verb string) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.Verb == verb {
			out = append(out, c)
		}
	}
	return out
}

// Last returns the most recent call of verb and whether there was one
func (f *Fake) Last(verb string) (Call, bool) {
	calls := f.CallsTo(verb)
	if len(calls) == 0 {
		return Call{}, false
	}
	return calls[len(calls)-1], true
}

func cloneHeaders(h rpc.Headers) rpc.Headers {
	if h == nil {
		return nil
	}
	out := make(rpc.Headers, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}
