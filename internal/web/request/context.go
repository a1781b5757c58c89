// Package request builds the per-request context shared by generated
// handlers: pagination, forwarded query, RPC payload and headers.
package request

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/conduit-lang/metagate/internal/metadata"
	"github.com/conduit-lang/metagate/internal/paths"
	"github.com/conduit-lang/metagate/internal/rpc"
	"github.com/conduit-lang/metagate/internal/serialize"
	webcontext "github.com/conduit-lang/metagate/internal/web/context"
	"github.com/conduit-lang/metagate/internal/web/query"
)

// RequestIDHeader carries the correlation id to backends
const RequestIDHeader = "X-REQUEST-ID"

// Settings are the runtime options the factory reads
type Settings struct {
	ExcludeQueryString []string
	Claims             []string
}

// Factory builds Contexts for one route. It is created once at startup and
// shared by every request of that route.
type Factory struct {
	meta       *metadata.Metadata
	service    *rpc.Service
	serializer *serialize.Serializer
	settings   Settings
	listing    bool
}

// NewFactory binds a model's service and serializer. Listing factories add
// pagination to the payload.
func NewFactory(meta *metadata.Metadata, service *rpc.Service, serializer *serialize.Serializer, settings Settings, listing bool) *Factory {
	return &Factory{
		meta:       meta,
		service:    service,
		serializer: serializer,
		settings:   settings,
		listing:    listing,
	}
}

// Context is owned by a single request and discarded with it
type Context struct {
	Meta       *metadata.Metadata
	Pagination query.Pagination
	Query      map[string]interface{}
	Params     map[string]string
	Payload    rpc.Payload
	Headers    rpc.Headers
	Principal  webcontext.Principal
	Body       map[string]interface{}
	Embeds     []string
	Service    *rpc.Service
	Serializer *serialize.Serializer
}

// Build derives the Context of r
func (f *Factory) Build(r *http.Request) *Context {
	q := r.URL.Query()
	principal := webcontext.GetPrincipal(r.Context())

	c := &Context{
		Meta:       f.meta,
		Pagination: query.ParsePagination(q),
		Query:      query.Filter(q, f.settings.ExcludeQueryString),
		Params:     PathParams(r),
		Principal:  principal,
		Body:       webcontext.GetBody(r.Context()),
		Embeds:     query.ParseEmbeds(q),
		Service:    f.service,
		Serializer: f.serializer,
	}

	// lowest precedence first: pagination, then query, then path params
	payload := rpc.Payload{}
	if f.listing {
		payload[query.LimitParam] = c.Pagination.Limit
		payload[query.OffsetParam] = c.Pagination.Offset
	}
	for k, v := range c.Query {
		payload[k] = v
	}
	for k, v := range c.Params {
		payload[k] = v
	}

	// singletons are always scoped to the caller, whatever the URL says
	if f.meta.IsSingleton() {
		delete(payload, "id")
		delete(c.Params, "id")
		if claim, ok := principal.Claim(f.meta.CurrentUserKey); ok {
			payload["id"] = claim
			if s, ok := paths.Stringify(claim); ok {
				c.Params["id"] = s
			}
		}
	}
	c.Payload = payload
	c.Headers = Headers(principal, f.settings.Claims, webcontext.GetRequestID(r.Context()))
	return c
}

// PayloadWithoutPagination returns a copy of the payload minus limit/offset
func (c *Context) PayloadWithoutPagination() rpc.Payload {
	p := c.Payload.Clone()
	delete(p, query.LimitParam)
	delete(p, query.OffsetParam)
	return p
}

// ParamsPayload returns the path params as a payload
func (c *Context) ParamsPayload() rpc.Payload {
	p := make(rpc.Payload, len(c.Params))
	for k, v := range c.Params {
		p[k] = v
	}
	return p
}

// PathParams returns the router's path parameters of r
func PathParams(r *http.Request) map[string]string {
	out := map[string]string{}
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return out
	}
	for i, k := range rctx.URLParams.Keys {
		if k == "" || k == "*" || i >= len(rctx.URLParams.Values) {
			continue
		}
		out[k] = rctx.URLParams.Values[i]
	}
	return out
}

// Headers copies the allowed claims of principal and adds the correlation id
func Headers(principal webcontext.Principal, claims []string, requestID string) rpc.Headers {
	h := rpc.Headers{}
	for _, name := range claims {
		v, ok := principal.Claim(name)
		if !ok {
			continue
		}
		if s, ok := paths.Stringify(v); ok {
			h[name] = s
			continue
		}
		// composite claims travel as JSON
		if v != nil {
			if b, err := json.Marshal(v); err == nil {
				h[name] = string(b)
			}
		}
	}
	h[RequestIDHeader] = requestID
	return h
}
