// Package handlers generates the HTTP handlers of compiled routes. Every
// handler is a linear pipeline: build the request context, call the backend,
// embed, serialize, respond. Failures go through the shared Translator.
package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/conduit-lang/metagate/internal/embed"
	"github.com/conduit-lang/metagate/internal/log"
	"github.com/conduit-lang/metagate/internal/metadata"
	"github.com/conduit-lang/metagate/internal/rpc"
	"github.com/conduit-lang/metagate/internal/web/request"
	"github.com/conduit-lang/metagate/internal/web/response"
)

// CountKey wraps count results
const CountKey = "count"

// Generator creates handlers bound to one request factory each
type Generator struct {
	translator *response.Translator
	resolver   *embed.Resolver
}

// NewGenerator creates a Generator
func NewGenerator(translator *response.Translator, resolver *embed.Resolver) *Generator {
	return &Generator{translator: translator, resolver: resolver}
}

// List returns every matching record
func (g *Generator) List(f *request.Factory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := f.Build(r)
		res, err := c.Service.List(r.Context(), c.Payload, c.Headers)
		if err != nil {
			g.fail(w, r, c, string(metadata.VerbList), err)
			return
		}
		g.renderList(w, r, c, res)
	}
}

// CollectionCount counts matching records
func (g *Generator) CollectionCount(f *request.Factory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := f.Build(r)
		g.count(w, r, c, c.PayloadWithoutPagination())
	}
}

// Get returns one record
func (g *Generator) Get(f *request.Factory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := f.Build(r)
		res, err := c.Service.Get(r.Context(), c.Payload, c.Headers)
		if err != nil {
			g.fail(w, r, c, string(metadata.VerbGet), err)
			return
		}
		data := g.resolver.Resolve(r.Context(), c.Meta, c.Embeds, c.Headers, res.Payload)
		response.RenderJSON(w, http.StatusOK, c.Serializer.SerializeAny(data))
	}
}

// Create forwards the whitelisted body
func (g *Generator) Create(f *request.Factory) http.HandlerFunc {
	return g.write(f, metadata.VerbCreate)
}

// Update forwards the whitelisted body; path params override body fields
func (g *Generator) Update(f *request.Factory) http.HandlerFunc {
	return g.write(f, metadata.VerbUpdate)
}

func (g *Generator) write(f *request.Factory, verb metadata.Verb) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := f.Build(r)
		payload := withBody(c, c.Meta.Properties)
		res, err := c.Service.Call(r.Context(), string(verb), payload, c.Headers)
		if err != nil {
			g.fail(w, r, c, string(verb), err)
			return
		}
		g.renderStatus(w, res, func() interface{} {
			return c.Serializer.SerializeAny(res.Payload)
		})
	}
}

// Remove deletes the record addressed by the path
func (g *Generator) Remove(f *request.Factory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := f.Build(r)
		res, err := c.Service.Remove(r.Context(), c.ParamsPayload(), c.Headers)
		if err != nil {
			g.fail(w, r, c, string(metadata.VerbRemove), err)
			return
		}
		g.renderStatus(w, res, func() interface{} {
			return c.Serializer.SerializeAny(res.Payload)
		})
	}
}

// RelationList lists the related records of the owner addressed by the path.
// f must be bound to the relation's target model.
func (g *Generator) RelationList(rel *metadata.Relation, owner *metadata.Metadata, f *request.Factory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := f.Build(r)
		scope(c, c.Payload, rel, owner)
		res, err := c.Service.List(r.Context(), c.Payload, c.Headers)
		if err != nil {
			g.fail(w, r, c, string(metadata.VerbList), err)
			return
		}
		g.renderList(w, r, c, res)
	}
}

// RelationCount counts the related records of the owner addressed by the path
func (g *Generator) RelationCount(rel *metadata.Relation, owner *metadata.Metadata, f *request.Factory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := f.Build(r)
		payload := c.PayloadWithoutPagination()
		scope(c, payload, rel, owner)
		g.count(w, r, c, payload)
	}
}

// Action calls a custom verb with the body fields the action allows
func (g *Generator) Action(a *metadata.CustomAction, f *request.Factory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := f.Build(r)
		payload := withBody(c, a.Allow)
		res, err := c.Service.Call(r.Context(), a.Verb, payload, c.Headers)
		if err != nil {
			g.fail(w, r, c, a.Verb, err)
			return
		}
		g.renderStatus(w, res, func() interface{} {
			data := g.resolver.Resolve(r.Context(), c.Meta, c.Embeds, c.Headers, res.Payload)
			return c.Serializer.SerializeAny(data)
		})
	}
}

func (g *Generator) count(w http.ResponseWriter, r *http.Request, c *request.Context, payload rpc.Payload) {
	res, err := c.Service.Count(r.Context(), payload, c.Headers)
	if err != nil {
		g.fail(w, r, c, string(metadata.VerbCount), err)
		return
	}
	response.RenderJSON(w, http.StatusOK, map[string]interface{}{CountKey: res.Payload})
}

func (g *Generator) renderList(w http.ResponseWriter, r *http.Request, c *request.Context, res *rpc.Response) {
	data := g.resolver.Resolve(r.Context(), c.Meta, c.Embeds, c.Headers, asList(res.Payload))
	response.RenderJSON(w, http.StatusOK, c.Serializer.SerializeAny(data))
}

// renderStatus honours the backend status: 204 has no body, zero means 200
func (g *Generator) renderStatus(w http.ResponseWriter, res *rpc.Response, body func() interface{}) {
	switch res.Status {
	case http.StatusNoContent:
		response.RenderNoContent(w)
	case 0:
		response.RenderJSON(w, http.StatusOK, body())
	default:
		response.RenderJSON(w, res.Status, body())
	}
}

func (g *Generator) fail(w http.ResponseWriter, r *http.Request, c *request.Context, verb string, err error) {
	status, env := g.translator.Translate(err)
	logger := log.From(r.Context()).With(
		zap.String("model", c.Meta.ModelName),
		zap.String("verb", verb),
		zap.Int("status", status),
		zap.String("developer_message", env.DeveloperMessage),
	)
	if status >= http.StatusInternalServerError {
		logger.Error("backend call failed", zap.Error(err))
	} else {
		logger.Info("backend call rejected")
	}
	response.RenderJSON(w, status, env)
}

// withBody returns the path params merged over the allowed body fields
func withBody(c *request.Context, allow []string) rpc.Payload {
	payload := rpc.Payload{}
	for _, k := range allow {
		if v, ok := c.Body[k]; ok {
			payload[k] = v
		}
	}
	for k, v := range c.Params {
		payload[k] = v
	}
	return payload
}

// scope seeds payload with the owner's id and, for caller-bound owners,
// the caller's claim. A caller-bound owner has no id in its path.
func scope(c *request.Context, payload rpc.Payload, rel *metadata.Relation, owner *metadata.Metadata) {
	if owner.CurrentUserKey != "" {
		if claim, ok := c.Principal.Claim(owner.CurrentUserKey); ok {
			payload[owner.CurrentUserKey] = claim
		}
	}
	if id, ok := c.Params["id"]; ok {
		payload[rel.ModelFk] = id
	}
	delete(payload, "id")
}

// asList coerces a list response to a list
func asList(v interface{}) interface{} {
	switch v.(type) {
	case nil:
		return []interface{}{}
	case []interface{}:
		return v
	default:
		return []interface{}{v}
	}
}
