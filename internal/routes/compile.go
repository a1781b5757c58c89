// Package routes compiles normalized metadata into the route table.
package routes

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/conduit-lang/metagate/internal/handlers"
	"github.com/conduit-lang/metagate/internal/metadata"
	"github.com/conduit-lang/metagate/internal/paths"
	"github.com/conduit-lang/metagate/internal/rpc"
	"github.com/conduit-lang/metagate/internal/serialize"
	"github.com/conduit-lang/metagate/internal/web/middleware"
	"github.com/conduit-lang/metagate/internal/web/request"
	"github.com/conduit-lang/metagate/internal/web/response"
)

// Kind identifies what a route does
type Kind string

const (
	KindAction        Kind = "action"
	KindCount         Kind = "count"
	KindList          Kind = "list"
	KindGet           Kind = "get"
	KindCreate        Kind = "create"
	KindUpdate        Kind = "update"
	KindRemove        Kind = "remove"
	KindRelation      Kind = "relation"
	KindRelationCount Kind = "relation_count"
)

// Route is one compiled endpoint
type Route struct {
	Method  string
	Path    paths.Template
	Version string
	Model   string
	Kind    Kind
	// Name is the action or relation name, empty for standard routes
	Name    string
	Handler http.Handler
}

// String renders the route as "METHOD /path"
func (r Route) String() string {
	return r.Method + " " + r.Path.String()
}

// Services resolves the backend of a model
type Services interface {
	Service(model string) (*rpc.Service, bool)
}

// Serializers resolves the serializer of a model
type Serializers interface {
	Lookup(version, model string) (*serialize.Serializer, bool)
}

// Compiler turns metadata into routes. Everything it holds is read-only.
type Compiler struct {
	Lookup      metadata.Lookup
	Builder     *paths.Builder
	Generator   *handlers.Generator
	Translator  *response.Translator
	Services    Services
	Serializers Serializers
	Settings    request.Settings
	// BodyLimit caps JSON bodies; zero means middleware.DefaultBodyLimit
	BodyLimit int64
}

// CompileAll compiles every model of ix, version by version in sorted order
func (c *Compiler) CompileAll(ix *metadata.Index) ([]Route, error) {
	var out []Route
	for _, version := range ix.Versions() {
		for _, m := range ix.Models(version) {
			rs, err := c.Compile(m)
			if err != nil {
				return nil, err
			}
			out = append(out, rs...)
		}
	}
	return out, nil
}

// Compile returns the routes of one model: custom actions first so they are
// not shadowed by resource routes, then count, list, get, create, update,
// remove and finally the collection relations.
func (c *Compiler) Compile(m *metadata.Metadata) ([]Route, error) {
	var out []Route
	add := func(method string, tpl paths.Template, kind Kind, name string, h http.Handler) {
		out = append(out, Route{
			Method:  method,
			Path:    tpl,
			Version: m.Version,
			Model:   m.ModelName,
			Kind:    kind,
			Name:    name,
			Handler: h,
		})
	}
	body := middleware.JSONBody(c.Translator, c.BodyLimit)

	for _, a := range m.CustomActions() {
		tpl, err := c.Builder.NonStandardAction(m, a)
		if err != nil {
			return nil, err
		}
		f, err := c.factory(m, false)
		if err != nil {
			return nil, err
		}
		add(strings.ToUpper(a.HTTPVerb), tpl, KindAction, a.Name, body(c.Generator.Action(a, f)))
	}

	collection, err := c.Builder.Collection(m)
	if err != nil {
		return nil, err
	}
	resource, err := c.Builder.Resource(m)
	if err != nil {
		return nil, err
	}

	if m.HasAction(metadata.VerbCount) {
		tpl, err := c.Builder.CollectionCount(m)
		if err != nil {
			return nil, err
		}
		f, err := c.factory(m, true)
		if err != nil {
			return nil, err
		}
		add(http.MethodGet, tpl, KindCount, "", c.Generator.CollectionCount(f))
	}

	standard := []struct {
		verb    metadata.Verb
		method  string
		tpl     paths.Template
		kind    Kind
		listing bool
		handler func(*request.Factory) http.HandlerFunc
		body    bool
	}{
		{metadata.VerbList, http.MethodGet, collection, KindList, true, c.Generator.List, false},
		{metadata.VerbGet, http.MethodGet, resource, KindGet, false, c.Generator.Get, false},
		{metadata.VerbCreate, http.MethodPost, collection, KindCreate, false, c.Generator.Create, true},
		{metadata.VerbUpdate, http.MethodPut, resource, KindUpdate, false, c.Generator.Update, true},
		{metadata.VerbRemove, http.MethodDelete, resource, KindRemove, false, c.Generator.Remove, false},
	}
	for _, s := range standard {
		if !m.HasAction(s.verb) {
			continue
		}
		f, err := c.factory(m, s.listing)
		if err != nil {
			return nil, err
		}
		var h http.Handler = s.handler(f)
		if s.body {
			h = body(h)
		}
		add(s.method, s.tpl, s.kind, "", h)
	}

	for _, rel := range m.Relations {
		if !rel.IsCollection() {
			continue
		}
		target, ok := c.Lookup.Lookup(rel.Version, rel.Model)
		if !ok {
			return nil, fmt.Errorf("routes %s.%s: unknown model %s", m.ModelName, rel.Name, rel.Model)
		}

		tpl, err := c.Builder.ResourceRelation(rel)
		if err != nil {
			return nil, err
		}
		f, err := c.factory(target, true)
		if err != nil {
			return nil, err
		}
		add(http.MethodGet, tpl, KindRelation, rel.Name, c.Generator.RelationList(rel, m, f))

		if rel.Count {
			tpl, err := c.Builder.ResourceRelationCount(rel)
			if err != nil {
				return nil, err
			}
			f, err := c.factory(target, false)
			if err != nil {
				return nil, err
			}
			add(http.MethodGet, tpl, KindRelationCount, rel.Name, c.Generator.RelationCount(rel, m, f))
		}
	}
	return out, nil
}

func (c *Compiler) factory(m *metadata.Metadata, listing bool) (*request.Factory, error) {
	service, ok := c.Services.Service(m.ModelName)
	if !ok {
		return nil, fmt.Errorf("routes: no service for model %s", m.ModelName)
	}
	serializer, ok := c.Serializers.Lookup(m.Version, m.ModelName)
	if !ok {
		return nil, fmt.Errorf("routes: no serializer for %s/%s", m.Version, m.ModelName)
	}
	return request.NewFactory(m, service, serializer, c.Settings, listing), nil
}
