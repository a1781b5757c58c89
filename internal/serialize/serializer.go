// Package serialize turns backend records into public representations.
package serialize

import (
	"encoding/json"
	"fmt"

	"github.com/conduit-lang/metagate/internal/metadata"
	"github.com/conduit-lang/metagate/internal/paths"
)

// LinksKey holds the hyperlinks of a serialized record
const LinksKey = "_links"

// SelfLink is the link name of the record's own URL
const SelfLink = "self"

// Embedded marks a related value that has already been serialized by its
// own model. It is copied into the output untouched.
type Embedded struct {
	Value interface{}
}

// MarshalJSON implements json.Marshaler
func (e Embedded) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Value)
}

type relationLink struct {
	relation *metadata.Relation
	template paths.Template
}

// Serializer maps raw records of one model to their public form. Templates
// are resolved once at construction.
type Serializer struct {
	meta    *metadata.Metadata
	baseURL string
	self    *paths.Template
	links   []relationLink
}

// New creates the serializer of meta
func New(meta *metadata.Metadata, builder *paths.Builder, baseURL string) (*Serializer, error) {
	s := &Serializer{meta: meta, baseURL: baseURL}

	// a record that cannot be fetched on its own gets no self link
	if meta.HasAction(metadata.VerbGet) && meta.HasProperty(meta.IDKey) {
		self, err := builder.Resource(meta)
		if err != nil {
			return nil, fmt.Errorf("serialize %s: %w", meta.ModelName, err)
		}
		s.self = &self
	}

	for _, r := range meta.Relations {
		tpl, err := builder.ResourceRelation(r)
		if err != nil {
			return nil, fmt.Errorf("serialize %s.%s: %w", meta.ModelName, r.Name, err)
		}
		s.links = append(s.links, relationLink{relation: r, template: tpl})
	}
	return s, nil
}

// Metadata returns the model served by s
func (s *Serializer) Metadata() *metadata.Metadata {
	return s.meta
}

// Serialize returns the public form of record. Whitelisted properties that
// are absent become null; every other field is dropped except relation
// embeds.
func (s *Serializer) Serialize(record map[string]interface{}) map[string]interface{} {
	if record == nil {
		return nil
	}

	out := make(map[string]interface{}, len(s.meta.Properties)+2)
	for _, p := range s.meta.Properties {
		out[p] = record[p]
	}
	for _, r := range s.meta.Relations {
		if e, ok := record[r.Name].(Embedded); ok {
			out[r.Name] = e
		}
	}

	out[LinksKey] = s.hyperlinks(out)
	return out
}

// SerializeAny serializes a record, a list of records or nil, keeping the
// shape of data. Values that are not records serialize to null.
func (s *Serializer) SerializeAny(data interface{}) interface{} {
	switch v := data.(type) {
	case map[string]interface{}:
		return s.Serialize(v)
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = s.SerializeAny(item)
		}
		return out
	case []map[string]interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = s.Serialize(item)
		}
		return out
	default:
		return nil
	}
}

func (s *Serializer) hyperlinks(props map[string]interface{}) map[string]interface{} {
	links := make(map[string]interface{}, len(s.links)+1)

	base := scalarValues(props)
	id, hasID := paths.Stringify(props[s.meta.IDKey])

	links[SelfLink] = nil
	if s.self != nil && hasID {
		values := withValue(base, "id", id)
		links[SelfLink] = s.url(*s.self, values)
	}

	for _, l := range s.links {
		values := copyValues(base)
		if hasID {
			values[paths.ParentParam(s.meta)] = id
		} else {
			delete(values, paths.ParentParam(s.meta))
		}

		key := s.meta.IDKey
		if l.relation.Type == metadata.RelationResource {
			key = l.relation.ModelFk
		}
		if v, ok := paths.Stringify(props[key]); ok {
			values["id"] = v
		} else {
			delete(values, "id")
		}
		links[l.relation.Name] = s.url(l.template, values)
	}
	return links
}

// url expands t, yielding null when a placeholder cannot be resolved
func (s *Serializer) url(t paths.Template, values map[string]string) interface{} {
	p, ok := t.Expand(values)
	if !ok {
		return nil
	}
	return s.baseURL + p
}

func scalarValues(props map[string]interface{}) map[string]string {
	out := make(map[string]string, len(props))
	for k, v := range props {
		if str, ok := paths.Stringify(v); ok {
			out[k] = str
		}
	}
	return out
}

func copyValues(in map[string]string) map[string]string {
	out := make(map[string]string, len(in)+2)
	for k, v := range in {
		out[k] = v
	}
	return out
}

func withValue(in map[string]string, k, v string) map[string]string {
	out := copyValues(in)
	out[k] = v
	return out
}
