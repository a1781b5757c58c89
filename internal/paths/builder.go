// Package paths derives URL templates from normalized metadata.
package paths

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jinzhu/inflection"

	"github.com/conduit-lang/metagate/internal/metadata"
)

// ErrRelationCountUnsupported is returned when a count path is requested
// for a singular relation.
var ErrRelationCountUnsupported = errors.New("paths: count is not defined for resource relations")

// CountSegment is the literal appended for count routes
const CountSegment = "count"

// Builder computes templates against a metadata lookup. It holds no state
// besides the lookup, so repeated calls yield identical templates.
type Builder struct {
	lookup metadata.Lookup
}

// NewBuilder creates a Builder
func NewBuilder(lookup metadata.Lookup) *Builder {
	return &Builder{lookup: lookup}
}

// collectionSegment returns the collection segment of a model: its path
// override or its lower-cased plural name.
func collectionSegment(m *metadata.Metadata) string {
	if m.Path.Value != "" {
		return m.Path.Value
	}
	return strings.ToLower(inflection.Plural(m.ModelName))
}

// Collection returns the collection template of m
func (b *Builder) Collection(m *metadata.Metadata) (Template, error) {
	segment := literals(collectionSegment(m))

	if m.Parent != "" {
		parent, err := b.model(m.Version, m.Parent)
		if err != nil {
			return Template{}, err
		}
		base, err := b.ParentResource(parent)
		if err != nil {
			return Template{}, err
		}
		return base.Append(segment...), nil
	}

	var t Template
	if m.Path.Prefix != "" {
		t = t.Append(literals(m.Path.Prefix)...)
	}
	return t.Append(Lit(m.Version)).Append(segment...), nil
}

// Resource returns the template addressing a single record of m. Singleton
// resources have no id placeholder.
func (b *Builder) Resource(m *metadata.Metadata) (Template, error) {
	c, err := b.Collection(m)
	if err != nil {
		return Template{}, err
	}
	if m.IsSingleton() {
		return c, nil
	}
	return c.Append(Param("id")), nil
}

// ParentResource returns the resource template of m as used by nested
// children, with the id placeholder named "<model>Id".
func (b *Builder) ParentResource(m *metadata.Metadata) (Template, error) {
	c, err := b.Collection(m)
	if err != nil {
		return Template{}, err
	}
	return c.Append(Param(ParentParam(m))), nil
}

// ParentParam is the placeholder name children use for m's id
func ParentParam(m *metadata.Metadata) string {
	return m.ModelName + "Id"
}

// CollectionCount returns the count template of m
func (b *Builder) CollectionCount(m *metadata.Metadata) (Template, error) {
	c, err := b.Collection(m)
	if err != nil {
		return Template{}, err
	}
	return c.Append(Lit(CountSegment)), nil
}

// ResourceRelation returns the template of a relation. A resource relation
// points at the target's own resource template; a collection relation is
// nested under the owning resource.
func (b *Builder) ResourceRelation(r *metadata.Relation) (Template, error) {
	if r.Type == metadata.RelationResource {
		target, err := b.model(r.Version, r.Model)
		if err != nil {
			return Template{}, err
		}
		return b.Resource(target)
	}

	owner, err := b.model(r.Version, r.Parent)
	if err != nil {
		return Template{}, err
	}
	base, err := b.Resource(owner)
	if err != nil {
		return Template{}, err
	}
	return base.Append(Lit(r.Name)), nil
}

// ResourceRelationCount returns the count template of a collection relation
func (b *Builder) ResourceRelationCount(r *metadata.Relation) (Template, error) {
	if r.Type == metadata.RelationResource {
		return Template{}, fmt.Errorf("%w: %s.%s", ErrRelationCountUnsupported, r.Parent, r.Name)
	}
	t, err := b.ResourceRelation(r)
	if err != nil {
		return Template{}, err
	}
	return t.Append(Lit(CountSegment)), nil
}

// NonStandardAction returns the template of a custom action
func (b *Builder) NonStandardAction(m *metadata.Metadata, a *metadata.CustomAction) (Template, error) {
	var (
		base Template
		err  error
	)
	if a.Resource {
		base, err = b.Resource(m)
	} else {
		base, err = b.Collection(m)
	}
	if err != nil {
		return Template{}, err
	}
	return base.Append(Lit(strings.ToLower(a.Name))), nil
}

func (b *Builder) model(version, name string) (*metadata.Metadata, error) {
	m, ok := b.lookup.Lookup(version, name)
	if !ok {
		return nil, fmt.Errorf("paths: unknown model %s/%s", version, name)
	}
	return m, nil
}

func literals(path string) []Segment {
	var out []Segment
	for _, part := range strings.Split(path, "/") {
		if part != "" {
			out = append(out, Lit(part))
		}
	}
	return out
}
