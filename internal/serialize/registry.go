package serialize

import (
	"github.com/conduit-lang/metagate/internal/metadata"
	"github.com/conduit-lang/metagate/internal/paths"
)

// Registry holds one serializer per model and version
type Registry struct {
	serializers map[string]map[string]*Serializer
}

// NewRegistry builds a serializer for every model in ix
func NewRegistry(ix *metadata.Index, builder *paths.Builder, baseURL string) (*Registry, error) {
	r := &Registry{serializers: make(map[string]map[string]*Serializer)}
	for _, m := range ix.All() {
		s, err := New(m, builder, baseURL)
		if err != nil {
			return nil, err
		}
		if r.serializers[m.Version] == nil {
			r.serializers[m.Version] = make(map[string]*Serializer)
		}
		r.serializers[m.Version][m.ModelName] = s
	}
	return r, nil
}

// Lookup returns the serializer of a model
func (r *Registry) Lookup(version, model string) (*Serializer, bool) {
	s, ok := r.serializers[version][model]
	return s, ok
}
