package metadata

import (
	"fmt"
	"sort"
)

// Lookup resolves a model name to its metadata within one version
type Lookup interface {
	Lookup(version, model string) (*Metadata, bool)
}

// Index holds every normalized model keyed by version and model name.
// Relations store only names, so cycles between models are resolved here
// on demand rather than by embedding references.
type Index struct {
	versions map[string]map[string]*Metadata
}

// NewIndex creates an empty index
func NewIndex() *Index {
	return &Index{versions: make(map[string]map[string]*Metadata)}
}

// Build normalizes every descriptor and validates cross references
func Build(raw map[string]map[string]Descriptor) (*Index, error) {
	ix := NewIndex()
	for _, version := range sortedKeys(raw) {
		models := raw[version]
		for _, name := range sortedKeys(models) {
			m, err := Normalize(version, name, models[name])
			if err != nil {
				return nil, err
			}
			if err := ix.Add(m); err != nil {
				return nil, err
			}
		}
	}
	if err := ix.Validate(); err != nil {
		return nil, err
	}
	return ix, nil
}

// Add registers a normalized record
func (ix *Index) Add(m *Metadata) error {
	models, ok := ix.versions[m.Version]
	if !ok {
		models = make(map[string]*Metadata)
		ix.versions[m.Version] = models
	}
	if _, exists := models[m.ModelName]; exists {
		return fmt.Errorf("metadata: %s/%s registered twice", m.Version, m.ModelName)
	}
	models[m.ModelName] = m
	return nil
}

// Lookup implements Lookup
func (ix *Index) Lookup(version, model string) (*Metadata, bool) {
	m, ok := ix.versions[version][model]
	return m, ok
}

// Versions returns the known versions in sorted order
func (ix *Index) Versions() []string {
	return sortedKeys(ix.versions)
}

// Models returns the models of a version sorted by name
func (ix *Index) Models(version string) []*Metadata {
	models := ix.versions[version]
	out := make([]*Metadata, 0, len(models))
	for _, name := range sortedKeys(models) {
		out = append(out, models[name])
	}
	return out
}

// All returns every model of every version in a stable order
func (ix *Index) All() []*Metadata {
	var out []*Metadata
	for _, v := range ix.Versions() {
		out = append(out, ix.Models(v)...)
	}
	return out
}

// Validate checks that parents and relation targets exist and that parent
// chains terminate.
func (ix *Index) Validate() error {
	for _, m := range ix.All() {
		if m.Parent != "" {
			if _, ok := ix.Lookup(m.Version, m.Parent); !ok {
				return fmt.Errorf("metadata: %s/%s: unknown parent %q", m.Version, m.ModelName, m.Parent)
			}
			if err := ix.checkParentChain(m); err != nil {
				return err
			}
		}
		for _, r := range m.Relations {
			if _, ok := ix.Lookup(m.Version, r.Model); !ok {
				return &RelationError{Version: m.Version, Model: m.ModelName, Name: r.Name, Reason: fmt.Sprintf("unknown model %q", r.Model)}
			}
		}
	}
	return nil
}

func (ix *Index) checkParentChain(m *Metadata) error {
	seen := map[string]bool{m.ModelName: true}
	cur := m
	for cur.Parent != "" {
		if seen[cur.Parent] {
			return fmt.Errorf("metadata: %s/%s: parent cycle through %q", m.Version, m.ModelName, cur.Parent)
		}
		seen[cur.Parent] = true
		next, ok := ix.Lookup(m.Version, cur.Parent)
		if !ok {
			return fmt.Errorf("metadata: %s/%s: unknown parent %q", m.Version, cur.ModelName, cur.Parent)
		}
		cur = next
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
