// Package embed splices related records into responses with one batched
// RPC call per requested relation.
package embed

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/conduit-lang/metagate/internal/log"
	"github.com/conduit-lang/metagate/internal/metadata"
	"github.com/conduit-lang/metagate/internal/paths"
	"github.com/conduit-lang/metagate/internal/rpc"
	"github.com/conduit-lang/metagate/internal/serialize"
)

// DataKey holds the related value inside a batch tuple
const DataKey = "data"

// Services resolves the backend of a model
type Services interface {
	Service(model string) (*rpc.Service, bool)
}

// Serializers resolves the serializer of a model
type Serializers interface {
	Lookup(version, model string) (*serialize.Serializer, bool)
}

// Resolver embeds related records. It holds no per-request state.
type Resolver struct {
	services    Services
	serializers Serializers
	lookup      metadata.Lookup
}

// NewResolver creates a Resolver
func NewResolver(services Services, serializers Serializers, lookup metadata.Lookup) *Resolver {
	return &Resolver{services: services, serializers: serializers, lookup: lookup}
}

// Resolve returns data with each requested relation of meta attached to every
// record as a serialize.Embedded value. A record is a JSON object; data is a
// record, a list of records or nil, and the result has the same shape. When
// there is nothing to embed data is returned as is.
func (r *Resolver) Resolve(ctx context.Context, meta *metadata.Metadata, embeds []string, headers rpc.Headers, data interface{}) interface{} {
	relations := requested(meta, embeds)
	if len(relations) == 0 {
		return data
	}

	var items []interface{}
	single := false
	switch v := data.(type) {
	case map[string]interface{}:
		single = true
		items = []interface{}{v}
	case []interface{}:
		if len(v) == 0 {
			return data
		}
		items = v
	default:
		return data
	}
	records := make([]map[string]interface{}, len(items))
	for i, item := range items {
		records[i], _ = item.(map[string]interface{})
	}

	// fetch concurrently, splice sequentially
	results := make([]map[string]interface{}, len(relations))
	var g errgroup.Group
	for i, rel := range relations {
		i, rel := i, rel
		g.Go(func() error {
			matches, err := r.fetch(ctx, meta, rel, headers, records)
			if err != nil {
				log.From(ctx).Warn("embed failed",
					zap.String("model", meta.ModelName),
					zap.String("relation", rel.Name),
					zap.Error(err))
				return nil
			}
			results[i] = matches
			return nil
		})
	}
	_ = g.Wait()

	out := make([]interface{}, len(records))
	for i, rec := range records {
		if rec == nil {
			out[i] = items[i]
			continue
		}
		embedded := make(map[string]interface{}, len(rec)+len(relations))
		for k, v := range rec {
			embedded[k] = v
		}
		for j, rel := range relations {
			var value interface{}
			if key, ok := paths.Stringify(rec[sourceKey(meta, rel)]); ok && results[j] != nil {
				value = results[j][key]
			}
			embedded[rel.Name] = serialize.Embedded{Value: value}
		}
		out[i] = embedded
	}

	if single {
		return out[0]
	}
	return out
}

// fetch issues the batch call of rel and returns the serialized related
// values keyed by match value
func (r *Resolver) fetch(ctx context.Context, meta *metadata.Metadata, rel *metadata.Relation, headers rpc.Headers, records []map[string]interface{}) (map[string]interface{}, error) {
	target, ok := r.lookup.Lookup(rel.Version, rel.Model)
	if !ok {
		return nil, fmt.Errorf("unknown model %s/%s", rel.Version, rel.Model)
	}
	service, ok := r.services.Service(rel.Model)
	if !ok {
		return nil, fmt.Errorf("no service for model %s", rel.Model)
	}
	serializer, ok := r.serializers.Lookup(rel.Version, rel.Model)
	if !ok {
		return nil, fmt.Errorf("no serializer for model %s", rel.Model)
	}

	src := sourceKey(meta, rel)
	values := make([]interface{}, 0, len(records))
	for _, rec := range records {
		if rec != nil {
			values = append(values, rec[src])
		}
	}

	match := matchKey(target, rel)
	res, err := service.Batch(ctx, rpc.Payload{match: values}, headers)
	if err != nil {
		return nil, err
	}

	tuples, ok := res.Payload.([]interface{})
	if !ok {
		return nil, fmt.Errorf("batch %s: payload is %T, not a list", rel.Model, res.Payload)
	}

	out := make(map[string]interface{}, len(tuples))
	for _, t := range tuples {
		tuple, ok := t.(map[string]interface{})
		if !ok {
			continue
		}
		key, ok := paths.Stringify(tuple[match])
		if !ok {
			continue
		}
		// first tuple wins
		if _, seen := out[key]; !seen {
			out[key] = serializer.SerializeAny(tuple[DataKey])
		}
	}
	return out, nil
}

// sourceKey is the field of the owning record that identifies its related value
func sourceKey(meta *metadata.Metadata, rel *metadata.Relation) string {
	if rel.IsCollection() {
		return meta.IDKey
	}
	return rel.ModelFk
}

// matchKey is the field of a batch tuple compared against sourceKey
func matchKey(target *metadata.Metadata, rel *metadata.Relation) string {
	if rel.IsCollection() {
		return rel.ModelFk
	}
	return target.IDKey
}

// requested returns the relations of meta named in embeds, in declaration order
func requested(meta *metadata.Metadata, embeds []string) []*metadata.Relation {
	if len(embeds) == 0 {
		return nil
	}
	want := make(map[string]bool, len(embeds))
	for _, e := range embeds {
		want[e] = true
	}
	var out []*metadata.Relation
	for _, rel := range meta.Relations {
		if want[rel.Name] {
			out = append(out, rel)
		}
	}
	return out
}
