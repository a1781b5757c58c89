package metadata

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jinzhu/copier"
	"github.com/jinzhu/inflection"
)

// Normalize turns a raw descriptor into a fully-defaulted Metadata record.
// The descriptor is deep-copied first so the caller's value is never touched.
// Any invalid action or relation aborts normalization with a typed error.
func Normalize(version, modelName string, raw Descriptor) (*Metadata, error) {
	if version == "" {
		return nil, errors.New("metadata: version is required")
	}
	if modelName == "" {
		return nil, fmt.Errorf("metadata: %s: model name is required", version)
	}

	var d Descriptor
	if err := copier.CopyWithOption(&d, &raw, copier.Option{DeepCopy: true}); err != nil {
		return nil, fmt.Errorf("metadata: clone %s/%s: %w", version, modelName, err)
	}

	m := &Metadata{
		Version:        version,
		ModelName:      modelName,
		Parent:         d.Parent,
		IDKey:          d.IDKey,
		CurrentUserKey: d.CurrentUserKey,
		Properties:     append([]string{}, d.Properties...),
		Actions:        []Action{},
		Relations:      []*Relation{},
	}
	if m.IDKey == "" {
		m.IDKey = DefaultIDKey
	}
	if d.Path != nil {
		m.Path = PathOverride{
			Prefix: strings.Trim(d.Path.Prefix, "/"),
			Value:  strings.Trim(d.Path.Value, "/"),
		}
	}

	for i, ra := range d.Actions {
		a, err := normalizeAction(ra)
		if err != nil {
			err.Version, err.Model, err.Index = version, modelName, i
			return nil, err
		}
		m.Actions = append(m.Actions, a)
	}

	seen := make(map[string]bool, len(d.Relations))
	for _, rr := range d.Relations {
		r, err := normalizeRelation(m, rr)
		if err != nil {
			return nil, err
		}
		if seen[r.Name] {
			return nil, &RelationError{Version: version, Model: modelName, Name: r.Name, Reason: "declared twice"}
		}
		seen[r.Name] = true
		m.Relations = append(m.Relations, r)
	}

	return m, nil
}

func normalizeAction(ra RawAction) (Action, *ActionError) {
	if ra.Standard != "" {
		v := Verb(strings.ToLower(strings.TrimSpace(ra.Standard)))
		if !IsStandardAction(v) {
			return Action{}, &ActionError{Field: "standard action", Value: ra.Standard}
		}
		return Action{Kind: ActionStandard, Standard: v}, nil
	}

	httpVerb := strings.ToLower(strings.TrimSpace(ra.HTTPVerb))
	if !httpVerbs[httpVerb] {
		return Action{}, &ActionError{Field: "httpVerb", Value: ra.HTTPVerb}
	}
	name := strings.TrimSpace(ra.Name)
	if name == "" {
		return Action{}, &ActionError{Field: "name"}
	}
	verb := strings.TrimSpace(ra.Verb)
	if verb == "" {
		return Action{}, &ActionError{Field: "verb"}
	}

	resource := true
	if ra.Resource != nil {
		resource = *ra.Resource
	}

	return Action{
		Kind: ActionCustom,
		Custom: &CustomAction{
			Name:     name,
			Verb:     verb,
			HTTPVerb: httpVerb,
			Resource: resource,
			Allow:    append([]string{}, ra.Allow...),
		},
	}, nil
}

func normalizeRelation(m *Metadata, rr RawRelation) (*Relation, error) {
	if rr.Name == "" {
		return nil, &RelationError{Version: m.Version, Model: m.ModelName, Reason: "name is required"}
	}
	typ, err := ParseRelationType(rr.Type)
	if err != nil {
		return nil, &RelationError{Version: m.Version, Model: m.ModelName, Name: rr.Name, Reason: err.Error()}
	}
	if typ == RelationResource && rr.Count {
		return nil, &RelationError{Version: m.Version, Model: m.ModelName, Name: rr.Name, Reason: "count requires a collection relation"}
	}

	r := &Relation{
		Type:    typ,
		Name:    rr.Name,
		Model:   rr.Model,
		Parent:  m.ModelName,
		ModelFk: rr.ModelFk,
		Version: m.Version,
		Count:   rr.Count,
	}
	if r.Model == "" {
		r.Model = inflection.Singular(rr.Name)
	}
	if r.ModelFk == "" {
		if typ == RelationCollection {
			r.ModelFk = r.Parent + "Id"
		} else {
			r.ModelFk = r.Model + "Id"
		}
	}
	return r, nil
}
