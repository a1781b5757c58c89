package metadata

import (
	"encoding/json"
	"fmt"
)

// Descriptor is the raw, author-facing description of a model as found in
// configuration or metadata files.
type Descriptor struct {
	Parent         string        `json:"parent,omitempty"`
	IDKey          string        `json:"idKey,omitempty"`
	CurrentUserKey string        `json:"currentUserKey,omitempty"`
	Properties     []string      `json:"properties,omitempty"`
	Path           *RawPath      `json:"path,omitempty"`
	Actions        []RawAction   `json:"actions,omitempty"`
	Relations      []RawRelation `json:"relations,omitempty"`
}

// RawPath accepts either a string shorthand or a {prefix, value} object
type RawPath struct {
	Prefix string `json:"prefix,omitempty"`
	Value  string `json:"value,omitempty"`
}

// UnmarshalJSON implements json.Unmarshaler
func (p *RawPath) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*p = RawPath{Value: s}
		return nil
	}
	type plain RawPath
	var v plain
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("path: %w", err)
	}
	*p = RawPath(v)
	return nil
}

// RawAction is either a standard action name or a custom action object
type RawAction struct {
	Standard string   `json:"-"`
	Name     string   `json:"name,omitempty"`
	Verb     string   `json:"verb,omitempty"`
	HTTPVerb string   `json:"httpVerb,omitempty"`
	Resource *bool    `json:"resource,omitempty"`
	Allow    []string `json:"allow,omitempty"`
}

// UnmarshalJSON implements json.Unmarshaler
func (a *RawAction) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*a = RawAction{Standard: s}
		return nil
	}
	type plain RawAction
	var v plain
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("action: %w", err)
	}
	*a = RawAction(v)
	return nil
}

// MarshalJSON implements json.Marshaler
func (a RawAction) MarshalJSON() ([]byte, error) {
	if a.Standard != "" {
		return json.Marshal(a.Standard)
	}
	type plain RawAction
	return json.Marshal(plain(a))
}

// RawRelation is the author-facing form of a Relation
type RawRelation struct {
	Type    string `json:"type,omitempty"`
	Name    string `json:"name"`
	Model   string `json:"model,omitempty"`
	ModelFk string `json:"modelFk,omitempty"`
	Count   bool   `json:"count,omitempty"`
}
