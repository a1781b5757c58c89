package metadata

import (
	"fmt"
	"strings"
)

// DefaultIDKey is the identifier property used when a descriptor omits idKey
const DefaultIDKey = "id"

// RelationType distinguishes belongs-to from has-many relations
type RelationType int

const (
	// RelationResource is a singular (belongs-to) relation
	RelationResource RelationType = iota
	// RelationCollection is a plural (has-many) relation
	RelationCollection
)

// String returns the descriptor spelling of the relation type
func (t RelationType) String() string {
	switch t {
	case RelationResource:
		return "resource"
	case RelationCollection:
		return "collection"
	default:
		return fmt.Sprintf("RelationType(%d)", int(t))
	}
}

// ParseRelationType converts a descriptor string into a RelationType.
// An empty string is treated as a resource relation.
func ParseRelationType(s string) (RelationType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "resource":
		return RelationResource, nil
	case "collection":
		return RelationCollection, nil
	default:
		return 0, fmt.Errorf("unknown relation type %q", s)
	}
}

// Relation links a model to another model of the same version
type Relation struct {
	Type    RelationType
	Name    string // public name, path segment and embed key
	Model   string // target model name
	Parent  string // owning model name
	ModelFk string // foreign key field
	Version string
	Count   bool
}

// IsCollection reports whether the relation is has-many
func (r *Relation) IsCollection() bool {
	return r.Type == RelationCollection
}

// Verb is a standard RPC verb
type Verb string

const (
	VerbList   Verb = "list"
	VerbGet    Verb = "get"
	VerbCreate Verb = "create"
	VerbUpdate Verb = "update"
	VerbRemove Verb = "remove"
	VerbCount  Verb = "count"
	VerbBatch  Verb = "batch"
)

// standardActions are the verbs a descriptor may enable by name
var standardActions = map[Verb]bool{
	VerbList:   true,
	VerbGet:    true,
	VerbCreate: true,
	VerbUpdate: true,
	VerbRemove: true,
	VerbCount:  true,
}

// IsStandardAction reports whether v can be enabled as a standard action
func IsStandardAction(v Verb) bool {
	return standardActions[v]
}

// httpVerbs are the methods a custom action may be bound to
var httpVerbs = map[string]bool{
	"get":    true,
	"put":    true,
	"post":   true,
	"delete": true,
}

// ActionKind tags an Action as standard or custom
type ActionKind int

const (
	ActionStandard ActionKind = iota
	ActionCustom
)

// Action is either a standard verb or a custom action descriptor
type Action struct {
	Kind     ActionKind
	Standard Verb
	Custom   *CustomAction
}

// CustomAction is a non-standard action bound to its own route
type CustomAction struct {
	Name     string
	Verb     string // RPC verb
	HTTPVerb string // lower-case HTTP method
	Resource bool   // bound to the resource path rather than the collection path
	Allow    []string
}

// PathOverride replaces the default pluralized collection segment
type PathOverride struct {
	Prefix string
	Value  string
}

// Metadata is the normalized description of one model in one version.
// It is built once by Normalize and must be treated as read-only.
type Metadata struct {
	Version        string
	ModelName      string
	Parent         string
	IDKey          string
	CurrentUserKey string
	Properties     []string
	Path           PathOverride
	Actions        []Action
	Relations      []*Relation
}

// HasAction reports whether the standard verb v is enabled
func (m *Metadata) HasAction(v Verb) bool {
	for _, a := range m.Actions {
		if a.Kind == ActionStandard && a.Standard == v {
			return true
		}
	}
	return false
}

// CustomActions returns the non-standard actions in declaration order
func (m *Metadata) CustomActions() []*CustomAction {
	var out []*CustomAction
	for _, a := range m.Actions {
		if a.Kind == ActionCustom {
			out = append(out, a.Custom)
		}
	}
	return out
}

// Relation returns the relation with the given public name, or nil
func (m *Metadata) Relation(name string) *Relation {
	for _, r := range m.Relations {
		if r.Name == name {
			return r
		}
	}
	return nil
}

// HasProperty reports whether name is whitelisted
func (m *Metadata) HasProperty(name string) bool {
	for _, p := range m.Properties {
		if p == name {
			return true
		}
	}
	return false
}

// IsSingleton reports whether the resource is bound to the caller's identity
func (m *Metadata) IsSingleton() bool {
	return m.CurrentUserKey != ""
}
