package metadata

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"sigs.k8s.io/yaml"
)

func boolPtr(b bool) *bool { return &b }

func TestNormalize_Defaults(t *testing.T) {
	m, err := Normalize("v1", "user", Descriptor{})
	require.NoError(t, err)

	assert.Equal(t, "v1", m.Version)
	assert.Equal(t, "user", m.ModelName)
	assert.Equal(t, "id", m.IDKey)
	assert.Empty(t, m.CurrentUserKey)
	assert.NotNil(t, m.Actions)
	assert.NotNil(t, m.Relations)
	assert.Empty(t, m.Actions)
	assert.Empty(t, m.Relations)
	assert.Equal(t, PathOverride{}, m.Path)
	assert.False(t, m.IsSingleton())
}

func TestNormalize_RequiresNames(t *testing.T) {
	_, err := Normalize("", "user", Descriptor{})
	assert.Error(t, err)

	_, err = Normalize("v1", "", Descriptor{})
	assert.Error(t, err)
}

func TestNormalize_Relations(t *testing.T) {
	raw := Descriptor{
		Relations: []RawRelation{
			{Type: "collection", Name: "roles"},
			{Type: "resource", Name: "team"},
			{Name: "owner", Model: "user"},
			{Type: "collection", Name: "tasks", ModelFk: "assigneeId", Count: true},
		},
	}

	m, err := Normalize("v1", "user", raw)
	require.NoError(t, err)
	require.Len(t, m.Relations, 4)

	roles := m.Relation("roles")
	require.NotNil(t, roles)
	assert.Equal(t, RelationCollection, roles.Type)
	assert.Equal(t, "role", roles.Model)
	assert.Equal(t, "user", roles.Parent)
	assert.Equal(t, "userId", roles.ModelFk)
	assert.Equal(t, "v1", roles.Version)
	assert.False(t, roles.Count)

	team := m.Relation("team")
	assert.Equal(t, RelationResource, team.Type)
	assert.Equal(t, "team", team.Model)
	assert.Equal(t, "teamId", team.ModelFk)

	owner := m.Relation("owner")
	assert.Equal(t, RelationResource, owner.Type, "empty type means resource")
	assert.Equal(t, "userId", owner.ModelFk)

	tasks := m.Relation("tasks")
	assert.Equal(t, "assigneeId", tasks.ModelFk, "override wins")
	assert.True(t, tasks.Count)

	assert.Nil(t, m.Relation("missing"))
}

func TestNormalize_RelationErrors(t *testing.T) {
	tests := []struct {
		name string
		rel  RawRelation
	}{
		{"unknown type", RawRelation{Type: "graph", Name: "x"}},
		{"missing name", RawRelation{Type: "collection"}},
		{"count on resource", RawRelation{Type: "resource", Name: "team", Count: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize("v1", "user", Descriptor{Relations: []RawRelation{tt.rel}})
			var relErr *RelationError
			assert.True(t, errors.As(err, &relErr))
		})
	}
}

func TestNormalize_DuplicateRelation(t *testing.T) {
	_, err := Normalize("v1", "user", Descriptor{Relations: []RawRelation{
		{Type: "collection", Name: "roles"},
		{Type: "collection", Name: "roles"},
	}})
	assert.Error(t, err)
}

func TestNormalize_Actions(t *testing.T) {
	raw := Descriptor{
		Actions: []RawAction{
			{Standard: "list"},
			{Standard: "GET"},
			{HTTPVerb: "DELETE", Name: "active", Verb: "deactivate"},
			{HTTPVerb: "post", Name: "search", Verb: "search", Resource: boolPtr(false), Allow: []string{"query"}},
		},
	}

	m, err := Normalize("v1", "user", raw)
	require.NoError(t, err)
	require.Len(t, m.Actions, 4)

	assert.True(t, m.HasAction(VerbList))
	assert.True(t, m.HasAction(VerbGet))
	assert.False(t, m.HasAction(VerbCreate))

	custom := m.CustomActions()
	require.Len(t, custom, 2)
	assert.Equal(t, "delete", custom[0].HTTPVerb)
	assert.Equal(t, "deactivate", custom[0].Verb)
	assert.True(t, custom[0].Resource, "resource defaults to true")
	assert.Empty(t, custom[0].Allow)
	assert.False(t, custom[1].Resource)
	assert.Equal(t, []string{"query"}, custom[1].Allow)
}

func TestNormalize_ActionErrors(t *testing.T) {
	tests := []struct {
		name   string
		action RawAction
		field  string
	}{
		{"bad http verb", RawAction{HTTPVerb: "patch", Name: "a", Verb: "b"}, "httpVerb"},
		{"missing http verb", RawAction{Name: "a", Verb: "b"}, "httpVerb"},
		{"missing name", RawAction{HTTPVerb: "get", Verb: "b"}, "name"},
		{"missing verb", RawAction{HTTPVerb: "get", Name: "a"}, "verb"},
		{"unknown standard", RawAction{Standard: "destroy"}, "standard action"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize("v1", "user", Descriptor{
				Actions: []RawAction{{Standard: "list"}, tt.action},
			})
			require.Error(t, err)

			var actionErr *ActionError
			require.True(t, errors.As(err, &actionErr))
			assert.Equal(t, tt.field, actionErr.Field)
			assert.Equal(t, 1, actionErr.Index)
			assert.Equal(t, "user", actionErr.Model)
		})
	}
}

func TestNormalize_DoesNotMutateInput(t *testing.T) {
	raw := Descriptor{
		Properties: []string{"id", "name"},
		Path:       &RawPath{Prefix: "/admin/", Value: "people"},
		Relations:  []RawRelation{{Type: "collection", Name: "roles"}},
		Actions:    []RawAction{{HTTPVerb: "POST", Name: "x", Verb: "y", Allow: []string{"a"}}},
	}

	m, err := Normalize("v1", "user", raw)
	require.NoError(t, err)

	m.Properties[0] = "changed"
	m.CustomActions()[0].Allow[0] = "changed"

	assert.Equal(t, "id", raw.Properties[0])
	assert.Equal(t, "a", raw.Actions[0].Allow[0])
	assert.Equal(t, "POST", raw.Actions[0].HTTPVerb)
	assert.Equal(t, "/admin/", raw.Path.Prefix)
	assert.Empty(t, raw.Relations[0].ModelFk)
	assert.Equal(t, PathOverride{Prefix: "admin", Value: "people"}, m.Path)
}

func TestDescriptor_UnmarshalShorthands(t *testing.T) {
	src := `
path: me
currentUserKey: userId
actions:
  - get
  - httpVerb: put
    name: Refresh
    verb: refresh
`
	var d Descriptor
	require.NoError(t, yaml.Unmarshal([]byte(src), &d))

	require.NotNil(t, d.Path)
	assert.Equal(t, "me", d.Path.Value)
	assert.Empty(t, d.Path.Prefix)
	require.Len(t, d.Actions, 2)
	assert.Equal(t, "get", d.Actions[0].Standard)
	assert.Equal(t, "Refresh", d.Actions[1].Name)

	m, err := Normalize("v1", "profile", d)
	require.NoError(t, err)
	assert.True(t, m.IsSingleton())
	assert.Equal(t, "me", m.Path.Value)
}

func TestRawAction_MarshalRoundTripsShorthand(t *testing.T) {
	b, err := yaml.Marshal([]RawAction{{Standard: "list"}})
	require.NoError(t, err)
	assert.Equal(t, "- list\n", string(b))
}
