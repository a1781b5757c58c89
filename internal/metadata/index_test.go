package metadata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	ix, err := Build(map[string]map[string]Descriptor{
		"v1": {
			"user": {Relations: []RawRelation{{Type: "collection", Name: "roles"}}},
			"role": {Parent: "user"},
		},
		"v2": {
			"user": {},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"v1", "v2"}, ix.Versions())
	models := ix.Models("v1")
	require.Len(t, models, 2)
	assert.Equal(t, "role", models[0].ModelName)
	assert.Equal(t, "user", models[1].ModelName)
	assert.Len(t, ix.All(), 3)

	_, ok := ix.Lookup("v2", "role")
	assert.False(t, ok, "lookups are version scoped")
}

func TestBuild_UnknownReferences(t *testing.T) {
	_, err := Build(map[string]map[string]Descriptor{
		"v1": {"role": {Parent: "user"}},
	})
	assert.ErrorContains(t, err, "unknown parent")

	_, err = Build(map[string]map[string]Descriptor{
		"v1": {"user": {Relations: []RawRelation{{Type: "collection", Name: "roles"}}}},
	})
	assert.ErrorContains(t, err, "unknown model")
}

func TestBuild_ParentCycle(t *testing.T) {
	_, err := Build(map[string]map[string]Descriptor{
		"v1": {
			"a": {Parent: "b"},
			"b": {Parent: "a"},
		},
	})
	assert.ErrorContains(t, err, "parent cycle")
}

func TestIndex_AddDuplicate(t *testing.T) {
	ix := NewIndex()
	m, err := Normalize("v1", "user", Descriptor{})
	require.NoError(t, err)
	require.NoError(t, ix.Add(m))
	assert.Error(t, ix.Add(m))
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "v1"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "v1", "user.yaml"), []byte(`
properties: [id, name]
actions: [list, get]
relations:
  - type: collection
    name: roles
`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "v1", "role.json"), []byte(`{"parent":"user","actions":["list"]}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "v1", "README.md"), []byte("ignored"), 0o644))

	raw, err := LoadDir(dir)
	require.NoError(t, err)
	require.Len(t, raw["v1"], 2)
	assert.Equal(t, "user", raw["v1"]["role"].Parent)

	ix, err := Build(raw)
	require.NoError(t, err)
	user, ok := ix.Lookup("v1", "user")
	require.True(t, ok)
	assert.True(t, user.HasAction(VerbGet))
}

func TestLoadDir_Missing(t *testing.T) {
	_, err := LoadDir(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestDecode(t *testing.T) {
	// config loaders lower-case keys; field matching must tolerate that
	inline := map[string]interface{}{
		"v1": map[string]interface{}{
			"profile": map[string]interface{}{
				"currentuserkey": "userId",
				"path":           "me",
				"actions":        []interface{}{"get"},
			},
		},
	}

	raw, err := Decode(inline)
	require.NoError(t, err)
	assert.Equal(t, "userId", raw["v1"]["profile"].CurrentUserKey)
	assert.Equal(t, "me", raw["v1"]["profile"].Path.Value)

	empty, err := Decode(nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMerge(t *testing.T) {
	a := map[string]map[string]Descriptor{"v1": {"user": {}}}
	b := map[string]map[string]Descriptor{"v1": {"role": {}}, "v2": {"user": {}}}

	out, err := Merge(a, b)
	require.NoError(t, err)
	assert.Len(t, out["v1"], 2)
	assert.Len(t, out["v2"], 1)

	_, err = Merge(a, a)
	assert.Error(t, err)
}
