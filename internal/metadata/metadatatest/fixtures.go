// Package metadatatest provides a shared metadata index for tests.
package metadatatest

import (
	"sigs.k8s.io/yaml"

	"github.com/conduit-lang/metagate/internal/metadata"
)

// FixtureYAML describes a small v1 API: users with nested roles, tasks that
// belong to users, a list-only tag model, a caller-bound profile at /v1/me
// and an admin-prefixed claim model.
const FixtureYAML = `
v1:
  user:
    properties: [id, name, email]
    actions:
      - httpVerb: DELETE
        name: active
        verb: deactivate
      - httpVerb: post
        name: search
        verb: search
        resource: false
        allow: [query]
      - list
      - count
      - get
      - create
      - update
      - remove
    relations:
      - type: collection
        name: roles
        count: true
      - type: collection
        name: tasks
  role:
    parent: user
    properties: [id, name, userId]
    actions: [list, get, create, update, remove]
    relations:
      - type: resource
        name: user
  task:
    properties: [id, title, userId]
    actions: [list, get, create, update, remove]
    relations:
      - type: resource
        name: user
  tag:
    properties: [id, name]
    actions: [list]
  profile:
    path: me
    currentUserKey: userId
    properties: [id, name, email]
    actions: [get, update]
    relations:
      - type: collection
        name: tasks
  claim:
    path:
      prefix: admin
    properties: [id, value]
    actions: [list, get]
`

// Descriptors returns the raw fixture descriptors
func Descriptors() map[string]map[string]metadata.Descriptor {
	var raw map[string]map[string]metadata.Descriptor
	if err := yaml.Unmarshal([]byte(FixtureYAML), &raw); err != nil {
		panic(err)
	}
	return raw
}

// Index returns the normalized fixture index
func Index() *metadata.Index {
	ix, err := metadata.Build(Descriptors())
	if err != nil {
		panic(err)
	}
	return ix
}

// Model returns one normalized v1 fixture model
func Model(ix *metadata.Index, name string) *metadata.Metadata {
	m, ok := ix.Lookup("v1", name)
	if !ok {
		panic("metadatatest: unknown model " + name)
	}
	return m
}
