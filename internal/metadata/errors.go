package metadata

import "fmt"

// ActionError reports an invalid action entry. Field is one of
// "httpVerb", "name", "verb" or "standard action".
type ActionError struct {
	Version string
	Model   string
	Index   int
	Field   string
	Value   string
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("%s/%s: action %d: invalid %s %q", e.Version, e.Model, e.Index, e.Field, e.Value)
}

// RelationError reports an invalid relation entry
type RelationError struct {
	Version string
	Model   string
	Name    string
	Reason  string
}

func (e *RelationError) Error() string {
	return fmt.Sprintf("%s/%s: relation %q: %s", e.Version, e.Model, e.Name, e.Reason)
}
