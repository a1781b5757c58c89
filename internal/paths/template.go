package paths

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Segment is one path element, either a literal or a named placeholder
type Segment struct {
	Literal string
	Param   string
}

// Lit creates a literal segment
func Lit(s string) Segment { return Segment{Literal: s} }

// Param creates a placeholder segment
func Param(name string) Segment { return Segment{Param: name} }

// IsParam reports whether the segment is a placeholder
func (s Segment) IsParam() bool { return s.Param != "" }

// Template is an ordered list of path segments. Templates are values;
// Append never modifies the receiver.
type Template struct {
	segs []Segment
}

// New creates a template from segments
func New(segs ...Segment) Template {
	return Template{segs: append([]Segment(nil), segs...)}
}

// Parse reads a template in ":param" notation, e.g. "/v1/users/:id"
func Parse(s string) Template {
	var t Template
	for _, part := range strings.Split(s, "/") {
		switch {
		case part == "":
		case strings.HasPrefix(part, ":"):
			t.segs = append(t.segs, Param(part[1:]))
		default:
			t.segs = append(t.segs, Lit(part))
		}
	}
	return t
}

// Append returns a new template with segs added
func (t Template) Append(segs ...Segment) Template {
	out := make([]Segment, 0, len(t.segs)+len(segs))
	out = append(out, t.segs...)
	out = append(out, segs...)
	return Template{segs: out}
}

// Segments returns a copy of the segments
func (t Template) Segments() []Segment {
	return append([]Segment(nil), t.segs...)
}

// Params returns placeholder names in order
func (t Template) Params() []string {
	var out []string
	for _, s := range t.segs {
		if s.IsParam() {
			out = append(out, s.Param)
		}
	}
	return out
}

// Last returns the final segment, or a zero Segment for an empty template
func (t Template) Last() Segment {
	if len(t.segs) == 0 {
		return Segment{}
	}
	return t.segs[len(t.segs)-1]
}

// String renders the template in ":param" notation
func (t Template) String() string {
	return t.render(func(name string) string { return ":" + name })
}

// Pattern renders the template in the router's "{param}" notation
func (t Template) Pattern() string {
	return t.render(func(name string) string { return "{" + name + "}" })
}

func (t Template) render(param func(string) string) string {
	if len(t.segs) == 0 {
		return "/"
	}
	var sb strings.Builder
	for _, s := range t.segs {
		sb.WriteByte('/')
		if s.IsParam() {
			sb.WriteString(param(s.Param))
		} else {
			sb.WriteString(s.Literal)
		}
	}
	return sb.String()
}

// Expand substitutes every placeholder from values. It reports false when a
// placeholder has no value or an empty one.
func (t Template) Expand(values map[string]string) (string, bool) {
	var sb strings.Builder
	for _, s := range t.segs {
		sb.WriteByte('/')
		if !s.IsParam() {
			sb.WriteString(s.Literal)
			continue
		}
		v, ok := values[s.Param]
		if !ok || v == "" {
			return "", false
		}
		sb.WriteString(url.PathEscape(v))
	}
	if sb.Len() == 0 {
		return "/", true
	}
	return sb.String(), true
}

// Stringify renders a scalar field value as it appears in a URL or a match
// key. It returns false for nil and composite values.
func Stringify(v interface{}) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, true
	case fmt.Stringer:
		return x.String(), true
	case bool:
		return strconv.FormatBool(x), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case int32:
		return strconv.FormatInt(int64(x), 10), true
	case uint:
		return strconv.FormatUint(uint64(x), 10), true
	case uint64:
		return strconv.FormatUint(x, 10), true
	default:
		return "", false
	}
}
