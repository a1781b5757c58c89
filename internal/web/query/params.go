package query

import (
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

const (
	LimitParam  = "limit"
	OffsetParam = "offset"
	EmbedsParam = "embeds"
	// FieldsParam is reserved for partial responses and never forwarded
	FieldsParam = "fields"

	DefaultLimit  = 10
	DefaultOffset = 0
)

// Pagination is the window requested by a list call
type Pagination struct {
	Limit  int
	Offset int
}

// ParsePagination reads limit and offset as integers from their leading
// digits, so "2.9" and "1e3" read as 2 and 1. Each falls back to its default
// independently when absent, without leading digits, negative or too large.
func ParsePagination(q url.Values) Pagination {
	return Pagination{
		Limit:  intParam(q, LimitParam, DefaultLimit),
		Offset: intParam(q, OffsetParam, DefaultOffset),
	}
}

func intParam(q url.Values, name string, def int) int {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return def
	}
	n, err := strconv.ParseInt(leadingInt.FindString(raw), 10, 64)
	if err != nil || n < 0 || n > math.MaxInt32 {
		return def
	}
	return int(n)
}

var leadingInt = regexp.MustCompile(`^[+-]?[0-9]+`)

// ParseEmbeds parses the embeds query parameter into relation names.
// Example: ?embeds=user,roles returns ["user", "roles"]
// Returns an empty slice if the embeds parameter is not present.
func ParseEmbeds(q url.Values) []string {
	embeds := q.Get(EmbedsParam)
	if embeds == "" {
		return []string{}
	}

	parts := strings.Split(embeds, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// Filter returns the query parameters to forward upstream: everything
// except pagination, fields and the exclude list. A repeated parameter
// becomes a list.
func Filter(q url.Values, exclude []string) map[string]interface{} {
	skip := map[string]bool{LimitParam: true, OffsetParam: true, FieldsParam: true}
	for _, e := range exclude {
		skip[e] = true
	}

	result := make(map[string]interface{}, len(q))
	for key, values := range q {
		if skip[key] || len(values) == 0 {
			continue
		}
		if len(values) == 1 {
			result[key] = values[0]
			continue
		}
		list := make([]interface{}, len(values))
		for i, v := range values {
			list[i] = v
		}
		result[key] = list
	}
	return result
}
