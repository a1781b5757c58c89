package context

import "context"

// contextKey is a custom type for context keys to avoid collisions
type contextKey int

const (
	requestIDKey contextKey = iota
	principalKey
	bodyKey
)

// Principal holds the claims of the authenticated caller
type Principal map[string]interface{}

// Claim returns the named claim
func (p Principal) Claim(name string) (interface{}, bool) {
	if p == nil {
		return nil, false
	}
	v, ok := p[name]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// GetRequestID extracts the request ID from the context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// SetRequestID adds the request ID to the context
func SetRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// GetPrincipal extracts the caller's claims from the context
func GetPrincipal(ctx context.Context) Principal {
	if p, ok := ctx.Value(principalKey).(Principal); ok {
		return p
	}
	return nil
}

// SetPrincipal adds the caller's claims to the context
func SetPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// GetBody extracts the decoded JSON object body from the context
func GetBody(ctx context.Context) map[string]interface{} {
	if b, ok := ctx.Value(bodyKey).(map[string]interface{}); ok {
		return b
	}
	return nil
}

// SetBody adds the decoded JSON object body to the context
func SetBody(ctx context.Context, body map[string]interface{}) context.Context {
	return context.WithValue(ctx, bodyKey, body)
}
