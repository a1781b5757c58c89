package context

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestID(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetRequestID(ctx))
	assert.Equal(t, "abc", GetRequestID(SetRequestID(ctx, "abc")))
}

func TestPrincipal(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, GetPrincipal(ctx))

	_, ok := GetPrincipal(ctx).Claim("userId")
	assert.False(t, ok, "nil principal has no claims")

	ctx = SetPrincipal(ctx, Principal{"userId": "1", "empty": nil})
	v, ok := GetPrincipal(ctx).Claim("userId")
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	_, ok = GetPrincipal(ctx).Claim("empty")
	assert.False(t, ok)
}

func TestBody(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, GetBody(ctx))

	ctx = SetBody(ctx, map[string]interface{}{"name": "x"})
	assert.Equal(t, "x", GetBody(ctx)["name"])
}
