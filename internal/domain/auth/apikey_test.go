package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashKey(t *testing.T) {
	pepper := []byte("pepper")

	h1 := HashKey(pepper, "secret")
	h2 := HashKey(pepper, "secret")
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)

	assert.NotEqual(t, h1, HashKey([]byte("other"), "secret"))
	assert.NotEqual(t, h1, HashKey(pepper, "secret2"))
}

func TestPrincipalContext(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, PrincipalFromContext(ctx))

	p := &Principal{UserID: "u1", Scopes: []string{ScopeAdmin}}
	got := PrincipalFromContext(WithPrincipal(ctx, p))
	require.NotNil(t, got)
	assert.Equal(t, "u1", got.UserID)
	assert.True(t, got.HasScope(ScopeAdmin))
	assert.False(t, got.HasScope("orders:write"))

	var anon *Principal
	assert.False(t, anon.HasScope(ScopeAdmin))
}
