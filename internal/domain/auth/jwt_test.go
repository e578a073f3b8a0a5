package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTService_RoundTrip(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("0123456789abcdef0123456789abcdef"))

	token, expiresAt, err := svc.GenerateAccessToken("storekeeper-1", "Dana", []string{"storekeeper"})
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	user, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "storekeeper-1", user.UserID)
	assert.Equal(t, "Dana", user.Name)
	assert.Equal(t, []string{"storekeeper"}, user.Roles)
}

func TestJWTService_RejectsForeignSecret(t *testing.T) {
	issuer := NewJWTService(DefaultJWTConfig("secret-a-secret-a-secret-a-secret-a"))
	verifier := NewJWTService(DefaultJWTConfig("secret-b-secret-b-secret-b-secret-b"))

	token, _, err := issuer.GenerateAccessToken("u1", "", nil)
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.Error(t, err)
}

func TestJWTService_RejectsExpired(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("0123456789abcdef0123456789abcdef"))
	svc.now = func() time.Time { return time.Now().Add(-24 * time.Hour) }

	token, _, err := svc.GenerateAccessToken("u1", "", nil)
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}

func TestJWTService_RequiresUser(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("0123456789abcdef0123456789abcdef"))
	_, _, err := svc.GenerateAccessToken("", "", nil)
	assert.Error(t, err)
}
