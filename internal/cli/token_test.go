package cli

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/domain/auth"
)

func TestTokenCommand(t *testing.T) {
	cfg := testConfig()
	cmd := newRootCommand(newTestRoot(cfg))

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"token", "--user", "u-42", "--name", "Store Keeper", "--role", "storekeeper,approver"})
	require.NoError(t, cmd.Execute())

	user, err := auth.NewJWTService(auth.DefaultJWTConfig(cfg.Auth.JWTSecret)).
		ValidateToken(strings.TrimSpace(out.String()))
	require.NoError(t, err)
	assert.Equal(t, "u-42", user.UserID)
	assert.Equal(t, "Store Keeper", user.Name)
	assert.Equal(t, []string{"storekeeper", "approver"}, user.Roles)
}

func TestTokenCommand_JSON(t *testing.T) {
	cmd := newRootCommand(newTestRoot(testConfig()))

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--format", "json", "token", "--user", "svc-worker"})
	require.NoError(t, cmd.Execute())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.NotEmpty(t, resp["accessToken"])
	assert.NotEmpty(t, resp["expiresAt"])
}

func TestTokenCommand_RequiresSecret(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.JWTSecret = ""
	cmd := newRootCommand(newTestRoot(cfg))
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"token", "--user", "u-1"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt_secret")
}
