package cli

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockledger/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		App:  config.AppConfig{Name: "stockledger", Env: "test"},
		Log:  config.LogConfig{Level: "error"},
		Auth: config.AuthConfig{JWTSecret: "test-secret-at-least-32-characters!", Issuer: "stockledger"},
	}
}

func newTestRoot(cfg *config.Config) *RootOptions {
	return &RootOptions{loadConfig: func() (*config.Config, error) { return cfg, nil }}
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, path := range [][]string{
		{"migrate", "up"},
		{"migrate", "down"},
		{"migrate", "steps"},
		{"migrate", "version"},
		{"seed"},
		{"period", "close"},
		{"period", "close-approved"},
		{"report", "manday"},
		{"token"},
	} {
		sub, _, err := cmd.Find(path)
		require.NoError(t, err, "command %v should exist", path)
		assert.Equal(t, path[len(path)-1], sub.Name())
	}
}

func TestInvalidFormat(t *testing.T) {
	cmd := newRootCommand(newTestRoot(testConfig()))
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--format", "xml", "token", "--user", "u-1"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestSeedFileFlagDefault(t *testing.T) {
	cmd := NewRootCommand()
	seed, _, err := cmd.Find([]string{"seed"})
	require.NoError(t, err)

	flag := seed.Flags().Lookup("file")
	require.NotNil(t, flag)
	assert.Equal(t, "f", flag.Shorthand)
	assert.Equal(t, "fixtures.yaml", flag.DefValue)
}
