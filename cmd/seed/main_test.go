package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knowyournotes/catalog-server/internal/auth"
	"github.com/knowyournotes/catalog-server/internal/seed"
)

func isolateEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"ENV", "STORE_BACKEND", "DATA_PATH", "AUTH_TOKEN_KEY", "AUTH_TOKEN_ISSUER", "AUTH_TOKEN_AUDIENCE"} {
		t.Setenv(key, "")
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := rootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestTokenCommand(t *testing.T) {
	isolateEnv(t)
	dataPath := t.TempDir()
	const userID = "3f1c8a52-5b7e-4a4e-9a59-7d2e0f6a1c11"

	out, err := run(t, "token", "--env-file", "", "--data-path", dataPath, "--user", userID, "--ttl", "1h")
	require.NoError(t, err)

	keyHex, err := auth.LoadOrGenerateKeyHex(dataPath)
	require.NoError(t, err)
	tokens, err := auth.NewTokenService(keyHex, "knowyournotes", "knowyournotes-api")
	require.NoError(t, err)

	claims, err := tokens.VerifyToken(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
}

func TestTokenCommand_RejectsBadUser(t *testing.T) {
	isolateEnv(t)

	_, err := run(t, "token", "--env-file", "", "--data-path", t.TempDir(), "--user", "alice")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a UUID")
}

func TestImportCommand(t *testing.T) {
	isolateEnv(t)
	dataPath := t.TempDir()
	fixture := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(fixture, []byte(`
brands:
  - name: Guerlain
notes:
  - name: Vanilla
    accord: sweet
fragrances:
  - name: Shalimar
    brand: Guerlain
    notes:
      base: [Vanilla]
`), 0o600))

	out, err := run(t, "import", fixture, "--env-file", "", "--store", "badger", "--data-path", dataPath)
	require.NoError(t, err)

	var sum seed.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &sum))
	assert.Equal(t, 1, sum.Fragrances.Inserted)
	assert.Equal(t, 1, sum.Links)
	assert.DirExists(t, filepath.Join(dataPath, "catalog.badger"))
}
