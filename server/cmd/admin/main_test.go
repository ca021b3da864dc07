package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siriusexpedition/sirius/server/internal/auth"
	"github.com/siriusexpedition/sirius/server/internal/config"
	"github.com/siriusexpedition/sirius/server/internal/store/sqlite"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Setenv("SIRIUS_ADMIN_PASSWORD", "")
	cfg := config.Default()
	cfg.Server.Storage.SQLitePath = filepath.Join(t.TempDir(), "admin.db")
	return cfg
}

func TestRun_CheckPassword(t *testing.T) {
	cfg := testConfig(t)
	var out bytes.Buffer

	err := run(context.Background(), cfg, "check-password", nil, strings.NewReader("abc\n"), &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), `"is_valid": false`)
	assert.Contains(t, out.String(), "Password must be at least 8 characters long")
}

func TestRun_CreateAndSetPassword(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()
	var out bytes.Buffer

	err := run(ctx, cfg, "create", []string{"-email", "chief@sirius.example"}, strings.NewReader("Orbit#2026xy\n"), &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "created admin chief@sirius.example")

	err = run(ctx, cfg, "set-password", []string{"-email", "chief@sirius.example"}, strings.NewReader("weak\n"), &out)
	var pe *auth.PolicyError
	require.True(t, errors.As(err, &pe))

	err = run(ctx, cfg, "set-password", []string{"-email", "chief@sirius.example"}, strings.NewReader("Nebula!77abc\n"), &out)
	require.NoError(t, err)

	db, err := sqlite.Open(cfg.Server.Storage.SQLitePath)
	require.NoError(t, err)
	defer db.Close()
	n, err := db.CountAdmins(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRun_Errors(t *testing.T) {
	cfg := testConfig(t)
	ctx := context.Background()
	var out bytes.Buffer

	assert.Error(t, run(ctx, cfg, "create", nil, strings.NewReader("Orbit#2026xy\n"), &out))
	assert.Error(t, run(ctx, cfg, "check-password", nil, strings.NewReader(""), &out))
	assert.Error(t, run(ctx, cfg, "launch", nil, strings.NewReader(""), &out))

	err := run(ctx, cfg, "set-password", []string{"-email", "nobody@sirius.example"}, strings.NewReader("Orbit#2026xy\n"), &out)
	assert.ErrorIs(t, err, auth.ErrAdminNotFound)
}

func TestReadPassword_PrefersEnv(t *testing.T) {
	t.Setenv("SIRIUS_ADMIN_PASSWORD", "from-env")
	pw, err := readPassword(strings.NewReader("from-stdin\n"))
	require.NoError(t, err)
	assert.Equal(t, "from-env", pw)
}
