package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/siriusexpedition/sirius/server/internal/auth"
	"github.com/siriusexpedition/sirius/server/internal/config"
)

func TestOpenStorage_Backends(t *testing.T) {
	ctx := context.Background()

	mem, err := openStorage(ctx, config.StorageConfig{Backend: config.BackendMemory})
	require.NoError(t, err)
	mem.Close()

	sq, err := openStorage(ctx, config.StorageConfig{
		Backend:    config.BackendSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "sirius.db"),
	})
	require.NoError(t, err)
	assert.Len(t, sq.closers, 1)
	sq.Close()

	t.Setenv("SIRIUS_TEST_MONGO_URI_EMPTY", "")
	_, err = openStorage(ctx, config.StorageConfig{
		Backend: config.BackendMongo,
		Mongo:   config.MongoConfig{URIEnv: "SIRIUS_TEST_MONGO_URI_EMPTY", Database: "d", Collection: "c"},
	})
	assert.Error(t, err)

	_, err = openStorage(ctx, config.StorageConfig{Backend: "redis"})
	assert.Error(t, err)
}

func TestBootstrapAdmin(t *testing.T) {
	ctx := context.Background()
	accounts := auth.NewMemoryAccounts()
	tokens, err := auth.NewTokens([]byte("k"), time.Hour)
	require.NoError(t, err)
	svc := auth.NewService(accounts, tokens, nil, auth.WithBcryptCost(bcrypt.MinCost))

	require.NoError(t, bootstrapAdmin(ctx, svc, accounts, "", ""))
	_, err = accounts.AdminByEmail(ctx, "chief@sirius.example")
	assert.ErrorIs(t, err, auth.ErrAdminNotFound)

	require.NoError(t, bootstrapAdmin(ctx, svc, accounts, "chief@sirius.example", "Orbit#2026xy"))
	// A second start with the same email leaves the account alone.
	require.NoError(t, bootstrapAdmin(ctx, svc, accounts, "chief@sirius.example", "Different#99x"))

	_, _, err = svc.Login(ctx, "chief@sirius.example", "Orbit#2026xy")
	assert.NoError(t, err)

	var pe *auth.PolicyError
	err = bootstrapAdmin(ctx, svc, accounts, "second@sirius.example", "weak")
	assert.ErrorAs(t, err, &pe)
}
