package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siriusexpedition/sirius/server/internal/auth"
	"github.com/siriusexpedition/sirius/server/internal/store"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sirius.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, path
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open("  ")
	require.Error(t, err)
}

func TestGet_Missing(t *testing.T) {
	s, _ := openTestStore(t)
	_, err := s.Get(context.Background(), "visitors/stats")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSet_CreateThenIncrement(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	ts := time.Date(2026, 5, 10, 9, 30, 0, 0, time.UTC)

	require.NoError(t, s.Set(ctx, "visitors/stats", store.Document{
		"total": 1, "today": 1, "lastUpdated": ts,
	}, store.SetOptions{}))

	require.NoError(t, s.Set(ctx, "visitors/stats", store.Document{
		"total": store.Increment(1), "lastUpdated": ts.Add(time.Hour),
	}, store.SetOptions{Merge: true}))

	doc, err := s.Get(ctx, "visitors/stats")
	require.NoError(t, err)

	total, ok := store.Int64(doc, "total")
	require.True(t, ok)
	assert.Equal(t, int64(2), total)

	today, ok := store.Int64(doc, "today")
	require.True(t, ok)
	assert.Equal(t, int64(1), today)

	updated, ok := store.Time(doc, "lastUpdated")
	require.True(t, ok)
	assert.True(t, updated.Equal(ts.Add(time.Hour)))
}

func TestSet_OverwriteDropsFields(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "k", store.Document{"a": 1, "b": 2}, store.SetOptions{}))
	require.NoError(t, s.Set(ctx, "k", store.Document{"a": 5}, store.SetOptions{}))

	doc, err := s.Get(ctx, "k")
	require.NoError(t, err)
	_, hasB := doc["b"]
	assert.False(t, hasB)
	a, _ := store.Int64(doc, "a")
	assert.Equal(t, int64(5), a)
}

func TestSet_ConcurrentIncrements(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Set(ctx, "counter", store.Document{"total": store.Increment(1)}, store.SetOptions{Merge: true}))
		}()
	}
	wg.Wait()

	doc, err := s.Get(ctx, "counter")
	require.NoError(t, err)
	total, _ := store.Int64(doc, "total")
	assert.Equal(t, int64(n), total)
}

func TestReopen_PersistsAndSkipsAppliedMigrations(t *testing.T) {
	s, path := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "k", store.Document{"total": 3}, store.SetOptions{}))
	require.NoError(t, s.Close())

	again, err := Open(path)
	require.NoError(t, err)
	defer again.Close()

	doc, err := again.Get(ctx, "k")
	require.NoError(t, err)
	total, _ := store.Int64(doc, "total")
	assert.Equal(t, int64(3), total)
}

func TestOpen_InMemory(t *testing.T) {
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.Set(ctx, "k", store.Document{"v": "x"}, store.SetOptions{}))
	doc, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "x", doc["v"])
}

func TestAdmins_Lifecycle(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 5, 10, 9, 30, 0, 0, time.UTC)

	a := &auth.Admin{
		ID:           "a-1",
		Email:        "Chief@Sirius.Example",
		PasswordHash: "hash-1",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, s.CreateAdmin(ctx, a))
	assert.ErrorIs(t, s.CreateAdmin(ctx, &auth.Admin{ID: "a-2", Email: "chief@sirius.example", CreatedAt: now, UpdatedAt: now}), auth.ErrEmailInUse)

	got, err := s.AdminByEmail(ctx, "CHIEF@sirius.example")
	require.NoError(t, err)
	assert.Equal(t, "a-1", got.ID)
	assert.Equal(t, "chief@sirius.example", got.Email)
	assert.True(t, got.CreatedAt.Equal(now))
	assert.Nil(t, got.LastLoginAt)

	require.NoError(t, s.UpdateAdminPassword(ctx, "a-1", "hash-2"))
	require.NoError(t, s.TouchLogin(ctx, "a-1"))

	got, err = s.AdminByID(ctx, "a-1")
	require.NoError(t, err)
	assert.Equal(t, "hash-2", got.PasswordHash)
	assert.NotNil(t, got.LastLoginAt)

	n, err := s.CountAdmins(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestAdmins_NotFound(t *testing.T) {
	s, _ := openTestStore(t)
	ctx := context.Background()

	_, err := s.AdminByEmail(ctx, "nobody@sirius.example")
	assert.ErrorIs(t, err, auth.ErrAdminNotFound)
	_, err = s.AdminByID(ctx, "nope")
	assert.ErrorIs(t, err, auth.ErrAdminNotFound)
	assert.ErrorIs(t, s.UpdateAdminPassword(ctx, "nope", "h"), auth.ErrAdminNotFound)
	assert.ErrorIs(t, s.TouchLogin(ctx, "nope"), auth.ErrAdminNotFound)
}

var _ auth.AccountStore = (*Store)(nil)
