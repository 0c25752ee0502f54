package cache

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matheus3301/tourchat/internal/store"
)

type tour struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Price int    `json:"price"`
}

func testStore(t *testing.T) *store.DB {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	_, err = db.Migrate()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestCache(t *testing.T) (*Cache, *store.DB, *clockwork.FakeClock) {
	t.Helper()
	db := testStore(t)
	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	return New(db, WithClock(clock)), db, clock
}

func TestGetAfterSetReturnsData(t *testing.T) {
	c, _, _ := newTestCache(t)
	ctx := context.Background()

	want := []tour{{ID: "t1", Title: "Prado at dawn", Price: 40}}
	Set(ctx, c, "tours_madrid", want, TTLShort)

	got, ok := Get[[]tour](ctx, c, "tours_madrid")
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestMadridScenario(t *testing.T) {
	c, db, clock := newTestCache(t)
	ctx := context.Background()

	tours := []tour{{ID: "t1", Title: "Tapas walk"}, {ID: "t2", Title: "Retiro by bike"}}
	Set(ctx, c, "tours_madrid", tours, 5*time.Minute)

	clock.Advance(4 * time.Minute)
	got, ok := Get[[]tour](ctx, c, "tours_madrid")
	require.True(t, ok, "entry should still be valid at t=4min")
	assert.Len(t, got, 2)

	clock.Advance(2 * time.Minute)
	_, ok = Get[[]tour](ctx, c, "tours_madrid")
	assert.False(t, ok, "entry should be expired at t=6min")

	keys, err := db.ListKeys(ctx)
	require.NoError(t, err)
	assert.NotContains(t, keys, c.Key("tours_madrid"), "expired entry must be evicted on read")
	assert.Equal(t, int64(1), c.Stats().Evictions)
}

func TestExactTTLBoundaryIsValid(t *testing.T) {
	c, _, clock := newTestCache(t)
	ctx := context.Background()

	Set(ctx, c, "k", "v", time.Minute)
	clock.Advance(time.Minute)
	_, ok := Get[string](ctx, c, "k")
	assert.True(t, ok, "now - storedAt == ttl is still valid")

	clock.Advance(time.Millisecond)
	_, ok = Get[string](ctx, c, "k")
	assert.False(t, ok)
}

func TestSetOverwritesAndDefaultsTTL(t *testing.T) {
	c, _, clock := newTestCache(t)
	ctx := context.Background()

	Set(ctx, c, "k", "first", TTLStatic)
	Set(ctx, c, "k", "second", 0)

	got, ok := Get[string](ctx, c, "k")
	require.True(t, ok)
	assert.Equal(t, "second", got)

	clock.Advance(DefaultTTL + time.Second)
	_, ok = Get[string](ctx, c, "k")
	assert.False(t, ok, "zero ttl falls back to DefaultTTL")
}

func TestGetOrFetchCallsFetchOnceWithinTTL(t *testing.T) {
	c, _, clock := newTestCache(t)
	ctx := context.Background()

	calls := 0
	fetch := func(context.Context) ([]tour, error) {
		calls++
		return []tour{{ID: "t1"}}, nil
	}

	for i := 0; i < 3; i++ {
		got, err := GetOrFetch(ctx, c, "tours_seville", fetch, TTLVolatile)
		require.NoError(t, err)
		require.Len(t, got, 1)
		clock.Advance(30 * time.Second)
	}
	assert.Equal(t, 1, calls)

	clock.Advance(TTLVolatile)
	_, err := GetOrFetch(ctx, c, "tours_seville", fetch, TTLVolatile)
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "fetch runs again after expiry")
}

func TestGetOrFetchDoesNotCacheErrors(t *testing.T) {
	c, _, _ := newTestCache(t)
	ctx := context.Background()

	boom := errors.New("502 from API")
	_, err := GetOrFetch(ctx, c, "k", func(context.Context) (int, error) { return 0, boom }, TTLShort)
	require.ErrorIs(t, err, boom)

	_, ok := Get[int](ctx, c, "k")
	assert.False(t, ok)
}

func TestClearAllOnlyRemovesNamespace(t *testing.T) {
	c, db, _ := newTestCache(t)
	ctx := context.Background()

	Set(ctx, c, "a", 1, TTLShort)
	Set(ctx, c, "b", 2, TTLShort)
	require.NoError(t, db.Set(ctx, "auth_token", "secret"))
	require.NoError(t, db.Set(ctx, "tourchat_cachex_other", "near miss"))
	other := New(db, WithNamespace("favorites"))
	Set(ctx, other, "g1", true, TTLShort)

	assert.Equal(t, 2, c.Len(ctx))
	removed := c.ClearAll(ctx)
	assert.Equal(t, 2, removed)
	assert.Equal(t, 0, c.Len(ctx))

	keys, err := db.ListKeys(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"auth_token", "tourchat_cachex_other", "favorites_g1"}, keys)
}

func TestRemove(t *testing.T) {
	c, _, _ := newTestCache(t)
	ctx := context.Background()

	Set(ctx, c, "k", "v", TTLShort)
	c.Remove(ctx, "k")
	_, ok := Get[string](ctx, c, "k")
	assert.False(t, ok)
}

func TestUndecodableEntryIsDropped(t *testing.T) {
	c, db, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, db.Set(ctx, c.Key("k"), "{not json"))
	_, ok := Get[string](ctx, c, "k")
	assert.False(t, ok)

	_, present, err := db.Get(ctx, c.Key("k"))
	require.NoError(t, err)
	assert.False(t, present)
}

func TestStorageFailureIsAMiss(t *testing.T) {
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer func() { _ = raw.Close() }()

	diskErr := errors.New("database is locked")
	mock.ExpectQuery("SELECT value FROM kv").WillReturnError(diskErr)
	mock.ExpectExec("INSERT INTO kv").WillReturnError(diskErr)
	mock.ExpectQuery("SELECT key FROM kv").WillReturnError(diskErr)

	c := New(&store.DB{DB: raw})
	ctx := context.Background()

	calls := 0
	got, err := GetOrFetch(ctx, c, "profile_g1", func(context.Context) (string, error) {
		calls++
		return "Lucía", nil
	}, TTLMedium)
	require.NoError(t, err, "storage errors must not reach the caller")
	assert.Equal(t, "Lucía", got)
	assert.Equal(t, 1, calls)

	assert.Equal(t, 0, c.ClearAll(ctx))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStats(t *testing.T) {
	c, _, _ := newTestCache(t)
	ctx := context.Background()

	_, _ = Get[string](ctx, c, "absent")
	Set(ctx, c, "k", "v", TTLShort)
	_, _ = Get[string](ctx, c, "k")

	assert.Equal(t, Stats{Hits: 1, Misses: 1}, c.Stats())
}
