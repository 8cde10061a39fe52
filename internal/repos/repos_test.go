package repos_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"storefront/internal/cart"
	"storefront/internal/catalog"
	"storefront/internal/repos"
)

func memdb(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := repos.OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newRedisKV(t *testing.T) (*repos.RedisKV, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	kv := repos.NewRedisKVFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = kv.Close() })
	return kv, mr
}

type sessionStores interface {
	ForSession(sid string) cart.Storage
}

func TestSessionStorage(t *testing.T) {
	rkv, _ := newRedisKV(t)
	backends := map[string]sessionStores{
		"sqlite": repos.NewKVRepo(memdb(t)),
		"redis":  rkv,
	}
	for name, b := range backends {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			a, other := b.ForSession("sid-a"), b.ForSession("sid-b")

			_, ok, err := a.Get(ctx, cart.StorageKey)
			require.NoError(t, err)
			require.False(t, ok)

			require.NoError(t, a.Set(ctx, cart.StorageKey, `[{"id":1}]`))
			require.NoError(t, a.Set(ctx, cart.StorageKey, `[{"id":2}]`))
			v, ok, err := a.Get(ctx, cart.StorageKey)
			require.NoError(t, err)
			require.True(t, ok)
			require.Equal(t, `[{"id":2}]`, v, "last write wins")

			_, ok, err = other.Get(ctx, cart.StorageKey)
			require.NoError(t, err)
			require.False(t, ok, "sessions are isolated")

			require.NoError(t, a.Delete(ctx, cart.StorageKey))
			_, ok, err = a.Get(ctx, cart.StorageKey)
			require.NoError(t, err)
			require.False(t, ok)
			require.NoError(t, a.Delete(ctx, cart.StorageKey), "deleting a missing key is fine")
		})
	}
}

func TestRedisKV_KeyLayoutAndTTL(t *testing.T) {
	kv, mr := newRedisKV(t)
	kv.TTL = time.Hour
	require.NoError(t, kv.ForSession("abc").Set(context.Background(), "cart", "[]"))

	v, err := mr.Get("storefront:abc:cart")
	require.NoError(t, err)
	require.Equal(t, "[]", v)
	require.Equal(t, time.Hour, mr.TTL("storefront:abc:cart"))
}

func TestNewRedisKV_PingFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := repos.NewRedisKV(ctx, "redis://"+addr+"/0")
	require.Error(t, err)

	_, err = repos.NewRedisKV(ctx, "not a url")
	require.Error(t, err)
}

func TestKVRepo_PurgeBefore(t *testing.T) {
	db := memdb(t)
	kv := repos.NewKVRepo(db)
	ctx := context.Background()
	require.NoError(t, kv.ForSession("old").Set(ctx, "cart", "[]"))
	_, err := db.Exec(`UPDATE kv SET updated_at = ? WHERE session_id = 'old'`,
		time.Now().Add(-48*time.Hour).UTC().Format(time.RFC3339Nano))
	require.NoError(t, err)
	require.NoError(t, kv.ForSession("fresh").Set(ctx, "cart", "[]"))

	n, err := kv.PurgeBefore(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	require.EqualValues(t, 1, n)
	_, ok, _ := kv.ForSession("fresh").Get(ctx, "cart")
	require.True(t, ok)
}

func TestProductRepo_SeededCatalog(t *testing.T) {
	var src catalog.Source = repos.NewProductRepo(memdb(t))
	ps, err := src.Products(context.Background())
	require.NoError(t, err)
	require.Len(t, ps, 14)
	for i, p := range ps {
		require.Equal(t, i+1, p.ID, "id order")
	}
	require.Equal(t, "iPhone 9", ps[0].Title)
	require.InDelta(t, 549, ps[0].Price, 1e-9)
	require.Equal(t, []string{"smartphones", "laptops", "fragrances"}, catalog.Categories(ps))
	require.InDelta(t, 1749, catalog.MaxPrice(ps), 1e-9)
	require.False(t, ps[13].InStock())
}

func TestOpenDB_SeedIsIdempotent(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "storefront.db")
	for i := 0; i < 2; i++ {
		db, err := repos.OpenDB(dsn)
		require.NoError(t, err)
		var n int
		require.NoError(t, db.Get(&n, `SELECT COUNT(*) FROM products`))
		require.Equal(t, 14, n, "open #%d", i+1)
		require.NoError(t, db.Close())
	}
}
