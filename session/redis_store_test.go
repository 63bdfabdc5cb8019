package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/openvitality/careline/types"
)

func setupRedisStore(t *testing.T) (*miniredis.Miniredis, *RedisStore) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStoreWithClient(client, DefaultStoreConfig(), zap.NewNop())
	return mr, store
}

func TestRedisStore_GetOrCreate(t *testing.T) {
	mr, store := setupRedisStore(t)
	defer mr.Close()
	defer store.Close()

	ctx := context.Background()

	first, created, err := store.GetOrCreate(ctx, "patient-1")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, types.SessionActive, first.Status)

	second, created, err := store.GetOrCreate(ctx, "patient-1")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
}

func TestRedisStore_SaveRoundTrip(t *testing.T) {
	mr, store := setupRedisStore(t)
	defer mr.Close()
	defer store.Close()

	ctx := context.Background()

	session, _, err := store.GetOrCreate(ctx, "patient-1")
	require.NoError(t, err)

	session.CurrentAgent = "medication"
	session.LastIntent = "medication_query"
	session.Context = map[string]string{"slot_medication": "metformin"}
	require.NoError(t, store.Save(ctx, session))

	retrieved, err := store.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, "medication", retrieved.CurrentAgent)
	assert.Equal(t, "medication_query", retrieved.LastIntent)
	assert.Equal(t, "metformin", retrieved.Context["slot_medication"])
}

func TestRedisStore_GetMissing(t *testing.T) {
	mr, store := setupRedisStore(t)
	defer mr.Close()
	defer store.Close()

	_, err := store.Get(context.Background(), "no-such-session")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStore_End(t *testing.T) {
	mr, store := setupRedisStore(t)
	defer mr.Close()
	defer store.Close()

	ctx := context.Background()

	session, _, err := store.GetOrCreate(ctx, "patient-1")
	require.NoError(t, err)

	require.NoError(t, store.End(ctx, session.ID, types.SessionEscalated))

	ended, err := store.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, types.SessionEscalated, ended.Status)

	// The user index is gone, so the next contact gets a fresh session.
	fresh, created, err := store.GetOrCreate(ctx, "patient-1")
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, session.ID, fresh.ID)
}

func TestRedisStore_TTLExpiry(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	config := DefaultStoreConfig()
	config.TTL = time.Minute

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStoreWithClient(client, config, zap.NewNop())
	defer store.Close()

	ctx := context.Background()
	session, _, err := store.GetOrCreate(ctx, "patient-1")
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = store.Get(ctx, session.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, created, err := store.GetOrCreate(ctx, "patient-1")
	require.NoError(t, err)
	assert.True(t, created)
}

func TestRedisStore_KeyPrefix(t *testing.T) {
	mr, store := setupRedisStore(t)
	defer mr.Close()
	defer store.Close()

	session, _, err := store.GetOrCreate(context.Background(), "patient-1")
	require.NoError(t, err)

	assert.True(t, mr.Exists("careline:session:"+session.ID))
	assert.True(t, mr.Exists("careline:user:patient-1"))
}
