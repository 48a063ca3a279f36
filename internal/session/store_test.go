package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewStore(client, zerolog.Nop()), mr
}

func testSession(expiresIn time.Duration) *Session {
	return &Session{
		TransactionID: "TX-1",
		CustomerName:  "budi",
		PackageName:   "VIP",
		TotalAmount:   21007,
		QRString:      "00020101...6304ABCD",
		ExpiresAt:     time.Now().Add(expiresIn),
	}
}

func TestSaveAndGet(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "08123456789", testSession(15*time.Minute)))

	got, err := store.Get(ctx, "08123456789")
	require.NoError(t, err)
	assert.Equal(t, "TX-1", got.TransactionID)
	assert.Equal(t, "VIP", got.PackageName)
	assert.Equal(t, int64(21007), got.TotalAmount)
}

func TestGetMissing(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.Get(context.Background(), "08123456789")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestGetExpiredDiscardsLocally(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "08123456789", testSession(time.Minute)))

	// Payment expiry passes while the Redis TTL grace keeps the key alive.
	store.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

	_, err := store.Get(ctx, "08123456789")
	assert.ErrorIs(t, err, ErrNoSession)

	// The stale key was deleted, not just skipped.
	assert.False(t, mr.Exists(keyPrefix+"08123456789"))
}

func TestSaveAlreadyExpired(t *testing.T) {
	store, _ := newTestStore(t)

	err := store.Save(context.Background(), "08123456789", testSession(-10*time.Minute))
	assert.Error(t, err)
}

func TestCorruptPayloadDiscarded(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	mr.Set(keyPrefix+"08123456789", "{not json")

	_, err := store.Get(ctx, "08123456789")
	assert.ErrorIs(t, err, ErrNoSession)
	assert.False(t, mr.Exists(keyPrefix+"08123456789"))
}

func TestDelete(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "08123456789", testSession(15*time.Minute)))
	require.NoError(t, store.Delete(ctx, "08123456789"))

	_, err := store.Get(ctx, "08123456789")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestRedisTTLSet(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "08123456789", testSession(15*time.Minute)))

	ttl := mr.TTL(keyPrefix + "08123456789")
	assert.Greater(t, ttl, 15*time.Minute)
	assert.LessOrEqual(t, ttl, 20*time.Minute+time.Second)
}
