package maintenance

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSweeperStore struct {
	expired atomic.Int64
	err     error
	calls   atomic.Int32
}

func (m *mockSweeperStore) ExpireOverdueTransactions(_ context.Context, _ time.Time) (int64, error) {
	m.calls.Add(1)
	if m.err != nil {
		return 0, m.err
	}
	return m.expired.Load(), nil
}

func TestRunOnce(t *testing.T) {
	store := &mockSweeperStore{}
	store.expired.Store(3)
	sweeper := NewSweeper(store, "", nil, zerolog.Nop())

	n, err := sweeper.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, int32(1), store.calls.Load())
}

func TestRunOnceError(t *testing.T) {
	store := &mockSweeperStore{err: errors.New("connection lost")}
	sweeper := NewSweeper(store, "", nil, zerolog.Nop())

	_, err := sweeper.RunOnce(context.Background())
	assert.Error(t, err)
}

func TestStartStop(t *testing.T) {
	store := &mockSweeperStore{}
	// Every-second schedule so the test observes at least one tick.
	sweeper := NewSweeper(store, "* * * * * *", nil, zerolog.Nop())

	require.NoError(t, sweeper.Start())
	// Start is idempotent.
	require.NoError(t, sweeper.Start())

	assert.Eventually(t, func() bool { return store.calls.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)

	sweeper.Stop()
	sweeper.Stop()

	settled := store.calls.Load()
	time.Sleep(1100 * time.Millisecond)
	assert.Equal(t, settled, store.calls.Load())
}

func TestInvalidSchedule(t *testing.T) {
	sweeper := NewSweeper(&mockSweeperStore{}, "not a schedule", nil, zerolog.Nop())
	assert.Error(t, sweeper.Start())
}
