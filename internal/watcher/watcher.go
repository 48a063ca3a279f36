// Package watcher runs the server-side poll loop for pending payments: one
// goroutine per transaction ticking against the provider until the payment
// reaches a terminal state or its local expiry passes.
package watcher

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/arexans/lisensi/internal/payment"
)

// DefaultInterval is the poll cadence per pending transaction.
const DefaultInterval = 5 * time.Second

// deadlineGrace keeps polling slightly past the local expiry so a payment
// that lands in the final seconds is still confirmed.
const deadlineGrace = time.Minute

// Poller resolves the current status of a transaction, applying at most one
// state transition per call.
type Poller interface {
	PollOnce(ctx context.Context, providerID string) (*payment.PollResult, error)
}

// ResultFunc is invoked once when a watched transaction reaches a terminal
// state. It is called from the watch goroutine.
type ResultFunc func(providerID string, result *payment.PollResult)

// Watcher tracks pending transactions and polls each on its own ticker.
type Watcher struct {
	poller   Poller
	interval time.Duration
	onResult ResultFunc
	logger   zerolog.Logger

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
	closed  bool
}

// New creates a Watcher. onResult may be nil. A non-positive interval falls
// back to DefaultInterval.
func New(poller Poller, interval time.Duration, onResult ResultFunc, logger zerolog.Logger) *Watcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Watcher{
		poller:   poller,
		interval: interval,
		onResult: onResult,
		logger:   logger.With().Str("component", "watcher").Logger(),
		cancels:  make(map[string]context.CancelFunc),
	}
}

// Watch starts polling the transaction until it turns terminal or expiresAt
// (plus a small grace) passes. Watching an already-watched transaction is a
// no-op, so a page reload that re-registers the same payment does not double
// the poll rate.
func (w *Watcher) Watch(providerID string, expiresAt time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if _, ok := w.cancels[providerID]; ok {
		return
	}

	ctx, cancel := context.WithDeadline(context.Background(), expiresAt.Add(deadlineGrace))
	w.cancels[providerID] = cancel

	w.wg.Add(1)
	go w.run(ctx, providerID)

	w.logger.Debug().Str("transaction_id", providerID).Time("expires_at", expiresAt).Msg("watching transaction")
}

// Unwatch stops polling the transaction.
func (w *Watcher) Unwatch(providerID string) {
	w.mu.Lock()
	cancel, ok := w.cancels[providerID]
	if ok {
		delete(w.cancels, providerID)
	}
	w.mu.Unlock()
	if ok {
		cancel()
	}
}

// Stop cancels all watches and waits for their goroutines to finish.
func (w *Watcher) Stop() {
	w.mu.Lock()
	w.closed = true
	for id, cancel := range w.cancels {
		cancel()
		delete(w.cancels, id)
	}
	w.mu.Unlock()

	w.wg.Wait()
	w.logger.Info().Msg("watcher stopped")
}

// Watching reports whether the transaction currently has a poll loop.
func (w *Watcher) Watching(providerID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.cancels[providerID]
	return ok
}

func (w *Watcher) run(ctx context.Context, providerID string) {
	defer w.wg.Done()
	defer w.Unwatch(providerID)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		res, err := w.poller.PollOnce(ctx, providerID)
		if err != nil {
			// Transient provider or store failure: keep ticking.
			w.logger.Warn().Err(err).Str("transaction_id", providerID).Msg("poll failed")
			continue
		}

		if res.Status.IsTerminal() {
			w.logger.Info().
				Str("transaction_id", providerID).
				Str("status", string(res.Status)).
				Msg("transaction settled")
			if w.onResult != nil {
				w.onResult(providerID, res)
			}
			return
		}
	}
}
