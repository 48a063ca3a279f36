// Package maintenance runs background housekeeping jobs.
package maintenance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/arexans/lisensi/internal/metrics"
)

// DefaultSweepSchedule runs the expiry sweep at the top of every minute.
const DefaultSweepSchedule = "0 * * * * *"

// sweepTimeout bounds a single sweep against a slow database.
const sweepTimeout = 30 * time.Second

// SweeperStore defines the store operation the sweeper needs.
type SweeperStore interface {
	// ExpireOverdueTransactions marks pending transactions past their
	// expiry as expired, returning how many rows transitioned.
	ExpireOverdueTransactions(ctx context.Context, now time.Time) (int64, error)
}

// Sweeper periodically expires pending transactions whose payment window has
// closed. The database clock rule (expires_at comparison) is the authority;
// the sweeper only decides how often to apply it, so a missed run never
// loses an expiry, it just lands on the next tick.
type Sweeper struct {
	store    SweeperStore
	schedule string
	metrics  *metrics.PaymentMetrics
	cron     *cron.Cron
	logger   zerolog.Logger

	mu      sync.Mutex
	running bool
}

// NewSweeper creates a Sweeper. metrics may be nil. An empty schedule falls
// back to DefaultSweepSchedule.
func NewSweeper(store SweeperStore, schedule string, m *metrics.PaymentMetrics, logger zerolog.Logger) *Sweeper {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	return &Sweeper{
		store:    store,
		schedule: schedule,
		metrics:  m,
		cron:     cron.New(cron.WithSeconds()),
		logger:   logger.With().Str("component", "sweeper").Logger(),
	}
}

// Start schedules the sweep job and begins running it.
func (s *Sweeper) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	if _, err := s.cron.AddFunc(s.schedule, s.sweep); err != nil {
		return fmt.Errorf("schedule expiry sweep: %w", err)
	}

	s.cron.Start()
	s.running = true
	s.logger.Info().Str("schedule", s.schedule).Msg("expiry sweeper started")
	return nil
}

// Stop halts the sweeper and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}

	ctx := s.cron.Stop()
	<-ctx.Done()
	s.running = false
	s.logger.Info().Msg("expiry sweeper stopped")
}

// RunOnce performs a single sweep immediately, outside the schedule.
func (s *Sweeper) RunOnce(ctx context.Context) (int64, error) {
	n, err := s.store.ExpireOverdueTransactions(ctx, time.Now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.metrics.ExpiredN(n)
		s.logger.Info().Int64("expired", n).Msg("expired overdue transactions")
	}
	return n, nil
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	if _, err := s.RunOnce(ctx); err != nil {
		s.logger.Error().Err(err).Msg("expiry sweep failed")
	}
}
