/*
scheduler.go - Periodic late fee accrual

PURPOSE:
  Keeps stored late fees current while nobody is looking at the
  dashboard. Each pass calls Engine.Refresh, which rewrites the fee of
  every outstanding record from the current time.

DESIGN:
  - Run blocks until the context is cancelled; main runs it in the
    same errgroup as the HTTP server
  - A failed pass is logged and retried on the next tick
  - Refresh is idempotent, so overlapping with request-driven load
    passes is harmless

USAGE:
  scheduler := api.NewAccrualScheduler(engine, logger)
  scheduler.Interval = cfg.AccrualInterval
  g.Go(func() error { return scheduler.Run(ctx) })

SEE ALSO:
  - handlers.go: RefreshFees endpoint (manual pass)
  - checkout/fee.go: fee schedule
*/
package api

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/warp/sports-checkout/checkout"
)

// AccrualScheduler runs the late fee accrual pass on an interval.
type AccrualScheduler struct {
	Engine   *checkout.Engine
	Metrics  *Metrics // optional
	Logger   *zap.Logger
	Interval time.Duration
}

func NewAccrualScheduler(engine *checkout.Engine, logger *zap.Logger) *AccrualScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccrualScheduler{
		Engine:   engine,
		Logger:   logger,
		Interval: time.Hour,
	}
}

// Run performs one pass immediately and then one per interval. It returns
// nil when ctx is cancelled.
func (s *AccrualScheduler) Run(ctx context.Context) error {
	interval := s.Interval
	if interval <= 0 {
		interval = time.Hour
	}

	s.Logger.Info("accrual scheduler started", zap.Duration("interval", interval))
	s.RunOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Logger.Info("accrual scheduler stopped")
			return nil
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single accrual pass and returns the number of records
// whose fee changed.
func (s *AccrualScheduler) RunOnce(ctx context.Context) int {
	n, err := s.Engine.Refresh(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.Logger.Error("accrual pass failed", zap.Error(err))
		}
		return 0
	}
	if s.Metrics != nil {
		s.Metrics.ObserveAccrual(n)
	}
	s.Logger.Debug("accrual pass complete", zap.Int("updated", n))
	return n
}
