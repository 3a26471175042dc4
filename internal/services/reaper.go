package services

import (
	"context"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"
)

// Reaper periodically settles idle sessions and retries wallet releases
// that failed after settlement.
type Reaper struct {
	engine   *GameEngine
	interval time.Duration
	clock    quartz.Clock
	logger   zerolog.Logger
}

func NewReaper(engine *GameEngine, interval time.Duration, clock quartz.Clock, logger zerolog.Logger) *Reaper {
	return &Reaper{
		engine:   engine,
		interval: interval,
		clock:    clock,
		logger:   logger.With().Str("component", "reaper").Logger(),
	}
}

// Run blocks until ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) error {
	r.logger.Info().Dur("interval", r.interval).Msg("reaper started")

	waiter := r.clock.TickerFunc(ctx, r.interval, func() error {
		r.Sweep(ctx)
		return nil
	}, "reaper")

	err := waiter.Wait()
	r.logger.Info().Msg("reaper stopped")
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// Sweep runs one reconciliation pass.
func (r *Reaper) Sweep(ctx context.Context) {
	abandoned, err := r.engine.AbandonStale(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("abandon pass failed")
	}
	released, err := r.engine.RetryWalletReleases(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("release pass failed")
	}
	if abandoned > 0 || released > 0 {
		r.logger.Info().Int("abandoned", abandoned).Int("released", released).Msg("reaper sweep")
	}
}
