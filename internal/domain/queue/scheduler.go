package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// DefaultTickInterval is how often queues advance.
const DefaultTickInterval = 30 * time.Second

// Scheduler runs Simulator.Tick on a fixed interval.
type Scheduler struct {
	cron     *cron.Cron
	sim      *Simulator
	interval time.Duration
	logger   zerolog.Logger
}

func NewScheduler(sim *Simulator, interval time.Duration, logger zerolog.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	return &Scheduler{
		cron:     cron.New(),
		sim:      sim,
		interval: interval,
		logger:   logger,
	}
}

// Spec is the cron schedule the tick job runs on.
func (s *Scheduler) Spec() string {
	return "@every " + s.interval.String()
}

func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.Spec(), s.tick)
	if err != nil {
		return fmt.Errorf("schedule queue tick: %w", err)
	}
	s.cron.Start()
	s.logger.Info().Str("schedule", s.Spec()).Msg("queue simulator started")
	return nil
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()
	if err := s.sim.Tick(ctx); err != nil {
		s.logger.Error().Err(err).Msg("queue tick failed")
	}
}

// Stop halts the schedule and waits for a running tick to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn().Msg("queue tick still running at shutdown")
	}
}
