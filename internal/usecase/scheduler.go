package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Scheduler drives the analysis cycle: one goroutine per symbol, each on
// its own ticker. A symbol whose pass overruns the cycle simply skips
// ticks; at most one pass per symbol is ever in flight.
type Scheduler struct {
	svc   *SnapshotService
	cycle time.Duration
	log   zerolog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewScheduler(svc *SnapshotService, cycle time.Duration, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		svc:   svc,
		cycle: cycle,
		log:   log.With().Str("component", "scheduler").Logger(),
	}
}

// Start launches the per-symbol loops and returns immediately. Each loop
// runs an initial pass right away so snapshots appear as soon as the feed
// has enough history.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	symbols := s.svc.Symbols()
	s.log.Info().Int("symbols", len(symbols)).Dur("cycle", s.cycle).Msg("scheduler started")
	for _, symbol := range symbols {
		s.wg.Add(1)
		go s.run(ctx, symbol)
	}
}

func (s *Scheduler) run(ctx context.Context, symbol string) {
	defer s.wg.Done()

	s.pass(ctx, symbol)

	ticker := time.NewTicker(s.cycle)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.pass(ctx, symbol)
		}
	}
}

func (s *Scheduler) pass(ctx context.Context, symbol string) {
	if err := s.svc.Refresh(ctx, symbol); err != nil {
		s.log.Error().Err(err).Str("symbol", symbol).Msg("analysis pass failed")
	}
}

// Stop cancels the loops and waits for in-flight passes to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	s.log.Info().Msg("scheduler stopped")
}
