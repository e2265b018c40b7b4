package usecase

import (
	"context"
	"errors"
	"sort"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"QuantPulse/internal/domain/models"
	domrepo "QuantPulse/internal/domain/repository"
	"QuantPulse/internal/services/engine"
)

// Assembler runs one full analysis pass over a candle window.
type Assembler interface {
	Assemble(symbol string, window []models.Candle, ts time.Time) (*models.Snapshot, error)
}

// SnapshotService owns the per-symbol snapshot slots. Each slot is an
// atomic pointer: readers always observe either the previous complete
// snapshot or the new one, never a partial state. Refresh never mutates a
// published snapshot.
type SnapshotService struct {
	feed       domrepo.CandleFeed
	assembler  Assembler
	publishers []domrepo.SnapshotPublisher
	metrics    domrepo.Metrics
	log        zerolog.Logger
	now        func() time.Time

	slots map[string]*atomic.Pointer[models.Snapshot]
}

// NewSnapshotService creates the service with one slot per configured
// symbol. The symbol set is fixed at construction.
func NewSnapshotService(
	feed domrepo.CandleFeed,
	assembler Assembler,
	publishers []domrepo.SnapshotPublisher,
	metrics domrepo.Metrics,
	log zerolog.Logger,
) *SnapshotService {
	slots := make(map[string]*atomic.Pointer[models.Snapshot], len(feed.Symbols()))
	for _, s := range feed.Symbols() {
		slots[s] = &atomic.Pointer[models.Snapshot]{}
	}
	return &SnapshotService{
		feed:       feed,
		assembler:  assembler,
		publishers: publishers,
		metrics:    metrics,
		log:        log.With().Str("component", "snapshot_service").Logger(),
		now:        time.Now,
		slots:      slots,
	}
}

// WithClock overrides the timestamp source. Used by tests and by replay.
func (s *SnapshotService) WithClock(now func() time.Time) *SnapshotService {
	s.now = now
	return s
}

// Refresh runs one analysis pass for symbol and publishes the result
// atomically. An insufficient-history window is logged at debug and leaves
// the previous snapshot (if any) in place.
func (s *SnapshotService) Refresh(ctx context.Context, symbol string) error {
	slot, ok := s.slots[symbol]
	if !ok {
		return ErrUnknownSymbol
	}

	start := s.now()
	window, err := s.feed.Window(symbol)
	if err != nil {
		s.metrics.RecordError("feed_window")
		return err
	}

	snap, err := s.assembler.Assemble(symbol, window, s.now())
	if err != nil {
		if errors.Is(err, engine.ErrInsufficientHistory) {
			s.log.Debug().Str("symbol", symbol).Int("bars", len(window)).
				Msg("window below minimum history, keeping previous snapshot")
			return nil
		}
		s.metrics.RecordError("assemble")
		return err
	}

	slot.Store(snap)
	s.metrics.RecordPass(symbol, s.now().Sub(start).Seconds())
	s.metrics.RecordSignalScore(symbol, snap.Signal.Score)
	s.metrics.RecordLastPrice(symbol, snap.MarketData.Price)

	s.fanOut(ctx, snap)

	s.log.Debug().
		Str("symbol", symbol).
		Str("signal", snap.Signal.Type).
		Float64("score", snap.Signal.Score).
		Float64("confidence", snap.Signal.Confidence).
		Str("regime", snap.Regime).
		Msg("snapshot published")
	return nil
}

// fanOut delivers the snapshot to every publisher. A failing publisher is
// logged and counted but never aborts the pass.
func (s *SnapshotService) fanOut(ctx context.Context, snap *models.Snapshot) {
	for _, p := range s.publishers {
		if err := p.Publish(ctx, snap); err != nil {
			s.metrics.RecordError("publish")
			s.log.Warn().Err(err).Str("symbol", snap.Symbol).Msg("snapshot publish failed")
		}
	}
}

// RefreshAll runs one pass over every configured symbol. Per-symbol errors
// are logged and do not stop the remaining symbols.
func (s *SnapshotService) RefreshAll(ctx context.Context) {
	for _, symbol := range s.Symbols() {
		if ctx.Err() != nil {
			return
		}
		if err := s.Refresh(ctx, symbol); err != nil {
			s.log.Error().Err(err).Str("symbol", symbol).Msg("analysis pass failed")
		}
	}
}

// Latest returns the last published snapshot for symbol.
func (s *SnapshotService) Latest(symbol string) (*models.Snapshot, error) {
	slot, ok := s.slots[symbol]
	if !ok {
		return nil, ErrUnknownSymbol
	}
	snap := slot.Load()
	if snap == nil {
		return nil, ErrNotReady
	}
	return snap, nil
}

// All returns every ready snapshot, sorted by symbol for stable output.
// Symbols still warming up are skipped, not errored.
func (s *SnapshotService) All() *models.SnapshotList {
	out := make([]*models.Snapshot, 0, len(s.slots))
	for _, slot := range s.slots {
		if snap := slot.Load(); snap != nil {
			out = append(out, snap)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Symbol < out[j].Symbol })
	return &models.SnapshotList{
		Count:     len(out),
		Timestamp: s.now().UTC(),
		Snapshots: out,
	}
}

// Symbols returns the configured symbol universe, sorted.
func (s *SnapshotService) Symbols() []string {
	out := make([]string, 0, len(s.slots))
	for sym := range s.slots {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}
