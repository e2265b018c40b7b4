package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"QuantPulse/internal/domain/models"
)

func TestSchedulerRunsInitialPass(t *testing.T) {
	feed := &fakeFeed{windows: map[string][]models.Candle{"BTCUSDT": testWindow(250)}}
	svc := newService(t, feed, nil, &fakeMetrics{})
	sched := NewScheduler(svc, time.Hour, zerolog.Nop())

	sched.Start(context.Background())
	defer sched.Stop()

	deadline := time.After(2 * time.Second)
	for {
		if _, err := svc.Latest("BTCUSDT"); err == nil {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("no snapshot after initial pass")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestSchedulerStopWaits(t *testing.T) {
	feed := &fakeFeed{windows: map[string][]models.Candle{"BTCUSDT": testWindow(250)}}
	svc := newService(t, feed, nil, &fakeMetrics{})
	sched := NewScheduler(svc, 10*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	sched.Start(ctx)
	time.Sleep(50 * time.Millisecond)
	cancel()
	sched.Stop() // must not hang
}
