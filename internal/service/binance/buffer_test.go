package binance

import (
	"testing"
	"time"

	"QuantPulse/internal/domain/models"
)

func bar(openHour int, close float64) models.Candle {
	return models.Candle{
		OpenTime: time.Date(2026, 3, 2, openHour, 0, 0, 0, time.UTC),
		Symbol:   "BTCUSDT",
		Open:     close - 1,
		High:     close + 1,
		Low:      close - 2,
		Close:    close,
		Volume:   10,
	}
}

func TestWindowUpsertAppendsNewBars(t *testing.T) {
	w := newWindow(10)
	w.Upsert(bar(0, 100))
	w.Upsert(bar(1, 101))
	if w.Len() != 2 {
		t.Fatalf("len %d, want 2", w.Len())
	}
}

func TestWindowUpsertReplacesLiveBar(t *testing.T) {
	w := newWindow(10)
	w.Upsert(bar(0, 100))
	w.Upsert(bar(0, 105)) // streaming update of the same bar
	if w.Len() != 1 {
		t.Fatalf("len %d, want 1", w.Len())
	}
	last, _ := w.Last()
	if last.Close != 105 {
		t.Fatalf("live bar close %v, want updated 105", last.Close)
	}
}

func TestWindowUpsertDropsStaleBar(t *testing.T) {
	w := newWindow(10)
	w.Upsert(bar(5, 100))
	w.Upsert(bar(3, 90)) // older than the last bar
	if w.Len() != 1 {
		t.Fatalf("stale bar was inserted, len %d", w.Len())
	}
}

func TestWindowEvictsPastLimit(t *testing.T) {
	w := newWindow(3)
	for h := 0; h < 5; h++ {
		w.Upsert(bar(h, float64(100+h)))
	}
	if w.Len() != 3 {
		t.Fatalf("len %d, want limit 3", w.Len())
	}
	snap := w.Snapshot()
	if snap[0].Close != 102 {
		t.Fatalf("oldest surviving close %v, want 102", snap[0].Close)
	}
}

func TestWindowSnapshotIsIndependent(t *testing.T) {
	w := newWindow(10)
	w.Upsert(bar(0, 100))
	snap := w.Snapshot()
	w.Upsert(bar(1, 200))
	if len(snap) != 1 {
		t.Fatalf("snapshot mutated by later append")
	}
	snap[0].Close = 999
	cur := w.Snapshot()
	if cur[0].Close != 100 {
		t.Fatalf("buffer mutated through snapshot copy")
	}
}

func TestWindowReplaceTrims(t *testing.T) {
	w := newWindow(2)
	w.Replace([]models.Candle{bar(0, 100), bar(1, 101), bar(2, 102)})
	if w.Len() != 2 {
		t.Fatalf("len %d, want 2", w.Len())
	}
	last, _ := w.Last()
	if last.Close != 102 {
		t.Fatalf("last close %v, want newest 102", last.Close)
	}
}
