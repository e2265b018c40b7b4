package cache

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"
)

func TestMemoryCacheSetGetString(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	if err := mc.Set(ctx, "snapshot:BTCUSDT", `{"ok":true}`, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	var got string
	if err := mc.Get(ctx, "snapshot:BTCUSDT", &got); err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != `{"ok":true}` {
		t.Fatalf("unexpected value %q", got)
	}
}

func TestMemoryCacheMiss(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()

	var got string
	err := mc.Get(context.Background(), "absent", &got)
	if !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected ErrCacheMiss, got %v", err)
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	if err := mc.Set(ctx, "k", "v", time.Nanosecond); err != nil {
		t.Fatalf("set: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	var got string
	if err := mc.Get(ctx, "k", &got); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expired entry should miss, got %v", err)
	}
}

func TestMemoryCacheEvictsLRU(t *testing.T) {
	mc := NewMemoryCache()
	defer mc.Close()
	ctx := context.Background()

	for i := 0; i < memoryMaxSize; i++ {
		key := GenerateKey("snapshot", strconv.Itoa(i))
		if err := mc.Set(ctx, key, "v", time.Minute); err != nil {
			t.Fatalf("set %d: %v", i, err)
		}
	}
	if err := mc.Set(ctx, "one-more", "v", time.Minute); err != nil {
		t.Fatalf("set over capacity: %v", err)
	}
	if len(mc.data) > memoryMaxSize {
		t.Fatalf("cache grew past its bound: %d entries", len(mc.data))
	}
}
