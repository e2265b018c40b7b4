package config

import (
	"testing"

	"github.com/creasty/defaults"
)

func validConfig(t *testing.T) *Config {
	t.Helper()
	var c Config
	if err := defaults.Set(&c); err != nil {
		t.Fatalf("defaults: %v", err)
	}
	c.Feed.Symbols = []string{"BTCUSDT"}
	return &c
}

func TestDefaultRateLimit(t *testing.T) {
	c := validConfig(t)
	if err := c.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if c.Server.RateLimit.Burst != 20 {
		t.Fatalf("expected default burst 20, got %v", c.Server.RateLimit.Burst)
	}
	if c.Server.RateLimit.PerSecond != 10 {
		t.Fatalf("expected default per_second 10, got %v", c.Server.RateLimit.PerSecond)
	}
}

func TestValidateRejectsBadRateLimit(t *testing.T) {
	c := validConfig(t)
	c.Server.RateLimit.PerSecond = 0
	if err := c.Validate(); err == nil {
		t.Fatalf("zero refill rate should fail validation")
	}

	c = validConfig(t)
	c.Server.RateLimit.Burst = 0
	if err := c.Validate(); err == nil {
		t.Fatalf("zero burst should fail validation")
	}
}
