package config

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		RateLimit       struct {
			// Token bucket per client IP: burst capacity and steady refill.
			Burst     float64 `yaml:"burst" default:"20"`
			PerSecond float64 `yaml:"per_second" default:"10"`
		} `yaml:"rate_limit"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Feed struct {
		RESTURL   string        `yaml:"rest_url" default:"https://api.binance.com/api/v3"`
		WSURL     string        `yaml:"ws_url" default:"wss://stream.binance.com:9443/stream"`
		Symbols   []string      `yaml:"symbols"`
		Interval  string        `yaml:"interval" default:"1h"`
		History   int           `yaml:"history" default:"500"`
		Refresh   time.Duration `yaml:"refresh" default:"1m"`
		Stream    bool          `yaml:"stream" default:"true"`
		Reconnect time.Duration `yaml:"reconnect_delay" default:"5s"`
		Ping      time.Duration `yaml:"ping_interval" default:"30s"`
	} `yaml:"feed"`
	Engine     EngineConfig `yaml:"engine"`
	Cache      struct {
		Backend     string        `yaml:"backend" default:"memory"` // memory or redis
		SnapshotTTL time.Duration `yaml:"snapshot_ttl" default:"5s"`
		Redis       struct {
			Host     string `yaml:"host" default:"localhost"`
			Port     int    `yaml:"port" default:"6379"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix" default:"quantpulse"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Kafka struct {
		Enabled      bool          `yaml:"enabled"`
		Brokers      []string      `yaml:"brokers"`
		Topic        string        `yaml:"topic" default:"quantpulse.snapshots"`
		RequiredAcks int           `yaml:"required_acks" default:"-1"`
		Compression  string        `yaml:"compression" default:"gzip"`
		MaxAttempts  int           `yaml:"max_attempts" default:"3"`
		Linger       time.Duration `yaml:"linger" default:"500ms"`
		BatchSize    int           `yaml:"batch_size" default:"100"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		Async        bool          `yaml:"async" default:"true"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled     bool          `yaml:"enabled"`
		Host        string        `yaml:"host" default:"localhost"`
		Port        int           `yaml:"port" default:"9000"`
		Database    string        `yaml:"database" default:"quantpulse"`
		User        string        `yaml:"user" default:"default"`
		Password    string        `yaml:"password"`
		Table       string        `yaml:"table" default:"quantpulse.candles"`
		UseHTTP     bool          `yaml:"use_http"`
		DialTimeout time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout time.Duration `yaml:"read_timeout" default:"10s"`
	} `yaml:"clickhouse"`
}

// EngineConfig externalizes every tunable of the signal synthesis engine so
// behavior changes are data changes, not code changes.
type EngineConfig struct {
	Cycle      time.Duration `yaml:"cycle" default:"5s"`
	MinHistory int           `yaml:"min_history" default:"200"`
	MaxEntries int           `yaml:"max_entries" default:"3"`

	Weights struct {
		Trend      float64 `yaml:"trend" default:"0.30"`
		Momentum   float64 `yaml:"momentum" default:"0.25"`
		Volatility float64 `yaml:"volatility" default:"0.15"`
		Volume     float64 `yaml:"volume" default:"0.15"`
		Structure  float64 `yaml:"structure" default:"0.15"`
	} `yaml:"weights"`

	// Canonical label thresholds. Scores strictly above StrongBuy map to
	// strong_buy, strictly above Buy to buy; negative side mirrors.
	Thresholds struct {
		StrongBuy float64 `yaml:"strong_buy" default:"65"`
		Buy       float64 `yaml:"buy" default:"25"`
	} `yaml:"thresholds"`

	Risk struct {
		// atr_percent bounds separating volatility states.
		LowMax    float64 `yaml:"low_max" default:"1.0"`
		NormalMax float64 `yaml:"normal_max" default:"2.5"`
		HighMax   float64 `yaml:"high_max" default:"4.0"`
		// Full-size fraction per state.
		SizeLow     float64 `yaml:"size_low" default:"1.0"`
		SizeNormal  float64 `yaml:"size_normal" default:"0.8"`
		SizeHigh    float64 `yaml:"size_high" default:"0.5"`
		SizeExtreme float64 `yaml:"size_extreme" default:"0.25"`
		// Stop distance ATR multiplier per state.
		StopATRLow     float64 `yaml:"stop_atr_low" default:"1.5"`
		StopATRNormal  float64 `yaml:"stop_atr_normal" default:"2.0"`
		StopATRHigh    float64 `yaml:"stop_atr_high" default:"2.5"`
		StopATRExtreme float64 `yaml:"stop_atr_extreme" default:"3.0"`
		// Confidence below this halves the recommended size.
		LowConfidence float64 `yaml:"low_confidence" default:"60"`
		// Stop distance never falls below this fraction of price.
		StopFloorPct float64 `yaml:"stop_floor_pct" default:"0.1"`
	} `yaml:"risk"`

	Entries struct {
		TPATRMin float64 `yaml:"tp_atr_min" default:"2.0"`
		TPATRMax float64 `yaml:"tp_atr_max" default:"3.0"`
		SLATRMin float64 `yaml:"sl_atr_min" default:"0.8"`
		SLATRMax float64 `yaml:"sl_atr_max" default:"1.5"`
		RRRMin   float64 `yaml:"rrr_min" default:"1.8"`
		RRRMax   float64 `yaml:"rrr_max" default:"3.5"`
		// Per-anchor TP/SL multipliers, each pair inside the ranges above
		// and with tp/sl inside the RRR band.
		Band struct {
			TP float64 `yaml:"tp" default:"3.0"`
			SL float64 `yaml:"sl" default:"1.2"`
		} `yaml:"band"`
		EMA struct {
			TP float64 `yaml:"tp" default:"2.8"`
			SL float64 `yaml:"sl" default:"1.0"`
		} `yaml:"ema"`
		VWAP struct {
			TP float64 `yaml:"tp" default:"3.0"`
			SL float64 `yaml:"sl" default:"1.1"`
		} `yaml:"vwap"`
		ATROffset struct {
			TP     float64 `yaml:"tp" default:"2.5"`
			SL     float64 `yaml:"sl" default:"0.8"`
			Offset float64 `yaml:"offset" default:"0.6"`
		} `yaml:"atr_offset"`
	} `yaml:"entries"`

	WinRate struct {
		Base           float64 `yaml:"base" default:"50"`
		ConfidenceMax  float64 `yaml:"confidence_max" default:"15"`
		RRRMin         float64 `yaml:"rrr_min" default:"5"`
		RRRMax         float64 `yaml:"rrr_max" default:"12"`
		Regime         float64 `yaml:"regime" default:"8"`
		Volume         float64 `yaml:"volume" default:"8"`
		QualityVWAP    float64 `yaml:"quality_vwap" default:"5"`
		QualityBand    float64 `yaml:"quality_band" default:"5"`
		QualityEMA     float64 `yaml:"quality_ema" default:"2"`
		QualityATR     float64 `yaml:"quality_atr" default:"-3"`
		RSIExtremeMin  float64 `yaml:"rsi_extreme_min" default:"5"`
		RSIExtremeMax  float64 `yaml:"rsi_extreme_max" default:"10"`
		Floor          float64 `yaml:"floor" default:"20"`
		Ceil           float64 `yaml:"ceil" default:"95"`
	} `yaml:"win_rate"`
}

// Load reads and parses a YAML configuration file, applying defaults first.
func Load(path string) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Feed.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("FEED_REST_URL"); v != "" {
		c.Feed.RESTURL = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Cache.Redis.Host = v
		c.Cache.Backend = "redis"
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if len(c.Feed.Symbols) == 0 {
		return fmt.Errorf("feed.symbols cannot be empty")
	}
	switch c.Cache.Backend {
	case "memory", "redis", "layered":
	default:
		return fmt.Errorf("cache.backend must be 'memory', 'redis', or 'layered', got '%s'", c.Cache.Backend)
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers required when kafka.enabled")
	}
	if c.Server.RateLimit.Burst < 1 || c.Server.RateLimit.PerSecond <= 0 {
		return fmt.Errorf("server.rate_limit requires burst >= 1 and per_second > 0")
	}
	return c.Engine.Validate()
}

// Validate checks the engine tunables for internal consistency.
func (e *EngineConfig) Validate() error {
	w := e.Weights
	sum := w.Trend + w.Momentum + w.Volatility + w.Volume + w.Structure
	if math.Abs(sum-1.0) > 1e-9 {
		return fmt.Errorf("engine.weights must sum to 1.0, got %.4f", sum)
	}
	if e.MinHistory < 35 {
		return fmt.Errorf("engine.min_history must cover the MACD lookback (>= 35), got %d", e.MinHistory)
	}
	if e.Thresholds.Buy <= 0 || e.Thresholds.StrongBuy <= e.Thresholds.Buy {
		return fmt.Errorf("engine.thresholds must satisfy 0 < buy < strong_buy")
	}
	if e.MaxEntries < 1 || e.MaxEntries > 4 {
		return fmt.Errorf("engine.max_entries must be in [1, 4], got %d", e.MaxEntries)
	}
	for _, p := range []struct {
		name   string
		tp, sl float64
	}{
		{"band", e.Entries.Band.TP, e.Entries.Band.SL},
		{"ema", e.Entries.EMA.TP, e.Entries.EMA.SL},
		{"vwap", e.Entries.VWAP.TP, e.Entries.VWAP.SL},
		{"atr_offset", e.Entries.ATROffset.TP, e.Entries.ATROffset.SL},
	} {
		if p.tp < e.Entries.TPATRMin || p.tp > e.Entries.TPATRMax {
			return fmt.Errorf("engine.entries.%s.tp %.2f outside [%.2f, %.2f]", p.name, p.tp, e.Entries.TPATRMin, e.Entries.TPATRMax)
		}
		if p.sl < e.Entries.SLATRMin || p.sl > e.Entries.SLATRMax {
			return fmt.Errorf("engine.entries.%s.sl %.2f outside [%.2f, %.2f]", p.name, p.sl, e.Entries.SLATRMin, e.Entries.SLATRMax)
		}
		rrr := p.tp / p.sl
		if rrr < e.Entries.RRRMin || rrr > e.Entries.RRRMax {
			return fmt.Errorf("engine.entries.%s risk/reward %.2f outside [%.2f, %.2f]", p.name, rrr, e.Entries.RRRMin, e.Entries.RRRMax)
		}
	}
	return nil
}
