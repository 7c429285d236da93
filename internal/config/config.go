// Package config defines the top-level configuration for the trade-cost
// estimator and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by COSTSIM_* environment
// variables. The core packages never read configuration themselves; values
// are passed in at wiring time.
type Config struct {
	Exchange  ExchangeConfig  `toml:"exchange"`
	Feed      FeedConfig      `toml:"feed"`
	Simulator SimulatorConfig `toml:"simulator"`
	Postgres  PostgresConfig  `toml:"postgres"`
	Redis     RedisConfig     `toml:"redis"`
	S3        S3Config        `toml:"s3"`
	Archive   ArchiveConfig   `toml:"archive"`
	Server    ServerConfig    `toml:"server"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
}

// ExchangeConfig identifies the venue and instrument being estimated.
type ExchangeConfig struct {
	Name   string `toml:"name"`
	Symbol string `toml:"symbol"`
}

// FeedConfig holds the market data stream endpoint.
type FeedConfig struct {
	WsURL string `toml:"ws_url"`
}

// SimulatorConfig holds model parameters and the probe order that is
// re-estimated on every book update.
type SimulatorConfig struct {
	InitialCapital   float64  `toml:"initial_capital"`
	FeeTier          string   `toml:"fee_tier"`
	DailyVolume      float64  `toml:"daily_volume"`
	Volatility       float64  `toml:"volatility"`
	TempImpactFactor float64  `toml:"temp_impact_factor"`
	PermImpactFactor float64  `toml:"perm_impact_factor"`
	ProbeSize        float64  `toml:"probe_size"`
	ProbeLimitPrice  float64  `toml:"probe_limit_price"`
	ProbeOrderType   string   `toml:"probe_order_type"`
	ProbeHorizonSec  float64  `toml:"probe_horizon_sec"`
	RestoreState     bool     `toml:"restore_state"`
	SaveInterval     duration `toml:"save_interval"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ArchiveConfig controls periodic archival of estimates to object storage.
type ArchiveConfig struct {
	Enabled  bool     `toml:"enabled"`
	Interval duration `toml:"interval"`
}

// ServerConfig holds HTTP status server parameters.
type ServerConfig struct {
	Enabled bool `toml:"enabled"`
	Port    int  `toml:"port"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Exchange: ExchangeConfig{
			Name:   "OKX",
			Symbol: "BTC-USDT",
		},
		Feed: FeedConfig{
			WsURL: "wss://ws.gomarket-cpp.goquant.io/ws/l2-orderbook/okx/BTC-USDT",
		},
		Simulator: SimulatorConfig{
			InitialCapital:   100_000,
			FeeTier:          "tier1",
			DailyVolume:      1_000_000,
			Volatility:       0.02,
			TempImpactFactor: 0.1,
			PermImpactFactor: 0.1,
			ProbeSize:        100,
			ProbeLimitPrice:  0,
			ProbeOrderType:   "market",
			ProbeHorizonSec:  60,
			RestoreState:     false,
			SaveInterval:     duration{5 * time.Minute},
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "costsim",
			User:          "costsim",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			Bucket:         "costsim-data",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Archive: ArchiveConfig{
			Enabled:  false,
			Interval: duration{time.Hour},
		},
		Server: ServerConfig{
			Enabled: true,
			Port:    8000,
		},
		Mode:     "monitor",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"monitor": true,
	"live":    true,
	"full":    true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validOrderTypes enumerates the accepted probe order types.
var validOrderTypes = map[string]bool{
	"market": true,
	"limit":  true,
}

// Validate checks Config for obviously invalid or missing values and
// returns a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: monitor, live, full)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.Exchange.Name == "" {
		errs = append(errs, "exchange: name must not be empty")
	}
	if c.Exchange.Symbol == "" {
		errs = append(errs, "exchange: symbol must not be empty")
	}

	if c.Feed.WsURL == "" {
		errs = append(errs, "feed: ws_url must not be empty")
	}

	if c.Simulator.InitialCapital < 0 {
		errs = append(errs, "simulator: initial_capital must be >= 0")
	}
	if c.Simulator.FeeTier == "" {
		errs = append(errs, "simulator: fee_tier must not be empty")
	}
	if c.Simulator.DailyVolume < 0 {
		errs = append(errs, "simulator: daily_volume must be >= 0")
	}
	if c.Simulator.ProbeSize == 0 {
		errs = append(errs, "simulator: probe_size must not be zero")
	}
	if !validOrderTypes[c.Simulator.ProbeOrderType] {
		errs = append(errs, fmt.Sprintf("simulator: unknown probe_order_type %q (valid: market, limit)", c.Simulator.ProbeOrderType))
	}
	if c.Simulator.ProbeHorizonSec <= 0 {
		errs = append(errs, "simulator: probe_horizon_sec must be > 0")
	}

	// Postgres is only dialed in live/full mode.
	needsPostgres := c.Mode == "live" || c.Mode == "full"
	if needsPostgres {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 {
			errs = append(errs, "postgres: pool_min_conns must be >= 0")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	if c.Redis.Addr == "" {
		errs = append(errs, "redis: addr must not be empty")
	}
	if c.Redis.PoolSize < 1 {
		errs = append(errs, "redis: pool_size must be >= 1")
	}

	if c.Archive.Enabled {
		if c.S3.Endpoint == "" {
			errs = append(errs, "s3: endpoint must not be empty when archive is enabled")
		}
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty when archive is enabled")
		}
		if c.Archive.Interval.Duration <= 0 {
			errs = append(errs, "archive: interval must be > 0")
		}
	}

	if c.Server.Enabled {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
