package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies COSTSIM_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known COSTSIM_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Exchange ──
	setStr(&cfg.Exchange.Name, "COSTSIM_EXCHANGE_NAME")
	setStr(&cfg.Exchange.Symbol, "COSTSIM_EXCHANGE_SYMBOL")

	// ── Feed ──
	setStr(&cfg.Feed.WsURL, "COSTSIM_FEED_WS_URL")

	// ── Simulator ──
	setFloat64(&cfg.Simulator.InitialCapital, "COSTSIM_SIMULATOR_INITIAL_CAPITAL")
	setStr(&cfg.Simulator.FeeTier, "COSTSIM_SIMULATOR_FEE_TIER")
	setFloat64(&cfg.Simulator.DailyVolume, "COSTSIM_SIMULATOR_DAILY_VOLUME")
	setFloat64(&cfg.Simulator.Volatility, "COSTSIM_SIMULATOR_VOLATILITY")
	setFloat64(&cfg.Simulator.TempImpactFactor, "COSTSIM_SIMULATOR_TEMP_IMPACT_FACTOR")
	setFloat64(&cfg.Simulator.PermImpactFactor, "COSTSIM_SIMULATOR_PERM_IMPACT_FACTOR")
	setFloat64(&cfg.Simulator.ProbeSize, "COSTSIM_SIMULATOR_PROBE_SIZE")
	setFloat64(&cfg.Simulator.ProbeLimitPrice, "COSTSIM_SIMULATOR_PROBE_LIMIT_PRICE")
	setStr(&cfg.Simulator.ProbeOrderType, "COSTSIM_SIMULATOR_PROBE_ORDER_TYPE")
	setFloat64(&cfg.Simulator.ProbeHorizonSec, "COSTSIM_SIMULATOR_PROBE_HORIZON_SEC")
	setBool(&cfg.Simulator.RestoreState, "COSTSIM_SIMULATOR_RESTORE_STATE")
	setDuration(&cfg.Simulator.SaveInterval, "COSTSIM_SIMULATOR_SAVE_INTERVAL")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "COSTSIM_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "COSTSIM_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "COSTSIM_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "COSTSIM_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "COSTSIM_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "COSTSIM_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "COSTSIM_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "COSTSIM_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "COSTSIM_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "COSTSIM_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "COSTSIM_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "COSTSIM_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "COSTSIM_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "COSTSIM_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "COSTSIM_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "COSTSIM_REDIS_TLS_ENABLED")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "COSTSIM_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "COSTSIM_S3_REGION")
	setStr(&cfg.S3.Bucket, "COSTSIM_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "COSTSIM_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "COSTSIM_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "COSTSIM_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "COSTSIM_S3_FORCE_PATH_STYLE")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "COSTSIM_ARCHIVE_ENABLED")
	setDuration(&cfg.Archive.Interval, "COSTSIM_ARCHIVE_INTERVAL")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "COSTSIM_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "COSTSIM_SERVER_PORT")

	// ── Top-level ──
	setStr(&cfg.Mode, "COSTSIM_MODE")
	setStr(&cfg.LogLevel, "COSTSIM_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}
