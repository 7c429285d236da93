package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "OKX", cfg.Exchange.Name)
	assert.Equal(t, "BTC-USDT", cfg.Exchange.Symbol)
	assert.Equal(t, "monitor", cfg.Mode)
	assert.Equal(t, "tier1", cfg.Simulator.FeeTier)
	assert.Equal(t, 5*time.Minute, cfg.Simulator.SaveInterval.Duration)
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
mode = "live"
log_level = "debug"

[exchange]
symbol = "ETH-USDT"

[simulator]
probe_size = 50.0
save_interval = "30s"

[postgres]
host = "db.internal"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "live", cfg.Mode)
	assert.Equal(t, "ETH-USDT", cfg.Exchange.Symbol)
	// Untouched fields keep their defaults.
	assert.Equal(t, "OKX", cfg.Exchange.Name)
	assert.Equal(t, 50.0, cfg.Simulator.ProbeSize)
	assert.Equal(t, 30*time.Second, cfg.Simulator.SaveInterval.Duration)
	assert.Equal(t, "db.internal", cfg.Postgres.Host)
	assert.Equal(t, 5432, cfg.Postgres.Port)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("COSTSIM_EXCHANGE_SYMBOL", "SOL-USDT")
	t.Setenv("COSTSIM_MODE", "full")
	t.Setenv("COSTSIM_SIMULATOR_PROBE_SIZE", "25")
	t.Setenv("COSTSIM_REDIS_DB", "3")
	t.Setenv("COSTSIM_ARCHIVE_ENABLED", "true")
	t.Setenv("COSTSIM_SIMULATOR_SAVE_INTERVAL", "90s")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	assert.Equal(t, "SOL-USDT", cfg.Exchange.Symbol)
	assert.Equal(t, "full", cfg.Mode)
	assert.Equal(t, 25.0, cfg.Simulator.ProbeSize)
	assert.Equal(t, 3, cfg.Redis.DB)
	assert.True(t, cfg.Archive.Enabled)
	assert.Equal(t, 90*time.Second, cfg.Simulator.SaveInterval.Duration)
}

func TestEnvOverrideIgnoresBadValues(t *testing.T) {
	t.Setenv("COSTSIM_REDIS_DB", "not-a-number")
	cfg := Defaults()
	applyEnvOverrides(&cfg)
	assert.Equal(t, 0, cfg.Redis.DB)
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "bogus"
	cfg.Exchange.Symbol = ""
	cfg.Simulator.ProbeSize = 0
	cfg.Simulator.ProbeOrderType = "stop"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown mode")
	assert.Contains(t, err.Error(), "symbol must not be empty")
	assert.Contains(t, err.Error(), "probe_size")
	assert.Contains(t, err.Error(), "probe_order_type")
}

func TestValidatePostgresOnlyForPersistentModes(t *testing.T) {
	cfg := Defaults()
	cfg.Postgres.Host = ""
	require.NoError(t, cfg.Validate(), "monitor mode should not require postgres")

	cfg.Mode = "live"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: host")

	// A DSN replaces the individual fields.
	cfg.Postgres.DSN = "postgres://u:p@db:5432/costsim"
	require.NoError(t, cfg.Validate())
}

func TestValidateArchiveRequiresS3(t *testing.T) {
	cfg := Defaults()
	cfg.Archive.Enabled = true
	cfg.S3.Bucket = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket")
}

func TestDurationTextRoundTrip(t *testing.T) {
	var d duration
	require.NoError(t, d.UnmarshalText([]byte("2m30s")))
	assert.Equal(t, 150*time.Second, d.Duration)

	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "2m30s", string(text))
}
