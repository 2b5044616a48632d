package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 0.001, cfg.DefaultTakerFee)
	assert.Equal(t, "BTC/USDT", cfg.BenchmarkPair)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diagnoser.yaml")
	content := `
data_dir: /var/data/candles
exchange: kraken
default_taker_fee: 0.0026
severity_weights:
  overfitting: 60
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/data/candles", cfg.DataDir)
	assert.Equal(t, "kraken", cfg.Exchange)
	assert.Equal(t, 0.0026, cfg.DefaultTakerFee)
	assert.Equal(t, 60, cfg.SeverityWeights["overfitting"])
	// Unset fields keep their defaults.
	assert.Equal(t, "BTC/USDT", cfg.BenchmarkPair)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("default_taker_fee: -1\n"), 0o644))
	_, err = Load(bad)
	assert.ErrorContains(t, err, "must not be negative")
}
