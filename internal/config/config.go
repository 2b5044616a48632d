// Package config loads the diagnoser configuration from YAML.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the file-level diagnoser configuration. All fields are
// optional; zero values fall back to the defaults.
type Config struct {
	// DataDir is the root of the candle data tree
	// (<data_dir>/<exchange>/<PAIR>-<timeframe>.json).
	DataDir string `yaml:"data_dir"`

	// Exchange overrides the exchange from the backtest result.
	Exchange string `yaml:"exchange"`

	// DefaultTakerFee is the per-side fee assumed when the result
	// carries none.
	DefaultTakerFee float64 `yaml:"default_taker_fee"`

	// BenchmarkPair drives regime segmentation.
	BenchmarkPair string `yaml:"benchmark_pair"`

	// ClickHouseDSN, when set, reads candles from ClickHouse instead
	// of the file tree.
	ClickHouseDSN string `yaml:"clickhouse_dsn"`

	// SeverityWeights overrides individual failure-signal severities.
	SeverityWeights map[string]int `yaml:"severity_weights"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DefaultTakerFee: 0.001,
		BenchmarkPair:   "BTC/USDT",
	}
}

// Load reads a YAML config file and merges it over the defaults.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.DefaultTakerFee < 0 {
		return nil, fmt.Errorf("config %s: default_taker_fee must not be negative", path)
	}
	return cfg, nil
}
