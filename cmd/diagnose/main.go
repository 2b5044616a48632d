// Package main is the backtest diagnostic CLI: it reads a freqtrade
// backtest export plus the strategy source and writes the diagnostic
// report as markdown and/or JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"backtest-doctor/internal/candles"
	chstore "backtest-doctor/internal/candles/clickhouse"
	"backtest-doctor/internal/config"
	"backtest-doctor/internal/loader"
	"backtest-doctor/internal/pipeline"
	"backtest-doctor/internal/ranking"
	"backtest-doctor/internal/reporting"
)

func main() {
	resultPath := flag.String("result", "", "Path to the backtest result JSON (required)")
	strategyPath := flag.String("strategy", "", "Path to the strategy source file")
	strategyName := flag.String("strategy-name", "", "Strategy to pick when the result holds several")
	configPath := flag.String("config", "", "Path to the diagnoser YAML config")
	dataDir := flag.String("data-dir", "", "Candle data directory (overrides config)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "Read candles from ClickHouse instead of files")
	benchmarkPair := flag.String("benchmark-pair", "", "Benchmark pair for regime segmentation (overrides config)")
	outputJSON := flag.String("output", "", "Write the JSON report to this path")
	outputMD := flag.String("markdown", "", "Write the markdown report to this path")
	verbose := flag.Bool("verbose", false, "Verbose logging")
	flag.Parse()

	if *resultPath == "" {
		fmt.Fprintln(os.Stderr, "Error: --result is required")
		flag.Usage()
		os.Exit(1)
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	if !*verbose {
		log = log.Level(zerolog.InfoLevel)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Warn().Str("signal", sig.String()).Msg("cancelling")
		cancel()
	}()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if *clickhouseDSN != "" {
		cfg.ClickHouseDSN = *clickhouseDSN
	}
	if *benchmarkPair != "" {
		cfg.BenchmarkPair = *benchmarkPair
	}

	result, err := loader.Load(*resultPath, *strategyName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading backtest result: %v\n", err)
		os.Exit(1)
	}
	if cfg.Exchange != "" {
		result.Config.Exchange = cfg.Exchange
	}

	strategyText := ""
	if *strategyPath != "" {
		raw, err := os.ReadFile(*strategyPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading strategy source: %v\n", err)
			os.Exit(1)
		}
		strategyText = string(raw)
	}

	store, err := buildCandleStore(ctx, cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening candle store: %v\n", err)
		os.Exit(1)
	}

	weights := ranking.DefaultWeights()
	for id, sev := range cfg.SeverityWeights {
		if _, known := weights[id]; !known {
			fmt.Fprintf(os.Stderr, "Error: unknown severity weight %q in config\n", id)
			os.Exit(1)
		}
		weights[id] = sev
	}

	runner := pipeline.NewRunner().
		WithCandles(store).
		WithBenchmarkPair(cfg.BenchmarkPair).
		WithTakerFee(cfg.DefaultTakerFee).
		WithWeights(weights).
		WithLogger(log)

	rep, err := runner.Run(ctx, result, strategyText)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error running diagnostics: %v\n", err)
		os.Exit(1)
	}

	wrote := false
	if *outputMD != "" {
		if err := os.WriteFile(*outputMD, []byte(reporting.RenderMarkdown(rep)), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing markdown report: %v\n", err)
			os.Exit(1)
		}
		log.Info().Str("path", *outputMD).Msg("markdown report written")
		wrote = true
	}
	if *outputJSON != "" {
		raw, err := json.MarshalIndent(rep, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding report: %v\n", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*outputJSON, append(raw, '\n'), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing JSON report: %v\n", err)
			os.Exit(1)
		}
		log.Info().Str("path", *outputJSON).Msg("JSON report written")
		wrote = true
	}
	if !wrote {
		fmt.Print(reporting.RenderMarkdown(rep))
	}
}

// buildCandleStore picks the candle source: ClickHouse when a DSN is
// configured, the file tree when a data dir is, otherwise none (the
// market-context checks degrade gracefully).
func buildCandleStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (candles.Store, error) {
	if cfg.ClickHouseDSN != "" {
		conn, err := chstore.NewConn(ctx, cfg.ClickHouseDSN)
		if err != nil {
			return nil, fmt.Errorf("connect clickhouse: %w", err)
		}
		log.Info().Msg("using clickhouse candle store")
		return chstore.NewStore(conn), nil
	}
	if cfg.DataDir != "" {
		log.Info().Str("dir", cfg.DataDir).Msg("using file candle store")
		return candles.NewFileStore(cfg.DataDir), nil
	}
	log.Warn().Msg("no candle source configured; market-context checks will be skipped")
	return nil, nil
}
