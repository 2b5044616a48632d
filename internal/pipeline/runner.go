// Package pipeline fans the backtest result out to the independent
// analyzers and folds their reports into one diagnostic document.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"backtest-doctor/internal/analyzers"
	"backtest-doctor/internal/candles"
	"backtest-doctor/internal/domain"
	"backtest-doctor/internal/ranking"
	"backtest-doctor/internal/summary"
)

// ErrNoResult is returned when Run is called without a backtest result.
var ErrNoResult = errors.New("pipeline: no backtest result")

// Runner executes the full diagnostic pipeline. Analyzers run
// concurrently; a panicking analyzer is logged and leaves its
// sub-report nil, which the aggregators tolerate.
type Runner struct {
	store         candles.Store
	benchmarkPair string
	takerFee      float64
	weights       ranking.WeightTable
	log           zerolog.Logger
	clock         func() time.Time
}

// NewRunner creates a runner with defaults: no candle store, default
// severity weights, a disabled logger and the wall clock.
func NewRunner() *Runner {
	return &Runner{
		weights: ranking.DefaultWeights(),
		log:     zerolog.Nop(),
		clock:   func() time.Time { return time.Now().UTC() },
	}
}

// WithCandles attaches a candle store for the market-context checks.
func (r *Runner) WithCandles(store candles.Store) *Runner {
	r.store = store
	return r
}

// WithBenchmarkPair sets the pair used for regime segmentation.
func (r *Runner) WithBenchmarkPair(pair string) *Runner {
	r.benchmarkPair = pair
	return r
}

// WithTakerFee sets the per-side fee assumed when the backtest result
// does not carry its own.
func (r *Runner) WithTakerFee(fee float64) *Runner {
	r.takerFee = fee
	return r
}

// WithWeights replaces the severity weight table.
func (r *Runner) WithWeights(w ranking.WeightTable) *Runner {
	if w != nil {
		r.weights = w
	}
	return r
}

// WithLogger sets the pipeline logger.
func (r *Runner) WithLogger(log zerolog.Logger) *Runner {
	r.log = log
	return r
}

// WithClock sets a custom clock function for deterministic output.
func (r *Runner) WithClock(clock func() time.Time) *Runner {
	r.clock = clock
	return r
}

// Run executes all analysis phases and both aggregations.
func (r *Runner) Run(ctx context.Context, result *domain.BacktestResult, strategyText string) (*domain.DiagnosticReport, error) {
	if result == nil {
		return nil, ErrNoResult
	}

	in := analyzers.Input{
		Result:        result,
		StrategyText:  strategyText,
		Candles:       r.store,
		BenchmarkPair: r.benchmarkPair,
		TakerFee:      r.takerFee,
	}

	rep := &domain.DiagnosticReport{
		Metadata: r.metadata(result),
	}
	r.log.Info().
		Str("report_id", rep.Metadata.ReportID).
		Str("strategy", result.StrategyName).
		Int("trades", len(result.Trades)).
		Msg("diagnostic run started")

	var wg sync.WaitGroup
	run := func(name string, fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					r.log.Error().
						Str("phase", name).
						Interface("panic", rec).
						Msg("analyzer panicked; phase report dropped")
				}
			}()
			started := r.clock()
			fn()
			r.log.Debug().
				Str("phase", name).
				Dur("elapsed", r.clock().Sub(started)).
				Msg("phase complete")
		}()
	}

	run("structural", func() { rep.Structural = analyzers.AnalyzeStructural(ctx, in) })
	run("performance", func() { rep.Performance = analyzers.AnalyzePerformance(ctx, in) })
	run("drawdown", func() { rep.Drawdown = analyzers.AnalyzeDrawdown(ctx, in) })
	run("entry", func() { rep.Entry = analyzers.AnalyzeEntry(ctx, in) })
	run("exit", func() { rep.Exit = analyzers.AnalyzeExit(ctx, in) })
	run("regime_asset", func() { rep.RegimeAsset = analyzers.AnalyzeRegimeAsset(ctx, in) })
	run("cost", func() { rep.Cost = analyzers.AnalyzeCost(ctx, in) })
	run("logic", func() { rep.Logic = analyzers.AnalyzeLogic(ctx, in) })
	run("stats", func() { rep.Stats = analyzers.AnalyzeStatistics(ctx, in) })
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("pipeline interrupted: %w", err)
	}

	rep.Summary = summary.Build(rep)
	rep.Diagnosis = ranking.Diagnose(rep, r.weights)

	r.log.Info().
		Str("report_id", rep.Metadata.ReportID).
		Str("primary", rep.Diagnosis.PrimaryFailureReason).
		Msg("diagnostic run complete")
	return rep, nil
}

// metadata derives a stable report ID from the run identity, so the
// same input diagnosed twice gets the same ID.
func (r *Runner) metadata(result *domain.BacktestResult) domain.ReportMetadata {
	start, end, _ := result.TimeSpan()
	h := sha256.Sum256(fmt.Appendf(nil, "%s|%d|%d|%d",
		result.StrategyName, start.UnixMilli(), end.UnixMilli(), len(result.Trades)))

	md := domain.ReportMetadata{
		ReportID:     "diag_" + hex.EncodeToString(h[:])[:12],
		GeneratedAt:  r.clock(),
		StrategyName: result.StrategyName,
		Timeframe:    result.Config.Timeframe,
	}
	if !start.IsZero() {
		md.Timerange = fmt.Sprintf("%s..%s",
			start.UTC().Format("2006-01-02"), end.UTC().Format("2006-01-02"))
	}
	return md
}
