package analyzers

import (
	"context"
	"fmt"
	"sort"
	"time"

	"backtest-doctor/internal/candles"
	"backtest-doctor/internal/domain"
	"backtest-doctor/internal/strategytext"
)

// gapFallbackMin is the gap-flag threshold when no positive
// inter-trade gaps exist (one day).
const gapFallbackMin = 1440.0

// AnalyzeStructural runs the data-integrity phase: trade timestamp
// continuity, optional OHLCV continuity against the candle store, and
// source-text feasibility checks.
func AnalyzeStructural(ctx context.Context, in Input) *domain.StructuralReport {
	rep := &domain.StructuralReport{
		TimestampSequenceValid: true,
	}
	trades := in.trades()

	if len(trades) == 0 {
		rep.RedFlags = append(rep.RedFlags, "no trades in backtest result")
	}

	// Per-trade timestamp sanity: close must not precede open.
	for i := range trades {
		t := &trades[i]
		if !t.CloseDate.IsZero() && t.CloseDate.Before(t.OpenDate) {
			rep.TimestampSequenceValid = false
			rep.RedFlags = append(rep.RedFlags,
				fmt.Sprintf("trade on %s closes before it opens", t.Pair))
		}
	}

	checkTradeSpacing(trades, rep)
	checkOHLCVContinuity(ctx, in, rep)
	checkStrategySource(in.StrategyText, rep)

	rep.Verdict = structuralVerdict(rep)
	return rep
}

// checkTradeSpacing flags irregular gaps between consecutive trade
// opens. The threshold adapts to the strategy's own cadence:
// max(60min, 10x the median positive gap).
func checkTradeSpacing(trades []domain.Trade, rep *domain.StructuralReport) {
	opens := make([]time.Time, 0, len(trades))
	for i := range trades {
		if !trades[i].OpenDate.IsZero() {
			opens = append(opens, trades[i].OpenDate)
		}
	}
	if len(opens) < 2 {
		rep.GapThresholdMin = gapFallbackMin
		return
	}

	ordered := true
	for i := 1; i < len(opens); i++ {
		if opens[i].Before(opens[i-1]) {
			ordered = false
			break
		}
	}
	if !ordered {
		// Insertion order is chronological by default but not
		// guaranteed; sort before measuring gaps.
		rep.RedFlags = append(rep.RedFlags, "trades are not in chronological order")
		sort.Slice(opens, func(i, j int) bool { return opens[i].Before(opens[j]) })
	}

	var positive []float64
	gaps := make([]float64, 0, len(opens)-1)
	for i := 1; i < len(opens); i++ {
		gap := opens[i].Sub(opens[i-1]).Minutes()
		gaps = append(gaps, gap)
		if gap > 0 {
			positive = append(positive, gap)
		}
	}

	threshold := gapFallbackMin
	if len(positive) > 0 {
		threshold = 10 * median(positive)
		if threshold < 60 {
			threshold = 60
		}
	}
	rep.GapThresholdMin = threshold

	for _, gap := range gaps {
		if gap > threshold {
			rep.IrregularGapCount++
		}
	}
	if rep.IrregularGapCount > 0 {
		rep.RedFlags = append(rep.RedFlags,
			fmt.Sprintf("%d inter-trade gaps exceed %.0f minutes: inconsistent trade spacing", rep.IrregularGapCount, threshold))
	}
}

// checkOHLCVContinuity verifies candle files exist for each
// configured pair and that consecutive candles are exactly one
// timeframe step apart. Skipped (unverified) without a store.
func checkOHLCVContinuity(ctx context.Context, in Input, rep *domain.StructuralReport) {
	if in.Candles == nil || in.Result == nil {
		return
	}
	cfg := in.Result.Config
	if cfg.Timeframe == "" || cfg.Exchange == "" {
		return
	}
	step, err := candles.ParseTimeframe(cfg.Timeframe)
	if err != nil {
		rep.RedFlags = append(rep.RedFlags, "unparsable timeframe "+cfg.Timeframe+": candle continuity unverified")
		return
	}

	pairs := cfg.PairWhitelist
	if len(pairs) == 0 {
		pairs = tradePairs(in.trades())
	}
	if len(pairs) == 0 {
		return
	}
	rep.OHLCVChecked = true
	stepMs := step.Milliseconds()

	for _, pair := range pairs {
		exists, err := in.Candles.Exists(ctx, cfg.Exchange, pair, cfg.Timeframe)
		if err != nil || !exists {
			rep.MissingCandleFiles++
			continue
		}
		series, err := in.Candles.GetAll(ctx, cfg.Exchange, pair, cfg.Timeframe)
		if err != nil {
			rep.MissingCandleFiles++
			continue
		}
		for i := 1; i < len(series); i++ {
			if series[i].TimestampMs-series[i-1].TimestampMs != stepMs {
				rep.CandleGapCount++
			}
		}
	}

	if rep.MissingCandleFiles > 0 {
		rep.RedFlags = append(rep.RedFlags,
			fmt.Sprintf("%d candle series missing: continuity unverified for those pairs", rep.MissingCandleFiles))
	}
	if rep.CandleGapCount > 0 {
		rep.RedFlags = append(rep.RedFlags,
			fmt.Sprintf("%d gaps in OHLCV data: simulation ran over incomplete candles", rep.CandleGapCount))
	}
}

// checkStrategySource runs the look-ahead and feasibility heuristics.
func checkStrategySource(src string, rep *domain.StructuralReport) {
	if src == "" {
		rep.RedFlags = append(rep.RedFlags, "no strategy source provided: source checks skipped")
		return
	}

	rep.LookaheadMatches = strategytext.FindLookahead(src)
	rep.LookaheadDetected = len(rep.LookaheadMatches) > 0
	if rep.LookaheadDetected {
		rep.RedFlags = append(rep.RedFlags,
			"look-ahead pattern in strategy source: backtest results are not trustworthy")
	}

	if !strategytext.HasEntryFunction(src) {
		rep.LogicIssues = append(rep.LogicIssues, "no entry rule defined")
	}
	hasExit := strategytext.HasExitFunction(src) ||
		strategytext.HasProfitTargetTable(src) ||
		strategytext.HasCustomExit(src)
	stoploss, hasStop := strategytext.StoplossValue(src)
	if !hasExit && !hasStop {
		rep.LogicIssues = append(rep.LogicIssues, "no exit mechanism: no exit rule, profit target table or stop-loss")
	}
	if hasStop && stoploss > 0 {
		rep.LogicIssues = append(rep.LogicIssues,
			fmt.Sprintf("stoploss %.4f has the wrong sign (must be negative)", stoploss))
	}
	for _, c := range strategytext.FindContradictions(src) {
		rep.LogicIssues = append(rep.LogicIssues,
			fmt.Sprintf("impossible condition on %q: < %g and > %g can never both hold", c.Column, c.Below, c.Above))
	}

	rep.RedFlags = append(rep.RedFlags, rep.LogicIssues...)
}

// structuralVerdict combines sub-checks: any hard failure wins,
// unverifiable data or irregular spacing downgrades to WARN.
func structuralVerdict(rep *domain.StructuralReport) domain.Verdict {
	if !rep.TimestampSequenceValid || rep.LookaheadDetected ||
		len(rep.LogicIssues) > 0 || rep.CandleGapCount > 0 {
		return domain.VerdictFail
	}
	if rep.IrregularGapCount > 0 || rep.MissingCandleFiles > 0 || len(rep.RedFlags) > 0 {
		return domain.VerdictWarn
	}
	return domain.VerdictPass
}

// tradePairs returns distinct pairs in first-seen order.
func tradePairs(trades []domain.Trade) []string {
	seen := make(map[string]struct{})
	var pairs []string
	for i := range trades {
		p := trades[i].Pair
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		pairs = append(pairs, p)
	}
	return pairs
}
