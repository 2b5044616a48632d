// Package reporting renders diagnostic reports for humans (markdown)
// and machines (JSON files on disk).
package reporting

import (
	"fmt"
	"strings"
	"time"

	"backtest-doctor/internal/domain"
)

// RenderMarkdown renders the diagnostic report as a Markdown string.
// Missing phase reports render as a skipped-section note instead of
// being silently dropped.
func RenderMarkdown(r *domain.DiagnosticReport) string {
	var sb strings.Builder

	sb.WriteString("# Backtest Diagnostic Report\n\n")
	sb.WriteString(fmt.Sprintf("Report: %s\n\n", r.Metadata.ReportID))
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.Metadata.GeneratedAt.Format(time.RFC3339)))
	if r.Metadata.StrategyName != "" {
		sb.WriteString(fmt.Sprintf("Strategy: %s", r.Metadata.StrategyName))
		if r.Metadata.Timeframe != "" {
			sb.WriteString(fmt.Sprintf(" (%s)", r.Metadata.Timeframe))
		}
		if r.Metadata.Timerange != "" {
			sb.WriteString(fmt.Sprintf(", %s", r.Metadata.Timerange))
		}
		sb.WriteString("\n\n")
	}

	writeSummary(&sb, r.Summary)
	writeDiagnosis(&sb, r.Diagnosis)

	sb.WriteString("## Phase Results\n\n")
	sb.WriteString("| Phase | Verdict |\n")
	sb.WriteString("|-------|---------|\n")
	writeVerdictRow(&sb, "Structural integrity", verdictOf(r.Structural != nil, func() domain.Verdict { return r.Structural.Verdict }))
	writeVerdictRow(&sb, "Performance", verdictOf(r.Performance != nil, func() domain.Verdict { return r.Performance.Verdict }))
	writeVerdictRow(&sb, "Drawdown & risk", verdictOf(r.Drawdown != nil, func() domain.Verdict { return r.Drawdown.Verdict }))
	writeVerdictRow(&sb, "Entry quality", verdictOf(r.Entry != nil, func() domain.Verdict { return r.Entry.Verdict }))
	writeVerdictRow(&sb, "Exit logic", verdictOf(r.Exit != nil, func() domain.Verdict { return r.Exit.Verdict }))
	writeVerdictRow(&sb, "Regime & asset", verdictOf(r.RegimeAsset != nil, func() domain.Verdict { return r.RegimeAsset.Verdict }))
	writeVerdictRow(&sb, "Cost robustness", verdictOf(r.Cost != nil, func() domain.Verdict { return r.Cost.Verdict }))
	writeVerdictRow(&sb, "Strategy logic", verdictOf(r.Logic != nil, func() domain.Verdict { return r.Logic.Verdict }))
	writeVerdictRow(&sb, "Statistical robustness", verdictOf(r.Stats != nil, func() domain.Verdict { return r.Stats.Verdict }))
	sb.WriteString("\n")

	writePerformance(&sb, r.Performance)
	writeStructural(&sb, r.Structural)
	writeDrawdown(&sb, r.Drawdown)
	writeEntry(&sb, r.Entry)
	writeExit(&sb, r.Exit)
	writeRegimeAsset(&sb, r.RegimeAsset)
	writeCost(&sb, r.Cost)
	writeLogic(&sb, r.Logic)
	writeStats(&sb, r.Stats)

	return sb.String()
}

func verdictOf(ok bool, get func() domain.Verdict) string {
	if !ok {
		return "SKIPPED"
	}
	return string(get())
}

func writeVerdictRow(sb *strings.Builder, name, verdict string) {
	sb.WriteString(fmt.Sprintf("| %s | %s |\n", name, verdict))
}

func writeSummary(sb *strings.Builder, s *domain.Summary) {
	if s == nil {
		return
	}
	sb.WriteString("## Summary\n\n")
	sb.WriteString(fmt.Sprintf("**Primary diagnosis:** %s\n\n", s.PrimaryDiagnosis))
	if s.SecondaryIssue != "" {
		sb.WriteString(fmt.Sprintf("**Secondary issue:** %s\n\n", s.SecondaryIssue))
	}
	if s.RegimeFlag != "" {
		sb.WriteString(fmt.Sprintf("**Regime:** %s\n\n", s.RegimeFlag))
	}
	sb.WriteString(fmt.Sprintf("**Concentration:** %s\n\n", s.ConcentrationFlag))
	if len(s.SuggestedFixes) > 0 {
		sb.WriteString("### Suggested Fixes\n\n")
		for i, fix := range s.SuggestedFixes {
			sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, fix))
		}
		sb.WriteString("\n")
	}
}

func writeDiagnosis(sb *strings.Builder, d *domain.FailureDiagnosis) {
	if d == nil {
		return
	}
	sb.WriteString("## Ranked Failure Signals\n\n")
	sb.WriteString(fmt.Sprintf("**Primary failure reason:** %s\n\n", d.PrimaryFailureReason))
	if d.KillerMetric != "" {
		sb.WriteString(fmt.Sprintf("**Killer metric:** `%s`\n\n", d.KillerMetric))
	}
	if len(d.Signals) > 0 {
		sb.WriteString("| Signal | Severity | Metric |\n")
		sb.WriteString("|--------|----------|--------|\n")
		for _, s := range d.Signals {
			sb.WriteString(fmt.Sprintf("| %s | %d | `%s` |\n", s.ID, s.Severity, s.KillerMetric))
		}
		sb.WriteString("\n")
	}
	if len(d.RecommendedChangeTypes) > 0 {
		sb.WriteString(fmt.Sprintf("Recommended change types: %s\n\n", strings.Join(d.RecommendedChangeTypes, ", ")))
	}
}

func writePerformance(sb *strings.Builder, p *domain.PerformanceReport) {
	if p == nil {
		return
	}
	sb.WriteString("## Performance\n\n")
	sb.WriteString(fmt.Sprintf("%s\n\n", p.Diagnosis))
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total trades | %d |\n", p.TotalTrades))
	sb.WriteString(fmt.Sprintf("| Win rate | %.1f%% |\n", p.WinRate*100))
	sb.WriteString(fmt.Sprintf("| Avg win / avg loss | %.4f / %.4f |\n", p.AvgWinRatio, p.AvgLossRatio))
	sb.WriteString(fmt.Sprintf("| Expectancy | %.4f |\n", p.Expectancy))
	sb.WriteString(fmt.Sprintf("| Trades per day | %.2f |\n", p.TradesPerDay))
	sb.WriteString(fmt.Sprintf("| Long / short | %d / %d |\n", p.LongTrades, p.ShortTrades))
	sb.WriteString(fmt.Sprintf("| Avg hold (win / lose) | %.0f min / %.0f min |\n", p.AvgWinnerHoldMin, p.AvgLoserHoldMin))
	sb.WriteString("\n")
	writeFlags(sb, p.RedFlags)
}

func writeStructural(sb *strings.Builder, s *domain.StructuralReport) {
	if s == nil {
		return
	}
	sb.WriteString("## Structural Integrity\n\n")
	sb.WriteString(fmt.Sprintf("Timestamp sequence valid: %t\n\n", s.TimestampSequenceValid))
	if s.IrregularGapCount > 0 {
		sb.WriteString(fmt.Sprintf("Irregular trade gaps: %d (threshold %.0f min)\n\n", s.IrregularGapCount, s.GapThresholdMin))
	}
	if s.OHLCVChecked {
		sb.WriteString(fmt.Sprintf("Candle data: %d missing series, %d gaps\n\n", s.MissingCandleFiles, s.CandleGapCount))
	}
	if s.LookaheadDetected {
		sb.WriteString(fmt.Sprintf("Look-ahead patterns: `%s`\n\n", strings.Join(s.LookaheadMatches, "`, `")))
	}
	writeFlags(sb, s.RedFlags)
}

func writeDrawdown(sb *strings.Builder, d *domain.DrawdownReport) {
	if d == nil {
		return
	}
	sb.WriteString("## Drawdown & Risk\n\n")
	sb.WriteString(fmt.Sprintf("Episodes: %d, max drawdown %.2f\n\n", d.EpisodeCount, d.MaxDrawdownAbs))
	if d.RecoveryHours != nil {
		sb.WriteString(fmt.Sprintf("Largest episode recovered after %.1f hours.\n\n", *d.RecoveryHours))
	} else if d.EpisodeCount > 0 {
		sb.WriteString("Largest episode never recovered.\n\n")
	}
	for _, p := range d.FailurePatterns {
		sb.WriteString(fmt.Sprintf("- %s\n", p))
	}
	if len(d.FailurePatterns) > 0 {
		sb.WriteString("\n")
	}
	writeFlags(sb, d.RedFlags)
}

func writeEntry(sb *strings.Builder, e *domain.EntryReport) {
	if e == nil {
		return
	}
	sb.WriteString("## Entry Quality\n\n")
	if len(e.TagStats) > 0 {
		sb.WriteString("| Tag | Trades | Win rate | Total PnL |\n")
		sb.WriteString("|-----|--------|----------|-----------|\n")
		for _, s := range e.TagStats {
			sb.WriteString(fmt.Sprintf("| %s | %d | %.1f%% | %.2f |\n", s.Tag, s.Trades, s.WinRate*100, s.TotalPnL))
		}
		sb.WriteString("\n")
	}
	sb.WriteString(fmt.Sprintf("Quick-exit threshold: %.0f min, quick-loser ratio %.0f%%\n\n",
		e.QuickExitThresholdMin, e.QuickLoserRatio*100))
	writeFlags(sb, e.RedFlags)
}

func writeExit(sb *strings.Builder, e *domain.ExitReport) {
	if e == nil {
		return
	}
	sb.WriteString("## Exit Logic\n\n")
	if len(e.Categories) > 0 {
		sb.WriteString("| Category | Count | Total PnL | Avg PnL |\n")
		sb.WriteString("|----------|-------|-----------|---------|\n")
		for _, c := range e.Categories {
			sb.WriteString(fmt.Sprintf("| %s | %d | %.2f | %.2f |\n", c.Category, c.Count, c.TotalPnL, c.AvgPnL))
		}
		sb.WriteString("\n")
	}
	if e.HoldRatio != nil {
		sb.WriteString(fmt.Sprintf("Loser/winner hold ratio: %.2f\n\n", *e.HoldRatio))
	}
	for _, c := range e.Conclusions {
		sb.WriteString(fmt.Sprintf("- %s\n", c))
	}
	if len(e.Conclusions) > 0 {
		sb.WriteString("\n")
	}
	writeFlags(sb, e.RedFlags)
}

func writeRegimeAsset(sb *strings.Builder, r *domain.RegimeAssetReport) {
	if r == nil {
		return
	}
	sb.WriteString("## Regime & Asset Segmentation\n\n")
	sb.WriteString(fmt.Sprintf("Regime source: %s\n\n", r.RegimeSource))
	if len(r.RegimeStats) > 0 {
		sb.WriteString("| Regime | Trades | Win rate | Total PnL |\n")
		sb.WriteString("|--------|--------|----------|-----------|\n")
		for _, s := range r.RegimeStats {
			sb.WriteString(fmt.Sprintf("| %s | %d | %.1f%% | %.2f |\n", s.Label, s.Trades, s.WinRate*100, s.TotalPnL))
		}
		sb.WriteString("\n")
	}
	if len(r.PairStats) > 0 {
		sb.WriteString("| Pair | Trades | Total PnL | PnL share |\n")
		sb.WriteString("|------|--------|-----------|-----------|\n")
		for _, s := range r.PairStats {
			sb.WriteString(fmt.Sprintf("| %s | %d | %.2f | %.0f%% |\n", s.Pair, s.Trades, s.TotalPnL, s.PnLShare*100))
		}
		sb.WriteString("\n")
	}
	writeFlags(sb, r.RedFlags)
}

func writeCost(sb *strings.Builder, c *domain.CostReport) {
	if c == nil {
		return
	}
	sb.WriteString("## Cost Robustness\n\n")
	sb.WriteString(fmt.Sprintf("%s\n\n", c.Conclusion))
	sb.WriteString("| Scenario | Profit |\n")
	sb.WriteString("|----------|--------|\n")
	sb.WriteString(fmt.Sprintf("| Baseline | %.2f |\n", c.BaselineProfitAbs))
	sb.WriteString(fmt.Sprintf("| Fees +25%% | %.2f |\n", c.ProfitFeeStress))
	sb.WriteString(fmt.Sprintf("| Slippage +50%% | %.2f |\n", c.ProfitSlipStress))
	sb.WriteString(fmt.Sprintf("| Combined | %.2f |\n", c.ProfitCombined))
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("Liquidity risk: %s\n\n", c.LiquidityRisk))
	writeFlags(sb, c.RedFlags)
}

func writeLogic(sb *strings.Builder, l *domain.LogicReport) {
	if l == nil {
		return
	}
	sb.WriteString("## Strategy Logic\n\n")
	sb.WriteString(fmt.Sprintf("Complexity score %d/100, overfit risk %s\n\n", l.ComplexityScore, l.OverfitRisk))
	if len(l.Indicators) > 0 {
		sb.WriteString(fmt.Sprintf("Indicators (%d): %s\n\n", len(l.Indicators), strings.Join(l.Indicators, ", ")))
	}
	if len(l.MagicParams) > 0 {
		sb.WriteString(fmt.Sprintf("Tuned parameters: %s\n\n", strings.Join(l.MagicParams, ", ")))
	}
	writeFlags(sb, l.RedFlags)
}

func writeStats(sb *strings.Builder, s *domain.StatsReport) {
	if s == nil {
		return
	}
	sb.WriteString("## Statistical Robustness\n\n")
	sb.WriteString(fmt.Sprintf("n=%d, mean return %.4f, stddev %.4f\n\n", s.SampleSize, s.MeanReturn, s.StdDev))
	sb.WriteString(fmt.Sprintf("95%% CI: [%.4f, %.4f]\n\n", s.CI95Low, s.CI95High))
	writeFlags(sb, s.RedFlags)
}

func writeFlags(sb *strings.Builder, flags []string) {
	if len(flags) == 0 {
		return
	}
	sb.WriteString("Red flags:\n\n")
	for _, f := range flags {
		sb.WriteString(fmt.Sprintf("- %s\n", f))
	}
	sb.WriteString("\n")
}
