// Package summary condenses the phase reports into a short narrative
// verdict: one primary diagnosis, one secondary issue and a deduped
// fix list.
package summary

import (
	"fmt"
	"strings"

	"backtest-doctor/internal/domain"
)

// maxFixes caps the suggested-fix list.
const maxFixes = 10

// Build assembles the narrative summary. Every sub-report is
// optional; missing phases simply contribute nothing.
func Build(rep *domain.DiagnosticReport) *domain.Summary {
	s := &domain.Summary{
		ConcentrationFlag: "no concentration issue detected",
	}

	s.PrimaryDiagnosis = primaryDiagnosis(rep)
	s.SecondaryIssue = secondaryIssue(rep, s.PrimaryDiagnosis)

	if ra := rep.RegimeAsset; ra != nil {
		if len(ra.RegimeRedFlags) > 0 {
			s.RegimeFlag = ra.RegimeRedFlags[0]
		}
		if len(ra.ConcentrationRedFlags) > 0 {
			s.ConcentrationFlag = ra.ConcentrationRedFlags[0]
		}
	}

	s.SuggestedFixes = suggestedFixes(rep)
	return s
}

// primaryDiagnosis picks the single most damning finding. Statistical
// insignificance outranks everything: if the profit could be luck, no
// other diagnosis matters. Broken data comes next, then the economic
// failures.
func primaryDiagnosis(rep *domain.DiagnosticReport) string {
	if st := rep.Stats; st != nil && st.Verdict == domain.VerdictFail {
		if len(st.RedFlags) > 0 {
			return st.RedFlags[0]
		}
		return "returns are not statistically significant"
	}
	if sr := rep.Structural; sr != nil && sr.Verdict == domain.VerdictFail {
		if len(sr.RedFlags) > 0 {
			return "structural failure: " + sr.RedFlags[len(sr.RedFlags)-1]
		}
		return "structural failure in the backtest data"
	}
	if p := rep.Performance; p != nil && p.Expectancy < 0 {
		return p.Diagnosis
	}
	if c := rep.Cost; c != nil && c.Verdict == domain.VerdictFail {
		return c.Conclusion
	}
	return "no dominant failure driver identified"
}

// secondaryIssue surfaces the most useful finding not already used as
// the primary: exit conclusions first, then risk patterns, then
// source-text and entry findings.
func secondaryIssue(rep *domain.DiagnosticReport, primary string) string {
	var candidates []string
	if e := rep.Exit; e != nil {
		candidates = append(candidates, e.Conclusions...)
	}
	if d := rep.Drawdown; d != nil {
		candidates = append(candidates, d.FailurePatterns...)
	}
	if l := rep.Logic; l != nil && l.LookaheadDetected {
		candidates = append(candidates, "strategy source contains a look-ahead pattern")
	}
	if e := rep.Entry; e != nil {
		candidates = append(candidates, e.RedFlags...)
	}

	for _, c := range candidates {
		if c != primary {
			return c
		}
	}
	return ""
}

// suggestedFixes maps findings to concrete changes, deduped
// case-insensitively in first-seen order.
func suggestedFixes(rep *domain.DiagnosticReport) []string {
	var fixes []string

	if sr := rep.Structural; sr != nil {
		if sr.LookaheadDetected {
			fixes = append(fixes, "remove the negative shift() and re-run the backtest")
		}
		if !sr.TimestampSequenceValid {
			fixes = append(fixes, "fix the trade export: close dates precede open dates")
		}
		if sr.MissingCandleFiles > 0 || sr.CandleGapCount > 0 {
			fixes = append(fixes, "re-download candle data and close the gaps before trusting results")
		}
		for _, issue := range sr.LogicIssues {
			fixes = append(fixes, "resolve: "+issue)
		}
	}
	if p := rep.Performance; p != nil && p.Expectancy < 0 {
		if p.AvgLossRatio > p.AvgWinRatio {
			fixes = append(fixes, "tighten the stop or widen the profit target so average wins exceed average losses")
		}
		if p.WinRate < 0.4 && p.TotalTrades > 0 {
			fixes = append(fixes, "add a trend or volume filter to cut low-quality entries")
		}
		if p.TotalTrades == 0 {
			fixes = append(fixes, "relax the entry conditions; they currently never fire")
		}
	}
	if d := rep.Drawdown; d != nil {
		if d.StoplossViolations > 0 {
			fixes = append(fixes, "investigate why fills occur past the configured stop")
		}
		for _, pat := range d.FailurePatterns {
			if strings.HasPrefix(pat, "steep crash") {
				fixes = append(fixes, "reduce position size or add a portfolio-level stop")
				break
			}
		}
	}
	if e := rep.Exit; e != nil {
		for _, c := range e.Conclusions {
			switch {
			case strings.HasPrefix(c, "stop placement problem"):
				fixes = append(fixes, "move the stop outside normal noise or enter closer to support")
			case strings.Contains(c, "timeout"):
				fixes = append(fixes, "exit stale positions earlier instead of waiting for the timeout")
			case strings.Contains(c, "trailing"):
				fixes = append(fixes, "tighten the trailing offset so open profit is not given back")
			case strings.Contains(c, "left to run"):
				fixes = append(fixes, "cut losers at the same speed winners are taken")
			}
		}
	}
	if en := rep.Entry; en != nil && en.QuickLoserRatio >= 0.5 && en.Verdict == domain.VerdictFail {
		fixes = append(fixes, "delay entries by one candle or require confirmation; fills go red immediately")
	}
	if ra := rep.RegimeAsset; ra != nil {
		if ra.RegimeDependence {
			fixes = append(fixes, "gate entries on the detected regime or accept the regime dependence explicitly")
		}
		if len(ra.ConcentrationRedFlags) > 0 {
			fixes = append(fixes, "re-run without the dominant pair to check the edge generalizes")
		}
	}
	if c := rep.Cost; c != nil && (c.Verdict == domain.VerdictFail || c.LiquidityRisk == domain.LiquidityRiskHigh) {
		fixes = append(fixes, "trade fewer, larger-edge setups; the current edge does not clear costs")
	}
	if l := rep.Logic; l != nil && l.OverfitRisk == domain.OverfitRiskHigh {
		fixes = append(fixes,
			fmt.Sprintf("simplify: %d indicators and %d tuned parameters invite curve-fitting", len(l.Indicators), len(l.MagicParams)))
	}

	return dedupeFold(fixes, maxFixes)
}

// dedupeFold removes case-insensitive duplicates, keeping first
// occurrences, capped at limit.
func dedupeFold(xs []string, limit int) []string {
	seen := make(map[string]struct{}, len(xs))
	var out []string
	for _, x := range xs {
		key := strings.ToLower(x)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, x)
		if len(out) == limit {
			break
		}
	}
	return out
}
