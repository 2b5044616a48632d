package analyzers

import (
	"context"
	"fmt"

	"backtest-doctor/internal/domain"
	"backtest-doctor/internal/strategytext"
)

// Complexity score weights (capped at 100).
const (
	indicatorWeight = 6
	magicWeight     = 5
	conditionWeight = 2
	redundantWeight = 8
)

// AnalyzeLogic scores the strategy source for complexity and
// overfitting signals. A missing source degrades to WARN.
func AnalyzeLogic(_ context.Context, in Input) *domain.LogicReport {
	rep := &domain.LogicReport{OverfitRisk: domain.OverfitRiskLow}
	src := in.StrategyText
	if src == "" {
		rep.Verdict = domain.VerdictWarn
		rep.RedFlags = append(rep.RedFlags, "no strategy source: logic analysis skipped")
		return rep
	}

	rep.Indicators = strategytext.Indicators(src)
	rep.LookaheadDetected = len(strategytext.FindLookahead(src)) > 0
	rep.MagicParams = strategytext.MagicParams(src)
	rep.RedundantIndicators = strategytext.RedundantMovingAverages(src)
	rep.StructureIssues = strategytext.EntryExitMixing(src)
	rep.ConditionCount = strategytext.ConditionCount(src)

	score := len(rep.Indicators)*indicatorWeight +
		len(rep.MagicParams)*magicWeight +
		rep.ConditionCount*conditionWeight +
		len(rep.RedundantIndicators)*redundantWeight
	if score > 100 {
		score = 100
	}
	rep.ComplexityScore = score
	rep.OverfitRisk = overfitRisk(score, len(rep.Indicators), len(rep.MagicParams))

	if rep.LookaheadDetected {
		rep.RedFlags = append(rep.RedFlags, "strategy reads future candles: results are fiction")
	}
	if rep.OverfitRisk == domain.OverfitRiskHigh {
		rep.RedFlags = append(rep.RedFlags,
			fmt.Sprintf("complexity score %d with %d indicators and %d tuned parameters: curve-fit to history",
				rep.ComplexityScore, len(rep.Indicators), len(rep.MagicParams)))
	}
	for _, p := range rep.RedundantIndicators {
		rep.RedFlags = append(rep.RedFlags, "redundant indicator pair: "+p)
	}
	rep.RedFlags = append(rep.RedFlags, rep.StructureIssues...)

	rep.Verdict = logicVerdict(rep)
	return rep
}

func overfitRisk(score, indicators, magic int) string {
	switch {
	case score >= 70 || indicators >= 10 || magic >= 8:
		return domain.OverfitRiskHigh
	case score >= 45 || indicators >= 6 || magic >= 4:
		return domain.OverfitRiskMedium
	default:
		return domain.OverfitRiskLow
	}
}

func logicVerdict(rep *domain.LogicReport) domain.Verdict {
	if rep.LookaheadDetected {
		return domain.VerdictFail
	}
	if rep.OverfitRisk == domain.OverfitRiskHigh || len(rep.StructureIssues) > 0 {
		return domain.VerdictWarn
	}
	if len(rep.RedFlags) > 0 {
		return domain.VerdictWarn
	}
	return domain.VerdictPass
}
