package ranking

import (
	"fmt"
	"strings"

	"backtest-doctor/internal/domain"
)

// Change types recommended alongside signals.
const (
	ChangeDataQuality    = "data_quality"
	ChangeEntryLogic     = "entry_logic"
	ChangeExitLogic      = "exit_logic"
	ChangeRiskManagement = "risk_management"
	ChangeCostModel      = "cost_model"
	ChangeUniverse       = "universe"
	ChangeSimplify       = "simplification"
	ChangeRevalidate     = "revalidation"
)

// ExtractSignals walks the phase reports and emits one weighted
// signal per recognized failure. Nil sub-reports contribute nothing.
func ExtractSignals(rep *domain.DiagnosticReport, weights WeightTable) []domain.FailureSignal {
	var signals []domain.FailureSignal
	add := func(id, metric, desc string, changes ...string) {
		signals = append(signals, domain.FailureSignal{
			ID:           id,
			Severity:     weights.Severity(id),
			KillerMetric: metric,
			Description:  desc,
			ChangeTypes:  changes,
		})
	}

	if sr := rep.Structural; sr != nil {
		if sr.LookaheadDetected {
			add(SigLookahead,
				fmt.Sprintf("lookahead_matches=%d", len(sr.LookaheadMatches)),
				"strategy source reads future candles; every other number is untrustworthy",
				ChangeDataQuality, ChangeRevalidate)
		}
		if sr.Verdict == domain.VerdictFail && !sr.LookaheadDetected {
			add(SigStructural,
				fmt.Sprintf("candle_gaps=%d logic_issues=%d", sr.CandleGapCount, len(sr.LogicIssues)),
				"backtest data or strategy structure is broken",
				ChangeDataQuality)
		}
	}

	if p := rep.Performance; p != nil {
		switch {
		case p.TotalTrades == 0:
			add(SigNoTrades, "total_trades=0",
				"entry conditions never fired over the whole period",
				ChangeEntryLogic)
		case p.Expectancy < 0:
			add(SigNegativeExpectancy,
				fmt.Sprintf("expectancy=%.4f", p.Expectancy),
				p.Diagnosis,
				ChangeEntryLogic, ChangeExitLogic)
		}
		if p.TotalTrades > 0 && p.TotalTrades < 30 {
			add(SigLowTradeCount,
				fmt.Sprintf("total_trades=%d", p.TotalTrades),
				"sample is too small to trust any aggregate",
				ChangeRevalidate)
		}
		if p.Expectancy < 0 && p.AvgLossRatio > p.AvgWinRatio && p.WinRate >= 0.5 {
			add(SigPayoffImbalance,
				fmt.Sprintf("avg_win=%.4f avg_loss=%.4f", p.AvgWinRatio, p.AvgLossRatio),
				"average loss exceeds average win despite a decent hit rate",
				ChangeExitLogic, ChangeRiskManagement)
		}
	}

	if st := rep.Stats; st != nil && st.Verdict == domain.VerdictFail && st.SampleSize >= 30 {
		add(SigNotSignificant,
			fmt.Sprintf("ci95=[%.4f, %.4f]", st.CI95Low, st.CI95High),
			"mean return is not statistically distinguishable from zero",
			ChangeRevalidate)
	}

	if d := rep.Drawdown; d != nil {
		for _, pat := range d.FailurePatterns {
			if strings.HasPrefix(pat, "steep crash") {
				add(SigSteepDrawdown,
					fmt.Sprintf("max_drawdown_abs=%.2f", d.MaxDrawdownAbs),
					pat,
					ChangeRiskManagement)
				break
			}
		}
		if d.EpisodeCount >= 5 {
			add(SigDrawdownChurn,
				fmt.Sprintf("episodes=%d", d.EpisodeCount),
				"equity repeatedly cycles through drawdowns",
				ChangeRiskManagement)
		}
	}

	if c := rep.Cost; c != nil {
		if c.Verdict == domain.VerdictFail {
			add(SigCostFragility,
				fmt.Sprintf("retained_share=%.2f", c.RetainedShare),
				c.Conclusion,
				ChangeCostModel, ChangeEntryLogic)
		}
		if c.LiquidityRisk == domain.LiquidityRiskHigh && c.OrderToVolumeRatio != nil {
			add(SigLiquidityRisk,
				fmt.Sprintf("order_to_volume=%.3f", *c.OrderToVolumeRatio),
				"order size is unrealistically large against candle volume",
				ChangeUniverse, ChangeRiskManagement)
		}
	}

	if e := rep.Exit; e != nil {
		for _, conc := range e.Conclusions {
			if strings.HasPrefix(conc, "stop placement problem") {
				add(SigStopPlacement, "exit_category=stop_loss", conc, ChangeExitLogic)
				break
			}
		}
	}

	if en := rep.Entry; en != nil && en.Verdict == domain.VerdictFail {
		add(SigQuickLosers,
			fmt.Sprintf("quick_loser_ratio=%.2f", en.QuickLoserRatio),
			"most losers go red immediately after entry",
			ChangeEntryLogic)
	}

	if ra := rep.RegimeAsset; ra != nil {
		if ra.TopPairShare >= 0.5 && len(ra.PairStats) > 1 {
			add(SigConcentrationPair,
				fmt.Sprintf("top_pair_share=%.2f", ra.TopPairShare),
				"one pair carries most of the result",
				ChangeUniverse)
		} else if ra.Top3Share >= 0.8 && len(ra.PairStats) > 3 {
			add(SigConcentrationTop3,
				fmt.Sprintf("top3_share=%.2f", ra.Top3Share),
				"three pairs carry most of the result",
				ChangeUniverse)
		}
		if ra.RegimeDependence {
			add(SigRegimeDependence, "regime_dependence=true",
				"profitability flips sign across market regimes",
				ChangeEntryLogic, ChangeRevalidate)
		}
	}

	if l := rep.Logic; l != nil && l.OverfitRisk == domain.OverfitRiskHigh {
		add(SigOverfitting,
			fmt.Sprintf("complexity_score=%d", l.ComplexityScore),
			"strategy complexity suggests curve-fitting",
			ChangeSimplify, ChangeRevalidate)
	}

	return signals
}
