package analyzers

import (
	"context"
	"fmt"

	"backtest-doctor/internal/domain"
)

// Performance thresholds.
const (
	minTradeSample    = 30   // fewer trades is statistically weak
	maxTradesPerDay   = 50   // above this looks like over-trading
	highDeploymentPct = 0.90 // avg stake/equity above this is all-in sizing
)

// AnalyzePerformance computes win/loss structure, expectancy and
// trade-frequency metrics and maps them to a one-line diagnosis.
func AnalyzePerformance(_ context.Context, in Input) *domain.PerformanceReport {
	rep := &domain.PerformanceReport{}
	trades := in.trades()
	rep.TotalTrades = len(trades)

	if len(trades) == 0 {
		rep.Diagnosis = "over-filtered: no trades executed"
		rep.Verdict = domain.VerdictFail
		rep.RedFlags = append(rep.RedFlags, "no trades: entry conditions never fired")
		return rep
	}

	var (
		wins, losses          int
		winSum, lossSum       float64 // ratio terms; lossSum accumulates magnitudes
		winAbsSum, lossAbsSum float64
		winHoldSum, loseHold  float64
		deploySum             float64
		deployN               int
		measurable            int
	)

	for i := range trades {
		t := &trades[i]
		r, ok := t.ReturnRatio()
		if !ok {
			continue
		}
		measurable++
		abs, _ := t.ProfitAbsolute()

		if r > 0 {
			wins++
			winSum += r
			winAbsSum += abs
			winHoldSum += durationMin(t)
		} else if r < 0 {
			losses++
			lossSum += -r
			lossAbsSum += -abs
			loseHold += durationMin(t)
		}

		if t.IsShort {
			rep.ShortTrades++
		} else {
			rep.LongTrades++
		}

		if eq, ok := equityBefore(t, in.Result); ok && t.StakeAmount > 0 {
			deploySum += t.StakeAmount / eq
			deployN++
		}
	}

	if measurable == 0 {
		rep.Diagnosis = "unmeasurable: trades carry no usable profit fields"
		rep.Verdict = domain.VerdictFail
		rep.RedFlags = append(rep.RedFlags, "no trade has a derivable return")
		return rep
	}

	rep.WinRate = float64(wins) / float64(measurable)
	rep.LossRate = float64(losses) / float64(measurable)
	if wins > 0 {
		rep.AvgWinRatio = winSum / float64(wins)
		rep.AvgWinAbs = winAbsSum / float64(wins)
		rep.AvgWinnerHoldMin = winHoldSum / float64(wins)
	}
	if losses > 0 {
		rep.AvgLossRatio = lossSum / float64(losses)
		rep.AvgLossAbs = lossAbsSum / float64(losses)
		rep.AvgLoserHoldMin = loseHold / float64(losses)
	}
	rep.Expectancy = rep.WinRate*rep.AvgWinRatio - rep.LossRate*rep.AvgLossRatio

	if rep.ShortTrades > 0 {
		ratio := float64(rep.LongTrades) / float64(rep.ShortTrades)
		rep.LongShortRatio = &ratio
	}
	if deployN > 0 {
		rep.AvgCapitalDeployed = deploySum / float64(deployN)
	}
	if days, ok := spanDays(in.Result); ok {
		rep.TradesPerDay = float64(len(trades)) / days
	}

	rep.Diagnosis = performanceDiagnosis(rep)
	performanceFlags(rep)
	rep.Verdict = performanceVerdict(rep)
	return rep
}

// performanceDiagnosis maps the win/loss structure to its dominant
// failure mode. Ordering matters: magnitude imbalance is checked
// before win-rate quality.
func performanceDiagnosis(rep *domain.PerformanceReport) string {
	if rep.Expectancy > 0 {
		return "positive expectancy: losses are structural, not directional"
	}
	// Accumulated averages carry FP noise; payoffs within a hair of
	// each other count as balanced, not loss-heavy.
	lossHeavy := rep.AvgLossRatio > rep.AvgWinRatio*(1+1e-9)+1e-12
	switch {
	case rep.WinRate >= 0.5 && lossHeavy:
		return "loss magnitude dominates wins: winners are cut short or losers run too far"
	case rep.WinRate < 0.5 && !lossHeavy:
		return "entry timing issue: direction is wrong more often than not"
	case rep.WinRate < 0.5 && lossHeavy:
		return "signal quality failure: both direction and payoff are against the strategy"
	default:
		return "negative expectancy with no single dominant cause"
	}
}

func performanceFlags(rep *domain.PerformanceReport) {
	if rep.TotalTrades < minTradeSample {
		rep.RedFlags = append(rep.RedFlags,
			fmt.Sprintf("only %d trades: results are statistically weak", rep.TotalTrades))
	}
	if rep.TradesPerDay > maxTradesPerDay {
		rep.RedFlags = append(rep.RedFlags,
			fmt.Sprintf("%.1f trades/day: over-trading, costs will dominate", rep.TradesPerDay))
	}
	if rep.AvgCapitalDeployed > highDeploymentPct {
		rep.RedFlags = append(rep.RedFlags,
			fmt.Sprintf("%.0f%% of equity deployed per trade: position sizing leaves no buffer", rep.AvgCapitalDeployed*100))
	}
}

func performanceVerdict(rep *domain.PerformanceReport) domain.Verdict {
	if rep.Expectancy < 0 {
		return domain.VerdictFail
	}
	if len(rep.RedFlags) > 0 {
		return domain.VerdictWarn
	}
	return domain.VerdictPass
}
