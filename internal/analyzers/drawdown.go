package analyzers

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"backtest-doctor/internal/domain"
)

// Risk-structure thresholds.
const (
	steepCrashDepthPct  = 0.10 // episode loses >=10% of peak equity
	steepCrashWindowHrs = 6.0  // ...within this many hours
	slowRecoveryHrs     = 168.0
	manyEpisodes        = 5
	worstLossLimitPct   = 0.05
	riskDeploymentPct   = 0.70
	stoplossTolerance   = 0.001 // slippage allowance past the configured stop
)

// equityPoint is one sample on the reconstructed equity curve.
type equityPoint struct {
	at     time.Time
	equity float64
}

// AnalyzeDrawdown reconstructs the equity curve, segments it into
// drawdown episodes and classifies the risk failure patterns.
func AnalyzeDrawdown(_ context.Context, in Input) *domain.DrawdownReport {
	rep := &domain.DrawdownReport{}
	trades := in.trades()
	if len(trades) == 0 {
		rep.Verdict = domain.VerdictWarn
		rep.RedFlags = append(rep.RedFlags, "no trades: no equity curve to analyze")
		return rep
	}

	curve, fromSnapshots := equityCurve(trades, in.Result)
	rep.EquityFromSnapshots = fromSnapshots
	if len(curve) < 2 {
		rep.Verdict = domain.VerdictWarn
		rep.RedFlags = append(rep.RedFlags, "equity curve too short to segment")
		return rep
	}

	rep.Episodes = segmentEpisodes(curve)
	rep.EpisodeCount = len(rep.Episodes)

	var troughSum float64
	largest := -1
	for i, ep := range rep.Episodes {
		depth := ep.DrawdownAbs()
		if depth > rep.MaxDrawdownAbs {
			rep.MaxDrawdownAbs = depth
			largest = i
		}
		toTrough := hoursBetween(ep.PeakTime, ep.TroughTime)
		troughSum += toTrough
		if toTrough > rep.MaxTimeToTroughHours {
			rep.MaxTimeToTroughHours = toTrough
		}
	}
	if rep.EpisodeCount > 0 {
		rep.AvgTimeToTroughHours = troughSum / float64(rep.EpisodeCount)
	}
	if largest >= 0 {
		if ep := rep.Episodes[largest]; ep.RecoveredAt != nil {
			h := hoursBetween(ep.PeakTime, *ep.RecoveredAt)
			rep.RecoveryHours = &h
		}
	}

	first, last := curve[0], curve[len(curve)-1]
	if days := hoursBetween(first.at, last.at) / 24; days > 0 && first.equity > 0 {
		rep.EquitySlopePerDay = (last.equity - first.equity) / first.equity / days
	}

	worstLoss(trades, in.Result, rep)
	countStoplossViolations(trades, in.Result, rep)
	deploymentRisk(trades, in.Result, rep)
	classifyFailures(rep)

	rep.Verdict = drawdownVerdict(rep)
	return rep
}

// equityCurve builds a close-time-ordered equity series. When every
// trade carries a recorded post-trade equity snapshot those are used
// directly; otherwise the curve is cumulative absolute profit on top
// of the starting balance (falling back to the first pre-trade
// snapshot, then to zero).
func equityCurve(trades []domain.Trade, r *domain.BacktestResult) ([]equityPoint, bool) {
	ordered := make([]*domain.Trade, 0, len(trades))
	for i := range trades {
		if !trades[i].CloseDate.IsZero() {
			ordered = append(ordered, &trades[i])
		}
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].CloseDate.Before(ordered[j].CloseDate)
	})
	if len(ordered) == 0 {
		return nil, false
	}

	allSnapshots := true
	for _, t := range ordered {
		if t.EquityAfter == nil {
			allSnapshots = false
			break
		}
	}

	start := 0.0
	switch {
	case r != nil && r.StartingBalance != nil && *r.StartingBalance > 0:
		start = *r.StartingBalance
	case ordered[0].EquityBefore != nil:
		start = *ordered[0].EquityBefore
	}

	curve := make([]equityPoint, 0, len(ordered)+1)
	curve = append(curve, equityPoint{at: ordered[0].OpenDate, equity: start})

	if allSnapshots {
		for _, t := range ordered {
			curve = append(curve, equityPoint{at: t.CloseDate, equity: *t.EquityAfter})
		}
		return curve, true
	}

	running := start
	for _, t := range ordered {
		if v, ok := t.ProfitAbsolute(); ok {
			running += v
		}
		curve = append(curve, equityPoint{at: t.CloseDate, equity: running})
	}
	return curve, false
}

// segmentEpisodes walks the curve tracking the running peak. An
// episode opens on the first drop below the peak and closes when
// equity regains it; the final episode may end unrecovered.
func segmentEpisodes(curve []equityPoint) []domain.DrawdownEpisode {
	var episodes []domain.DrawdownEpisode
	var open *domain.DrawdownEpisode

	peak := curve[0]
	for _, pt := range curve[1:] {
		if pt.equity >= peak.equity {
			if open != nil {
				at := pt.at
				open.RecoveredAt = &at
				episodes = append(episodes, *open)
				open = nil
			}
			peak = pt
			continue
		}
		if open == nil {
			open = &domain.DrawdownEpisode{
				PeakEquity:   peak.equity,
				PeakTime:     peak.at,
				TroughEquity: pt.equity,
				TroughTime:   pt.at,
			}
			continue
		}
		if pt.equity < open.TroughEquity {
			open.TroughEquity = pt.equity
			open.TroughTime = pt.at
		}
	}
	if open != nil {
		episodes = append(episodes, *open)
	}
	return episodes
}

func worstLoss(trades []domain.Trade, r *domain.BacktestResult, rep *domain.DrawdownReport) {
	for i := range trades {
		t := &trades[i]
		abs, ok := t.ProfitAbsolute()
		if !ok || abs >= 0 {
			continue
		}
		eq, ok := equityBefore(t, r)
		if !ok {
			continue
		}
		if pct := -abs / eq; pct > rep.WorstLossPct {
			rep.WorstLossPct = pct
		}
	}
	if rep.WorstLossPct > worstLossLimitPct {
		rep.RedFlags = append(rep.RedFlags,
			fmt.Sprintf("worst single loss is %.1f%% of equity", rep.WorstLossPct*100))
	}
}

// countStoplossViolations counts trades that lost more than the
// configured stop allows, beyond a small slippage tolerance.
func countStoplossViolations(trades []domain.Trade, r *domain.BacktestResult, rep *domain.DrawdownReport) {
	if r == nil || r.Config.Stoploss == nil {
		return
	}
	stop := *r.Config.Stoploss
	if stop >= 0 {
		return
	}
	for i := range trades {
		if ratio, ok := trades[i].ReturnRatio(); ok && ratio < stop-stoplossTolerance {
			rep.StoplossViolations++
		}
	}
	if rep.StoplossViolations > 0 {
		rep.RedFlags = append(rep.RedFlags,
			fmt.Sprintf("%d trades lost past the %.2f stop: the stop is not being honored", rep.StoplossViolations, stop))
	}
}

func deploymentRisk(trades []domain.Trade, r *domain.BacktestResult, rep *domain.DrawdownReport) {
	var sum float64
	var n int
	for i := range trades {
		t := &trades[i]
		if eq, ok := equityBefore(t, r); ok && t.StakeAmount > 0 {
			sum += t.StakeAmount / eq
			n++
		}
	}
	if n == 0 {
		return
	}
	rep.AvgCapitalDeployed = sum / float64(n)
	if rep.AvgCapitalDeployed > riskDeploymentPct {
		rep.RedFlags = append(rep.RedFlags,
			fmt.Sprintf("%.0f%% average capital deployment amplifies every drawdown", rep.AvgCapitalDeployed*100))
	}
}

// classifyFailures names the recognizable risk shapes.
func classifyFailures(rep *domain.DrawdownReport) {
	for _, ep := range rep.Episodes {
		depth := ep.DrawdownAbs()
		window := hoursBetween(ep.PeakTime, ep.TroughTime)
		if ep.PeakEquity > 0 && depth/ep.PeakEquity >= steepCrashDepthPct && window < steepCrashWindowHrs {
			rep.FailurePatterns = append(rep.FailurePatterns,
				fmt.Sprintf("steep crash: lost %.1f%% of equity in %.1f hours", depth/ep.PeakEquity*100, window))
		}
		if ep.RecoveredAt != nil && hoursBetween(ep.PeakTime, *ep.RecoveredAt) > slowRecoveryHrs {
			rep.FailurePatterns = append(rep.FailurePatterns, "slow bleed: a drawdown took over a week to recover")
		}
	}
	if rep.EpisodeCount >= manyEpisodes {
		rep.FailurePatterns = append(rep.FailurePatterns,
			fmt.Sprintf("churning: %d separate drawdown episodes", rep.EpisodeCount))
	}
}

func drawdownVerdict(rep *domain.DrawdownReport) domain.Verdict {
	for _, p := range rep.FailurePatterns {
		if strings.HasPrefix(p, "steep crash") {
			return domain.VerdictFail
		}
	}
	if rep.WorstLossPct > worstLossLimitPct || rep.StoplossViolations > 0 {
		return domain.VerdictFail
	}
	if len(rep.FailurePatterns) > 0 || len(rep.RedFlags) > 0 {
		return domain.VerdictWarn
	}
	return domain.VerdictPass
}
