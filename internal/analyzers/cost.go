package analyzers

import (
	"context"
	"fmt"
	"sort"

	"backtest-doctor/internal/domain"
)

// Cost-stress parameters.
const (
	feeStressPct      = 0.25 // fees bumped +25%
	slippageStressPct = 0.50 // slippage bumped +50%
	fragileRetainPct  = 0.50

	liquidityHighPct   = 0.03 // order is >=3% of a median candle's notional volume
	liquidityMediumPct = 0.01
)

// AnalyzeCost re-prices the backtest under stressed fee and slippage
// assumptions and estimates order-size liquidity risk from candle
// volume when a store is available.
func AnalyzeCost(ctx context.Context, in Input) *domain.CostReport {
	rep := &domain.CostReport{LiquidityRisk: domain.LiquidityRiskUnknown}
	trades := in.trades()
	if len(trades) == 0 {
		rep.Conclusion = "no trades: nothing to stress"
		rep.Verdict = domain.VerdictWarn
		rep.RedFlags = append(rep.RedFlags, "no trades executed")
		return rep
	}

	fee := in.takerFee()
	for i := range trades {
		t := &trades[i]
		if abs, ok := t.ProfitAbsolute(); ok {
			rep.BaselineProfitAbs += abs
		}
		// Round trip pays the fee twice; slippage is one-shot per trade.
		rep.BaselineFeeCost += t.StakeAmount * 2 * fee
		rep.BaselineSlipCost += t.StakeAmount * DefaultSlippage
	}

	extraFee := rep.BaselineFeeCost * feeStressPct
	extraSlip := rep.BaselineSlipCost * slippageStressPct
	rep.ProfitFeeStress = rep.BaselineProfitAbs - extraFee
	rep.ProfitSlipStress = rep.BaselineProfitAbs - extraSlip
	rep.ProfitCombined = rep.BaselineProfitAbs - extraFee - extraSlip
	if rep.BaselineProfitAbs > 0 {
		rep.RetainedShare = rep.ProfitCombined / rep.BaselineProfitAbs
	}

	liquidityRisk(ctx, in, rep)

	switch {
	case rep.BaselineProfitAbs <= 0:
		rep.Conclusion = "strategy loses before any cost stress is applied"
		rep.RedFlags = append(rep.RedFlags, "baseline profit is not positive")
	case rep.ProfitCombined <= 0:
		rep.Conclusion = "profit disappears under stressed costs: the edge is thinner than the friction"
		rep.RedFlags = append(rep.RedFlags,
			fmt.Sprintf("combined stress flips %.2f profit to %.2f", rep.BaselineProfitAbs, rep.ProfitCombined))
	case rep.RetainedShare < fragileRetainPct:
		rep.Conclusion = fmt.Sprintf("fragile: only %.0f%% of profit survives stressed costs", rep.RetainedShare*100)
		rep.RedFlags = append(rep.RedFlags, "cost stress removes over half the profit")
	default:
		rep.Conclusion = fmt.Sprintf("robust: %.0f%% of profit survives stressed costs", rep.RetainedShare*100)
	}

	if rep.LiquidityRisk == domain.LiquidityRiskHigh {
		rep.RedFlags = append(rep.RedFlags,
			"order size is large against candle volume: fills at backtest prices are unrealistic")
	}

	rep.Verdict = costVerdict(rep)
	return rep
}

// liquidityRisk compares the average order size against the median
// per-candle notional volume of the most-traded pairs.
func liquidityRisk(ctx context.Context, in Input, rep *domain.CostReport) {
	if in.Candles == nil || in.Result == nil {
		return
	}
	cfg := in.Result.Config
	if cfg.Exchange == "" || cfg.Timeframe == "" {
		return
	}
	trades := in.trades()

	counts := make(map[string]int)
	var stakeSum float64
	var stakeN int
	for i := range trades {
		if trades[i].Pair != "" {
			counts[trades[i].Pair]++
		}
		if trades[i].StakeAmount > 0 {
			stakeSum += trades[i].StakeAmount
			stakeN++
		}
	}
	if stakeN == 0 || len(counts) == 0 {
		return
	}
	avgStake := stakeSum / float64(stakeN)

	pairs := make([]string, 0, len(counts))
	for p := range counts {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool {
		if counts[pairs[i]] != counts[pairs[j]] {
			return counts[pairs[i]] > counts[pairs[j]]
		}
		return pairs[i] < pairs[j]
	})
	if len(pairs) > 3 {
		pairs = pairs[:3]
	}

	start, end, haveSpan := in.Result.TimeSpan()

	var notionals []float64
	for _, pair := range pairs {
		var series []domain.Candle
		var err error
		if haveSpan {
			// Volume outside the traded window says nothing about the
			// fills the backtest assumed.
			series, err = in.Candles.GetRange(ctx, cfg.Exchange, pair, cfg.Timeframe,
				start.UnixMilli(), end.UnixMilli())
		} else {
			series, err = in.Candles.GetAll(ctx, cfg.Exchange, pair, cfg.Timeframe)
		}
		if err != nil {
			continue
		}
		for i := range series {
			if v := series[i].NotionalVolume(); v > 0 {
				notionals = append(notionals, v)
			}
		}
	}
	if len(notionals) == 0 {
		return
	}

	ratio := avgStake / median(notionals)
	rep.OrderToVolumeRatio = &ratio
	switch {
	case ratio >= liquidityHighPct:
		rep.LiquidityRisk = domain.LiquidityRiskHigh
	case ratio >= liquidityMediumPct:
		rep.LiquidityRisk = domain.LiquidityRiskMedium
	default:
		rep.LiquidityRisk = domain.LiquidityRiskLow
	}
}

func costVerdict(rep *domain.CostReport) domain.Verdict {
	if rep.BaselineProfitAbs > 0 && rep.ProfitCombined <= 0 {
		return domain.VerdictFail
	}
	if len(rep.RedFlags) > 0 {
		return domain.VerdictWarn
	}
	return domain.VerdictPass
}
