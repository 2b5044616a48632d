package analyzers

import (
	"context"
	"fmt"
	"math"
	"sort"

	"backtest-doctor/internal/domain"
	"backtest-doctor/internal/regime"
)

// Concentration thresholds (share of gross absolute PnL).
const (
	topPairLimitPct = 0.50
	top3LimitPct    = 0.80
	minRegimeSample = 3 // regimes with fewer trades are not judged
)

// AnalyzeRegimeAsset segments trades by market regime and by pair,
// looking for results that depend on one market mood or one asset.
// Regimes come from benchmark candles when a store is available and
// degrade to calendar weeks otherwise.
func AnalyzeRegimeAsset(ctx context.Context, in Input) *domain.RegimeAssetReport {
	rep := &domain.RegimeAssetReport{RegimeSource: domain.RegimeSourceNone}
	trades := in.trades()
	if len(trades) == 0 {
		rep.Verdict = domain.VerdictWarn
		rep.RedFlags = append(rep.RedFlags, "no trades: segmentation not possible")
		return rep
	}

	labels := regimeLabels(ctx, in, rep)
	buildRegimeStats(trades, labels, rep)
	buildPairStats(trades, rep)

	rep.RedFlags = append(rep.RedFlags, rep.RegimeRedFlags...)
	rep.RedFlags = append(rep.RedFlags, rep.ConcentrationRedFlags...)
	rep.Verdict = regimeAssetVerdict(rep)
	return rep
}

// regimeLabels returns one regime label per trade, by open time.
func regimeLabels(ctx context.Context, in Input, rep *domain.RegimeAssetReport) []string {
	trades := in.trades()
	labels := make([]string, len(trades))

	if in.Candles != nil && in.BenchmarkPair != "" && in.Result != nil &&
		in.Result.Config.Exchange != "" && in.Result.Config.Timeframe != "" {
		cfg := in.Result.Config
		series, err := in.Candles.GetAll(ctx, cfg.Exchange, in.BenchmarkPair, cfg.Timeframe)
		if err == nil && len(series) > 0 {
			points := regime.NewClassifier().Classify(series)
			rep.RegimeSource = domain.RegimeSourceBenchmark
			for i := range trades {
				if pt, ok := regime.LabelAt(points, trades[i].OpenDate.UnixMilli()); ok {
					labels[i] = pt.Label()
				}
			}
			return labels
		}
		rep.RegimeRedFlags = append(rep.RegimeRedFlags,
			fmt.Sprintf("benchmark %s candles unavailable: falling back to calendar segmentation", in.BenchmarkPair))
	}

	rep.RegimeSource = domain.RegimeSourceCalendar
	for i := range trades {
		year, week := trades[i].OpenDate.ISOWeek()
		labels[i] = fmt.Sprintf("%d-W%02d", year, week)
	}
	return labels
}

func buildRegimeStats(trades []domain.Trade, labels []string, rep *domain.RegimeAssetReport) {
	type agg struct {
		trades int
		wins   int
		pnl    float64
	}
	byLabel := make(map[string]*agg)
	var order []string

	for i := range trades {
		label := labels[i]
		if label == "" {
			label = "unknown"
		}
		a, ok := byLabel[label]
		if !ok {
			a = &agg{}
			byLabel[label] = a
			order = append(order, label)
		}
		a.trades++
		if ratio, ok2 := trades[i].ReturnRatio(); ok2 && ratio > 0 {
			a.wins++
		}
		if abs, ok2 := trades[i].ProfitAbsolute(); ok2 {
			a.pnl += abs
		}
	}
	sort.Strings(order)

	for _, label := range order {
		a := byLabel[label]
		stat := domain.RegimeStat{Label: label, Trades: a.trades, TotalPnL: a.pnl}
		if a.trades > 0 {
			stat.WinRate = float64(a.wins) / float64(a.trades)
		}
		rep.RegimeStats = append(rep.RegimeStats, stat)
	}

	// Dependence: the best and worst judged regimes sit on opposite
	// sides of zero, so overall profit hinges on the regime mix.
	var best, worst *domain.RegimeStat
	for i := range rep.RegimeStats {
		s := &rep.RegimeStats[i]
		if s.Trades < minRegimeSample {
			continue
		}
		if best == nil || s.TotalPnL > best.TotalPnL {
			best = s
		}
		if worst == nil || s.TotalPnL < worst.TotalPnL {
			worst = s
		}
	}
	if best != nil && worst != nil && best.TotalPnL > 0 && worst.TotalPnL < 0 {
		rep.RegimeDependence = true
		rep.RegimeRedFlags = append(rep.RegimeRedFlags,
			fmt.Sprintf("profit depends on regime: %q makes %.2f while %q loses %.2f",
				best.Label, best.TotalPnL, worst.Label, worst.TotalPnL))
	}
}

func buildPairStats(trades []domain.Trade, rep *domain.RegimeAssetReport) {
	type agg struct {
		trades int
		wins   int
		pnl    float64
	}
	byPair := make(map[string]*agg)

	gross := 0.0
	for i := range trades {
		t := &trades[i]
		pair := t.Pair
		if pair == "" {
			pair = "unknown"
		}
		a, ok := byPair[pair]
		if !ok {
			a = &agg{}
			byPair[pair] = a
		}
		a.trades++
		if ratio, ok2 := t.ReturnRatio(); ok2 && ratio > 0 {
			a.wins++
		}
		if abs, ok2 := t.ProfitAbsolute(); ok2 {
			a.pnl += abs
		}
	}
	for _, a := range byPair {
		gross += math.Abs(a.pnl)
	}

	for pair, a := range byPair {
		stat := domain.PairStat{Pair: pair, Trades: a.trades, TotalPnL: a.pnl}
		if a.trades > 0 {
			stat.WinRate = float64(a.wins) / float64(a.trades)
		}
		if gross > 0 {
			stat.PnLShare = math.Abs(a.pnl) / gross
		}
		rep.PairStats = append(rep.PairStats, stat)
	}
	sort.Slice(rep.PairStats, func(i, j int) bool {
		if rep.PairStats[i].PnLShare != rep.PairStats[j].PnLShare {
			return rep.PairStats[i].PnLShare > rep.PairStats[j].PnLShare
		}
		return rep.PairStats[i].Pair < rep.PairStats[j].Pair
	})

	if len(rep.PairStats) > 0 {
		rep.TopPairShare = rep.PairStats[0].PnLShare
	}
	for i := 0; i < len(rep.PairStats) && i < 3; i++ {
		rep.Top3Share += rep.PairStats[i].PnLShare
	}

	// Concentration only matters with something to concentrate from.
	if len(rep.PairStats) > 1 {
		if rep.TopPairShare >= topPairLimitPct {
			rep.ConcentrationRedFlags = append(rep.ConcentrationRedFlags,
				fmt.Sprintf("pair %s carries %.0f%% of gross PnL", rep.PairStats[0].Pair, rep.TopPairShare*100))
		}
		if len(rep.PairStats) > 3 && rep.Top3Share >= top3LimitPct {
			rep.ConcentrationRedFlags = append(rep.ConcentrationRedFlags,
				fmt.Sprintf("top 3 pairs carry %.0f%% of gross PnL", rep.Top3Share*100))
		}
	}
}

func regimeAssetVerdict(rep *domain.RegimeAssetReport) domain.Verdict {
	if len(rep.RedFlags) > 0 {
		return domain.VerdictWarn
	}
	return domain.VerdictPass
}
