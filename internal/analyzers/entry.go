package analyzers

import (
	"context"
	"fmt"
	"sort"

	"backtest-doctor/internal/domain"
)

// Entry-quality thresholds.
const (
	minTagSample       = 5    // a tag needs this many trades before it is judged
	untaggedSharePct   = 0.80 // above this, tag attribution is meaningless
	quickLoserLimitPct = 0.50
)

// AnalyzeEntry judges entry signal quality: per-tag attribution and
// how fast losers are cut relative to the strategy's own hold times.
func AnalyzeEntry(_ context.Context, in Input) *domain.EntryReport {
	rep := &domain.EntryReport{}
	trades := in.trades()
	if len(trades) == 0 {
		rep.Verdict = domain.VerdictWarn
		rep.RedFlags = append(rep.RedFlags, "no trades: entry quality not measurable")
		return rep
	}

	buildTagStats(trades, rep)
	holdTimeProfile(trades, rep)

	rep.Verdict = entryVerdict(rep)
	return rep
}

// buildTagStats aggregates per-tag PnL, worst tag first.
func buildTagStats(trades []domain.Trade, rep *domain.EntryReport) {
	type agg struct {
		trades int
		wins   int
		pnl    float64
	}
	byTag := make(map[string]*agg)
	untagged := 0

	for i := range trades {
		t := &trades[i]
		if t.EnterTag == "" {
			untagged++
			continue
		}
		a, ok := byTag[t.EnterTag]
		if !ok {
			a = &agg{}
			byTag[t.EnterTag] = a
		}
		a.trades++
		ratio, ok2 := t.ReturnRatio()
		if ok2 && ratio > 0 {
			a.wins++
		}
		if abs, ok2 := t.ProfitAbsolute(); ok2 {
			a.pnl += abs
		}
	}
	rep.UntaggedShare = float64(untagged) / float64(len(trades))

	for tag, a := range byTag {
		stat := domain.TagStat{
			Tag:      tag,
			Trades:   a.trades,
			TotalPnL: a.pnl,
		}
		if a.trades > 0 {
			stat.WinRate = float64(a.wins) / float64(a.trades)
			stat.AvgPnL = a.pnl / float64(a.trades)
		}
		rep.TagStats = append(rep.TagStats, stat)
	}
	sort.Slice(rep.TagStats, func(i, j int) bool {
		if rep.TagStats[i].TotalPnL != rep.TagStats[j].TotalPnL {
			return rep.TagStats[i].TotalPnL < rep.TagStats[j].TotalPnL
		}
		return rep.TagStats[i].Tag < rep.TagStats[j].Tag
	})

	for _, s := range rep.TagStats {
		if s.Trades >= minTagSample && s.TotalPnL < 0 {
			rep.RedFlags = append(rep.RedFlags,
				fmt.Sprintf("entry tag %q loses money over %d trades (%.2f total)", s.Tag, s.Trades, s.TotalPnL))
		}
	}
	if rep.UntaggedShare >= untaggedSharePct {
		rep.RedFlags = append(rep.RedFlags,
			fmt.Sprintf("%.0f%% of trades are untagged: entry attribution is not possible", rep.UntaggedShare*100))
	}
}

// holdTimeProfile measures how quickly losers exit relative to the
// strategy's own cadence. The quick-exit threshold is the 25th
// percentile of all hold durations.
func holdTimeProfile(trades []domain.Trade, rep *domain.EntryReport) {
	var all, winners, losers []float64
	for i := range trades {
		t := &trades[i]
		hold := durationMin(t)
		all = append(all, hold)
		if ratio, ok := t.ReturnRatio(); ok {
			if ratio > 0 {
				winners = append(winners, hold)
			} else if ratio < 0 {
				losers = append(losers, hold)
			}
		}
	}
	if len(all) == 0 {
		return
	}

	rep.QuickExitThresholdMin = percentile(all, 0.25)
	rep.MedianWinnerHoldMin = median(winners)
	rep.MedianLoserHoldMin = median(losers)

	if len(losers) > 0 {
		quick := 0
		for _, h := range losers {
			// At the threshold still counts as quick.
			if h <= rep.QuickExitThresholdMin {
				quick++
			}
		}
		rep.QuickLoserRatio = float64(quick) / float64(len(losers))
	}
	if rep.QuickLoserRatio >= quickLoserLimitPct {
		rep.RedFlags = append(rep.RedFlags,
			fmt.Sprintf("%.0f%% of losers exit below the p25 hold time: entries go against immediately", rep.QuickLoserRatio*100))
	}
}

func entryVerdict(rep *domain.EntryReport) domain.Verdict {
	if rep.QuickLoserRatio >= quickLoserLimitPct {
		return domain.VerdictFail
	}
	if len(rep.RedFlags) > 0 {
		return domain.VerdictWarn
	}
	return domain.VerdictPass
}
