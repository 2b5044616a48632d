package analyzers

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"backtest-doctor/internal/domain"
)

// Exit-logic thresholds.
const (
	stopLossSharePct  = 0.40 // stops absorbing this share of gross PnL is a placement problem
	holdRatioHighMark = 1.25
	holdRatioLowMark  = 0.80
	trailingGiveback  = 0.40 // trailing exits should keep at least this share of target exits
)

// AnalyzeExit categorizes how trades ended and what that says about
// the exit rules.
func AnalyzeExit(_ context.Context, in Input) *domain.ExitReport {
	rep := &domain.ExitReport{}
	trades := in.trades()
	if len(trades) == 0 {
		rep.Verdict = domain.VerdictWarn
		rep.RedFlags = append(rep.RedFlags, "no trades: exit behavior not measurable")
		return rep
	}

	byCat := make(map[string]*domain.ExitCategoryStat)
	var winHoldSum, loseHoldSum float64
	var winN, loseN int

	for i := range trades {
		t := &trades[i]
		cat := CategorizeExit(t.ExitReason)
		s, ok := byCat[cat]
		if !ok {
			s = &domain.ExitCategoryStat{Category: cat}
			byCat[cat] = s
		}
		s.Count++
		if abs, ok := t.ProfitAbsolute(); ok {
			s.TotalPnL += abs
		}

		if ratio, ok := t.ReturnRatio(); ok {
			if ratio > 0 {
				winHoldSum += durationMin(t)
				winN++
			} else if ratio < 0 {
				loseHoldSum += durationMin(t)
				loseN++
			}
		}
	}

	for _, s := range byCat {
		if s.Count > 0 {
			s.AvgPnL = s.TotalPnL / float64(s.Count)
		}
		rep.Categories = append(rep.Categories, *s)
	}
	sort.Slice(rep.Categories, func(i, j int) bool {
		if rep.Categories[i].Count != rep.Categories[j].Count {
			return rep.Categories[i].Count > rep.Categories[j].Count
		}
		return rep.Categories[i].Category < rep.Categories[j].Category
	})

	if winN > 0 {
		rep.AvgWinnerHoldMin = winHoldSum / float64(winN)
	}
	if loseN > 0 {
		rep.AvgLoserHoldMin = loseHoldSum / float64(loseN)
	}
	if winN > 0 && loseN > 0 && rep.AvgWinnerHoldMin > 0 {
		ratio := rep.AvgLoserHoldMin / rep.AvgWinnerHoldMin
		rep.HoldRatio = &ratio
	}

	exitConclusions(rep)
	rep.Verdict = exitVerdict(rep)
	return rep
}

// CategorizeExit maps a raw exit reason string onto one of the fixed
// categories. Matching is keyword-based and ordered; "trailing" is
// checked out of the stop-loss bucket first so "trailing_stop_loss"
// classifies as trailing.
func CategorizeExit(reason string) string {
	r := strings.ToLower(strings.TrimSpace(reason))
	switch {
	case r == "":
		return domain.ExitCatOther
	case strings.Contains(r, "trailing"):
		return domain.ExitCatTrailing
	case strings.Contains(r, "stop"):
		return domain.ExitCatStoploss
	case strings.Contains(r, "roi") || strings.Contains(r, "profit"):
		return domain.ExitCatProfitTarget
	case strings.Contains(r, "force") || strings.Contains(r, "liquidat"):
		return domain.ExitCatForced
	case strings.Contains(r, "timeout") || strings.Contains(r, "expire"):
		return domain.ExitCatTimeout
	case strings.Contains(r, "signal") || strings.Contains(r, "sell") || strings.Contains(r, "exit"):
		return domain.ExitCatSignal
	default:
		return domain.ExitCatOther
	}
}

func exitConclusions(rep *domain.ExitReport) {
	stats := make(map[string]domain.ExitCategoryStat, len(rep.Categories))
	gross := 0.0
	for _, s := range rep.Categories {
		stats[s.Category] = s
		gross += math.Abs(s.TotalPnL)
	}

	if sl, ok := stats[domain.ExitCatStoploss]; ok && gross > 0 {
		if sl.TotalPnL < 0 && math.Abs(sl.TotalPnL)/gross >= stopLossSharePct {
			rep.Conclusions = append(rep.Conclusions,
				fmt.Sprintf("stop placement problem: stop-loss exits absorb %.0f%% of gross PnL", math.Abs(sl.TotalPnL)/gross*100))
		}
	}
	if to, ok := stats[domain.ExitCatTimeout]; ok && to.TotalPnL < 0 {
		rep.Conclusions = append(rep.Conclusions, "timeout exits lose money: positions are held hoping instead of exiting")
	}
	if tr, okT := stats[domain.ExitCatTrailing]; okT {
		if pt, okP := stats[domain.ExitCatProfitTarget]; okP && pt.AvgPnL > 0 && tr.AvgPnL < trailingGiveback*pt.AvgPnL {
			rep.Conclusions = append(rep.Conclusions, "trailing stop gives back most of the open profit before exiting")
		}
	}
	if sig, ok := stats[domain.ExitCatSignal]; ok && sig.TotalPnL < 0 {
		rep.Conclusions = append(rep.Conclusions, "signal exits lose money on average: the exit signal fires too late")
	}

	if rep.HoldRatio != nil {
		switch {
		case *rep.HoldRatio > holdRatioHighMark:
			rep.Conclusions = append(rep.Conclusions,
				fmt.Sprintf("losers are held %.1fx longer than winners: losses are left to run", *rep.HoldRatio))
		case *rep.HoldRatio < holdRatioLowMark:
			rep.Conclusions = append(rep.Conclusions, "losers exit much faster than winners: stops may be too tight")
		}
	}
}

func exitVerdict(rep *domain.ExitReport) domain.Verdict {
	for _, c := range rep.Conclusions {
		if strings.HasPrefix(c, "stop placement problem") {
			return domain.VerdictFail
		}
	}
	if len(rep.Conclusions) > 0 || len(rep.RedFlags) > 0 {
		return domain.VerdictWarn
	}
	return domain.VerdictPass
}
