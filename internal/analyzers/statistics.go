package analyzers

import (
	"context"
	"fmt"
	"math"

	"backtest-doctor/internal/domain"
)

// z95 is the two-sided 95% normal quantile.
const z95 = 1.96

// highDispersionStd flags a per-trade return stddev above 2%.
const highDispersionStd = 0.02

// AnalyzeStatistics tests whether the mean per-trade return is
// statistically distinguishable from zero at 95% confidence.
func AnalyzeStatistics(_ context.Context, in Input) *domain.StatsReport {
	rep := &domain.StatsReport{}

	var returns []float64
	for _, t := range in.trades() {
		if r, ok := t.ReturnRatio(); ok {
			returns = append(returns, r)
		}
	}
	rep.SampleSize = len(returns)

	if rep.SampleSize == 0 {
		rep.Verdict = domain.VerdictFail
		rep.RedFlags = append(rep.RedFlags, "no measurable returns: nothing to test")
		return rep
	}

	rep.MeanReturn = mean(returns)
	rep.StdDev = sampleStddev(returns, rep.MeanReturn)
	margin := z95 * rep.StdDev / math.Sqrt(float64(rep.SampleSize))
	rep.CI95Low = rep.MeanReturn - margin
	rep.CI95High = rep.MeanReturn + margin

	switch {
	case rep.SampleSize < minTradeSample:
		rep.RedFlags = append(rep.RedFlags,
			fmt.Sprintf("%d trades is too few for a meaningful confidence interval", rep.SampleSize))
		rep.Verdict = domain.VerdictFail
	case rep.CI95High <= 0:
		rep.RedFlags = append(rep.RedFlags, "mean return is significantly negative at 95% confidence")
		rep.Verdict = domain.VerdictFail
	case rep.CI95Low < 0:
		rep.RedFlags = append(rep.RedFlags,
			"the 95% confidence interval includes zero: profit is indistinguishable from luck")
		rep.Verdict = domain.VerdictFail
	default:
		rep.Verdict = domain.VerdictPass
	}

	// The dispersion flag is advisory only; it never moves the verdict.
	if rep.StdDev > highDispersionStd {
		rep.RedFlags = append(rep.RedFlags,
			fmt.Sprintf("per-trade return stddev %.3f: results are dominated by a few outliers", rep.StdDev))
	}

	return rep
}
