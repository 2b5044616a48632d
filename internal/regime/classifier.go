// Package regime labels candle series with trend and volatility
// classifications used to segment trades by market conditions.
package regime

import (
	"math"
	"sort"

	"backtest-doctor/internal/domain"
)

// Classifier computes per-candle regime labels. The zero value is not
// usable; use NewClassifier for defaults.
type Classifier struct {
	// FastPeriod/SlowPeriod are the SMA windows for trend detection.
	FastPeriod int
	SlowPeriod int

	// Band is the neutral zone around the slow SMA: the fast SMA must
	// clear slow*(1±Band) before a trend label is assigned.
	Band float64

	// VolWindow is the rolling window for return stddev.
	VolWindow int

	// VolRatio marks a candle high-volatility when its rolling stddev
	// exceeds VolRatio times the series median rolling stddev.
	VolRatio float64
}

// NewClassifier returns a classifier with default parameters.
func NewClassifier() *Classifier {
	return &Classifier{
		FastPeriod: 20,
		SlowPeriod: 50,
		Band:       0.002,
		VolWindow:  20,
		VolRatio:   1.5,
	}
}

// Classify labels each candle in the series. The result is aligned
// 1:1 with the input by index; candles without enough history carry
// unknown labels.
func (c *Classifier) Classify(series []domain.Candle) []domain.RegimePoint {
	points := make([]domain.RegimePoint, len(series))

	fast := rollingSMA(series, c.FastPeriod)
	slow := rollingSMA(series, c.SlowPeriod)
	vol := rollingReturnStddev(series, c.VolWindow)
	baseline := medianPositive(vol)

	for i := range series {
		p := domain.RegimePoint{
			TimestampMs: series[i].TimestampMs,
			Trend:       domain.TrendUnknown,
			Volatility:  domain.VolUnknown,
		}

		if !math.IsNaN(fast[i]) && !math.IsNaN(slow[i]) && slow[i] > 0 {
			switch {
			case fast[i] > slow[i]*(1+c.Band):
				p.Trend = domain.TrendUp
			case fast[i] < slow[i]*(1-c.Band):
				p.Trend = domain.TrendDown
			default:
				p.Trend = domain.TrendRange
			}
		}

		if !math.IsNaN(vol[i]) && baseline > 0 {
			if vol[i] > baseline*c.VolRatio {
				p.Volatility = domain.VolHigh
			} else {
				p.Volatility = domain.VolLow
			}
		}

		points[i] = p
	}

	return points
}

// LabelAt returns the regime of the last point at or before tsMs.
// ok is false when tsMs precedes the whole series or points is empty.
func LabelAt(points []domain.RegimePoint, tsMs int64) (domain.RegimePoint, bool) {
	if len(points) == 0 {
		return domain.RegimePoint{}, false
	}

	// First point strictly after tsMs; the one before it is the match.
	idx := sort.Search(len(points), func(i int) bool {
		return points[i].TimestampMs > tsMs
	})
	if idx == 0 {
		return domain.RegimePoint{}, false
	}
	return points[idx-1], true
}

// rollingSMA computes a simple moving average of closes; positions
// without a full window are NaN.
func rollingSMA(series []domain.Candle, period int) []float64 {
	out := make([]float64, len(series))
	var sum float64
	for i := range series {
		sum += series[i].Close
		if i >= period {
			sum -= series[i-period].Close
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// rollingReturnStddev computes the rolling sample stddev of
// close-to-close returns over the window; positions without a full
// window are NaN.
func rollingReturnStddev(series []domain.Candle, window int) []float64 {
	out := make([]float64, len(series))
	for i := range out {
		out[i] = math.NaN()
	}
	if len(series) < 2 {
		return out
	}

	returns := make([]float64, len(series))
	for i := 1; i < len(series); i++ {
		prev := series[i-1].Close
		if prev > 0 {
			returns[i] = series[i].Close/prev - 1
		}
	}

	for i := window; i < len(series); i++ {
		out[i] = sampleStddev(returns[i-window+1 : i+1])
	}
	return out
}

// sampleStddev is the Bessel-corrected standard deviation.
func sampleStddev(xs []float64) float64 {
	n := len(xs)
	if n < 2 {
		return 0
	}
	var mean float64
	for _, x := range xs {
		mean += x
	}
	mean /= float64(n)

	var sumSq float64
	for _, x := range xs {
		d := x - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// medianPositive is the median of the non-NaN values.
func medianPositive(xs []float64) float64 {
	var vals []float64
	for _, x := range xs {
		if !math.IsNaN(x) {
			vals = append(vals, x)
		}
	}
	if len(vals) == 0 {
		return 0
	}
	sort.Float64s(vals)
	mid := len(vals) / 2
	if len(vals)%2 == 1 {
		return vals[mid]
	}
	return (vals[mid-1] + vals[mid]) / 2
}
