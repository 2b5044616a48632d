package domain

// Trend labels for regime classification.
type Trend string

const (
	TrendUp      Trend = "up"
	TrendDown    Trend = "down"
	TrendRange   Trend = "range"
	TrendUnknown Trend = "unknown"
)

// Volatility labels for regime classification.
type Volatility string

const (
	VolHigh    Volatility = "high"
	VolLow     Volatility = "low"
	VolUnknown Volatility = "unknown"
)

// RegimePoint is one classification per candle, aligned 1:1 with a
// candle series by index.
type RegimePoint struct {
	TimestampMs int64
	Trend       Trend
	Volatility  Volatility
}

// Label renders the combined regime key, e.g. "up/high".
func (p RegimePoint) Label() string {
	return string(p.Trend) + "/" + string(p.Volatility)
}
