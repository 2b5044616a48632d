// Package analyzers contains the independent diagnostic phases. Each
// analyzer is a pure function of its Input: it never mutates the
// backtest result and degrades to FAIL/WARN verdicts with red flags
// instead of returning errors for missing or partial data.
package analyzers

import (
	"time"

	"backtest-doctor/internal/candles"
	"backtest-doctor/internal/domain"
)

// DefaultTakerFee is the per-side fee ratio assumed when the run
// config does not carry one (0.1%).
const DefaultTakerFee = 0.001

// DefaultSlippage is the assumed baseline slippage ratio per trade (0.05%).
const DefaultSlippage = 0.0005

// Input is the shared, read-only input handed to every analyzer.
type Input struct {
	Result       *domain.BacktestResult
	StrategyText string

	// Candles is optional; analyzers needing market context degrade
	// to "unverified" results when it is nil.
	Candles candles.Store

	// BenchmarkPair is the pair used for regime segmentation.
	BenchmarkPair string

	// TakerFee is the fee assumed when the run config carries none.
	TakerFee float64
}

// takerFee resolves the effective per-side fee ratio. The fee the
// backtest actually ran with wins over any configured assumption.
func (in Input) takerFee() float64 {
	if in.Result != nil && in.Result.Config.TakerFee > 0 {
		return in.Result.Config.TakerFee
	}
	if in.TakerFee > 0 {
		return in.TakerFee
	}
	return DefaultTakerFee
}

// trades returns the trade slice, tolerating a nil result.
func (in Input) trades() []domain.Trade {
	if in.Result == nil {
		return nil
	}
	return in.Result.Trades
}

// equityBefore resolves a trade's pre-trade equity, falling back to
// the starting balance.
func equityBefore(t *domain.Trade, r *domain.BacktestResult) (float64, bool) {
	if t.EquityBefore != nil && *t.EquityBefore > 0 {
		return *t.EquityBefore, true
	}
	if r != nil && r.StartingBalance != nil && *r.StartingBalance > 0 {
		return *r.StartingBalance, true
	}
	return 0, false
}

// durationMin returns the hold time in minutes.
func durationMin(t *domain.Trade) float64 {
	return t.Duration().Minutes()
}

// spanDays returns the observed backtest span in days, clamped to a
// minimum of one hour so per-day rates stay meaningful.
func spanDays(r *domain.BacktestResult) (float64, bool) {
	start, end, ok := r.TimeSpan()
	if !ok {
		return 0, false
	}
	days := end.Sub(start).Hours() / 24
	if days < 1.0/24 {
		days = 1.0 / 24
	}
	return days, true
}

// hoursBetween is a small readability helper.
func hoursBetween(a, b time.Time) float64 {
	return b.Sub(a).Hours()
}
