package domain

import "time"

// RunConfig is the slice of the run configuration the diagnostics need.
type RunConfig struct {
	Exchange      string   `json:"exchange,omitempty"`
	Timeframe     string   `json:"timeframe,omitempty"`
	PairWhitelist []string `json:"pair_whitelist,omitempty"`

	// Stoploss is the configured stop as a negative ratio (-0.10 = 10%).
	Stoploss *float64 `json:"stoploss,omitempty"`

	// TakerFee is the per-side fee ratio. Zero means "use default".
	TakerFee float64 `json:"taker_fee,omitempty"`

	MaxOpenTrades int `json:"max_open_trades,omitempty"`
}

// BacktestResult is the completed simulation output handed to the
// pipeline. It is read-only input for every analyzer; no analyzer
// mutates it.
type BacktestResult struct {
	StrategyName string `json:"strategy_name,omitempty"`

	Trades      []Trade `json:"trades"`
	TotalTrades int     `json:"total_trades"`

	StartingBalance *float64 `json:"starting_balance,omitempty"`
	FinalBalance    *float64 `json:"final_balance,omitempty"`
	ProfitTotalAbs  *float64 `json:"profit_total_abs,omitempty"`
	MaxDrawdownAbs  *float64 `json:"max_drawdown_abs,omitempty"`
	StakeCurrency   string   `json:"stake_currency,omitempty"`

	BacktestStart time.Time `json:"backtest_start,omitempty"`
	BacktestEnd   time.Time `json:"backtest_end,omitempty"`

	Config RunConfig `json:"config"`
}

// TimeSpan returns the observed [first open, last close] interval of
// the trade list, falling back to the configured backtest range when
// no trades exist. ok is false when neither is available.
func (r *BacktestResult) TimeSpan() (start, end time.Time, ok bool) {
	for i := range r.Trades {
		t := &r.Trades[i]
		if t.OpenDate.IsZero() {
			continue
		}
		if start.IsZero() || t.OpenDate.Before(start) {
			start = t.OpenDate
		}
		last := t.CloseDate
		if last.IsZero() {
			last = t.OpenDate
		}
		if last.After(end) {
			end = last
		}
	}
	if !start.IsZero() {
		return start, end, true
	}
	if !r.BacktestStart.IsZero() && !r.BacktestEnd.IsZero() {
		return r.BacktestStart, r.BacktestEnd, true
	}
	return time.Time{}, time.Time{}, false
}

// ProfitTotal returns the total absolute profit, summing per-trade
// values when the aggregate field is absent.
func (r *BacktestResult) ProfitTotal() float64 {
	if v, ok := finite(r.ProfitTotalAbs); ok {
		return v
	}
	var sum float64
	for i := range r.Trades {
		if v, ok := r.Trades[i].ProfitAbsolute(); ok {
			sum += v
		}
	}
	return sum
}
