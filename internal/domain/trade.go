package domain

import (
	"math"
	"time"
)

// Trade represents one closed position from a backtest run.
// Profit is carried both as a ratio of the stake and as an absolute
// amount in the stake currency; either may be missing independently
// and is derived from the other when possible.
type Trade struct {
	Pair      string    `json:"pair"`
	OpenDate  time.Time `json:"open_date"`
	CloseDate time.Time `json:"close_date"`

	ProfitRatio *float64 `json:"profit_ratio,omitempty"`
	ProfitAbs   *float64 `json:"profit_abs,omitempty"`
	StakeAmount float64  `json:"stake_amount"`

	EnterTag   string `json:"enter_tag,omitempty"`
	ExitReason string `json:"exit_reason,omitempty"`
	IsShort    bool   `json:"is_short,omitempty"`

	// Account equity immediately before/after the trade, when the
	// simulator recorded it. Nil when unavailable.
	EquityBefore *float64 `json:"equity_before,omitempty"`
	EquityAfter  *float64 `json:"equity_after,omitempty"`
}

// Duration returns the hold time, or 0 when the close date is unset.
func (t *Trade) Duration() time.Duration {
	if t.CloseDate.IsZero() || t.CloseDate.Before(t.OpenDate) {
		return 0
	}
	return t.CloseDate.Sub(t.OpenDate)
}

// ReturnRatio returns the per-trade return as a ratio of the stake.
// Falls back to ProfitAbs / StakeAmount when the ratio is absent.
// The second return is false when neither form is derivable.
func (t *Trade) ReturnRatio() (float64, bool) {
	if v, ok := finite(t.ProfitRatio); ok {
		return v, true
	}
	if v, ok := finite(t.ProfitAbs); ok && t.StakeAmount > 0 {
		return v / t.StakeAmount, true
	}
	return 0, false
}

// ProfitAbsolute returns the absolute profit in stake currency.
// Falls back to ProfitRatio * StakeAmount when the absolute is absent.
func (t *Trade) ProfitAbsolute() (float64, bool) {
	if v, ok := finite(t.ProfitAbs); ok {
		return v, true
	}
	if v, ok := finite(t.ProfitRatio); ok && t.StakeAmount > 0 {
		return v * t.StakeAmount, true
	}
	return 0, false
}

// finite dereferences p and rejects NaN/Inf. Malformed numeric fields
// are treated as absent rather than propagated into aggregates.
func finite(p *float64) (float64, bool) {
	if p == nil {
		return 0, false
	}
	v := *p
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
