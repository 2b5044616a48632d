// Package loader parses freqtrade backtest exports into the domain
// model. Only the fields the diagnostics consume are decoded; the
// rest of the export is ignored.
package loader

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"backtest-doctor/internal/domain"
)

// export mirrors the top level of a freqtrade backtest result file:
// one entry per strategy under "strategy".
type export struct {
	Strategy map[string]strategyResult `json:"strategy"`
}

type strategyResult struct {
	BacktestStart flexTime `json:"backtest_start"`
	BacktestEnd   flexTime `json:"backtest_end"`

	TotalTrades     int      `json:"total_trades"`
	StartingBalance *float64 `json:"starting_balance"`
	FinalBalance    *float64 `json:"final_balance"`
	ProfitTotalAbs  *float64 `json:"profit_total_abs"`
	DrawdownAbs     *float64 `json:"max_drawdown_abs"`
	StakeCurrency   string   `json:"stake_currency"`

	Timeframe     string   `json:"timeframe"`
	Exchange      string   `json:"exchange"`
	Pairlist      []string `json:"pairlist"`
	Stoploss      *float64 `json:"stoploss"`
	MaxOpenTrades int      `json:"max_open_trades"`
	Fee           float64  `json:"fee"`

	Trades []exportTrade `json:"trades"`
}

type exportTrade struct {
	Pair           string   `json:"pair"`
	OpenDate       flexTime `json:"open_date"`
	CloseDate      flexTime `json:"close_date"`
	OpenTimestamp  int64    `json:"open_timestamp"`
	CloseTimestamp int64    `json:"close_timestamp"`
	ProfitRatio    *float64 `json:"profit_ratio"`
	ProfitAbs      *float64 `json:"profit_abs"`
	StakeAmount    float64  `json:"stake_amount"`
	EnterTag       string   `json:"enter_tag"`
	ExitReason     string   `json:"exit_reason"`
	IsShort        bool     `json:"is_short"`
	IsOpen         bool     `json:"is_open"`
}

// flexTime accepts the timestamp formats freqtrade emits: RFC3339,
// "2006-01-02 15:04:05+00:00", and bare dates.
type flexTime struct {
	time.Time
}

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func (t *flexTime) UnmarshalJSON(raw []byte) error {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return err
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("unrecognized time %q", s)
}

// Load reads a freqtrade backtest export. strategyName selects one
// strategy from the file; it may be empty when the file holds exactly
// one.
func Load(path, strategyName string) (*domain.BacktestResult, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read backtest result: %w", err)
	}
	return Parse(raw, strategyName)
}

// Parse decodes an export held in memory. See Load.
func Parse(raw []byte, strategyName string) (*domain.BacktestResult, error) {
	var ex export
	if err := json.Unmarshal(raw, &ex); err != nil {
		return nil, fmt.Errorf("parse backtest result: %w", err)
	}
	if len(ex.Strategy) == 0 {
		return nil, fmt.Errorf("backtest result contains no strategies")
	}

	if strategyName == "" {
		if len(ex.Strategy) > 1 {
			return nil, fmt.Errorf("backtest result contains %d strategies (%v); pick one",
				len(ex.Strategy), strategyNames(ex.Strategy))
		}
		for name := range ex.Strategy {
			strategyName = name
		}
	}
	sr, ok := ex.Strategy[strategyName]
	if !ok {
		return nil, fmt.Errorf("strategy %q not in result (have %v)", strategyName, strategyNames(ex.Strategy))
	}

	return convert(strategyName, sr), nil
}

func convert(name string, sr strategyResult) *domain.BacktestResult {
	res := &domain.BacktestResult{
		StrategyName:    name,
		TotalTrades:     sr.TotalTrades,
		StartingBalance: sr.StartingBalance,
		FinalBalance:    sr.FinalBalance,
		ProfitTotalAbs:  sr.ProfitTotalAbs,
		MaxDrawdownAbs:  sr.DrawdownAbs,
		StakeCurrency:   sr.StakeCurrency,
		BacktestStart:   sr.BacktestStart.Time,
		BacktestEnd:     sr.BacktestEnd.Time,
		Config: domain.RunConfig{
			Exchange:      sr.Exchange,
			Timeframe:     sr.Timeframe,
			PairWhitelist: sr.Pairlist,
			Stoploss:      sr.Stoploss,
			TakerFee:      sr.Fee,
			MaxOpenTrades: sr.MaxOpenTrades,
		},
	}

	for _, et := range sr.Trades {
		if et.IsOpen {
			// Open positions have no outcome to diagnose.
			continue
		}
		t := domain.Trade{
			Pair:        et.Pair,
			OpenDate:    et.OpenDate.Time,
			CloseDate:   et.CloseDate.Time,
			ProfitRatio: et.ProfitRatio,
			ProfitAbs:   et.ProfitAbs,
			StakeAmount: et.StakeAmount,
			EnterTag:    et.EnterTag,
			ExitReason:  et.ExitReason,
			IsShort:     et.IsShort,
		}
		if t.OpenDate.IsZero() && et.OpenTimestamp > 0 {
			t.OpenDate = time.UnixMilli(et.OpenTimestamp).UTC()
		}
		if t.CloseDate.IsZero() && et.CloseTimestamp > 0 {
			t.CloseDate = time.UnixMilli(et.CloseTimestamp).UTC()
		}
		res.Trades = append(res.Trades, t)
	}
	if res.TotalTrades == 0 {
		res.TotalTrades = len(res.Trades)
	}
	return res
}

func strategyNames(m map[string]strategyResult) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
