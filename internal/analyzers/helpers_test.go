package analyzers

import (
	"time"

	"backtest-doctor/internal/domain"
)

var baseTime = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func f64(v float64) *float64 { return &v }

type tradeOpt func(*domain.Trade)

func withPair(p string) tradeOpt {
	return func(t *domain.Trade) { t.Pair = p }
}

func withTag(tag string) tradeOpt {
	return func(t *domain.Trade) { t.EnterTag = tag }
}

func withExitReason(r string) tradeOpt {
	return func(t *domain.Trade) { t.ExitReason = r }
}

func withShort() tradeOpt {
	return func(t *domain.Trade) { t.IsShort = true }
}

func withStake(s float64) tradeOpt {
	return func(t *domain.Trade) { t.StakeAmount = s }
}

func withEquity(before, after float64) tradeOpt {
	return func(t *domain.Trade) {
		t.EquityBefore = f64(before)
		t.EquityAfter = f64(after)
	}
}

// mkTrade builds a closed trade opening offsetMin minutes after
// baseTime, held for holdMin minutes, with the given return ratio and
// a 100-unit stake.
func mkTrade(offsetMin, holdMin int, ratio float64, opts ...tradeOpt) domain.Trade {
	open := baseTime.Add(time.Duration(offsetMin) * time.Minute)
	t := domain.Trade{
		Pair:        "BTC/USDT",
		OpenDate:    open,
		CloseDate:   open.Add(time.Duration(holdMin) * time.Minute),
		ProfitRatio: f64(ratio),
		StakeAmount: 100,
	}
	for _, opt := range opts {
		opt(&t)
	}
	return t
}

// mkResult wraps trades in a result with a plain run config.
func mkResult(trades ...domain.Trade) *domain.BacktestResult {
	return &domain.BacktestResult{
		StrategyName: "SampleStrategy",
		Trades:       trades,
		TotalTrades:  len(trades),
		Config: domain.RunConfig{
			Exchange:  "binance",
			Timeframe: "5m",
		},
	}
}
