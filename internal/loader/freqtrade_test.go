package loader

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleExport = `{
  "strategy": {
    "SampleStrategy": {
      "backtest_start": "2024-03-01 00:00:00+00:00",
      "backtest_end": "2024-03-31 00:00:00+00:00",
      "total_trades": 2,
      "starting_balance": 1000.0,
      "final_balance": 1010.0,
      "profit_total_abs": 10.0,
      "max_drawdown_abs": 5.0,
      "stake_currency": "USDT",
      "timeframe": "5m",
      "stoploss": -0.1,
      "max_open_trades": 3,
      "fee": 0.001,
      "pairlist": ["BTC/USDT", "ETH/USDT"],
      "trades": [
        {
          "pair": "BTC/USDT",
          "open_date": "2024-03-02 10:00:00+00:00",
          "close_date": "2024-03-02 11:30:00+00:00",
          "profit_ratio": 0.02,
          "profit_abs": 2.0,
          "stake_amount": 100.0,
          "enter_tag": "breakout",
          "exit_reason": "roi",
          "is_short": false,
          "is_open": false
        },
        {
          "pair": "ETH/USDT",
          "open_timestamp": 1709380800000,
          "close_timestamp": 1709384400000,
          "profit_ratio": -0.01,
          "profit_abs": -1.0,
          "stake_amount": 100.0,
          "exit_reason": "stop_loss",
          "is_open": false
        },
        {
          "pair": "BTC/USDT",
          "open_date": "2024-03-30 00:00:00+00:00",
          "profit_ratio": 0.0,
          "is_open": true
        }
      ]
    }
  }
}`

func TestParse(t *testing.T) {
	res, err := Parse([]byte(sampleExport), "")
	require.NoError(t, err)

	assert.Equal(t, "SampleStrategy", res.StrategyName)
	assert.Equal(t, 2, res.TotalTrades)
	require.NotNil(t, res.StartingBalance)
	assert.Equal(t, 1000.0, *res.StartingBalance)
	assert.Equal(t, "5m", res.Config.Timeframe)
	require.NotNil(t, res.Config.Stoploss)
	assert.Equal(t, -0.1, *res.Config.Stoploss)
	assert.Equal(t, []string{"BTC/USDT", "ETH/USDT"}, res.Config.PairWhitelist)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), res.BacktestStart)

	// The open trade is dropped.
	require.Len(t, res.Trades, 2)

	first := res.Trades[0]
	assert.Equal(t, "BTC/USDT", first.Pair)
	assert.Equal(t, time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC), first.OpenDate)
	assert.Equal(t, "breakout", first.EnterTag)
	assert.Equal(t, 90*time.Minute, first.Duration())

	// The second trade's dates come from the millisecond timestamps.
	second := res.Trades[1]
	assert.Equal(t, time.UnixMilli(1709380800000).UTC(), second.OpenDate)
	assert.Equal(t, "stop_loss", second.ExitReason)
}

func TestParse_StrategySelection(t *testing.T) {
	multi := `{"strategy": {"A": {"trades": []}, "B": {"trades": []}}}`

	_, err := Parse([]byte(multi), "")
	require.ErrorContains(t, err, "pick one")

	res, err := Parse([]byte(multi), "B")
	require.NoError(t, err)
	assert.Equal(t, "B", res.StrategyName)

	_, err = Parse([]byte(multi), "C")
	assert.ErrorContains(t, err, `strategy "C" not in result`)
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]byte("{not json"), "")
	assert.Error(t, err)

	_, err = Parse([]byte(`{"strategy": {}}`), "")
	assert.ErrorContains(t, err, "no strategies")
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "result.json")
	require.NoError(t, os.WriteFile(path, []byte(sampleExport), 0o644))

	res, err := Load(path, "SampleStrategy")
	require.NoError(t, err)
	assert.Len(t, res.Trades, 2)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"), "")
	assert.Error(t, err)
}
