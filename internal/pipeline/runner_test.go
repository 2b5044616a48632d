package pipeline

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backtest-doctor/internal/domain"
	"backtest-doctor/internal/ranking"
)

var testStart = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

const testStrategy = `
class SampleStrategy(IStrategy):
    minimal_roi = {"0": 0.04}
    stoploss = -0.10

    def populate_entry_trend(self, dataframe, metadata):
        dataframe.loc[(dataframe['rsi'] < 30), 'enter_long'] = 1
        return dataframe

    def populate_exit_trend(self, dataframe, metadata):
        dataframe.loc[(dataframe['rsi'] > 70), 'exit_long'] = 1
        return dataframe
`

func ratioPtr(v float64) *float64 { return &v }

// lossyResult is 40 trades at 60% win rate with +1%/-2% payoffs:
// expectancy -0.002.
func lossyResult() *domain.BacktestResult {
	var trades []domain.Trade
	for i := 0; i < 40; i++ {
		ratio := 0.01
		reason := "roi"
		if i%5 >= 3 {
			ratio = -0.02
			reason = "stop_loss"
		}
		open := testStart.Add(time.Duration(i) * time.Hour)
		trades = append(trades, domain.Trade{
			Pair:        "BTC/USDT",
			OpenDate:    open,
			CloseDate:   open.Add(30 * time.Minute),
			ProfitRatio: ratioPtr(ratio),
			StakeAmount: 100,
			ExitReason:  reason,
		})
	}
	return &domain.BacktestResult{
		StrategyName: "SampleStrategy",
		Trades:       trades,
		TotalTrades:  len(trades),
		Config:       domain.RunConfig{Exchange: "binance", Timeframe: "5m"},
	}
}

func fixedClock() func() time.Time {
	at := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return at }
}

func TestRunner_NegativeExpectancyScenario(t *testing.T) {
	rep, err := NewRunner().WithClock(fixedClock()).Run(context.Background(), lossyResult(), testStrategy)
	require.NoError(t, err)

	// All nine phases produced a report.
	require.NotNil(t, rep.Structural)
	require.NotNil(t, rep.Performance)
	require.NotNil(t, rep.Drawdown)
	require.NotNil(t, rep.Entry)
	require.NotNil(t, rep.Exit)
	require.NotNil(t, rep.RegimeAsset)
	require.NotNil(t, rep.Cost)
	require.NotNil(t, rep.Logic)
	require.NotNil(t, rep.Stats)
	require.NotNil(t, rep.Summary)
	require.NotNil(t, rep.Diagnosis)

	assert.InDelta(t, -0.002, rep.Performance.Expectancy, 1e-9)

	// The ranked diagnosis lands on negative expectancy (stats can
	// only outrank it via the summary, not the signal table).
	require.NotEmpty(t, rep.Diagnosis.Signals)
	ids := make([]string, 0, len(rep.Diagnosis.Signals))
	for _, s := range rep.Diagnosis.Signals {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, ranking.SigNegativeExpectancy, ids[0], "signals: %v", ids)
	assert.Contains(t, rep.Diagnosis.KillerMetric, "expectancy=-0.0020")
}

func TestRunner_NoTradesScenario(t *testing.T) {
	res := &domain.BacktestResult{
		StrategyName:  "SampleStrategy",
		BacktestStart: testStart,
		BacktestEnd:   testStart.Add(30 * 24 * time.Hour),
		Config:        domain.RunConfig{Exchange: "binance", Timeframe: "5m"},
	}
	rep, err := NewRunner().Run(context.Background(), res, testStrategy)
	require.NoError(t, err)

	require.NotEmpty(t, rep.Diagnosis.Signals)
	assert.Equal(t, ranking.SigNoTrades, rep.Diagnosis.Signals[0].ID)
	assert.Equal(t, "over-filtered: no trades executed", rep.Performance.Diagnosis)
}

func TestRunner_LookaheadScenario(t *testing.T) {
	dirty := testStrategy + "\n    dataframe['f'] = dataframe['close'].shift(-1)\n"

	rep, err := NewRunner().Run(context.Background(), lossyResult(), dirty)
	require.NoError(t, err)
	require.NotEmpty(t, rep.Diagnosis.Signals)
	assert.Equal(t, ranking.SigLookahead, rep.Diagnosis.Signals[0].ID)
	assert.True(t, rep.Structural.LookaheadDetected)
	assert.True(t, rep.Logic.LookaheadDetected)

	// Removing the offending line clears the signal entirely.
	clean, err := NewRunner().Run(context.Background(), lossyResult(), testStrategy)
	require.NoError(t, err)
	for _, s := range clean.Diagnosis.Signals {
		assert.NotEqual(t, ranking.SigLookahead, s.ID)
	}
}

func TestRunner_Deterministic(t *testing.T) {
	a, err := NewRunner().WithClock(fixedClock()).Run(context.Background(), lossyResult(), testStrategy)
	require.NoError(t, err)
	b, err := NewRunner().WithClock(fixedClock()).Run(context.Background(), lossyResult(), testStrategy)
	require.NoError(t, err)

	assert.Equal(t, a.Metadata.ReportID, b.Metadata.ReportID)
	assert.True(t, strings.HasPrefix(a.Metadata.ReportID, "diag_"))
	assert.Equal(t, a.Diagnosis, b.Diagnosis)
	assert.Equal(t, a.Summary, b.Summary)
}

func TestRunner_WeightOverride(t *testing.T) {
	w := ranking.DefaultWeights()
	w[ranking.SigStopPlacement] = 99

	rep, err := NewRunner().WithWeights(w).Run(context.Background(), lossyResult(), testStrategy)
	require.NoError(t, err)

	require.NotEmpty(t, rep.Diagnosis.Signals)
	assert.Equal(t, ranking.SigStopPlacement, rep.Diagnosis.Signals[0].ID)
}

func TestRunner_NilResult(t *testing.T) {
	_, err := NewRunner().Run(context.Background(), nil, testStrategy)
	assert.ErrorIs(t, err, ErrNoResult)
}

func TestRunner_Metadata(t *testing.T) {
	rep, err := NewRunner().WithClock(fixedClock()).Run(context.Background(), lossyResult(), testStrategy)
	require.NoError(t, err)

	md := rep.Metadata
	assert.Equal(t, "SampleStrategy", md.StrategyName)
	assert.Equal(t, "5m", md.Timeframe)
	assert.Equal(t, "2024-03-01..2024-03-02", md.Timerange)
	assert.Equal(t, fixedClock()(), md.GeneratedAt)
}
