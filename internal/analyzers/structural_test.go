package analyzers

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backtest-doctor/internal/candles"
	"backtest-doctor/internal/domain"
)

const cleanStrategy = `
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

func TestAnalyzeStructural_Clean(t *testing.T) {
	var trades []domain.Trade
	for i := 0; i < 10; i++ {
		trades = append(trades, mkTrade(i*30, 15, 0.01))
	}
	rep := AnalyzeStructural(context.Background(), Input{
		Result:       mkResult(trades...),
		StrategyText: cleanStrategy,
	})

	require.NotNil(t, rep)
	assert.Equal(t, domain.VerdictPass, rep.Verdict)
	assert.True(t, rep.TimestampSequenceValid)
	assert.False(t, rep.LookaheadDetected)
	assert.Empty(t, rep.LogicIssues)
	assert.Zero(t, rep.IrregularGapCount)
}

func TestAnalyzeStructural_CloseBeforeOpen(t *testing.T) {
	bad := mkTrade(0, 15, 0.01)
	bad.CloseDate = bad.OpenDate.Add(-10 * time.Minute)

	rep := AnalyzeStructural(context.Background(), Input{
		Result:       mkResult(bad, mkTrade(30, 15, 0.01)),
		StrategyText: cleanStrategy,
	})

	assert.False(t, rep.TimestampSequenceValid)
	assert.Equal(t, domain.VerdictFail, rep.Verdict)
}

func TestAnalyzeStructural_IrregularGaps(t *testing.T) {
	// Regular 30-minute cadence, then a multi-day hole.
	var trades []domain.Trade
	for i := 0; i < 10; i++ {
		trades = append(trades, mkTrade(i*30, 15, 0.01))
	}
	trades = append(trades, mkTrade(10*24*60, 15, 0.01))

	rep := AnalyzeStructural(context.Background(), Input{
		Result:       mkResult(trades...),
		StrategyText: cleanStrategy,
	})

	// Threshold is max(60, 10*median(30)) = 300 minutes.
	assert.Equal(t, 300.0, rep.GapThresholdMin)
	assert.Equal(t, 1, rep.IrregularGapCount)
	assert.Equal(t, domain.VerdictWarn, rep.Verdict)
}

func TestAnalyzeStructural_OutOfOrderTradesWarn(t *testing.T) {
	rep := AnalyzeStructural(context.Background(), Input{
		Result:       mkResult(mkTrade(60, 15, 0.01), mkTrade(0, 15, 0.01), mkTrade(120, 15, 0.01)),
		StrategyText: cleanStrategy,
	})

	// Ordering is a warning, never a sequence-validity failure.
	assert.True(t, rep.TimestampSequenceValid)
	assert.Equal(t, domain.VerdictWarn, rep.Verdict)
	assert.Contains(t, rep.RedFlags, "trades are not in chronological order")
}

func TestAnalyzeStructural_Lookahead(t *testing.T) {
	dirty := cleanStrategy + "\n    dataframe['f'] = dataframe['close'].shift(-1)\n"
	rep := AnalyzeStructural(context.Background(), Input{
		Result:       mkResult(mkTrade(0, 15, 0.01)),
		StrategyText: dirty,
	})

	assert.True(t, rep.LookaheadDetected)
	assert.NotEmpty(t, rep.LookaheadMatches)
	assert.Equal(t, domain.VerdictFail, rep.Verdict)
}

func TestAnalyzeStructural_MissingExitMechanism(t *testing.T) {
	src := `
class NoExit(IStrategy):
    def populate_entry_trend(self, dataframe, metadata):
        dataframe.loc[(dataframe['rsi'] < 30), 'enter_long'] = 1
        return dataframe
`
	rep := AnalyzeStructural(context.Background(), Input{
		Result:       mkResult(mkTrade(0, 15, 0.01)),
		StrategyText: src,
	})

	require.NotEmpty(t, rep.LogicIssues)
	assert.Contains(t, rep.LogicIssues[0], "no exit mechanism")
	assert.Equal(t, domain.VerdictFail, rep.Verdict)
}

func TestAnalyzeStructural_PositiveStoploss(t *testing.T) {
	src := `
class Bad(IStrategy):
    minimal_roi = {"0": 0.04}
    stoploss = 0.10

    def populate_entry_trend(self, dataframe, metadata):
        dataframe.loc[(dataframe['rsi'] < 30), 'enter_long'] = 1
        return dataframe
`
	rep := AnalyzeStructural(context.Background(), Input{
		Result:       mkResult(mkTrade(0, 15, 0.01)),
		StrategyText: src,
	})

	require.NotEmpty(t, rep.LogicIssues)
	found := false
	for _, issue := range rep.LogicIssues {
		if strings.Contains(issue, "wrong sign") {
			found = true
		}
	}
	assert.True(t, found, "expected a wrong-sign stoploss issue, got %v", rep.LogicIssues)
	assert.Equal(t, domain.VerdictFail, rep.Verdict)
}

func TestAnalyzeStructural_OHLCVContinuity(t *testing.T) {
	store := candles.NewMemoryStore()
	series := make([]domain.Candle, 0, 10)
	for i := 0; i < 10; i++ {
		if i == 5 {
			continue // one missing candle
		}
		series = append(series, domain.Candle{
			TimestampMs: baseTime.UnixMilli() + int64(i)*5*60*1000,
			Open:        100, High: 101, Low: 99, Close: 100, Volume: 10,
		})
	}
	store.Put("binance", "BTC/USDT", "5m", series)

	res := mkResult(mkTrade(0, 15, 0.01))
	res.Config.PairWhitelist = []string{"BTC/USDT", "ETH/USDT"}

	rep := AnalyzeStructural(context.Background(), Input{
		Result:       res,
		StrategyText: cleanStrategy,
		Candles:      store,
	})

	assert.True(t, rep.OHLCVChecked)
	assert.Equal(t, 1, rep.MissingCandleFiles) // ETH/USDT absent
	assert.Equal(t, 1, rep.CandleGapCount)
	assert.Equal(t, domain.VerdictFail, rep.Verdict)
}

func TestAnalyzeStructural_NoStore(t *testing.T) {
	rep := AnalyzeStructural(context.Background(), Input{
		Result:       mkResult(mkTrade(0, 15, 0.01)),
		StrategyText: cleanStrategy,
	})
	assert.False(t, rep.OHLCVChecked)
	assert.Zero(t, rep.MissingCandleFiles)
}

func TestAnalyzeStructural_EmptyResult(t *testing.T) {
	rep := AnalyzeStructural(context.Background(), Input{
		Result:       mkResult(),
		StrategyText: cleanStrategy,
	})
	assert.Equal(t, domain.VerdictWarn, rep.Verdict)
	assert.Contains(t, rep.RedFlags, "no trades in backtest result")
}
