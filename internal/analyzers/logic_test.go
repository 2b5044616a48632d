package analyzers

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backtest-doctor/internal/domain"
)

func TestAnalyzeLogic_SimpleStrategyLowRisk(t *testing.T) {
	rep := AnalyzeLogic(context.Background(), Input{StrategyText: cleanStrategy})
	require.NotNil(t, rep)

	assert.False(t, rep.LookaheadDetected)
	assert.Equal(t, domain.OverfitRiskLow, rep.OverfitRisk)
	assert.Equal(t, domain.VerdictPass, rep.Verdict)
	assert.Less(t, rep.ComplexityScore, 45)
}

func TestAnalyzeLogic_Lookahead(t *testing.T) {
	src := cleanStrategy + "\n    dataframe['f'] = dataframe['close'].shift(-2)\n"
	rep := AnalyzeLogic(context.Background(), Input{StrategyText: src})

	assert.True(t, rep.LookaheadDetected)
	assert.Equal(t, domain.VerdictFail, rep.Verdict)
}

func TestAnalyzeLogic_OverfitHigh(t *testing.T) {
	// Many indicators with hand-tuned periods.
	src := `
class Kitchen(IStrategy):
    stoploss = -0.10

    def populate_indicators(self, dataframe, metadata):
        dataframe['rsi'] = ta.RSI(dataframe, timeperiod=13)
        dataframe['ema_a'] = ta.EMA(dataframe, timeperiod=17)
        dataframe['ema_b'] = ta.EMA(dataframe, timeperiod=18)
        dataframe['sma_a'] = ta.SMA(dataframe, timeperiod=33)
        dataframe['adx'] = ta.ADX(dataframe, timeperiod=11)
        dataframe['cci'] = ta.CCI(dataframe, timeperiod=37)
        dataframe['mfi'] = ta.MFI(dataframe, timeperiod=41)
        dataframe['atr'] = ta.ATR(dataframe, timeperiod=23)
        dataframe['willr'] = ta.WILLR(dataframe, timeperiod=19)
        dataframe['mom'] = ta.MOM(dataframe, timeperiod=29)
        return dataframe

    def populate_entry_trend(self, dataframe, metadata):
        dataframe.loc[
            (
                (dataframe['rsi'] < 27) &
                (dataframe['adx'] > 23) &
                (dataframe['cci'] < -93) &
                (dataframe['mfi'] < 17) &
                (dataframe['willr'] < -81)
            ),
            'enter_long'] = 1
        return dataframe
`
	rep := AnalyzeLogic(context.Background(), Input{StrategyText: src})

	assert.GreaterOrEqual(t, len(rep.MagicParams), 8)
	assert.Equal(t, domain.OverfitRiskHigh, rep.OverfitRisk)
	assert.Equal(t, domain.VerdictWarn, rep.Verdict)
	found := false
	for _, f := range rep.RedFlags {
		if strings.Contains(f, "curve-fit") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestAnalyzeLogic_RedundantIndicators(t *testing.T) {
	src := cleanStrategy + `
    def populate_indicators(self, dataframe, metadata):
        dataframe['ema_20'] = ta.EMA(dataframe, timeperiod=20)
        dataframe['ema_21'] = ta.EMA(dataframe, timeperiod=21)
        return dataframe
`
	rep := AnalyzeLogic(context.Background(), Input{StrategyText: src})

	require.NotEmpty(t, rep.RedundantIndicators)
	found := false
	for _, f := range rep.RedFlags {
		if strings.Contains(f, "redundant indicator pair") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestAnalyzeLogic_StructureIssues(t *testing.T) {
	src := `
class Mixed(IStrategy):
    stoploss = -0.10

    def populate_entry_trend(self, dataframe, metadata):
        dataframe.loc[(dataframe['rsi'] < 30), 'enter_long'] = 1
        dataframe.loc[(dataframe['rsi'] > 70), 'exit_long'] = 1
        return dataframe
`
	rep := AnalyzeLogic(context.Background(), Input{StrategyText: src})

	require.NotEmpty(t, rep.StructureIssues)
	assert.Equal(t, domain.VerdictWarn, rep.Verdict)
}

func TestAnalyzeLogic_NoSource(t *testing.T) {
	rep := AnalyzeLogic(context.Background(), Input{})
	assert.Equal(t, domain.VerdictWarn, rep.Verdict)
	assert.Equal(t, domain.OverfitRiskLow, rep.OverfitRisk)
}
