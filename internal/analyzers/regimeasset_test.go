package analyzers

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"backtest-doctor/internal/candles"
	"backtest-doctor/internal/domain"
)

func TestAnalyzeRegimeAsset_CalendarFallback(t *testing.T) {
	// No candle store: segmentation falls back to ISO weeks.
	var trades []domain.Trade
	for i := 0; i < 5; i++ {
		trades = append(trades, mkTrade(i*60, 30, 0.01))
	}
	for i := 0; i < 5; i++ {
		trades = append(trades, mkTrade(14*24*60+i*60, 30, -0.02))
	}

	rep := AnalyzeRegimeAsset(context.Background(), Input{Result: mkResult(trades...)})
	require.NotNil(t, rep)

	assert.Equal(t, domain.RegimeSourceCalendar, rep.RegimeSource)
	require.Len(t, rep.RegimeStats, 2)
	assert.True(t, rep.RegimeDependence)
	assert.Equal(t, domain.VerdictWarn, rep.Verdict)
}

func TestAnalyzeRegimeAsset_BenchmarkRegimes(t *testing.T) {
	// A long rising series so the classifier emits real trend labels.
	store := candles.NewMemoryStore()
	series := make([]domain.Candle, 200)
	for i := range series {
		price := 100 + float64(i)
		series[i] = domain.Candle{
			TimestampMs: baseTime.UnixMilli() + int64(i)*5*60*1000,
			Open:        price, High: price + 1, Low: price - 1, Close: price, Volume: 10,
		}
	}
	store.Put("binance", "BTC/USDT", "5m", series)

	// Open trades well past the classifier warmup.
	var trades []domain.Trade
	for i := 0; i < 6; i++ {
		trades = append(trades, mkTrade(500+i*30, 15, 0.01))
	}

	rep := AnalyzeRegimeAsset(context.Background(), Input{
		Result:        mkResult(trades...),
		Candles:       store,
		BenchmarkPair: "BTC/USDT",
	})

	assert.Equal(t, domain.RegimeSourceBenchmark, rep.RegimeSource)
	require.NotEmpty(t, rep.RegimeStats)
	assert.True(t, strings.HasPrefix(rep.RegimeStats[0].Label, "up/"))
}

func TestAnalyzeRegimeAsset_BenchmarkMissingFallsBack(t *testing.T) {
	rep := AnalyzeRegimeAsset(context.Background(), Input{
		Result:        mkResult(mkTrade(0, 30, 0.01)),
		Candles:       candles.NewMemoryStore(),
		BenchmarkPair: "BTC/USDT",
	})

	assert.Equal(t, domain.RegimeSourceCalendar, rep.RegimeSource)
	found := false
	for _, f := range rep.RegimeRedFlags {
		if strings.Contains(f, "falling back") {
			found = true
		}
	}
	assert.True(t, found)
}

func TestAnalyzeRegimeAsset_PairConcentration(t *testing.T) {
	trades := []domain.Trade{
		mkTrade(0, 30, 0.30, withPair("DOGE/USDT")),
		mkTrade(60, 30, 0.01, withPair("BTC/USDT")),
		mkTrade(120, 30, 0.01, withPair("ETH/USDT")),
	}
	rep := AnalyzeRegimeAsset(context.Background(), Input{Result: mkResult(trades...)})

	require.NotEmpty(t, rep.PairStats)
	assert.Equal(t, "DOGE/USDT", rep.PairStats[0].Pair)
	assert.GreaterOrEqual(t, rep.TopPairShare, topPairLimitPct)
	require.NotEmpty(t, rep.ConcentrationRedFlags)
	assert.Contains(t, rep.ConcentrationRedFlags[0], "DOGE/USDT")
}

func TestAnalyzeRegimeAsset_ConcentrationBoundary(t *testing.T) {
	// Exactly half of gross PnL on one pair is concentrated.
	trades := []domain.Trade{
		mkTrade(0, 30, 0.01, withPair("BTC/USDT")),
		mkTrade(60, 30, -0.01, withPair("ETH/USDT")),
	}
	rep := AnalyzeRegimeAsset(context.Background(), Input{Result: mkResult(trades...)})

	assert.InDelta(t, 0.5, rep.TopPairShare, 1e-12)
	require.NotEmpty(t, rep.ConcentrationRedFlags)
	assert.Contains(t, rep.ConcentrationRedFlags[0], "carries 50%")

	// A hair under half is not.
	trades = []domain.Trade{
		mkTrade(0, 30, 0.499999, withPair("BTC/USDT")),
		mkTrade(60, 30, -0.2500005, withPair("ETH/USDT")),
		mkTrade(120, 30, -0.2500005, withPair("XRP/USDT")),
	}
	rep = AnalyzeRegimeAsset(context.Background(), Input{Result: mkResult(trades...)})

	assert.InDelta(t, 0.499999, rep.TopPairShare, 1e-6)
	assert.Less(t, rep.TopPairShare, topPairLimitPct)
	assert.Empty(t, rep.ConcentrationRedFlags)
}

func TestAnalyzeRegimeAsset_Top3Concentration(t *testing.T) {
	trades := []domain.Trade{
		mkTrade(0, 30, 0.10, withPair("A/USDT")),
		mkTrade(60, 30, 0.10, withPair("B/USDT")),
		mkTrade(120, 30, 0.08, withPair("C/USDT")),
		mkTrade(180, 30, 0.01, withPair("D/USDT")),
		mkTrade(240, 30, 0.01, withPair("E/USDT")),
	}
	rep := AnalyzeRegimeAsset(context.Background(), Input{Result: mkResult(trades...)})

	assert.GreaterOrEqual(t, rep.Top3Share, top3LimitPct)
	found := false
	for _, f := range rep.ConcentrationRedFlags {
		if strings.Contains(f, "top 3 pairs") {
			found = true
		}
	}
	assert.True(t, found, "got %v", rep.ConcentrationRedFlags)
}

func TestAnalyzeRegimeAsset_BalancedPass(t *testing.T) {
	trades := []domain.Trade{
		mkTrade(0, 30, 0.01, withPair("BTC/USDT")),
		mkTrade(60, 30, 0.01, withPair("ETH/USDT")),
		mkTrade(120, 30, 0.01, withPair("SOL/USDT")),
	}
	rep := AnalyzeRegimeAsset(context.Background(), Input{Result: mkResult(trades...)})

	assert.Empty(t, rep.ConcentrationRedFlags)
	assert.False(t, rep.RegimeDependence)
	assert.Equal(t, domain.VerdictPass, rep.Verdict)
}

func TestAnalyzeRegimeAsset_NoTrades(t *testing.T) {
	rep := AnalyzeRegimeAsset(context.Background(), Input{Result: mkResult()})
	assert.Equal(t, domain.RegimeSourceNone, rep.RegimeSource)
	assert.Equal(t, domain.VerdictWarn, rep.Verdict)
}
