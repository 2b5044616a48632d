// Package candles provides read-only access to OHLCV candle series
// keyed by (exchange, pair, timeframe).
package candles

import (
	"context"
	"errors"

	"backtest-doctor/internal/domain"
)

// Store errors.
var (
	// ErrNotFound is returned when no series exists for the requested
	// (exchange, pair, timeframe) key.
	ErrNotFound = errors.New("candle series not found")

	// ErrInvalidTimeframe is returned for unparsable timeframe strings.
	ErrInvalidTimeframe = errors.New("invalid timeframe")
)

// Store provides access to candle series. Series are returned sorted
// ascending by timestamp; implementations must not mutate returned
// slices after handing them out.
type Store interface {
	// GetAll retrieves the full series. Returns ErrNotFound if the
	// series does not exist.
	GetAll(ctx context.Context, exchange, pair, timeframe string) ([]domain.Candle, error)

	// GetRange retrieves candles within [startMs, endMs] (inclusive).
	// Returns ErrNotFound if the series does not exist.
	GetRange(ctx context.Context, exchange, pair, timeframe string, startMs, endMs int64) ([]domain.Candle, error)

	// Exists reports whether a series exists for the key.
	Exists(ctx context.Context, exchange, pair, timeframe string) (bool, error)
}

// rangeSlice cuts a sorted series down to [startMs, endMs] using
// binary search over the timestamps.
func rangeSlice(series []domain.Candle, startMs, endMs int64) []domain.Candle {
	lo := searchTimestamp(series, startMs)
	hi := searchTimestamp(series, endMs+1)
	return series[lo:hi]
}

// searchTimestamp returns the index of the first candle with
// timestamp >= ts.
func searchTimestamp(series []domain.Candle, ts int64) int {
	lo, hi := 0, len(series)
	for lo < hi {
		mid := (lo + hi) / 2
		if series[mid].TimestampMs < ts {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo
}
