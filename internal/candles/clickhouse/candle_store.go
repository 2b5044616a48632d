package clickhouse

import (
	"context"
	"fmt"

	"backtest-doctor/internal/candles"
	"backtest-doctor/internal/domain"
)

// Store implements candles.Store over a `candles` table keyed by
// (exchange, pair, timeframe, timestamp_ms). The table is maintained
// by an external ingestion job; this store only reads.
type Store struct {
	conn *Conn
}

// NewStore creates a new ClickHouse-backed candle store.
func NewStore(conn *Conn) *Store {
	return &Store{conn: conn}
}

// Compile-time interface check.
var _ candles.Store = (*Store)(nil)

// GetAll retrieves the full series, ordered by timestamp ASC.
func (s *Store) GetAll(ctx context.Context, exchange, pair, timeframe string) ([]domain.Candle, error) {
	query := `
		SELECT timestamp_ms, open, high, low, close, volume
		FROM candles
		WHERE exchange = ? AND pair = ? AND timeframe = ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, exchange, pair, timeframe)
	if err != nil {
		return nil, fmt.Errorf("query candles: %w", err)
	}
	defer rows.Close()

	series, err := scanCandles(rows)
	if err != nil {
		return nil, err
	}
	if len(series) == 0 {
		return nil, candles.ErrNotFound
	}
	return series, nil
}

// GetRange retrieves candles within [startMs, endMs] (inclusive),
// ordered by timestamp ASC.
func (s *Store) GetRange(ctx context.Context, exchange, pair, timeframe string, startMs, endMs int64) ([]domain.Candle, error) {
	exists, err := s.Exists(ctx, exchange, pair, timeframe)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, candles.ErrNotFound
	}

	query := `
		SELECT timestamp_ms, open, high, low, close, volume
		FROM candles
		WHERE exchange = ? AND pair = ? AND timeframe = ?
		  AND timestamp_ms >= ? AND timestamp_ms <= ?
		ORDER BY timestamp_ms ASC
	`

	rows, err := s.conn.Query(ctx, query, exchange, pair, timeframe, uint64(startMs), uint64(endMs))
	if err != nil {
		return nil, fmt.Errorf("query candles by range: %w", err)
	}
	defer rows.Close()

	return scanCandles(rows)
}

// Exists reports whether any candles exist for the key.
func (s *Store) Exists(ctx context.Context, exchange, pair, timeframe string) (bool, error) {
	query := `
		SELECT count(*) FROM candles
		WHERE exchange = ? AND pair = ? AND timeframe = ?
	`

	var count uint64
	err := s.conn.QueryRow(ctx, query, exchange, pair, timeframe).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("count candles: %w", err)
	}
	return count > 0, nil
}

// Rows interface for scanning
type chRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

// scanCandles scans multiple rows.
func scanCandles(rows chRows) ([]domain.Candle, error) {
	var series []domain.Candle

	for rows.Next() {
		var c domain.Candle
		var timestampMs uint64

		err := rows.Scan(&timestampMs, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume)
		if err != nil {
			return nil, fmt.Errorf("scan candle row: %w", err)
		}

		c.TimestampMs = int64(timestampMs)
		series = append(series, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candle rows: %w", err)
	}

	return series, nil
}
