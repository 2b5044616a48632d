package candles

import (
	"context"
	"sort"
	"sync"

	"backtest-doctor/internal/domain"
)

// MemoryStore is a map-backed Store for tests and fixtures.
type MemoryStore struct {
	mu     sync.RWMutex
	series map[string][]domain.Candle
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{series: make(map[string][]domain.Candle)}
}

// Compile-time interface check.
var _ Store = (*MemoryStore)(nil)

// Put stores a series under the key, sorting it ascending.
func (s *MemoryStore) Put(exchange, pair, timeframe string, series []domain.Candle) {
	cp := make([]domain.Candle, len(series))
	copy(cp, series)
	sort.Slice(cp, func(i, j int) bool {
		return cp[i].TimestampMs < cp[j].TimestampMs
	})

	s.mu.Lock()
	s.series[memKey(exchange, pair, timeframe)] = cp
	s.mu.Unlock()
}

// GetAll retrieves the full series for the key.
func (s *MemoryStore) GetAll(_ context.Context, exchange, pair, timeframe string) ([]domain.Candle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	series, ok := s.series[memKey(exchange, pair, timeframe)]
	if !ok {
		return nil, ErrNotFound
	}
	return series, nil
}

// GetRange retrieves candles within [startMs, endMs] (inclusive).
func (s *MemoryStore) GetRange(ctx context.Context, exchange, pair, timeframe string, startMs, endMs int64) ([]domain.Candle, error) {
	series, err := s.GetAll(ctx, exchange, pair, timeframe)
	if err != nil {
		return nil, err
	}
	return rangeSlice(series, startMs, endMs), nil
}

// Exists reports whether a series exists for the key.
func (s *MemoryStore) Exists(_ context.Context, exchange, pair, timeframe string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.series[memKey(exchange, pair, timeframe)]
	return ok, nil
}

func memKey(exchange, pair, timeframe string) string {
	return exchange + "|" + pair + "|" + timeframe
}
