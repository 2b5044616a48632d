package candles

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"backtest-doctor/internal/domain"
)

// FileStore reads candle series from a per-exchange directory of JSON
// files in the conventional layout:
//
//	<dir>/<exchange>/<PAIR with "/" replaced by "_">-<timeframe>.json
//
// Each file is a JSON array of [timestamp, open, high, low, close,
// volume] tuples sorted ascending. Loaded series are cached; files are
// never written.
type FileStore struct {
	dir string

	mu    sync.RWMutex
	cache map[string][]domain.Candle
}

// NewFileStore creates a FileStore rooted at dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{
		dir:   dir,
		cache: make(map[string][]domain.Candle),
	}
}

// Compile-time interface check.
var _ Store = (*FileStore)(nil)

// GetAll retrieves the full series for the key.
func (s *FileStore) GetAll(_ context.Context, exchange, pair, timeframe string) ([]domain.Candle, error) {
	return s.load(exchange, pair, timeframe)
}

// GetRange retrieves candles within [startMs, endMs] (inclusive).
func (s *FileStore) GetRange(_ context.Context, exchange, pair, timeframe string, startMs, endMs int64) ([]domain.Candle, error) {
	series, err := s.load(exchange, pair, timeframe)
	if err != nil {
		return nil, err
	}
	return rangeSlice(series, startMs, endMs), nil
}

// Exists reports whether the series file is present on disk.
func (s *FileStore) Exists(_ context.Context, exchange, pair, timeframe string) (bool, error) {
	_, err := os.Stat(s.path(exchange, pair, timeframe))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat candle file: %w", err)
	}
	return true, nil
}

// path builds the conventional file path for a series key.
func (s *FileStore) path(exchange, pair, timeframe string) string {
	name := strings.ReplaceAll(pair, "/", "_") + "-" + timeframe + ".json"
	return filepath.Join(s.dir, strings.ToLower(exchange), name)
}

func (s *FileStore) load(exchange, pair, timeframe string) ([]domain.Candle, error) {
	key := exchange + "|" + pair + "|" + timeframe

	s.mu.RLock()
	series, ok := s.cache[key]
	s.mu.RUnlock()
	if ok {
		return series, nil
	}

	data, err := os.ReadFile(s.path(exchange, pair, timeframe))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read candle file: %w", err)
	}

	if err := json.Unmarshal(data, &series); err != nil {
		// Malformed files degrade to "no data" rather than failing
		// the whole diagnostic run.
		return nil, fmt.Errorf("%w: malformed candle file for %s %s %s", ErrNotFound, exchange, pair, timeframe)
	}

	// Files are written sorted, but the contract is ascending order.
	sort.Slice(series, func(i, j int) bool {
		return series[i].TimestampMs < series[j].TimestampMs
	})

	s.mu.Lock()
	s.cache[key] = series
	s.mu.Unlock()

	return series, nil
}
