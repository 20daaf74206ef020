package backtest

import (
	"fmt"
	"sync"
	"time"

	"github.com/jwliu/vantage/internal/contracts"
)

// memoCache memoizes trailing-bar fetches for the duration of one
// backtest run. Overlapping forward windows of nearby entry dates hit
// the same (stock, date, lookback) keys repeatedly. Safe for
// concurrent use; never shared across runs.
type memoCache struct {
	mu   sync.RWMutex
	bars map[string][]contracts.DailyBar
}

func newMemoCache() *memoCache {
	return &memoCache{
		bars: make(map[string][]contracts.DailyBar),
	}
}

// barKey includes every parameter that affects the fetched series.
func barKey(code string, date time.Time, limit int) string {
	return fmt.Sprintf("%s|%s|%d", code, date.Format("20060102"), limit)
}

func (m *memoCache) get(key string) ([]contracts.DailyBar, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	bars, ok := m.bars[key]
	return bars, ok
}

func (m *memoCache) put(key string, bars []contracts.DailyBar) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bars[key] = bars
}

// size reports cached entries, for run diagnostics.
func (m *memoCache) size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.bars)
}
