package advisor

import (
	"slices"
	"sync"

	"github.com/golang/groupcache/lru"

	"github.com/bobmcallan/rebal/internal/models"
)

// memo is a bounded, mutex-guarded cache of engine outputs keyed by fingerprint.
// Every get and put copies the analysis, so callers own what they receive.
type memo struct {
	mu     sync.Mutex
	cache  *lru.Cache
	hits   uint64
	misses uint64
}

func newMemo(size int) *memo {
	if size <= 0 {
		size = 1
	}
	return &memo{cache: lru.New(size)}
}

func (m *memo) get(key string) (*models.PortfolioAnalysis, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.cache.Get(key)
	if !ok {
		m.misses++
		return nil, false
	}
	m.hits++
	return cloneAnalysis(v.(*models.PortfolioAnalysis)), true
}

func (m *memo) put(key string, a *models.PortfolioAnalysis) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache.Add(key, cloneAnalysis(a))
}

func cloneAnalysis(a *models.PortfolioAnalysis) *models.PortfolioAnalysis {
	c := *a
	c.ConcentrationRisks = slices.Clone(a.ConcentrationRisks)
	c.Recommendations = slices.Clone(a.Recommendations)
	return &c
}

// MemoStats reports memo usage.
type MemoStats struct {
	Entries int    `json:"entries"`
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
}

func (m *memo) stats() MemoStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return MemoStats{Entries: m.cache.Len(), Hits: m.hits, Misses: m.misses}
}
