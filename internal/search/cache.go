package search

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jonboulle/clockwork"

	"ygodeck/internal/catalog"
)

// Cache defaults.
const (
	DefaultCacheSize = 100
	DefaultTTL       = 2 * time.Minute
	DefaultHotTTL    = 30 * time.Second
	// DefaultHotReads is how many reads an entry takes before HotTTL applies.
	DefaultHotReads = 3
)

type cacheEntry struct {
	cards     []catalog.Card
	fetchedAt time.Time
	reads     int
}

// Cache holds recent search results. Entries expire after TTL, or after
// HotTTL once they have been read more than HotReads times. When full, the
// entry written longest ago is evicted; reads do not refresh recency.
type Cache struct {
	mu       sync.Mutex
	entries  *lru.Cache[string, *cacheEntry]
	clock    clockwork.Clock
	ttl      time.Duration
	hotTTL   time.Duration
	hotReads int
}

// CacheConfig tunes a Cache. Zero values take the defaults.
type CacheConfig struct {
	Size     int
	TTL      time.Duration
	HotTTL   time.Duration
	HotReads int
	Clock    clockwork.Clock
}

// NewCache builds a Cache.
func NewCache(cfg CacheConfig) *Cache {
	if cfg.Size <= 0 {
		cfg.Size = DefaultCacheSize
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.HotTTL <= 0 {
		cfg.HotTTL = DefaultHotTTL
	}
	if cfg.HotReads <= 0 {
		cfg.HotReads = DefaultHotReads
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	// lru.New only fails for a non-positive size.
	entries, _ := lru.New[string, *cacheEntry](cfg.Size)
	return &Cache{
		entries:  entries,
		clock:    cfg.Clock,
		ttl:      cfg.TTL,
		hotTTL:   cfg.HotTTL,
		hotReads: cfg.HotReads,
	}
}

// Put stores a fetch result. The read count of an existing entry carries
// over so a popular query keeps its short TTL.
func (c *Cache) Put(key string, cards []catalog.Card) {
	c.mu.Lock()
	defer c.mu.Unlock()

	reads := 0
	if old, ok := c.entries.Peek(key); ok {
		reads = old.reads
	}
	c.entries.Add(key, &cacheEntry{
		cards:     cards,
		fetchedAt: c.clock.Now(),
		reads:     reads,
	})
}

// Get returns a fresh entry and counts the read. Expired entries are
// reported as misses but kept for Stale.
func (c *Cache) Get(key string) ([]catalog.Card, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries.Peek(key)
	if !ok || !c.fresh(e) {
		return nil, false
	}
	e.reads++
	return e.cards, true
}

// Stale returns an entry regardless of age.
func (c *Cache) Stale(key string) ([]catalog.Card, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries.Peek(key)
	if !ok {
		return nil, false
	}
	return e.cards, true
}

// Len reports the number of entries held, fresh or not.
func (c *Cache) Len() int {
	return c.entries.Len()
}

func (c *Cache) fresh(e *cacheEntry) bool {
	ttl := c.ttl
	if e.reads > c.hotReads {
		ttl = c.hotTTL
	}
	return c.clock.Since(e.fetchedAt) < ttl
}
