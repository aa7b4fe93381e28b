package treasury

import (
	"strings"
	"sync"
	"time"

	cache "github.com/Code-Hex/go-generics-cache"
	"github.com/Code-Hex/go-generics-cache/policy/lru"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	log "github.com/sirupsen/logrus"
)

const (
	KeyMultisig      = "multisig"
	KeyTransactions  = "transactions"
	KeyBalance       = "balance"
	KeyTokenBalances = "tokenBalances"

	DefaultCacheTTL      = 30 * time.Second
	DefaultCacheCapacity = 1024
)

var cacheMetrics = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "treasury_read_cache",
		Help: "Read cache lookups by query and result",
	},
	[]string{
		"name",
		"result",
	},
)

// Invalidator drops cached reads after a successful mutation.
type Invalidator interface {
	Invalidate(keys ...string)
}

// ReadCache is an LRU of query results with a per-entry expiration.
// Keys are colon separated and start with the query name.
type ReadCache struct {
	mu    sync.Mutex
	cache *cache.Cache[string, any]
	ttl   time.Duration
}

var _ Invalidator = &ReadCache{}

func NewReadCache(capacity int, ttl time.Duration) *ReadCache {
	if capacity <= 0 {
		capacity = DefaultCacheCapacity
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &ReadCache{
		cache: cache.New(cache.AsLRU[string, any](lru.WithCapacity(capacity))),
		ttl:   ttl,
	}
}

func cacheKey(parts ...string) string {
	return strings.Join(parts, ":")
}

func metricName(key string) string {
	name, _, _ := strings.Cut(key, ":")
	return name
}

func (c *ReadCache) Get(key string) (any, bool) {
	c.mu.Lock()
	val, ok := c.cache.Get(key)
	c.mu.Unlock()

	if ok {
		cacheMetrics.WithLabelValues(metricName(key), "hit").Inc()
		return val, true
	}
	cacheMetrics.WithLabelValues(metricName(key), "miss").Inc()
	return nil, false
}

func (c *ReadCache) Set(key string, val any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Set(key, val, cache.WithExpiration(c.ttl))
}

// Invalidate removes every entry whose key is, or starts with, one of the
// given prefixes. Removing an absent key is a no-op.
func (c *ReadCache) Invalidate(prefixes ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for _, key := range c.cache.Keys() {
		for _, prefix := range prefixes {
			if key == prefix || strings.HasPrefix(key, prefix+":") {
				c.cache.Delete(key)
				removed++
				break
			}
		}
	}
	log.WithField("keys", prefixes).WithField("removed", removed).Debug("[CACHE] Invalidated")
}

func (c *ReadCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.cache.Keys())
}

// cached returns the cached value for key or loads and stores it.
func cached[V any](c *ReadCache, key string, load func() (V, error)) (V, error) {
	if val, ok := c.Get(key); ok {
		if typed, ok := val.(V); ok {
			return typed, nil
		}
	}
	val, err := load()
	if err != nil {
		return val, err
	}
	c.Set(key, val)
	return val, nil
}
