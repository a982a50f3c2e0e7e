// Package assetcache memoizes foreign asset lookups: (origin chain, origin address, destination chain) to the address
// of the asset's representation on the destination chain.
//
// Bridge registrations are permanent, so an entry is never overwritten once stored. Lookups that race on the same
// key may both miss and both query the chain; whichever Add lands first wins and the others converge to it.
package assetcache

import (
	"fmt"
	"sync"

	"github.com/certusone/wormhole/connect/pkg/vaa"
	lru "github.com/hashicorp/golang-lru"
)

type Key struct {
	OriginChain   vaa.ChainID
	OriginAddress string
	DestChain     vaa.ChainID
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s->%s", k.OriginChain, k.OriginAddress, k.DestChain)
}

// Cache is safe for concurrent use. By default it is unbounded and grows for the lifetime of the process.
type Cache struct {
	mu      sync.RWMutex
	entries map[Key]string

	// bounded replaces entries when WithSize is used.
	bounded *lru.Cache
}

type Option func(*Cache) error

// WithSize bounds the cache to size entries with least-recently-used eviction. An evicted entry is simply looked up
// again on the next miss.
func WithSize(size int) Option {
	return func(c *Cache) error {
		if size <= 0 {
			return nil
		}
		l, err := lru.New(size)
		if err != nil {
			return fmt.Errorf("failed to create lru cache: %w", err)
		}
		c.bounded = l
		return nil
	}
}

func New(opts ...Option) (*Cache, error) {
	c := &Cache{entries: make(map[Key]string)}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Cache) Get(k Key) (string, bool) {
	v, ok := c.get(k)
	if ok {
		cacheHits.Inc()
	} else {
		cacheMisses.Inc()
	}
	return v, ok
}

func (c *Cache) get(k Key) (string, bool) {
	if c.bounded != nil {
		v, ok := c.bounded.Get(k)
		if !ok {
			return "", false
		}
		return v.(string), true //nolint:forcetypeassert
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[k]
	return v, ok
}

// Add stores v under k unless k is already present, and returns the value held by the cache afterwards.
func (c *Cache) Add(k Key, v string) string {
	if c.bounded != nil {
		if found, _ := c.bounded.ContainsOrAdd(k, v); found {
			if existing, ok := c.bounded.Get(k); ok {
				return existing.(string) //nolint:forcetypeassert
			}
		}
		return v
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.entries[k]; ok {
		return existing
	}
	c.entries[k] = v
	return v
}

func (c *Cache) Len() int {
	if c.bounded != nil {
		return c.bounded.Len()
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
