package giphy

import (
	"sync"
	"time"
)

type cachedGif struct {
	gif      *Gif
	cachedAt time.Time
}

// gifCache is a TTL cache for Giphy API lookups, keyed by raw Giphy id.
// Giphy rate-limits per key, so repeated thumbnail loads of the same GIF
// should not hit the API every time.
type gifCache struct {
	store sync.Map // map[string]*cachedGif
	ttl   time.Duration
}

func newGifCache(ttl time.Duration) *gifCache {
	return &gifCache{ttl: ttl}
}

func (c *gifCache) Get(id string) (*Gif, bool) {
	val, ok := c.store.Load(id)
	if !ok {
		return nil, false
	}

	entry := val.(*cachedGif)
	if time.Since(entry.cachedAt) > c.ttl {
		c.store.Delete(id)
		return nil, false
	}

	return entry.gif, true
}

func (c *gifCache) Set(id string, gif *Gif) {
	c.store.Store(id, &cachedGif{gif: gif, cachedAt: time.Now()})
}
