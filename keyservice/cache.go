package keyservice

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"xdao.co/graphwire/reference"
)

// Cache remembers fetched keys for TTL and coalesces concurrent fetches of
// the same identifier into one call to Source.
type Cache struct {
	source reference.KeyFetcher
	ttl    time.Duration
	now    func() time.Time

	group singleflight.Group

	mu      sync.Mutex
	entries map[string]cached
}

type cached struct {
	publicKey string
	at        time.Time
}

// NewCache wraps source. A zero ttl caches until Invalidate.
func NewCache(source reference.KeyFetcher, ttl time.Duration) *Cache {
	return &Cache{source: source, ttl: ttl, now: time.Now, entries: make(map[string]cached)}
}

func (c *Cache) Fetch(ctx context.Context, identifier string) (string, error) {
	if pub, ok := c.lookup(identifier); ok {
		return pub, nil
	}
	// The shared fetch outlives any one caller; each caller still stops
	// waiting when its own context ends.
	shared := context.WithoutCancel(ctx)
	ch := c.group.DoChan(identifier, func() (interface{}, error) {
		pub, err := c.source.Fetch(shared, identifier)
		if err != nil {
			return "", err
		}
		c.mu.Lock()
		c.entries[identifier] = cached{publicKey: pub, at: c.now()}
		c.mu.Unlock()
		return pub, nil
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// Invalidate drops identifier, e.g. after it was revoked.
func (c *Cache) Invalidate(identifier string) {
	c.mu.Lock()
	delete(c.entries, identifier)
	c.mu.Unlock()
}

func (c *Cache) lookup(identifier string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[identifier]
	if !ok {
		return "", false
	}
	if c.ttl > 0 && c.now().Sub(e.at) >= c.ttl {
		delete(c.entries, identifier)
		return "", false
	}
	return e.publicKey, true
}
