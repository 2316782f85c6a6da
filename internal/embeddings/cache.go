package embeddings

import (
	"context"
	"fmt"
	"sync"
)

// Cached wraps a provider with an in-process result cache. Eviction is
// whole-map reset once maxSize is reached, which is cheap and good enough
// for a single daemon process.
type Cached struct {
	provider Provider
	maxSize  int

	mu    sync.Mutex
	cache map[string][]float32
	hits  int64
	calls int64
}

// NewCached wraps provider with a cache of at most maxSize entries.
func NewCached(provider Provider, maxSize int) *Cached {
	if maxSize <= 0 {
		maxSize = 1024
	}
	return &Cached{
		provider: provider,
		maxSize:  maxSize,
		cache:    make(map[string][]float32),
	}
}

// Name returns the wrapped provider name.
func (c *Cached) Name() string { return c.provider.Name() }

// Dimension returns the wrapped provider dimension.
func (c *Cached) Dimension() int { return c.provider.Dimension() }

// Embed returns the cached vector for text, computing it on miss. A wrong
// result from the underlying provider is a programming error and panics.
func (c *Cached) Embed(ctx context.Context, text string) ([]float32, error) {
	c.mu.Lock()
	c.calls++
	if vec, ok := c.cache[text]; ok {
		c.hits++
		c.mu.Unlock()
		return vec, nil
	}
	c.mu.Unlock()

	vec, err := c.provider.Embed(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	if err := Validate(vec, c.provider.Dimension()); err != nil {
		panic(fmt.Sprintf("embedding provider %s: %v", c.provider.Name(), err))
	}

	c.mu.Lock()
	if len(c.cache) >= c.maxSize {
		c.cache = make(map[string][]float32)
	}
	c.cache[text] = vec
	c.mu.Unlock()
	return vec, nil
}

// Stats returns cache hit and call counts.
func (c *Cached) Stats() (hits, calls int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.calls
}
