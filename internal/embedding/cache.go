package embedding

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/tphakala/lyricgraph/internal/errors"
)

const (
	defaultCacheTTL     = 30 * time.Minute
	cacheCleanupFactor  = 2
	minCacheCleanupTime = time.Minute
)

// CachedEmbedder remembers vectors of recently embedded texts. Repeated
// queries within the TTL skip the embedder.
type CachedEmbedder struct {
	next  Embedder
	cache *cache.Cache
}

// NewCached wraps next with a TTL cache. A non-positive ttl uses the default.
func NewCached(next Embedder, ttl time.Duration) *CachedEmbedder {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &CachedEmbedder{
		next:  next,
		cache: cache.New(ttl, max(ttl*cacheCleanupFactor, minCacheCleanupTime)),
	}
}

// Name returns the wrapped embedder's label.
func (c *CachedEmbedder) Name() string { return c.next.Name() }

// Dimensions returns the wrapped embedder's width.
func (c *CachedEmbedder) Dimensions() int { return c.next.Dimensions() }

// Embed returns the cached vector of text or embeds and caches it.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, ok := c.cache.Get(text); ok {
		return v.([]float32), nil
	}
	vec, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(text, vec)
	return vec, nil
}

// EmbedBatch embeds only the texts missing from the cache, in one call.
func (c *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var (
		missing []string
		slots   []int
	)
	for i, t := range texts {
		if v, ok := c.cache.Get(t); ok {
			out[i] = v.([]float32)
			continue
		}
		missing = append(missing, t)
		slots = append(slots, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	vecs, err := c.next.EmbedBatch(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missing) {
		return nil, embedError(errors.Newf("got %d vectors for %d texts", len(vecs), len(missing)).Build(),
			c.next.Name(), len(missing))
	}
	for j, v := range vecs {
		out[slots[j]] = v
		c.cache.SetDefault(missing[j], v)
	}
	return out, nil
}

// Len returns the number of cached vectors.
func (c *CachedEmbedder) Len() int { return c.cache.ItemCount() }
