package model

import (
	"context"
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

// maxCacheEntries bounds the response cache; the oldest entry is evicted
// once the bound is reached.
const maxCacheEntries = 100

// ThrottleOptions configure a Throttled generator.
type ThrottleOptions struct {
	// MaxCallsPerMinute bounds calls over a rolling window.
	MaxCallsPerMinute int
	// MinSpacing enforces a minimum gap between consecutive calls.
	MinSpacing time.Duration
	// CacheTTL is how long a completion is served from cache. Zero
	// disables caching.
	CacheTTL time.Duration
}

// Throttled wraps a Generator with cooperative rate limiting, a short-TTL
// response cache keyed by prompt+parameters, and in-flight deduplication of
// identical prompts. When throttled, calls block until a slot frees up
// rather than failing.
type Throttled struct {
	inner   Generator
	window  *rate.Limiter
	spacing *rate.Limiter
	ttl     time.Duration

	group singleflight.Group

	mu    sync.Mutex
	cache map[string]cacheEntry
	order []string
	hits  int
	calls int
}

type cacheEntry struct {
	text    string
	expires time.Time
}

// NewThrottled wraps inner with the given limits. Non-positive options fall
// back to permissive defaults.
func NewThrottled(inner Generator, opts ThrottleOptions) *Throttled {
	perMinute := opts.MaxCallsPerMinute
	if perMinute <= 0 {
		perMinute = 60
	}
	spacing := opts.MinSpacing
	if spacing <= 0 {
		spacing = time.Millisecond
	}
	return &Throttled{
		inner:   inner,
		window:  rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute),
		spacing: rate.NewLimiter(rate.Every(spacing), 1),
		ttl:     opts.CacheTTL,
		cache:   map[string]cacheEntry{},
	}
}

// Generate implements Generator. Identical concurrent requests share one
// upstream call; repeated requests within the TTL are served from cache.
func (t *Throttled) Generate(ctx context.Context, req Request) (string, error) {
	key := cacheKey(req)

	if text, ok := t.cached(key); ok {
		return text, nil
	}

	v, err, _ := t.group.Do(key, func() (interface{}, error) {
		// Re-check under the flight: a racing caller may have populated
		// the cache while this one waited.
		if text, ok := t.cached(key); ok {
			return text, nil
		}
		if err := t.window.Wait(ctx); err != nil {
			return "", err
		}
		if err := t.spacing.Wait(ctx); err != nil {
			return "", err
		}
		text, err := t.inner.Generate(ctx, req)
		if err != nil {
			return "", err
		}
		t.store(key, text)
		return text, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// IsConfigured delegates to the wrapped generator.
func (t *Throttled) IsConfigured() bool { return t.inner.IsConfigured() }

// Info delegates to the wrapped generator.
func (t *Throttled) Info() Info { return t.inner.Info() }

// Stats reports cache and call counters for the admin surface.
func (t *Throttled) Stats() map[string]int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return map[string]int{
		"cache_size": len(t.cache),
		"cache_hits": t.hits,
		"calls":      t.calls,
	}
}

func (t *Throttled) cached(key string) (string, bool) {
	if t.ttl <= 0 {
		return "", false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.cache[key]
	if !ok {
		return "", false
	}
	if time.Now().After(entry.expires) {
		delete(t.cache, key)
		return "", false
	}
	t.hits++
	return entry.text, true
}

func (t *Throttled) store(key, text string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls++
	if t.ttl <= 0 || text == "" {
		return
	}
	if _, exists := t.cache[key]; !exists {
		t.order = append(t.order, key)
		if len(t.order) > maxCacheEntries {
			oldest := t.order[0]
			t.order = t.order[1:]
			delete(t.cache, oldest)
		}
	}
	t.cache[key] = cacheEntry{text: text, expires: time.Now().Add(t.ttl)}
}

func cacheKey(req Request) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d:%.3f", req.Prompt, req.MaxTokens, req.Temperature)))
	return fmt.Sprintf("%x", sum)
}
