// Package tokenest implements the BPE-backed Estimator (§4.A) on top of
// tiktoken-go, with a per-estimator token-count cache keyed by a sha256
// of the text, shaped like the teacher's internal/llm token cache.
package tokenest

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/pkoukk/tiktoken-go"
)

const (
	defaultCacheSize = 2000
	defaultCacheTTL  = 30 * time.Minute
)

// BPEEstimator wraps one tiktoken encoding, resolved from the model name
// at construction. It satisfies tavernkit.Estimator structurally; this package
// never imports the root package.
type BPEEstimator struct {
	enc   *tiktoken.Tiktoken
	cache *countCache
}

// NewBPEEstimator resolves an encoding for model (falling back to
// "cl100k_base" if the model is unknown to tiktoken-go) and returns an
// estimator backed by it.
func NewBPEEstimator(model string) (*BPEEstimator, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("tokenest: resolve fallback encoding: %w", err)
		}
	}
	return &BPEEstimator{enc: enc, cache: newCountCache(defaultCacheSize, defaultCacheTTL)}, nil
}

// Estimate returns the BPE token count for text. Never panics: empty input
// returns 0 without consulting the encoder.
func (b *BPEEstimator) Estimate(text string) (uint32, error) {
	if text == "" {
		return 0, nil
	}
	if n, ok := b.cache.get(text); ok {
		return uint32(n), nil
	}
	tokens := b.enc.Encode(text, nil, nil)
	n := len(tokens)
	b.cache.set(text, n)
	return uint32(n), nil
}

// countCache is a small LRU+TTL cache of token counts keyed by a content
// hash, mirroring the teacher's TokenCache shape (internal/llm/token_cache.go)
// but storing plain ints instead of a richer struct.
type countCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	maxSize int
	ttl     time.Duration
}

type cacheEntry struct {
	count      int
	expiration time.Time
	lastAccess time.Time
}

func newCountCache(maxSize int, ttl time.Duration) *countCache {
	return &countCache{entries: make(map[string]cacheEntry), maxSize: maxSize, ttl: ttl}
}

func (c *countCache) get(text string) (int, bool) {
	key := hashText(text)
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return 0, false
	}
	if time.Now().After(e.expiration) {
		delete(c.entries, key)
		return 0, false
	}
	e.lastAccess = time.Now()
	c.entries[key] = e
	return e.count, true
}

func (c *countCache) set(text string, count int) {
	key := hashText(text)
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= c.maxSize {
		c.evictOldestLocked()
	}
	now := time.Now()
	c.entries[key] = cacheEntry{count: count, expiration: now.Add(c.ttl), lastAccess: now}
}

func (c *countCache) evictOldestLocked() {
	var oldestKey string
	var oldestTime time.Time
	first := true
	for k, e := range c.entries {
		if first || e.lastAccess.Before(oldestTime) {
			oldestKey, oldestTime, first = k, e.lastAccess, false
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

func hashText(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:16])
}
