package embedding

import (
	"container/list"
	"context"
	"sync"
)

// lruCache is an LRU cache for embeddings keyed by text.
type lruCache struct {
	capacity int
	cache    map[string]*list.Element
	lru      *list.List
	mu       sync.Mutex
}

type cacheEntry struct {
	key   string
	value []float32
}

func newLRUCache(capacity int) *lruCache {
	return &lruCache{
		capacity: capacity,
		cache:    make(map[string]*list.Element),
		lru:      list.New(),
	}
}

func (c *lruCache) get(key string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		return elem.Value.(*cacheEntry).value, true
	}
	return nil, false
}

func (c *lruCache) set(key string, value []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*cacheEntry).value = value
		return
	}
	elem := c.lru.PushFront(&cacheEntry{key: key, value: value})
	c.cache[key] = elem
	if c.lru.Len() > c.capacity {
		oldest := c.lru.Back()
		if oldest != nil {
			c.lru.Remove(oldest)
			delete(c.cache, oldest.Value.(*cacheEntry).key)
		}
	}
}

// CachedEmbedder wraps an Embedder with an LRU cache keyed by text.
// Repeated texts (re-ingested forms, repeated queries) skip the provider call.
type CachedEmbedder struct {
	inner Embedder
	cache *lruCache
}

// NewCachedEmbedder wraps inner with a cache of the given capacity.
// A capacity <= 0 disables caching and returns inner unchanged behavior.
func NewCachedEmbedder(inner Embedder, capacity int) *CachedEmbedder {
	var cache *lruCache
	if capacity > 0 {
		cache = newLRUCache(capacity)
	}
	return &CachedEmbedder{inner: inner, cache: cache}
}

// Embed returns the cached embedding for text, computing it on miss.
func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.cache != nil {
		if emb, ok := e.cache.get(text); ok {
			return emb, nil
		}
	}
	emb, err := e.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if e.cache != nil {
		e.cache.set(text, emb)
	}
	return emb, nil
}

// EmbedBatch serves cached texts locally and forwards only misses to the
// provider, preserving input order in the result.
func (e *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	if e.cache == nil {
		return e.inner.EmbedBatch(ctx, texts)
	}
	result := make([][]float32, len(texts))
	missing := make([]string, 0)
	missingIdx := make([]int, 0)
	for i, text := range texts {
		if emb, ok := e.cache.get(text); ok {
			result[i] = emb
		} else {
			missing = append(missing, text)
			missingIdx = append(missingIdx, i)
		}
	}
	if len(missing) > 0 {
		computed, err := e.inner.EmbedBatch(ctx, missing)
		if err != nil {
			return nil, err
		}
		for j, emb := range computed {
			result[missingIdx[j]] = emb
			e.cache.set(missing[j], emb)
		}
	}
	return result, nil
}

// Dimensions returns the wrapped embedder's dimension.
func (e *CachedEmbedder) Dimensions() int {
	return e.inner.Dimensions()
}

// Close closes the wrapped embedder.
func (e *CachedEmbedder) Close() error {
	return e.inner.Close()
}
