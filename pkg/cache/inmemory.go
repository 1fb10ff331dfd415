package cache

import (
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

// Cache is the read-model cache. Values are shared between callers and must be
// treated as immutable once stored.
type Cache interface {
	Set(key string, value interface{}, duration time.Duration)
	Get(key string) (interface{}, bool)
	Delete(keys ...string)
	Flush()
	ItemCount() int
	load(key string, ttl time.Duration, fn func() (interface{}, error)) (interface{}, error)
}

type goCache struct {
	internal *cache.Cache
	inflight singleflight.Group

	// generations change on every Delete or Flush so a load that started
	// before an invalidation does not store what it read
	mu          sync.Mutex
	flushes     uint64
	generations map[string]uint64
}

type generation struct {
	flushes uint64
	key     uint64
}

func NewCache(defaultExpiration, cleanupInterval time.Duration) Cache {
	return &goCache{
		internal:    cache.New(defaultExpiration, cleanupInterval),
		generations: make(map[string]uint64),
	}
}

func (c *goCache) Set(key string, value interface{}, duration time.Duration) {
	c.internal.Set(key, value, duration)
}

func (c *goCache) Get(key string) (interface{}, bool) {
	return c.internal.Get(key)
}

func (c *goCache) Delete(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, key := range keys {
		c.generations[key]++
		c.internal.Delete(key)
		c.inflight.Forget(key)
	}
}

func (c *goCache) Flush() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.flushes++
	c.internal.Flush()
}

func (c *goCache) ItemCount() int {
	return c.internal.ItemCount()
}

func (c *goCache) generation(key string) generation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return generation{flushes: c.flushes, key: c.generations[key]}
}

// setIfCurrent stores value unless key was invalidated since gen was taken.
func (c *goCache) setIfCurrent(key string, gen generation, value interface{}, ttl time.Duration) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.flushes != gen.flushes || c.generations[key] != gen.key {
		return false
	}
	c.internal.Set(key, value, ttl)
	return true
}

func (c *goCache) load(key string, ttl time.Duration, fn func() (interface{}, error)) (interface{}, error) {
	v, err, _ := c.inflight.Do(key, func() (interface{}, error) {
		if v, ok := c.internal.Get(key); ok {
			return v, nil
		}
		gen := c.generation(key)
		loaded, err := fn()
		if err != nil {
			return nil, err
		}
		c.setIfCurrent(key, gen, loaded, ttl)
		return loaded, nil
	})
	return v, err
}

func GetFromCache[T any](c Cache, key string) (T, bool) {
	val, found := c.Get(key)
	if !found {
		var zero T
		return zero, false
	}
	typedVal, ok := val.(T)
	if !ok {
		var zero T
		return zero, false
	}
	return typedVal, true
}

// GetOrLoad returns the cached value for key or calls loader once for all
// concurrent callers of the same key and caches its result for ttl. Errors are
// not cached, and neither is a result whose key was deleted while loading.
func GetOrLoad[T any](c Cache, key string, ttl time.Duration, loader func() (T, error)) (T, error) {
	if v, ok := GetFromCache[T](c, key); ok {
		return v, nil
	}
	v, err := c.load(key, ttl, func() (interface{}, error) {
		return loader()
	})
	if err != nil {
		var zero T
		return zero, err
	}
	typed, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("cache: value under %q has type %T", key, v)
	}
	return typed, nil
}
