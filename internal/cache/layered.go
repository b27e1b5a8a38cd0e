package cache

import (
	"errors"
	"time"
)

// minPromoteTTL is the least time a disk entry must have left to be copied into memory
const minPromoteTTL = time.Second

// ttlGetter is a layer that reports how long an entry has left
type ttlGetter interface {
	GetWithTTL(key string) ([]byte, time.Duration, bool)
}

// LayeredCache implements a multi-layer cache: a fast layer in front of a durable one
type LayeredCache struct {
	memory    Cache
	disk      Cache
	memoryTTL time.Duration // caps promoted entries; zero means no cap
}

// NewLayeredCache creates a layered cache from two layers
func NewLayeredCache(memory, disk Cache) *LayeredCache {
	return &LayeredCache{
		memory: memory,
		disk:   disk,
	}
}

// NewMemoryDiskCache creates the standard memory + disk layering
func NewMemoryDiskCache(memoryTTL time.Duration, diskDir string, diskTTL time.Duration) *LayeredCache {
	c := NewLayeredCache(NewMemoryCache(memoryTTL, 10*time.Minute), NewDiskCache(diskDir, diskTTL))
	c.memoryTTL = memoryTTL
	return c
}

// Get retrieves a value from the cache (checks memory first, then disk)
func (c *LayeredCache) Get(key string) ([]byte, bool) {
	if val, found := c.memory.Get(key); found {
		return val, true
	}

	tg, ok := c.disk.(ttlGetter)
	if !ok {
		if val, found := c.disk.Get(key); found {
			_ = c.memory.Set(key, val, 0)
			return val, true
		}
		return nil, false
	}

	val, remaining, found := tg.GetWithTTL(key)
	if !found {
		return nil, false
	}
	// A promoted entry never outlives its disk copy
	if remaining >= minPromoteTTL {
		if c.memoryTTL > 0 && remaining > c.memoryTTL {
			remaining = c.memoryTTL
		}
		_ = c.memory.Set(key, val, remaining)
	}
	return val, true
}

// Set stores a value in both caches
func (c *LayeredCache) Set(key string, value []byte, ttl time.Duration) error {
	if err := c.memory.Set(key, value, ttl); err != nil {
		return err
	}
	return c.disk.Set(key, value, ttl)
}

// Delete removes a value from both caches
func (c *LayeredCache) Delete(key string) error {
	return errors.Join(c.memory.Delete(key), c.disk.Delete(key))
}

// Clear removes all values from both caches
func (c *LayeredCache) Clear() error {
	return errors.Join(c.memory.Clear(), c.disk.Clear())
}
