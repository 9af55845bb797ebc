package batch

import (
	"image"
	"sync"

	"content-aware-fill/internal/imageio"
)

// MaskSource resolves a mask path to a decoded image.
type MaskSource interface {
	Mask(path string) (*image.NRGBA, error)
}

// MaskCache is a concurrency-safe mask cache. Many jobs commonly share
// one mask (a watermark or logo position), so each file is decoded once.
type MaskCache struct {
	mu    sync.RWMutex
	items map[string]*cacheEntry
}

type cacheEntry struct {
	img *image.NRGBA
	err error // load errors are cached too
}

// NewMaskCache creates an empty mask cache.
func NewMaskCache() *MaskCache {
	return &MaskCache{items: make(map[string]*cacheEntry)}
}

// Mask loads and caches a mask by path. The returned image is shared
// between callers and must not be modified.
func (c *MaskCache) Mask(path string) (*image.NRGBA, error) {
	// Fast path: read lock
	c.mu.RLock()
	if entry, exists := c.items[path]; exists {
		c.mu.RUnlock()
		return entry.img, entry.err
	}
	c.mu.RUnlock()

	// Slow path: load from disk
	img, err := imageio.Load(path)

	// Write lock with double-check
	c.mu.Lock()
	defer c.mu.Unlock()
	if entry, exists := c.items[path]; exists {
		return entry.img, entry.err
	}
	c.items[path] = &cacheEntry{img: img, err: err}
	return img, err
}

// Len returns the number of cached paths.
func (c *MaskCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// uncached loads every mask from disk.
type uncached struct{}

func (uncached) Mask(path string) (*image.NRGBA, error) { return imageio.Load(path) }
