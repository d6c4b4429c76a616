package repo

import (
	"path/filepath"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Cache gives callers an at-most-once-per-path Store handle, grounded on
// the same singleflight-backed pattern used to de-duplicate concurrent
// cache-miss work in proxy-style Git servers: concurrent requests for the
// same repository path block on one Open call instead of racing to create
// independent handles.
type Cache struct {
	hashWidth int
	handles   sync.Map // string (canonical path) -> *FilesystemStore
	group     singleflight.Group
}

// NewCache returns a Cache whose Stores use the given hash width.
func NewCache(hashWidth int) *Cache {
	return &Cache{hashWidth: hashWidth}
}

// GetOrOpen returns the cached Store for dir, opening it if this is the
// first request for that path.
func (c *Cache) GetOrOpen(dir string) (*FilesystemStore, error) {
	key, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	key = filepath.Clean(key)

	if v, ok := c.handles.Load(key); ok {
		return v.(*FilesystemStore), nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := c.handles.Load(key); ok {
			return v.(*FilesystemStore), nil
		}
		store, err := Open(key, c.hashWidth)
		if err != nil {
			return nil, err
		}
		c.handles.Store(key, store)
		return store, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*FilesystemStore), nil
}

// Evict drops the cached handle for dir, if any, forcing the next
// GetOrOpen to reopen it.
func (c *Cache) Evict(dir string) {
	key, err := filepath.Abs(dir)
	if err != nil {
		return
	}
	c.handles.Delete(filepath.Clean(key))
}
