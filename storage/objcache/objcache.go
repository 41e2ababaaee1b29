// Package objcache is the process-wide object identity cache described in
// spec §4.4: a hash→decoded-object map consulted before touching disk.
// Objects are content-addressed and immutable once inserted, which is
// exactly ristretto's sweet spot — grounded on
// antgroup-hugescm/pkg/serve/odb/cache.go, which wires the same library for
// the same purpose.
package objcache

import (
	"github.com/dgraph-io/ristretto/v2"

	"github.com/gitshelf/gitshelf/plumbing"
)

// entry is the cached value: a decoded object's type and content, keyed by
// its hash.
type entry struct {
	Type    plumbing.ObjectType
	Content []byte
}

// Cache is the object identity cache. The zero value is not usable; build
// one with New.
type Cache struct {
	c *ristretto.Cache[plumbing.Hash, entry]
}

// Default sizing: generous enough for a typical working repository's
// recently touched objects without requiring per-repository tuning.
const (
	defaultNumCounters = 1e6
	defaultMaxCost     = 64 << 20 // 64MiB
	defaultBufferItems = 64
)

// New builds an empty Cache.
func New() (*Cache, error) {
	c, err := ristretto.NewCache(&ristretto.Config[plumbing.Hash, entry]{
		NumCounters: defaultNumCounters,
		MaxCost:     defaultMaxCost,
		BufferItems: defaultBufferItems,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{c: c}, nil
}

// Get returns the cached (type, content) for h, if present. The returned
// content slice is shared across callers and must be treated as immutable
// (spec §4.4, "same underlying buffer may be shared").
func (c *Cache) Get(h plumbing.Hash) (plumbing.ObjectType, []byte, bool) {
	e, ok := c.c.Get(h)
	if !ok {
		return plumbing.InvalidObject, nil, false
	}
	return e.Type, e.Content, true
}

// Set inserts or refreshes the cached value for h. Cost is the content
// length, so the cache's MaxCost budget tracks bytes held rather than item
// count.
func (c *Cache) Set(h plumbing.Hash, t plumbing.ObjectType, content []byte) {
	c.c.Set(h, entry{Type: t, Content: content}, int64(len(content)))
}

// Clear discards every cached entry (spec §4.4, "invalidate(clear_all=true)
// discards it").
func (c *Cache) Clear() {
	c.c.Clear()
}

// Close releases the cache's background goroutines.
func (c *Cache) Close() {
	c.c.Close()
}

// Wait blocks until every Set call issued so far has been applied. Ristretto
// applies Set asynchronously; tests that assert on a just-Set value need this
// to avoid a race against the cache's internal buffer.
func (c *Cache) Wait() {
	c.c.Wait()
}
