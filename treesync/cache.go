package treesync

import (
	lru "github.com/hashicorp/golang-lru"
)

// hashCacheKey identifies a file well enough to reuse a previously
// computed Hash for it: if the path, size, and modification time all
// still match, the content is assumed unchanged.
type hashCacheKey struct {
	path    string
	size    uint64
	modTime int64 // UNIX nanoseconds
}

// hashCache is a bounded, in-memory cache from hashCacheKey to Hash. It
// has no on-disk component and is never treated as authoritative: a miss
// always falls back to reading the file, and an empty cache behaves
// exactly like having none. A Scanner with a nil cache hashes every file
// it is asked to, with no change in the set of Diff results — the cache
// is a pure performance optimization, not part of this package's
// observable contract.
type hashCache struct {
	c *lru.Cache
}

// newHashCache creates a hashCache holding up to size entries. A size of
// 0 disables caching.
func newHashCache(size int) (*hashCache, error) {
	if size <= 0 {
		return nil, nil
	}
	c, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &hashCache{c: c}, nil
}

func (hc *hashCache) get(key hashCacheKey) (Hash, bool) {
	if hc == nil {
		return Hash{}, false
	}
	v, ok := hc.c.Get(key)
	if !ok {
		return Hash{}, false
	}
	return v.(Hash), true
}

func (hc *hashCache) add(key hashCacheKey, h Hash) {
	if hc == nil {
		return
	}
	hc.c.Add(key, h)
}
