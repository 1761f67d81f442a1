package parchment

import lru "github.com/hashicorp/golang-lru"

// DefaultDefinitionCacheSize bounds the classification memo of a Registry
// created without an explicit DefinitionCache.
const DefaultDefinitionCacheSize = 1024

// DefinitionCache memoizes which Definition claims host nodes of a given
// name and class attribute. Class attributes are arbitrary strings, so the
// cache is bounded.
type DefinitionCache interface {
	Add(key, value interface{}) bool
	Get(key interface{}) (value interface{}, ok bool)
	Purge()
}

// NewDefinitionCache creates an LRU-based classification cache of the given
// size. A cache must not be shared between registries.
func NewDefinitionCache(size int) DefinitionCache {
	cache, err := lru.New(size)
	if err != nil {
		panic(err)
	}
	return cache
}

// NodeCache remembers snapshot nodes that have already been persisted, so
// that unchanged subtrees are neither re-stored nor re-decoded.
// Care should be taken to switch/invalidate a NodeCache when the Persist is
// changed.
type NodeCache interface {
	// Add adds a freshly-persisted or freshly-loaded node to the cache.
	Add(key, value interface{})
	// Contains indicates the node with the given link has already been persisted.
	Contains(key interface{}) bool
	// Get retrieves the already-decoded node with the given link, if cached.
	Get(key interface{}) (value interface{}, ok bool)
}

// NewNodeCache creates a new ARC-based node cache of the given size. One
// cache can be shared by any number of documents using the same Persist.
func NewNodeCache(size int) NodeCache {
	cache, err := lru.NewARC(size)
	if err != nil {
		panic(err)
	}
	return cache
}
