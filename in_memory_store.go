package parchment

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// InMemoryStore is a Persist that keeps stored nodes in a map, usually for
// testing.
type InMemoryStore struct {
	entries map[string][]byte
	l       sync.Mutex
}

// NewInMemoryStore returns an empty InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (ims *InMemoryStore) Store(ctx context.Context, key string, value []byte) error {
	ims.l.Lock()
	if ims.entries == nil {
		ims.entries = map[string][]byte{key: value}
	} else {
		ims.entries[key] = value
	}
	ims.l.Unlock()
	return nil
}

func (ims *InMemoryStore) Load(ctx context.Context, key string) ([]byte, error) {
	ims.l.Lock()
	value, ok := ims.entries[key]
	ims.l.Unlock()
	if !ok {
		return nil, fmt.Errorf("inMemoryStore entry not found for %s", key)
	}
	return value, nil
}

// Keys returns the links of the stored nodes, sorted.
func (ims *InMemoryStore) Keys() []string {
	ims.l.Lock()
	keys := make([]string, 0, len(ims.entries))
	for k := range ims.entries {
		keys = append(keys, k)
	}
	ims.l.Unlock()
	sort.Strings(keys)
	return keys
}
