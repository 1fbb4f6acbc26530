// Package cache provides a simple in-memory concurrency-safe key-value store,
// scoped to a single run. Its main feature is [Cache.Load], which guarantees
// that the value of each key is computed at most once, even when many
// goroutines ask for the same key at the same time.
package cache

import (
	"fmt"
	"sync"
)

// Cache is an in-memory concurrency-safe key-value store. Items never expire:
// a cache lives exactly as long as the run that created it.
type Cache[K comparable, V any] struct {
	mu   sync.Mutex
	data map[K]*Item[V]
}

// Item represents a single cache item. It becomes readable only
// after its value is ready, i.e. after the loader function returned.
type Item[V any] struct {
	Value V
	Err   error

	ready chan struct{}
}

// New creates a new, empty [Cache] instance.
func New[K comparable, V any]() *Cache[K, V] {
	return &Cache[K, V]{data: make(map[K]*Item[V])}
}

// Load returns the value of the given key. If the key is not in the cache yet,
// it calls the given function to compute the value and the error, and stores both.
//
// The function is called at most once per key: concurrent callers with the same
// key block until the first caller's function returns, and then share its result.
// Errors are cached too, so a failed load is never retried within the same cache.
// If the function panics, the panic propagates to the first caller, and all
// the other callers get an error instead of blocking.
func (c *Cache[K, V]) Load(key K, load func() (V, error)) (V, error) {
	c.mu.Lock()
	item, found := c.data[key]
	if !found {
		item = &Item[V]{ready: make(chan struct{})}
		c.data[key] = item
	}
	c.mu.Unlock()

	if found {
		<-item.ready
		return item.Value, item.Err
	}

	defer close(item.ready)
	defer func() {
		if r := recover(); r != nil {
			item.Err = fmt.Errorf("cache loader panicked: %v", r)
			panic(r)
		}
	}()

	item.Value, item.Err = load()
	return item.Value, item.Err
}

// Len returns the total number of items in the cache,
// including those which are still being loaded.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.data)
}
