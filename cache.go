package warehouse

import "fmt"

// Cache is a small name->index registry, kept from the teacher's api.go/
// cache.go pair (merged here since api.go's duplicate interface
// declarations were dropped in the transform to SPEC_FULL.md). It gives a
// string key a dense, stable integer handle; no other part of this module
// uses it.
type Cache[T any] interface {
	GetIndex(string) (int, bool)
	GetItem(int) *T
	GetItem32(uint32) *T
	Register(string, T) (int, error)
}

// CacheLocation names a cache slot by both its original key and the dense
// index it was assigned.
type CacheLocation struct {
	Key   string
	Index uint32
}

var _ Cache[any] = &SimpleCache[any]{}

// SimpleCache is the only Cache implementation this module ships. A
// maxCapacity of zero means unbounded.
type SimpleCache[T any] struct {
	items       []T
	itemIndices map[string]int
	maxCapacity int
}

func (c *SimpleCache[T]) GetIndex(key string) (int, bool) {
	index, ok := c.itemIndices[key]
	return index, ok
}

func (c *SimpleCache[T]) GetItem(index int) *T {
	return &c.items[index]
}

func (c *SimpleCache[T]) GetItem32(index uint32) *T {
	return &c.items[index]
}

func (c *SimpleCache[T]) Register(key string, item T) (int, error) {
	if existing, ok := c.itemIndices[key]; ok {
		c.items[existing] = item
		return existing, nil
	}
	if c.maxCapacity > 0 && len(c.itemIndices) >= c.maxCapacity {
		return -1, fmt.Errorf("cache at maximum capacity (%d)", c.maxCapacity)
	}

	idx := len(c.items)
	c.itemIndices[key] = idx
	c.items = append(c.items, item)
	return idx, nil
}

func (c *SimpleCache[T]) Clear() {
	c.items = c.items[:0]
	c.itemIndices = make(map[string]int)
}
