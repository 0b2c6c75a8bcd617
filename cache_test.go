package warehouse

import (
	"testing"
)

// TestCacheBasicOperations tests the basic operations of the SimpleCache
func TestCacheBasicOperations(t *testing.T) {
	const capacity = 10
	cache := FactoryNewCache[string](capacity)

	items := []string{"item1", "item2", "item3", "item4", "item5"}
	indices := make([]int, len(items))

	for i, item := range items {
		index, err := cache.Register(item, item)
		if err != nil {
			t.Errorf("Failed to register item %s: %v", item, err)
		}
		indices[i] = index

		// Indices are dense and 0-based, assigned in registration order.
		if index != i {
			t.Errorf("Index for item %s is %d, expected %d", item, index, i)
		}
	}

	for i, item := range items {
		index, found := cache.GetIndex(item)
		if !found {
			t.Errorf("Item %s not found in cache", item)
		}
		if index != indices[i] {
			t.Errorf("Index for item %s is %d, expected %d", item, index, indices[i])
		}
	}

	for i, item := range items {
		cachedItem := *cache.GetItem(indices[i])
		if cachedItem != item {
			t.Errorf("Item at index %d is %s, expected %s", indices[i], cachedItem, item)
		}
	}

	for i, item := range items {
		cachedItem := *cache.GetItem32(uint32(indices[i]))
		if cachedItem != item {
			t.Errorf("Item at index %d is %s, expected %s", indices[i], cachedItem, item)
		}
	}

	_, found := cache.GetIndex("nonexistent")
	if found {
		t.Errorf("Found non-existent item in cache")
	}
}

// TestCacheRegisterOverwritesExistingKey re-registering a key updates the
// stored item without allocating a new slot.
func TestCacheRegisterOverwritesExistingKey(t *testing.T) {
	cache := FactoryNewCache[int](10)

	first, err := cache.Register("k", 1)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	second, err := cache.Register("k", 2)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if first != second {
		t.Errorf("expected re-registration to reuse index %d, got %d", first, second)
	}
	if got := *cache.GetItem(second); got != 2 {
		t.Errorf("expected overwritten value 2, got %d", got)
	}
}

// TestCacheCapacity tests the cache capacity limits.
func TestCacheCapacity(t *testing.T) {
	const capacity = 5
	cache := FactoryNewCache[int](capacity)

	for i := 0; i < capacity; i++ {
		key := "item" + string(rune(i+'0'))
		if _, err := cache.Register(key, i); err != nil {
			t.Errorf("Failed to register item %s: %v", key, err)
		}
	}

	if _, err := cache.Register("overflow", 100); err == nil {
		t.Errorf("Expected error when exceeding cache capacity, but got none")
	}
}

// TestCacheUnboundedCapacity a capacity of 0 never rejects a Register call.
func TestCacheUnboundedCapacity(t *testing.T) {
	cache := FactoryNewCache[int](0)
	for i := 0; i < 1000; i++ {
		key := "item" + string(rune(i))
		if _, err := cache.Register(key, i); err != nil {
			t.Fatalf("unbounded cache rejected registration %d: %v", i, err)
		}
	}
}

// TestCacheClear tests the cache clear functionality.
func TestCacheClear(t *testing.T) {
	cache := FactoryNewCache[string](10).(*SimpleCache[string])

	items := []string{"item1", "item2", "item3"}
	for _, item := range items {
		if _, err := cache.Register(item, item); err != nil {
			t.Errorf("Failed to register item %s: %v", item, err)
		}
	}

	cache.Clear()

	for _, item := range items {
		if _, found := cache.GetIndex(item); found {
			t.Errorf("Item %s still found after cache clear", item)
		}
	}

	for _, item := range items {
		if _, err := cache.Register(item, item); err != nil {
			t.Errorf("Failed to register item %s after clear: %v", item, err)
		}
	}
}

// TestCacheWithComplexTypes tests the cache with more complex data types.
func TestCacheWithComplexTypes(t *testing.T) {
	cache := FactoryNewCache[Position](10)

	positions := []Position{
		{X: 1.0, Y: 2.0},
		{X: 3.0, Y: 4.0},
		{X: 5.0, Y: 6.0},
	}
	keys := []string{"pos1", "pos2", "pos3"}

	for i, pos := range positions {
		if _, err := cache.Register(keys[i], pos); err != nil {
			t.Errorf("Failed to register position %v: %v", pos, err)
		}
	}

	for i, key := range keys {
		index, found := cache.GetIndex(key)
		if !found {
			t.Errorf("Position with key %s not found", key)
			continue
		}
		pos := cache.GetItem(index)
		if pos.X != positions[i].X || pos.Y != positions[i].Y {
			t.Errorf("Position at index %d is %v, expected %v", index, pos, positions[i])
		}
	}
}

// TestCacheConcurrentAccess exercises concurrent reads against a
// registration-in-progress cache; run with -race to catch data races.
func TestCacheConcurrentAccess(t *testing.T) {
	cache := FactoryNewCache[int](100)

	initialIndex, err := cache.Register("item", 42)
	if err != nil {
		t.Fatalf("Failed to register initial item: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			if item := cache.GetItem(initialIndex); *item != 42 {
				t.Errorf("Expected item value 42, got %d", *item)
				return
			}
		}
	}()

	for i := 0; i < 50; i++ {
		key := "new_item" + string(rune(i+'0'))
		if _, err := cache.Register(key, i); err != nil {
			break
		}
	}

	<-done
}
