package warehouse

// factory implements the factory pattern for constructing worlds and caches,
// the same single-global-instance shape the teacher's factory.go used for
// storages, queries, cursors, and components - narrowed here to the two
// things that still need a construction entrypoint once World owns
// registration (World.RegisterComponent et al.) and NewQuery/NewCursor are
// free functions.
type factory struct{}

// Factory is the global factory instance.
var Factory factory

// NewWorld builds a World with DefaultConfig.
func (f factory) NewWorld() (*World, error) {
	return newWorld(DefaultConfig())
}

// NewWorldWithConfig builds a World with caller-supplied configuration.
func (f factory) NewWorldWithConfig(cfg Config) (*World, error) {
	return newWorld(cfg)
}

// FactoryNewCache creates a new Cache with the specified capacity. A
// capacity of 0 means unbounded, matching SimpleCache.Register's overwrite
// semantics once the item slice is allowed to grow freely.
func FactoryNewCache[T any](capacity int) Cache[T] {
	return &SimpleCache[T]{
		itemIndices: make(map[string]int),
		maxCapacity: capacity,
	}
}
