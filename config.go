package warehouse

import "github.com/TheBitDrifter/table"

// Config holds per-World configuration. The teacher's config.go held a
// single package-level global (var Config config) wrapping table.TableEvents
// only; SPEC_FULL.md's World-ownership model (§3 "Ownership") means two
// worlds must be able to carry independent configuration, so this becomes a
// value passed to Factory.NewWorldWithConfig instead of a package global.
type Config struct {
	// TableEvents forwards to every archetype table built for this world.
	TableEvents table.TableEvents

	// Logger receives diagnostics from the world, cursors, and command-buffer
	// flush; the planner and schedule executor return errors instead of
	// logging. Defaults to a bark-backed logger if nil.
	Logger Logger

	// RelationTableCapacityHint sizes the initial row slice each sparse
	// relation table preallocates.
	RelationTableCapacityHint int

	// Workers bounds how many schedule nodes may run concurrently in one
	// pass. Zero means no bound beyond the size of each parallel batch.
	Workers int
}

// DefaultConfig returns the Config used when a World is created via
// Factory.NewWorld.
func DefaultConfig() Config {
	return Config{
		Logger:                    barkLogger{},
		RelationTableCapacityHint: 8,
	}
}

func (c Config) logger() Logger {
	if c.Logger == nil {
		return barkLogger{}
	}
	return c.Logger
}
