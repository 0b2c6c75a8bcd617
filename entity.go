package warehouse

import (
	"sync"

	"github.com/TheBitDrifter/table"
)

// Entity is the 64-bit handle described by SPEC_FULL.md §3: a 32-bit index
// plus a 32-bit generation. Index is the table.EntryID the row was created
// with; generation is the row's recycle count at the time the handle was
// issued, so a handle whose generation no longer matches the row's current
// recycle count is dead. This mirrors the teacher's entity.go, whose entry()
// helper reconstructs a live table.Entry on demand via
// globalEntryIndex.Entry(int(e.id-1)) and whose Recycled() method already
// carries exactly the generation concept — this type just makes that pair
// explicit and comparable instead of living behind a table.Entry-embedding
// interface, and drops it from a package global to a per-World lookup.
type Entity struct {
	index      uint32
	generation uint32
}

// NullEntity is never alive and fails every lookup.
var NullEntity = Entity{}

// Index returns the entity's table.EntryID, as a plain integer.
func (e Entity) Index() uint32 { return e.index }

// Generation returns the entity's recycle count at the time the handle was issued.
func (e Entity) Generation() uint32 { return e.generation }

// IsNull reports whether e is the distinguished null handle.
func (e Entity) IsNull() bool { return e == NullEntity }

// Pack encodes the handle as a single 64-bit integer (index in the low 32
// bits, generation in the high 32 bits), for callers that need a hashable or
// wire-transmissible form (e.g. the reflection wire protocol in wire.go).
func (e Entity) Pack() uint64 {
	return uint64(e.index) | uint64(e.generation)<<32
}

// UnpackEntity reverses Pack.
func UnpackEntity(v uint64) Entity {
	return Entity{index: uint32(v), generation: uint32(v >> 32)}
}

// entityManager tracks, per live entity index, which archetype it currently
// belongs to (SPEC_FULL.md §2 "Entity manager"). It deliberately does not
// duplicate table.EntryIndex's own id allocation, row tracking, or recycle
// counting - that bookkeeping already lives in the table package and is
// reachable through entryIndex.Entry, exactly as the teacher's entity.entry()
// uses it. This keeps only the one thing table.EntryIndex has no concept of:
// which archetype (column set) an id's row currently lives in.
type entityManager struct {
	mu         sync.RWMutex
	entryIndex table.EntryIndex
	archetype  map[uint32]archetypeID
}

func newEntityManager(entryIndex table.EntryIndex) *entityManager {
	return &entityManager{
		entryIndex: entryIndex,
		archetype:  make(map[uint32]archetypeID),
	}
}

// entryFor reconstructs the live table.Entry for a raw index, the same way
// the teacher's entity.entry() calls globalEntryIndex.Entry(int(e.id-1)).
func (em *entityManager) entryFor(index uint32) (table.Entry, error) {
	return em.entryIndex.Entry(int(index) - 1)
}

// track records e's archetype the first time a row is created for it.
func (em *entityManager) track(e Entity, arch archetypeID) {
	em.mu.Lock()
	defer em.mu.Unlock()
	em.archetype[e.index] = arch
}

// setArchetype updates the archetype bookkeeping after a transfer; the
// table.Entry handle obtained through entryIndex tracks the new table/row on
// its own, so nothing else needs updating.
func (em *entityManager) setArchetype(e Entity, arch archetypeID) {
	em.mu.Lock()
	defer em.mu.Unlock()
	em.archetype[e.index] = arch
}

// free drops e's archetype bookkeeping; the underlying table.EntryIndex slot
// is freed by the table.Table.DeleteEntries call that precedes this.
func (em *entityManager) free(e Entity) {
	em.mu.Lock()
	defer em.mu.Unlock()
	delete(em.archetype, e.index)
}

// alive reports whether e's generation still matches its row's current
// recycle count.
func (em *entityManager) alive(e Entity) bool {
	if e.index == 0 {
		return false
	}
	entry, err := em.entryFor(e.index)
	if err != nil {
		return false
	}
	return uint32(entry.Recycled()) == e.generation
}

// locate returns the dense-table row index and table for a live entity.
func (em *entityManager) locate(e Entity) (int, table.Table, error) {
	if !em.alive(e) {
		return 0, nil, EntityNotAliveError{Entity: e}
	}
	entry, err := em.entryFor(e.index)
	if err != nil {
		return 0, nil, EntityNotAliveError{Entity: e}
	}
	return entry.Index(), entry.Table(), nil
}

// archetypeOf returns the archetype id an entity currently belongs to.
func (em *entityManager) archetypeOf(e Entity) (archetypeID, error) {
	if !em.alive(e) {
		return 0, EntityNotAliveError{Entity: e}
	}
	em.mu.RLock()
	defer em.mu.RUnlock()
	return em.archetype[e.index], nil
}

// handleFor reconstructs the live Entity handle for a raw index, used when a
// relation table or cursor only has the row's entry id on hand.
func (em *entityManager) handleFor(index uint32) (Entity, error) {
	if index == 0 {
		return NullEntity, EntityNotAliveError{}
	}
	entry, err := em.entryFor(index)
	if err != nil {
		return NullEntity, EntityNotAliveError{}
	}
	return Entity{index: index, generation: uint32(entry.Recycled())}, nil
}
