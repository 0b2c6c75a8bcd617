package warehouse

import (
	"sync"

	"github.com/TheBitDrifter/bark"
	"github.com/TheBitDrifter/mask"
	"github.com/TheBitDrifter/table"
)

// World owns every table, archetype, entity slot, relation table, resource,
// and observer registration for one simulation, per SPEC_FULL.md §4.6 ("the
// world exclusively owns all tables, archetype data, entity slots, and
// resources"). It generalizes the teacher's package-level storage+schema
// pair (storage.go's globalEntryIndex/globalEntities) into a value that can
// be instantiated more than once.
type World struct {
	config     Config
	types      *typeRegistry
	schema     table.Schema
	entryIndex table.EntryIndex
	entities   *entityManager
	graph      *archetypeGraph

	elementsMu sync.RWMutex
	elements   map[DataTypeID]table.ElementType

	resources  *resourceRegistry
	relations  *relationRegistry
	events     *eventRegistry
	observers  *observerRegistry
	blueprints *blueprintRegistry
	systems    *systemRegistry

	locksMu sync.Mutex
	locks   mask.Mask256
	queued  []func(*World) error
}

// newWorld builds a World with the given configuration. Kept unexported;
// callers go through Factory.NewWorld / Factory.NewWorldWithConfig.
func newWorld(cfg Config) (*World, error) {
	entryIndex := table.Factory.NewEntryIndex()
	w := &World{
		config:     cfg,
		types:      newTypeRegistry(),
		schema:     table.Factory.NewSchema(),
		entryIndex: entryIndex,
		entities:   newEntityManager(entryIndex),
		elements:   make(map[DataTypeID]table.ElementType),
		resources:  newResourceRegistry(),
		relations:  newRelationRegistry(cfg.RelationTableCapacityHint),
		events:     newEventRegistry(),
		observers:  newObserverRegistry(),
		blueprints: newBlueprintRegistry(),
		systems:    newSystemRegistry(),
	}
	graph, err := newArchetypeGraph(w)
	if err != nil {
		return nil, err
	}
	w.graph = graph
	return w, nil
}

func (w *World) logger() Logger { return w.config.logger() }

// elementFor returns the table.ElementType backing a registered component
// type, populated the first time RegisterComponent[T] runs for this world.
func (w *World) elementFor(id DataTypeID) (table.ElementType, bool) {
	w.elementsMu.RLock()
	defer w.elementsMu.RUnlock()
	e, ok := w.elements[id]
	return e, ok
}

func (w *World) setElementFor(id DataTypeID, elem table.ElementType) {
	w.elementsMu.Lock()
	defer w.elementsMu.Unlock()
	w.elements[id] = elem
}

// RegisterComponent registers T as a component type on this world, returning
// a Component[T] handle. Safe to call more than once for the same T; later
// calls return the same id (Type Registry §4.2: "re-registering the same
// type returns the existing id").
func RegisterComponent[T any](w *World) Component[T] {
	id, _, _ := registerComponentType[T](w.types)
	elem := table.FactoryNewElementType[T]()
	w.setElementFor(id, elem)
	return Component[T]{
		id:       id,
		elem:     elem,
		Accessor: table.FactoryNewAccessor[T](elem),
	}
}

// RegisterRelation registers T as a relation type, returning a Relation[T]
// handle. flags.Symmetric and flags.Tree configure the sparse relation
// table's canonicalization and cycle-checking behavior (SPEC_FULL.md §4.5).
func RegisterRelation[T any](w *World, flags RelationFlags) Relation[T] {
	id, _, _ := registerRelationType[T](w.types, flags)
	w.relations.ensure(id, flags)
	return Relation[T]{id: id, world: w}
}

// RegisterResource registers T as a resource type and inserts value as its
// initial state, returning a Resource[T] handle.
func RegisterResource[T any](w *World, value T) Resource[T] {
	id, _, _ := registerResourceType[T](w.types)
	w.resources.insert(id, &value)
	return Resource[T]{id: id, world: w}
}

// RegisterEvent registers T as an event type, returning an Event[T] handle
// (spec.md §3 "Event pipe").
func RegisterEvent[T any](w *World) Event[T] {
	id, _, _ := registerEventType[T](w.types)
	return Event[T]{id: id, world: w}
}

// Columned is satisfied by any registered-type handle that names a single
// column, e.g. Component[T] (Relation[T] columns are attached through
// relate/unrelate instead, since a relation's column set depends on the
// target entity).
type Columned interface {
	Column() ColumnID
}

// Create spawns one entity with the given components already attached,
// generalizing the teacher's Storage.NewEntities(1, ...) for the single-
// entity case the spec calls out explicitly (§4.6 "create").
func (w *World) Create(components ...Columned) (Entity, error) {
	entities, err := w.CreateMany(1, components...)
	if err != nil {
		return NullEntity, err
	}
	return entities[0], nil
}

// CreateMany spawns n entities sharing the same initial column set.
func (w *World) CreateMany(n int, components ...Columned) ([]Entity, error) {
	if w.Locked() {
		return nil, LockedStorageError{}
	}
	cols := make([]ColumnID, len(components))
	for i, c := range components {
		cols[i] = c.Column()
	}
	arch, err := w.graph.internColumns(cols)
	if err != nil {
		return nil, err
	}
	entities, err := arch.Generate(n)
	if err != nil {
		return nil, err
	}
	for _, e := range entities {
		w.observers.fireAdd(w, e, cols)
	}
	return entities, nil
}

// Destroy removes an entity and all of its component data, firing on_remove
// observers for every column it carried (SPEC_FULL.md §4.8).
func (w *World) Destroy(e Entity) error {
	if w.Locked() {
		w.queued = append(w.queued, func(w *World) error { return w.destroyNow(e) })
		return nil
	}
	return w.destroyNow(e)
}

func (w *World) destroyNow(e Entity) error {
	if !w.entities.alive(e) {
		return EntityNotAliveError{Entity: e}
	}
	archID, err := w.entities.archetypeOf(e)
	if err != nil {
		return err
	}
	arch := w.graph.get(archID)
	w.observers.fireRemove(w, e, arch.Columns())
	w.relations.removeEntity(e)

	row, tbl, err := w.entities.locate(e)
	if err != nil {
		return err
	}
	if _, err := tbl.DeleteEntries(row); err != nil {
		return bark.AddTrace(err)
	}
	w.entities.free(e)
	return nil
}

// Alive reports whether e refers to a live entity.
func (w *World) Alive(e Entity) bool { return w.entities.alive(e) }

// Locked reports whether any lock bit is currently held (e.g. an active
// Cursor), mirroring the teacher's storage.Locked/AddLock/RemoveLock pair
// (storage.go) generalized from a single bit to mask.Mask256 so nested
// cursors over different queries don't release each other's locks early.
func (w *World) Locked() bool {
	w.locksMu.Lock()
	defer w.locksMu.Unlock()
	return !w.locks.IsEmpty()
}

func (w *World) addLock(bit uint32) {
	w.locksMu.Lock()
	defer w.locksMu.Unlock()
	w.locks.Mark(bit)
}

func (w *World) removeLock(bit uint32) {
	w.locksMu.Lock()
	w.locks.Unmark(bit)
	drain := w.locks.IsEmpty()
	var queued []func(*World) error
	if drain {
		queued, w.queued = w.queued, nil
	}
	w.locksMu.Unlock()

	for _, op := range queued {
		if err := op(w); err != nil {
			w.logger().Errorf("queued operation failed after unlock: %v", err)
		}
	}
}

// AddComponent attaches a zero-valued component column to e, moving it to
// the with(col) archetype (SPEC_FULL.md §4.3/§4.6). Returns
// ComponentExistsError if e already carries that column.
func (w *World) AddComponent(e Entity, col ColumnID) error {
	if w.Locked() {
		w.queued = append(w.queued, func(w *World) error { return w.addComponentNow(e, col) })
		return nil
	}
	return w.addComponentNow(e, col)
}

func (w *World) addComponentNow(e Entity, col ColumnID) error {
	archID, err := w.entities.archetypeOf(e)
	if err != nil {
		return err
	}
	arch := w.graph.get(archID)
	if contains(arch.Columns(), col) {
		return ComponentExistsError{Type: col.Type}
	}
	targetID, err := w.graph.with(archID, col)
	if err != nil {
		return err
	}
	if err := w.transfer(e, archID, targetID); err != nil {
		return err
	}
	w.observers.fireAdd(w, e, []ColumnID{col})
	return nil
}

// RemoveComponent detaches a component column from e, moving it to the
// without(col) archetype.
func (w *World) RemoveComponent(e Entity, col ColumnID) error {
	if w.Locked() {
		w.queued = append(w.queued, func(w *World) error { return w.removeComponentNow(e, col) })
		return nil
	}
	return w.removeComponentNow(e, col)
}

func (w *World) removeComponentNow(e Entity, col ColumnID) error {
	archID, err := w.entities.archetypeOf(e)
	if err != nil {
		return err
	}
	arch := w.graph.get(archID)
	if !contains(arch.Columns(), col) {
		return ComponentNotFoundError{Type: col.Type}
	}
	w.observers.fireRemove(w, e, []ColumnID{col})
	targetID, err := w.graph.without(archID, col)
	if err != nil {
		return err
	}
	return w.transfer(e, archID, targetID)
}

// transfer moves e's row from its current archetype's table to target's
// table via table.Table.TransferEntries. The teacher's entity.AddComponent/
// RemoveComponent (entity.go) never reassigns its embedded table.Entry after
// calling TransferEntries, which means a table.Entry is a live handle that
// keeps resolving to an entity's current table/row through the shared
// table.EntryIndex — so the entity manager's stored entry needs no update,
// only its archetype id for the archetype-graph side of the bookkeeping.
func (w *World) transfer(e Entity, from, to archetypeID) error {
	if from == to {
		return nil
	}
	row, tbl, err := w.entities.locate(e)
	if err != nil {
		return err
	}
	targetArch := w.graph.get(to)
	if err := tbl.TransferEntries(targetArch.Table(), row); err != nil {
		return bark.AddTrace(err)
	}
	w.entities.setArchetype(e, to)
	return nil
}

// HasComponent reports whether e currently carries col.
func (w *World) HasComponent(e Entity, col ColumnID) (bool, error) {
	archID, err := w.entities.archetypeOf(e)
	if err != nil {
		return false, err
	}
	return contains(w.graph.get(archID).Columns(), col), nil
}
