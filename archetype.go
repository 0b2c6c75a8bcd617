package warehouse

import (
	"sort"
	"sync"

	"github.com/TheBitDrifter/mask"
	"github.com/TheBitDrifter/table"
)

// archetypeID is the dense, interned id of a column set (SPEC_FULL.md §3
// "Archetype"). Id 0 is always the empty archetype.
type archetypeID uint32

// Archetype is the public view of one archetype's identity and storage,
// generalizing the teacher's concrete archetype struct (archetype.go) into
// an interface so the query engine and cursor can be handed either a real
// archetype or (in tests) a fake one.
type Archetype interface {
	ID() archetypeID
	Mask() mask.Mask
	Columns() []ColumnID
	Table() table.Table
	// Generate bulk-creates n entities directly into this archetype,
	// skipping the single-entity AddComponent path. Used by
	// World.CreateMany.
	Generate(n int) ([]Entity, error)
}

var _ Archetype = (*archetype)(nil)

// archetype is the concrete Archetype: one dense table per unique column
// set, built with github.com/TheBitDrifter/table exactly as the teacher's
// newArchetype did (WithSchema/WithEntryIndex/WithElementTypes/WithEvents),
// now parameterized over an explicit ordered []ColumnID instead of a
// variadic Component list, since the archetype graph needs to reconstruct
// archetypes it has only ever seen as masks.
type archetype struct {
	id      archetypeID
	mask    mask.Mask
	columns []ColumnID
	table   table.Table
	world   *World
}

func newArchetype(w *World, id archetypeID, columns []ColumnID, m mask.Mask) (*archetype, error) {
	elementTypes := make([]table.ElementType, len(columns))
	for i, col := range columns {
		elem, ok := w.elementFor(col.Type)
		if !ok {
			return nil, TypeNotRegisteredError{Name: w.types.Type(col.Type).Name}
		}
		elementTypes[i] = elem
	}

	tbl, err := table.NewTableBuilder().
		WithSchema(w.schema).
		WithEntryIndex(w.entryIndex).
		WithElementTypes(elementTypes...).
		WithEvents(w.config.TableEvents).
		Build()
	if err != nil {
		return nil, err
	}

	return &archetype{
		id:      id,
		mask:    m,
		columns: columns,
		table:   tbl,
		world:   w,
	}, nil
}

func (a *archetype) ID() archetypeID   { return a.id }
func (a *archetype) Mask() mask.Mask   { return a.mask }
func (a *archetype) Columns() []ColumnID { return a.columns }
func (a *archetype) Table() table.Table { return a.table }

// Generate bulk-creates n entities directly in this archetype. Each new
// row's table.EntryID becomes the Entity's index and its initial Recycled()
// count becomes the Entity's generation, the same identity the teacher's
// entity.ID()/Recycled() pair already carries (entity.go).
func (a *archetype) Generate(n int) ([]Entity, error) {
	entries, err := a.table.NewEntries(n)
	if err != nil {
		return nil, err
	}
	out := make([]Entity, n)
	for i, entry := range entries {
		e := Entity{index: uint32(entry.ID()), generation: uint32(entry.Recycled())}
		a.world.entities.track(e, a.id)
		out[i] = e
	}
	return out, nil
}

// archetypeGraph implements the Archetype Graph (SPEC_FULL.md §4.3): interns
// column sets into dense archetype ids and caches with/without edges so
// repeated add/remove component traffic is O(1) after the first transition,
// generalizing the teacher's flat idsGroupedByMask map (storage.go) which
// only ever looked up-or-created, with no edge cache and no superset
// traversal (collect).
type archetypeGraph struct {
	mu      sync.RWMutex
	world   *World
	byMask  map[mask.Mask]archetypeID
	byID    []*archetype
	withE   []map[ColumnID]archetypeID
	withoutE []map[ColumnID]archetypeID
}

func newArchetypeGraph(w *World) (*archetypeGraph, error) {
	g := &archetypeGraph{
		world:  w,
		byMask: make(map[mask.Mask]archetypeID),
	}
	empty, err := newArchetype(w, 0, nil, mask.Mask{})
	if err != nil {
		return nil, err
	}
	g.byID = append(g.byID, empty)
	g.withE = append(g.withE, map[ColumnID]archetypeID{})
	g.withoutE = append(g.withoutE, map[ColumnID]archetypeID{})
	g.byMask[mask.Mask{}] = 0
	return g, nil
}

// empty returns the id of the archetype with no columns (fixed at 0).
func (g *archetypeGraph) empty() archetypeID { return 0 }

func (g *archetypeGraph) get(id archetypeID) *archetype {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.byID[id]
}

func (g *archetypeGraph) len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.byID)
}

// sortedColumns returns a copy of cols ordered by type id, then tag.
func sortedColumns(cols []ColumnID) []ColumnID {
	out := append([]ColumnID(nil), cols...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].Tag < out[j].Tag
	})
	return out
}

// maskFor computes the archetype bitmask for a column set the same way the
// teacher's storage.go does (schema.Register then schema.RowIndexFor per
// component), rather than using DataTypeID as a bit index directly: the type
// registry's ids are shared across components, relations, and resources, but
// table.Schema only ever hands out bits for element types it has actually
// seen, so routing mask assignment through it keeps archetype masks as dense
// as the teacher's.
func (g *archetypeGraph) maskFor(cols []ColumnID) (mask.Mask, error) {
	var m mask.Mask
	for _, c := range cols {
		desc := g.world.types.Type(c.Type)
		if desc == nil {
			return mask.Mask{}, TypeNotRegisteredError{Name: "<unregistered>"}
		}
		if !g.world.types.IsComponent(c.Type) {
			return mask.Mask{}, TypeKindMismatchError{Type: c.Type, Expected: KindComponent, Actual: g.world.types.kindOf(c.Type)}
		}
		elem, ok := g.world.elementFor(c.Type)
		if !ok {
			return mask.Mask{}, TypeNotRegisteredError{Name: desc.Name}
		}
		g.world.schema.Register(elem)
		bit := g.world.schema.RowIndexFor(elem)
		m.Mark(bit)
	}
	return m, nil
}

// internColumns finds or creates the archetype for exactly this column set.
func (g *archetypeGraph) internColumns(cols []ColumnID) (*archetype, error) {
	cols = sortedColumns(cols)
	m, err := g.maskFor(cols)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if id, ok := g.byMask[m]; ok {
		return g.byID[id], nil
	}

	id := archetypeID(len(g.byID))
	arch, err := newArchetype(g.world, id, cols, m)
	if err != nil {
		return nil, err
	}
	g.byID = append(g.byID, arch)
	g.withE = append(g.withE, map[ColumnID]archetypeID{})
	g.withoutE = append(g.withoutE, map[ColumnID]archetypeID{})
	g.byMask[m] = id
	return arch, nil
}

// with returns the archetype obtained by adding col to base, caching the
// edge for subsequent calls (SPEC_FULL.md §4.3: "Both cache the result;
// repeated calls are O(1) after first").
func (g *archetypeGraph) with(base archetypeID, col ColumnID) (archetypeID, error) {
	g.mu.RLock()
	if to, ok := g.withE[base][col]; ok {
		g.mu.RUnlock()
		return to, nil
	}
	baseArch := g.byID[base]
	if contains(baseArch.columns, col) {
		g.mu.RUnlock()
		return base, nil
	}
	cols := append(append([]ColumnID(nil), baseArch.columns...), col)
	g.mu.RUnlock()

	arch, err := g.internColumns(cols)
	if err != nil {
		return 0, err
	}

	g.mu.Lock()
	g.withE[base][col] = arch.id
	g.withoutE[arch.id][col] = base
	g.mu.Unlock()
	return arch.id, nil
}

// without returns the archetype obtained by removing col from base.
func (g *archetypeGraph) without(base archetypeID, col ColumnID) (archetypeID, error) {
	g.mu.RLock()
	if to, ok := g.withoutE[base][col]; ok {
		g.mu.RUnlock()
		return to, nil
	}
	baseArch := g.byID[base]
	if !contains(baseArch.columns, col) {
		g.mu.RUnlock()
		return base, nil
	}
	cols := make([]ColumnID, 0, len(baseArch.columns)-1)
	for _, c := range baseArch.columns {
		if c != col {
			cols = append(cols, c)
		}
	}
	g.mu.RUnlock()

	arch, err := g.internColumns(cols)
	if err != nil {
		return 0, err
	}

	g.mu.Lock()
	g.withoutE[base][col] = arch.id
	g.withE[arch.id][col] = base
	g.mu.Unlock()
	return arch.id, nil
}

func contains(cols []ColumnID, col ColumnID) bool {
	for _, c := range cols {
		if c == col {
			return true
		}
	}
	return false
}

// collect appends every archetype that is a superset of base and has index
// >= seen, returning the new cursor value. Because archetypes are
// append-only and interned, a monotonically advancing integer cursor is
// sufficient to guarantee each archetype is reported to a given caller
// exactly once, and that every archetype satisfying the predicate at call
// time is eventually reported (SPEC_FULL.md §4.3 "collect").
func (g *archetypeGraph) collect(base mask.Mask, out []*archetype, seen int) ([]*archetype, int) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for i := seen; i < len(g.byID); i++ {
		if g.byID[i].mask.ContainsAll(base) {
			out = append(out, g.byID[i])
		}
	}
	return out, len(g.byID)
}
