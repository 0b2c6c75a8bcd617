package warehouse

import (
	"iter"
	"sync"
)

// noRow marks the absence of a row in a relationLink, mirroring cubos's
// UINT32_MAX sentinel (sparse_relation/table.cpp).
const noRow = ^uint32(0)

// pairID packs two entity indices into the single key the sparse relation
// table hashes on, exactly as cubos's pairId(from, to) does.
func pairID(from, to uint32) uint64 {
	return uint64(from) | uint64(to)<<32
}

type relationLink struct {
	prev, next uint32
}

type relationRow struct {
	from, to         uint32
	depth            int32
	fromLink, toLink relationLink
}

type relationList struct {
	first, last uint32
}

// relationTable is the Go port of cubos's SparseRelationTable
// (core/src/ecs/table/sparse_relation/table.cpp): one dense array of (from,
// to, value) rows plus a hash index from pair to row, and two doubly-linked
// lists per row (one threaded through all rows sharing a "from", one through
// all rows sharing a "to") so viewFrom/viewTo walk in O(degree) instead of
// O(size). Erasure swap-removes the row with the table's last row, the same
// trick the teacher's dense table.Table presumably uses internally.
type relationTable[T any] struct {
	rows     []relationRow
	values   []T
	pairRows map[uint64]uint32
	fromRows map[uint32]relationList
	toRows   map[uint32]relationList
}

func newRelationTable[T any]() *relationTable[T] {
	return &relationTable[T]{
		pairRows: make(map[uint64]uint32),
		fromRows: make(map[uint32]relationList),
		toRows:   make(map[uint32]relationList),
	}
}

func (t *relationTable[T]) size() int { return len(t.rows) }

// insert adds or overwrites the (from, to) relation's value at the given
// depth. depth is always 0 for non-tree relations; for tree relations it is
// the ancestor distance recorded by relateTree (spec.md §3: "direct edge is
// depth 0 ... derived R(a, ancestor-of-b) rows at increasing depths").
// Reports whether a row already existed (overwrite) as cubos's insert does.
func (t *relationTable[T]) insert(from, to uint32, depth int32, value T) bool {
	pair := pairID(from, to)
	if row, ok := t.pairRows[pair]; ok {
		t.values[row] = value
		t.rows[row].depth = depth
		return true
	}

	index := uint32(len(t.rows))
	t.rows = append(t.rows, relationRow{
		from:     from,
		to:       to,
		depth:    depth,
		fromLink: relationLink{prev: noRow, next: noRow},
		toLink:   relationLink{prev: noRow, next: noRow},
	})
	t.values = append(t.values, value)
	t.pairRows[pair] = index
	t.appendLink(index)
	return false
}

// erase removes the (from, to) relation. Reports whether it existed.
func (t *relationTable[T]) erase(from, to uint32) bool {
	pair := pairID(from, to)
	index, ok := t.pairRows[pair]
	if !ok {
		return false
	}
	delete(t.pairRows, pair)
	t.eraseLink(index)

	last := uint32(len(t.rows) - 1)
	if index != last {
		t.rows[index] = t.rows[last]
		t.pairRows[pairID(t.rows[index].from, t.rows[index].to)] = index
		t.updateLink(index)
		t.values[index] = t.values[last]
	}

	t.rows = t.rows[:last]
	t.values = t.values[:last]
	return true
}

// eraseFrom removes every relation whose "from" index is from, returning how
// many rows were removed.
func (t *relationTable[T]) eraseFrom(from uint32) int {
	count := 0
	for {
		list, ok := t.fromRows[from]
		if !ok {
			break
		}
		row := t.rows[list.first]
		t.erase(row.from, row.to)
		count++
	}
	return count
}

// eraseTo removes every relation whose "to" index is to.
func (t *relationTable[T]) eraseTo(to uint32) int {
	count := 0
	for {
		list, ok := t.toRows[to]
		if !ok {
			break
		}
		row := t.rows[list.first]
		t.erase(row.from, row.to)
		count++
	}
	return count
}

func (t *relationTable[T]) contains(from, to uint32) bool {
	_, ok := t.pairRows[pairID(from, to)]
	return ok
}

// containsPair is the type-erased form of contains used by the query
// engine's pinned relation terms.
func (t *relationTable[T]) containsPair(from, to uint32) bool {
	return t.contains(from, to)
}

func (t *relationTable[T]) get(from, to uint32) (T, bool) {
	row, ok := t.pairRows[pairID(from, to)]
	if !ok {
		var zero T
		return zero, false
	}
	return t.values[row], true
}

// viewFrom iterates every (to, value) pair recorded with this from index, in
// insertion order, following the fromLink list (cubos's View with isFrom=true).
func (t *relationTable[T]) viewFrom(from uint32) iter.Seq2[uint32, T] {
	return func(yield func(uint32, T) bool) {
		list, ok := t.fromRows[from]
		if !ok {
			return
		}
		row := list.first
		for row != noRow {
			r := t.rows[row]
			if !yield(r.to, t.values[row]) {
				return
			}
			row = r.fromLink.next
		}
	}
}

// viewTo iterates every (from, value) pair recorded with this to index.
func (t *relationTable[T]) viewTo(to uint32) iter.Seq2[uint32, T] {
	return func(yield func(uint32, T) bool) {
		list, ok := t.toRows[to]
		if !ok {
			return
		}
		row := list.first
		for row != noRow {
			r := t.rows[row]
			if !yield(r.from, t.values[row]) {
				return
			}
			row = r.toLink.next
		}
	}
}

// depthsFrom iterates (to, depth) for every row recorded with this from
// index, in insertion order, the depth-carrying counterpart of viewFrom used
// by tree-relation ancestor/descendant propagation.
func (t *relationTable[T]) depthsFrom(from uint32) iter.Seq2[uint32, int32] {
	return func(yield func(uint32, int32) bool) {
		list, ok := t.fromRows[from]
		if !ok {
			return
		}
		row := list.first
		for row != noRow {
			r := t.rows[row]
			if !yield(r.to, r.depth) {
				return
			}
			row = r.fromLink.next
		}
	}
}

// depthsTo iterates (from, depth) for every row recorded with this to index.
func (t *relationTable[T]) depthsTo(to uint32) iter.Seq2[uint32, int32] {
	return func(yield func(uint32, int32) bool) {
		list, ok := t.toRows[to]
		if !ok {
			return
		}
		row := list.first
		for row != noRow {
			r := t.rows[row]
			if !yield(r.from, r.depth) {
				return
			}
			row = r.toLink.next
		}
	}
}

// pairsAll iterates every (from, to) pair currently stored, direct and
// derived alike, for the query engine's relation-term enumeration
// (spec.md §4.7 "enumerates every sparse relation table").
func (t *relationTable[T]) pairsAll() iter.Seq2[uint32, uint32] {
	return func(yield func(uint32, uint32) bool) {
		for _, r := range t.rows {
			if !yield(r.from, r.to) {
				return
			}
		}
	}
}

// pairsFrom iterates every "to" index recorded for from, for a relation-term
// query pinned at its from-target (spec.md §4.7 "Pinning ... O(1) lookup").
func (t *relationTable[T]) pairsFrom(from uint32) iter.Seq[uint32] {
	return func(yield func(uint32) bool) {
		for to, _ := range t.depthsFrom(from) {
			if !yield(to) {
				return
			}
		}
	}
}

// pairsTo iterates every "from" index recorded for to, for a relation-term
// query pinned at its to-target.
func (t *relationTable[T]) pairsTo(to uint32) iter.Seq[uint32] {
	return func(yield func(uint32) bool) {
		for from, _ := range t.depthsTo(to) {
			if !yield(from) {
				return
			}
		}
	}
}

func (t *relationTable[T]) appendLink(index uint32) {
	row := &t.rows[index]

	if list, ok := t.fromRows[row.from]; ok {
		row.fromLink.prev = list.last
		t.rows[list.last].fromLink.next = index
		list.last = index
		t.fromRows[row.from] = list
	} else {
		t.fromRows[row.from] = relationList{first: index, last: index}
	}

	if list, ok := t.toRows[row.to]; ok {
		row.toLink.prev = list.last
		t.rows[list.last].toLink.next = index
		list.last = index
		t.toRows[row.to] = list
	} else {
		t.toRows[row.to] = relationList{first: index, last: index}
	}
}

func (t *relationTable[T]) eraseLink(index uint32) {
	row := t.rows[index]

	fromList := t.fromRows[row.from]
	if row.fromLink.prev == noRow {
		fromList.first = row.fromLink.next
	} else {
		t.rows[row.fromLink.prev].fromLink.next = row.fromLink.next
	}
	if row.fromLink.next == noRow {
		fromList.last = row.fromLink.prev
	} else {
		t.rows[row.fromLink.next].fromLink.prev = row.fromLink.prev
	}
	if fromList.first == noRow {
		delete(t.fromRows, row.from)
	} else {
		t.fromRows[row.from] = fromList
	}

	toList := t.toRows[row.to]
	if row.toLink.prev == noRow {
		toList.first = row.toLink.next
	} else {
		t.rows[row.toLink.prev].toLink.next = row.toLink.next
	}
	if row.toLink.next == noRow {
		toList.last = row.toLink.prev
	} else {
		t.rows[row.toLink.next].toLink.prev = row.toLink.prev
	}
	if toList.first == noRow {
		delete(t.toRows, row.to)
	} else {
		t.toRows[row.to] = toList
	}
}

func (t *relationTable[T]) updateLink(index uint32) {
	row := t.rows[index]

	fromList := t.fromRows[row.from]
	if row.fromLink.prev == noRow {
		fromList.first = index
	} else {
		t.rows[row.fromLink.prev].fromLink.next = index
	}
	if row.fromLink.next == noRow {
		fromList.last = index
	} else {
		t.rows[row.fromLink.next].fromLink.prev = index
	}
	t.fromRows[row.from] = fromList

	toList := t.toRows[row.to]
	if row.toLink.prev == noRow {
		toList.first = index
	} else {
		t.rows[row.toLink.prev].toLink.next = index
	}
	if row.toLink.next == noRow {
		toList.last = index
	} else {
		t.rows[row.toLink.next].toLink.prev = index
	}
	t.toRows[row.to] = toList
}

// erasable lets relationRegistry.removeEntity clear an entity's relation rows,
// and the query engine's relation terms (query.go/cursor.go) enumerate or
// pin-lookup a relation's rows, without knowing the value type T of each
// registered relation.
type erasable interface {
	eraseFrom(from uint32) int
	eraseTo(to uint32) int
	size() int
	containsPair(from, to uint32) bool
	pairsAll() iter.Seq2[uint32, uint32]
	pairsFrom(from uint32) iter.Seq[uint32]
	pairsTo(to uint32) iter.Seq[uint32]
}

// relationRegistry holds one relationTable[T] per registered relation type,
// type-erased behind the erasable interface, plus the flags each relation
// was registered with (SPEC_FULL.md §4.5).
type relationRegistry struct {
	mu           sync.RWMutex
	tables       map[DataTypeID]erasable
	flags        map[DataTypeID]RelationFlags
	capacityHint int
}

func newRelationRegistry(capacityHint int) *relationRegistry {
	return &relationRegistry{
		tables:       make(map[DataTypeID]erasable),
		flags:        make(map[DataTypeID]RelationFlags),
		capacityHint: capacityHint,
	}
}

func (r *relationRegistry) ensure(id DataTypeID, flags RelationFlags) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flags[id] = flags
}

func (r *relationRegistry) flagsFor(id DataTypeID) RelationFlags {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.flags[id]
}

// tableFor returns the type-erased relation table for id, if one has ever
// been created (i.e. Relate/Unrelate/Related has run at least once for it).
// Used by the query engine's relation terms (query.go/cursor.go), which
// cannot recover T from a DataTypeID alone.
func (r *relationRegistry) tableFor(id DataTypeID) (erasable, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tbl, ok := r.tables[id]
	return tbl, ok
}

// removeEntity drops every relation row involving e, across every registered
// relation type, when the entity is destroyed (SPEC_FULL.md §4.6 "destroy").
func (r *relationRegistry) removeEntity(e Entity) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, tbl := range r.tables {
		tbl.eraseFrom(e.index)
		tbl.eraseTo(e.index)
	}
}

// relationTableFor returns (creating if necessary) the typed relation table
// for id, whose value type must match T (callers only ever reach this
// through Relation[T], which pins T at registration).
func relationTableFor[T any](r *relationRegistry, id DataTypeID) *relationTable[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.tables[id]; ok {
		return existing.(*relationTable[T])
	}
	tbl := newRelationTable[T]()
	if r.capacityHint > 0 {
		tbl.rows = make([]relationRow, 0, r.capacityHint)
		tbl.values = make([]T, 0, r.capacityHint)
	}
	r.tables[id] = tbl
	return tbl
}

// Relation is the user-facing handle for a registered relation type,
// generalizing Component[T] to pair-indexed rather than entity-indexed
// storage (SPEC_FULL.md §4.5).
type Relation[T any] struct {
	id    DataTypeID
	world *World
}

// ID returns the stable DataTypeID assigned to this relation type.
func (r Relation[T]) ID() DataTypeID { return r.id }

func (r Relation[T]) table() *relationTable[T] {
	return relationTableFor[T](r.world.relations, r.id)
}

// canonicalize applies the relation's declared ordering. Symmetric relations
// always store the lower entity index as "from" so (a, b) and (b, a) hash to
// the same row.
func (r Relation[T]) canonicalize(from, to Entity) (Entity, Entity) {
	if r.world.types.IsSymmetric(r.id) && from.index > to.index {
		return to, from
	}
	return from, to
}

// Relate inserts or overwrites the relation between from and to. Tree
// relations may carry at most one outgoing edge per entity and must not
// close a cycle (SPEC_FULL.md §3's tree relation invariant, cubos
// sparse_relation semantics plus cubos's tree-relation manager).
func (r Relation[T]) Relate(from, to Entity, value T) error {
	if !r.world.Alive(from) || !r.world.Alive(to) {
		if !r.world.Alive(from) {
			return EntityNotAliveError{Entity: from}
		}
		return EntityNotAliveError{Entity: to}
	}

	from, to = r.canonicalize(from, to)
	tbl := r.table()

	if r.world.types.IsTree(r.id) {
		if existing, ok := tbl.fromRows[from.index]; ok {
			row := tbl.rows[existing.first]
			if row.to != to.index {
				return TreeRelationConflictError{From: from, Relation: r.id}
			}
		} else if r.wouldCycle(tbl, from.index, to.index) {
			return RelationWouldCycleError{From: from, To: to, Relation: r.id}
		}
		r.relateTree(tbl, from.index, to.index, value)
		return nil
	}

	tbl.insert(from.index, to.index, 0, value)
	return nil
}

// wouldCycle reports whether inserting from -> to would close a cycle.
// Because tree relations maintain derived ancestor rows at insertion time
// (relateTree), "to already has from among its ancestors" is a single
// pairRows lookup — O(1) — rather than the O(depth) parent-chain walk a
// table without derived rows would require (spec.md §3: "ancestor queries
// are O(depth) lookups rather than O(depth) traversals").
func (r Relation[T]) wouldCycle(tbl *relationTable[T], from, to uint32) bool {
	return tbl.contains(to, from)
}

// relateTree records the direct edge from -> to plus every derived ancestor
// row spec.md §3 requires: for each entity d that is from-or-a-descendant-of
// from, and each entity a that is to-or-an-ancestor-of-to, record R(d, a) at
// the depth equal to the number of edges between them minus one (direct
// edges are depth 0). This is how relate(a,b) followed by relate(b,c)
// produces the derived row R(a,c) at depth 1 that scenario S4's ancestor
// query relies on.
func (r Relation[T]) relateTree(tbl *relationTable[T], from, to uint32, value T) {
	type node struct {
		idx   uint32
		edges int32 // edges already needed to reach the pivot (from or to)
	}

	descendants := []node{{idx: from, edges: 0}}
	for idx, depth := range tbl.depthsTo(from) {
		descendants = append(descendants, node{idx: idx, edges: depth + 1})
	}

	ancestors := []node{{idx: to, edges: 0}}
	for idx, depth := range tbl.depthsFrom(to) {
		ancestors = append(ancestors, node{idx: idx, edges: depth + 1})
	}

	for _, d := range descendants {
		for _, a := range ancestors {
			total := d.edges + 1 + a.edges
			tbl.insert(d.idx, a.idx, total-1, value)
		}
	}
}

// RelationEntry is one row an ancestor/descendant query yields: the related
// entity, its depth (0 for a direct edge), and the relation's value.
type RelationEntry[T any] struct {
	Entity Entity
	Depth  int
	Value  T
}

// Ancestors iterates every entity recorded as an ancestor of e by this tree
// relation, direct and derived alike, each tagged with its depth (spec.md
// §8 S4: "ancestor query from c reports {b (depth 0), a (depth 1)}").
func (r Relation[T]) Ancestors(e Entity) iter.Seq[RelationEntry[T]] {
	return func(yield func(RelationEntry[T]) bool) {
		tbl := r.table()
		list, ok := tbl.toRows[e.index]
		if !ok {
			return
		}
		row := list.first
		for row != noRow {
			rw := tbl.rows[row]
			entity, err := r.world.entities.handleFor(rw.from)
			if err == nil {
				if !yield(RelationEntry[T]{Entity: entity, Depth: int(rw.depth), Value: tbl.values[row]}) {
					return
				}
			}
			row = rw.toLink.next
		}
	}
}

// Descendants iterates every entity recorded as a descendant of e, the
// dual of Ancestors.
func (r Relation[T]) Descendants(e Entity) iter.Seq[RelationEntry[T]] {
	return func(yield func(RelationEntry[T]) bool) {
		tbl := r.table()
		list, ok := tbl.fromRows[e.index]
		if !ok {
			return
		}
		row := list.first
		for row != noRow {
			rw := tbl.rows[row]
			entity, err := r.world.entities.handleFor(rw.to)
			if err == nil {
				if !yield(RelationEntry[T]{Entity: entity, Depth: int(rw.depth), Value: tbl.values[row]}) {
					return
				}
			}
			row = rw.fromLink.next
		}
	}
}

// Unrelate removes the relation between from and to, reporting whether it existed.
func (r Relation[T]) Unrelate(from, to Entity) bool {
	from, to = r.canonicalize(from, to)
	return r.table().erase(from.index, to.index)
}

// Related returns the relation's value between from and to, if any.
func (r Relation[T]) Related(from, to Entity) (T, bool) {
	from, to = r.canonicalize(from, to)
	return r.table().get(from.index, to.index)
}

// From iterates every (to, value) pair recorded for from, traversal mode
// "Down" in SPEC_FULL.md §4.7's relation term vocabulary.
func (r Relation[T]) From(from Entity) iter.Seq2[Entity, T] {
	return func(yield func(Entity, T) bool) {
		for toIdx, value := range r.table().viewFrom(from.index) {
			to, err := r.world.entities.handleFor(toIdx)
			if err != nil {
				continue
			}
			if !yield(to, value) {
				return
			}
		}
	}
}

// To iterates every (from, value) pair recorded for to, traversal mode "Up".
func (r Relation[T]) To(to Entity) iter.Seq2[Entity, T] {
	return func(yield func(Entity, T) bool) {
		for fromIdx, value := range r.table().viewTo(to.index) {
			from, err := r.world.entities.handleFor(fromIdx)
			if err != nil {
				continue
			}
			if !yield(from, value) {
				return
			}
		}
	}
}
