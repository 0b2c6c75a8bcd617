package warehouse

import (
	"iter"

	"github.com/TheBitDrifter/mask"
	"github.com/TheBitDrifter/table"
)

// Cursor iterates the entities matched by a Query across every archetype
// that satisfies it, generalizing the teacher's Cursor (cursor.go) from a
// single Storage to a World plus the new terms-based Query, and from a
// single-bit lock to World.addLock/removeLock's mask.Mask256.
//
// A query with no relation term runs the original single-target row walk
// below. A query with a relation term (SPEC_FULL.md §4.7 "Relation term")
// instead runs the relational path: it enumerates the relation's sparse
// table for pairs whose two entities satisfy each target's component terms,
// optionally narrowed by Pin, and Next walks that pair list instead of a
// single archetype's rows.
type Cursor struct {
	world *World
	query *Query

	lockBit uint32
	locked  bool

	matched          []*archetype
	archetypeIndex   int
	currentArchetype *archetype
	entityIndex      int
	remaining        int
	initialized      bool

	pins map[int]Entity

	relational    bool
	relFromTarget int
	relToTarget   int
	pairs         []relationEntityPair
	pairIndex     int
	current       map[int]Entity
}

// relationEntityPair is one (from, to) match a relational cursor walks,
// already resolved to live entity handles.
type relationEntityPair struct {
	from, to Entity
}

// NewCursor builds a Cursor over w filtered by q. lockBit identifies this
// cursor's hold on w's lock mask (SPEC_FULL.md §5: "an active query holds a
// lock for its lifetime, deferring structural mutation until it's dropped").
func NewCursor(w *World, q *Query, lockBit uint32) *Cursor {
	return &Cursor{world: w, query: q, lockBit: lockBit}
}

// Pin fixes target to e for the cursor's relation-term lookup (SPEC_FULL.md
// §4.7 "Pinning: pin specific targets to specific entities" for an O(1)/O(k)
// lookup instead of a full table scan). Has no effect on a query without a
// relation term. Must be called before the first Initialize/Next/Entities
// call; returns the cursor for chaining.
func (c *Cursor) Pin(target int, e Entity) *Cursor {
	if c.pins == nil {
		c.pins = make(map[int]Entity)
	}
	c.pins[target] = e
	return c
}

// Initialize finds every archetype (or, for a relation query, every
// qualifying entity pair) currently matching the query and takes the
// world's structural-mutation lock for this cursor's lifetime.
func (c *Cursor) Initialize() error {
	if c.initialized {
		return nil
	}
	c.world.addLock(c.lockBit)
	c.locked = true

	if term, ok := c.query.RelationTerm(); ok {
		if err := c.initializeRelational(term); err != nil {
			return err
		}
		c.initialized = true
		return nil
	}

	archetypes, _ := c.world.graph.collect(mask.Mask{}, nil, 0)
	matched := make([]*archetype, 0, len(archetypes))
	for _, arch := range archetypes {
		ok, err := c.query.matches(c.world, arch)
		if err != nil {
			return err
		}
		if ok {
			matched = append(matched, arch)
		}
	}
	c.matched = matched
	if len(matched) > 0 {
		c.currentArchetype = matched[0]
		c.remaining = c.currentArchetype.table.Length()
	}
	c.initialized = true
	return nil
}

// matchesTarget reports whether e's current archetype satisfies the query's
// component terms at target.
func (c *Cursor) matchesTarget(target int, e Entity) (bool, error) {
	archID, err := c.world.entities.archetypeOf(e)
	if err != nil {
		return false, nil
	}
	arch := c.world.graph.get(archID)
	return c.query.matchesAt(c.world, arch, target)
}

// initializeRelational builds c.pairs: every (from, to) entity pair recorded
// by term's relation whose endpoints satisfy the query's component terms at
// their respective targets and any Pin constraint in force (SPEC_FULL.md
// §4.7 "one cursor per target and one per relation link"), grounded on
// original_source's QueryFilter::advance (query/filter.cpp), whose shown
// advance logic likewise narrows a single link's candidate rows by whichever
// side is pinned before checking the other side's archetype.
func (c *Cursor) initializeRelational(term Term) error {
	c.relational = true
	c.relFromTarget, c.relToTarget = term.Target, term.ToTarget

	tbl, ok := c.world.relations.tableFor(term.Relation)
	if !ok {
		return nil
	}

	fromPin, fromPinned := c.pins[term.Target]
	toPin, toPinned := c.pins[term.ToTarget]

	add := func(fromIdx, toIdx uint32) error {
		from, err := c.world.entities.handleFor(fromIdx)
		if err != nil {
			return nil
		}
		to, err := c.world.entities.handleFor(toIdx)
		if err != nil {
			return nil
		}
		if fromPinned && from != fromPin {
			return nil
		}
		if toPinned && to != toPin {
			return nil
		}
		ok, err := c.matchesTarget(term.Target, from)
		if err != nil || !ok {
			return err
		}
		ok, err = c.matchesTarget(term.ToTarget, to)
		if err != nil || !ok {
			return err
		}
		c.pairs = append(c.pairs, relationEntityPair{from: from, to: to})
		return nil
	}

	switch {
	case fromPinned && toPinned:
		if tbl.containsPair(fromPin.index, toPin.index) {
			if err := add(fromPin.index, toPin.index); err != nil {
				return err
			}
		}
	case fromPinned:
		for toIdx := range tbl.pairsFrom(fromPin.index) {
			if err := add(fromPin.index, toIdx); err != nil {
				return err
			}
		}
	case toPinned:
		for fromIdx := range tbl.pairsTo(toPin.index) {
			if err := add(fromIdx, toPin.index); err != nil {
				return err
			}
		}
	default:
		for fromIdx, toIdx := range tbl.pairsAll() {
			if err := add(fromIdx, toIdx); err != nil {
				return err
			}
		}
	}
	return nil
}

// Next advances to the next matching entity (or entity pair, for a relation
// query), returning false once exhausted. The first call to Next (or
// Entities) triggers Initialize.
func (c *Cursor) Next() bool {
	if !c.initialized {
		if err := c.Initialize(); err != nil {
			c.world.logger().Errorf("cursor initialize failed: %v", err)
			return false
		}
	}
	if c.relational {
		if c.pairIndex >= len(c.pairs) {
			c.Reset()
			return false
		}
		p := c.pairs[c.pairIndex]
		c.current = map[int]Entity{c.relFromTarget: p.from, c.relToTarget: p.to}
		c.pairIndex++
		return true
	}
	if c.entityIndex < c.remaining {
		c.entityIndex++
		return true
	}
	return c.advance()
}

func (c *Cursor) advance() bool {
	for c.archetypeIndex < len(c.matched) {
		c.currentArchetype = c.matched[c.archetypeIndex]
		c.remaining = c.currentArchetype.table.Length()
		if c.entityIndex < c.remaining {
			c.entityIndex++
			return true
		}
		c.archetypeIndex++
		c.entityIndex = 0
	}
	c.Reset()
	return false
}

// Entities returns a range-over-func iterator of (row, table) pairs
// matching the query, for callers that prefer range syntax to Next/Reset
// (matches the teacher's cursor.go Entities method). Only meaningful for a
// single-target query; a relation query has no single row/table pair per
// match and should use Next plus EntityAt instead.
func (c *Cursor) Entities() iter.Seq2[int, table.Table] {
	return func(yield func(int, table.Table) bool) {
		if err := c.Initialize(); err != nil {
			c.world.logger().Errorf("cursor initialize failed: %v", err)
			return
		}
		if c.relational {
			c.world.logger().Errorf("Entities called on a relational cursor; use Next/EntityAt instead")
			c.Reset()
			return
		}
		for c.archetypeIndex < len(c.matched) {
			c.currentArchetype = c.matched[c.archetypeIndex]
			c.remaining = c.currentArchetype.table.Length()
			for c.entityIndex < c.remaining {
				if !yield(c.entityIndex, c.currentArchetype.table) {
					c.Reset()
					return
				}
				c.entityIndex++
			}
			c.entityIndex = 0
			c.archetypeIndex++
		}
		c.Reset()
	}
}

// Reset clears the cursor's iteration state and releases its lock bit so
// deferred structural mutations queued during iteration can run.
func (c *Cursor) Reset() {
	c.archetypeIndex = 0
	c.entityIndex = 0
	c.remaining = 0
	c.matched = nil
	c.relational = false
	c.pairs = nil
	c.pairIndex = 0
	c.current = nil
	c.initialized = false
	if c.locked {
		c.world.removeLock(c.lockBit)
		c.locked = false
	}
}

// CurrentEntity returns the entity at the cursor's current position (target
// 0, for a relation query).
func (c *Cursor) CurrentEntity() (Entity, error) {
	if c.relational {
		return c.EntityAt(0)
	}
	entry, err := c.currentArchetype.table.Entry(c.entityIndex - 1)
	if err != nil {
		return NullEntity, err
	}
	return c.world.entities.handleFor(uint32(entry.ID()))
}

// EntityAt returns the entity bound to target for the cursor's current
// match (SPEC_FULL.md §4.7: "one cursor per target and one per relation
// link"). For a single-target query, target 0 is equivalent to
// CurrentEntity.
func (c *Cursor) EntityAt(target int) (Entity, error) {
	if c.relational {
		e, ok := c.current[target]
		if !ok {
			return NullEntity, TargetNotBoundError{Target: target}
		}
		return e, nil
	}
	if target != 0 {
		return NullEntity, TargetNotBoundError{Target: target}
	}
	return c.CurrentEntity()
}

// TotalMatched counts every entity (or entity pair, for a relation query)
// matching the query, without disturbing an in-progress Next/Entities
// traversal.
func (c *Cursor) TotalMatched() (int, error) {
	if err := c.Initialize(); err != nil {
		return 0, err
	}
	if c.relational {
		total := len(c.pairs)
		c.Reset()
		return total, nil
	}
	total := 0
	for _, arch := range c.matched {
		total += arch.table.Length()
	}
	c.Reset()
	return total, nil
}
