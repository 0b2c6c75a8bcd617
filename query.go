// Package warehouse provides query mechanisms for component-based entity systems
package warehouse

import "github.com/TheBitDrifter/mask"

// TermKind classifies a Term (SPEC_FULL.md §4.7's three term kinds: "Entity
// term", "With-component term", "Relation term").
type TermKind uint8

const (
	TermComponent TermKind = iota
	TermEntity
	TermRelation
)

// TraversalMode names how a relation term's rows are walked (spec.md §4.7:
// "traversal mode Random or Up/Down (tree only)"). The mode is stored on the
// Term only: the Cursor does not read it, and walks a relation term's pairs
// in relation-table order whatever the mode.
type TraversalMode uint8

const (
	TraversalRandom TraversalMode = iota
	TraversalUp
	TraversalDown
)

// Term is one clause of a query (SPEC_FULL.md §4.7 "Query engine"), bound to
// one or two integer targets: a plain component requirement/optional/
// negated term at one target, a bare entity term that reserves a target
// without constraining it, or a relation term linking two targets. This
// replaces the teacher's query.go And/Or/Not tree (built from raw Component
// values) with the flatter terms-list model the spec calls for, since
// systems need to declare their read/write access set up front for the
// planner/scheduler rather than build a query lazily at iteration time.
type Term struct {
	Kind   TermKind
	Target int

	// Component terms (Kind == TermComponent).
	Column   ColumnID
	Optional bool
	Negated  bool
	Write    bool

	// Relation terms (Kind == TermRelation): requires Relation(entities[Target],
	// entities[ToTarget]) to hold.
	Relation DataTypeID
	ToTarget int
	Mode     TraversalMode
}

// With builds a required, read-only term for a component at target 0.
func With(col ColumnID) Term { return Term{Kind: TermComponent, Column: col} }

// WithWrite builds a required term the system intends to mutate, at target 0.
func WithWrite(col ColumnID) Term { return Term{Kind: TermComponent, Column: col, Write: true} }

// Without builds a negated term at target 0: matching archetypes must NOT
// carry col.
func Without(col ColumnID) Term { return Term{Kind: TermComponent, Column: col, Negated: true} }

// Maybe builds an optional term at target 0: col may or may not be present;
// callers must use GetFromCursorSafe rather than GetFromCursor to read it.
func Maybe(col ColumnID) Term { return Term{Kind: TermComponent, Column: col, Optional: true} }

// WithAt builds a required, read-only term for a component at an explicit
// target, for multi-target queries that pair it with a relation term.
func WithAt(target int, col ColumnID) Term {
	return Term{Kind: TermComponent, Target: target, Column: col}
}

// WithWriteAt is WithAt's write-intent counterpart.
func WithWriteAt(target int, col ColumnID) Term {
	return Term{Kind: TermComponent, Target: target, Column: col, Write: true}
}

// WithoutAt is WithAt's negated counterpart.
func WithoutAt(target int, col ColumnID) Term {
	return Term{Kind: TermComponent, Target: target, Column: col, Negated: true}
}

// MaybeAt is WithAt's optional counterpart.
func MaybeAt(target int, col ColumnID) Term {
	return Term{Kind: TermComponent, Target: target, Column: col, Optional: true}
}

// EntityTerm reserves target without placing any component constraint on
// it — SPEC_FULL.md §4.7's "Entity term at target t: binds t to some entity
// slot" — useful when a relation term's target is otherwise unconstrained.
func EntityTerm(target int) Term { return Term{Kind: TermEntity, Target: target} }

// WithRelation builds a relation term requiring rel(entities[from],
// entities[to]) to hold, traversed in the given mode (SPEC_FULL.md §4.7
// "Relation term with types R, from-target f, to-target u").
func WithRelation(rel DataTypeID, from, to int, mode TraversalMode) Term {
	return Term{Kind: TermRelation, Target: from, ToTarget: to, Relation: rel, Mode: mode}
}

// Query describes the archetype- and relation-level filter for a system or
// ad-hoc iteration: every non-optional, non-negated component term must be
// present at its target, every negated term must be absent, optional terms
// never filter, and every relation term must hold between its two targets.
type Query struct {
	terms []Term
}

// NewQuery builds a Query from a list of terms.
func NewQuery(terms ...Term) *Query {
	return &Query{terms: terms}
}

// Terms returns the query's terms, exposed so the system fetcher and
// planner can compute read/write access sets without re-parsing a query
// tree (SPEC_FULL.md §4.10/§5).
func (q *Query) Terms() []Term { return q.terms }

// TargetCount returns one plus the highest target index any term names
// (SPEC_FULL.md §4.7 step 1: "Counts targets"). A query with no terms at all
// still reports a single target, matching the single-target Cursor path.
func (q *Query) TargetCount() int {
	max := 0
	for _, t := range q.terms {
		if t.Target+1 > max {
			max = t.Target + 1
		}
		if t.Kind == TermRelation && t.ToTarget+1 > max {
			max = t.ToTarget + 1
		}
	}
	if max == 0 {
		max = 1
	}
	return max
}

// RelationTerm returns the query's relation term, if it has one. Only a
// single relation link per query is supported (mirroring original_source's
// QueryFilter::advance, whose shown link-handling path is written for
// exactly one link and two targets); chained multi-link queries are future
// work.
func (q *Query) RelationTerm() (Term, bool) {
	for _, t := range q.terms {
		if t.Kind == TermRelation {
			return t, true
		}
	}
	return Term{}, false
}

func (q *Query) requireMask(w *World) (mask.Mask, error) {
	return q.requireMaskAt(w, 0)
}

func (q *Query) excludeMask(w *World) (mask.Mask, error) {
	return q.excludeMaskAt(w, 0)
}

// requireMaskAt computes the require-mask for a single target, generalizing
// the single-target requireMask into the per-target form multi-target
// relation queries need.
func (q *Query) requireMaskAt(w *World, target int) (mask.Mask, error) {
	var m mask.Mask
	for _, t := range q.terms {
		if t.Kind != TermComponent || t.Target != target || t.Negated || t.Optional {
			continue
		}
		elem, ok := w.elementFor(t.Column.Type)
		if !ok {
			return mask.Mask{}, TypeNotRegisteredError{Name: w.types.Type(t.Column.Type).Name}
		}
		w.schema.Register(elem)
		m.Mark(w.schema.RowIndexFor(elem))
	}
	return m, nil
}

func (q *Query) excludeMaskAt(w *World, target int) (mask.Mask, error) {
	var m mask.Mask
	for _, t := range q.terms {
		if t.Kind != TermComponent || t.Target != target || !t.Negated {
			continue
		}
		elem, ok := w.elementFor(t.Column.Type)
		if !ok {
			return mask.Mask{}, TypeNotRegisteredError{Name: w.types.Type(t.Column.Type).Name}
		}
		w.schema.Register(elem)
		m.Mark(w.schema.RowIndexFor(elem))
	}
	return m, nil
}

// matches reports whether arch satisfies the query's target-0 component
// terms, mirroring the teacher's leafNode.Evaluate (query.go) generalized to
// also check the negated set. Used by the single-target Cursor path.
func (q *Query) matches(w *World, arch *archetype) (bool, error) {
	return q.matchesAt(w, arch, 0)
}

// matchesAt is matches generalized to an explicit target index, used by the
// multi-target relation Cursor path to test each relation endpoint's
// archetype independently.
func (q *Query) matchesAt(w *World, arch *archetype, target int) (bool, error) {
	require, err := q.requireMaskAt(w, target)
	if err != nil {
		return false, err
	}
	exclude, err := q.excludeMaskAt(w, target)
	if err != nil {
		return false, err
	}
	return arch.mask.ContainsAll(require) && arch.mask.ContainsNone(exclude), nil
}

// ReadWriteSets returns the component DataTypeIDs this query reads and
// writes, used by the planner to detect access conflicts between systems
// running in the same schedule pass (SPEC_FULL.md §5).
func (q *Query) ReadWriteSets() (reads, writes []DataTypeID) {
	for _, t := range q.terms {
		if t.Kind != TermComponent || t.Negated {
			continue
		}
		if t.Write {
			writes = append(writes, t.Column.Type)
		} else {
			reads = append(reads, t.Column.Type)
		}
	}
	return reads, writes
}

// RelationReadSet returns the DataTypeIDs of every relation type this
// query's relation term touches, used by the planner alongside
// ReadWriteSets to detect relation-table access conflicts (SPEC_FULL.md §4.7
// "Concurrency declaration": "reports the set of ... (relation-type →
// read|write) accesses").
func (q *Query) RelationReadSet() []DataTypeID {
	var ids []DataTypeID
	for _, t := range q.terms {
		if t.Kind == TermRelation {
			ids = append(ids, t.Relation)
		}
	}
	return ids
}
