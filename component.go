package warehouse

import (
	"github.com/TheBitDrifter/table"
)

// ColumnElement is anything that can sit in a dense table column: the
// teacher's table.ElementType, kept as the underlying identity components
// present to the table package (SPEC_FULL.md: "Dense Table Store" keeps
// using github.com/TheBitDrifter/table).
type ColumnElement interface {
	table.ElementType
}

// ColumnID pairs a data type id with a small tag (SPEC_FULL.md §3: "Column
// id"). Components always use tag zero; the tag is reserved for future
// per-slot columns, matching the spec's stated reservation.
type ColumnID struct {
	Type DataTypeID
	Tag  uint8
}

// Component is the user-facing handle for a registered component type,
// generalizing the teacher's AccessibleComponent[T]: it now also carries the
// DataTypeID the type registry assigned, so the archetype graph, query
// engine, and fetcher can reason about it without a table.Schema in hand.
type Component[T any] struct {
	id   DataTypeID
	elem table.ElementType
	table.Accessor[T]
}

// ID returns the stable DataTypeID assigned to this component type.
func (c Component[T]) ID() DataTypeID { return c.id }

// Column returns the ColumnID (tag zero) for this component.
func (c Component[T]) Column() ColumnID { return ColumnID{Type: c.id} }

// Element returns the underlying table.ElementType used to build dense
// table schemas.
func (c Component[T]) Element() table.ElementType { return c.elem }

// GetFromCursor retrieves the component value for the entity currently
// pointed at by cursor.
func (c Component[T]) GetFromCursor(cursor *Cursor) *T {
	return c.Get(cursor.entityIndex-1, cursor.currentArchetype.table)
}

// GetFromCursorSafe checks presence before dereferencing, for optional terms.
func (c Component[T]) GetFromCursorSafe(cursor *Cursor) (*T, bool) {
	if !c.Accessor.Check(cursor.currentArchetype.table) {
		return nil, false
	}
	return c.GetFromCursor(cursor), true
}

// CheckCursor reports whether this component exists on the cursor's current archetype.
func (c Component[T]) CheckCursor(cursor *Cursor) bool {
	return c.Accessor.Check(cursor.currentArchetype.table)
}

// GetFromEntity retrieves the component value for a specific entity handle,
// failing with ComponentMissingError rather than returning a pointer into
// unrelated table memory if e's current archetype doesn't carry this column
// (SPEC_FULL.md §7: "ComponentMissing - get/read-style query expected a
// component that isn't present").
func (c Component[T]) GetFromEntity(w *World, e Entity) (*T, error) {
	row, tbl, err := w.entities.locate(e)
	if err != nil {
		return nil, err
	}
	if !c.Accessor.Check(tbl) {
		return nil, ComponentMissingError{Entity: e, Type: c.id}
	}
	return c.Get(row, tbl), nil
}
