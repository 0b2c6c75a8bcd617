package warehouse

import "fmt"

// The error kinds below follow SPEC_FULL.md §7's table. Each is a small
// struct carrying the context needed to act on it, matching the teacher's
// errors.go style (ComponentExistsError, ComponentNotFoundError) rather than
// package-level sentinel values, generalized to every kind the table names.

// LockedStorageError is returned when a direct (non-enqueued) mutation is
// attempted while the storage holds at least one lock.
type LockedStorageError struct{}

func (e LockedStorageError) Error() string {
	return "storage is currently locked"
}

// EntityNotAliveError is returned when an operation targets a dead or null
// entity handle.
type EntityNotAliveError struct {
	Entity Entity
}

func (e EntityNotAliveError) Error() string {
	return fmt.Sprintf("entity %d/%d is not alive", e.Entity.index, e.Entity.generation)
}

// ComponentMissingError is returned when get/read expected a component that
// isn't present on the entity's current archetype.
type ComponentMissingError struct {
	Entity Entity
	Type   DataTypeID
}

func (e ComponentMissingError) Error() string {
	return fmt.Sprintf("entity %d does not have component type %d", e.Entity.index, e.Type)
}

// TypeNotRegisteredError is returned when an operation references a data
// type that was never registered with the type registry.
type TypeNotRegisteredError struct {
	Name string
}

func (e TypeNotRegisteredError) Error() string {
	return fmt.Sprintf("type %q was not registered", e.Name)
}

// TypeKindMismatchError is returned when a type registered as one kind
// (component/relation/resource) is used as another.
type TypeKindMismatchError struct {
	Type     DataTypeID
	Expected DataKind
	Actual   DataKind
}

func (e TypeKindMismatchError) Error() string {
	return fmt.Sprintf("type %d is a %s, expected a %s", e.Type, e.Actual, e.Expected)
}

// RelationWouldCycleError is returned when inserting a tree relation would
// close a cycle.
type RelationWouldCycleError struct {
	From, To Entity
	Relation DataTypeID
}

func (e RelationWouldCycleError) Error() string {
	return fmt.Sprintf("relation %d(%d, %d) would create a cycle", e.Relation, e.From.index, e.To.index)
}

// TreeRelationConflictError is returned when inserting a second outgoing
// edge for a tree relation.
type TreeRelationConflictError struct {
	From     Entity
	Relation DataTypeID
}

func (e TreeRelationConflictError) Error() string {
	return fmt.Sprintf("entity %d already has an outgoing tree relation %d", e.From.index, e.Relation)
}

// QueryAccessConflictError is returned when a system declares incompatible
// accesses, e.g. reading and writing the same resource, or world-exclusive
// access together with any other parameter.
type QueryAccessConflictError struct {
	Type      DataTypeID
	Exclusive bool
}

func (e QueryAccessConflictError) Error() string {
	if e.Exclusive {
		return "world-exclusive access must be the system's only declared parameter"
	}
	return fmt.Sprintf("conflicting read/write access declared for type %d", e.Type)
}

// OrderingCycleError is returned when the planner's ordering edges contain a
// cycle.
type OrderingCycleError struct {
	Before, After string
}

func (e OrderingCycleError) Error() string {
	return fmt.Sprintf("couldn't enforce ordering constraint between %q and %q, as it would create a cycle", e.Before, e.After)
}

// MultipleRepeatParentsError is returned when a tag ends up belonging to two
// incomparable repeating parents.
type MultipleRepeatParentsError struct {
	Tag, First, Second string
}

func (e MultipleRepeatParentsError) Error() string {
	return fmt.Sprintf("%q belongs to two repeating tags %q and %q, which is forbidden", e.Tag, e.First, e.Second)
}

// SelfTaggedError is returned when a tag is, directly or through a chain of
// parents, tagged with itself.
type SelfTaggedError struct {
	Tag string
}

func (e SelfTaggedError) Error() string {
	return fmt.Sprintf("%q is tagged with itself, which is forbidden", e.Tag)
}

// CommandTargetDeadError is a warning-class condition: a buffered command
// targeted an entity that died before commit. It implements error so it can
// be logged, but World/CommandBuffer never return it — the command is
// skipped and a warning is logged (SPEC_FULL.md §4.9).
type CommandTargetDeadError struct {
	Entity Entity
}

func (e CommandTargetDeadError) Error() string {
	return fmt.Sprintf("command targeted entity %d which is no longer alive", e.Entity.index)
}

// ComponentExistsError is returned by AddComponent when the component is
// already present (kept as a distinguishable error rather than a silent
// no-op, for callers that want to tell "already there" from "added").
type ComponentExistsError struct {
	Type DataTypeID
}

func (e ComponentExistsError) Error() string {
	return fmt.Sprintf("component type %d already exists on entity", e.Type)
}

// ComponentNotFoundError is returned by RemoveComponent when the component
// isn't present.
type ComponentNotFoundError struct {
	Type DataTypeID
}

func (e ComponentNotFoundError) Error() string {
	return fmt.Sprintf("component type %d does not exist on entity", e.Type)
}

// TargetNotBoundError is returned by Cursor.EntityAt when asked for a query
// target index the current match doesn't bind (SPEC_FULL.md §4.7: "one
// cursor per target and one per relation link").
type TargetNotBoundError struct {
	Target int
}

func (e TargetNotBoundError) Error() string {
	return fmt.Sprintf("query target %d is not bound by the current match", e.Target)
}
