/*
Package warehouse is an Entity-Component-System core for games and
simulations.

A World owns every table, archetype, entity slot, relation, resource, event
pipe, and observer registration for one simulation. Entities are 64-bit
handles (a 32-bit index plus a 32-bit generation); components are plain Go
types registered once per World; archetypes are the dense column sets a
World interns automatically as entities gain and lose components; relations
are directed (optionally symmetric or tree-shaped) links between entity
pairs, stored sparsely rather than as components; resources are per-World
singletons; queries describe a required/optional/negated/read-write term
set over components plus, optionally, a relation term linking two targets,
evaluated lazily by a Cursor.

Core Concepts:

  - Entity: a handle identifying one live row across the World's tables.
  - Component: a data container registered via RegisterComponent[T].
  - Archetype: the set of components a given entity currently carries.
  - Relation: a directed link between two entities, registered via
    RegisterRelation[T]; a tree relation also maintains derived ancestor
    rows, queryable by depth via Ancestors/Descendants.
  - Resource: a per-World singleton, registered via RegisterResource[T].
  - Event: an append-only pipe of values with per-reader cursors,
    registered via RegisterEvent[T].
  - Query/Cursor: describe and iterate a matching set of archetypes, or, for
    a query with a relation term, a matching set of entity pairs across the
    term's two targets (Cursor.EntityAt, Cursor.Pin).
  - CommandBuffer/Commands: deferred mutations, for code running while a
    Cursor holds the World's structural lock.
  - Blueprint: a named, serializable template for spawning a small group of
    related entities at once; a component field of type EntityRef is
    rewritten to point at a sibling stub once Instantiate assigns real
    entity handles.
  - System/Param: a plain Go function registered via RegisterSystem, whose
    arguments are supplied by Param values (ResourceRead, ResourceWrite,
    QueryAccess, EventRead, EventWrite, WorldAccess, CommandsAccess) that
    declare the system's read/write footprint up front.
  - Planner/Schedule: Planner builds an ordered, conditionally-gated
    Schedule of tags (systems, repeat loops, and only-if conditions); the
    Schedule's Run executes it once, parallelizing systems whose declared
    accesses don't conflict and have no ordering relation between them.

Basic Usage:

	world, _ := warehouse.Factory.NewWorld()

	position := warehouse.RegisterComponent[Position](world)
	velocity := warehouse.RegisterComponent[Velocity](world)

	entity, _ := world.Create(position, velocity)

	query := warehouse.NewQuery(
		warehouse.WithWrite(position.Column()),
		warehouse.With(velocity.Column()),
	)
	cursor := warehouse.NewCursor(world, query, 0)
	defer cursor.Reset()

	for cursor.Next() {
		pos := position.GetFromCursor(cursor)
		vel := velocity.GetFromCursor(cursor)
		pos.X += vel.X
		pos.Y += vel.Y
	}

Warehouse is the underlying ECS for the Bappa Framework but also works as a
standalone library.
*/
package warehouse
