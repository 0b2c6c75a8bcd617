package warehouse

// Column lets a bare ColumnID satisfy Columned, so CreateMany/Commands.Create
// accept either a Component[T] handle or a raw ColumnID interchangeably.
func (c ColumnID) Column() ColumnID { return c }

// EntityBuilder accumulates columns and post-creation setters for one entity
// spawned through Commands.Create, generalizing cubos's EntityBuilder
// (system/commands.hpp) to Go: cubos reserves a real Entity id immediately
// and defers only component attachment, which this module can't replicate
// because table.EntryIndex only ever hands out ids bound to an actual table
// row (see entity.go) - so the entity itself, not just its components, is
// created at Flush time. Entity() is therefore only meaningful after the
// owning CommandBuffer has been flushed.
type EntityBuilder struct {
	resolved Entity
	cols     []ColumnID
	setters  []func(w *World, e Entity) error
}

// With queues a column to attach when the entity is created.
func (b *EntityBuilder) With(col ColumnID) *EntityBuilder {
	b.cols = append(b.cols, col)
	return b
}

// Then queues an arbitrary setup callback (typically a Set call) to run
// against the real entity once it exists.
func (b *EntityBuilder) Then(fn func(w *World, e Entity) error) *EntityBuilder {
	b.setters = append(b.setters, fn)
	return b
}

// Entity returns the entity this builder created, valid only once the
// CommandBuffer it was built from has been flushed.
func (b *EntityBuilder) Entity() Entity { return b.resolved }

// Set queues a component value assignment against the entity a builder will
// resolve to, the Go equivalent of cubos's EntityBuilder::add(component)
// carrying an initial value rather than a zero value.
func Set[T any](b *EntityBuilder, comp Component[T], value T) *EntityBuilder {
	b.cols = append(b.cols, comp.Column())
	b.Then(func(w *World, e Entity) error {
		v, err := comp.GetFromEntity(w, e)
		if err != nil {
			return err
		}
		*v = value
		return nil
	})
	return b
}

// Commands is the system-facing wrapper around a CommandBuffer (cubos's
// Commands, system/commands.hpp), giving systems a narrower surface than the
// full World while still deferring every mutation to the buffer.
type Commands struct {
	buffer *CommandBuffer
}

// NewCommands wraps a CommandBuffer for use as a system parameter.
func NewCommands(buffer *CommandBuffer) Commands {
	return Commands{buffer: buffer}
}

// Create queues the creation of a new entity with the given initial
// columns, returning a builder that can still have more columns and setters
// attached before the buffer is flushed.
func (c Commands) Create(cols ...ColumnID) *EntityBuilder {
	b := &EntityBuilder{cols: append([]ColumnID(nil), cols...)}
	c.buffer.Enqueue(func(w *World) error {
		columned := make([]Columned, len(b.cols))
		for i, col := range b.cols {
			columned[i] = col
		}
		e, err := w.Create(columned...)
		if err != nil {
			return err
		}
		b.resolved = e
		for _, setter := range b.setters {
			if err := setter(w, e); err != nil {
				return err
			}
		}
		return nil
	})
	return b
}

// Add queues attaching col to an already-existing entity.
func (c Commands) Add(e Entity, col ColumnID) {
	c.buffer.Enqueue(func(w *World) error { return w.AddComponent(e, col) })
}

// Remove queues detaching col from e.
func (c Commands) Remove(e Entity, col ColumnID) {
	c.buffer.Enqueue(func(w *World) error { return w.RemoveComponent(e, col) })
}

// Destroy queues e's destruction.
func (c Commands) Destroy(e Entity) {
	c.buffer.Enqueue(func(w *World) error { return w.Destroy(e) })
}

// Relate queues relating from to to through rel with the given value.
func Relate[T any](c Commands, rel Relation[T], from, to Entity, value T) {
	c.buffer.Enqueue(func(w *World) error { return rel.Relate(from, to, value) })
}
