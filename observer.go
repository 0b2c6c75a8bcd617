package warehouse

import "sort"

// ObserverFunc is called once per matching column whenever an on_add/
// on_remove observer fires (SPEC_FULL.md §4.8). It receives the world so the
// callback can read the component's current value through its Component[T]
// handle.
type ObserverFunc func(w *World, e Entity, col ColumnID)

// observerRegistry holds the on_add and on_remove callbacks registered per
// column id, firing them synchronously at commit time (§4.8: "observers run
// synchronously as part of the mutation that triggered them"). Each mutation
// fires only one kind (Create and AddComponent fire adds, RemoveComponent
// and Destroy fire removes); callbacks fire in column-id order, and in
// registration order within one column.
type observerRegistry struct {
	onAdd    map[DataTypeID][]ObserverFunc
	onRemove map[DataTypeID][]ObserverFunc
}

func newObserverRegistry() *observerRegistry {
	return &observerRegistry{
		onAdd:    make(map[DataTypeID][]ObserverFunc),
		onRemove: make(map[DataTypeID][]ObserverFunc),
	}
}

// OnAdd registers fn to run whenever a component of type id is attached to
// an entity, whether through World.AddComponent, World.Create, or a
// command-buffer spawn/instantiate.
func (w *World) OnAdd(id DataTypeID, fn ObserverFunc) {
	w.observers.onAdd[id] = append(w.observers.onAdd[id], fn)
}

// OnRemove registers fn to run whenever a component of type id is detached
// from an entity, including as part of Destroy.
func (w *World) OnRemove(id DataTypeID, fn ObserverFunc) {
	w.observers.onRemove[id] = append(w.observers.onRemove[id], fn)
}

func (r *observerRegistry) fireAdd(w *World, e Entity, cols []ColumnID) {
	r.fire(r.onAdd, w, e, cols)
}

func (r *observerRegistry) fireRemove(w *World, e Entity, cols []ColumnID) {
	r.fire(r.onRemove, w, e, cols)
}

func (r *observerRegistry) fire(byType map[DataTypeID][]ObserverFunc, w *World, e Entity, cols []ColumnID) {
	ordered := append([]ColumnID(nil), cols...)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Type != ordered[j].Type {
			return ordered[i].Type < ordered[j].Type
		}
		return ordered[i].Tag < ordered[j].Tag
	})
	for _, col := range ordered {
		for _, fn := range byType[col.Type] {
			fn(w, e, col)
		}
	}
}
