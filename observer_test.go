package warehouse

import "testing"

type wireHealth struct{ HP int }
type wireShield struct{ Amount int }

func TestObserverFiresOnAddAndRemove(t *testing.T) {
	w, err := Factory.NewWorld()
	if err != nil {
		t.Fatalf("NewWorld: %v", err)
	}
	health := RegisterComponent[wireHealth](w)

	var added, removed []Entity
	w.OnAdd(health.ID(), func(w *World, e Entity, col ColumnID) { added = append(added, e) })
	w.OnRemove(health.ID(), func(w *World, e Entity, col ColumnID) { removed = append(removed, e) })

	e, err := w.Create()
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := w.AddComponent(e, health.Column()); err != nil {
		t.Fatalf("AddComponent: %v", err)
	}
	if len(added) != 1 || added[0] != e {
		t.Fatalf("added = %v, want [%v]", added, e)
	}

	if err := w.RemoveComponent(e, health.Column()); err != nil {
		t.Fatalf("RemoveComponent: %v", err)
	}
	if len(removed) != 1 || removed[0] != e {
		t.Fatalf("removed = %v, want [%v]", removed, e)
	}
}

func TestObserverFiresOnDestroy(t *testing.T) {
	w, err := Factory.NewWorld()
	if err != nil {
		t.Fatalf("NewWorld: %v", err)
	}
	health := RegisterComponent[wireHealth](w)

	var removed int
	w.OnRemove(health.ID(), func(w *World, e Entity, col ColumnID) { removed++ })

	e, err := w.Create(health)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := w.Destroy(e); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
}

func TestObserverFiresInColumnIDOrder(t *testing.T) {
	w, err := Factory.NewWorld()
	if err != nil {
		t.Fatalf("NewWorld: %v", err)
	}
	health := RegisterComponent[wireHealth](w)
	shield := RegisterComponent[wireShield](w)

	var order []DataTypeID
	record := func(w *World, e Entity, col ColumnID) { order = append(order, col.Type) }
	w.OnAdd(health.ID(), record)
	w.OnAdd(shield.ID(), record)

	if _, err := w.Create(shield, health); err != nil {
		t.Fatalf("Create: %v", err)
	}

	if len(order) != 2 {
		t.Fatalf("order = %v, want 2 entries", order)
	}
	lower, higher := health.ID(), shield.ID()
	if lower > higher {
		lower, higher = higher, lower
	}
	if order[0] != lower || order[1] != higher {
		t.Fatalf("order = %v, want ascending column-id order [%d %d]", order, lower, higher)
	}
}
