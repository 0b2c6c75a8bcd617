package warehouse

import "testing"

// Shared component fixtures for this package's test files.
type Position struct {
	X, Y float64
}

type Velocity struct {
	X, Y float64
}

type Health struct {
	Current, Max int
}

func newTestWorld(t *testing.T) *World {
	t.Helper()
	w, err := Factory.NewWorld()
	if err != nil {
		t.Fatalf("NewWorld failed: %v", err)
	}
	return w
}

// TestEntityCreation checks that an entity can be created with any
// combination of registered components, including none.
func TestEntityCreation(t *testing.T) {
	w := newTestWorld(t)
	pos := RegisterComponent[Position](w)
	vel := RegisterComponent[Velocity](w)
	health := RegisterComponent[Health](w)

	tests := []struct {
		name        string
		components  []Columned
		entityCount int
	}{
		{"empty entity", nil, 1},
		{"single component", []Columned{pos}, 10},
		{"multiple components", []Columned{pos, vel}, 5},
		{"large batch", []Columned{pos, vel, health}, 1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entities, err := w.CreateMany(tt.entityCount, tt.components...)
			if err != nil {
				t.Fatalf("CreateMany() error = %v", err)
			}
			if len(entities) != tt.entityCount {
				t.Fatalf("created %d entities, want %d", len(entities), tt.entityCount)
			}
			for i, e := range entities {
				if !w.Alive(e) {
					t.Errorf("entity %d is not alive", i)
				}
			}
			if len(entities) > 0 {
				for _, col := range tt.components {
					has, err := w.HasComponent(entities[0], col.Column())
					if err != nil {
						t.Fatalf("HasComponent: %v", err)
					}
					if !has {
						t.Errorf("entity missing expected column %v", col.Column())
					}
				}
			}
		})
	}
}

// TestComponentAddRemove is scenario S1: add/remove cycle plus destroy.
func TestComponentAddRemove(t *testing.T) {
	w := newTestWorld(t)
	pos := RegisterComponent[Position](w)

	e, err := w.Create()
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := w.AddComponent(e, pos.Column()); err != nil {
		t.Fatalf("AddComponent: %v", err)
	}
	ptr, err := pos.GetFromEntity(w, e)
	if err != nil {
		t.Fatalf("GetFromEntity: %v", err)
	}
	*ptr = Position{X: 1, Y: 2}

	has, err := w.HasComponent(e, pos.Column())
	if err != nil || !has {
		t.Fatalf("expected entity to have Position, has=%v err=%v", has, err)
	}
	got, err := pos.GetFromEntity(w, e)
	if err != nil || *got != (Position{X: 1, Y: 2}) {
		t.Errorf("Position = %v, want {1 2}", got)
	}

	if err := w.RemoveComponent(e, pos.Column()); err != nil {
		t.Fatalf("RemoveComponent: %v", err)
	}
	has, err = w.HasComponent(e, pos.Column())
	if err != nil || has {
		t.Fatalf("expected entity to no longer have Position, has=%v err=%v", has, err)
	}

	if err := w.Destroy(e); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if w.Alive(e) {
		t.Errorf("entity still alive after Destroy")
	}
}

// TestAddComponentTwiceFails matches ComponentExistsError (§7).
func TestAddComponentTwiceFails(t *testing.T) {
	w := newTestWorld(t)
	pos := RegisterComponent[Position](w)

	e, err := w.Create(pos)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	err = w.AddComponent(e, pos.Column())
	if _, ok := err.(ComponentExistsError); !ok {
		t.Fatalf("expected ComponentExistsError, got %v", err)
	}
}

// TestRemoveMissingComponentFails matches ComponentNotFoundError (§7).
func TestRemoveMissingComponentFails(t *testing.T) {
	w := newTestWorld(t)
	pos := RegisterComponent[Position](w)
	vel := RegisterComponent[Velocity](w)

	e, err := w.Create(pos)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	err = w.RemoveComponent(e, vel.Column())
	if _, ok := err.(ComponentNotFoundError); !ok {
		t.Fatalf("expected ComponentNotFoundError, got %v", err)
	}
}

// TestDestroyDeadEntityFails exercises the EntityNotAlive error kind.
func TestDestroyDeadEntityFails(t *testing.T) {
	w := newTestWorld(t)
	e, err := w.Create()
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := w.Destroy(e); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	err = w.Destroy(e)
	if _, ok := err.(EntityNotAliveError); !ok {
		t.Fatalf("expected EntityNotAliveError, got %v", err)
	}
}

// TestArchetypeMovePreservesOtherColumns is scenario S2.
func TestArchetypeMovePreservesOtherColumns(t *testing.T) {
	w := newTestWorld(t)
	pos := RegisterComponent[Position](w)
	vel := RegisterComponent[Velocity](w)
	health := RegisterComponent[Health](w)

	e, err := w.Create(pos, vel)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	posPtr, _ := pos.GetFromEntity(w, e)
	*posPtr = Position{X: 1, Y: 0}
	velPtr, _ := vel.GetFromEntity(w, e)
	*velPtr = Velocity{X: 0, Y: 1}

	if err := w.AddComponent(e, health.Column()); err != nil {
		t.Fatalf("AddComponent: %v", err)
	}

	posAfter, err := pos.GetFromEntity(w, e)
	if err != nil || *posAfter != (Position{X: 1, Y: 0}) {
		t.Errorf("Position after move = %v, want {1 0}", posAfter)
	}
	velAfter, err := vel.GetFromEntity(w, e)
	if err != nil || *velAfter != (Velocity{X: 0, Y: 1}) {
		t.Errorf("Velocity after move = %v, want {0 1}", velAfter)
	}
}

// TestEntityUniqueness is invariant 1 of the testable properties: once an
// index is recycled, the destroyed handle carrying the old generation must
// not resolve to the new entity.
func TestEntityUniqueness(t *testing.T) {
	w := newTestWorld(t)
	pos := RegisterComponent[Position](w)

	first, err := w.Create(pos)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := w.Destroy(first); err != nil {
		t.Fatalf("Destroy: %v", err)
	}

	second, err := w.Create(pos)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if first == second {
		t.Fatalf("recycled entity handle %v collided with prior handle", second)
	}
	if w.Alive(first) {
		t.Errorf("stale handle %v reports alive", first)
	}
	if !w.Alive(second) {
		t.Errorf("fresh handle %v reports dead", second)
	}
}
