package warehouse

import (
	"testing"

	"gopkg.in/yaml.v3"
)

type wirePos struct{ X, Y int }

func TestBlueprintInstantiateAttachesComponents(t *testing.T) {
	w, err := Factory.NewWorld()
	if err != nil {
		t.Fatalf("NewWorld: %v", err)
	}
	pos := RegisterComponent[wirePos](w)
	RegisterBlueprintComponent(w, "position", pos)

	bp := NewBlueprint()
	bp.Stub("hero").With("position", wirePos{X: 3, Y: 4})

	entities, err := w.Instantiate(bp)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	hero, ok := entities["hero"]
	if !ok {
		t.Fatal("expected a \"hero\" entity")
	}
	p, err := pos.GetFromEntity(w, hero)
	if err != nil {
		t.Fatalf("GetFromEntity: %v", err)
	}
	if p.X != 3 || p.Y != 4 {
		t.Fatalf("position = %+v, want {3 4}", *p)
	}
}

func TestBlueprintInstantiateRejectsUnregisteredComponentName(t *testing.T) {
	w, err := Factory.NewWorld()
	if err != nil {
		t.Fatalf("NewWorld: %v", err)
	}
	bp := NewBlueprint()
	bp.Stub("orphan").With("nonexistent", wirePos{})

	_, err = w.Instantiate(bp)
	if _, ok := err.(TypeNotRegisteredError); !ok {
		t.Fatalf("error = %v (%T), want TypeNotRegisteredError", err, err)
	}
}

func TestBlueprintYAMLRoundTrip(t *testing.T) {
	w, err := Factory.NewWorld()
	if err != nil {
		t.Fatalf("NewWorld: %v", err)
	}
	pos := RegisterComponent[wirePos](w)
	RegisterBlueprintComponent(w, "position", pos)

	bp := NewBlueprint()
	bp.Stub("hero").With("position", wirePos{X: 1, Y: 2})

	raw, err := yaml.Marshal(bp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded Blueprint
	if err := yaml.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(decoded.Stubs) != 1 || decoded.Stubs[0].Name != "hero" {
		t.Fatalf("decoded stubs = %+v", decoded.Stubs)
	}

	entities, err := w.Instantiate(&decoded)
	if err != nil {
		t.Fatalf("Instantiate decoded blueprint: %v", err)
	}
	hero := entities["hero"]
	p, err := pos.GetFromEntity(w, hero)
	if err != nil {
		t.Fatalf("GetFromEntity: %v", err)
	}
	if p.X != 1 || p.Y != 2 {
		t.Fatalf("position = %+v, want {1 2}", *p)
	}
}

type wireOwner struct {
	Name string
	Pet  EntityRef
}

// TestBlueprintInstantiateResolvesEntityRef covers spec.md §4.9/§6: a
// component's EntityRef field, given as a stub name in the blueprint, must
// end up holding the live Entity the name resolved to after Instantiate.
func TestBlueprintInstantiateResolvesEntityRef(t *testing.T) {
	w, err := Factory.NewWorld()
	if err != nil {
		t.Fatalf("NewWorld: %v", err)
	}
	owner := RegisterComponent[wireOwner](w)
	RegisterBlueprintComponent(w, "owner", owner)

	bp := NewBlueprint()
	bp.Stub("cat")
	bp.Stub("alice").With("owner", wireOwner{Name: "Alice", Pet: NewEntityRef("cat")})

	entities, err := w.Instantiate(bp)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	alice, cat := entities["alice"], entities["cat"]

	got, err := owner.GetFromEntity(w, alice)
	if err != nil {
		t.Fatalf("GetFromEntity: %v", err)
	}
	if got.Pet.Entity != cat {
		t.Fatalf("owner.Pet.Entity = %v, want %v (the \"cat\" stub)", got.Pet.Entity, cat)
	}
}

// TestBlueprintYAMLRoundTripResolvesEntityRef checks the same resolution
// still happens when the blueprint arrives as YAML rather than being built
// programmatically, since EntityRef only captures a bare string either way.
func TestBlueprintYAMLRoundTripResolvesEntityRef(t *testing.T) {
	w, err := Factory.NewWorld()
	if err != nil {
		t.Fatalf("NewWorld: %v", err)
	}
	owner := RegisterComponent[wireOwner](w)
	RegisterBlueprintComponent(w, "owner", owner)

	bp := NewBlueprint()
	bp.Stub("cat")
	bp.Stub("alice").With("owner", wireOwner{Name: "Alice", Pet: NewEntityRef("cat")})

	raw, err := yaml.Marshal(bp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded Blueprint
	if err := yaml.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	entities, err := w.Instantiate(&decoded)
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	alice, cat := entities["alice"], entities["cat"]

	got, err := owner.GetFromEntity(w, alice)
	if err != nil {
		t.Fatalf("GetFromEntity: %v", err)
	}
	if got.Pet.Entity != cat {
		t.Fatalf("owner.Pet.Entity = %v, want %v (the \"cat\" stub)", got.Pet.Entity, cat)
	}
}
