package warehouse

import (
	"reflect"
	"sync"

	"github.com/TheBitDrifter/bark"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// EntityRef is a component field type naming another stub in the same
// blueprint (spec.md §6: "Entity cross-references are string names resolved
// at instantiation time"). YAML decoding only captures the referenced
// stub's name; Instantiate then walks every component it attaches for
// EntityRef fields and rewrites them through the blueprint's fresh
// name -> Entity mapping, after which Entity holds the live handle.
type EntityRef struct {
	Entity
	name string
}

// NewEntityRef builds an unresolved reference to the stub named name, for
// blueprints assembled programmatically via EntityStub.With.
func NewEntityRef(name string) EntityRef { return EntityRef{name: name} }

// MarshalYAML writes the reference back out as its stub name.
func (r EntityRef) MarshalYAML() (any, error) { return r.name, nil }

// UnmarshalYAML captures the stub name; the handle is filled in later by
// Instantiate's resolution pass.
func (r *EntityRef) UnmarshalYAML(node *yaml.Node) error {
	return node.Decode(&r.name)
}

var entityRefType = reflect.TypeOf(EntityRef{})

// resolveEntityRefs walks valuePtr (a pointer to a just-decoded component
// value) looking for EntityRef fields, nested arbitrarily deep through
// structs, slices, arrays, and pointers, and rewrites each one's Entity
// against byName.
func resolveEntityRefs(valuePtr any, byName map[string]Entity) {
	v := reflect.ValueOf(valuePtr)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return
	}
	walkEntityRefs(v.Elem(), byName)
}

func walkEntityRefs(v reflect.Value, byName map[string]Entity) {
	switch v.Kind() {
	case reflect.Struct:
		if v.Type() == entityRefType {
			if !v.CanAddr() {
				return
			}
			ref := v.Addr().Interface().(*EntityRef)
			if ref.name != "" {
				ref.Entity = byName[ref.name]
			}
			return
		}
		for i := 0; i < v.NumField(); i++ {
			walkEntityRefs(v.Field(i), byName)
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			walkEntityRefs(v.Index(i), byName)
		}
	case reflect.Ptr:
		if !v.IsNil() {
			walkEntityRefs(v.Elem(), byName)
		}
	}
}

// blueprintComponentType decodes one YAML component value onto a freshly
// created entity, bridging the blueprint format's string type names
// (SPEC_FULL.md §6) back to a concrete Component[T] registered earlier, and
// resolving any EntityRef fields against byName before the component is
// installed.
type blueprintComponentType struct {
	attach func(w *World, e Entity, node *yaml.Node, byName map[string]Entity) error
}

// blueprintRegistry is the name -> component-type lookup a World needs to
// instantiate blueprints. Grounded on no single teacher file (the teacher's
// archetype/query example never serializes anything); the shape follows
// Acksell-bezos's ddbgen/schema.go, which similarly keys generated behavior
// off a string read from YAML.
type blueprintRegistry struct {
	mu    sync.RWMutex
	types map[string]blueprintComponentType
}

func newBlueprintRegistry() *blueprintRegistry {
	return &blueprintRegistry{types: make(map[string]blueprintComponentType)}
}

// RegisterBlueprintComponent makes comp resolvable under name when
// instantiating a blueprint whose entity stubs reference that name. Call
// once per (world, name) pair before Instantiate needs it.
func RegisterBlueprintComponent[T any](w *World, name string, comp Component[T]) {
	w.blueprints.mu.Lock()
	defer w.blueprints.mu.Unlock()
	w.blueprints.types[name] = blueprintComponentType{
		attach: func(w *World, e Entity, node *yaml.Node, byName map[string]Entity) error {
			var value T
			if node != nil {
				if err := node.Decode(&value); err != nil {
					return bark.AddTrace(err)
				}
			}
			resolveEntityRefs(&value, byName)
			if err := w.AddComponent(e, comp.Column()); err != nil {
				return err
			}
			ptr, err := comp.GetFromEntity(w, e)
			if err != nil {
				return err
			}
			*ptr = value
			return nil
		},
	}
}

func (r *blueprintRegistry) lookup(name string) (blueprintComponentType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[name]
	return t, ok
}

// ComponentStub is one (component-type-name, component-value) pair attached
// to an EntityStub, exactly the pairing spec.md §6 names. Value is kept as a
// raw yaml.Node until Instantiate resolves Type against a registered
// blueprint component, since the blueprint format itself carries no schema.
type ComponentStub struct {
	Type  string    `yaml:"type"`
	Value yaml.Node `yaml:"value"`
}

// EntityStub is one named row of a Blueprint. id is a uuid assigned by
// Blueprint.Stub and UnmarshalYAML; Instantiate does not consult it.
// Instantiate gives every stub its own entity by position, so two stubs
// sharing a Name still get separate entities; the returned name map and
// EntityRef resolution see the last stub with a given name.
type EntityStub struct {
	id         uuid.UUID
	Name       string          `yaml:"name"`
	Components []ComponentStub `yaml:"components"`
}

// Blueprint is the serialized form of a small world (SPEC_FULL.md §6): a
// table of entity stubs, each with a string name and its component list.
// Cross-references between stubs are resolved by name at Instantiate time.
type Blueprint struct {
	Stubs []EntityStub `yaml:"entities"`
}

// NewBlueprint returns an empty blueprint.
func NewBlueprint() *Blueprint {
	return &Blueprint{}
}

// Stub appends a new named entity stub and returns it for chaining via With.
func (b *Blueprint) Stub(name string) *EntityStub {
	b.Stubs = append(b.Stubs, EntityStub{id: uuid.New(), Name: name})
	return &b.Stubs[len(b.Stubs)-1]
}

// With attaches a component-type-name/value pair to the stub, chainable the
// same way EntityBuilder.With is.
func (s *EntityStub) With(typeName string, value any) *EntityStub {
	var node yaml.Node
	// Marshal/unmarshal round-trip turns an arbitrary Go value into the same
	// yaml.Node shape Unmarshal would have produced from a file, so
	// programmatically built and file-loaded blueprints instantiate
	// identically.
	if raw, err := yaml.Marshal(value); err == nil {
		_ = yaml.Unmarshal(raw, &node)
	}
	s.Components = append(s.Components, ComponentStub{Type: typeName, Value: node})
	return s
}

// byName returns the stub named name, if any.
func (b *Blueprint) byName(name string) (*EntityStub, bool) {
	for i := range b.Stubs {
		if b.Stubs[i].Name == name {
			return &b.Stubs[i], true
		}
	}
	return nil, false
}

// Instantiate spawns one live entity per stub in b, in declaration order,
// attaching and decoding every named component. Unresolved type names fail
// with TypeNotRegisteredError rather than silently skipping the component,
// since a blueprint with a typo'd component name is a construction-time bug,
// not a runtime condition a correct caller can encounter.
func (w *World) Instantiate(b *Blueprint) (map[string]Entity, error) {
	byName := make(map[string]Entity, len(b.Stubs))
	created := make([]Entity, len(b.Stubs))
	for i, stub := range b.Stubs {
		e, err := w.Create()
		if err != nil {
			return nil, err
		}
		created[i] = e
		byName[stub.Name] = e
	}

	for i, stub := range b.Stubs {
		e := created[i]
		for _, c := range stub.Components {
			ct, ok := w.blueprints.lookup(c.Type)
			if !ok {
				return nil, TypeNotRegisteredError{Name: c.Type}
			}
			node := c.Value
			if err := ct.attach(w, e, &node, byName); err != nil {
				return nil, err
			}
		}
	}
	return byName, nil
}

// MarshalYAML implements yaml.Marshaler so a Blueprint round-trips through
// the entity-stub table shape spec.md §6 describes, without exposing the
// internal uuid field EntityStub carries for in-memory disambiguation.
func (b Blueprint) MarshalYAML() (any, error) {
	type entity struct {
		Name       string          `yaml:"name"`
		Components []ComponentStub `yaml:"components"`
	}
	type wire struct {
		Entities []entity `yaml:"entities"`
	}
	out := wire{Entities: make([]entity, len(b.Stubs))}
	for i, s := range b.Stubs {
		out.Entities[i] = entity{Name: s.Name, Components: s.Components}
	}
	return out, nil
}

// UnmarshalYAML implements yaml.Unmarshaler, assigning each decoded stub a
// fresh uuid the same way Blueprint.Stub does for programmatically built
// blueprints.
func (b *Blueprint) UnmarshalYAML(value *yaml.Node) error {
	var wire struct {
		Entities []struct {
			Name       string          `yaml:"name"`
			Components []ComponentStub `yaml:"components"`
		} `yaml:"entities"`
	}
	if err := value.Decode(&wire); err != nil {
		return bark.AddTrace(err)
	}
	b.Stubs = make([]EntityStub, len(wire.Entities))
	for i, e := range wire.Entities {
		b.Stubs[i] = EntityStub{id: uuid.New(), Name: e.Name, Components: e.Components}
	}
	return nil
}
