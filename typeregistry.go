package warehouse

import (
	"reflect"
	"sync"
)

// DataKind classifies a registered data type per SPEC_FULL.md §3 ("Data type id").
type DataKind uint8

const (
	KindComponent DataKind = iota
	KindRelation
	KindResource
	KindEvent
)

func (k DataKind) String() string {
	switch k {
	case KindComponent:
		return "component"
	case KindRelation:
		return "relation"
	case KindResource:
		return "resource"
	case KindEvent:
		return "event"
	default:
		return "unknown"
	}
}

// DataTypeID is the dense integer id a user type receives on registration.
// Ids are never reused (Type Registry §4.2: "Registration is append-only").
type DataTypeID uint32

type typeEntry struct {
	desc      *TypeDescriptor
	kind      DataKind
	symmetric bool
	tree      bool
}

// typeRegistry implements the Type Registry (SPEC_FULL.md §4.2). It is
// grounded on the teacher's storage.go schema.Register/RowIndexFor pattern
// (register-once, stable dense index) but generalized beyond components: it
// tracks kind and relation flags that the teacher's component-only schema
// has no concept of.
type typeRegistry struct {
	mu      sync.RWMutex
	byRType map[reflect.Type]DataTypeID
	entries []typeEntry
}

func newTypeRegistry() *typeRegistry {
	return &typeRegistry{byRType: make(map[reflect.Type]DataTypeID)}
}

// register is the generic entry point used by registerComponent/Relation/Resource.
// Re-registering the same Go type under a different DataKind (a component
// type later registered as a relation, say) is a programming error a correct
// caller cannot trigger by accident - it panics with a TypeKindMismatchError
// rather than silently returning the wrong kind's id, matching SPEC_FULL.md
// §7's "violated invariants are fatal" propagation policy for this class of
// mistake.
func (r *typeRegistry) register(rtype reflect.Type, desc *TypeDescriptor, kind DataKind, symmetric, tree bool) DataTypeID {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.byRType[rtype]; ok {
		existing := r.entries[id]
		if existing.kind != kind {
			panic(TypeKindMismatchError{Type: id, Expected: kind, Actual: existing.kind})
		}
		return id
	}

	id := DataTypeID(len(r.entries))
	r.entries = append(r.entries, typeEntry{desc: desc, kind: kind, symmetric: symmetric, tree: tree})
	r.byRType[rtype] = id
	return id
}

func (r *typeRegistry) idFor(rtype reflect.Type) (DataTypeID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byRType[rtype]
	return id, ok
}

func (r *typeRegistry) entry(id DataTypeID) (typeEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if int(id) >= len(r.entries) {
		return typeEntry{}, false
	}
	return r.entries[id], true
}

func (r *typeRegistry) Type(id DataTypeID) *TypeDescriptor {
	e, ok := r.entry(id)
	if !ok {
		return nil
	}
	return e.desc
}

// kindOf returns id's registered DataKind, or KindComponent's zero value if
// id was never registered (callers that reach here already know id exists).
func (r *typeRegistry) kindOf(id DataTypeID) DataKind {
	e, _ := r.entry(id)
	return e.kind
}

func (r *typeRegistry) IsComponent(id DataTypeID) bool {
	e, ok := r.entry(id)
	return ok && e.kind == KindComponent
}

func (r *typeRegistry) IsRelation(id DataTypeID) bool {
	e, ok := r.entry(id)
	return ok && e.kind == KindRelation
}

func (r *typeRegistry) IsResource(id DataTypeID) bool {
	e, ok := r.entry(id)
	return ok && e.kind == KindResource
}

func (r *typeRegistry) IsEvent(id DataTypeID) bool {
	e, ok := r.entry(id)
	return ok && e.kind == KindEvent
}

func (r *typeRegistry) IsSymmetric(id DataTypeID) bool {
	e, ok := r.entry(id)
	return ok && e.symmetric
}

func (r *typeRegistry) IsTree(id DataTypeID) bool {
	e, ok := r.entry(id)
	return ok && e.tree
}

// registerComponentType registers T as a component and returns its id,
// descriptor, and reflect.Type for callers that need all three.
func registerComponentType[T any](r *typeRegistry) (DataTypeID, *TypeDescriptor, reflect.Type) {
	rtype := reflect.TypeOf((*T)(nil)).Elem()
	desc := reflectDescribe[T]()
	id := r.register(rtype, desc, KindComponent, false, false)
	return id, desc, rtype
}

// RelationFlags configures relation-specific behavior at registration time
// (SPEC_FULL.md §3: "relations additionally carry two flags").
type RelationFlags struct {
	Symmetric bool
	Tree      bool
}

func registerRelationType[T any](r *typeRegistry, flags RelationFlags) (DataTypeID, *TypeDescriptor, reflect.Type) {
	rtype := reflect.TypeOf((*T)(nil)).Elem()
	desc := reflectDescribe[T]()
	id := r.register(rtype, desc, KindRelation, flags.Symmetric, flags.Tree)
	return id, desc, rtype
}

func registerResourceType[T any](r *typeRegistry) (DataTypeID, *TypeDescriptor, reflect.Type) {
	rtype := reflect.TypeOf((*T)(nil)).Elem()
	desc := reflectDescribe[T]()
	id := r.register(rtype, desc, KindResource, false, false)
	return id, desc, rtype
}

func registerEventType[T any](r *typeRegistry) (DataTypeID, *TypeDescriptor, reflect.Type) {
	rtype := reflect.TypeOf((*T)(nil)).Elem()
	desc := reflectDescribe[T]()
	id := r.register(rtype, desc, KindEvent, false, false)
	return id, desc, rtype
}
