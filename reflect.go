package warehouse

import (
	"reflect"
	"unsafe"
)

// TypeDescriptor is the reflected description of a user data type: enough
// information for the ECS to move, copy, compare, and serialize values of
// that type without compile-time knowledge of it. It is the Go analogue of
// cubos's reflection::Type plus its traits (core/include/cubos/core/ecs/...
// reflection/traits/*.hpp in the original source).
type TypeDescriptor struct {
	Name  string
	Size  uintptr
	Align uintptr
	rtype reflect.Type

	constructible *ConstructibleTrait
	fields        *FieldsTrait
	array         *ArrayTrait
	dictionary    *DictionaryTrait
	stringConv    *StringConversionTrait
	nullable      *NullableTrait
}

// FieldDescriptor is one entry of a FieldsTrait: a named, typed, offset
// member of a struct-shaped reflected type.
type FieldDescriptor struct {
	Name   string
	Type   *TypeDescriptor
	Offset uintptr
}

// ConstructibleTrait exposes default/copy/move construction and destruction
// over opaque addresses. Any subset of the four may be present; callers must
// check HasDefault/HasCopy/HasMove/HasDestruct before calling the
// corresponding function.
type ConstructibleTrait struct {
	HasDefault, HasCopy, HasMove, HasDestruct bool

	Default func(dst unsafe.Pointer)
	Copy    func(dst, src unsafe.Pointer)
	Move    func(dst, src unsafe.Pointer)
	Destruct func(ptr unsafe.Pointer)
}

// FieldsTrait iterates the ordered fields of a struct-shaped type.
type FieldsTrait struct {
	Fields []FieldDescriptor
}

// ArrayTrait describes a dynamically resizable homogeneous sequence.
type ArrayTrait struct {
	ElementType *TypeDescriptor
	Length      func(ptr unsafe.Pointer) int
	At          func(ptr unsafe.Pointer, index int) unsafe.Pointer
	PushDefault func(ptr unsafe.Pointer)
	PushCopy    func(ptr unsafe.Pointer, value unsafe.Pointer)
	PushMove    func(ptr unsafe.Pointer, value unsafe.Pointer)
	Erase       func(ptr unsafe.Pointer, index int)
	Insert      func(ptr unsafe.Pointer, index int)
}

// DictionaryTrait describes a homogeneous key/value map.
type DictionaryTrait struct {
	KeyType   *TypeDescriptor
	ValueType *TypeDescriptor
	Length    func(ptr unsafe.Pointer) int
	Find      func(ptr unsafe.Pointer, key unsafe.Pointer) (unsafe.Pointer, bool)
	InsertDefault func(ptr unsafe.Pointer, key unsafe.Pointer) unsafe.Pointer
	InsertCopy    func(ptr unsafe.Pointer, key, value unsafe.Pointer) unsafe.Pointer
	InsertMove    func(ptr unsafe.Pointer, key, value unsafe.Pointer) unsafe.Pointer
	Erase         func(ptr unsafe.Pointer, key unsafe.Pointer) bool
	// Keys returns a stable snapshot of keys for begin/advance/stop style
	// iteration without exposing an internal map iterator lifetime.
	Keys func(ptr unsafe.Pointer) []unsafe.Pointer
}

// StringConversionTrait converts a value to and from its string form.
type StringConversionTrait struct {
	Into func(ptr unsafe.Pointer) string
	From func(ptr unsafe.Pointer, s string) error
}

// NullableTrait lets the inspector offer a reset action.
type NullableTrait struct {
	IsNull func(ptr unsafe.Pointer) bool
	SetNull func(ptr unsafe.Pointer)
}

// HasConstructible reports whether the descriptor carries a ConstructibleTrait.
func (t *TypeDescriptor) HasConstructible() bool { return t.constructible != nil }

// Constructible returns the type's ConstructibleTrait, or nil.
func (t *TypeDescriptor) Constructible() *ConstructibleTrait { return t.constructible }

// HasFields reports whether the descriptor carries a FieldsTrait.
func (t *TypeDescriptor) HasFields() bool { return t.fields != nil }

// Fields returns the type's FieldsTrait, or nil.
func (t *TypeDescriptor) Fields() *FieldsTrait { return t.fields }

// HasArray reports whether the descriptor carries an ArrayTrait.
func (t *TypeDescriptor) HasArray() bool { return t.array != nil }

// Array returns the type's ArrayTrait, or nil.
func (t *TypeDescriptor) Array() *ArrayTrait { return t.array }

// HasDictionary reports whether the descriptor carries a DictionaryTrait.
func (t *TypeDescriptor) HasDictionary() bool { return t.dictionary != nil }

// Dictionary returns the type's DictionaryTrait, or nil.
func (t *TypeDescriptor) Dictionary() *DictionaryTrait { return t.dictionary }

// HasStringConversion reports whether the descriptor carries a StringConversionTrait.
func (t *TypeDescriptor) HasStringConversion() bool { return t.stringConv != nil }

// StringConversion returns the type's StringConversionTrait, or nil.
func (t *TypeDescriptor) StringConversion() *StringConversionTrait { return t.stringConv }

// HasNullable reports whether the descriptor carries a NullableTrait.
func (t *TypeDescriptor) HasNullable() bool { return t.nullable != nil }

// Nullable returns the type's NullableTrait, or nil.
func (t *TypeDescriptor) Nullable() *NullableTrait { return t.nullable }

// New default-constructs a fresh instance of the type, using the
// ConstructibleTrait's default constructor when present, or zero-initializing
// the backing memory otherwise (matching Dense Table Store's push semantics
// in SPEC_FULL.md §4.4).
func (t *TypeDescriptor) New(dst unsafe.Pointer) {
	if t.constructible != nil && t.constructible.HasDefault {
		t.constructible.Default(dst)
		return
	}
	dstVal := reflect.NewAt(t.rtype, dst).Elem()
	dstVal.Set(reflect.Zero(t.rtype))
}

// reflectDescribe builds a TypeDescriptor for T by inspecting its
// reflect.Type once. This is the stdlib-grounded half of the reflection
// registry: cubos's C++ source generates trait vtables via templates at
// compile time (core/include/cubos/core/reflection/traits/*.hpp); Go has no
// such facility; the closest grounding in the retrieved pack is
// Acksell-bezos's dynamodb/ddbgen/codegen/reflect.go, which walks
// reflect.Type.Field to build a tag->field map for struct marshaling. No
// example repo in the pack implements a general runtime trait registry
// (fields+array+dictionary+nullable+string-conversion) the way this
// component needs, so it is built directly on top of the standard library's
// reflect package rather than forcing a fit onto a third-party dependency.
func reflectDescribe[T any]() *TypeDescriptor {
	var zero T
	rtype := reflect.TypeOf(zero)
	if rtype == nil {
		// T is an interface type instantiated with a nil value; fall back to
		// the static type via reflect.TypeOf((*T)(nil)).Elem().
		rtype = reflect.TypeOf((*T)(nil)).Elem()
	}

	desc := &TypeDescriptor{
		Name:  rtype.String(),
		Size:  rtype.Size(),
		Align: uintptr(rtype.Align()),
		rtype: rtype,
	}

	desc.constructible = &ConstructibleTrait{
		HasDefault:  true,
		HasCopy:     true,
		HasMove:     true,
		HasDestruct: true,
		Default: func(dstPtr unsafe.Pointer) {
			reflect.NewAt(rtype, dstPtr).Elem().Set(reflect.Zero(rtype))
		},
		Copy: func(dstPtr, srcPtr unsafe.Pointer) {
			src := reflect.NewAt(rtype, srcPtr).Elem()
			reflect.NewAt(rtype, dstPtr).Elem().Set(src)
		},
		Move: func(dstPtr, srcPtr unsafe.Pointer) {
			src := reflect.NewAt(rtype, srcPtr).Elem()
			reflect.NewAt(rtype, dstPtr).Elem().Set(src)
			src.Set(reflect.Zero(rtype))
		},
		Destruct: func(ptr unsafe.Pointer) {
			reflect.NewAt(rtype, ptr).Elem().Set(reflect.Zero(rtype))
		},
	}

	if rtype.Kind() == reflect.Struct {
		fields := make([]FieldDescriptor, 0, rtype.NumField())
		for i := 0; i < rtype.NumField(); i++ {
			f := rtype.Field(i)
			if !f.IsExported() {
				continue
			}
			fields = append(fields, FieldDescriptor{
				Name:   f.Name,
				Type:   describeReflectType(f.Type),
				Offset: f.Offset,
			})
		}
		if len(fields) > 0 {
			desc.fields = &FieldsTrait{Fields: fields}
		}
	}

	if rtype.Kind() == reflect.Slice {
		elemType := describeReflectType(rtype.Elem())
		elem := rtype.Elem()
		desc.array = &ArrayTrait{
			ElementType: elemType,
			Length: func(ptr unsafe.Pointer) int {
				return reflect.NewAt(rtype, ptr).Elem().Len()
			},
			At: func(ptr unsafe.Pointer, index int) unsafe.Pointer {
				return reflect.NewAt(rtype, ptr).Elem().Index(index).Addr().UnsafePointer()
			},
			PushDefault: func(ptr unsafe.Pointer) {
				slice := reflect.NewAt(rtype, ptr).Elem()
				slice.Set(reflect.Append(slice, reflect.Zero(elem)))
			},
			PushCopy: func(ptr unsafe.Pointer, value unsafe.Pointer) {
				slice := reflect.NewAt(rtype, ptr).Elem()
				v := reflect.NewAt(elem, value).Elem()
				slice.Set(reflect.Append(slice, v))
			},
			PushMove: func(ptr unsafe.Pointer, value unsafe.Pointer) {
				slice := reflect.NewAt(rtype, ptr).Elem()
				v := reflect.NewAt(elem, value).Elem()
				slice.Set(reflect.Append(slice, v))
				v.Set(reflect.Zero(elem))
			},
			Erase: func(ptr unsafe.Pointer, index int) {
				slice := reflect.NewAt(rtype, ptr).Elem()
				slice.Set(reflect.AppendSlice(slice.Slice(0, index), slice.Slice(index+1, slice.Len())))
			},
			// Insert grows the slice by one zero-valued element at the end,
			// then shifts everything from index onward up by one, leaving a
			// zeroed hole at index for the caller to fill.
			Insert: func(ptr unsafe.Pointer, index int) {
				slice := reflect.NewAt(rtype, ptr).Elem()
				slice.Set(reflect.Append(slice, reflect.Zero(elem)))
				reflect.Copy(slice.Slice(index+1, slice.Len()), slice.Slice(index, slice.Len()-1))
				slice.Index(index).Set(reflect.Zero(elem))
			},
		}
	}

	if rtype.Kind() == reflect.Map {
		keyType := rtype.Key()
		valueType := rtype.Elem()
		desc.dictionary = &DictionaryTrait{
			KeyType:   describeReflectType(keyType),
			ValueType: describeReflectType(valueType),
			Length: func(ptr unsafe.Pointer) int {
				return reflect.NewAt(rtype, ptr).Elem().Len()
			},
			// Find returns a pointer into a fresh copy of the stored value,
			// not the map's internal storage, since Go map values are never
			// addressable; callers needing to mutate in place must go back
			// through InsertCopy/InsertMove.
			Find: func(ptr unsafe.Pointer, key unsafe.Pointer) (unsafe.Pointer, bool) {
				m := reflect.NewAt(rtype, ptr).Elem()
				k := reflect.NewAt(keyType, key).Elem()
				v := m.MapIndex(k)
				if !v.IsValid() {
					return nil, false
				}
				tmp := reflect.New(valueType).Elem()
				tmp.Set(v)
				return tmp.Addr().UnsafePointer(), true
			},
			InsertDefault: func(ptr unsafe.Pointer, key unsafe.Pointer) unsafe.Pointer {
				m := reflect.NewAt(rtype, ptr).Elem()
				if m.IsNil() {
					m.Set(reflect.MakeMap(rtype))
				}
				k := reflect.NewAt(keyType, key).Elem()
				zero := reflect.Zero(valueType)
				m.SetMapIndex(k, zero)
				tmp := reflect.New(valueType).Elem()
				return tmp.Addr().UnsafePointer()
			},
			InsertCopy: func(ptr unsafe.Pointer, key, value unsafe.Pointer) unsafe.Pointer {
				m := reflect.NewAt(rtype, ptr).Elem()
				if m.IsNil() {
					m.Set(reflect.MakeMap(rtype))
				}
				k := reflect.NewAt(keyType, key).Elem()
				v := reflect.NewAt(valueType, value).Elem()
				m.SetMapIndex(k, v)
				tmp := reflect.New(valueType).Elem()
				tmp.Set(v)
				return tmp.Addr().UnsafePointer()
			},
			InsertMove: func(ptr unsafe.Pointer, key, value unsafe.Pointer) unsafe.Pointer {
				m := reflect.NewAt(rtype, ptr).Elem()
				if m.IsNil() {
					m.Set(reflect.MakeMap(rtype))
				}
				k := reflect.NewAt(keyType, key).Elem()
				v := reflect.NewAt(valueType, value).Elem()
				m.SetMapIndex(k, v)
				tmp := reflect.New(valueType).Elem()
				tmp.Set(v)
				v.Set(reflect.Zero(valueType))
				return tmp.Addr().UnsafePointer()
			},
			Erase: func(ptr unsafe.Pointer, key unsafe.Pointer) bool {
				m := reflect.NewAt(rtype, ptr).Elem()
				k := reflect.NewAt(keyType, key).Elem()
				if !m.MapIndex(k).IsValid() {
					return false
				}
				m.SetMapIndex(k, reflect.Value{})
				return true
			},
			Keys: func(ptr unsafe.Pointer) []unsafe.Pointer {
				m := reflect.NewAt(rtype, ptr).Elem()
				keys := m.MapKeys()
				out := make([]unsafe.Pointer, len(keys))
				for i, k := range keys {
					tmp := reflect.New(keyType).Elem()
					tmp.Set(k)
					out[i] = tmp.Addr().UnsafePointer()
				}
				return out
			},
		}
	}

	if rtype.Kind() == reflect.String {
		desc.stringConv = &StringConversionTrait{
			Into: func(ptr unsafe.Pointer) string {
				return reflect.NewAt(rtype, ptr).Elem().String()
			},
			From: func(ptr unsafe.Pointer, s string) error {
				reflect.NewAt(rtype, ptr).Elem().SetString(s)
				return nil
			},
		}
	}

	// Nullable covers pointer- and interface-kind types, the two shapes Go
	// gives an observable nil state (SPEC_FULL.md §4.1's Nullable trait).
	if rtype.Kind() == reflect.Pointer || rtype.Kind() == reflect.Interface {
		desc.nullable = &NullableTrait{
			IsNull: func(ptr unsafe.Pointer) bool {
				return reflect.NewAt(rtype, ptr).Elem().IsNil()
			},
			SetNull: func(ptr unsafe.Pointer) {
				reflect.NewAt(rtype, ptr).Elem().Set(reflect.Zero(rtype))
			},
		}
	}

	return desc
}

// describeReflectType builds a minimal TypeDescriptor for a reflect.Type
// discovered while walking a field or element; it does not recurse into
// nested traits beyond size/alignment/name, matching the Fields trait's
// "(name, type, offset)" contract in SPEC_FULL.md §4.1.
func describeReflectType(rtype reflect.Type) *TypeDescriptor {
	return &TypeDescriptor{
		Name:  rtype.String(),
		Size:  rtype.Size(),
		Align: uintptr(rtype.Align()),
		rtype: rtype,
	}
}
