package warehouse

import (
	"fmt"
	"reflect"

	"github.com/TheBitDrifter/bark"
)

// SystemID identifies one registered system within a World, assigned in
// registration order (§4.11 "systems are referred to by the id RegisterSystem
// returns").
type SystemID uint32

// System is a user function plus the Param values that supply its
// arguments, dispatcher-style: cubos resolves a system's arguments from its
// C++ function signature at compile time (system/system.hpp); Go has no
// template specialization, so RegisterSystem instead inspects the
// registered function's reflect.Type once, at registration, to check arity
// and build the reflect.Value call plan, while the actual fetch strategy
// per parameter comes from the explicit Param values the caller supplies.
type System struct {
	id     SystemID
	name   string
	fn     reflect.Value
	params []Param
}

// ID returns the system's assigned identifier.
func (s *System) ID() SystemID { return s.id }

// Name returns the name the system was registered under.
func (s *System) Name() string { return s.name }

// Access returns the union of every parameter's declared read/write/
// exclusive footprint, what the planner/scheduler uses to decide whether
// two systems may run concurrently (§5).
func (s *System) Access() (reads, writes []DataTypeID, exclusive bool) {
	for _, p := range s.params {
		a := p.plan()
		reads = append(reads, a.reads...)
		writes = append(writes, a.writes...)
		exclusive = exclusive || a.exclusive
	}
	return reads, writes, exclusive
}

// RegisterSystem registers fn, a plain Go function, as a system named name.
// params supplies one Param per argument fn declares, in order; their
// declared accesses are checked for conflicts (QueryAccessConflictError)
// before the system is accepted, matching §4.10's "invalid and rejected at
// registration" rule.
func RegisterSystem(w *World, name string, fn any, params ...Param) (*System, error) {
	rv := reflect.ValueOf(fn)
	if rv.Kind() != reflect.Func {
		return nil, bark.AddTrace(fmt.Errorf("warehouse: RegisterSystem(%s): fn must be a function, got %s", name, rv.Kind()))
	}
	rt := rv.Type()
	if rt.NumIn() != len(params) {
		return nil, bark.AddTrace(fmt.Errorf(
			"warehouse: RegisterSystem(%s): function declares %d parameters, %d Param values supplied",
			name, rt.NumIn(), len(params),
		))
	}
	if err := checkAccessConflicts(params); err != nil {
		return nil, err
	}

	id := w.systems.register()
	sys := &System{
		id:     id,
		name:   name,
		fn:     rv,
		params: append([]Param(nil), params...),
	}
	return sys, nil
}

// Run fetches every declared parameter, invokes the system's function, then
// releases every fetched guard (resource locks, cursor locks) and flushes
// its command buffer. The release list is local to this call, not shared
// world state, since the schedule executor may run independent systems
// concurrently on separate goroutines (§5).
func (s *System) Run(w *World) error {
	var rel []func()

	cb := NewCommandBuffer()
	args := make([]reflect.Value, len(s.params))
	for i, p := range s.params {
		v, err := p.fetch(w, cb, &rel)
		if err != nil {
			for _, release := range rel {
				release()
			}
			return err
		}
		args[i] = reflect.ValueOf(v)
	}
	s.fn.Call(args)
	for _, release := range rel {
		release()
	}
	return cb.Flush(w)
}

// systemRegistry assigns dense, append-only SystemIDs (§4.2-style registry,
// generalized from components/relations/resources to systems).
type systemRegistry struct {
	next uint32
}

func newSystemRegistry() *systemRegistry { return &systemRegistry{} }

func (r *systemRegistry) register() SystemID {
	id := SystemID(r.next)
	r.next++
	return id
}
