package warehouse

// System Fetcher (SPEC_FULL.md §4.10): every system parameter is one Param
// value, reporting its declared accesses (Plan) up front and producing the
// concrete argument to hand the user function on each invocation (Fetch).
// cubos's fetcher (core/include/cubos/core/ecs/system/fetcher.hpp) dispatches
// on a C++ template parameter resolved at compile time; Go has no template
// specialization, so a system's parameters are supplied explicitly as Param
// values at RegisterSystem time instead of being inferred purely from the
// function's reflect.Type (see system.go), which only verifies arity and
// result shape.

// releases accumulates the release closures a system's fetched parameters
// need run once the system's function returns (resource unlocks, cursor
// lock drops). It is local to one System.Run call, never shared across
// goroutines, since the schedule executor may run independent systems
// concurrently (§5).
type releases = *[]func()

type Param interface {
	plan() paramAccess
	fetch(w *World, cb *CommandBuffer, rel releases) (any, error)
}

// paramAccess is one parameter's declared read/write footprint, the input to
// both registration-time conflict checking (§4.10 "invalid and rejected")
// and the planner's parallel-scheduling decision (§5).
type paramAccess struct {
	reads, writes []DataTypeID
	exclusive     bool
	commands      bool
}

type resourceReadParam[T any] struct{ res Resource[T] }

// ResourceRead declares a system parameter that reads resource res.
func ResourceRead[T any](res Resource[T]) Param { return resourceReadParam[T]{res} }

func (p resourceReadParam[T]) plan() paramAccess {
	return paramAccess{reads: []DataTypeID{p.res.ID()}}
}

func (p resourceReadParam[T]) fetch(w *World, cb *CommandBuffer, rel releases) (any, error) {
	v, release := p.res.Read()
	*rel = append(*rel, release)
	return v, nil
}

type resourceWriteParam[T any] struct{ res Resource[T] }

// ResourceWrite declares a system parameter that writes resource res.
func ResourceWrite[T any](res Resource[T]) Param { return resourceWriteParam[T]{res} }

func (p resourceWriteParam[T]) plan() paramAccess {
	return paramAccess{writes: []DataTypeID{p.res.ID()}}
}

func (p resourceWriteParam[T]) fetch(w *World, cb *CommandBuffer, rel releases) (any, error) {
	v, release := p.res.Write()
	*rel = append(*rel, release)
	return v, nil
}

// queryParam fetches a *Cursor over q, taking w's structural lock under
// lockBit for the system's duration (released by System.Run's release list
// after the system returns).
type queryParam struct {
	query   *Query
	lockBit uint32
}

// QueryAccess declares a system parameter that iterates q.
func QueryAccess(q *Query, lockBit uint32) Param { return queryParam{query: q, lockBit: lockBit} }

func (p queryParam) plan() paramAccess {
	reads, writes := p.query.ReadWriteSets()
	reads = append(reads, p.query.RelationReadSet()...)
	return paramAccess{reads: reads, writes: writes}
}

func (p queryParam) fetch(w *World, cb *CommandBuffer, rel releases) (any, error) {
	cursor := NewCursor(w, p.query, p.lockBit)
	if err := cursor.Initialize(); err != nil {
		return nil, err
	}
	*rel = append(*rel, cursor.Reset)
	return cursor, nil
}

// eventReadParam hands the system an EventReader[T] whose cursor was
// registered once, at EventRead call time, and persists across every
// invocation (SPEC_FULL.md §4.10 "event reader" parameter kind, spec.md §3
// "readers register once and retain their cursor across frames").
type eventReadParam[T any] struct {
	id     DataTypeID
	reader EventReader[T]
}

// EventRead declares a system parameter that reads ev's pipe. The reader
// registers immediately, so it only observes entries written from this call
// onward.
func EventRead[T any](ev Event[T]) Param {
	return eventReadParam[T]{id: ev.id, reader: ev.NewReader()}
}

func (p eventReadParam[T]) plan() paramAccess {
	return paramAccess{reads: []DataTypeID{p.id}}
}

func (p eventReadParam[T]) fetch(w *World, cb *CommandBuffer, rel releases) (any, error) {
	return p.reader.Read(), nil
}

// eventWriteParam hands the system an EventWriter[T] wrapping ev.
type eventWriteParam[T any] struct{ ev Event[T] }

// EventWrite declares a system parameter that appends to ev's pipe.
func EventWrite[T any](ev Event[T]) Param { return eventWriteParam[T]{ev: ev} }

func (p eventWriteParam[T]) plan() paramAccess {
	return paramAccess{writes: []DataTypeID{p.ev.id}}
}

func (p eventWriteParam[T]) fetch(w *World, cb *CommandBuffer, rel releases) (any, error) {
	return EventWriter[T]{ev: p.ev}, nil
}

// worldParam grants unrestricted *World access, implicitly acquiring every
// lock in the world for the system's duration (§5 "World-exclusive fetch").
type worldParam struct{}

// WorldAccess declares a system parameter with exclusive world access. A
// system declaring WorldAccess must not declare any other parameter.
func WorldAccess() Param { return worldParam{} }

func (worldParam) plan() paramAccess { return paramAccess{exclusive: true} }

func (worldParam) fetch(w *World, cb *CommandBuffer, rel releases) (any, error) { return w, nil }

// commandsParam hands the system a Commands wrapper around cb, the per-
// invocation command buffer the schedule executor flushes at the commit
// points named in §5.
type commandsParam struct{}

// CommandsAccess declares a system parameter that records deferred mutations.
func CommandsAccess() Param { return commandsParam{} }

func (commandsParam) plan() paramAccess { return paramAccess{commands: true} }

func (commandsParam) fetch(w *World, cb *CommandBuffer, rel releases) (any, error) {
	return NewCommands(cb), nil
}

// checkAccessConflicts implements §4.10's "a system that both reads and
// writes the same resource or declares world-exclusive access together with
// any other fetch is invalid": scans every parameter's declared access for a
// type appearing in both a read and a write set, or WorldAccess alongside
// any other parameter.
func checkAccessConflicts(params []Param) error {
	if len(params) > 1 {
		for _, p := range params {
			if p.plan().exclusive {
				return QueryAccessConflictError{Exclusive: true}
			}
		}
	}

	seenRead := make(map[DataTypeID]bool)
	seenWrite := make(map[DataTypeID]bool)
	for _, p := range params {
		access := p.plan()
		for _, r := range access.reads {
			seenRead[r] = true
		}
		for _, w := range access.writes {
			if seenRead[w] {
				return QueryAccessConflictError{Type: w}
			}
			if seenWrite[w] {
				return QueryAccessConflictError{Type: w}
			}
			seenWrite[w] = true
		}
	}
	for t := range seenWrite {
		if seenRead[t] {
			return QueryAccessConflictError{Type: t}
		}
	}
	return nil
}
