package warehouse

import "sync"

// Operation is a deferred mutation recorded by a CommandBuffer, generalizing
// the teacher's EntityOperation (operation_queue.go, whose NewEntityOperation/
// DestroyEntityOperation/AddComponentOperation/RemoveComponentOperation each
// closed over a Storage and a handful of fields). A closure over *World plays
// the same role with far less boilerplate, since the teacher's four
// operation structs all did nothing but replay one World method call.
type Operation func(w *World) error

// CommandBuffer accumulates operations for later, atomic application against
// a World (SPEC_FULL.md §4.9 "Command buffer"). Systems that need to create,
// destroy, or reshape entities while a query cursor holds the world's
// structural lock record their intent here instead of mutating directly.
type CommandBuffer struct {
	mu  sync.Mutex
	ops []Operation
}

// NewCommandBuffer returns an empty CommandBuffer.
func NewCommandBuffer() *CommandBuffer {
	return &CommandBuffer{}
}

// Enqueue appends an operation to the buffer.
func (cb *CommandBuffer) Enqueue(op Operation) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.ops = append(cb.ops, op)
}

// Len reports how many operations are currently buffered.
func (cb *CommandBuffer) Len() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return len(cb.ops)
}

// Flush applies every buffered operation against w, in the order they were
// recorded, clearing the buffer afterward. An operation targeting a dead
// entity is skipped and logged rather than treated as fatal (SPEC_FULL.md
// §4.9: a command whose target died before commit is dropped with a
// warning).
func (cb *CommandBuffer) Flush(w *World) error {
	cb.mu.Lock()
	ops := cb.ops
	cb.ops = nil
	cb.mu.Unlock()

	for _, op := range ops {
		if err := op(w); err != nil {
			if dead, ok := err.(EntityNotAliveError); ok {
				w.logger().Warnf("skipped command: %v", CommandTargetDeadError{Entity: dead.Entity})
				continue
			}
			return err
		}
	}
	return nil
}
