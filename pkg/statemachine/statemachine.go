// Package statemachine provides a minimal state function machine in the
// style popularized by Rob Pike's lexer talk: states are functions that
// act on an entity and return the next state function.
package statemachine

// StateFn is one state of an entity of type T. Running it advances the
// entity and yields the successor state, or nil to halt.
type StateFn[T any] func(*T) StateFn[T]

// Machine drives an entity through its state functions. It is not safe for
// concurrent use; callers dispatch from a single goroutine.
type Machine[T any] struct {
	entity  *T
	stateFn StateFn[T]
}

// New returns a machine for entity starting at initial.
func New[T any](entity *T, initial StateFn[T]) *Machine[T] {
	return &Machine[T]{entity: entity, stateFn: initial}
}

// Dispatch runs the current state function once and adopts whatever state it
// returns. Dispatching a halted machine is a no-op.
func (m *Machine[T]) Dispatch() {
	if m.stateFn == nil {
		return
	}
	m.stateFn = m.stateFn(m.entity)
}

// Current returns the pending state function, nil when halted.
func (m *Machine[T]) Current() StateFn[T] {
	return m.stateFn
}

// Set replaces the pending state function without running it.
func (m *Machine[T]) Set(fn StateFn[T]) {
	m.stateFn = fn
}
