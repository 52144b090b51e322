package chat

import "sync"

// emitter is a typed change-notification channel with an explicit
// subscribe/unsubscribe contract. Disposal drops every subscriber;
// firing a disposed emitter is a no-op. Disposal cascades from Session
// through Request to Response, so listeners never outlive the aggregate
// they observe.
type emitter[T any] struct {
	mu        sync.Mutex
	nextID    uint64
	listeners map[uint64]func(T)
	disposed  bool
}

func newEmitter[T any]() *emitter[T] {
	return &emitter[T]{listeners: make(map[uint64]func(T))}
}

// subscribe registers fn and returns an unsubscribe function.
func (e *emitter[T]) subscribe(fn func(T)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.disposed {
		return func() {}
	}

	e.nextID++
	id := e.nextID
	e.listeners[id] = fn

	return func() {
		e.mu.Lock()
		delete(e.listeners, id)
		e.mu.Unlock()
	}
}

// fire calls every subscriber in the calling goroutine.
func (e *emitter[T]) fire(v T) {
	e.mu.Lock()
	fns := make([]func(T), 0, len(e.listeners))
	for _, fn := range e.listeners {
		fns = append(fns, fn)
	}
	e.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}

// dispose drops all subscribers.
func (e *emitter[T]) dispose() {
	e.mu.Lock()
	e.disposed = true
	e.listeners = make(map[uint64]func(T))
	e.mu.Unlock()
}
