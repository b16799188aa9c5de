package library

import "sync"

// Store is an explicit state container: reads return the current value,
// mutations funnel through SetState, and subscribers are notified of every
// change. State values are replaced wholesale, never mutated in place, so a
// subscriber can compare values across notifications.
type Store[S any] struct {
	mu      sync.Mutex
	state   S
	subs    map[int]func(S)
	nextSub int
	closed  bool
}

// NewStore creates a store holding initial.
func NewStore[S any](initial S) *Store[S] {
	return &Store[S]{state: initial, subs: make(map[int]func(S))}
}

// GetState returns the current state value.
func (s *Store[S]) GetState() S {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetState replaces the state with update's return value and notifies
// subscribers. Returns false without applying when the store is closed, so
// late async results cannot mutate disposed state.
func (s *Store[S]) SetState(update func(S) S) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}

	s.state = update(s.state)
	next := s.state

	subs := make([]func(S), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}
	return true
}

// Subscribe registers fn to run after every state change. The returned
// function unsubscribes and is safe to call more than once.
func (s *Store[S]) Subscribe(fn func(S)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// Close marks the store disposed: further SetState calls are ignored and
// all subscribers are dropped.
func (s *Store[S]) Close() {
	s.mu.Lock()
	s.closed = true
	s.subs = make(map[int]func(S))
	s.mu.Unlock()
}

// Closed reports whether Close has been called.
func (s *Store[S]) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
