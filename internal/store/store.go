// Package store holds the typed state containers for clients, invoices,
// payments and products.
//
// A container is a Store wrapping a value-typed state and a pure reducer.
// Every mutation is an Event passed to Dispatch; reducers never modify the
// previous state in place, so a state returned by State or Dispatch is a
// stable snapshot that callers must treat as read-only.
package store

import (
	"sync"
)

// Reducer computes the next state. It must not mutate its input.
type Reducer[S any] func(S, Event) S

// Store serialises dispatches against one state value. Events apply in the
// order Dispatch is called, which for remote-sync tasks is the order in
// which they resolve.
type Store[S any] struct {
	mu      sync.RWMutex
	name    string
	state   S
	reduce  Reducer[S]
	version uint64
	subs    map[int]func(S)
	nextSub int
}

// New creates a store with an initial state.
func New[S any](name string, initial S, reduce Reducer[S]) *Store[S] {
	return &Store[S]{
		name:   name,
		state:  initial,
		reduce: reduce,
		subs:   make(map[int]func(S)),
	}
}

// Name identifies the container in logs and journals.
func (s *Store[S]) Name() string {
	return s.name
}

// Dispatch applies ev and returns the resulting state. Subscribers are
// notified after the lock is released.
func (s *Store[S]) Dispatch(ev Event) S {
	s.mu.Lock()
	s.state = s.reduce(s.state, ev)
	s.version++
	next := s.state
	subs := make([]func(S), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}
	return next
}

// State returns the current snapshot.
func (s *Store[S]) State() S {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Version increases by one on every dispatch.
func (s *Store[S]) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Subscribe registers fn to receive every new state. The returned function
// removes the subscription.
func (s *Store[S]) Subscribe(fn func(S)) (cancel func()) {
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
