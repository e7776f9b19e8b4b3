package sideeffect

import "sync/atomic"

// Slot holds the current implementation of one capability. Reads and writes are atomic,
// so a sandbox can swap implementations while other goroutines call through the slot.
type Slot[T any] struct {
	p atomic.Pointer[T]
}

func NewSlot[T any](v T) *Slot[T] {
	s := &Slot[T]{}
	s.Store(v)
	return s
}

func (s *Slot[T]) Load() T {
	if p := s.p.Load(); p != nil {
		return *p
	}
	var zero T
	return zero
}

func (s *Slot[T]) Store(v T) {
	s.p.Store(&v)
}
