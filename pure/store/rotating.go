package store

import (
	"sync"
	"sync/atomic"
)

// rotatingStore keeps two generations of entries. Writes go to the head generation;
// once it holds maxSize entries the older generation is dropped and the head rotates.
// Reads fall back to the previous generation, so at most 2*maxSize entries are retained.
type rotatingStore struct {
	mu      sync.RWMutex
	gens    [2]*sync.Map
	headIdx uint32
	size    atomic.Uint32
	maxSize uint32
}

func (r *rotatingStore) lookup(key string) (*sync.Map, *Entry, bool) {
	head := r.gens[r.headIdx]
	if v, ok := head.Load(key); ok {
		return head, v.(*Entry), true
	}
	tail := r.gens[1-r.headIdx]
	if v, ok := tail.Load(key); ok {
		return tail, v.(*Entry), true
	}
	return nil, nil, false
}

func (r *rotatingStore) Load(key string) (*Entry, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, e, ok := r.lookup(key)
	return e, ok, nil
}

// rotate must be called with mu held for writing.
func (r *rotatingStore) rotate() {
	if r.size.Load() < r.maxSize {
		return
	}
	r.headIdx = 1 - r.headIdx
	r.gens[r.headIdx] = &sync.Map{}
	r.size.Store(0)
}

func (r *rotatingStore) InsertIfAbsent(entry *Entry) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, _, ok := r.lookup(entry.Key); ok {
		return false, nil
	}
	r.rotate()
	r.gens[r.headIdx].Store(entry.Key, entry)
	r.size.Add(1)
	return true, nil
}

func (r *rotatingStore) CompareAndSwap(old, new *Entry) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	gen, cur, ok := r.lookup(old.Key)
	if !ok || cur != old {
		return false, nil
	}
	gen.Delete(old.Key)
	r.rotate()
	r.gens[r.headIdx].Store(new.Key, new)
	if gen != r.gens[r.headIdx] {
		r.size.Add(1)
	}
	return true, nil
}

func (r *rotatingStore) CompareAndDelete(old *Entry) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	gen, cur, ok := r.lookup(old.Key)
	if !ok || cur != old {
		return false, nil
	}
	gen.Delete(old.Key)
	return true, nil
}

// NewRotatingStore bounds memory by generations of maxSize entries.
func NewRotatingStore(maxSize uint32) Store {
	if maxSize == 0 {
		panic("maxSize should be greater than 0")
	}
	return NewCasStore(&rotatingStore{
		gens:    [2]*sync.Map{{}, {}},
		maxSize: maxSize,
	})
}
