package store

import (
	"sync"
)

type inMemStore struct {
	*sync.Map
}

func (s inMemStore) Load(key string) (*Entry, bool, error) {
	v, ok := s.Map.Load(key)
	if !ok {
		return nil, false, nil
	}
	return v.(*Entry), true, nil
}

func (s inMemStore) InsertIfAbsent(entry *Entry) (bool, error) {
	_, loaded := s.Map.LoadOrStore(entry.Key, entry)
	return !loaded, nil
}

func (s inMemStore) CompareAndSwap(old, new *Entry) (bool, error) {
	return s.Map.CompareAndSwap(old.Key, old, new), nil
}

func (s inMemStore) CompareAndDelete(old *Entry) (bool, error) {
	return s.Map.CompareAndDelete(old.Key, old), nil
}

// NewInMemoryStore is an unbounded store backed by sync.Map.
func NewInMemoryStore() Store {
	return NewCasStore(inMemStore{Map: &sync.Map{}})
}
