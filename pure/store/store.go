// Package store holds the backends a determinism cache keeps its last observed results in.
package store

import (
	"errors"
	"fmt"
)

// Entry is the unit every backend holds. Backends compare entries by pointer,
// so results that are not comparable can still be swapped atomically.
type Entry struct {
	Key   string
	Value any
}

func NewEntry(key string, value any) *Entry {
	return &Entry{Key: key, Value: value}
}

// Store is a sealed interface: build one with NewCasStore or NewSetStore.
type Store interface {
	// store is a marker method to prevent accidental implementation of Store directly.
	store()
}

type CasStore interface {
	Load(key string) (entry *Entry, ok bool, err error)
	InsertIfAbsent(entry *Entry) (inserted bool, err error)
	CompareAndSwap(old, new *Entry) (swapped bool, err error)
	CompareAndDelete(old *Entry) (deleted bool, err error)
}

type casImpl struct {
	CasStore
}

func (casImpl) store() {}

func NewCasStore(s CasStore) Store {
	return casImpl{CasStore: s}
}

// SetStore is a plain cache without atomic primitives. Callers must serialize
// writers of one key themselves.
type SetStore interface {
	Get(key string) (entry *Entry, ok bool, err error)
	Set(entry *Entry) error
	Delete(key string) error
}

type setImpl struct {
	SetStore
}

func (setImpl) store() {}

func NewSetStore(s SetStore) Store {
	return setImpl{SetStore: s}
}

func matchStore[T any](
	s Store,
	casCallback func(CasStore) T,
	setCallback func(SetStore) T,
) T {
	switch s := s.(type) {
	case casImpl:
		return casCallback(s.CasStore)
	case setImpl:
		return setCallback(s.SetStore)
	default:
		panic(fmt.Sprintf("exhaustive match fallback, store type: %T", s))
	}
}

var ErrKeyMismatch = errors.New("entries belong to different keys")

type result[T any] struct {
	v   T
	ok  bool
	err error
}

func Load(s Store, key string) (*Entry, bool, error) {
	r := matchStore(s,
		func(cas CasStore) result[*Entry] {
			e, ok, err := cas.Load(key)
			return result[*Entry]{e, ok, err}
		},
		func(set SetStore) result[*Entry] {
			e, ok, err := set.Get(key)
			return result[*Entry]{e, ok, err}
		},
	)
	return r.v, r.ok, r.err
}

func InsertIfAbsent(s Store, entry *Entry) (bool, error) {
	r := matchStore(s,
		func(cas CasStore) result[bool] {
			ok, err := cas.InsertIfAbsent(entry)
			return result[bool]{ok: ok, err: err}
		},
		func(set SetStore) result[bool] {
			if _, ok, err := set.Get(entry.Key); err != nil {
				return result[bool]{err: err}
			} else if ok {
				return result[bool]{}
			}
			return result[bool]{ok: true, err: set.Set(entry)}
		},
	)
	return r.ok, r.err
}

func CompareAndSwap(s Store, old, new *Entry) (bool, error) {
	if old.Key != new.Key {
		return false, fmt.Errorf("%w: %q != %q", ErrKeyMismatch, old.Key, new.Key)
	}
	r := matchStore(s,
		func(cas CasStore) result[bool] {
			ok, err := cas.CompareAndSwap(old, new)
			return result[bool]{ok: ok, err: err}
		},
		func(set SetStore) result[bool] {
			if cur, ok, err := set.Get(old.Key); !ok || err != nil {
				return result[bool]{err: err}
			} else if cur != old {
				return result[bool]{}
			}
			return result[bool]{ok: true, err: set.Set(new)}
		},
	)
	return r.ok, r.err
}

func CompareAndDelete(s Store, old *Entry) (bool, error) {
	r := matchStore(s,
		func(cas CasStore) result[bool] {
			ok, err := cas.CompareAndDelete(old)
			return result[bool]{ok: ok, err: err}
		},
		func(set SetStore) result[bool] {
			if cur, ok, err := set.Get(old.Key); !ok || err != nil {
				return result[bool]{err: err}
			} else if cur != old {
				return result[bool]{}
			}
			return result[bool]{ok: true, err: set.Delete(old.Key)}
		},
	)
	return r.ok, r.err
}
