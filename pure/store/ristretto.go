package store

import (
	ristretto "github.com/dgraph-io/ristretto/v2"
)

// Ristretto is a bounded, admission-controlled SetStore. Entries may be evicted at any
// time, in which case the next call for that key is treated as a first observation.
type Ristretto struct {
	*ristretto.Cache[string, *Entry]
}

func NewRistretto(maxEntries int64) (Store, error) {
	cache, err := ristretto.NewCache(&ristretto.Config[string, *Entry]{
		NumCounters: maxEntries * 10, // number of keys to track frequency of.
		MaxCost:     maxEntries,      // every entry costs 1.
		BufferItems: 64,              // number of keys per Get buffer.
	})
	if err != nil {
		return nil, err
	}
	return NewSetStore(Ristretto{Cache: cache}), nil
}

func (r Ristretto) Get(key string) (*Entry, bool, error) {
	e, ok := r.Cache.Get(key)
	return e, ok, nil
}

func (r Ristretto) Delete(key string) error {
	r.Cache.Del(key)
	r.Cache.Wait()
	return nil
}

// Set waits for the write buffer to drain so the entry is visible to the next Get.
func (r Ristretto) Set(entry *Entry) error {
	r.Cache.Set(entry.Key, entry, 1)
	r.Cache.Wait()
	return nil
}
