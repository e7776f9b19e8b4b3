package pure

import (
	"context"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// lease admits one owner at a time; refs counts owners and waiters so idle
// leases can be dropped.
type lease struct {
	ch   chan struct{}
	refs int
}

// keyLock serializes work per key. Keys are partitioned by their xxhash digest.
type keyLock struct {
	mu     sync.Mutex
	leases map[uint64]*lease
}

func newKeyLock() *keyLock {
	return &keyLock{leases: make(map[uint64]*lease)}
}

func (k *keyLock) ref(h uint64) *lease {
	k.mu.Lock()
	defer k.mu.Unlock()
	l, ok := k.leases[h]
	if !ok {
		l = &lease{ch: make(chan struct{}, 1)}
		k.leases[h] = l
	}
	l.refs++
	return l
}

func (k *keyLock) unref(h uint64, l *lease) {
	k.mu.Lock()
	defer k.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(k.leases, h)
	}
}

// acquire blocks until the lease for key is held or ctx is done.
func (k *keyLock) acquire(ctx context.Context, key string) (release func(), err error) {
	h := xxhash.Sum64String(key)
	l := k.ref(h)
	select {
	case <-ctx.Done():
		k.unref(h, l)
		return nil, ctx.Err()
	case l.ch <- struct{}{}:
	}
	return func() {
		<-l.ch
		k.unref(h, l)
	}, nil
}

// size is the number of live leases.
func (k *keyLock) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.leases)
}
