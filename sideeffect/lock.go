package sideeffect

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// ReentrantLock is a mutual-exclusion lock that its holder may acquire again. Go has
// no goroutine identity, so ownership travels in the context returned by Acquire:
// a nested Acquire reenters only when given that context (or one derived from it).
type ReentrantLock struct {
	sem *semaphore.Weighted

	mu    sync.Mutex
	owner uuid.UUID
	depth int
}

type ownerKey struct{ lock *ReentrantLock }

func NewReentrantLock() *ReentrantLock {
	return &ReentrantLock{sem: semaphore.NewWeighted(1)}
}

// Acquire blocks until the lock is free or ctx carries the current owner's token.
// It returns the context to pass to nested acquisitions and the depth reached,
// 1 for the outermost hold.
func (l *ReentrantLock) Acquire(ctx context.Context) (context.Context, int, error) {
	if token, ok := ctx.Value(ownerKey{l}).(uuid.UUID); ok {
		l.mu.Lock()
		if l.depth > 0 && l.owner == token {
			l.depth++
			depth := l.depth
			l.mu.Unlock()
			return ctx, depth, nil
		}
		l.mu.Unlock()
	}
	if err := l.sem.Acquire(ctx, 1); err != nil {
		return ctx, 0, err
	}
	token, err := uuid.NewRandomFromReader(entropy)
	if err != nil {
		l.sem.Release(1)
		return ctx, 0, fmt.Errorf("owner token: %w", err)
	}
	l.mu.Lock()
	l.owner = token
	l.depth = 1
	l.mu.Unlock()
	return context.WithValue(ctx, ownerKey{l}, token), 1, nil
}

// Release undoes one Acquire made with ctx. Releasing a lock ctx does not own panics.
func (l *ReentrantLock) Release(ctx context.Context) {
	token, _ := ctx.Value(ownerKey{l}).(uuid.UUID)
	l.mu.Lock()
	if l.depth == 0 || l.owner != token {
		l.mu.Unlock()
		panic("sideeffect: release of unowned lock")
	}
	l.depth--
	last := l.depth == 0
	if last {
		l.owner = uuid.Nil
	}
	l.mu.Unlock()
	if last {
		l.sem.Release(1)
	}
}

// Held reports whether ctx carries ownership of l.
func (l *ReentrantLock) Held(ctx context.Context) bool {
	token, ok := ctx.Value(ownerKey{l}).(uuid.UUID)
	if !ok {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.depth > 0 && l.owner == token
}
