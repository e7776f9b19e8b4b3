package sideeffect

import (
	"fmt"
	"slices"
	"sync"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Entry is one interceptable target: a package variable, a slot of a World, or a
// getter/setter pair around some other process-wide setting.
type Entry struct {
	Capability string
	Target     string
	Member     string
	// Available reports whether the target exists in this process. Nil means always.
	Available func() bool

	load  func() any
	store func(any)
	stub  func(original any, t *Trap) any
}

// NewEntry builds an Entry for a value of type T read by get and written by set.
// stub returns the replacement installed while a sandbox is active.
func NewEntry[T any](
	capability, target, member string,
	get func() T,
	set func(T),
	stub func(original T, t *Trap) T,
) Entry {
	return Entry{
		Capability: capability,
		Target:     target,
		Member:     member,
		load:       func() any { return get() },
		store: func(v any) {
			tv, _ := v.(T)
			set(tv)
		},
		stub: func(original any, t *Trap) any {
			tv, _ := original.(T)
			return stub(tv, t)
		},
	}
}

// SlotEntry builds an Entry for a capability held in a Slot.
func SlotEntry[T any](capability, member string, slot *Slot[T], stub func(original T, t *Trap) T) Entry {
	return NewEntry(capability, "World", member, slot.Load, slot.Store, stub)
}

// VarEntry builds an Entry for a package variable.
func VarEntry[T any](capability, target, member string, ptr *T, stub func(original T, t *Trap) T) Entry {
	return NewEntry(capability, target, member,
		func() T { return *ptr },
		func(v T) { *ptr = v },
		stub,
	)
}

func (e Entry) String() string {
	return fmt.Sprintf("%s (%s.%s)", e.Capability, e.Target, e.Member)
}

func (e Entry) available() bool {
	return e.Available == nil || e.Available()
}

// PatchDescriptor remembers what a target held before a stub replaced it.
type PatchDescriptor struct {
	Capability string
	Target     string
	Member     string
	Original   any

	store func(any)
}

// Registry is an ordered, extensible catalog of entries plus the lock that serializes
// sandboxes patching them.
type Registry struct {
	mu      sync.RWMutex
	catalog []Entry
	logger  *zap.Logger
	lock    *ReentrantLock
}

func NewRegistry(logger *zap.Logger, entries ...Entry) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		catalog: slices.Clone(entries),
		logger:  logger,
		lock:    NewReentrantLock(),
	}
}

// Register appends entries to the catalog. They take effect from the next outermost sandbox.
func (r *Registry) Register(entries ...Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.catalog = append(r.catalog, entries...)
}

func (r *Registry) Catalog() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.catalog)
}

func (r *Registry) Lock() *ReentrantLock { return r.lock }

// Apply installs a stub for every available entry t does not allow and returns the
// descriptors needed to undo it, in application order. Entries that are unavailable
// or that fail to patch are skipped.
func (r *Registry) Apply(t *Trap) []PatchDescriptor {
	catalog := r.Catalog()
	descriptors := make([]PatchDescriptor, 0, len(catalog))
	for _, e := range catalog {
		if t.Allows(e.Capability) || !e.available() {
			continue
		}
		if d, err := apply(e, t); err != nil {
			r.logger.Debug("skipping entry", zap.Stringer("entry", e), zap.Error(err))
		} else {
			descriptors = append(descriptors, d)
		}
	}
	return descriptors
}

func apply(e Entry, t *Trap) (d PatchDescriptor, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("patch %s.%s: %v", e.Target, e.Member, r)
		}
	}()
	original := e.load()
	e.store(e.stub(original, t))
	return PatchDescriptor{
		Capability: e.Capability,
		Target:     e.Target,
		Member:     e.Member,
		Original:   original,
		store:      e.store,
	}, nil
}

// Restore writes every original back, last applied first. Every descriptor is
// attempted; failures are combined into the returned error.
func (r *Registry) Restore(descriptors []PatchDescriptor) error {
	var errs error
	for _, d := range slices.Backward(descriptors) {
		errs = multierr.Append(errs, restore(d))
	}
	return errs
}

func restore(d PatchDescriptor) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &restoreError{Target: d.Target, Member: d.Member, Cause: r}
		}
	}()
	d.store(d.Original)
	return nil
}
