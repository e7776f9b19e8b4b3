package sideeffect

import (
	"sync"

	"github.com/on-the-ground/purity/diag"
	"github.com/on-the-ground/purity/metrics"
	"go.uber.org/zap"
)

// Trap is handed to every stub installed by one sandbox application. Stubs report
// each intercepted call through Check or Enter.
type Trap struct {
	strict  bool
	allowed map[string]bool
	logger  *zap.Logger
	metrics *metrics.Metrics
	journal *Journal

	mu       sync.Mutex
	cleanups []func()
	blocked  *BlockedError
}

// NewTrap builds a trap. A nil journal is replaced with a fresh one.
func NewTrap(strict bool, logger *zap.Logger, m *metrics.Metrics, journal *Journal, allowed ...string) *Trap {
	if journal == nil {
		journal = NewJournal()
	}
	t := &Trap{
		strict:  strict,
		allowed: make(map[string]bool, len(allowed)),
		logger:  diag.OrNop(logger),
		metrics: m,
		journal: journal,
	}
	for _, c := range allowed {
		t.allowed[c] = true
	}
	return t
}

func (t *Trap) Strict() bool { return t.strict }

func (t *Trap) Journal() *Journal { return t.journal }

// Allows reports whether capability was exempted from patching.
func (t *Trap) Allows(capability string) bool { return t.allowed[capability] }

// Check records an attempt on capability. In strict mode it returns a *BlockedError
// and the stub must not delegate; otherwise it emits one diagnostic and returns nil.
func (t *Trap) Check(capability string) error {
	t.metrics.SideEffectIntercepted(capability, t.strict)
	if t.strict {
		err := &BlockedError{Capability: capability}
		t.journal.record(Attempt{Capability: capability, Blocked: true, TimeSpan: now()})
		t.mu.Lock()
		if t.blocked == nil {
			t.blocked = err
		}
		t.mu.Unlock()
		return err
	}
	t.journal.record(Attempt{Capability: capability, TimeSpan: now()})
	t.logger.Warn("side effect attempted", zap.String("capability", capability))
	return nil
}

// Enter is Check for stubs whose signature cannot carry an error: it panics with the
// *BlockedError instead.
func (t *Trap) Enter(capability string) {
	if err := t.Check(capability); err != nil {
		panic(err)
	}
}

// Blocked returns the first attempt this trap blocked, or nil.
func (t *Trap) Blocked() *BlockedError {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.blocked
}

// Defer registers fn to run once the patches of this application are restored.
func (t *Trap) Defer(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cleanups = append(t.cleanups, fn)
}

// Close runs deferred cleanups in reverse registration order.
func (t *Trap) Close() {
	t.mu.Lock()
	cleanups := t.cleanups
	t.cleanups = nil
	t.mu.Unlock()
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
}
