package sideeffect

import (
	"sync"
	"time"

	"github.com/rickb777/date/v2/timespan"
)

type TimeSpan = timespan.TimeSpan

const epsilon = time.Millisecond

// now brackets the current instant. It reads the real clock, which no sandbox patches.
func now() TimeSpan {
	t := time.Now()
	return timespan.BetweenTimes(t.Add(-1*epsilon), t.Add(epsilon))
}

// Attempt is one intercepted call on a capability.
type Attempt struct {
	Capability string
	Blocked    bool
	TimeSpan
}

// Journal records attempts in the order they were intercepted. Safe for concurrent use.
type Journal struct {
	mu       sync.Mutex
	attempts []Attempt
}

func NewJournal() *Journal {
	return &Journal{}
}

func (j *Journal) record(a Attempt) {
	if j == nil {
		return
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	j.attempts = append(j.attempts, a)
}

func (j *Journal) Attempts() []Attempt {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]Attempt, len(j.attempts))
	copy(out, j.attempts)
	return out
}

// FirstBlocked returns the earliest blocked attempt, if any.
func (j *Journal) FirstBlocked() (Attempt, bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	for _, a := range j.attempts {
		if a.Blocked {
			return a, true
		}
	}
	return Attempt{}, false
}

// Capabilities lists the capabilities attempted, in order, without repeats.
func (j *Journal) Capabilities() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	seen := make(map[string]struct{}, len(j.attempts))
	var out []string
	for _, a := range j.attempts {
		if _, ok := seen[a.Capability]; ok {
			continue
		}
		seen[a.Capability] = struct{}{}
		out = append(out, a.Capability)
	}
	return out
}
