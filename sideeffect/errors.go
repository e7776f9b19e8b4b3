package sideeffect

import (
	"errors"
	"fmt"
)

var (
	// ErrSideEffectBlocked is wrapped by every *BlockedError.
	ErrSideEffectBlocked = errors.New("side effect blocked")
	// ErrRestoreFailed is wrapped by errors from Registry.Restore.
	ErrRestoreFailed = errors.New("failed to restore patched target")
)

// BlockedError is returned, or raised as a panic where the intercepted signature has
// no error result, when a strict sandbox catches an attempt on a capability.
type BlockedError struct {
	Capability string
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("%s: %s", ErrSideEffectBlocked, e.Capability)
}

func (e *BlockedError) Unwrap() error { return ErrSideEffectBlocked }

type restoreError struct {
	Target, Member string
	Cause          any
}

func (e *restoreError) Error() string {
	return fmt.Sprintf("%s: %s.%s: %v", ErrRestoreFailed, e.Target, e.Member, e.Cause)
}

func (e *restoreError) Unwrap() error { return ErrRestoreFailed }
