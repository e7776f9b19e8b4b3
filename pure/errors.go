package pure

import (
	"errors"
	"fmt"

	"github.com/on-the-ground/purity/valuegraph"
)

var (
	ErrMutationDetected       = errors.New("argument mutated")
	ErrNonDeterministicOutput = errors.New("non-deterministic output detected")
	ErrUnencodableArguments   = errors.New("arguments cannot be used as a cache key")
	ErrNotCallable            = errors.New("not a supported callable")
	ErrCallPanicked           = errors.New("call panicked")
	ErrNoResult               = errors.New("future closed without a result")
)

// MutationError reports the first place a call changed one of its arguments.
type MutationError struct {
	Path        valuegraph.Path
	Description string
}

func (e *MutationError) Error() string {
	return fmt.Sprintf("%s at %s: %s", ErrMutationDetected, e.Path, e.Description)
}

func (e *MutationError) Unwrap() error { return ErrMutationDetected }

// NonDeterminismError reports how a fresh result differs from the cached one.
type NonDeterminismError struct {
	Diff *valuegraph.Diff
}

func (e *NonDeterminismError) Error() string {
	if len(e.Diff.Path) == 0 {
		return fmt.Sprintf("%s: %s", ErrNonDeterministicOutput, e.Diff.Description)
	}
	return fmt.Sprintf("%s at %s: %s", ErrNonDeterministicOutput, e.Diff.Path, e.Diff.Description)
}

func (e *NonDeterminismError) Unwrap() error { return ErrNonDeterministicOutput }

type UnencodableArgumentsError struct {
	Cause error
}

func (e *UnencodableArgumentsError) Error() string {
	return fmt.Sprintf("%s: %v", ErrUnencodableArguments, e.Cause)
}

func (e *UnencodableArgumentsError) Unwrap() []error {
	return []error{ErrUnencodableArguments, e.Cause}
}

// PanicError carries a panic recovered on an async worker goroutine.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("%s: %v", ErrCallPanicked, e.Value)
}

func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return errors.Join(ErrCallPanicked, err)
	}
	return ErrCallPanicked
}
