package globalname

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrGlobalNameViolation is wrapped by every *ViolationError.
	ErrGlobalNameViolation = errors.New("global names referenced")
	// ErrSourceUnavailable means the function's source could not be found or parsed.
	ErrSourceUnavailable = errors.New("function source unavailable")
	// ErrNameNotBound is returned by Lookup for names outside the call's environment.
	ErrNameNotBound = errors.New("name not bound")
)

// ViolationError lists the names a function referred to without being allowed to.
type ViolationError struct {
	Func  string
	Names []string
}

func (e *ViolationError) Error() string {
	return fmt.Sprintf("%s by %s: [%s]", ErrGlobalNameViolation, e.Func, strings.Join(e.Names, " "))
}

func (e *ViolationError) Unwrap() error { return ErrGlobalNameViolation }
