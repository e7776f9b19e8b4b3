package valuegraph

import (
	"errors"
	"fmt"
	"reflect"
)

// ErrUnsupportedValue is returned when a value graph holds something that cannot be deep-copied.
var ErrUnsupportedValue = errors.New("unsupported value")

// UnsupportedValueError names the offending type and where it was found.
type UnsupportedValueError struct {
	Path Path
	Type reflect.Type
}

func (e *UnsupportedValueError) Error() string {
	if len(e.Path) == 0 {
		return fmt.Sprintf("%s: cannot snapshot %s", ErrUnsupportedValue, e.Type)
	}
	return fmt.Sprintf("%s: cannot snapshot %s at %s", ErrUnsupportedValue, e.Type, e.Path)
}

func (e *UnsupportedValueError) Unwrap() error { return ErrUnsupportedValue }
