package helper

import (
	"fmt"
)

// GetTypedValueOf runs getFn and asserts its result to T.
// Getter errors are wrapped; a result of the wrong type is an error too.
func GetTypedValueOf[T any](getFn func() (any, error)) (T, error) {
	var zero T

	res, err := getFn()
	if err != nil {
		return zero, fmt.Errorf("failed to get value: %w", err)
	}

	val, ok := res.(T)
	if !ok {
		return zero, fmt.Errorf("%w: want %T, got %T", ErrUnexpectedType, zero, res)
	}

	return val, nil
}

var ErrUnexpectedType = fmt.Errorf("unexpected type")
