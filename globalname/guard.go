package globalname

import (
	"context"

	"github.com/on-the-ground/purity/pure"
)

// Check scans fn and fails with a *ViolationError if it refers to any name the
// scanner does not allow.
func Check(ctx context.Context, fn any, opts ...Option) error {
	report, err := NewScanner(opts...).Scan(ctx, fn)
	if err != nil {
		return err
	}
	if len(report.Names) > 0 {
		return &ViolationError{Func: report.Func, Names: report.Names}
	}
	return nil
}

// ForbidGlobalNames checks fn once, when wrapping, and returns it unchanged if it
// passes. Nothing is checked per call.
func ForbidGlobalNames[R any](ctx context.Context, fn pure.Callable[R], opts ...Option) (pure.Callable[R], error) {
	if err := Check(ctx, fn, opts...); err != nil {
		return nil, err
	}
	return fn, nil
}
