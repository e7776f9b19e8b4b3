package pure

import (
	"context"
	"fmt"
)

// Result is what an AsyncFunc delivers.
type Result[R any] struct {
	Value R
	Err   error
}

// SyncFunc runs to completion on the caller's goroutine.
type SyncFunc[R any] func(ctx context.Context, args Args) (R, error)

// AsyncFunc starts work and returns a future that yields exactly one Result.
type AsyncFunc[R any] func(ctx context.Context, args Args) <-chan Result[R]

// Callable is a sealed interface: SyncFunc and AsyncFunc are its only variants.
// Guards inspect the variant once, when wrapping, and return the same variant.
type Callable[R any] interface {
	callable(R)
}

func (SyncFunc[R]) callable(R)  {}
func (AsyncFunc[R]) callable(R) {}

func matchCallable[R, T any](
	fn Callable[R],
	syncCallback func(SyncFunc[R]) T,
	asyncCallback func(AsyncFunc[R]) T,
) T {
	switch fn := fn.(type) {
	case SyncFunc[R]:
		return syncCallback(fn)
	case AsyncFunc[R]:
		return asyncCallback(fn)
	default:
		panic(fmt.Sprintf("exhaustive match fallback, callable type: %T", fn))
	}
}

// Probe classifies fn as one of the Callable variants. Plain funcs with a matching
// signature are accepted too.
func Probe[R any](fn any) (Callable[R], error) {
	switch fn := fn.(type) {
	case SyncFunc[R]:
		return fn, nil
	case AsyncFunc[R]:
		return fn, nil
	case func(context.Context, Args) (R, error):
		return SyncFunc[R](fn), nil
	case func(context.Context, Args) <-chan Result[R]:
		return AsyncFunc[R](fn), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrNotCallable, fn)
	}
}

// IsAsync reports whether fn is the AsyncFunc variant.
func IsAsync[R any](fn Callable[R]) bool {
	return matchCallable(fn,
		func(SyncFunc[R]) bool { return false },
		func(AsyncFunc[R]) bool { return true },
	)
}

// Await blocks until the future yields or ctx is done.
func (f AsyncFunc[R]) Await(ctx context.Context, args Args) (R, error) {
	var zero R
	select {
	case res, ok := <-f(ctx, args):
		if !ok {
			return zero, ErrNoResult
		}
		return res.Value, res.Err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Call runs fn to completion regardless of its variant.
func Call[R any](ctx context.Context, fn Callable[R], args Args) (R, error) {
	return matchCallable(fn,
		func(f SyncFunc[R]) Result[R] {
			v, err := f(ctx, args)
			return Result[R]{Value: v, Err: err}
		},
		func(f AsyncFunc[R]) Result[R] {
			v, err := f.Await(ctx, args)
			return Result[R]{Value: v, Err: err}
		},
	).unpack()
}

func (r Result[R]) unpack() (R, error) { return r.Value, r.Err }

// Go runs body on a new goroutine and delivers its outcome as a future.
// A panic in body is delivered as a *PanicError.
func Go[R any](ctx context.Context, body func(context.Context) (R, error)) <-chan Result[R] {
	ch := make(chan Result[R], 1)
	go func() {
		defer close(ch)
		defer func() {
			if r := recover(); r != nil {
				ch <- Result[R]{Err: &PanicError{Value: r}}
			}
		}()
		v, err := body(ctx)
		ch <- Result[R]{Value: v, Err: err}
	}()
	return ch
}

// Body is the logic a guard runs around one call. invoke runs the wrapped callable.
type Body[R any] func(ctx context.Context, args Args, invoke func(context.Context, Args) (R, error)) (R, error)

// Wrap builds a callable of the same variant as fn that runs body around it.
// The async variant runs body on its own goroutine, so waiting inside body never
// blocks the caller.
func Wrap[R any](fn Callable[R], body Body[R]) Callable[R] {
	return matchCallable(fn,
		func(f SyncFunc[R]) Callable[R] {
			return SyncFunc[R](func(ctx context.Context, args Args) (R, error) {
				return body(ctx, args, f)
			})
		},
		func(f AsyncFunc[R]) Callable[R] {
			return AsyncFunc[R](func(ctx context.Context, args Args) <-chan Result[R] {
				return Go(ctx, func(ctx context.Context) (R, error) {
					return body(ctx, args, f.Await)
				})
			})
		},
	)
}
