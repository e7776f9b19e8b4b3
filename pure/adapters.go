package pure

import (
	"context"
)

type guard[O any] func(Callable[O], ...Option) Callable[O]

// as asserts v to T, mapping an untyped nil to T's zero value.
func as[T any](v any) T {
	t, _ := v.(T)
	return t
}

func guarded[O any](
	g guard[O],
	pureFn func(args ...any) O,
	opts []Option,
) func(...any) (O, error) {
	return guardedE(g, func(args ...any) (O, error) {
		return pureFn(args...), nil
	}, opts)
}

// guardedE is guarded for functions that already return an error. Their errors
// pass through the guard untouched.
func guardedE[O any](
	g guard[O],
	fn func(args ...any) (O, error),
	opts []Option,
) func(...any) (O, error) {
	wrapped := g(SyncFunc[O](func(_ context.Context, args Args) (O, error) {
		return fn(args.Positional...)
	}), opts...)
	return func(args ...any) (O, error) {
		return Call(context.Background(), wrapped, Positional(args...))
	}
}

func DetectMutationI1O1[I1, O1 any](pureFn func(I1) O1, opts ...Option) func(I1) (O1, error) {
	g := guarded[O1](DetectMutation[O1], func(args ...any) O1 {
		return pureFn(as[I1](args[0]))
	}, opts)
	return func(i1 I1) (O1, error) { return g(i1) }
}

func DetectMutationI2O1[I1, I2, O1 any](pureFn func(I1, I2) O1, opts ...Option) func(I1, I2) (O1, error) {
	g := guarded[O1](DetectMutation[O1], func(args ...any) O1 {
		return pureFn(as[I1](args[0]), as[I2](args[1]))
	}, opts)
	return func(i1 I1, i2 I2) (O1, error) { return g(i1, i2) }
}

func DetectMutationI3O1[I1, I2, I3, O1 any](pureFn func(I1, I2, I3) O1, opts ...Option) func(I1, I2, I3) (O1, error) {
	g := guarded[O1](DetectMutation[O1], func(args ...any) O1 {
		return pureFn(as[I1](args[0]), as[I2](args[1]), as[I3](args[2]))
	}, opts)
	return func(i1 I1, i2 I2, i3 I3) (O1, error) { return g(i1, i2, i3) }
}

func EnforceImmutableI1O1[I1, O1 any](pureFn func(I1) O1, opts ...Option) func(I1) (O1, error) {
	g := guarded[O1](EnforceImmutable[O1], func(args ...any) O1 {
		return pureFn(as[I1](args[0]))
	}, opts)
	return func(i1 I1) (O1, error) { return g(i1) }
}

func EnforceImmutableI2O1[I1, I2, O1 any](pureFn func(I1, I2) O1, opts ...Option) func(I1, I2) (O1, error) {
	g := guarded[O1](EnforceImmutable[O1], func(args ...any) O1 {
		return pureFn(as[I1](args[0]), as[I2](args[1]))
	}, opts)
	return func(i1 I1, i2 I2) (O1, error) { return g(i1, i2) }
}

func EnforceImmutableI3O1[I1, I2, I3, O1 any](pureFn func(I1, I2, I3) O1, opts ...Option) func(I1, I2, I3) (O1, error) {
	g := guarded[O1](EnforceImmutable[O1], func(args ...any) O1 {
		return pureFn(as[I1](args[0]), as[I2](args[1]), as[I3](args[2]))
	}, opts)
	return func(i1 I1, i2 I2, i3 I3) (O1, error) { return g(i1, i2, i3) }
}

func EnforceDeterministicI1O1[I1, O1 any](pureFn func(I1) O1, opts ...Option) func(I1) (O1, error) {
	g := guarded[O1](EnforceDeterministic[O1], func(args ...any) O1 {
		return pureFn(as[I1](args[0]))
	}, opts)
	return func(i1 I1) (O1, error) { return g(i1) }
}

func EnforceDeterministicI2O1[I1, I2, O1 any](pureFn func(I1, I2) O1, opts ...Option) func(I1, I2) (O1, error) {
	g := guarded[O1](EnforceDeterministic[O1], func(args ...any) O1 {
		return pureFn(as[I1](args[0]), as[I2](args[1]))
	}, opts)
	return func(i1 I1, i2 I2) (O1, error) { return g(i1, i2) }
}

func EnforceDeterministicI3O1[I1, I2, I3, O1 any](pureFn func(I1, I2, I3) O1, opts ...Option) func(I1, I2, I3) (O1, error) {
	g := guarded[O1](EnforceDeterministic[O1], func(args ...any) O1 {
		return pureFn(as[I1](args[0]), as[I2](args[1]), as[I3](args[2]))
	}, opts)
	return func(i1 I1, i2 I2, i3 I3) (O1, error) { return g(i1, i2, i3) }
}

func DetectMutationI1O1E[I1, O1 any](fn func(I1) (O1, error), opts ...Option) func(I1) (O1, error) {
	g := guardedE[O1](DetectMutation[O1], func(args ...any) (O1, error) {
		return fn(as[I1](args[0]))
	}, opts)
	return func(i1 I1) (O1, error) { return g(i1) }
}

func DetectMutationI2O1E[I1, I2, O1 any](fn func(I1, I2) (O1, error), opts ...Option) func(I1, I2) (O1, error) {
	g := guardedE[O1](DetectMutation[O1], func(args ...any) (O1, error) {
		return fn(as[I1](args[0]), as[I2](args[1]))
	}, opts)
	return func(i1 I1, i2 I2) (O1, error) { return g(i1, i2) }
}

func EnforceDeterministicI1O1E[I1, O1 any](fn func(I1) (O1, error), opts ...Option) func(I1) (O1, error) {
	g := guardedE[O1](EnforceDeterministic[O1], func(args ...any) (O1, error) {
		return fn(as[I1](args[0]))
	}, opts)
	return func(i1 I1) (O1, error) { return g(i1) }
}

func EnforceDeterministicI2O1E[I1, I2, O1 any](fn func(I1, I2) (O1, error), opts ...Option) func(I1, I2) (O1, error) {
	g := guardedE[O1](EnforceDeterministic[O1], func(args ...any) (O1, error) {
		return fn(as[I1](args[0]), as[I2](args[1]))
	}, opts)
	return func(i1 I1, i2 I2) (O1, error) { return g(i1, i2) }
}
