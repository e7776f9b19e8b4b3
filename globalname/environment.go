package globalname

import (
	"context"
	"fmt"

	"github.com/on-the-ground/purity/pure"
	"github.com/on-the-ground/purity/shared/helper"
)

type environmentKey struct{}

// environment is the set of names a call may resolve through Lookup.
type environment map[string]any

// restrict copies the allowed subset of bindings.
func restrict(bindings map[string]any, allow []string) environment {
	env := make(environment, len(allow))
	for _, name := range allow {
		if v, ok := bindings[name]; ok {
			env[name] = v
		}
	}
	return env
}

// WithBindings returns a context whose environment holds exactly the allowed subset
// of bindings. It replaces, rather than extends, any environment already in ctx.
func WithBindings(ctx context.Context, bindings map[string]any, allow ...string) context.Context {
	return context.WithValue(ctx, environmentKey{}, restrict(bindings, allow))
}

// ForbidGlobals wraps fn so that each call runs with an environment holding only the
// allowed subset of bindings. The environment lives in the call's context and is gone
// when the call returns.
func ForbidGlobals[R any](fn pure.Callable[R], bindings map[string]any, allow ...string) pure.Callable[R] {
	env := restrict(bindings, allow)
	return pure.Wrap(fn, func(ctx context.Context, args pure.Args, invoke func(context.Context, pure.Args) (R, error)) (R, error) {
		return invoke(context.WithValue(ctx, environmentKey{}, env), args)
	})
}

// Lookup resolves name in the environment of ctx. Outside of any environment every
// name is unbound.
func Lookup(ctx context.Context, name string) (any, error) {
	env, _ := ctx.Value(environmentKey{}).(environment)
	v, ok := env[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNameNotBound, name)
	}
	return v, nil
}

// LookupAs is Lookup with the result asserted to T.
func LookupAs[T any](ctx context.Context, name string) (T, error) {
	return helper.GetTypedValueOf[T](func() (any, error) {
		return Lookup(ctx, name)
	})
}
