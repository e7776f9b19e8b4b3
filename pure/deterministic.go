package pure

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/on-the-ground/purity/pure/store"
	"github.com/on-the-ground/purity/valuegraph"
	"go.uber.org/zap"
)

// EnforceDeterministic wraps fn with a cache of the last result seen per argument
// list. Calls with equal arguments are serialized; calls with different arguments
// run independently. When a fresh result differs from the cached one the call fails
// with a *NonDeterminismError, or, with WithStrict(false), the difference is logged
// and the cache takes the fresh result.
//
// Arguments must have a canonical encoding (see valuegraph.Encode); failed calls
// are not cached.
func EnforceDeterministic[R any](fn Callable[R], opts ...Option) Callable[R] {
	cfg := newConfig(opts...)
	locks := newKeyLock()
	return Wrap(fn, func(ctx context.Context, args Args, invoke func(context.Context, Args) (R, error)) (R, error) {
		var zero R
		if !cfg.Enabled {
			return invoke(ctx, args)
		}
		key, err := cacheKey(args)
		if err != nil {
			return zero, err
		}

		release, err := locks.acquire(ctx, key)
		if err != nil {
			return zero, err
		}
		defer release()

		res, err := invoke(ctx, args)
		if err != nil {
			return res, err
		}

		prior, ok, err := store.Load(cfg.Store, key)
		if err != nil {
			return zero, fmt.Errorf("load cached result: %w", err)
		}
		fresh := store.NewEntry(key, retained(res))
		if !ok {
			if _, err := store.InsertIfAbsent(cfg.Store, fresh); err != nil {
				return zero, fmt.Errorf("cache result: %w", err)
			}
			return res, nil
		}

		diff := valuegraph.FirstDiff(prior.Value, res, nil)
		if diff == nil {
			return res, nil
		}
		cfg.Metrics.NonDeterministicOutput(cfg.Strict)
		if cfg.Strict {
			return zero, &NonDeterminismError{Diff: diff}
		}
		cfg.Logger.Warn("non-deterministic output detected",
			zap.Stringer("path", diff.Path),
			zap.String("description", diff.Description),
		)
		if _, err := store.CompareAndSwap(cfg.Store, prior, fresh); err != nil {
			return zero, fmt.Errorf("replace cached result: %w", err)
		}
		return res, nil
	})
}

// retained detaches a result from the caller so later changes to it cannot
// masquerade as non-determinism.
func retained(v any) any {
	if cp, err := valuegraph.Snapshot(v); err == nil {
		return cp
	}
	return v
}

// cacheKey is the canonical encoding of positional then keyword arguments, one per line.
func cacheKey(args Args) (string, error) {
	var b strings.Builder
	for i, v := range args.Positional {
		enc, err := valuegraph.Encode(v, valuegraph.Path{valuegraph.Arg(i)})
		if err != nil {
			return "", &UnencodableArgumentsError{Cause: err}
		}
		b.Write(enc)
		b.WriteByte('\n')
	}
	for _, name := range args.KeywordNames() {
		enc, err := valuegraph.Encode(args.Keyword[name], valuegraph.Path{valuegraph.Kwarg(name)})
		if err != nil {
			return "", &UnencodableArgumentsError{Cause: err}
		}
		b.WriteString(strconv.Quote(name))
		b.WriteByte('=')
		b.Write(enc)
		b.WriteByte('\n')
	}
	return b.String(), nil
}
