package pure

import (
	"context"

	"go.uber.org/zap"
)

// DetectMutation wraps fn so every call snapshots its arguments, runs fn on the
// originals and fails with a *MutationError at the first argument that changed.
// With WithStrict(false) the mutation is logged and fn's result is returned.
// An error from fn itself is returned as is, without a mutation check.
func DetectMutation[R any](fn Callable[R], opts ...Option) Callable[R] {
	cfg := newConfig(opts...)
	return Wrap(fn, func(ctx context.Context, args Args, invoke func(context.Context, Args) (R, error)) (R, error) {
		var zero R
		if !cfg.Enabled {
			return invoke(ctx, args)
		}
		before, err := snapshotArgs(args)
		if err != nil {
			return zero, err
		}

		res, err := invoke(ctx, args.clone())
		if err != nil {
			return res, err
		}

		diff := firstArgDiff(before, args)
		if diff == nil {
			return res, nil
		}
		cfg.Metrics.MutationDetected()
		mutation := &MutationError{Path: diff.Path, Description: diff.Description}
		if cfg.Strict {
			return zero, mutation
		}
		cfg.Logger.Warn("argument mutated",
			zap.Stringer("path", diff.Path),
			zap.String("description", diff.Description),
		)
		return res, nil
	})
}
