package pure

import (
	"context"

	"go.uber.org/zap"
)

// EnforceImmutable wraps fn so it only ever sees deep copies of its arguments;
// whatever it does to them never reaches the caller. Arguments that cannot be
// copied fail the call before fn runs.
//
// With WithVerify(true) the copies are compared with the originals afterwards and a
// change is reported like DetectMutation would, honouring WithStrict.
func EnforceImmutable[R any](fn Callable[R], opts ...Option) Callable[R] {
	cfg := newConfig(opts...)
	return Wrap(fn, func(ctx context.Context, args Args, invoke func(context.Context, Args) (R, error)) (R, error) {
		var zero R
		if !cfg.Enabled {
			return invoke(ctx, args)
		}
		copies, err := snapshotArgs(args)
		if err != nil {
			return zero, err
		}
		if !cfg.Verify {
			return invoke(ctx, copies)
		}

		res, err := invoke(ctx, copies.clone())
		if err != nil {
			return res, err
		}
		diff := firstArgDiff(args, copies)
		if diff == nil {
			return res, nil
		}
		cfg.Metrics.MutationDetected()
		if cfg.Strict {
			return zero, &MutationError{Path: diff.Path, Description: diff.Description}
		}
		cfg.Logger.Warn("argument copy mutated",
			zap.Stringer("path", diff.Path),
			zap.String("description", diff.Description),
		)
		return res, nil
	})
}
