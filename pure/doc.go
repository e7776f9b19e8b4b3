// Package pure provides call-wrapping guards for functions that are meant to be pure.
//
//   - DetectMutation fails a call that changed any of its arguments, naming the first
//     place it diverged, e.g. `arg[0]/["numbers"]/<len>: 2 -> 3`.
//   - EnforceImmutable hands the callee deep copies, so the caller's values are never touched.
//   - EnforceDeterministic remembers the last result per argument list and fails a call
//     whose result differs from it.
//
// Guards wrap a Callable, which is either a SyncFunc or an AsyncFunc, and return the
// same variant:
//
//	double := pure.DetectMutation[int](pure.SyncFunc[int](
//		func(ctx context.Context, args pure.Args) (int, error) {
//			n, err := pure.Arg[int](args, 0)
//			return 2 * n, err
//		},
//	))
//	v, err := pure.Call(ctx, double, pure.Positional(21))
//
// For plain functions the arity adapters are shorter:
//
//	sum := pure.DetectMutationI1O1(func(xs []int) int { ... })
//	total, err := sum([]int{1, 2, 3})
//
// Every guard accepts WithStrict(false) to report violations through the logger
// instead of failing, and WithEnabled(false) to call straight through.
package pure
