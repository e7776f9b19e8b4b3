package pure

import (
	"fmt"
	"maps"
	"slices"

	"github.com/on-the-ground/purity/shared/helper"
	"github.com/on-the-ground/purity/valuegraph"
)

// Args is the argument list of one call: positional values in order plus named values.
type Args struct {
	Positional []any
	Keyword    map[string]any
}

func Positional(values ...any) Args {
	return Args{Positional: values}
}

// With returns a copy of a with the named argument set.
func (a Args) With(name string, value any) Args {
	out := a.clone()
	if out.Keyword == nil {
		out.Keyword = make(map[string]any, 1)
	}
	out.Keyword[name] = value
	return out
}

// KeywordNames returns the names of the keyword arguments in sorted order.
func (a Args) KeywordNames() []string {
	return slices.Sorted(maps.Keys(a.Keyword))
}

// clone copies the top-level containers so a callee rebinding a slot cannot
// change what the caller holds.
func (a Args) clone() Args {
	return Args{
		Positional: slices.Clone(a.Positional),
		Keyword:    maps.Clone(a.Keyword),
	}
}

var ErrMissingArgument = fmt.Errorf("missing argument")

// Arg fetches positional argument i as a T.
func Arg[T any](a Args, i int) (T, error) {
	return helper.GetTypedValueOf[T](func() (any, error) {
		if i < 0 || i >= len(a.Positional) {
			return nil, fmt.Errorf("%w: arg[%d]", ErrMissingArgument, i)
		}
		return a.Positional[i], nil
	})
}

// Kwarg fetches keyword argument name as a T.
func Kwarg[T any](a Args, name string) (T, error) {
	return helper.GetTypedValueOf[T](func() (any, error) {
		v, ok := a.Keyword[name]
		if !ok {
			return nil, fmt.Errorf("%w: kwarg[%q]", ErrMissingArgument, name)
		}
		return v, nil
	})
}

// snapshotArgs deep-copies every argument with one memo, so aliasing across
// arguments survives in the copies.
func snapshotArgs(a Args) (Args, error) {
	s := valuegraph.NewSnapshotter()
	out := Args{Positional: make([]any, len(a.Positional))}
	for i, v := range a.Positional {
		cp, err := s.CopyAt(v, valuegraph.Path{valuegraph.Arg(i)})
		if err != nil {
			return Args{}, err
		}
		out.Positional[i] = cp
	}
	if a.Keyword != nil {
		out.Keyword = make(map[string]any, len(a.Keyword))
	}
	for _, name := range a.KeywordNames() {
		cp, err := s.CopyAt(a.Keyword[name], valuegraph.Path{valuegraph.Kwarg(name)})
		if err != nil {
			return Args{}, err
		}
		out.Keyword[name] = cp
	}
	return out, nil
}

// firstArgDiff compares positional arguments in order, then keyword arguments by name.
func firstArgDiff(before, after Args) *valuegraph.Diff {
	for i := range before.Positional {
		if d := valuegraph.FirstDiff(before.Positional[i], after.Positional[i], valuegraph.Path{valuegraph.Arg(i)}); d != nil {
			return d
		}
	}
	for _, name := range before.KeywordNames() {
		if d := valuegraph.FirstDiff(before.Keyword[name], after.Keyword[name], valuegraph.Path{valuegraph.Kwarg(name)}); d != nil {
			return d
		}
	}
	return nil
}
