package pure_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/on-the-ground/purity/metrics"
	"github.com/on-the-ground/purity/pure"
	"github.com/on-the-ground/purity/valuegraph"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func appendNumber() pure.SyncFunc[int] {
	return func(ctx context.Context, args pure.Args) (int, error) {
		m, err := pure.Arg[map[string][]int](args, 0)
		if err != nil {
			return 0, err
		}
		m["numbers"] = append(m["numbers"], 4)
		return len(m["numbers"]), nil
	}
}

func sumNumbers() pure.SyncFunc[int] {
	return func(ctx context.Context, args pure.Args) (int, error) {
		m, err := pure.Arg[map[string][]int](args, 0)
		if err != nil {
			return 0, err
		}
		total := 0
		for _, n := range m["numbers"] {
			total += n
		}
		return total, nil
	}
}

func TestDetectMutation_ReportsFirstDivergence(t *testing.T) {
	ctx := context.Background()
	guarded := pure.DetectMutation[int](appendNumber(), pure.WithLogger(zap.NewNop()))

	_, err := pure.Call(ctx, guarded, pure.Positional(map[string][]int{"numbers": {1, 2, 3}}))
	require.ErrorIs(t, err, pure.ErrMutationDetected)

	var mutation *pure.MutationError
	require.ErrorAs(t, err, &mutation)
	assert.Equal(t, `arg[0]/["numbers"]/<len>`, mutation.Path.String())
	assert.Equal(t, "3 -> 4", mutation.Description)
	assert.EqualError(t, err, `argument mutated at arg[0]/["numbers"]/<len>: 3 -> 4`)
}

func TestDetectMutation_KeywordArgument(t *testing.T) {
	ctx := context.Background()
	push := pure.SyncFunc[struct{}](func(ctx context.Context, args pure.Args) (struct{}, error) {
		payload, err := pure.Kwarg[*[]string](args, "payload")
		if err != nil {
			return struct{}{}, err
		}
		*payload = append(*payload, "b")
		return struct{}{}, nil
	})

	payload := []string{"a"}
	_, err := pure.Call(ctx, pure.DetectMutation[struct{}](push), pure.Args{}.With("payload", &payload))

	var mutation *pure.MutationError
	require.ErrorAs(t, err, &mutation)
	assert.Equal(t, `kwarg["payload"]/<len>`, mutation.Path.String())
	assert.Equal(t, "1 -> 2", mutation.Description)
}

func TestDetectMutation_PureCallPassesThrough(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	guarded := pure.DetectMutation[int](sumNumbers(), pure.WithMetrics(m))
	v, err := pure.Call(ctx, guarded, pure.Positional(map[string][]int{"numbers": {1, 2, 3}}))
	require.NoError(t, err)
	assert.Equal(t, 6, v)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.MutationsDetected))
}

func TestDetectMutation_PermissiveLogs(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zap.WarnLevel)
	m := metrics.New(prometheus.NewRegistry())

	guarded := pure.DetectMutation[int](appendNumber(),
		pure.WithStrict(false),
		pure.WithLogger(zap.New(core)),
		pure.WithMetrics(m),
	)
	v, err := pure.Call(ctx, guarded, pure.Positional(map[string][]int{"numbers": {1}}))
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	entries := logs.FilterMessage("argument mutated").All()
	require.Len(t, entries, 1)
	assert.Equal(t, `arg[0]/["numbers"]/<len>`, entries[0].ContextMap()["path"])
	assert.Equal(t, 1.0, testutil.ToFloat64(m.MutationsDetected))
}

func TestDetectMutation_AliasedArgumentsShareSnapshot(t *testing.T) {
	ctx := context.Background()
	viaSecond := pure.SyncFunc[int](func(ctx context.Context, args pure.Args) (int, error) {
		m, _ := pure.Arg[map[string][]int](args, 1)
		m["numbers"][0] = 99
		return 0, nil
	})

	shared := map[string][]int{"numbers": {1}}
	_, err := pure.Call(ctx, pure.DetectMutation[int](viaSecond), pure.Positional(shared, shared))

	var mutation *pure.MutationError
	require.ErrorAs(t, err, &mutation)
	assert.Equal(t, `arg[0]/["numbers"]/[0]`, mutation.Path.String())
	assert.Equal(t, "value 1 -> 99", mutation.Description)
}

func TestDetectMutation_RebindingIsNotMutation(t *testing.T) {
	ctx := context.Background()
	rebind := pure.SyncFunc[int](func(ctx context.Context, args pure.Args) (int, error) {
		args.Positional[0] = map[string][]int{}
		return 0, nil
	})

	arg := map[string][]int{"numbers": {1}}
	_, err := pure.Call(ctx, pure.DetectMutation[int](rebind), pure.Positional(arg))
	require.NoError(t, err)
}

func TestDetectMutation_CalleeErrorWins(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	failing := pure.SyncFunc[int](func(ctx context.Context, args pure.Args) (int, error) {
		m, _ := pure.Arg[map[string][]int](args, 0)
		m["numbers"] = nil
		return 0, boom
	})

	_, err := pure.Call(ctx, pure.DetectMutation[int](failing), pure.Positional(map[string][]int{"numbers": {1}}))
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, pure.ErrMutationDetected)
}

func TestDetectMutation_UnsupportedArgument(t *testing.T) {
	ctx := context.Background()
	called := false
	fn := pure.SyncFunc[int](func(ctx context.Context, args pure.Args) (int, error) {
		called = true
		return 0, nil
	})

	_, err := pure.Call(ctx, pure.DetectMutation[int](fn), pure.Positional(1, make(chan int)))
	require.ErrorIs(t, err, valuegraph.ErrUnsupportedValue)
	assert.False(t, called)
}

func TestDetectMutation_Disabled(t *testing.T) {
	ctx := context.Background()
	guarded := pure.DetectMutation[int](appendNumber(), pure.WithEnabled(false))
	_, err := pure.Call(ctx, guarded, pure.Positional(map[string][]int{"numbers": {}}))
	assert.NoError(t, err)
}

func TestDetectMutation_Async(t *testing.T) {
	ctx := context.Background()
	async := pure.AsyncFunc[int](func(ctx context.Context, args pure.Args) <-chan pure.Result[int] {
		return pure.Go(ctx, func(ctx context.Context) (int, error) {
			return appendNumber()(ctx, args)
		})
	})

	guarded := pure.DetectMutation[int](async)
	require.True(t, pure.IsAsync(guarded))

	_, err := pure.Call(ctx, guarded, pure.Positional(map[string][]int{"numbers": {1}}))
	require.ErrorIs(t, err, pure.ErrMutationDetected)
}

type vertex struct{ Name string }

func TestDetectMutation_ReadOnlyOverUnusualKeys(t *testing.T) {
	a := &vertex{Name: "a"}
	weight := pure.DetectMutationI1O1(func(m map[*vertex]int) int { return m[a] })
	v, err := weight(map[*vertex]int{a: 1})
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	size := pure.DetectMutationI1O1(func(m map[float64]int) int { return len(m) })
	_, err = size(map[float64]int{math.NaN(): 1})
	assert.NoError(t, err)

	bump := pure.DetectMutationI1O1(func(m map[*vertex]int) int {
		m[a]++
		return m[a]
	})
	_, err = bump(map[*vertex]int{a: 1})
	var mutation *pure.MutationError
	require.ErrorAs(t, err, &mutation)
	assert.Equal(t, "value 1 -> 2", mutation.Description)
}
