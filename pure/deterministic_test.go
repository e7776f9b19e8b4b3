package pure_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/on-the-ground/purity/pure"
	"github.com/on-the-ground/purity/pure/store"
	"github.com/on-the-ground/purity/valuegraph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/sync/errgroup"
)

func counter() (pure.SyncFunc[int], *atomic.Int64) {
	var n atomic.Int64
	return func(ctx context.Context, args pure.Args) (int, error) {
		return int(n.Add(1)), nil
	}, &n
}

func TestEnforceDeterministic_StableResult(t *testing.T) {
	ctx := context.Background()
	square := pure.EnforceDeterministic[int](pure.SyncFunc[int](func(ctx context.Context, args pure.Args) (int, error) {
		n, err := pure.Arg[int](args, 0)
		return n * n, err
	}))

	for i := 0; i < 3; i++ {
		v, err := pure.Call(ctx, square, pure.Positional(7))
		require.NoError(t, err)
		assert.Equal(t, 49, v)
	}
}

func TestEnforceDeterministic_StrictFails(t *testing.T) {
	ctx := context.Background()
	fn, _ := counter()
	guarded := pure.EnforceDeterministic[int](fn)

	v, err := pure.Call(ctx, guarded, pure.Positional("same"))
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	_, err = pure.Call(ctx, guarded, pure.Positional("same"))
	require.ErrorIs(t, err, pure.ErrNonDeterministicOutput)

	var nondet *pure.NonDeterminismError
	require.ErrorAs(t, err, &nondet)
	assert.Equal(t, "value 1 -> 2", nondet.Diff.Description)
	assert.EqualError(t, err, "non-deterministic output detected: value 1 -> 2")
}

func TestEnforceDeterministic_PermissiveUpdatesCache(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zap.WarnLevel)
	fn, _ := counter()
	guarded := pure.EnforceDeterministic[int](fn, pure.WithStrict(false), pure.WithLogger(zap.New(core)))

	for want := 1; want <= 3; want++ {
		v, err := pure.Call(ctx, guarded, pure.Positional("same"))
		require.NoError(t, err)
		assert.Equal(t, want, v)
	}

	entries := logs.FilterMessage("non-deterministic output detected").All()
	require.Len(t, entries, 2)
	assert.Equal(t, "value 1 -> 2", entries[0].ContextMap()["description"])
	assert.Equal(t, "value 2 -> 3", entries[1].ContextMap()["description"])
}

func TestEnforceDeterministic_KeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	fn, _ := counter()
	guarded := pure.EnforceDeterministic[int](fn)

	_, err := pure.Call(ctx, guarded, pure.Positional("a"))
	require.NoError(t, err)
	_, err = pure.Call(ctx, guarded, pure.Positional("b"))
	require.NoError(t, err)
	_, err = pure.Call(ctx, guarded, pure.Args{}.With("k", "a"))
	require.NoError(t, err)
}

func TestEnforceDeterministic_UnencodableArguments(t *testing.T) {
	ctx := context.Background()
	fn, calls := counter()
	_, err := pure.Call(ctx, pure.EnforceDeterministic[int](fn), pure.Positional(func() {}))

	require.ErrorIs(t, err, pure.ErrUnencodableArguments)
	require.ErrorIs(t, err, valuegraph.ErrUnencodable)
	assert.Zero(t, calls.Load())
}

func TestEnforceDeterministic_ErrorsAreNotCached(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("boom")
	var calls atomic.Int64
	guarded := pure.EnforceDeterministic[int](pure.SyncFunc[int](func(ctx context.Context, args pure.Args) (int, error) {
		if calls.Add(1) == 1 {
			return 0, boom
		}
		return 42, nil
	}))

	_, err := pure.Call(ctx, guarded, pure.Positional(1))
	require.ErrorIs(t, err, boom)
	v, err := pure.Call(ctx, guarded, pure.Positional(1))
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestEnforceDeterministic_CallerMutatingResult(t *testing.T) {
	ctx := context.Background()
	guarded := pure.EnforceDeterministic[[]int](pure.SyncFunc[[]int](func(ctx context.Context, args pure.Args) ([]int, error) {
		return []int{1, 2}, nil
	}))

	v, err := pure.Call(ctx, guarded, pure.Positional(0))
	require.NoError(t, err)
	v[0] = 100

	_, err = pure.Call(ctx, guarded, pure.Positional(0))
	assert.NoError(t, err)
}

func TestEnforceDeterministic_SerializesEqualKeys(t *testing.T) {
	ctx := context.Background()
	var inFlight, maxInFlight atomic.Int64
	guarded := pure.EnforceDeterministic[int](pure.SyncFunc[int](func(ctx context.Context, args pure.Args) (int, error) {
		cur := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			seen := maxInFlight.Load()
			if cur <= seen || maxInFlight.CompareAndSwap(seen, cur) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		return 1, nil
	}))

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < 8; i++ {
		g.Go(func() error {
			_, err := pure.Call(gctx, guarded, pure.Positional("k"))
			return err
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, int64(1), maxInFlight.Load())
}

func TestEnforceDeterministic_DifferentKeysDoNotWait(t *testing.T) {
	ctx := context.Background()
	unblock := make(chan struct{})
	entered := make(chan struct{}, 1)
	guarded := pure.EnforceDeterministic[string](pure.SyncFunc[string](func(ctx context.Context, args pure.Args) (string, error) {
		key, _ := pure.Arg[string](args, 0)
		if key == "slow" {
			entered <- struct{}{}
			<-unblock
		}
		return key, nil
	}))

	done := make(chan error, 1)
	go func() {
		_, err := pure.Call(ctx, guarded, pure.Positional("slow"))
		done <- err
	}()
	<-entered

	v, err := pure.Call(ctx, guarded, pure.Positional("fast"))
	require.NoError(t, err)
	assert.Equal(t, "fast", v)

	// an equal key has to wait for the slow call and gives up with its context
	waitCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	_, err = pure.Call(waitCtx, guarded, pure.Positional("slow"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(unblock)
	require.NoError(t, <-done)
}

func TestEnforceDeterministic_Backends(t *testing.T) {
	ctx := context.Background()
	memDB, err := store.NewMemDBStore()
	require.NoError(t, err)
	rist, err := store.NewRistretto(100)
	require.NoError(t, err)

	for name, s := range map[string]store.Store{
		"memdb":     memDB,
		"ristretto": rist,
		"rotating":  store.NewRotatingStore(4),
	} {
		t.Run(name, func(t *testing.T) {
			fn, _ := counter()
			guarded := pure.EnforceDeterministic[int](fn, pure.WithStore(s))
			_, err := pure.Call(ctx, guarded, pure.Positional(name))
			require.NoError(t, err)
			_, err = pure.Call(ctx, guarded, pure.Positional(name))
			assert.ErrorIs(t, err, pure.ErrNonDeterministicOutput)
		})
	}
}

func TestEnforceDeterministic_Async(t *testing.T) {
	ctx := context.Background()
	var n atomic.Int64
	async := pure.AsyncFunc[int](func(ctx context.Context, args pure.Args) <-chan pure.Result[int] {
		return pure.Go(ctx, func(ctx context.Context) (int, error) {
			return int(n.Add(1)), nil
		})
	})
	guarded := pure.EnforceDeterministic[int](async)
	require.True(t, pure.IsAsync(guarded))

	_, err := pure.Call(ctx, guarded, pure.Positional(1))
	require.NoError(t, err)
	_, err = pure.Call(ctx, guarded, pure.Positional(1))
	assert.ErrorIs(t, err, pure.ErrNonDeterministicOutput)
}

func TestEnforceDeterministic_PointerKeyedResult(t *testing.T) {
	a, b := &struct{ ID int }{1}, &struct{ ID int }{2}
	index := pure.EnforceDeterministicI1O1(func(n int) map[*struct{ ID int }]int {
		return map[*struct{ ID int }]int{a: n, b: n * 2}
	})
	for i := 0; i < 3; i++ {
		v, err := index(4)
		require.NoError(t, err)
		assert.Equal(t, 8, v[b])
	}
}
