package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/on-the-ground/purity/config"
	"github.com/on-the-ground/purity/pure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const document = `
strict: false
log_level: warn
mutation:
  strict: true
immutable:
  verify: true
determinism:
  store: rotating
  capacity: 128
sandbox:
  enabled: false
  allow: [time.now, print]
globals:
  allow: [fmt]
  builtins: false
`

func writePolicy(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "purity.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	p, err := config.Load(writePolicy(t, document))
	require.NoError(t, err)

	assert.Equal(t, "warn", p.LogLevel)
	require.NotNil(t, p.Strict)
	assert.False(t, *p.Strict)
	assert.True(t, p.Immutable.Verify)
	assert.Equal(t, config.StoreRotating, p.Determinism.Store)
	assert.Equal(t, 128, p.Determinism.Capacity)
	assert.Equal(t, []string{"time.now", "print"}, p.Sandbox.Allow)
	assert.Len(t, p.GlobalNameOptions(), 2)
	assert.Len(t, p.SandboxOptions(zap.NewNop()), 4)

	assert.False(t, p.Logger().Core().Enabled(zap.InfoLevel))
	assert.True(t, p.Logger().Core().Enabled(zap.WarnLevel))
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    error
	}{
		{"malformed", "strict: [", config.ErrPolicyParseFailed},
		{"unknown store", "determinism:\n  store: redis\n", config.ErrUnknownStore},
		{"missing capacity", "determinism:\n  store: ristretto\n", config.ErrInvalidCapacity},
		{"bad level", "log_level: loud\n", config.ErrInvalidLogLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Load(writePolicy(t, tt.content))
			require.Error(t, err)
			assert.ErrorContains(t, err, tt.want.Error())
		})
	}

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.ErrorContains(t, err, config.ErrPolicyReadFailed.Error())
}

func TestPolicy_SectionsInheritTopLevel(t *testing.T) {
	ctx := context.Background()
	p, err := config.Parse([]byte(document))
	require.NoError(t, err)

	mutate := pure.SyncFunc[int](func(ctx context.Context, args pure.Args) (int, error) {
		xs, err := pure.Arg[[]int](args, 0)
		if err != nil {
			return 0, err
		}
		xs[0] = 99
		return len(xs), nil
	})

	// mutation overrides the permissive top level.
	_, err = pure.Call(ctx, pure.DetectMutation[int](mutate, p.MutationOptions(zap.NewNop())...), pure.Positional([]int{1, 2}))
	require.ErrorIs(t, err, pure.ErrMutationDetected)

	// determinism inherits it.
	core, logs := observer.New(zap.WarnLevel)
	opts, err := p.DeterminismOptions(zap.New(core))
	require.NoError(t, err)
	n := 0
	counter := pure.EnforceDeterministic[int](pure.SyncFunc[int](func(ctx context.Context, args pure.Args) (int, error) {
		n++
		return n, nil
	}), opts...)
	for range 2 {
		_, err := pure.Call(ctx, counter, pure.Positional("k"))
		require.NoError(t, err)
	}
	assert.Equal(t, 1, logs.FilterMessage("non-deterministic output detected").Len())
}

func TestPolicy_Stores(t *testing.T) {
	for _, name := range []string{"", config.StoreMemory, config.StoreMemDB} {
		p, err := config.Parse([]byte("determinism:\n  store: " + name + "\n"))
		require.NoError(t, err, name)
		opts, err := p.DeterminismOptions(zap.NewNop())
		require.NoError(t, err, name)
		assert.Len(t, opts, 4)
	}
	p, err := config.Parse([]byte("determinism:\n  store: ristretto\n  capacity: 64\n"))
	require.NoError(t, err)
	_, err = p.DeterminismOptions(zap.NewNop())
	require.NoError(t, err)
}
