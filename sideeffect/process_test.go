package sideeffect_test

import (
	"context"
	cryptorand "crypto/rand"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/on-the-ground/purity/sideeffect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// These tests patch real process globals and must not run in parallel.

func processRegistry() *sideeffect.Registry {
	return sideeffect.NewRegistry(nil, sideeffect.ProcessEntries()...)
}

func TestProcessEntries_RestoreIdentity(t *testing.T) {
	reg := processRegistry()
	stdout, stderr := os.Stdout, os.Stderr
	logWriter, zapL := log.Writer(), zap.L()
	reader, resolver, transport := cryptorand.Reader, net.DefaultResolver, http.DefaultTransport

	trap := sideeffect.NewTrap(true, nil, nil, nil)
	patches := reg.Apply(trap)
	assert.Len(t, patches, len(reg.Catalog()))
	assert.NotSame(t, stdout, os.Stdout)
	assert.NotSame(t, resolver, net.DefaultResolver)

	require.NoError(t, reg.Restore(patches))
	trap.Close()

	assert.Same(t, stdout, os.Stdout)
	assert.Same(t, stderr, os.Stderr)
	assert.Equal(t, logWriter, log.Writer())
	assert.Same(t, zapL, zap.L())
	assert.Equal(t, reader, cryptorand.Reader)
	assert.Same(t, resolver, net.DefaultResolver)
	assert.Equal(t, transport, http.DefaultTransport)
}

func TestProcessEntries_StdoutStrict(t *testing.T) {
	err := sideeffect.Run(context.Background(), func(ctx context.Context) error {
		fmt.Println("trapped")
		return nil
	}, sideeffect.WithRegistry(processRegistry()))
	require.EqualError(t, err, "side effect blocked: print")

	_, err = fmt.Fprint(os.Stdout, "")
	assert.NoError(t, err)
}

func TestProcessEntries_StdoutPermissive(t *testing.T) {
	journal := sideeffect.NewJournal()
	err := sideeffect.Run(context.Background(), func(ctx context.Context) error {
		_, err := fmt.Fprintln(os.Stdout, "passed through")
		return err
	},
		sideeffect.WithRegistry(processRegistry()),
		sideeffect.WithStrict(false),
		sideeffect.WithLogger(zap.NewNop()),
		sideeffect.WithJournal(journal),
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"print"}, journal.Capabilities())
}

func TestProcessEntries_Logging(t *testing.T) {
	for name, emit := range map[string]func(){
		"log": func() { log.Print("trapped") },
		"zap": func() { zap.L().Debug("trapped") },
	} {
		t.Run(name, func(t *testing.T) {
			err := sideeffect.Run(context.Background(), func(ctx context.Context) error {
				emit()
				return nil
			}, sideeffect.WithRegistry(processRegistry()))
			require.EqualError(t, err, "side effect blocked: logging")
		})
	}
}

func TestProcessEntries_HTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	err := sideeffect.Run(context.Background(), func(ctx context.Context) error {
		resp, err := http.Get(srv.URL)
		if err != nil {
			return err
		}
		return resp.Body.Close()
	}, sideeffect.WithRegistry(processRegistry()))
	require.ErrorIs(t, err, sideeffect.ErrSideEffectBlocked)

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestProcessEntries_Randomness(t *testing.T) {
	err := sideeffect.Run(context.Background(), func(ctx context.Context) error {
		_, err := uuid.NewRandom()
		return err
	}, sideeffect.WithRegistry(processRegistry()))
	require.EqualError(t, err, "side effect blocked: uuid")

	err = sideeffect.Run(context.Background(), func(ctx context.Context) error {
		_, err := cryptorand.Read(make([]byte, 4))
		return err
	}, sideeffect.WithRegistry(processRegistry()))
	require.EqualError(t, err, "side effect blocked: crypto.rand")

	_, err = uuid.NewRandom()
	assert.NoError(t, err)
}

func TestDefaultRegistry_PackageHelpers(t *testing.T) {
	err := sideeffect.Run(context.Background(), func(ctx context.Context) error {
		_ = sideeffect.Getenv("HOME")
		return nil
	})
	require.EqualError(t, err, "side effect blocked: env.get")

	journal := sideeffect.NewJournal()
	err = sideeffect.Run(context.Background(), func(ctx context.Context) error {
		_ = sideeffect.Now()
		_, err := sideeffect.NewUUID()
		return err
	}, sideeffect.WithStrict(false), sideeffect.WithLogger(zap.NewNop()), sideeffect.WithJournal(journal))
	require.NoError(t, err)
	assert.Equal(t, []string{"time.now", "uuid"}, journal.Capabilities())

	assert.False(t, sideeffect.Now().IsZero())
}

func TestDefaultRegistry_RunCommand(t *testing.T) {
	err := sideeffect.Run(context.Background(), func(ctx context.Context) error {
		_, err := sideeffect.RunCommand(ctx, "true")
		require.ErrorIs(t, err, sideeffect.ErrSideEffectBlocked)
		return nil
	})
	require.EqualError(t, err, "side effect blocked: subprocess")
}

func TestNewWorld_WhileTransportPatched(t *testing.T) {
	var w *sideeffect.World
	err := sideeffect.Run(context.Background(), func(ctx context.Context) error {
		assert.NotPanics(t, func() { w = sideeffect.NewWorld() })
		return nil
	}, sideeffect.WithRegistry(processRegistry()))
	require.NoError(t, err)
	require.NotNil(t, w)
}
