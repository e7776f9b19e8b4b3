package sideeffect

import (
	"context"
	cryptorand "crypto/rand"
	"database/sql"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"os"
	"os/exec"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/on-the-ground/purity/diag"
	"go.uber.org/zap"
)

var (
	stdout  = os.Stdout
	stderr  = os.Stderr
	entropy = cryptorand.Reader

	transport = http.DefaultTransport.(*http.Transport)
)

// World is the set of capabilities that cooperating code reaches through this package
// rather than through the standard library directly. Go functions such as os.Getenv or
// time.Now cannot be replaced at run time, so the sandbox patches these slots instead.
type World struct {
	Stdout *Slot[io.Writer]
	Stderr *Slot[io.Writer]

	Getenv    *Slot[func(string) string]
	LookupEnv *Slot[func(string) (string, bool)]
	Environ   *Slot[func() []string]
	Setenv    *Slot[func(key, value string) error]
	Unsetenv  *Slot[func(string) error]

	Now   *Slot[func() time.Time]
	Since *Slot[func(time.Time) time.Duration]
	Sleep *Slot[func(context.Context, time.Duration) error]

	Float64    *Slot[func() float64]
	IntN       *Slot[func(int) int]
	Shuffle    *Slot[func(n int, swap func(i, j int))]
	ReadRandom *Slot[func([]byte) (int, error)]
	NewUUID    *Slot[func() (uuid.UUID, error)]

	Run    *Slot[func(ctx context.Context, name string, args ...string) ([]byte, error)]
	Dial   *Slot[func(ctx context.Context, network, address string) (net.Conn, error)]
	Listen *Slot[func(ctx context.Context, network, address string) (net.Listener, error)]
	Go     *Slot[func(func())]
	Exit   *Slot[func(int)]
	AtExit *Slot[func(func())]

	OpenFile *Slot[func(name string, flag int, perm os.FileMode) (*os.File, error)]
	Warn     *Slot[func(string)]
	OpenDB   *Slot[func(driver, dsn string) (*sql.DB, error)]
	DoHTTP   *Slot[func(*http.Request) (*http.Response, error)]
	Logger   *Slot[*zap.Logger]

	mu    sync.Mutex
	hooks []func()
}

// NewWorld returns a World wired to the real process. Its defaults hold references
// captured when this package was initialized, so they keep working while process
// globals such as os.Stdout are patched.
func NewWorld() *World {
	w := &World{}
	dialer := &net.Dialer{Resolver: &net.Resolver{}}
	client := &http.Client{Transport: transport.Clone()}

	w.Stdout = NewSlot[io.Writer](stdout)
	w.Stderr = NewSlot[io.Writer](stderr)

	w.Getenv = NewSlot(os.Getenv)
	w.LookupEnv = NewSlot(os.LookupEnv)
	w.Environ = NewSlot(os.Environ)
	w.Setenv = NewSlot(os.Setenv)
	w.Unsetenv = NewSlot(os.Unsetenv)

	w.Now = NewSlot(time.Now)
	w.Since = NewSlot(time.Since)
	w.Sleep = NewSlot(func(ctx context.Context, d time.Duration) error {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		}
	})

	w.Float64 = NewSlot(rand.Float64)
	w.IntN = NewSlot(rand.IntN)
	w.Shuffle = NewSlot(rand.Shuffle)
	w.ReadRandom = NewSlot(func(b []byte) (int, error) { return io.ReadFull(entropy, b) })
	w.NewUUID = NewSlot(func() (uuid.UUID, error) { return uuid.NewRandomFromReader(entropy) })

	w.Run = NewSlot(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return exec.CommandContext(ctx, name, args...).CombinedOutput()
	})
	w.Dial = NewSlot(dialer.DialContext)
	w.Listen = NewSlot(func(ctx context.Context, network, address string) (net.Listener, error) {
		var lc net.ListenConfig
		return lc.Listen(ctx, network, address)
	})
	w.Go = NewSlot(func(f func()) { go f() })
	w.Exit = NewSlot(func(code int) {
		w.runHooks()
		os.Exit(code)
	})
	w.AtExit = NewSlot(func(f func()) {
		w.mu.Lock()
		defer w.mu.Unlock()
		w.hooks = append(w.hooks, f)
	})

	w.OpenFile = NewSlot(os.OpenFile)
	w.Warn = NewSlot(func(msg string) { diag.Default().Warn(msg, zap.String("category", "warning")) })
	w.OpenDB = NewSlot(sql.Open)
	w.DoHTTP = NewSlot(client.Do)
	w.Logger = NewSlot(diag.Default())
	return w
}

func (w *World) runHooks() {
	w.mu.Lock()
	hooks := w.hooks
	w.hooks = nil
	w.mu.Unlock()
	for _, f := range slices.Backward(hooks) {
		f()
	}
}

var DefaultWorld = sync.OnceValue(NewWorld)

func Stdout() io.Writer { return DefaultWorld().Stdout.Load() }

func Stderr() io.Writer { return DefaultWorld().Stderr.Load() }

func Getenv(key string) string { return DefaultWorld().Getenv.Load()(key) }

func LookupEnv(key string) (string, bool) { return DefaultWorld().LookupEnv.Load()(key) }

func Environ() []string { return DefaultWorld().Environ.Load()() }

func Setenv(key, value string) error { return DefaultWorld().Setenv.Load()(key, value) }

func Unsetenv(key string) error { return DefaultWorld().Unsetenv.Load()(key) }

func Now() time.Time { return DefaultWorld().Now.Load()() }

func Since(t time.Time) time.Duration { return DefaultWorld().Since.Load()(t) }

func Sleep(ctx context.Context, d time.Duration) error { return DefaultWorld().Sleep.Load()(ctx, d) }

func Float64() float64 { return DefaultWorld().Float64.Load()() }

func IntN(n int) int { return DefaultWorld().IntN.Load()(n) }

func Shuffle(n int, swap func(i, j int)) { DefaultWorld().Shuffle.Load()(n, swap) }

func ReadRandom(b []byte) (int, error) { return DefaultWorld().ReadRandom.Load()(b) }

func NewUUID() (uuid.UUID, error) { return DefaultWorld().NewUUID.Load()() }

func RunCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return DefaultWorld().Run.Load()(ctx, name, args...)
}

func Dial(ctx context.Context, network, address string) (net.Conn, error) {
	return DefaultWorld().Dial.Load()(ctx, network, address)
}

func Listen(ctx context.Context, network, address string) (net.Listener, error) {
	return DefaultWorld().Listen.Load()(ctx, network, address)
}

func Go(f func()) { DefaultWorld().Go.Load()(f) }

func Exit(code int) { DefaultWorld().Exit.Load()(code) }

func AtExit(f func()) { DefaultWorld().AtExit.Load()(f) }

func OpenFile(name string, flag int, perm os.FileMode) (*os.File, error) {
	return DefaultWorld().OpenFile.Load()(name, flag, perm)
}

func Warn(msg string) { DefaultWorld().Warn.Load()(msg) }

func OpenDB(driver, dsn string) (*sql.DB, error) { return DefaultWorld().OpenDB.Load()(driver, dsn) }

func Do(req *http.Request) (*http.Response, error) { return DefaultWorld().DoHTTP.Load()(req) }

func Logger() *zap.Logger { return DefaultWorld().Logger.Load() }
