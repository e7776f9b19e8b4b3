package sideeffect

import (
	"context"
	cryptorand "crypto/rand"
	"database/sql"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/on-the-ground/purity/diag"
	"go.uber.org/zap"
)

// knownDrivers are the database/sql driver names the db.connect entry guards.
var knownDrivers = []string{"sqlite", "sqlite3", "postgres", "pgx", "mysql"}

func driverRegistered() bool {
	return slices.ContainsFunc(sql.Drivers(), func(name string) bool {
		return slices.Contains(knownDrivers, name)
	})
}

// WorldEntries lists an entry for every slot of w.
func WorldEntries(w *World) []Entry {
	return []Entry{
		SlotEntry("print", "Stdout", w.Stdout, func(orig io.Writer, t *Trap) io.Writer {
			return trapWriter{capability: "print", trap: t, w: orig}
		}),
		SlotEntry("stderr", "Stderr", w.Stderr, func(orig io.Writer, t *Trap) io.Writer {
			return trapWriter{capability: "stderr", trap: t, w: orig}
		}),

		SlotEntry("env.get", "Getenv", w.Getenv, func(orig func(string) string, t *Trap) func(string) string {
			return func(key string) string {
				t.Enter("env.get")
				return orig(key)
			}
		}),
		SlotEntry("env.get", "LookupEnv", w.LookupEnv, func(orig func(string) (string, bool), t *Trap) func(string) (string, bool) {
			return func(key string) (string, bool) {
				t.Enter("env.get")
				return orig(key)
			}
		}),
		SlotEntry("env.get", "Environ", w.Environ, func(orig func() []string, t *Trap) func() []string {
			return func() []string {
				t.Enter("env.get")
				return orig()
			}
		}),
		SlotEntry("env.set", "Setenv", w.Setenv, func(orig func(string, string) error, t *Trap) func(string, string) error {
			return func(key, value string) error {
				if err := t.Check("env.set"); err != nil {
					return err
				}
				return orig(key, value)
			}
		}),
		SlotEntry("env.set", "Unsetenv", w.Unsetenv, func(orig func(string) error, t *Trap) func(string) error {
			return func(key string) error {
				if err := t.Check("env.set"); err != nil {
					return err
				}
				return orig(key)
			}
		}),

		SlotEntry("time.now", "Now", w.Now, func(orig func() time.Time, t *Trap) func() time.Time {
			return func() time.Time {
				t.Enter("time.now")
				return orig()
			}
		}),
		SlotEntry("time.since", "Since", w.Since, func(orig func(time.Time) time.Duration, t *Trap) func(time.Time) time.Duration {
			return func(from time.Time) time.Duration {
				t.Enter("time.since")
				return orig(from)
			}
		}),
		SlotEntry("time.sleep", "Sleep", w.Sleep, func(orig func(context.Context, time.Duration) error, t *Trap) func(context.Context, time.Duration) error {
			return func(ctx context.Context, d time.Duration) error {
				if err := t.Check("time.sleep"); err != nil {
					return err
				}
				return orig(ctx, d)
			}
		}),

		SlotEntry("random", "Float64", w.Float64, func(orig func() float64, t *Trap) func() float64 {
			return func() float64 {
				t.Enter("random")
				return orig()
			}
		}),
		SlotEntry("random", "IntN", w.IntN, func(orig func(int) int, t *Trap) func(int) int {
			return func(n int) int {
				t.Enter("random")
				return orig(n)
			}
		}),
		SlotEntry("random", "Shuffle", w.Shuffle, func(orig func(int, func(int, int)), t *Trap) func(int, func(int, int)) {
			return func(n int, swap func(i, j int)) {
				t.Enter("random")
				orig(n, swap)
			}
		}),
		SlotEntry("crypto.rand", "ReadRandom", w.ReadRandom, func(orig func([]byte) (int, error), t *Trap) func([]byte) (int, error) {
			return func(b []byte) (int, error) {
				if err := t.Check("crypto.rand"); err != nil {
					return 0, err
				}
				return orig(b)
			}
		}),
		SlotEntry("uuid", "NewUUID", w.NewUUID, func(orig func() (uuid.UUID, error), t *Trap) func() (uuid.UUID, error) {
			return func() (uuid.UUID, error) {
				if err := t.Check("uuid"); err != nil {
					return uuid.Nil, err
				}
				return orig()
			}
		}),

		SlotEntry("subprocess", "Run", w.Run, func(orig func(context.Context, string, ...string) ([]byte, error), t *Trap) func(context.Context, string, ...string) ([]byte, error) {
			return func(ctx context.Context, name string, args ...string) ([]byte, error) {
				if err := t.Check("subprocess"); err != nil {
					return nil, err
				}
				return orig(ctx, name, args...)
			}
		}),
		SlotEntry("socket", "Dial", w.Dial, func(orig func(context.Context, string, string) (net.Conn, error), t *Trap) func(context.Context, string, string) (net.Conn, error) {
			return func(ctx context.Context, network, address string) (net.Conn, error) {
				if err := t.Check("socket"); err != nil {
					return nil, err
				}
				return orig(ctx, network, address)
			}
		}),
		SlotEntry("socket", "Listen", w.Listen, func(orig func(context.Context, string, string) (net.Listener, error), t *Trap) func(context.Context, string, string) (net.Listener, error) {
			return func(ctx context.Context, network, address string) (net.Listener, error) {
				if err := t.Check("socket"); err != nil {
					return nil, err
				}
				return orig(ctx, network, address)
			}
		}),
		SlotEntry("thread", "Go", w.Go, func(orig func(func()), t *Trap) func(func()) {
			return func(f func()) {
				t.Enter("thread")
				orig(f)
			}
		}),
		SlotEntry("exit", "Exit", w.Exit, func(orig func(int), t *Trap) func(int) {
			return func(code int) {
				t.Enter("exit")
				orig(code)
			}
		}),
		SlotEntry("atexit", "AtExit", w.AtExit, func(orig func(func()), t *Trap) func(func()) {
			return func(f func()) {
				t.Enter("atexit")
				orig(f)
			}
		}),

		SlotEntry("open", "OpenFile", w.OpenFile, func(orig func(string, int, os.FileMode) (*os.File, error), t *Trap) func(string, int, os.FileMode) (*os.File, error) {
			return func(name string, flag int, perm os.FileMode) (*os.File, error) {
				if err := t.Check("open"); err != nil {
					return nil, err
				}
				return orig(name, flag, perm)
			}
		}),
		SlotEntry("warnings", "Warn", w.Warn, func(orig func(string), t *Trap) func(string) {
			return func(msg string) {
				t.Enter("warnings")
				orig(msg)
			}
		}),
		withAvailability(SlotEntry("db.connect", "OpenDB", w.OpenDB, func(orig func(string, string) (*sql.DB, error), t *Trap) func(string, string) (*sql.DB, error) {
			return func(driver, dsn string) (*sql.DB, error) {
				if err := t.Check("db.connect"); err != nil {
					return nil, err
				}
				return orig(driver, dsn)
			}
		}), driverRegistered),
		SlotEntry("http", "DoHTTP", w.DoHTTP, func(orig func(*http.Request) (*http.Response, error), t *Trap) func(*http.Request) (*http.Response, error) {
			return func(req *http.Request) (*http.Response, error) {
				if err := t.Check("http"); err != nil {
					return nil, err
				}
				return orig(req)
			}
		}),
		SlotEntry("logging", "Logger", w.Logger, trapLogger),
	}
}

func withAvailability(e Entry, available func() bool) Entry {
	e.Available = available
	return e
}

// uuidReader mirrors the reader last handed to uuid.SetRand, which has no getter.
var uuidReader io.Reader = cryptorand.Reader

// ProcessEntries lists entries for the process-wide globals of the standard library
// and of the logging and identifier packages this module depends on. Only one
// registry in a process should apply them.
func ProcessEntries() []Entry {
	return []Entry{
		VarEntry("print", "os", "Stdout", &os.Stdout, pipeStub("print")),
		VarEntry("stderr", "os", "Stderr", &os.Stderr, pipeStub("stderr")),
		NewEntry("logging", "log", "Writer", log.Writer, log.SetOutput, func(orig io.Writer, t *Trap) io.Writer {
			return trapWriter{capability: "logging", trap: t, w: orig}
		}),
		NewEntry("logging", "zap", "L", zap.L, func(l *zap.Logger) { zap.ReplaceGlobals(l) }, trapLogger),
		NewEntry("uuid", "uuid", "SetRand",
			func() io.Reader { return uuidReader },
			func(r io.Reader) {
				uuidReader = r
				uuid.SetRand(r)
			},
			func(orig io.Reader, t *Trap) io.Reader {
				return readerFunc(func(p []byte) (int, error) {
					if err := t.Check("uuid"); err != nil {
						return 0, err
					}
					return orig.Read(p)
				})
			},
		),
		// crypto/rand.Read treats a reader error as fatal, so the stub panics instead.
		// The panic hits whichever goroutine reads, including ones outside the sandbox.
		VarEntry("crypto.rand", "crypto/rand", "Reader", &cryptorand.Reader, func(orig io.Reader, t *Trap) io.Reader {
			return readerFunc(func(p []byte) (int, error) {
				t.Enter("crypto.rand")
				return orig.Read(p)
			})
		}),
		VarEntry("socket", "net", "DefaultResolver", &net.DefaultResolver, func(_ *net.Resolver, t *Trap) *net.Resolver {
			return trapResolver(t)
		}),
		VarEntry("http", "net/http", "DefaultTransport", &http.DefaultTransport, func(orig http.RoundTripper, t *Trap) http.RoundTripper {
			return roundTripperFunc(func(req *http.Request) (*http.Response, error) {
				if err := t.Check("http"); err != nil {
					return nil, err
				}
				return orig.RoundTrip(req)
			})
		}),
	}
}

// DefaultRegistry patches DefaultWorld and the process globals. Sandboxes built
// without WithRegistry share it, and with it a single lock.
var DefaultRegistry = sync.OnceValue(func() *Registry {
	return NewRegistry(diag.Default(), append(WorldEntries(DefaultWorld()), ProcessEntries()...)...)
})
