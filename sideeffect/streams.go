package sideeffect

import (
	"context"
	"io"
	"net"
	"net/http"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// trapWriter checks capability on every Write before passing it on.
type trapWriter struct {
	capability string
	trap       *Trap
	w          io.Writer
}

func (tw trapWriter) Write(p []byte) (int, error) {
	if err := tw.trap.Check(tw.capability); err != nil {
		return 0, err
	}
	return tw.w.Write(p)
}

type readerFunc func([]byte) (int, error)

func (f readerFunc) Read(p []byte) (int, error) { return f(p) }

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// pipeStub replaces a process stream with the write end of a pipe. Everything written
// to it is drained through a trapWriter onto the original file until the trap closes.
// Writers to an *os.File cannot be handed an error the way a trapWriter can, so in
// strict mode the data is dropped and the blocked attempt stays in the journal.
// The trap sees one attempt per drained chunk, so writes that queue up in the pipe
// are reported together.
func pipeStub(capability string) func(original *os.File, t *Trap) *os.File {
	return func(original *os.File, t *Trap) *os.File {
		r, w, err := os.Pipe()
		if err != nil {
			panic(err)
		}
		done := make(chan struct{})
		go func() {
			defer close(done)
			defer r.Close()
			drain(r, trapWriter{capability: capability, trap: t, w: original})
		}()
		t.Defer(func() {
			_ = w.Close()
			<-done
		})
		return w
	}
}

func drain(r io.Reader, w io.Writer) {
	buf := make([]byte, 32*1024)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			_, _ = w.Write(buf[:n])
		}
		if err != nil {
			return
		}
	}
}

// trapCore sees every entry regardless of level, checks the logging capability, then
// hands the entry to the core it wraps.
type trapCore struct {
	zapcore.Core
	trap *Trap
}

func (c trapCore) Enabled(zapcore.Level) bool { return true }

func (c trapCore) With(fields []zapcore.Field) zapcore.Core {
	return trapCore{Core: c.Core.With(fields), trap: c.trap}
}

func (c trapCore) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	return ce.AddCore(e, c)
}

func (c trapCore) Write(e zapcore.Entry, fields []zapcore.Field) error {
	if err := c.trap.Check("logging"); err != nil {
		return err
	}
	if !c.Core.Enabled(e.Level) {
		return nil
	}
	return c.Core.Write(e, fields)
}

func trapLogger(original *zap.Logger, t *Trap) *zap.Logger {
	core := zapcore.NewNopCore()
	if original != nil {
		core = original.Core()
	}
	return zap.New(trapCore{Core: core, trap: t}, zap.ErrorOutput(zapcore.AddSync(io.Discard)))
}

func trapResolver(t *Trap) *net.Resolver {
	return &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, address string) (net.Conn, error) {
			if err := t.Check("socket"); err != nil {
				return nil, err
			}
			var d net.Dialer
			return d.DialContext(ctx, network, address)
		},
	}
}
