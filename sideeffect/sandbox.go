package sideeffect

import (
	"context"
	"errors"

	"github.com/on-the-ground/purity/diag"
	"github.com/on-the-ground/purity/metrics"
	"github.com/on-the-ground/purity/pure"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("purity.sideeffect")

type Config struct {
	// Enabled false leaves the callable unwrapped.
	Enabled bool
	// Strict false lets trapped calls through after a warning.
	Strict bool
	// Allow lists capabilities that are not patched at all.
	Allow    []string
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
	Registry *Registry
	Journal  *Journal
	Tracer   trace.Tracer
}

type Option func(*Config)

func WithEnabled(enabled bool) Option { return func(c *Config) { c.Enabled = enabled } }
func WithStrict(strict bool) Option   { return func(c *Config) { c.Strict = strict } }

func WithAllow(capabilities ...string) Option {
	return func(c *Config) { c.Allow = append(c.Allow, capabilities...) }
}

func WithLogger(l *zap.Logger) Option       { return func(c *Config) { c.Logger = l } }
func WithMetrics(m *metrics.Metrics) Option { return func(c *Config) { c.Metrics = m } }
func WithRegistry(r *Registry) Option       { return func(c *Config) { c.Registry = r } }
func WithTracer(t trace.Tracer) Option      { return func(c *Config) { c.Tracer = t } }

// WithJournal collects the attempts of every call into j.
func WithJournal(j *Journal) Option { return func(c *Config) { c.Journal = j } }

func newConfig(opts ...Option) Config {
	c := Config{
		Enabled: true,
		Strict:  true,
	}
	for _, opt := range opts {
		opt(&c)
	}
	if c.Logger == nil {
		c.Logger = diag.Default()
	}
	if c.Registry == nil {
		c.Registry = DefaultRegistry()
	}
	if c.Tracer == nil {
		c.Tracer = tracer
	}
	return c
}

// Forbid wraps fn so that every call runs with the registry's catalog patched.
// Only the outermost of nested calls sharing a context applies and restores
// the catalog; inner calls run under the outer call's patches and policy.
func Forbid[R any](fn pure.Callable[R], opts ...Option) pure.Callable[R] {
	c := newConfig(opts...)
	if !c.Enabled {
		return fn
	}
	return pure.Wrap(fn, func(ctx context.Context, args pure.Args, invoke func(context.Context, pure.Args) (R, error)) (R, error) {
		var res R
		err := c.run(ctx, func(ctx context.Context) error {
			var err error
			res, err = invoke(ctx, args)
			return err
		})
		if errors.Is(err, ErrSideEffectBlocked) {
			var zero R
			return zero, err
		}
		return res, err
	})
}

// Run calls fn inside a sandbox configured by opts.
func Run(ctx context.Context, fn func(context.Context) error, opts ...Option) error {
	c := newConfig(opts...)
	if !c.Enabled {
		return fn(ctx)
	}
	return c.run(ctx, fn)
}

func (c Config) run(ctx context.Context, fn func(context.Context) error) (err error) {
	lock := c.Registry.Lock()
	ctx, depth, err := lock.Acquire(ctx)
	if err != nil {
		return err
	}
	defer lock.Release(ctx)
	if depth > 1 {
		return fn(ctx)
	}

	ctx, span := c.Tracer.Start(ctx, "sideeffect.forbid",
		trace.WithAttributes(
			attribute.Bool("sideeffect.strict", c.Strict),
			attribute.StringSlice("sideeffect.allow", c.Allow),
		),
	)
	defer span.End()

	trap := NewTrap(c.Strict, c.Logger, c.Metrics, c.Journal, c.Allow...)
	patches := c.Registry.Apply(trap)
	span.SetAttributes(attribute.Int("sideeffect.patches", len(patches)))

	defer func() {
		restoreErr := c.Registry.Restore(patches)
		trap.Close()
		if restoreErr != nil {
			c.Metrics.RestoreFailed(len(multierr.Errors(restoreErr)))
			c.Logger.Error("failed to restore patched targets", zap.Error(restoreErr))
		}
		if blocked := trap.Blocked(); blocked != nil && err == nil {
			err = blocked
		}
		err = multierr.Append(err, restoreErr)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()
	defer func() {
		if r := recover(); r != nil {
			blocked, ok := r.(*BlockedError)
			if !ok {
				panic(r)
			}
			err = blocked
		}
	}()
	return fn(ctx)
}
