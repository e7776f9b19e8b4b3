package pure

import (
	"github.com/on-the-ground/purity/diag"
	"github.com/on-the-ground/purity/metrics"
	"github.com/on-the-ground/purity/pure/store"
	"go.uber.org/zap"
)

// Config is shared by every guard in this package. Fields a guard does not use are ignored.
type Config struct {
	// Enabled false makes the guard call straight through.
	Enabled bool
	// Strict false turns violations into warnings.
	Strict  bool
	Verify  bool
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	Store   store.Store
}

type Option func(*Config)

func WithEnabled(enabled bool) Option { return func(c *Config) { c.Enabled = enabled } }
func WithStrict(strict bool) Option   { return func(c *Config) { c.Strict = strict } }

// WithVerify makes EnforceImmutable also report when the callee mutated its copies.
func WithVerify(verify bool) Option { return func(c *Config) { c.Verify = verify } }

func WithLogger(l *zap.Logger) Option { return func(c *Config) { c.Logger = l } }

func WithMetrics(m *metrics.Metrics) Option { return func(c *Config) { c.Metrics = m } }

// WithStore picks the backend a determinism cache keeps its results in.
func WithStore(s store.Store) Option { return func(c *Config) { c.Store = s } }

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
	if c.Store == nil {
		c.Store = store.NewInMemoryStore()
	}
	return c
}
