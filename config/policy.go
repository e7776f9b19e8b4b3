// Package config loads guard policies from YAML.
package config

import (
	"os"

	"github.com/on-the-ground/purity/diag"
	"github.com/on-the-ground/purity/globalname"
	"github.com/on-the-ground/purity/pure"
	"github.com/on-the-ground/purity/pure/store"
	"github.com/on-the-ground/purity/sideeffect"
	"go.trai.ch/zerr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

var (
	ErrPolicyReadFailed  = zerr.New("failed to read policy")
	ErrPolicyParseFailed = zerr.New("failed to parse policy")
	ErrUnknownStore      = zerr.New("unknown cache store")
	ErrInvalidCapacity   = zerr.New("cache capacity must be positive")
	ErrInvalidLogLevel   = zerr.New("invalid log level")
	ErrStoreInitFailed   = zerr.New("failed to initialise cache store")
)

// Switches is embedded by every guard section. Unset switches inherit the top level.
type Switches struct {
	Enabled *bool `yaml:"enabled"`
	Strict  *bool `yaml:"strict"`
}

type ImmutablePolicy struct {
	Switches `yaml:",inline"`
	Verify   bool `yaml:"verify"`
}

type DeterminismPolicy struct {
	Switches `yaml:",inline"`
	// Store is one of memory, rotating, memdb or ristretto.
	Store    string `yaml:"store"`
	Capacity int    `yaml:"capacity"`
}

type SandboxPolicy struct {
	Switches `yaml:",inline"`
	Allow    []string `yaml:"allow"`
}

type GlobalsPolicy struct {
	Allow    []string `yaml:"allow"`
	Builtins *bool    `yaml:"builtins"`
}

type Policy struct {
	Switches    `yaml:",inline"`
	LogLevel    string            `yaml:"log_level"`
	Mutation    Switches          `yaml:"mutation"`
	Immutable   ImmutablePolicy   `yaml:"immutable"`
	Determinism DeterminismPolicy `yaml:"determinism"`
	Sandbox     SandboxPolicy     `yaml:"sandbox"`
	Globals     GlobalsPolicy     `yaml:"globals"`
}

const (
	StoreMemory    = "memory"
	StoreRotating  = "rotating"
	StoreMemDB     = "memdb"
	StoreRistretto = "ristretto"
)

// Load reads and validates the policy at path.
func Load(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, ErrPolicyReadFailed.Error()), "path", path)
	}
	return Parse(data)
}

// Parse decodes and validates a policy document.
func Parse(data []byte) (*Policy, error) {
	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, zerr.Wrap(err, ErrPolicyParseFailed.Error())
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Policy) validate() error {
	switch p.Determinism.Store {
	case "", StoreMemory, StoreMemDB:
	case StoreRotating, StoreRistretto:
		if p.Determinism.Capacity <= 0 {
			return zerr.With(ErrInvalidCapacity, "capacity", p.Determinism.Capacity)
		}
	default:
		return zerr.With(ErrUnknownStore, "store", p.Determinism.Store)
	}
	if _, err := p.level(); err != nil {
		return err
	}
	return nil
}

func (p *Policy) level() (zapcore.Level, error) {
	if p.LogLevel == "" {
		return zapcore.DebugLevel, nil
	}
	level, err := zapcore.ParseLevel(p.LogLevel)
	if err != nil {
		return level, zerr.With(ErrInvalidLogLevel, "log_level", p.LogLevel)
	}
	return level, nil
}

// Logger builds the diagnostic logger at the policy's level.
func (p *Policy) Logger() *zap.Logger {
	level, err := p.level()
	if err != nil {
		return diag.Default()
	}
	return diag.AtLevel(level)
}

func resolve(section, top *bool) bool {
	switch {
	case section != nil:
		return *section
	case top != nil:
		return *top
	default:
		return true
	}
}

func (p *Policy) enabled(s Switches) bool { return resolve(s.Enabled, p.Enabled) }
func (p *Policy) strict(s Switches) bool  { return resolve(s.Strict, p.Strict) }

func (p *Policy) pureOptions(s Switches, logger *zap.Logger) []pure.Option {
	return []pure.Option{
		pure.WithEnabled(p.enabled(s)),
		pure.WithStrict(p.strict(s)),
		pure.WithLogger(logger),
	}
}

func (p *Policy) MutationOptions(logger *zap.Logger) []pure.Option {
	return p.pureOptions(p.Mutation, logger)
}

func (p *Policy) ImmutableOptions(logger *zap.Logger) []pure.Option {
	return append(p.pureOptions(p.Immutable.Switches, logger), pure.WithVerify(p.Immutable.Verify))
}

// DeterminismOptions builds a fresh cache store each call, so every guard it
// configures gets its own cache.
func (p *Policy) DeterminismOptions(logger *zap.Logger) ([]pure.Option, error) {
	s, err := p.newStore()
	if err != nil {
		return nil, err
	}
	return append(p.pureOptions(p.Determinism.Switches, logger), pure.WithStore(s)), nil
}

func (p *Policy) newStore() (store.Store, error) {
	var (
		s   store.Store
		err error
	)
	switch p.Determinism.Store {
	case "", StoreMemory:
		s = store.NewInMemoryStore()
	case StoreRotating:
		s = store.NewRotatingStore(uint32(p.Determinism.Capacity))
	case StoreMemDB:
		s, err = store.NewMemDBStore()
	case StoreRistretto:
		s, err = store.NewRistretto(int64(p.Determinism.Capacity))
	default:
		return nil, zerr.With(ErrUnknownStore, "store", p.Determinism.Store)
	}
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, ErrStoreInitFailed.Error()), "store", p.Determinism.Store)
	}
	return s, nil
}

func (p *Policy) SandboxOptions(logger *zap.Logger) []sideeffect.Option {
	return []sideeffect.Option{
		sideeffect.WithEnabled(p.enabled(p.Sandbox.Switches)),
		sideeffect.WithStrict(p.strict(p.Sandbox.Switches)),
		sideeffect.WithAllow(p.Sandbox.Allow...),
		sideeffect.WithLogger(logger),
	}
}

func (p *Policy) GlobalNameOptions() []globalname.Option {
	opts := []globalname.Option{globalname.WithAllow(p.Globals.Allow...)}
	if p.Globals.Builtins != nil {
		opts = append(opts, globalname.WithBuiltins(*p.Globals.Builtins))
	}
	return opts
}
