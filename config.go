package kura

import (
	"fmt"
	"io"
	"runtime"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config holds the tunables of a World.
type Config struct {
	// Name identifies the world in logs and metrics. Defaults to a random
	// UUID.
	Name string `yaml:"name"`
	// InitialCapacity is the number of entities pre-allocated for.
	InitialCapacity int `yaml:"initial_capacity"`
	// Concurrency bounds the goroutines a parallel job runs on. Defaults to
	// GOMAXPROCS.
	Concurrency int `yaml:"concurrency"`
	// ChunkSize is the default number of rows per parallel job chunk. Zero
	// derives it from the matched row count and Concurrency.
	ChunkSize int `yaml:"chunk_size"`
	// LogLevel builds a JSON logger at that level when no logger is given.
	// Empty disables logging.
	LogLevel string `yaml:"log_level"`
}

// DefaultConfig returns the configuration NewWorld starts from.
func DefaultConfig() Config {
	return Config{
		Name:            uuid.NewString(),
		InitialCapacity: 1024,
		Concurrency:     runtime.GOMAXPROCS(0),
	}
}

// LoadConfig decodes a YAML document over DefaultConfig and validates the
// result.
func LoadConfig(r io.Reader) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.NewDecoder(r).Decode(&cfg); err != nil && err != io.EOF {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	switch {
	case c.Name == "":
		return fmt.Errorf("%w: name is empty", ErrInvalidConfig)
	case c.InitialCapacity < 0:
		return fmt.Errorf("%w: initial_capacity %d is negative", ErrInvalidConfig, c.InitialCapacity)
	case c.Concurrency < 1:
		return fmt.Errorf("%w: concurrency %d is below 1", ErrInvalidConfig, c.Concurrency)
	case c.ChunkSize < 0:
		return fmt.Errorf("%w: chunk_size %d is negative", ErrInvalidConfig, c.ChunkSize)
	}
	if c.LogLevel != "" {
		if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}
	return nil
}

// Option configures a World.
type Option func(*World)

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return func(w *World) {
		w.cfg = cfg
	}
}

// WithName sets Config.Name.
func WithName(name string) Option {
	return func(w *World) {
		w.cfg.Name = name
	}
}

// WithInitialCapacity sets Config.InitialCapacity.
func WithInitialCapacity(n int) Option {
	return func(w *World) {
		w.cfg.InitialCapacity = n
	}
}

// WithConcurrency sets Config.Concurrency.
func WithConcurrency(n int) Option {
	return func(w *World) {
		w.cfg.Concurrency = n
	}
}

// WithLogger makes the world log through l.
func WithLogger(l *zap.Logger) Option {
	return func(w *World) {
		w.logger = l
	}
}

func newLogger(level string) *zap.Logger {
	if level == "" {
		return zap.NewNop()
	}
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return zap.NewNop()
	}
	config := zap.Config{
		Level:       zap.NewAtomicLevelAt(lvl),
		Development: false,
		Sampling: &zap.SamplingConfig{
			Initial:    100,
			Thereafter: 100,
		},
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
		DisableCaller:    true,
	}
	logger, err := config.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
