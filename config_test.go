package kura_test

import (
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/edwinsyarief/kura"
)

// go test -run ^TestLoadConfig$ . -count 1
func TestLoadConfig(t *testing.T) {
	cfg, err := kura.LoadConfig(strings.NewReader(`
name: arena
concurrency: 4
chunk_size: 256
log_level: warn
`))
	require.NoError(t, err)
	require.Equal(t, "arena", cfg.Name)
	require.Equal(t, 4, cfg.Concurrency)
	require.Equal(t, 256, cfg.ChunkSize)
	require.Equal(t, "warn", cfg.LogLevel)
	require.Equal(t, 1024, cfg.InitialCapacity)

	cfg, err = kura.LoadConfig(strings.NewReader(""))
	require.NoError(t, err)
	require.NotEmpty(t, cfg.Name)
	require.Equal(t, runtime.GOMAXPROCS(0), cfg.Concurrency)
}

// go test -run ^TestLoadConfigInvalid$ . -count 1
func TestLoadConfigInvalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"zero concurrency", "concurrency: 0"},
		{"negative capacity", "initial_capacity: -1"},
		{"negative chunk", "chunk_size: -5"},
		{"empty name", `name: ""`},
		{"bad level", "log_level: loud"},
		{"not yaml", "concurrency: [1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := kura.LoadConfig(strings.NewReader(tt.doc))
			require.ErrorIs(t, err, kura.ErrInvalidConfig)
		})
	}
}

// go test -run ^TestNewWorldOptions$ . -count 1
func TestNewWorldOptions(t *testing.T) {
	w := kura.NewWorld(kura.WithName("sandbox"), kura.WithInitialCapacity(8), kura.WithConcurrency(2))
	defer w.Close()
	require.Equal(t, "sandbox", w.Name())

	cfg := kura.DefaultConfig()
	cfg.Name = "configured"
	w2 := kura.NewWorld(kura.WithConfig(cfg))
	defer w2.Close()
	require.Equal(t, "configured", w2.Name())
	require.NotEqual(t, w.ID(), w2.ID())

	require.Panics(t, func() { kura.NewWorld(kura.WithConcurrency(0)) })
}

// go test -run ^TestWorldLogging$ . -count 1
func TestWorldLogging(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	w := kura.NewWorld(kura.WithName("observed"), kura.WithLogger(zap.New(core)))

	created := logs.FilterMessage("world created").All()
	require.Len(t, created, 1)
	require.Equal(t, "observed", created[0].ContextMap()["world"])

	e, _ := w.Spawn(kura.Value(Position{}))
	// The root table and the Position table.
	require.Equal(t, 2, logs.FilterMessage("table created").Len())

	l := w.Lock()
	require.NoError(t, kura.AddComponent(w, e, Velocity{}, kura.Plain))
	require.NoError(t, kura.AddComponent(w, e, Velocity{}, kura.Plain))
	require.Error(t, l.Unlock())
	failed := logs.FilterMessage("deferred operations failed").All()
	require.Len(t, failed, 1)
	require.Equal(t, zapcore.WarnLevel, failed[0].Level)
	require.EqualValues(t, 1, failed[0].ContextMap()["failed"])

	w.Close()
	require.Equal(t, 1, logs.FilterMessage("world closed").Len())
}
