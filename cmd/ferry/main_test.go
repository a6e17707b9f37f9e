package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/OCAP2/ferry/internal/config"
	"github.com/OCAP2/ferry/internal/storage"
	"github.com/OCAP2/ferry/internal/storage/memory"
	pgstorage "github.com/OCAP2/ferry/internal/storage/postgres"
	sqlitestorage "github.com/OCAP2/ferry/internal/storage/sqlite"
)

// writeConfig writes a config for a fast run into a fresh directory and
// returns it.
func writeConfig(t *testing.T, overrides map[string]any) string {
	t.Helper()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	cfg := map[string]any{
		"logLevel": "debug",
		"logsDir":  filepath.Join(dir, "logs"),
		"fleet": map[string]any{
			"cars":        4,
			"minibuses":   3,
			"trucks":      2,
			"seed":        7,
			"initialSide": "0",
		},
		"ferry": map[string]any{
			"capacity":     20,
			"transitDelay": "0s",
			"unloadDelay":  "0s",
		},
		"toll": map[string]any{
			"lanes":    4,
			"minDelay": "0s",
			"maxDelay": "0s",
		},
		"monitor": map[string]any{
			"interval":   "1ms",
			"statusFile": filepath.Join(dir, "status.json"),
		},
		"storage": map[string]any{
			"type": "memory",
			"memory": map[string]any{
				"outputDir":      filepath.Join(dir, "runs"),
				"compressOutput": false,
			},
			"sqlite": map[string]any{
				"path": filepath.Join(dir, "ferry.db"),
			},
		},
		"db": map[string]any{
			"host": "127.0.0.1",
			"port": "1",
		},
	}
	for k, v := range overrides {
		cfg[k] = v
	}

	data, err := json.Marshal(cfg)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.FileName), data, 0644))
	return dir
}

func TestRun_MemoryStorage(t *testing.T) {
	dir := writeConfig(t, nil)
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{"--config", dir}, &stdout, &stderr)
	require.Equal(t, 0, code, stdout.String())

	out := stdout.String()
	assert.Contains(t, out, "Loaded config")
	assert.Contains(t, out, "Starting simulation")
	assert.Contains(t, out, "Ferry finished after")
	assert.Contains(t, out, "Simulation finished")
	assert.NotContains(t, out, "could not complete")

	exports, err := filepath.Glob(filepath.Join(dir, "runs", "ferry_*.json"))
	require.NoError(t, err)
	require.Len(t, exports, 1)

	export, err := memory.ReadExport(exports[0])
	require.NoError(t, err)
	assert.Equal(t, 9, export.Summary.Completed)

	logs, err := filepath.Glob(filepath.Join(dir, "logs", "ferry.*.log"))
	require.NoError(t, err)
	assert.Len(t, logs, 1)

	_, err = os.Stat(filepath.Join(dir, "status.json"))
	assert.NoError(t, err)
}

func TestRun_StrandedStillSucceeds(t *testing.T) {
	dir := writeConfig(t, nil)
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{"--config", dir, "--initial-side", "1", "--storage", "none"}, &stdout, &stderr)
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout.String(), "9 vehicles could not complete their round trip")
}

func TestRun_RoundTripFlag(t *testing.T) {
	dir := writeConfig(t, nil)
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{"--config", dir, "--initial-side", "1", "--rule", "roundtrip", "--storage", "none"}, &stdout, &stderr)
	assert.Equal(t, 0, code)
	assert.NotContains(t, stdout.String(), "could not complete")
}

func TestRun_SQLiteStorage(t *testing.T) {
	dir := writeConfig(t, nil)
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{"--config", dir, "--storage", "sqlite"}, &stdout, &stderr)
	require.Equal(t, 0, code, stdout.String())

	_, err := os.Stat(filepath.Join(dir, "ferry.db"))
	assert.NoError(t, err)
	assert.Contains(t, stdout.String(), filepath.Join(dir, "ferry.db"))
}

func TestRun_PostgresUnavailable(t *testing.T) {
	dir := writeConfig(t, nil)
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{"--config", dir, "--storage", "postgres"}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout.String(), "Failed to initialize storage backend")
}

func TestRun_InvalidConfig(t *testing.T) {
	dir := writeConfig(t, map[string]any{
		"ferry": map[string]any{"capacity": 2},
	})
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{"--config", dir}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout.String(), "Invalid configuration")
}

func TestRun_UnknownStorage(t *testing.T) {
	dir := writeConfig(t, nil)
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{"--config", dir, "--storage", "tape"}, &stdout, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stdout.String(), "unknown storage type: tape")
}

func TestRun_MetricsFile(t *testing.T) {
	dir := writeConfig(t, nil)
	metricsFile := filepath.Join(dir, "metrics.json")
	t.Cleanup(func() { otel.SetMeterProvider(noop.NewMeterProvider()) })
	viper.Set("metrics.enabled", true)
	viper.Set("metrics.file", metricsFile)
	var stdout, stderr bytes.Buffer

	code := run(context.Background(), []string{"--config", dir, "--storage", "none"}, &stdout, &stderr)
	require.Equal(t, 0, code, stdout.String())

	data, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "ferry.boardings")
}

func TestRun_Flags(t *testing.T) {
	t.Cleanup(viper.Reset)
	var stdout, stderr bytes.Buffer

	assert.Equal(t, 0, run(context.Background(), []string{"--help"}, &stdout, &stderr))
	assert.Equal(t, 2, run(context.Background(), []string{"--no-such-flag"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "no-such-flag")
}

func TestCreateStorageBackend(t *testing.T) {
	t.Cleanup(viper.Reset)
	log := zerolog.Nop()

	tests := []struct {
		typ  string
		want any
	}{
		{"memory", &memory.Backend{}},
		{"", &memory.Backend{}},
		{"sqlite", &sqlitestorage.Backend{}},
		{"postgres", &pgstorage.Backend{}},
		{"none", storage.Nop{}},
	}
	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			backend, err := createStorageBackend(config.StorageConfig{Type: tt.typ}, log)
			require.NoError(t, err)
			assert.IsType(t, tt.want, backend)
		})
	}

	_, err := createStorageBackend(config.StorageConfig{Type: "tape"}, log)
	assert.Error(t, err)
}
