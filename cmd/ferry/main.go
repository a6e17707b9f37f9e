package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/OCAP2/ferry/internal/config"
	"github.com/OCAP2/ferry/internal/influx"
	"github.com/OCAP2/ferry/internal/logging"
	intOtel "github.com/OCAP2/ferry/internal/otel"
	"github.com/OCAP2/ferry/internal/recorder"
	"github.com/OCAP2/ferry/internal/simulation"
	"github.com/OCAP2/ferry/internal/storage"
)

// module defs - BuildDate can be set at build time via ldflags
var (
	CurrentVersion string = "0.0.1"
	BuildDate      string = "unknown"

	AppName string = "ferry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run is the whole program: it returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	fs := config.NewFlagSet(AppName)
	fs.SetOutput(stderr)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		return 2
	}

	configDir, _ := fs.GetString("config")
	loadErr := config.Load(configDir)
	if err := config.BindFlags(fs); err != nil {
		fmt.Fprintln(stderr, err)
		return 2
	}

	sessionStart := time.Now()
	logsDir := config.GetString("logsDir")
	graylogAddress := ""
	if gl := config.GetGraylogConfig(); gl.Enabled {
		graylogAddress = gl.Address
	}
	logOut, err := logging.Setup(logging.Options{
		Level:          config.GetString("logLevel"),
		LogsDir:        logsDir,
		Name:           AppName,
		Start:          sessionStart,
		Console:        stdout,
		GraylogAddress: graylogAddress,
	})
	if err != nil {
		fmt.Fprintf(stderr, "Failed to set up logging: %v\n", err)
		return 1
	}
	defer logOut.Close()
	log := logOut.Logger

	log.Info().Str("version", CurrentVersion).Str("build", BuildDate).Msg("Starting up...")
	if loadErr != nil {
		log.Warn().Err(loadErr).Msg("Failed to load config, using defaults!")
	} else {
		log.Info().Str("file", configFilePath(configDir)).Msg("Loaded config")
	}

	if logsDir != "" {
		if n, err := logging.RemoveOldLogs(logsDir, AppName, config.GetDuration("logsMaxAge"), sessionStart); err != nil {
			log.Warn().Err(err).Msg("Failed to remove old logs")
		} else if n > 0 {
			log.Debug().Int("removed", n).Msg("Removed old logs")
		}
	}

	simCfg := config.GetSimulationConfig()
	if err := simCfg.Validate(); err != nil {
		log.Error().Err(err).Msg("Invalid configuration")
		return 1
	}

	closeMetrics, err := setupMetrics(config.GetMetricsConfig(), logsDir, sessionStart)
	if err != nil {
		log.Error().Err(err).Msg("Failed to set up metrics")
		return 1
	}
	defer func() {
		if err := closeMetrics(); err != nil {
			log.Warn().Err(err).Msg("Error shutting down metrics")
		}
	}()

	storageCfg := config.GetStorageConfig()
	backend, err := createStorageBackend(storageCfg, log)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create storage backend")
		return 1
	}
	if err := backend.Init(); err != nil {
		log.Error().Err(err).Str("type", storageCfg.Type).Msg("Failed to initialize storage backend")
		return 1
	}
	defer func() {
		if err := backend.Close(); err != nil {
			log.Warn().Err(err).Msg("Error closing storage backend")
		}
	}()
	log.Info().Str("type", storageCfg.Type).Msg("Storage backend initialized")

	var points recorder.PointWriter
	if influxCfg := config.GetInfluxConfig(); influxCfg.Enabled {
		manager := influx.NewManager(log.With().Str("component", "influx").Logger(), influxCfg)
		if err := manager.Connect(ctx); err != nil {
			log.Warn().Err(err).Msg("InfluxDB unavailable, points will not be written")
		} else {
			points = manager
			defer manager.Close()
		}
	}

	report, err := simulation.Run(ctx, simCfg, simulation.Dependencies{
		Logger:  log,
		Backend: backend,
		Points:  points,
		Monitor: config.GetMonitorConfig(),
	})
	if report == nil {
		log.Error().Err(err).Msg("Simulation failed to start")
		return 1
	}

	ev := log.Info().
		Str("run", report.RunID).
		Int("completed", report.Completed).
		Int("total", report.Total).
		Int("stranded", len(report.Stranded)).
		Int("voyages", report.Voyages).
		Bool("terminated", report.Terminated).
		Bool("interrupted", report.Interrupted).
		Dur("duration", report.Duration)
	if exp, ok := backend.(storage.Exportable); ok && exp.GetExportedFilePath() != "" {
		ev = ev.Str("export", exp.GetExportedFilePath())
	}
	ev.Msg("Simulation finished")

	if err != nil {
		log.Error().Err(err).Msg("Simulation failed")
		return 1
	}
	return 0
}

func configFilePath(dir string) string {
	return filepath.Join(dir, config.FileName)
}

// setupMetrics installs the OTel meter provider when metrics are enabled.
// Metrics go to metrics.file, or next to the session log. The returned func
// exports what is left and closes the file.
func setupMetrics(cfg config.MetricsConfig, logsDir string, start time.Time) (func() error, error) {
	if !cfg.Enabled {
		return func() error { return nil }, nil
	}

	path := cfg.File
	if path == "" {
		dir := logsDir
		if dir == "" {
			dir = "."
		}
		path = filepath.Join(dir, fmt.Sprintf("%s.metrics.%s.json", AppName, start.Format("20060102_150405")))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create metrics dir: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create metrics file: %w", err)
	}

	provider, err := intOtel.New(intOtel.Config{
		Enabled:     true,
		ServiceName: AppName,
		Interval:    cfg.Interval,
		Writer:      file,
	})
	if err != nil {
		file.Close()
		return nil, err
	}

	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		shutdownErr := provider.Shutdown(ctx)
		if err := file.Close(); err != nil && shutdownErr == nil {
			return err
		}
		return shutdownErr
	}, nil
}
