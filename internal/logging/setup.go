package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/rs/zerolog"
)

// Options configures the process logger.
type Options struct {
	Level   string
	LogsDir string
	// Name prefixes the log file name.
	Name    string
	Start   time.Time
	Console io.Writer
	// GraylogAddress enables a GELF writer when non-empty.
	GraylogAddress string
}

// Output is a configured logger together with the resources it writes to.
type Output struct {
	Logger   zerolog.Logger
	FilePath string

	file    *os.File
	graylog *gelf.Writer
}

// ParseLevel maps a config level name to a zerolog level, defaulting to info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return zerolog.DebugLevel
	case "INFO":
		return zerolog.InfoLevel
	case "WARN":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	case "TRACE":
		return zerolog.TraceLevel
	default:
		return zerolog.InfoLevel
	}
}

// Setup builds a logger writing colored console output, a plain log file under
// LogsDir (skipped when empty) and, optionally, GELF messages to Graylog.
func Setup(opts Options) (*Output, error) {
	if opts.Console == nil {
		opts.Console = os.Stdout
	}
	if opts.Start.IsZero() {
		opts.Start = time.Now()
	}

	out := &Output{}
	writers := []io.Writer{
		zerolog.ConsoleWriter{
			Out:        opts.Console,
			TimeFormat: time.RFC3339,
		},
	}

	if opts.LogsDir != "" {
		if err := os.MkdirAll(opts.LogsDir, 0755); err != nil {
			return nil, fmt.Errorf("create logs dir: %w", err)
		}
		out.FilePath = LogFilePath(opts.LogsDir, opts.Name, opts.Start)
		file, err := os.OpenFile(out.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		out.file = file
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        file,
			TimeFormat: time.RFC3339,
			NoColor:    true,
		})
	}

	if opts.GraylogAddress != "" {
		gw, err := gelf.NewWriter(opts.GraylogAddress)
		if err != nil {
			_ = out.Close()
			return nil, fmt.Errorf("connect to graylog at %s: %w", opts.GraylogAddress, err)
		}
		out.graylog = gw
		writers = append(writers, gw)
	}

	zerolog.TimestampFunc = func() time.Time {
		return time.Now().UTC()
	}

	out.Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(ParseLevel(opts.Level)).
		With().Timestamp().Logger()

	out.Logger.Info().Str("loglevel", out.Logger.GetLevel().String()).
		Str("file", out.FilePath).
		Bool("graylog", out.graylog != nil).
		Msg("Logging set up")
	return out, nil
}

// Close flushes and closes the log file and the Graylog connection.
func (o *Output) Close() error {
	var firstErr error
	if o.graylog != nil {
		if err := o.graylog.Close(); err != nil {
			firstErr = err
		}
	}
	if o.file != nil {
		if err := o.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// RemoveOldLogs deletes files in logsDir matching name's log pattern that are
// older than maxAge.
func RemoveOldLogs(logsDir, name string, maxAge time.Duration, now time.Time) (int, error) {
	matches, err := filepath.Glob(filepath.Join(logsDir, name+".*.log"))
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) > maxAge {
			if err := os.Remove(path); err != nil {
				return removed, err
			}
			removed++
		}
	}
	return removed, nil
}
