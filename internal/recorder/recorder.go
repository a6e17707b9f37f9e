// Package recorder turns simulation events into log lines, storage writes,
// InfluxDB points and metrics.
package recorder

import (
	"fmt"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/OCAP2/ferry/internal/storage"
)

const instrumentationName = "github.com/OCAP2/ferry/internal/recorder"

// PointWriter accepts InfluxDB points. *influx.Manager satisfies it.
type PointWriter interface {
	WritePoint(point *influxdb2_write.Point) error
}

// Dependencies holds all dependencies for the recorder
type Dependencies struct {
	Logger   zerolog.Logger
	Backend  storage.Backend
	Points   PointWriter // optional
	RunID    string
	Capacity int

	// BufferSize > 0 runs every handler on one shared, ordered queue of that
	// size. Zero handles events on the emitting goroutine.
	BufferSize int
}

// Manager owns the event handlers for one run.
type Manager struct {
	deps    Dependencies
	backend storage.Backend

	boardings  metric.Int64Counter
	skips      metric.Int64Counter
	voyages    metric.Int64Counter
	voyageLoad metric.Int64Histogram
}

// NewManager creates a new recorder. Instruments come from the global OTel
// meter, so they are no-ops unless a provider is installed.
func NewManager(deps Dependencies) (*Manager, error) {
	backend := deps.Backend
	if backend == nil {
		backend = storage.Nop{}
	}
	m := &Manager{deps: deps, backend: backend}

	meter := otel.Meter(instrumentationName)
	var err error

	m.boardings, err = meter.Int64Counter(
		"ferry.boardings",
		metric.WithDescription("Vehicles admitted onto the ferry"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating boardings counter: %w", err)
	}

	m.skips, err = meter.Int64Counter(
		"ferry.skips",
		metric.WithDescription("Eligible vehicles left behind for lack of space"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating skips counter: %w", err)
	}

	m.voyages, err = meter.Int64Counter(
		"ferry.voyages",
		metric.WithDescription("Crossings started"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating voyages counter: %w", err)
	}

	m.voyageLoad, err = meter.Int64Histogram(
		"ferry.voyage.load",
		metric.WithDescription("Capacity units aboard at departure"),
		metric.WithUnit("{unit}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating voyage load histogram: %w", err)
	}

	return m, nil
}

// Backend returns the storage backend events are written to.
func (m *Manager) Backend() storage.Backend {
	return m.backend
}

func (m *Manager) writePoint(point *influxdb2_write.Point) {
	if m.deps.Points == nil {
		return
	}
	if err := m.deps.Points.WritePoint(point); err != nil {
		m.deps.Logger.Warn().Err(err).Msg("Error writing point")
	}
}
