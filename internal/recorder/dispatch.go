package recorder

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/OCAP2/ferry/internal/dispatcher"
	"github.com/OCAP2/ferry/internal/influx"
	"github.com/OCAP2/ferry/pkg/core"
)

// EventQueue is the dispatcher queue shared by every recorder handler.
const EventQueue = "events"

// RegisterHandlers registers all event handlers with the dispatcher.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	opts := []dispatcher.Option{dispatcher.Logged()}
	if m.deps.BufferSize > 0 {
		// one blocking queue keeps log and storage order equal to emit order
		opts = append(opts,
			dispatcher.Buffered(m.deps.BufferSize),
			dispatcher.Blocking(),
			dispatcher.Queue(EventQueue),
		)
	}

	d.Register(core.KindTollPass, m.handleTollPass, opts...)
	d.Register(core.KindBoarding, m.handleBoarding, opts...)
	d.Register(core.KindSkip, m.handleSkip, opts...)
	d.Register(core.KindDeparture, m.handleDeparture, opts...)
	d.Register(core.KindArrival, m.handleArrival, opts...)
	d.Register(core.KindCompletion, m.handleCompletion, opts...)
	d.Register(core.KindTermination, m.handleTermination, opts...)
}

func payload[T any](e dispatcher.Event) (T, error) {
	p, ok := e.Payload.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%s: unexpected payload %T", e.Kind, e.Payload)
	}
	return p, nil
}

func (m *Manager) handleTollPass(e dispatcher.Event) (any, error) {
	p, err := payload[core.TollPass](e)
	if err != nil {
		return nil, err
	}

	m.deps.Logger.Info().
		Int("vehicle", p.VehicleID).
		Str("class", p.Class.String()).
		Int("lane", p.Lane).
		Int("side", int(p.Side)).
		Int("leg", p.Leg).
		Msgf("%s %d passing toll lane %d on side %d (leg %d)", p.Class, p.VehicleID, p.Lane, p.Side, p.Leg)

	if err := m.backend.RecordTollPass(&p); err != nil {
		return nil, fmt.Errorf("failed to record toll pass: %w", err)
	}
	return nil, nil
}

func (m *Manager) handleBoarding(e dispatcher.Event) (any, error) {
	p, err := payload[core.Boarding](e)
	if err != nil {
		return nil, err
	}

	m.deps.Logger.Info().
		Int("voyage", p.Voyage).
		Int("vehicle", p.VehicleID).
		Str("class", p.Class.String()).
		Int("side", int(p.Side)).
		Int("load", p.Load).
		Msgf("%s %d boarded from side %d, load %d/%d", p.Class, p.VehicleID, p.Side, p.Load, m.deps.Capacity)

	m.boardings.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("class", p.Class.String())))
	m.writePoint(influx.BoardingPoint(m.deps.RunID, p))

	if err := m.backend.RecordBoarding(&p); err != nil {
		return nil, fmt.Errorf("failed to record boarding: %w", err)
	}
	return nil, nil
}

func (m *Manager) handleSkip(e dispatcher.Event) (any, error) {
	p, err := payload[core.Skip](e)
	if err != nil {
		return nil, err
	}

	m.deps.Logger.Info().
		Int("voyage", p.Voyage).
		Int("vehicle", p.VehicleID).
		Str("class", p.Class.String()).
		Int("side", int(p.Side)).
		Int("required", p.Required).
		Int("available", p.Available).
		Msgf("%s %d on side %d skipped: needs %d, %d available", p.Class, p.VehicleID, p.Side, p.Required, p.Available)

	m.skips.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String("class", p.Class.String())))
	m.writePoint(influx.SkipPoint(m.deps.RunID, p))

	if err := m.backend.RecordSkip(&p); err != nil {
		return nil, fmt.Errorf("failed to record skip: %w", err)
	}
	return nil, nil
}

func (m *Manager) handleDeparture(e dispatcher.Event) (any, error) {
	p, err := payload[core.Departure](e)
	if err != nil {
		return nil, err
	}

	m.deps.Logger.Info().
		Int("voyage", p.Voyage).
		Int("from", int(p.From)).
		Int("to", int(p.To)).
		Int("load", p.Load).
		Msgf("Ferry departing side %d for side %d with load %d", p.From, p.To, p.Load)

	attrs := metric.WithAttributes(attribute.Int("from", int(p.From)))
	m.voyages.Add(context.Background(), 1, attrs)
	m.voyageLoad.Record(context.Background(), int64(p.Load), attrs)
	m.writePoint(influx.VoyagePoint(m.deps.RunID, m.deps.Capacity, p))

	if err := m.backend.RecordDeparture(&p); err != nil {
		return nil, fmt.Errorf("failed to record departure: %w", err)
	}
	return nil, nil
}

func (m *Manager) handleArrival(e dispatcher.Event) (any, error) {
	p, err := payload[core.Arrival](e)
	if err != nil {
		return nil, err
	}

	m.deps.Logger.Info().
		Int("voyage", p.Voyage).
		Int("side", int(p.Side)).
		Msgf("Ferry arrived at side %d, unloading", p.Side)

	if err := m.backend.RecordArrival(&p); err != nil {
		return nil, fmt.Errorf("failed to record arrival: %w", err)
	}
	return nil, nil
}

func (m *Manager) handleCompletion(e dispatcher.Event) (any, error) {
	p, err := payload[core.Completion](e)
	if err != nil {
		return nil, err
	}

	m.deps.Logger.Debug().
		Int("vehicle", p.VehicleID).
		Str("class", p.Class.String()).
		Int("initialSide", int(p.InitialSide)).
		Int("finalSide", int(p.FinalSide)).
		Msg("Vehicle completed round trip")

	if err := m.backend.RecordCompletion(&p); err != nil {
		return nil, fmt.Errorf("failed to record completion: %w", err)
	}
	return nil, nil
}

func (m *Manager) handleTermination(e dispatcher.Event) (any, error) {
	p, err := payload[core.Termination](e)
	if err != nil {
		return nil, err
	}

	m.deps.Logger.Info().
		Int("side", int(p.Side)).
		Int("voyages", p.Voyages).
		Int("completed", p.Completed).
		Msgf("Ferry finished after %d voyages, %d vehicles completed their round trip", p.Voyages, p.Completed)

	if err := m.backend.RecordTermination(&p); err != nil {
		return nil, fmt.Errorf("failed to record termination: %w", err)
	}
	return nil, nil
}
