// Package simulation drives one ferry run: it builds the fleet, starts the
// scheduler and one actor per vehicle, and records the outcome.
package simulation

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/OCAP2/ferry/internal/config"
	"github.com/OCAP2/ferry/internal/dispatcher"
	"github.com/OCAP2/ferry/internal/ferry"
	"github.com/OCAP2/ferry/internal/fleet"
	"github.com/OCAP2/ferry/internal/influx"
	"github.com/OCAP2/ferry/internal/logging"
	"github.com/OCAP2/ferry/internal/monitor"
	"github.com/OCAP2/ferry/internal/recorder"
	"github.com/OCAP2/ferry/internal/storage"
	"github.com/OCAP2/ferry/pkg/core"
)

// DefaultBufferSize is the recorder queue size used when none is set.
const DefaultBufferSize = 1000

// Dependencies holds everything a run writes to.
type Dependencies struct {
	Logger  zerolog.Logger
	Backend storage.Backend      // nil: nothing is stored
	Points  recorder.PointWriter // nil: no InfluxDB points
	Delays  ferry.Delays         // nil: random delays from the config
	Monitor config.MonitorConfig

	// BufferSize is the recorder queue size. Negative handles every event on
	// the emitting goroutine.
	BufferSize int
}

// Report is the outcome of a run.
type Report struct {
	RunID       string
	Seed        int64
	Rule        string
	Admission   string
	Total       int
	Completed   int
	Stranded    []int
	Voyages     int
	Terminated  bool
	Interrupted bool
	Duration    time.Duration
}

// Run executes one simulation with cfg. It returns once the scheduler has
// stopped and every actor has exited. Stranded vehicles are reported, not
// treated as an error; cancelling ctx interrupts the run the same way.
func Run(ctx context.Context, cfg config.SimulationConfig, deps Dependencies) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rule, err := ferry.RuleByName(cfg.Ferry.Rule)
	if err != nil {
		return nil, err
	}
	admission, err := ferry.AdmissionByName(cfg.Ferry.Admission)
	if err != nil {
		return nil, err
	}

	seed := cfg.Fleet.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	vehicles, err := fleet.Generate(fleet.Config{
		Cars:        cfg.Fleet.Cars,
		Minibuses:   cfg.Fleet.Minibuses,
		Trucks:      cfg.Fleet.Trucks,
		InitialSide: cfg.Fleet.InitialSide,
		TollLanes:   cfg.Toll.Lanes,
	}, rng)
	if err != nil {
		return nil, fmt.Errorf("failed to generate fleet: %w", err)
	}

	delays := deps.Delays
	if delays == nil {
		delays = ferry.NewRandomDelays(seed,
			cfg.Toll.MinDelay, cfg.Toll.MaxDelay,
			cfg.Ferry.TransitDelay, cfg.Ferry.UnloadDelay)
	}

	backend := deps.Backend
	if backend == nil {
		backend = storage.Nop{}
	}

	log := deps.Logger
	report := &Report{
		RunID:     uuid.NewString(),
		Seed:      seed,
		Rule:      rule.Name,
		Admission: admission.String(),
		Total:     len(vehicles),
	}
	start := time.Now()

	bufferSize := deps.BufferSize
	if bufferSize == 0 {
		bufferSize = DefaultBufferSize
	} else if bufferSize < 0 {
		bufferSize = 0
	}

	d, err := dispatcher.New(logging.NewDispatcherLogger(log.With().Str("component", "dispatcher").Logger()))
	if err != nil {
		return nil, fmt.Errorf("failed to create dispatcher: %w", err)
	}
	rec, err := recorder.NewManager(recorder.Dependencies{
		Logger:     log,
		Backend:    backend,
		Points:     deps.Points,
		RunID:      report.RunID,
		Capacity:   cfg.Ferry.Capacity,
		BufferSize: bufferSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create recorder: %w", err)
	}
	rec.RegisterHandlers(d)

	emit := ferry.EmitterFunc(func(kind string, payload any) {
		if _, err := d.Dispatch(dispatcher.Event{Kind: kind, Payload: payload, Timestamp: time.Now()}); err != nil {
			log.Warn().Err(err).Str("kind", kind).Msg("Event not recorded")
		}
	})

	if err := backend.StartRun(newRun(report, cfg, start, vehicles)); err != nil {
		d.Close()
		return nil, fmt.Errorf("failed to start run: %w", err)
	}

	log.Info().
		Str("run", report.RunID).
		Int64("seed", seed).
		Str("rule", report.Rule).
		Str("admission", report.Admission).
		Int("vehicles", report.Total).
		Int("capacity", cfg.Ferry.Capacity).
		Msg("Starting simulation")

	state := ferry.NewState(cfg.Ferry.Capacity, rule, admission, emit)
	tolls := ferry.NewTollGate(cfg.Toll.Lanes, emit)
	scheduler := ferry.NewScheduler(state, vehicles, delays, log.With().Str("component", "scheduler").Logger())

	mon := monitor.NewService(monitor.Dependencies{
		Source:     state,
		Logger:     log.With().Str("component", "monitor").Logger(),
		Interval:   deps.Monitor.Interval,
		StatusFile: deps.Monitor.StatusFile,
	})
	if err := mon.Start(); err != nil {
		log.Warn().Err(err).Msg("Status monitor not started")
	}

	// an interrupt must also wake goroutines parked on the boarding state
	stopRelease := context.AfterFunc(ctx, state.Release)
	defer stopRelease()

	actorCtx, cancelActors := context.WithCancel(ctx)
	defer cancelActors()

	var actors errgroup.Group
	for _, v := range vehicles {
		actor := ferry.NewActor(v, state, tolls, delays)
		actors.Go(func() error {
			err := actor.Run(actorCtx)
			if err == nil || errors.Is(err, ferry.ErrReleased) || actorCtx.Err() != nil {
				return nil
			}
			return fmt.Errorf("vehicle %d: %w", actor.Vehicle().ID, err)
		})
	}

	schedErr := scheduler.Run(ctx)
	report.Terminated = schedErr == nil
	report.Interrupted = ctx.Err() != nil

	// the scheduler is gone, so nobody left waiting can ever board
	state.Release()
	cancelActors()
	actorErr := actors.Wait()

	mon.Stop()
	d.Close()

	snap := state.Snapshot()
	report.Completed = snap.Completed
	report.Voyages = snap.Voyage - 1
	for _, v := range vehicles {
		if !v.Done() {
			report.Stranded = append(report.Stranded, v.ID)
		}
	}
	report.Duration = time.Since(start)

	summary := core.Summary{
		EndTime:    time.Now(),
		Voyages:    report.Voyages,
		Completed:  report.Completed,
		Stranded:   report.Stranded,
		Terminated: report.Terminated,
	}
	if err := backend.EndRun(&summary); err != nil {
		log.Error().Err(err).Msg("Error closing run in storage")
	}
	if deps.Points != nil {
		if err := deps.Points.WritePoint(influx.RunPoint(report.RunID, report.Rule, report.Admission, summary)); err != nil {
			log.Warn().Err(err).Msg("Error writing run point")
		}
	}

	if len(report.Stranded) > 0 {
		log.Warn().Ints("stranded", report.Stranded).
			Msgf("%d vehicles could not complete their round trip", len(report.Stranded))
	}
	if schedErr != nil && !report.Interrupted && !errors.Is(schedErr, ferry.ErrReleased) {
		return report, fmt.Errorf("scheduler stopped: %w", schedErr)
	}
	if actorErr != nil {
		return report, actorErr
	}
	return report, nil
}

func newRun(report *Report, cfg config.SimulationConfig, start time.Time, vehicles []*core.Vehicle) *core.Run {
	run := &core.Run{
		ID:        report.RunID,
		StartTime: start,
		Rule:      report.Rule,
		Admission: report.Admission,
		Capacity:  cfg.Ferry.Capacity,
		Settings: map[string]any{
			"seed":         report.Seed,
			"cars":         cfg.Fleet.Cars,
			"minibuses":    cfg.Fleet.Minibuses,
			"trucks":       cfg.Fleet.Trucks,
			"initialSide":  cfg.Fleet.InitialSide,
			"tollLanes":    cfg.Toll.Lanes,
			"tollMinDelay": cfg.Toll.MinDelay.String(),
			"tollMaxDelay": cfg.Toll.MaxDelay.String(),
			"transitDelay": cfg.Ferry.TransitDelay.String(),
			"unloadDelay":  cfg.Ferry.UnloadDelay.String(),
		},
		Vehicles: make([]core.Vehicle, len(vehicles)),
	}
	for i, v := range vehicles {
		run.Vehicles[i] = *v
	}
	return run
}
