// internal/storage/memory/memory.go
package memory

import (
	"errors"
	"slices"
	"sync"

	"github.com/OCAP2/ferry/internal/config"
	"github.com/OCAP2/ferry/pkg/core"
)

// ErrNoRun is returned when events arrive outside StartRun/EndRun.
var ErrNoRun = errors.New("no run in progress")

// VoyageRecord groups a crossing with the boardings and skips of its loading
// phase
type VoyageRecord struct {
	Number    int
	Departure *core.Departure
	Arrival   *core.Arrival
	Boardings []core.Boarding
	Skips     []core.Skip
}

// Backend stores run data in memory and exports to JSON
type Backend struct {
	cfg     config.MemoryConfig
	run     *core.Run
	summary *core.Summary

	voyages     map[int]*VoyageRecord // keyed by voyage number
	tollPasses  []core.TollPass
	completions []core.Completion
	termination *core.Termination

	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:     cfg,
		voyages: make(map[int]*VoyageRecord),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartRun begins recording a new run
func (b *Backend) StartRun(run *core.Run) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.run = run
	b.summary = nil

	// Reset all collections
	b.voyages = make(map[int]*VoyageRecord)
	b.tollPasses = nil
	b.completions = nil
	b.termination = nil
	b.lastExportPath = ""

	return nil
}

// EndRun finalizes and exports the run data
func (b *Backend) EndRun(summary *core.Summary) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.run == nil {
		return ErrNoRun
	}
	b.summary = summary
	return b.exportJSON()
}

// voyage returns the record for number, creating it on first use. Callers
// hold mu.
func (b *Backend) voyage(number int) *VoyageRecord {
	v, ok := b.voyages[number]
	if !ok {
		v = &VoyageRecord{Number: number}
		b.voyages[number] = v
	}
	return v
}

// RecordTollPass records a toll lane passage
func (b *Backend) RecordTollPass(e *core.TollPass) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.run == nil {
		return ErrNoRun
	}
	b.tollPasses = append(b.tollPasses, *e)
	return nil
}

// RecordBoarding records a boarding under its voyage
func (b *Backend) RecordBoarding(e *core.Boarding) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.run == nil {
		return ErrNoRun
	}
	v := b.voyage(e.Voyage)
	v.Boardings = append(v.Boardings, *e)
	return nil
}

// RecordSkip records a vehicle left behind under its voyage
func (b *Backend) RecordSkip(e *core.Skip) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.run == nil {
		return ErrNoRun
	}
	v := b.voyage(e.Voyage)
	v.Skips = append(v.Skips, *e)
	return nil
}

// RecordDeparture opens a voyage
func (b *Backend) RecordDeparture(e *core.Departure) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.run == nil {
		return ErrNoRun
	}
	d := *e
	d.Vehicles = slices.Clone(e.Vehicles)
	b.voyage(e.Voyage).Departure = &d
	return nil
}

// RecordArrival closes a voyage
func (b *Backend) RecordArrival(e *core.Arrival) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.run == nil {
		return ErrNoRun
	}
	a := *e
	b.voyage(e.Voyage).Arrival = &a
	return nil
}

// RecordCompletion records a finished round trip
func (b *Backend) RecordCompletion(e *core.Completion) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.run == nil {
		return ErrNoRun
	}
	b.completions = append(b.completions, *e)
	return nil
}

// RecordTermination records where and when the ferry stopped
func (b *Backend) RecordTermination(e *core.Termination) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.run == nil {
		return ErrNoRun
	}
	t := *e
	b.termination = &t
	return nil
}

// Voyages returns the recorded voyages in number order.
func (b *Backend) Voyages() []VoyageRecord {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.sortedVoyages()
}

// sortedVoyages copies the voyage records in number order. Callers hold mu.
func (b *Backend) sortedVoyages() []VoyageRecord {
	out := make([]VoyageRecord, 0, len(b.voyages))
	for _, v := range b.voyages {
		out = append(out, *v)
	}
	slices.SortFunc(out, func(a, b VoyageRecord) int { return a.Number - b.Number })
	return out
}

// TollPasses returns the recorded toll passages.
func (b *Backend) TollPasses() []core.TollPass {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.tollPasses)
}

// Completions returns the recorded completions.
func (b *Backend) Completions() []core.Completion {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.completions)
}

// GetExportedFilePath returns the path of the last export, empty before the
// first EndRun.
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}
