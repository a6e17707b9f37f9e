// internal/storage/storage.go
package storage

import "github.com/OCAP2/ferry/pkg/core"

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Run management
	StartRun(run *core.Run) error
	EndRun(summary *core.Summary) error

	// Event recording
	RecordTollPass(e *core.TollPass) error
	RecordBoarding(e *core.Boarding) error
	RecordSkip(e *core.Skip) error
	RecordDeparture(e *core.Departure) error
	RecordArrival(e *core.Arrival) error
	RecordCompletion(e *core.Completion) error
	RecordTermination(e *core.Termination) error
}

// Exportable is an optional interface for storage backends that write the
// finished run to a file.
type Exportable interface {
	GetExportedFilePath() string
}

// Nop discards everything. It backs storage type "none".
type Nop struct{}

func (Nop) Init() error                               { return nil }
func (Nop) Close() error                              { return nil }
func (Nop) StartRun(*core.Run) error                  { return nil }
func (Nop) EndRun(*core.Summary) error                { return nil }
func (Nop) RecordTollPass(*core.TollPass) error       { return nil }
func (Nop) RecordBoarding(*core.Boarding) error       { return nil }
func (Nop) RecordSkip(*core.Skip) error               { return nil }
func (Nop) RecordDeparture(*core.Departure) error     { return nil }
func (Nop) RecordArrival(*core.Arrival) error         { return nil }
func (Nop) RecordCompletion(*core.Completion) error   { return nil }
func (Nop) RecordTermination(*core.Termination) error { return nil }
