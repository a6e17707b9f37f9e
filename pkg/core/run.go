// pkg/core/run.go
package core

import "time"

// Run describes one simulation run as recorded by storage backends.
type Run struct {
	ID        string
	StartTime time.Time
	Rule      string
	Admission string
	Capacity  int
	Settings  map[string]any
	Vehicles  []Vehicle
}

// Summary closes a run.
type Summary struct {
	EndTime    time.Time
	Voyages    int
	Completed  int
	Stranded   []int
	Terminated bool
}
