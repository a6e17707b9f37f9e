// pkg/core/events.go
package core

import (
	"time"
)

// Event kinds, used as dispatcher commands.
const (
	KindTollPass    = ":TOLL:PASS:"
	KindBoarding    = ":BOARDING:"
	KindSkip        = ":SKIP:"
	KindDeparture   = ":DEPARTURE:"
	KindArrival     = ":ARRIVAL:"
	KindCompletion  = ":COMPLETION:"
	KindTermination = ":TERMINATION:"
)

// TollPass is emitted when a vehicle holds a toll lane before queueing.
type TollPass struct {
	Time      time.Time
	VehicleID int
	Class     Class
	Lane      int
	Side      Side
	Leg       int // 1-based leg the vehicle is about to attempt
}

// Boarding is emitted when a vehicle is admitted onto the ferry.
type Boarding struct {
	Time      time.Time
	Voyage    int
	VehicleID int
	Class     Class
	Side      Side // shore the vehicle boarded from
	Leg       int  // 1-based leg this boarding starts
	Load      int  // ferry load after this vehicle
}

// Skip is emitted once per loading phase for every eligible vehicle that could
// not fit in the remaining space.
type Skip struct {
	Time      time.Time
	Voyage    int
	VehicleID int
	Class     Class
	Side      Side
	Required  int
	Available int
}

// Deficit is the number of capacity units missing for the vehicle to fit.
func (s Skip) Deficit() int {
	return s.Required - s.Available
}

// Departure is emitted when the ferry leaves a shore.
type Departure struct {
	Time     time.Time
	Voyage   int
	From     Side
	To       Side
	Load     int
	Vehicles []int
}

// Arrival is emitted when the ferry moors on the other shore and unloads.
type Arrival struct {
	Time   time.Time
	Voyage int
	Side   Side
}

// Completion is emitted when a vehicle finishes its round trip.
type Completion struct {
	Time        time.Time
	VehicleID   int
	Class       Class
	InitialSide Side
	FinalSide   Side
}

// Termination is emitted when the scheduler stops for good.
type Termination struct {
	Time      time.Time
	Side      Side
	Voyages   int
	Completed int
}
