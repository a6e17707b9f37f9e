package ferry

import (
	"errors"
	"sync"
	"time"

	"github.com/OCAP2/ferry/pkg/core"
)

// ErrReleased is returned to a blocked vehicle or scheduler when the driver
// releases the boarding state.
var ErrReleased = errors.New("boarding state released")

const noOffer = -1

// State is the shared boarding state: which shore the ferry is moored at and
// how much is aboard. Every field is guarded by mu, which the scheduler and
// all vehicle actors share.
//
// berthAvailable is broadcast by the scheduler when a berth may be taken.
// vehicleBoarded is signalled by a vehicle after it boarded.
type State struct {
	mu             sync.Mutex
	berthAvailable *sync.Cond
	vehicleBoarded *sync.Cond

	capacity  int
	rule      Rule
	admission Admission
	emit      Emitter

	side      core.Side
	load      int
	docked    bool
	offer     int
	voyage    int
	boardings uint64
	aboard    []int
	waiting   [2]int
	completed int
	released  bool
}

// NewState returns a boarding state with the ferry moored at side A, not yet
// accepting vehicles.
func NewState(capacity int, rule Rule, admission Admission, emit Emitter) *State {
	if emit == nil {
		emit = Discard
	}
	s := &State{
		capacity:  capacity,
		rule:      rule,
		admission: admission,
		emit:      emit,
		side:      core.SideA,
		offer:     noOffer,
		voyage:    1,
	}
	s.berthAvailable = sync.NewCond(&s.mu)
	s.vehicleBoarded = sync.NewCond(&s.mu)
	return s
}

// Snapshot is a consistent copy of the observable boarding state.
type Snapshot struct {
	Side      core.Side
	Load      int
	Capacity  int
	Docked    bool
	Voyage    int
	Waiting   [2]int
	Completed int
	Boardings uint64
	Released  bool
}

// Snapshot returns the current state under the boarding lock.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Side:      s.side,
		Load:      s.load,
		Capacity:  s.capacity,
		Docked:    s.docked,
		Voyage:    s.voyage,
		Waiting:   s.waiting,
		Completed: s.completed,
		Boardings: s.boardings,
		Released:  s.released,
	}
}

// Board queues v on its current shore and blocks until it is admitted, then
// moves it aboard: the load grows by its size, its side flips and its leg
// count goes up by one. It returns ErrReleased if the state is released while
// v is still waiting.
func (s *State) Board(v *core.Vehicle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	from := v.Side
	s.waiting[from]++
	for !s.admits(v) {
		if s.released {
			s.waiting[from]--
			return ErrReleased
		}
		s.berthAvailable.Wait()
	}

	s.load += v.Size()
	s.waiting[from]--
	s.aboard = append(s.aboard, v.ID)
	if s.offer == v.ID {
		s.offer = noOffer
	}
	v.Side = from.Opposite()
	v.Legs++
	s.boardings++

	s.emit.Emit(core.KindBoarding, core.Boarding{
		Time:      time.Now(),
		Voyage:    s.voyage,
		VehicleID: v.ID,
		Class:     v.Class,
		Side:      from,
		Leg:       v.Legs,
		Load:      s.load,
	})

	s.vehicleBoarded.Signal()
	return nil
}

// admits is the full admission check for a waiting vehicle. Callers hold mu.
func (s *State) admits(v *core.Vehicle) bool {
	if !s.docked || s.released {
		return false
	}
	if s.admission == Ordered && s.offer != v.ID {
		return false
	}
	return s.rule.Eligible(v, s.side) && s.load+v.Size() <= s.capacity
}

// Complete records that v finished its round trip.
func (s *State) Complete(v *core.Vehicle) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.completed++
	s.emit.Emit(core.KindCompletion, core.Completion{
		Time:        time.Now(),
		VehicleID:   v.ID,
		Class:       v.Class,
		InitialSide: v.InitialSide,
		FinalSide:   v.Side,
	})
}

// Release wakes every goroutine blocked on the boarding state. Waiting
// vehicles and a scheduler waiting for a boarding return ErrReleased; no
// vehicle is admitted afterwards.
func (s *State) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.released = true
	s.docked = false
	s.berthAvailable.Broadcast()
	s.vehicleBoarded.Broadcast()
}

// Completed returns the number of vehicles that finished both legs.
func (s *State) Completed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.completed
}
