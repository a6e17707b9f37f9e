package ferry

import (
	"context"
	"slices"
	"time"

	"github.com/OCAP2/ferry/pkg/core"
	"github.com/rs/zerolog"
)

// Scheduler is the ferry: it owns the loading/crossing cycle of State.
type Scheduler struct {
	state  *State
	fleet  []*core.Vehicle
	delays Delays
	log    zerolog.Logger
}

// NewScheduler returns a scheduler that scans fleet in slice order.
func NewScheduler(state *State, fleet []*core.Vehicle, delays Delays, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		state:  state,
		fleet:  fleet,
		delays: delays,
		log:    log,
	}
}

// Run loads, crosses and unloads until no further trip is possible, then
// returns nil. It returns ErrReleased or ctx's error if stopped from outside.
func (s *Scheduler) Run(ctx context.Context) error {
	st := s.state
	st.mu.Lock()
	for {
		st.docked = true
		if err := s.loadPhase(); err != nil {
			st.docked = false
			st.mu.Unlock()
			return err
		}
		s.reportSkipped()

		if st.load == 0 {
			if remaining := s.countEligible(st.side); remaining > 0 {
				s.log.Debug().Int("remaining", remaining).Int("side", int(st.side)).
					Msg("Nothing boardable yet, waiting")
				if err := s.awaitBoarding(); err != nil {
					st.docked = false
					st.mu.Unlock()
					return err
				}
				continue
			}
			if !st.rule.GlobalTermination || s.countPending() == 0 {
				s.terminate()
				st.mu.Unlock()
				return nil
			}
			s.log.Debug().Int("side", int(st.side)).Msg("Shore empty, crossing to collect pending vehicles")
		}

		if err := s.crossAndUnload(ctx); err != nil {
			return err
		}
		st.mu.Lock()
	}
}

// loadPhase offers berths until no eligible vehicle fits. Callers hold mu.
func (s *Scheduler) loadPhase() error {
	st := s.state
	for {
		v := s.firstFit()
		if v == nil {
			st.offer = noOffer
			return nil
		}
		st.offer = v.ID
		st.berthAvailable.Broadcast()
		if err := s.awaitBoarding(); err != nil {
			return err
		}
	}
}

// awaitBoarding blocks until some vehicle boards. Callers hold mu.
func (s *Scheduler) awaitBoarding() error {
	st := s.state
	seq := st.boardings
	for st.boardings == seq {
		if st.released {
			return ErrReleased
		}
		st.vehicleBoarded.Wait()
	}
	return nil
}

// firstFit returns the first vehicle in scan order that is eligible and fits.
func (s *Scheduler) firstFit() *core.Vehicle {
	st := s.state
	for _, v := range s.fleet {
		if st.rule.Eligible(v, st.side) && st.load+v.Size() <= st.capacity {
			return v
		}
	}
	return nil
}

// reportSkipped emits a Skip for every eligible vehicle that does not fit in
// the space left this phase.
func (s *Scheduler) reportSkipped() {
	st := s.state
	available := st.capacity - st.load
	for _, v := range s.fleet {
		if !st.rule.Eligible(v, st.side) {
			continue
		}
		if v.Size() > available {
			st.emit.Emit(core.KindSkip, core.Skip{
				Time:      time.Now(),
				Voyage:    st.voyage,
				VehicleID: v.ID,
				Class:     v.Class,
				Side:      st.side,
				Required:  v.Size(),
				Available: available,
			})
		}
	}
}

func (s *Scheduler) countEligible(side core.Side) int {
	n := 0
	for _, v := range s.fleet {
		if s.state.rule.Eligible(v, side) {
			n++
		}
	}
	return n
}

func (s *Scheduler) countPending() int {
	n := 0
	for _, v := range s.fleet {
		if !v.Done() {
			n++
		}
	}
	return n
}

// crossAndUnload departs, holds the transit delay, flips the shore, empties
// the ferry and holds the unload delay. Called with mu held; returns with mu
// released.
func (s *Scheduler) crossAndUnload(ctx context.Context) error {
	st := s.state
	st.docked = false
	from := st.side
	voyage := st.voyage
	st.emit.Emit(core.KindDeparture, core.Departure{
		Time:     time.Now(),
		Voyage:   voyage,
		From:     from,
		To:       from.Opposite(),
		Load:     st.load,
		Vehicles: slices.Clone(st.aboard),
	})
	st.mu.Unlock()

	if err := hold(ctx, s.delays.Transit()); err != nil {
		return err
	}

	st.mu.Lock()
	st.side = from.Opposite()
	st.load = 0
	st.aboard = st.aboard[:0]
	st.voyage++
	st.emit.Emit(core.KindArrival, core.Arrival{
		Time:   time.Now(),
		Voyage: voyage,
		Side:   st.side,
	})
	st.mu.Unlock()

	return hold(ctx, s.delays.Unload())
}

// terminate closes boarding for good. Callers hold mu.
func (s *Scheduler) terminate() {
	st := s.state
	st.docked = false
	st.offer = noOffer
	st.emit.Emit(core.KindTermination, core.Termination{
		Time:      time.Now(),
		Side:      st.side,
		Voyages:   st.voyage - 1,
		Completed: len(s.fleet) - s.countPending(),
	})
}
