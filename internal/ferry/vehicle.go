package ferry

import (
	"context"

	"github.com/OCAP2/ferry/pkg/core"
)

// Actor drives one vehicle through both legs of its round trip.
type Actor struct {
	vehicle *core.Vehicle
	state   *State
	tolls   *TollGate
	delays  Delays
}

// NewActor returns the actor for v.
func NewActor(v *core.Vehicle, state *State, tolls *TollGate, delays Delays) *Actor {
	return &Actor{
		vehicle: v,
		state:   state,
		tolls:   tolls,
		delays:  delays,
	}
}

// Vehicle returns the vehicle driven by a.
func (a *Actor) Vehicle() *core.Vehicle {
	return a.vehicle
}

// Run passes the toll and boards once per leg, then records completion.
// Only this goroutine writes the vehicle's side and leg count, so reading them
// here needs no lock.
func (a *Actor) Run(ctx context.Context) error {
	for !a.vehicle.Done() {
		if err := a.tolls.Pass(ctx, a.vehicle, a.delays.Toll(a.vehicle)); err != nil {
			return err
		}
		if err := a.state.Board(a.vehicle); err != nil {
			return err
		}
	}
	a.state.Complete(a.vehicle)
	return nil
}
