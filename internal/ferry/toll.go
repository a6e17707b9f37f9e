package ferry

import (
	"context"
	"fmt"
	"time"

	"github.com/OCAP2/ferry/pkg/core"
	"golang.org/x/sync/semaphore"
)

// TollGate is a row of independent single-vehicle lanes in front of the
// ferry. Lanes only delay vehicles; they play no part in admission.
type TollGate struct {
	lanes []*semaphore.Weighted
	emit  Emitter
}

// NewTollGate returns a gate with n lanes.
func NewTollGate(n int, emit Emitter) *TollGate {
	if emit == nil {
		emit = Discard
	}
	lanes := make([]*semaphore.Weighted, n)
	for i := range lanes {
		lanes[i] = semaphore.NewWeighted(1)
	}
	return &TollGate{lanes: lanes, emit: emit}
}

// Lanes returns the number of lanes.
func (g *TollGate) Lanes() int {
	return len(g.lanes)
}

// Pass holds v's lane exclusively for d.
func (g *TollGate) Pass(ctx context.Context, v *core.Vehicle, d time.Duration) error {
	if v.TollLane < 0 || v.TollLane >= len(g.lanes) {
		return fmt.Errorf("vehicle %d: toll lane %d out of range", v.ID, v.TollLane)
	}
	lane := g.lanes[v.TollLane]
	if err := lane.Acquire(ctx, 1); err != nil {
		return err
	}
	defer lane.Release(1)

	g.emit.Emit(core.KindTollPass, core.TollPass{
		Time:      time.Now(),
		VehicleID: v.ID,
		Class:     v.Class,
		Lane:      v.TollLane,
		Side:      v.Side,
		Leg:       v.Legs + 1,
	})

	return hold(ctx, d)
}
