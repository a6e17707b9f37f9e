package ferry

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/OCAP2/ferry/pkg/core"
)

// Delays provides every hold duration used by the simulation.
type Delays interface {
	Toll(v *core.Vehicle) time.Duration
	Transit() time.Duration
	Unload() time.Duration
}

// FixedDelays returns the same durations every time. The zero value makes a
// simulation run without sleeping.
type FixedDelays struct {
	TollDelay    time.Duration
	TransitDelay time.Duration
	UnloadDelay  time.Duration
}

func (d FixedDelays) Toll(*core.Vehicle) time.Duration { return d.TollDelay }
func (d FixedDelays) Transit() time.Duration           { return d.TransitDelay }
func (d FixedDelays) Unload() time.Duration            { return d.UnloadDelay }

// RandomDelays draws toll delays uniformly from [TollMin, TollMax] and uses
// fixed transit and unload delays.
type RandomDelays struct {
	TollMin      time.Duration
	TollMax      time.Duration
	TransitDelay time.Duration
	UnloadDelay  time.Duration

	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomDelays returns RandomDelays seeded with seed.
func NewRandomDelays(seed int64, tollMin, tollMax, transit, unload time.Duration) *RandomDelays {
	return &RandomDelays{
		TollMin:      tollMin,
		TollMax:      tollMax,
		TransitDelay: transit,
		UnloadDelay:  unload,
		rng:          rand.New(rand.NewSource(seed)),
	}
}

// Toll returns a random duration in [TollMin, TollMax].
func (d *RandomDelays) Toll(*core.Vehicle) time.Duration {
	span := d.TollMax - d.TollMin
	if span <= 0 {
		return d.TollMin
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.TollMin + time.Duration(d.rng.Int63n(int64(span)+1))
}

func (d *RandomDelays) Transit() time.Duration { return d.TransitDelay }
func (d *RandomDelays) Unload() time.Duration  { return d.UnloadDelay }

// hold sleeps for d or until ctx is done.
func hold(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
