// Package fleet builds the vehicle population for a run.
package fleet

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/OCAP2/ferry/pkg/core"
)

// Initial side policies.
const (
	SideRandom = "random"
	SideA      = "0"
	SideB      = "1"
)

// Config describes the population.
type Config struct {
	Cars        int
	Minibuses   int
	Trucks      int
	InitialSide string
	TollLanes   int
}

// Total returns the number of vehicles described by c.
func (c Config) Total() int {
	return c.Cars + c.Minibuses + c.Trucks
}

func (c Config) count(class core.Class) int {
	switch class {
	case core.Car:
		return c.Cars
	case core.Minibus:
		return c.Minibuses
	case core.Truck:
		return c.Trucks
	}
	return 0
}

// Generate creates every vehicle in scan order: cars first, then minibuses,
// then trucks, with consecutive IDs from 0. Each vehicle gets a toll lane on
// the half of the gate that belongs to its starting shore.
func Generate(cfg Config, rng *rand.Rand) ([]*core.Vehicle, error) {
	if cfg.TollLanes < 2 {
		return nil, fmt.Errorf("need at least 2 toll lanes, got %d", cfg.TollLanes)
	}

	vehicles := make([]*core.Vehicle, 0, cfg.Total())
	id := 0
	for _, class := range core.Classes {
		n := cfg.count(class)
		if n < 0 {
			return nil, fmt.Errorf("negative %s count: %d", class, n)
		}
		for i := 0; i < n; i++ {
			side, err := pickSide(cfg.InitialSide, rng)
			if err != nil {
				return nil, err
			}
			vehicles = append(vehicles, core.NewVehicle(id, class, side, pickLane(side, cfg.TollLanes, rng)))
			id++
		}
	}
	return vehicles, nil
}

func pickSide(policy string, rng *rand.Rand) (core.Side, error) {
	switch strings.ToLower(policy) {
	case SideRandom, "":
		return core.Side(rng.Intn(2)), nil
	case SideA, "a":
		return core.SideA, nil
	case SideB, "b":
		return core.SideB, nil
	default:
		return core.SideA, fmt.Errorf("unknown initial side policy: %s", policy)
	}
}

// pickLane returns a lane in [0, lanes/2) for side A and [lanes/2, lanes) for
// side B.
func pickLane(side core.Side, lanes int, rng *rand.Rand) int {
	split := lanes / 2
	if side == core.SideA {
		return rng.Intn(split)
	}
	return split + rng.Intn(lanes-split)
}
