package fleet

import (
	"math/rand"
	"testing"

	"github.com/OCAP2/ferry/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_DefaultPopulation(t *testing.T) {
	cfg := Config{Cars: 12, Minibuses: 10, Trucks: 8, InitialSide: SideRandom, TollLanes: 4}

	vehicles, err := Generate(cfg, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	require.Len(t, vehicles, 30)

	counts := make(map[core.Class]int)
	for i, v := range vehicles {
		assert.Equal(t, i, v.ID)
		assert.Equal(t, 0, v.Legs)
		assert.Equal(t, v.InitialSide, v.Side)
		counts[v.Class]++

		if v.Side == core.SideA {
			assert.Contains(t, []int{0, 1}, v.TollLane)
		} else {
			assert.Contains(t, []int{2, 3}, v.TollLane)
		}
	}
	assert.Equal(t, 12, counts[core.Car])
	assert.Equal(t, 10, counts[core.Minibus])
	assert.Equal(t, 8, counts[core.Truck])

	// scan order is cars, minibuses, trucks
	assert.Equal(t, core.Car, vehicles[0].Class)
	assert.Equal(t, core.Minibus, vehicles[12].Class)
	assert.Equal(t, core.Truck, vehicles[29].Class)
}

func TestGenerate_FixedSide(t *testing.T) {
	tests := []struct {
		name   string
		policy string
		want   core.Side
	}{
		{name: "side 0", policy: SideA, want: core.SideA},
		{name: "side 1", policy: SideB, want: core.SideB},
		{name: "letter b", policy: "B", want: core.SideB},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vehicles, err := Generate(Config{Cars: 3, Trucks: 2, InitialSide: tt.policy, TollLanes: 4}, rand.New(rand.NewSource(7)))
			require.NoError(t, err)
			for _, v := range vehicles {
				assert.Equal(t, tt.want, v.Side)
			}
		})
	}
}

func TestGenerate_SameSeedSamePopulation(t *testing.T) {
	cfg := Config{Cars: 5, Minibuses: 5, Trucks: 5, TollLanes: 4}
	a, err := Generate(cfg, rand.New(rand.NewSource(99)))
	require.NoError(t, err)
	b, err := Generate(cfg, rand.New(rand.NewSource(99)))
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestGenerate_Errors(t *testing.T) {
	_, err := Generate(Config{Cars: 1, TollLanes: 1}, rand.New(rand.NewSource(1)))
	assert.Error(t, err)

	_, err = Generate(Config{Cars: -1, TollLanes: 4}, rand.New(rand.NewSource(1)))
	assert.Error(t, err)

	_, err = Generate(Config{Cars: 1, TollLanes: 4, InitialSide: "north"}, rand.New(rand.NewSource(1)))
	assert.Error(t, err)
}

func TestPickLane_OddLaneCount(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 50; i++ {
		assert.Equal(t, 0, pickLane(core.SideA, 3, rng))
		assert.Contains(t, []int{1, 2}, pickLane(core.SideB, 3, rng))
	}
}
