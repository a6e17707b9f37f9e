// internal/storage/memory/memory_test.go
package memory

import (
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/OCAP2/ferry/internal/config"
	"github.com/OCAP2/ferry/internal/storage"
	"github.com/OCAP2/ferry/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Verify Backend implements storage.Backend interface
var _ storage.Backend = (*Backend)(nil)

// Verify Backend implements storage.Exportable interface
var _ storage.Exportable = (*Backend)(nil)

var runStart = time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)

func testRun() *core.Run {
	return &core.Run{
		ID:        "0f8fad5b-d9cb-469f-a165-70867728950e",
		StartTime: runStart,
		Rule:      "direction",
		Admission: "ordered",
		Capacity:  5,
		Settings:  map[string]any{"seed": float64(7)},
		Vehicles: []core.Vehicle{
			*core.NewVehicle(0, core.Truck, core.SideA, 0),
			*core.NewVehicle(1, core.Minibus, core.SideA, 1),
			*core.NewVehicle(2, core.Car, core.SideA, 0),
		},
	}
}

// recordVoyageOne feeds the events of one loading phase and crossing.
func recordVoyageOne(t *testing.T, b *Backend) {
	t.Helper()
	at := runStart.Add(time.Second)
	require.NoError(t, b.RecordTollPass(&core.TollPass{Time: at, VehicleID: 0, Class: core.Truck, Lane: 0, Side: core.SideA, Leg: 1}))
	require.NoError(t, b.RecordBoarding(&core.Boarding{Time: at, Voyage: 1, VehicleID: 0, Class: core.Truck, Side: core.SideA, Leg: 1, Load: 3}))
	require.NoError(t, b.RecordBoarding(&core.Boarding{Time: at, Voyage: 1, VehicleID: 1, Class: core.Minibus, Side: core.SideA, Leg: 1, Load: 5}))
	require.NoError(t, b.RecordSkip(&core.Skip{Time: at, Voyage: 1, VehicleID: 2, Class: core.Car, Side: core.SideA, Required: 1, Available: 0}))
	require.NoError(t, b.RecordDeparture(&core.Departure{Time: at, Voyage: 1, From: core.SideA, To: core.SideB, Load: 5, Vehicles: []int{0, 1}}))
	require.NoError(t, b.RecordArrival(&core.Arrival{Time: at.Add(5 * time.Second), Voyage: 1, Side: core.SideB}))
}

func TestNew(t *testing.T) {
	b := New(config.MemoryConfig{OutputDir: "/tmp/test", CompressOutput: true})

	require.NotNil(t, b)
	assert.Equal(t, "/tmp/test", b.cfg.OutputDir)
	assert.True(t, b.cfg.CompressOutput)
	assert.NotNil(t, b.voyages)
}

func TestInitAndClose(t *testing.T) {
	b := New(config.MemoryConfig{})

	assert.NoError(t, b.Init())
	assert.NoError(t, b.Close())
}

func TestRecordBeforeStartRun(t *testing.T) {
	b := New(config.MemoryConfig{})

	assert.ErrorIs(t, b.RecordBoarding(&core.Boarding{}), ErrNoRun)
	assert.ErrorIs(t, b.RecordTermination(&core.Termination{}), ErrNoRun)
	assert.ErrorIs(t, b.EndRun(&core.Summary{}), ErrNoRun)
}

func TestVoyagesGroupEvents(t *testing.T) {
	b := New(config.MemoryConfig{})
	require.NoError(t, b.StartRun(testRun()))
	recordVoyageOne(t, b)
	require.NoError(t, b.RecordBoarding(&core.Boarding{Voyage: 2, VehicleID: 2, Side: core.SideB, Leg: 2, Load: 1}))

	voyages := b.Voyages()
	require.Len(t, voyages, 2)

	first := voyages[0]
	assert.Equal(t, 1, first.Number)
	require.NotNil(t, first.Departure)
	require.NotNil(t, first.Arrival)
	assert.Len(t, first.Boardings, 2)
	assert.Len(t, first.Skips, 1)

	second := voyages[1]
	assert.Equal(t, 2, second.Number)
	assert.Nil(t, second.Departure, "still loading")

	assert.Len(t, b.TollPasses(), 1)
}

func TestDepartureVehiclesAreCopied(t *testing.T) {
	b := New(config.MemoryConfig{})
	require.NoError(t, b.StartRun(testRun()))

	aboard := []int{0, 1}
	require.NoError(t, b.RecordDeparture(&core.Departure{Voyage: 1, Vehicles: aboard}))
	aboard[0] = 99

	assert.Equal(t, []int{0, 1}, b.Voyages()[0].Departure.Vehicles)
}

func TestStartRunResets(t *testing.T) {
	b := New(config.MemoryConfig{})
	require.NoError(t, b.StartRun(testRun()))
	recordVoyageOne(t, b)
	require.NoError(t, b.RecordCompletion(&core.Completion{VehicleID: 0}))

	require.NoError(t, b.StartRun(testRun()))
	assert.Empty(t, b.Voyages())
	assert.Empty(t, b.TollPasses())
	assert.Empty(t, b.Completions())
}

func TestEndRun_ExportsGzip(t *testing.T) {
	dir := t.TempDir()
	b := New(config.MemoryConfig{OutputDir: dir, CompressOutput: true})
	require.NoError(t, b.StartRun(testRun()))
	recordVoyageOne(t, b)
	require.NoError(t, b.RecordCompletion(&core.Completion{VehicleID: 0, Class: core.Truck, FinalSide: core.SideA}))
	require.NoError(t, b.RecordTermination(&core.Termination{Side: core.SideA, Voyages: 2, Completed: 1}))

	end := runStart.Add(time.Minute)
	require.NoError(t, b.EndRun(&core.Summary{EndTime: end, Voyages: 2, Completed: 1, Stranded: []int{1, 2}, Terminated: true}))

	path := b.GetExportedFilePath()
	assert.Equal(t, filepath.Join(dir, "ferry_20260402_093000_0f8fad5b.json.gz"), path)

	export, err := ReadExport(path)
	require.NoError(t, err)

	assert.Equal(t, "0f8fad5b-d9cb-469f-a165-70867728950e", export.RunID)
	assert.True(t, export.EndTime.Equal(end))
	assert.Equal(t, 5, export.Capacity)
	assert.Equal(t, float64(7), export.Settings["seed"])

	require.Len(t, export.Vehicles, 3)
	assert.Equal(t, VehicleJSON{ID: 0, Class: "Truck", Size: 3, InitialSide: 0, TollLane: 0}, export.Vehicles[0])

	require.Len(t, export.Voyages, 1)
	v := export.Voyages[0]
	assert.Equal(t, 1, v.Number)
	assert.Equal(t, 0, v.From)
	assert.Equal(t, 1, v.To)
	assert.Equal(t, []int{0, 1}, v.Vehicles)
	assert.NotNil(t, v.DepartedAt)
	assert.NotNil(t, v.ArrivedAt)
	require.Len(t, v.Boardings, 2)
	assert.Equal(t, 5, v.Boardings[1].Load)
	assert.Equal(t, []SkipJSON{{VehicleID: 2, Required: 1, Available: 0}}, v.Skips)

	assert.Len(t, export.TollPasses, 1)
	assert.Len(t, export.Completions, 1)
	assert.Equal(t, SummaryJSON{Voyages: 2, Completed: 1, Stranded: []int{1, 2}, Terminated: true, FinalSide: 0}, export.Summary)
}

func TestEndRun_ExportsPlainJSON(t *testing.T) {
	dir := t.TempDir()
	b := New(config.MemoryConfig{OutputDir: filepath.Join(dir, "nested"), CompressOutput: false})
	require.NoError(t, b.StartRun(testRun()))
	require.NoError(t, b.EndRun(&core.Summary{}))

	path := b.GetExportedFilePath()
	assert.True(t, strings.HasSuffix(path, ".json"))

	export, err := ReadExport(path)
	require.NoError(t, err)
	assert.Empty(t, export.Voyages)
	assert.Equal(t, []int{}, export.Summary.Stranded)
	assert.Equal(t, -1, export.Summary.FinalSide, "never terminated")
}

func TestConcurrentRecording(t *testing.T) {
	b := New(config.MemoryConfig{})
	require.NoError(t, b.StartRun(testRun()))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = b.RecordBoarding(&core.Boarding{Voyage: i%5 + 1, VehicleID: i})
			_ = b.RecordTollPass(&core.TollPass{VehicleID: i})
		}(i)
	}
	wg.Wait()

	total := 0
	for _, v := range b.Voyages() {
		total += len(v.Boardings)
	}
	assert.Equal(t, 50, total)
	assert.Len(t, b.TollPasses(), 50)
}
