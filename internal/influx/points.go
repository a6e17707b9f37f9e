package influx

import (
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/OCAP2/ferry/pkg/core"
)

// Measurement names written for a run.
const (
	MeasurementBoarding = "ferry_boarding"
	MeasurementSkip     = "ferry_skip"
	MeasurementVoyage   = "ferry_voyage"
	MeasurementRun      = "ferry_run"
)

// BoardingPoint records one admission and the load it brought the ferry to.
func BoardingPoint(runID string, e core.Boarding) *influxdb2_write.Point {
	return influxdb2_write.NewPointWithMeasurement(MeasurementBoarding).
		AddTag("run", runID).
		AddTag("class", e.Class.String()).
		AddTag("side", sideTag(e.Side)).
		AddField("voyage", e.Voyage).
		AddField("vehicle", e.VehicleID).
		AddField("leg", e.Leg).
		AddField("load", e.Load).
		SetTime(e.Time)
}

// SkipPoint records a vehicle left behind and how much room it lacked.
func SkipPoint(runID string, e core.Skip) *influxdb2_write.Point {
	return influxdb2_write.NewPointWithMeasurement(MeasurementSkip).
		AddTag("run", runID).
		AddTag("class", e.Class.String()).
		AddTag("side", sideTag(e.Side)).
		AddField("voyage", e.Voyage).
		AddField("vehicle", e.VehicleID).
		AddField("deficit", e.Deficit()).
		SetTime(e.Time)
}

// VoyagePoint records a departure with its load factor.
func VoyagePoint(runID string, capacity int, e core.Departure) *influxdb2_write.Point {
	utilization := 0.0
	if capacity > 0 {
		utilization = float64(e.Load) / float64(capacity)
	}
	return influxdb2_write.NewPointWithMeasurement(MeasurementVoyage).
		AddTag("run", runID).
		AddTag("from", sideTag(e.From)).
		AddField("voyage", e.Voyage).
		AddField("load", e.Load).
		AddField("vehicles", len(e.Vehicles)).
		AddField("utilization", utilization).
		SetTime(e.Time)
}

// RunPoint records the outcome of a run.
func RunPoint(runID, rule, admission string, s core.Summary) *influxdb2_write.Point {
	return influxdb2_write.NewPointWithMeasurement(MeasurementRun).
		AddTag("run", runID).
		AddTag("rule", rule).
		AddTag("admission", admission).
		AddField("voyages", s.Voyages).
		AddField("completed", s.Completed).
		AddField("stranded", len(s.Stranded)).
		AddField("terminated", s.Terminated).
		SetTime(s.EndTime)
}

func sideTag(s core.Side) string {
	if s == core.SideB {
		return "1"
	}
	return "0"
}
