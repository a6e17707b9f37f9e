// Package convert provides functions to convert core simulation types to GORM models
package convert

import (
	"database/sql"
	"encoding/json"

	"github.com/OCAP2/ferry/internal/model"
	"github.com/OCAP2/ferry/pkg/core"
	"gorm.io/datatypes"
)

// toJSON marshals v for a JSON column, falling back to fallback on error or nil.
func toJSON(v any, fallback string) datatypes.JSON {
	if v == nil {
		return datatypes.JSON(fallback)
	}
	data, err := json.Marshal(v)
	if err != nil || string(data) == "null" {
		return datatypes.JSON(fallback)
	}
	return datatypes.JSON(data)
}

// CoreToRun converts a core.Run to a GORM model.Run.
func CoreToRun(r core.Run) model.Run {
	return model.Run{
		RunID:     r.ID,
		StartTime: r.StartTime,
		Rule:      r.Rule,
		Admission: r.Admission,
		Capacity:  r.Capacity,
		Settings:  toJSON(r.Settings, "{}"),
		Stranded:  datatypes.JSON("[]"),
		FinalSide: -1,
	}
}

// ApplySummary copies the closing summary of a run onto its row.
func ApplySummary(run *model.Run, s core.Summary) {
	run.EndTime = sql.NullTime{Time: s.EndTime, Valid: !s.EndTime.IsZero()}
	run.Voyages = s.Voyages
	run.Completed = s.Completed
	run.Stranded = toJSON(s.Stranded, "[]")
	run.Terminated = s.Terminated
}

// CoreToVehicles converts the fleet of a run.
func CoreToVehicles(runID uint, vehicles []core.Vehicle) []model.Vehicle {
	out := make([]model.Vehicle, len(vehicles))
	for i, v := range vehicles {
		out[i] = model.Vehicle{
			RunID:       runID,
			VehicleID:   v.ID,
			Class:       v.Class.String(),
			Size:        v.Class.Size(),
			InitialSide: int(v.InitialSide),
			TollLane:    v.TollLane,
		}
	}
	return out
}

// CoreToTollPass converts a core.TollPass to a GORM model.TollPass.
func CoreToTollPass(e core.TollPass) model.TollPass {
	return model.TollPass{
		Time:      e.Time,
		VehicleID: e.VehicleID,
		Class:     e.Class.String(),
		Lane:      e.Lane,
		Side:      int(e.Side),
		Leg:       e.Leg,
	}
}

// CoreToBoarding converts a core.Boarding to a GORM model.Boarding.
func CoreToBoarding(e core.Boarding) model.Boarding {
	return model.Boarding{
		Time:      e.Time,
		Voyage:    e.Voyage,
		VehicleID: e.VehicleID,
		Class:     e.Class.String(),
		Side:      int(e.Side),
		Leg:       e.Leg,
		Load:      e.Load,
	}
}

// CoreToSkip converts a core.Skip to a GORM model.Skip.
func CoreToSkip(e core.Skip) model.Skip {
	return model.Skip{
		Time:      e.Time,
		Voyage:    e.Voyage,
		VehicleID: e.VehicleID,
		Class:     e.Class.String(),
		Side:      int(e.Side),
		Required:  e.Required,
		Available: e.Available,
	}
}

// CoreToVoyage converts a departure into an open voyage row.
func CoreToVoyage(e core.Departure) model.Voyage {
	return model.Voyage{
		Number:     e.Voyage,
		FromSide:   int(e.From),
		ToSide:     int(e.To),
		Load:       e.Load,
		Vehicles:   toJSON(e.Vehicles, "[]"),
		DepartedAt: e.Time,
	}
}

// CoreToCompletion converts a core.Completion to a GORM model.Completion.
func CoreToCompletion(e core.Completion) model.Completion {
	return model.Completion{
		Time:        e.Time,
		VehicleID:   e.VehicleID,
		Class:       e.Class.String(),
		InitialSide: int(e.InitialSide),
		FinalSide:   int(e.FinalSide),
	}
}
