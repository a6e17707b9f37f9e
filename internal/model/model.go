package model

import (
	"database/sql"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&Run{},
	&Vehicle{},
	&TollPass{},
	&Boarding{},
	&Skip{},
	&Voyage{},
	&Completion{},
}

////////////////////////
// RUN MODELS
////////////////////////

// Run is one simulation run
type Run struct {
	gorm.Model
	RunID      string         `json:"runId" gorm:"size:36;uniqueIndex"`
	StartTime  time.Time      `json:"startTime"`
	EndTime    sql.NullTime   `json:"endTime"`
	Rule       string         `json:"rule" gorm:"size:32"`
	Admission  string         `json:"admission" gorm:"size:32"`
	Capacity   int            `json:"capacity"`
	Settings   datatypes.JSON `json:"settings"`
	Voyages    int            `json:"voyages"`
	Completed  int            `json:"completed"`
	Stranded   datatypes.JSON `json:"stranded"`
	Terminated bool           `json:"terminated"`
	// FinalSide is the shore the ferry stopped at, -1 until termination.
	FinalSide int `json:"finalSide" gorm:"default:-1"`
}

func (*Run) TableName() string {
	return "runs"
}

// Vehicle is a member of a run's fleet
type Vehicle struct {
	ID          uint   `json:"id" gorm:"primarykey;autoIncrement;"`
	RunID       uint   `json:"runId" gorm:"index:idx_vehicle_run_id"`
	Run         Run    `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:RunID;"`
	VehicleID   int    `json:"vehicleId" gorm:"index:idx_vehicle_vehicle_id"`
	Class       string `json:"class" gorm:"size:16"`
	Size        int    `json:"size"`
	InitialSide int    `json:"initialSide"`
	TollLane    int    `json:"tollLane"`
}

func (*Vehicle) TableName() string {
	return "vehicles"
}

////////////////////////
// EVENT MODELS
////////////////////////

// TollPass is a toll lane passage before a boarding attempt
type TollPass struct {
	ID        uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time      time.Time `json:"time"`
	RunID     uint      `json:"runId" gorm:"index:idx_tollpass_run_id"`
	Run       Run       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:RunID;"`
	VehicleID int       `json:"vehicleId"`
	Class     string    `json:"class" gorm:"size:16"`
	Lane      int       `json:"lane"`
	Side      int       `json:"side"`
	Leg       int       `json:"leg"`
}

func (*TollPass) TableName() string {
	return "toll_passes"
}

// Boarding is a vehicle admitted onto the ferry
type Boarding struct {
	ID        uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time      time.Time `json:"time"`
	RunID     uint      `json:"runId" gorm:"index:idx_boarding_run_id"`
	Run       Run       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:RunID;"`
	Voyage    int       `json:"voyage" gorm:"index:idx_boarding_voyage"`
	VehicleID int       `json:"vehicleId"`
	Class     string    `json:"class" gorm:"size:16"`
	Side      int       `json:"side"`
	Leg       int       `json:"leg"`
	Load      int       `json:"load"`
}

func (*Boarding) TableName() string {
	return "boardings"
}

// Skip is an eligible vehicle left behind for lack of space
type Skip struct {
	ID        uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time      time.Time `json:"time"`
	RunID     uint      `json:"runId" gorm:"index:idx_skip_run_id"`
	Run       Run       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:RunID;"`
	Voyage    int       `json:"voyage"`
	VehicleID int       `json:"vehicleId"`
	Class     string    `json:"class" gorm:"size:16"`
	Side      int       `json:"side"`
	Required  int       `json:"required"`
	Available int       `json:"available"`
}

func (*Skip) TableName() string {
	return "skips"
}

// Voyage is one crossing, written at departure and closed on arrival
type Voyage struct {
	ID         uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	RunID      uint           `json:"runId" gorm:"uniqueIndex:idx_voyage_run_number"`
	Run        Run            `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:RunID;"`
	Number     int            `json:"number" gorm:"uniqueIndex:idx_voyage_run_number"`
	FromSide   int            `json:"fromSide"`
	ToSide     int            `json:"toSide"`
	Load       int            `json:"load"`
	Vehicles   datatypes.JSON `json:"vehicles"`
	DepartedAt time.Time      `json:"departedAt"`
	ArrivedAt  sql.NullTime   `json:"arrivedAt"`
}

func (*Voyage) TableName() string {
	return "voyages"
}

// Completion is a vehicle finishing its round trip
type Completion struct {
	ID          uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time        time.Time `json:"time"`
	RunID       uint      `json:"runId" gorm:"index:idx_completion_run_id"`
	Run         Run       `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:RunID;"`
	VehicleID   int       `json:"vehicleId"`
	Class       string    `json:"class" gorm:"size:16"`
	InitialSide int       `json:"initialSide"`
	FinalSide   int       `json:"finalSide"`
}

func (*Completion) TableName() string {
	return "completions"
}
