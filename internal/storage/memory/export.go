// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// RunExport is the root JSON structure
type RunExport struct {
	RunID       string           `json:"runId"`
	StartTime   time.Time        `json:"startTime"`
	EndTime     time.Time        `json:"endTime"`
	Rule        string           `json:"rule"`
	Admission   string           `json:"admission"`
	Capacity    int              `json:"capacity"`
	Settings    map[string]any   `json:"settings,omitempty"`
	Vehicles    []VehicleJSON    `json:"vehicles"`
	Voyages     []VoyageJSON     `json:"voyages"`
	TollPasses  []TollPassJSON   `json:"tollPasses"`
	Completions []CompletionJSON `json:"completions"`
	Summary     SummaryJSON      `json:"summary"`
}

// VehicleJSON represents a fleet member
type VehicleJSON struct {
	ID          int    `json:"id"`
	Class       string `json:"class"`
	Size        int    `json:"size"`
	InitialSide int    `json:"initialSide"`
	TollLane    int    `json:"tollLane"`
}

// VoyageJSON represents one crossing with its loading phase
type VoyageJSON struct {
	Number     int            `json:"number"`
	From       int            `json:"from"`
	To         int            `json:"to"`
	Load       int            `json:"load"`
	Vehicles   []int          `json:"vehicles"`
	DepartedAt *time.Time     `json:"departedAt,omitempty"`
	ArrivedAt  *time.Time     `json:"arrivedAt,omitempty"`
	Boardings  []BoardingJSON `json:"boardings"`
	Skips      []SkipJSON     `json:"skips"`
}

// BoardingJSON represents a vehicle admitted during a loading phase
type BoardingJSON struct {
	VehicleID int       `json:"vehicleId"`
	Leg       int       `json:"leg"`
	Load      int       `json:"load"`
	Time      time.Time `json:"time"`
}

// SkipJSON represents a vehicle left behind for lack of space
type SkipJSON struct {
	VehicleID int `json:"vehicleId"`
	Required  int `json:"required"`
	Available int `json:"available"`
}

// TollPassJSON represents a toll lane passage
type TollPassJSON struct {
	VehicleID int       `json:"vehicleId"`
	Lane      int       `json:"lane"`
	Side      int       `json:"side"`
	Leg       int       `json:"leg"`
	Time      time.Time `json:"time"`
}

// CompletionJSON represents a finished round trip
type CompletionJSON struct {
	VehicleID int       `json:"vehicleId"`
	FinalSide int       `json:"finalSide"`
	Time      time.Time `json:"time"`
}

// SummaryJSON closes the run
type SummaryJSON struct {
	Voyages    int   `json:"voyages"`
	Completed  int   `json:"completed"`
	Stranded   []int `json:"stranded"`
	Terminated bool  `json:"terminated"`
	// FinalSide is -1 when the ferry never terminated.
	FinalSide int `json:"finalSide"`
}

// exportJSON writes the run data to a (optionally gzipped) JSON file. Callers
// hold mu.
func (b *Backend) exportJSON() error {
	export := b.buildExport()

	id := b.run.ID
	if len(id) > 8 {
		id = id[:8]
	}
	timestamp := b.run.StartTime.Format("20060102_150405")

	var filename string
	if b.cfg.CompressOutput {
		filename = fmt.Sprintf("ferry_%s_%s.json.gz", timestamp, id)
	} else {
		filename = fmt.Sprintf("ferry_%s_%s.json", timestamp, id)
	}

	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	// Ensure output directory exists
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// Write file
	if b.cfg.CompressOutput {
		if err := writeGzipJSON(outputPath, export); err != nil {
			return err
		}
	} else {
		if err := writeJSON(outputPath, export); err != nil {
			return err
		}
	}

	b.lastExportPath = outputPath
	return nil
}

func (b *Backend) buildExport() RunExport {
	export := RunExport{
		RunID:       b.run.ID,
		StartTime:   b.run.StartTime,
		Rule:        b.run.Rule,
		Admission:   b.run.Admission,
		Capacity:    b.run.Capacity,
		Settings:    b.run.Settings,
		Vehicles:    make([]VehicleJSON, 0, len(b.run.Vehicles)),
		Voyages:     make([]VoyageJSON, 0, len(b.voyages)),
		TollPasses:  make([]TollPassJSON, 0, len(b.tollPasses)),
		Completions: make([]CompletionJSON, 0, len(b.completions)),
		Summary:     SummaryJSON{Stranded: []int{}, FinalSide: -1},
	}

	for _, v := range b.run.Vehicles {
		export.Vehicles = append(export.Vehicles, VehicleJSON{
			ID:          v.ID,
			Class:       v.Class.String(),
			Size:        v.Class.Size(),
			InitialSide: int(v.InitialSide),
			TollLane:    v.TollLane,
		})
	}

	for _, v := range b.sortedVoyages() {
		export.Voyages = append(export.Voyages, voyageJSON(v))
	}

	for _, p := range b.tollPasses {
		export.TollPasses = append(export.TollPasses, TollPassJSON{
			VehicleID: p.VehicleID,
			Lane:      p.Lane,
			Side:      int(p.Side),
			Leg:       p.Leg,
			Time:      p.Time,
		})
	}

	for _, c := range b.completions {
		export.Completions = append(export.Completions, CompletionJSON{
			VehicleID: c.VehicleID,
			FinalSide: int(c.FinalSide),
			Time:      c.Time,
		})
	}

	if s := b.summary; s != nil {
		export.EndTime = s.EndTime
		export.Summary.Voyages = s.Voyages
		export.Summary.Completed = s.Completed
		export.Summary.Terminated = s.Terminated
		if len(s.Stranded) > 0 {
			export.Summary.Stranded = s.Stranded
		}
	}
	if b.termination != nil {
		export.Summary.FinalSide = int(b.termination.Side)
	}

	return export
}

func voyageJSON(v VoyageRecord) VoyageJSON {
	out := VoyageJSON{
		Number:    v.Number,
		Vehicles:  []int{},
		Boardings: make([]BoardingJSON, 0, len(v.Boardings)),
		Skips:     make([]SkipJSON, 0, len(v.Skips)),
	}
	if d := v.Departure; d != nil {
		out.From = int(d.From)
		out.To = int(d.To)
		out.Load = d.Load
		if d.Vehicles != nil {
			out.Vehicles = d.Vehicles
		}
		t := d.Time
		out.DepartedAt = &t
	}
	if a := v.Arrival; a != nil {
		t := a.Time
		out.ArrivedAt = &t
	}
	for _, bd := range v.Boardings {
		out.Boardings = append(out.Boardings, BoardingJSON{
			VehicleID: bd.VehicleID,
			Leg:       bd.Leg,
			Load:      bd.Load,
			Time:      bd.Time,
		})
	}
	for _, s := range v.Skips {
		out.Skips = append(out.Skips, SkipJSON{
			VehicleID: s.VehicleID,
			Required:  s.Required,
			Available: s.Available,
		})
	}
	return out
}

func writeJSON(path string, data RunExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	return encoder.Encode(data)
}

func writeGzipJSON(path string, data RunExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	defer gzWriter.Close()

	encoder := json.NewEncoder(gzWriter)
	return encoder.Encode(data)
}

// ReadExport decodes an export file written by EndRun.
func ReadExport(path string) (*RunExport, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var dec *json.Decoder
	if filepath.Ext(path) == ".gz" {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer gz.Close()
		dec = json.NewDecoder(gz)
	} else {
		dec = json.NewDecoder(f)
	}

	var export RunExport
	if err := dec.Decode(&export); err != nil {
		return nil, fmt.Errorf("failed to decode export: %w", err)
	}
	return &export, nil
}

