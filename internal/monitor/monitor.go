package monitor

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/OCAP2/ferry/internal/ferry"
	"github.com/rs/zerolog"
)

// SnapshotSource is anything that can report the boarding state.
type SnapshotSource interface {
	Snapshot() ferry.Snapshot
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Source     SnapshotSource
	Logger     zerolog.Logger
	Interval   time.Duration
	StatusFile string
}

// Status is one line of the status file.
type Status struct {
	Time      time.Time `json:"time"`
	Side      int       `json:"side"`
	Load      int       `json:"load"`
	Capacity  int       `json:"capacity"`
	Docked    bool      `json:"docked"`
	Voyage    int       `json:"voyage"`
	WaitingA  int       `json:"waitingA"`
	WaitingB  int       `json:"waitingB"`
	Completed int       `json:"completed"`
	Boardings uint64    `json:"boardings"`
	Released  bool      `json:"released"`
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	return &Service{
		deps:     deps,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetStatus returns the current boarding state as a Status.
func (s *Service) GetStatus() Status {
	snap := s.deps.Source.Snapshot()
	return Status{
		Time:      time.Now().UTC(),
		Side:      int(snap.Side),
		Load:      snap.Load,
		Capacity:  snap.Capacity,
		Docked:    snap.Docked,
		Voyage:    snap.Voyage,
		WaitingA:  snap.Waiting[0],
		WaitingB:  snap.Waiting[1],
		Completed: snap.Completed,
		Boardings: snap.Boardings,
		Released:  snap.Released,
	}
}

// Start starts the status monitor goroutine. An interval of zero or less
// leaves the monitor off.
func (s *Service) Start() error {
	if s.deps.Interval <= 0 {
		return nil
	}
	if s.deps.Source == nil {
		return fmt.Errorf("monitor has no snapshot source")
	}

	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}

	var statusFile *os.File
	if s.deps.StatusFile != "" {
		f, err := os.Create(s.deps.StatusFile)
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("error creating status file: %w", err)
		}
		statusFile = f
	}

	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()
		if statusFile != nil {
			defer statusFile.Close()
		}

		s.deps.Logger.Debug().Dur("interval", s.deps.Interval).Msg("Starting status monitor")

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				s.report(statusFile)
				return
			case <-ticker.C:
				s.report(statusFile)
			}
		}
	}()

	return nil
}

func (s *Service) report(statusFile *os.File) {
	status := s.GetStatus()
	s.deps.Logger.Debug().
		Int("side", status.Side).
		Int("load", status.Load).
		Bool("docked", status.Docked).
		Int("voyage", status.Voyage).
		Int("waitingA", status.WaitingA).
		Int("waitingB", status.WaitingB).
		Int("completed", status.Completed).
		Msg("Ferry status")

	if statusFile == nil {
		return
	}
	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		s.deps.Logger.Error().Err(err).Msg("Error encoding status")
		return
	}
	if err := statusFile.Truncate(0); err != nil {
		s.deps.Logger.Error().Err(err).Msg("Error truncating status file")
		return
	}
	if _, err := statusFile.Seek(0, 0); err != nil {
		s.deps.Logger.Error().Err(err).Msg("Error rewinding status file")
		return
	}
	if _, err := statusFile.Write(append(data, '\n')); err != nil {
		s.deps.Logger.Error().Err(err).Msg("Error writing status file")
	}
}

// Stop stops the status monitor and waits for its final report.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	select {
	case <-s.stopChan:
	default:
		close(s.stopChan)
	}
	done := s.done
	s.mu.Unlock()
	<-done
}
