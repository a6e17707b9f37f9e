// Package gormstorage implements the storage.Backend interface on any GORM
// dialect, with internal queues drained by a background writer goroutine.
package gormstorage

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/OCAP2/ferry/internal/database"
	"github.com/OCAP2/ferry/internal/model"
	"github.com/OCAP2/ferry/internal/model/convert"
	"github.com/OCAP2/ferry/internal/queue"
	"github.com/OCAP2/ferry/pkg/core"
	"github.com/rs/zerolog"

	"gorm.io/gorm"
)

// DefaultFlushInterval is used when Dependencies.FlushInterval is zero.
const DefaultFlushInterval = 500 * time.Millisecond

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	// DB may be nil, in which case events are only queued.
	DB            *gorm.DB
	Logger        zerolog.Logger
	FlushInterval time.Duration
}

// queues holds all the write queues for batch DB insertion.
type queues struct {
	TollPasses  *queue.Queue[model.TollPass]
	Boardings   *queue.Queue[model.Boarding]
	Skips       *queue.Queue[model.Skip]
	Voyages     *queue.Queue[model.Voyage]
	Completions *queue.Queue[model.Completion]
	Arrivals    *queue.Queue[core.Arrival]
}

func newQueues() *queues {
	return &queues{
		TollPasses:  queue.New[model.TollPass](),
		Boardings:   queue.New[model.Boarding](),
		Skips:       queue.New[model.Skip](),
		Voyages:     queue.New[model.Voyage](),
		Completions: queue.New[model.Completion](),
		Arrivals:    queue.New[core.Arrival](),
	}
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps    Dependencies
	queues  *queues
	runID   atomic.Uint64
	flushMu sync.Mutex

	stopChan chan struct{}
	stopped  sync.WaitGroup
	stopOnce sync.Once
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = DefaultFlushInterval
	}
	return &Backend{
		deps: deps,
	}
}

// DB returns the underlying connection, nil in queue-only mode.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init creates internal queues, runs schema migration, and starts the DB writer goroutine.
func (b *Backend) Init() error {
	b.queues = newQueues()
	b.stopChan = make(chan struct{})

	if b.deps.DB == nil {
		return nil
	}

	b.deps.Logger.Info().Str("dialect", b.deps.DB.Name()).Msg("Migrating schema")
	if err := database.Migrate(b.deps.DB); err != nil {
		return err
	}

	b.stopped.Add(1)
	go b.writeLoop()
	return nil
}

// Close stops the DB writer goroutine and writes whatever is still queued.
func (b *Backend) Close() error {
	if b.stopChan == nil {
		return nil
	}
	b.stopOnce.Do(func() { close(b.stopChan) })
	b.stopped.Wait()
	return b.Flush()
}

// StartRun inserts the run and its fleet synchronously, since every queued
// row references the run's ID.
func (b *Backend) StartRun(run *core.Run) error {
	if b.deps.DB == nil {
		return nil
	}
	db := b.deps.DB

	row := convert.CoreToRun(*run)
	if err := db.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	if len(run.Vehicles) > 0 {
		vehicles := convert.CoreToVehicles(row.ID, run.Vehicles)
		if err := db.Create(&vehicles).Error; err != nil {
			return fmt.Errorf("failed to insert vehicles: %w", err)
		}
	}

	b.runID.Store(uint64(row.ID))
	b.deps.Logger.Debug().Uint("dbRunId", row.ID).Str("runId", run.ID).Msg("Run stored")
	return nil
}

// EndRun flushes the queues and writes the summary onto the run row.
func (b *Backend) EndRun(summary *core.Summary) error {
	if b.deps.DB == nil {
		return nil
	}
	if err := b.Flush(); err != nil {
		return err
	}

	var row model.Run
	row.ID = uint(b.runID.Load())
	convert.ApplySummary(&row, *summary)
	err := b.deps.DB.Model(&model.Run{}).Where("id = ?", row.ID).Updates(map[string]any{
		"end_time":   row.EndTime,
		"voyages":    row.Voyages,
		"completed":  row.Completed,
		"stranded":   row.Stranded,
		"terminated": row.Terminated,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to update run summary: %w", err)
	}
	return nil
}

// RecordTollPass converts and queues a toll passage.
func (b *Backend) RecordTollPass(e *core.TollPass) error {
	b.queues.TollPasses.Push(convert.CoreToTollPass(*e))
	return nil
}

// RecordBoarding converts and queues a boarding.
func (b *Backend) RecordBoarding(e *core.Boarding) error {
	b.queues.Boardings.Push(convert.CoreToBoarding(*e))
	return nil
}

// RecordSkip converts and queues a skip.
func (b *Backend) RecordSkip(e *core.Skip) error {
	b.queues.Skips.Push(convert.CoreToSkip(*e))
	return nil
}

// RecordDeparture queues a new voyage row.
func (b *Backend) RecordDeparture(e *core.Departure) error {
	b.queues.Voyages.Push(convert.CoreToVoyage(*e))
	return nil
}

// RecordArrival queues the arrival time of a voyage. It is applied after the
// voyage rows of the same flush are inserted.
func (b *Backend) RecordArrival(e *core.Arrival) error {
	b.queues.Arrivals.Push(*e)
	return nil
}

// RecordCompletion converts and queues a completion.
func (b *Backend) RecordCompletion(e *core.Completion) error {
	b.queues.Completions.Push(convert.CoreToCompletion(*e))
	return nil
}

// RecordTermination stores the final shore on the run row directly; it
// happens once per run.
func (b *Backend) RecordTermination(e *core.Termination) error {
	if b.deps.DB == nil {
		return nil
	}
	err := b.deps.DB.Model(&model.Run{}).
		Where("id = ?", uint(b.runID.Load())).
		Update("final_side", int(e.Side)).Error
	if err != nil {
		return fmt.Errorf("failed to record termination: %w", err)
	}
	return nil
}

// writeQueue writes all items from a queue to the database in a transaction.
// On failure the items go back to the front of the queue.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, prepare func([]T)) (int, error) {
	if q.Empty() {
		return 0, nil
	}
	items := q.GetAndEmpty()
	if prepare != nil {
		prepare(items)
	}

	tx := db.Begin()
	if err := tx.Create(&items).Error; err != nil {
		tx.Rollback()
		q.Requeue(items...)
		return 0, fmt.Errorf("error creating %s: %w", name, err)
	}
	if err := tx.Commit().Error; err != nil {
		q.Requeue(items...)
		return 0, fmt.Errorf("error committing %s: %w", name, err)
	}
	return len(items), nil
}

// Flush writes every queued row. Voyage inserts precede arrival updates so
// an arrival always finds its voyage.
func (b *Backend) Flush() error {
	if b.deps.DB == nil || b.queues == nil {
		return nil
	}
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	db := b.deps.DB
	runID := uint(b.runID.Load())
	start := time.Now()
	written := 0

	var firstErr error
	track := func(n int, err error) {
		written += n
		if err != nil {
			b.deps.Logger.Error().Err(err).Msg("DB writer failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	track(writeQueue(db, b.queues.TollPasses, "toll passes", func(items []model.TollPass) {
		for i := range items {
			items[i].RunID = runID
		}
	}))
	track(writeQueue(db, b.queues.Boardings, "boardings", func(items []model.Boarding) {
		for i := range items {
			items[i].RunID = runID
		}
	}))
	track(writeQueue(db, b.queues.Skips, "skips", func(items []model.Skip) {
		for i := range items {
			items[i].RunID = runID
		}
	}))
	track(writeQueue(db, b.queues.Voyages, "voyages", func(items []model.Voyage) {
		for i := range items {
			items[i].RunID = runID
		}
	}))
	track(writeQueue(db, b.queues.Completions, "completions", func(items []model.Completion) {
		for i := range items {
			items[i].RunID = runID
		}
	}))
	track(b.applyArrivals(runID))

	if written > 0 {
		b.deps.Logger.Trace().Int("rows", written).Dur("duration", time.Since(start)).Msg("Flushed write queues")
	}
	return firstErr
}

func (b *Backend) applyArrivals(runID uint) (int, error) {
	arrivals := b.queues.Arrivals.GetAndEmpty()
	for i, a := range arrivals {
		err := b.deps.DB.Model(&model.Voyage{}).
			Where("run_id = ? AND number = ?", runID, a.Voyage).
			Update("arrived_at", a.Time).Error
		if err != nil {
			b.queues.Arrivals.Requeue(arrivals[i:]...)
			return i, fmt.Errorf("error updating voyage %d arrival: %w", a.Voyage, err)
		}
	}
	return len(arrivals), nil
}

// writeLoop periodically drains the queues into the DB until Close.
func (b *Backend) writeLoop() {
	defer b.stopped.Done()
	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			_ = b.Flush()
		}
	}
}
