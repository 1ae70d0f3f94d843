// Package task runs the background orchestrations: organizations,
// profiles-all, competitions, and interclubs. At most one task per kind
// runs at a time; distinct kinds run concurrently. A task walks its units
// in order, isolating per-unit failures, pacing calls to the upstream,
// checking for cancellation between units, and recording its run in the
// durable ledger.
package task

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/agentstation/utc"
	"github.com/rs/zerolog"

	"github.com/racketdata/ttsync/internal/store"
	"github.com/racketdata/ttsync/internal/upstream"
	"github.com/racketdata/ttsync/pkg/constants"
	"github.com/racketdata/ttsync/pkg/entities"
	"github.com/racketdata/ttsync/pkg/errors"
	"github.com/racketdata/ttsync/pkg/logging"
)

// Pacing holds the delays the orchestrator inserts between units of work.
type Pacing struct {
	// Unit is the delay between consecutive profile or series fetches.
	Unit time.Duration
	// Organization is the delay between consecutive clubs.
	Organization time.Duration
	// Error is the extra delay after a failed unit.
	Error time.Duration
}

// DefaultPacing returns the standard production pacing.
func DefaultPacing() Pacing {
	return Pacing{
		Unit:         constants.UnitPacingDelay,
		Organization: constants.OrganizationPacingDelay,
		Error:        constants.ErrorPacingDelay,
	}
}

// Orchestrator starts, observes, and cancels tasks.
type Orchestrator struct {
	fetcher upstream.Fetcher
	store   *store.Store
	pacing  Pacing
	logger  zerolog.Logger

	mu sync.Mutex
	// runs holds the latest run per kind, live or finished. Logs of a
	// finished run stay readable until the next run of that kind starts.
	runs map[entities.TaskKind]*run
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithPacing replaces the pacing delays.
func WithPacing(p Pacing) Option {
	return func(o *Orchestrator) { o.pacing = p }
}

// New creates an orchestrator over the given fetcher and store.
func New(fetcher upstream.Fetcher, st *store.Store, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		fetcher: fetcher,
		store:   st,
		pacing:  DefaultPacing(),
		logger:  logging.With().Str("component", "task").Logger(),
		runs:    make(map[entities.TaskKind]*run),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// run is the in-memory state of one task execution.
type run struct {
	id     int64
	kind   entities.TaskKind
	cancel context.CancelFunc
	done   chan struct{}

	mu          sync.Mutex
	finished    bool
	total       int
	completed   int
	currentUnit string
	counters    map[string]int
	errs        []string
	logs        []entities.LogEntry
}

func (r *run) log(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.logs) == constants.TaskLogCap {
		copy(r.logs, r.logs[1:])
		r.logs = r.logs[:constants.TaskLogCap-1]
	}
	r.logs = append(r.logs, entities.LogEntry{
		Timestamp: utc.Now(),
		Message:   fmt.Sprintf(format, args...),
	})
}

func (r *run) recordError(err error) {
	r.mu.Lock()
	r.errs = append(r.errs, err.Error())
	r.mu.Unlock()
	r.log("error: %v", err)
}

func (r *run) setProgress(completed, total int, unit string) {
	r.mu.Lock()
	r.completed, r.total, r.currentUnit = completed, total, unit
	r.mu.Unlock()
}

func (r *run) count(key string, n int) {
	r.mu.Lock()
	if r.counters == nil {
		r.counters = make(map[string]int)
	}
	r.counters[key] += n
	r.mu.Unlock()
}

func (r *run) snapshot() (completed, total int, unit string, counters map[string]int, errs []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counters = make(map[string]int, len(r.counters))
	for k, v := range r.counters {
		counters[k] = v
	}
	errs = append([]string(nil), r.errs...)
	return r.completed, r.total, r.currentUnit, counters, errs
}

// Start launches a task of the given kind in the background and returns
// its ledger row. A kind with a live run yields ErrConflict.
func (o *Orchestrator) Start(ctx context.Context, kind entities.TaskKind, trigger entities.Trigger) (entities.Task, error) {
	if !kind.Valid() {
		return entities.Task{}, errors.NewRejectError("task", string(kind), "unknown task kind")
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if prev, ok := o.runs[kind]; ok && !prev.isFinished() {
		return entities.Task{}, errors.ErrConflict
	}

	task, err := o.store.CreateTask(ctx, kind, trigger)
	if err != nil {
		return entities.Task{}, err
	}

	// The run outlives the triggering request, so it gets its own
	// cancellable context rather than the caller's.
	runCtx, cancel := context.WithCancel(context.Background())
	r := &run{
		id:     task.ID,
		kind:   kind,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	o.runs[kind] = r

	go o.execute(runCtx, r)
	return task, nil
}

func (r *run) isFinished() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finished
}

func (r *run) finish() {
	r.mu.Lock()
	r.finished = true
	r.currentUnit = ""
	r.mu.Unlock()
	close(r.done)
}

// execute runs one task to completion and finalizes its ledger row.
func (o *Orchestrator) execute(ctx context.Context, r *run) {
	logger := o.logger.With().Int64("task", r.id).Str("kind", string(r.kind)).Logger()
	logger.Info().Msg("task started")
	r.log("task %s started", r.kind)

	var err error
	switch r.kind {
	case entities.TaskOrganizations:
		err = o.runOrganizations(ctx, r)
	case entities.TaskProfilesAll:
		err = o.runProfiles(ctx, r)
	case entities.TaskCompetitions:
		err = o.runCompetitions(ctx, r)
	case entities.TaskInterclubs:
		err = o.runInterclubs(ctx, r)
	}

	status := entities.StatusSuccess
	switch {
	case ctx.Err() != nil || errors.IsCanceled(err):
		status = entities.StatusCancelled
		r.log("task cancelled")
	case err != nil:
		status = entities.StatusFailed
		r.recordError(err)
		r.log("task failed")
	default:
		r.log("task finished")
	}

	_, _, _, counters, errs := r.snapshot()

	// Finalization must not be lost to the run's own cancellation.
	finalizeCtx, cancel := context.WithTimeout(context.Background(), constants.DefaultTimeout)
	defer cancel()
	if ferr := o.store.FinalizeTask(finalizeCtx, r.id, status, counters, errs); ferr != nil {
		logger.Error().Err(ferr).Msg("failed to finalize task")
	}

	r.finish()
	logger.Info().Str("status", string(status)).Int("errors", len(errs)).Msg("task done")
}

// Cancel requests cancellation of the live run of a kind. The task keeps
// running until its next checkpoint, then finalizes as cancelled.
func (o *Orchestrator) Cancel(kind entities.TaskKind) error {
	o.mu.Lock()
	r, ok := o.runs[kind]
	o.mu.Unlock()

	if !ok || r.isFinished() {
		return errors.ErrNotRunning
	}
	r.cancel()
	r.log("cancellation requested")
	return nil
}

// CancelByID cancels the run carrying the given ledger id. Ids are unique
// across kinds, so this is Cancel for callers holding a task id rather
// than a kind.
func (o *Orchestrator) CancelByID(id int64) error {
	kind, ok := o.kindOf(id)
	if !ok {
		return errors.ErrNotRunning
	}
	return o.Cancel(kind)
}

// LogsByID returns the in-memory log of the run carrying the given ledger
// id.
func (o *Orchestrator) LogsByID(id int64) ([]entities.LogEntry, error) {
	kind, ok := o.kindOf(id)
	if !ok {
		return nil, errors.ErrNotFound
	}
	return o.Logs(kind)
}

// kindOf maps a ledger id to the kind of the tracked run carrying it.
func (o *Orchestrator) kindOf(id int64) (entities.TaskKind, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for kind, r := range o.runs {
		if r.id == id {
			return kind, true
		}
	}
	return "", false
}

// Status returns the ledger row for a task id, overlaid with live
// progress when the run is still in flight.
func (o *Orchestrator) Status(ctx context.Context, id int64) (entities.Task, error) {
	task, err := o.store.GetTask(ctx, id)
	if err != nil {
		return entities.Task{}, err
	}

	o.mu.Lock()
	r, ok := o.runs[task.Kind]
	o.mu.Unlock()

	if ok && r.id == id && !r.isFinished() {
		completed, total, unit, counters, errs := r.snapshot()
		task.CompletedUnits = completed
		task.TotalUnits = total
		task.CurrentUnit = unit
		task.Counters = counters
		task.Errors = errs
	}
	return task, nil
}

// Running returns the live ledger row of a kind, or ErrNotFound.
func (o *Orchestrator) Running(ctx context.Context, kind entities.TaskKind) (entities.Task, error) {
	task, err := o.store.RunningTask(ctx, kind)
	if err != nil {
		return entities.Task{}, err
	}
	return o.Status(ctx, task.ID)
}

// Logs returns the in-memory log of the latest run of a kind, live or
// finished. Logs do not survive a restart; the ledger does.
func (o *Orchestrator) Logs(kind entities.TaskKind) ([]entities.LogEntry, error) {
	o.mu.Lock()
	r, ok := o.runs[kind]
	o.mu.Unlock()

	if !ok {
		return nil, errors.ErrNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]entities.LogEntry(nil), r.logs...), nil
}

// History returns ledger rows newest first, optionally filtered by kind.
func (o *Orchestrator) History(ctx context.Context, kind entities.TaskKind, limit int) ([]entities.Task, error) {
	return o.store.ListTasks(ctx, kind, limit)
}

// Wait blocks until the latest run of a kind finishes. Test helper and
// shutdown aid; returns immediately when no run exists.
func (o *Orchestrator) Wait(kind entities.TaskKind) {
	o.mu.Lock()
	r, ok := o.runs[kind]
	o.mu.Unlock()
	if ok {
		<-r.done
	}
}

// checkpoint reports cancellation between units and syncs progress to the
// ledger.
func (o *Orchestrator) checkpoint(ctx context.Context, r *run, completed, total int, unit string) error {
	if ctx.Err() != nil {
		return errors.ErrCanceled
	}
	r.setProgress(completed, total, unit)
	if err := o.store.UpdateTaskProgress(ctx, r.id, completed, total, unit); err != nil {
		return err
	}
	return nil
}

// pace sleeps between units, returning early on cancellation.
func (o *Orchestrator) pace(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return errors.ErrCanceled
	case <-timer.C:
		return nil
	}
}

// unitFailed records a per-unit failure and applies the error pacing.
// Fatal and cancellation errors propagate; everything else is isolated.
func (o *Orchestrator) unitFailed(ctx context.Context, r *run, unit string, err error) error {
	if errors.IsCanceled(err) || errors.IsFatal(err) {
		return err
	}
	r.recordError(fmt.Errorf("%s: %w", unit, err))
	return o.pace(ctx, o.pacing.Error)
}
