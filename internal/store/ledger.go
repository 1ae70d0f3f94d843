package store

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/agentstation/utc"

	"github.com/racketdata/ttsync/pkg/constants"
	"github.com/racketdata/ttsync/pkg/entities"
	"github.com/racketdata/ttsync/pkg/errors"
)

// The ledger records one row per orchestration run. Rows are created
// running and finalized exactly once; progress updates are best-effort
// snapshots along the way.

const taskColumns = `id, kind, status, trigger_origin, started_at, finished_at,
	total_units, completed_units, counters, errors, current_unit`

// CreateTask inserts a running ledger row for kind. A kind with a
// non-terminal row already in the ledger yields ErrConflict.
func (s *Store) CreateTask(ctx context.Context, kind entities.TaskKind, trigger entities.Trigger) (entities.Task, error) {
	if !kind.Valid() {
		return entities.Task{}, errors.NewRejectError("task", string(kind), "unknown task kind")
	}

	task := entities.Task{
		Kind:      kind,
		Status:    entities.StatusRunning,
		Trigger:   trigger,
		StartedAt: utc.Now(),
	}

	err := s.inTxStore(ctx, "ledger", "tasks", func(tx *sql.Tx) error {
		var running int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM tasks WHERE kind = ? AND status = ?`,
			string(kind), string(entities.StatusRunning)).Scan(&running)
		if err != nil {
			return err
		}
		if running > 0 {
			return errors.ErrConflict
		}

		res, err := tx.ExecContext(ctx, `
			INSERT INTO tasks (kind, status, trigger_origin, started_at, total_units, completed_units)
			VALUES (?, ?, ?, ?, 0, 0)`,
			string(kind), string(task.Status), string(trigger), formatTime(task.StartedAt))
		if err != nil {
			return err
		}
		task.ID, err = res.LastInsertId()
		return err
	})
	if stderrors.Is(err, errors.ErrConflict) {
		return entities.Task{}, errors.ErrConflict
	}
	if err != nil {
		return entities.Task{}, err
	}

	s.logger.Info().Int64("task", task.ID).Str("kind", string(kind)).Msg("task created")
	return task, nil
}

// UpdateTaskProgress snapshots a running task's progress. Updates on
// terminal tasks are ignored so a late snapshot can never reopen a
// finalized run.
func (s *Store) UpdateTaskProgress(ctx context.Context, id int64, completed, total int, currentUnit string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET completed_units = ?, total_units = ?, current_unit = ?
		WHERE id = ? AND status = ?`,
		completed, total, currentUnit, id, string(entities.StatusRunning))
	return errors.WrapStore("ledger", "tasks", err)
}

// FinalizeTask transitions a task from running to a terminal status,
// recording counters and the accumulated per-unit errors. Finalizing a
// task that is not running yields ErrNotRunning; a missing id yields
// ErrNotFound.
func (s *Store) FinalizeTask(ctx context.Context, id int64, status entities.TaskStatus, counters map[string]int, taskErrors []string) error {
	if !status.Terminal() {
		return errors.NewRejectError("task", "", "finalize with non-terminal status "+string(status))
	}

	countersJSON, err := json.Marshal(counters)
	if err != nil {
		return errors.WrapStore("ledger", "tasks", err)
	}
	errorsJSON, err := json.Marshal(taskErrors)
	if err != nil {
		return errors.WrapStore("ledger", "tasks", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks
		SET status = ?, finished_at = ?, counters = ?, errors = ?, current_unit = ''
		WHERE id = ? AND status = ?`,
		string(status), formatTime(utc.Now()), string(countersJSON), string(errorsJSON),
		id, string(entities.StatusRunning))
	if err != nil {
		return errors.WrapStore("ledger", "tasks", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return errors.WrapStore("ledger", "tasks", err)
	}
	if affected == 0 {
		if _, err := s.GetTask(ctx, id); err != nil {
			return err
		}
		return errors.ErrNotRunning
	}

	s.logger.Info().Int64("task", id).Str("status", string(status)).Msg("task finalized")
	return nil
}

// RecoverInterrupted marks tasks left running by a previous process as
// failed. Called once at startup, before any new task starts.
func (s *Store) RecoverInterrupted(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks
		SET status = ?, finished_at = ?, errors = ?, current_unit = ''
		WHERE status = ?`,
		string(entities.StatusFailed), formatTime(utc.Now()),
		`["interrupted by restart"]`, string(entities.StatusRunning))
	if err != nil {
		return 0, errors.WrapStore("ledger", "tasks", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, errors.WrapStore("ledger", "tasks", err)
	}
	if affected > 0 {
		s.logger.Warn().Int64("tasks", affected).Msg("recovered interrupted tasks")
	}
	return int(affected), nil
}

// GetTask returns one ledger row by id.
func (s *Store) GetTask(ctx context.Context, id int64) (entities.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return entities.Task{}, errors.ErrNotFound
	}
	if err != nil {
		return entities.Task{}, errors.WrapStore("ledger", "tasks", err)
	}
	return task, nil
}

// RunningTask returns the non-terminal task of a kind, or ErrNotFound.
func (s *Store) RunningTask(ctx context.Context, kind entities.TaskKind) (entities.Task, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE kind = ? AND status = ? ORDER BY id DESC LIMIT 1`,
		string(kind), string(entities.StatusRunning))
	task, err := scanTask(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return entities.Task{}, errors.ErrNotFound
	}
	if err != nil {
		return entities.Task{}, errors.WrapStore("ledger", "tasks", err)
	}
	return task, nil
}

// ListTasks returns ledger rows newest first, optionally filtered by kind.
// The limit is clamped to the history cap.
func (s *Store) ListTasks(ctx context.Context, kind entities.TaskKind, limit int) ([]entities.Task, error) {
	if limit <= 0 {
		limit = constants.DefaultHistoryLimit
	}
	if limit > constants.MaxHistoryLimit {
		limit = constants.MaxHistoryLimit
	}

	query := `SELECT ` + taskColumns + ` FROM tasks ORDER BY id DESC LIMIT ?`
	args := []any{limit}
	if kind != "" {
		query = `SELECT ` + taskColumns + ` FROM tasks WHERE kind = ? ORDER BY id DESC LIMIT ?`
		args = []any{string(kind), limit}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.WrapStore("ledger", "tasks", err)
	}
	defer rows.Close()

	var tasks []entities.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, errors.WrapStore("ledger", "tasks", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, errors.WrapStore("ledger", "tasks", rows.Err())
}

func scanTask(row rowScanner) (entities.Task, error) {
	var task entities.Task
	var kind, status, trigger, startedAt string
	var finishedAt, counters, errorsCol, currentUnit sql.NullString

	err := row.Scan(&task.ID, &kind, &status, &trigger, &startedAt, &finishedAt,
		&task.TotalUnits, &task.CompletedUnits, &counters, &errorsCol, &currentUnit)
	if err != nil {
		return entities.Task{}, err
	}

	task.Kind = entities.TaskKind(kind)
	task.Status = entities.TaskStatus(status)
	task.Trigger = entities.Trigger(trigger)
	task.StartedAt = parseTime(startedAt)
	if finishedAt.Valid && finishedAt.String != "" {
		t := parseTime(finishedAt.String)
		task.FinishedAt = &t
	}
	if counters.Valid && counters.String != "" {
		if err := json.Unmarshal([]byte(counters.String), &task.Counters); err != nil {
			return entities.Task{}, fmt.Errorf("task %d counters: %w", task.ID, err)
		}
	}
	if errorsCol.Valid && errorsCol.String != "" {
		if err := json.Unmarshal([]byte(errorsCol.String), &task.Errors); err != nil {
			return entities.Task{}, fmt.Errorf("task %d errors: %w", task.ID, err)
		}
	}
	task.CurrentUnit = currentUnit.String
	return task, nil
}

func formatTime(t utc.Time) string {
	return t.Time.Format(time.RFC3339Nano)
}

func parseTime(s string) utc.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return utc.Time{}
	}
	return utc.Time{Time: t.UTC()}
}
