package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/racketdata/ttsync/internal/server/response"
	"github.com/racketdata/ttsync/pkg/entities"
)

// handleHealth reports liveness and uptime.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	response.OK(w, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.startTime).String(),
	})
}

// handleStartTask launches a task of the given kind.
// POST /api/v1/tasks/{kind}?trigger=manual|scheduled
func (s *Server) handleStartTask(w http.ResponseWriter, r *http.Request) {
	kind := entities.TaskKind(r.PathValue("kind"))
	if !kind.Valid() {
		response.BadRequest(w, "unknown task kind", string(kind))
		return
	}

	trigger := entities.TriggerManual
	switch r.URL.Query().Get("trigger") {
	case "", string(entities.TriggerManual):
	case string(entities.TriggerScheduled):
		trigger = entities.TriggerScheduled
	default:
		response.BadRequest(w, "unknown trigger", r.URL.Query().Get("trigger"))
		return
	}

	task, err := s.orchestrator.Start(r.Context(), kind, trigger)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Created(w, task)
}

// handleCancelTask requests cancellation of the live run of a kind.
// POST /api/v1/tasks/{kind}/cancel
func (s *Server) handleCancelTask(w http.ResponseWriter, r *http.Request) {
	kind := entities.TaskKind(r.PathValue("kind"))
	if !kind.Valid() {
		response.BadRequest(w, "unknown task kind", string(kind))
		return
	}

	if err := s.orchestrator.Cancel(kind); err != nil {
		response.FromError(w, err)
		return
	}
	response.OK(w, map[string]string{"status": "cancelling"})
}

// handleRunningTask returns the live task of a kind.
// GET /api/v1/tasks/{kind}/running
func (s *Server) handleRunningTask(w http.ResponseWriter, r *http.Request) {
	kind := entities.TaskKind(r.PathValue("kind"))
	if !kind.Valid() {
		response.BadRequest(w, "unknown task kind", string(kind))
		return
	}

	task, err := s.orchestrator.Running(r.Context(), kind)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.OK(w, task)
}

// handleTaskStatus returns one ledger row by id, overlaid with live
// progress while the run is in flight.
// GET /api/v1/tasks/{id}/status
func (s *Server) handleTaskStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		response.BadRequest(w, "task id must be numeric", r.PathValue("id"))
		return
	}

	task, err := s.orchestrator.Status(r.Context(), id)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.OK(w, task)
}

// handleTaskLogs returns the in-memory log of the latest run of a kind.
// GET /api/v1/tasks/{kind}/logs
func (s *Server) handleTaskLogs(w http.ResponseWriter, r *http.Request) {
	kind := entities.TaskKind(r.PathValue("kind"))
	if !kind.Valid() {
		response.BadRequest(w, "unknown task kind", string(kind))
		return
	}

	logs, err := s.orchestrator.Logs(kind)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.OK(w, logs)
}

// handleTaskHistory returns ledger rows newest first.
// GET /api/v1/tasks?kind=...&limit=...
func (s *Server) handleTaskHistory(w http.ResponseWriter, r *http.Request) {
	kind := entities.TaskKind(r.URL.Query().Get("kind"))
	if kind != "" && !kind.Valid() {
		response.BadRequest(w, "unknown task kind", string(kind))
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			response.BadRequest(w, "limit must be a non-negative integer", raw)
			return
		}
		limit = n
	}

	tasks, err := s.orchestrator.History(r.Context(), kind, limit)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.OK(w, tasks)
}
