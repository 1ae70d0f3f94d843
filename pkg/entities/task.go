package entities

import "github.com/agentstation/utc"

// TaskKind identifies which orchestration a task runs. Distinct kinds may
// run concurrently; at most one non-terminal task exists per kind.
type TaskKind string

// Known task kinds.
const (
	TaskOrganizations TaskKind = "organizations"
	TaskProfilesAll   TaskKind = "profiles-all"
	TaskCompetitions  TaskKind = "competitions"
	TaskInterclubs    TaskKind = "interclubs"
)

// Valid reports whether k names a known orchestration.
func (k TaskKind) Valid() bool {
	switch k {
	case TaskOrganizations, TaskProfilesAll, TaskCompetitions, TaskInterclubs:
		return true
	}
	return false
}

// TaskStatus is the lifecycle state of a task. A task is created running
// and transitions exactly once to a terminal state.
type TaskStatus string

// Task lifecycle states.
const (
	StatusRunning   TaskStatus = "running"
	StatusSuccess   TaskStatus = "success"
	StatusFailed    TaskStatus = "failed"
	StatusCancelled TaskStatus = "cancelled"
)

// Terminal reports whether the status is absorbing.
func (s TaskStatus) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed || s == StatusCancelled
}

// Trigger records what started a task.
type Trigger string

// Trigger origins.
const (
	TriggerManual    Trigger = "manual"
	TriggerScheduled Trigger = "scheduled"
)

// Task is one ledger row: the durable record of an orchestration run.
type Task struct {
	ID      int64      `json:"id"`
	Kind    TaskKind   `json:"kind"`
	Status  TaskStatus `json:"status"`
	Trigger Trigger    `json:"trigger"`

	StartedAt  utc.Time  `json:"started_at"`
	FinishedAt *utc.Time `json:"finished_at,omitempty"`

	TotalUnits     int `json:"total_units"`
	CompletedUnits int `json:"completed_units"`

	// Counters tracks merged records per entity kind, e.g. "players": 412.
	Counters map[string]int `json:"counters,omitempty"`

	// Errors is the ordered per-unit error list accumulated while running.
	Errors []string `json:"errors,omitempty"`

	// CurrentUnit is a free-text pointer at the unit in flight, empty once
	// the task is terminal.
	CurrentUnit string `json:"current_unit,omitempty"`
}

// LogEntry is one line of a task's append-only log.
type LogEntry struct {
	Timestamp utc.Time `json:"timestamp"`
	Message   string   `json:"message"`
}
