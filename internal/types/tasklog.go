package types

import "time"

// TaskStatus is the execution state of a scheduled job.
type TaskStatus string

const (
	TaskPending TaskStatus = "pending"
	TaskRunning TaskStatus = "running"
	TaskSuccess TaskStatus = "success"
	TaskFailed  TaskStatus = "failed"
)

// TaskLog is per-execution telemetry for a scheduled job: sync,
// metric-recalc, AI-refresh or retention sweep.
type TaskLog struct {
	ID          string     `json:"id"`
	TenantID    string     `json:"tenant_id"`
	TaskName    string     `json:"task_name"`
	TargetID    string     `json:"target_id,omitempty"`
	Status      TaskStatus `json:"status"`
	ErrorMessage string    `json:"error_message,omitempty"`
	DurationMS  int64      `json:"duration_ms"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
}

// Finish marks the log success/failed and records wall-clock duration.
func (t *TaskLog) Finish(status TaskStatus, errMsg string, at time.Time) {
	t.Status = status
	t.ErrorMessage = errMsg
	t.FinishedAt = &at
	t.DurationMS = at.Sub(t.StartedAt).Milliseconds()
}
