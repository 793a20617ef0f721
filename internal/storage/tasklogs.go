package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pulseplatform/pulse/internal/tenantctx"
	"github.com/pulseplatform/pulse/internal/types"
)

func (s *SQLiteStore) CreateTaskLog(ctx tenantctx.Context, log *types.TaskLog) error {
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.StartedAt.IsZero() {
		log.StartedAt = time.Now()
	}
	if log.Status == "" {
		log.Status = types.TaskRunning
	}
	_, err := s.db.Exec(`
		INSERT INTO task_logs (id, tenant_id, task_name, target_id, status, error_message,
			duration_ms, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		log.ID, ctx.TenantID, log.TaskName, log.TargetID, log.Status, log.ErrorMessage,
		log.DurationMS, log.StartedAt, nullTime(log.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("storage: create task log: %w", err)
	}
	return nil
}

// FinishTaskLog mirrors TaskLog.Finish against the stored row.
func (s *SQLiteStore) FinishTaskLog(ctx tenantctx.Context, logID string, status types.TaskStatus, errMsg string, at time.Time) error {
	var startedAt time.Time
	if err := s.db.QueryRow(`SELECT started_at FROM task_logs WHERE tenant_id = ? AND id = ?`, ctx.TenantID, logID).Scan(&startedAt); err != nil {
		return fmt.Errorf("storage: finish task log: lookup started_at: %w", err)
	}
	durationMS := at.Sub(startedAt).Milliseconds()

	_, err := s.db.Exec(`
		UPDATE task_logs SET status = ?, error_message = ?, duration_ms = ?, finished_at = ?
		WHERE tenant_id = ? AND id = ?`,
		status, errMsg, durationMS, at, ctx.TenantID, logID,
	)
	if err != nil {
		return fmt.Errorf("storage: finish task log: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListRecentTaskLogs(ctx tenantctx.Context, limit int) ([]*types.TaskLog, error) {
	rows, err := s.db.Query(`
		SELECT id, tenant_id, task_name, target_id, status, error_message, duration_ms, started_at, finished_at
		FROM task_logs WHERE tenant_id = ? ORDER BY started_at DESC LIMIT ?`,
		ctx.TenantID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list recent task logs: %w", err)
	}
	defer rows.Close()

	var out []*types.TaskLog
	for rows.Next() {
		var t types.TaskLog
		var finishedAt sql.NullTime
		if err := rows.Scan(&t.ID, &t.TenantID, &t.TaskName, &t.TargetID, &t.Status, &t.ErrorMessage,
			&t.DurationMS, &t.StartedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("storage: scan task log: %w", err)
		}
		t.FinishedAt = timePtr(finishedAt)
		out = append(out, &t)
	}
	return out, rows.Err()
}
