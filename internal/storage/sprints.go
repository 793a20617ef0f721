package storage

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/pulseplatform/pulse/internal/tenantctx"
	"github.com/pulseplatform/pulse/internal/types"
)

func (s *SQLiteStore) UpsertSprint(ctx tenantctx.Context, sp *types.Sprint) error {
	if sp.ID == "" {
		sp.ID = uuid.NewString()
	}
	_, err := s.db.Exec(`
		INSERT INTO sprints (id, tenant_id, external_id, name, start_date, end_date, status)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, external_id) DO UPDATE SET
			name = excluded.name, start_date = excluded.start_date, end_date = excluded.end_date,
			status = excluded.status`,
		sp.ID, ctx.TenantID, sp.ExternalID, sp.Name, nullTime(sp.StartDate), nullTime(sp.EndDate), sp.Status,
	)
	if err != nil {
		return fmt.Errorf("storage: upsert sprint: %w", err)
	}
	return nil
}

// ListSprintExternalIDsForProject returns the distinct sprint external_ids
// that have at least one work item under projectID. sprints carries no
// project_id column of its own, so this resolves the link transitively
// through work_items (whose sprint_id column is the sprints.id foreign
// key, not the external_id), the only table that ties a sprint to a
// project.
func (s *SQLiteStore) ListSprintExternalIDsForProject(ctx tenantctx.Context, projectID string) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT DISTINCT sp.external_id FROM work_items wi
		JOIN sprints sp ON sp.id = wi.sprint_id AND sp.tenant_id = wi.tenant_id
		WHERE wi.tenant_id = ? AND wi.project_id = ?`,
		ctx.TenantID, projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list sprint external ids for project: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("storage: scan sprint external id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLiteStore) GetSprint(ctx tenantctx.Context, sprintExternalID string) (*types.Sprint, error) {
	var sp types.Sprint
	var startDate, endDate sql.NullTime
	err := s.db.QueryRow(`
		SELECT id, tenant_id, external_id, name, start_date, end_date, status
		FROM sprints WHERE tenant_id = ? AND external_id = ?`,
		ctx.TenantID, sprintExternalID,
	).Scan(&sp.ID, &sp.TenantID, &sp.ExternalID, &sp.Name, &startDate, &endDate, &sp.Status)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("storage: sprint %s not found", sprintExternalID)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: get sprint: %w", err)
	}
	sp.StartDate = timePtr(startDate)
	sp.EndDate = timePtr(endDate)
	return &sp, nil
}
