package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pulseplatform/pulse/internal/tenantctx"
	"github.com/pulseplatform/pulse/internal/types"
)

func (s *SQLiteStore) UpsertSprintMetrics(ctx tenantctx.Context, m *types.SprintMetrics) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.UpdatedAt = time.Now()
	_, err := s.db.Exec(`
		INSERT INTO sprint_metrics (id, tenant_id, sprint_name, sprint_end_date, project_id, velocity,
			total_completed, stories_completed, bugs_completed, compliant_count, total_items,
			compliance_rate, defect_density_per_100, avg_cycle_time_days, pr_health_total,
			pr_health_success, pr_health_failure, pr_health_pending, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, project_id, sprint_name, sprint_end_date) DO UPDATE SET
			velocity = excluded.velocity, total_completed = excluded.total_completed,
			stories_completed = excluded.stories_completed, bugs_completed = excluded.bugs_completed,
			compliant_count = excluded.compliant_count, total_items = excluded.total_items,
			compliance_rate = excluded.compliance_rate, defect_density_per_100 = excluded.defect_density_per_100,
			avg_cycle_time_days = excluded.avg_cycle_time_days, pr_health_total = excluded.pr_health_total,
			pr_health_success = excluded.pr_health_success, pr_health_failure = excluded.pr_health_failure,
			pr_health_pending = excluded.pr_health_pending, updated_at = excluded.updated_at`,
		m.ID, ctx.TenantID, m.SprintName, m.SprintEndDate, m.ProjectID, m.Velocity,
		m.TotalCompleted, m.StoriesCompleted, m.BugsCompleted, m.CompliantCount, m.TotalItems,
		m.ComplianceRate, m.DefectDensityPer100, m.AvgCycleTimeDays, m.PRHealth.Total,
		m.PRHealth.Success, m.PRHealth.Failure, m.PRHealth.Pending, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("storage: upsert sprint metrics: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpsertDeveloperMetrics(ctx tenantctx.Context, m *types.DeveloperMetrics) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.UpdatedAt = time.Now()
	_, err := s.db.Exec(`
		INSERT INTO developer_metrics (id, tenant_id, developer_email, developer_user_id, sprint_name,
			sprint_end_date, project_id, completed_points, completed_items, prs_authored, prs_merged,
			prs_reviewed, defects_attributed, avg_coverage, avg_ai_usage, compliance_rate, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, project_id, developer_email, sprint_name, sprint_end_date) DO UPDATE SET
			completed_points = excluded.completed_points, completed_items = excluded.completed_items,
			prs_authored = excluded.prs_authored, prs_merged = excluded.prs_merged,
			prs_reviewed = excluded.prs_reviewed, defects_attributed = excluded.defects_attributed,
			avg_coverage = excluded.avg_coverage, avg_ai_usage = excluded.avg_ai_usage,
			compliance_rate = excluded.compliance_rate, updated_at = excluded.updated_at`,
		m.ID, ctx.TenantID, m.DeveloperEmail, nullStringPtr(m.DeveloperUserID), m.SprintName,
		m.SprintEndDate, m.ProjectID, m.CompletedPoints, m.CompletedItems, m.PRsAuthored, m.PRsMerged,
		m.PRsReviewed, m.DefectsAttributed, m.AvgCoverage, m.AvgAIUsage, m.ComplianceRate, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("storage: upsert developer metrics: %w", err)
	}
	return nil
}

// ListSprintMetrics satisfies ai.Store: the 5-sprint rollup window the
// worker's gather step reads before calling the provider.
func (s *SQLiteStore) ListSprintMetrics(ctx tenantctx.Context, projectID string) ([]*types.SprintMetrics, error) {
	rows, err := s.db.Query(`
		SELECT id, tenant_id, sprint_name, sprint_end_date, project_id, velocity, total_completed,
			stories_completed, bugs_completed, compliant_count, total_items, compliance_rate,
			defect_density_per_100, avg_cycle_time_days, pr_health_total, pr_health_success,
			pr_health_failure, pr_health_pending, updated_at
		FROM sprint_metrics WHERE tenant_id = ? AND project_id = ? ORDER BY sprint_end_date DESC`,
		ctx.TenantID, projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list sprint metrics: %w", err)
	}
	defer rows.Close()

	var out []*types.SprintMetrics
	for rows.Next() {
		var m types.SprintMetrics
		if err := rows.Scan(&m.ID, &m.TenantID, &m.SprintName, &m.SprintEndDate, &m.ProjectID, &m.Velocity,
			&m.TotalCompleted, &m.StoriesCompleted, &m.BugsCompleted, &m.CompliantCount, &m.TotalItems,
			&m.ComplianceRate, &m.DefectDensityPer100, &m.AvgCycleTimeDays, &m.PRHealth.Total,
			&m.PRHealth.Success, &m.PRHealth.Failure, &m.PRHealth.Pending, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("storage: scan sprint metrics: %w", err)
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

// ListRecentDeveloperMetrics satisfies ai.Store: the latest sprint's
// per-developer breakdown feeding the assignee distribution section of
// the gathered prompt.
func (s *SQLiteStore) ListRecentDeveloperMetrics(ctx tenantctx.Context, projectID string) ([]*types.DeveloperMetrics, error) {
	rows, err := s.db.Query(`
		SELECT id, tenant_id, developer_email, developer_user_id, sprint_name, sprint_end_date,
			project_id, completed_points, completed_items, prs_authored, prs_merged, prs_reviewed,
			defects_attributed, avg_coverage, avg_ai_usage, compliance_rate, updated_at
		FROM developer_metrics
		WHERE tenant_id = ? AND project_id = ? AND sprint_end_date = (
			SELECT MAX(sprint_end_date) FROM developer_metrics WHERE tenant_id = ? AND project_id = ?
		)`,
		ctx.TenantID, projectID, ctx.TenantID, projectID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list recent developer metrics: %w", err)
	}
	defer rows.Close()

	var out []*types.DeveloperMetrics
	for rows.Next() {
		var m types.DeveloperMetrics
		var developerUserID sql.NullString
		if err := rows.Scan(&m.ID, &m.TenantID, &m.DeveloperEmail, &developerUserID, &m.SprintName,
			&m.SprintEndDate, &m.ProjectID, &m.CompletedPoints, &m.CompletedItems, &m.PRsAuthored,
			&m.PRsMerged, &m.PRsReviewed, &m.DefectsAttributed, &m.AvgCoverage, &m.AvgAIUsage,
			&m.ComplianceRate, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("storage: scan developer metrics: %w", err)
		}
		if developerUserID.Valid {
			m.DeveloperUserID = &developerUserID.String
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

// SaveDailyMetric writes the operator audit row C8's daily job produces,
// overwriting any existing row for the same tenant, project and date.
func (s *SQLiteStore) SaveDailyMetric(ctx tenantctx.Context, m *types.DailyMetric) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO daily_metrics (id, tenant_id, project_id, date, velocity, total_items,
			compliant_count, compliance_rate, avg_cycle_time_days, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, project_id, date) DO UPDATE SET
			velocity = excluded.velocity, total_items = excluded.total_items,
			compliant_count = excluded.compliant_count, compliance_rate = excluded.compliance_rate,
			avg_cycle_time_days = excluded.avg_cycle_time_days`,
		m.ID, ctx.TenantID, m.ProjectID, m.Date, m.Velocity, m.TotalItems,
		m.CompliantCount, m.ComplianceRate, m.AvgCycleTimeDays, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("storage: save daily metric: %w", err)
	}
	return nil
}
