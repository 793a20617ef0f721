package storage

import (
	"fmt"
	"time"

	"github.com/pulseplatform/pulse/internal/tenantctx"
	"github.com/pulseplatform/pulse/internal/types"
)

// DeleteDoneWorkItemsOlderThan satisfies scheduler.RetentionStore: done
// work items whose updated_at has aged past the tenant's WorkItemMonths
// window.
func (s *SQLiteStore) DeleteDoneWorkItemsOlderThan(ctx tenantctx.Context, cutoff time.Time) (int, error) {
	res, err := s.db.Exec(`
		DELETE FROM work_items WHERE tenant_id = ? AND status_category = ? AND updated_at < ?`,
		ctx.TenantID, types.StatusDone, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("storage: delete done work items: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// DeleteSprintsEndedBefore removes sprints whose end_date is before
// cutoff, sharing the WorkItem retention window.
func (s *SQLiteStore) DeleteSprintsEndedBefore(ctx tenantctx.Context, cutoff time.Time) (int, error) {
	res, err := s.db.Exec(`
		DELETE FROM sprints WHERE tenant_id = ? AND end_date IS NOT NULL AND end_date < ?`,
		ctx.TenantID, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("storage: delete stale sprints: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// DeleteStalePullRequests removes PRs that are either merged before
// mergedCutoff or, for ones never merged, simply stale past updatedCutoff.
func (s *SQLiteStore) DeleteStalePullRequests(ctx tenantctx.Context, mergedCutoff, updatedCutoff time.Time) (int, error) {
	res, err := s.db.Exec(`
		DELETE FROM pull_requests
		WHERE tenant_id = ?
		  AND ((merged_at IS NOT NULL AND merged_at < ?) OR (merged_at IS NULL AND updated_at < ?))`,
		ctx.TenantID, mergedCutoff, updatedCutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("storage: delete stale pull requests: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// DeleteAIInsightsOlderThan removes insight rows past AIInsightMonths.
func (s *SQLiteStore) DeleteAIInsightsOlderThan(ctx tenantctx.Context, cutoff time.Time) (int, error) {
	res, err := s.db.Exec(`DELETE FROM ai_insights WHERE tenant_id = ? AND created_at < ?`, ctx.TenantID, cutoff)
	if err != nil {
		return 0, fmt.Errorf("storage: delete stale ai insights: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
