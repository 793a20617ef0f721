package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pulseplatform/pulse/internal/tenantctx"
	"github.com/pulseplatform/pulse/internal/types"
)

// UpsertWorkItem writes w keyed by (source_config_id, external_id),
// satisfying connectors.WorkItemSink. The Compliance Evaluator has
// already derived DMTCompliant/ComplianceFailures onto w before this is
// called; this layer only persists them.
func (s *SQLiteStore) UpsertWorkItem(ctx tenantctx.Context, w *types.WorkItem) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	now := time.Now()
	if w.CreatedAt.IsZero() {
		w.CreatedAt = now
	}
	w.UpdatedAt = now

	_, err := s.db.Exec(`
		INSERT INTO work_items (id, tenant_id, source_config_id, external_id, project_id, title,
			description, item_type, status, status_category, parent_id, story_points,
			ai_usage_percent, coverage_percent, assignee_email, assignee_name, assignee_user_id,
			sprint_id, created_at, updated_at, started_at, resolved_at, ac_quality,
			unit_testing_status, pr_links, reviewer_dmt_signoff, dmt_exception_required,
			dmt_exception_reason, dmt_exception_approver, dmt_compliant, compliance_failures)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_config_id, external_id) DO UPDATE SET
			project_id = excluded.project_id, title = excluded.title, description = excluded.description,
			item_type = excluded.item_type, status = excluded.status, status_category = excluded.status_category,
			parent_id = excluded.parent_id, story_points = excluded.story_points,
			ai_usage_percent = excluded.ai_usage_percent, coverage_percent = excluded.coverage_percent,
			assignee_email = excluded.assignee_email, assignee_name = excluded.assignee_name,
			assignee_user_id = excluded.assignee_user_id, sprint_id = excluded.sprint_id,
			updated_at = excluded.updated_at, started_at = excluded.started_at, resolved_at = excluded.resolved_at,
			ac_quality = excluded.ac_quality, unit_testing_status = excluded.unit_testing_status,
			pr_links = excluded.pr_links, reviewer_dmt_signoff = excluded.reviewer_dmt_signoff,
			dmt_exception_required = excluded.dmt_exception_required, dmt_exception_reason = excluded.dmt_exception_reason,
			dmt_exception_approver = excluded.dmt_exception_approver, dmt_compliant = excluded.dmt_compliant,
			compliance_failures = excluded.compliance_failures`,
		w.ID, ctx.TenantID, w.SourceConfigID, w.ExternalID, w.ProjectID, w.Title,
		w.Description, w.ItemType, w.Status, w.StatusCategory, nullStringPtr(w.ParentID), nullFloat64(w.StoryPoints),
		nullFloat64(w.AIUsagePercent), nullFloat64(w.CoveragePercent), w.AssigneeEmail, w.AssigneeName,
		nullStringPtr(w.AssigneeUserID), nullStringPtr(w.SprintID), w.CreatedAt, w.UpdatedAt,
		nullTime(w.StartedAt), nullTime(w.ResolvedAt), w.ACQuality, w.UnitTestingStatus,
		marshalJSON(w.PRLinks), boolToInt(w.ReviewerDMTSignoff), boolToInt(w.DMTExceptionRequired),
		w.DMTExceptionReason, w.DMTExceptionApprover, boolToInt(w.DMTCompliant), marshalJSON(w.ComplianceFailures),
	)
	if err != nil {
		return fmt.Errorf("storage: upsert work item: %w", err)
	}
	return nil
}

func scanWorkItem(row interface{ Scan(dest ...interface{}) error }) (*types.WorkItem, error) {
	var w types.WorkItem
	var parentID, assigneeUserID, sprintID sql.NullString
	var storyPoints, aiUsage, coverage sql.NullFloat64
	var startedAt, resolvedAt sql.NullTime
	var reviewerSignoff, exceptionRequired, dmtCompliant int
	var prLinks, complianceFailures string

	err := row.Scan(
		&w.ID, &w.TenantID, &w.SourceConfigID, &w.ExternalID, &w.ProjectID, &w.Title, &w.Description,
		&w.ItemType, &w.Status, &w.StatusCategory, &parentID, &storyPoints, &aiUsage, &coverage,
		&w.AssigneeEmail, &w.AssigneeName, &assigneeUserID, &sprintID, &w.CreatedAt, &w.UpdatedAt,
		&startedAt, &resolvedAt, &w.ACQuality, &w.UnitTestingStatus, &prLinks, &reviewerSignoff,
		&exceptionRequired, &w.DMTExceptionReason, &w.DMTExceptionApprover, &dmtCompliant, &complianceFailures,
	)
	if err != nil {
		return nil, err
	}

	if parentID.Valid {
		w.ParentID = &parentID.String
	}
	if assigneeUserID.Valid {
		w.AssigneeUserID = &assigneeUserID.String
	}
	if sprintID.Valid {
		w.SprintID = &sprintID.String
	}
	w.StoryPoints = float64Ptr(storyPoints)
	w.AIUsagePercent = float64Ptr(aiUsage)
	w.CoveragePercent = float64Ptr(coverage)
	w.StartedAt = timePtr(startedAt)
	w.ResolvedAt = timePtr(resolvedAt)
	w.ReviewerDMTSignoff = intToBool(reviewerSignoff)
	w.DMTExceptionRequired = intToBool(exceptionRequired)
	w.DMTCompliant = intToBool(dmtCompliant)
	if err := unmarshalJSON(prLinks, &w.PRLinks); err != nil {
		return nil, fmt.Errorf("decode pr_links: %w", err)
	}
	if err := unmarshalJSON(complianceFailures, &w.ComplianceFailures); err != nil {
		return nil, fmt.Errorf("decode compliance_failures: %w", err)
	}
	return &w, nil
}

const workItemColumns = `id, tenant_id, source_config_id, external_id, project_id, title, description,
	item_type, status, status_category, parent_id, story_points, ai_usage_percent, coverage_percent,
	assignee_email, assignee_name, assignee_user_id, sprint_id, created_at, updated_at, started_at,
	resolved_at, ac_quality, unit_testing_status, pr_links, reviewer_dmt_signoff,
	dmt_exception_required, dmt_exception_reason, dmt_exception_approver, dmt_compliant, compliance_failures`

func (s *SQLiteStore) GetWorkItemByExternalID(ctx tenantctx.Context, sourceConfigID, externalID string) (*types.WorkItem, error) {
	row := s.db.QueryRow(`SELECT `+workItemColumns+` FROM work_items WHERE tenant_id = ? AND source_config_id = ? AND external_id = ?`,
		ctx.TenantID, sourceConfigID, externalID)
	w, err := scanWorkItem(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("storage: work item %s not found", externalID)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: get work item: %w", err)
	}
	return w, nil
}

// workItemColumnsQualified is workItemColumns with every column qualified
// by the wi. alias, needed because the sprint join below pulls in a
// second table that also has a tenant_id column.
const workItemColumnsQualified = `wi.id, wi.tenant_id, wi.source_config_id, wi.external_id, wi.project_id,
	wi.title, wi.description, wi.item_type, wi.status, wi.status_category, wi.parent_id, wi.story_points,
	wi.ai_usage_percent, wi.coverage_percent, wi.assignee_email, wi.assignee_name, wi.assignee_user_id,
	wi.sprint_id, wi.created_at, wi.updated_at, wi.started_at, wi.resolved_at, wi.ac_quality,
	wi.unit_testing_status, wi.pr_links, wi.reviewer_dmt_signoff, wi.dmt_exception_required,
	wi.dmt_exception_reason, wi.dmt_exception_approver, wi.dmt_compliant, wi.compliance_failures`

// ListSprintWorkItems satisfies metrics.Store; sprintExternalID joins
// through the sprints table since work_items stores the sprint's
// internal id, not its vendor external id.
func (s *SQLiteStore) ListSprintWorkItems(ctx tenantctx.Context, sprintExternalID string) ([]*types.WorkItem, error) {
	rows, err := s.db.Query(`
		SELECT `+workItemColumnsQualified+`
		FROM work_items wi
		JOIN sprints sp ON sp.id = wi.sprint_id AND sp.tenant_id = wi.tenant_id
		WHERE wi.tenant_id = ? AND sp.external_id = ?`,
		ctx.TenantID, sprintExternalID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list sprint work items: %w", err)
	}
	defer rows.Close()

	var out []*types.WorkItem
	for rows.Next() {
		w, err := scanWorkItem(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan work item: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// ListWorkItemsResolvedBetween returns every work item across the tenant
// (any project) whose resolved_at falls within [start, end), the raw
// material for C8's daily DailyMetric aggregation.
func (s *SQLiteStore) ListWorkItemsResolvedBetween(ctx tenantctx.Context, start, end time.Time) ([]*types.WorkItem, error) {
	rows, err := s.db.Query(`
		SELECT `+workItemColumns+` FROM work_items
		WHERE tenant_id = ? AND resolved_at >= ? AND resolved_at < ?`,
		ctx.TenantID, start, end,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list work items resolved between: %w", err)
	}
	defer rows.Close()

	var out []*types.WorkItem
	for rows.Next() {
		w, err := scanWorkItem(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan work item: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// ListStagnantWorkItems satisfies ai.Store: in-progress items in
// projectID whose updated_at is older than cutoff, the raw material for
// the AI Insight Worker's stagnation callout.
func (s *SQLiteStore) ListStagnantWorkItems(ctx tenantctx.Context, projectID string, cutoff time.Time) ([]*types.WorkItem, error) {
	rows, err := s.db.Query(`
		SELECT `+workItemColumns+` FROM work_items
		WHERE tenant_id = ? AND project_id = ? AND status_category = ? AND updated_at < ?
		ORDER BY updated_at ASC`,
		ctx.TenantID, projectID, types.StatusInProgress, cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list stagnant work items: %w", err)
	}
	defer rows.Close()

	var out []*types.WorkItem
	for rows.Next() {
		w, err := scanWorkItem(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan work item: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}
