package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pulseplatform/pulse/internal/tenantctx"
	"github.com/pulseplatform/pulse/internal/types"
)

func (s *SQLiteStore) UpsertPullRequest(ctx tenantctx.Context, p *types.PullRequest) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	_, err := s.db.Exec(`
		INSERT INTO pull_requests (id, tenant_id, source_config_id, external_id, title, author_email,
			author_user_id, status, repository, source_branch, target_branch, work_item_id,
			created_at, updated_at, merged_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(source_config_id, external_id) DO UPDATE SET
			title = excluded.title, author_email = excluded.author_email,
			author_user_id = excluded.author_user_id, status = excluded.status,
			repository = excluded.repository, source_branch = excluded.source_branch,
			target_branch = excluded.target_branch, work_item_id = excluded.work_item_id,
			updated_at = excluded.updated_at, merged_at = excluded.merged_at`,
		p.ID, ctx.TenantID, p.SourceConfigID, p.ExternalID, p.Title, p.AuthorEmail,
		nullStringPtr(p.AuthorUserID), p.Status, p.Repository, p.SourceBranch, p.TargetBranch,
		nullStringPtr(p.WorkItemID), p.CreatedAt, p.UpdatedAt, nullTime(p.MergedAt),
	)
	if err != nil {
		return fmt.Errorf("storage: upsert pull request: %w", err)
	}
	return nil
}

func (s *SQLiteStore) UpsertPullRequestStatusCheck(ctx tenantctx.Context, c *types.PullRequestStatusCheck) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO pull_request_status_checks (id, tenant_id, pull_request_id, name, state, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(pull_request_id, name) DO UPDATE SET
			state = excluded.state, updated_at = excluded.updated_at`,
		c.ID, ctx.TenantID, c.PullRequestID, c.Name, c.State, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("storage: upsert pull request status check: %w", err)
	}
	return nil
}

// ListSprintPullRequests satisfies metrics.Store: every PullRequest
// linked to a work item that belongs to the given sprint.
func (s *SQLiteStore) ListSprintPullRequests(ctx tenantctx.Context, sprintExternalID string) ([]*types.PullRequest, error) {
	rows, err := s.db.Query(`
		SELECT pr.id, pr.tenant_id, pr.source_config_id, pr.external_id, pr.title, pr.author_email,
			pr.author_user_id, pr.status, pr.repository, pr.source_branch, pr.target_branch,
			pr.work_item_id, pr.created_at, pr.updated_at, pr.merged_at
		FROM pull_requests pr
		JOIN work_items wi ON wi.id = pr.work_item_id AND wi.tenant_id = pr.tenant_id
		JOIN sprints sp ON sp.id = wi.sprint_id AND sp.tenant_id = wi.tenant_id
		WHERE pr.tenant_id = ? AND sp.external_id = ?`,
		ctx.TenantID, sprintExternalID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list sprint pull requests: %w", err)
	}
	defer rows.Close()

	var out []*types.PullRequest
	for rows.Next() {
		var p types.PullRequest
		var authorUserID, workItemID sql.NullString
		var mergedAt sql.NullTime
		if err := rows.Scan(&p.ID, &p.TenantID, &p.SourceConfigID, &p.ExternalID, &p.Title, &p.AuthorEmail,
			&authorUserID, &p.Status, &p.Repository, &p.SourceBranch, &p.TargetBranch,
			&workItemID, &p.CreatedAt, &p.UpdatedAt, &mergedAt); err != nil {
			return nil, fmt.Errorf("storage: scan pull request: %w", err)
		}
		if authorUserID.Valid {
			p.AuthorUserID = &authorUserID.String
		}
		if workItemID.Valid {
			p.WorkItemID = &workItemID.String
		}
		p.MergedAt = timePtr(mergedAt)
		out = append(out, &p)
	}
	return out, rows.Err()
}
