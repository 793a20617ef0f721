package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/pulseplatform/pulse/internal/types"
)

func (s *SQLiteStore) CreateTenant(t *types.Tenant) error {
	if t.ID == "" {
		return fmt.Errorf("storage: tenant id is required")
	}
	now := time.Now()
	t.CreatedAt, t.UpdatedAt = now, now
	_, err := s.db.Exec(`
		INSERT INTO tenants (id, slug, name, status, work_item_months, ai_insight_months,
			pull_request_months, ai_provider, ai_model, ai_api_key, ai_base_url, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Slug, t.Name, t.Status, t.Retention.WorkItemMonths, t.Retention.AIInsightMonths,
		t.Retention.PullRequestMonths, t.AI.Provider, t.AI.Model, t.AI.APIKey, t.AI.BaseURL, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("storage: create tenant: %w", err)
	}
	return nil
}

func scanTenant(row interface {
	Scan(dest ...interface{}) error
}) (*types.Tenant, error) {
	var t types.Tenant
	err := row.Scan(
		&t.ID, &t.Slug, &t.Name, &t.Status,
		&t.Retention.WorkItemMonths, &t.Retention.AIInsightMonths, &t.Retention.PullRequestMonths,
		&t.AI.Provider, &t.AI.Model, &t.AI.APIKey, &t.AI.BaseURL,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

const tenantColumns = `id, slug, name, status, work_item_months, ai_insight_months, pull_request_months,
	ai_provider, ai_model, ai_api_key, ai_base_url, created_at, updated_at`

func (s *SQLiteStore) GetTenant(tenantID string) (*types.Tenant, error) {
	row := s.db.QueryRow(`SELECT `+tenantColumns+` FROM tenants WHERE id = ?`, tenantID)
	t, err := scanTenant(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("storage: tenant %s not found", tenantID)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: get tenant: %w", err)
	}
	return t, nil
}

func (s *SQLiteStore) GetTenantBySlug(slug string) (*types.Tenant, error) {
	row := s.db.QueryRow(`SELECT `+tenantColumns+` FROM tenants WHERE slug = ?`, slug)
	t, err := scanTenant(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("storage: tenant with slug %s not found", slug)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: get tenant by slug: %w", err)
	}
	return t, nil
}

func (s *SQLiteStore) listTenants(where string, args ...interface{}) ([]*types.Tenant, error) {
	rows, err := s.db.Query(`SELECT `+tenantColumns+` FROM tenants `+where+` ORDER BY name`, args...)
	if err != nil {
		return nil, fmt.Errorf("storage: list tenants: %w", err)
	}
	defer rows.Close()

	var out []*types.Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan tenant: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ListActiveTenants satisfies scheduler.TenantLister.
func (s *SQLiteStore) ListActiveTenants() ([]*types.Tenant, error) {
	return s.listTenants("WHERE status = ?", types.TenantActive)
}

func (s *SQLiteStore) ListAllTenants() ([]*types.Tenant, error) {
	return s.listTenants("")
}
