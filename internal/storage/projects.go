package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pulseplatform/pulse/internal/tenantctx"
	"github.com/pulseplatform/pulse/internal/types"
)

func (s *SQLiteStore) CreateProject(p *types.Project) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO projects (id, tenant_id, name, key, coverage_threshold, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.TenantID, p.Name, p.Key, p.CoverageThreshold, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("storage: create project: %w", err)
	}
	return nil
}

func scanProject(row interface{ Scan(dest ...interface{}) error }) (*types.Project, error) {
	var p types.Project
	err := row.Scan(&p.ID, &p.TenantID, &p.Name, &p.Key, &p.CoverageThreshold, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

const projectColumns = `id, tenant_id, name, key, coverage_threshold, created_at`

func (s *SQLiteStore) GetProject(ctx tenantctx.Context, projectID string) (*types.Project, error) {
	row := s.db.QueryRow(`SELECT `+projectColumns+` FROM projects WHERE tenant_id = ? AND id = ?`, ctx.TenantID, projectID)
	p, err := scanProject(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("storage: project %s not found", projectID)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: get project: %w", err)
	}
	return p, nil
}

// ListProjects satisfies metrics.Store.
func (s *SQLiteStore) ListProjects(ctx tenantctx.Context) ([]*types.Project, error) {
	return s.listProjects(ctx.TenantID)
}

// ListProjectsForTenant satisfies scheduler.TenantLister, which has no
// tenantctx value to hand in (it runs outside any single tenant's job).
func (s *SQLiteStore) ListProjectsForTenant(tenantID string) ([]*types.Project, error) {
	return s.listProjects(tenantID)
}

func (s *SQLiteStore) listProjects(tenantID string) ([]*types.Project, error) {
	rows, err := s.db.Query(`SELECT `+projectColumns+` FROM projects WHERE tenant_id = ? ORDER BY name`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("storage: list projects: %w", err)
	}
	defer rows.Close()

	var out []*types.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan project: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
