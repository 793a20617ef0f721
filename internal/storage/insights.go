package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pulseplatform/pulse/internal/tenantctx"
	"github.com/pulseplatform/pulse/internal/types"
)

// SaveInsight appends an AIInsight, satisfying ai.Store's finalize step.
func (s *SQLiteStore) SaveInsight(ctx tenantctx.Context, insight *types.AIInsight) error {
	if insight.ID == "" {
		insight.ID = uuid.NewString()
	}
	if insight.CreatedAt.IsZero() {
		insight.CreatedAt = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO ai_insights (id, tenant_id, project_id, summary, suggestions, forecast, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		insight.ID, ctx.TenantID, insight.ProjectID, insight.Summary,
		marshalJSON(insight.Suggestions), insight.Forecast, insight.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("storage: save insight: %w", err)
	}
	return nil
}

func scanInsight(row interface{ Scan(dest ...interface{}) error }) (*types.AIInsight, error) {
	var i types.AIInsight
	var suggestions string
	err := row.Scan(&i.ID, &i.TenantID, &i.ProjectID, &i.Summary, &suggestions, &i.Forecast, &i.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := unmarshalJSON(suggestions, &i.Suggestions); err != nil {
		return nil, fmt.Errorf("decode suggestions: %w", err)
	}
	return &i, nil
}

const insightColumns = `id, tenant_id, project_id, summary, suggestions, forecast, created_at`

func (s *SQLiteStore) GetInsight(ctx tenantctx.Context, insightID string) (*types.AIInsight, error) {
	row := s.db.QueryRow(`SELECT `+insightColumns+` FROM ai_insights WHERE tenant_id = ? AND id = ?`, ctx.TenantID, insightID)
	i, err := scanInsight(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("storage: insight %s not found", insightID)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: get insight: %w", err)
	}
	return i, nil
}

func (s *SQLiteStore) ListRecentInsights(ctx tenantctx.Context, projectID string, limit int) ([]*types.AIInsight, error) {
	rows, err := s.db.Query(`
		SELECT `+insightColumns+` FROM ai_insights
		WHERE tenant_id = ? AND project_id = ? ORDER BY created_at DESC LIMIT ?`,
		ctx.TenantID, projectID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list recent insights: %w", err)
	}
	defer rows.Close()

	var out []*types.AIInsight
	for rows.Next() {
		i, err := scanInsight(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan insight: %w", err)
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

// UpdateSuggestionStatus applies operator feedback to exactly one
// suggestion within an insight's JSON blob, mirroring AIInsight.ApplyFeedback.
func (s *SQLiteStore) UpdateSuggestionStatus(ctx tenantctx.Context, insightID, suggestionID string, status types.SuggestionStatus, at time.Time) error {
	insight, err := s.GetInsight(ctx, insightID)
	if err != nil {
		return err
	}
	if !insight.ApplyFeedback(suggestionID, status, at) {
		return fmt.Errorf("storage: suggestion %s not found on insight %s", suggestionID, insightID)
	}
	_, err = s.db.Exec(`UPDATE ai_insights SET suggestions = ? WHERE tenant_id = ? AND id = ?`,
		marshalJSON(insight.Suggestions), ctx.TenantID, insightID,
	)
	if err != nil {
		return fmt.Errorf("storage: update suggestion status: %w", err)
	}
	return nil
}
