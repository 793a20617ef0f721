package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pulseplatform/pulse/internal/tenantctx"
	"github.com/pulseplatform/pulse/internal/types"
)

func (s *SQLiteStore) CreateSourceConfig(ctx tenantctx.Context, src *types.SourceConfiguration) error {
	if src.ID == "" {
		src.ID = uuid.NewString()
	}
	now := time.Now()
	src.CreatedAt, src.UpdatedAt = now, now
	if src.LastSyncStatus == "" {
		src.LastSyncStatus = types.SyncNever
	}
	if src.FailureAlertThreshold == 0 {
		src.FailureAlertThreshold = types.DefaultFailureAlertThreshold
	}
	_, err := s.db.Exec(`
		INSERT INTO source_configurations (id, tenant_id, project_id, source_type, base_url,
			encrypted_credential, username, workspace_id, coverage_threshold, config_json,
			field_mappings, last_sync_status, failure_alert_threshold, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		src.ID, ctx.TenantID, src.ProjectID, src.SourceType, src.BaseURL,
		src.EncryptedCredential, src.Username, src.WorkspaceID, src.CoverageThreshold,
		marshalJSON(src.ConfigJSON), marshalJSON(src.FieldMappings), src.LastSyncStatus,
		src.FailureAlertThreshold, src.CreatedAt, src.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("storage: create source config: %w", err)
	}
	return nil
}

func scanSourceConfig(row interface{ Scan(dest ...interface{}) error }) (*types.SourceConfiguration, error) {
	var src types.SourceConfiguration
	var configJSON, fieldMappings string
	var lastSyncAt sql.NullTime
	var lastSyncError sql.NullString

	err := row.Scan(
		&src.ID, &src.TenantID, &src.ProjectID, &src.SourceType, &src.BaseURL,
		&src.EncryptedCredential, &src.Username, &src.WorkspaceID, &src.CoverageThreshold,
		&configJSON, &fieldMappings, &src.LastSyncStatus, &lastSyncAt, &lastSyncError,
		&src.ConsecutiveFailures, &src.FailureAlertThreshold, &src.CreatedAt, &src.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := unmarshalJSON(configJSON, &src.ConfigJSON); err != nil {
		return nil, fmt.Errorf("decode config_json: %w", err)
	}
	if err := unmarshalJSON(fieldMappings, &src.FieldMappings); err != nil {
		return nil, fmt.Errorf("decode field_mappings: %w", err)
	}
	src.LastSyncAt = timePtr(lastSyncAt)
	src.LastSyncError = lastSyncError.String
	return &src, nil
}

const sourceConfigColumns = `id, tenant_id, project_id, source_type, base_url, encrypted_credential,
	username, workspace_id, coverage_threshold, config_json, field_mappings, last_sync_status,
	last_sync_at, last_sync_error, consecutive_failures, failure_alert_threshold, created_at, updated_at`

func (s *SQLiteStore) GetSourceConfig(ctx tenantctx.Context, sourceID string) (*types.SourceConfiguration, error) {
	row := s.db.QueryRow(`SELECT `+sourceConfigColumns+` FROM source_configurations WHERE tenant_id = ? AND id = ?`,
		ctx.TenantID, sourceID)
	src, err := scanSourceConfig(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("storage: source config %s not found", sourceID)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: get source config: %w", err)
	}
	return src, nil
}

func (s *SQLiteStore) listSourceConfigs(tenantID string) ([]*types.SourceConfiguration, error) {
	rows, err := s.db.Query(`SELECT `+sourceConfigColumns+` FROM source_configurations WHERE tenant_id = ? ORDER BY created_at`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("storage: list source configs: %w", err)
	}
	defer rows.Close()

	var out []*types.SourceConfiguration
	for rows.Next() {
		src, err := scanSourceConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("storage: scan source config: %w", err)
		}
		out = append(out, src)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ListSourceConfigs(ctx tenantctx.Context) ([]*types.SourceConfiguration, error) {
	return s.listSourceConfigs(ctx.TenantID)
}

// ListSourcesForTenant satisfies scheduler.TenantLister.
func (s *SQLiteStore) ListSourcesForTenant(tenantID string) ([]*types.SourceConfiguration, error) {
	return s.listSourceConfigs(tenantID)
}

// UpdateSourceConfig applies patch and reports the active_folder_id
// before/after so the caller (the API layer) can decide whether to
// enqueue a sync: the storage layer records state but never decides.
func (s *SQLiteStore) UpdateSourceConfig(ctx tenantctx.Context, sourceID string, patch types.ConfigPatch) (types.FolderChange, error) {
	existing, err := s.GetSourceConfig(ctx, sourceID)
	if err != nil {
		return types.FolderChange{}, err
	}
	change := types.FolderChange{OldFolder: existing.ActiveFolderID()}

	if patch.BaseURL != nil {
		existing.BaseURL = *patch.BaseURL
	}
	if patch.EncryptedCredential != nil {
		existing.EncryptedCredential = *patch.EncryptedCredential
	}
	if patch.ConfigJSON != nil {
		existing.ConfigJSON = patch.ConfigJSON
	}
	if patch.FieldMappings != nil {
		existing.FieldMappings = patch.FieldMappings
	}
	change.NewFolder = existing.ActiveFolderID()
	existing.UpdatedAt = time.Now()

	_, err = s.db.Exec(`
		UPDATE source_configurations
		SET base_url = ?, encrypted_credential = ?, config_json = ?, field_mappings = ?, updated_at = ?
		WHERE tenant_id = ? AND id = ?`,
		existing.BaseURL, existing.EncryptedCredential, marshalJSON(existing.ConfigJSON),
		marshalJSON(existing.FieldMappings), existing.UpdatedAt, ctx.TenantID, sourceID,
	)
	if err != nil {
		return types.FolderChange{}, fmt.Errorf("storage: update source config: %w", err)
	}
	return change, nil
}

func (s *SQLiteStore) MarkSyncInProgress(ctx tenantctx.Context, sourceID string, at time.Time) error {
	_, err := s.db.Exec(`
		UPDATE source_configurations SET last_sync_status = ?, updated_at = ? WHERE tenant_id = ? AND id = ?`,
		types.SyncInProgress, at, ctx.TenantID, sourceID,
	)
	if err != nil {
		return fmt.Errorf("storage: mark sync in progress: %w", err)
	}
	return nil
}

func (s *SQLiteStore) MarkSyncSuccess(ctx tenantctx.Context, sourceID string, at time.Time) error {
	_, err := s.db.Exec(`
		UPDATE source_configurations
		SET last_sync_status = ?, last_sync_at = ?, last_sync_error = '', consecutive_failures = 0, updated_at = ?
		WHERE tenant_id = ? AND id = ?`,
		types.SyncSuccess, at, at, ctx.TenantID, sourceID,
	)
	if err != nil {
		return fmt.Errorf("storage: mark sync success: %w", err)
	}
	return nil
}

// MarkSyncFailed increments consecutive_failures and returns the new
// count so the orchestrator can compare it against FailureAlertThreshold.
func (s *SQLiteStore) MarkSyncFailed(ctx tenantctx.Context, sourceID string, at time.Time, errMsg string) (int, error) {
	var failures int
	err := s.withTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			UPDATE source_configurations
			SET last_sync_status = ?, last_sync_at = ?, last_sync_error = ?,
				consecutive_failures = consecutive_failures + 1, updated_at = ?
			WHERE tenant_id = ? AND id = ?`,
			types.SyncFailed, at, errMsg, at, ctx.TenantID, sourceID,
		)
		if err != nil {
			return err
		}
		return tx.QueryRow(`SELECT consecutive_failures FROM source_configurations WHERE tenant_id = ? AND id = ?`,
			ctx.TenantID, sourceID).Scan(&failures)
	})
	if err != nil {
		return 0, fmt.Errorf("storage: mark sync failed: %w", err)
	}
	return failures, nil
}
