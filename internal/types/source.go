package types

import "time"

// SourceType identifies the vendor a SourceConfiguration talks to.
type SourceType string

const (
	SourceJira    SourceType = "jira"
	SourceClickUp SourceType = "clickup"
	SourceADO     SourceType = "ado"
	SourceGitHub  SourceType = "github"
)

// SyncStatus is the last-known outcome of a SourceConfiguration's sync.
type SyncStatus string

const (
	SyncNever      SyncStatus = "never"
	SyncInProgress SyncStatus = "in_progress"
	SyncSuccess    SyncStatus = "success"
	SyncFailed     SyncStatus = "failed"
)

// DefaultFailureAlertThreshold is the consecutive-failure count that
// trips a Progress Bus alert event.
const DefaultFailureAlertThreshold = 3

// SourceConfiguration is an authenticated binding of a Project to one
// external system.
type SourceConfiguration struct {
	ID                     string                 `json:"id"`
	TenantID               string                 `json:"tenant_id"`
	ProjectID              string                 `json:"project_id"`
	SourceType             SourceType             `json:"source_type"`
	BaseURL                string                 `json:"base_url"`
	EncryptedCredential    string                 `json:"-"`
	Username               string                 `json:"username,omitempty"`
	WorkspaceID            string                 `json:"workspace_id,omitempty"`
	CoverageThreshold      float64                `json:"coverage_threshold"`
	ConfigJSON             map[string]any         `json:"config_json"`
	FieldMappings          map[string]string      `json:"field_mappings,omitempty"`
	LastSyncStatus         SyncStatus             `json:"last_sync_status"`
	LastSyncAt             *time.Time             `json:"last_sync_at,omitempty"`
	LastSyncError          string                 `json:"last_sync_error,omitempty"`
	ConsecutiveFailures    int                    `json:"consecutive_failures"`
	FailureAlertThreshold  int                    `json:"failure_alert_threshold"`
	CreatedAt              time.Time              `json:"created_at"`
	UpdatedAt              time.Time              `json:"updated_at"`
}

// ActiveFolderID reads config_json.active_folder_id, the single field
// whose change must trigger a sync.
func (s *SourceConfiguration) ActiveFolderID() string {
	if s.ConfigJSON == nil {
		return ""
	}
	v, _ := s.ConfigJSON["active_folder_id"].(string)
	return v
}

// ConfigPatch is the set of fields update_source_config accepts. The
// storage layer never decides whether to enqueue a sync itself — it
// just reports the before/after folder so the caller can decide.
type ConfigPatch struct {
	BaseURL             *string
	EncryptedCredential *string
	ConfigJSON          map[string]any
	FieldMappings       map[string]string
}

// FolderChange is returned by Store.UpdateSourceConfig so the caller can
// decide whether to enqueue a sync job.
type FolderChange struct {
	OldFolder string
	NewFolder string
}

// Folder is a vendor-scoped sync target surfaced by Connector.ListFolders.
type Folder struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
