package storage

import (
	"time"

	"github.com/pulseplatform/pulse/internal/tenantctx"
	"github.com/pulseplatform/pulse/internal/types"
)

// Store is the full persistence surface the rest of the pipeline depends
// on, grouped by entity. Every consumer package (identity,
// sync, metrics, connectors, ai, scheduler) only imports the narrow slice
// of this surface it actually calls, declared as its own local interface;
// *SQLiteStore satisfies all of them at once because the method sets
// below are supersets of each narrow interface.
type Store interface {
	// Tenants
	CreateTenant(t *types.Tenant) error
	GetTenant(tenantID string) (*types.Tenant, error)
	GetTenantBySlug(slug string) (*types.Tenant, error)
	ListActiveTenants() ([]*types.Tenant, error)
	ListAllTenants() ([]*types.Tenant, error)

	// Projects
	CreateProject(p *types.Project) error
	GetProject(ctx tenantctx.Context, projectID string) (*types.Project, error)
	ListProjects(ctx tenantctx.Context) ([]*types.Project, error)
	ListProjectsForTenant(tenantID string) ([]*types.Project, error)

	// Source configurations
	CreateSourceConfig(ctx tenantctx.Context, s *types.SourceConfiguration) error
	GetSourceConfig(ctx tenantctx.Context, sourceID string) (*types.SourceConfiguration, error)
	ListSourceConfigs(ctx tenantctx.Context) ([]*types.SourceConfiguration, error)
	ListSourcesForTenant(tenantID string) ([]*types.SourceConfiguration, error)
	UpdateSourceConfig(ctx tenantctx.Context, sourceID string, patch types.ConfigPatch) (types.FolderChange, error)
	MarkSyncInProgress(ctx tenantctx.Context, sourceID string, at time.Time) error
	MarkSyncSuccess(ctx tenantctx.Context, sourceID string, at time.Time) error
	MarkSyncFailed(ctx tenantctx.Context, sourceID string, at time.Time, errMsg string) (int, error)

	// Users and external identities
	GetExternalIdentity(ctx tenantctx.Context, provider types.SourceType, externalUserID string) (*types.ExternalIdentity, error)
	GetUserByEmail(ctx tenantctx.Context, email string) (*types.User, error)
	GetUserByName(ctx tenantctx.Context, firstName, lastName string) (*types.User, error)
	GetUser(ctx tenantctx.Context, userID string) (*types.User, error)
	UsernameTaken(ctx tenantctx.Context, username string) (bool, error)
	CreateUser(ctx tenantctx.Context, u *types.User) error
	UpdateUserName(ctx tenantctx.Context, userID, firstName, lastName string) error
	UpsertExternalIdentity(ctx tenantctx.Context, ei *types.ExternalIdentity) error
	ListTenantUsers(ctx tenantctx.Context) ([]*types.User, error)
	ClearCompetitiveTitles(ctx tenantctx.Context) error
	SaveUserTitle(ctx tenantctx.Context, userID string, title types.CompetitiveTitle, reason string) error

	// Work items, sprints, pull requests
	UpsertWorkItem(ctx tenantctx.Context, w *types.WorkItem) error
	GetWorkItemByExternalID(ctx tenantctx.Context, sourceConfigID, externalID string) (*types.WorkItem, error)
	UpsertSprint(ctx tenantctx.Context, s *types.Sprint) error
	GetSprint(ctx tenantctx.Context, sprintExternalID string) (*types.Sprint, error)
	ListSprintWorkItems(ctx tenantctx.Context, sprintExternalID string) ([]*types.WorkItem, error)
	UpsertPullRequest(ctx tenantctx.Context, p *types.PullRequest) error
	UpsertPullRequestStatusCheck(ctx tenantctx.Context, c *types.PullRequestStatusCheck) error
	ListSprintPullRequests(ctx tenantctx.Context, sprintExternalID string) ([]*types.PullRequest, error)
	ListStagnantWorkItems(ctx tenantctx.Context, projectID string, cutoff time.Time) ([]*types.WorkItem, error)

	// Metrics
	UpsertSprintMetrics(ctx tenantctx.Context, m *types.SprintMetrics) error
	UpsertDeveloperMetrics(ctx tenantctx.Context, m *types.DeveloperMetrics) error
	ListSprintMetrics(ctx tenantctx.Context, projectID string) ([]*types.SprintMetrics, error)
	ListRecentDeveloperMetrics(ctx tenantctx.Context, projectID string) ([]*types.DeveloperMetrics, error)
	SaveDailyMetric(ctx tenantctx.Context, m *types.DailyMetric) error

	// AI insights
	SaveInsight(ctx tenantctx.Context, insight *types.AIInsight) error
	GetInsight(ctx tenantctx.Context, insightID string) (*types.AIInsight, error)
	ListRecentInsights(ctx tenantctx.Context, projectID string, limit int) ([]*types.AIInsight, error)
	UpdateSuggestionStatus(ctx tenantctx.Context, insightID, suggestionID string, status types.SuggestionStatus, at time.Time) error

	// Task logs
	CreateTaskLog(ctx tenantctx.Context, log *types.TaskLog) error
	FinishTaskLog(ctx tenantctx.Context, logID string, status types.TaskStatus, errMsg string, at time.Time) error
	ListRecentTaskLogs(ctx tenantctx.Context, limit int) ([]*types.TaskLog, error)

	// Retention
	DeleteDoneWorkItemsOlderThan(ctx tenantctx.Context, cutoff time.Time) (int, error)
	DeleteSprintsEndedBefore(ctx tenantctx.Context, cutoff time.Time) (int, error)
	DeleteStalePullRequests(ctx tenantctx.Context, mergedCutoff, updatedCutoff time.Time) (int, error)
	DeleteAIInsightsOlderThan(ctx tenantctx.Context, cutoff time.Time) (int, error)

	Close() error
}
