package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pulseplatform/pulse/internal/connectors"
	"github.com/pulseplatform/pulse/internal/metrics"
	pulsenats "github.com/pulseplatform/pulse/internal/nats"
	"github.com/pulseplatform/pulse/internal/sync"
	"github.com/pulseplatform/pulse/internal/tenantctx"
	"github.com/pulseplatform/pulse/internal/types"
)

type fakeTenantStore struct {
	tenants map[string]*types.Tenant
}

func (s *fakeTenantStore) GetTenant(tenantID string) (*types.Tenant, error) {
	t, ok := s.tenants[tenantID]
	if !ok {
		return nil, errors.New("no such tenant")
	}
	return t, nil
}

type fakeTaskLogStore struct {
	created  []*types.TaskLog
	finished map[string]types.TaskStatus
}

func (s *fakeTaskLogStore) CreateTaskLog(_ tenantctx.Context, log *types.TaskLog) error {
	log.ID = log.TaskName + "-" + log.TargetID
	s.created = append(s.created, log)
	return nil
}

func (s *fakeTaskLogStore) FinishTaskLog(_ tenantctx.Context, logID string, status types.TaskStatus, _ string, _ time.Time) error {
	if s.finished == nil {
		s.finished = make(map[string]types.TaskStatus)
	}
	s.finished[logID] = status
	return nil
}

type fakeSyncStore struct{ source *types.SourceConfiguration }

func (s *fakeSyncStore) GetSourceConfig(tenantctx.Context, string) (*types.SourceConfiguration, error) {
	return s.source, nil
}
func (s *fakeSyncStore) MarkSyncInProgress(tenantctx.Context, string, time.Time) error { return nil }
func (s *fakeSyncStore) MarkSyncSuccess(tenantctx.Context, string, time.Time) error     { return nil }
func (s *fakeSyncStore) MarkSyncFailed(_ tenantctx.Context, _ string, _ time.Time, _ string) (int, error) {
	return 1, nil
}

type fakePublisher struct{}

func (fakePublisher) PublishSyncProgress(tenantctx.Context, string, int, string, string) {}
func (fakePublisher) PublishAlert(tenantctx.Context, string, string)                     {}
func (fakePublisher) PublishAIProgress(tenantctx.Context, string, int, string)           {}

type fakeEnqueuer struct{}

func (fakeEnqueuer) EnqueueMetricRecalc(tenantctx.Context, string) error { return nil }

type fakeConnector struct{ syncErr error }

func (f *fakeConnector) TestConnection(context.Context) error { return nil }
func (f *fakeConnector) ListFolders(context.Context) ([]types.Folder, error) {
	return nil, nil
}
func (f *fakeConnector) Sync(_ context.Context, in connectors.SyncInput) (connectors.SyncResult, error) {
	in.Progress(60, "fetching")
	if f.syncErr != nil {
		return connectors.SyncResult{}, f.syncErr
	}
	return connectors.SyncResult{ItemCount: 1}, nil
}

type fakeMetricsStore struct {
	projects []*types.Project
}

func (s *fakeMetricsStore) ListProjects(tenantctx.Context) ([]*types.Project, error) {
	return s.projects, nil
}
func (s *fakeMetricsStore) ListSprintWorkItems(tenantctx.Context, string) ([]*types.WorkItem, error) {
	return nil, nil
}
func (s *fakeMetricsStore) ListSprintPullRequests(tenantctx.Context, string) ([]*types.PullRequest, error) {
	return nil, nil
}
func (s *fakeMetricsStore) UpsertSprintMetrics(tenantctx.Context, *types.SprintMetrics) error {
	return nil
}
func (s *fakeMetricsStore) UpsertDeveloperMetrics(tenantctx.Context, *types.DeveloperMetrics) error {
	return nil
}
func (s *fakeMetricsStore) ListTenantUsers(tenantctx.Context) ([]*types.User, error) { return nil, nil }
func (s *fakeMetricsStore) ClearCompetitiveTitles(tenantctx.Context) error            { return nil }
func (s *fakeMetricsStore) SaveUserTitle(tenantctx.Context, string, types.CompetitiveTitle, string) error {
	return nil
}
func (s *fakeMetricsStore) GetSprint(tenantctx.Context, string) (*types.Sprint, error) {
	return nil, errors.New("no sprint")
}
func (s *fakeMetricsStore) ListSprintExternalIDsForProject(tenantctx.Context, string) ([]string, error) {
	return nil, nil
}
func (s *fakeMetricsStore) ListWorkItemsResolvedBetween(tenantctx.Context, time.Time, time.Time) ([]*types.WorkItem, error) {
	return nil, nil
}
func (s *fakeMetricsStore) SaveDailyMetric(tenantctx.Context, *types.DailyMetric) error { return nil }

type fakeRetentionStore struct{ calls int }

func (s *fakeRetentionStore) DeleteDoneWorkItemsOlderThan(tenantctx.Context, time.Time) (int, error) {
	s.calls++
	return 0, nil
}
func (s *fakeRetentionStore) DeleteSprintsEndedBefore(tenantctx.Context, time.Time) (int, error) {
	return 0, nil
}
func (s *fakeRetentionStore) DeleteStalePullRequests(tenantctx.Context, time.Time, time.Time) (int, error) {
	return 0, nil
}
func (s *fakeRetentionStore) DeleteAIInsightsOlderThan(tenantctx.Context, time.Time) (int, error) {
	return 0, nil
}

func newTestDispatcher(t *testing.T, source *types.SourceConfiguration, tenants map[string]*types.Tenant) (*Dispatcher, *fakeTaskLogStore) {
	t.Helper()
	taskLogs := &fakeTaskLogStore{}
	orch := sync.New(&fakeSyncStore{source: source}, fakePublisher{}, fakeEnqueuer{}, connectors.Deps{}, func(*types.SourceConfiguration, connectors.Deps) (connectors.Connector, error) {
		return &fakeConnector{}, nil
	})
	agg := metrics.New(&fakeMetricsStore{projects: []*types.Project{{ID: "proj-1"}}})
	aiFactory := NewAIWorkerFactory(nil, fakePublisher{}, map[types.AIProvider]string{})
	return New(&fakeTenantStore{tenants: tenants}, taskLogs, orch, agg, &fakeRetentionStore{}, aiFactory), taskLogs
}

func testTenant() *types.Tenant {
	return &types.Tenant{ID: "t1", Slug: "acme", Retention: types.DefaultRetentionPolicy()}
}

func TestHandleSyncWritesSuccessTaskLog(t *testing.T) {
	tenant := testTenant()
	d, taskLogs := newTestDispatcher(t, &types.SourceConfiguration{ID: "src-1", FailureAlertThreshold: 3}, map[string]*types.Tenant{tenant.ID: tenant})

	err := d.HandleSync(context.Background(), pulsenats.SyncJob{TenantID: tenant.ID, SourceID: "src-1"})
	if err != nil {
		t.Fatalf("HandleSync: %v", err)
	}
	if len(taskLogs.created) != 1 || taskLogs.created[0].TaskName != "sync" {
		t.Fatalf("expected one sync task log, got %+v", taskLogs.created)
	}
	if taskLogs.finished[taskLogs.created[0].ID] != types.TaskSuccess {
		t.Fatalf("expected task log marked success")
	}
}

func TestHandleSyncUnknownTenantFails(t *testing.T) {
	d, taskLogs := newTestDispatcher(t, &types.SourceConfiguration{ID: "src-1"}, map[string]*types.Tenant{})

	err := d.HandleSync(context.Background(), pulsenats.SyncJob{TenantID: "missing", SourceID: "src-1"})
	if err == nil {
		t.Fatal("expected error for unknown tenant")
	}
	if len(taskLogs.created) != 0 {
		t.Fatalf("expected no task log when tenant lookup fails, got %+v", taskLogs.created)
	}
}

func TestHandleMetricsRecalculatesProject(t *testing.T) {
	tenant := testTenant()
	d, taskLogs := newTestDispatcher(t, &types.SourceConfiguration{ID: "src-1"}, map[string]*types.Tenant{tenant.ID: tenant})

	err := d.HandleMetrics(context.Background(), pulsenats.MetricsJob{TenantID: tenant.ID, ProjectID: "proj-1"})
	if err != nil {
		t.Fatalf("HandleMetrics: %v", err)
	}
	if len(taskLogs.created) != 1 || taskLogs.created[0].TaskName != "metrics_recalc" {
		t.Fatalf("expected one metrics_recalc task log, got %+v", taskLogs.created)
	}
}

func TestHandleMetricsRetentionSweepRunsBothSteps(t *testing.T) {
	tenant := testTenant()
	retention := &fakeRetentionStore{}
	taskLogs := &fakeTaskLogStore{}
	orch := sync.New(&fakeSyncStore{}, fakePublisher{}, fakeEnqueuer{}, connectors.Deps{}, nil)
	agg := metrics.New(&fakeMetricsStore{projects: []*types.Project{{ID: "proj-1"}}})
	aiFactory := NewAIWorkerFactory(nil, fakePublisher{}, map[types.AIProvider]string{})
	d := New(&fakeTenantStore{tenants: map[string]*types.Tenant{tenant.ID: tenant}}, taskLogs, orch, agg, retention, aiFactory)

	err := d.HandleMetrics(context.Background(), pulsenats.MetricsJob{TenantID: tenant.ID, RetentionSweep: true})
	if err != nil {
		t.Fatalf("HandleMetrics retention sweep: %v", err)
	}
	if retention.calls == 0 {
		t.Fatal("expected retention sweep to run")
	}
	if len(taskLogs.created) != 1 || taskLogs.created[0].TaskName != "retention_sweep" {
		t.Fatalf("expected one retention_sweep task log, got %+v", taskLogs.created)
	}
}

func TestHandleAIInsightFailsFastWithoutAPIKey(t *testing.T) {
	tenant := testTenant()
	tenant.AI = types.AIConfig{Provider: types.AIProviderGemini}
	d, taskLogs := newTestDispatcher(t, &types.SourceConfiguration{}, map[string]*types.Tenant{tenant.ID: tenant})

	err := d.HandleAIInsight(context.Background(), pulsenats.AIInsightJob{TenantID: tenant.ID, ProjectID: "proj-1"})
	if err == nil {
		t.Fatal("expected error when tenant has no AI API key configured")
	}
	if taskLogs.finished[taskLogs.created[0].ID] != types.TaskFailed {
		t.Fatalf("expected task log marked failed")
	}
}
