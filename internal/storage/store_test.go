package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/pulseplatform/pulse/internal/tenantctx"
	"github.com/pulseplatform/pulse/internal/types"
)

func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(dbPath)
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedTenant(t *testing.T, s *SQLiteStore, id, slug string) tenantctx.Context {
	t.Helper()
	tenant := &types.Tenant{ID: id, Slug: slug, Name: slug, Status: types.TenantActive, Retention: types.DefaultRetentionPolicy()}
	if err := s.CreateTenant(tenant); err != nil {
		t.Fatalf("seed tenant: %v", err)
	}
	return tenantctx.Context{TenantID: id, Slug: slug}
}

func TestCreateAndGetTenant(t *testing.T) {
	s := setupTestStore(t)
	ctx := seedTenant(t, s, "t1", "acme")

	got, err := s.GetTenant(ctx.TenantID)
	if err != nil {
		t.Fatalf("GetTenant: %v", err)
	}
	if got.Slug != "acme" {
		t.Errorf("expected slug acme, got %s", got.Slug)
	}

	bySlug, err := s.GetTenantBySlug("acme")
	if err != nil {
		t.Fatalf("GetTenantBySlug: %v", err)
	}
	if bySlug.ID != "t1" {
		t.Errorf("expected tenant t1, got %s", bySlug.ID)
	}
}

func TestListActiveTenantsExcludesInactive(t *testing.T) {
	s := setupTestStore(t)
	seedTenant(t, s, "t1", "acme")
	inactive := &types.Tenant{ID: "t2", Slug: "globex", Name: "globex", Status: types.TenantInactive, Retention: types.DefaultRetentionPolicy()}
	if err := s.CreateTenant(inactive); err != nil {
		t.Fatalf("create inactive tenant: %v", err)
	}

	active, err := s.ListActiveTenants()
	if err != nil {
		t.Fatalf("ListActiveTenants: %v", err)
	}
	if len(active) != 1 || active[0].ID != "t1" {
		t.Fatalf("expected only t1 active, got %+v", active)
	}
}

func TestWorkItemUpsertIsIdempotentByExternalKey(t *testing.T) {
	s := setupTestStore(t)
	ctx := seedTenant(t, s, "t1", "acme")

	item := &types.WorkItem{
		TenantID: ctx.TenantID, SourceConfigID: "src-1", ExternalID: "EXT-1",
		ProjectID: "proj-1", Title: "Fix bug", ItemType: types.ItemBug,
		Status: "In Progress", StatusCategory: types.StatusInProgress,
		ACQuality: types.ACTestable, UnitTestingStatus: types.UnitTestingDone,
	}
	if err := s.UpsertWorkItem(ctx, item); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	firstID := item.ID

	item2 := &types.WorkItem{
		TenantID: ctx.TenantID, SourceConfigID: "src-1", ExternalID: "EXT-1",
		ProjectID: "proj-1", Title: "Fix bug (renamed)", ItemType: types.ItemBug,
		Status: "Done", StatusCategory: types.StatusDone,
		ACQuality: types.ACFinal, UnitTestingStatus: types.UnitTestingDone,
	}
	if err := s.UpsertWorkItem(ctx, item2); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, err := s.GetWorkItemByExternalID(ctx, "src-1", "EXT-1")
	if err != nil {
		t.Fatalf("GetWorkItemByExternalID: %v", err)
	}
	if got.ID != firstID {
		t.Errorf("expected upsert to reuse row id %s, got %s", firstID, got.ID)
	}
	if got.Title != "Fix bug (renamed)" {
		t.Errorf("expected updated title, got %s", got.Title)
	}
	if got.StatusCategory != types.StatusDone {
		t.Errorf("expected status_category done, got %s", got.StatusCategory)
	}
}

func TestWorkItemRoundTripsNullableFields(t *testing.T) {
	s := setupTestStore(t)
	ctx := seedTenant(t, s, "t1", "acme")

	points := 5.0
	parent := "parent-1"
	item := &types.WorkItem{
		TenantID: ctx.TenantID, SourceConfigID: "src-1", ExternalID: "EXT-2",
		ProjectID: "proj-1", Title: "Subtask", ItemType: types.ItemTask,
		Status: "To Do", StatusCategory: types.StatusTodo,
		ParentID: &parent, StoryPoints: &points,
		ACQuality: types.ACIncomplete, UnitTestingStatus: types.UnitTestingNotStarted,
		PRLinks: []string{"https://example.com/pr/1"},
	}
	if err := s.UpsertWorkItem(ctx, item); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := s.GetWorkItemByExternalID(ctx, "src-1", "EXT-2")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ParentID == nil || *got.ParentID != "parent-1" {
		t.Errorf("expected parent_id to round-trip, got %v", got.ParentID)
	}
	if got.StoryPoints == nil || *got.StoryPoints != 5.0 {
		t.Errorf("expected story_points to round-trip, got %v", got.StoryPoints)
	}
	if len(got.PRLinks) != 1 || got.PRLinks[0] != "https://example.com/pr/1" {
		t.Errorf("expected pr_links to round-trip, got %v", got.PRLinks)
	}
}

func TestSourceConfigSyncStatusLifecycle(t *testing.T) {
	s := setupTestStore(t)
	ctx := seedTenant(t, s, "t1", "acme")

	src := &types.SourceConfiguration{TenantID: ctx.TenantID, ProjectID: "proj-1", SourceType: types.SourceJira, BaseURL: "https://acme.atlassian.net"}
	if err := s.CreateSourceConfig(ctx, src); err != nil {
		t.Fatalf("create source config: %v", err)
	}

	now := time.Now()
	failures, err := s.MarkSyncFailed(ctx, src.ID, now, "timeout")
	if err != nil {
		t.Fatalf("mark sync failed: %v", err)
	}
	if failures != 1 {
		t.Errorf("expected 1 consecutive failure, got %d", failures)
	}

	failures, err = s.MarkSyncFailed(ctx, src.ID, now, "timeout again")
	if err != nil {
		t.Fatalf("mark sync failed (2nd): %v", err)
	}
	if failures != 2 {
		t.Errorf("expected 2 consecutive failures, got %d", failures)
	}

	if err := s.MarkSyncSuccess(ctx, src.ID, now); err != nil {
		t.Fatalf("mark sync success: %v", err)
	}

	got, err := s.GetSourceConfig(ctx, src.ID)
	if err != nil {
		t.Fatalf("get source config: %v", err)
	}
	if got.ConsecutiveFailures != 0 {
		t.Errorf("expected consecutive_failures reset to 0 after success, got %d", got.ConsecutiveFailures)
	}
	if got.LastSyncStatus != types.SyncSuccess {
		t.Errorf("expected last_sync_status success, got %s", got.LastSyncStatus)
	}
}

func TestRetentionDeletesOnlyPastCutoff(t *testing.T) {
	s := setupTestStore(t)
	ctx := seedTenant(t, s, "t1", "acme")

	old := &types.WorkItem{
		TenantID: ctx.TenantID, SourceConfigID: "src-1", ExternalID: "OLD-1",
		ProjectID: "proj-1", Title: "Old done item", ItemType: types.ItemTask,
		Status: "Done", StatusCategory: types.StatusDone,
		ACQuality: types.ACFinal, UnitTestingStatus: types.UnitTestingDone,
	}
	if err := s.UpsertWorkItem(ctx, old); err != nil {
		t.Fatalf("upsert old: %v", err)
	}
	// Backdate updated_at directly; UpsertWorkItem always stamps "now".
	if _, err := s.db.Exec(`UPDATE work_items SET updated_at = ? WHERE id = ?`, time.Now().AddDate(-3, 0, 0), old.ID); err != nil {
		t.Fatalf("backdate: %v", err)
	}

	recent := &types.WorkItem{
		TenantID: ctx.TenantID, SourceConfigID: "src-1", ExternalID: "NEW-1",
		ProjectID: "proj-1", Title: "Recent done item", ItemType: types.ItemTask,
		Status: "Done", StatusCategory: types.StatusDone,
		ACQuality: types.ACFinal, UnitTestingStatus: types.UnitTestingDone,
	}
	if err := s.UpsertWorkItem(ctx, recent); err != nil {
		t.Fatalf("upsert recent: %v", err)
	}

	cutoff := time.Now().AddDate(-2, 0, 0)
	deleted, err := s.DeleteDoneWorkItemsOlderThan(ctx, cutoff)
	if err != nil {
		t.Fatalf("retention delete: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected exactly 1 deleted work item, got %d", deleted)
	}

	if _, err := s.GetWorkItemByExternalID(ctx, "src-1", "NEW-1"); err != nil {
		t.Errorf("expected recent item to survive retention, got error: %v", err)
	}
	if _, err := s.GetWorkItemByExternalID(ctx, "src-1", "OLD-1"); err == nil {
		t.Error("expected old item to be deleted by retention")
	}
}

func TestAIInsightSuggestionFeedbackRoundTrips(t *testing.T) {
	s := setupTestStore(t)
	ctx := seedTenant(t, s, "t1", "acme")

	insight := &types.AIInsight{
		TenantID: ctx.TenantID, ProjectID: "proj-1", Summary: "Velocity dipped this sprint.",
		Suggestions: []types.Suggestion{
			{ID: "sugg-1", Title: "Add more reviewers", Impact: "medium", Status: types.SuggestionPending},
		},
		Forecast: "Stable next sprint.",
	}
	if err := s.SaveInsight(ctx, insight); err != nil {
		t.Fatalf("save insight: %v", err)
	}

	if err := s.UpdateSuggestionStatus(ctx, insight.ID, "sugg-1", types.SuggestionAccepted, time.Now()); err != nil {
		t.Fatalf("update suggestion status: %v", err)
	}

	got, err := s.GetInsight(ctx, insight.ID)
	if err != nil {
		t.Fatalf("get insight: %v", err)
	}
	if len(got.Suggestions) != 1 || got.Suggestions[0].Status != types.SuggestionAccepted {
		t.Fatalf("expected suggestion status accepted, got %+v", got.Suggestions)
	}
}

func TestTenantIsolationAcrossWorkItems(t *testing.T) {
	s := setupTestStore(t)
	ctxA := seedTenant(t, s, "tA", "acme")
	ctxB := seedTenant(t, s, "tB", "globex")

	item := &types.WorkItem{
		TenantID: ctxA.TenantID, SourceConfigID: "src-1", ExternalID: "SHARED-KEY",
		ProjectID: "proj-1", Title: "Tenant A item", ItemType: types.ItemTask,
		Status: "To Do", StatusCategory: types.StatusTodo,
		ACQuality: types.ACIncomplete, UnitTestingStatus: types.UnitTestingNotStarted,
	}
	if err := s.UpsertWorkItem(ctxA, item); err != nil {
		t.Fatalf("upsert for tenant A: %v", err)
	}

	if _, err := s.GetWorkItemByExternalID(ctxB, "src-1", "SHARED-KEY"); err == nil {
		t.Error("expected tenant B to not see tenant A's work item even under the same source_config_id/external_id")
	}
}
