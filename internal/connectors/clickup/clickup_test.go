package clickup

import (
	"testing"

	"github.com/pulseplatform/pulse/internal/connectors"
	"github.com/pulseplatform/pulse/internal/tenantctx"
	"github.com/pulseplatform/pulse/internal/types"
)

func TestIsSprintFolderFlagOrName(t *testing.T) {
	cases := []struct {
		folder rawFolder
		want   bool
	}{
		{rawFolder{Name: "Backlog"}, false},
		{rawFolder{Name: "Sprint 14"}, true},
		{rawFolder{Name: "sprint planning"}, true},
		{rawFolder{IsSprintFlag: true, Name: "anything"}, true},
	}
	for _, c := range cases {
		if got := isSprintFolder(c.folder); got != c.want {
			t.Errorf("isSprintFolder(%+v) = %v, want %v", c.folder, got, c.want)
		}
	}
}

func TestSprintKeyIsStable(t *testing.T) {
	if got := sprintKey("901"); got != "clickup_sprint_901" {
		t.Errorf("unexpected sprint key: %s", got)
	}
}

func TestResolveDropdownByOrderIndex(t *testing.T) {
	f := rawCustomFld{
		Value: float64(1),
		Options: []struct {
			ID         string `json:"id"`
			Name       string `json:"name"`
			OrderIndex int    `json:"orderindex"`
		}{
			{ID: "a", Name: "incomplete", OrderIndex: 0},
			{ID: "b", Name: "testable", OrderIndex: 1},
			{ID: "c", Name: "final", OrderIndex: 2},
		},
	}
	if got := resolveDropdown(f); got != "testable" {
		t.Errorf("expected testable, got %s", got)
	}
}

func TestResolveDropdownByID(t *testing.T) {
	f := rawCustomFld{
		Value: "c",
		Options: []struct {
			ID         string `json:"id"`
			Name       string `json:"name"`
			OrderIndex int    `json:"orderindex"`
		}{
			{ID: "b", Name: "testable", OrderIndex: 1},
			{ID: "c", Name: "final", OrderIndex: 2},
		},
	}
	if got := resolveDropdown(f); got != "final" {
		t.Errorf("expected final, got %s", got)
	}
}

func TestMapStatusCategory(t *testing.T) {
	cases := map[string]types.StatusCategory{
		"closed": types.StatusDone,
		"done":   types.StatusDone,
		"custom": types.StatusInProgress,
		"open":   types.StatusTodo,
		"":       types.StatusTodo,
	}
	for in, want := range cases {
		if got := mapStatusCategory(in); got != want {
			t.Errorf("mapStatusCategory(%q) = %q, want %q", in, got, want)
		}
	}
}

// fakeSink is a minimal connectors.WorkItemSink for exercising
// backfillParents without a storage layer.
type fakeSink struct {
	items map[string]*types.WorkItem
}

func newFakeSink() *fakeSink { return &fakeSink{items: map[string]*types.WorkItem{}} }

func (s *fakeSink) UpsertWorkItem(_ tenantctx.Context, w *types.WorkItem) error {
	s.items[w.ExternalID] = w
	return nil
}
func (s *fakeSink) UpsertSprint(tenantctx.Context, *types.Sprint) error { return nil }
func (s *fakeSink) UpsertPullRequest(tenantctx.Context, *types.PullRequest) error { return nil }
func (s *fakeSink) UpsertPullRequestStatusCheck(tenantctx.Context, *types.PullRequestStatusCheck) error {
	return nil
}
func (s *fakeSink) GetWorkItemByExternalID(_ tenantctx.Context, _, externalID string) (*types.WorkItem, error) {
	return s.items[externalID], nil
}

func TestBackfillParentsSumsChildPointsWhenParentEmpty(t *testing.T) {
	sink := newFakeSink()
	parent := &types.WorkItem{ExternalID: "TASK-1", ItemType: types.ItemTask}
	sink.items["TASK-1"] = parent

	pID := "TASK-1"
	ai1, ai2 := 10.0, 30.0
	pts1, pts2 := 3.0, 5.0
	child1 := &types.WorkItem{ExternalID: "TASK-1a", ParentID: &pID, StoryPoints: &pts1, AIUsagePercent: &ai1}
	child2 := &types.WorkItem{ExternalID: "TASK-1b", ParentID: &pID, StoryPoints: &pts2, AIUsagePercent: &ai2}

	conn := &Connector{
		source: &types.SourceConfiguration{ID: "src-1", CoverageThreshold: 80},
		deps:   connectors.Deps{Sink: sink},
	}

	byParent := map[string][]*types.WorkItem{pID: {child1, child2}}
	in := connectors.SyncInput{Tenant: tenantctx.Context{TenantID: "t1"}}
	conn.backfillParents(in, byParent)

	if parent.StoryPoints == nil || *parent.StoryPoints != 8 {
		t.Errorf("expected summed points 8, got %v", parent.StoryPoints)
	}
	if parent.AIUsagePercent == nil || *parent.AIUsagePercent != 20 {
		t.Errorf("expected averaged ai usage 20, got %v", parent.AIUsagePercent)
	}
}
