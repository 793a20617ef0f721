package ado

import (
	"testing"
	"time"

	"github.com/pulseplatform/pulse/internal/types"
)

func TestParseOrgProjectWithBoth(t *testing.T) {
	org, proj, err := parseOrgProject("https://dev.azure.com/acme-corp/Platform")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if org != "acme-corp" || proj != "Platform" {
		t.Errorf("expected org=acme-corp proj=Platform, got org=%s proj=%s", org, proj)
	}
}

func TestParseOrgProjectOrgOnly(t *testing.T) {
	org, proj, err := parseOrgProject("https://dev.azure.com/acme-corp")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if org != "acme-corp" || proj != "" {
		t.Errorf("expected org=acme-corp proj=empty, got org=%s proj=%s", org, proj)
	}
}

func TestParseOrgProjectRejectsNonADOHost(t *testing.T) {
	if _, _, err := parseOrgProject("https://example.com/acme-corp"); err == nil {
		t.Error("expected an error for a non dev.azure.com base url")
	}
}

func TestMapWorkItemType(t *testing.T) {
	cases := map[string]types.ItemType{
		"Bug":                    types.ItemBug,
		"Epic":                   types.ItemEpic,
		"User Story":             types.ItemStory,
		"Product Backlog Item":   types.ItemStory,
		"Task":                   types.ItemTask,
	}
	for in, want := range cases {
		if got := mapWorkItemType(in); got != want {
			t.Errorf("mapWorkItemType(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMapState(t *testing.T) {
	cases := map[string]types.StatusCategory{
		"Closed":     types.StatusDone,
		"Resolved":   types.StatusDone,
		"Active":     types.StatusInProgress,
		"Committed":  types.StatusInProgress,
		"New":        types.StatusTodo,
	}
	for in, want := range cases {
		if got := mapState(in); got != want {
			t.Errorf("mapState(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPRCompletedToMerged(t *testing.T) {
	closed := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	status, mergedAt := prCompletedToMerged("completed", &closed)
	if status != types.PRMerged || mergedAt == nil || !mergedAt.Equal(closed) {
		t.Errorf("expected completed -> merged at %v, got %v at %v", closed, status, mergedAt)
	}

	status, mergedAt = prCompletedToMerged("abandoned", &closed)
	if status != types.PRAbandoned || mergedAt != nil {
		t.Errorf("expected abandoned -> abandoned with no merged_at, got %v at %v", status, mergedAt)
	}

	status, mergedAt = prCompletedToMerged("active", nil)
	if status != types.PRActive || mergedAt != nil {
		t.Errorf("expected active -> active, got %v", status)
	}
}
