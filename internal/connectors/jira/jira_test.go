package jira

import (
	"encoding/json"
	"testing"
	"time"
)

func TestFlattenADFConcatenatesTextLeaves(t *testing.T) {
	raw := json.RawMessage(`{
		"type": "doc",
		"content": [
			{"type": "paragraph", "content": [
				{"type": "text", "text": "Hello"},
				{"type": "text", "text": "world"}
			]}
		]
	}`)
	got := flattenADF(raw)
	if got != "Hello world" {
		t.Errorf("expected 'Hello world', got %q", got)
	}
}

func TestFlattenADFFallsBackToPlainString(t *testing.T) {
	raw := json.RawMessage(`"plain text description"`)
	if got := flattenADF(raw); got != "plain text description" {
		t.Errorf("expected plain string passthrough, got %q", got)
	}
}

func TestFlattenADFEmpty(t *testing.T) {
	if got := flattenADF(nil); got != "" {
		t.Errorf("expected empty string for nil input, got %q", got)
	}
}

func TestReconstructStartedAtFindsFirstInProgressTransition(t *testing.T) {
	histories := []changeHistory{
		{Created: "2024-01-01T10:00:00.000+0000", Items: []changeItem{{Field: "status", ToString: "To Do"}}},
		{Created: "2024-01-02T10:00:00.000+0000", Items: []changeItem{{Field: "status", ToString: "In Progress"}}},
		{Created: "2024-01-03T10:00:00.000+0000", Items: []changeItem{{Field: "status", ToString: "Done"}}},
	}

	got, ok := reconstructStartedAt(histories)
	if !ok {
		t.Fatal("expected a started_at to be found")
	}
	want := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestReconstructStartedAtIgnoresNonStatusFields(t *testing.T) {
	histories := []changeHistory{
		{Created: "2024-01-01T10:00:00.000+0000", Items: []changeItem{{Field: "assignee", ToString: "In Progress"}}},
	}
	if _, ok := reconstructStartedAt(histories); ok {
		t.Error("expected no match when only non-status fields change")
	}
}

func TestReconstructStartedAtNoMatch(t *testing.T) {
	histories := []changeHistory{
		{Created: "2024-01-01T10:00:00.000+0000", Items: []changeItem{{Field: "status", ToString: "To Do"}}},
	}
	if _, ok := reconstructStartedAt(histories); ok {
		t.Error("expected no match for a To Do transition")
	}
}

func TestMapIssueType(t *testing.T) {
	cases := map[string]string{"Bug": "bug", "Epic": "epic", "Story": "story", "Task": "task", "Sub-task": "task"}
	for in, want := range cases {
		if got := string(mapIssueType(in)); got != want {
			t.Errorf("mapIssueType(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMapStatusCategory(t *testing.T) {
	cases := map[string]string{"done": "done", "indeterminate": "in_progress", "new": "todo"}
	for in, want := range cases {
		if got := string(mapStatusCategory(in)); got != want {
			t.Errorf("mapStatusCategory(%q) = %q, want %q", in, got, want)
		}
	}
}
