package github

import (
	"testing"

	"github.com/pulseplatform/pulse/internal/types"
)

func TestMapPRStatus(t *testing.T) {
	if got := mapPRStatus("open", true); got != types.PRMerged {
		t.Errorf("expected merged to win regardless of state, got %s", got)
	}
	if got := mapPRStatus("closed", false); got != types.PRClosed {
		t.Errorf("expected closed, got %s", got)
	}
	if got := mapPRStatus("open", false); got != types.PROpen {
		t.Errorf("expected open, got %s", got)
	}
}

func TestMapCheckState(t *testing.T) {
	cases := []struct {
		status, conclusion string
		want               types.CheckState
	}{
		{"queued", "", types.CheckPending},
		{"in_progress", "", types.CheckPending},
		{"completed", "success", types.CheckSuccess},
		{"completed", "failure", types.CheckFailure},
		{"completed", "timed_out", types.CheckFailure},
		{"completed", "cancelled", types.CheckFailure},
		{"completed", "neutral", types.CheckError},
		{"completed", "action_required", types.CheckError},
	}
	for _, c := range cases {
		if got := mapCheckState(c.status, c.conclusion); got != c.want {
			t.Errorf("mapCheckState(%q, %q) = %q, want %q", c.status, c.conclusion, got, c.want)
		}
	}
}

func TestMatchIssueKeyFromTitle(t *testing.T) {
	key, ok := matchIssueKey("PROJ-123: fix the thing", "random-branch")
	if !ok || key != "PROJ-123" {
		t.Errorf("expected PROJ-123 from title, got %q ok=%v", key, ok)
	}
}

func TestMatchIssueKeyFromBranch(t *testing.T) {
	key, ok := matchIssueKey("fix the thing", "feature/proj-456-fix")
	if !ok || !strEqualFold(key, "proj-456") {
		t.Errorf("expected proj-456 from branch, got %q ok=%v", key, ok)
	}
}

func TestMatchIssueKeyHashPattern(t *testing.T) {
	key, ok := matchIssueKey("fixes #789", "main")
	if !ok || key != "#789" {
		t.Errorf("expected #789, got %q ok=%v", key, ok)
	}
}

func TestMatchIssueKeyNoMatch(t *testing.T) {
	if _, ok := matchIssueKey("a plain title", "main"); ok {
		t.Error("expected no match for a plain title/branch")
	}
}

func strEqualFold(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		ca, cb := a[i], b[i]
		if ca >= 'A' && ca <= 'Z' {
			ca += 'a' - 'A'
		}
		if cb >= 'A' && cb <= 'Z' {
			cb += 'a' - 'A'
		}
		if ca != cb {
			return false
		}
	}
	return true
}
