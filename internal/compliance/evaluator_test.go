package compliance

import (
	"testing"

	"github.com/pulseplatform/pulse/internal/types"
)

func compliantItem() *types.WorkItem {
	cov := 85.0
	return &types.WorkItem{
		ItemType:           types.ItemStory,
		ACQuality:          types.ACFinal,
		UnitTestingStatus:  types.UnitTestingDone,
		CoveragePercent:    &cov,
		PRLinks:            []string{"https://github.com/acme/repo/pull/12"},
		ReviewerDMTSignoff: true,
		AssigneeEmail:      "dev@acme.com",
	}
}

func TestEvaluateFullyCompliant(t *testing.T) {
	item := compliantItem()
	Evaluate(item, 80.0)

	if !item.DMTCompliant {
		t.Errorf("expected compliant, got failures: %v", item.ComplianceFailures)
	}
	if len(item.ComplianceFailures) != 0 {
		t.Errorf("expected no failures, got %v", item.ComplianceFailures)
	}
}

func TestEvaluateSubtaskShortCircuits(t *testing.T) {
	parent := "PARENT-1"
	item := &types.WorkItem{ParentID: &parent, ACQuality: types.ACIncomplete}
	Evaluate(item, 80.0)

	if !item.DMTCompliant {
		t.Error("expected subtask to be unconditionally compliant")
	}
	if item.ComplianceFailures != nil {
		t.Errorf("expected no failures for subtask, got %v", item.ComplianceFailures)
	}
}

func TestEvaluateMissingACQuality(t *testing.T) {
	item := compliantItem()
	item.ACQuality = types.ACIncomplete
	Evaluate(item, 80.0)

	if !hasFailure(item, types.FailureMissingACQuality) {
		t.Errorf("expected missing_ac_quality, got %v", item.ComplianceFailures)
	}
}

func TestEvaluateUnitTestingNotDoneAndLowCoverage(t *testing.T) {
	item := compliantItem()
	item.UnitTestingStatus = types.UnitTestingInProgress
	cov := 50.0
	item.CoveragePercent = &cov
	Evaluate(item, 80.0)

	if !hasFailure(item, types.FailureUnitTestingNotDone) {
		t.Errorf("expected unit_testing_not_done, got %v", item.ComplianceFailures)
	}
	if !hasFailure(item, types.FailureLowCoverage) {
		t.Errorf("expected low_coverage, got %v", item.ComplianceFailures)
	}
}

func TestEvaluateNilCoverageIsLowCoverage(t *testing.T) {
	item := compliantItem()
	item.CoveragePercent = nil
	Evaluate(item, 80.0)

	if !hasFailure(item, types.FailureLowCoverage) {
		t.Errorf("expected low_coverage for nil coverage, got %v", item.ComplianceFailures)
	}
}

func TestEvaluateExceptionApprovedSkipsUnitTestingChecks(t *testing.T) {
	item := compliantItem()
	item.UnitTestingStatus = types.UnitTestingExceptionApproved
	item.CoveragePercent = nil
	Evaluate(item, 80.0)

	if hasFailure(item, types.FailureUnitTestingNotDone) || hasFailure(item, types.FailureLowCoverage) {
		t.Errorf("expected exception_approved to bypass both checks, got %v", item.ComplianceFailures)
	}
	if !item.DMTCompliant {
		t.Errorf("expected compliant, got %v", item.ComplianceFailures)
	}
}

func TestEvaluatePRAndSignoffOnlyAppliesToStoriesAndBugs(t *testing.T) {
	item := compliantItem()
	item.ItemType = types.ItemTask
	item.PRLinks = nil
	item.ReviewerDMTSignoff = false
	Evaluate(item, 80.0)

	if hasFailure(item, types.FailureMissingPRLink) || hasFailure(item, types.FailureMissingDMTSignoff) {
		t.Errorf("expected task item type to skip PR/signoff checks, got %v", item.ComplianceFailures)
	}
}

func TestEvaluateMissingPRLinkRejectsNonHTTPLinks(t *testing.T) {
	item := compliantItem()
	item.PRLinks = []string{"ref-12"}
	Evaluate(item, 80.0)

	if !hasFailure(item, types.FailureMissingPRLink) {
		t.Errorf("expected missing_pr_link for non-http link, got %v", item.ComplianceFailures)
	}
}

func TestEvaluateMissingAssignee(t *testing.T) {
	item := compliantItem()
	item.AssigneeEmail = ""
	Evaluate(item, 80.0)

	if !hasFailure(item, types.FailureMissingAssignee) {
		t.Errorf("expected missing_assignee, got %v", item.ComplianceFailures)
	}
}

func hasFailure(item *types.WorkItem, f types.ComplianceFailure) bool {
	for _, got := range item.ComplianceFailures {
		if got == f {
			return true
		}
	}
	return false
}
