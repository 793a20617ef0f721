// Package compliance implements the Compliance Evaluator (C3): a
// deterministic pure function from a normalized WorkItem and a
// per-source coverage threshold to a DMT compliance verdict.
package compliance

import (
	"strings"

	"github.com/pulseplatform/pulse/internal/types"
)

// Evaluate derives dmt_compliant and compliance_failures for item and
// writes them onto item in place, mutating its receiver rather than
// returning a copy. coverageThreshold comes from the owning
// SourceConfiguration.
func Evaluate(item *types.WorkItem, coverageThreshold float64) {
	if item.HasParent() {
		item.DMTCompliant = true
		item.ComplianceFailures = nil
		return
	}

	var failures []types.ComplianceFailure

	if item.ACQuality != types.ACTestable && item.ACQuality != types.ACFinal {
		failures = append(failures, types.FailureMissingACQuality)
	}

	if item.UnitTestingStatus != types.UnitTestingExceptionApproved {
		if item.UnitTestingStatus != types.UnitTestingDone {
			failures = append(failures, types.FailureUnitTestingNotDone)
		}
		if item.CoveragePercent == nil || *item.CoveragePercent < coverageThreshold {
			failures = append(failures, types.FailureLowCoverage)
		}
	}

	if item.ItemType == types.ItemStory || item.ItemType == types.ItemBug {
		if !hasHTTPLink(item.PRLinks) {
			failures = append(failures, types.FailureMissingPRLink)
		}
		if !item.ReviewerDMTSignoff {
			failures = append(failures, types.FailureMissingDMTSignoff)
		}
	}

	if item.AssigneeEmail == "" {
		failures = append(failures, types.FailureMissingAssignee)
	}

	item.ComplianceFailures = failures
	item.DMTCompliant = len(failures) == 0
}

func hasHTTPLink(links []string) bool {
	for _, l := range links {
		if strings.HasPrefix(l, "http") {
			return true
		}
	}
	return false
}
