package types

import "time"

// ItemType is the normalized work item kind.
type ItemType string

const (
	ItemStory ItemType = "story"
	ItemBug   ItemType = "bug"
	ItemTask  ItemType = "task"
	ItemEpic  ItemType = "epic"
)

// StatusCategory is the normalized workflow bucket a vendor status maps to.
type StatusCategory string

const (
	StatusTodo       StatusCategory = "todo"
	StatusInProgress StatusCategory = "in_progress"
	StatusDone       StatusCategory = "done"
)

// ACQuality is the acceptance-criteria maturity of a work item.
type ACQuality string

const (
	ACIncomplete ACQuality = "incomplete"
	ACTestable   ACQuality = "testable"
	ACFinal      ACQuality = "final"
)

// UnitTestingStatus tracks DMT unit-test evidence.
type UnitTestingStatus string

const (
	UnitTestingNotStarted       UnitTestingStatus = "not_started"
	UnitTestingInProgress       UnitTestingStatus = "in_progress"
	UnitTestingDone             UnitTestingStatus = "done"
	UnitTestingExceptionApproved UnitTestingStatus = "exception_approved"
)

// ComplianceFailure is a stable tag identifying one failed DMT rule.
type ComplianceFailure string

const (
	FailureMissingACQuality    ComplianceFailure = "missing_ac_quality"
	FailureUnitTestingNotDone  ComplianceFailure = "unit_testing_not_done"
	FailureLowCoverage         ComplianceFailure = "low_coverage"
	FailureMissingPRLink       ComplianceFailure = "missing_pr_link"
	FailureMissingDMTSignoff   ComplianceFailure = "missing_dmt_signoff"
	FailureMissingAssignee     ComplianceFailure = "missing_assignee"
)

// WorkItem is the normalized record produced by every connector. Its key
// is (SourceConfigID, ExternalID).
type WorkItem struct {
	ID              string   `json:"id"`
	TenantID        string   `json:"tenant_id"`
	SourceConfigID  string   `json:"source_config_id"`
	ExternalID      string   `json:"external_id"`
	ProjectID       string   `json:"project_id"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	ItemType        ItemType `json:"item_type"`
	Status          string   `json:"status"`
	StatusCategory  StatusCategory `json:"status_category"`
	ParentID        *string  `json:"parent_id,omitempty"`
	StoryPoints     *float64 `json:"story_points,omitempty"`
	AIUsagePercent  *float64 `json:"ai_usage_percent,omitempty"`
	CoveragePercent *float64 `json:"coverage_percent,omitempty"`
	AssigneeEmail   string   `json:"assignee_email,omitempty"`
	AssigneeName    string   `json:"assignee_name,omitempty"`
	AssigneeUserID  *string  `json:"assignee_user_id,omitempty"`
	SprintID        *string  `json:"sprint_id,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`

	// DMT evidence fields.
	ACQuality              ACQuality         `json:"ac_quality"`
	UnitTestingStatus      UnitTestingStatus `json:"unit_testing_status"`
	PRLinks                []string          `json:"pr_links,omitempty"`
	ReviewerDMTSignoff     bool              `json:"reviewer_dmt_signoff"`
	DMTExceptionRequired   bool              `json:"dmt_exception_required"`
	DMTExceptionReason     string            `json:"dmt_exception_reason,omitempty"`
	DMTExceptionApprover   string            `json:"dmt_exception_approver,omitempty"`

	// Derived by the Compliance Evaluator on every write.
	DMTCompliant        bool                `json:"dmt_compliant"`
	ComplianceFailures  []ComplianceFailure `json:"compliance_failures"`
}

// HasParent reports whether this item is a subtask of another item.
func (w *WorkItem) HasParent() bool {
	return w.ParentID != nil && *w.ParentID != ""
}

// IsCompleted reports whether the item is in the done status category.
func (w *WorkItem) IsCompleted() bool {
	return w.StatusCategory == StatusDone
}

// MarkStartedIfUnset records the first observed transition into
// in_progress (started_at is only ever set once).
func (w *WorkItem) MarkStartedIfUnset(at time.Time) {
	if w.StartedAt == nil {
		t := at
		w.StartedAt = &t
	}
}

// ApplyStatusCategory re-derives timestamps required by invariant 2
// (status_category == done ⇒ resolved_at != null). When the vendor
// doesn't supply a resolution timestamp it is backfilled to observedAt.
func (w *WorkItem) ApplyStatusCategory(category StatusCategory, observedAt time.Time) {
	previous := w.StatusCategory
	w.StatusCategory = category

	if category == StatusInProgress && previous != StatusInProgress {
		w.MarkStartedIfUnset(observedAt)
	}

	if category == StatusDone && w.ResolvedAt == nil {
		t := observedAt
		w.ResolvedAt = &t
	}
}

// StoryPointsValue returns the story points or zero when unset, the shape
// the aggregator consumes throughout velocity/throughput math.
func (w *WorkItem) StoryPointsValue() float64 {
	if w.StoryPoints == nil {
		return 0
	}
	return *w.StoryPoints
}

// CycleTimeDays computes the per-item cycle time used by
// populate_sprint_metrics: resolved-started, falling back to
// resolved-created (lead time) when started_at is null. Returns false
// when the item has no resolution to measure from.
func (w *WorkItem) CycleTimeDays() (float64, bool) {
	if w.ResolvedAt == nil {
		return 0, false
	}
	start := w.CreatedAt
	if w.StartedAt != nil {
		start = *w.StartedAt
	}
	days := w.ResolvedAt.Sub(start).Hours() / 24.0
	if days < 0 {
		days = 0
	}
	return days, true
}
