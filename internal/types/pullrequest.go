package types

import "time"

// PRStatus is the normalized pull-request lifecycle state across vendors.
type PRStatus string

const (
	PROpen      PRStatus = "open"
	PRMerged    PRStatus = "merged"
	PRClosed    PRStatus = "closed"
	PRCompleted PRStatus = "completed"
	PRAbandoned PRStatus = "abandoned"
	PRActive    PRStatus = "active"
)

// CheckState is the normalized status-check outcome.
type CheckState string

const (
	CheckPending CheckState = "pending"
	CheckSuccess CheckState = "success"
	CheckFailure CheckState = "failure"
	CheckError   CheckState = "error"
)

// PullRequest is the normalized record for a vendor pull/merge request.
// Its key is (SourceConfigID, ExternalID).
type PullRequest struct {
	ID             string    `json:"id"`
	TenantID       string    `json:"tenant_id"`
	SourceConfigID string    `json:"source_config_id"`
	ExternalID     string    `json:"external_id"`
	Title          string    `json:"title"`
	AuthorEmail    string    `json:"author_email,omitempty"`
	AuthorUserID   *string   `json:"author_user_id,omitempty"`
	Status         PRStatus  `json:"status"`
	Repository     string    `json:"repository"`
	SourceBranch   string    `json:"source_branch"`
	TargetBranch   string    `json:"target_branch"`
	WorkItemID     *string   `json:"work_item_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	MergedAt       *time.Time `json:"merged_at,omitempty"`
}

// IsMerged reports whether the vendor's terminal state maps to "merged".
func (p *PullRequest) IsMerged() bool {
	return p.Status == PRMerged || p.Status == PRCompleted
}

// PullRequestStatusCheck is one status check result attached to a PR,
// keyed by (PullRequestID, Name).
type PullRequestStatusCheck struct {
	ID            string     `json:"id"`
	TenantID      string     `json:"tenant_id"`
	PullRequestID string     `json:"pull_request_id"`
	Name          string     `json:"name"`
	State         CheckState `json:"state"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
