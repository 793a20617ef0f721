package types

import "time"

// SprintStatus is re-derived from Start/End on every sync rather than
// stored authoritatively by the vendor.
type SprintStatus string

const (
	SprintBacklog   SprintStatus = "backlog"
	SprintPlanned   SprintStatus = "planned"
	SprintActive    SprintStatus = "active"
	SprintCompleted SprintStatus = "completed"
)

// Sprint is a time-boxed container of work items, unique by ExternalID.
type Sprint struct {
	ID         string       `json:"id"`
	TenantID   string       `json:"tenant_id"`
	ExternalID string       `json:"external_id"`
	Name       string       `json:"name"`
	StartDate  *time.Time   `json:"start_date,omitempty"`
	EndDate    *time.Time   `json:"end_date,omitempty"`
	Status     SprintStatus `json:"status"`
}

// DeriveStatus re-derives Status from Start/End relative to now: unset
// dates -> backlog; now < start -> planned; start <= now <= end -> active;
// else completed.
func (s *Sprint) DeriveStatus(now time.Time) SprintStatus {
	if s.StartDate == nil || s.EndDate == nil {
		return SprintBacklog
	}
	if now.Before(*s.StartDate) {
		return SprintPlanned
	}
	if !now.After(*s.EndDate) {
		return SprintActive
	}
	return SprintCompleted
}

// PRHealth summarizes a sprint's status-check outcomes.
type PRHealth struct {
	Total   int `json:"total"`
	Success int `json:"success"`
	Failure int `json:"failure"`
	Pending int `json:"pending"`
}

// SprintMetrics is the dashboard's source of truth for a sprint, unique
// per (SprintName, SprintEndDate, ProjectID) where ProjectID == "" means
// the tenant-global view.
type SprintMetrics struct {
	ID                  string    `json:"id"`
	TenantID            string    `json:"tenant_id"`
	SprintName          string    `json:"sprint_name"`
	SprintEndDate       time.Time `json:"sprint_end_date"`
	ProjectID           string    `json:"project_id,omitempty"`
	Velocity            float64   `json:"velocity"`
	TotalCompleted       int       `json:"total_completed"`
	StoriesCompleted     int       `json:"stories_completed"`
	BugsCompleted        int       `json:"bugs_completed"`
	CompliantCount       int       `json:"compliant_count"`
	TotalItems           int       `json:"total_items"`
	ComplianceRate       float64   `json:"compliance_rate"`
	DefectDensityPer100  float64   `json:"defect_density_per_100"`
	AvgCycleTimeDays     float64   `json:"avg_cycle_time_days"`
	PRHealth             PRHealth  `json:"pr_health"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// IsGlobal reports whether this row is the synthetic tenant-wide view.
func (m *SprintMetrics) IsGlobal() bool {
	return m.ProjectID == ""
}

// DeveloperMetrics is the per-developer breakdown within a project for a
// sprint, unique per (DeveloperEmail, SprintName, SprintEndDate, ProjectID).
type DeveloperMetrics struct {
	ID                string    `json:"id"`
	TenantID          string    `json:"tenant_id"`
	DeveloperEmail    string    `json:"developer_email"`
	DeveloperUserID   *string   `json:"developer_user_id,omitempty"`
	SprintName        string    `json:"sprint_name"`
	SprintEndDate     time.Time `json:"sprint_end_date"`
	ProjectID         string    `json:"project_id,omitempty"`
	CompletedPoints   float64   `json:"completed_points"`
	CompletedItems    int       `json:"completed_items"`
	PRsAuthored       int       `json:"prs_authored"`
	PRsMerged         int       `json:"prs_merged"`
	PRsReviewed       int       `json:"prs_reviewed"`
	DefectsAttributed int       `json:"defects_attributed"`
	AvgCoverage       float64   `json:"avg_coverage"`
	AvgAIUsage        float64   `json:"avg_ai_usage"`
	ComplianceRate    float64   `json:"compliance_rate"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// CompetitiveTitle is one of the four single-holder per-sprint awards.
type CompetitiveTitle string

const (
	TitleVelocityKing   CompetitiveTitle = "Velocity King"
	TitleQualityChampion CompetitiveTitle = "Quality Champion"
	TitleTopReviewer     CompetitiveTitle = "Top Reviewer"
	TitleAISpecialist    CompetitiveTitle = "AI Specialist"
)

// AllCompetitiveTitles lists the titles in the fixed award order used to
// break category ties deterministically, so the same inputs always
// produce the same winner.
func AllCompetitiveTitles() []CompetitiveTitle {
	return []CompetitiveTitle{
		TitleVelocityKing,
		TitleQualityChampion,
		TitleTopReviewer,
		TitleAISpecialist,
	}
}

// DailyMetric is an operator audit trail: a compliance/velocity/throughput
// snapshot scoped to a calendar day rather than a sprint, never read by
// the dashboard.
type DailyMetric struct {
	ID               string    `json:"id"`
	TenantID         string    `json:"tenant_id"`
	ProjectID        string    `json:"project_id,omitempty"`
	Date             time.Time `json:"date"`
	Velocity         float64   `json:"velocity"`
	TotalItems       int       `json:"total_items"`
	CompliantCount   int       `json:"compliant_count"`
	ComplianceRate   float64   `json:"compliance_rate"`
	AvgCycleTimeDays float64   `json:"avg_cycle_time_days"`
	CreatedAt        time.Time `json:"created_at"`
}
