// Package types holds the normalized domain model shared by every
// component of the telemetry pipeline: connectors, the compliance
// evaluator, the metric aggregator, the AI insight worker and the
// progress bus all read and write these structs.
package types

import (
	"fmt"
	"time"
)

// TenantStatus is the lifecycle state of a customer.
type TenantStatus string

const (
	TenantActive   TenantStatus = "active"
	TenantInactive TenantStatus = "inactive"
	TenantPending  TenantStatus = "pending"
)

// AIProvider identifies which LLM backend a tenant has configured.
type AIProvider string

const (
	AIProviderGemini AIProvider = "gemini"
	AIProviderKimi   AIProvider = "kimi"
)

// RetentionPolicy caps, in months, how long each entity class is kept.
type RetentionPolicy struct {
	WorkItemMonths   int `json:"work_item_months" yaml:"work_item_months"`
	AIInsightMonths  int `json:"ai_insight_months" yaml:"ai_insight_months"`
	PullRequestMonths int `json:"pull_request_months" yaml:"pull_request_months"`
}

// DefaultRetentionPolicy returns the default retention windows for a new tenant.
func DefaultRetentionPolicy() RetentionPolicy {
	return RetentionPolicy{
		WorkItemMonths:    24,
		AIInsightMonths:   12,
		PullRequestMonths: 18,
	}
}

// AIConfig holds the tenant's LLM provider binding.
type AIConfig struct {
	Provider AIProvider `json:"provider" yaml:"provider"`
	Model    string     `json:"model" yaml:"model"`
	APIKey   string     `json:"api_key" yaml:"api_key"`
	BaseURL  string     `json:"base_url,omitempty" yaml:"base_url,omitempty"`
}

// Tenant is a customer boundary. Its Slug is the pub/sub channel key and
// must be unique and stable for the tenant's lifetime.
type Tenant struct {
	ID        string          `json:"id"`
	Slug      string          `json:"slug"`
	Name      string          `json:"name"`
	Status    TenantStatus    `json:"status"`
	Retention RetentionPolicy `json:"retention"`
	AI        AIConfig        `json:"ai"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Validate checks the minimal invariants a Tenant row must hold.
func (t *Tenant) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("tenant id is required")
	}
	if t.Slug == "" {
		return fmt.Errorf("tenant slug is required")
	}
	switch t.Status {
	case TenantActive, TenantInactive, TenantPending:
	default:
		return fmt.Errorf("invalid tenant status: %s", t.Status)
	}
	return nil
}

// IsActive reports whether sync/AI jobs should run for this tenant.
func (t *Tenant) IsActive() bool {
	return t.Status == TenantActive
}

// Project belongs to exactly one tenant and owns a default DMT coverage
// threshold used by the compliance evaluator when a source doesn't
// override it.
type Project struct {
	ID                 string    `json:"id"`
	TenantID           string    `json:"tenant_id"`
	Name               string    `json:"name"`
	Key                string    `json:"key"`
	CoverageThreshold  float64   `json:"coverage_threshold"`
	CreatedAt          time.Time `json:"created_at"`
}

// DefaultCoverageThreshold is applied when a Project is created without
// an explicit value.
const DefaultCoverageThreshold = 80.0

// NewProject creates a Project with the default coverage threshold.
func NewProject(tenantID, name, key string) *Project {
	return &Project{
		TenantID:          tenantID,
		Name:              name,
		Key:               key,
		CoverageThreshold: DefaultCoverageThreshold,
		CreatedAt:         time.Now(),
	}
}
