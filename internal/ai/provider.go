// Package ai implements the AI Insight Worker (C6): gathers sprint/
// developer metrics, calls an LLM Provider behind a circuit breaker and
// retry policy, and publishes a new AIInsight.
package ai

import (
	"context"
)

// PromptMetrics is the metric snapshot a Provider is asked to reason
// about, assembled by the worker's gather step.
type PromptMetrics struct {
	ProjectID           string
	AvgCycleTimeDays    float64
	LatestComplianceRate float64
	AssigneeDistribution []AssigneeStat
	StagnantItemTitles  []string
	RecentDeveloperSummaries []string
}

// AssigneeStat is one row of the gather step's assignee-distribution list.
type AssigneeStat struct {
	Name          string
	Email         string
	InProgress    int
	Completed     int
	AvgCycleTime  float64
}

// Insight is what a Provider returns: the raw material for an AIInsight
// row.
type Insight struct {
	Summary     string
	Suggestions []SuggestionDraft
	Forecast    string
}

// SuggestionDraft is a provider-proposed suggestion before it is assigned
// an id and a pending status.
type SuggestionDraft struct {
	Title       string
	Impact      string
	Description string
}

// Provider is the contract every LLM backend implements.
type Provider interface {
	GenerateOptimizationInsights(ctx context.Context, m PromptMetrics) (Insight, error)
}
