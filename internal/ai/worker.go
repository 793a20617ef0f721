package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/pulseplatform/pulse/internal/metrics"
	"github.com/pulseplatform/pulse/internal/tenantctx"
	"github.com/pulseplatform/pulse/internal/types"
)

// Store is the slice of the storage layer the worker reads gather inputs
// from and writes the resulting AIInsight to.
type Store interface {
	ListSprintMetrics(ctx tenantctx.Context, projectID string) ([]*types.SprintMetrics, error)
	ListStagnantWorkItems(ctx tenantctx.Context, projectID string, cutoff time.Time) ([]*types.WorkItem, error)
	ListRecentDeveloperMetrics(ctx tenantctx.Context, projectID string) ([]*types.DeveloperMetrics, error)
	SaveInsight(ctx tenantctx.Context, insight *types.AIInsight) error
}

// Publisher is the narrow slice of the Progress Bus the worker emits to.
type Publisher interface {
	PublishAIProgress(tenant tenantctx.Context, projectID string, percent int, message string)
}

// Worker runs the three-step gather/call/finalize algorithm.
type Worker struct {
	store     Store
	publisher Publisher
	provider  Provider
	breaker   *CircuitBreaker
	now       func() time.Time
}

// New builds a Worker. One CircuitBreaker is shared across calls to a
// given provider, so a sustained outage trips it regardless of which
// tenant's insight triggered the failures.
func New(store Store, publisher Publisher, provider Provider, breaker *CircuitBreaker) *Worker {
	return &Worker{store: store, publisher: publisher, provider: provider, breaker: breaker, now: time.Now}
}

// stagnantWindow is the 5-day "no update" cutoff.
const stagnantWindow = 5 * 24 * time.Hour

// Run executes Gather -> Call -> Finalize for projectID ("" for
// tenant-global) under tenant, publishing the three progress events.
func (w *Worker) Run(ctx context.Context, tenant tenantctx.Context, projectID string) (*types.AIInsight, error) {
	w.publisher.PublishAIProgress(tenant, projectID, 25, "Gathering project metrics...")
	promptMetrics, err := w.gather(tenant, projectID)
	if err != nil {
		return nil, fmt.Errorf("ai: gather: %w", err)
	}

	w.publisher.PublishAIProgress(tenant, projectID, 60, "Calling insight provider...")
	insight, err := w.call(ctx, promptMetrics)
	if err != nil {
		return nil, fmt.Errorf("ai: call: %w", err)
	}

	w.publisher.PublishAIProgress(tenant, projectID, 95, "Finalizing insight...")
	row := w.finalize(tenant, projectID, insight)
	if err := w.store.SaveInsight(tenant, row); err != nil {
		return nil, fmt.Errorf("ai: save insight: %w", err)
	}
	w.publisher.PublishAIProgress(tenant, projectID, 100, "Insight ready")
	return row, nil
}

func (w *Worker) gather(tenant tenantctx.Context, projectID string) (PromptMetrics, error) {
	sprintRows, err := w.store.ListSprintMetrics(tenant, projectID)
	if err != nil {
		return PromptMetrics{}, err
	}

	window := metrics.RollupWindow(sprintRows)
	var cycleSum float64
	var cycleCount int
	var latestCompliance float64
	for i, r := range window {
		if i == 0 {
			latestCompliance = r.ComplianceRate
		}
		if r.AvgCycleTimeDays > 0 {
			cycleSum += r.AvgCycleTimeDays
			cycleCount++
		}
	}
	var avgCycle float64
	if cycleCount > 0 {
		avgCycle = cycleSum / float64(cycleCount)
	}

	stagnant, err := w.store.ListStagnantWorkItems(tenant, projectID, w.now().Add(-stagnantWindow))
	if err != nil {
		return PromptMetrics{}, err
	}
	titles := make([]string, 0, len(stagnant))
	for _, item := range stagnant {
		titles = append(titles, item.Title)
	}

	devMetrics, err := w.store.ListRecentDeveloperMetrics(tenant, projectID)
	if err != nil {
		return PromptMetrics{}, err
	}
	summaries := make([]string, 0, len(devMetrics))
	for _, d := range devMetrics {
		summaries = append(summaries, fmt.Sprintf("%s: %.1f pts, %.0f%% compliant", d.DeveloperEmail, d.CompletedPoints, d.ComplianceRate))
	}

	distribution := buildAssigneeDistribution(stagnant, devMetrics)

	return PromptMetrics{
		ProjectID:                projectID,
		AvgCycleTimeDays:         avgCycle,
		LatestComplianceRate:     latestCompliance,
		AssigneeDistribution:     distribution,
		StagnantItemTitles:       titles,
		RecentDeveloperSummaries: summaries,
	}, nil
}

// buildAssigneeDistribution groups the work items by assignee email
// (counting in-progress ones), then folds in the developer-metric rows by
// email, adding their completed-item counts and appending emails not yet
// seen. Rows are keyed by email only: items are not grouped by their
// resolved assignee user, and AvgCycleTime is left unset.
func buildAssigneeDistribution(items []*types.WorkItem, devMetrics []*types.DeveloperMetrics) []AssigneeStat {
	byEmail := map[string]*AssigneeStat{}
	order := []string{}

	for _, item := range items {
		if item.AssigneeEmail == "" {
			continue
		}
		stat, ok := byEmail[item.AssigneeEmail]
		if !ok {
			stat = &AssigneeStat{Name: item.AssigneeName, Email: item.AssigneeEmail}
			byEmail[item.AssigneeEmail] = stat
			order = append(order, item.AssigneeEmail)
		}
		if item.StatusCategory == types.StatusInProgress {
			stat.InProgress++
		}
	}

	for _, d := range devMetrics {
		stat, ok := byEmail[d.DeveloperEmail]
		if !ok {
			stat = &AssigneeStat{Email: d.DeveloperEmail}
			byEmail[d.DeveloperEmail] = stat
			order = append(order, d.DeveloperEmail)
		}
		stat.Completed += d.CompletedItems
	}

	result := make([]AssigneeStat, 0, len(order))
	for _, email := range order {
		result = append(result, *byEmail[email])
	}
	return result
}

// call wraps the provider call in the retry policy and circuit breaker.
// When the breaker is open it short-circuits straight to the fallback
// insight without attempting the provider.
func (w *Worker) call(ctx context.Context, m PromptMetrics) (Insight, error) {
	if w.breaker.IsOpen() {
		return fallbackInsight(m), nil
	}

	var result Insight
	err := WithRetry(ctx, func() error {
		var callErr error
		result, callErr = w.provider.GenerateOptimizationInsights(ctx, m)
		return callErr
	})
	if err != nil {
		w.breaker.RecordFailure()
		return fallbackInsight(m), nil
	}
	w.breaker.RecordSuccess()
	return result, nil
}

// fallbackInsight is returned when the provider is unreachable or the
// breaker is open, so a sync failure never blocks the dashboard from
// showing something.
func fallbackInsight(m PromptMetrics) Insight {
	return Insight{
		Summary:  fmt.Sprintf("AI insight unavailable; latest compliance rate is %.1f%%.", m.LatestComplianceRate),
		Forecast: "insufficient data: AI provider unreachable",
	}
}

func (w *Worker) finalize(tenant tenantctx.Context, projectID string, insight Insight) *types.AIInsight {
	suggestions := make([]types.Suggestion, 0, len(insight.Suggestions))
	for i, s := range insight.Suggestions {
		suggestions = append(suggestions, types.Suggestion{
			ID:          fmt.Sprintf("s-%d", i+1),
			Title:       s.Title,
			Impact:      s.Impact,
			Description: s.Description,
			Status:      types.SuggestionPending,
		})
	}
	return &types.AIInsight{
		TenantID:    tenant.TenantID,
		ProjectID:   projectID,
		Summary:     insight.Summary,
		Suggestions: suggestions,
		Forecast:    insight.Forecast,
		CreatedAt:   w.now(),
	}
}
