package scheduler

import (
	"fmt"
	"time"

	"github.com/pulseplatform/pulse/internal/tenantctx"
	"github.com/pulseplatform/pulse/internal/types"
)

// RetentionStore is the slice of the storage layer the retention sweep
// deletes rows through, one tenant context at a time.
type RetentionStore interface {
	DeleteDoneWorkItemsOlderThan(ctx tenantctx.Context, cutoff time.Time) (int, error)
	DeleteSprintsEndedBefore(ctx tenantctx.Context, cutoff time.Time) (int, error)
	DeleteStalePullRequests(ctx tenantctx.Context, mergedCutoff, updatedCutoff time.Time) (int, error)
	DeleteAIInsightsOlderThan(ctx tenantctx.Context, cutoff time.Time) (int, error)
}

// RunRetentionSweep deletes rows past the tenant's retention policy
// across all four entity classes. Each deletion is
// independent; a failure on one entity class is returned but does not
// prevent the others from running, since a merge of unrelated errors
// back to the caller is more useful than an early abort mid-sweep.
func RunRetentionSweep(store RetentionStore, ctx tenantctx.Context, policy types.RetentionPolicy, now time.Time) error {
	var errs []error

	workItemCutoff := now.AddDate(0, -policy.WorkItemMonths, 0)
	if _, err := store.DeleteDoneWorkItemsOlderThan(ctx, workItemCutoff); err != nil {
		errs = append(errs, fmt.Errorf("work items: %w", err))
	}

	// Sprints share the WorkItem retention window.
	if _, err := store.DeleteSprintsEndedBefore(ctx, workItemCutoff); err != nil {
		errs = append(errs, fmt.Errorf("sprints: %w", err))
	}

	prCutoff := now.AddDate(0, -policy.PullRequestMonths, 0)
	if _, err := store.DeleteStalePullRequests(ctx, prCutoff, prCutoff); err != nil {
		errs = append(errs, fmt.Errorf("pull requests: %w", err))
	}

	insightCutoff := now.AddDate(0, -policy.AIInsightMonths, 0)
	if _, err := store.DeleteAIInsightsOlderThan(ctx, insightCutoff); err != nil {
		errs = append(errs, fmt.Errorf("ai insights: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("retention sweep for tenant %s had %d failure(s): %v", ctx.TenantID, len(errs), errs)
	}
	return nil
}
