package scheduler

import (
	"errors"
	"testing"
	"time"

	"github.com/pulseplatform/pulse/internal/tenantctx"
	"github.com/pulseplatform/pulse/internal/types"
)

type fakeRetentionStore struct {
	workItemCutoff time.Time
	sprintCutoff   time.Time
	prMergedCutoff time.Time
	insightCutoff  time.Time
	prErr          error
}

func (f *fakeRetentionStore) DeleteDoneWorkItemsOlderThan(ctx tenantctx.Context, cutoff time.Time) (int, error) {
	f.workItemCutoff = cutoff
	return 3, nil
}

func (f *fakeRetentionStore) DeleteSprintsEndedBefore(ctx tenantctx.Context, cutoff time.Time) (int, error) {
	f.sprintCutoff = cutoff
	return 1, nil
}

func (f *fakeRetentionStore) DeleteStalePullRequests(ctx tenantctx.Context, mergedCutoff, updatedCutoff time.Time) (int, error) {
	f.prMergedCutoff = mergedCutoff
	return 0, f.prErr
}

func (f *fakeRetentionStore) DeleteAIInsightsOlderThan(ctx tenantctx.Context, cutoff time.Time) (int, error) {
	f.insightCutoff = cutoff
	return 2, nil
}

func TestRunRetentionSweepUsesPerEntityCutoffs(t *testing.T) {
	store := &fakeRetentionStore{}
	ctx := tenantctx.Context{TenantID: "t1"}
	now := time.Date(2026, 7, 31, 2, 0, 0, 0, time.UTC)
	policy := types.RetentionPolicy{WorkItemMonths: 24, AIInsightMonths: 12, PullRequestMonths: 18}

	if err := RunRetentionSweep(store, ctx, policy, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantWorkItem := now.AddDate(0, -24, 0)
	if !store.workItemCutoff.Equal(wantWorkItem) {
		t.Errorf("expected work item cutoff %v, got %v", wantWorkItem, store.workItemCutoff)
	}
	wantInsight := now.AddDate(0, -12, 0)
	if !store.insightCutoff.Equal(wantInsight) {
		t.Errorf("expected insight cutoff %v, got %v", wantInsight, store.insightCutoff)
	}
	wantPR := now.AddDate(0, -18, 0)
	if !store.prMergedCutoff.Equal(wantPR) {
		t.Errorf("expected PR cutoff %v, got %v", wantPR, store.prMergedCutoff)
	}
}

func TestRunRetentionSweepCollectsPartialFailures(t *testing.T) {
	store := &fakeRetentionStore{prErr: errors.New("db locked")}
	ctx := tenantctx.Context{TenantID: "t1"}
	policy := types.DefaultRetentionPolicy()

	err := RunRetentionSweep(store, ctx, policy, time.Now())
	if err == nil {
		t.Fatal("expected an error when one entity class fails")
	}

	if store.workItemCutoff.IsZero() || store.insightCutoff.IsZero() {
		t.Error("expected the other entity classes to still run despite the PR failure")
	}
}
