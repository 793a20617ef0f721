package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pulseplatform/pulse/internal/connectors"
	"github.com/pulseplatform/pulse/internal/tenantctx"
	"github.com/pulseplatform/pulse/internal/types"
)

type fakeStore struct {
	source              *types.SourceConfiguration
	consecutiveFailures int
	markedSuccess       bool
	markedFailed        bool
	lastErrMsg          string
}

func (s *fakeStore) GetSourceConfig(tenantctx.Context, string) (*types.SourceConfiguration, error) {
	return s.source, nil
}
func (s *fakeStore) MarkSyncInProgress(tenantctx.Context, string, time.Time) error { return nil }
func (s *fakeStore) MarkSyncSuccess(tenantctx.Context, string, time.Time) error {
	s.markedSuccess = true
	s.consecutiveFailures = 0
	return nil
}
func (s *fakeStore) MarkSyncFailed(_ tenantctx.Context, _ string, _ time.Time, errMsg string) (int, error) {
	s.markedFailed = true
	s.consecutiveFailures++
	s.lastErrMsg = errMsg
	return s.consecutiveFailures, nil
}

type fakePublisher struct {
	progress []int
	alerts   []string
}

func (p *fakePublisher) PublishSyncProgress(_ tenantctx.Context, _ string, percent int, _, _ string) {
	p.progress = append(p.progress, percent)
}
func (p *fakePublisher) PublishAlert(_ tenantctx.Context, _, message string) {
	p.alerts = append(p.alerts, message)
}

type fakeEnqueuer struct{ called bool }

func (e *fakeEnqueuer) EnqueueMetricRecalc(tenantctx.Context, string) error {
	e.called = true
	return nil
}

type fakeConnector struct {
	syncErr    error
	testErr    error
	itemCount  int
}

func (f *fakeConnector) TestConnection(context.Context) error { return f.testErr }
func (f *fakeConnector) ListFolders(context.Context) ([]types.Folder, error) { return nil, nil }
func (f *fakeConnector) Sync(_ context.Context, in connectors.SyncInput) (connectors.SyncResult, error) {
	in.Progress(60, "fetching")
	if f.syncErr != nil {
		return connectors.SyncResult{}, f.syncErr
	}
	return connectors.SyncResult{ItemCount: f.itemCount}, nil
}

func testTenant() tenantctx.Context { return tenantctx.Context{TenantID: "t1", Slug: "acme"} }

func TestRunSuccessPath(t *testing.T) {
	store := &fakeStore{source: &types.SourceConfiguration{ID: "src-1", FailureAlertThreshold: 3}}
	pub := &fakePublisher{}
	enqueuer := &fakeEnqueuer{}
	conn := &fakeConnector{itemCount: 42}

	orch := New(store, pub, enqueuer, connectors.Deps{}, func(*types.SourceConfiguration, connectors.Deps) (connectors.Connector, error) {
		return conn, nil
	})

	if err := orch.Run(context.Background(), testTenant(), "src-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !store.markedSuccess {
		t.Error("expected MarkSyncSuccess to be called")
	}
	if !enqueuer.called {
		t.Error("expected metric recalc to be enqueued")
	}
	want := []int{5, 20, 60, 95, 100}
	if len(pub.progress) != len(want) {
		t.Fatalf("expected %d progress events, got %d: %v", len(want), len(pub.progress), pub.progress)
	}
	for i, p := range want {
		if pub.progress[i] != p {
			t.Errorf("progress[%d] = %d, want %d", i, pub.progress[i], p)
		}
	}
}

func TestRunFailurePathAlertsAtThreshold(t *testing.T) {
	store := &fakeStore{source: &types.SourceConfiguration{ID: "src-1", FailureAlertThreshold: 2}, consecutiveFailures: 1}
	pub := &fakePublisher{}
	enqueuer := &fakeEnqueuer{}
	conn := &fakeConnector{syncErr: errors.New("vendor unreachable")}

	orch := New(store, pub, enqueuer, connectors.Deps{}, func(*types.SourceConfiguration, connectors.Deps) (connectors.Connector, error) {
		return conn, nil
	})

	err := orch.Run(context.Background(), testTenant(), "src-1")
	if err == nil {
		t.Fatal("expected an error from the failed sync")
	}
	if !store.markedFailed {
		t.Error("expected MarkSyncFailed to be called")
	}
	if len(pub.alerts) != 1 {
		t.Fatalf("expected exactly one alert once consecutive failures hit threshold, got %d", len(pub.alerts))
	}
	if enqueuer.called {
		t.Error("expected metric recalc to not be enqueued on failure")
	}
}

func TestRunFailureBelowThresholdDoesNotAlert(t *testing.T) {
	store := &fakeStore{source: &types.SourceConfiguration{ID: "src-1", FailureAlertThreshold: 5}}
	pub := &fakePublisher{}
	enqueuer := &fakeEnqueuer{}
	conn := &fakeConnector{syncErr: errors.New("timeout")}

	orch := New(store, pub, enqueuer, connectors.Deps{}, func(*types.SourceConfiguration, connectors.Deps) (connectors.Connector, error) {
		return conn, nil
	})

	orch.Run(context.Background(), testTenant(), "src-1")
	if len(pub.alerts) != 0 {
		t.Errorf("expected no alert below threshold, got %v", pub.alerts)
	}
}

func TestRunTestConnectionFailureSkipsSync(t *testing.T) {
	store := &fakeStore{source: &types.SourceConfiguration{ID: "src-1", FailureAlertThreshold: 3}}
	pub := &fakePublisher{}
	enqueuer := &fakeEnqueuer{}
	conn := &fakeConnector{testErr: errors.New("401 unauthorized")}

	orch := New(store, pub, enqueuer, connectors.Deps{}, func(*types.SourceConfiguration, connectors.Deps) (connectors.Connector, error) {
		return conn, nil
	})

	if err := orch.Run(context.Background(), testTenant(), "src-1"); err == nil {
		t.Fatal("expected an error when TestConnection fails")
	}
	if enqueuer.called {
		t.Error("expected no metric recalc enqueue when connection test fails")
	}
}
