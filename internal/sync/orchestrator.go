// Package sync implements the Sync Orchestrator (C4): runs one source's
// full extract -> transform -> persist -> signal-completion cycle through
// a fixed percent-range state machine.
package sync

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/pulseplatform/pulse/internal/connectors"
	"github.com/pulseplatform/pulse/internal/tenantctx"
	"github.com/pulseplatform/pulse/internal/types"
)

// Store is the slice of the storage layer the orchestrator needs, kept
// narrow next to its consumer the same way identity.Store is.
type Store interface {
	GetSourceConfig(ctx tenantctx.Context, sourceID string) (*types.SourceConfiguration, error)
	MarkSyncInProgress(ctx tenantctx.Context, sourceID string, at time.Time) error
	MarkSyncSuccess(ctx tenantctx.Context, sourceID string, at time.Time) error
	MarkSyncFailed(ctx tenantctx.Context, sourceID string, at time.Time, errMsg string) (consecutiveFailures int, err error)
}

// Publisher is the narrow slice of the Progress Bus the orchestrator emits
// to, implemented by *bus.Bus in production.
type Publisher interface {
	PublishSyncProgress(tenant tenantctx.Context, sourceID string, percent int, message, status string)
	PublishAlert(tenant tenantctx.Context, sourceID, message string)
}

// MetricEnqueuer schedules the post-sync metric-recalc job (C8).
type MetricEnqueuer interface {
	EnqueueMetricRecalc(tenant tenantctx.Context, sourceID string) error
}

// ConnectorFactory builds a Connector for a SourceConfiguration. Defined
// as a func type so tests can substitute a fake without touching the
// registry.
type ConnectorFactory func(source *types.SourceConfiguration, deps connectors.Deps) (connectors.Connector, error)

// Orchestrator runs sync jobs, one SourceConfiguration at a time.
type Orchestrator struct {
	store       Store
	publisher   Publisher
	metrics     MetricEnqueuer
	connectorDeps connectors.Deps
	newConnector ConnectorFactory
	now         func() time.Time
}

// New constructs an Orchestrator. newConnector defaults to
// connectors.New (the registry lookup) when nil.
func New(store Store, publisher Publisher, metrics MetricEnqueuer, deps connectors.Deps, newConnector ConnectorFactory) *Orchestrator {
	if newConnector == nil {
		newConnector = connectors.New
	}
	return &Orchestrator{
		store:         store,
		publisher:     publisher,
		metrics:       metrics,
		connectorDeps: deps,
		newConnector:  newConnector,
		now:           time.Now,
	}
}

// Run executes one full sync job for sourceID under tenant, following the
// queued -> starting(5%) -> connecting(20%) -> discovery(25-45%) ->
// fetch/transform(50-90%) -> post-sync(95%) -> success(100%)|failed(0%)
// state machine.
func (o *Orchestrator) Run(ctx context.Context, tenant tenantctx.Context, sourceID string) error {
	o.emit(tenant, sourceID, 5, "starting", "in_progress")

	source, err := o.store.GetSourceConfig(tenant, sourceID)
	if err != nil {
		return o.fail(tenant, sourceID, nil, fmt.Errorf("sync: load source config: %w", err))
	}

	if err := o.store.MarkSyncInProgress(tenant, sourceID, o.now()); err != nil {
		return o.fail(tenant, sourceID, source, fmt.Errorf("sync: mark in_progress: %w", err))
	}

	o.emit(tenant, sourceID, 20, "connecting", "in_progress")
	conn, err := o.newConnector(source, o.connectorDeps)
	if err != nil {
		return o.fail(tenant, sourceID, source, fmt.Errorf("sync: build connector: %w", err))
	}
	if err := conn.TestConnection(ctx); err != nil {
		return o.fail(tenant, sourceID, source, fmt.Errorf("sync: test connection: %w", err))
	}

	result, err := conn.Sync(ctx, connectors.SyncInput{
		Tenant: tenant,
		Source: source,
		Progress: func(percent int, message string) {
			o.emit(tenant, sourceID, percent, message, "in_progress")
		},
	})
	if err != nil {
		return o.fail(tenant, sourceID, source, fmt.Errorf("sync: %w", err))
	}

	o.emit(tenant, sourceID, 95, "post-sync link+aggregate", "in_progress")
	if err := o.metrics.EnqueueMetricRecalc(tenant, sourceID); err != nil {
		log.Printf("[SYNC] tenant=%s source=%s: failed to enqueue metric recalc: %v", tenant.TenantID, sourceID, err)
	}

	if err := o.store.MarkSyncSuccess(tenant, sourceID, o.now()); err != nil {
		return o.fail(tenant, sourceID, source, fmt.Errorf("sync: mark success: %w", err))
	}

	o.emit(tenant, sourceID, 100, fmt.Sprintf("synced %d items", result.ItemCount), "success")
	return nil
}

func (o *Orchestrator) fail(tenant tenantctx.Context, sourceID string, source *types.SourceConfiguration, cause error) error {
	consecutive, err := o.store.MarkSyncFailed(tenant, sourceID, o.now(), cause.Error())
	if err != nil {
		log.Printf("[SYNC] tenant=%s source=%s: failed to record failure: %v", tenant.TenantID, sourceID, err)
	}

	o.emit(tenant, sourceID, 0, cause.Error(), "failed")

	threshold := types.DefaultFailureAlertThreshold
	if source != nil && source.FailureAlertThreshold > 0 {
		threshold = source.FailureAlertThreshold
	}
	if consecutive >= threshold {
		o.publisher.PublishAlert(tenant, sourceID, fmt.Sprintf(
			"source %s has failed %d consecutive syncs: %v", sourceID, consecutive, cause))
	}
	return cause
}

func (o *Orchestrator) emit(tenant tenantctx.Context, sourceID string, percent int, message, status string) {
	o.publisher.PublishSyncProgress(tenant, sourceID, percent, message, status)
}
