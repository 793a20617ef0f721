// Package worker implements the execution side of the Job Scheduler (C8):
// durable JetStream consumers that drain the SYNC, METRICS and
// AI_INSIGHTS streams and dispatch each job to the Sync Orchestrator
// (C4), Metric Aggregator (C5) or AI Insight Worker (C6), wrapping every
// run in a TaskLog row. internal/scheduler only enqueues; this package
// runs the work, so the same Dispatcher can be embedded in cmd/pulse for
// a single-node deployment or run standalone in cmd/sync-bridge to scale
// sync/AI work out across nodes.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	natsgo "github.com/nats-io/nats.go"

	"github.com/pulseplatform/pulse/internal/metrics"
	pulsenats "github.com/pulseplatform/pulse/internal/nats"
	"github.com/pulseplatform/pulse/internal/scheduler"
	"github.com/pulseplatform/pulse/internal/sync"
	"github.com/pulseplatform/pulse/internal/tenantctx"
	"github.com/pulseplatform/pulse/internal/types"
)

// workerQueueGroup is shared by every Dispatcher regardless of which
// binary runs it, so JetStream load-balances one job to exactly one
// consumer even when cmd/pulse's embedded dispatcher and a standalone
// cmd/sync-bridge are both running against the same stream.
const workerQueueGroup = "pulse-workers"

const (
	syncDurable    = "pulse-sync-workers"
	metricsDurable = "pulse-metrics-workers"
	aiDurable      = "pulse-ai-workers"
)

// TenantStore is the slice of storage.Store the dispatcher needs to turn
// a job's bare TenantID into a full tenant.Context (which also carries
// Slug, the Progress Bus channel key) and retention policy.
type TenantStore interface {
	GetTenant(tenantID string) (*types.Tenant, error)
}

// TaskLogStore is the slice of storage.Store the dispatcher wraps every
// job execution in. TaskLog is per-execution telemetry for sync,
// metric-recalc, AI-refresh or retention sweep jobs alike, so the
// dispatcher writes it once here rather than duplicating the bookkeeping
// inside each component.
type TaskLogStore interface {
	CreateTaskLog(ctx tenantctx.Context, log *types.TaskLog) error
	FinishTaskLog(ctx tenantctx.Context, logID string, status types.TaskStatus, errMsg string, at time.Time) error
}

// Dispatcher drains the three job streams and runs each job against the
// already-built component instances.
type Dispatcher struct {
	tenants      TenantStore
	taskLogs     TaskLogStore
	orchestrator *sync.Orchestrator
	aggregator   *metrics.Aggregator
	retention    scheduler.RetentionStore
	aiFactory    *AIWorkerFactory
	now          func() time.Time
}

// New builds a Dispatcher.
func New(tenants TenantStore, taskLogs TaskLogStore, orchestrator *sync.Orchestrator, aggregator *metrics.Aggregator, retention scheduler.RetentionStore, aiFactory *AIWorkerFactory) *Dispatcher {
	return &Dispatcher{
		tenants:      tenants,
		taskLogs:     taskLogs,
		orchestrator: orchestrator,
		aggregator:   aggregator,
		retention:    retention,
		aiFactory:    aiFactory,
		now:          time.Now,
	}
}

// Start subscribes a queue-group consumer to each of the SYNC, METRICS
// and AI_INSIGHTS streams and returns the resulting subscriptions so the
// caller can Drain/Unsubscribe them on shutdown.
func (d *Dispatcher) Start(js natsgo.JetStreamContext) ([]*natsgo.Subscription, error) {
	var subs []*natsgo.Subscription

	syncSub, err := js.QueueSubscribe(pulsenats.SubjectAllSync, workerQueueGroup, d.onSync,
		natsgo.Durable(syncDurable), natsgo.ManualAck(), natsgo.AckExplicit())
	if err != nil {
		return nil, fmt.Errorf("worker: subscribe sync stream: %w", err)
	}
	subs = append(subs, syncSub)

	metricsSub, err := js.QueueSubscribe(pulsenats.SubjectAllMetrics, workerQueueGroup, d.onMetrics,
		natsgo.Durable(metricsDurable), natsgo.ManualAck(), natsgo.AckExplicit())
	if err != nil {
		return nil, fmt.Errorf("worker: subscribe metrics stream: %w", err)
	}
	subs = append(subs, metricsSub)

	aiSub, err := js.QueueSubscribe(pulsenats.SubjectAllAIInsights, workerQueueGroup, d.onAIInsight,
		natsgo.Durable(aiDurable), natsgo.ManualAck(), natsgo.AckExplicit())
	if err != nil {
		return nil, fmt.Errorf("worker: subscribe ai insights stream: %w", err)
	}
	subs = append(subs, aiSub)

	return subs, nil
}

func (d *Dispatcher) onSync(msg *natsgo.Msg) {
	var job pulsenats.SyncJob
	if err := json.Unmarshal(msg.Data, &job); err != nil {
		log.Printf("[worker] decode sync job on %s: %v", msg.Subject, err)
		msg.Ack()
		return
	}
	if err := d.HandleSync(context.Background(), job); err != nil {
		log.Printf("[worker] sync job tenant=%s source=%s failed: %v", job.TenantID, job.SourceID, err)
	}
	msg.Ack()
}

func (d *Dispatcher) onMetrics(msg *natsgo.Msg) {
	var job pulsenats.MetricsJob
	if err := json.Unmarshal(msg.Data, &job); err != nil {
		log.Printf("[worker] decode metrics job on %s: %v", msg.Subject, err)
		msg.Ack()
		return
	}
	if err := d.HandleMetrics(context.Background(), job); err != nil {
		log.Printf("[worker] metrics job tenant=%s project=%s retention=%v failed: %v",
			job.TenantID, job.ProjectID, job.RetentionSweep, err)
	}
	msg.Ack()
}

func (d *Dispatcher) onAIInsight(msg *natsgo.Msg) {
	var job pulsenats.AIInsightJob
	if err := json.Unmarshal(msg.Data, &job); err != nil {
		log.Printf("[worker] decode ai insight job on %s: %v", msg.Subject, err)
		msg.Ack()
		return
	}
	if err := d.HandleAIInsight(context.Background(), job); err != nil {
		log.Printf("[worker] ai insight job tenant=%s project=%s failed: %v", job.TenantID, job.ProjectID, err)
	}
	msg.Ack()
}

// HandleSync runs one sync job end to end. Exported (rather than private
// to the onSync callback) so the same path can be driven synchronously
// without the queue, as this package's tests do.
func (d *Dispatcher) HandleSync(ctx context.Context, job pulsenats.SyncJob) error {
	tenant, _, err := d.tenantContext(job.TenantID)
	if err != nil {
		return err
	}
	return d.runTask(tenant, "sync", job.SourceID, func() error {
		return d.orchestrator.Run(ctx, tenant, job.SourceID)
	})
}

// HandleMetrics runs either a per-project recalculation or, when
// job.RetentionSweep is set, the tenant's daily retention sweep plus
// yesterday's DailyMetric aggregation.
func (d *Dispatcher) HandleMetrics(ctx context.Context, job pulsenats.MetricsJob) error {
	tenant, t, err := d.tenantContext(job.TenantID)
	if err != nil {
		return err
	}

	if job.RetentionSweep {
		return d.runTask(tenant, "retention_sweep", "", func() error {
			now := d.now()
			if err := scheduler.RunRetentionSweep(d.retention, tenant, t.Retention, now); err != nil {
				return err
			}
			return d.aggregator.PopulateDailyMetric(tenant, now.AddDate(0, 0, -1))
		})
	}

	return d.runTask(tenant, "metrics_recalc", job.ProjectID, func() error {
		return d.aggregator.RecalculateProject(tenant, job.ProjectID)
	})
}

// HandleAIInsight builds a tenant-scoped ai.Worker and runs one gather/
// call/finalize cycle.
func (d *Dispatcher) HandleAIInsight(ctx context.Context, job pulsenats.AIInsightJob) error {
	tenant, t, err := d.tenantContext(job.TenantID)
	if err != nil {
		return err
	}
	return d.runTask(tenant, "ai_insight", job.ProjectID, func() error {
		w, err := d.aiFactory.Build(t)
		if err != nil {
			return err
		}
		_, err = w.Run(ctx, tenant, job.ProjectID)
		return err
	})
}

func (d *Dispatcher) tenantContext(tenantID string) (tenantctx.Context, *types.Tenant, error) {
	t, err := d.tenants.GetTenant(tenantID)
	if err != nil {
		return tenantctx.Context{}, nil, fmt.Errorf("worker: lookup tenant %s: %w", tenantID, err)
	}
	tc, err := tenantctx.New(t.ID, t.Slug)
	if err != nil {
		return tenantctx.Context{}, nil, err
	}
	return tc, t, nil
}

// runTask wraps fn in a TaskLog row: create it running, run fn, then mark
// it success or failed with fn's error. A failure to write the TaskLog
// itself is logged, never returned: job execution must not fail because
// its own telemetry write failed.
func (d *Dispatcher) runTask(tenant tenantctx.Context, taskName, targetID string, fn func() error) error {
	entry := &types.TaskLog{
		TenantID:  tenant.TenantID,
		TaskName:  taskName,
		TargetID:  targetID,
		Status:    types.TaskRunning,
		StartedAt: d.now(),
	}
	if err := d.taskLogs.CreateTaskLog(tenant, entry); err != nil {
		log.Printf("[worker] failed to create task log for %s/%s: %v", taskName, targetID, err)
	}

	runErr := fn()

	status := types.TaskSuccess
	errMsg := ""
	if runErr != nil {
		status = types.TaskFailed
		errMsg = runErr.Error()
	}
	if entry.ID != "" {
		if err := d.taskLogs.FinishTaskLog(tenant, entry.ID, status, errMsg, d.now()); err != nil {
			log.Printf("[worker] failed to finish task log %s: %v", entry.ID, err)
		}
	}
	return runErr
}
