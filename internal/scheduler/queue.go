// Package scheduler implements the Job Scheduler (C8): a ticker-driven
// loop that enqueues the daily retention sweep and per-tenant DailyMetric
// aggregation, plus on-demand sync/metric/AI refresh jobs, onto the three
// durable JetStream streams internal/nats sets up.
package scheduler

import (
	"encoding/json"
	"fmt"
	"time"

	natsgo "github.com/nats-io/nats.go"

	"github.com/pulseplatform/pulse/internal/nats"
)

// Queue publishes job payloads onto the SYNC/METRICS/AI_INSIGHTS streams.
type Queue struct {
	js natsgo.JetStreamContext
}

// NewQueue wraps a JetStream context already configured with
// nats.StreamManager.SetupStreams.
func NewQueue(js natsgo.JetStreamContext) *Queue {
	return &Queue{js: js}
}

// EnqueueSync publishes an on-demand or scheduled sync job for one
// source.
func (q *Queue) EnqueueSync(tenantID, sourceID, projectID, reason string) error {
	subject := fmt.Sprintf(nats.SubjectSyncTrigger, tenantID, sourceID)
	job := nats.SyncJob{TenantID: tenantID, SourceID: sourceID, ProjectID: projectID, Reason: reason, EnqueuedAt: time.Now()}
	return q.publish(subject, job)
}

// EnqueueMetricsRecalc publishes an on-demand per-project metric
// recalculation job.
func (q *Queue) EnqueueMetricsRecalc(tenantID, projectID string) error {
	subject := fmt.Sprintf(nats.SubjectMetricsRecalc, tenantID, projectID)
	job := nats.MetricsJob{TenantID: tenantID, ProjectID: projectID, EnqueuedAt: time.Now()}
	return q.publish(subject, job)
}

// EnqueueRetentionSweep publishes the daily retention-sweep job.
func (q *Queue) EnqueueRetentionSweep(tenantID string) error {
	job := nats.MetricsJob{TenantID: tenantID, RetentionSweep: true, EnqueuedAt: time.Now()}
	return q.publish(nats.SubjectRetentionSweep, job)
}

// EnqueueAIInsightRefresh publishes an on-demand AI Insight Worker run.
func (q *Queue) EnqueueAIInsightRefresh(tenantID, projectID string) error {
	subject := fmt.Sprintf(nats.SubjectAIInsightRefresh, tenantID, projectID)
	job := nats.AIInsightJob{TenantID: tenantID, ProjectID: projectID, EnqueuedAt: time.Now()}
	return q.publish(subject, job)
}

func (q *Queue) publish(subject string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("scheduler: marshal job: %w", err)
	}
	if _, err := q.js.Publish(subject, data); err != nil {
		return fmt.Errorf("scheduler: publish to %s: %w", subject, err)
	}
	return nil
}
