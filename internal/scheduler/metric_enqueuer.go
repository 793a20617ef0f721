package scheduler

import (
	"github.com/pulseplatform/pulse/internal/tenantctx"
	"github.com/pulseplatform/pulse/internal/types"
)

// SourceLookup is the narrow slice of the storage layer needed to map a
// source to the project its metrics recalc job runs against.
type SourceLookup interface {
	GetSourceConfig(ctx tenantctx.Context, sourceID string) (*types.SourceConfiguration, error)
}

// MetricEnqueuer adapts Queue to sync.Publisher's sibling interface,
// sync.MetricEnqueuer, which the orchestrator calls with a sourceID while
// JobQueue.EnqueueMetricsRecalc wants the owning projectID.
type MetricEnqueuer struct {
	queue   JobQueue
	sources SourceLookup
}

// NewMetricEnqueuer builds a MetricEnqueuer.
func NewMetricEnqueuer(queue JobQueue, sources SourceLookup) *MetricEnqueuer {
	return &MetricEnqueuer{queue: queue, sources: sources}
}

// EnqueueMetricRecalc looks up sourceID's project and enqueues its
// metrics-recalc job: every successful sync schedules a recalculation.
func (m *MetricEnqueuer) EnqueueMetricRecalc(tenant tenantctx.Context, sourceID string) error {
	source, err := m.sources.GetSourceConfig(tenant, sourceID)
	if err != nil {
		return err
	}
	return m.queue.EnqueueMetricsRecalc(tenant.TenantID, source.ProjectID)
}
