package nats

import "time"

// Subject pattern constants for the Job Scheduler's JetStream traffic
//. Use fmt.Sprintf with the %s patterns to address a
// specific tenant/source/project.
const (
	// SubjectSyncTrigger is the pattern for an on-demand or scheduled
	// connector sync job: sync.<tenant_id>.<source_id>
	SubjectSyncTrigger = "sync.%s.%s"

	// SubjectAllSync subscribes to every tenant's sync jobs.
	SubjectAllSync = "sync.*.*"

	// SubjectMetricsRecalc is the pattern for a metric-recalculation job:
	// metrics.<tenant_id>.<project_id>
	SubjectMetricsRecalc = "metrics.%s.%s"

	// SubjectRetentionSweep is the daily retention-sweep job subject.
	SubjectRetentionSweep = "metrics.retention"

	// SubjectAllMetrics subscribes to every recalculation and retention
	// job on the METRICS stream in one subscription.
	SubjectAllMetrics = "metrics.>"

	// SubjectAIInsightRefresh is the pattern for an AI Insight Worker job:
	// ai_insights.<tenant_id>.<project_id>
	SubjectAIInsightRefresh = "ai_insights.%s.%s"

	// SubjectAllAIInsights subscribes to every tenant's AI insight jobs.
	SubjectAllAIInsights = "ai_insights.*.*"
)

// SyncJob is the payload enqueued on SYNC for one connector run.
type SyncJob struct {
	TenantID  string    `json:"tenant_id"`
	SourceID  string    `json:"source_id"`
	ProjectID string    `json:"project_id,omitempty"`
	Reason    string    `json:"reason"` // "scheduled" or "on_demand"
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// MetricsJob is the payload enqueued on METRICS for either a per-project
// recalculation or the daily retention sweep (Subject distinguishes the
// two; RetentionSweep is true only for the latter).
type MetricsJob struct {
	TenantID       string    `json:"tenant_id"`
	ProjectID      string    `json:"project_id,omitempty"`
	RetentionSweep bool      `json:"retention_sweep"`
	EnqueuedAt     time.Time `json:"enqueued_at"`
}

// AIInsightJob is the payload enqueued on AI_INSIGHTS for one
// gather/call/finalize run.
type AIInsightJob struct {
	TenantID   string    `json:"tenant_id"`
	ProjectID  string    `json:"project_id,omitempty"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// ClientInfo represents a connected NATS client, used by EmbeddedServer's
// connection tracking.
type ClientInfo struct {
	ClientID    string    `json:"client_id"`
	ConnectedAt time.Time `json:"connected_at"`
}
