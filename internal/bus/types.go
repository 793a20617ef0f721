package bus

import "time"

// MessageType discriminates the JSON frames published on a tenant channel
//.
type MessageType string

const (
	MessageSyncProgress      MessageType = "sync_progress"
	MessageMetricsUpdate     MessageType = "metrics_update"
	MessageAIInsightProgress MessageType = "ai_insight_progress"
	MessageAIInsightUpdate   MessageType = "ai_insight_update"
	MessageInsightReady      MessageType = "insight_ready"
)

// Message is one JSON frame carried on a tenant's telemetry channel. Field
// population depends on Type; unused fields are omitted from the wire
// encoding via `omitempty`.
type Message struct {
	Type       MessageType            `json:"type"`
	SourceID   string                  `json:"source_id,omitempty"`
	ProjectID  string                  `json:"project_id,omitempty"`
	SyncID     string                  `json:"sync_id,omitempty"`
	InsightID  string                  `json:"insight_id,omitempty"`
	Progress   int                     `json:"progress,omitempty"`
	Status     string                  `json:"status,omitempty"`
	Message    string                  `json:"message,omitempty"`
	Summary    string                  `json:"summary,omitempty"`
	Stats      map[string]interface{}  `json:"stats,omitempty"`
	CreatedAt  *time.Time              `json:"created_at,omitempty"`
}

// ChannelName derives the pub/sub channel for a tenant's telemetry
// messages, the sole tenant-isolation primitive.
func ChannelName(tenantSlug string) string {
	return "telemetry_" + tenantSlug
}

// DataChannelName derives the secondary channel WorkItem/Insight change
// signals are emitted on, keyed by schema name rather than slug.
func DataChannelName(schemaName string) string {
	return "tenant_" + schemaName
}
