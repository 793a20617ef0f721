package bus

import (
	"time"

	"github.com/pulseplatform/pulse/internal/tenantctx"
)

// PublishSyncProgress satisfies sync.Publisher: it encodes a sync_progress
// Message and publishes it on tenant's telemetry channel.
func (b *Bus) PublishSyncProgress(tenant tenantctx.Context, sourceID string, percent int, message, status string) {
	now := time.Now()
	b.Publish(ChannelName(tenant.Slug), Message{
		Type:      MessageSyncProgress,
		SourceID:  sourceID,
		Progress:  percent,
		Status:    status,
		Message:   message,
		CreatedAt: &now,
	})
}

// PublishAIProgress satisfies ai.Publisher: it encodes an
// ai_insight_progress Message onto tenant's telemetry channel, or
// insight_ready at 100%.
func (b *Bus) PublishAIProgress(tenant tenantctx.Context, projectID string, percent int, message string) {
	now := time.Now()
	msgType := MessageAIInsightProgress
	if percent >= 100 {
		msgType = MessageInsightReady
	}
	b.Publish(ChannelName(tenant.Slug), Message{
		Type:      msgType,
		ProjectID: projectID,
		Progress:  percent,
		Message:   message,
		CreatedAt: &now,
	})
}

// PublishAlert satisfies sync.Publisher: a source crossing its
// failure_alert_threshold is published as a sync_progress
// message carrying status "alert" rather than a distinct MessageType —
// subscribers already switch on Status for sync_progress frames.
func (b *Bus) PublishAlert(tenant tenantctx.Context, sourceID, message string) {
	now := time.Now()
	b.Publish(ChannelName(tenant.Slug), Message{
		Type:      MessageSyncProgress,
		SourceID:  sourceID,
		Status:    "alert",
		Message:   message,
		CreatedAt: &now,
	})
}
