package bus

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	natsgo "github.com/nats-io/nats.go"

	"github.com/pulseplatform/pulse/internal/tenantctx"
)

// TelemetrySubjectPattern is the subject a sync/AI worker publishes
// progress frames onto: telemetry.<tenant_slug>. Both cmd/pulse's
// embedded workers and a standalone cmd/sync-bridge publish here rather
// than calling a local *Bus directly, so a dashboard client connected to
// cmd/pulse sees progress for a job regardless of which node executed it.
const TelemetrySubjectPattern = "telemetry.%s"

const telemetrySubjectPrefix = "telemetry."
const telemetryWildcard = "telemetry.*"

// NATSForwarder implements sync.Publisher and ai.Publisher over a plain
// NATS connection, for a process that has no local *Bus to publish into
// directly.
type NATSForwarder struct {
	conn *natsgo.Conn
}

// NewNATSForwarder wraps conn for publishing telemetry frames.
func NewNATSForwarder(conn *natsgo.Conn) *NATSForwarder {
	return &NATSForwarder{conn: conn}
}

// PublishSyncProgress satisfies sync.Publisher.
func (f *NATSForwarder) PublishSyncProgress(tenant tenantctx.Context, sourceID string, percent int, message, status string) {
	now := time.Now()
	f.publish(tenant.Slug, Message{
		Type:      MessageSyncProgress,
		SourceID:  sourceID,
		Progress:  percent,
		Status:    status,
		Message:   message,
		CreatedAt: &now,
	})
}

// PublishAlert satisfies sync.Publisher.
func (f *NATSForwarder) PublishAlert(tenant tenantctx.Context, sourceID, message string) {
	now := time.Now()
	f.publish(tenant.Slug, Message{
		Type:      MessageSyncProgress,
		SourceID:  sourceID,
		Status:    "alert",
		Message:   message,
		CreatedAt: &now,
	})
}

// PublishAIProgress satisfies ai.Publisher.
func (f *NATSForwarder) PublishAIProgress(tenant tenantctx.Context, projectID string, percent int, message string) {
	now := time.Now()
	msgType := MessageAIInsightProgress
	if percent >= 100 {
		msgType = MessageInsightReady
	}
	f.publish(tenant.Slug, Message{
		Type:      msgType,
		ProjectID: projectID,
		Progress:  percent,
		Message:   message,
		CreatedAt: &now,
	})
}

func (f *NATSForwarder) publish(slug string, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("[bus] forwarder: marshal message: %v", err)
		return
	}
	subject := fmt.Sprintf(TelemetrySubjectPattern, slug)
	if err := f.conn.Publish(subject, data); err != nil {
		log.Printf("[bus] forwarder: publish to %s: %v", subject, err)
	}
}

// RelayToLocalBus subscribes to every tenant's telemetry subject on conn
// and re-publishes each decoded Message into dst, the in-process Bus the
// WebSocket handlers read from. cmd/pulse calls this once at startup; it
// is the only process that holds a *Bus a browser client can reach.
func RelayToLocalBus(conn *natsgo.Conn, dst *Bus) (*natsgo.Subscription, error) {
	return conn.Subscribe(telemetryWildcard, func(m *natsgo.Msg) {
		slug := strings.TrimPrefix(m.Subject, telemetrySubjectPrefix)
		var msg Message
		if err := json.Unmarshal(m.Data, &msg); err != nil {
			log.Printf("[bus] relay: decode %s: %v", m.Subject, err)
			return
		}
		dst.Publish(ChannelName(slug), msg)
	})
}
