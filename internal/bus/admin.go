package bus

import "time"

// AdminMessageType discriminates frames on the admin_health channel,
// distinct from the tenant-scoped MessageType set.
type AdminMessageType string

const (
	AdminMessageHealthUpdate   AdminMessageType = "health_update"
	AdminMessageActivityUpdate AdminMessageType = "activity_update"
)

// AdminChannel is the single channel name the admin Bus instance ever
// publishes or subscribes on; there is no per-admin fan-out by design,
// since health/activity data isn't tenant-scoped.
const AdminChannel = "admin_health"

// AdminMessage is one frame on the admin_health channel.
type AdminMessage struct {
	Type       AdminMessageType       `json:"type"`
	Tenants    int                    `json:"tenants,omitempty"`
	ActiveSync int                    `json:"active_syncs,omitempty"`
	Detail     map[string]interface{} `json:"detail,omitempty"`
	At         time.Time              `json:"at"`
}

// AdminBus wraps a plain Bus restricted to AdminChannel, keeping tenant
// telemetry and platform-admin health signals on structurally separate
// types even though both reuse the same backpressure/fan-out mechanics.
type AdminBus struct {
	inner *Bus
}

// NewAdminBus builds an AdminBus. store may be nil.
func NewAdminBus(store Store) *AdminBus {
	return &AdminBus{inner: New(store)}
}

// Subscribe registers a subscriber for every admin message on the
// admin_health channel.
func (a *AdminBus) Subscribe() *Subscription {
	return a.inner.Subscribe(AdminChannel, nil)
}

// Unsubscribe removes a subscription registered via Subscribe.
func (a *AdminBus) Unsubscribe(sub *Subscription) {
	a.inner.Unsubscribe(sub)
}

// Publish encodes msg as a Message and fans it out on the admin channel.
func (a *AdminBus) Publish(msg AdminMessage) {
	at := msg.At
	a.inner.Publish(AdminChannel, Message{
		Type:      MessageType(msg.Type),
		Status:    detailSummary(msg),
		Stats:     msg.Detail,
		CreatedAt: &at,
	})
}

func detailSummary(msg AdminMessage) string {
	if msg.Type == AdminMessageHealthUpdate {
		return "ok"
	}
	return ""
}
