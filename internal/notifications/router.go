// Package notifications fans a sync failure-alert-threshold event out to
// whichever external channels a tenant has configured (Slack, Discord).
// The Progress Bus alert always fires regardless of this
// package; this is the additional path for humans watching
// outside the dashboard.
package notifications

import (
	"log"
	"sync"
	"time"
)

// AlertEvent is the fact a channel renders: a source has failed
// ConsecutiveFailures syncs in a row, meeting or exceeding its configured
// failure_alert_threshold.
type AlertEvent struct {
	TenantSlug          string
	SourceID            string
	Message             string
	ConsecutiveFailures int
	At                  time.Time
}

// Channel is one external notification destination.
type Channel interface {
	Name() string
	Send(event AlertEvent) error
}

// Router dispatches an AlertEvent to every registered Channel in a
// fire-and-forget shape.
type Router struct {
	mu       sync.RWMutex
	channels []Channel
}

// NewRouter builds a Router with an initial channel set (nil is fine).
func NewRouter(channels []Channel) *Router {
	if channels == nil {
		channels = []Channel{}
	}
	return &Router{channels: channels}
}

// AddChannel registers an additional channel.
func (r *Router) AddChannel(ch Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.channels = append(r.channels, ch)
}

// Channels returns the registered channel names, mainly for startup logging.
func (r *Router) Channels() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, len(r.channels))
	for i, ch := range r.channels {
		names[i] = ch.Name()
	}
	return names
}

// Route sends event to every channel concurrently. A channel failing to
// deliver is logged, never returned: notification delivery is
// best-effort and MUST NOT fail the outer sync job.
func (r *Router) Route(event AlertEvent) {
	r.mu.RLock()
	channels := make([]Channel, len(r.channels))
	copy(channels, r.channels)
	r.mu.RUnlock()

	for _, ch := range channels {
		go func(channel Channel) {
			if err := channel.Send(event); err != nil {
				log.Printf("[notifications] %s delivery failed for source %s: %v", channel.Name(), event.SourceID, err)
			}
		}(ch)
	}
}
