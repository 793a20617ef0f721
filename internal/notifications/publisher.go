package notifications

import (
	"time"

	"github.com/pulseplatform/pulse/internal/tenantctx"
)

// ProgressPublisher is the narrow slice of sync.Publisher this package
// wraps, declared locally so this package never imports internal/sync.
type ProgressPublisher interface {
	PublishSyncProgress(tenant tenantctx.Context, sourceID string, percent int, message, status string)
	PublishAlert(tenant tenantctx.Context, sourceID, message string)
}

// AlertingPublisher wraps a ProgressPublisher so a sync failure-threshold
// alert also fans out through Router's external channels, not only the
// Progress Bus.
type AlertingPublisher struct {
	inner  ProgressPublisher
	router *Router
}

// NewAlertingPublisher builds an AlertingPublisher.
func NewAlertingPublisher(inner ProgressPublisher, router *Router) *AlertingPublisher {
	return &AlertingPublisher{inner: inner, router: router}
}

// PublishSyncProgress satisfies sync.Publisher, passing straight through.
func (p *AlertingPublisher) PublishSyncProgress(tenant tenantctx.Context, sourceID string, percent int, message, status string) {
	p.inner.PublishSyncProgress(tenant, sourceID, percent, message, status)
}

// PublishAlert satisfies sync.Publisher: it forwards to the Progress Bus
// and routes an AlertEvent to every configured external channel. Delivery
// is best-effort on both paths.
func (p *AlertingPublisher) PublishAlert(tenant tenantctx.Context, sourceID, message string) {
	p.inner.PublishAlert(tenant, sourceID, message)
	p.router.Route(AlertEvent{
		TenantSlug: tenant.Slug,
		SourceID:   sourceID,
		Message:    message,
		At:         time.Now(),
	})
}
