// Package tenantctx carries the explicit per-job tenant value down the
// call graph, replacing process-wide schema_context switching with an
// explicit value passed through every call.
package tenantctx

import (
	"context"
	"fmt"
)

// Context identifies which tenant partition a storage call or job should
// operate against. It is passed explicitly — never stored in a global —
// so two jobs for different tenants can run concurrently on one worker
// without cross-talk.
type Context struct {
	TenantID string
	Slug     string
}

// New validates and returns a Context. A missing TenantID is a hard
// error rather than a silent fallback to a shared context, since a job
// that silently ran against the wrong tenant would be far worse than one
// that failed loudly.
func New(tenantID, slug string) (Context, error) {
	if tenantID == "" {
		return Context{}, fmt.Errorf("tenantctx: schema_name/tenant id is required")
	}
	return Context{TenantID: tenantID, Slug: slug}, nil
}

// contextKey is unexported so only this package can set/retrieve the
// value carried on a context.Context.
type contextKey struct{}

// WithContext attaches a tenant Context to a context.Context, for the
// rare call that needs the stdlib context plumbing (HTTP handlers,
// outbound HTTP calls) alongside the tenant value.
func WithContext(ctx context.Context, tc Context) context.Context {
	return context.WithValue(ctx, contextKey{}, tc)
}

// FromContext retrieves a previously attached tenant Context.
func FromContext(ctx context.Context) (Context, bool) {
	tc, ok := ctx.Value(contextKey{}).(Context)
	return tc, ok
}
