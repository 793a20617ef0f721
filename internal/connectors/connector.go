// Package connectors defines the vendor-agnostic Connector contract (C2)
// and the registry vendor packages register themselves into.
package connectors

import (
	"context"

	"github.com/pulseplatform/pulse/internal/tenantctx"
	"github.com/pulseplatform/pulse/internal/types"
)

// ProgressFunc reports sync progress. Percent is monotonically
// non-decreasing within a single Sync call.
type ProgressFunc func(percent int, message string)

// SyncInput carries everything one Sync invocation needs.
type SyncInput struct {
	Tenant   tenantctx.Context
	Source   *types.SourceConfiguration
	Progress ProgressFunc
}

// SyncResult summarizes a completed sync for the TaskLog.
type SyncResult struct {
	ItemCount int
}

// Connector is the polymorphic capability set every vendor package
// implements: test_connection, list_folders, sync.
type Connector interface {
	TestConnection(ctx context.Context) error
	ListFolders(ctx context.Context) ([]types.Folder, error)
	Sync(ctx context.Context, in SyncInput) (SyncResult, error)
}

// IdentityResolver is the slice of C1 every connector needs to turn a
// vendor-stable user id into a platform user. Defined here, next to its
// consumer, the same way Store interfaces are kept narrow throughout this
// codebase.
type IdentityResolver interface {
	Resolve(ctx tenantctx.Context, in ResolveInput) (*types.User, error)
}

// ResolveInput mirrors identity.Input without importing the identity
// package, so connectors only depend on this narrow shape.
type ResolveInput struct {
	Provider       types.SourceType
	ExternalUserID string
	Email          string
	Name           string
}

// WorkItemSink is the slice of the storage layer a connector writes
// WorkItems, Sprints, PullRequests and PR status checks through. Every
// vendor package upserts by (source_config_id, external_id), never
// deciding tenant scoping itself: the Tenant value travels in SyncInput.
type WorkItemSink interface {
	UpsertWorkItem(ctx tenantctx.Context, w *types.WorkItem) error
	UpsertSprint(ctx tenantctx.Context, s *types.Sprint) error
	UpsertPullRequest(ctx tenantctx.Context, p *types.PullRequest) error
	UpsertPullRequestStatusCheck(ctx tenantctx.Context, c *types.PullRequestStatusCheck) error
	GetWorkItemByExternalID(ctx tenantctx.Context, sourceConfigID, externalID string) (*types.WorkItem, error)
}
