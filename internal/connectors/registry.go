package connectors

import (
	"fmt"

	"github.com/pulseplatform/pulse/internal/types"
)

// Deps is what every constructor needs beyond the SourceConfiguration
// itself: an identity resolver and a place to write normalized records.
type Deps struct {
	Identity IdentityResolver
	Sink     WorkItemSink
}

// Constructor builds a Connector bound to one SourceConfiguration.
type Constructor func(source *types.SourceConfiguration, deps Deps) (Connector, error)

var registry = map[types.SourceType]Constructor{}

// Register binds a vendor constructor to a SourceType. Vendor packages
// call this from an init() func, the same config-driven construction
// pattern used for process types elsewhere in this codebase.
func Register(sourceType types.SourceType, ctor Constructor) {
	registry[sourceType] = ctor
}

// New looks up and invokes the constructor for source.SourceType, so the
// Sync Orchestrator never imports a vendor package directly.
func New(source *types.SourceConfiguration, deps Deps) (Connector, error) {
	ctor, ok := registry[source.SourceType]
	if !ok {
		return nil, fmt.Errorf("connectors: no connector registered for source type %q", source.SourceType)
	}
	return ctor(source, deps)
}
