package identity

import (
	"github.com/pulseplatform/pulse/internal/connectors"
	"github.com/pulseplatform/pulse/internal/tenantctx"
	"github.com/pulseplatform/pulse/internal/types"
)

// ConnectorAdapter satisfies connectors.IdentityResolver by converting a
// connectors.ResolveInput into this package's own Input, so vendor
// packages depend only on the narrow shape connectors.go defines rather
// than importing this package directly.
type ConnectorAdapter struct {
	resolver *Resolver
}

// NewConnectorAdapter wraps resolver for use as a connectors.Deps.Identity.
func NewConnectorAdapter(resolver *Resolver) *ConnectorAdapter {
	return &ConnectorAdapter{resolver: resolver}
}

func (a *ConnectorAdapter) Resolve(ctx tenantctx.Context, in connectors.ResolveInput) (*types.User, error) {
	return a.resolver.Resolve(ctx, Input{
		Provider:       in.Provider,
		ExternalUserID: in.ExternalUserID,
		Email:          in.Email,
		Name:           in.Name,
	})
}
