// Package identity implements the Identity Resolver (C1): it maps a
// vendor's (provider, external_user_id) pair to a platform User,
// upserting a disabled shadow user the first time that identity is seen.
package identity

import (
	"fmt"
	"strings"
	"time"

	"github.com/pulseplatform/pulse/internal/tenantctx"
	"github.com/pulseplatform/pulse/internal/types"
)

// Store is the slice of the storage layer the resolver needs. It is
// defined here, not imported from internal/storage, so this package has
// no dependency on the concrete storage implementation (mirrors the
// teacher's habit of defining narrow interfaces next to their consumer,
// e.g. internal/events.EventStore).
type Store interface {
	GetExternalIdentity(ctx tenantctx.Context, provider types.SourceType, externalUserID string) (*types.ExternalIdentity, error)
	GetUserByEmail(ctx tenantctx.Context, email string) (*types.User, error)
	GetUserByName(ctx tenantctx.Context, firstName, lastName string) (*types.User, error)
	GetUser(ctx tenantctx.Context, userID string) (*types.User, error)
	UsernameTaken(ctx tenantctx.Context, username string) (bool, error)
	CreateUser(ctx tenantctx.Context, u *types.User) error
	UpdateUserName(ctx tenantctx.Context, userID, firstName, lastName string) error
	UpsertExternalIdentity(ctx tenantctx.Context, ei *types.ExternalIdentity) error
}

// Resolver implements the identity-resolution algorithm: match an
// external identity, fall back to email, then name, then create a
// disabled shadow user.
type Resolver struct {
	store Store
	now   func() time.Time
}

// New creates a Resolver backed by store.
func New(store Store) *Resolver {
	return &Resolver{store: store, now: time.Now}
}

// Input is the tuple the resolver matches against, one per vendor record.
type Input struct {
	Provider       types.SourceType
	ExternalUserID string
	Email          string
	Name           string
}

// Resolve returns the platform User for in, creating one on first sight.
// It is deterministic and idempotent: calling Resolve twice with the
// same Input returns the same user id (Testable Property 4).
func (r *Resolver) Resolve(ctx tenantctx.Context, in Input) (*types.User, error) {
	if in.ExternalUserID == "" {
		return nil, fmt.Errorf("identity: external_user_id is required")
	}

	user, err := r.lookup(ctx, in)
	if err != nil {
		return nil, err
	}

	if user == nil {
		user, err = r.createShadowUser(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("identity: create shadow user: %w", err)
		}
	} else if user.FirstName == "" && user.LastName == "" && in.Name != "" {
		first, last := splitName(in.Name)
		if err := r.store.UpdateUserName(ctx, user.ID, first, last); err != nil {
			return nil, fmt.Errorf("identity: backfill name: %w", err)
		}
		user.FirstName, user.LastName = first, last
	}

	identity := &types.ExternalIdentity{
		TenantID:       ctx.TenantID,
		Provider:       in.Provider,
		ExternalUserID: in.ExternalUserID,
		UserID:         user.ID,
		CreatedAt:      r.now(),
	}
	if err := r.store.UpsertExternalIdentity(ctx, identity); err != nil {
		return nil, fmt.Errorf("identity: upsert external identity: %w", err)
	}

	return user, nil
}

// lookup tries external identity, then email, then name, in order.
func (r *Resolver) lookup(ctx tenantctx.Context, in Input) (*types.User, error) {
	existing, err := r.store.GetExternalIdentity(ctx, in.Provider, in.ExternalUserID)
	if err != nil {
		return nil, fmt.Errorf("identity: lookup external identity: %w", err)
	}
	if existing != nil {
		user, err := r.store.GetUser(ctx, existing.UserID)
		if err != nil {
			return nil, fmt.Errorf("identity: load user for external identity: %w", err)
		}
		return user, nil
	}

	if in.Email != "" {
		user, err := r.store.GetUserByEmail(ctx, strings.ToLower(in.Email))
		if err != nil {
			return nil, fmt.Errorf("identity: lookup user by email: %w", err)
		}
		if user != nil {
			return user, nil
		}
		return nil, nil
	}

	if in.Name != "" {
		first, last := splitName(in.Name)
		user, err := r.store.GetUserByName(ctx, first, last)
		if err != nil {
			return nil, fmt.Errorf("identity: lookup user by name: %w", err)
		}
		if user != nil {
			return user, nil
		}
	}

	return nil, nil
}

// createShadowUser implements step 4: an inactive user with no usable
// password, deduping the username by appending ".N" on collision.
func (r *Resolver) createShadowUser(ctx tenantctx.Context, in Input) (*types.User, error) {
	first, last := splitName(in.Name)

	username, err := r.uniqueUsername(ctx, in)
	if err != nil {
		return nil, err
	}

	now := r.now()
	user := &types.User{
		TenantID:          ctx.TenantID,
		Username:          username,
		Email:             strings.ToLower(in.Email),
		FirstName:         first,
		LastName:          last,
		IsActive:          false,
		HasUsablePassword: false,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := r.store.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// uniqueUsername builds a base username (the email, or else the lowercased
// name with spaces replaced by dots plus "@{provider}.sync") and dedupes by
// appending ".N" until it no longer collides.
func (r *Resolver) uniqueUsername(ctx tenantctx.Context, in Input) (string, error) {
	var base string
	if in.Email != "" {
		base = in.Email
	} else {
		slug := strings.ReplaceAll(strings.TrimSpace(in.Name), " ", ".")
		if slug == "" {
			slug = in.ExternalUserID
		}
		base = strings.ToLower(fmt.Sprintf("%s@%s.sync", slug, in.Provider))
	}

	candidate := base
	for n := 1; ; n++ {
		taken, err := r.store.UsernameTaken(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("identity: check username: %w", err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s.%d", base, n)
	}
}

// splitName splits on the first space.
func splitName(name string) (first, last string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ""
	}
	idx := strings.Index(name, " ")
	if idx < 0 {
		return name, ""
	}
	return name[:idx], strings.TrimSpace(name[idx+1:])
}
