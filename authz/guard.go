// Package authz decides whether an acting identity may run a privileged
// staff administration action.
package authz

import (
	"context"
	"errors"

	"github.com/goliatone/go-staff/pkg/types"
	"github.com/google/uuid"
)

// ProfileReader is the read side of the profile store the guard needs.
type ProfileReader interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*types.Profile, error)
}

// IdentityReader is the read side of the identity provider the guard needs.
type IdentityReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*types.Identity, error)
}

// Guard authorizes an already-authenticated identity against a role set.
// Implementations are read-only.
type Guard interface {
	Authorize(ctx context.Context, actorID uuid.UUID, allowed types.RoleSet) (*types.Profile, error)
}

// Config wires the default guard.
type Config struct {
	Profiles   ProfileReader
	Identities IdentityReader
	Logger     types.Logger
}

type guard struct {
	profiles   ProfileReader
	identities IdentityReader
	logger     types.Logger
}

// NewGuard builds the profile-backed guard.
func NewGuard(cfg Config) Guard {
	logger := cfg.Logger
	if logger == nil {
		logger = types.NopLogger{}
	}
	return guard{profiles: cfg.Profiles, identities: cfg.Identities, logger: logger}
}

// Authorize checks the actor's identity, then loads its profile and checks
// its role. A missing actor, or an identity that is unknown, suspended or
// removed, yields Unauthenticated. A lookup error, a missing profile or a
// role outside allowed yields Forbidden.
func (g guard) Authorize(ctx context.Context, actorID uuid.UUID, allowed types.RoleSet) (*types.Profile, error) {
	if actorID == uuid.Nil {
		return nil, types.NewUnauthenticatedError("")
	}
	if g.identities != nil {
		if err := ActiveIdentity(ctx, g.identities, actorID); err != nil {
			if types.IsTextCode(err, types.TextCodeUnauthenticated) {
				g.logger.Debug("authz: identity not active", "actor_id", actorID.String())
				return nil, err
			}
			g.logger.Error("authz: identity lookup failed", err, "actor_id", actorID.String())
			return nil, types.NewForbiddenError("")
		}
	}
	if g.profiles == nil {
		g.logger.Error("authz: profile store not configured", types.ErrMissingProfileRepository, "actor_id", actorID.String())
		return nil, types.NewForbiddenError("")
	}

	profile, err := g.profiles.GetProfile(ctx, actorID)
	if err != nil {
		g.logger.Error("authz: profile lookup failed", err, "actor_id", actorID.String())
		return nil, types.NewForbiddenError("")
	}
	if profile == nil {
		g.logger.Debug("authz: actor has no profile", "actor_id", actorID.String())
		return nil, types.NewForbiddenError("")
	}
	if !allowed.Contains(profile.Role) {
		g.logger.Debug("authz: role not allowed",
			"actor_id", actorID.String(),
			"role", profile.Role.String(),
			"allowed", allowed.Strings(),
		)
		return nil, types.NewForbiddenError("")
	}
	return profile, nil
}

// RequirePrivileged authorizes actorID against the privileged role set.
func RequirePrivileged(ctx context.Context, g Guard, actorID uuid.UUID) (*types.Profile, error) {
	if g == nil {
		return nil, types.NewForbiddenError("")
	}
	return g.Authorize(ctx, actorID, types.PrivilegedRoles())
}

// ActiveIdentity reports whether actorID names an identity that may still
// act. Unknown, suspended and removed identities yield Unauthenticated; a
// provider failure is returned as is.
func ActiveIdentity(ctx context.Context, identities IdentityReader, actorID uuid.UUID) error {
	if actorID == uuid.Nil {
		return types.NewUnauthenticatedError("")
	}
	identity, err := identities.GetByID(ctx, actorID)
	switch {
	case errors.Is(err, types.ErrIdentityNotFound), err == nil && identity == nil:
		return types.NewUnauthenticatedError("")
	case err != nil:
		return err
	}
	if identity.Suspended() || identity.Removed() {
		return types.NewUnauthenticatedError("Account is not active")
	}
	return nil
}
