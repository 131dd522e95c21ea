package main

import (
	"context"
	"errors"

	"github.com/goliatone/go-staff/pkg/types"
)

// bootstrapAdmin grants the admin role to the identity registered under
// email. A fresh deployment has no privileged profile, and nobody could
// invite the first manager otherwise.
func bootstrapAdmin(ctx context.Context, identities types.IdentityRepository, profiles types.ProfileRepository, email string, logger types.Logger) error {
	email = types.NormalizeEmail(email)
	if email == "" {
		return nil
	}
	identity, err := identities.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, types.ErrIdentityNotFound) {
			logger.Info("bootstrap admin identity not found", "email", email)
			return nil
		}
		return err
	}
	current, err := profiles.GetProfile(ctx, identity.ID)
	if err != nil {
		return err
	}
	if current != nil && current.Role == types.RoleAdmin {
		return nil
	}
	if _, err := profiles.UpsertProfile(ctx, types.Profile{
		ID:        identity.ID,
		Role:      types.RoleAdmin,
		CreatedBy: identity.ID,
		UpdatedBy: identity.ID,
	}); err != nil {
		return err
	}
	logger.Info("bootstrap admin granted", "email", email, "identity_id", identity.ID.String())
	return nil
}
