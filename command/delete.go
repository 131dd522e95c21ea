package command

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-staff/authz"
	"github.com/goliatone/go-staff/pkg/types"
	"github.com/google/uuid"
)

// DeleteUserInput removes another staff member.
type DeleteUserInput struct {
	TargetID  uuid.UUID
	Actor     types.ActorRef
	RequestID string
}

// Type implements gocommand.Message.
func (DeleteUserInput) Type() string {
	return "command.staff.delete"
}

// Validate implements gocommand.Message.
func (input DeleteUserInput) Validate() error {
	if input.TargetID == uuid.Nil {
		return types.NewInvalidInputError("User id is required")
	}
	return nil
}

// DeleteUserCommandConfig wires the delete command.
type DeleteUserCommandConfig struct {
	Identities types.IdentityRepository
	Profiles   types.ProfileRepository
	Guard      authz.Guard
	Events     types.EventPublisher
	Clock      types.Clock
	IDGen      types.IDGenerator
	Activity   types.ActivitySink
	Hooks      types.Hooks
	Logger     types.Logger
}

// DeleteUserCommand removes the profile first and then the identity, so a
// privileged profile never outlives its identity. If the identity removal
// fails the remaining identity has no profile and therefore no privilege.
type DeleteUserCommand struct {
	identities types.IdentityRepository
	profiles   types.ProfileRepository
	guard      authz.Guard
	events     types.EventPublisher
	clock      types.Clock
	idGen      types.IDGenerator
	activity   types.ActivitySink
	hooks      types.Hooks
	logger     types.Logger
}

// NewDeleteUserCommand constructs the handler.
func NewDeleteUserCommand(cfg DeleteUserCommandConfig) *DeleteUserCommand {
	return &DeleteUserCommand{
		identities: cfg.Identities,
		profiles:   cfg.Profiles,
		guard:      cfg.Guard,
		events:     cfg.Events,
		clock:      safeClock(cfg.Clock),
		idGen:      safeIDGen(cfg.IDGen),
		activity:   cfg.Activity,
		hooks:      cfg.Hooks,
		logger:     safeLogger(cfg.Logger),
	}
}

var _ gocommand.Commander[DeleteUserInput] = (*DeleteUserCommand)(nil)

// Execute deletes the profile and archives the identity.
func (c *DeleteUserCommand) Execute(ctx context.Context, input DeleteUserInput) error {
	switch {
	case c.identities == nil:
		return types.ErrMissingIdentityRepository
	case c.profiles == nil:
		return types.ErrMissingProfileRepository
	case c.guard == nil:
		return ErrMissingGuard
	}
	if err := rejectSelfAction(input.Actor, input.TargetID, "delete"); err != nil {
		return err
	}
	if err := input.Validate(); err != nil {
		return err
	}
	if _, err := authz.RequirePrivileged(ctx, c.guard, input.Actor.ID); err != nil {
		return err
	}

	profile, err := c.profiles.GetProfile(ctx, input.TargetID)
	if err != nil {
		return err
	}
	identity, err := c.identities.GetByID(ctx, input.TargetID)
	if err != nil && !errors.Is(err, types.ErrIdentityNotFound) {
		return err
	}
	identityLive := identity != nil && !identity.Removed()
	if profile == nil && !identityLive {
		return types.NewNotFoundError("User not found")
	}

	// Both stores are mutated past this point; finish even if the caller leaves.
	ctx = context.WithoutCancel(ctx)
	meta := map[string]any{"user_id": input.TargetID.String()}

	if profile != nil {
		if err := c.profiles.DeleteProfile(ctx, input.TargetID); err != nil {
			c.logger.Error("staff delete: profile removal failed", err, "request_id", input.RequestID, "user_id", input.TargetID.String())
			return types.NewStepFailure(types.TextCodeProfileWriteFailed, "Failed to delete profile", err, meta)
		}
	}
	if identityLive {
		if err := c.identities.Remove(ctx, input.Actor, input.TargetID); err != nil {
			c.logger.Error("staff delete: identity removal failed", err,
				"request_id", input.RequestID,
				"user_id", input.TargetID.String(),
				"profile_deleted", profile != nil,
			)
			return types.NewStepFailure(types.TextCodeIdentityRemovalFailed, "Failed to delete user", err, meta)
		}
	}

	at := now(c.clock)
	data := map[string]any{"profile_deleted": profile != nil, "identity_removed": identityLive}
	if profile != nil {
		data["role"] = profile.Role.String()
	}
	recordActivity(ctx, c.activity, c.hooks, c.logger, input.Actor, "staff.delete", "identity", input.TargetID, data, input.RequestID, at)

	if profile != nil {
		emitProfileHook(ctx, c.hooks, types.ProfileEvent{
			UserID:     input.TargetID,
			ActorID:    input.Actor.ID,
			Action:     "deleted",
			OccurredAt: at,
			Profile:    *profile,
		})
		publish(ctx, c.events, c.idGen, types.ChangeEvent{
			Kind:       types.ChangeProfileDeleted,
			SubjectID:  input.TargetID,
			ActorID:    input.Actor.ID,
			OccurredAt: at,
		})
	}
	if identityLive {
		emitLifecycleHook(ctx, c.hooks, types.LifecycleEvent{
			UserID:     input.TargetID,
			ActorID:    input.Actor.ID,
			FromState:  identity.Status,
			ToState:    types.LifecycleStateArchived,
			Reason:     "deleted",
			OccurredAt: at,
		})
		publish(ctx, c.events, c.idGen, types.ChangeEvent{
			Kind:       types.ChangeIdentityRemoved,
			SubjectID:  input.TargetID,
			ActorID:    input.Actor.ID,
			OccurredAt: at,
		})
	}
	return nil
}
