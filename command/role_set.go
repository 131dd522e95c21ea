package command

import (
	"context"
	"errors"
	"strings"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-staff/authz"
	"github.com/goliatone/go-staff/pkg/types"
	"github.com/google/uuid"
)

// SetRoleInput changes the practice role of another staff member.
type SetRoleInput struct {
	TargetID  uuid.UUID
	Role      string
	Actor     types.ActorRef
	RequestID string
	Result    *SetRoleResult
}

// Type implements gocommand.Message.
func (SetRoleInput) Type() string {
	return "command.staff.role.set"
}

// Validate implements gocommand.Message.
func (input SetRoleInput) Validate() error {
	if input.TargetID == uuid.Nil {
		return types.NewInvalidInputError("User id is required")
	}
	if strings.TrimSpace(input.Role) == "" {
		return types.NewInvalidInputError("Role is required")
	}
	if _, err := types.ParseRole(input.Role); err != nil {
		return types.NewInvalidInputError("Invalid role: " + strings.TrimSpace(input.Role))
	}
	return nil
}

// SetRoleResult carries the updated profile row.
type SetRoleResult struct {
	Profile *types.Profile
}

// SetRoleCommandConfig wires the role command.
type SetRoleCommandConfig struct {
	Profiles types.ProfileRepository
	Guard    authz.Guard
	Events   types.EventPublisher
	Clock    types.Clock
	IDGen    types.IDGenerator
	Activity types.ActivitySink
	Hooks    types.Hooks
	Logger   types.Logger
}

// SetRoleCommand updates role and updated_at in one statement.
type SetRoleCommand struct {
	profiles types.ProfileRepository
	guard    authz.Guard
	events   types.EventPublisher
	clock    types.Clock
	idGen    types.IDGenerator
	activity types.ActivitySink
	hooks    types.Hooks
	logger   types.Logger
}

// NewSetRoleCommand constructs the handler.
func NewSetRoleCommand(cfg SetRoleCommandConfig) *SetRoleCommand {
	return &SetRoleCommand{
		profiles: cfg.Profiles,
		guard:    cfg.Guard,
		events:   cfg.Events,
		clock:    safeClock(cfg.Clock),
		idGen:    safeIDGen(cfg.IDGen),
		activity: cfg.Activity,
		hooks:    cfg.Hooks,
		logger:   safeLogger(cfg.Logger),
	}
}

var _ gocommand.Commander[SetRoleInput] = (*SetRoleCommand)(nil)

// Execute applies the role change.
func (c *SetRoleCommand) Execute(ctx context.Context, input SetRoleInput) error {
	if c.profiles == nil {
		return types.ErrMissingProfileRepository
	}
	if c.guard == nil {
		return ErrMissingGuard
	}
	if err := rejectSelfAction(input.Actor, input.TargetID, "change the role of"); err != nil {
		return err
	}
	if err := input.Validate(); err != nil {
		return err
	}
	if _, err := authz.RequirePrivileged(ctx, c.guard, input.Actor.ID); err != nil {
		return err
	}
	role, _ := types.ParseRole(input.Role)

	current, err := c.profiles.GetProfile(ctx, input.TargetID)
	if err != nil {
		return err
	}
	if current == nil {
		return types.NewNotFoundError("Profile not found")
	}

	updated, err := c.profiles.UpdateRole(ctx, input.TargetID, role, input.Actor.ID)
	if err != nil {
		if errors.Is(err, types.ErrProfileNotFound) {
			return types.NewNotFoundError("Profile not found")
		}
		return err
	}

	at := now(c.clock)
	recordActivity(ctx, c.activity, c.hooks, c.logger, input.Actor, "staff.role.set", "profile", updated.ID, map[string]any{
		"from": current.Role.String(),
		"to":   updated.Role.String(),
	}, input.RequestID, at)
	emitProfileHook(ctx, c.hooks, types.ProfileEvent{
		UserID:     updated.ID,
		ActorID:    input.Actor.ID,
		Action:     "role_changed",
		OccurredAt: at,
		Profile:    *updated,
	})
	publish(ctx, c.events, c.idGen, types.ChangeEvent{
		Kind:       types.ChangeProfileRoleChanged,
		SubjectID:  updated.ID,
		ActorID:    input.Actor.ID,
		Profile:    updated,
		Data:       map[string]any{"from": current.Role.String()},
		OccurredAt: at,
	})

	if input.Result != nil {
		input.Result.Profile = updated
	}
	return nil
}
