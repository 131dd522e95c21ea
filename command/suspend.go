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

// SetSuspendedInput bans or restores another staff member's identity.
type SetSuspendedInput struct {
	TargetID  uuid.UUID
	Suspended bool
	Reason    string
	Actor     types.ActorRef
	RequestID string
	Result    *SetSuspendedResult
}

// Type implements gocommand.Message.
func (SetSuspendedInput) Type() string {
	return "command.staff.suspend"
}

// Validate implements gocommand.Message.
func (input SetSuspendedInput) Validate() error {
	if input.TargetID == uuid.Nil {
		return types.NewInvalidInputError("User id is required")
	}
	return nil
}

// SetSuspendedResult carries the identity after the change.
type SetSuspendedResult struct {
	Identity *types.Identity
	Changed  bool
}

// SetSuspendedCommandConfig wires the suspension command.
type SetSuspendedCommandConfig struct {
	Identities types.IdentityRepository
	Guard      authz.Guard
	Events     types.EventPublisher
	Clock      types.Clock
	IDGen      types.IDGenerator
	Activity   types.ActivitySink
	Hooks      types.Hooks
	Logger     types.Logger
}

// SetSuspendedCommand mutates only the identity provider record; the
// profile is left untouched.
type SetSuspendedCommand struct {
	identities types.IdentityRepository
	guard      authz.Guard
	events     types.EventPublisher
	clock      types.Clock
	idGen      types.IDGenerator
	activity   types.ActivitySink
	hooks      types.Hooks
	logger     types.Logger
}

// NewSetSuspendedCommand constructs the handler.
func NewSetSuspendedCommand(cfg SetSuspendedCommandConfig) *SetSuspendedCommand {
	return &SetSuspendedCommand{
		identities: cfg.Identities,
		guard:      cfg.Guard,
		events:     cfg.Events,
		clock:      safeClock(cfg.Clock),
		idGen:      safeIDGen(cfg.IDGen),
		activity:   cfg.Activity,
		hooks:      cfg.Hooks,
		logger:     safeLogger(cfg.Logger),
	}
}

var _ gocommand.Commander[SetSuspendedInput] = (*SetSuspendedCommand)(nil)

// Execute transitions the identity between active and suspended. Repeating
// the current state is a no-op.
func (c *SetSuspendedCommand) Execute(ctx context.Context, input SetSuspendedInput) error {
	if c.identities == nil {
		return types.ErrMissingIdentityRepository
	}
	if c.guard == nil {
		return ErrMissingGuard
	}
	if err := rejectSelfAction(input.Actor, input.TargetID, "suspend"); err != nil {
		return err
	}
	if err := input.Validate(); err != nil {
		return err
	}
	if _, err := authz.RequirePrivileged(ctx, c.guard, input.Actor.ID); err != nil {
		return err
	}

	current, err := c.identities.GetByID(ctx, input.TargetID)
	if err != nil {
		if errors.Is(err, types.ErrIdentityNotFound) {
			return types.NewNotFoundError("User not found")
		}
		return err
	}
	if current.Removed() {
		return types.NewNotFoundError("User not found")
	}

	target := types.LifecycleStateActive
	verb := "staff.unsuspend"
	kind := types.ChangeIdentityRestored
	if input.Suspended {
		target = types.LifecycleStateSuspended
		verb = "staff.suspend"
		kind = types.ChangeIdentitySuspended
	}

	if current.Status == target {
		if input.Result != nil {
			*input.Result = SetSuspendedResult{Identity: current}
		}
		return nil
	}

	opts := []types.TransitionOption{}
	if reason := strings.TrimSpace(input.Reason); reason != "" {
		opts = append(opts, types.WithTransitionReason(reason))
	}
	if input.RequestID != "" {
		opts = append(opts, types.WithTransitionMetadata(map[string]any{"request_id": input.RequestID}))
	}
	updated, err := c.identities.UpdateStatus(ctx, input.Actor, input.TargetID, target, opts...)
	if err != nil {
		if errors.Is(err, types.ErrTransitionNotAllowed) {
			return types.NewInvalidInputError("User cannot move from " + string(current.Status) + " to " + string(target))
		}
		return err
	}

	at := now(c.clock)
	recordActivity(ctx, c.activity, c.hooks, c.logger, input.Actor, verb, "identity", input.TargetID, map[string]any{
		"from_state": string(current.Status),
		"to_state":   string(updated.Status),
		"reason":     input.Reason,
	}, input.RequestID, at)
	emitLifecycleHook(ctx, c.hooks, types.LifecycleEvent{
		UserID:     input.TargetID,
		ActorID:    input.Actor.ID,
		FromState:  current.Status,
		ToState:    updated.Status,
		Reason:     input.Reason,
		OccurredAt: at,
	})
	publish(ctx, c.events, c.idGen, types.ChangeEvent{
		Kind:       kind,
		SubjectID:  input.TargetID,
		ActorID:    input.Actor.ID,
		Data:       map[string]any{"status": string(updated.Status)},
		OccurredAt: at,
	})

	if input.Result != nil {
		*input.Result = SetSuspendedResult{Identity: updated, Changed: true}
	}
	return nil
}
