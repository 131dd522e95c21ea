package command

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	gocommand "github.com/goliatone/go-command"
	featuregate "github.com/goliatone/go-featuregate/gate"
	"github.com/goliatone/go-staff/authz"
	"github.com/goliatone/go-staff/pkg/types"
	"github.com/google/uuid"
)

// InviteUserInput carries the invite form plus the verified caller.
type InviteUserInput struct {
	Email     string
	Role      string
	Actor     types.ActorRef
	RequestID string
	Result    *InviteUserResult
}

// Type implements gocommand.Message.
func (InviteUserInput) Type() string {
	return "command.staff.invite"
}

// Validate implements gocommand.Message. It only checks the form; the caller
// is checked by the guard afterwards.
func (input InviteUserInput) Validate() error {
	email := strings.TrimSpace(input.Email)
	if email == "" || strings.TrimSpace(input.Role) == "" {
		return types.NewInvalidInputError(msgInviteFieldsRequired)
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return types.NewInvalidInputError("Invalid email address")
	}
	if _, err := types.ParseRole(input.Role); err != nil {
		return types.NewInvalidInputError("Invalid role: " + strings.TrimSpace(input.Role))
	}
	return nil
}

// InviteUserResult reports the provisioned identity.
type InviteUserResult struct {
	IdentityID uuid.UUID
	AttemptID  uuid.UUID
	ExpiresAt  time.Time
}

// InviteCommandConfig holds dependencies for the invite pipeline.
type InviteCommandConfig struct {
	Identities  types.IdentityRepository
	Profiles    types.ProfileRepository
	Attempts    types.InvitationLog
	Dispatcher  types.InvitationDispatcher
	SecureLinks types.SecureLinkManager
	Guard       authz.Guard
	FeatureGate featuregate.FeatureGate
	Events      types.EventPublisher
	Links       InvitationLinkConfig
	Clock       types.Clock
	IDGen       types.IDGenerator
	Activity    types.ActivitySink
	Hooks       types.Hooks
	Logger      types.Logger
}

// InviteUserCommand provisions an invited staff member: identity, then
// profile, then invitation. Every step is recorded in the invitation log so
// partial failures can be reconciled.
type InviteUserCommand struct {
	identities  types.IdentityRepository
	profiles    types.ProfileRepository
	attempts    types.InvitationLog
	issuer      invitationIssuer
	guard       authz.Guard
	featureGate featuregate.FeatureGate
	events      types.EventPublisher
	clock       types.Clock
	idGen       types.IDGenerator
	activity    types.ActivitySink
	hooks       types.Hooks
	logger      types.Logger
}

// NewInviteUserCommand constructs the invite handler.
func NewInviteUserCommand(cfg InviteCommandConfig) *InviteUserCommand {
	return &InviteUserCommand{
		identities:  cfg.Identities,
		profiles:    cfg.Profiles,
		attempts:    cfg.Attempts,
		issuer:      newInvitationIssuer(cfg.SecureLinks, cfg.Dispatcher, cfg.Clock, cfg.Links),
		guard:       cfg.Guard,
		featureGate: cfg.FeatureGate,
		events:      cfg.Events,
		clock:       safeClock(cfg.Clock),
		idGen:       safeIDGen(cfg.IDGen),
		activity:    cfg.Activity,
		hooks:       cfg.Hooks,
		logger:      safeLogger(cfg.Logger),
	}
}

var _ gocommand.Commander[InviteUserInput] = (*InviteUserCommand)(nil)

func (c *InviteUserCommand) ready() error {
	switch {
	case c.identities == nil:
		return types.ErrMissingIdentityRepository
	case c.profiles == nil:
		return types.ErrMissingProfileRepository
	case c.attempts == nil:
		return types.ErrMissingInvitationLog
	case c.guard == nil:
		return ErrMissingGuard
	}
	return c.issuer.ready()
}

// Execute runs validate, authorize, duplicate check, identity creation,
// profile write and invitation dispatch, strictly in that order.
func (c *InviteUserCommand) Execute(ctx context.Context, input InviteUserInput) error {
	if err := c.ready(); err != nil {
		return err
	}
	if err := input.Validate(); err != nil {
		return err
	}
	if _, err := authz.RequirePrivileged(ctx, c.guard, input.Actor.ID); err != nil {
		return err
	}
	if enabled, err := featureEnabled(ctx, c.featureGate, featureStaffInvite, input.Actor.ID); err != nil {
		return err
	} else if !enabled {
		return ErrInviteDisabled
	}

	// Steps issued from here on run to completion even if the caller leaves.
	ctx = context.WithoutCancel(ctx)
	email := types.NormalizeEmail(input.Email)
	role, _ := types.ParseRole(input.Role)
	requestID := input.RequestID

	// A removed identity keeps its email reserved in the provider. It is
	// reinstated instead of created so the address can be invited again.
	var reinstate *types.Identity
	existing, err := c.identities.GetByEmail(ctx, email)
	switch {
	case err == nil && existing != nil && existing.Removed():
		reinstate = existing
	case err == nil && existing != nil:
		c.logger.Info("staff invite rejected: duplicate", "request_id", requestID, "actor_id", input.Actor.ID.String())
		return types.NewDuplicateUserError(email)
	case err == nil, errors.Is(err, types.ErrIdentityNotFound):
	default:
		c.logger.Error("staff invite duplicate check failed", err, "request_id", requestID, "step", "duplicate_check")
		return types.NewStepFailure(types.TextCodeIdentityCreationFailed, msgDuplicateLookup, err, nil)
	}

	pending := types.InvitationAttempt{
		ID:        c.idGen.UUID(),
		Email:     email,
		Role:      role,
		ActorID:   input.Actor.ID,
		RequestID: requestID,
	}
	if reinstate != nil {
		pending.IdentityID = reinstate.ID
	}
	attempt, err := c.attempts.StartAttempt(ctx, pending)
	if err != nil {
		c.logger.Error("staff invite step log unavailable", err, "request_id", requestID, "step", "start")
		return types.NewStepFailure(types.TextCodeIdentityCreationFailed, msgIdentityCreateFailed, err, nil)
	}

	metadata := map[string]any{
		types.MetadataInvited:         true,
		types.MetadataInvitedBy:       input.Actor.ID.String(),
		types.MetadataInviteAttemptID: attempt.ID.String(),
	}
	var identity *types.Identity
	if reinstate != nil {
		identity, err = c.identities.UpdateStatus(ctx, input.Actor, reinstate.ID, types.LifecycleStateActive,
			types.WithForceTransition(),
			types.WithTransitionReason("staff member re-invited"),
			types.WithTransitionMetadata(metadata),
		)
	} else {
		identity, err = c.identities.Create(ctx, &types.Identity{
			Email:     email,
			Confirmed: true,
			Metadata:  metadata,
		})
	}
	if err != nil {
		if errors.Is(err, types.ErrIdentityExists) {
			c.settle(ctx, attempt, types.InvitationStatusAbandoned, err)
			return types.NewDuplicateUserError(email)
		}
		return c.fail(ctx, input.Actor, attempt, types.TextCodeIdentityCreationFailed, msgIdentityCreateFailed, err)
	}

	attempt = c.advance(ctx, attempt, types.InvitationProgress{
		Step:       types.InvitationStepIdentityCreated,
		IdentityID: identity.ID,
	})

	profile, err := c.profiles.UpsertProfile(ctx, types.Profile{
		ID:        identity.ID,
		Role:      role,
		CreatedBy: input.Actor.ID,
		UpdatedBy: input.Actor.ID,
	})
	if err != nil {
		return c.fail(ctx, input.Actor, attempt, types.TextCodeProfileWriteFailed, msgProfileWriteFailed, err)
	}

	attempt = c.advance(ctx, attempt, types.InvitationProgress{Step: types.InvitationStepProfileWritten})

	invitation, err := c.issuer.issue(ctx, attempt, input.Actor.ID, requestID)
	if err != nil {
		return c.fail(ctx, input.Actor, attempt, types.TextCodeInvitationDispatchFailed, msgDispatchFailed, err)
	}

	attempt = c.advance(ctx, attempt, types.InvitationProgress{
		Step:   types.InvitationStepInvitationSent,
		Status: types.InvitationStatusCompleted,
	})

	at := now(c.clock)
	recordActivity(ctx, c.activity, c.hooks, c.logger, input.Actor, "staff.invite", "identity", identity.ID, map[string]any{
		"email":      email,
		"role":       role.String(),
		"attempt_id": attempt.ID.String(),
		"expires_at": invitation.ExpiresAt,
		"reinstated": reinstate != nil,
	}, requestID, at)
	emitProfileHook(ctx, c.hooks, types.ProfileEvent{
		UserID:     identity.ID,
		ActorID:    input.Actor.ID,
		Action:     "created",
		OccurredAt: at,
		Profile:    *profile,
	})
	publish(ctx, c.events, c.idGen, types.ChangeEvent{
		Kind:       types.ChangeProfileCreated,
		SubjectID:  identity.ID,
		ActorID:    input.Actor.ID,
		Profile:    profile,
		OccurredAt: at,
	})
	publish(ctx, c.events, c.idGen, types.ChangeEvent{
		Kind:       types.ChangeInvitationSent,
		SubjectID:  identity.ID,
		ActorID:    input.Actor.ID,
		Data:       map[string]any{"attempt_id": attempt.ID.String()},
		OccurredAt: at,
	})
	emitInvitationHook(ctx, c.hooks, types.InvitationEvent{
		Attempt:    *attempt,
		ActorID:    input.Actor.ID,
		OccurredAt: at,
	})

	c.logger.Info("staff invite completed",
		"request_id", requestID,
		"step", string(attempt.Step),
		"attempt_id", attempt.ID.String(),
		"identity_id", identity.ID.String(),
	)

	if input.Result != nil {
		*input.Result = InviteUserResult{
			IdentityID: identity.ID,
			AttemptID:  attempt.ID,
			ExpiresAt:  invitation.ExpiresAt,
		}
	}
	return nil
}

// advance records progress. A step log write failure does not stop the
// pipeline: the reconciliation sweep can still infer progress from the
// identity metadata and the profile store.
func (c *InviteUserCommand) advance(ctx context.Context, attempt *types.InvitationAttempt, progress types.InvitationProgress) *types.InvitationAttempt {
	updated, err := c.attempts.RecordProgress(ctx, attempt.ID, progress)
	if err == nil && updated != nil {
		return updated
	}
	c.logger.Error("staff invite step log write failed", err,
		"request_id", attempt.RequestID,
		"attempt_id", attempt.ID.String(),
		"step", string(progress.Step),
	)
	local := *attempt
	if progress.Step != "" {
		local.Step = progress.Step
	}
	if progress.Status != "" {
		local.Status = progress.Status
	}
	if progress.IdentityID != uuid.Nil {
		local.IdentityID = progress.IdentityID
	}
	return &local
}

func (c *InviteUserCommand) settle(ctx context.Context, attempt *types.InvitationAttempt, status types.InvitationStatus, cause error) *types.InvitationAttempt {
	progress := types.InvitationProgress{Status: status}
	if cause != nil {
		progress.Error = cause.Error()
	}
	return c.advance(ctx, attempt, progress)
}

// fail marks the attempt failed at its last completed step and returns the
// taxonomy error for the failing step.
func (c *InviteUserCommand) fail(ctx context.Context, actor types.ActorRef, attempt *types.InvitationAttempt, textCode, message string, cause error) error {
	failed := c.settle(ctx, attempt, types.InvitationStatusFailed, cause)
	partial := failed.PartialState()

	c.logger.Error("staff invite failed", cause,
		"request_id", failed.RequestID,
		"step", string(failed.Step),
		"attempt_id", failed.ID.String(),
		"identity_id", failed.IdentityID.String(),
		"partial_state", partial,
	)
	emitInvitationHook(ctx, c.hooks, types.InvitationEvent{
		Attempt:    *failed,
		ActorID:    actor.ID,
		OccurredAt: now(c.clock),
	})

	meta := map[string]any{
		"step":          string(failed.Step),
		"attempt_id":    failed.ID.String(),
		"partial_state": partial,
	}
	if failed.IdentityID != uuid.Nil {
		meta["identity_id"] = failed.IdentityID.String()
	}
	return types.NewStepFailure(textCode, message, cause, meta)
}
