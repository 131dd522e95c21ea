package command

import (
	"context"
	"errors"
	"time"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-staff/pkg/types"
	"github.com/google/uuid"
)

const (
	defaultReconcileAge        = 15 * time.Minute
	defaultReconcileLimit      = 100
	defaultReconcileMaxRetries = 5
	reconcilerActorType        = "reconciler"
)

// Reconciliation outcomes reported per attempt.
const (
	ReconcileOutcomeCompleted   = "completed"
	ReconcileOutcomeCompensated = "compensated"
	ReconcileOutcomeAbandoned   = "abandoned"
	ReconcileOutcomeRetrying    = "retrying"
)

// ReconcileInvitationsInput selects stale attempts to settle. MaxRetries
// bounds re-dispatches of one invitation before it is abandoned.
type ReconcileInvitationsInput struct {
	OlderThan  time.Duration
	Limit      int
	MaxRetries int
	Result     *ReconcileInvitationsResult
}

// Type implements gocommand.Message.
func (ReconcileInvitationsInput) Type() string {
	return "command.staff.invite.reconcile"
}

// Validate implements gocommand.Message.
func (input ReconcileInvitationsInput) Validate() error {
	if input.OlderThan < 0 {
		return types.NewInvalidInputError("Reconciliation age must not be negative")
	}
	if input.Limit < 0 {
		return types.NewInvalidInputError("Reconciliation limit must not be negative")
	}
	if input.MaxRetries < 0 {
		return types.NewInvalidInputError("Reconciliation retry limit must not be negative")
	}
	return nil
}

// ReconcileInvitationsResult counts outcomes for one sweep.
type ReconcileInvitationsResult struct {
	Scanned     int
	Completed   int
	Compensated int
	Abandoned   int
	Retrying    int
	Errors      int
}

// ReconcileCommandConfig wires the sweep.
type ReconcileCommandConfig struct {
	Identities  types.IdentityRepository
	Profiles    types.ProfileRepository
	Attempts    types.InvitationLog
	Dispatcher  types.InvitationDispatcher
	SecureLinks types.SecureLinkManager
	Links       InvitationLinkConfig
	Events      types.EventPublisher
	Clock       types.Clock
	IDGen       types.IDGenerator
	Activity    types.ActivitySink
	Hooks       types.Hooks
	Logger      types.Logger
}

// ReconcileInvitationsCommand settles invitation attempts that stopped at a
// partial-failure step.
type ReconcileInvitationsCommand struct {
	identities types.IdentityRepository
	profiles   types.ProfileRepository
	attempts   types.InvitationLog
	issuer     invitationIssuer
	events     types.EventPublisher
	clock      types.Clock
	idGen      types.IDGenerator
	activity   types.ActivitySink
	hooks      types.Hooks
	logger     types.Logger
}

// NewReconcileInvitationsCommand constructs the sweep handler.
func NewReconcileInvitationsCommand(cfg ReconcileCommandConfig) *ReconcileInvitationsCommand {
	return &ReconcileInvitationsCommand{
		identities: cfg.Identities,
		profiles:   cfg.Profiles,
		attempts:   cfg.Attempts,
		issuer:     newInvitationIssuer(cfg.SecureLinks, cfg.Dispatcher, cfg.Clock, cfg.Links),
		events:     cfg.Events,
		clock:      safeClock(cfg.Clock),
		idGen:      safeIDGen(cfg.IDGen),
		activity:   cfg.Activity,
		hooks:      cfg.Hooks,
		logger:     safeLogger(cfg.Logger),
	}
}

var _ gocommand.Commander[ReconcileInvitationsInput] = (*ReconcileInvitationsCommand)(nil)

// Execute scans started and failed attempts that have not moved within
// OlderThan and drives each one to a settled status where possible.
func (c *ReconcileInvitationsCommand) Execute(ctx context.Context, input ReconcileInvitationsInput) error {
	switch {
	case c.identities == nil:
		return types.ErrMissingIdentityRepository
	case c.profiles == nil:
		return types.ErrMissingProfileRepository
	case c.attempts == nil:
		return types.ErrMissingInvitationLog
	}
	if err := c.issuer.ready(); err != nil {
		return err
	}
	if err := input.Validate(); err != nil {
		return err
	}

	age := input.OlderThan
	if age == 0 {
		age = defaultReconcileAge
	}
	limit := input.Limit
	if limit == 0 {
		limit = defaultReconcileLimit
	}
	maxRetries := input.MaxRetries
	if maxRetries == 0 {
		maxRetries = defaultReconcileMaxRetries
	}
	cutoff := now(c.clock).Add(-age)

	page, err := c.attempts.ListAttempts(ctx, types.InvitationFilter{
		Statuses:      []types.InvitationStatus{types.InvitationStatusStarted, types.InvitationStatusFailed},
		UpdatedBefore: &cutoff,
		Pagination:    types.Pagination{Limit: limit},
	})
	if err != nil {
		return err
	}

	result := ReconcileInvitationsResult{Scanned: len(page.Attempts)}
	for i := range page.Attempts {
		attempt := page.Attempts[i]
		outcome, err := c.reconcile(ctx, &attempt, maxRetries)
		if err != nil {
			result.Errors++
			c.logger.Error("invite reconciliation failed", err,
				"attempt_id", attempt.ID.String(),
				"step", string(attempt.Step),
				"request_id", attempt.RequestID,
			)
			continue
		}
		switch outcome {
		case ReconcileOutcomeCompleted:
			result.Completed++
		case ReconcileOutcomeCompensated:
			result.Compensated++
		case ReconcileOutcomeAbandoned:
			result.Abandoned++
		case ReconcileOutcomeRetrying:
			result.Retrying++
		}
	}

	if result.Scanned > 0 {
		c.logger.Info("invite reconciliation sweep",
			"scanned", result.Scanned,
			"completed", result.Completed,
			"compensated", result.Compensated,
			"abandoned", result.Abandoned,
			"retrying", result.Retrying,
			"errors", result.Errors,
		)
	}
	if input.Result != nil {
		*input.Result = result
	}
	return nil
}

func (c *ReconcileInvitationsCommand) reconcile(ctx context.Context, attempt *types.InvitationAttempt, maxRetries int) (string, error) {
	if attempt.Step == types.InvitationStepRequested {
		identity, err := c.requestedIdentity(ctx, attempt)
		if err != nil {
			return "", err
		}
		if identity == nil {
			return c.settle(ctx, attempt, types.InvitationStatusAbandoned, ReconcileOutcomeAbandoned, nil)
		}
		next, err := c.attempts.RecordProgress(ctx, attempt.ID, types.InvitationProgress{
			Step:       types.InvitationStepIdentityCreated,
			IdentityID: identity.ID,
		})
		if err != nil {
			return "", err
		}
		*attempt = *next
	}

	if attempt.Step == types.InvitationStepIdentityCreated {
		profile, err := c.profiles.GetProfile(ctx, attempt.IdentityID)
		if err != nil {
			return "", err
		}
		if profile == nil {
			return c.compensate(ctx, attempt)
		}
		next, err := c.attempts.RecordProgress(ctx, attempt.ID, types.InvitationProgress{
			Step: types.InvitationStepProfileWritten,
		})
		if err != nil {
			return "", err
		}
		*attempt = *next
	}

	if attempt.Step == types.InvitationStepProfileWritten {
		if attempt.Retries >= maxRetries {
			c.logger.Info("invite re-dispatch limit reached",
				"attempt_id", attempt.ID.String(),
				"request_id", attempt.RequestID,
				"retries", attempt.Retries,
			)
			return c.settle(ctx, attempt, types.InvitationStatusAbandoned, ReconcileOutcomeAbandoned, map[string]any{
				"retries": attempt.Retries,
			})
		}
		invitation, err := c.issuer.issue(ctx, attempt, attempt.ActorID, attempt.RequestID)
		if err != nil {
			if _, recErr := c.attempts.RecordProgress(ctx, attempt.ID, types.InvitationProgress{
				Status:  types.InvitationStatusFailed,
				Error:   err.Error(),
				Retried: true,
			}); recErr != nil {
				return "", recErr
			}
			c.logger.Error("invite re-dispatch failed", err, "attempt_id", attempt.ID.String(), "request_id", attempt.RequestID)
			return ReconcileOutcomeRetrying, nil
		}
		publish(ctx, c.events, c.idGen, types.ChangeEvent{
			Kind:       types.ChangeInvitationSent,
			SubjectID:  attempt.IdentityID,
			ActorID:    attempt.ActorID,
			Data:       map[string]any{"attempt_id": attempt.ID.String(), "reconciled": true},
			OccurredAt: now(c.clock),
		})
		return c.settle(ctx, attempt, types.InvitationStatusCompleted, ReconcileOutcomeCompleted, map[string]any{
			"expires_at": invitation.ExpiresAt,
		}, types.InvitationStepInvitationSent)
	}

	if attempt.Step == types.InvitationStepInvitationSent {
		return c.settle(ctx, attempt, types.InvitationStatusCompleted, ReconcileOutcomeCompleted, nil)
	}
	return "", errors.New("go-staff: unknown invitation step " + string(attempt.Step))
}

// requestedIdentity returns the identity an attempt produced before its step
// log stopped, or nil when the attempt never got that far. A reinstatement
// names its identity up front; a fresh identity carries the attempt id in
// its metadata.
func (c *ReconcileInvitationsCommand) requestedIdentity(ctx context.Context, attempt *types.InvitationAttempt) (*types.Identity, error) {
	if attempt.IdentityID != uuid.Nil {
		identity, err := c.identities.GetByID(ctx, attempt.IdentityID)
		switch {
		case errors.Is(err, types.ErrIdentityNotFound):
			return nil, nil
		case err != nil:
			return nil, err
		}
		if identity == nil || identity.Removed() {
			return nil, nil
		}
		return identity, nil
	}
	identity, err := c.identities.GetByEmail(ctx, attempt.Email)
	switch {
	case errors.Is(err, types.ErrIdentityNotFound):
		return nil, nil
	case err != nil:
		return nil, err
	}
	if identity == nil || identity.InviteAttemptID() != attempt.ID {
		return nil, nil
	}
	return identity, nil
}

// compensate removes a dangling identity whose profile was never written.
func (c *ReconcileInvitationsCommand) compensate(ctx context.Context, attempt *types.InvitationAttempt) (string, error) {
	actor := types.ActorRef{ID: attempt.ActorID, Type: reconcilerActorType}
	if attempt.IdentityID != uuid.Nil {
		if err := c.identities.Remove(ctx, actor, attempt.IdentityID); err != nil && !errors.Is(err, types.ErrIdentityNotFound) {
			return "", err
		}
		publish(ctx, c.events, c.idGen, types.ChangeEvent{
			Kind:       types.ChangeIdentityRemoved,
			SubjectID:  attempt.IdentityID,
			ActorID:    attempt.ActorID,
			Data:       map[string]any{"attempt_id": attempt.ID.String(), "reconciled": true},
			OccurredAt: now(c.clock),
		})
	}
	return c.settle(ctx, attempt, types.InvitationStatusCompensated, ReconcileOutcomeCompensated, nil)
}

func (c *ReconcileInvitationsCommand) settle(ctx context.Context, attempt *types.InvitationAttempt, status types.InvitationStatus, outcome string, data map[string]any, step ...types.InvitationStep) (string, error) {
	progress := types.InvitationProgress{Status: status, Error: attempt.LastError}
	if len(step) > 0 {
		progress.Step = step[0]
	}
	settled, err := c.attempts.RecordProgress(ctx, attempt.ID, progress)
	if err != nil {
		return "", err
	}

	at := now(c.clock)
	payload := cloneMap(data)
	payload["outcome"] = outcome
	payload["attempt_id"] = attempt.ID.String()
	payload["email"] = attempt.Email
	actor := types.ActorRef{ID: attempt.ActorID, Type: reconcilerActorType}
	recordActivity(ctx, c.activity, c.hooks, c.logger, actor, "staff.invite.reconciled", "invitation_attempt", attempt.IdentityID, payload, attempt.RequestID, at)
	emitInvitationHook(ctx, c.hooks, types.InvitationEvent{
		Attempt:    *settled,
		ActorID:    attempt.ActorID,
		OccurredAt: at,
	})
	c.logger.Info("invite attempt reconciled",
		"attempt_id", attempt.ID.String(),
		"request_id", attempt.RequestID,
		"step", string(settled.Step),
		"outcome", outcome,
	)
	return outcome, nil
}
