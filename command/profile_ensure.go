package command

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-staff/authz"
	"github.com/goliatone/go-staff/pkg/types"
	"github.com/google/uuid"
)

// EnsureMyProfileInput bootstraps the caller's own profile.
type EnsureMyProfileInput struct {
	Actor  types.ActorRef
	Result *EnsureMyProfileResult
}

// Type implements gocommand.Message.
func (EnsureMyProfileInput) Type() string {
	return "command.staff.profile.ensure"
}

// Validate implements gocommand.Message.
func (input EnsureMyProfileInput) Validate() error {
	if input.Actor.ID == uuid.Nil {
		return types.NewUnauthenticatedError("")
	}
	return nil
}

// EnsureMyProfileResult carries the caller's profile.
type EnsureMyProfileResult struct {
	Profile *types.Profile
	Created bool
}

// EnsureMyProfileCommandConfig wires the bootstrap command.
type EnsureMyProfileCommandConfig struct {
	Identities types.IdentityRepository
	Profiles   types.ProfileRepository
	Events     types.EventPublisher
	Clock      types.Clock
	IDGen      types.IDGenerator
	Hooks      types.Hooks
	Logger     types.Logger
}

// EnsureMyProfileCommand gives an authenticated identity without a profile
// the default role. It never changes an existing profile.
type EnsureMyProfileCommand struct {
	identities types.IdentityRepository
	profiles   types.ProfileRepository
	events     types.EventPublisher
	clock      types.Clock
	idGen      types.IDGenerator
	hooks      types.Hooks
	logger     types.Logger
}

// NewEnsureMyProfileCommand constructs the handler.
func NewEnsureMyProfileCommand(cfg EnsureMyProfileCommandConfig) *EnsureMyProfileCommand {
	return &EnsureMyProfileCommand{
		identities: cfg.Identities,
		profiles:   cfg.Profiles,
		events:     cfg.Events,
		clock:      safeClock(cfg.Clock),
		idGen:      safeIDGen(cfg.IDGen),
		hooks:      cfg.Hooks,
		logger:     safeLogger(cfg.Logger),
	}
}

var _ gocommand.Commander[EnsureMyProfileInput] = (*EnsureMyProfileCommand)(nil)

// Execute returns the existing profile or creates a staff profile.
func (c *EnsureMyProfileCommand) Execute(ctx context.Context, input EnsureMyProfileInput) error {
	if c.profiles == nil {
		return types.ErrMissingProfileRepository
	}
	if err := input.Validate(); err != nil {
		return err
	}
	if c.identities != nil {
		if err := authz.ActiveIdentity(ctx, c.identities, input.Actor.ID); err != nil {
			return err
		}
	}

	existing, err := c.profiles.GetProfile(ctx, input.Actor.ID)
	if err != nil {
		return err
	}
	if existing != nil {
		if input.Result != nil {
			*input.Result = EnsureMyProfileResult{Profile: existing}
		}
		return nil
	}

	created, err := c.profiles.UpsertProfile(ctx, types.Profile{
		ID:        input.Actor.ID,
		Role:      types.DefaultRole,
		CreatedBy: input.Actor.ID,
		UpdatedBy: input.Actor.ID,
	})
	if err != nil {
		return types.NewStepFailure(types.TextCodeProfileWriteFailed, msgProfileWriteFailed, err, nil)
	}

	at := now(c.clock)
	c.logger.Info("staff profile bootstrapped", "user_id", input.Actor.ID.String(), "role", created.Role.String())
	emitProfileHook(ctx, c.hooks, types.ProfileEvent{
		UserID:     created.ID,
		ActorID:    input.Actor.ID,
		Action:     "created",
		OccurredAt: at,
		Profile:    *created,
	})
	publish(ctx, c.events, c.idGen, types.ChangeEvent{
		Kind:       types.ChangeProfileCreated,
		SubjectID:  created.ID,
		ActorID:    input.Actor.ID,
		Profile:    created,
		OccurredAt: at,
	})

	if input.Result != nil {
		*input.Result = EnsureMyProfileResult{Profile: created, Created: true}
	}
	return nil
}
