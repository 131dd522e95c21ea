package goauth

import (
	"context"
	"errors"

	auth "github.com/goliatone/go-auth"
	goerrors "github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-staff/pkg/types"
	"github.com/google/uuid"
)

// DefaultIdentityRole is the go-auth role stamped on invited identities.
// Practice roles live on the profile, not on the identity.
const DefaultIdentityRole = "member"

// IdentityAdapter wraps go-auth Users repositories so they satisfy
// types.IdentityRepository.
type IdentityAdapter struct {
	repo         auth.Users
	sm           auth.UserStateMachine
	policy       types.TransitionPolicy
	identityRole string
}

// NewIdentityAdapter builds an IdentityAdapter. Callers can override the
// transition policy with WithPolicy.
func NewIdentityAdapter(repo auth.Users, opts ...IdentityAdapterOption) *IdentityAdapter {
	adapter := &IdentityAdapter{
		repo:         repo,
		sm:           auth.NewUserStateMachine(repo),
		policy:       types.DefaultTransitionPolicy(),
		identityRole: DefaultIdentityRole,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(adapter)
		}
	}
	return adapter
}

// IdentityAdapterOption customizes adapter construction.
type IdentityAdapterOption func(*IdentityAdapter)

// WithPolicy overrides the default transition policy.
func WithPolicy(policy types.TransitionPolicy) IdentityAdapterOption {
	return func(adapter *IdentityAdapter) {
		if policy != nil {
			adapter.policy = policy
		}
	}
}

// WithIdentityRole overrides the go-auth role given to created identities.
func WithIdentityRole(role string) IdentityAdapterOption {
	return func(adapter *IdentityAdapter) {
		if role != "" {
			adapter.identityRole = role
		}
	}
}

var _ types.IdentityRepository = (*IdentityAdapter)(nil)

// GetByID loads an identity by UUID.
func (a *IdentityAdapter) GetByID(ctx context.Context, id uuid.UUID) (*types.Identity, error) {
	record, err := a.repo.GetByID(ctx, id.String())
	if err != nil {
		return nil, mapLookupError(err)
	}
	return toIdentity(record), nil
}

// GetByEmail loads an identity by its canonical email.
func (a *IdentityAdapter) GetByEmail(ctx context.Context, email string) (*types.Identity, error) {
	record, err := a.repo.GetByIdentifier(ctx, types.NormalizeEmail(email))
	if err != nil {
		return nil, mapLookupError(err)
	}
	return toIdentity(record), nil
}

// Create provisions a new identity. Confirmed identities start active so
// the invitee only has to set a password.
func (a *IdentityAdapter) Create(ctx context.Context, input *types.Identity) (*types.Identity, error) {
	if input == nil {
		return nil, errors.New("goauth: identity payload required")
	}
	record := fromIdentity(input)
	record.Role = auth.UserRole(a.identityRole)
	if record.Username == "" {
		record.Username = record.Email
	}
	created, err := a.repo.Create(ctx, record)
	if err != nil {
		if repository.IsDuplicatedKey(err) {
			return nil, types.ErrIdentityExists
		}
		return nil, err
	}
	return toIdentity(created), nil
}

// UpdateStatus transitions the identity to the next lifecycle state.
func (a *IdentityAdapter) UpdateStatus(ctx context.Context, actor types.ActorRef, id uuid.UUID, next types.LifecycleState, opts ...types.TransitionOption) (*types.Identity, error) {
	record, err := a.repo.GetByID(ctx, id.String())
	if err != nil {
		return nil, mapLookupError(err)
	}

	current := types.LifecycleState(record.Status)
	config := types.ApplyTransitionOptions(opts...)
	if a.policy != nil && !config.Force {
		if err := a.policy.Validate(current, next); err != nil {
			return nil, err
		}
	}

	goActor := auth.ActorRef{
		ID:   actor.ID.String(),
		Type: actor.Type,
	}
	updated, err := a.sm.Transition(ctx, goActor, record, auth.UserStatus(next), buildGoAuthOptions(config)...)
	if err != nil {
		return nil, err
	}
	return toIdentity(updated), nil
}

// Remove archives the identity. Archived identities can no longer sign in
// and keep their row for audit.
func (a *IdentityAdapter) Remove(ctx context.Context, actor types.ActorRef, id uuid.UUID) error {
	current, err := a.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if current.Status == types.LifecycleStateArchived {
		return nil
	}
	_, err = a.UpdateStatus(ctx, actor, id, types.LifecycleStateArchived,
		types.WithForceTransition(),
		types.WithTransitionReason("staff member removed"),
	)
	return err
}

func mapLookupError(err error) error {
	if err == nil {
		return nil
	}
	if repository.IsRecordNotFound(err) {
		return types.ErrIdentityNotFound
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr != nil && richErr.Category == goerrors.CategoryNotFound {
		return types.ErrIdentityNotFound
	}
	return err
}

func buildGoAuthOptions(cfg types.TransitionConfig) []auth.TransitionOption {
	opts := make([]auth.TransitionOption, 0, 3)
	if cfg.Reason != "" {
		opts = append(opts, auth.WithTransitionReason(cfg.Reason))
	}
	if len(cfg.Metadata) > 0 {
		opts = append(opts, auth.WithTransitionMetadata(cfg.Metadata))
	}
	if cfg.Force {
		opts = append(opts, auth.WithForceTransition())
	}
	return opts
}
