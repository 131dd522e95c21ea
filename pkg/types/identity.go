package types

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LifecycleState represents the identity states the provider understands.
type LifecycleState string

const (
	LifecycleStatePending   LifecycleState = "pending"
	LifecycleStateActive    LifecycleState = "active"
	LifecycleStateSuspended LifecycleState = "suspended"
	LifecycleStateDisabled  LifecycleState = "disabled"
	LifecycleStateArchived  LifecycleState = "archived"
)

// Metadata keys written on invited identities.
const (
	MetadataInvited         = "invited"
	MetadataInvitedBy       = "invited_by"
	MetadataInviteAttemptID = "invite_attempt_id"
)

// Identity is the storage-agnostic view of an identity provider record. The
// provider owns it; this module only references it.
type Identity struct {
	ID        uuid.UUID
	Email     string
	Status    LifecycleState
	Confirmed bool
	Metadata  map[string]any
	CreatedAt *time.Time
	UpdatedAt *time.Time
	Raw       any
}

// Suspended reports whether the identity is banned.
func (i Identity) Suspended() bool {
	return i.Status == LifecycleStateSuspended
}

// Removed reports whether the identity was disabled or archived.
func (i Identity) Removed() bool {
	return i.Status == LifecycleStateArchived || i.Status == LifecycleStateDisabled
}

// Invited reports whether the identity was provisioned through an invitation.
func (i Identity) Invited() bool {
	switch v := i.Metadata[MetadataInvited].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true")
	default:
		return false
	}
}

// InvitedBy returns the inviting identity, or uuid.Nil when unknown.
func (i Identity) InvitedBy() uuid.UUID {
	return metadataUUID(i.Metadata, MetadataInvitedBy)
}

// InviteAttemptID returns the invitation attempt that created the identity.
func (i Identity) InviteAttemptID() uuid.UUID {
	return metadataUUID(i.Metadata, MetadataInviteAttemptID)
}

func metadataUUID(meta map[string]any, key string) uuid.UUID {
	raw, ok := meta[key]
	if !ok || raw == nil {
		return uuid.Nil
	}
	switch v := raw.(type) {
	case uuid.UUID:
		return v
	default:
		id, err := uuid.Parse(strings.TrimSpace(fmt.Sprint(v)))
		if err != nil {
			return uuid.Nil
		}
		return id
	}
}

// NormalizeEmail trims and lower-cases an address. Email is the canonical
// uniqueness key for identities.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// TransitionConfig captures metadata supplied to lifecycle changes.
type TransitionConfig struct {
	Reason   string
	Metadata map[string]any
	Force    bool
}

// TransitionOption customizes lifecycle transitions triggered through the
// IdentityRepository.
type TransitionOption func(*TransitionConfig)

// WithTransitionReason sets the human readable reason recorded for a transition.
func WithTransitionReason(reason string) TransitionOption {
	return func(cfg *TransitionConfig) {
		cfg.Reason = reason
	}
}

// WithTransitionMetadata merges metadata into the transition audit payload.
func WithTransitionMetadata(metadata map[string]any) TransitionOption {
	return func(cfg *TransitionConfig) {
		if len(metadata) == 0 {
			return
		}
		if cfg.Metadata == nil {
			cfg.Metadata = make(map[string]any, len(metadata))
		}
		for k, v := range metadata {
			cfg.Metadata[k] = v
		}
	}
}

// WithForceTransition bypasses policy checks.
func WithForceTransition() TransitionOption {
	return func(cfg *TransitionConfig) {
		cfg.Force = true
	}
}

// ApplyTransitionOptions folds options into a TransitionConfig.
func ApplyTransitionOptions(opts ...TransitionOption) TransitionConfig {
	cfg := TransitionConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// IdentityRepository abstracts the identity provider. Implementations
// typically wrap go-auth's Users repository. Create must enforce email
// uniqueness and report a violation with ErrIdentityExists.
type IdentityRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Identity, error)
	GetByEmail(ctx context.Context, email string) (*Identity, error)
	Create(ctx context.Context, input *Identity) (*Identity, error)
	UpdateStatus(ctx context.Context, actor ActorRef, id uuid.UUID, next LifecycleState, opts ...TransitionOption) (*Identity, error)
	Remove(ctx context.Context, actor ActorRef, id uuid.UUID) error
}

// TokenVerifier resolves a bearer token into the identity it was issued for.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (ActorRef, error)
}

var (
	// ErrIdentityNotFound is returned when the provider has no matching identity.
	ErrIdentityNotFound = errors.New("go-staff: identity not found")
	// ErrIdentityExists is returned when an identity with the same email exists.
	ErrIdentityExists = errors.New("go-staff: identity already exists")
	// ErrInvalidToken is returned when a bearer token cannot be verified.
	ErrInvalidToken = errors.New("go-staff: invalid token")
)
