package types

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// InvitationStep records the last pipeline step an attempt completed.
type InvitationStep string

const (
	InvitationStepRequested       InvitationStep = "requested"
	InvitationStepIdentityCreated InvitationStep = "identity_created"
	InvitationStepProfileWritten  InvitationStep = "profile_written"
	InvitationStepInvitationSent  InvitationStep = "invitation_sent"
)

// InvitationStatus is the overall state of an attempt.
type InvitationStatus string

const (
	InvitationStatusStarted     InvitationStatus = "started"
	InvitationStatusCompleted   InvitationStatus = "completed"
	InvitationStatusFailed      InvitationStatus = "failed"
	InvitationStatusCompensated InvitationStatus = "compensated"
	InvitationStatusAbandoned   InvitationStatus = "abandoned"
)

// Settled reports whether no further reconciliation is needed.
func (s InvitationStatus) Settled() bool {
	switch s {
	case InvitationStatusCompleted, InvitationStatusCompensated, InvitationStatusAbandoned:
		return true
	default:
		return false
	}
}

// InvitationAttempt is the durable step log entry for one invite request.
type InvitationAttempt struct {
	ID         uuid.UUID
	Email      string
	Role       Role
	ActorID    uuid.UUID
	IdentityID uuid.UUID
	Step       InvitationStep
	Status     InvitationStatus
	LastError  string
	Retries    int
	RequestID  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Partial states a non-settled attempt may leave across the identity and
// profile stores.
const (
	PartialStateDanglingIdentity = "dangling_identity"
	PartialStateUninvitedAccount = "uninvited_account"
	PartialStateNoSideEffects    = "no_side_effects"
)

// PartialState names the cross-store state a failed attempt left behind.
func (a InvitationAttempt) PartialState() string {
	if a.Status.Settled() {
		return ""
	}
	switch a.Step {
	case InvitationStepIdentityCreated:
		return PartialStateDanglingIdentity
	case InvitationStepProfileWritten:
		return PartialStateUninvitedAccount
	case InvitationStepRequested:
		return PartialStateNoSideEffects
	default:
		return ""
	}
}

// InvitationProgress describes an update applied to an attempt.
type InvitationProgress struct {
	Step       InvitationStep
	Status     InvitationStatus
	IdentityID uuid.UUID
	Error      string
	Retried    bool
}

// InvitationFilter narrows attempt listings.
type InvitationFilter struct {
	Statuses      []InvitationStatus
	Email         string
	UpdatedBefore *time.Time
	Pagination    Pagination
}

// InvitationPage is a page of attempts ordered by last update, newest first.
type InvitationPage struct {
	Attempts   []InvitationAttempt
	Total      int
	NextOffset int
	HasMore    bool
}

// InvitationLog persists the saga step log for invitation attempts.
type InvitationLog interface {
	StartAttempt(ctx context.Context, attempt InvitationAttempt) (*InvitationAttempt, error)
	RecordProgress(ctx context.Context, id uuid.UUID, progress InvitationProgress) (*InvitationAttempt, error)
	GetAttempt(ctx context.Context, id uuid.UUID) (*InvitationAttempt, error)
	ListAttempts(ctx context.Context, filter InvitationFilter) (InvitationPage, error)
}

// Invitation is the outbound notification handed to a dispatcher.
type Invitation struct {
	AttemptID  uuid.UUID
	IdentityID uuid.UUID
	Email      string
	Role       Role
	Link       string
	RedirectTo string
	InvitedBy  uuid.UUID
	ExpiresAt  time.Time
	RequestID  string
}

// InvitationDispatcher delivers invitation notifications (email queue, log).
type InvitationDispatcher interface {
	DispatchInvitation(ctx context.Context, invitation Invitation) error
}

// ErrInvitationAttemptNotFound is returned when a step log entry is missing.
var ErrInvitationAttemptNotFound = errors.New("go-staff: invitation attempt not found")
