package types

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ChangeKind names the change carried by a ChangeEvent.
type ChangeKind string

const (
	ChangeProfileCreated     ChangeKind = "profile.created"
	ChangeProfileRoleChanged ChangeKind = "profile.role_changed"
	ChangeProfileDeleted     ChangeKind = "profile.deleted"
	ChangeIdentitySuspended  ChangeKind = "identity.suspended"
	ChangeIdentityRestored   ChangeKind = "identity.unsuspended"
	ChangeIdentityRemoved    ChangeKind = "identity.removed"
	ChangeInvitationSent     ChangeKind = "invitation.sent"
)

// ChangeEvent is published after a mutation commits so that dashboards can
// refresh their lists without polling.
type ChangeEvent struct {
	ID         uuid.UUID      `json:"id"`
	Kind       ChangeKind     `json:"kind"`
	SubjectID  uuid.UUID      `json:"subject_id"`
	ActorID    uuid.UUID      `json:"actor_id"`
	Profile    *Profile       `json:"profile,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// EventPublisher receives change events. Implementations must not block the
// caller on slow subscribers.
type EventPublisher interface {
	Publish(ctx context.Context, event ChangeEvent)
}
