// Package notify delivers invitation notifications.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/goliatone/go-staff/pkg/types"
)

// DefaultInvitationRoutingKey routes invitation emails on the exchange.
const DefaultInvitationRoutingKey = "staff.invitation"

// JSONPublisher publishes a JSON-encoded body under a routing key.
type JSONPublisher interface {
	PublishJSON(ctx context.Context, routingKey string, messageType string, body any) error
}

// InvitationMessage is the body consumed by the outbound email worker.
type InvitationMessage struct {
	AttemptID  string    `json:"attempt_id"`
	UserID     string    `json:"user_id"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	Link       string    `json:"link"`
	RedirectTo string    `json:"redirect_to"`
	InvitedBy  string    `json:"invited_by"`
	ExpiresAt  time.Time `json:"expires_at"`
	RequestID  string    `json:"request_id,omitempty"`
}

// NewInvitationMessage flattens an invitation for the wire.
func NewInvitationMessage(invitation types.Invitation) InvitationMessage {
	return InvitationMessage{
		AttemptID:  invitation.AttemptID.String(),
		UserID:     invitation.IdentityID.String(),
		Email:      invitation.Email,
		Role:       invitation.Role.String(),
		Link:       invitation.Link,
		RedirectTo: invitation.RedirectTo,
		InvitedBy:  invitation.InvitedBy.String(),
		ExpiresAt:  invitation.ExpiresAt,
		RequestID:  invitation.RequestID,
	}
}

// QueueDispatcher hands invitations to the transactional email queue. A
// successful publish is the "verified success" of the dispatch step.
type QueueDispatcher struct {
	publisher  JSONPublisher
	routingKey string
}

// NewQueueDispatcher builds the queue dispatcher.
func NewQueueDispatcher(publisher JSONPublisher, routingKey string) (*QueueDispatcher, error) {
	if publisher == nil {
		return nil, errors.New("notify: publisher required")
	}
	if routingKey == "" {
		routingKey = DefaultInvitationRoutingKey
	}
	return &QueueDispatcher{publisher: publisher, routingKey: routingKey}, nil
}

var _ types.InvitationDispatcher = (*QueueDispatcher)(nil)

// DispatchInvitation publishes the invitation message.
func (d *QueueDispatcher) DispatchInvitation(ctx context.Context, invitation types.Invitation) error {
	return d.publisher.PublishJSON(ctx, d.routingKey, "staff.invitation", NewInvitationMessage(invitation))
}

// LogDispatcher writes invitations to the logger instead of sending them.
// Local development uses it when no broker is configured.
type LogDispatcher struct {
	Logger types.Logger
}

var _ types.InvitationDispatcher = LogDispatcher{}

// DispatchInvitation logs the invitation. The link is omitted.
func (d LogDispatcher) DispatchInvitation(_ context.Context, invitation types.Invitation) error {
	logger := d.Logger
	if logger == nil {
		logger = types.NopLogger{}
	}
	logger.Info("invitation dispatched",
		"email", invitation.Email,
		"user_id", invitation.IdentityID.String(),
		"attempt_id", invitation.AttemptID.String(),
		"redirect_to", invitation.RedirectTo,
		"expires_at", invitation.ExpiresAt,
		"request_id", invitation.RequestID,
	)
	return nil
}
