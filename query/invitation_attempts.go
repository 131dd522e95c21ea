package query

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-staff/authz"
	"github.com/goliatone/go-staff/pkg/types"
)

// InvitationAttemptsInput filters the invitation step log.
type InvitationAttemptsInput struct {
	Actor      types.ActorRef
	Statuses   []types.InvitationStatus
	Email      string
	Pagination types.Pagination
}

// Type implements gocommand.Message.
func (InvitationAttemptsInput) Type() string { return "query.staff.invitations" }

// Validate implements gocommand.Message.
func (InvitationAttemptsInput) Validate() error { return nil }

// InvitationAttemptsQuery exposes invite attempts, including partial
// failures awaiting reconciliation, to privileged callers.
type InvitationAttemptsQuery struct {
	log   types.InvitationLog
	guard authz.Guard
}

// NewInvitationAttemptsQuery constructs the query.
func NewInvitationAttemptsQuery(log types.InvitationLog, guard authz.Guard) *InvitationAttemptsQuery {
	return &InvitationAttemptsQuery{log: log, guard: guard}
}

var _ gocommand.Querier[InvitationAttemptsInput, types.InvitationPage] = (*InvitationAttemptsQuery)(nil)

// Query lists attempts newest first.
func (q *InvitationAttemptsQuery) Query(ctx context.Context, input InvitationAttemptsInput) (types.InvitationPage, error) {
	if q.log == nil {
		return types.InvitationPage{}, types.ErrMissingInvitationLog
	}
	if err := requirePrivileged(ctx, q.guard, input.Actor.ID); err != nil {
		return types.InvitationPage{}, err
	}
	return q.log.ListAttempts(ctx, types.InvitationFilter{
		Statuses:   input.Statuses,
		Email:      input.Email,
		Pagination: normalizePagination(input.Pagination),
	})
}
