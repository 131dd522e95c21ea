package query

import (
	"context"
	"errors"

	"github.com/goliatone/go-staff/authz"
	"github.com/goliatone/go-staff/pkg/types"
	"github.com/google/uuid"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// ErrMissingGuard occurs when a privileged query has no authorization guard.
var ErrMissingGuard = errors.New("go-staff: missing authorization guard")

func requirePrivileged(ctx context.Context, guard authz.Guard, actorID uuid.UUID) error {
	if guard == nil {
		return ErrMissingGuard
	}
	_, err := authz.RequirePrivileged(ctx, guard, actorID)
	return err
}

func normalizePagination(p types.Pagination) types.Pagination {
	out := p
	if out.Limit <= 0 {
		out.Limit = defaultListLimit
	}
	if out.Limit > maxListLimit {
		out.Limit = maxListLimit
	}
	if out.Offset < 0 {
		out.Offset = 0
	}
	return out
}
