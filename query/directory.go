package query

import (
	"context"
	"errors"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-staff/authz"
	"github.com/goliatone/go-staff/pkg/types"
)

// ErrMissingDirectoryRepository occurs when no directory reader was supplied.
var ErrMissingDirectoryRepository = errors.New("go-staff: missing directory repository")

// DirectoryInput filters the staff directory.
type DirectoryInput struct {
	Actor      types.ActorRef
	Keyword    string
	Roles      []types.Role
	Pagination types.Pagination
}

// Type implements gocommand.Message.
func (DirectoryInput) Type() string { return "query.staff.directory" }

// Validate implements gocommand.Message.
func (DirectoryInput) Validate() error { return nil }

// DirectoryQuery lists staff members with email and suspension status.
type DirectoryQuery struct {
	repo   types.DirectoryRepository
	guard  authz.Guard
	logger types.Logger
}

// NewDirectoryQuery constructs the directory query.
func NewDirectoryQuery(repo types.DirectoryRepository, guard authz.Guard, logger types.Logger) *DirectoryQuery {
	if logger == nil {
		logger = types.NopLogger{}
	}
	return &DirectoryQuery{repo: repo, guard: guard, logger: logger}
}

var _ gocommand.Querier[DirectoryInput, types.DirectoryPage] = (*DirectoryQuery)(nil)

// Query returns one directory page.
func (q *DirectoryQuery) Query(ctx context.Context, input DirectoryInput) (types.DirectoryPage, error) {
	if q.repo == nil {
		return types.DirectoryPage{}, ErrMissingDirectoryRepository
	}
	if err := requirePrivileged(ctx, q.guard, input.Actor.ID); err != nil {
		return types.DirectoryPage{}, err
	}
	page, err := q.repo.ListDirectory(ctx, types.DirectoryFilter{
		Keyword:    input.Keyword,
		Roles:      input.Roles,
		Pagination: normalizePagination(input.Pagination),
	})
	if err != nil {
		q.logger.Error("staff directory listing failed", err, "actor_id", input.Actor.ID.String())
		return types.DirectoryPage{}, err
	}
	return page, nil
}
