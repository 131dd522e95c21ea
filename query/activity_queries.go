package query

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-masker"
	"github.com/goliatone/go-staff/activity"
	"github.com/goliatone/go-staff/authz"
	"github.com/goliatone/go-staff/pkg/types"
)

// ActivityFeedQuery renders the staff audit feed for privileged callers.
// Records are sanitized before they leave the query.
type ActivityFeedQuery struct {
	repo   types.ActivityRepository
	guard  authz.Guard
	masker *masker.Masker
}

// NewActivityFeedQuery constructs the feed query helper. A nil masker uses
// activity.DefaultMasker.
func NewActivityFeedQuery(repo types.ActivityRepository, guard authz.Guard, m *masker.Masker) *ActivityFeedQuery {
	if m == nil {
		m = activity.DefaultMasker()
	}
	return &ActivityFeedQuery{repo: repo, guard: guard, masker: m}
}

var _ gocommand.Querier[types.ActivityFilter, types.ActivityPage] = (*ActivityFeedQuery)(nil)

// Query fetches a page of activity logs via the injected repository.
func (q *ActivityFeedQuery) Query(ctx context.Context, filter types.ActivityFilter) (types.ActivityPage, error) {
	if q.repo == nil {
		return types.ActivityPage{}, types.ErrMissingActivityRepository
	}
	if err := filter.Validate(); err != nil {
		return types.ActivityPage{}, types.NewUnauthenticatedError("")
	}
	if err := requirePrivileged(ctx, q.guard, filter.Actor.ID); err != nil {
		return types.ActivityPage{}, err
	}
	filter.Pagination = normalizePagination(filter.Pagination)
	page, err := q.repo.ListActivity(ctx, filter)
	if err != nil {
		return types.ActivityPage{}, err
	}
	page.Records = activity.SanitizeRecords(q.masker, page.Records)
	return page, nil
}
