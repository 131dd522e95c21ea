package query

import (
	"context"

	gocommand "github.com/goliatone/go-command"
	"github.com/goliatone/go-staff/authz"
	"github.com/goliatone/go-staff/pkg/types"
	"github.com/google/uuid"
)

// ProfileQueryInput selects one staff profile.
type ProfileQueryInput struct {
	UserID uuid.UUID
	Actor  types.ActorRef
}

// Type implements gocommand.Message.
func (ProfileQueryInput) Type() string { return "query.staff.profile" }

// Validate implements gocommand.Message.
func (input ProfileQueryInput) Validate() error {
	if input.UserID == uuid.Nil {
		return types.NewInvalidInputError("User id is required")
	}
	return nil
}

// ProfileQuery fetches another member's profile for privileged callers.
type ProfileQuery struct {
	repo  types.ProfileRepository
	guard authz.Guard
}

// NewProfileQuery constructs the profile query helper.
func NewProfileQuery(repo types.ProfileRepository, guard authz.Guard) *ProfileQuery {
	return &ProfileQuery{repo: repo, guard: guard}
}

var _ gocommand.Querier[ProfileQueryInput, *types.Profile] = (*ProfileQuery)(nil)

// Query returns the profile or NotFound.
func (q *ProfileQuery) Query(ctx context.Context, input ProfileQueryInput) (*types.Profile, error) {
	if q.repo == nil {
		return nil, types.ErrMissingProfileRepository
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}
	if err := requirePrivileged(ctx, q.guard, input.Actor.ID); err != nil {
		return nil, err
	}
	profile, err := q.repo.GetProfile(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, types.NewNotFoundError("Profile not found")
	}
	return profile, nil
}

// MyProfileInput identifies the caller.
type MyProfileInput struct {
	Actor types.ActorRef
}

// Type implements gocommand.Message.
func (MyProfileInput) Type() string { return "query.staff.profile.me" }

// Validate implements gocommand.Message.
func (input MyProfileInput) Validate() error {
	if input.Actor.ID == uuid.Nil {
		return types.NewUnauthenticatedError("")
	}
	return nil
}

// MyProfileQuery returns the caller's own profile. Any authenticated
// identity may read its own row; nil means no profile exists yet.
type MyProfileQuery struct {
	repo types.ProfileRepository
}

// NewMyProfileQuery constructs the self-profile query.
func NewMyProfileQuery(repo types.ProfileRepository) *MyProfileQuery {
	return &MyProfileQuery{repo: repo}
}

var _ gocommand.Querier[MyProfileInput, *types.Profile] = (*MyProfileQuery)(nil)

// Query loads the caller's profile.
func (q *MyProfileQuery) Query(ctx context.Context, input MyProfileInput) (*types.Profile, error) {
	if q.repo == nil {
		return nil, types.ErrMissingProfileRepository
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}
	return q.repo.GetProfile(ctx, input.Actor.ID)
}

// ProfileListInput filters the profile list.
type ProfileListInput struct {
	Actor      types.ActorRef
	Roles      []types.Role
	Pagination types.Pagination
}

// Type implements gocommand.Message.
func (ProfileListInput) Type() string { return "query.staff.profiles" }

// Validate implements gocommand.Message.
func (ProfileListInput) Validate() error { return nil }

// ProfileListQuery lists profiles newest first.
type ProfileListQuery struct {
	repo  types.ProfileRepository
	guard authz.Guard
}

// NewProfileListQuery constructs the list query.
func NewProfileListQuery(repo types.ProfileRepository, guard authz.Guard) *ProfileListQuery {
	return &ProfileListQuery{repo: repo, guard: guard}
}

var _ gocommand.Querier[ProfileListInput, types.ProfilePage] = (*ProfileListQuery)(nil)

// Query returns a page of profiles.
func (q *ProfileListQuery) Query(ctx context.Context, input ProfileListInput) (types.ProfilePage, error) {
	if q.repo == nil {
		return types.ProfilePage{}, types.ErrMissingProfileRepository
	}
	if err := requirePrivileged(ctx, q.guard, input.Actor.ID); err != nil {
		return types.ProfilePage{}, err
	}
	return q.repo.ListProfiles(ctx, types.ProfileFilter{
		Roles:      input.Roles,
		Pagination: normalizePagination(input.Pagination),
	})
}
