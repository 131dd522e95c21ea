package query

import (
	"context"
	"testing"

	"github.com/goliatone/go-staff/authz"
	"github.com/goliatone/go-staff/pkg/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type memoryProfiles struct {
	profiles   map[uuid.UUID]*types.Profile
	lastFilter types.ProfileFilter
}

func newMemoryProfiles() *memoryProfiles {
	return &memoryProfiles{profiles: map[uuid.UUID]*types.Profile{}}
}

func (m *memoryProfiles) put(role types.Role) uuid.UUID {
	id := uuid.New()
	m.profiles[id] = &types.Profile{ID: id, Role: role}
	return id
}

func (m *memoryProfiles) GetProfile(_ context.Context, id uuid.UUID) (*types.Profile, error) {
	if p, ok := m.profiles[id]; ok {
		clone := *p
		return &clone, nil
	}
	return nil, nil
}

func (m *memoryProfiles) UpsertProfile(_ context.Context, p types.Profile) (*types.Profile, error) {
	m.profiles[p.ID] = &p
	return &p, nil
}

func (m *memoryProfiles) UpdateRole(context.Context, uuid.UUID, types.Role, uuid.UUID) (*types.Profile, error) {
	return nil, types.ErrProfileNotFound
}

func (m *memoryProfiles) ListProfiles(_ context.Context, filter types.ProfileFilter) (types.ProfilePage, error) {
	m.lastFilter = filter
	page := types.ProfilePage{}
	for _, p := range m.profiles {
		page.Profiles = append(page.Profiles, *p)
	}
	page.Total = len(page.Profiles)
	return page, nil
}

func (m *memoryProfiles) DeleteProfile(context.Context, uuid.UUID) error { return nil }

type memoryDirectory struct {
	lastFilter types.DirectoryFilter
}

func (d *memoryDirectory) ListDirectory(_ context.Context, filter types.DirectoryFilter) (types.DirectoryPage, error) {
	d.lastFilter = filter
	return types.DirectoryPage{Entries: []types.DirectoryEntry{{Email: "a@clinic.example.com"}}, Total: 1}, nil
}

type memoryActivity struct {
	records []types.ActivityRecord
}

func (m *memoryActivity) ListActivity(context.Context, types.ActivityFilter) (types.ActivityPage, error) {
	return types.ActivityPage{Records: m.records, Total: len(m.records)}, nil
}

func TestProfileQuery_PrivilegedOnly(t *testing.T) {
	profiles := newMemoryProfiles()
	manager := profiles.put(types.RoleManager)
	staff := profiles.put(types.RoleStaff)
	guard := authz.NewGuard(authz.Config{Profiles: profiles})
	q := NewProfileQuery(profiles, guard)

	profile, err := q.Query(context.Background(), ProfileQueryInput{UserID: staff, Actor: types.ActorRef{ID: manager}})
	require.NoError(t, err)
	require.Equal(t, types.RoleStaff, profile.Role)

	_, err = q.Query(context.Background(), ProfileQueryInput{UserID: manager, Actor: types.ActorRef{ID: staff}})
	require.True(t, types.IsTextCode(err, types.TextCodeForbidden))

	_, err = q.Query(context.Background(), ProfileQueryInput{UserID: uuid.New(), Actor: types.ActorRef{ID: manager}})
	require.True(t, types.IsTextCode(err, types.TextCodeNotFound))
}

func TestMyProfileQuery_AnyAuthenticatedCaller(t *testing.T) {
	profiles := newMemoryProfiles()
	staff := profiles.put(types.RoleStaff)
	q := NewMyProfileQuery(profiles)

	profile, err := q.Query(context.Background(), MyProfileInput{Actor: types.ActorRef{ID: staff}})
	require.NoError(t, err)
	require.Equal(t, staff, profile.ID)

	profile, err = q.Query(context.Background(), MyProfileInput{Actor: types.ActorRef{ID: uuid.New()}})
	require.NoError(t, err)
	require.Nil(t, profile)

	_, err = q.Query(context.Background(), MyProfileInput{})
	require.True(t, types.IsTextCode(err, types.TextCodeUnauthenticated))
}

func TestProfileListQuery_NormalizesPagination(t *testing.T) {
	profiles := newMemoryProfiles()
	admin := profiles.put(types.RoleAdmin)
	q := NewProfileListQuery(profiles, authz.NewGuard(authz.Config{Profiles: profiles}))

	page, err := q.Query(context.Background(), ProfileListInput{
		Actor:      types.ActorRef{ID: admin},
		Pagination: types.Pagination{Limit: 5000, Offset: -3},
	})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	require.Equal(t, maxListLimit, profiles.lastFilter.Pagination.Limit)
	require.Zero(t, profiles.lastFilter.Pagination.Offset)
}

func TestDirectoryQuery(t *testing.T) {
	profiles := newMemoryProfiles()
	manager := profiles.put(types.RoleManager)
	staff := profiles.put(types.RoleStaff)
	dir := &memoryDirectory{}
	q := NewDirectoryQuery(dir, authz.NewGuard(authz.Config{Profiles: profiles}), nil)

	page, err := q.Query(context.Background(), DirectoryInput{Actor: types.ActorRef{ID: manager}, Keyword: "a@"})
	require.NoError(t, err)
	require.Len(t, page.Entries, 1)
	require.Equal(t, "a@", dir.lastFilter.Keyword)
	require.Equal(t, defaultListLimit, dir.lastFilter.Pagination.Limit)

	_, err = q.Query(context.Background(), DirectoryInput{Actor: types.ActorRef{ID: staff}})
	require.True(t, types.IsTextCode(err, types.TextCodeForbidden))

	_, err = NewDirectoryQuery(nil, nil, nil).Query(context.Background(), DirectoryInput{})
	require.ErrorIs(t, err, ErrMissingDirectoryRepository)
}

func TestActivityFeedQuery_SanitizesLinks(t *testing.T) {
	profiles := newMemoryProfiles()
	admin := profiles.put(types.RoleAdmin)
	repo := &memoryActivity{records: []types.ActivityRecord{{
		Verb: "staff.invite",
		Data: map[string]any{"email": "new@clinic.example.com", "link": "https://clinic.example.com/invite?token=abcdefgh"},
	}}}
	q := NewActivityFeedQuery(repo, authz.NewGuard(authz.Config{Profiles: profiles}), nil)

	page, err := q.Query(context.Background(), types.ActivityFilter{Actor: types.ActorRef{ID: admin}})
	require.NoError(t, err)
	require.Len(t, page.Records, 1)
	require.Equal(t, "new@clinic.example.com", page.Records[0].Data["email"])
	require.NotEqual(t, "https://clinic.example.com/invite?token=abcdefgh", page.Records[0].Data["link"])

	_, err = q.Query(context.Background(), types.ActivityFilter{})
	require.True(t, types.IsTextCode(err, types.TextCodeUnauthenticated))
}
