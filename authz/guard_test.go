package authz

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-staff/pkg/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type stubProfiles struct {
	profiles map[uuid.UUID]types.Profile
	err      error
}

func (s stubProfiles) GetProfile(_ context.Context, id uuid.UUID) (*types.Profile, error) {
	if s.err != nil {
		return nil, s.err
	}
	profile, ok := s.profiles[id]
	if !ok {
		return nil, nil
	}
	return &profile, nil
}

func TestGuardAuthorize(t *testing.T) {
	manager := uuid.New()
	admin := uuid.New()
	staff := uuid.New()
	store := stubProfiles{profiles: map[uuid.UUID]types.Profile{
		manager: {ID: manager, Role: types.RoleManager},
		admin:   {ID: admin, Role: types.RoleAdmin},
		staff:   {ID: staff, Role: types.RoleStaff},
	}}
	guard := NewGuard(Config{Profiles: store})
	ctx := context.Background()

	profile, err := guard.Authorize(ctx, manager, types.PrivilegedRoles())
	require.NoError(t, err)
	require.Equal(t, types.RoleManager, profile.Role)

	_, err = guard.Authorize(ctx, admin, types.PrivilegedRoles())
	require.NoError(t, err)

	_, err = guard.Authorize(ctx, staff, types.PrivilegedRoles())
	require.True(t, types.IsTextCode(err, types.TextCodeForbidden))

	_, err = guard.Authorize(ctx, uuid.New(), types.PrivilegedRoles())
	require.True(t, types.IsTextCode(err, types.TextCodeForbidden), "missing profile is forbidden")

	_, err = guard.Authorize(ctx, uuid.Nil, types.PrivilegedRoles())
	require.True(t, types.IsTextCode(err, types.TextCodeUnauthenticated))

	_, err = guard.Authorize(ctx, staff, types.AllRoles())
	require.NoError(t, err)
}

type stubIdentities struct {
	identities map[uuid.UUID]types.Identity
	err        error
}

func (s stubIdentities) GetByID(_ context.Context, id uuid.UUID) (*types.Identity, error) {
	if s.err != nil {
		return nil, s.err
	}
	identity, ok := s.identities[id]
	if !ok {
		return nil, types.ErrIdentityNotFound
	}
	return &identity, nil
}

func TestGuardRejectsInactiveIdentities(t *testing.T) {
	active := uuid.New()
	pending := uuid.New()
	suspended := uuid.New()
	archived := uuid.New()
	disabled := uuid.New()
	unknown := uuid.New()

	profiles := stubProfiles{profiles: map[uuid.UUID]types.Profile{}}
	for _, id := range []uuid.UUID{active, pending, suspended, archived, disabled, unknown} {
		profiles.profiles[id] = types.Profile{ID: id, Role: types.RoleAdmin}
	}
	identities := stubIdentities{identities: map[uuid.UUID]types.Identity{
		active:    {ID: active, Status: types.LifecycleStateActive},
		pending:   {ID: pending, Status: types.LifecycleStatePending},
		suspended: {ID: suspended, Status: types.LifecycleStateSuspended},
		archived:  {ID: archived, Status: types.LifecycleStateArchived},
		disabled:  {ID: disabled, Status: types.LifecycleStateDisabled},
	}}
	guard := NewGuard(Config{Profiles: profiles, Identities: identities})
	ctx := context.Background()

	_, err := RequirePrivileged(ctx, guard, active)
	require.NoError(t, err)
	_, err = RequirePrivileged(ctx, guard, pending)
	require.NoError(t, err)

	for name, id := range map[string]uuid.UUID{
		"suspended": suspended,
		"archived":  archived,
		"disabled":  disabled,
		"unknown":   unknown,
	} {
		_, err := RequirePrivileged(ctx, guard, id)
		require.True(t, types.IsTextCode(err, types.TextCodeUnauthenticated), name)
		require.Equal(t, 401, types.HTTPStatus(err), name)
	}
}

func TestGuardIdentityLookupFailureIsForbidden(t *testing.T) {
	actor := uuid.New()
	guard := NewGuard(Config{
		Profiles:   stubProfiles{profiles: map[uuid.UUID]types.Profile{actor: {ID: actor, Role: types.RoleAdmin}}},
		Identities: stubIdentities{err: errors.New("provider unavailable")},
	})

	_, err := RequirePrivileged(context.Background(), guard, actor)
	require.True(t, types.IsTextCode(err, types.TextCodeForbidden))
}

func TestGuardLookupFailureIsForbidden(t *testing.T) {
	guard := NewGuard(Config{Profiles: stubProfiles{err: errors.New("connection reset")}})

	_, err := RequirePrivileged(context.Background(), guard, uuid.New())
	require.True(t, types.IsTextCode(err, types.TextCodeForbidden))
	require.Equal(t, 403, types.HTTPStatus(err))
}
