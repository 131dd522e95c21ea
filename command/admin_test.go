package command

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-staff/pkg/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestSetRoleCommand_PromotesStaff(t *testing.T) {
	f := newFixture()
	admin := f.withActor("admin@clinic.example.com", types.RoleAdmin)
	target := f.withActor("assistant@clinic.example.com", types.RoleStaff)

	cmd := NewSetRoleCommand(SetRoleCommandConfig{
		Profiles: f.profiles,
		Guard:    f.guard,
		Events:   f.events,
		Activity: f.sink,
		Clock:    fixedClock{t: testNow},
	})
	result := &SetRoleResult{}
	err := cmd.Execute(context.Background(), SetRoleInput{
		TargetID:  target.ID,
		Role:      "Manager",
		Actor:     admin,
		RequestID: "req-role",
		Result:    result,
	})
	require.NoError(t, err)
	require.Equal(t, types.RoleManager, result.Profile.Role)
	require.Equal(t, admin.ID, result.Profile.UpdatedBy)
	require.Equal(t, []types.ChangeKind{types.ChangeProfileRoleChanged}, f.events.kinds())
	require.Len(t, f.sink.records, 1)
	require.Equal(t, "staff", f.sink.records[0].Data["from"])
	require.Equal(t, "manager", f.sink.records[0].Data["to"])
}

func TestSetRoleCommand_RejectsSelfAndStaffCallers(t *testing.T) {
	f := newFixture()
	manager := f.withActor("manager@clinic.example.com", types.RoleManager)
	staff := f.withActor("assistant@clinic.example.com", types.RoleStaff)
	cmd := NewSetRoleCommand(SetRoleCommandConfig{Profiles: f.profiles, Guard: f.guard})

	err := cmd.Execute(context.Background(), SetRoleInput{TargetID: manager.ID, Role: "admin", Actor: manager})
	require.True(t, types.IsTextCode(err, types.TextCodeSelfActionForbidden))

	err = cmd.Execute(context.Background(), SetRoleInput{TargetID: manager.ID, Role: "staff", Actor: staff})
	require.True(t, types.IsTextCode(err, types.TextCodeForbidden))

	err = cmd.Execute(context.Background(), SetRoleInput{TargetID: staff.ID, Role: "owner", Actor: manager})
	require.True(t, types.IsTextCode(err, types.TextCodeInvalidInput))

	err = cmd.Execute(context.Background(), SetRoleInput{TargetID: uuid.New(), Role: "staff", Actor: manager})
	require.True(t, types.IsTextCode(err, types.TextCodeNotFound))

	require.NotContains(t, f.profiles.calls, "update_role")
}

func TestSetSuspendedCommand_SuspendsAndRestores(t *testing.T) {
	f := newFixture()
	manager := f.withActor("manager@clinic.example.com", types.RoleManager)
	target := f.withActor("assistant@clinic.example.com", types.RoleStaff)

	var lifecycle []types.LifecycleEvent
	cmd := NewSetSuspendedCommand(SetSuspendedCommandConfig{
		Identities: f.identities,
		Guard:      f.guard,
		Events:     f.events,
		Activity:   f.sink,
		Hooks: types.Hooks{AfterLifecycle: func(_ context.Context, event types.LifecycleEvent) {
			lifecycle = append(lifecycle, event)
		}},
	})

	result := &SetSuspendedResult{}
	err := cmd.Execute(context.Background(), SetSuspendedInput{
		TargetID:  target.ID,
		Suspended: true,
		Reason:    "left the practice",
		Actor:     manager,
		RequestID: "req-s",
		Result:    result,
	})
	require.NoError(t, err)
	require.True(t, result.Changed)
	require.True(t, result.Identity.Suspended())
	require.Len(t, f.identities.statusOpts, 1)
	require.Equal(t, "left the practice", f.identities.statusOpts[0].Reason)
	require.Equal(t, "req-s", f.identities.statusOpts[0].Metadata["request_id"])

	profile, err := f.profiles.GetProfile(context.Background(), target.ID)
	require.NoError(t, err)
	require.Equal(t, types.RoleStaff, profile.Role, "suspension leaves the profile untouched")

	err = cmd.Execute(context.Background(), SetSuspendedInput{TargetID: target.ID, Suspended: true, Actor: manager, Result: result})
	require.NoError(t, err)
	require.False(t, result.Changed, "repeating the current state is a no-op")

	err = cmd.Execute(context.Background(), SetSuspendedInput{TargetID: target.ID, Suspended: false, Actor: manager, Result: result})
	require.NoError(t, err)
	require.True(t, result.Changed)
	require.Equal(t, types.LifecycleStateActive, result.Identity.Status)

	require.Equal(t, []types.ChangeKind{types.ChangeIdentitySuspended, types.ChangeIdentityRestored}, f.events.kinds())
	require.Len(t, lifecycle, 2)
	require.Equal(t, "staff.suspend", f.sink.records[0].Verb)
	require.Equal(t, "staff.unsuspend", f.sink.records[1].Verb)
}

func TestSetSuspendedCommand_Guards(t *testing.T) {
	f := newFixture()
	manager := f.withActor("manager@clinic.example.com", types.RoleManager)
	staff := f.withActor("assistant@clinic.example.com", types.RoleStaff)
	cmd := NewSetSuspendedCommand(SetSuspendedCommandConfig{Identities: f.identities, Guard: f.guard})

	err := cmd.Execute(context.Background(), SetSuspendedInput{TargetID: manager.ID, Suspended: true, Actor: manager})
	require.True(t, types.IsTextCode(err, types.TextCodeSelfActionForbidden))
	require.Equal(t, "You cannot suspend your own account", types.ErrorMessage(err))

	err = cmd.Execute(context.Background(), SetSuspendedInput{TargetID: manager.ID, Suspended: true, Actor: staff})
	require.True(t, types.IsTextCode(err, types.TextCodeForbidden))

	err = cmd.Execute(context.Background(), SetSuspendedInput{TargetID: uuid.New(), Suspended: true, Actor: manager})
	require.True(t, types.IsTextCode(err, types.TextCodeNotFound))

	f.identities.updateErr = types.ErrTransitionNotAllowed
	err = cmd.Execute(context.Background(), SetSuspendedInput{TargetID: staff.ID, Suspended: true, Actor: manager})
	require.True(t, types.IsTextCode(err, types.TextCodeInvalidInput))
}

func TestDeleteUserCommand_RemovesProfileBeforeIdentity(t *testing.T) {
	f := newFixture()
	admin := f.withActor("admin@clinic.example.com", types.RoleAdmin)
	target := f.withActor("manager@clinic.example.com", types.RoleManager)

	var order []string
	cmd := NewDeleteUserCommand(DeleteUserCommandConfig{
		Identities: f.identities,
		Profiles:   f.profiles,
		Guard:      f.guard,
		Events:     f.events,
		Activity:   f.sink,
		Hooks: types.Hooks{
			AfterProfileChange: func(_ context.Context, event types.ProfileEvent) {
				order = append(order, "profile:"+event.Action)
			},
			AfterLifecycle: func(_ context.Context, event types.LifecycleEvent) {
				order = append(order, "identity:"+string(event.ToState))
			},
		},
	})
	err := cmd.Execute(context.Background(), DeleteUserInput{TargetID: target.ID, Actor: admin, RequestID: "req-d"})
	require.NoError(t, err)

	profile, err := f.profiles.GetProfile(context.Background(), target.ID)
	require.NoError(t, err)
	require.Nil(t, profile)
	require.Equal(t, []uuid.UUID{target.ID}, f.identities.removed)
	require.Equal(t, []string{"profile:deleted", "identity:archived"}, order)
	require.Equal(t, []types.ChangeKind{types.ChangeProfileDeleted, types.ChangeIdentityRemoved}, f.events.kinds())
	require.Equal(t, "manager", f.sink.records[0].Data["role"])

	err = cmd.Execute(context.Background(), DeleteUserInput{TargetID: target.ID, Actor: admin})
	require.True(t, types.IsTextCode(err, types.TextCodeNotFound), "deleted users are gone")
}

func TestDeleteUserCommand_IdentityFailureKeepsProfileRemoved(t *testing.T) {
	f := newFixture()
	manager := f.withActor("manager@clinic.example.com", types.RoleManager)
	target := f.withActor("admin2@clinic.example.com", types.RoleAdmin)
	f.identities.removeErr = errors.New("provider timeout")

	cmd := NewDeleteUserCommand(DeleteUserCommandConfig{Identities: f.identities, Profiles: f.profiles, Guard: f.guard})
	err := cmd.Execute(context.Background(), DeleteUserInput{TargetID: target.ID, Actor: manager})
	require.True(t, types.IsTextCode(err, types.TextCodeIdentityRemovalFailed))
	require.Equal(t, "provider timeout", types.ErrorDetails(err))

	profile, err := f.profiles.GetProfile(context.Background(), target.ID)
	require.NoError(t, err)
	require.Nil(t, profile, "the surviving identity holds no privileged profile")
}

func TestDeleteUserCommand_ProfileFailureStopsBeforeIdentity(t *testing.T) {
	f := newFixture()
	manager := f.withActor("manager@clinic.example.com", types.RoleManager)
	target := f.withActor("assistant@clinic.example.com", types.RoleStaff)
	f.profiles.deleteErr = errors.New("locked")

	cmd := NewDeleteUserCommand(DeleteUserCommandConfig{Identities: f.identities, Profiles: f.profiles, Guard: f.guard})
	err := cmd.Execute(context.Background(), DeleteUserInput{TargetID: target.ID, Actor: manager})
	require.True(t, types.IsTextCode(err, types.TextCodeProfileWriteFailed))
	require.Empty(t, f.identities.removed)
}

func TestDeleteUserCommand_SelfDeleteForbidden(t *testing.T) {
	f := newFixture()
	admin := f.withActor("admin@clinic.example.com", types.RoleAdmin)
	cmd := NewDeleteUserCommand(DeleteUserCommandConfig{Identities: f.identities, Profiles: f.profiles, Guard: f.guard})

	err := cmd.Execute(context.Background(), DeleteUserInput{TargetID: admin.ID, Actor: admin})
	require.True(t, types.IsTextCode(err, types.TextCodeSelfActionForbidden))
	require.Empty(t, f.profiles.calls)
}

func TestEnsureMyProfileCommand(t *testing.T) {
	f := newFixture()
	fresh := f.withActor("fresh@clinic.example.com", "")
	manager := f.withActor("manager@clinic.example.com", types.RoleManager)
	cmd := NewEnsureMyProfileCommand(EnsureMyProfileCommandConfig{
		Identities: f.identities,
		Profiles:   f.profiles,
		Events:     f.events,
	})

	result := &EnsureMyProfileResult{}
	require.NoError(t, cmd.Execute(context.Background(), EnsureMyProfileInput{Actor: fresh, Result: result}))
	require.True(t, result.Created)
	require.Equal(t, types.RoleStaff, result.Profile.Role)

	require.NoError(t, cmd.Execute(context.Background(), EnsureMyProfileInput{Actor: manager, Result: result}))
	require.False(t, result.Created)
	require.Equal(t, types.RoleManager, result.Profile.Role, "existing roles are never changed")

	suspended := f.identities.add(types.Identity{Email: "gone@clinic.example.com", Status: types.LifecycleStateSuspended})
	err := cmd.Execute(context.Background(), EnsureMyProfileInput{Actor: types.ActorRef{ID: suspended.ID}})
	require.True(t, types.IsTextCode(err, types.TextCodeUnauthenticated))

	suspendedManager := f.withActor("suspended.manager@clinic.example.com", types.RoleManager)
	_, err = f.identities.UpdateStatus(context.Background(), manager, suspendedManager.ID, types.LifecycleStateSuspended)
	require.NoError(t, err)
	err = cmd.Execute(context.Background(), EnsureMyProfileInput{Actor: suspendedManager})
	require.True(t, types.IsTextCode(err, types.TextCodeUnauthenticated), "an existing profile is not returned to a suspended caller")

	err = cmd.Execute(context.Background(), EnsureMyProfileInput{})
	require.True(t, types.IsTextCode(err, types.TextCodeUnauthenticated))

	require.Equal(t, []types.ChangeKind{types.ChangeProfileCreated}, f.events.kinds())
}

func TestInactiveCallersLosePrivileges(t *testing.T) {
	cases := []struct {
		name  string
		state types.LifecycleState
	}{
		{name: "suspended", state: types.LifecycleStateSuspended},
		{name: "archived", state: types.LifecycleStateArchived},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture()
			admin := f.withActor("admin@clinic.example.com", types.RoleAdmin)
			manager := f.withActor("manager@clinic.example.com", types.RoleManager)
			_, err := f.identities.UpdateStatus(context.Background(), admin, manager.ID, tc.state, types.WithForceTransition())
			require.NoError(t, err)

			err = f.inviteCommand(types.Hooks{}).Execute(context.Background(), InviteUserInput{
				Email: "new.user@clinic.example.com",
				Role:  "staff",
				Actor: manager,
			})
			require.True(t, types.IsTextCode(err, types.TextCodeUnauthenticated))
			require.Empty(t, f.identities.created)
			require.Empty(t, f.attempts.attempts)

			deleteCmd := NewDeleteUserCommand(DeleteUserCommandConfig{Identities: f.identities, Profiles: f.profiles, Guard: f.guard})
			err = deleteCmd.Execute(context.Background(), DeleteUserInput{TargetID: admin.ID, Actor: manager})
			require.True(t, types.IsTextCode(err, types.TextCodeUnauthenticated))
			require.Empty(t, f.identities.removed)

			profile, err := f.profiles.GetProfile(context.Background(), admin.ID)
			require.NoError(t, err)
			require.Equal(t, types.RoleAdmin, profile.Role)
		})
	}
}
