package command

import (
	"errors"

	"github.com/goliatone/go-staff/pkg/types"
)

var (
	// ErrActorRequired indicates an actor reference was not supplied.
	ErrActorRequired = types.ErrActorRequired
	// ErrUserIDRequired occurs when a command omits its target identity.
	ErrUserIDRequired = types.ErrUserIDRequired
	// ErrMissingGuard occurs when a privileged command has no authorization guard.
	ErrMissingGuard = errors.New("go-staff: missing authorization guard")
	// ErrInviteDisabled indicates the invite flow is switched off via feature gate.
	ErrInviteDisabled = types.NewForbiddenError("Staff invitations are disabled")
)

const (
	msgInviteFieldsRequired = "Email and role are required"
	msgIdentityCreateFailed = "Failed to create user"
	msgProfileWriteFailed   = "Failed to create profile"
	msgDispatchFailed       = "Failed to send invitation"
	msgDuplicateLookup      = "Failed to check for existing user"
)
