package goauth

import (
	auth "github.com/goliatone/go-auth"
	"github.com/goliatone/go-staff/pkg/types"
)

func toIdentity(user *auth.User) *types.Identity {
	if user == nil {
		return nil
	}
	status := types.LifecycleState(user.Status)
	return &types.Identity{
		ID:        user.ID,
		Email:     user.Email,
		Status:    status,
		Confirmed: status != "" && status != types.LifecycleStatePending,
		Metadata:  copyMetadata(user.Metadata),
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
		Raw:       user,
	}
}

func fromIdentity(identity *types.Identity) *auth.User {
	status := identity.Status
	if status == "" {
		status = types.LifecycleStatePending
		if identity.Confirmed {
			status = types.LifecycleStateActive
		}
	}
	return &auth.User{
		ID:       identity.ID,
		Status:   auth.UserStatus(status),
		Email:    types.NormalizeEmail(identity.Email),
		Metadata: copyMetadata(identity.Metadata),
	}
}

func copyMetadata(origin map[string]any) map[string]any {
	if len(origin) == 0 {
		return nil
	}
	out := make(map[string]any, len(origin))
	for k, v := range origin {
		out[k] = v
	}
	return out
}
