package types

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Profile attaches a practice role to an identity. ID is the identity id.
type Profile struct {
	ID        uuid.UUID `json:"id"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	CreatedBy uuid.UUID `json:"created_by"`
	UpdatedBy uuid.UUID `json:"updated_by"`
}

// ProfileFilter narrows profile listings.
type ProfileFilter struct {
	Roles      []Role
	IDs        []uuid.UUID
	Pagination Pagination
}

// ProfilePage is a page of profiles ordered newest first.
type ProfilePage struct {
	Profiles   []Profile
	Total      int
	NextOffset int
	HasMore    bool
}

// ProfileRepository persists and retrieves profile records. GetProfile
// returns (nil, nil) when no profile exists.
type ProfileRepository interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*Profile, error)
	UpsertProfile(ctx context.Context, profile Profile) (*Profile, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role Role, actor uuid.UUID) (*Profile, error)
	ListProfiles(ctx context.Context, filter ProfileFilter) (ProfilePage, error)
	DeleteProfile(ctx context.Context, id uuid.UUID) error
}

var (
	// ErrInvalidRole is returned when a role is outside the closed set.
	ErrInvalidRole = errors.New("go-staff: invalid role")
	// ErrProfileNotFound is returned when a mutation targets a missing profile.
	ErrProfileNotFound = errors.New("go-staff: profile not found")
)
