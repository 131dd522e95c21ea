package types

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DirectoryEntry is a profile joined with the identity fields the staff
// directory shows.
type DirectoryEntry struct {
	ID        uuid.UUID      `json:"id"`
	Email     string         `json:"email"`
	Role      Role           `json:"role"`
	Status    LifecycleState `json:"status"`
	Suspended bool           `json:"suspended"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// DirectoryFilter narrows directory listings. Keyword matches email, id and
// role case-insensitively.
type DirectoryFilter struct {
	Keyword    string
	Roles      []Role
	Pagination Pagination
}

// DirectoryPage is a page of directory entries ordered newest first.
type DirectoryPage struct {
	Entries    []DirectoryEntry `json:"entries"`
	Total      int              `json:"total"`
	NextOffset int              `json:"next_offset"`
	HasMore    bool             `json:"has_more"`
}

// DirectoryRepository lists profiles together with identity email and status.
type DirectoryRepository interface {
	ListDirectory(ctx context.Context, filter DirectoryFilter) (DirectoryPage, error)
}
