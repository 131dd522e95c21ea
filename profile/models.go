package profile

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Record models the profiles row. ID is the identity id.
type Record struct {
	bun.BaseModel `bun:"table:profiles"`

	ID        uuid.UUID `bun:"id,pk,type:uuid"`
	Role      string    `bun:"role,notnull"`
	CreatedAt time.Time `bun:"created_at"`
	UpdatedAt time.Time `bun:"updated_at"`
	CreatedBy uuid.UUID `bun:"created_by,type:uuid,nullzero"`
	UpdatedBy uuid.UUID `bun:"updated_by,type:uuid,nullzero"`
}
