package invitation

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Record models the persisted invitation_attempts row.
type Record struct {
	bun.BaseModel `bun:"table:invitation_attempts"`

	ID         uuid.UUID `bun:"id,pk,type:uuid"`
	Email      string    `bun:"email,notnull"`
	Role       string    `bun:"role,notnull"`
	ActorID    uuid.UUID `bun:"actor_id,notnull,type:uuid"`
	IdentityID uuid.UUID `bun:"identity_id,type:uuid,nullzero"`
	Step       string    `bun:"step,notnull"`
	Status     string    `bun:"status,notnull"`
	LastError  string    `bun:"last_error,notnull"`
	Retries    int       `bun:"retries,notnull"`
	RequestID  string    `bun:"request_id,notnull"`
	CreatedAt  time.Time `bun:"created_at"`
	UpdatedAt  time.Time `bun:"updated_at"`
}
