package profile

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-staff/pkg/types"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// IdentityTable is the identity provider table joined by the directory.
const IdentityTable = "users"

type directoryRow struct {
	ID        uuid.UUID      `bun:"id"`
	Role      string         `bun:"role"`
	Email     sql.NullString `bun:"email"`
	Status    sql.NullString `bun:"status"`
	CreatedAt time.Time      `bun:"created_at"`
	UpdatedAt time.Time      `bun:"updated_at"`
}

// Directory implements types.DirectoryRepository by joining profiles with
// the identity table.
type Directory struct {
	db            *bun.DB
	identityTable string
}

// NewDirectory builds the directory reader. An empty identityTable defaults
// to IdentityTable.
func NewDirectory(db *bun.DB, identityTable string) (*Directory, error) {
	if db == nil {
		return nil, errors.New("profile: db required for directory")
	}
	if strings.TrimSpace(identityTable) == "" {
		identityTable = IdentityTable
	}
	return &Directory{db: db, identityTable: identityTable}, nil
}

var _ types.DirectoryRepository = (*Directory)(nil)

// ListDirectory returns profiles newest first with identity email and status.
// Profiles whose identity is missing are listed with an empty email.
func (d *Directory) ListDirectory(ctx context.Context, filter types.DirectoryFilter) (types.DirectoryPage, error) {
	pagination := normalizePagination(filter.Pagination)
	var rows []directoryRow

	q := d.db.NewSelect().
		Model(&rows).
		ModelTableExpr("profiles AS p").
		ColumnExpr("p.id, p.role, p.created_at, p.updated_at").
		ColumnExpr("u.email AS email, u.status AS status").
		Join("LEFT JOIN ? AS u ON u.id = p.id", bun.Ident(d.identityTable)).
		OrderExpr("p.created_at DESC").
		Limit(pagination.Limit).
		Offset(pagination.Offset)

	if keyword := strings.ToLower(strings.TrimSpace(filter.Keyword)); keyword != "" {
		pattern := "%" + keyword + "%"
		q = q.Where("(LOWER(u.email) LIKE ? OR LOWER(p.id) LIKE ? OR p.role LIKE ?)", pattern, pattern, pattern)
	}
	if len(filter.Roles) > 0 {
		q = q.Where("p.role IN (?)", bun.In(roleStrings(filter.Roles)))
	}

	total, err := q.ScanAndCount(ctx)
	if err != nil {
		return types.DirectoryPage{}, repository.MapDatabaseError(err, repository.DetectDriver(d.db))
	}

	entries := make([]types.DirectoryEntry, 0, len(rows))
	for _, row := range rows {
		status := types.LifecycleState(row.Status.String)
		entries = append(entries, types.DirectoryEntry{
			ID:        row.ID,
			Email:     row.Email.String,
			Role:      types.Role(row.Role),
			Status:    status,
			Suspended: status == types.LifecycleStateSuspended,
			CreatedAt: row.CreatedAt,
			UpdatedAt: row.UpdatedAt,
		})
	}
	return types.DirectoryPage{
		Entries:    entries,
		Total:      total,
		NextOffset: pagination.Offset + pagination.Limit,
		HasMore:    pagination.Offset+pagination.Limit < total,
	}, nil
}
