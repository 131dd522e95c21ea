package profile

import (
	"context"
	"errors"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-staff/pkg/types"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// RepositoryConfig wires the Bun-backed profile repository.
type RepositoryConfig struct {
	DB         *bun.DB
	Repository repository.Repository[*Record]
	Clock      types.Clock
}

type profileStore interface {
	repository.Repository[*Record]
}

// Repository implements types.ProfileRepository using Bun.
type Repository struct {
	profileStore
	db    *bun.DB
	clock types.Clock
}

// NewRepository constructs the default profile repository.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if cfg.Repository == nil && cfg.DB == nil {
		return nil, errors.New("profile: db or repository required")
	}
	repo := cfg.Repository
	if repo == nil {
		repo = repository.NewRepository(cfg.DB, repository.ModelHandlers[*Record]{
			NewRecord: func() *Record { return &Record{} },
			GetID: func(rec *Record) uuid.UUID {
				if rec == nil {
					return uuid.Nil
				}
				return rec.ID
			},
			SetID: func(rec *Record, id uuid.UUID) {
				if rec != nil {
					rec.ID = id
				}
			},
		})
	}

	clock := cfg.Clock
	if clock == nil {
		clock = types.SystemClock{}
	}
	db := cfg.DB
	if db == nil {
		if withDB, ok := repo.(interface{ DB() *bun.DB }); ok {
			db = withDB.DB()
		}
	}

	return &Repository{
		profileStore: repo,
		db:           db,
		clock:        clock,
	}, nil
}

var (
	_ repository.Repository[*Record] = (*Repository)(nil)
	_ types.ProfileRepository        = (*Repository)(nil)
)

// GetProfile returns the profile for the identity, or nil when none exists.
func (r *Repository) GetProfile(ctx context.Context, id uuid.UUID) (*types.Profile, error) {
	if id == uuid.Nil {
		return nil, types.ErrUserIDRequired
	}
	rec, err := r.Get(ctx, selectID(id))
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return toDomain(rec), nil
}

// UpsertProfile inserts or updates the profile keyed by identity id.
func (r *Repository) UpsertProfile(ctx context.Context, profile types.Profile) (*types.Profile, error) {
	if profile.ID == uuid.Nil {
		return nil, types.ErrUserIDRequired
	}
	if profile.Role == "" {
		profile.Role = types.DefaultRole
	}
	if !profile.Role.Valid() {
		return nil, types.ErrInvalidRole
	}
	now := r.clock.Now()
	rec := fromDomain(profile)
	rec.UpdatedAt = now
	if rec.UpdatedBy == uuid.Nil {
		rec.UpdatedBy = profile.CreatedBy
	}

	existing, err := r.Get(ctx, selectID(profile.ID))
	switch {
	case err == nil:
		rec.CreatedAt = existing.CreatedAt
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now
		}
		if rec.CreatedBy == uuid.Nil {
			rec.CreatedBy = existing.CreatedBy
		}
		updated, err := r.Update(ctx, rec)
		if err != nil {
			return nil, err
		}
		return toDomain(updated), nil
	case repository.IsRecordNotFound(err):
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = now
		}
		if rec.CreatedBy == uuid.Nil {
			rec.CreatedBy = rec.UpdatedBy
		}
		created, err := r.Create(ctx, rec)
		if err != nil {
			return nil, err
		}
		return toDomain(created), nil
	default:
		return nil, err
	}
}

// UpdateRole changes role and updated_at in a single statement.
func (r *Repository) UpdateRole(ctx context.Context, id uuid.UUID, role types.Role, actor uuid.UUID) (*types.Profile, error) {
	if id == uuid.Nil {
		return nil, types.ErrUserIDRequired
	}
	if !role.Valid() {
		return nil, types.ErrInvalidRole
	}
	if r.db == nil {
		return nil, errors.New("profile: db required for role updates")
	}
	rec := &Record{
		Role:      string(role),
		UpdatedAt: r.clock.Now(),
		UpdatedBy: actor,
	}
	res, err := r.db.NewUpdate().Model(rec).
		Column("role", "updated_at", "updated_by").
		Where("id = ?", id.String()).
		Exec(ctx)
	if err != nil {
		return nil, repository.MapDatabaseError(err, repository.DetectDriver(r.db))
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return nil, types.ErrProfileNotFound
	}
	return r.GetProfile(ctx, id)
}

// ListProfiles returns profiles newest first.
func (r *Repository) ListProfiles(ctx context.Context, filter types.ProfileFilter) (types.ProfilePage, error) {
	pagination := normalizePagination(filter.Pagination)
	criteria := []repository.SelectCriteria{
		func(q *bun.SelectQuery) *bun.SelectQuery {
			q = q.OrderExpr("created_at DESC").
				Limit(pagination.Limit).
				Offset(pagination.Offset)
			if len(filter.Roles) > 0 {
				q = q.Where("role IN (?)", bun.In(roleStrings(filter.Roles)))
			}
			if len(filter.IDs) > 0 {
				q = q.Where("id IN (?)", bun.In(idStrings(filter.IDs)))
			}
			return q
		},
	}
	rows, total, err := r.List(ctx, criteria...)
	if err != nil {
		return types.ProfilePage{}, err
	}
	profiles := make([]types.Profile, 0, len(rows))
	for _, row := range rows {
		if profile := toDomain(row); profile != nil {
			profiles = append(profiles, *profile)
		}
	}
	return types.ProfilePage{
		Profiles:   profiles,
		Total:      total,
		NextOffset: pagination.Offset + pagination.Limit,
		HasMore:    pagination.Offset+pagination.Limit < total,
	}, nil
}

// DeleteProfile removes the profile row. Deleting a missing profile is a no-op.
func (r *Repository) DeleteProfile(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return types.ErrUserIDRequired
	}
	if r.db == nil {
		return errors.New("profile: db required for deletes")
	}
	_, err := r.db.NewDelete().
		Model((*Record)(nil)).
		Where("id = ?", id.String()).
		Exec(ctx)
	if err != nil {
		return repository.MapDatabaseError(err, repository.DetectDriver(r.db))
	}
	return nil
}

func selectID(id uuid.UUID) repository.SelectCriteria {
	return repository.SelectBy("id", "=", id.String())
}

func normalizePagination(p types.Pagination) types.Pagination {
	out := p
	if out.Limit <= 0 {
		out.Limit = defaultListLimit
	}
	if out.Limit > maxListLimit {
		out.Limit = maxListLimit
	}
	if out.Offset < 0 {
		out.Offset = 0
	}
	return out
}

func roleStrings(roles []types.Role) []string {
	out := make([]string, 0, len(roles))
	for _, role := range roles {
		out = append(out, string(role))
	}
	return out
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}

func fromDomain(profile types.Profile) *Record {
	return &Record{
		ID:        profile.ID,
		Role:      string(profile.Role),
		CreatedAt: profile.CreatedAt,
		UpdatedAt: profile.UpdatedAt,
		CreatedBy: profile.CreatedBy,
		UpdatedBy: profile.UpdatedBy,
	}
}

func toDomain(rec *Record) *types.Profile {
	if rec == nil {
		return nil
	}
	return &types.Profile{
		ID:        rec.ID,
		Role:      types.Role(rec.Role),
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
		CreatedBy: rec.CreatedBy,
		UpdatedBy: rec.UpdatedBy,
	}
}
