package invitation

import (
	"context"
	"errors"
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-staff/pkg/types"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RepositoryConfig wires the Bun-backed invitation step log.
type RepositoryConfig struct {
	DB         *bun.DB
	Repository repository.Repository[*Record]
	Clock      types.Clock
	IDGen      types.IDGenerator
}

// Repository implements types.InvitationLog using Bun.
type Repository struct {
	store repository.Repository[*Record]
	clock types.Clock
	idGen types.IDGenerator
	db    *bun.DB
}

// NewRepository constructs the default step log repository.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if cfg.Repository == nil && cfg.DB == nil {
		return nil, errors.New("invitation: db or repository required")
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
	idGen := cfg.IDGen
	if idGen == nil {
		idGen = types.UUIDGenerator{}
	}
	db := cfg.DB
	if db == nil {
		if withDB, ok := repo.(interface{ DB() *bun.DB }); ok {
			db = withDB.DB()
		}
	}
	return &Repository{store: repo, clock: clock, idGen: idGen, db: db}, nil
}

var _ types.InvitationLog = (*Repository)(nil)

// StartAttempt persists a new attempt in the started state before any
// external call is issued.
func (r *Repository) StartAttempt(ctx context.Context, attempt types.InvitationAttempt) (*types.InvitationAttempt, error) {
	if strings.TrimSpace(attempt.Email) == "" {
		return nil, errors.New("invitation: email required")
	}
	if attempt.ActorID == uuid.Nil {
		return nil, types.ErrActorRequired
	}
	rec := fromDomain(attempt)
	if rec.ID == uuid.Nil {
		rec.ID = r.idGen.UUID()
	}
	if rec.Step == "" {
		rec.Step = string(types.InvitationStepRequested)
	}
	if rec.Status == "" {
		rec.Status = string(types.InvitationStatusStarted)
	}
	now := r.clock.Now()
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now
	created, err := r.store.Create(ctx, rec)
	if err != nil {
		return nil, err
	}
	return toDomain(created), nil
}

// RecordProgress applies a step/status change to an attempt. Empty fields in
// progress leave the stored values untouched.
func (r *Repository) RecordProgress(ctx context.Context, id uuid.UUID, progress types.InvitationProgress) (*types.InvitationAttempt, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("invitation: db required for updates")
	}
	if id == uuid.Nil {
		return nil, errors.New("invitation: attempt id required")
	}
	rec := &Record{
		Step:       string(progress.Step),
		Status:     string(progress.Status),
		IdentityID: progress.IdentityID,
		LastError:  progress.Error,
		UpdatedAt:  r.clock.Now(),
	}
	columns := []string{"updated_at", "last_error"}
	if progress.Step != "" {
		columns = append(columns, "step")
	}
	if progress.Status != "" {
		columns = append(columns, "status")
	}
	if progress.IdentityID != uuid.Nil {
		columns = append(columns, "identity_id")
	}
	q := r.db.NewUpdate().Model(rec).
		Column(columns...).
		Where("id = ?", id.String())
	if progress.Retried {
		q = q.Set("retries = retries + 1")
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return nil, repository.MapDatabaseError(err, repository.DetectDriver(r.db))
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return nil, types.ErrInvitationAttemptNotFound
	}
	return r.GetAttempt(ctx, id)
}

// GetAttempt loads a single attempt.
func (r *Repository) GetAttempt(ctx context.Context, id uuid.UUID) (*types.InvitationAttempt, error) {
	rec, err := r.store.Get(ctx, repository.SelectBy("id", "=", id.String()))
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, types.ErrInvitationAttemptNotFound
		}
		return nil, err
	}
	return toDomain(rec), nil
}

// ListAttempts returns attempts ordered by last update, newest first.
func (r *Repository) ListAttempts(ctx context.Context, filter types.InvitationFilter) (types.InvitationPage, error) {
	pagination := normalizePagination(filter.Pagination)
	criteria := []repository.SelectCriteria{
		func(q *bun.SelectQuery) *bun.SelectQuery {
			q = q.OrderExpr("updated_at DESC").
				Limit(pagination.Limit).
				Offset(pagination.Offset)
			if len(filter.Statuses) > 0 {
				statuses := make([]string, 0, len(filter.Statuses))
				for _, status := range filter.Statuses {
					statuses = append(statuses, string(status))
				}
				q = q.Where("status IN (?)", bun.In(statuses))
			}
			if email := types.NormalizeEmail(filter.Email); email != "" {
				q = q.Where("email = ?", email)
			}
			if filter.UpdatedBefore != nil {
				q = q.Where("updated_at < ?", *filter.UpdatedBefore)
			}
			return q
		},
	}
	rows, total, err := r.store.List(ctx, criteria...)
	if err != nil {
		return types.InvitationPage{}, err
	}
	attempts := make([]types.InvitationAttempt, 0, len(rows))
	for _, row := range rows {
		if attempt := toDomain(row); attempt != nil {
			attempts = append(attempts, *attempt)
		}
	}
	return types.InvitationPage{
		Attempts:   attempts,
		Total:      total,
		NextOffset: pagination.Offset + pagination.Limit,
		HasMore:    pagination.Offset+pagination.Limit < total,
	}, nil
}

func normalizePagination(p types.Pagination) types.Pagination {
	out := p
	if out.Limit <= 0 {
		out.Limit = 50
	}
	if out.Limit > 200 {
		out.Limit = 200
	}
	if out.Offset < 0 {
		out.Offset = 0
	}
	return out
}

func fromDomain(attempt types.InvitationAttempt) *Record {
	return &Record{
		ID:         attempt.ID,
		Email:      types.NormalizeEmail(attempt.Email),
		Role:       string(attempt.Role),
		ActorID:    attempt.ActorID,
		IdentityID: attempt.IdentityID,
		Step:       string(attempt.Step),
		Status:     string(attempt.Status),
		LastError:  attempt.LastError,
		Retries:    attempt.Retries,
		RequestID:  attempt.RequestID,
		CreatedAt:  attempt.CreatedAt,
		UpdatedAt:  attempt.UpdatedAt,
	}
}

func toDomain(rec *Record) *types.InvitationAttempt {
	if rec == nil {
		return nil
	}
	return &types.InvitationAttempt{
		ID:         rec.ID,
		Email:      rec.Email,
		Role:       types.Role(rec.Role),
		ActorID:    rec.ActorID,
		IdentityID: rec.IdentityID,
		Step:       types.InvitationStep(rec.Step),
		Status:     types.InvitationStatus(rec.Status),
		LastError:  rec.LastError,
		Retries:    rec.Retries,
		RequestID:  rec.RequestID,
		CreatedAt:  rec.CreatedAt,
		UpdatedAt:  rec.UpdatedAt,
	}
}
