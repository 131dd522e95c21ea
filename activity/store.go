package activity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-staff/pkg/types"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const (
	defaultFeedLimit = 50
	maxFeedLimit     = 200
)

// ErrVerbRequired is returned when a record without a verb is logged.
var ErrVerbRequired = errors.New("activity: verb required")

// StoreConfig wires the Bun-backed audit trail.
type StoreConfig struct {
	DB         *bun.DB
	Repository repository.Repository[*LogEntry]
	Clock      types.Clock
	IDGen      types.IDGenerator
}

// Store is the append-only staff audit trail. It is the ActivitySink the
// commands write to and the ActivityRepository the feed reads from.
type Store struct {
	entries repository.Repository[*LogEntry]
	clock   types.Clock
	idGen   types.IDGenerator
}

// NewStore builds a Store over cfg.Repository, or over a generic repository
// for LogEntry when only a DB is given.
func NewStore(cfg StoreConfig) (*Store, error) {
	entries := cfg.Repository
	if entries == nil {
		if cfg.DB == nil {
			return nil, errors.New("activity: db or repository required")
		}
		entries = repository.NewRepository(cfg.DB, repository.ModelHandlers[*LogEntry]{
			NewRecord: func() *LogEntry { return &LogEntry{} },
			GetID: func(entry *LogEntry) uuid.UUID {
				if entry == nil {
					return uuid.Nil
				}
				return entry.ID
			},
			SetID: func(entry *LogEntry, id uuid.UUID) {
				if entry != nil {
					entry.ID = id
				}
			},
		})
	}
	store := &Store{entries: entries, clock: cfg.Clock, idGen: cfg.IDGen}
	if store.clock == nil {
		store.clock = types.SystemClock{}
	}
	if store.idGen == nil {
		store.idGen = types.UUIDGenerator{}
	}
	return store, nil
}

var (
	_ types.ActivitySink       = (*Store)(nil)
	_ types.ActivityRepository = (*Store)(nil)
)

// Log appends record. Untagged records land on ChannelStaff.
func (s *Store) Log(ctx context.Context, record types.ActivityRecord) error {
	entry := newLogEntry(record)
	if entry.Verb == "" {
		return ErrVerbRequired
	}
	if entry.ID == uuid.Nil {
		entry.ID = s.idGen.UUID()
	}
	if entry.Channel == "" {
		entry.Channel = ChannelStaff
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.clock.Now()
	}
	if _, err := s.entries.Create(ctx, entry); err != nil {
		return fmt.Errorf("activity: log %s: %w", entry.Verb, err)
	}
	return nil
}

// ListActivity returns the feed newest first.
func (s *Store) ListActivity(ctx context.Context, filter types.ActivityFilter) (types.ActivityPage, error) {
	limit, offset := feedWindow(filter.Pagination)
	rows, total, err := s.entries.List(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return feedWhere(q, filter).
			OrderExpr("created_at DESC").
			Limit(limit).
			Offset(offset)
	})
	if err != nil {
		return types.ActivityPage{}, err
	}
	page := types.ActivityPage{
		Records:    make([]types.ActivityRecord, 0, len(rows)),
		Total:      total,
		NextOffset: offset + limit,
		HasMore:    offset+limit < total,
	}
	for _, row := range rows {
		page.Records = append(page.Records, row.record())
	}
	return page, nil
}

// feedWhere narrows the feed. Every populated field must match.
func feedWhere(q *bun.SelectQuery, filter types.ActivityFilter) *bun.SelectQuery {
	if filter.UserID != uuid.Nil {
		q = q.Where("user_id = ?", filter.UserID.String())
	}
	if filter.ActorID != uuid.Nil {
		q = q.Where("actor_id = ?", filter.ActorID.String())
	}
	if len(filter.Verbs) > 0 {
		q = q.Where("verb IN (?)", bun.In(filter.Verbs))
	}
	if prefix := strings.TrimSpace(filter.VerbPrefix); prefix != "" {
		// substr keeps "_" and "%" literal, unlike LIKE.
		q = q.Where("substr(verb, 1, ?) = ?", len(prefix), prefix)
	}
	if filter.Channel != "" {
		q = q.Where("channel = ?", filter.Channel)
	}
	if requestID := strings.TrimSpace(filter.RequestID); requestID != "" {
		q = q.Where("request_id = ?", requestID)
	}
	if filter.Since != nil && !filter.Since.IsZero() {
		q = q.Where("created_at >= ?", *filter.Since)
	}
	if filter.Until != nil && !filter.Until.IsZero() {
		q = q.Where("created_at <= ?", *filter.Until)
	}
	return q
}

func feedWindow(p types.Pagination) (limit, offset int) {
	limit, offset = p.Limit, p.Offset
	switch {
	case limit <= 0:
		limit = defaultFeedLimit
	case limit > maxFeedLimit:
		limit = maxFeedLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
