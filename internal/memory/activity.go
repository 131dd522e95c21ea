package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-staff/pkg/types"
	"github.com/google/uuid"
)

// ActivityStore logs activity entries in memory and exposes the feed.
type ActivityStore struct {
	mu      sync.RWMutex
	records []types.ActivityRecord
}

// NewActivityStore provisions the store.
func NewActivityStore() *ActivityStore {
	return &ActivityStore{}
}

var (
	_ types.ActivitySink       = (*ActivityStore)(nil)
	_ types.ActivityRepository = (*ActivityStore)(nil)
)

func (s *ActivityStore) Log(_ context.Context, record types.ActivityRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	s.mu.Lock()
	s.records = append(s.records, record)
	s.mu.Unlock()
	return nil
}

func (s *ActivityStore) ListActivity(_ context.Context, filter types.ActivityFilter) (types.ActivityPage, error) {
	s.mu.RLock()
	rows := make([]types.ActivityRecord, 0, len(s.records))
	for _, record := range s.records {
		if filter.UserID != uuid.Nil && record.UserID != filter.UserID {
			continue
		}
		if filter.ActorID != uuid.Nil && record.ActorID != filter.ActorID {
			continue
		}
		if len(filter.Verbs) > 0 && !containsVerb(filter.Verbs, record.Verb) {
			continue
		}
		if filter.VerbPrefix != "" && !strings.HasPrefix(record.Verb, filter.VerbPrefix) {
			continue
		}
		if filter.RequestID != "" && record.RequestID != filter.RequestID {
			continue
		}
		if filter.Channel != "" && record.Channel != filter.Channel {
			continue
		}
		if filter.Since != nil && record.OccurredAt.Before(*filter.Since) {
			continue
		}
		if filter.Until != nil && record.OccurredAt.After(*filter.Until) {
			continue
		}
		rows = append(rows, record)
	}
	s.mu.RUnlock()
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].OccurredAt.After(rows[j].OccurredAt)
	})
	window, total, next, more := paginate(rows, filter.Pagination)
	return types.ActivityPage{Records: window, Total: total, NextOffset: next, HasMore: more}, nil
}

// Records returns a copy of every logged record in insertion order.
func (s *ActivityStore) Records() []types.ActivityRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.ActivityRecord(nil), s.records...)
}

func containsVerb(verbs []string, verb string) bool {
	for _, candidate := range verbs {
		if candidate == verb {
			return true
		}
	}
	return false
}
