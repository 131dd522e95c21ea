package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-staff/pkg/types"
	"github.com/google/uuid"
)

// InvitationLog keeps invitation attempts in memory.
type InvitationLog struct {
	mu       sync.RWMutex
	attempts map[uuid.UUID]types.InvitationAttempt
	clock    types.Clock
}

// NewInvitationLog provisions an empty step log.
func NewInvitationLog(clock types.Clock) *InvitationLog {
	if clock == nil {
		clock = types.SystemClock{}
	}
	return &InvitationLog{attempts: make(map[uuid.UUID]types.InvitationAttempt), clock: clock}
}

var _ types.InvitationLog = (*InvitationLog)(nil)

func (l *InvitationLog) StartAttempt(_ context.Context, attempt types.InvitationAttempt) (*types.InvitationAttempt, error) {
	if strings.TrimSpace(attempt.Email) == "" {
		return nil, errors.New("memory: email required")
	}
	if attempt.ActorID == uuid.Nil {
		return nil, types.ErrActorRequired
	}
	if attempt.ID == uuid.Nil {
		attempt.ID = uuid.New()
	}
	if attempt.Step == "" {
		attempt.Step = types.InvitationStepRequested
	}
	if attempt.Status == "" {
		attempt.Status = types.InvitationStatusStarted
	}
	attempt.Email = types.NormalizeEmail(attempt.Email)
	now := l.clock.Now()
	attempt.CreatedAt = now
	attempt.UpdatedAt = now
	l.mu.Lock()
	l.attempts[attempt.ID] = attempt
	l.mu.Unlock()
	return &attempt, nil
}

func (l *InvitationLog) RecordProgress(_ context.Context, id uuid.UUID, progress types.InvitationProgress) (*types.InvitationAttempt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	attempt, ok := l.attempts[id]
	if !ok {
		return nil, types.ErrInvitationAttemptNotFound
	}
	if progress.Step != "" {
		attempt.Step = progress.Step
	}
	if progress.Status != "" {
		attempt.Status = progress.Status
	}
	if progress.IdentityID != uuid.Nil {
		attempt.IdentityID = progress.IdentityID
	}
	if progress.Retried {
		attempt.Retries++
	}
	attempt.LastError = progress.Error
	attempt.UpdatedAt = l.clock.Now()
	l.attempts[id] = attempt
	return &attempt, nil
}

func (l *InvitationLog) GetAttempt(_ context.Context, id uuid.UUID) (*types.InvitationAttempt, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	attempt, ok := l.attempts[id]
	if !ok {
		return nil, types.ErrInvitationAttemptNotFound
	}
	return &attempt, nil
}

func (l *InvitationLog) ListAttempts(_ context.Context, filter types.InvitationFilter) (types.InvitationPage, error) {
	email := types.NormalizeEmail(filter.Email)
	l.mu.RLock()
	rows := make([]types.InvitationAttempt, 0, len(l.attempts))
	for _, attempt := range l.attempts {
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, attempt.Status) {
			continue
		}
		if email != "" && attempt.Email != email {
			continue
		}
		if filter.UpdatedBefore != nil && !attempt.UpdatedAt.Before(*filter.UpdatedBefore) {
			continue
		}
		rows = append(rows, attempt)
	}
	l.mu.RUnlock()
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].UpdatedAt.After(rows[j].UpdatedAt)
	})
	window, total, next, more := paginate(rows, filter.Pagination)
	return types.InvitationPage{Attempts: window, Total: total, NextOffset: next, HasMore: more}, nil
}

func containsStatus(statuses []types.InvitationStatus, status types.InvitationStatus) bool {
	for _, candidate := range statuses {
		if candidate == status {
			return true
		}
	}
	return false
}
