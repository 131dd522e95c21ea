package activity

import (
	"strings"
	"time"

	"github.com/goliatone/go-staff/pkg/types"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// LogEntry is one staff_activity row. user_id is the staff member acted on,
// actor_id the caller, and request_id ties the row to the HTTP request that
// caused it.
type LogEntry struct {
	bun.BaseModel `bun:"table:staff_activity"`

	ID         uuid.UUID      `bun:"id,pk,type:uuid"`
	UserID     uuid.UUID      `bun:"user_id,type:uuid,nullzero"`
	ActorID    uuid.UUID      `bun:"actor_id,type:uuid,nullzero"`
	Verb       string         `bun:"verb,notnull"`
	ObjectType string         `bun:"object_type"`
	ObjectID   string         `bun:"object_id"`
	Channel    string         `bun:"channel"`
	IP         string         `bun:"ip"`
	RequestID  string         `bun:"request_id"`
	Data       map[string]any `bun:"data,type:jsonb"`
	CreatedAt  time.Time      `bun:"created_at"`
}

func newLogEntry(record types.ActivityRecord) *LogEntry {
	return &LogEntry{
		ID:         record.ID,
		UserID:     record.UserID,
		ActorID:    record.ActorID,
		Verb:       strings.TrimSpace(record.Verb),
		ObjectType: record.ObjectType,
		ObjectID:   record.ObjectID,
		Channel:    strings.TrimSpace(record.Channel),
		IP:         record.IP,
		RequestID:  strings.TrimSpace(record.RequestID),
		Data:       cloneMap(record.Data),
		CreatedAt:  record.OccurredAt,
	}
}

func (e *LogEntry) record() types.ActivityRecord {
	if e == nil {
		return types.ActivityRecord{}
	}
	return types.ActivityRecord{
		ID:         e.ID,
		UserID:     e.UserID,
		ActorID:    e.ActorID,
		Verb:       e.Verb,
		ObjectType: e.ObjectType,
		ObjectID:   e.ObjectID,
		Channel:    e.Channel,
		IP:         e.IP,
		RequestID:  e.RequestID,
		Data:       cloneMap(e.Data),
		OccurredAt: e.CreatedAt,
	}
}

func cloneMap(src map[string]any) map[string]any {
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
