package activity

import (
	"strings"

	"github.com/goliatone/go-staff/pkg/types"
	"github.com/google/uuid"
)

// ChannelStaff tags every record emitted by the staff admin commands.
const ChannelStaff = "staff"

// RecordOption mutates the ActivityRecord produced by BuildRecord.
type RecordOption func(*types.ActivityRecord)

// WithChannel overrides the channel field used for downstream filtering.
func WithChannel(channel string) RecordOption {
	return func(record *types.ActivityRecord) {
		record.Channel = strings.TrimSpace(channel)
	}
}

// WithRequestID stamps the request correlation id.
func WithRequestID(requestID string) RecordOption {
	return func(record *types.ActivityRecord) {
		record.RequestID = strings.TrimSpace(requestID)
	}
}

// WithSubject sets the identity the action was applied to.
func WithSubject(userID uuid.UUID) RecordOption {
	return func(record *types.ActivityRecord) {
		record.UserID = userID
	}
}

// BuildRecord constructs an ActivityRecord for an action taken by actor.
// Metadata is copied so later caller mutations do not leak into the log.
func BuildRecord(actor types.ActorRef, verb, objectType, objectID string, metadata map[string]any, opts ...RecordOption) (types.ActivityRecord, error) {
	if actor.ID == uuid.Nil {
		return types.ActivityRecord{}, types.ErrActorRequired
	}

	record := types.ActivityRecord{
		ActorID:    actor.ID,
		Verb:       strings.TrimSpace(verb),
		ObjectType: strings.TrimSpace(objectType),
		ObjectID:   strings.TrimSpace(objectID),
		Channel:    ChannelStaff,
		Data:       cloneMap(metadata),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(&record)
		}
	}

	return record, nil
}
