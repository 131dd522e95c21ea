package types

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ActorRef identifies the authenticated identity initiating a command.
type ActorRef struct {
	ID   uuid.UUID
	Type string
}

// Pagination supports query pagination across admin panels.
type Pagination struct {
	Limit  int
	Offset int
}

// LifecycleEvent is emitted after an identity changes lifecycle state
// (suspend, unsuspend, removal).
type LifecycleEvent struct {
	UserID     uuid.UUID
	ActorID    uuid.UUID
	FromState  LifecycleState
	ToState    LifecycleState
	Reason     string
	OccurredAt time.Time
	Metadata   map[string]any
}

// ProfileEvent signals that a profile mutation occurred.
type ProfileEvent struct {
	UserID     uuid.UUID
	ActorID    uuid.UUID
	Action     string
	OccurredAt time.Time
	Profile    Profile
}

// InvitationEvent is emitted once an invitation attempt settles, whether it
// completed or stopped at a partial-failure step.
type InvitationEvent struct {
	Attempt    InvitationAttempt
	ActorID    uuid.UUID
	OccurredAt time.Time
}

// Hooks groups optional callbacks invoked after key workflows complete.
type Hooks struct {
	AfterLifecycle     func(context.Context, LifecycleEvent)
	AfterProfileChange func(context.Context, ProfileEvent)
	AfterInvitation    func(context.Context, InvitationEvent)
	AfterActivity      func(context.Context, ActivityRecord)
}

// ActivityRecord describes sink inputs and is shared across sink and query layers.
type ActivityRecord struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	ActorID    uuid.UUID
	Verb       string
	ObjectType string
	ObjectID   string
	Channel    string
	IP         string
	RequestID  string
	Data       map[string]any
	OccurredAt time.Time
}

// ActivitySink is the minimal DI contract for emitting activity. Keep it stable
// and limited to Log so downstream modules can swap sinks without breaking
// changes.
type ActivitySink interface {
	Log(context.Context, ActivityRecord) error
}

// ActivityRepository exposes read-side access to activity logs.
type ActivityRepository interface {
	ListActivity(ctx context.Context, filter ActivityFilter) (ActivityPage, error)
}

// ActivityFilter narrows activity feed queries.
type ActivityFilter struct {
	Actor      ActorRef
	UserID     uuid.UUID
	ActorID    uuid.UUID
	Verbs      []string
	VerbPrefix string
	Channel    string
	RequestID  string
	Since      *time.Time
	Until      *time.Time
	Pagination Pagination
}

// Type implements gocommand.Message for query inputs.
func (ActivityFilter) Type() string {
	return "query.activity.feed"
}

// Validate implements gocommand.Message.
func (filter ActivityFilter) Validate() error {
	if filter.Actor.ID == uuid.Nil {
		return ErrActorRequired
	}
	return nil
}

// ActivityPage represents a paginated feed response.
type ActivityPage struct {
	Records    []ActivityRecord
	Total      int
	NextOffset int
	HasMore    bool
}

// Clock abstracts time retrieval for deterministic testing.
type Clock interface {
	Now() time.Time
}

// IDGenerator abstracts UUID creation.
type IDGenerator interface {
	UUID() uuid.UUID
}

// Logger captures basic logging hooks used by the service.
type Logger interface {
	Debug(msg string, fields ...any)
	Info(msg string, fields ...any)
	Error(msg string, err error, fields ...any)
}

// SystemClock defers to time.Now for production usage.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// UUIDGenerator produces UUIDv4 identifiers.
type UUIDGenerator struct{}

// UUID returns a randomly generated UUID.
func (UUIDGenerator) UUID() uuid.UUID { return uuid.New() }

// NopLogger discards all log lines.
type NopLogger struct{}

// Debug implements Logger.
func (NopLogger) Debug(string, ...any) {}

// Info implements Logger.
func (NopLogger) Info(string, ...any) {}

// Error implements Logger.
func (NopLogger) Error(string, error, ...any) {}

var (
	// ErrActorRequired indicates an actor reference was not supplied.
	ErrActorRequired = errors.New("go-staff: actor reference required")
	// ErrUserIDRequired indicates a user identifier was omitted.
	ErrUserIDRequired = errors.New("go-staff: user id required")
	// ErrServiceNotReady indicates the service has not been properly configured.
	ErrServiceNotReady = errors.New("go-staff: service not ready")
	// ErrMissingIdentityRepository occurs when no identity provider adapter was supplied.
	ErrMissingIdentityRepository = errors.New("go-staff: missing identity repository")
	// ErrMissingProfileRepository occurs when profile commands lack a storage backend.
	ErrMissingProfileRepository = errors.New("go-staff: missing profile repository")
	// ErrMissingInvitationLog occurs when the invite flow has no step log.
	ErrMissingInvitationLog = errors.New("go-staff: missing invitation log")
	// ErrMissingDispatcher occurs when no invitation dispatcher was supplied.
	ErrMissingDispatcher = errors.New("go-staff: missing invitation dispatcher")
	// ErrMissingSecureLinkManager occurs when invitation links cannot be signed.
	ErrMissingSecureLinkManager = errors.New("go-staff: missing securelink manager")
	// ErrMissingActivityRepository occurs when no activity repository was supplied.
	ErrMissingActivityRepository = errors.New("go-staff: missing activity repository")
)
