package command

import (
	"context"
	"time"

	"github.com/goliatone/go-staff/activity"
	"github.com/goliatone/go-staff/pkg/types"
	"github.com/google/uuid"
)

func safeClock(clock types.Clock) types.Clock {
	if clock != nil {
		return clock
	}
	return types.SystemClock{}
}

func safeLogger(logger types.Logger) types.Logger {
	if logger != nil {
		return logger
	}
	return types.NopLogger{}
}

func safeIDGen(gen types.IDGenerator) types.IDGenerator {
	if gen != nil {
		return gen
	}
	return types.UUIDGenerator{}
}

func now(clock types.Clock) time.Time {
	if clock == nil {
		return time.Now().UTC()
	}
	return clock.Now()
}

// recordActivity writes the audit entry and then fires the activity hook.
// Sink failures are logged and never fail the command.
func recordActivity(ctx context.Context, sink types.ActivitySink, hooks types.Hooks, logger types.Logger, actor types.ActorRef, verb, objectType string, subject uuid.UUID, data map[string]any, requestID string, at time.Time) {
	record, err := activity.BuildRecord(actor, verb, objectType, subject.String(), data,
		activity.WithSubject(subject),
		activity.WithRequestID(requestID),
	)
	if err != nil {
		logger.Error("activity record rejected", err, "verb", verb)
		return
	}
	record.OccurredAt = at
	if sink != nil {
		if err := sink.Log(ctx, record); err != nil {
			logger.Error("activity sink failed", err, "verb", verb, "request_id", requestID)
		}
	}
	if hooks.AfterActivity != nil {
		hooks.AfterActivity(ctx, record)
	}
}

func emitLifecycleHook(ctx context.Context, hooks types.Hooks, event types.LifecycleEvent) {
	if hooks.AfterLifecycle == nil {
		return
	}
	hooks.AfterLifecycle(ctx, event)
}

func emitProfileHook(ctx context.Context, hooks types.Hooks, event types.ProfileEvent) {
	if hooks.AfterProfileChange == nil {
		return
	}
	hooks.AfterProfileChange(ctx, event)
}

func emitInvitationHook(ctx context.Context, hooks types.Hooks, event types.InvitationEvent) {
	if hooks.AfterInvitation == nil {
		return
	}
	hooks.AfterInvitation(ctx, event)
}

func publish(ctx context.Context, publisher types.EventPublisher, idGen types.IDGenerator, event types.ChangeEvent) {
	if publisher == nil {
		return
	}
	if event.ID == uuid.Nil {
		event.ID = idGen.UUID()
	}
	publisher.Publish(ctx, event)
}

// rejectSelfAction enforces that privileged commands never target the caller.
func rejectSelfAction(actor types.ActorRef, target uuid.UUID, action string) error {
	if actor.ID != uuid.Nil && actor.ID == target {
		return types.NewSelfActionError(action)
	}
	return nil
}

func cloneMap(src map[string]any) map[string]any {
	if len(src) == 0 {
		return map[string]any{}
	}
	out := make(map[string]any, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
