package authctx

import (
	"context"
	"strings"

	auth "github.com/goliatone/go-auth"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-staff/pkg/types"
	"github.com/google/uuid"
)

// WithActor stores the verified acting identity on ctx using the go-auth
// actor payload, so downstream code can read it with either package.
func WithActor(ctx context.Context, ref types.ActorRef) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return auth.WithActorContext(ctx, &auth.ActorContext{
		ActorID: ref.ID.String(),
		Subject: ref.ID.String(),
		Role:    ref.Type,
	})
}

// ActorFromRouterContext extracts the actor payload from router contexts using
// go-auth helpers.
func ActorFromRouterContext(ctx router.Context) (*auth.ActorContext, bool) {
	return auth.ActorFromRouterContext(ctx)
}

// ResolveActorContext returns the actor metadata stored by the bearer
// middleware, or rebuilds it from go-auth JWT claims.
func ResolveActorContext(ctx context.Context) (*auth.ActorContext, error) {
	if ctx == nil {
		return nil, types.NewUnauthenticatedError("")
	}

	if actor, ok := auth.ActorFromContext(ctx); ok && actor != nil {
		return actor, nil
	}

	if claims, ok := auth.GetClaims(ctx); ok && claims != nil {
		if actor := auth.ActorContextFromClaims(claims); actor != nil {
			return actor, nil
		}
	}

	return nil, types.NewUnauthenticatedError("")
}

// ResolveActor returns the acting identity for ctx. A missing or malformed
// actor is reported as an Unauthenticated error.
func ResolveActor(ctx context.Context) (types.ActorRef, error) {
	actorCtx, err := ResolveActorContext(ctx)
	if err != nil {
		return types.ActorRef{}, err
	}
	return ActorRefFromActorContext(actorCtx)
}

// ResolveActorFromRouter mirrors ResolveActor for router transports.
func ResolveActorFromRouter(ctx router.Context) (types.ActorRef, error) {
	if ctx == nil {
		return types.ActorRef{}, types.NewUnauthenticatedError("")
	}
	if actor, ok := auth.ActorFromRouterContext(ctx); ok && actor != nil {
		return ActorRefFromActorContext(actor)
	}
	return ResolveActor(ctx.Context())
}

// ActorRefFromActorContext converts the auth payload into an ActorRef.
func ActorRefFromActorContext(actor *auth.ActorContext) (types.ActorRef, error) {
	if actor == nil || strings.TrimSpace(actor.ActorID) == "" {
		return types.ActorRef{}, types.NewUnauthenticatedError("")
	}

	actorID, err := uuid.Parse(strings.TrimSpace(actor.ActorID))
	if err != nil || actorID == uuid.Nil {
		return types.ActorRef{}, errors.Wrap(errOrInvalid(err), errors.CategoryAuth, "Unauthorized").
			WithCode(errors.CodeUnauthorized).
			WithTextCode(types.TextCodeUnauthenticated)
	}

	return types.ActorRef{
		ID:   actorID,
		Type: actor.Role,
	}, nil
}

func errOrInvalid(err error) error {
	if err != nil {
		return err
	}
	return types.ErrInvalidToken
}
