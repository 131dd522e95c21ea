package httpapi

import (
	"context"
	"strings"

	"github.com/goliatone/go-router"
	"github.com/goliatone/go-staff/pkg/authctx"
	"github.com/goliatone/go-staff/pkg/types"
)

const (
	// HeaderRequestID carries the per-request correlation id.
	HeaderRequestID = "X-Request-ID"
	// HeaderAuthorization carries the bearer token.
	HeaderAuthorization = "Authorization"

	maxRequestIDLength = 128
)

type requestIDKey struct{}

// WithRequestID stores id on ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFrom returns the id stored by the request-id middleware.
func RequestIDFrom(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// RequestID reuses a well-formed inbound X-Request-ID or generates one, and
// echoes it on the response.
func (a *API) RequestID() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			id := strings.TrimSpace(c.Header(HeaderRequestID))
			if id == "" || len(id) > maxRequestIDLength {
				id = a.idGen.UUID().String()
			}
			c.SetHeader(HeaderRequestID, id)
			c.SetContext(WithRequestID(c.Context(), id))
			return next(c)
		}
	}
}

// Bearer resolves the Authorization header into the acting identity. A
// missing header and a rejected token are both 401s with distinct messages.
func (a *API) Bearer() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			header := strings.TrimSpace(c.Header(HeaderAuthorization))
			if header == "" {
				return a.writeError(c, types.NewUnauthenticatedError("No authorization token"))
			}
			token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
			actor, err := a.verifier.VerifyToken(c.Context(), token)
			if err != nil {
				a.logger.Debug("bearer token rejected", "request_id", RequestIDFrom(c.Context()), "reason", err.Error())
				return a.writeError(c, types.NewUnauthenticatedError(""))
			}
			c.SetContext(authctx.WithActor(c.Context(), actor))
			return next(c)
		}
	}
}
