// Package httpapi exposes the staff commands and queries over go-router.
package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/goliatone/go-router"
	"github.com/goliatone/go-staff/pkg/types"
	"github.com/goliatone/go-staff/service"
)

// Config wires the transport.
type Config struct {
	Service  *service.Service
	Verifier types.TokenVerifier
	IDGen    types.IDGenerator
	Logger   types.Logger
}

// API holds the route handlers.
type API struct {
	commands service.Commands
	queries  service.Queries
	health   func(context.Context) error
	verifier types.TokenVerifier
	idGen    types.IDGenerator
	logger   types.Logger
}

// New validates cfg and builds the handlers.
func New(cfg Config) (*API, error) {
	if cfg.Service == nil {
		return nil, errors.New("httpapi: service required")
	}
	if cfg.Verifier == nil {
		return nil, errors.New("httpapi: token verifier required")
	}
	idGen := cfg.IDGen
	if idGen == nil {
		idGen = types.UUIDGenerator{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = types.NopLogger{}
	}
	return &API{
		commands: cfg.Service.Commands(),
		queries:  cfg.Service.Queries(),
		health:   cfg.Service.HealthCheck,
		verifier: cfg.Verifier,
		idGen:    idGen,
		logger:   logger,
	}, nil
}

// Register mounts every route under /api. Each handler runs behind the
// request-id middleware and then the bearer check.
func Register[T any](r router.Router[T], api *API) {
	guarded := api.guarded

	r.Get("/healthz", api.healthz)

	group := r.Group("/api")
	group.Post("/invite-user", guarded(api.inviteUser))

	group.Get("/me/profile", guarded(api.myProfile))
	group.Get("/profiles", guarded(api.listProfiles))
	group.Get("/profiles/:id", guarded(api.getProfile))

	group.Get("/users", guarded(api.directory))
	group.Put("/users/:id/role", guarded(api.setRole))
	group.Post("/users/:id/suspend", guarded(api.suspend))
	group.Post("/users/:id/unsuspend", guarded(api.unsuspend))
	group.Delete("/users/:id", guarded(api.deleteUser))

	group.Get("/invitations", guarded(api.invitations))
	group.Get("/activity", guarded(api.activityFeed))
}

func (a *API) guarded(handler router.HandlerFunc) router.HandlerFunc {
	return a.RequestID()(a.Bearer()(handler))
}

func (a *API) healthz(c router.Context) error {
	if err := a.health(c.Context()); err != nil {
		a.logger.Error("health check failed", err)
		return c.JSON(http.StatusServiceUnavailable, map[string]any{"status": "unavailable"})
	}
	return c.JSON(http.StatusOK, map[string]any{"status": "ok"})
}
