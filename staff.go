// Package staff exposes the go-staff runtime: role gated invitation and
// administration of dashboard staff accounts.
package staff

import "github.com/goliatone/go-staff/service"

// Re-export the service entry point so hosts can call staff.New without
// importing the service package.
type (
	Service  = service.Service
	Config   = service.Config
	Commands = service.Commands
	Queries  = service.Queries
)

// New constructs the go-staff runtime from the provided configuration.
func New(cfg Config) *Service {
	return service.New(cfg)
}
