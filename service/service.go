package service

import (
	"context"

	featuregate "github.com/goliatone/go-featuregate/gate"
	"github.com/goliatone/go-masker"
	"github.com/goliatone/go-staff/authz"
	"github.com/goliatone/go-staff/command"
	"github.com/goliatone/go-staff/pkg/types"
	"github.com/goliatone/go-staff/query"
)

// Service is the entry point for go-staff. Every store and adapter is
// supplied by the host; nothing is resolved from package state.
type Service struct {
	cfg      Config
	guard    authz.Guard
	commands Commands
	queries  Queries
}

// Commands exposes the service command handlers.
type Commands struct {
	InviteUser           *command.InviteUserCommand
	SetRole              *command.SetRoleCommand
	SetSuspended         *command.SetSuspendedCommand
	DeleteUser           *command.DeleteUserCommand
	EnsureMyProfile      *command.EnsureMyProfileCommand
	ReconcileInvitations *command.ReconcileInvitationsCommand
}

// Queries exposes read-model helpers.
type Queries struct {
	Profile            *query.ProfileQuery
	MyProfile          *query.MyProfileQuery
	ProfileList        *query.ProfileListQuery
	Directory          *query.DirectoryQuery
	InvitationAttempts *query.InvitationAttemptsQuery
	ActivityFeed       *query.ActivityFeedQuery
}

// Config captures all dependencies. Optional collaborators (FeatureGate,
// Events, Hooks, Masker, Directory) may be nil.
type Config struct {
	Identities         types.IdentityRepository
	Profiles           types.ProfileRepository
	InvitationLog      types.InvitationLog
	Directory          types.DirectoryRepository
	ActivitySink       types.ActivitySink
	ActivityRepository types.ActivityRepository
	Dispatcher         types.InvitationDispatcher
	SecureLinks        types.SecureLinkManager
	FeatureGate        featuregate.FeatureGate
	Events             types.EventPublisher
	Links              command.InvitationLinkConfig
	Guard              authz.Guard
	Masker             *masker.Masker
	Hooks              types.Hooks
	Clock              types.Clock
	IDGenerator        types.IDGenerator
	Logger             types.Logger
}

// New constructs a Service from the supplied configuration.
func New(cfg Config) *Service {
	norm := normalizeConfig(cfg)
	if norm.ActivityRepository == nil {
		if sinkRepo, ok := norm.ActivitySink.(types.ActivityRepository); ok {
			norm.ActivityRepository = sinkRepo
		}
	}
	if norm.Directory == nil {
		if dir, ok := norm.Profiles.(types.DirectoryRepository); ok {
			norm.Directory = dir
		}
	}
	guard := norm.Guard
	if guard == nil {
		guard = authz.NewGuard(authz.Config{Profiles: norm.Profiles, Identities: norm.Identities, Logger: norm.Logger})
	}
	s := &Service{cfg: norm, guard: guard}
	s.commands = s.buildCommands()
	s.queries = s.buildQueries()
	return s
}

func normalizeConfig(cfg Config) Config {
	if cfg.Clock == nil {
		cfg.Clock = types.SystemClock{}
	}
	if cfg.IDGenerator == nil {
		cfg.IDGenerator = types.UUIDGenerator{}
	}
	if cfg.Logger == nil {
		cfg.Logger = types.NopLogger{}
	}
	return cfg
}

// Commands returns the command facade.
func (s *Service) Commands() Commands {
	return s.commands
}

// Queries returns the query facade.
func (s *Service) Queries() Queries {
	return s.queries
}

// Guard exposes the authorization guard so transports reuse the same
// profile-backed checks.
func (s *Service) Guard() authz.Guard {
	return s.guard
}

// Ready reports whether the required dependencies are wired in.
func (s *Service) Ready() bool {
	return s.HealthCheck(context.Background()) == nil
}

// HealthCheck surfaces the first missing required dependency.
func (s *Service) HealthCheck(_ context.Context) error {
	if s == nil {
		return types.ErrServiceNotReady
	}
	switch {
	case s.cfg.Identities == nil:
		return types.ErrMissingIdentityRepository
	case s.cfg.Profiles == nil:
		return types.ErrMissingProfileRepository
	case s.cfg.InvitationLog == nil:
		return types.ErrMissingInvitationLog
	case s.cfg.Dispatcher == nil:
		return types.ErrMissingDispatcher
	case s.cfg.SecureLinks == nil:
		return types.ErrMissingSecureLinkManager
	case s.cfg.ActivityRepository == nil:
		return types.ErrMissingActivityRepository
	}
	return nil
}

// ActivitySink returns the configured sink.
func (s *Service) ActivitySink() types.ActivitySink {
	if s == nil {
		return nil
	}
	return s.cfg.ActivitySink
}

func (s *Service) buildCommands() Commands {
	cfg := s.cfg
	return Commands{
		InviteUser: command.NewInviteUserCommand(command.InviteCommandConfig{
			Identities:  cfg.Identities,
			Profiles:    cfg.Profiles,
			Attempts:    cfg.InvitationLog,
			Dispatcher:  cfg.Dispatcher,
			SecureLinks: cfg.SecureLinks,
			Guard:       s.guard,
			FeatureGate: cfg.FeatureGate,
			Events:      cfg.Events,
			Links:       cfg.Links,
			Clock:       cfg.Clock,
			IDGen:       cfg.IDGenerator,
			Activity:    cfg.ActivitySink,
			Hooks:       cfg.Hooks,
			Logger:      cfg.Logger,
		}),
		SetRole: command.NewSetRoleCommand(command.SetRoleCommandConfig{
			Profiles: cfg.Profiles,
			Guard:    s.guard,
			Events:   cfg.Events,
			Clock:    cfg.Clock,
			IDGen:    cfg.IDGenerator,
			Activity: cfg.ActivitySink,
			Hooks:    cfg.Hooks,
			Logger:   cfg.Logger,
		}),
		SetSuspended: command.NewSetSuspendedCommand(command.SetSuspendedCommandConfig{
			Identities: cfg.Identities,
			Guard:      s.guard,
			Events:     cfg.Events,
			Clock:      cfg.Clock,
			IDGen:      cfg.IDGenerator,
			Activity:   cfg.ActivitySink,
			Hooks:      cfg.Hooks,
			Logger:     cfg.Logger,
		}),
		DeleteUser: command.NewDeleteUserCommand(command.DeleteUserCommandConfig{
			Identities: cfg.Identities,
			Profiles:   cfg.Profiles,
			Guard:      s.guard,
			Events:     cfg.Events,
			Clock:      cfg.Clock,
			IDGen:      cfg.IDGenerator,
			Activity:   cfg.ActivitySink,
			Hooks:      cfg.Hooks,
			Logger:     cfg.Logger,
		}),
		EnsureMyProfile: command.NewEnsureMyProfileCommand(command.EnsureMyProfileCommandConfig{
			Identities: cfg.Identities,
			Profiles:   cfg.Profiles,
			Events:     cfg.Events,
			Clock:      cfg.Clock,
			IDGen:      cfg.IDGenerator,
			Hooks:      cfg.Hooks,
			Logger:     cfg.Logger,
		}),
		ReconcileInvitations: command.NewReconcileInvitationsCommand(command.ReconcileCommandConfig{
			Identities:  cfg.Identities,
			Profiles:    cfg.Profiles,
			Attempts:    cfg.InvitationLog,
			Dispatcher:  cfg.Dispatcher,
			SecureLinks: cfg.SecureLinks,
			Links:       cfg.Links,
			Events:      cfg.Events,
			Clock:       cfg.Clock,
			IDGen:       cfg.IDGenerator,
			Activity:    cfg.ActivitySink,
			Hooks:       cfg.Hooks,
			Logger:      cfg.Logger,
		}),
	}
}

func (s *Service) buildQueries() Queries {
	return Queries{
		Profile:            query.NewProfileQuery(s.cfg.Profiles, s.guard),
		MyProfile:          query.NewMyProfileQuery(s.cfg.Profiles),
		ProfileList:        query.NewProfileListQuery(s.cfg.Profiles, s.guard),
		Directory:          query.NewDirectoryQuery(s.cfg.Directory, s.guard, s.cfg.Logger),
		InvitationAttempts: query.NewInvitationAttemptsQuery(s.cfg.InvitationLog, s.guard),
		ActivityFeed:       query.NewActivityFeedQuery(s.cfg.ActivityRepository, s.guard, s.cfg.Masker),
	}
}
