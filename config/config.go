// Package config loads go-staff settings from STAFF_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-staff/pkg/types"
)

// Prefix is prepended to every variable name.
const Prefix = "STAFF_"

// Config is the full process configuration.
type Config struct {
	Debug       bool              `env:"DEBUG"`
	Store       string            `env:"STORE" envDefault:"sql"`
	HTTP        HTTPConfig        `envPrefix:"HTTP_"`
	Persistence PersistenceConfig `envPrefix:"DB_"`
	Site        SiteConfig        `envPrefix:"SITE_"`
	JWT         JWTConfig         `envPrefix:"JWT_"`
	SecureLink  SecureLinkConfig  `envPrefix:"LINK_"`
	AMQP        AMQPConfig        `envPrefix:"AMQP_"`
	Reconcile   ReconcileConfig   `envPrefix:"RECONCILE_"`
	Bootstrap   BootstrapConfig   `envPrefix:"BOOTSTRAP_"`

	// DisabledFeatures switches off feature keys such as staff.invite.
	DisabledFeatures []string `env:"DISABLED_FEATURES" envSeparator:","`
}

// HTTPConfig configures the listener.
type HTTPConfig struct {
	Addr            string        `env:"ADDR" envDefault:":8080"`
	CORSOrigins     string        `env:"CORS_ORIGINS" envDefault:"*"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// PersistenceConfig implements the go-persistence-bun configuration
// contract.
type PersistenceConfig struct {
	Debug          bool          `env:"DEBUG"`
	Driver         string        `env:"DRIVER" envDefault:"sqlite"`
	Server         string        `env:"DSN" envDefault:"file:staff.db?cache=shared&_fk=1"`
	PingTimeout    time.Duration `env:"PING_TIMEOUT" envDefault:"5s"`
	OtelIdentifier string        `env:"OTEL_IDENTIFIER" envDefault:"go-staff"`
}

func (c PersistenceConfig) GetDebug() bool                { return c.Debug }
func (c PersistenceConfig) GetDriver() string             { return c.Driver }
func (c PersistenceConfig) GetServer() string             { return c.Server }
func (c PersistenceConfig) GetPingTimeout() time.Duration { return c.PingTimeout }
func (c PersistenceConfig) GetOtelIdentifier() string     { return c.OtelIdentifier }

// SiteConfig describes the dashboard the invitation redirects back to.
type SiteConfig struct {
	URL          string `env:"URL" envDefault:"http://localhost:5173"`
	RedirectPath string `env:"REDIRECT_PATH" envDefault:"/auth/callback"`
}

// JWTConfig configures bearer verification.
type JWTConfig struct {
	SigningKey string        `env:"SIGNING_KEY"`
	Issuer     string        `env:"ISSUER"`
	Audience   string        `env:"AUDIENCE"`
	Leeway     time.Duration `env:"LEEWAY" envDefault:"30s"`
}

// SecureLinkConfig satisfies the securelink configurator contract used to
// sign set-password links.
type SecureLinkConfig struct {
	SigningKey  string        `env:"SIGNING_KEY"`
	Expiration  time.Duration `env:"EXPIRATION" envDefault:"72h"`
	BaseURL     string        `env:"BASE_URL"`
	QueryKey    string        `env:"QUERY_KEY" envDefault:"token"`
	InvitePath  string        `env:"INVITE_PATH" envDefault:"/auth/set-password"`
	AsQuery     bool          `env:"AS_QUERY" envDefault:"true"`
	InviteRoute string        `env:"INVITE_ROUTE" envDefault:"invite"`
}

func (c SecureLinkConfig) GetSigningKey() string        { return c.SigningKey }
func (c SecureLinkConfig) GetExpiration() time.Duration { return c.Expiration }
func (c SecureLinkConfig) GetBaseURL() string           { return c.BaseURL }
func (c SecureLinkConfig) GetQueryKey() string          { return c.QueryKey }
func (c SecureLinkConfig) GetAsQuery() bool             { return c.AsQuery }
func (c SecureLinkConfig) GetRoutes() map[string]string { return map[string]string{c.InviteRoute: c.InvitePath} }

// AMQPConfig enables the queue dispatcher and event forwarding when URL is
// set.
type AMQPConfig struct {
	URL           string `env:"URL"`
	Exchange      string `env:"EXCHANGE" envDefault:"staff"`
	InvitationKey string `env:"INVITATION_KEY" envDefault:"staff.invitation"`
	EventPrefix   string `env:"EVENT_PREFIX" envDefault:"staff."`
}

// Enabled reports whether a broker URL was configured.
func (c AMQPConfig) Enabled() bool {
	return strings.TrimSpace(c.URL) != ""
}

// ReconcileConfig tunes the reconciliation sweep.
type ReconcileConfig struct {
	Schedule   string        `env:"SCHEDULE" envDefault:"@every 1m"`
	OlderThan  time.Duration `env:"AGE" envDefault:"15m"`
	Limit      int           `env:"LIMIT" envDefault:"100"`
	MaxRetries int           `env:"MAX_RETRIES" envDefault:"5"`
}

// BootstrapConfig grants the admin role to an existing identity at startup,
// so a fresh deployment has someone able to invite.
type BootstrapConfig struct {
	AdminEmail string `env:"ADMIN_EMAIL"`
}

var (
	_ persistence.Config           = PersistenceConfig{}
	_ types.SecureLinkConfigurator = SecureLinkConfig{}
)

// Load parses the process environment.
func Load() (Config, error) {
	return LoadFrom(nil)
}

// LoadFrom parses vars when non-nil, the process environment otherwise.
func LoadFrom(vars map[string]string) (Config, error) {
	cfg := Config{}
	opts := env.Options{Prefix: Prefix}
	if vars != nil {
		opts.Environment = vars
	}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if strings.TrimSpace(cfg.SecureLink.BaseURL) == "" {
		cfg.SecureLink.BaseURL = cfg.Site.URL
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings that have no safe default.
func (c Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.JWT.SigningKey) == "" {
		errs = append(errs, errors.New("config: STAFF_JWT_SIGNING_KEY is required"))
	}
	if strings.TrimSpace(c.SecureLink.SigningKey) == "" {
		errs = append(errs, errors.New("config: STAFF_LINK_SIGNING_KEY is required"))
	}
	if u, err := url.Parse(c.Site.URL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("config: STAFF_SITE_URL must be an absolute URL, got %q", c.Site.URL))
	}
	switch c.Store {
	case "sql", "memory":
	default:
		errs = append(errs, fmt.Errorf("config: STAFF_STORE must be sql or memory, got %q", c.Store))
	}
	if c.Reconcile.OlderThan < 0 || c.Reconcile.Limit < 0 {
		errs = append(errs, errors.New("config: reconcile age and limit must not be negative"))
	}
	return errors.Join(errs...)
}
