// Package securelink signs set-password invitation links with go-urlkit.
package securelink

import (
	"errors"
	"fmt"
	"time"

	"github.com/goliatone/go-staff/pkg/types"
	urlkit "github.com/goliatone/go-urlkit/securelink"
	"github.com/google/uuid"
)

// RouteInvite is the securelink route used for set-password invitation links.
const RouteInvite = "invite"

// ErrNotConfigured is returned by a nil or empty Manager.
var ErrNotConfigured = errors.New("securelink: manager not configured")

// ErrNotInvite reports a valid token that was not issued for an invitation.
var ErrNotInvite = errors.New("securelink: token is not an invitation")

// Manager adapts a go-urlkit manager to types.SecureLinkManager.
type Manager struct {
	inner urlkit.Manager
}

// NewManager builds the urlkit manager from cfg.
func NewManager(cfg types.SecureLinkConfigurator) (*Manager, error) {
	if cfg == nil {
		return nil, errors.New("securelink: configurator required")
	}
	inner, err := urlkit.NewManagerFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("securelink: %w", err)
	}
	return &Manager{inner: inner}, nil
}

// WrapManager wraps an existing go-urlkit manager.
func WrapManager(inner urlkit.Manager) *Manager {
	if inner == nil {
		return nil
	}
	return &Manager{inner: inner}
}

var _ types.SecureLinkManager = (*Manager)(nil)

func (m *Manager) Generate(route string, payloads ...types.SecureLinkPayload) (string, error) {
	if m == nil || m.inner == nil {
		return "", ErrNotConfigured
	}
	converted := make([]urlkit.Payload, 0, len(payloads))
	for _, payload := range payloads {
		converted = append(converted, urlkit.Payload(payload))
	}
	return m.inner.Generate(route, converted...)
}

func (m *Manager) Validate(token string) (map[string]any, error) {
	if m == nil || m.inner == nil {
		return nil, ErrNotConfigured
	}
	return m.inner.Validate(token)
}

func (m *Manager) GetExpiration() time.Duration {
	if m == nil || m.inner == nil {
		return 0
	}
	return m.inner.GetExpiration()
}

// InviteClaims is the decoded payload of an invitation link.
type InviteClaims struct {
	IdentityID uuid.UUID
	AttemptID  uuid.UUID
	Email      string
	RedirectTo string
}

// ValidateInvite checks token and decodes the invitation payload, for the
// set-password page that consumes the link.
func (m *Manager) ValidateInvite(token string) (InviteClaims, error) {
	payload, err := m.Validate(token)
	if err != nil {
		return InviteClaims{}, err
	}
	return decodeInvite(payload)
}

func decodeInvite(payload map[string]any) (InviteClaims, error) {
	if action, _ := payload["action"].(string); action != RouteInvite {
		return InviteClaims{}, ErrNotInvite
	}
	identityID, err := payloadUUID(payload, "user_id")
	if err != nil {
		return InviteClaims{}, err
	}
	attemptID, err := payloadUUID(payload, "attempt_id")
	if err != nil {
		return InviteClaims{}, err
	}
	email, _ := payload["email"].(string)
	redirect, _ := payload["redirect_to"].(string)
	return InviteClaims{
		IdentityID: identityID,
		AttemptID:  attemptID,
		Email:      types.NormalizeEmail(email),
		RedirectTo: redirect,
	}, nil
}

func payloadUUID(payload map[string]any, key string) (uuid.UUID, error) {
	raw, _ := payload[key].(string)
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("securelink: invalid %s in invitation", key)
	}
	return id, nil
}
