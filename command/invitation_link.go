package command

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-staff/pkg/types"
	"github.com/google/uuid"
)

const (
	// SecureLinkActionInvite tags set-password links issued to invitees.
	SecureLinkActionInvite = "invite"
	// SecureLinkRouteInvite is the default route name for invitation links.
	SecureLinkRouteInvite = "invite"
	// DefaultRedirectPath is appended to the site URL to build the redirect.
	DefaultRedirectPath = "/auth/callback"

	defaultInviteTTL = 72 * time.Hour
)

// RedirectURL joins the site base URL with the callback path.
func RedirectURL(siteURL, path string) string {
	if strings.TrimSpace(path) == "" {
		path = DefaultRedirectPath
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return strings.TrimRight(strings.TrimSpace(siteURL), "/") + path
}

func buildInvitationPayload(attempt *types.InvitationAttempt, identityID string, redirectTo string, issuedAt, expiresAt time.Time) types.SecureLinkPayload {
	payload := types.SecureLinkPayload{
		"action":      SecureLinkActionInvite,
		"user_id":     identityID,
		"email":       attempt.Email,
		"attempt_id":  attempt.ID.String(),
		"redirect_to": redirectTo,
	}
	if !issuedAt.IsZero() {
		payload["issued_at"] = issuedAt.Format(time.RFC3339Nano)
	}
	if !expiresAt.IsZero() {
		payload["expires_at"] = expiresAt.Format(time.RFC3339Nano)
	}
	return payload
}

// InvitationLinkConfig configures how invitation links are built.
type InvitationLinkConfig struct {
	SiteURL      string
	RedirectPath string
	Route        string
}

// invitationIssuer signs set-password links and hands them to the dispatcher.
// The invite command and the reconciliation sweep share it.
type invitationIssuer struct {
	manager      types.SecureLinkManager
	dispatcher   types.InvitationDispatcher
	clock        types.Clock
	siteURL      string
	redirectPath string
	route        string
}

func newInvitationIssuer(manager types.SecureLinkManager, dispatcher types.InvitationDispatcher, clock types.Clock, cfg InvitationLinkConfig) invitationIssuer {
	route := strings.TrimSpace(cfg.Route)
	if route == "" {
		route = SecureLinkRouteInvite
	}
	return invitationIssuer{
		manager:      manager,
		dispatcher:   dispatcher,
		clock:        safeClock(clock),
		siteURL:      cfg.SiteURL,
		redirectPath: cfg.RedirectPath,
		route:        route,
	}
}

func (i invitationIssuer) ready() error {
	if i.manager == nil {
		return types.ErrMissingSecureLinkManager
	}
	if i.dispatcher == nil {
		return types.ErrMissingDispatcher
	}
	return nil
}

func (i invitationIssuer) issue(ctx context.Context, attempt *types.InvitationAttempt, invitedBy uuid.UUID, requestID string) (types.Invitation, error) {
	issuedAt := now(i.clock)
	ttl := i.manager.GetExpiration()
	if ttl <= 0 {
		ttl = defaultInviteTTL
	}
	expiresAt := issuedAt.Add(ttl)
	redirect := RedirectURL(i.siteURL, i.redirectPath)

	link, err := i.manager.Generate(i.route, buildInvitationPayload(attempt, attempt.IdentityID.String(), redirect, issuedAt, expiresAt))
	if err != nil {
		return types.Invitation{}, err
	}
	invitation := types.Invitation{
		AttemptID:  attempt.ID,
		IdentityID: attempt.IdentityID,
		Email:      attempt.Email,
		Role:       attempt.Role,
		Link:       link,
		RedirectTo: redirect,
		InvitedBy:  invitedBy,
		ExpiresAt:  expiresAt,
		RequestID:  requestID,
	}
	if err := i.dispatcher.DispatchInvitation(ctx, invitation); err != nil {
		return types.Invitation{}, err
	}
	return invitation, nil
}
