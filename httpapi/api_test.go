package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-router"
	"github.com/goliatone/go-staff/command"
	"github.com/goliatone/go-staff/internal/memory"
	"github.com/goliatone/go-staff/pkg/types"
	"github.com/goliatone/go-staff/service"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type tokenTable map[string]types.ActorRef

func (t tokenTable) VerifyToken(_ context.Context, token string) (types.ActorRef, error) {
	if actor, ok := t[token]; ok {
		return actor, nil
	}
	return types.ActorRef{}, types.ErrInvalidToken
}

type switchDispatcher struct {
	mu   sync.Mutex
	err  error
	sent []types.Invitation
}

func (d *switchDispatcher) DispatchInvitation(_ context.Context, invitation types.Invitation) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, invitation)
	return nil
}

type apiHarness struct {
	app        *fiber.App
	identities *memory.IdentityRepository
	profiles   *memory.ProfileRepository
	dispatcher *switchDispatcher
	tokens     tokenTable
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()
	identities := memory.NewIdentityRepository(nil)
	profiles := memory.NewProfileRepository(nil)
	dispatcher := &switchDispatcher{}
	svc := service.New(service.Config{
		Identities:    identities,
		Profiles:      profiles,
		InvitationLog: memory.NewInvitationLog(nil),
		Directory:     memory.NewDirectory(identities, profiles),
		ActivitySink:  memory.NewActivityStore(),
		Dispatcher:    dispatcher,
		SecureLinks:   memory.NewSecureLinkManager("https://clinic.example.com", time.Hour),
		Links:         command.InvitationLinkConfig{SiteURL: "https://clinic.example.com"},
	})
	h := &apiHarness{
		identities: identities,
		profiles:   profiles,
		dispatcher: dispatcher,
		tokens:     tokenTable{},
	}
	api, err := New(Config{Service: svc, Verifier: h.tokens})
	require.NoError(t, err)

	srv := router.NewFiberAdapter()
	Register(srv.Router(), api)
	srv.Init()
	h.app = srv.WrappedRouter()
	return h
}

func (h *apiHarness) login(t *testing.T, email string, role types.Role) (string, uuid.UUID) {
	t.Helper()
	identity := h.identities.Seed(types.Identity{Email: email})
	if role != "" {
		_, err := h.profiles.UpsertProfile(context.Background(), types.Profile{ID: identity.ID, Role: role})
		require.NoError(t, err)
	}
	token := "token-" + identity.ID.String()
	h.tokens[token] = types.ActorRef{ID: identity.ID, Type: "user"}
	return token, identity.ID
}

func (h *apiHarness) do(t *testing.T, method, path, token string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader io.Reader
	switch v := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(v)
	default:
		raw, err := json.Marshal(v)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(HeaderAuthorization, "Bearer "+token)
	}
	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	payload := map[string]any{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &payload), string(raw))
	}
	return resp, payload
}

func TestInviteUser_Success(t *testing.T) {
	h := newAPIHarness(t)
	token, _ := h.login(t, "manager@clinic.example.com", types.RoleManager)

	resp, body := h.do(t, http.MethodPost, "/api/invite-user", token, inviteRequest{Email: "new.hire@clinic.example.com", Role: "staff"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["success"])
	require.Equal(t, "Invitation sent successfully", body["message"])
	require.NotEmpty(t, body["userId"])
	require.NotEmpty(t, resp.Header.Get(HeaderRequestID))
	require.Len(t, h.dispatcher.sent, 1)
	require.Equal(t, resp.Header.Get(HeaderRequestID), h.dispatcher.sent[0].RequestID)
}

func TestInviteUser_EchoesInboundRequestID(t *testing.T) {
	h := newAPIHarness(t)
	req := httptest.NewRequest(http.MethodPost, "/api/invite-user", bytes.NewBufferString(`{}`))
	req.Header.Set(HeaderRequestID, "req-from-client")
	resp, err := h.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "req-from-client", resp.Header.Get(HeaderRequestID))
}

func TestInviteUser_AuthenticationFailures(t *testing.T) {
	h := newAPIHarness(t)

	resp, body := h.do(t, http.MethodPost, "/api/invite-user", "", inviteRequest{Email: "a@example.com", Role: "staff"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "No authorization token", body["error"])

	resp, body = h.do(t, http.MethodPost, "/api/invite-user", "forged", inviteRequest{Email: "a@example.com", Role: "staff"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Equal(t, "Unauthorized", body["error"])
	require.NotEmpty(t, body["requestId"])
}

func TestInviteUser_ClientErrors(t *testing.T) {
	h := newAPIHarness(t)
	manager, _ := h.login(t, "manager@clinic.example.com", types.RoleManager)
	staff, _ := h.login(t, "assistant@clinic.example.com", types.RoleStaff)

	cases := []struct {
		name    string
		token   string
		body    any
		status  int
		message string
	}{
		{"malformed body", manager, "{not json", http.StatusBadRequest, "Invalid request body"},
		{"missing role", manager, inviteRequest{Email: "x@example.com"}, http.StatusBadRequest, "Email and role are required"},
		{"staff caller", staff, inviteRequest{Email: "x@example.com", Role: "staff"}, http.StatusForbidden, "Insufficient permissions"},
		{"duplicate", manager, inviteRequest{Email: "assistant@clinic.example.com", Role: "staff"}, http.StatusBadRequest, "User with this email already exists"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := h.do(t, http.MethodPost, "/api/invite-user", tc.token, tc.body)
			require.Equal(t, tc.status, resp.StatusCode)
			require.Equal(t, tc.message, body["error"])
		})
	}
	require.Empty(t, h.dispatcher.sent)
}

func TestInviteUser_DispatchFailureCarriesDetails(t *testing.T) {
	h := newAPIHarness(t)
	token, _ := h.login(t, "manager@clinic.example.com", types.RoleManager)
	h.dispatcher.err = errors.New("smtp relay refused")

	resp, body := h.do(t, http.MethodPost, "/api/invite-user", token, inviteRequest{Email: "late@clinic.example.com", Role: "staff"})
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	require.Equal(t, "Failed to send invitation", body["error"])
	require.Equal(t, "smtp relay refused", body["details"])
	require.Equal(t, resp.Header.Get(HeaderRequestID), body["requestId"])
}

func TestAdminRoutes(t *testing.T) {
	h := newAPIHarness(t)
	manager, managerID := h.login(t, "manager@clinic.example.com", types.RoleManager)
	_, staffID := h.login(t, "assistant@clinic.example.com", types.RoleStaff)

	resp, body := h.do(t, http.MethodGet, "/api/users?q=assistant", manager, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.EqualValues(t, 1, body["total"])

	resp, body = h.do(t, http.MethodPut, "/api/users/"+staffID.String()+"/role", manager, roleRequest{Role: "manager"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "manager", body["role"])

	resp, _ = h.do(t, http.MethodPut, "/api/users/"+managerID.String()+"/role", manager, roleRequest{Role: "staff"})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body = h.do(t, http.MethodPost, "/api/users/"+staffID.String()+"/suspend", manager, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["changed"])

	resp, body = h.do(t, http.MethodPost, "/api/users/"+staffID.String()+"/unsuspend", manager, suspendRequest{Reason: "back from leave"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, true, body["changed"])

	resp, _ = h.do(t, http.MethodDelete, "/api/users/"+staffID.String(), manager, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = h.do(t, http.MethodGet, "/api/profiles/"+staffID.String(), manager, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = h.do(t, http.MethodDelete, "/api/users/not-a-uuid", manager, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "Invalid user id", body["error"])

	resp, body = h.do(t, http.MethodGet, "/api/activity", manager, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.EqualValues(t, 4, body["total"])

	resp, body = h.do(t, http.MethodGet, "/api/activity?verbPrefix=staff.suspend", manager, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.EqualValues(t, 1, body["total"])
}

func TestAdminRoutes_StaffForbidden(t *testing.T) {
	h := newAPIHarness(t)
	staff, _ := h.login(t, "assistant@clinic.example.com", types.RoleStaff)

	for _, path := range []string{"/api/users", "/api/profiles", "/api/invitations", "/api/activity"} {
		resp, body := h.do(t, http.MethodGet, path, staff, nil)
		require.Equal(t, http.StatusForbidden, resp.StatusCode, path)
		require.Equal(t, "Insufficient permissions", body["error"], path)
	}
}

func TestMyProfile_BootstrapsDefaultRole(t *testing.T) {
	h := newAPIHarness(t)
	token, id := h.login(t, "newcomer@clinic.example.com", "")

	resp, body := h.do(t, http.MethodGet, "/api/me/profile", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, id.String(), body["id"])
	require.Equal(t, "staff", body["role"])
}

func TestInvitationsListing(t *testing.T) {
	h := newAPIHarness(t)
	token, _ := h.login(t, "manager@clinic.example.com", types.RoleManager)
	h.dispatcher.err = errors.New("smtp down")
	resp, _ := h.do(t, http.MethodPost, "/api/invite-user", token, inviteRequest{Email: "pending@clinic.example.com", Role: "staff"})
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	resp, body := h.do(t, http.MethodGet, "/api/invitations?status=failed", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	items := body["items"].([]any)
	require.Len(t, items, 1)
	item := items[0].(map[string]any)
	require.Equal(t, "profile_written", item["step"])
	require.Equal(t, "uninvited_account", item["partialState"])
	require.Equal(t, "smtp down", item["lastError"])
}

func TestHealthz(t *testing.T) {
	h := newAPIHarness(t)
	resp, body := h.do(t, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", body["status"])
}

func TestSuspendedManagerLosesAccessImmediately(t *testing.T) {
	h := newAPIHarness(t)
	admin, _ := h.login(t, "admin@clinic.example.com", types.RoleAdmin)
	manager, managerID := h.login(t, "manager@clinic.example.com", types.RoleManager)

	resp, _ := h.do(t, http.MethodPost, "/api/users/"+managerID.String()+"/suspend", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = h.do(t, http.MethodPost, "/api/invite-user", manager, inviteRequest{Email: "x@clinic.example.com", Role: "staff"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp, _ = h.do(t, http.MethodGet, "/api/users", manager, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	require.Empty(t, h.dispatcher.sent)

	resp, _ = h.do(t, http.MethodPost, "/api/users/"+managerID.String()+"/unsuspend", admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, _ = h.do(t, http.MethodGet, "/api/users", manager, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDeletedUserCanBeInvitedAgain(t *testing.T) {
	h := newAPIHarness(t)
	manager, _ := h.login(t, "manager@clinic.example.com", types.RoleManager)

	resp, body := h.do(t, http.MethodPost, "/api/invite-user", manager, inviteRequest{Email: "new.user@clinic.example.com", Role: "staff"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	userID, _ := body["userId"].(string)
	require.NotEmpty(t, userID)

	resp, _ = h.do(t, http.MethodDelete, "/api/users/"+userID, manager, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = h.do(t, http.MethodPost, "/api/invite-user", manager, inviteRequest{Email: "new.user@clinic.example.com", Role: "manager"})
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	require.Equal(t, userID, body["userId"], "the archived identity is reinstated")
	require.Len(t, h.dispatcher.sent, 2)

	resp, body = h.do(t, http.MethodGet, "/api/profiles/"+userID, manager, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "manager", body["role"])
}
