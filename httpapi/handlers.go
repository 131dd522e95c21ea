package httpapi

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-router"
	"github.com/goliatone/go-staff/command"
	"github.com/goliatone/go-staff/pkg/authctx"
	"github.com/goliatone/go-staff/pkg/types"
	"github.com/goliatone/go-staff/query"
	"github.com/google/uuid"
)

type inviteRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

type inviteResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	UserID    string `json:"userId"`
	AttemptID string `json:"attemptId"`
}

type roleRequest struct {
	Role string `json:"role"`
}

type suspendRequest struct {
	Reason string `json:"reason"`
}

type identityView struct {
	ID        uuid.UUID            `json:"id"`
	Email     string               `json:"email"`
	Status    types.LifecycleState `json:"status"`
	Suspended bool                 `json:"suspended"`
}

type attemptView struct {
	ID           uuid.UUID              `json:"id"`
	Email        string                 `json:"email"`
	Role         types.Role             `json:"role"`
	ActorID      uuid.UUID              `json:"actorId"`
	IdentityID   *uuid.UUID             `json:"identityId,omitempty"`
	Step         types.InvitationStep   `json:"step"`
	Status       types.InvitationStatus `json:"status"`
	PartialState string                 `json:"partialState,omitempty"`
	LastError    string                 `json:"lastError,omitempty"`
	Retries      int                    `json:"retries"`
	RequestID    string                 `json:"requestId,omitempty"`
	CreatedAt    time.Time              `json:"createdAt"`
	UpdatedAt    time.Time              `json:"updatedAt"`
}

type activityView struct {
	ID         uuid.UUID      `json:"id"`
	UserID     uuid.UUID      `json:"userId"`
	ActorID    uuid.UUID      `json:"actorId"`
	Verb       string         `json:"verb"`
	ObjectType string         `json:"objectType"`
	ObjectID   string         `json:"objectId"`
	Channel    string         `json:"channel,omitempty"`
	RequestID  string         `json:"requestId,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
	OccurredAt time.Time      `json:"occurredAt"`
}

type pageView[T any] struct {
	Items      []T  `json:"items"`
	Total      int  `json:"total"`
	NextOffset int  `json:"nextOffset"`
	HasMore    bool `json:"hasMore"`
}

func (a *API) inviteUser(c router.Context) error {
	actor, err := authctx.ResolveActor(c.Context())
	if err != nil {
		return a.writeError(c, err)
	}
	var req inviteRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return a.writeError(c, types.NewInvalidInputError("Invalid request body"))
	}
	result := &command.InviteUserResult{}
	err = a.commands.InviteUser.Execute(c.Context(), command.InviteUserInput{
		Email:     req.Email,
		Role:      req.Role,
		Actor:     actor,
		RequestID: RequestIDFrom(c.Context()),
		Result:    result,
	})
	if err != nil {
		return a.writeError(c, err)
	}
	return writeOK(c, inviteResponse{
		Success:   true,
		Message:   "Invitation sent successfully",
		UserID:    result.IdentityID.String(),
		AttemptID: result.AttemptID.String(),
	})
}

// myProfile returns the caller's profile, creating the default one when the
// identity has none yet.
func (a *API) myProfile(c router.Context) error {
	actor, err := authctx.ResolveActor(c.Context())
	if err != nil {
		return a.writeError(c, err)
	}
	result := &command.EnsureMyProfileResult{}
	if err := a.commands.EnsureMyProfile.Execute(c.Context(), command.EnsureMyProfileInput{Actor: actor, Result: result}); err != nil {
		return a.writeError(c, err)
	}
	return writeOK(c, result.Profile)
}

func (a *API) getProfile(c router.Context) error {
	actor, target, err := a.actorAndTarget(c)
	if err != nil {
		return a.writeError(c, err)
	}
	profile, err := a.queries.Profile.Query(c.Context(), query.ProfileQueryInput{UserID: target, Actor: actor})
	if err != nil {
		return a.writeError(c, err)
	}
	return writeOK(c, profile)
}

func (a *API) listProfiles(c router.Context) error {
	actor, err := authctx.ResolveActor(c.Context())
	if err != nil {
		return a.writeError(c, err)
	}
	roles, err := parseRoles(c.Query("role"))
	if err != nil {
		return a.writeError(c, err)
	}
	page, err := a.queries.ProfileList.Query(c.Context(), query.ProfileListInput{
		Actor:      actor,
		Roles:      roles,
		Pagination: parsePagination(c),
	})
	if err != nil {
		return a.writeError(c, err)
	}
	return writeOK(c, pageView[types.Profile]{
		Items:      nonNil(page.Profiles),
		Total:      page.Total,
		NextOffset: page.NextOffset,
		HasMore:    page.HasMore,
	})
}

func (a *API) directory(c router.Context) error {
	actor, err := authctx.ResolveActor(c.Context())
	if err != nil {
		return a.writeError(c, err)
	}
	roles, err := parseRoles(c.Query("role"))
	if err != nil {
		return a.writeError(c, err)
	}
	page, err := a.queries.Directory.Query(c.Context(), query.DirectoryInput{
		Actor:      actor,
		Keyword:    c.Query("q"),
		Roles:      roles,
		Pagination: parsePagination(c),
	})
	if err != nil {
		return a.writeError(c, err)
	}
	return writeOK(c, pageView[types.DirectoryEntry]{
		Items:      nonNil(page.Entries),
		Total:      page.Total,
		NextOffset: page.NextOffset,
		HasMore:    page.HasMore,
	})
}

func (a *API) setRole(c router.Context) error {
	actor, target, err := a.actorAndTarget(c)
	if err != nil {
		return a.writeError(c, err)
	}
	var req roleRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return a.writeError(c, types.NewInvalidInputError("Invalid request body"))
	}
	result := &command.SetRoleResult{}
	err = a.commands.SetRole.Execute(c.Context(), command.SetRoleInput{
		TargetID:  target,
		Role:      req.Role,
		Actor:     actor,
		RequestID: RequestIDFrom(c.Context()),
		Result:    result,
	})
	if err != nil {
		return a.writeError(c, err)
	}
	return writeOK(c, result.Profile)
}

func (a *API) suspend(c router.Context) error {
	return a.setSuspended(c, true)
}

func (a *API) unsuspend(c router.Context) error {
	return a.setSuspended(c, false)
}

func (a *API) setSuspended(c router.Context, suspended bool) error {
	actor, target, err := a.actorAndTarget(c)
	if err != nil {
		return a.writeError(c, err)
	}
	var req suspendRequest
	if body := c.Body(); len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			return a.writeError(c, types.NewInvalidInputError("Invalid request body"))
		}
	}
	result := &command.SetSuspendedResult{}
	err = a.commands.SetSuspended.Execute(c.Context(), command.SetSuspendedInput{
		TargetID:  target,
		Suspended: suspended,
		Reason:    req.Reason,
		Actor:     actor,
		RequestID: RequestIDFrom(c.Context()),
		Result:    result,
	})
	if err != nil {
		return a.writeError(c, err)
	}
	return writeOK(c, map[string]any{
		"success":  true,
		"changed":  result.Changed,
		"identity": toIdentityView(result.Identity),
	})
}

func (a *API) deleteUser(c router.Context) error {
	actor, target, err := a.actorAndTarget(c)
	if err != nil {
		return a.writeError(c, err)
	}
	err = a.commands.DeleteUser.Execute(c.Context(), command.DeleteUserInput{
		TargetID:  target,
		Actor:     actor,
		RequestID: RequestIDFrom(c.Context()),
	})
	if err != nil {
		return a.writeError(c, err)
	}
	return writeOK(c, map[string]any{"success": true})
}

func (a *API) invitations(c router.Context) error {
	actor, err := authctx.ResolveActor(c.Context())
	if err != nil {
		return a.writeError(c, err)
	}
	var statuses []types.InvitationStatus
	for _, raw := range splitList(c.Query("status")) {
		statuses = append(statuses, types.InvitationStatus(raw))
	}
	page, err := a.queries.InvitationAttempts.Query(c.Context(), query.InvitationAttemptsInput{
		Actor:      actor,
		Statuses:   statuses,
		Email:      c.Query("email"),
		Pagination: parsePagination(c),
	})
	if err != nil {
		return a.writeError(c, err)
	}
	items := make([]attemptView, 0, len(page.Attempts))
	for _, attempt := range page.Attempts {
		items = append(items, toAttemptView(attempt))
	}
	return writeOK(c, pageView[attemptView]{
		Items:      items,
		Total:      page.Total,
		NextOffset: page.NextOffset,
		HasMore:    page.HasMore,
	})
}

func (a *API) activityFeed(c router.Context) error {
	actor, err := authctx.ResolveActor(c.Context())
	if err != nil {
		return a.writeError(c, err)
	}
	page, err := a.queries.ActivityFeed.Query(c.Context(), types.ActivityFilter{
		Actor:      actor,
		Verbs:      splitList(c.Query("verb")),
		VerbPrefix: strings.TrimSpace(c.Query("verbPrefix")),
		RequestID:  strings.TrimSpace(c.Query("requestId")),
		Pagination: parsePagination(c),
	})
	if err != nil {
		return a.writeError(c, err)
	}
	items := make([]activityView, 0, len(page.Records))
	for _, record := range page.Records {
		items = append(items, activityView{
			ID:         record.ID,
			UserID:     record.UserID,
			ActorID:    record.ActorID,
			Verb:       record.Verb,
			ObjectType: record.ObjectType,
			ObjectID:   record.ObjectID,
			Channel:    record.Channel,
			RequestID:  record.RequestID,
			Data:       record.Data,
			OccurredAt: record.OccurredAt,
		})
	}
	return writeOK(c, pageView[activityView]{
		Items:      items,
		Total:      page.Total,
		NextOffset: page.NextOffset,
		HasMore:    page.HasMore,
	})
}

func (a *API) actorAndTarget(c router.Context) (types.ActorRef, uuid.UUID, error) {
	actor, err := authctx.ResolveActor(c.Context())
	if err != nil {
		return types.ActorRef{}, uuid.Nil, err
	}
	target, err := uuid.Parse(strings.TrimSpace(c.Param("id", "")))
	if err != nil || target == uuid.Nil {
		return types.ActorRef{}, uuid.Nil, types.NewInvalidInputError("Invalid user id")
	}
	return actor, target, nil
}

func parsePagination(c router.Context) types.Pagination {
	limit, _ := strconv.Atoi(strings.TrimSpace(c.Query("limit")))
	offset, _ := strconv.Atoi(strings.TrimSpace(c.Query("offset")))
	return types.Pagination{Limit: limit, Offset: offset}
}

func parseRoles(raw string) ([]types.Role, error) {
	var roles []types.Role
	for _, value := range splitList(raw) {
		role, err := types.ParseRole(value)
		if err != nil {
			return nil, types.NewInvalidInputError("Invalid role: " + value)
		}
		roles = append(roles, role)
	}
	return roles, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

func toIdentityView(identity *types.Identity) *identityView {
	if identity == nil {
		return nil
	}
	return &identityView{
		ID:        identity.ID,
		Email:     identity.Email,
		Status:    identity.Status,
		Suspended: identity.Suspended(),
	}
}

func toAttemptView(attempt types.InvitationAttempt) attemptView {
	view := attemptView{
		ID:           attempt.ID,
		Email:        attempt.Email,
		Role:         attempt.Role,
		ActorID:      attempt.ActorID,
		Step:         attempt.Step,
		Status:       attempt.Status,
		PartialState: attempt.PartialState(),
		LastError:    attempt.LastError,
		Retries:      attempt.Retries,
		RequestID:    attempt.RequestID,
		CreatedAt:    attempt.CreatedAt,
		UpdatedAt:    attempt.UpdatedAt,
	}
	if attempt.IdentityID != uuid.Nil {
		id := attempt.IdentityID
		view.IdentityID = &id
	}
	return view
}
