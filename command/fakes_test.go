package command

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/goliatone/go-staff/authz"
	"github.com/goliatone/go-staff/pkg/types"
	"github.com/google/uuid"
)

type fixedClock struct {
	t time.Time
}

func (c fixedClock) Now() time.Time { return c.t }

var testNow = time.Date(2026, 3, 4, 9, 30, 0, 0, time.UTC)

type fakeIdentityRepo struct {
	mu         sync.Mutex
	byID       map[uuid.UUID]*types.Identity
	lookupErr  error
	createErr  error
	removeErr  error
	updateErr  error
	created    []*types.Identity
	removed    []uuid.UUID
	calls      []string
	onCreate   func(*types.Identity)
	statusOpts []types.TransitionConfig
}

func newFakeIdentityRepo() *fakeIdentityRepo {
	return &fakeIdentityRepo{byID: map[uuid.UUID]*types.Identity{}}
}

func (r *fakeIdentityRepo) add(identity types.Identity) *types.Identity {
	r.mu.Lock()
	defer r.mu.Unlock()
	if identity.ID == uuid.Nil {
		identity.ID = uuid.New()
	}
	if identity.Status == "" {
		identity.Status = types.LifecycleStateActive
	}
	identity.Email = types.NormalizeEmail(identity.Email)
	r.byID[identity.ID] = &identity
	return &identity
}

func (r *fakeIdentityRepo) GetByID(_ context.Context, id uuid.UUID) (*types.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, "get_by_id")
	if identity, ok := r.byID[id]; ok {
		clone := *identity
		return &clone, nil
	}
	return nil, types.ErrIdentityNotFound
}

func (r *fakeIdentityRepo) GetByEmail(_ context.Context, email string) (*types.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, "get_by_email")
	if r.lookupErr != nil {
		return nil, r.lookupErr
	}
	email = types.NormalizeEmail(email)
	for _, identity := range r.byID {
		if identity.Email == email {
			clone := *identity
			return &clone, nil
		}
	}
	return nil, types.ErrIdentityNotFound
}

func (r *fakeIdentityRepo) Create(_ context.Context, input *types.Identity) (*types.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, "create")
	if r.createErr != nil {
		return nil, r.createErr
	}
	for _, identity := range r.byID {
		if identity.Email == types.NormalizeEmail(input.Email) {
			return nil, types.ErrIdentityExists
		}
	}
	identity := *input
	identity.ID = uuid.New()
	identity.Email = types.NormalizeEmail(identity.Email)
	if identity.Confirmed {
		identity.Status = types.LifecycleStateActive
	} else {
		identity.Status = types.LifecycleStatePending
	}
	r.byID[identity.ID] = &identity
	r.created = append(r.created, &identity)
	if r.onCreate != nil {
		r.onCreate(&identity)
	}
	clone := identity
	return &clone, nil
}

func (r *fakeIdentityRepo) UpdateStatus(_ context.Context, _ types.ActorRef, id uuid.UUID, next types.LifecycleState, opts ...types.TransitionOption) (*types.Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, "update_status")
	if r.updateErr != nil {
		return nil, r.updateErr
	}
	identity, ok := r.byID[id]
	if !ok {
		return nil, types.ErrIdentityNotFound
	}
	r.statusOpts = append(r.statusOpts, types.ApplyTransitionOptions(opts...))
	identity.Status = next
	clone := *identity
	return &clone, nil
}

func (r *fakeIdentityRepo) Remove(_ context.Context, _ types.ActorRef, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, "remove")
	if r.removeErr != nil {
		return r.removeErr
	}
	identity, ok := r.byID[id]
	if !ok {
		return types.ErrIdentityNotFound
	}
	identity.Status = types.LifecycleStateArchived
	r.removed = append(r.removed, id)
	return nil
}

type fakeProfileRepo struct {
	mu        sync.Mutex
	profiles  map[uuid.UUID]*types.Profile
	upsertErr error
	deleteErr error
	getErr    map[uuid.UUID]error
	calls     []string
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{profiles: map[uuid.UUID]*types.Profile{}, getErr: map[uuid.UUID]error{}}
}

func (r *fakeProfileRepo) put(id uuid.UUID, role types.Role) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[id] = &types.Profile{ID: id, Role: role, CreatedAt: testNow, UpdatedAt: testNow}
}

func (r *fakeProfileRepo) GetProfile(_ context.Context, id uuid.UUID) (*types.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.getErr[id]; err != nil {
		return nil, err
	}
	if profile, ok := r.profiles[id]; ok {
		clone := *profile
		return &clone, nil
	}
	return nil, nil
}

func (r *fakeProfileRepo) UpsertProfile(_ context.Context, profile types.Profile) (*types.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, "upsert")
	if r.upsertErr != nil {
		return nil, r.upsertErr
	}
	if profile.Role == "" {
		profile.Role = types.DefaultRole
	}
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = testNow
	}
	profile.UpdatedAt = testNow
	r.profiles[profile.ID] = &profile
	clone := profile
	return &clone, nil
}

func (r *fakeProfileRepo) UpdateRole(_ context.Context, id uuid.UUID, role types.Role, actor uuid.UUID) (*types.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, "update_role")
	profile, ok := r.profiles[id]
	if !ok {
		return nil, types.ErrProfileNotFound
	}
	profile.Role = role
	profile.UpdatedBy = actor
	profile.UpdatedAt = testNow.Add(time.Minute)
	clone := *profile
	return &clone, nil
}

func (r *fakeProfileRepo) ListProfiles(context.Context, types.ProfileFilter) (types.ProfilePage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	page := types.ProfilePage{}
	for _, profile := range r.profiles {
		page.Profiles = append(page.Profiles, *profile)
	}
	page.Total = len(page.Profiles)
	return page, nil
}

func (r *fakeProfileRepo) DeleteProfile(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, "delete")
	if r.deleteErr != nil {
		return r.deleteErr
	}
	delete(r.profiles, id)
	return nil
}

type fakeInvitationLog struct {
	mu       sync.Mutex
	attempts map[uuid.UUID]*types.InvitationAttempt
	startErr error
	clock    types.Clock
}

func newFakeInvitationLog() *fakeInvitationLog {
	return &fakeInvitationLog{attempts: map[uuid.UUID]*types.InvitationAttempt{}, clock: fixedClock{t: testNow}}
}

func (l *fakeInvitationLog) StartAttempt(_ context.Context, attempt types.InvitationAttempt) (*types.InvitationAttempt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.startErr != nil {
		return nil, l.startErr
	}
	if attempt.ID == uuid.Nil {
		attempt.ID = uuid.New()
	}
	if attempt.Step == "" {
		attempt.Step = types.InvitationStepRequested
	}
	if attempt.Status == "" {
		attempt.Status = types.InvitationStatusStarted
	}
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = l.clock.Now()
	}
	if attempt.UpdatedAt.IsZero() {
		attempt.UpdatedAt = attempt.CreatedAt
	}
	l.attempts[attempt.ID] = &attempt
	clone := attempt
	return &clone, nil
}

func (l *fakeInvitationLog) RecordProgress(_ context.Context, id uuid.UUID, progress types.InvitationProgress) (*types.InvitationAttempt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	attempt, ok := l.attempts[id]
	if !ok {
		return nil, types.ErrInvitationAttemptNotFound
	}
	if progress.Step != "" {
		attempt.Step = progress.Step
	}
	if progress.Status != "" {
		attempt.Status = progress.Status
	}
	if progress.IdentityID != uuid.Nil {
		attempt.IdentityID = progress.IdentityID
	}
	if progress.Retried {
		attempt.Retries++
	}
	attempt.LastError = progress.Error
	attempt.UpdatedAt = l.clock.Now()
	clone := *attempt
	return &clone, nil
}

func (l *fakeInvitationLog) GetAttempt(_ context.Context, id uuid.UUID) (*types.InvitationAttempt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	attempt, ok := l.attempts[id]
	if !ok {
		return nil, types.ErrInvitationAttemptNotFound
	}
	clone := *attempt
	return &clone, nil
}

func (l *fakeInvitationLog) ListAttempts(_ context.Context, filter types.InvitationFilter) (types.InvitationPage, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	page := types.InvitationPage{}
	for _, attempt := range l.attempts {
		if len(filter.Statuses) > 0 && !containsStatus(filter.Statuses, attempt.Status) {
			continue
		}
		if filter.UpdatedBefore != nil && !attempt.UpdatedAt.Before(*filter.UpdatedBefore) {
			continue
		}
		page.Attempts = append(page.Attempts, *attempt)
	}
	sort.Slice(page.Attempts, func(i, j int) bool {
		return page.Attempts[i].UpdatedAt.After(page.Attempts[j].UpdatedAt)
	})
	page.Total = len(page.Attempts)
	return page, nil
}

func (l *fakeInvitationLog) only() types.InvitationAttempt {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, attempt := range l.attempts {
		return *attempt
	}
	return types.InvitationAttempt{}
}

func containsStatus(list []types.InvitationStatus, status types.InvitationStatus) bool {
	for _, s := range list {
		if s == status {
			return true
		}
	}
	return false
}

type fakeDispatcher struct {
	mu   sync.Mutex
	err  error
	sent []types.Invitation
}

func (d *fakeDispatcher) DispatchInvitation(_ context.Context, invitation types.Invitation) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return d.err
	}
	d.sent = append(d.sent, invitation)
	return nil
}

type fakeLinks struct {
	err      error
	payloads []types.SecureLinkPayload
}

func (l *fakeLinks) Generate(route string, payloads ...types.SecureLinkPayload) (string, error) {
	if l.err != nil {
		return "", l.err
	}
	l.payloads = append(l.payloads, payloads...)
	return "https://clinic.example.com/" + route + "?token=signed", nil
}

func (l *fakeLinks) Validate(string) (map[string]any, error) {
	return nil, errors.New("not implemented")
}

func (l *fakeLinks) GetExpiration() time.Duration { return 24 * time.Hour }

type recordingSink struct {
	mu      sync.Mutex
	records []types.ActivityRecord
	order   *[]string
}

func (s *recordingSink) Log(_ context.Context, record types.ActivityRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	if s.order != nil {
		*s.order = append(*s.order, "sink")
	}
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []types.ChangeEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event types.ChangeEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) kinds() []types.ChangeKind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]types.ChangeKind, 0, len(p.events))
	for _, event := range p.events {
		out = append(out, event.Kind)
	}
	return out
}

// fixture bundles fakes for one test. Actors are seeded through withActor.
type fixture struct {
	identities *fakeIdentityRepo
	profiles   *fakeProfileRepo
	attempts   *fakeInvitationLog
	dispatcher *fakeDispatcher
	links      *fakeLinks
	sink       *recordingSink
	events     *recordingPublisher
	guard      authz.Guard
}

func newFixture() *fixture {
	profiles := newFakeProfileRepo()
	identities := newFakeIdentityRepo()
	return &fixture{
		identities: identities,
		profiles:   profiles,
		attempts:   newFakeInvitationLog(),
		dispatcher: &fakeDispatcher{},
		links:      &fakeLinks{},
		sink:       &recordingSink{},
		events:     &recordingPublisher{},
		guard:      authz.NewGuard(authz.Config{Profiles: profiles, Identities: identities}),
	}
}

// withActor seeds an active identity and, when role is set, its profile.
func (f *fixture) withActor(email string, role types.Role) types.ActorRef {
	identity := f.identities.add(types.Identity{Email: email, Confirmed: true})
	if role != "" {
		f.profiles.put(identity.ID, role)
	}
	return types.ActorRef{ID: identity.ID, Type: "user"}
}

func (f *fixture) inviteCommand(hooks types.Hooks) *InviteUserCommand {
	return NewInviteUserCommand(InviteCommandConfig{
		Identities:  f.identities,
		Profiles:    f.profiles,
		Attempts:    f.attempts,
		Dispatcher:  f.dispatcher,
		SecureLinks: f.links,
		Guard:       f.guard,
		Events:      f.events,
		Links:       InvitationLinkConfig{SiteURL: "https://clinic.example.com/"},
		Clock:       fixedClock{t: testNow},
		Activity:    f.sink,
		Hooks:       hooks,
	})
}
