// Package memory provides in-process stores for local development and
// transport tests. Nothing here is durable.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-staff/pkg/types"
	"github.com/google/uuid"
)

// IdentityRepository is an in-memory identity provider. Email is unique.
type IdentityRepository struct {
	mu     sync.RWMutex
	users  map[uuid.UUID]*types.Identity
	policy types.TransitionPolicy
	clock  types.Clock
}

// NewIdentityRepository provisions an empty identity store.
func NewIdentityRepository(clock types.Clock) *IdentityRepository {
	if clock == nil {
		clock = types.SystemClock{}
	}
	return &IdentityRepository{
		users:  make(map[uuid.UUID]*types.Identity),
		policy: types.DefaultTransitionPolicy(),
		clock:  clock,
	}
}

var _ types.IdentityRepository = (*IdentityRepository)(nil)

func (r *IdentityRepository) GetByID(_ context.Context, id uuid.UUID) (*types.Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return nil, types.ErrIdentityNotFound
	}
	return cloneIdentity(user), nil
}

func (r *IdentityRepository) GetByEmail(_ context.Context, email string) (*types.Identity, error) {
	email = types.NormalizeEmail(email)
	r.mu.RLock()
	defer r.mu.RUnlock()
	if user := r.findByEmail(email); user != nil {
		return cloneIdentity(user), nil
	}
	return nil, types.ErrIdentityNotFound
}

func (r *IdentityRepository) Create(_ context.Context, input *types.Identity) (*types.Identity, error) {
	if input == nil {
		return nil, types.ErrUserIDRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	user := cloneIdentity(input)
	user.Email = types.NormalizeEmail(user.Email)
	if r.findByEmail(user.Email) != nil {
		return nil, types.ErrIdentityExists
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.Status == "" {
		user.Status = types.LifecycleStatePending
		if user.Confirmed {
			user.Status = types.LifecycleStateActive
		}
	}
	now := r.clock.Now()
	user.CreatedAt = &now
	user.UpdatedAt = &now
	r.users[user.ID] = user
	return cloneIdentity(user), nil
}

func (r *IdentityRepository) UpdateStatus(_ context.Context, _ types.ActorRef, id uuid.UUID, next types.LifecycleState, opts ...types.TransitionOption) (*types.Identity, error) {
	cfg := types.ApplyTransitionOptions(opts...)
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, types.ErrIdentityNotFound
	}
	if user.Status != next && !cfg.Force {
		if err := r.policy.Validate(user.Status, next); err != nil {
			return nil, err
		}
	}
	user.Status = next
	now := r.clock.Now()
	user.UpdatedAt = &now
	return cloneIdentity(user), nil
}

// Remove archives the identity. Archived identities keep their email
// reserved, matching the provider behavior.
func (r *IdentityRepository) Remove(ctx context.Context, actor types.ActorRef, id uuid.UUID) error {
	_, err := r.UpdateStatus(ctx, actor, id, types.LifecycleStateArchived, types.WithForceTransition())
	return err
}

// Seed stores an identity as-is, used to bootstrap the first administrator.
func (r *IdentityRepository) Seed(identity types.Identity) *types.Identity {
	r.mu.Lock()
	defer r.mu.Unlock()
	user := cloneIdentity(&identity)
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.Status == "" {
		user.Status = types.LifecycleStateActive
	}
	user.Email = types.NormalizeEmail(user.Email)
	r.users[user.ID] = user
	return cloneIdentity(user)
}

func (r *IdentityRepository) findByEmail(email string) *types.Identity {
	for _, user := range r.users {
		if user.Email == email {
			return user
		}
	}
	return nil
}

func cloneIdentity(user *types.Identity) *types.Identity {
	if user == nil {
		return nil
	}
	clone := *user
	if user.Metadata != nil {
		clone.Metadata = make(map[string]any, len(user.Metadata))
		for k, v := range user.Metadata {
			clone.Metadata[k] = v
		}
	}
	return &clone
}

// ProfileRepository stores profile rows in memory.
type ProfileRepository struct {
	mu       sync.RWMutex
	profiles map[uuid.UUID]types.Profile
	clock    types.Clock
}

// NewProfileRepository provisions the repo.
func NewProfileRepository(clock types.Clock) *ProfileRepository {
	if clock == nil {
		clock = types.SystemClock{}
	}
	return &ProfileRepository{profiles: make(map[uuid.UUID]types.Profile), clock: clock}
}

var _ types.ProfileRepository = (*ProfileRepository)(nil)

func (r *ProfileRepository) GetProfile(_ context.Context, id uuid.UUID) (*types.Profile, error) {
	if id == uuid.Nil {
		return nil, types.ErrUserIDRequired
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	profile, ok := r.profiles[id]
	if !ok {
		return nil, nil
	}
	return &profile, nil
}

func (r *ProfileRepository) UpsertProfile(_ context.Context, profile types.Profile) (*types.Profile, error) {
	if profile.ID == uuid.Nil {
		return nil, types.ErrUserIDRequired
	}
	if profile.Role == "" {
		profile.Role = types.DefaultRole
	}
	if !profile.Role.Valid() {
		return nil, types.ErrInvalidRole
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.clock.Now()
	if existing, ok := r.profiles[profile.ID]; ok {
		profile.CreatedAt = existing.CreatedAt
		if profile.CreatedBy == uuid.Nil {
			profile.CreatedBy = existing.CreatedBy
		}
	}
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	if profile.UpdatedBy == uuid.Nil {
		profile.UpdatedBy = profile.CreatedBy
	}
	profile.UpdatedAt = now
	r.profiles[profile.ID] = profile
	return &profile, nil
}

func (r *ProfileRepository) UpdateRole(_ context.Context, id uuid.UUID, role types.Role, actor uuid.UUID) (*types.Profile, error) {
	if !role.Valid() {
		return nil, types.ErrInvalidRole
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	profile, ok := r.profiles[id]
	if !ok {
		return nil, types.ErrProfileNotFound
	}
	profile.Role = role
	profile.UpdatedBy = actor
	profile.UpdatedAt = r.clock.Now()
	r.profiles[id] = profile
	return &profile, nil
}

func (r *ProfileRepository) ListProfiles(_ context.Context, filter types.ProfileFilter) (types.ProfilePage, error) {
	r.mu.RLock()
	rows := make([]types.Profile, 0, len(r.profiles))
	for _, profile := range r.profiles {
		if len(filter.Roles) > 0 && !containsRole(filter.Roles, profile.Role) {
			continue
		}
		if len(filter.IDs) > 0 && !containsID(filter.IDs, profile.ID) {
			continue
		}
		rows = append(rows, profile)
	}
	r.mu.RUnlock()
	sortNewestFirst(rows)
	window, total, next, more := paginate(rows, filter.Pagination)
	return types.ProfilePage{Profiles: window, Total: total, NextOffset: next, HasMore: more}, nil
}

func (r *ProfileRepository) DeleteProfile(_ context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return types.ErrUserIDRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.profiles, id)
	return nil
}

// Directory joins the in-memory profiles with identity email and status.
type Directory struct {
	identities *IdentityRepository
	profiles   *ProfileRepository
}

// NewDirectory builds a directory view over the two stores.
func NewDirectory(identities *IdentityRepository, profiles *ProfileRepository) *Directory {
	return &Directory{identities: identities, profiles: profiles}
}

var _ types.DirectoryRepository = (*Directory)(nil)

func (d *Directory) ListDirectory(_ context.Context, filter types.DirectoryFilter) (types.DirectoryPage, error) {
	d.profiles.mu.RLock()
	profiles := make([]types.Profile, 0, len(d.profiles.profiles))
	for _, profile := range d.profiles.profiles {
		profiles = append(profiles, profile)
	}
	d.profiles.mu.RUnlock()
	sortNewestFirst(profiles)

	keyword := strings.ToLower(strings.TrimSpace(filter.Keyword))
	entries := make([]types.DirectoryEntry, 0, len(profiles))
	d.identities.mu.RLock()
	for _, profile := range profiles {
		if len(filter.Roles) > 0 && !containsRole(filter.Roles, profile.Role) {
			continue
		}
		entry := types.DirectoryEntry{
			ID:        profile.ID,
			Role:      profile.Role,
			CreatedAt: profile.CreatedAt,
			UpdatedAt: profile.UpdatedAt,
		}
		if user, ok := d.identities.users[profile.ID]; ok {
			entry.Email = user.Email
			entry.Status = user.Status
			entry.Suspended = user.Suspended()
		}
		if keyword != "" &&
			!strings.Contains(strings.ToLower(entry.Email), keyword) &&
			!strings.Contains(entry.ID.String(), keyword) &&
			!strings.Contains(string(entry.Role), keyword) {
			continue
		}
		entries = append(entries, entry)
	}
	d.identities.mu.RUnlock()

	window, total, next, more := paginate(entries, filter.Pagination)
	return types.DirectoryPage{Entries: window, Total: total, NextOffset: next, HasMore: more}, nil
}

func sortNewestFirst(rows []types.Profile) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].ID.String() < rows[j].ID.String()
		}
		return rows[i].CreatedAt.After(rows[j].CreatedAt)
	})
}

func containsRole(roles []types.Role, role types.Role) bool {
	for _, candidate := range roles {
		if candidate == role {
			return true
		}
	}
	return false
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

func paginate[T any](rows []T, p types.Pagination) (window []T, total, next int, more bool) {
	limit := p.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := p.Offset
	if offset < 0 {
		offset = 0
	}
	total = len(rows)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return rows[offset:end], total, offset + limit, offset+limit < total
}
