// Package memory provides the in-memory RepositoryManager the demo
// server runs on. Nothing here survives a restart.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/tmhaka/handoff"
)

// Manager holds every repository behind a single mutex. The maps are
// shared mutable state across requests; the lock is what makes the
// directory safe under fiber's concurrent handlers.
type Manager struct {
	mu sync.RWMutex

	users                map[int64]*handoff.User
	usersByUsername      map[string]int64
	usersByProviderEmail map[string]int64
	activityLogs         map[int64]*handoff.ActivityLog

	nextUserID     int64
	nextActivityID int64
}

var _ handoff.RepositoryManager = (*Manager)(nil)

// NewManager creates an empty in-memory store with counters at 1.
func NewManager() *Manager {
	return &Manager{
		users:                make(map[int64]*handoff.User),
		usersByUsername:      make(map[string]int64),
		usersByProviderEmail: make(map[string]int64),
		activityLogs:         make(map[int64]*handoff.ActivityLog),
		nextUserID:           1,
		nextActivityID:       1,
	}
}

// Users implements handoff.RepositoryManager.
func (m *Manager) Users() handoff.Users {
	return (*users)(m)
}

// ActivityLogs implements handoff.RepositoryManager.
func (m *Manager) ActivityLogs() handoff.ActivityLogs {
	return (*activityLogs)(m)
}

// Validate implements handoff.RepositoryManager.
func (m *Manager) Validate() error {
	if m.users == nil || m.activityLogs == nil {
		return goerrors.New("memory store not initialized", goerrors.CategoryInternal)
	}
	return nil
}

func providerEmailKey(provider, email string) string {
	return provider + ":" + email
}

type users Manager

var _ handoff.Users = (*users)(nil)

func (u *users) GetByID(_ context.Context, id int64) (*handoff.User, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()

	user, ok := u.users[id]
	if !ok {
		return nil, handoff.ErrUserNotFound
	}
	return cloneUser(user), nil
}

func (u *users) GetByUsername(_ context.Context, username string) (*handoff.User, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()

	id, ok := u.usersByUsername[username]
	if !ok {
		return nil, handoff.ErrUserNotFound
	}
	return cloneUser(u.users[id]), nil
}

func (u *users) GetByProviderEmail(_ context.Context, provider, email string) (*handoff.User, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()

	id, ok := u.usersByProviderEmail[providerEmailKey(provider, email)]
	if !ok {
		return nil, handoff.ErrUserNotFound
	}
	return cloneUser(u.users[id]), nil
}

func (u *users) Create(_ context.Context, record *handoff.User) (*handoff.User, error) {
	if record == nil {
		return nil, goerrors.New("user must not be nil", goerrors.CategoryBadInput)
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	if _, exists := u.usersByUsername[record.Username]; exists {
		return nil, goerrors.New("username already taken", goerrors.CategoryConflict).
			WithCode(goerrors.CodeConflict).
			WithMetadata(map[string]any{"username": record.Username})
	}

	if record.Provider != "" && record.Email != "" {
		key := providerEmailKey(record.Provider, record.Email)
		if _, exists := u.usersByProviderEmail[key]; exists {
			return nil, goerrors.New("provider and email already registered", goerrors.CategoryConflict).
				WithCode(goerrors.CodeConflict)
		}
	}

	stored := cloneUser(record)
	stored.ID = u.nextUserID
	u.nextUserID++

	now := time.Now()
	stored.CreatedAt = &now

	u.users[stored.ID] = stored
	u.usersByUsername[stored.Username] = stored.ID
	if stored.Provider != "" && stored.Email != "" {
		u.usersByProviderEmail[providerEmailKey(stored.Provider, stored.Email)] = stored.ID
	}

	return cloneUser(stored), nil
}

func (u *users) UpdateSession(_ context.Context, id int64) (*handoff.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	user, ok := u.users[id]
	if !ok {
		return nil, handoff.ErrUserNotFound
	}

	expiry := time.Now().Add(time.Hour)
	user.TokenExpiry = &expiry

	return cloneUser(user), nil
}

func (u *users) UpdateToken(_ context.Context, id int64, token string) (*handoff.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	user, ok := u.users[id]
	if !ok {
		return nil, handoff.ErrUserNotFound
	}

	expiry := time.Now().Add(time.Hour)
	user.AccessToken = token
	user.TokenExpiry = &expiry

	return cloneUser(user), nil
}

type activityLogs Manager

var _ handoff.ActivityLogs = (*activityLogs)(nil)

func (a *activityLogs) Create(_ context.Context, entry *handoff.ActivityLog) (*handoff.ActivityLog, error) {
	if entry == nil {
		return nil, goerrors.New("activity entry must not be nil", goerrors.CategoryBadInput)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	stored := *entry
	stored.ID = a.nextActivityID
	a.nextActivityID++

	now := time.Now()
	stored.CreatedAt = &now

	a.activityLogs[stored.ID] = &stored

	clone := stored
	return &clone, nil
}

func (a *activityLogs) ListByUser(_ context.Context, userID int64) ([]*handoff.ActivityLog, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var entries []*handoff.ActivityLog
	for _, log := range a.activityLogs {
		if log.UserID == userID {
			clone := *log
			entries = append(entries, &clone)
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		ti, tj := entries[i].CreatedAt, entries[j].CreatedAt
		if ti == nil || tj == nil {
			return entries[i].ID > entries[j].ID
		}
		if ti.Equal(*tj) {
			return entries[i].ID > entries[j].ID
		}
		return ti.After(*tj)
	})

	return entries, nil
}

func cloneUser(user *handoff.User) *handoff.User {
	if user == nil {
		return nil
	}
	clone := *user
	if user.Metadata != nil {
		meta := *user.Metadata
		clone.Metadata = &meta
	}
	if user.TokenExpiry != nil {
		expiry := *user.TokenExpiry
		clone.TokenExpiry = &expiry
	}
	if user.CreatedAt != nil {
		created := *user.CreatedAt
		clone.CreatedAt = &created
	}
	return &clone
}
