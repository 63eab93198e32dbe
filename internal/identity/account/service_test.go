// Copyright (c) 2026 Talentis. All rights reserved.
// Author: platform@talentis.dev

package account_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talentis/talentis/internal/identity/account"
	"github.com/talentis/talentis/internal/identity/session"
	"github.com/talentis/talentis/internal/platform/apperr"
	"github.com/talentis/talentis/pkg/pagination"
)

// # Fakes

type fakeAccountRepo struct {
	mu    sync.Mutex
	users map[string]*session.User
}

func newFakeAccountRepo(users ...*session.User) *fakeAccountRepo {
	repo := &fakeAccountRepo{users: make(map[string]*session.User)}
	for _, user := range users {
		clone := *user
		repo.users[user.ID] = &clone
	}
	return repo
}

func (repo *fakeAccountRepo) FindByID(_ context.Context, id string) (*session.User, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	user, ok := repo.users[id]
	if !ok {
		return nil, apperr.NotFound("User not found")
	}
	clone := *user
	return &clone, nil
}

func (repo *fakeAccountRepo) Update(_ context.Context, user *session.User) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	stored, ok := repo.users[user.ID]
	if !ok {
		return apperr.NotFound("User not found")
	}
	stored.DisplayName = user.DisplayName
	return nil
}

func (repo *fakeAccountRepo) List(_ context.Context, filter account.ListFilter, params pagination.Params) ([]session.User, int, error) {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	var matches []session.User
	for _, user := range repo.users {
		if filter.IsActive != nil && user.IsActive != *filter.IsActive {
			continue
		}
		matches = append(matches, *user)
	}
	total := len(matches)
	if len(matches) > params.Limit {
		matches = matches[:params.Limit]
	}
	return matches, total, nil
}

func (repo *fakeAccountRepo) Deactivate(_ context.Context, id string) error {
	repo.mu.Lock()
	defer repo.mu.Unlock()

	user, ok := repo.users[id]
	if !ok {
		return apperr.NotFound("User not found")
	}
	user.IsActive = false
	return nil
}

type fakeSessionDirectory struct {
	mu      sync.Mutex
	tokens  []session.RefreshToken
	revoked map[string]string // session ID -> reason
}

func newFakeSessionDirectory(tokens ...session.RefreshToken) *fakeSessionDirectory {
	return &fakeSessionDirectory{tokens: tokens, revoked: make(map[string]string)}
}

func (dir *fakeSessionDirectory) FindActiveByUserID(_ context.Context, userID string) ([]session.RefreshToken, error) {
	dir.mu.Lock()
	defer dir.mu.Unlock()

	var active []session.RefreshToken
	for _, token := range dir.tokens {
		if token.UserID == userID {
			if _, gone := dir.revoked[token.ID]; !gone {
				active = append(active, token)
			}
		}
	}
	return active, nil
}

func (dir *fakeSessionDirectory) Revoke(_ context.Context, userID, sessionID, reason string) error {
	dir.mu.Lock()
	defer dir.mu.Unlock()

	for _, token := range dir.tokens {
		if token.ID == sessionID && token.UserID == userID {
			dir.revoked[sessionID] = reason
			return nil
		}
	}
	return apperr.NotFound("Session not found")
}

func (dir *fakeSessionDirectory) RevokeOthers(_ context.Context, userID, currentSessionID, reason string) error {
	dir.mu.Lock()
	defer dir.mu.Unlock()

	for _, token := range dir.tokens {
		if token.UserID == userID && token.ID != currentSessionID {
			dir.revoked[token.ID] = reason
		}
	}
	return nil
}

func (dir *fakeSessionDirectory) RevokeAll(_ context.Context, userID, reason string) error {
	dir.mu.Lock()
	defer dir.mu.Unlock()

	for _, token := range dir.tokens {
		if token.UserID == userID {
			dir.revoked[token.ID] = reason
		}
	}
	return nil
}

type fakeLockoutStore struct {
	mu     sync.Mutex
	counts map[string]int
}

func newFakeLockoutStore() *fakeLockoutStore {
	return &fakeLockoutStore{counts: make(map[string]int)}
}

func (store *fakeLockoutStore) Increment(_ context.Context, userID string, _ time.Duration) (int, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	store.counts[userID]++
	return store.counts[userID], nil
}

func (store *fakeLockoutStore) Count(_ context.Context, userID string) (int, error) {
	store.mu.Lock()
	defer store.mu.Unlock()
	return store.counts[userID], nil
}

func (store *fakeLockoutStore) Reset(_ context.Context, userID string) error {
	store.mu.Lock()
	defer store.mu.Unlock()
	delete(store.counts, userID)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// # Tests

/*
TestAccountService_ListSessions verifies the DTO mapping and that the
caller's own session is flagged by its token hash.
*/
func TestAccountService_ListSessions(t *testing.T) {
	now := time.Now()
	directory := newFakeSessionDirectory(
		session.RefreshToken{ID: "s1", UserID: "user-1", TokenHash: "hash-1", UserAgent: "Firefox", IPAddress: "203.0.113.7", CreatedAt: now, ExpiresAt: now.Add(time.Hour)},
		session.RefreshToken{ID: "s2", UserID: "user-1", TokenHash: "hash-2", UserAgent: "Safari", IPAddress: "203.0.113.8", CreatedAt: now, ExpiresAt: now.Add(time.Hour)},
	)
	lockout := session.NewLockoutTracker(newFakeLockoutStore(), session.DefaultPolicy(), testLogger())
	service := account.NewService(newFakeAccountRepo(), directory, lockout, testLogger())

	sessions, err := service.ListSessions(context.Background(), "user-1", "hash-2")
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	for _, info := range sessions {
		if info.ID == "s2" {
			assert.True(t, info.IsCurrent)
			assert.Equal(t, "Safari", info.DeviceName)
		} else {
			assert.False(t, info.IsCurrent)
		}
	}
}

/*
TestAccountService_RevokeSession checks owner-constrained revocation and
the not-found path for foreign sessions.
*/
func TestAccountService_RevokeSession(t *testing.T) {
	now := time.Now()
	directory := newFakeSessionDirectory(
		session.RefreshToken{ID: "s1", UserID: "user-1", CreatedAt: now, ExpiresAt: now.Add(time.Hour)},
		session.RefreshToken{ID: "s2", UserID: "user-2", CreatedAt: now, ExpiresAt: now.Add(time.Hour)},
	)
	lockout := session.NewLockoutTracker(newFakeLockoutStore(), session.DefaultPolicy(), testLogger())
	service := account.NewService(newFakeAccountRepo(), directory, lockout, testLogger())
	ctx := context.Background()

	// 1. Own session revokes with the device audit reason.
	require.NoError(t, service.RevokeSession(ctx, "user-1", "s1"))
	assert.Equal(t, session.ReasonDeviceRevoked, directory.revoked["s1"])

	// 2. Another user's session is invisible.
	err := service.RevokeSession(ctx, "user-1", "s2")
	assert.True(t, apperr.IsNotFound(err))
}

/*
TestAccountService_UpdateProfile applies a partial update and leaves
unspecified fields untouched.
*/
func TestAccountService_UpdateProfile(t *testing.T) {
	repo := newFakeAccountRepo(&session.User{ID: "user-1", Username: "ana", DisplayName: "Ana", IsActive: true})
	lockout := session.NewLockoutTracker(newFakeLockoutStore(), session.DefaultPolicy(), testLogger())
	service := account.NewService(repo, newFakeSessionDirectory(), lockout, testLogger())
	ctx := context.Background()

	name := "Ana R."
	updated, err := service.UpdateProfile(ctx, "user-1", account.UpdateProfileInput{DisplayName: &name})
	require.NoError(t, err)
	assert.Equal(t, "Ana R.", updated.DisplayName)
	assert.Equal(t, "ana", updated.Username)

	// A nil field is a no-op.
	unchanged, err := service.UpdateProfile(ctx, "user-1", account.UpdateProfileInput{})
	require.NoError(t, err)
	assert.Equal(t, "Ana R.", unchanged.DisplayName)
}

/*
TestAccountService_UnlockAccount verifies the admin unlock clears the
failure counter and rejects unknown accounts.
*/
func TestAccountService_UnlockAccount(t *testing.T) {
	repo := newFakeAccountRepo(&session.User{ID: "user-1", Username: "ana", IsActive: true})
	lockoutStore := newFakeLockoutStore()
	lockout := session.NewLockoutTracker(lockoutStore, session.DefaultPolicy(), testLogger())
	service := account.NewService(repo, newFakeSessionDirectory(), lockout, testLogger())
	ctx := context.Background()

	// Accumulate failures, then clear them through the service.
	for i := 0; i < 5; i++ {
		_, err := lockout.RecordFailure(ctx, "user-1")
		require.NoError(t, err)
	}

	require.NoError(t, service.UnlockAccount(ctx, "user-1"))
	locked, err := lockout.IsLocked(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, locked)

	err = service.UnlockAccount(ctx, "ghost")
	assert.True(t, apperr.IsNotFound(err))
}

/*
TestAccountService_DeactivateAccount verifies deactivation flips the
account and sweeps every live session.
*/
func TestAccountService_DeactivateAccount(t *testing.T) {
	now := time.Now()
	repo := newFakeAccountRepo(&session.User{ID: "user-1", Username: "ana", IsActive: true})
	directory := newFakeSessionDirectory(
		session.RefreshToken{ID: "s1", UserID: "user-1", CreatedAt: now, ExpiresAt: now.Add(time.Hour)},
		session.RefreshToken{ID: "s2", UserID: "user-1", CreatedAt: now, ExpiresAt: now.Add(time.Hour)},
	)
	lockout := session.NewLockoutTracker(newFakeLockoutStore(), session.DefaultPolicy(), testLogger())
	service := account.NewService(repo, directory, lockout, testLogger())
	ctx := context.Background()

	require.NoError(t, service.DeactivateAccount(ctx, "user-1"))

	user, err := repo.FindByID(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, user.IsActive)

	assert.Equal(t, session.ReasonDeactivated, directory.revoked["s1"])
	assert.Equal(t, session.ReasonDeactivated, directory.revoked["s2"])
}
