// Copyright (c) 2026 Talentis. All rights reserved.
// Author: platform@talentis.dev

package session_test

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/talentis/talentis/internal/identity/session"
	"github.com/talentis/talentis/internal/platform/apperr"
	"github.com/talentis/talentis/internal/platform/sec"
)

// # In-Memory Stores
//
// These fakes mirror the conditional-update semantics of the Postgres and
// Redis repositories: MarkVerified, Consume, and Revoke report exactly one
// winner under concurrency, and the lockout counter honors its rolling window.

type memoryUserStore struct {
	mu    sync.Mutex
	users map[string]*session.User
}

func newMemoryUserStore() *memoryUserStore {
	return &memoryUserStore{users: make(map[string]*session.User)}
}

func (store *memoryUserStore) Create(_ context.Context, user *session.User) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	for _, existing := range store.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return apperr.Conflict("Username or email is already registered")
		}
	}

	clone := *user
	store.users[user.ID] = &clone
	return nil
}

func (store *memoryUserStore) FindByID(_ context.Context, id string) (*session.User, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	user, ok := store.users[id]
	if !ok {
		return nil, apperr.NotFound("User")
	}
	clone := *user
	return &clone, nil
}

func (store *memoryUserStore) FindByEmail(_ context.Context, email string) (*session.User, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	for _, user := range store.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (store *memoryUserStore) FindByUsername(_ context.Context, username string) (*session.User, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	for _, user := range store.users {
		if user.Username == username {
			clone := *user
			return &clone, nil
		}
	}
	return nil, apperr.NotFound("User")
}

func (store *memoryUserStore) Activate(_ context.Context, userID string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	user, ok := store.users[userID]
	if !ok {
		return apperr.NotFound("User")
	}
	user.IsActive = true
	return nil
}

// setActive flips the activation flag directly, bypassing the service.
func (store *memoryUserStore) setActive(userID string, active bool) {
	store.mu.Lock()
	defer store.mu.Unlock()

	if user, ok := store.users[userID]; ok {
		user.IsActive = active
	}
}

func (store *memoryUserStore) UpdatePassword(_ context.Context, userID, newHash string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	user, ok := store.users[userID]
	if !ok {
		return apperr.NotFound("User")
	}
	user.PasswordHash = newHash
	return nil
}

type memoryOtpStore struct {
	mu      sync.Mutex
	records []*session.OtpRecord
}

func newMemoryOtpStore() *memoryOtpStore {
	return &memoryOtpStore{}
}

func (store *memoryOtpStore) Create(_ context.Context, record *session.OtpRecord) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	// Supersede any live code for the same address, as the Postgres
	// repository does in one transaction.
	for _, existing := range store.records {
		if existing.Email == record.Email && !existing.Superseded && !existing.Verified {
			existing.Superseded = true
		}
	}

	clone := *record
	store.records = append(store.records, &clone)
	return nil
}

func (store *memoryOtpStore) FindActiveByEmail(_ context.Context, email string) (*session.OtpRecord, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	for i := len(store.records) - 1; i >= 0; i-- {
		record := store.records[i]
		if record.Email == email && !record.Superseded && !record.Verified {
			clone := *record
			return &clone, nil
		}
	}
	return nil, apperr.NotFound("Verification code")
}

func (store *memoryOtpStore) IncrementAttempts(_ context.Context, id string) (int, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	for _, record := range store.records {
		if record.ID == id {
			record.Attempts++
			return record.Attempts, nil
		}
	}
	return 0, apperr.NotFound("Verification code")
}

func (store *memoryOtpStore) MarkVerified(_ context.Context, id string, at time.Time) (bool, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	for _, record := range store.records {
		if record.ID != id {
			continue
		}
		if record.Verified || record.Superseded || !record.ExpiresAt.After(at) {
			return false, nil
		}
		record.Verified = true
		record.VerifiedAt = &at
		return true, nil
	}
	return false, nil
}

type memoryResetStore struct {
	mu     sync.Mutex
	tokens map[string]*session.PasswordResetToken
}

func newMemoryResetStore() *memoryResetStore {
	return &memoryResetStore{tokens: make(map[string]*session.PasswordResetToken)}
}

func (store *memoryResetStore) Create(_ context.Context, token *session.PasswordResetToken) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	clone := *token
	store.tokens[token.ID] = &clone
	return nil
}

func (store *memoryResetStore) FindByTokenHash(_ context.Context, tokenHash string) (*session.PasswordResetToken, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	for _, token := range store.tokens {
		if token.TokenHash == tokenHash {
			clone := *token
			return &clone, nil
		}
	}
	return nil, apperr.NotFound("Reset token")
}

func (store *memoryResetStore) Consume(_ context.Context, id string, at time.Time) (bool, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	token, ok := store.tokens[id]
	if !ok || token.Used || !token.ExpiresAt.After(at) {
		return false, nil
	}
	token.Used = true
	token.UsedAt = &at
	return true, nil
}

type memoryRefreshStore struct {
	mu     sync.Mutex
	tokens map[string]*session.RefreshToken
}

func newMemoryRefreshStore() *memoryRefreshStore {
	return &memoryRefreshStore{tokens: make(map[string]*session.RefreshToken)}
}

func (store *memoryRefreshStore) Create(_ context.Context, token *session.RefreshToken) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	clone := *token
	store.tokens[token.ID] = &clone
	return nil
}

func (store *memoryRefreshStore) FindByTokenHash(_ context.Context, tokenHash string) (*session.RefreshToken, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	for _, token := range store.tokens {
		if token.TokenHash == tokenHash {
			clone := *token
			return &clone, nil
		}
	}
	return nil, apperr.NotFound("Refresh token")
}

func (store *memoryRefreshStore) FindActiveByUser(_ context.Context, userID string) ([]session.RefreshToken, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	now := time.Now()
	var active []session.RefreshToken
	for _, token := range store.tokens {
		if token.UserID == userID && token.RevokedAt == nil && token.ExpiresAt.After(now) {
			active = append(active, *token)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].CreatedAt.After(active[j].CreatedAt)
	})
	return active, nil
}

func (store *memoryRefreshStore) Revoke(_ context.Context, id, reason string) (bool, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	token, ok := store.tokens[id]
	if !ok || token.RevokedAt != nil || !token.ExpiresAt.After(time.Now()) {
		return false, nil
	}
	now := time.Now()
	token.RevokedAt = &now
	token.RevokedReason = reason
	return true, nil
}

func (store *memoryRefreshStore) RevokeAllForUser(_ context.Context, userID, reason string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	now := time.Now()
	for _, token := range store.tokens {
		if token.UserID == userID && token.RevokedAt == nil {
			revokedAt := now
			token.RevokedAt = &revokedAt
			token.RevokedReason = reason
		}
	}
	return nil
}

func (store *memoryRefreshStore) RevokeOthers(_ context.Context, userID, keepID, reason string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	now := time.Now()
	for _, token := range store.tokens {
		if token.UserID == userID && token.ID != keepID && token.RevokedAt == nil {
			revokedAt := now
			token.RevokedAt = &revokedAt
			token.RevokedReason = reason
		}
	}
	return nil
}

func (store *memoryRefreshStore) DeleteExpired(_ context.Context) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	now := time.Now()
	for id, token := range store.tokens {
		if !token.ExpiresAt.After(now) {
			delete(store.tokens, id)
		}
	}
	return nil
}

// reasonFor reports the stored revocation reason for a token hash.
func (store *memoryRefreshStore) reasonFor(tokenHash string) string {
	store.mu.Lock()
	defer store.mu.Unlock()

	for _, token := range store.tokens {
		if token.TokenHash == tokenHash {
			return token.RevokedReason
		}
	}
	return ""
}

type lockoutEntry struct {
	count   int
	expires time.Time
}

type memoryLockoutStore struct {
	mu      sync.Mutex
	entries map[string]*lockoutEntry
}

func newMemoryLockoutStore() *memoryLockoutStore {
	return &memoryLockoutStore{entries: make(map[string]*lockoutEntry)}
}

func (store *memoryLockoutStore) Increment(_ context.Context, userID string, window time.Duration) (int, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	entry, ok := store.entries[userID]
	if !ok || time.Now().After(entry.expires) {
		store.entries[userID] = &lockoutEntry{count: 1, expires: time.Now().Add(window)}
		return 1, nil
	}
	entry.count++
	return entry.count, nil
}

func (store *memoryLockoutStore) Count(_ context.Context, userID string) (int, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	entry, ok := store.entries[userID]
	if !ok || time.Now().After(entry.expires) {
		return 0, nil
	}
	return entry.count, nil
}

func (store *memoryLockoutStore) Reset(_ context.Context, userID string) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	delete(store.entries, userID)
	return nil
}

// # Delivery & Token Fakes

type sentMail struct {
	To      string
	Subject string
	Body    string
}

type recordingMailer struct {
	mu    sync.Mutex
	mails []sentMail
	fail  bool
}

func (mailer *recordingMailer) Send(_ context.Context, to, subject, body string) error {
	mailer.mu.Lock()
	defer mailer.mu.Unlock()

	if mailer.fail {
		return apperr.ServiceUnavailable("mail relay down")
	}
	mailer.mails = append(mailer.mails, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

func (mailer *recordingMailer) last() sentMail {
	mailer.mu.Lock()
	defer mailer.mu.Unlock()

	if len(mailer.mails) == 0 {
		return sentMail{}
	}
	return mailer.mails[len(mailer.mails)-1]
}

func (mailer *recordingMailer) sent() int {
	mailer.mu.Lock()
	defer mailer.mu.Unlock()
	return len(mailer.mails)
}

// lastSecret extracts the secret from the most recent mail body, given the
// sentence prefix that precedes it ("Your verification code is ",
// "Your reset token is ").
func (mailer *recordingMailer) lastSecret(prefix string) string {
	body := mailer.last().Body
	_, after, found := strings.Cut(body, prefix)
	if !found {
		return ""
	}
	secret, _, _ := strings.Cut(after, ".")
	return secret
}

type staticTokenProvider struct{}

func (staticTokenProvider) GenerateAccessToken(userID, _, _ string, _ time.Duration) (string, error) {
	return "access-" + userID, nil
}

// # Fixture

// sessionFixture wires a full Service against the in-memory fakes.
type sessionFixture struct {
	service   *session.Service
	otp       *session.OtpManager
	refresh   *session.RefreshTokenManager
	lockout   *session.LockoutTracker
	users     *memoryUserStore
	otps      *memoryOtpStore
	resets    *memoryResetStore
	refreshes *memoryRefreshStore
	lockouts  *memoryLockoutStore
	mailer    *recordingMailer
	codec     *sec.TokenCodec
	hasher    *sec.PasswordHasher
	policy    session.Policy
}

func newSessionFixture(policy session.Policy) *sessionFixture {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	codec := sec.NewTokenCodec("test-session-secret")

	// Minimal argon2id cost keeps the suite fast; production parameters
	// are exercised in the sec package tests.
	hasher := sec.NewPasswordHasher(sec.HashParams{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})

	fixture := &sessionFixture{
		users:     newMemoryUserStore(),
		otps:      newMemoryOtpStore(),
		resets:    newMemoryResetStore(),
		refreshes: newMemoryRefreshStore(),
		lockouts:  newMemoryLockoutStore(),
		mailer:    &recordingMailer{},
		codec:     codec,
		hasher:    hasher,
		policy:    policy,
	}

	fixture.otp = session.NewOtpManager(fixture.otps, codec, fixture.mailer, policy, logger)
	fixture.refresh = session.NewRefreshTokenManager(fixture.refreshes, codec, policy)
	fixture.lockout = session.NewLockoutTracker(fixture.lockouts, policy, logger)

	fixture.service = session.NewService(session.ServiceDeps{
		Users:         fixture.users,
		ResetTokens:   fixture.resets,
		Otp:           fixture.otp,
		Refresh:       fixture.refresh,
		Lockout:       fixture.lockout,
		Hasher:        hasher,
		Codec:         codec,
		TokenProvider: staticTokenProvider{},
		Notifier:      fixture.mailer,
		Policy:        policy,
		Logger:        logger,
	})

	return fixture
}
