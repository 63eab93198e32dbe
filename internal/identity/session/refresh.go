// Copyright (c) 2026 Talentis. All rights reserved.
// Author: platform@talentis.dev

package session

import (
	"context"
	"fmt"
	"time"

	"github.com/talentis/talentis/internal/platform/apperr"
	"github.com/talentis/talentis/internal/platform/sec"
	"github.com/talentis/talentis/pkg/uuid"
)

// # Refresh Token Manager

// RefreshTokenManager owns issuance, rotation, and revocation of
// refresh-token sessions.
type RefreshTokenManager struct {
	store  RefreshTokenRepository
	codec  *sec.TokenCodec
	policy Policy
}

// NewRefreshTokenManager constructs a [RefreshTokenManager] with necessary dependencies.
func NewRefreshTokenManager(store RefreshTokenRepository, codec *sec.TokenCodec, policy Policy) *RefreshTokenManager {
	return &RefreshTokenManager{
		store:  store,
		codec:  codec,
		policy: policy.normalized(),
	}
}

/*
Issue mints a fresh refresh token for a user's device.

Description: Generates the token from a CSPRNG, persists only its keyed
hash, and returns the plaintext exactly once. The plaintext is never
recoverable afterwards.

Parameters:
  - context: context.Context
  - userID: string
  - userAgent: string
  - ipAddress: string

Returns:
  - string: Plaintext refresh token (single exposure)
  - *RefreshToken: Persisted session record
  - err: Generation or storage failures
*/
func (manager *RefreshTokenManager) Issue(context context.Context, userID, userAgent, ipAddress string) (string, *RefreshToken, error) {

	plaintext, tokenHash, err := manager.codec.GenerateToken(manager.policy.RefreshTokenLength)
	if err != nil {
		return "", nil, fmt.Errorf("refresh_manager_generate_failed: %w", err)
	}

	now := time.Now()
	token := &RefreshToken{
		ID:        uuid.New(),
		UserID:    userID,
		TokenHash: tokenHash,
		UserAgent: userAgent,
		IPAddress: ipAddress,
		CreatedAt: now,
		ExpiresAt: now.Add(manager.policy.RefreshTokenTTL),
	}

	if err := manager.store.Create(context, token); err != nil {
		return "", nil, fmt.Errorf("refresh_manager_store_failed: %w", err)
	}

	return plaintext, token, nil
}

/*
Rotate exchanges a live refresh token for a successor.

Description: Resolves the presented token, revokes it through a
conditional update, and issues a replacement for the same user. Two
concurrent rotations of the same token produce exactly one winner; the
loser observes the token as already revoked. A revoked or expired token
never rotates.

Parameters:
  - context: context.Context
  - plaintext: string (the presented refresh token)
  - userAgent: string
  - ipAddress: string

Returns:
  - string: Plaintext successor token
  - *RefreshToken: Successor session record
  - err: NotFound, Expired, Revoked, or storage failures
*/
func (manager *RefreshTokenManager) Rotate(context context.Context, plaintext, userAgent, ipAddress string) (string, *RefreshToken, error) {

	current, err := manager.resolve(context, plaintext)
	if err != nil {
		return "", nil, err
	}

	if current.RevokedAt != nil {
		return "", nil, apperr.Revoked("Refresh token")
	}
	if time.Now().After(current.ExpiresAt) {
		return "", nil, apperr.Expired("Refresh token")
	}

	// The conditional revoke is the rotation lock: whoever flips the row
	// first owns the successor.
	won, err := manager.store.Revoke(context, current.ID, ReasonRotated)
	if err != nil {
		return "", nil, fmt.Errorf("refresh_manager_rotate_revoke_failed: %w", err)
	}
	if !won {
		return "", nil, apperr.Revoked("Refresh token")
	}

	return manager.Issue(context, current.UserID, userAgent, ipAddress)
}

/*
Revoke invalidates a single refresh token by its plaintext.

Description: Idempotent logout primitive. Unknown, expired, and already
revoked tokens are all treated as success.

Parameters:
  - context: context.Context
  - plaintext: string
  - reason: string (audit label)

Returns:
  - err: Storage failures only
*/
func (manager *RefreshTokenManager) Revoke(context context.Context, plaintext, reason string) error {

	current, err := manager.resolve(context, plaintext)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil
		}
		return err
	}

	if current.RevokedAt != nil {
		return nil
	}

	// A lost race here means someone else revoked it, which is the
	// outcome we wanted anyway.
	if _, err := manager.store.Revoke(context, current.ID, reason); err != nil {
		return fmt.Errorf("refresh_manager_revoke_failed: %w", err)
	}

	return nil
}

/*
RevokeAllForUser invalidates every live session of one user.

Parameters:
  - context: context.Context
  - userID: string
  - reason: string (audit label)

Returns:
  - err: Batch revocation failures
*/
func (manager *RefreshTokenManager) RevokeAllForUser(context context.Context, userID, reason string) error {
	if err := manager.store.RevokeAllForUser(context, userID, reason); err != nil {
		return fmt.Errorf("refresh_manager_revoke_all_failed: %w", err)
	}
	return nil
}

/*
RevokeOthers invalidates every live session of one user except the one
presenting the given plaintext token.

Parameters:
  - context: context.Context
  - userID: string
  - plaintext: string (the session to preserve)
  - reason: string (audit label)

Returns:
  - err: Filtered revocation failures
*/
func (manager *RefreshTokenManager) RevokeOthers(context context.Context, userID, plaintext, reason string) error {

	current, err := manager.resolve(context, plaintext)
	if err != nil {
		// No resolvable current session: nuke everything instead of
		// silently keeping a stranger alive.
		if apperr.IsNotFound(err) {
			return manager.RevokeAllForUser(context, userID, reason)
		}
		return err
	}

	if err := manager.store.RevokeOthers(context, userID, current.ID, reason); err != nil {
		return fmt.Errorf("refresh_manager_revoke_others_failed: %w", err)
	}

	return nil
}

/*
ListSessions returns the live sessions of one user, newest first.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - []RefreshToken: Active session records
  - err: Storage failures
*/
func (manager *RefreshTokenManager) ListSessions(context context.Context, userID string) ([]RefreshToken, error) {
	sessions, err := manager.store.FindActiveByUser(context, userID)
	if err != nil {
		return nil, fmt.Errorf("refresh_manager_list_failed: %w", err)
	}
	return sessions, nil
}

// resolve hashes the plaintext and loads its record in any state.
func (manager *RefreshTokenManager) resolve(context context.Context, plaintext string) (*RefreshToken, error) {
	token, err := manager.store.FindByTokenHash(context, manager.codec.Hash(plaintext))
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.NotFound("Refresh token")
		}
		return nil, fmt.Errorf("refresh_manager_resolve_failed: %w", err)
	}
	return token, nil
}
