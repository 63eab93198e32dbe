// Copyright (c) 2026 Talentis. All rights reserved.
// Author: platform@talentis.dev

package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talentis/talentis/internal/identity/session"
	"github.com/talentis/talentis/internal/platform/apperr"
)

/*
TestRefreshManager_IssueAndRotate covers the rotation happy path: the old
token dies with an audit reason and a successor for the same user is born.
*/
func TestRefreshManager_IssueAndRotate(t *testing.T) {
	fixture := newSessionFixture(session.DefaultPolicy())
	ctx := context.Background()

	plaintext, token, err := fixture.refresh.Issue(ctx, "user-1", "Firefox", "203.0.113.7")
	require.NoError(t, err)
	require.NotEmpty(t, plaintext)
	assert.Equal(t, "user-1", token.UserID)
	assert.Nil(t, token.RevokedAt)

	successor, successorToken, err := fixture.refresh.Rotate(ctx, plaintext, "Firefox", "203.0.113.7")
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, successor)
	assert.Equal(t, "user-1", successorToken.UserID)

	// The predecessor carries the rotation audit label.
	assert.Equal(t, session.ReasonRotated, fixture.refreshes.reasonFor(token.TokenHash))

	// The predecessor can never rotate again.
	_, _, err = fixture.refresh.Rotate(ctx, plaintext, "Firefox", "203.0.113.7")
	assert.True(t, apperr.IsCode(err, apperr.CodeRevoked))
}

/*
TestRefreshManager_RotateExpired checks that a token past its TTL is
rejected with an expiry error and produces no successor.
*/
func TestRefreshManager_RotateExpired(t *testing.T) {
	policy := session.DefaultPolicy()
	policy.RefreshTokenTTL = 20 * time.Millisecond
	fixture := newSessionFixture(policy)
	ctx := context.Background()

	plaintext, _, err := fixture.refresh.Issue(ctx, "user-1", "Firefox", "203.0.113.7")
	require.NoError(t, err)

	time.Sleep(40 * time.Millisecond)

	_, _, err = fixture.refresh.Rotate(ctx, plaintext, "Firefox", "203.0.113.7")
	assert.True(t, apperr.IsCode(err, apperr.CodeExpired))
}

/*
TestRefreshManager_RotateUnknown checks that a fabricated token resolves
to nothing.
*/
func TestRefreshManager_RotateUnknown(t *testing.T) {
	fixture := newSessionFixture(session.DefaultPolicy())

	_, _, err := fixture.refresh.Rotate(context.Background(), "not-a-real-token", "Firefox", "203.0.113.7")
	assert.True(t, apperr.IsCode(err, apperr.CodeNotFound))
}

/*
TestRefreshManager_RevokeIdempotent exercises the logout primitive: a
live token revokes, and unknown or already revoked tokens are success.
*/
func TestRefreshManager_RevokeIdempotent(t *testing.T) {
	fixture := newSessionFixture(session.DefaultPolicy())
	ctx := context.Background()

	plaintext, token, err := fixture.refresh.Issue(ctx, "user-1", "Firefox", "203.0.113.7")
	require.NoError(t, err)

	// 1. First revocation lands with its audit reason.
	require.NoError(t, fixture.refresh.Revoke(ctx, plaintext, session.ReasonLogout))
	assert.Equal(t, session.ReasonLogout, fixture.refreshes.reasonFor(token.TokenHash))

	// 2. Revoking again is a no-op, not an error.
	require.NoError(t, fixture.refresh.Revoke(ctx, plaintext, session.ReasonLogout))

	// 3. An unknown token is also success.
	require.NoError(t, fixture.refresh.Revoke(ctx, "not-a-real-token", session.ReasonLogout))
}

/*
TestRefreshManager_RevokeOthers verifies that a password change style
sweep keeps exactly the presenting session alive.
*/
func TestRefreshManager_RevokeOthers(t *testing.T) {
	fixture := newSessionFixture(session.DefaultPolicy())
	ctx := context.Background()

	keep, keepToken, err := fixture.refresh.Issue(ctx, "user-1", "Firefox", "203.0.113.7")
	require.NoError(t, err)
	_, _, err = fixture.refresh.Issue(ctx, "user-1", "Safari", "203.0.113.8")
	require.NoError(t, err)
	_, _, err = fixture.refresh.Issue(ctx, "user-1", "Edge", "203.0.113.9")
	require.NoError(t, err)

	require.NoError(t, fixture.refresh.RevokeOthers(ctx, "user-1", keep, session.ReasonPasswordChanged))

	sessions, err := fixture.refresh.ListSessions(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, keepToken.ID, sessions[0].ID)
}

/*
TestRefreshManager_RevokeOthersUnresolvable checks the safety fallback:
when the presented token resolves to nothing, every session dies rather
than leaving an unidentified one alive.
*/
func TestRefreshManager_RevokeOthersUnresolvable(t *testing.T) {
	fixture := newSessionFixture(session.DefaultPolicy())
	ctx := context.Background()

	_, _, err := fixture.refresh.Issue(ctx, "user-1", "Firefox", "203.0.113.7")
	require.NoError(t, err)
	_, _, err = fixture.refresh.Issue(ctx, "user-1", "Safari", "203.0.113.8")
	require.NoError(t, err)

	require.NoError(t, fixture.refresh.RevokeOthers(ctx, "user-1", "not-a-real-token", session.ReasonPasswordChanged))

	sessions, err := fixture.refresh.ListSessions(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

/*
TestRefreshManager_RevokeAllForUser confirms the logout-everywhere sweep
only touches the targeted user.
*/
func TestRefreshManager_RevokeAllForUser(t *testing.T) {
	fixture := newSessionFixture(session.DefaultPolicy())
	ctx := context.Background()

	_, _, err := fixture.refresh.Issue(ctx, "user-1", "Firefox", "203.0.113.7")
	require.NoError(t, err)
	_, _, err = fixture.refresh.Issue(ctx, "user-1", "Safari", "203.0.113.8")
	require.NoError(t, err)
	_, other, err := fixture.refresh.Issue(ctx, "user-2", "Firefox", "203.0.113.9")
	require.NoError(t, err)

	require.NoError(t, fixture.refresh.RevokeAllForUser(ctx, "user-1", session.ReasonLogoutAll))

	mine, err := fixture.refresh.ListSessions(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, mine)

	theirs, err := fixture.refresh.ListSessions(ctx, "user-2")
	require.NoError(t, err)
	require.Len(t, theirs, 1)
	assert.Equal(t, other.ID, theirs[0].ID)
}
