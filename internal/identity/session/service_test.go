// Copyright (c) 2026 Talentis. All rights reserved.
// Author: platform@talentis.dev

package session_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talentis/talentis/internal/identity/session"
	"github.com/talentis/talentis/internal/platform/apperr"
	"github.com/talentis/talentis/internal/platform/sec"
)

// registerActiveUser runs the full registration flow and returns the
// activated account.
func registerActiveUser(t *testing.T, fixture *sessionFixture, username, email, password string) *session.User {
	t.Helper()
	ctx := context.Background()

	_, err := fixture.service.Register(ctx, session.RegisterInput{
		Username:    username,
		Email:       email,
		Password:    password,
		DisplayName: username,
	})
	require.NoError(t, err)

	code := fixture.mailer.lastSecret("Your verification code is ")
	require.Len(t, code, 6)

	user, err := fixture.service.CompleteRegistration(ctx, email, code)
	require.NoError(t, err)
	require.True(t, user.IsActive)
	return user
}

/*
TestService_Registration walks the OTP-gated enrollment: the account
starts inactive, cannot log in, and activates only after the mailed code
verifies.
*/
func TestService_Registration(t *testing.T) {
	fixture := newSessionFixture(session.DefaultPolicy())
	ctx := context.Background()

	ticket, err := fixture.service.Register(ctx, session.RegisterInput{
		Username:    "ana",
		Email:       "ana@talentis.app",
		Password:    "correct-horse-battery",
		DisplayName: "Ana",
	})
	require.NoError(t, err)
	assert.False(t, ticket.User.IsActive)
	assert.Equal(t, sec.RoleMember, ticket.User.Role)
	assert.True(t, ticket.OtpDelivered)

	// 1. Correct credentials alone do not open a pending account.
	_, err = fixture.service.Login(ctx, session.LoginInput{
		Login:    "ana@talentis.app",
		Password: "correct-horse-battery",
	})
	assert.True(t, apperr.IsCode(err, apperr.CodeForbidden))

	// 2. The mailed code activates the account.
	code := fixture.mailer.lastSecret("Your verification code is ")
	user, err := fixture.service.CompleteRegistration(ctx, "ana@talentis.app", code)
	require.NoError(t, err)
	assert.True(t, user.IsActive)

	// 3. Login now establishes a session with both tokens.
	established, err := fixture.service.Login(ctx, session.LoginInput{
		Login:    "ana@talentis.app",
		Password: "correct-horse-battery",
	})
	require.NoError(t, err)
	assert.Equal(t, "access-"+user.ID, established.AccessToken)
	assert.NotEmpty(t, established.RefreshToken)
}

/*
TestService_RegisterConflicts checks that a taken email or username is
rejected before anything is persisted.
*/
func TestService_RegisterConflicts(t *testing.T) {
	fixture := newSessionFixture(session.DefaultPolicy())
	ctx := context.Background()
	registerActiveUser(t, fixture, "ana", "ana@talentis.app", "correct-horse-battery")

	_, err := fixture.service.Register(ctx, session.RegisterInput{
		Username: "someone-else",
		Email:    "ana@talentis.app",
		Password: "a-password",
	})
	assert.True(t, apperr.IsCode(err, apperr.CodeConflict))

	_, err = fixture.service.Register(ctx, session.RegisterInput{
		Username: "ana",
		Email:    "other@talentis.app",
		Password: "a-password",
	})
	assert.True(t, apperr.IsCode(err, apperr.CodeConflict))
}

/*
TestService_ResendOtp checks the resend guards: no pending registration
and already-verified accounts are both rejected.
*/
func TestService_ResendOtp(t *testing.T) {
	fixture := newSessionFixture(session.DefaultPolicy())
	ctx := context.Background()

	_, err := fixture.service.ResendOtp(ctx, "nobody@talentis.app")
	assert.True(t, apperr.IsCode(err, apperr.CodeNotFound))

	registerActiveUser(t, fixture, "ana", "ana@talentis.app", "correct-horse-battery")
	_, err = fixture.service.ResendOtp(ctx, "ana@talentis.app")
	assert.True(t, apperr.IsCode(err, apperr.CodeConflict))
}

/*
TestService_LoginByUsernameOrEmail confirms both identifier forms resolve
to the same account.
*/
func TestService_LoginByUsernameOrEmail(t *testing.T) {
	fixture := newSessionFixture(session.DefaultPolicy())
	ctx := context.Background()
	user := registerActiveUser(t, fixture, "ana", "ana@talentis.app", "correct-horse-battery")

	byEmail, err := fixture.service.Login(ctx, session.LoginInput{Login: "ana@talentis.app", Password: "correct-horse-battery"})
	require.NoError(t, err)
	byUsername, err := fixture.service.Login(ctx, session.LoginInput{Login: "ana", Password: "correct-horse-battery"})
	require.NoError(t, err)

	assert.Equal(t, user.ID, byEmail.User.ID)
	assert.Equal(t, user.ID, byUsername.User.ID)
}

/*
TestService_LoginLockout drives the account into lockout through wrong
passwords and verifies the lock is checked before the credentials: even
the correct password bounces while locked, and probing never feeds the
counter.
*/
func TestService_LoginLockout(t *testing.T) {
	policy := session.DefaultPolicy()
	policy.LockoutThreshold = 3
	fixture := newSessionFixture(policy)
	ctx := context.Background()
	user := registerActiveUser(t, fixture, "ana", "ana@talentis.app", "correct-horse-battery")

	// 1. Wrong passwords up to the threshold read as bad credentials.
	for i := 0; i < 3; i++ {
		_, err := fixture.service.Login(ctx, session.LoginInput{Login: "ana", Password: "wrong"})
		assert.True(t, apperr.IsCode(err, apperr.CodeInvalidCredentials), "attempt %d", i+1)
	}

	// 2. The lock now precedes the password check.
	_, err := fixture.service.Login(ctx, session.LoginInput{Login: "ana", Password: "correct-horse-battery"})
	assert.True(t, apperr.IsCode(err, apperr.CodeAccountLocked))

	// 3. Probing a locked account must not extend the lock.
	count, err := fixture.lockouts.Count(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	// 4. An unknown identity stays indistinguishable from a bad password.
	_, err = fixture.service.Login(ctx, session.LoginInput{Login: "ghost", Password: "whatever"})
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidCredentials))
}

/*
TestService_LoginSuccessClearsFailures confirms a good login resets the
rolling failure counter.
*/
func TestService_LoginSuccessClearsFailures(t *testing.T) {
	policy := session.DefaultPolicy()
	policy.LockoutThreshold = 3
	fixture := newSessionFixture(policy)
	ctx := context.Background()
	user := registerActiveUser(t, fixture, "ana", "ana@talentis.app", "correct-horse-battery")

	_, err := fixture.service.Login(ctx, session.LoginInput{Login: "ana", Password: "wrong"})
	require.True(t, apperr.IsCode(err, apperr.CodeInvalidCredentials))
	_, err = fixture.service.Login(ctx, session.LoginInput{Login: "ana", Password: "wrong"})
	require.True(t, apperr.IsCode(err, apperr.CodeInvalidCredentials))

	_, err = fixture.service.Login(ctx, session.LoginInput{Login: "ana", Password: "correct-horse-battery"})
	require.NoError(t, err)

	count, err := fixture.lockouts.Count(ctx, user.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

/*
TestService_RefreshSession rotates a live session and checks the old
refresh token is dead while the new pair works.
*/
func TestService_RefreshSession(t *testing.T) {
	fixture := newSessionFixture(session.DefaultPolicy())
	ctx := context.Background()
	user := registerActiveUser(t, fixture, "ana", "ana@talentis.app", "correct-horse-battery")

	established, err := fixture.service.Login(ctx, session.LoginInput{Login: "ana", Password: "correct-horse-battery"})
	require.NoError(t, err)

	renewed, err := fixture.service.RefreshSession(ctx, established.RefreshToken, "Firefox", "203.0.113.7")
	require.NoError(t, err)
	assert.Equal(t, user.ID, renewed.User.ID)
	assert.NotEqual(t, established.RefreshToken, renewed.RefreshToken)

	// The rotated-out token is gone for good.
	_, err = fixture.service.RefreshSession(ctx, established.RefreshToken, "Firefox", "203.0.113.7")
	assert.True(t, apperr.IsCode(err, apperr.CodeRevoked))
}

/*
TestService_RefreshSessionDeactivatedUser checks that a deactivated
account cannot ride an old refresh token back in; the successor minted
during rotation is closed again immediately.
*/
func TestService_RefreshSessionDeactivatedUser(t *testing.T) {
	fixture := newSessionFixture(session.DefaultPolicy())
	ctx := context.Background()
	user := registerActiveUser(t, fixture, "ana", "ana@talentis.app", "correct-horse-battery")

	established, err := fixture.service.Login(ctx, session.LoginInput{Login: "ana", Password: "correct-horse-battery"})
	require.NoError(t, err)

	fixture.users.setActive(user.ID, false)

	_, err = fixture.service.RefreshSession(ctx, established.RefreshToken, "Firefox", "203.0.113.7")
	assert.True(t, apperr.IsCode(err, apperr.CodeUnauthorized))

	// No live session survives the attempt.
	sessions, err := fixture.refresh.ListSessions(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

/*
TestService_Logout checks single-session and all-session logout.
*/
func TestService_Logout(t *testing.T) {
	fixture := newSessionFixture(session.DefaultPolicy())
	ctx := context.Background()
	user := registerActiveUser(t, fixture, "ana", "ana@talentis.app", "correct-horse-battery")

	first, err := fixture.service.Login(ctx, session.LoginInput{Login: "ana", Password: "correct-horse-battery"})
	require.NoError(t, err)
	_, err = fixture.service.Login(ctx, session.LoginInput{Login: "ana", Password: "correct-horse-battery"})
	require.NoError(t, err)

	// 1. Logout kills only the presented session.
	require.NoError(t, fixture.service.Logout(ctx, first.RefreshToken))
	sessions, err := fixture.refresh.ListSessions(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, sessions, 1)

	// 2. Logout everywhere sweeps the rest.
	require.NoError(t, fixture.service.LogoutEverywhere(ctx, user.ID))
	sessions, err = fixture.refresh.ListSessions(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

/*
TestService_PasswordResetFlow runs the forgot-password loop end to end:
token by mail, exactly-once redemption, new password in force, and every
session revoked.
*/
func TestService_PasswordResetFlow(t *testing.T) {
	fixture := newSessionFixture(session.DefaultPolicy())
	ctx := context.Background()
	user := registerActiveUser(t, fixture, "ana", "ana@talentis.app", "correct-horse-battery")

	_, err := fixture.service.Login(ctx, session.LoginInput{Login: "ana", Password: "correct-horse-battery"})
	require.NoError(t, err)

	delivery, err := fixture.service.RequestPasswordReset(ctx, "ana@talentis.app")
	require.NoError(t, err)
	require.True(t, delivery.Delivered)

	token := fixture.mailer.lastSecret("Your reset token is ")
	require.NotEmpty(t, token)

	require.NoError(t, fixture.service.CompletePasswordReset(ctx, token, "new-staple-password"))

	// 1. The old password no longer opens the account.
	_, err = fixture.service.Login(ctx, session.LoginInput{Login: "ana", Password: "correct-horse-battery"})
	assert.True(t, apperr.IsCode(err, apperr.CodeInvalidCredentials))

	// 2. The new one does.
	_, err = fixture.service.Login(ctx, session.LoginInput{Login: "ana", Password: "new-staple-password"})
	assert.NoError(t, err)

	// 3. Sessions from before the reset are gone. (The login above is
	// the only live one.)
	sessions, err := fixture.refresh.ListSessions(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, sessions, 1)

	// 4. The token is single use.
	err = fixture.service.CompletePasswordReset(ctx, token, "yet-another-password")
	assert.True(t, apperr.IsCode(err, apperr.CodeAlreadyUsed))
}

/*
TestService_RequestPasswordResetUnknownEmail verifies enumeration safety:
an unknown address yields a calm non-delivery, never an error or a mail.
*/
func TestService_RequestPasswordResetUnknownEmail(t *testing.T) {
	fixture := newSessionFixture(session.DefaultPolicy())

	delivery, err := fixture.service.RequestPasswordReset(context.Background(), "nobody@talentis.app")
	require.NoError(t, err)
	assert.False(t, delivery.Delivered)
	assert.Zero(t, fixture.mailer.sent())
}

/*
TestService_ChangePassword verifies the authenticated password change:
wrong current password is rejected, and a successful change keeps only
the presenting session alive.
*/
func TestService_ChangePassword(t *testing.T) {
	fixture := newSessionFixture(session.DefaultPolicy())
	ctx := context.Background()
	user := registerActiveUser(t, fixture, "ana", "ana@talentis.app", "correct-horse-battery")

	current, err := fixture.service.Login(ctx, session.LoginInput{Login: "ana", Password: "correct-horse-battery"})
	require.NoError(t, err)
	_, err = fixture.service.Login(ctx, session.LoginInput{Login: "ana", Password: "correct-horse-battery"})
	require.NoError(t, err)

	// 1. The current password is required.
	err = fixture.service.ChangePassword(ctx, user.ID, "wrong", "new-staple-password", current.RefreshToken)
	assert.True(t, apperr.IsCode(err, apperr.CodeUnauthorized))

	// 2. A valid change installs the new hash and sweeps other devices.
	require.NoError(t, fixture.service.ChangePassword(ctx, user.ID, "correct-horse-battery", "new-staple-password", current.RefreshToken))

	sessions, err := fixture.refresh.ListSessions(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	_, err = fixture.service.Login(ctx, session.LoginInput{Login: "ana", Password: "new-staple-password"})
	assert.NoError(t, err)
}
