// Copyright (c) 2026 Talentis. All rights reserved.
// Author: platform@talentis.dev

package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/talentis/talentis/internal/platform/apperr"
	"github.com/talentis/talentis/internal/platform/sec"
	"github.com/talentis/talentis/pkg/uuid"
)

// # Contracts & Types

// TokenProvider defines the contract for generating signed access tokens.
type TokenProvider interface {
	// GenerateAccessToken creates a signed JWT string for the given user.
	//
	// # Parameters
	//   - userID: The ID of the account.
	//   - username: The username of the account.
	//   - role: The role of the account.
	//   - timeToLive: The duration before the token expires.
	//
	// # Returns
	//   - A signed JWT string, or an err if signing fails.
	GenerateAccessToken(userID, username, role string, timeToLive time.Duration) (string, error)
}

// ServiceDeps bundles the collaborators a [Service] needs.
type ServiceDeps struct {
	Users         UserRepository
	ResetTokens   ResetTokenRepository
	Otp           *OtpManager
	Refresh       *RefreshTokenManager
	Lockout       *LockoutTracker
	Hasher        *sec.PasswordHasher
	Codec         *sec.TokenCodec
	TokenProvider TokenProvider
	Notifier      Notifier
	Policy        Policy
	Logger        *slog.Logger
}

// Service implements the credential lifecycle use cases.
//
// # Review Process
//
// This service is critical for security. Any changes to hashing, lockout,
// or token rotation logic must be reviewed by the security team.
type Service struct {
	users       UserRepository
	resetTokens ResetTokenRepository
	otp         *OtpManager
	refresh     *RefreshTokenManager
	lockout     *LockoutTracker
	hasher      *sec.PasswordHasher
	codec       *sec.TokenCodec
	tokens      TokenProvider
	notifier    Notifier
	policy      Policy
	logger      *slog.Logger
}

// NewService constructs a new [Service] from its dependency bundle.
func NewService(deps ServiceDeps) *Service {
	return &Service{
		users:       deps.Users,
		resetTokens: deps.ResetTokens,
		otp:         deps.Otp,
		refresh:     deps.Refresh,
		lockout:     deps.Lockout,
		hasher:      deps.Hasher,
		codec:       deps.Codec,
		tokens:      deps.TokenProvider,
		notifier:    deps.Notifier,
		policy:      deps.Policy.normalized(),
		logger:      deps.Logger,
	}
}

// # Registration Flow

// RegisterInput holds the data required to enroll a new member.
type RegisterInput struct {
	Username    string
	Email       string
	Password    string
	DisplayName string
}

// RegistrationTicket reports the pending state created by Register.
type RegistrationTicket struct {
	User         *User
	OtpExpiresAt time.Time
	OtpDelivered bool
}

/*
Register creates an inactive account and mails its verification code.

Description: Validates identity uniqueness, hashes the password, persists
the account with IsActive false, and issues the registration OTP. The
account cannot authenticate until CompleteRegistration verifies the code.

Parameters:
  - context: context.Context
  - input: RegisterInput

Returns:
  - *RegistrationTicket: Pending registration state
  - err: Conflict (if identity exists) or storage errors
*/
func (service *Service) Register(context context.Context, input RegisterInput) (*RegistrationTicket, error) {

	// Verify email uniqueness. Return a client-safe Conflict err.
	_, err := service.users.FindByEmail(context, input.Email)
	if err == nil {
		return nil, apperr.Conflict("Email is already registered")
	}

	// Verify username uniqueness. Return a client-safe Conflict err.
	_, err = service.users.FindByUsername(context, input.Username)
	if err == nil {
		return nil, apperr.Conflict("Username is already taken")
	}

	// Prevent storing plain-text passwords. Argon2id parameters balance
	// security against CPU utilization during registration spikes.
	hashedPassword, err := service.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("session_service_hash_failed: %w", err)
	}

	// Construct the new User entity. Time-sortable ID to prevent PG index fragmentation.
	user := &User{
		ID:           uuid.New(),
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hashedPassword,
		DisplayName:  input.DisplayName,
		Role:         sec.RoleMember,
		IsActive:     false,
	}

	if err := service.users.Create(context, user); err != nil {
		return nil, fmt.Errorf("session_service_register_failed: %w", err)
	}

	issuance, err := service.otp.Issue(context, user.Email)
	if err != nil {
		return nil, fmt.Errorf("session_service_register_otp_failed: %w", err)
	}

	return &RegistrationTicket{
		User:         user,
		OtpExpiresAt: issuance.ExpiresAt,
		OtpDelivered: issuance.Delivered,
	}, nil
}

/*
ResendOtp re-issues the registration code for a pending account.

Description: Throttled per address. Already-active accounts are rejected
so the endpoint cannot be used to spam verified users.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - *OtpIssuance: Issuance metadata
  - err: NotFound, Conflict, Throttled, or issuance failures
*/
func (service *Service) ResendOtp(context context.Context, email string) (*OtpIssuance, error) {

	user, err := service.users.FindByEmail(context, email)
	if err != nil {
		return nil, apperr.NotFound("No pending registration for this email")
	}
	if user.IsActive {
		return nil, apperr.Conflict("Account is already verified")
	}

	return service.otp.Resend(context, email)
}

/*
CompleteRegistration verifies the OTP and activates the account.

Description: Delegates the guess budget and expiry rules to the OTP
manager; on success flips the account to active so it can log in.

Parameters:
  - context: context.Context
  - email: string
  - code: string

Returns:
  - *User: The activated account
  - err: OTP verification errors or storage failures
*/
func (service *Service) CompleteRegistration(context context.Context, email, code string) (*User, error) {

	if err := service.otp.Verify(context, email, code); err != nil {
		return nil, err
	}

	user, err := service.users.FindByEmail(context, email)
	if err != nil {
		return nil, fmt.Errorf("session_service_activation_lookup_failed: %w", err)
	}

	if err := service.users.Activate(context, user.ID); err != nil {
		return nil, fmt.Errorf("session_service_activation_failed: %w", err)
	}
	user.IsActive = true

	return user, nil
}

// # Authentication Flow

// LoginInput defines credentials for an authentication attempt.
type LoginInput struct {
	Login     string // Can be Username or Email
	Password  string
	UserAgent string
	IPAddress string
}

// LoginSession represents a successfully established user session.
type LoginSession struct {
	AccessToken           string
	RefreshToken          string
	RefreshTokenExpiresAt time.Time
	User                  *User
}

/*
Login validates user credentials and issues security tokens.

Description: Verifies identity under the brute-force lockout rule. A
locked account is rejected before the password is examined, and probing
a locked account never extends the lock. Wrong passwords feed the
rolling failure counter; a success clears it.

Parameters:
  - context: context.Context
  - input: LoginInput

Returns:
  - *LoginSession: Transport-ready session identifiers
  - err: InvalidCredentials, AccountLocked, or internal failures
*/
func (service *Service) Login(context context.Context, input LoginInput) (*LoginSession, error) {
	var user *User
	var err error
	// Flexible login: look up by Email or Username
	user, err = service.users.FindByEmail(context, input.Login)
	if err != nil {
		user, err = service.users.FindByUsername(context, input.Login)
	}

	// If (err != nil) the user does not exist. Generic message to prevent enumeration.
	if err != nil {
		return nil, apperr.InvalidCredentials()
	}

	// Lock check precedes the password check so a locked account leaks
	// nothing about credential validity.
	locked, err := service.lockout.IsLocked(context, user.ID)
	if err != nil {
		return nil, fmt.Errorf("session_service_lock_check_failed: %w", err)
	}
	if locked {
		return nil, apperr.AccountLocked()
	}

	if !service.hasher.Verify(input.Password, user.PasswordHash) {
		if _, err := service.lockout.RecordFailure(context, user.ID); err != nil {
			service.logger.ErrorContext(context, "failed to record login failure", "user_id", user.ID, "error", err)
		}
		return nil, apperr.InvalidCredentials()
	}

	// Pending accounts hold correct credentials but cannot authenticate
	// until their email is verified.
	if !user.IsActive {
		return nil, apperr.Forbidden("Account is not active. Complete email verification first.")
	}

	if err := service.lockout.RecordSuccess(context, user.ID); err != nil {
		service.logger.ErrorContext(context, "failed to clear login failures", "user_id", user.ID, "error", err)
	}

	return service.establishSession(context, user, input.UserAgent, input.IPAddress)
}

/*
RefreshSession implements the refresh token rotation mechanism.

Description: Rotates the presented refresh token (exactly one concurrent
rotation wins) and issues a fresh access/refresh pair bound to the same
user.

Parameters:
  - context: context.Context
  - refreshToken: string
  - userAgent: string
  - ipAddress: string

Returns:
  - *LoginSession: New session credentials
  - err: NotFound, Expired, Revoked, or storage failures
*/
func (service *Service) RefreshSession(context context.Context, refreshToken, userAgent, ipAddress string) (*LoginSession, error) {

	newPlaintext, newToken, err := service.refresh.Rotate(context, refreshToken, userAgent, ipAddress)
	if err != nil {
		return nil, err
	}

	user, err := service.users.FindByID(context, newToken.UserID)
	if err != nil || !user.IsActive {
		// The account vanished or was deactivated mid-session. Close the
		// door we just opened.
		_ = service.refresh.Revoke(context, newPlaintext, ReasonDeactivated)
		return nil, apperr.Unauthorized("User not found or suspended")
	}

	accessToken, err := service.tokens.GenerateAccessToken(user.ID, user.Username, string(user.Role), service.policy.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("session_service_refresh_access_token_failed: %w", err)
	}

	return &LoginSession{
		AccessToken:           accessToken,
		RefreshToken:          newPlaintext,
		RefreshTokenExpiresAt: newToken.ExpiresAt,
		User:                  user,
	}, nil
}

/*
Logout permanently revokes the presented refresh token.

Description: Idempotent. Unknown, expired, and already revoked tokens
all yield success.

Parameters:
  - context: context.Context
  - refreshToken: string

Returns:
  - err: Revocation failures
*/
func (service *Service) Logout(context context.Context, refreshToken string) error {
	if err := service.refresh.Revoke(context, refreshToken, ReasonLogout); err != nil {
		return fmt.Errorf("session_service_logout_failed: %w", err)
	}
	return nil
}

/*
LogoutEverywhere revokes every live session of the user.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - err: Batch revocation failures
*/
func (service *Service) LogoutEverywhere(context context.Context, userID string) error {
	if err := service.refresh.RevokeAllForUser(context, userID, ReasonLogoutAll); err != nil {
		return fmt.Errorf("session_service_logout_everywhere_failed: %w", err)
	}
	return nil
}

// # Password Recovery

// ResetDelivery reports the outcome of a password reset request.
type ResetDelivery struct {
	Email     string
	ExpiresAt time.Time
	Delivered bool
}

/*
RequestPasswordReset initiates the forgot-password flow.

Description: Generates a single-use token and mails it to the account.
An unknown email yields the same outward result as a known one to
prevent user enumeration.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - *ResetDelivery: Delivery metadata (never exposes the token)
  - err: Generation or storage errors; never NotFound
*/
func (service *Service) RequestPasswordReset(context context.Context, email string) (*ResetDelivery, error) {
	// NOTE: We don't return NOT_FOUND if the email doesn't exist to prevent user enumeration.
	user, err := service.users.FindByEmail(context, email)
	if err != nil {
		return &ResetDelivery{Email: email, Delivered: false}, nil
	}

	plaintext, tokenHash, err := service.codec.GenerateToken(service.policy.ResetTokenLength)
	if err != nil {
		return nil, fmt.Errorf("session_service_generate_reset_token_failed: %w", err)
	}

	now := time.Now()
	token := &PasswordResetToken{
		ID:        uuid.New(),
		UserID:    user.ID,
		TokenHash: tokenHash,
		CreatedAt: now,
		ExpiresAt: now.Add(service.policy.ResetTokenTTL),
	}

	if err := service.resetTokens.Create(context, token); err != nil {
		return nil, fmt.Errorf("session_service_save_reset_token_failed: %w", err)
	}

	delivery := &ResetDelivery{Email: email, ExpiresAt: token.ExpiresAt, Delivered: true}

	subject := "Reset your Talentis password"
	body := fmt.Sprintf(
		"We received a request to reset your password.\r\n\r\nYour reset token is %s.\r\n\r\nIt expires in %d minutes and can be used once. If you did not request a reset, you can ignore this email.",
		plaintext, int(service.policy.ResetTokenTTL.Minutes()),
	)
	if err := service.notifier.Send(context, email, subject, body); err != nil {
		service.logger.WarnContext(context, "reset email delivery failed", "email", email, "error", err)
		delivery.Delivered = false
	}

	return delivery, nil
}

/*
CompletePasswordReset redeems a reset token and installs a new password.

Description: Verifies the token state, consumes it exactly once via a
conditional update, rewrites the password hash, and revokes every live
session so stolen refresh tokens die with the old password.

Parameters:
  - context: context.Context
  - token: string
  - newPassword: string

Returns:
  - err: NotFound, Expired, AlreadyUsed, or storage failures
*/
func (service *Service) CompletePasswordReset(context context.Context, token, newPassword string) error {

	record, err := service.resetTokens.FindByTokenHash(context, service.codec.Hash(token))
	if err != nil {
		if apperr.IsNotFound(err) {
			return apperr.NotFound("Reset token")
		}
		return fmt.Errorf("session_service_reset_lookup_failed: %w", err)
	}

	if record.Used {
		return apperr.AlreadyUsed("Reset token")
	}
	if time.Now().After(record.ExpiresAt) {
		return apperr.Expired("Reset token")
	}

	// Exactly-once redemption: the conditional update has one winner.
	won, err := service.resetTokens.Consume(context, record.ID, time.Now())
	if err != nil {
		return fmt.Errorf("session_service_reset_consume_failed: %w", err)
	}
	if !won {
		return apperr.AlreadyUsed("Reset token")
	}

	hashedPassword, err := service.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("session_service_reset_hash_failed: %w", err)
	}

	if err := service.users.UpdatePassword(context, record.UserID, hashedPassword); err != nil {
		return fmt.Errorf("session_service_reset_update_failed: %w", err)
	}

	// Security Cleanup: revoke EVERY active session for this user.
	_ = service.refresh.RevokeAllForUser(context, record.UserID, ReasonPasswordReset)

	// A compromised account's owner should hear about the change.
	service.notifySecurityEvent(context, record.UserID, "Your Talentis password was changed",
		"Your password was just reset. If this was not you, contact support immediately.")

	return nil
}

/*
ChangePassword allows an authenticated user to update their credentials.

Description: Verifies the current password, installs the new hash, and
revokes all OTHER refresh sessions so stale devices must log in again.

Parameters:
  - context: context.Context
  - userID: string
  - currentPassword: string
  - newPassword: string
  - currentRefreshToken: string

Returns:
  - err: Unauthorized or storage failures
*/
func (service *Service) ChangePassword(context context.Context, userID, currentPassword, newPassword, currentRefreshToken string) error {

	user, err := service.users.FindByID(context, userID)
	if err != nil {
		return err
	}

	if !service.hasher.Verify(currentPassword, user.PasswordHash) {
		return apperr.Unauthorized("Current password is incorrect")
	}

	hashedPassword, err := service.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("session_service_change_password_hash_failed: %w", err)
	}

	if err := service.users.UpdatePassword(context, userID, hashedPassword); err != nil {
		return fmt.Errorf("session_service_change_password_update_failed: %w", err)
	}

	// Security Side Effect: force re-login on every other device.
	_ = service.refresh.RevokeOthers(context, userID, currentRefreshToken, ReasonPasswordChanged)

	service.notifySecurityEvent(context, userID, "Your Talentis password was changed",
		"Your password was just changed. If this was not you, contact support immediately.")

	return nil
}

// # Internals

// establishSession mints the access/refresh pair for a verified login.
func (service *Service) establishSession(context context.Context, user *User, userAgent, ipAddress string) (*LoginSession, error) {

	accessToken, err := service.tokens.GenerateAccessToken(user.ID, user.Username, string(user.Role), service.policy.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("session_service_token_generation_failed: %w", err)
	}

	refreshPlaintext, refreshToken, err := service.refresh.Issue(context, user.ID, userAgent, ipAddress)
	if err != nil {
		return nil, fmt.Errorf("session_service_refresh_token_failed: %w", err)
	}

	return &LoginSession{
		AccessToken:           accessToken,
		RefreshToken:          refreshPlaintext,
		RefreshTokenExpiresAt: refreshToken.ExpiresAt,
		User:                  user,
	}, nil
}

// notifySecurityEvent mails a best-effort security notice to the account owner.
func (service *Service) notifySecurityEvent(context context.Context, userID, subject, body string) {
	user, err := service.users.FindByID(context, userID)
	if err != nil {
		return
	}
	if err := service.notifier.Send(context, user.Email, subject, body); err != nil {
		service.logger.WarnContext(context, "security notice delivery failed", "user_id", userID, "error", err)
	}
}
