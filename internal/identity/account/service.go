// Copyright (c) 2026 Talentis. All rights reserved.
// Author: platform@talentis.dev

package account

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/talentis/talentis/internal/identity/session"
	"github.com/talentis/talentis/pkg/pagination"
	"github.com/talentis/talentis/pkg/slice"
)

// # Service Layer

// Service orchestrates business logic for account profiles, device
// sessions, and administrative interventions.
type Service struct {
	accountRepository AccountRepository
	sessionDirectory  SessionDirectory
	lockoutTracker    *session.LockoutTracker
	logger            *slog.Logger
}

// NewService constructs a new [Service] with its repository dependencies.
func NewService(
	accountRepo AccountRepository,
	sessionDir SessionDirectory,
	lockout *session.LockoutTracker,
	logger *slog.Logger,
) *Service {
	return &Service{
		accountRepository: accountRepo,
		sessionDirectory:  sessionDir,
		lockoutTracker:    lockout,
		logger:            logger,
	}
}

// # Profile Management

/*
GetProfile retrieves the full private identity of a user.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - *session.User: The hydrated user profile
  - error: Not found or execution failures
*/
func (service *Service) GetProfile(context context.Context, userID string) (*session.User, error) {
	user, err := service.accountRepository.FindByID(context, userID)
	if err != nil {
		return nil, fmt.Errorf("account_service_get_profile_failed: %w", err)
	}
	return user, nil
}

// UpdateProfileInput defines the mutable subset of user profile fields.
type UpdateProfileInput struct {
	DisplayName *string
}

/*
UpdateProfile applies a partial set of changes to a user's account metadata.

Description: Fetches the existing user state, overrides provided fields,
and synchronizes the change to persistent storage.

Parameters:
  - context: context.Context
  - userID: string
  - input: UpdateProfileInput

Returns:
  - *session.User: The updated user profile
  - error: Update or storage failures
*/
func (service *Service) UpdateProfile(context context.Context, userID string, input UpdateProfileInput) (*session.User, error) {

	user, err := service.accountRepository.FindByID(context, userID)
	if err != nil {
		return nil, fmt.Errorf("account_service_update_lookup_failed: %w", err)
	}

	// Apply delta updates
	if input.DisplayName != nil {
		user.DisplayName = *input.DisplayName
	}

	if err := service.accountRepository.Update(context, user); err != nil {
		return nil, fmt.Errorf("account_service_update_failed: %w", err)
	}

	service.logger.Info("user_profile_updated", slog.String("user_id", userID))

	return user, nil
}

// # Session Security

/*
ListSessions provides a list of all active device sessions for the user.

Description: Maps raw session records into transport-safe DTOs and flags
the session matching the caller's own token hash as current.

Parameters:
  - context: context.Context
  - userID: string
  - currentTokenHash: string (Optional identifying hash of the current session)

Returns:
  - []SessionInfo: List of active devices
  - error: Retrieval failures
*/
func (service *Service) ListSessions(context context.Context, userID, currentTokenHash string) ([]SessionInfo, error) {

	sessions, err := service.sessionDirectory.FindActiveByUserID(context, userID)
	if err != nil {
		return nil, fmt.Errorf("account_service_list_sessions_failed: %w", err)
	}

	return slice.Map(sessions, func(token session.RefreshToken) SessionInfo {
		return SessionInfo{
			ID:         token.ID,
			DeviceName: token.UserAgent,
			IPAddress:  token.IPAddress,
			CreatedAt:  token.CreatedAt,
			ExpiresAt:  token.ExpiresAt,
			IsCurrent:  currentTokenHash != "" && token.TokenHash == currentTokenHash,
		}
	}), nil
}

/*
RevokeSession terminates a specific user session by its ID.

Parameters:
  - context: context.Context
  - userID: string
  - sessionID: string

Returns:
  - error: Revocation failures
*/
func (service *Service) RevokeSession(context context.Context, userID, sessionID string) error {
	if err := service.sessionDirectory.Revoke(context, userID, sessionID, session.ReasonDeviceRevoked); err != nil {
		return fmt.Errorf("account_service_revoke_session_failed: %w", err)
	}

	service.logger.Info("user_session_revoked",
		slog.String("user_id", userID),
		slog.String("session_id", sessionID),
	)

	return nil
}

/*
RevokeOtherSessions terminates all sessions except for the current active one.

Parameters:
  - context: context.Context
  - userID: string
  - currentSessionID: string

Returns:
  - error: Revocation failures
*/
func (service *Service) RevokeOtherSessions(context context.Context, userID, currentSessionID string) error {
	if err := service.sessionDirectory.RevokeOthers(context, userID, currentSessionID, session.ReasonDeviceRevoked); err != nil {
		return fmt.Errorf("account_service_revoke_others_failed: %w", err)
	}

	service.logger.Info("user_other_sessions_revoked", slog.String("user_id", userID))

	return nil
}

// # Administration

// AccountPage is the paginated result of an admin listing.
type AccountPage struct {
	Accounts []session.User
	Meta     pagination.Meta
}

/*
ListAccounts returns a filtered, paginated view of the account base.

Parameters:
  - context: context.Context
  - filter: ListFilter
  - params: pagination.Params

Returns:
  - *AccountPage: The requested page with metadata
  - error: Query failures
*/
func (service *Service) ListAccounts(context context.Context, filter ListFilter, params pagination.Params) (*AccountPage, error) {

	accounts, total, err := service.accountRepository.List(context, filter, params)
	if err != nil {
		return nil, fmt.Errorf("account_service_list_failed: %w", err)
	}

	return &AccountPage{
		Accounts: accounts,
		Meta:     pagination.NewMeta(params.Page, params.Limit, total),
	}, nil
}

/*
UnlockAccount clears an account's brute-force lock ahead of the window.

Description: Administrative intervention for a legitimate user locked
out by an attacker hammering their username.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - error: NotFound or counter storage failures
*/
func (service *Service) UnlockAccount(context context.Context, userID string) error {

	// Confirm the target exists before clearing anything.
	if _, err := service.accountRepository.FindByID(context, userID); err != nil {
		return err
	}

	if err := service.lockoutTracker.Unlock(context, userID); err != nil {
		return fmt.Errorf("account_service_unlock_failed: %w", err)
	}

	service.logger.Info("user_account_unlocked", slog.String("user_id", userID))

	return nil
}

/*
DeactivateAccount disables an account and terminates its sessions.

Description: Flips the account to inactive and immediately revokes every
active session to force a global sign-out. The account can no longer
log in or refresh.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - error: Execution failures
*/
func (service *Service) DeactivateAccount(context context.Context, userID string) error {

	if err := service.accountRepository.Deactivate(context, userID); err != nil {
		return fmt.Errorf("account_service_deactivate_failed: %w", err)
	}

	// Force global revocation of sessions for the disabled account
	_ = service.sessionDirectory.RevokeAll(context, userID, session.ReasonDeactivated)

	service.logger.Warn("user_account_deactivated", slog.String("user_id", userID))

	return nil
}
