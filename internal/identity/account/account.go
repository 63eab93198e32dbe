// Copyright (c) 2026 Talentis. All rights reserved.
// Author: platform@talentis.dev

/*
Package account handles user profile management, administration, and
session visibility.

It provides functionalities for users to view and update their private
identity data and manage their active device sessions, and for
administrators to list, unlock, and deactivate accounts.

# Architecture

  - Entities: SessionInfo (DTO), ListFilter.
  - Domain: This package depends on the session package for the User entity.
  - Security: Provides session transparency and revocation mechanisms.
*/
package account

import (
	"context"
	"time"

	"github.com/talentis/talentis/internal/identity/session"
	"github.com/talentis/talentis/pkg/pagination"
)

// # Domain Entities

// SessionInfo provides a safety-mapped view of an active user session.
// It omits sensitive token hashes for transport.
type SessionInfo struct {
	ID         string    `json:"id"`
	DeviceName string    `json:"device_name"` // e.g. "Chrome on Windows"
	IPAddress  string    `json:"ip_address"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	IsCurrent  bool      `json:"is_current"` // True if this session belongs to the current request
}

// ListFilter narrows the admin account listing.
type ListFilter struct {
	Roles    []string // Empty means every role.
	IsActive *bool    // Nil means both active and pending accounts.
	Search   string   // Matches username, email, or display name.
}

// # Repository Contracts

// AccountRepository defines the persistence contract for account administration.
type AccountRepository interface {
	/*
		FindByID retrieves a user record by their unique ID.

		Parameters:
		  - context: context.Context
		  - id: string (UUID)

		Returns:
		  - *session.User: Loaded account entity
		  - error: apperr.NotFound or storage failures
	*/
	FindByID(context context.Context, id string) (*session.User, error)

	/*
		Update modifies the mutable profile fields of an existing user.

		Parameters:
		  - context: context.Context
		  - user: *session.User (Hydrated entity with changes)

		Returns:
		  - error: Storage or constraint failures
	*/
	Update(context context.Context, user *session.User) error

	/*
		List returns a page of accounts matching the filter, plus the
		total match count for pagination metadata.

		Parameters:
		  - context: context.Context
		  - filter: ListFilter
		  - params: pagination.Params

		Returns:
		  - []session.User: The requested page
		  - int: Total matching accounts
		  - error: Query failures
	*/
	List(context context.Context, filter ListFilter, params pagination.Params) ([]session.User, int, error)

	/*
		Deactivate flips an account to inactive so it can no longer
		authenticate or refresh sessions.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - error: Execution failures
	*/
	Deactivate(context context.Context, id string) error
}

// SessionDirectory defines the visibility and revocation contract for
// a user's device sessions.
type SessionDirectory interface {
	/*
		FindActiveByUserID lists all valid, non-expired sessions for a user.

		Parameters:
		  - context: context.Context
		  - userID: string

		Returns:
		  - []session.RefreshToken: Active session records
		  - error: Retrieval errors
	*/
	FindActiveByUserID(context context.Context, userID string) ([]session.RefreshToken, error)

	/*
		Revoke marks a specific session as revoked.

		Parameters:
		  - context: context.Context
		  - userID: string (Security constraint: owner validation)
		  - sessionID: string
		  - reason: string

		Returns:
		  - error: Revocation failures
	*/
	Revoke(context context.Context, userID, sessionID, reason string) error

	/*
		RevokeOthers revokes all active sessions except for a target session.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - currentSessionID: string (The whitelist target)
		  - reason: string

		Returns:
		  - error: Revocation failures
	*/
	RevokeOthers(context context.Context, userID, currentSessionID, reason string) error

	/*
		RevokeAll terminates every session for a user.

		Parameters:
		  - context: context.Context
		  - userID: string
		  - reason: string

		Returns:
		  - error: Revocation failures
	*/
	RevokeAll(context context.Context, userID, reason string) error
}
