// Copyright (c) 2026 Talentis. All rights reserved.
// Author: platform@talentis.dev

package session

import (
	"context"
	"time"
)

// # Storage Contracts

// UserRepository defines persistence operations for user accounts.
type UserRepository interface {
	// Create persists a brand new account record.
	Create(context context.Context, user *User) error

	// FindByID resolves an account by primary key.
	FindByID(context context.Context, id string) (*User, error)

	// FindByEmail resolves an account by its unique email address.
	FindByEmail(context context.Context, email string) (*User, error)

	// FindByUsername resolves an account by its unique username.
	FindByUsername(context context.Context, username string) (*User, error)

	// Activate flips the account to active after OTP verification.
	Activate(context context.Context, userID string) error

	// UpdatePassword replaces only the stored password hash.
	UpdatePassword(context context.Context, userID, newHash string) error
}

// OtpRepository defines persistence operations for verification codes.
type OtpRepository interface {
	// Create persists a new code record and, in the same transaction,
	// marks every previously active code for the same email as
	// superseded. At most one live code per address exists afterwards.
	Create(context context.Context, record *OtpRecord) error

	// FindActiveByEmail returns the single non-superseded, non-verified
	// code record for an email address, expired or not. Expiry is the
	// caller's judgement; superseded records are invisible.
	FindActiveByEmail(context context.Context, email string) (*OtpRecord, error)

	// IncrementAttempts bumps the guess counter and returns the new
	// total, so concurrent wrong guesses are counted exactly once each.
	IncrementAttempts(context context.Context, id string) (int, error)

	// MarkVerified conditionally flips the record to verified. It
	// reports false when another request already won the race or the
	// record expired under us.
	MarkVerified(context context.Context, id string, at time.Time) (bool, error)
}

// ResetTokenRepository defines persistence operations for password reset tokens.
type ResetTokenRepository interface {
	// Create persists a new reset token record.
	Create(context context.Context, token *PasswordResetToken) error

	// FindByTokenHash resolves a token record by its keyed hash,
	// regardless of used or expired state.
	FindByTokenHash(context context.Context, tokenHash string) (*PasswordResetToken, error)

	// Consume conditionally marks the token as used. It reports false
	// when the token was already consumed or expired, guaranteeing
	// exactly-once redemption under concurrency.
	Consume(context context.Context, id string, at time.Time) (bool, error)
}

// RefreshTokenRepository defines persistence operations for refresh-token sessions.
type RefreshTokenRepository interface {
	// Create persists a new refresh token record.
	Create(context context.Context, token *RefreshToken) error

	// FindByTokenHash resolves a token record by its keyed hash,
	// regardless of revoked or expired state.
	FindByTokenHash(context context.Context, tokenHash string) (*RefreshToken, error)

	// FindActiveByUser lists the live (unrevoked, unexpired) sessions
	// of one user, newest first.
	FindActiveByUser(context context.Context, userID string) ([]RefreshToken, error)

	// Revoke conditionally marks one token as revoked with an audit
	// reason. It reports false when the token was already revoked or
	// expired, so exactly one concurrent rotation can win.
	Revoke(context context.Context, id, reason string) (bool, error)

	// RevokeAllForUser revokes every live session of one user.
	RevokeAllForUser(context context.Context, userID, reason string) error

	// RevokeOthers revokes every live session of one user except the
	// one identified by keepID.
	RevokeOthers(context context.Context, userID, keepID, reason string) error

	// DeleteExpired physically removes records long past their
	// expiration, reclaiming storage from stale sessions.
	DeleteExpired(context context.Context) error
}

// LockoutRepository tracks failed-login counters with a rolling expiry.
type LockoutRepository interface {
	// Increment bumps the failure counter for an account, starts the
	// rolling window on the first failure, and returns the new total.
	Increment(context context.Context, userID string, window time.Duration) (int, error)

	// Count returns the current failure total, zero when the window
	// has elapsed.
	Count(context context.Context, userID string) (int, error)

	// Reset clears the failure counter.
	Reset(context context.Context, userID string) error
}

// # Delivery Contract

// Notifier delivers lifecycle emails (verification codes, reset links,
// security notices). Delivery is best effort; failures never abort the
// flow that triggered them.
type Notifier interface {
	Send(context context.Context, to, subject, body string) error
}
