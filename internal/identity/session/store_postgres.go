// Copyright (c) 2026 Talentis. All rights reserved.
// Author: platform@talentis.dev

// PostgreSQL implementations of the session storage contracts.
//
// # Architecture
//
// Repositories here are strictly separated from domain logic. They
// implement the domain-defined interfaces using the [pgxpool.Pool]
// connection manager.
//
// # err Mapping
//
// Storage-specific errors (like pgx.ErrNoRows) are mapped to
// domain-friendly [apperr.AppError] types to avoid leaking storage
// implementation details. Single-winner rules (OTP consumption, reset
// redemption, rotation) are enforced with conditional UPDATEs whose
// RowsAffected count decides the race.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/talentis/talentis/internal/platform/apperr"
	"github.com/talentis/talentis/internal/platform/dberr"
)

// # User Repository

// PostgresUserRepository implements the UserRepository interface using pgx.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository creates a new PostgreSQL implementation of the UserRepository.
func NewUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

/*
Create persists a new user record into the identity.account table.

Description: Deep-persists account metadata, ensuring timestamps are
initialized if not provided. Unique violations on username or email
surface as client-safe Conflict errors.

Parameters:
  - context: context.Context
  - user: *User (Entity to persist)

Returns:
  - error: Conflict on duplicate identity, or connectivity errors
*/
func (repository *PostgresUserRepository) Create(context context.Context, user *User) error {
	const query = `
		INSERT INTO identity.account (
			id, username, email, passwordhash, displayname, role, isactive, createdat, updatedat
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	_, err := repository.pool.Exec(context, query,
		user.ID,
		user.Username,
		user.Email,
		user.PasswordHash,
		user.DisplayName,
		user.Role,
		user.IsActive,
		user.CreatedAt,
		user.UpdatedAt,
	)

	if err != nil {
		if dberr.IsUniqueViolation(err) {
			return apperr.Conflict("Username or email is already registered")
		}
		return fmt.Errorf("postgres_user_repo_create_failed: %w", err)
	}

	return nil
}

/*
FindByID retrieves a user record by their unique ID.

Parameters:
  - context: context.Context
  - id: string (UUIDv7)

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or execution errors
*/
func (repository *PostgresUserRepository) FindByID(context context.Context, id string) (*User, error) {
	const query = `
		SELECT id, username, email, passwordhash, displayname, role, isactive, createdat, updatedat
		FROM identity.account
		WHERE id = $1`

	return repository.scanOne(context, query, id, "User not found")
}

/*
FindByEmail retrieves a user record by their unique email address.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or execution errors
*/
func (repository *PostgresUserRepository) FindByEmail(context context.Context, email string) (*User, error) {
	const query = `
		SELECT id, username, email, passwordhash, displayname, role, isactive, createdat, updatedat
		FROM identity.account
		WHERE email = $1`

	return repository.scanOne(context, query, email, "User not found with this email")
}

/*
FindByUsername retrieves a user record by their unique username.

Parameters:
  - context: context.Context
  - username: string

Returns:
  - *User: Hydrated account entity
  - error: apperr.NotFound or execution errors
*/
func (repository *PostgresUserRepository) FindByUsername(context context.Context, username string) (*User, error) {
	const query = `
		SELECT id, username, email, passwordhash, displayname, role, isactive, createdat, updatedat
		FROM identity.account
		WHERE username = $1`

	return repository.scanOne(context, query, username, "User not found with this username")
}

/*
Activate flips an account to active after its OTP has been verified.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - error: Execution errors
*/
func (repository *PostgresUserRepository) Activate(context context.Context, userID string) error {
	const query = "UPDATE identity.account SET isactive = TRUE, updatedat = $2 WHERE id = $1"
	_, err := repository.pool.Exec(context, query, userID, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_user_repo_activate_failed: %w", err)
	}
	return nil
}

/*
UpdatePassword updates only the password hash for a specific user.

Parameters:
  - context: context.Context
  - userID: string
  - newHash: string

Returns:
  - error: Execution errors
*/
func (repository *PostgresUserRepository) UpdatePassword(context context.Context, userID, newHash string) error {
	const query = `
		UPDATE identity.account
		SET passwordhash = $2, updatedat = $3
		WHERE id = $1`

	_, err := repository.pool.Exec(context, query, userID, newHash, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_user_repo_update_password_failed: %w", err)
	}

	return nil
}

// scanOne runs a single-row account query with a uniform scan order.
func (repository *PostgresUserRepository) scanOne(context context.Context, query, argument, notFoundMessage string) (*User, error) {
	user := &User{}
	err := repository.pool.QueryRow(context, query, argument).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.DisplayName,
		&user.Role,
		&user.IsActive,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(notFoundMessage)
		}
		return nil, fmt.Errorf("postgres_user_repo_find_failed: %w", err)
	}

	return user, nil
}

// # OTP Repository

// PostgresOtpRepository implements the OtpRepository interface.
type PostgresOtpRepository struct {
	pool *pgxpool.Pool
}

// NewOtpRepository creates a new PostgreSQL implementation of OtpRepository.
func NewOtpRepository(pool *pgxpool.Pool) *PostgresOtpRepository {
	return &PostgresOtpRepository{pool: pool}
}

/*
Create persists a new code record, superseding older ones atomically.

Description: Runs inside a single transaction so at most one live code
per email can ever be observed: the supersede UPDATE and the INSERT
commit or roll back together.

Parameters:
  - context: context.Context
  - record: *OtpRecord

Returns:
  - error: Transaction failures
*/
func (repository *PostgresOtpRepository) Create(context context.Context, record *OtpRecord) error {
	transaction, err := repository.pool.Begin(context)
	if err != nil {
		return fmt.Errorf("postgres_otp_repo_begin_failed: %w", err)
	}
	defer transaction.Rollback(context)

	const supersede = `
		UPDATE identity.otp
		SET superseded = TRUE
		WHERE email = $1 AND superseded = FALSE AND verified = FALSE`

	if _, err := transaction.Exec(context, supersede, record.Email); err != nil {
		return fmt.Errorf("postgres_otp_repo_supersede_failed: %w", err)
	}

	const insert = `
		INSERT INTO identity.otp (
			id, email, codehash, attempts, verified, superseded, createdat, expiresat
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	_, err = transaction.Exec(context, insert,
		record.ID,
		record.Email,
		record.CodeHash,
		record.Attempts,
		record.Verified,
		record.Superseded,
		record.CreatedAt,
		record.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("postgres_otp_repo_insert_failed: %w", err)
	}

	if err := transaction.Commit(context); err != nil {
		return fmt.Errorf("postgres_otp_repo_commit_failed: %w", err)
	}

	return nil
}

/*
FindActiveByEmail returns the live code record for an email address.

Description: Superseded and verified records are invisible. Expired
records are still returned; expiry is a domain judgement, not a storage
filter, so the caller can distinguish Expired from NotFound.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - *OtpRecord: Hydrated code record
  - error: apperr.NotFound or execution errors
*/
func (repository *PostgresOtpRepository) FindActiveByEmail(context context.Context, email string) (*OtpRecord, error) {
	const query = `
		SELECT id, email, codehash, attempts, verified, superseded, createdat, expiresat, verifiedat
		FROM identity.otp
		WHERE email = $1 AND superseded = FALSE AND verified = FALSE
		ORDER BY createdat DESC
		LIMIT 1`

	record := &OtpRecord{}
	err := repository.pool.QueryRow(context, query, email).Scan(
		&record.ID,
		&record.Email,
		&record.CodeHash,
		&record.Attempts,
		&record.Verified,
		&record.Superseded,
		&record.CreatedAt,
		&record.ExpiresAt,
		&record.VerifiedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Verification code not found")
		}
		return nil, fmt.Errorf("postgres_otp_repo_find_failed: %w", err)
	}

	return record, nil
}

/*
IncrementAttempts bumps the guess counter and returns the new total.

Description: The counter moves inside the database, so two concurrent
wrong guesses each count once and each observe a distinct total.

Parameters:
  - context: context.Context
  - id: string

Returns:
  - int: Post-increment attempt count
  - error: Execution errors
*/
func (repository *PostgresOtpRepository) IncrementAttempts(context context.Context, id string) (int, error) {
	const query = `
		UPDATE identity.otp
		SET attempts = attempts + 1
		WHERE id = $1
		RETURNING attempts`

	var attempts int
	if err := repository.pool.QueryRow(context, query, id).Scan(&attempts); err != nil {
		return 0, fmt.Errorf("postgres_otp_repo_increment_failed: %w", err)
	}

	return attempts, nil
}

/*
MarkVerified conditionally consumes a code record.

Description: The WHERE clause only matches an unverified, unexpired
record, so exactly one concurrent verification can flip it.

Parameters:
  - context: context.Context
  - id: string
  - at: time.Time

Returns:
  - bool: True when this call won the flip
  - error: Execution errors
*/
func (repository *PostgresOtpRepository) MarkVerified(context context.Context, id string, at time.Time) (bool, error) {
	const query = `
		UPDATE identity.otp
		SET verified = TRUE, verifiedat = $2
		WHERE id = $1 AND verified = FALSE AND superseded = FALSE AND expiresat > $2`

	tag, err := repository.pool.Exec(context, query, id, at)
	if err != nil {
		return false, fmt.Errorf("postgres_otp_repo_mark_verified_failed: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// # Reset Token Repository

// PostgresResetTokenRepository implements the ResetTokenRepository interface.
type PostgresResetTokenRepository struct {
	pool *pgxpool.Pool
}

// NewResetTokenRepository creates a new PostgreSQL implementation of ResetTokenRepository.
func NewResetTokenRepository(pool *pgxpool.Pool) *PostgresResetTokenRepository {
	return &PostgresResetTokenRepository{pool: pool}
}

/*
Create persists a new reset token record.

Parameters:
  - context: context.Context
  - token: *PasswordResetToken

Returns:
  - error: Storage failures
*/
func (repository *PostgresResetTokenRepository) Create(context context.Context, token *PasswordResetToken) error {
	const query = `
		INSERT INTO identity.resettoken (
			id, userid, tokenhash, used, createdat, expiresat
		) VALUES ($1, $2, $3, $4, $5, $6)`

	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}

	_, err := repository.pool.Exec(context, query,
		token.ID,
		token.UserID,
		token.TokenHash,
		token.Used,
		token.CreatedAt,
		token.ExpiresAt,
	)

	if err != nil {
		return fmt.Errorf("postgres_reset_repo_create_failed: %w", err)
	}

	return nil
}

/*
FindByTokenHash resolves a reset token record by its keyed hash.

Description: Used and expired records are returned as-is so the domain
layer can report the precise failure (AlreadyUsed vs Expired vs NotFound).

Parameters:
  - context: context.Context
  - tokenHash: string

Returns:
  - *PasswordResetToken: Hydrated token record
  - error: apperr.NotFound or execution errors
*/
func (repository *PostgresResetTokenRepository) FindByTokenHash(context context.Context, tokenHash string) (*PasswordResetToken, error) {
	const query = `
		SELECT id, userid, tokenhash, used, createdat, expiresat, usedat
		FROM identity.resettoken
		WHERE tokenhash = $1`

	token := &PasswordResetToken{}
	err := repository.pool.QueryRow(context, query, tokenHash).Scan(
		&token.ID,
		&token.UserID,
		&token.TokenHash,
		&token.Used,
		&token.CreatedAt,
		&token.ExpiresAt,
		&token.UsedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Reset token not found")
		}
		return nil, fmt.Errorf("postgres_reset_repo_find_failed: %w", err)
	}

	return token, nil
}

/*
Consume conditionally marks a reset token as used.

Description: The WHERE clause only matches an unused, unexpired record,
so exactly one concurrent redemption can win.

Parameters:
  - context: context.Context
  - id: string
  - at: time.Time

Returns:
  - bool: True when this call won the redemption
  - error: Execution errors
*/
func (repository *PostgresResetTokenRepository) Consume(context context.Context, id string, at time.Time) (bool, error) {
	const query = `
		UPDATE identity.resettoken
		SET used = TRUE, usedat = $2
		WHERE id = $1 AND used = FALSE AND expiresat > $2`

	tag, err := repository.pool.Exec(context, query, id, at)
	if err != nil {
		return false, fmt.Errorf("postgres_reset_repo_consume_failed: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// # Refresh Token Repository

// PostgresRefreshTokenRepository implements the RefreshTokenRepository interface.
type PostgresRefreshTokenRepository struct {
	pool *pgxpool.Pool
}

// NewRefreshTokenRepository creates a new PostgreSQL implementation of RefreshTokenRepository.
func NewRefreshTokenRepository(pool *pgxpool.Pool) *PostgresRefreshTokenRepository {
	return &PostgresRefreshTokenRepository{pool: pool}
}

/*
Create persists a new refresh token record into the identity.refreshtoken table.

Parameters:
  - context: context.Context
  - token: *RefreshToken

Returns:
  - error: Storage failures
*/
func (repository *PostgresRefreshTokenRepository) Create(context context.Context, token *RefreshToken) error {
	const query = `
		INSERT INTO identity.refreshtoken (
			id, userid, tokenhash, useragent, ipaddress, createdat, expiresat
		) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}

	_, err := repository.pool.Exec(context, query,
		token.ID,
		token.UserID,
		token.TokenHash,
		token.UserAgent,
		token.IPAddress,
		token.CreatedAt,
		token.ExpiresAt,
	)

	if err != nil {
		return fmt.Errorf("postgres_refresh_repo_create_failed: %w", err)
	}

	return nil
}

/*
FindByTokenHash resolves a refresh token record by its keyed hash.

Description: Revoked and expired records are returned as-is so the
domain layer can report the precise failure.

Parameters:
  - context: context.Context
  - tokenHash: string

Returns:
  - *RefreshToken: Hydrated token record
  - error: apperr.NotFound or execution errors
*/
func (repository *PostgresRefreshTokenRepository) FindByTokenHash(context context.Context, tokenHash string) (*RefreshToken, error) {
	const query = `
		SELECT id, userid, tokenhash, useragent, ipaddress, createdat, expiresat, revokedat, revokedreason
		FROM identity.refreshtoken
		WHERE tokenhash = $1`

	token := &RefreshToken{}
	var revokedReason *string
	err := repository.pool.QueryRow(context, query, tokenHash).Scan(
		&token.ID,
		&token.UserID,
		&token.TokenHash,
		&token.UserAgent,
		&token.IPAddress,
		&token.CreatedAt,
		&token.ExpiresAt,
		&token.RevokedAt,
		&revokedReason,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("Refresh token not found")
		}
		return nil, fmt.Errorf("postgres_refresh_repo_find_failed: %w", err)
	}

	if revokedReason != nil {
		token.RevokedReason = *revokedReason
	}

	return token, nil
}

/*
FindActiveByUser lists the live sessions of one user, newest first.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - []RefreshToken: Active session records
  - error: Execution errors
*/
func (repository *PostgresRefreshTokenRepository) FindActiveByUser(context context.Context, userID string) ([]RefreshToken, error) {
	const query = `
		SELECT id, userid, tokenhash, useragent, ipaddress, createdat, expiresat
		FROM identity.refreshtoken
		WHERE userid = $1 AND revokedat IS NULL AND expiresat > NOW()
		ORDER BY createdat DESC`

	rows, err := repository.pool.Query(context, query, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres_refresh_repo_list_failed: %w", err)
	}
	defer rows.Close()

	var tokens []RefreshToken
	for rows.Next() {
		var token RefreshToken
		err := rows.Scan(
			&token.ID,
			&token.UserID,
			&token.TokenHash,
			&token.UserAgent,
			&token.IPAddress,
			&token.CreatedAt,
			&token.ExpiresAt,
		)
		if err != nil {
			return nil, fmt.Errorf("postgres_refresh_repo_scan_failed: %w", err)
		}
		tokens = append(tokens, token)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres_refresh_repo_rows_failed: %w", err)
	}

	return tokens, nil
}

/*
Revoke conditionally marks one refresh token as revoked.

Description: The WHERE clause only matches a live record, so exactly one
concurrent rotation of the same token can win.

Parameters:
  - context: context.Context
  - id: string
  - reason: string

Returns:
  - bool: True when this call performed the revocation
  - error: Execution errors
*/
func (repository *PostgresRefreshTokenRepository) Revoke(context context.Context, id, reason string) (bool, error) {
	const query = `
		UPDATE identity.refreshtoken
		SET revokedat = NOW(), revokedreason = $2
		WHERE id = $1 AND revokedat IS NULL AND expiresat > NOW()`

	tag, err := repository.pool.Exec(context, query, id, reason)
	if err != nil {
		return false, fmt.Errorf("postgres_refresh_repo_revoke_failed: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

/*
RevokeAllForUser marks all live sessions for a user as revoked.

Parameters:
  - context: context.Context
  - userID: string
  - reason: string

Returns:
  - error: Batch revocation failures
*/
func (repository *PostgresRefreshTokenRepository) RevokeAllForUser(context context.Context, userID, reason string) error {
	const query = `
		UPDATE identity.refreshtoken
		SET revokedat = NOW(), revokedreason = $2
		WHERE userid = $1 AND revokedat IS NULL`

	_, err := repository.pool.Exec(context, query, userID, reason)
	if err != nil {
		return fmt.Errorf("postgres_refresh_repo_revoke_all_failed: %w", err)
	}
	return nil
}

/*
RevokeOthers marks all live sessions for a user as revoked, except for one.

Parameters:
  - context: context.Context
  - userID: string
  - keepID: string
  - reason: string

Returns:
  - error: Filtered revocation failures
*/
func (repository *PostgresRefreshTokenRepository) RevokeOthers(context context.Context, userID, keepID, reason string) error {
	const query = `
		UPDATE identity.refreshtoken
		SET revokedat = NOW(), revokedreason = $3
		WHERE userid = $1 AND id != $2 AND revokedat IS NULL`

	_, err := repository.pool.Exec(context, query, userID, keepID, reason)
	if err != nil {
		return fmt.Errorf("postgres_refresh_repo_revoke_others_failed: %w", err)
	}
	return nil
}

/*
DeleteExpired permanently removes records long past their expiration.

Description: Cleanup task to reclaim storage from stale sessions and
spent tokens.

Parameters:
  - context: context.Context

Returns:
  - error: Cleanup failures
*/
func (repository *PostgresRefreshTokenRepository) DeleteExpired(context context.Context) error {
	const query = "DELETE FROM identity.refreshtoken WHERE expiresat <= NOW()"
	_, err := repository.pool.Exec(context, query)
	if err != nil {
		return fmt.Errorf("postgres_refresh_repo_delete_expired_failed: %w", err)
	}
	return nil
}
