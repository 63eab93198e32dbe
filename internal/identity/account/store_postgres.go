// Copyright (c) 2026 Talentis. All rights reserved.
// Author: platform@talentis.dev

/*
Package account (Postgres) implements the storage layer for account
self-service and administration.

# Schema Table Mapping
  - identity.account: Master identity and profile data.
  - identity.refreshtoken: Active device sessions and security metadata.
*/
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/talentis/talentis/internal/identity/session"
	"github.com/talentis/talentis/internal/platform/apperr"
	"github.com/talentis/talentis/internal/platform/database/schema"
	"github.com/talentis/talentis/pkg/pagination"
)

// # Account Repository

// PostgresAccountRepository implements the AccountRepository interface using pgx.
type PostgresAccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository creates a new PostgreSQL implementation of AccountRepository.
func NewAccountRepository(pool *pgxpool.Pool) *PostgresAccountRepository {
	return &PostgresAccountRepository{pool: pool}
}

/*
FindByID retrieves a user record from the identity.account table.

Parameters:
  - context: context.Context
  - id: string (UUIDv7)

Returns:
  - *session.User: Hydrated account entity
  - error: apperr.NotFound or execution errors
*/
func (repository *PostgresAccountRepository) FindByID(context context.Context, id string) (*session.User, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE %s = $1`,
		strings.Join(schema.IdentityAccount.Columns(), ", "),
		schema.IdentityAccount.Table, schema.IdentityAccount.ID,
	)

	user := &session.User{}
	err := repository.pool.QueryRow(context, query, id).Scan(
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
			return nil, apperr.NotFound("User not found")
		}
		return nil, fmt.Errorf("postgres_account_repo_find_failed: %w", err)
	}

	return user, nil
}

/*
Update persists changes to a user's mutable profile fields.

Parameters:
  - context: context.Context
  - user: *session.User

Returns:
  - error: Update failures
*/
func (repository *PostgresAccountRepository) Update(context context.Context, user *session.User) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $2, %s = $3
		WHERE %s = $1`,
		schema.IdentityAccount.Table,
		schema.IdentityAccount.DisplayName, schema.IdentityAccount.UpdatedAt,
		schema.IdentityAccount.ID,
	)

	user.UpdatedAt = time.Now()
	_, err := repository.pool.Exec(context, query, user.ID, user.DisplayName, user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("postgres_account_repo_update_failed: %w", err)
	}

	return nil
}

/*
List returns a page of accounts matching the filter plus the total count.

Description: Builds the WHERE clause dynamically from the filter, runs a
COUNT for pagination metadata, then fetches the requested page ordered by
creation time descending.

Parameters:
  - context: context.Context
  - filter: ListFilter
  - params: pagination.Params

Returns:
  - []session.User: The requested page
  - int: Total matching accounts
  - error: Query failures
*/
func (repository *PostgresAccountRepository) List(context context.Context, filter ListFilter, params pagination.Params) ([]session.User, int, error) {

	conditions := []string{"1=1"}
	arguments := []any{}

	if len(filter.Roles) > 0 {
		arguments = append(arguments, filter.Roles)
		conditions = append(conditions, fmt.Sprintf("%s = ANY($%d)", schema.IdentityAccount.Role, len(arguments)))
	}

	if filter.IsActive != nil {
		arguments = append(arguments, *filter.IsActive)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", schema.IdentityAccount.IsActive, len(arguments)))
	}

	if filter.Search != "" {
		arguments = append(arguments, "%"+filter.Search+"%")
		position := len(arguments)
		conditions = append(conditions, fmt.Sprintf(
			"(%s ILIKE $%d OR %s ILIKE $%d OR %s ILIKE $%d)",
			schema.IdentityAccount.Username, position,
			schema.IdentityAccount.Email, position,
			schema.IdentityAccount.DisplayName, position,
		))
	}

	whereClause := strings.Join(conditions, " AND ")

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", schema.IdentityAccount.Table, whereClause)
	var total int
	if err := repository.pool.QueryRow(context, countQuery, arguments...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("postgres_account_repo_count_failed: %w", err)
	}

	pageQuery := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE %s
		ORDER BY %s DESC
		LIMIT $%d OFFSET $%d`,
		strings.Join(schema.IdentityAccount.Columns(), ", "),
		schema.IdentityAccount.Table, whereClause, schema.IdentityAccount.CreatedAt,
		len(arguments)+1, len(arguments)+2,
	)
	arguments = append(arguments, params.Limit, params.Offset())

	rows, err := repository.pool.Query(context, pageQuery, arguments...)
	if err != nil {
		return nil, 0, fmt.Errorf("postgres_account_repo_list_failed: %w", err)
	}
	defer rows.Close()

	var users []session.User
	for rows.Next() {
		var user session.User
		err := rows.Scan(
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
			return nil, 0, fmt.Errorf("postgres_account_repo_scan_failed: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("postgres_account_repo_rows_failed: %w", err)
	}

	return users, total, nil
}

/*
Deactivate flips an account to inactive.

Parameters:
  - context: context.Context
  - id: string

Returns:
  - error: apperr.NotFound or execution errors
*/
func (repository *PostgresAccountRepository) Deactivate(context context.Context, id string) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = FALSE, %s = $2
		WHERE %s = $1`,
		schema.IdentityAccount.Table,
		schema.IdentityAccount.IsActive, schema.IdentityAccount.UpdatedAt,
		schema.IdentityAccount.ID,
	)

	tag, err := repository.pool.Exec(context, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("postgres_account_repo_deactivate_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("User not found")
	}

	return nil
}

// # Session Directory

// PostgresSessionDirectory implements the SessionDirectory interface.
type PostgresSessionDirectory struct {
	pool *pgxpool.Pool
}

// NewSessionDirectory creates a new PostgreSQL implementation of SessionDirectory.
func NewSessionDirectory(pool *pgxpool.Pool) *PostgresSessionDirectory {
	return &PostgresSessionDirectory{pool: pool}
}

/*
FindActiveByUserID lists all live sessions for a user, newest first.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - []session.RefreshToken: Active session records
  - error: Retrieval errors
*/
func (repository *PostgresSessionDirectory) FindActiveByUserID(context context.Context, userID string) ([]session.RefreshToken, error) {
	table := schema.IdentityRefreshToken
	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s, %s
		FROM %s
		WHERE %s = $1 AND %s IS NULL AND %s > NOW()
		ORDER BY %s DESC`,
		table.ID, table.UserID, table.TokenHash, table.UserAgent,
		table.IPAddress, table.CreatedAt, table.ExpiresAt,
		table.Table,
		table.UserID, table.RevokedAt, table.ExpiresAt,
		table.CreatedAt,
	)

	rows, err := repository.pool.Query(context, query, userID)
	if err != nil {
		return nil, fmt.Errorf("postgres_session_dir_list_failed: %w", err)
	}
	defer rows.Close()

	var tokens []session.RefreshToken
	for rows.Next() {
		var token session.RefreshToken
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
			return nil, fmt.Errorf("postgres_session_dir_scan_failed: %w", err)
		}
		tokens = append(tokens, token)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres_session_dir_rows_failed: %w", err)
	}

	return tokens, nil
}

/*
Revoke marks a specific session as revoked, constrained to its owner.

Parameters:
  - context: context.Context
  - userID: string (Security constraint: owner validation)
  - sessionID: string
  - reason: string

Returns:
  - error: apperr.NotFound when the session is not the caller's, or execution errors
*/
func (repository *PostgresSessionDirectory) Revoke(context context.Context, userID, sessionID, reason string) error {
	table := schema.IdentityRefreshToken
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = NOW(), %s = $3
		WHERE %s = $1 AND %s = $2 AND %s IS NULL`,
		table.Table,
		table.RevokedAt, table.RevokedReason,
		table.ID, table.UserID, table.RevokedAt,
	)

	tag, err := repository.pool.Exec(context, query, sessionID, userID, reason)
	if err != nil {
		return fmt.Errorf("postgres_session_dir_revoke_failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Session not found")
	}

	return nil
}

/*
RevokeOthers marks all active sessions for a user as revoked, except for one.

Parameters:
  - context: context.Context
  - userID: string
  - currentSessionID: string
  - reason: string

Returns:
  - error: Filtered revocation failures
*/
func (repository *PostgresSessionDirectory) RevokeOthers(context context.Context, userID, currentSessionID, reason string) error {
	table := schema.IdentityRefreshToken
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = NOW(), %s = $3
		WHERE %s = $1 AND %s != $2 AND %s IS NULL`,
		table.Table,
		table.RevokedAt, table.RevokedReason,
		table.UserID, table.ID, table.RevokedAt,
	)

	_, err := repository.pool.Exec(context, query, userID, currentSessionID, reason)
	if err != nil {
		return fmt.Errorf("postgres_session_dir_revoke_others_failed: %w", err)
	}
	return nil
}

/*
RevokeAll terminates every session for a user.

Parameters:
  - context: context.Context
  - userID: string
  - reason: string

Returns:
  - error: Batch revocation failures
*/
func (repository *PostgresSessionDirectory) RevokeAll(context context.Context, userID, reason string) error {
	table := schema.IdentityRefreshToken
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = NOW(), %s = $2
		WHERE %s = $1 AND %s IS NULL`,
		table.Table,
		table.RevokedAt, table.RevokedReason,
		table.UserID, table.RevokedAt,
	)

	_, err := repository.pool.Exec(context, query, userID, reason)
	if err != nil {
		return fmt.Errorf("postgres_session_dir_revoke_all_failed: %w", err)
	}
	return nil
}
