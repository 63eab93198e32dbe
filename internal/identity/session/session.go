// Copyright (c) 2026 Talentis. All rights reserved.
// Author: platform@talentis.dev

/*
Package session implements the credential and session lifecycle layer.

It defines the core domain entities (User, OtpRecord, PasswordResetToken,
RefreshToken) and the logic for OTP-gated registration, login with
brute-force lockout, refresh-token rotation, and password recovery.

# Architecture

This layer is the "Truth" of the system. Entities defined here have no
external dependencies and encapsulate all business rules related to
credential state. Secrets (OTP codes, reset tokens, refresh tokens,
passwords) are never persisted in plaintext; only keyed hashes reach
storage.
*/
package session

import (
	"time"

	"github.com/talentis/talentis/internal/platform/sec"
)

// # Domain Entities

// User represents a registered member of the Talentis platform.
//
// An account created through Register starts inactive; it becomes active
// only after its registration OTP has been verified.
type User struct {
	ID           string       `json:"id"`
	Username     string       `json:"username"`
	Email        string       `json:"email"`
	PasswordHash string       `json:"-"` // Explicitly omitted from JSON for security.
	DisplayName  string       `json:"display_name"`
	Role         sec.UserRole `json:"role"`
	IsActive     bool         `json:"is_active"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// OtpRecord tracks a single one-time verification code issued to an email
// address. Issuing a new code supersedes any previous active code for the
// same address, so at most one record per email is live at any time.
type OtpRecord struct {
	ID         string     `json:"id"`
	Email      string     `json:"email"`
	CodeHash   string     `json:"-"` // Keyed hash of the numeric code. Omitted for security.
	Attempts   int        `json:"attempts"`
	Verified   bool       `json:"verified"`
	Superseded bool       `json:"superseded"`
	CreatedAt  time.Time  `json:"created_at"`
	ExpiresAt  time.Time  `json:"expires_at"`
	VerifiedAt *time.Time `json:"verified_at,omitempty"`
}

// RefreshToken represents a long-lived session credential bound to one
// device. Rotation revokes the old record and creates a successor; a
// revoked record can never be resurrected.
type RefreshToken struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	TokenHash     string     `json:"-"` // Keyed hash of the refresh token. Omitted for security.
	UserAgent     string     `json:"user_agent"`
	IPAddress     string     `json:"ip_address"`
	ExpiresAt     time.Time  `json:"expires_at"`
	CreatedAt     time.Time  `json:"created_at"`
	RevokedAt     *time.Time `json:"revoked_at,omitempty"`
	RevokedReason string     `json:"revoked_reason,omitempty"`
}

// PasswordResetToken is a single-use credential for the forgot-password
// flow. Redemption is exactly-once: concurrent attempts with the same
// token produce one winner.
type PasswordResetToken struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	TokenHash string     `json:"-"` // Keyed hash of the reset token. Omitted for security.
	Used      bool       `json:"used"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt time.Time  `json:"expires_at"`
	UsedAt    *time.Time `json:"used_at,omitempty"`
}

// # Revocation Reasons

// Audit labels recorded when a refresh token is revoked.
const (
	ReasonRotated         = "rotated"
	ReasonLogout          = "logout"
	ReasonLogoutAll       = "logout_all"
	ReasonPasswordReset   = "password_reset"
	ReasonPasswordChanged = "password_changed"
	ReasonDeviceRevoked   = "device_revoked"
	ReasonDeactivated     = "account_deactivated"
)

// # Field Identifiers

// Global field names for validation and identity mapping in the session domain.
const (
	FieldUsername        = "username"
	FieldEmail           = "email"
	FieldPassword        = "password"
	FieldDisplayName     = "display_name"
	FieldCode            = "code"
	FieldLogin           = "login"
	FieldToken           = "token"
	FieldCurrentPassword = "current_password"
	FieldNewPassword     = "new_password"
	FieldAccessToken     = "access_token"
	FieldTokenType       = "token_type"
	FieldExpiresIn       = "expires_in"
	FieldUser            = "user"
	FieldMessage         = "message"
)
