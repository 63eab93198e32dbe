// Copyright (c) 2026 Talentis. All rights reserved.
// Author: platform@talentis.dev

package session

import "time"

// # Lifecycle Policy

// Policy bundles every tunable of the credential lifecycle. Callers inject
// a Policy at construction time; there are no package-level knobs, so two
// services in one process can run with different settings.
type Policy struct {
	// AccessTokenTTL bounds the validity of signed JWT access tokens.
	AccessTokenTTL time.Duration

	// RefreshTokenTTL bounds the validity of refresh-token sessions.
	RefreshTokenTTL time.Duration

	// RefreshTokenLength is the entropy, in bytes, of a refresh token.
	RefreshTokenLength int

	// ResetTokenTTL bounds the validity of password reset tokens.
	ResetTokenTTL time.Duration

	// ResetTokenLength is the entropy, in bytes, of a reset token.
	ResetTokenLength int

	// OtpTTL bounds the validity of registration verification codes.
	OtpTTL time.Duration

	// OtpDigits is the length of the numeric verification code.
	OtpDigits int

	// OtpMaxAttempts caps wrong-code guesses before a code is burned.
	OtpMaxAttempts int

	// OtpResendInterval is the minimum gap between code issuances for
	// the same email address.
	OtpResendInterval time.Duration

	// LockoutThreshold is the number of failed logins, within
	// LockoutWindow, that locks the account.
	LockoutThreshold int

	// LockoutWindow is the rolling window over which failures count.
	// A lock placed at the threshold clears when the window elapses.
	LockoutWindow time.Duration
}

// DefaultPolicy returns the production settings used when no override is
// configured.
func DefaultPolicy() Policy {
	return Policy{
		AccessTokenTTL:     15 * time.Minute,
		RefreshTokenTTL:    14 * 24 * time.Hour,
		RefreshTokenLength: 32,
		ResetTokenTTL:      time.Hour,
		ResetTokenLength:   32,
		OtpTTL:             5 * time.Minute,
		OtpDigits:          6,
		OtpMaxAttempts:     5,
		OtpResendInterval:  30 * time.Second,
		LockoutThreshold:   5,
		LockoutWindow:      15 * time.Minute,
	}
}

// normalized fills any zero-valued field from DefaultPolicy so a partially
// populated Policy stays safe to run.
func (policy Policy) normalized() Policy {
	defaults := DefaultPolicy()
	if policy.AccessTokenTTL <= 0 {
		policy.AccessTokenTTL = defaults.AccessTokenTTL
	}
	if policy.RefreshTokenTTL <= 0 {
		policy.RefreshTokenTTL = defaults.RefreshTokenTTL
	}
	if policy.RefreshTokenLength <= 0 {
		policy.RefreshTokenLength = defaults.RefreshTokenLength
	}
	if policy.ResetTokenTTL <= 0 {
		policy.ResetTokenTTL = defaults.ResetTokenTTL
	}
	if policy.ResetTokenLength <= 0 {
		policy.ResetTokenLength = defaults.ResetTokenLength
	}
	if policy.OtpTTL <= 0 {
		policy.OtpTTL = defaults.OtpTTL
	}
	if policy.OtpDigits <= 0 {
		policy.OtpDigits = defaults.OtpDigits
	}
	if policy.OtpMaxAttempts <= 0 {
		policy.OtpMaxAttempts = defaults.OtpMaxAttempts
	}
	if policy.OtpResendInterval <= 0 {
		policy.OtpResendInterval = defaults.OtpResendInterval
	}
	if policy.LockoutThreshold <= 0 {
		policy.LockoutThreshold = defaults.LockoutThreshold
	}
	if policy.LockoutWindow <= 0 {
		policy.LockoutWindow = defaults.LockoutWindow
	}
	return policy
}
