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

// # OTP Manager

// OtpIssuance reports the outcome of issuing a verification code.
type OtpIssuance struct {
	Email     string
	ExpiresAt time.Time
	Delivered bool
}

// OtpManager owns the issue, resend, and verify rules for registration
// verification codes.
type OtpManager struct {
	store    OtpRepository
	codec    *sec.TokenCodec
	notifier Notifier
	policy   Policy
	logger   *slog.Logger
}

// NewOtpManager constructs an [OtpManager] with necessary dependencies.
func NewOtpManager(store OtpRepository, codec *sec.TokenCodec, notifier Notifier, policy Policy, logger *slog.Logger) *OtpManager {
	return &OtpManager{
		store:    store,
		codec:    codec,
		notifier: notifier,
		policy:   policy.normalized(),
		logger:   logger,
	}
}

/*
Issue generates a fresh verification code for an email address.

Description: Creates a new code record, supersedes any previous active
code for the address, and dispatches the code by email. Email delivery
is best effort; a delivery failure only clears the Delivered flag.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - *OtpIssuance: Issuance metadata (never exposes the code)
  - err: Generation or storage failures
*/
func (manager *OtpManager) Issue(context context.Context, email string) (*OtpIssuance, error) {

	// Generate the numeric code from a CSPRNG. Plaintext lives only in
	// this stack frame and in the outbound email.
	code, codeHash, err := manager.codec.GenerateNumericCode(manager.policy.OtpDigits)
	if err != nil {
		return nil, fmt.Errorf("otp_manager_generate_failed: %w", err)
	}

	now := time.Now()
	record := &OtpRecord{
		ID:        uuid.New(),
		Email:     email,
		CodeHash:  codeHash,
		CreatedAt: now,
		ExpiresAt: now.Add(manager.policy.OtpTTL),
	}

	// The store supersedes older codes in the same transaction, so a
	// crash between the two steps cannot leave two live codes.
	if err := manager.store.Create(context, record); err != nil {
		return nil, fmt.Errorf("otp_manager_store_failed: %w", err)
	}

	issuance := &OtpIssuance{Email: email, ExpiresAt: record.ExpiresAt, Delivered: true}

	subject := "Your Talentis verification code"
	body := fmt.Sprintf(
		"Your verification code is %s.\r\n\r\nIt expires in %d minutes. If you did not request this code, you can ignore this email.",
		code, int(manager.policy.OtpTTL.Minutes()),
	)
	if err := manager.notifier.Send(context, email, subject, body); err != nil {
		manager.logger.WarnContext(context, "otp email delivery failed", "email", email, "error", err)
		issuance.Delivered = false
	}

	return issuance, nil
}

/*
Resend re-issues a verification code, throttled per address.

Description: Rejects the request while the previous code is younger than
the resend interval; otherwise issues a fresh code that supersedes it.

Parameters:
  - context: context.Context
  - email: string

Returns:
  - *OtpIssuance: Issuance metadata
  - err: apperr Throttled or issuance failures
*/
func (manager *OtpManager) Resend(context context.Context, email string) (*OtpIssuance, error) {

	previous, err := manager.store.FindActiveByEmail(context, email)
	if err == nil {
		elapsed := time.Since(previous.CreatedAt)
		if elapsed < manager.policy.OtpResendInterval {
			retryAfter := int((manager.policy.OtpResendInterval - elapsed).Seconds()) + 1
			return nil, apperr.Throttled(retryAfter)
		}
	} else if !apperr.IsNotFound(err) {
		return nil, fmt.Errorf("otp_manager_resend_lookup_failed: %w", err)
	}

	return manager.Issue(context, email)
}

/*
Verify checks a submitted code against the live record for an address.

Description: Enforces the full guess budget and expiry rules. A wrong
guess is counted exactly once even under concurrency; the guess that
reaches the cap burns the code. A correct guess consumes the code
exactly once via a conditional update.

Parameters:
  - context: context.Context
  - email: string
  - code: string

Returns:
  - err: NotFound, Expired, Exhausted, Mismatch, AlreadyUsed, or storage failures
*/
func (manager *OtpManager) Verify(context context.Context, email, code string) error {

	record, err := manager.store.FindActiveByEmail(context, email)
	if err != nil {
		if apperr.IsNotFound(err) {
			return apperr.NotFound("No pending verification code for this email")
		}
		return fmt.Errorf("otp_manager_verify_lookup_failed: %w", err)
	}

	// Burned codes stay burned even for the correct digits.
	if record.Attempts >= manager.policy.OtpMaxAttempts {
		return apperr.Exhausted("Verification code")
	}

	if time.Now().After(record.ExpiresAt) {
		return apperr.Expired("Verification code")
	}

	if !manager.codec.Match(code, record.CodeHash) {
		attempts, err := manager.store.IncrementAttempts(context, record.ID)
		if err != nil {
			return fmt.Errorf("otp_manager_attempt_count_failed: %w", err)
		}
		if attempts >= manager.policy.OtpMaxAttempts {
			return apperr.Exhausted("Verification code")
		}
		return apperr.Mismatch("Verification code")
	}

	// Exactly-once consumption: the conditional update has one winner.
	won, err := manager.store.MarkVerified(context, record.ID, time.Now())
	if err != nil {
		return fmt.Errorf("otp_manager_consume_failed: %w", err)
	}
	if !won {
		return apperr.AlreadyUsed("Verification code")
	}

	return nil
}
