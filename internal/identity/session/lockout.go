// Copyright (c) 2026 Talentis. All rights reserved.
// Author: platform@talentis.dev

package session

import (
	"context"
	"fmt"
	"log/slog"
)

// # Lockout Tracker

// LockoutTracker enforces the brute-force lockout rule: too many failed
// logins within a rolling window lock the account until the window
// elapses. Counters live in Redis with a TTL, so an expired lock clears
// itself with no background job.
type LockoutTracker struct {
	store  LockoutRepository
	policy Policy
	logger *slog.Logger
}

// NewLockoutTracker constructs a [LockoutTracker] with necessary dependencies.
func NewLockoutTracker(store LockoutRepository, policy Policy, logger *slog.Logger) *LockoutTracker {
	return &LockoutTracker{
		store:  store,
		policy: policy.normalized(),
		logger: logger,
	}
}

/*
RecordFailure counts one failed login and reports whether the account
just became locked.

Description: Increments the rolling counter. The first failure starts the
window; reaching the threshold locks the account for the remainder of it.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - bool: True when this failure reached the lockout threshold
  - err: Counter storage failures
*/
func (tracker *LockoutTracker) RecordFailure(context context.Context, userID string) (bool, error) {
	failures, err := tracker.store.Increment(context, userID, tracker.policy.LockoutWindow)
	if err != nil {
		return false, fmt.Errorf("lockout_tracker_increment_failed: %w", err)
	}

	if failures >= tracker.policy.LockoutThreshold {
		tracker.logger.WarnContext(context, "account locked after repeated failed logins",
			"user_id", userID,
			"failures", failures,
		)
		return true, nil
	}

	return false, nil
}

/*
RecordSuccess clears the failure counter after a successful login.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - err: Counter storage failures
*/
func (tracker *LockoutTracker) RecordSuccess(context context.Context, userID string) error {
	if err := tracker.store.Reset(context, userID); err != nil {
		return fmt.Errorf("lockout_tracker_reset_failed: %w", err)
	}
	return nil
}

/*
IsLocked reports whether the account is currently locked.

Description: Reads the live counter. Probing a locked account does not
extend the lock; only genuine password failures feed the counter.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - bool: Lock state
  - err: Counter storage failures
*/
func (tracker *LockoutTracker) IsLocked(context context.Context, userID string) (bool, error) {
	failures, err := tracker.store.Count(context, userID)
	if err != nil {
		return false, fmt.Errorf("lockout_tracker_count_failed: %w", err)
	}
	return failures >= tracker.policy.LockoutThreshold, nil
}

/*
Unlock clears the failure counter ahead of the window, for admin
intervention.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - err: Counter storage failures
*/
func (tracker *LockoutTracker) Unlock(context context.Context, userID string) error {
	if err := tracker.store.Reset(context, userID); err != nil {
		return fmt.Errorf("lockout_tracker_unlock_failed: %w", err)
	}
	return nil
}
