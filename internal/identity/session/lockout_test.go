// Copyright (c) 2026 Talentis. All rights reserved.
// Author: platform@talentis.dev

package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talentis/talentis/internal/identity/session"
)

/*
TestLockoutTracker_Threshold counts failures up to the threshold and
verifies the lock engages exactly on the final one.
*/
func TestLockoutTracker_Threshold(t *testing.T) {
	policy := session.DefaultPolicy()
	policy.LockoutThreshold = 3
	fixture := newSessionFixture(policy)
	ctx := context.Background()

	// 1. Failures below the threshold do not lock.
	for i := 0; i < 2; i++ {
		locked, err := fixture.lockout.RecordFailure(ctx, "user-1")
		require.NoError(t, err)
		assert.False(t, locked, "failure %d", i+1)
	}

	isLocked, err := fixture.lockout.IsLocked(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, isLocked)

	// 2. The threshold failure flips the lock.
	locked, err := fixture.lockout.RecordFailure(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, locked)

	isLocked, err = fixture.lockout.IsLocked(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, isLocked)
}

/*
TestLockoutTracker_SuccessClears verifies a successful login wipes the
accumulated failure count.
*/
func TestLockoutTracker_SuccessClears(t *testing.T) {
	policy := session.DefaultPolicy()
	policy.LockoutThreshold = 3
	fixture := newSessionFixture(policy)
	ctx := context.Background()

	_, err := fixture.lockout.RecordFailure(ctx, "user-1")
	require.NoError(t, err)
	_, err = fixture.lockout.RecordFailure(ctx, "user-1")
	require.NoError(t, err)

	require.NoError(t, fixture.lockout.RecordSuccess(ctx, "user-1"))

	// The slate is clean; the next failure is failure number one again.
	locked, err := fixture.lockout.RecordFailure(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, locked)
}

/*
TestLockoutTracker_WindowElapses verifies a lock clears itself once the
rolling window passes, with no explicit unlock.
*/
func TestLockoutTracker_WindowElapses(t *testing.T) {
	policy := session.DefaultPolicy()
	policy.LockoutThreshold = 2
	policy.LockoutWindow = 30 * time.Millisecond
	fixture := newSessionFixture(policy)
	ctx := context.Background()

	_, err := fixture.lockout.RecordFailure(ctx, "user-1")
	require.NoError(t, err)
	locked, err := fixture.lockout.RecordFailure(ctx, "user-1")
	require.NoError(t, err)
	require.True(t, locked)

	time.Sleep(50 * time.Millisecond)

	isLocked, err := fixture.lockout.IsLocked(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, isLocked)
}

/*
TestLockoutTracker_Unlock verifies the admin override clears an active
lock ahead of the window.
*/
func TestLockoutTracker_Unlock(t *testing.T) {
	policy := session.DefaultPolicy()
	policy.LockoutThreshold = 2
	fixture := newSessionFixture(policy)
	ctx := context.Background()

	_, err := fixture.lockout.RecordFailure(ctx, "user-1")
	require.NoError(t, err)
	locked, err := fixture.lockout.RecordFailure(ctx, "user-1")
	require.NoError(t, err)
	require.True(t, locked)

	require.NoError(t, fixture.lockout.Unlock(ctx, "user-1"))

	isLocked, err := fixture.lockout.IsLocked(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, isLocked)
}
