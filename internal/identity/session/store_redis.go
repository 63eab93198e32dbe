// Copyright (c) 2026 Talentis. All rights reserved.
// Author: platform@talentis.dev

package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/talentis/talentis/internal/platform/constants"
)

// # Lockout Repository

// RedisLockoutRepository implements LockoutRepository using Redis.
//
// Each account maps to one counter key whose TTL is the rolling lockout
// window. Expiry is lazy: when the window elapses Redis drops the key and
// the lock clears itself with no background job.
type RedisLockoutRepository struct {
	client *redis.Client
}

// NewLockoutRepository creates a new Redis-backed LockoutRepository.
func NewLockoutRepository(client *redis.Client) *RedisLockoutRepository {
	return &RedisLockoutRepository{client: client}
}

/*
Increment bumps the failure counter and returns the new total.

Description: INCR is atomic, so concurrent failures each count exactly
once. The window TTL is armed only when the key is created; later
failures inside the window do not extend it.

Parameters:
  - context: context.Context
  - userID: string
  - window: time.Duration

Returns:
  - int: Post-increment failure count
  - error: Execution errors
*/
func (repository *RedisLockoutRepository) Increment(context context.Context, userID string, window time.Duration) (int, error) {

	key := constants.RedisPrefixLockout + userID

	count, err := repository.client.Incr(context, key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis_lockout_incr_failed: %w", err)
	}

	// First failure starts the window.
	if count == 1 {
		if err := repository.client.Expire(context, key, window).Err(); err != nil {
			return 0, fmt.Errorf("redis_lockout_expire_failed: %w", err)
		}
	}

	return int(count), nil
}

/*
Count returns the current failure total for an account.

Description: A missing key means the window elapsed and reads as zero.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - int: Current failure count
  - error: Connectivity errors
*/
func (repository *RedisLockoutRepository) Count(context context.Context, userID string) (int, error) {

	key := constants.RedisPrefixLockout + userID

	count, err := repository.client.Get(context, key).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("redis_lockout_get_failed: %w", err)
	}

	return count, nil
}

/*
Reset clears the failure counter for an account.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - error: Deletion failures
*/
func (repository *RedisLockoutRepository) Reset(context context.Context, userID string) error {

	key := constants.RedisPrefixLockout + userID

	if err := repository.client.Del(context, key).Err(); err != nil {
		return fmt.Errorf("redis_lockout_del_failed: %w", err)
	}

	return nil
}
