// Copyright (c) 2026 Talentis. All rights reserved.
// Author: platform@talentis.dev

package sec_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talentis/talentis/internal/platform/sec"
)

/*
TestTokenCodec_GenerateToken verifies URL-safe opaque token generation and
hash matching.
*/
func TestTokenCodec_GenerateToken(t *testing.T) {
	codec := sec.NewTokenCodec("test-secret")

	plaintext, hash, err := codec.GenerateToken(32)
	require.NoError(t, err)
	require.NotEmpty(t, plaintext)
	require.NotEmpty(t, hash)

	// The plaintext must never equal its stored form.
	assert.NotEqual(t, plaintext, hash)
	assert.True(t, codec.Match(plaintext, hash))
	assert.False(t, codec.Match(plaintext+"x", hash))

	// Hashing is deterministic for lookups by hash.
	assert.Equal(t, hash, codec.Hash(plaintext))
}

/*
TestTokenCodec_GenerateNumericCode checks digit-only OTP code generation.
*/
func TestTokenCodec_GenerateNumericCode(t *testing.T) {
	codec := sec.NewTokenCodec("test-secret")

	code, hash, err := codec.GenerateNumericCode(6)
	require.NoError(t, err)
	require.Len(t, code, 6)

	for _, char := range code {
		assert.GreaterOrEqual(t, char, '0')
		assert.LessOrEqual(t, char, '9')
	}

	assert.True(t, codec.Match(code, hash))
}

/*
TestTokenCodec_KeyedHashing ensures two codecs with different keys never
produce interchangeable hashes.
*/
func TestTokenCodec_KeyedHashing(t *testing.T) {
	first := sec.NewTokenCodec("key-one")
	second := sec.NewTokenCodec("key-two")

	plaintext, hash, err := first.GenerateToken(32)
	require.NoError(t, err)

	assert.True(t, first.Match(plaintext, hash))
	assert.False(t, second.Match(plaintext, hash))
}

/*
TestTokenCodec_MatchMalformedHash checks that invalid stored hashes fail closed.
*/
func TestTokenCodec_MatchMalformedHash(t *testing.T) {
	codec := sec.NewTokenCodec("test-secret")

	assert.False(t, codec.Match("anything", "not-hex"))
	assert.False(t, codec.Match("anything", ""))
}
