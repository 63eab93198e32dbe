// Copyright (c) 2026 Talentis. All rights reserved.
// Author: platform@talentis.dev

package sec

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// # Opaque Secrets

// TokenCodec generates and hashes opaque secrets: refresh tokens, password
// reset tokens, and numeric one-time passcodes.
//
// # Hashing Strategy
//
// Secrets are persisted only as keyed HMAC-SHA256 digests. A fast keyed hash
// (rather than a memory-hard one) is sufficient here because the secrets are
// high-entropy and verification is rate-limited — unlike user passwords, which
// go through [PasswordHasher].
type TokenCodec struct {
	key []byte
}

// NewTokenCodec constructs a [TokenCodec] keyed with the given secret.
//
// The key must stay stable across deployments: a key change invalidates every
// outstanding refresh token, reset token, and OTP at once.
func NewTokenCodec(secret string) *TokenCodec {
	return &TokenCodec{key: []byte(secret)}
}

/*
GenerateToken creates a new URL-safe opaque secret.

Description: Draws byteLength bytes from crypto/rand and encodes them with
base64 RawURL. The plaintext goes to the user and is never persisted; the
returned hash is what storage keeps.

Parameters:
  - byteLength: int (Entropy in bytes, e.g. 32)

Returns:
  - string: Plaintext token (transport to user)
  - string: Keyed hash of the token (persist)
  - error: Entropy source failures
*/
func (codec *TokenCodec) GenerateToken(byteLength int) (string, string, error) {
	raw := make([]byte, byteLength)
	if _, err := rand.Read(raw); err != nil {
		return "", "", fmt.Errorf("sec_token_generate_failed: %w", err)
	}

	plaintext := base64.RawURLEncoding.EncodeToString(raw)
	return plaintext, codec.Hash(plaintext), nil
}

/*
GenerateNumericCode creates a new decimal one-time passcode.

Description: Each digit is drawn uniformly via rejection sampling, so a
6-digit code carries the full ~20 bits of entropy with no modulo bias.

Parameters:
  - digits: int (Code length, e.g. 6)

Returns:
  - string: Plaintext code (transport to user)
  - string: Keyed hash of the code (persist)
  - error: Entropy source failures
*/
func (codec *TokenCodec) GenerateNumericCode(digits int) (string, string, error) {
	code := make([]byte, digits)
	buffer := make([]byte, 1)

	for i := 0; i < digits; {
		if _, err := rand.Read(buffer); err != nil {
			return "", "", fmt.Errorf("sec_code_generate_failed: %w", err)
		}
		// Reject bytes >= 250 to keep the modulo-10 mapping uniform.
		if buffer[0] >= 250 {
			continue
		}
		code[i] = '0' + buffer[0]%10
		i++
	}

	plaintext := string(code)
	return plaintext, codec.Hash(plaintext), nil
}

// Hash returns the hex-encoded HMAC-SHA256 digest of a plaintext secret.
func (codec *TokenCodec) Hash(plaintext string) string {
	mac := hmac.New(sha256.New, codec.key)
	mac.Write([]byte(plaintext))
	return hex.EncodeToString(mac.Sum(nil))
}

// Match reports whether a plaintext secret corresponds to a stored hash.
// The comparison runs in constant time.
func (codec *TokenCodec) Match(plaintext, storedHash string) bool {
	expected, err := hex.DecodeString(storedHash)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, codec.key)
	mac.Write([]byte(plaintext))
	return hmac.Equal(mac.Sum(nil), expected)
}
