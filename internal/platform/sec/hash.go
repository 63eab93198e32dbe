// Copyright (c) 2026 Talentis. All rights reserved.
// Author: platform@talentis.dev

package sec

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// # Password Hashing

// HashParams defines the argon2id cost parameters for password hashing.
//
// # Tuning
//
// Memory is the dominant hardening factor. The defaults target ~50ms per hash
// on commodity server hardware, which keeps login latency acceptable while
// making large-scale offline cracking expensive.
type HashParams struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// DefaultHashParams returns the recommended argon2id parameters.
func DefaultHashParams() HashParams {
	return HashParams{
		Memory:      64 * 1024,
		Time:        1,
		Parallelism: 4,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// PasswordHasher hashes and verifies passwords using argon2id.
//
// Hashes are emitted in PHC string format so every parameter needed for
// verification (salt, memory, time, parallelism) is embedded in the hash
// itself. No side-channel state is required to verify.
type PasswordHasher struct {
	params HashParams
}

// NewPasswordHasher constructs a [PasswordHasher] with the given parameters.
func NewPasswordHasher(params HashParams) *PasswordHasher {
	return &PasswordHasher{params: params}
}

/*
Hash derives an argon2id hash from a plain-text password.

Description: Generates a fresh random salt per call, so two hashes of the same
password are never equal.

Parameters:
  - plainTextPassword: string

Returns:
  - string: PHC-encoded hash ($argon2id$v=19$m=...,t=...,p=...$salt$key)
  - error: Entropy source failures
*/
func (hasher *PasswordHasher) Hash(plainTextPassword string) (string, error) {
	salt := make([]byte, hasher.params.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("sec_hash_salt_failed: %w", err)
	}

	key := argon2.IDKey(
		[]byte(plainTextPassword),
		salt,
		hasher.params.Time,
		hasher.params.Memory,
		hasher.params.Parallelism,
		hasher.params.KeyLength,
	)

	encoded := fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		hasher.params.Memory,
		hasher.params.Time,
		hasher.params.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	)

	return encoded, nil
}

/*
Verify compares a plain-text password against a stored PHC-encoded hash.

Description: Re-derives the key using the salt and parameters embedded in the
stored hash and compares in constant time. A malformed hash or a mismatch both
return false — verification never raises on bad input.

Parameters:
  - plainTextPassword: string
  - encodedHash: string

Returns:
  - bool: true only if the password matches
*/
func (hasher *PasswordHasher) Verify(plainTextPassword, encodedHash string) bool {
	memory, timeCost, parallelism, salt, key, err := decodeHash(encodedHash)
	if err != nil {
		return false
	}

	computed := argon2.IDKey(
		[]byte(plainTextPassword),
		salt,
		timeCost,
		memory,
		parallelism,
		uint32(len(key)),
	)

	return subtle.ConstantTimeCompare(computed, key) == 1
}

// decodeHash parses a PHC-encoded argon2id hash into its components.
func decodeHash(encodedHash string) (memory, timeCost uint32, parallelism uint8, salt, key []byte, err error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return 0, 0, 0, nil, nil, fmt.Errorf("sec_hash_invalid_format")
	}

	var version int
	if _, err = fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return 0, 0, 0, nil, nil, fmt.Errorf("sec_hash_invalid_version: %w", err)
	}
	if version != argon2.Version {
		return 0, 0, 0, nil, nil, fmt.Errorf("sec_hash_unsupported_version")
	}

	if _, err = fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &timeCost, &parallelism); err != nil {
		return 0, 0, 0, nil, nil, fmt.Errorf("sec_hash_invalid_params: %w", err)
	}

	salt, err = base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return 0, 0, 0, nil, nil, fmt.Errorf("sec_hash_invalid_salt: %w", err)
	}

	key, err = base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 {
		return 0, 0, 0, nil, nil, fmt.Errorf("sec_hash_invalid_key")
	}

	return memory, timeCost, parallelism, salt, key, nil
}
