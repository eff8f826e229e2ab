package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/argon2"
)

const saltBytes = 32

// Argon2Params tunes the KDF. The upstream system hashed with a single
// unsalted-iteration SHA-256; argon2id keeps the same digest(password, salt)
// interface while being memory-hard.
type Argon2Params struct {
	Time      uint32
	MemoryKiB uint32
	Threads   uint8
}

// DefaultArgon2Params are used when config supplies nothing.
func DefaultArgon2Params() Argon2Params {
	return Argon2Params{Time: 1, MemoryKiB: 64 * 1024, Threads: 4}
}

// GenerateSalt returns a fresh hex-encoded 32-byte random salt. Salts are
// generated once per account and never reused across users.
func GenerateSalt() (string, error) {
	buf := make([]byte, saltBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// HashPassword derives a hex-encoded 256-bit digest of the password under the
// given salt. Deterministic for a fixed (password, salt) pair.
func HashPassword(password, salt string, params Argon2Params) string {
	if params.Time == 0 {
		params = DefaultArgon2Params()
	}
	digest := argon2.IDKey([]byte(password), []byte(salt), params.Time, params.MemoryKiB, params.Threads, 32)
	return hex.EncodeToString(digest)
}

// VerifyPassword recomputes the digest and compares in constant time.
func VerifyPassword(password, storedDigest, storedSalt string, params Argon2Params) bool {
	computed := HashPassword(password, storedSalt, params)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedDigest)) == 1
}
