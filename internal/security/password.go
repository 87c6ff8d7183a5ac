package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	hashPrefix     = "pbkdf2_sha256"
	hashIterations = 150000
	saltLen        = 16
	keyLen         = 32
)

var (
	// ErrPasswordMismatch means the hash parsed fine but the password
	// does not match it.
	ErrPasswordMismatch = errors.New("security: password mismatch")

	// ErrLegacyHash marks a recognized pre-migration hash format that
	// cannot be verified. It is never a successful verification.
	ErrLegacyHash = errors.New("security: legacy hash format, verification unsupported")

	// ErrMalformedHash marks a stored hash in no recognized format.
	ErrMalformedHash = errors.New("security: malformed password hash")
)

// Unsalted hex digests (MD5/SHA-1 length) from the system that predates
// the PBKDF2 migration.
var legacyHexPattern = regexp.MustCompile(`^[0-9a-fA-F]{32}$|^[0-9a-fA-F]{40}$`)

// HashPassword derives a PBKDF2-SHA256 hash encoded as
// pbkdf2_sha256$<iterations>$<salt>$<key> with base64 salt and key.
func HashPassword(plaintext string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key := pbkdf2.Key([]byte(plaintext), salt, hashIterations, keyLen, sha256.New)

	return fmt.Sprintf("%s$%d$%s$%s",
		hashPrefix,
		hashIterations,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// VerifyPassword checks plaintext against a stored hash. It is a pure
// function of its inputs and compares derived bytes in constant time.
// A nil return is the only success; every failure mode is a typed
// error so callers can distinguish a mismatch from an unverifiable
// legacy hash, even though both end up as the same uniform response.
func VerifyPassword(plaintext, stored string) error {
	if strings.HasPrefix(stored, hashPrefix+"$") {
		return verifyPBKDF2(plaintext, stored)
	}
	if legacyHexPattern.MatchString(stored) {
		return ErrLegacyHash
	}
	return ErrMalformedHash
}

func verifyPBKDF2(plaintext, stored string) error {
	parts := strings.Split(stored, "$")
	if len(parts) != 4 {
		return ErrMalformedHash
	}

	iterations, err := strconv.Atoi(parts[1])
	if err != nil || iterations <= 0 {
		return ErrMalformedHash
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[2])
	if err != nil {
		return ErrMalformedHash
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[3])
	if err != nil || len(want) == 0 {
		return ErrMalformedHash
	}

	got := pbkdf2.Key([]byte(plaintext), salt, iterations, len(want), sha256.New)
	if subtle.ConstantTimeCompare(got, want) != 1 {
		return ErrPasswordMismatch
	}
	return nil
}
