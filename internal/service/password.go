package service

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/scrypt"
)

// scrypt parameters. Interactive-login cost, per the library's guidance.
const (
	scryptN      = 16384
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 64
	saltLen      = 16
)

// HashPassword derives a slow hash from the plaintext with a random salt and
// returns "hex(key).hex(salt)".
func HashPassword(plaintext string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	key, err := scrypt.Key([]byte(plaintext), salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return "", fmt.Errorf("derive key: %w", err)
	}

	return hex.EncodeToString(key) + "." + hex.EncodeToString(salt), nil
}

// VerifyPassword re-derives the key with the stored salt and compares in
// constant time. It fails closed: empty or malformed stored values verify
// false and never return an error to the caller's credential path.
func VerifyPassword(plaintext, stored string) bool {
	if stored == "" {
		return false
	}

	hashHex, saltHex, found := strings.Cut(stored, ".")
	if !found {
		return false
	}

	wantKey, err := hex.DecodeString(hashHex)
	if err != nil || len(wantKey) == 0 {
		return false
	}
	salt, err := hex.DecodeString(saltHex)
	if err != nil || len(salt) == 0 {
		return false
	}

	key, err := scrypt.Key([]byte(plaintext), salt, scryptN, scryptR, scryptP, len(wantKey))
	if err != nil {
		return false
	}

	return subtle.ConstantTimeCompare(key, wantKey) == 1
}
