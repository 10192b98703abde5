package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const defaultCost = 12

// Secret is one configured shared secret. It is stored either as plain text
// or as a bcrypt hash, so the server's environment never has to hold the
// key in the clear.
type Secret struct {
	value  string
	hashed bool
}

// ParseSecret recognises bcrypt hashes by their $2a$/$2b$/$2y$ prefix.
// Anything else is a plain secret. An empty string yields a Secret that
// never matches.
func ParseSecret(s string) Secret {
	s = strings.TrimSpace(s)
	return Secret{
		value:  s,
		hashed: isBcrypt(s),
	}
}

// Configured reports whether the secret can match anything.
func (s Secret) Configured() bool {
	return s.value != ""
}

// Matches compares a presented credential against the secret.
// Plain secrets are compared in constant time.
func (s Secret) Matches(credential string) bool {
	if !s.Configured() || credential == "" {
		return false
	}
	if s.hashed {
		return bcrypt.CompareHashAndPassword([]byte(s.value), []byte(credential)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(s.value), []byte(credential)) == 1
}

// HashSecret returns a bcrypt hash suitable for PX_ADMIN_SECRET/PX_AGENT_SECRET.
// cost <= 0 uses the default cost.
func HashSecret(plaintext string, cost int) (string, error) {
	if plaintext == "" {
		return "", errors.New("auth: secret must not be empty")
	}
	if len(plaintext) > 72 {
		// bcrypt silently truncates inputs longer than 72 bytes.
		return "", fmt.Errorf("auth: secret must be 72 bytes or fewer")
	}
	if cost <= 0 {
		cost = defaultCost
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing secret: %w", err)
	}
	return string(hashed), nil
}

func isBcrypt(s string) bool {
	for _, prefix := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}
	return false
}
