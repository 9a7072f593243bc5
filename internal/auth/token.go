package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// RandomToken returns 32 bytes from the OS CSPRNG, hex-encoded.
// Used for email verification and password reset links.
func RandomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("auth: generating random token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
