package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// NewRefreshToken generates a cryptographically random 64-character hex token.
func NewRefreshToken() (string, error) {
	return randomHex(32, "refresh token")
}

// NewClaimTicket generates the 32-character hex ticket a client holds while an
// activation waits for an account.
func NewClaimTicket() (string, error) {
	return randomHex(16, "claim ticket")
}

func randomHex(n int, what string) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate %s: %w", what, err)
	}
	return hex.EncodeToString(b), nil
}
