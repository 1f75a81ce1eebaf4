// Package token allocates the opaque public identifiers that grant access
// to a single contract.
package token

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// 32 random bytes gives a 43-character URL-safe token; guessing one is
// infeasible and the value carries no relation to the contract id.
const byteLength = 32

func New() (string, error) {
	raw := make([]byte, byteLength)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
