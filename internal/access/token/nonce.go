package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// NonceBytes is the number of random bytes in a token nonce. The hex form
// carried in the payload is twice this length.
const NonceBytes = 12

// NewNonce returns a fresh random nonce as a lower-case hex string.
func NewNonce() (string, error) {
	b := make([]byte, NonceBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("nonce: %w", err)
	}
	return hex.EncodeToString(b), nil
}
