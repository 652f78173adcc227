package invitations

import (
	"crypto/rand"
	"fmt"

	"github.com/mr-tron/base58"
)

// tokenEntropyBytes gives 256 bits of entropy per token.
const tokenEntropyBytes = 32

// newToken generates an unguessable opaque invitation token.
func newToken() (string, error) {
	buf := make([]byte, tokenEntropyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base58.Encode(buf), nil
}
