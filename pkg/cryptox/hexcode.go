package cryptox

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// GenerateHexCode creates a fixed-width lowercase hex code with length/2
// bytes of entropy. Used for MFA backup codes, where users type the value
// by hand and base64 is error-prone.
func GenerateHexCode(length int) (string, error) {
	if length <= 0 || length%2 != 0 {
		return "", fmt.Errorf("hex code length must be positive and even, got %d", length)
	}

	buf := make([]byte, length/2)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random code: %w", err)
	}

	return hex.EncodeToString(buf), nil
}
