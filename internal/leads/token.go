package leads

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const accessTokenBytes = 32

// GenerateAccessToken returns an unguessable URL-safe dashboard credential.
func GenerateAccessToken() (string, error) {
	buf := make([]byte, accessTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("leads: generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
