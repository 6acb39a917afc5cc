package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

var randRead = rand.Read

// GenerateTokenID returns a random, URL-safe session token id.
func GenerateTokenID() (string, error) {
	b := make([]byte, 24)
	if _, err := randRead(b); err != nil {
		return "", fmt.Errorf("failed to generate token id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
