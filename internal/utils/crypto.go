package utils

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"

	"golang.org/x/crypto/sha3"
)

// APIKeyPrefix marks raw keys so they are recognisable in logs and configs.
const APIKeyPrefix = "ak_"

func GenerateSecureCode() (string, error) {
	b := make([]byte, 32)
	_, err := rand.Read(b)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GenerateAPIKey returns a new raw API key. Only its digest is persisted.
func GenerateAPIKey() (string, error) {
	code, err := GenerateSecureCode()
	if err != nil {
		return "", err
	}
	return APIKeyPrefix + code, nil
}

// DigestAPIKey is the sha3-256 hex digest stored in api_keys.key_digest.
func DigestAPIKey(raw string) string {
	sum := sha3.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
