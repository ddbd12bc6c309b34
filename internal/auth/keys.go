// Package auth verifies identity tokens issued by the external identity
// service and exposes the current user to the rest of the server.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	// PASETO v4 requires a 256-bit (32-byte) symmetric key.
	keyLength = 32
	// Expected hex-encoded length (32 bytes = 64 hex characters).
	keyHexLength = 64
)

// LoadOrGenerateKeyHex returns the development token key stored in
// <dataPath>/auth.key, generating and saving one if the file is missing.
// Production deployments share the identity service's key via config instead.
func LoadOrGenerateKeyHex(dataPath string) (string, error) {
	keyPath := filepath.Join(dataPath, "auth.key")

	//#nosec G304 -- Auth key path is derived from validated data path
	if keyBytes, err := os.ReadFile(keyPath); err == nil {
		keyHex := strings.TrimSpace(string(keyBytes))
		if err := validateKeyHex(keyHex); err != nil {
			return "", fmt.Errorf("invalid auth key in %s: %w", keyPath, err)
		}
		return keyHex, nil
	}

	keyHex, err := GenerateKeyHex()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dataPath, 0o700); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := os.WriteFile(keyPath, []byte(keyHex), 0o600); err != nil {
		return "", fmt.Errorf("failed to save auth key: %w", err)
	}

	return keyHex, nil
}

// GenerateKeyHex returns a new random hex-encoded PASETO v4 key.
func GenerateKeyHex() (string, error) {
	key := make([]byte, keyLength)
	if _, err := rand.Read(key); err != nil {
		return "", fmt.Errorf("failed to generate auth key: %w", err)
	}
	return hex.EncodeToString(key), nil
}

func validateKeyHex(keyHex string) error {
	if len(keyHex) != keyHexLength {
		return fmt.Errorf("PASETO v4 key must be exactly %d hex characters (%d bytes), got %d", keyHexLength, keyLength, len(keyHex))
	}
	if _, err := hex.DecodeString(keyHex); err != nil {
		return fmt.Errorf("invalid hex string for PASETO key: %w", err)
	}
	return nil
}
