package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// GenerateConfirmationSecret generates a random secret in the format XXXXXX-XXXXXX-XXXXXX-XXXXXX
func GenerateConfirmationSecret() (string, error) {
	bytes := make([]byte, 12)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	hex := hex.EncodeToString(bytes)
	return fmt.Sprintf("%s-%s-%s-%s",
		hex[0:6],
		hex[6:12],
		hex[12:18],
		hex[18:24],
	), nil
}
