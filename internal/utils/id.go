package utils

import "github.com/google/uuid"

// GenerateID returns a random identifier for a redaction request.
func GenerateID() string {
	return uuid.NewString()
}
