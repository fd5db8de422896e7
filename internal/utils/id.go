package utils

import "github.com/google/uuid"

// NewID returns a random unique identifier.
func NewID() string {
	return uuid.NewString()
}

// ShortID returns the first eight hex digits of a random identifier.
func ShortID() string {
	return NewID()[:8]
}
