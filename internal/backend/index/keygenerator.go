package index

import "github.com/google/uuid"

// NewImageID returns a random RFC 4122 version 4 UUID.
func NewImageID() string {
	return uuid.NewString()
}
