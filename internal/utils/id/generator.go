package id

import (
	"fmt"

	"github.com/google/uuid"
)

// NewConversationID generates a conversation identifier with a stable
// prefix for display.
func NewConversationID() string {
	return newIdentifier("conv")
}

// NewTurnID generates a turn identifier with a stable prefix for display.
func NewTurnID() string {
	return newIdentifier("turn")
}

// NewArtifactID generates an identifier for materialized artifacts.
func NewArtifactID() string {
	return newIdentifier("art")
}

// NewRequestID generates an identifier for one server request.
func NewRequestID() string {
	return newIdentifier("req")
}

// newIdentifier prefers time-ordered UUIDv7 so ids sort by creation time;
// uuid.NewV7 only fails when the random source does, in which case v4 is
// close enough.
func newIdentifier(prefix string) string {
	uuidv7, err := uuid.NewV7()
	if err != nil {
		return fmt.Sprintf("%s-%s", prefix, uuid.New().String())
	}
	return fmt.Sprintf("%s-%s", prefix, uuidv7.String())
}

// NewUUIDv7 exposes raw UUIDv7 generation for callers that need
// unprefixed identifiers.
func NewUUIDv7() string {
	uuidv7, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return uuidv7.String()
}
