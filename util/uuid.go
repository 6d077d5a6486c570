// Package util provides utility functions for the inventory client.
package util

import "github.com/google/uuid"

// GenerateUUID returns a random (version 4) UUID string.
func GenerateUUID() string {
	return uuid.NewString()
}

// RequestID returns the id to tag an outgoing request with, reusing id when
// the caller already has one.
func RequestID(id string) string {
	if id != "" {
		return id
	}
	return GenerateUUID()
}
