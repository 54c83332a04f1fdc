// Package util holds small internal helpers that are not part of the public
// API surface.
package util

import "github.com/google/uuid"

// NewID generates a unique identifier used for run topics and lifecycle
// events.
func NewID() string { return uuid.NewString() }
