// Package idgen provides random identifiers.
package idgen

import (
	"github.com/google/uuid"

	"github.com/dorae/dorae/internal/domain"
)

var _ domain.IDGenerator = UUID{}

// UUID generates random (version 4) UUID strings.
type UUID struct{}

// NewID returns a new UUID string.
func (UUID) NewID() string {
	return uuid.NewString()
}
