package models

import (
	"github.com/google/uuid"
)

// Identity is the authenticated principal as reported by the external
// identity provider. It exists for the lifetime of a session and carries
// no authorization on its own; authorization lives on the Profile.
type Identity struct {
	ID    uuid.UUID
	Email string

	// Metadata set by the provider at invite time (e.g. company name).
	// Used as a fallback source for registration fields during provisioning.
	Metadata map[string]string
}
