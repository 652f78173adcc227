// Package identity defines the port to the external identity provider.
// The provider owns sessions, credentials, and invite emails; this module
// only consumes the authenticated identity and a handful of admin calls.
package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/huemul/tablero/internal/models"
)

var (
	ErrIdentityNotFound = errors.New("identity not found")
	// ErrSamePassword is returned by UpdatePassword when the new password
	// equals the current one. Callers treat it as non-fatal.
	ErrSamePassword = errors.New("new password is identical to the current password")
)

// Provider is the external identity provider.
type Provider interface {
	// GetIdentity returns the identity for an ID.
	GetIdentity(ctx context.Context, id uuid.UUID) (*models.Identity, error)

	// SignOut invalidates every session held by the identity.
	SignOut(ctx context.Context, id uuid.UUID) error

	// UpdatePassword sets the identity's password. Returns ErrSamePassword
	// when the password is unchanged.
	UpdatePassword(ctx context.Context, id uuid.UUID, password string) error

	// InviteByEmail has the provider create the identity and send the
	// invite email out of band. Returns the provider's user ID, which
	// doubles as the invitation credential on this path.
	InviteByEmail(ctx context.Context, email string, metadata map[string]string) (uuid.UUID, error)
}
