package models

import (
	"time"

	"github.com/google/uuid"
)

// InvitationStatus is the lifecycle state of an invitation.
// Transitions are monotonic: pending -> accepted or pending -> expired.
type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
	InvitationExpired  InvitationStatus = "expired"
)

// CredentialKind distinguishes the two invitation token schemes.
type CredentialKind string

const (
	// CredentialRandomToken is a locally generated opaque token.
	CredentialRandomToken CredentialKind = "random_token"
	// CredentialProviderIdentity is the identity provider's user ID,
	// issued when the provider sends the invite email itself.
	CredentialProviderIdentity CredentialKind = "provider_identity"
)

// Invitation is the record of a pending or settled invite.
// The credential is the sole way to accept.
type Invitation struct {
	ID             uuid.UUID // UUIDv7
	Email          string
	OrganizationID *uuid.UUID // nil for provider-driven client invites, resolved at acceptance
	InvitedBy      uuid.UUID
	Role           Role
	Token          string
	TokenKind      CredentialKind
	Status         InvitationStatus
	ExpiresAt      time.Time
	Metadata       map[string]string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsExpired returns true if the invitation's deadline has passed.
func (i *Invitation) IsExpired() bool {
	return time.Now().After(i.ExpiresAt)
}

// AcceptPath returns the path portion of the acceptance URL for this
// invitation's credential scheme. Both paths resolve to the same entry point.
func (i *Invitation) AcceptPath() string {
	if i.TokenKind == CredentialProviderIdentity {
		return "/invitations?token=" + i.Token
	}
	return "/invitations/" + i.Token
}
