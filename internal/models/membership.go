package models

import (
	"time"

	"github.com/google/uuid"
)

// MembershipRole is the role carried on the membership side record.
type MembershipRole string

const (
	MembershipAdmin  MembershipRole = "admin"
	MembershipMember MembershipRole = "member"
)

// Membership links a user to an organization. It is a side record created
// during provisioning; duplicates on (org, user) are tolerated by callers.
type Membership struct {
	OrganizationID uuid.UUID
	UserID         uuid.UUID
	Role           MembershipRole
	CreatedAt      time.Time
}
