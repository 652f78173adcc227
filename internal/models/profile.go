package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is the authorization level bound to a profile.
type Role string

const (
	RoleMasterAdmin Role = "master_admin" // Platform operator, bypasses organization scoping
	RoleOrgAdmin    Role = "org_admin"    // Administrator within a single organization
	RoleOrgMember   Role = "org_member"   // Regular member within a single organization
)

// roleRank orders roles by capability. Higher rank implies every
// capability of the lower ranks.
var roleRank = map[Role]int{
	RoleOrgMember:   1,
	RoleOrgAdmin:    2,
	RoleMasterAdmin: 3,
}

// Valid returns true if the role is one of the known roles.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast returns true if the role has at least the capability of other.
func (r Role) AtLeast(other Role) bool {
	return roleRank[r] >= roleRank[other]
}

// HomePath returns the landing path for a profile with this role.
// Unknown roles land on the sign-in page.
func (r Role) HomePath() string {
	switch r {
	case RoleMasterAdmin:
		return "/admin"
	case RoleOrgAdmin, RoleOrgMember:
		return "/dashboard"
	default:
		return "/signin"
	}
}

// Profile binds an identity to a role and (optionally) an organization.
// The profile ID is the identity ID; there is at most one profile per identity.
type Profile struct {
	ID             uuid.UUID // = Identity.ID
	OrganizationID *uuid.UUID
	Email          string
	FullName       string
	Role           Role
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// BelongsTo returns true if the profile is scoped to the given organization.
func (p *Profile) BelongsTo(orgID uuid.UUID) bool {
	return p.OrganizationID != nil && *p.OrganizationID == orgID
}
