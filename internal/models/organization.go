package models

import (
	"time"

	"github.com/google/uuid"
)

// OrganizationStatus tracks the provisioning lifecycle of a tenant.
type OrganizationStatus string

const (
	// OrgStatusProvisioning marks an organization whose owning profile has
	// not been created yet. Rows stuck in this state are orphans left by a
	// partial provisioning failure and can be found by a reconciliation sweep.
	OrgStatusProvisioning OrganizationStatus = "provisioning"
	OrgStatusActive       OrganizationStatus = "active"
	OrgStatusSuspended    OrganizationStatus = "suspended"
)

// Organization represents a tenant. All tenant-scoped data hangs off its ID.
type Organization struct {
	OrgID         uuid.UUID // UUIDv7
	Name          string
	RUT           string // Tax identifier
	Country       string
	EmployeeCount int
	Status        OrganizationStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
