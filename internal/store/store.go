package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/huemul/tablero/internal/models"
)

// Sentinel errors for common error conditions
var (
	ErrProfileNotFound            = errors.New("profile not found")
	ErrProfileAlreadyExists       = errors.New("profile already exists")
	ErrOrganizationNotFound       = errors.New("organization not found")
	ErrOrganizationAlreadyExists  = errors.New("organization already exists")
	ErrInvitationNotFound         = errors.New("invitation not found")
	ErrDuplicatePendingInvitation = errors.New("pending invitation already exists for email and organization")
	ErrMembershipAlreadyExists    = errors.New("membership already exists")
	ErrJobNotFound                = errors.New("job not found")
)

// ProfileStore persists profiles keyed by identity ID.
// Reads may briefly race a just-completed write (eventual consistency in
// replicated deployments); callers own any retry policy.
type ProfileStore interface {
	Create(ctx context.Context, profile *models.Profile) error
	Get(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	GetByEmail(ctx context.Context, email string) (*models.Profile, error)
}

// OrganizationStore persists organizations (tenants).
type OrganizationStore interface {
	Create(ctx context.Context, org *models.Organization) error
	Get(ctx context.Context, orgID uuid.UUID) (*models.Organization, error)
	SetStatus(ctx context.Context, orgID uuid.UUID, status models.OrganizationStatus) error

	// ListClients returns all organizations ordered newest-first, excluding
	// exclude when non-nil (a master admin's own organization).
	ListClients(ctx context.Context, exclude *uuid.UUID) ([]*models.Organization, error)
}

// InvitationStore persists invitations. The storage layer enforces at most
// one pending invitation per (email, organization) pair; Create returns
// ErrDuplicatePendingInvitation as the authoritative duplicate signal.
type InvitationStore interface {
	Create(ctx context.Context, inv *models.Invitation) error

	// GetPendingByToken returns the pending invitation holding the token,
	// regardless of expiry. Settled invitations are not returned.
	GetPendingByToken(ctx context.Context, token string) (*models.Invitation, error)

	// FindPending returns a pending, unexpired invitation for the pair, or
	// ErrInvitationNotFound.
	FindPending(ctx context.Context, email string, orgID *uuid.UUID) (*models.Invitation, error)

	// MarkExpired moves a pending invitation to expired. Expiring an
	// already-expired invitation is a no-op.
	MarkExpired(ctx context.Context, id uuid.UUID) error

	// MarkAcceptedByEmail settles any pending invitations for the email.
	// Returns the number of rows updated; zero is not an error.
	MarkAcceptedByEmail(ctx context.Context, email string) (int, error)

	ListAll(ctx context.Context) ([]*models.Invitation, error)
	ListForOrganization(ctx context.Context, orgID uuid.UUID) ([]*models.Invitation, error)

	// DeleteExpiredBefore removes settled expired invitations older than the
	// cutoff. Run by the sweep command; never required for correctness.
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int, error)
}

// MembershipStore persists organization membership side records.
type MembershipStore interface {
	Create(ctx context.Context, m *models.Membership) error
}

// JobStore persists queued jobs. Only creation and scoped reads belong to
// this core; the external worker owns every later status transition.
type JobStore interface {
	Create(ctx context.Context, job *models.Job) error

	// GetForProject returns the job only if it belongs to the project,
	// ErrJobNotFound otherwise. The project scoping is what prevents
	// cross-tenant status leakage.
	GetForProject(ctx context.Context, jobID, projectID uuid.UUID) (*models.Job, error)
}

// Elevated groups the stores opened with elevated write privilege, bypassing
// row-level tenant scoping. It is constructed once during wiring and handed
// only to the organization provisioner and the job queue; the caller's own
// authorization must already be established before either runs.
type Elevated struct {
	Organizations OrganizationStore
	Profiles      ProfileStore
	Memberships   MembershipStore
	Jobs          JobStore
}
