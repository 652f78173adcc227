// Package provision converts an accepted invitation into a tenant: an
// organization, its admin profile, and the membership side record.
package provision

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/huemul/tablero/internal/guard"
	"github.com/huemul/tablero/internal/identity"
	"github.com/huemul/tablero/internal/models"
	"github.com/huemul/tablero/internal/store"
)

var (
	// ErrNoInvitationContext means no authenticated identity was present;
	// the token redemption at the provider never happened.
	ErrNoInvitationContext = errors.New("no invitation context")

	// ErrProvisioningConflict wraps organization or profile creation
	// failures surfaced back to the registration form.
	ErrProvisioningConflict = errors.New("provisioning conflict")
)

// Registration carries the submitted registration form. Empty fields fall
// back to metadata set on the identity at invite time.
type Registration struct {
	FullName      string
	CompanyName   string
	RUT           string
	Country       string
	EmployeeCount int
	Password      string
}

// Outcome reports where an accept attempt landed.
type Outcome struct {
	// AlreadyProvisioned is true when the identity already had a profile
	// and nothing was created.
	AlreadyProvisioned bool
	Profile            *models.Profile
	Destination        string
}

// Provisioner runs the accept-invitation state machine. The elevated
// stores bypass tenant scoping; the acting identity has no organization
// yet, so ordinary write policy would reject every insert.
type Provisioner struct {
	provider    identity.Provider
	profiles    store.ProfileStore
	invitations store.InvitationStore
	elevated    *store.Elevated
}

// New creates a provisioner.
func New(provider identity.Provider, profiles store.ProfileStore, invitations store.InvitationStore, elevated *store.Elevated) *Provisioner {
	return &Provisioner{
		provider:    provider,
		profiles:    profiles,
		invitations: invitations,
		elevated:    elevated,
	}
}

// Accept provisions the authenticated identity. The operation is
// idempotent: a retry, refresh, or double submit after provisioning
// observes AlreadyProvisioned and creates nothing. Membership and
// invitation bookkeeping failures never abort the flow; there is no
// distributed transaction here, only a deliberate order of writes.
func (p *Provisioner) Accept(ctx context.Context, form Registration) (*Outcome, error) {
	id := guard.IdentityFromContext(ctx)
	if id == nil {
		return nil, ErrNoInvitationContext
	}

	if outcome, err := p.existingProfile(ctx, id.ID); err != nil || outcome != nil {
		return outcome, err
	}

	form = fillFromMetadata(form, id)

	if form.Password != "" {
		err := p.provider.UpdatePassword(ctx, id.ID, form.Password)
		switch {
		case errors.Is(err, identity.ErrSamePassword):
			log.Debug().
				Str("identity_id", id.ID.String()).
				Msg("Password unchanged during provisioning")
		case err != nil:
			return nil, fmt.Errorf("failed to update credentials: %w", err)
		}
	}

	now := time.Now()
	org := &models.Organization{
		OrgID:         uuid.Must(uuid.NewV7()),
		Name:          form.CompanyName,
		RUT:           form.RUT,
		Country:       form.Country,
		EmployeeCount: form.EmployeeCount,
		Status:        models.OrgStatusProvisioning,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := p.elevated.Organizations.Create(ctx, org); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrProvisioningConflict, err)
	}

	profile := &models.Profile{
		ID:             id.ID,
		OrganizationID: &org.OrgID,
		Email:          id.Email,
		FullName:       form.FullName,
		Role:           models.RoleOrgAdmin,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := p.elevated.Profiles.Create(ctx, profile); err != nil {
		if errors.Is(err, store.ErrProfileAlreadyExists) {
			// Lost a concurrent accept for the same identity. The winner's
			// organization stands; ours stays in provisioning state for the
			// reconciliation sweep to find.
			log.Warn().
				Str("identity_id", id.ID.String()).
				Str("orphaned_org_id", org.OrgID.String()).
				Msg("Concurrent provisioning detected, yielding to existing profile")

			if outcome, err := p.existingProfile(ctx, id.ID); err == nil && outcome != nil {
				return outcome, nil
			}
		}
		return nil, fmt.Errorf("%w: %s", ErrProvisioningConflict, err)
	}

	// The profile insert succeeded, so the organization has an owner.
	if err := p.elevated.Organizations.SetStatus(ctx, org.OrgID, models.OrgStatusActive); err != nil {
		log.Warn().Err(err).
			Str("org_id", org.OrgID.String()).
			Msg("Failed to activate organization after provisioning")
	}

	p.createMembership(ctx, org.OrgID, id.ID)

	if n, err := p.invitations.MarkAcceptedByEmail(ctx, id.Email); err != nil {
		log.Warn().Err(err).
			Str("email", id.Email).
			Msg("Failed to settle tracking invitation")
	} else if n > 0 {
		log.Debug().
			Str("email", id.Email).
			Int("count", n).
			Msg("Settled tracking invitations")
	}

	created, err := p.elevated.Profiles.Get(ctx, id.ID)
	if err != nil {
		// The writes are durable; report the destination from what we built.
		log.Warn().Err(err).
			Str("identity_id", id.ID.String()).
			Msg("Failed to re-read profile after provisioning")
		created = profile
	}

	log.Info().
		Str("identity_id", id.ID.String()).
		Str("org_id", org.OrgID.String()).
		Msg("Provisioned organization")

	return &Outcome{
		Profile:     created,
		Destination: created.Role.HomePath(),
	}, nil
}

// existingProfile returns the AlreadyProvisioned outcome when the identity
// already has a profile, nil when it has none.
func (p *Provisioner) existingProfile(ctx context.Context, id uuid.UUID) (*Outcome, error) {
	profile, err := p.profiles.Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrProfileNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to check existing profile: %w", err)
	}

	return &Outcome{
		AlreadyProvisioned: true,
		Profile:            profile,
		Destination:        profile.Role.HomePath(),
	}, nil
}

// createMembership records the membership side record. A duplicate means a
// previous attempt already satisfied it; any other failure is logged and
// absorbed, because losing this record must not abort provisioning.
func (p *Provisioner) createMembership(ctx context.Context, orgID, userID uuid.UUID) {
	err := p.elevated.Memberships.Create(ctx, &models.Membership{
		OrganizationID: orgID,
		UserID:         userID,
		Role:           models.MembershipAdmin,
		CreatedAt:      time.Now(),
	})

	if err != nil && !errors.Is(err, store.ErrMembershipAlreadyExists) {
		log.Warn().Err(err).
			Str("org_id", orgID.String()).
			Str("user_id", userID.String()).
			Msg("Failed to create membership record")
	}
}

// fillFromMetadata backfills empty form fields from metadata carried on
// the identity (set by the provider at invite time).
func fillFromMetadata(form Registration, id *models.Identity) Registration {
	if form.FullName == "" {
		form.FullName = id.Metadata["full_name"]
	}
	if form.CompanyName == "" {
		form.CompanyName = id.Metadata["company_name"]
	}
	if form.Country == "" {
		form.Country = id.Metadata["country"]
	}
	return form
}
