// Package invitations owns the invitation lifecycle: issuing, validating,
// and expiring the credentials that provision new organizations.
package invitations

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
	// ErrAlreadyRegistered means the email already has a profile.
	ErrAlreadyRegistered = errors.New("a user with this email is already registered")

	// ErrDuplicatePending means a pending invitation already exists for the
	// email within the inviter's organization.
	ErrDuplicatePending = errors.New("a pending invitation already exists for this email")

	// ErrInvalidOrExpired is deliberately generic: it covers unknown,
	// already-settled, and expired tokens alike.
	ErrInvalidOrExpired = errors.New("invitation invalid or expired, contact your administrator")
)

// DefaultTTL is how long an invitation stays acceptable.
const DefaultTTL = 7 * 24 * time.Hour

// Service issues, validates, and expires invitations.
type Service struct {
	invitations store.InvitationStore
	profiles    store.ProfileStore
	provider    identity.Provider
	guard       *guard.Guard
	baseURL     string
	ttl         time.Duration
}

// NewService creates the invitation service. baseURL is the site base used
// to construct acceptance links.
func NewService(invs store.InvitationStore, profiles store.ProfileStore, provider identity.Provider, g *guard.Guard, baseURL string) *Service {
	return &Service{
		invitations: invs,
		profiles:    profiles,
		provider:    provider,
		guard:       g,
		baseURL:     baseURL,
		ttl:         DefaultTTL,
	}
}

// Created is the result of issuing an invitation.
type Created struct {
	Invitation *models.Invitation
	AcceptURL  string
}

// Create issues a random-token invitation into the inviter's organization.
// Requires master admin or org admin. The pre-checks shape the user-facing
// error; the store's pending-uniqueness constraint is what actually closes
// the duplicate race.
func (s *Service) Create(ctx context.Context, email string, role models.Role) (*Created, error) {
	inviter, err := s.guard.RequireRole(ctx, models.RoleMasterAdmin, models.RoleOrgAdmin)
	if err != nil {
		return nil, err
	}

	if !role.Valid() {
		return nil, fmt.Errorf("invalid role %q", role)
	}

	if _, err := s.profiles.GetByEmail(ctx, email); err == nil {
		return nil, ErrAlreadyRegistered
	} else if !errors.Is(err, store.ErrProfileNotFound) {
		return nil, fmt.Errorf("failed to check existing profile: %w", err)
	}

	if _, err := s.invitations.FindPending(ctx, email, inviter.OrganizationID); err == nil {
		return nil, ErrDuplicatePending
	} else if !errors.Is(err, store.ErrInvitationNotFound) {
		return nil, fmt.Errorf("failed to check pending invitations: %w", err)
	}

	token, err := newToken()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	inv := &models.Invitation{
		ID:             uuid.Must(uuid.NewV7()),
		Email:          email,
		OrganizationID: inviter.OrganizationID,
		InvitedBy:      inviter.ID,
		Role:           role,
		Token:          token,
		TokenKind:      models.CredentialRandomToken,
		Status:         models.InvitationPending,
		ExpiresAt:      now.Add(s.ttl),
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.invitations.Create(ctx, inv); err != nil {
		if errors.Is(err, store.ErrDuplicatePendingInvitation) {
			return nil, ErrDuplicatePending
		}
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}

	log.Info().
		Str("invitation_id", inv.ID.String()).
		Str("email", email).
		Str("role", string(role)).
		Str("invited_by", inviter.ID.String()).
		Msg("Created invitation")

	return &Created{Invitation: inv, AcceptURL: s.baseURL + inv.AcceptPath()}, nil
}

// InviteClient issues a provider-driven invitation for a new client
// organization. Master admin only. The provider sends the email itself and
// its user ID becomes the credential; the organization is resolved at
// acceptance time, so the tracking row carries none.
func (s *Service) InviteClient(ctx context.Context, email, companyName string) (*Created, error) {
	inviter, err := s.guard.RequireMasterAdmin(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := s.profiles.GetByEmail(ctx, email); err == nil {
		return nil, ErrAlreadyRegistered
	} else if !errors.Is(err, store.ErrProfileNotFound) {
		return nil, fmt.Errorf("failed to check existing profile: %w", err)
	}

	if _, err := s.invitations.FindPending(ctx, email, nil); err == nil {
		return nil, ErrDuplicatePending
	} else if !errors.Is(err, store.ErrInvitationNotFound) {
		return nil, fmt.Errorf("failed to check pending invitations: %w", err)
	}

	metadata := map[string]string{}
	if companyName != "" {
		metadata["company_name"] = companyName
	}

	providerID, err := s.provider.InviteByEmail(ctx, email, metadata)
	if err != nil {
		return nil, fmt.Errorf("identity provider invite failed: %w", err)
	}

	now := time.Now()
	inv := &models.Invitation{
		ID:        uuid.Must(uuid.NewV7()),
		Email:     email,
		InvitedBy: inviter.ID,
		Role:      models.RoleOrgAdmin,
		Token:     providerID.String(),
		TokenKind: models.CredentialProviderIdentity,
		Status:    models.InvitationPending,
		ExpiresAt: now.Add(s.ttl),
		Metadata:  metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.invitations.Create(ctx, inv); err != nil {
		if errors.Is(err, store.ErrDuplicatePendingInvitation) {
			return nil, ErrDuplicatePending
		}
		return nil, fmt.Errorf("failed to create tracking invitation: %w", err)
	}

	log.Info().
		Str("invitation_id", inv.ID.String()).
		Str("email", email).
		Str("invited_by", inviter.ID.String()).
		Msg("Invited client via identity provider")

	return &Created{Invitation: inv, AcceptURL: s.baseURL + inv.AcceptPath()}, nil
}

// GetByToken exchanges a token for its pending invitation. An expired
// pending invitation is transitioned to expired here, exactly once; this
// is the only place that transition happens. Everything that isn't a live
// pending invitation reads as ErrInvalidOrExpired.
func (s *Service) GetByToken(ctx context.Context, token string) (*models.Invitation, error) {
	inv, err := s.invitations.GetPendingByToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrInvitationNotFound) {
			return nil, ErrInvalidOrExpired
		}
		return nil, fmt.Errorf("failed to look up invitation: %w", err)
	}

	if inv.IsExpired() {
		if err := s.invitations.MarkExpired(ctx, inv.ID); err != nil {
			log.Warn().Err(err).
				Str("invitation_id", inv.ID.String()).
				Msg("Failed to mark invitation expired")
		}
		return nil, ErrInvalidOrExpired
	}

	return inv, nil
}

// List returns invitations visible to the caller: master admins see all,
// everyone else sees their organization's, newest first.
func (s *Service) List(ctx context.Context) ([]*models.Invitation, error) {
	_, profile, err := s.guard.RequireProfile(ctx)
	if err != nil {
		return nil, err
	}

	if profile.Role == models.RoleMasterAdmin {
		return s.invitations.ListAll(ctx)
	}

	if profile.OrganizationID == nil {
		return nil, nil
	}

	return s.invitations.ListForOrganization(ctx, *profile.OrganizationID)
}
