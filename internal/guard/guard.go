// Package guard resolves identity -> profile -> role for every
// tenant-scoped operation. Guard failures are control-flow exits carried
// as *Redirect values; business logic never runs past a failed guard.
package guard

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/huemul/tablero/internal/identity"
	"github.com/huemul/tablero/internal/models"
	"github.com/huemul/tablero/internal/store"
)

// Reason classifies why a guard redirected.
type Reason string

const (
	ReasonUnauthenticated  Reason = "unauthenticated"
	ReasonNoProfile        Reason = "no_profile"
	ReasonPermissionDenied Reason = "permission_denied"
)

// Redirect is a guard failure. It implements error so guard calls compose,
// but it is control flow: the HTTP layer turns it into a 303, never a
// response body.
type Redirect struct {
	Location string
	Reason   Reason
}

func (r *Redirect) Error() string {
	return fmt.Sprintf("redirect to %s (%s)", r.Location, r.Reason)
}

// AsRedirect unwraps a guard redirect from an error chain.
func AsRedirect(err error) (*Redirect, bool) {
	var r *Redirect
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}

type contextKey int

const identityContextKey contextKey = iota

// WithIdentity returns a context carrying the authenticated identity.
// Set by the HTTP middleware after verifying the provider token.
func WithIdentity(ctx context.Context, id *models.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}

// IdentityFromContext extracts the authenticated identity, or nil.
func IdentityFromContext(ctx context.Context) *models.Identity {
	id, _ := ctx.Value(identityContextKey).(*models.Identity)
	return id
}

// Guard performs the identity, profile, and role checks in front of every
// tenant-scoped operation.
type Guard struct {
	profiles store.ProfileStore
	provider identity.Provider
	retry    RetryPolicy
}

// New creates a guard with the default profile-lookup retry policy.
func New(profiles store.ProfileStore, provider identity.Provider) *Guard {
	return &Guard{
		profiles: profiles,
		provider: provider,
		retry:    DefaultRetryPolicy,
	}
}

// NewWithRetry creates a guard with an explicit retry policy.
func NewWithRetry(profiles store.ProfileStore, provider identity.Provider, retry RetryPolicy) *Guard {
	return &Guard{
		profiles: profiles,
		provider: provider,
		retry:    retry,
	}
}

// RequireIdentity returns the authenticated identity, or a redirect to the
// sign-in page.
func (g *Guard) RequireIdentity(ctx context.Context) (*models.Identity, error) {
	id := IdentityFromContext(ctx)
	if id == nil {
		return nil, &Redirect{Location: "/signin", Reason: ReasonUnauthenticated}
	}
	return id, nil
}

// RequireProfile returns the identity and its profile. Profile reads can
// race a just-completed write, so transient lookup errors get exactly one
// retry per the policy. A definitive miss is policy, not a fault: the
// identity is signed out and redirected to sign-in.
func (g *Guard) RequireProfile(ctx context.Context) (*models.Identity, *models.Profile, error) {
	id, err := g.RequireIdentity(ctx)
	if err != nil {
		return nil, nil, err
	}

	profile, err := Retry(ctx, g.retry, func() (*models.Profile, error) {
		return g.profiles.Get(ctx, id.ID)
	}, store.ErrProfileNotFound)

	if err != nil {
		if errors.Is(err, store.ErrProfileNotFound) {
			log.Info().
				Str("identity_id", id.ID.String()).
				Msg("Identity has no profile, signing out")

			if signOutErr := g.provider.SignOut(ctx, id.ID); signOutErr != nil {
				log.Warn().Err(signOutErr).
					Str("identity_id", id.ID.String()).
					Msg("Failed to sign out identity without profile")
			}

			return nil, nil, &Redirect{Location: "/signin", Reason: ReasonNoProfile}
		}
		return nil, nil, fmt.Errorf("profile lookup failed: %w", err)
	}

	return id, profile, nil
}

// RequireRole returns the profile if its role is in the allowed set,
// otherwise a redirect to the caller's own home (or sign-in for an
// unknown role). Redirecting to the actual home rather than the requested
// page is what keeps the redirect from looping.
func (g *Guard) RequireRole(ctx context.Context, allowed ...models.Role) (*models.Profile, error) {
	_, profile, err := g.RequireProfile(ctx)
	if err != nil {
		return nil, err
	}

	for _, role := range allowed {
		if profile.Role == role {
			return profile, nil
		}
	}

	return nil, &Redirect{
		Location: profile.Role.HomePath(),
		Reason:   ReasonPermissionDenied,
	}
}

// RequireMasterAdmin returns the profile only for master admins.
func (g *Guard) RequireMasterAdmin(ctx context.Context) (*models.Profile, error) {
	return g.RequireRole(ctx, models.RoleMasterAdmin)
}

// RequireOrgAccess returns the profile if it may act on the organization.
// Master admins always pass; everyone else must belong to it.
func (g *Guard) RequireOrgAccess(ctx context.Context, orgID uuid.UUID) (*models.Profile, error) {
	_, profile, err := g.RequireProfile(ctx)
	if err != nil {
		return nil, err
	}

	if profile.Role == models.RoleMasterAdmin {
		return profile, nil
	}

	if !profile.BelongsTo(orgID) {
		return nil, &Redirect{
			Location: profile.Role.HomePath(),
			Reason:   ReasonPermissionDenied,
		}
	}

	return profile, nil
}
