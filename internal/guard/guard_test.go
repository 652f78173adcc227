package guard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/huemul/tablero/internal/identity"
	"github.com/huemul/tablero/internal/models"
	"github.com/huemul/tablero/internal/store"
	memorystore "github.com/huemul/tablero/internal/store/memory"
)

var testRetry = RetryPolicy{MaxTries: 2, Interval: time.Millisecond}

// flakyProfileStore fails lookups with a transient error a configured
// number of times before delegating to the real store.
type flakyProfileStore struct {
	store.ProfileStore

	failures int
	calls    int
}

func (s *flakyProfileStore) Get(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	s.calls++
	if s.calls <= s.failures {
		return nil, errors.New("connection reset")
	}
	return s.ProfileStore.Get(ctx, id)
}

func newTestIdentity(email string) *models.Identity {
	return &models.Identity{ID: uuid.Must(uuid.NewV7()), Email: email}
}

func seedProfile(t *testing.T, profiles store.ProfileStore, id *models.Identity, role models.Role, orgID *uuid.UUID) *models.Profile {
	t.Helper()

	profile := &models.Profile{
		ID:             id.ID,
		OrganizationID: orgID,
		Email:          id.Email,
		Role:           role,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	require.NoError(t, profiles.Create(context.Background(), profile))
	return profile
}

func TestGuard_RequireIdentity(t *testing.T) {
	profiles := memorystore.NewProfileStore()
	provider := identity.NewMemoryProvider([]byte("test-secret-key-min-32-bytes-long"))
	g := NewWithRetry(profiles, provider, testRetry)

	t.Run("unauthenticated redirects to sign-in", func(t *testing.T) {
		_, err := g.RequireIdentity(context.Background())
		redirect, ok := AsRedirect(err)
		require.True(t, ok)
		require.Equal(t, "/signin", redirect.Location)
		require.Equal(t, ReasonUnauthenticated, redirect.Reason)
	})

	t.Run("authenticated returns identity", func(t *testing.T) {
		id := newTestIdentity("user@example.com")
		ctx := WithIdentity(context.Background(), id)

		got, err := g.RequireIdentity(ctx)
		require.NoError(t, err)
		require.Equal(t, id.ID, got.ID)
	})
}

func TestGuard_RequireProfile(t *testing.T) {
	t.Run("returns identity and profile", func(t *testing.T) {
		profiles := memorystore.NewProfileStore()
		provider := identity.NewMemoryProvider([]byte("test-secret-key-min-32-bytes-long"))
		g := NewWithRetry(profiles, provider, testRetry)

		id := newTestIdentity("user@example.com")
		provider.AddIdentity(id)
		seedProfile(t, profiles, id, models.RoleOrgMember, nil)

		gotID, profile, err := g.RequireProfile(WithIdentity(context.Background(), id))
		require.NoError(t, err)
		require.Equal(t, id.ID, gotID.ID)
		require.Equal(t, models.RoleOrgMember, profile.Role)
	})

	t.Run("retries transient lookup error exactly once", func(t *testing.T) {
		profiles := memorystore.NewProfileStore()
		provider := identity.NewMemoryProvider([]byte("test-secret-key-min-32-bytes-long"))

		id := newTestIdentity("user@example.com")
		provider.AddIdentity(id)
		seedProfile(t, profiles, id, models.RoleOrgAdmin, nil)

		flaky := &flakyProfileStore{ProfileStore: profiles, failures: 1}
		g := NewWithRetry(flaky, provider, testRetry)

		_, profile, err := g.RequireProfile(WithIdentity(context.Background(), id))
		require.NoError(t, err)
		require.Equal(t, models.RoleOrgAdmin, profile.Role)
		require.Equal(t, 2, flaky.calls)
	})

	t.Run("gives up after one retry", func(t *testing.T) {
		profiles := memorystore.NewProfileStore()
		provider := identity.NewMemoryProvider([]byte("test-secret-key-min-32-bytes-long"))

		id := newTestIdentity("user@example.com")
		provider.AddIdentity(id)
		seedProfile(t, profiles, id, models.RoleOrgAdmin, nil)

		flaky := &flakyProfileStore{ProfileStore: profiles, failures: 5}
		g := NewWithRetry(flaky, provider, testRetry)

		_, _, err := g.RequireProfile(WithIdentity(context.Background(), id))
		require.Error(t, err)
		_, isRedirect := AsRedirect(err)
		require.False(t, isRedirect)
		require.Equal(t, 2, flaky.calls)
	})

	t.Run("missing profile signs out without retrying", func(t *testing.T) {
		profiles := memorystore.NewProfileStore()
		provider := identity.NewMemoryProvider([]byte("test-secret-key-min-32-bytes-long"))

		id := newTestIdentity("ghost@example.com")
		provider.AddIdentity(id)

		flaky := &flakyProfileStore{ProfileStore: profiles}
		g := NewWithRetry(flaky, provider, testRetry)

		_, _, err := g.RequireProfile(WithIdentity(context.Background(), id))
		redirect, ok := AsRedirect(err)
		require.True(t, ok)
		require.Equal(t, "/signin", redirect.Location)
		require.Equal(t, ReasonNoProfile, redirect.Reason)
		require.Equal(t, 1, flaky.calls)
		require.Equal(t, 1, provider.SignOutCount(id.ID))
	})
}

func TestGuard_RequireRole(t *testing.T) {
	t.Run("org member requesting master admin redirects to org home", func(t *testing.T) {
		profiles := memorystore.NewProfileStore()
		provider := identity.NewMemoryProvider([]byte("test-secret-key-min-32-bytes-long"))
		g := NewWithRetry(profiles, provider, testRetry)

		id := newTestIdentity("member@example.com")
		provider.AddIdentity(id)
		orgID := uuid.Must(uuid.NewV7())
		seedProfile(t, profiles, id, models.RoleOrgMember, &orgID)

		_, err := g.RequireRole(WithIdentity(context.Background(), id), models.RoleMasterAdmin)
		redirect, ok := AsRedirect(err)
		require.True(t, ok)
		require.Equal(t, "/dashboard", redirect.Location)
		require.Equal(t, ReasonPermissionDenied, redirect.Reason)
	})

	t.Run("master admin requesting org role redirects to admin home", func(t *testing.T) {
		profiles := memorystore.NewProfileStore()
		provider := identity.NewMemoryProvider([]byte("test-secret-key-min-32-bytes-long"))
		g := NewWithRetry(profiles, provider, testRetry)

		id := newTestIdentity("admin@example.com")
		provider.AddIdentity(id)
		seedProfile(t, profiles, id, models.RoleMasterAdmin, nil)

		_, err := g.RequireRole(WithIdentity(context.Background(), id), models.RoleOrgMember)
		redirect, ok := AsRedirect(err)
		require.True(t, ok)
		require.Equal(t, "/admin", redirect.Location)
	})

	t.Run("allowed role passes", func(t *testing.T) {
		profiles := memorystore.NewProfileStore()
		provider := identity.NewMemoryProvider([]byte("test-secret-key-min-32-bytes-long"))
		g := NewWithRetry(profiles, provider, testRetry)

		id := newTestIdentity("admin@example.com")
		provider.AddIdentity(id)
		orgID := uuid.Must(uuid.NewV7())
		seedProfile(t, profiles, id, models.RoleOrgAdmin, &orgID)

		profile, err := g.RequireRole(WithIdentity(context.Background(), id), models.RoleMasterAdmin, models.RoleOrgAdmin)
		require.NoError(t, err)
		require.Equal(t, models.RoleOrgAdmin, profile.Role)
	})
}

func TestGuard_RequireOrgAccess(t *testing.T) {
	t.Run("master admin passes for any organization", func(t *testing.T) {
		profiles := memorystore.NewProfileStore()
		provider := identity.NewMemoryProvider([]byte("test-secret-key-min-32-bytes-long"))
		g := NewWithRetry(profiles, provider, testRetry)

		id := newTestIdentity("admin@example.com")
		provider.AddIdentity(id)
		seedProfile(t, profiles, id, models.RoleMasterAdmin, nil)

		_, err := g.RequireOrgAccess(WithIdentity(context.Background(), id), uuid.Must(uuid.NewV7()))
		require.NoError(t, err)
	})

	t.Run("member of another organization redirects home", func(t *testing.T) {
		profiles := memorystore.NewProfileStore()
		provider := identity.NewMemoryProvider([]byte("test-secret-key-min-32-bytes-long"))
		g := NewWithRetry(profiles, provider, testRetry)

		id := newTestIdentity("member@example.com")
		provider.AddIdentity(id)
		ownOrg := uuid.Must(uuid.NewV7())
		seedProfile(t, profiles, id, models.RoleOrgMember, &ownOrg)

		_, err := g.RequireOrgAccess(WithIdentity(context.Background(), id), uuid.Must(uuid.NewV7()))
		redirect, ok := AsRedirect(err)
		require.True(t, ok)
		require.Equal(t, "/dashboard", redirect.Location)
	})

	t.Run("member of the organization passes", func(t *testing.T) {
		profiles := memorystore.NewProfileStore()
		provider := identity.NewMemoryProvider([]byte("test-secret-key-min-32-bytes-long"))
		g := NewWithRetry(profiles, provider, testRetry)

		id := newTestIdentity("member@example.com")
		provider.AddIdentity(id)
		orgID := uuid.Must(uuid.NewV7())
		seedProfile(t, profiles, id, models.RoleOrgMember, &orgID)

		profile, err := g.RequireOrgAccess(WithIdentity(context.Background(), id), orgID)
		require.NoError(t, err)
		require.True(t, profile.BelongsTo(orgID))
	})
}
