package organizations

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/huemul/tablero/internal/guard"
	"github.com/huemul/tablero/internal/identity"
	"github.com/huemul/tablero/internal/models"
	memorystore "github.com/huemul/tablero/internal/store/memory"
)

func seedOrg(t *testing.T, orgs *memorystore.OrganizationStore, name string, createdAt time.Time) uuid.UUID {
	t.Helper()

	id := uuid.Must(uuid.NewV7())
	require.NoError(t, orgs.Create(context.Background(), &models.Organization{
		OrgID:     id,
		Name:      name,
		Status:    models.OrgStatusActive,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}))
	return id
}

func actAs(t *testing.T, profiles *memorystore.ProfileStore, provider *identity.MemoryProvider, role models.Role, orgID *uuid.UUID) context.Context {
	t.Helper()

	id := &models.Identity{ID: uuid.Must(uuid.NewV7()), Email: uuid.NewString() + "@example.com"}
	provider.AddIdentity(id)
	require.NoError(t, profiles.Create(context.Background(), &models.Profile{
		ID:             id.ID,
		OrganizationID: orgID,
		Email:          id.Email,
		Role:           role,
	}))
	return guard.WithIdentity(context.Background(), id)
}

func TestService_GetAllClients(t *testing.T) {
	t.Run("unscoped master admin sees every organization", func(t *testing.T) {
		orgs := memorystore.NewOrganizationStore()
		profiles := memorystore.NewProfileStore()
		provider := identity.NewMemoryProvider([]byte("test-secret-key-min-32-bytes-long"))
		svc := NewService(orgs, guard.New(profiles, provider))

		seedOrg(t, orgs, "Andina SpA", time.Now().Add(-time.Hour))
		seedOrg(t, orgs, "Cliente Ltda", time.Now())

		ctx := actAs(t, profiles, provider, models.RoleMasterAdmin, nil)

		clients, err := svc.GetAllClients(ctx)
		require.NoError(t, err)
		require.Len(t, clients, 2)
		require.Equal(t, "Cliente Ltda", clients[0].Name)
		require.Equal(t, "Andina SpA", clients[1].Name)
	})

	t.Run("master admin with an organization does not see it", func(t *testing.T) {
		orgs := memorystore.NewOrganizationStore()
		profiles := memorystore.NewProfileStore()
		provider := identity.NewMemoryProvider([]byte("test-secret-key-min-32-bytes-long"))
		svc := NewService(orgs, guard.New(profiles, provider))

		ownOrg := seedOrg(t, orgs, "Huemul", time.Now().Add(-time.Hour))
		seedOrg(t, orgs, "Cliente Ltda", time.Now())

		ctx := actAs(t, profiles, provider, models.RoleMasterAdmin, &ownOrg)

		clients, err := svc.GetAllClients(ctx)
		require.NoError(t, err)
		require.Len(t, clients, 1)
		require.Equal(t, "Cliente Ltda", clients[0].Name)
	})

	t.Run("org admin is redirected", func(t *testing.T) {
		orgs := memorystore.NewOrganizationStore()
		profiles := memorystore.NewProfileStore()
		provider := identity.NewMemoryProvider([]byte("test-secret-key-min-32-bytes-long"))
		svc := NewService(orgs, guard.New(profiles, provider))

		orgID := seedOrg(t, orgs, "Cliente Ltda", time.Now())
		ctx := actAs(t, profiles, provider, models.RoleOrgAdmin, &orgID)

		_, err := svc.GetAllClients(ctx)
		redirect, ok := guard.AsRedirect(err)
		require.True(t, ok)
		require.Equal(t, "/dashboard", redirect.Location)
	})
}
