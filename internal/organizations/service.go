// Package organizations exposes the master-admin client directory.
package organizations

import (
	"context"

	"github.com/huemul/tablero/internal/guard"
	"github.com/huemul/tablero/internal/models"
	"github.com/huemul/tablero/internal/store"
)

// Service lists client organizations for platform operators.
type Service struct {
	organizations store.OrganizationStore
	guard         *guard.Guard
}

// NewService creates the organization directory service.
func NewService(orgs store.OrganizationStore, g *guard.Guard) *Service {
	return &Service{organizations: orgs, guard: g}
}

// GetAllClients returns every client organization, newest first. Master
// admin only. The caller's own organization is excluded only when the
// master admin actually has one; an unscoped master admin sees everything.
func (s *Service) GetAllClients(ctx context.Context) ([]*models.Organization, error) {
	profile, err := s.guard.RequireMasterAdmin(ctx)
	if err != nil {
		return nil, err
	}

	return s.organizations.ListClients(ctx, profile.OrganizationID)
}
