package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/huemul/tablero/internal/models"
	"github.com/huemul/tablero/internal/store"
)

type membershipKey struct {
	orgID  uuid.UUID
	userID uuid.UUID
}

// MembershipStore implements store.MembershipStore using in-memory storage.
// This implementation is for testing and development only.
type MembershipStore struct {
	mu sync.RWMutex

	memberships map[membershipKey]*models.Membership
}

// NewMembershipStore creates a new in-memory membership store.
func NewMembershipStore() *MembershipStore {
	return &MembershipStore{
		memberships: make(map[membershipKey]*models.Membership),
	}
}

// Create inserts a membership row, rejecting duplicates on (org, user).
func (s *MembershipStore) Create(ctx context.Context, m *models.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := membershipKey{orgID: m.OrganizationID, userID: m.UserID}
	if _, exists := s.memberships[key]; exists {
		return store.ErrMembershipAlreadyExists
	}

	clone := *m
	s.memberships[key] = &clone

	return nil
}

// Count returns the number of membership rows. Test helper.
func (s *MembershipStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.memberships)
}
