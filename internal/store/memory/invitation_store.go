package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/huemul/tablero/internal/models"
	"github.com/huemul/tablero/internal/store"
)

// InvitationStore implements store.InvitationStore using in-memory storage.
// This implementation is for testing and development only. It enforces the
// same single-pending-per-(email, org) rule as the postgres partial index.
type InvitationStore struct {
	mu sync.RWMutex

	invitations map[uuid.UUID]*models.Invitation // invitation_id -> Invitation
	byToken     map[string]uuid.UUID             // token -> invitation_id
}

// NewInvitationStore creates a new in-memory invitation store.
func NewInvitationStore() *InvitationStore {
	return &InvitationStore{
		invitations: make(map[uuid.UUID]*models.Invitation),
		byToken:     make(map[string]uuid.UUID),
	}
}

// Create inserts a new invitation, rejecting a second pending invitation
// for the same (email, organization) pair.
func (s *InvitationStore) Create(ctx context.Context, inv *models.Invitation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if inv.Status == models.InvitationPending {
		for _, existing := range s.invitations {
			if existing.Status != models.InvitationPending {
				continue
			}
			if !strings.EqualFold(existing.Email, inv.Email) {
				continue
			}
			if sameOrg(existing.OrganizationID, inv.OrganizationID) {
				return store.ErrDuplicatePendingInvitation
			}
		}
	}

	// Clone to avoid external modifications
	clone := *inv
	s.invitations[inv.ID] = &clone
	s.byToken[inv.Token] = inv.ID

	return nil
}

// GetPendingByToken returns the pending invitation holding the token.
func (s *InvitationStore) GetPendingByToken(ctx context.Context, token string) (*models.Invitation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.byToken[token]
	if !exists {
		return nil, store.ErrInvitationNotFound
	}

	inv := s.invitations[id]
	if inv.Status != models.InvitationPending {
		return nil, store.ErrInvitationNotFound
	}

	clone := *inv
	return &clone, nil
}

// FindPending returns a pending, unexpired invitation for (email, org).
func (s *InvitationStore) FindPending(ctx context.Context, email string, orgID *uuid.UUID) (*models.Invitation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, inv := range s.invitations {
		if inv.Status != models.InvitationPending {
			continue
		}
		if !strings.EqualFold(inv.Email, email) {
			continue
		}
		if !sameOrg(inv.OrganizationID, orgID) {
			continue
		}
		if inv.IsExpired() {
			continue
		}
		clone := *inv
		return &clone, nil
	}

	return nil, store.ErrInvitationNotFound
}

// MarkExpired moves a pending invitation to expired.
func (s *InvitationStore) MarkExpired(ctx context.Context, id uuid.UUID) error {
	return s.setStatus(id, models.InvitationExpired)
}

func (s *InvitationStore) setStatus(id uuid.UUID, status models.InvitationStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, exists := s.invitations[id]
	if !exists {
		return nil
	}

	// Terminal states are never overwritten
	if inv.Status != models.InvitationPending {
		return nil
	}

	inv.Status = status
	inv.UpdatedAt = time.Now()

	return nil
}

// MarkAcceptedByEmail settles all pending invitations for an email.
func (s *InvitationStore) MarkAcceptedByEmail(ctx context.Context, email string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, inv := range s.invitations {
		if inv.Status == models.InvitationPending && strings.EqualFold(inv.Email, email) {
			inv.Status = models.InvitationAccepted
			inv.UpdatedAt = time.Now()
			count++
		}
	}

	return count, nil
}

// ListAll returns every invitation, newest first.
func (s *InvitationStore) ListAll(ctx context.Context) ([]*models.Invitation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.Invitation
	for _, inv := range s.invitations {
		clone := *inv
		result = append(result, &clone)
	}

	sortNewestFirst(result)
	return result, nil
}

// ListForOrganization returns an organization's invitations, newest first.
func (s *InvitationStore) ListForOrganization(ctx context.Context, orgID uuid.UUID) ([]*models.Invitation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*models.Invitation
	for _, inv := range s.invitations {
		if inv.OrganizationID != nil && *inv.OrganizationID == orgID {
			clone := *inv
			result = append(result, &clone)
		}
	}

	sortNewestFirst(result)
	return result, nil
}

// DeleteExpiredBefore removes expired invitations settled before the cutoff.
func (s *InvitationStore) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for id, inv := range s.invitations {
		if inv.Status == models.InvitationExpired && inv.UpdatedAt.Before(cutoff) {
			delete(s.byToken, inv.Token)
			delete(s.invitations, id)
			count++
		}
	}

	return count, nil
}

func sameOrg(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func sortNewestFirst(invs []*models.Invitation) {
	sort.Slice(invs, func(i, j int) bool {
		return invs[i].CreatedAt.After(invs[j].CreatedAt)
	})
}
