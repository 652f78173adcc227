package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/huemul/tablero/internal/models"
	"github.com/huemul/tablero/internal/store"
)

// ProfileStore implements store.ProfileStore using in-memory storage.
// This implementation is for testing and development only.
type ProfileStore struct {
	mu sync.RWMutex

	profiles        map[uuid.UUID]*models.Profile // identity_id -> Profile
	profilesByEmail map[string]*models.Profile    // lower(email) -> Profile
}

// NewProfileStore creates a new in-memory profile store.
func NewProfileStore() *ProfileStore {
	return &ProfileStore{
		profiles:        make(map[uuid.UUID]*models.Profile),
		profilesByEmail: make(map[string]*models.Profile),
	}
}

// Create creates a new profile in memory.
func (s *ProfileStore) Create(ctx context.Context, profile *models.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.profiles[profile.ID]; exists {
		return store.ErrProfileAlreadyExists
	}

	email := strings.ToLower(profile.Email)
	if _, exists := s.profilesByEmail[email]; exists {
		return store.ErrProfileAlreadyExists
	}

	// Clone to avoid external modifications
	clone := *profile
	s.profiles[profile.ID] = &clone
	s.profilesByEmail[email] = &clone

	return nil
}

// Get retrieves a profile by identity ID.
func (s *ProfileStore) Get(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profile, exists := s.profiles[id]
	if !exists {
		return nil, store.ErrProfileNotFound
	}

	clone := *profile
	return &clone, nil
}

// GetByEmail retrieves a profile by email, case-insensitively.
func (s *ProfileStore) GetByEmail(ctx context.Context, email string) (*models.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profile, exists := s.profilesByEmail[strings.ToLower(email)]
	if !exists {
		return nil, store.ErrProfileNotFound
	}

	clone := *profile
	return &clone, nil
}
