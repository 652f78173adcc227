package identity

import (
	"context"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/huemul/tablero/internal/models"
)

// MemoryProvider implements Provider with in-memory state. Used in tests
// and development mode; production talks to the hosted provider.
type MemoryProvider struct {
	mu sync.RWMutex

	identities map[uuid.UUID]*models.Identity
	passwords  map[uuid.UUID]string
	signedOut  map[uuid.UUID]int

	signingSecret []byte
}

// NewMemoryProvider creates an in-memory identity provider. The signing
// secret is shared with the HTTP middleware so issued access tokens verify.
func NewMemoryProvider(signingSecret []byte) *MemoryProvider {
	return &MemoryProvider{
		identities:    make(map[uuid.UUID]*models.Identity),
		passwords:     make(map[uuid.UUID]string),
		signedOut:     make(map[uuid.UUID]int),
		signingSecret: signingSecret,
	}
}

// AddIdentity registers an identity, simulating a completed sign-up or
// token redemption at the provider.
func (p *MemoryProvider) AddIdentity(id *models.Identity) {
	p.mu.Lock()
	defer p.mu.Unlock()

	clone := *id
	p.identities[id.ID] = &clone
}

// GetIdentity returns the identity for an ID.
func (p *MemoryProvider) GetIdentity(ctx context.Context, id uuid.UUID) (*models.Identity, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	identity, exists := p.identities[id]
	if !exists {
		return nil, ErrIdentityNotFound
	}

	clone := *identity
	return &clone, nil
}

// SignOut invalidates the identity's sessions.
func (p *MemoryProvider) SignOut(ctx context.Context, id uuid.UUID) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.identities[id]; !exists {
		return ErrIdentityNotFound
	}

	p.signedOut[id]++
	return nil
}

// SignOutCount reports how many times an identity was signed out. Test helper.
func (p *MemoryProvider) SignOutCount(id uuid.UUID) int {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.signedOut[id]
}

// UpdatePassword sets the identity's password.
func (p *MemoryProvider) UpdatePassword(ctx context.Context, id uuid.UUID, password string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.identities[id]; !exists {
		return ErrIdentityNotFound
	}

	if p.passwords[id] == password {
		return ErrSamePassword
	}

	p.passwords[id] = password
	return nil
}

// InviteByEmail creates the identity and records the invite. The returned
// provider user ID is the invitation credential on the provider-driven path.
func (p *MemoryProvider) InviteByEmail(ctx context.Context, email string, metadata map[string]string) (uuid.UUID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	id := uuid.Must(uuid.NewV7())
	p.identities[id] = &models.Identity{
		ID:       id,
		Email:    email,
		Metadata: metadata,
	}

	return id, nil
}

// IssueAccessToken mints a provider-style HS256 access token for an
// identity, the same shape the HTTP middleware verifies.
func (p *MemoryProvider) IssueAccessToken(id uuid.UUID, ttl time.Duration) (string, error) {
	p.mu.RLock()
	identity, exists := p.identities[id]
	p.mu.RUnlock()

	if !exists {
		return "", ErrIdentityNotFound
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   identity.ID.String(),
		"email": identity.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
	}
	if len(identity.Metadata) > 0 {
		meta := make(map[string]any, len(identity.Metadata))
		for k, v := range identity.Metadata {
			meta[k] = v
		}
		claims["user_metadata"] = meta
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(p.signingSecret)
}
