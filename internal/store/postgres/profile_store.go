package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/huemul/tablero/internal/models"
	"github.com/huemul/tablero/internal/store"
)

// ProfileStore implements store.ProfileStore using PostgreSQL.
type ProfileStore struct {
	pool *pgxpool.Pool
}

// NewProfileStore creates a new PostgreSQL-backed profile store.
// It shares the connection pool with other stores opened on the same role.
func NewProfileStore(pool *pgxpool.Pool) *ProfileStore {
	return &ProfileStore{pool: pool}
}

// Create creates a new profile. A duplicate identity ID or email returns
// store.ErrProfileAlreadyExists.
func (s *ProfileStore) Create(ctx context.Context, profile *models.Profile) error {
	query := `
		INSERT INTO profiles (
			id, org_id, email, full_name, role, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
	`

	_, err := s.pool.Exec(ctx, query,
		profile.ID,
		profile.OrganizationID,
		profile.Email,
		profile.FullName,
		profile.Role,
		profile.CreatedAt,
		profile.UpdatedAt,
	)

	if err != nil {
		return mapPostgresError(err)
	}

	log.Debug().
		Str("profile_id", profile.ID.String()).
		Str("role", string(profile.Role)).
		Msg("Created profile")

	return nil
}

// Get retrieves a profile by identity ID.
func (s *ProfileStore) Get(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	query := `
		SELECT id, org_id, email, full_name, role, created_at, updated_at
		FROM profiles
		WHERE id = $1
	`

	return s.scanOne(s.pool.QueryRow(ctx, query, id))
}

// GetByEmail retrieves a profile by email, case-insensitively.
func (s *ProfileStore) GetByEmail(ctx context.Context, email string) (*models.Profile, error) {
	query := `
		SELECT id, org_id, email, full_name, role, created_at, updated_at
		FROM profiles
		WHERE LOWER(email) = $1
	`

	return s.scanOne(s.pool.QueryRow(ctx, query, strings.ToLower(email)))
}

func (s *ProfileStore) scanOne(row pgx.Row) (*models.Profile, error) {
	var profile models.Profile
	err := row.Scan(
		&profile.ID,
		&profile.OrganizationID,
		&profile.Email,
		&profile.FullName,
		&profile.Role,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrProfileNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", mapPostgresError(err))
	}

	return &profile, nil
}
