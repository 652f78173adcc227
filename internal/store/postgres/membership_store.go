package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/huemul/tablero/internal/models"
)

// MembershipStore implements store.MembershipStore using PostgreSQL.
type MembershipStore struct {
	pool *pgxpool.Pool
}

// NewMembershipStore creates a new PostgreSQL-backed membership store.
func NewMembershipStore(pool *pgxpool.Pool) *MembershipStore {
	return &MembershipStore{pool: pool}
}

// Create inserts a membership row. An existing (org, user) pair returns
// store.ErrMembershipAlreadyExists, which provisioning treats as satisfied.
func (s *MembershipStore) Create(ctx context.Context, m *models.Membership) error {
	query := `
		INSERT INTO memberships (
			org_id, user_id, role, created_at
		) VALUES (
			$1, $2, $3, $4
		)
	`

	_, err := s.pool.Exec(ctx, query,
		m.OrganizationID,
		m.UserID,
		m.Role,
		m.CreatedAt,
	)

	if err != nil {
		return mapPostgresError(err)
	}

	log.Debug().
		Str("org_id", m.OrganizationID.String()).
		Str("user_id", m.UserID.String()).
		Msg("Created membership")

	return nil
}
