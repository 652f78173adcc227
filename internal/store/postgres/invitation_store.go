package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/huemul/tablero/internal/models"
	"github.com/huemul/tablero/internal/store"
)

// InvitationStore implements store.InvitationStore using PostgreSQL.
// The partial unique index on pending (email, org) rows is the authoritative
// duplicate guard; Create surfaces it as ErrDuplicatePendingInvitation.
type InvitationStore struct {
	pool *pgxpool.Pool
}

// NewInvitationStore creates a new PostgreSQL-backed invitation store.
func NewInvitationStore(pool *pgxpool.Pool) *InvitationStore {
	return &InvitationStore{pool: pool}
}

const invitationColumns = `
	invitation_id, email, org_id, invited_by, role,
	token, token_kind, status, expires_at, metadata, created_at, updated_at
`

// Create inserts a new invitation.
func (s *InvitationStore) Create(ctx context.Context, inv *models.Invitation) error {
	query := `
		INSERT INTO invitations (
			invitation_id, email, org_id, invited_by, role,
			token, token_kind, status, expires_at, metadata, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12
		)
	`

	metadata := inv.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}

	_, err := s.pool.Exec(ctx, query,
		inv.ID,
		inv.Email,
		inv.OrganizationID,
		inv.InvitedBy,
		inv.Role,
		inv.Token,
		inv.TokenKind,
		inv.Status,
		inv.ExpiresAt,
		metadata,
		inv.CreatedAt,
		inv.UpdatedAt,
	)

	if err != nil {
		return mapPostgresError(err)
	}

	log.Debug().
		Str("invitation_id", inv.ID.String()).
		Str("email", inv.Email).
		Str("token_kind", string(inv.TokenKind)).
		Msg("Created invitation")

	return nil
}

// GetPendingByToken returns the pending invitation holding the token.
func (s *InvitationStore) GetPendingByToken(ctx context.Context, token string) (*models.Invitation, error) {
	query := `
		SELECT ` + invitationColumns + `
		FROM invitations
		WHERE token = $1 AND status = 'pending'
	`

	return s.scanOne(s.pool.QueryRow(ctx, query, token))
}

// FindPending returns a pending, unexpired invitation for (email, org).
func (s *InvitationStore) FindPending(ctx context.Context, email string, orgID *uuid.UUID) (*models.Invitation, error) {
	query := `
		SELECT ` + invitationColumns + `
		FROM invitations
		WHERE LOWER(email) = $1
		  AND org_id IS NOT DISTINCT FROM $2
		  AND status = 'pending'
		  AND expires_at > NOW()
	`

	return s.scanOne(s.pool.QueryRow(ctx, query, strings.ToLower(email), orgID))
}

// MarkExpired moves a pending invitation to expired. Re-expiring an already
// expired row affects nothing and is not an error.
func (s *InvitationStore) MarkExpired(ctx context.Context, id uuid.UUID) error {
	return s.setStatus(ctx, id, models.InvitationExpired)
}

// setStatus transitions a pending invitation to a terminal status.
// Terminal states are never overwritten.
func (s *InvitationStore) setStatus(ctx context.Context, id uuid.UUID, status models.InvitationStatus) error {
	query := `
		UPDATE invitations SET
			status = $2,
			updated_at = $3
		WHERE invitation_id = $1 AND status = 'pending'
	`

	result, err := s.pool.Exec(ctx, query, id, status, time.Now())
	if err != nil {
		return mapPostgresError(err)
	}

	if result.RowsAffected() > 0 {
		log.Debug().
			Str("invitation_id", id.String()).
			Str("status", string(status)).
			Msg("Updated invitation status")
	}

	return nil
}

// MarkAcceptedByEmail settles all pending invitations for an email.
func (s *InvitationStore) MarkAcceptedByEmail(ctx context.Context, email string) (int, error) {
	query := `
		UPDATE invitations SET
			status = 'accepted',
			updated_at = $2
		WHERE LOWER(email) = $1 AND status = 'pending'
	`

	result, err := s.pool.Exec(ctx, query, strings.ToLower(email), time.Now())
	if err != nil {
		return 0, mapPostgresError(err)
	}

	return int(result.RowsAffected()), nil
}

// ListAll returns every invitation, newest first.
func (s *InvitationStore) ListAll(ctx context.Context) ([]*models.Invitation, error) {
	query := `
		SELECT ` + invitationColumns + `
		FROM invitations
		ORDER BY created_at DESC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", mapPostgresError(err))
	}
	defer rows.Close()

	return s.scanAll(rows)
}

// ListForOrganization returns an organization's invitations, newest first.
func (s *InvitationStore) ListForOrganization(ctx context.Context, orgID uuid.UUID) ([]*models.Invitation, error) {
	query := `
		SELECT ` + invitationColumns + `
		FROM invitations
		WHERE org_id = $1
		ORDER BY created_at DESC
	`

	rows, err := s.pool.Query(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", mapPostgresError(err))
	}
	defer rows.Close()

	return s.scanAll(rows)
}

// DeleteExpiredBefore removes expired invitations settled before the cutoff.
func (s *InvitationStore) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int, error) {
	query := `
		DELETE FROM invitations
		WHERE status = 'expired' AND updated_at < $1
	`

	result, err := s.pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, mapPostgresError(err)
	}

	return int(result.RowsAffected()), nil
}

func (s *InvitationStore) scanOne(row pgx.Row) (*models.Invitation, error) {
	var inv models.Invitation
	err := row.Scan(
		&inv.ID,
		&inv.Email,
		&inv.OrganizationID,
		&inv.InvitedBy,
		&inv.Role,
		&inv.Token,
		&inv.TokenKind,
		&inv.Status,
		&inv.ExpiresAt,
		&inv.Metadata,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrInvitationNotFound
		}
		return nil, fmt.Errorf("failed to get invitation: %w", mapPostgresError(err))
	}

	return &inv, nil
}

func (s *InvitationStore) scanAll(rows pgx.Rows) ([]*models.Invitation, error) {
	var invs []*models.Invitation
	for rows.Next() {
		var inv models.Invitation
		err := rows.Scan(
			&inv.ID,
			&inv.Email,
			&inv.OrganizationID,
			&inv.InvitedBy,
			&inv.Role,
			&inv.Token,
			&inv.TokenKind,
			&inv.Status,
			&inv.ExpiresAt,
			&inv.Metadata,
			&inv.CreatedAt,
			&inv.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		invs = append(invs, &inv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invitations: %w", err)
	}

	return invs, nil
}
