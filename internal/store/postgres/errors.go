package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/huemul/tablero/internal/store"
)

// mapPostgresError maps PostgreSQL-specific errors to sentinel errors.
// Constraint violations are the authoritative duplicate signals; the
// application-level pre-checks only exist for friendlier messages.
func mapPostgresError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgerrcode.UniqueViolation:
		switch pgErr.ConstraintName {
		case "profiles_pkey", "idx_profiles_email":
			return store.ErrProfileAlreadyExists
		case "organizations_pkey":
			return store.ErrOrganizationAlreadyExists
		case "idx_invitations_pending":
			return store.ErrDuplicatePendingInvitation
		case "memberships_pkey":
			return store.ErrMembershipAlreadyExists
		}
		return fmt.Errorf("unique constraint violation: %s: %w", pgErr.ConstraintName, err)

	case pgerrcode.ForeignKeyViolation:
		return fmt.Errorf("referenced row missing: %s: %w", pgErr.ConstraintName, err)

	case pgerrcode.CheckViolation:
		return fmt.Errorf("check constraint violation: %s: %w", pgErr.ConstraintName, err)

	case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected:
		return fmt.Errorf("transaction conflict (retryable): %w", err)

	case pgerrcode.ConnectionException,
		pgerrcode.ConnectionDoesNotExist,
		pgerrcode.ConnectionFailure,
		pgerrcode.CannotConnectNow,
		pgerrcode.SQLClientUnableToEstablishSQLConnection:
		return fmt.Errorf("database connection error: %w", err)

	case pgerrcode.InsufficientPrivilege:
		// Write rejected by row-level policy; the caller should have gone
		// through the elevated stores.
		return fmt.Errorf("insufficient privilege: %s: %w", pgErr.Message, err)

	case pgerrcode.QueryCanceled:
		return fmt.Errorf("query canceled: %w", err)

	default:
		return fmt.Errorf("postgres error [%s]: %s: %w", pgErr.Code, pgErr.Message, err)
	}
}
