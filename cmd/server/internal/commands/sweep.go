package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/huemul/tablero/internal/logger"
	postgresstore "github.com/huemul/tablero/internal/store/postgres"
)

// SweepInvitationsCmd deletes settled expired invitations past their
// retention window. Expiry itself happens on token lookup; this only
// removes rows that can never become acceptable again.
type SweepInvitationsCmd struct {
	Retention     time.Duration      `help:"how long settled expired invitations are kept" default:"720h" env:"TABLERO_SWEEP_RETENTION"`
	PostgresStore PostgresStoreFlags `embed:"" prefix:"postgres-"`
}

func (c *SweepInvitationsCmd) Run(globals *Globals) error {
	ctx := context.Background()

	log := logger.Setup(globals.Dev)

	pool, err := postgresstore.NewPool(ctx, &postgresstore.PoolConfig{
		ConnString:  c.PostgresStore.ConnString,
		AutoMigrate: c.PostgresStore.AutoMigrate,
	})
	if err != nil {
		return fmt.Errorf("failed to open pool: %w", err)
	}
	defer pool.Close()

	cutoff := time.Now().Add(-c.Retention)
	n, err := postgresstore.NewInvitationStore(pool).DeleteExpiredBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to sweep invitations: %w", err)
	}

	log.Info().
		Int("deleted", n).
		Time("cutoff", cutoff).
		Msg("Swept expired invitations")

	return nil
}
