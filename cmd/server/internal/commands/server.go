package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/huemul/tablero/internal/dispatch"
	"github.com/huemul/tablero/internal/guard"
	"github.com/huemul/tablero/internal/identity"
	"github.com/huemul/tablero/internal/httpmw"
	"github.com/huemul/tablero/internal/invitations"
	"github.com/huemul/tablero/internal/jobs"
	"github.com/huemul/tablero/internal/logger"
	"github.com/huemul/tablero/internal/organizations"
	"github.com/huemul/tablero/internal/provision"
	"github.com/huemul/tablero/internal/server"
	"github.com/huemul/tablero/internal/store"
	memorystore "github.com/huemul/tablero/internal/store/memory"
	postgresstore "github.com/huemul/tablero/internal/store/postgres"
)

type ServerCmd struct {
	// Server configuration
	Listen      string   `help:"HTTP server listen address" default:"0.0.0.0:8080" env:"TABLERO_LISTEN"`
	BaseURL     string   `help:"site base URL used to build acceptance links" default:"http://localhost:3000" env:"TABLERO_BASE_URL"`
	CORSOrigins []string `help:"allowed CORS origins for API requests" default:"http://localhost:3000" env:"TABLERO_CORS_ORIGINS"`

	// Identity provider configuration
	TokenSigningSecret string `help:"HS256 secret shared with the identity provider" env:"TABLERO_TOKEN_SIGNING_SECRET"`

	// Dispatch configuration; leave empty to disable the worker signal
	DispatchToken    string `help:"bearer token for the dispatch endpoint" default:"" env:"TABLERO_DISPATCH_TOKEN"`
	DispatchRepo     string `help:"owner/repo identifier of the worker repository" default:"" env:"TABLERO_DISPATCH_REPO"`
	DispatchEndpoint string `help:"dispatch API base URL" default:"https://api.github.com" env:"TABLERO_DISPATCH_ENDPOINT"`

	// Store configuration
	StoreType     string             `help:"store type (memory or postgres)" default:"memory" env:"TABLERO_STORE_TYPE" enum:"memory,postgres"`
	PostgresStore PostgresStoreFlags `embed:"" prefix:"postgres-"`
}

type PostgresStoreFlags struct {
	ConnString         string `help:"PostgreSQL connection string for the app role" env:"TABLERO_POSTGRES_CONN_STRING"`
	ElevatedConnString string `help:"PostgreSQL connection string for the elevated role" env:"TABLERO_POSTGRES_ELEVATED_CONN_STRING"`
	AutoMigrate        bool   `help:"run embedded migrations on startup" default:"false" env:"TABLERO_POSTGRES_AUTO_MIGRATE"`
}

type wiredStores struct {
	profiles      store.ProfileStore
	organizations store.OrganizationStore
	invitations   store.InvitationStore
	elevated      *store.Elevated
}

func (c *ServerCmd) Run(globals *Globals) error {
	ctx := context.Background()

	log := logger.Setup(globals.Dev)
	zerolog.DefaultContextLogger = &log

	if len(c.TokenSigningSecret) < 32 {
		return fmt.Errorf("token signing secret must be at least 32 bytes")
	}

	stores, err := c.buildStores(ctx)
	if err != nil {
		return err
	}

	provider := identity.NewMemoryProvider([]byte(c.TokenSigningSecret))

	g := guard.New(stores.profiles, provider)
	invitationSvc := invitations.NewService(stores.invitations, stores.profiles, provider, g, c.BaseURL)
	provisioner := provision.New(provider, stores.profiles, stores.invitations, stores.elevated)
	orgSvc := organizations.NewService(stores.organizations, g)

	trigger := dispatch.New(dispatch.Config{
		Token:    c.DispatchToken,
		Repo:     c.DispatchRepo,
		Endpoint: c.DispatchEndpoint,
	})
	if !trigger.Enabled() {
		log.Info().Msg("Dispatch trigger not configured, worker signal disabled")
	}
	queue := jobs.New(stores.elevated.Jobs, trigger)

	srv := server.New(g, invitationSvc, provisioner, orgSvc, queue)

	verifier := httpmw.NewIdentityVerifier([]byte(c.TokenSigningSecret))

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins:   c.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           int((2 * time.Hour).Seconds()),
	})

	handler := httpmw.ClientIP()(
		httpmw.RequestLogger(log)(
			verifier.Middleware()(
				corsMiddleware.Handler(srv.Routes()),
			),
		),
	)

	httpServer := configureHTTPServer(c.Listen, handler)

	log.Info().
		Str("listen", c.Listen).
		Str("store", c.StoreType).
		Str("version", globals.Version).
		Msg("Starting server")

	return httpServer.ListenAndServe()
}

func (c *ServerCmd) buildStores(ctx context.Context) (*wiredStores, error) {
	switch c.StoreType {
	case "postgres":
		pool, err := postgresstore.NewPool(ctx, &postgresstore.PoolConfig{
			ConnString:  c.PostgresStore.ConnString,
			AutoMigrate: c.PostgresStore.AutoMigrate,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open app pool: %w", err)
		}

		elevatedPool, err := postgresstore.NewPool(ctx, &postgresstore.PoolConfig{
			ConnString: c.PostgresStore.ElevatedConnString,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open elevated pool: %w", err)
		}

		return &wiredStores{
			profiles:      postgresstore.NewProfileStore(pool),
			organizations: postgresstore.NewOrganizationStore(pool),
			invitations:   postgresstore.NewInvitationStore(pool),
			elevated: &store.Elevated{
				Organizations: postgresstore.NewOrganizationStore(elevatedPool),
				Profiles:      postgresstore.NewProfileStore(elevatedPool),
				Memberships:   postgresstore.NewMembershipStore(elevatedPool),
				Jobs:          postgresstore.NewJobStore(elevatedPool),
			},
		}, nil

	default: // memory
		profiles := memorystore.NewProfileStore()
		orgs := memorystore.NewOrganizationStore()
		return &wiredStores{
			profiles:      profiles,
			organizations: orgs,
			invitations:   memorystore.NewInvitationStore(),
			elevated: &store.Elevated{
				Organizations: orgs,
				Profiles:      profiles,
				Memberships:   memorystore.NewMembershipStore(),
				Jobs:          memorystore.NewJobStore(),
			},
		}, nil
	}
}
