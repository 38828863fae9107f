// Package app wires the application's dependencies together.
package app

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/opsdesk/opsdesk/config"
	"github.com/opsdesk/opsdesk/gate"
	"github.com/opsdesk/opsdesk/handlers"
	"github.com/opsdesk/opsdesk/identity"
	"github.com/opsdesk/opsdesk/middleware"
	"github.com/opsdesk/opsdesk/repositories"
	"github.com/opsdesk/opsdesk/repositories/postgres"
	"github.com/opsdesk/opsdesk/services/ratelimit"
	"github.com/opsdesk/opsdesk/services/session"
)

// Dependencies holds all application dependencies. This is the central
// wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *sql.DB
	Logger *zap.Logger

	// Repositories
	Profiles repositories.ProfileRepository
	Policies repositories.PolicyRepository

	// Collaborators and services
	Identity     *identity.Client
	LimiterStore *ratelimit.MemoryStore
	Limiter      *ratelimit.Limiter
	Sessions     *session.Manager

	// Gate and HTTP wiring
	Gate           *gate.Gate
	AuthMiddleware *middleware.AuthMiddleware
	AuthHandler    *handlers.AuthHandler
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	deps.DB = db
	logger.Info("database connected", zap.String("target", cfg.Database.LogString()))

	deps.Profiles = postgres.NewProfileRepository(db, logger)
	deps.Policies = postgres.NewPolicyRepository(db, logger)

	deps.Identity = identity.NewClient(identity.Config{
		BaseURL:     cfg.Identity.BaseURL,
		ClientID:    cfg.Identity.ClientID,
		HTTPTimeout: cfg.Identity.HTTPTimeout,
	})

	// Counter state is in-process; swap in ratelimit.NewPGStore(db) when
	// running more than one replica behind a load balancer.
	deps.LimiterStore = ratelimit.NewMemoryStore()
	deps.Limiter = ratelimit.NewLimiter(deps.LimiterStore, logger)

	deps.Sessions = session.NewManager(deps.Identity, cfg.Cookies, logger)

	deps.Gate = gate.New(deps.Identity, deps.Profiles, deps.Policies, cfg.Cookies.AccessName, logger)
	deps.AuthMiddleware = middleware.NewAuthMiddleware(deps.Gate)
	deps.AuthHandler = handlers.NewAuthHandler(deps.Identity, deps.Sessions, deps.Gate, cfg.Cookies, logger)

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// Close releases held resources.
func (d *Dependencies) Close() error {
	if d.DB != nil {
		return d.DB.Close()
	}
	return nil
}
