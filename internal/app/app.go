// Package app wires repositories, services, and token issuers from config.
package app

import (
	"database/sql"
	"fmt"
	"log/slog"

	"expertmarket/internal/config"
	"expertmarket/internal/db/repository"
	"expertmarket/internal/domain"
	"expertmarket/internal/policy"
	"expertmarket/internal/service/identity"
	"expertmarket/internal/service/review"
	"expertmarket/internal/service/storage"
	"expertmarket/internal/token"
)

// Deps holds the external dependencies that main() must provide: database
// handles, config, and the logger. Objects overrides the blob store; when
// nil, one is built from the S3 config.
type Deps struct {
	Cfg     *config.Config
	WriteDB *sql.DB
	ReadDB  *sql.DB
	Objects domain.ObjectStore
	Logger  *slog.Logger
}

// Services groups the service pointers the API handler and router need.
type Services struct {
	Identity *identity.Service
	Review   *review.Service
}

// App holds the fully wired application.
type App struct {
	Services       Services
	Store          *repository.Store
	IdentityTokens *token.IdentityService
	Capabilities   *token.CapabilityService
}

// New wires repositories, token services, the policy engine, and the domain
// services from the provided deps.
func New(deps Deps) (*App, error) {
	cfg := deps.Cfg
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	identityTokens, err := token.NewIdentityService(cfg.Auth.IdentitySecret, cfg.Auth.IdentityTTL)
	if err != nil {
		return nil, fmt.Errorf("identity token service: %w", err)
	}
	capabilities, err := token.NewCapabilityService(cfg.Auth.CapabilitySecret, cfg.Auth.CapabilityTTL)
	if err != nil {
		return nil, fmt.Errorf("capability token service: %w", err)
	}

	objects := deps.Objects
	if objects == nil {
		if !cfg.HasS3Config() {
			return nil, fmt.Errorf("object storage not configured: set S3_KEY_ID, S3_SECRET, S3_ENDPOINT, S3_REGION, S3_BUCKET")
		}
		objects, err = storage.NewS3Store(cfg)
		if err != nil {
			return nil, fmt.Errorf("s3 store: %w", err)
		}
		logger.Info("object store enabled", "bucket", *cfg.S3Bucket)
	}

	store := repository.NewStore(deps.WriteDB, deps.ReadDB)
	pol := policy.New()

	return &App{
		Services: Services{
			Identity: identity.NewService(store, store, pol, identityTokens, store.AuditLog(), logger.With("component", "identity")),
			Review:   review.NewService(store, store, pol, capabilities, objects, logger.With("component", "review")),
		},
		Store:          store,
		IdentityTokens: identityTokens,
		Capabilities:   capabilities,
	}, nil
}
