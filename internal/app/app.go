// Package app provides application-level wiring and dependency injection for
// the PIM helper daemon.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"

	"quickpim/internal/api"
	"quickpim/internal/capture"
	"quickpim/internal/config"
	"quickpim/internal/db/crypto"
	"quickpim/internal/db/repository"
	"quickpim/internal/middleware"
	"quickpim/internal/service/activation"
	"quickpim/internal/service/roles"
	"quickpim/internal/service/selection"
	"quickpim/internal/service/token"
	"quickpim/internal/upstream"
)

// Deps holds the external dependencies that main() must provide.
type Deps struct {
	Cfg     *config.Config
	WriteDB *sql.DB
	ReadDB  *sql.DB
	Logger  *slog.Logger
	// HTTPClient overrides the upstream transport; nil uses a client with
	// the configured timeout.
	HTTPClient *http.Client
}

// Services groups the wired services.
type Services struct {
	Token      *token.TokenService
	Roles      *roles.RoleService
	Activation *activation.ActivationService
	Selection  *selection.SelectionService
}

// App holds the fully-wired application.
type App struct {
	Services Services
	Capture  *capture.Bus
	Handler  *api.APIHandler
	cfg      *config.Config
	readDB   *sql.DB
	logger   *slog.Logger
}

// New wires repositories, upstream clients and services from deps.
func New(deps Deps) (*App, error) {
	cfg := deps.Cfg
	logger := deps.Logger

	enc, err := crypto.NewEncryptor(cfg.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("encryption key: %w", err)
	}

	// === Repositories (write-pool) ===
	credentialRepo := repository.NewCredentialRepo(deps.WriteDB, enc)
	selectionRepo := repository.NewSelectionRepo(deps.WriteDB)

	// === Upstream clients ===
	opts := cfg.UpstreamOptions(logger.With("component", "upstream"))
	opts.HTTPClient = deps.HTTPClient
	graph, err := upstream.NewGraphClient(cfg.Upstream.GraphBaseURL, opts)
	if err != nil {
		return nil, fmt.Errorf("graph client: %w", err)
	}
	arm, err := upstream.NewARMClient(cfg.Upstream.ARMBaseURL, opts)
	if err != nil {
		return nil, fmt.Errorf("arm client: %w", err)
	}

	// === Services ===
	tokenSvc := token.NewTokenService(credentialRepo, cfg.TokenMaxAge, logger.With("component", "token"))
	defs := roles.NewDefinitionCache(graph, cfg.RoleDefinitionTTL, logger.With("component", "role-definitions"))
	roleSvc := roles.NewRoleService(graph, arm, tokenSvc, defs, logger.With("component", "roles"))
	activationSvc := activation.NewActivationService(graph, arm, cfg.ActivationConcurrency, logger.With("component", "activation"))
	selectionSvc := selection.NewSelectionService(selectionRepo, logger.With("component", "selection"))

	// === Capture ===
	bus := capture.NewBus(nil, logger.With("component", "capture"))
	bus.Subscribe(tokenSvc.HandleCapture)

	handler := api.NewHandler(api.HandlerDeps{
		Roles:      roleSvc,
		Tokens:     tokenSvc,
		Activation: activationSvc,
		Selections: selectionSvc,
		Capture:    bus,
		Logger:     logger.With("component", "api"),
	})

	return &App{
		Services: Services{
			Token:      tokenSvc,
			Roles:      roleSvc,
			Activation: activationSvc,
			Selection:  selectionSvc,
		},
		Capture: bus,
		Handler: handler,
		cfg:     cfg,
		readDB:  deps.ReadDB,
		logger:  logger,
	}, nil
}

// Router builds the HTTP router. ctx bounds background middleware work.
func (a *App) Router(ctx context.Context) http.Handler {
	return api.NewRouter(ctx, api.RouterConfig{
		Handler:        a.Handler,
		AllowedOrigins: a.cfg.CORSAllowedOrigins,
		APIKey:         a.cfg.APIKey,
		RateLimit: middleware.RateLimitConfig{
			RequestsPerSecond: a.cfg.RateLimitRPS,
			Burst:             a.cfg.RateLimitBurst,
		},
		Ready:  a.readDB.PingContext,
		Logger: a.logger.With("component", "http"),
	})
}
