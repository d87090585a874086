package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/airlockhq/identity/internal/identity/http"
	"github.com/airlockhq/identity/internal/identity/service"
	"github.com/airlockhq/identity/internal/identity/store"
	"github.com/airlockhq/identity/internal/identity/store/drivers/sqlite"
	"github.com/airlockhq/identity/pkg/authx"
	"github.com/airlockhq/identity/pkg/jwtx"
	"github.com/airlockhq/identity/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application wires the identity service together: store, codec, services,
// HTTP server.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db    store.Store
	codec *jwtx.Codec
	gate  *authx.Gate

	tokenService        *service.TokenService
	apiKeyService       *service.APIKeyService
	auditService        *service.AuditService
	oauthClient         *service.OAuthClient
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates an Application with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "identity",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	codec, err := jwtx.NewCodec([]byte(cfg.SecretKey), cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token codec: %w", err)
	}
	codec.AccessTTL = cfg.AccessTokenTTL
	codec.RefreshTTL = cfg.RefreshTokenTTL
	app.codec = codec
	app.gate = authx.NewGate(codec)

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("identity service starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown drains in-flight requests, stops housekeeping and closes the
// database.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down identity service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("identity service stopped")
	return nil
}

func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

func (app *Application) initServices() {
	app.auditService = &service.AuditService{Store: app.db}

	app.tokenService = &service.TokenService{
		Codec: app.codec,
		Audit: app.auditService,
	}

	app.apiKeyService = &service.APIKeyService{
		Store: app.db,
		Audit: app.auditService,
	}

	app.oauthClient = service.NewOAuthClient(service.OAuthConfig{
		ClientID:     app.cfg.OAuthClientID,
		ClientSecret: app.cfg.OAuthClientSecret,
		AuthorizeURL: app.cfg.OAuthAuthorizeURL,
		TokenURL:     app.cfg.OAuthTokenURL,
		UserInfoURL:  app.cfg.OAuthUserInfoURL,
		RedirectURI:  app.cfg.OAuthRedirectURI,
		Scopes:       app.cfg.OAuthScopes,
	})

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(app.gate, BuildVersion, app.db, app.logger)

	router.FrontendCallbackURL = app.cfg.FrontendCallbackURL
	router.TokenService = app.tokenService
	router.APIKeyService = app.apiKeyService
	router.AuditService = app.auditService
	router.OAuthClient = app.oauthClient
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
