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

	goredis "github.com/redis/go-redis/v9"

	httpapi "github.com/ltphongssvn/autoloan-auth/internal/auth/http"
	"github.com/ltphongssvn/autoloan-auth/internal/auth/service"
	"github.com/ltphongssvn/autoloan-auth/internal/auth/store"
	redisdriver "github.com/ltphongssvn/autoloan-auth/internal/auth/store/drivers/redis"
	"github.com/ltphongssvn/autoloan-auth/internal/auth/store/drivers/sqlite"
	"github.com/ltphongssvn/autoloan-auth/pkg/cryptox"
	"github.com/ltphongssvn/autoloan-auth/pkg/httpx"
	"github.com/ltphongssvn/autoloan-auth/pkg/jwtx"
	"github.com/ltphongssvn/autoloan-auth/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the auth service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db          store.Store
	redisClient *goredis.Client
	revocations store.Revocations

	signer   *jwtx.HS256Signer
	verifier *jwtx.HS256Verifier

	authService         *service.AuthService
	mfaService          *service.MFAService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "autoloan-auth",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	// Set pepper path for password hashing
	cryptox.SetPepperPath(app.cfg.PepperFile)

	signer, err := jwtx.NewSignerHS256([]byte(cfg.SigningSecret))
	if err != nil {
		return nil, fmt.Errorf("initialize signer: %w", err)
	}
	verifier, err := jwtx.NewVerifierHS256([]byte(cfg.SigningSecret), cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("initialize verifier: %w", err)
	}
	app.signer = signer
	app.verifier = verifier

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initRevocations(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("auth service starting", "port", app.cfg.Port, "version", BuildVersion)

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

// Shutdown gracefully shuts down the application
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down auth service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if app.redisClient != nil {
		if err := app.redisClient.Close(); err != nil {
			app.logger.Error("error closing redis client", "error", err)
		}
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("auth service stopped")
	return nil
}

// initDatabase initializes the database and applies migrations
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

// initRevocations picks the denylist backend. The sqlite table is the
// default; redis trades the housekeeping sweep for native TTL expiry.
func (app *Application) initRevocations() error {
	switch app.cfg.RevocationBackend {
	case "", "sqlite":
		app.revocations = app.db.Revocations()
	case "redis":
		client := goredis.NewClient(&goredis.Options{Addr: app.cfg.RedisAddr})
		if err := client.Ping(context.Background()).Err(); err != nil {
			_ = client.Close()
			return fmt.Errorf("redis unreachable: %w", err)
		}
		app.redisClient = client
		app.revocations = redisdriver.NewRevocations(client)
		app.logger.Info("using redis revocation backend", "addr", app.cfg.RedisAddr)
	default:
		return fmt.Errorf("unknown revocation backend %q", app.cfg.RevocationBackend)
	}
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	app.mfaService = &service.MFAService{
		Store:            app.db,
		Issuer:           app.cfg.Issuer,
		BackupCodeCount:  app.cfg.BackupCodeCount,
		BackupCodeLength: app.cfg.BackupCodeLength,
	}

	app.authService = &service.AuthService{
		Store:            app.db,
		Revocations:      app.revocations,
		Signer:           app.signer,
		Verifier:         app.verifier,
		MFA:              app.mfaService,
		Notifier:         &service.LogNotifier{Logger: app.logger},
		Issuer:           app.cfg.Issuer,
		AccessTTL:        app.cfg.TokenTTL,
		LockoutThreshold: app.cfg.LockoutThreshold,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.revocations,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.verifier,
		app.revocations,
		httpx.NewRateWindowTracker(app.cfg.RateLimit),
		BuildVersion,
		app.db,
		app.logger,
	)

	router.AuthService = app.authService
	router.MFAService = app.mfaService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
