package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/api/option"

	"leavedesk/internal/calendar"
	"leavedesk/internal/config"
	"leavedesk/internal/database"
	"leavedesk/internal/logger"
	"leavedesk/internal/server"
	"leavedesk/internal/services"
	"leavedesk/internal/storage"
	"leavedesk/internal/validator"

	_ "leavedesk/internal/docs" // Import swagger docs
)

// @title           LeaveDesk API
// @version         1.0
// @description     LeaveDesk tracks employee leave balances, validates leave requests and mirrors granted leave to a shared calendar.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"), os.Getenv("LOG_LEVEL"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	validator.Register()

	// Create database manager
	dbManager, err := database.NewManager(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer dbManager.Close()

	// Run migrations
	if err := dbManager.Migrate(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// External integrations
	receipts, err := newReceiptStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize receipt storage: %w", err)
	}
	if closer, ok := receipts.(io.Closer); ok {
		defer closer.Close()
	}

	mirror, err := newCalendarMirror(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize calendar: %w", err)
	}

	// Initialize services
	db := dbManager.DB()
	router := server.NewRouter(cfg, server.Services{
		Accounts: services.NewAccountService(db, cfg.Policy),
		Leave:    services.NewLeaveService(db, cfg.Policy, receipts, mirror, cfg.ExternalTimeout),
		Audit:    services.NewAuditService(db),
		Health: services.NewHealthService(db,
			services.Integration{Name: "receipts", Enabled: cfg.ReceiptStorage != config.StorageNone, Backend: receipts.Name()},
			services.Integration{Name: "calendar", Enabled: mirror.Enabled(), Backend: "google"},
		),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting LeaveDesk server on port %s", cfg.Port)
		log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

// googleOptions authenticates Google clients with the configured service
// account file, or application default credentials when none is set.
func googleOptions(cfg *config.Config) []option.ClientOption {
	if cfg.GoogleCredentialsFile == "" {
		return nil
	}
	return []option.ClientOption{option.WithCredentialsFile(cfg.GoogleCredentialsFile)}
}

func newReceiptStore(ctx context.Context, cfg *config.Config) (storage.ReceiptStore, error) {
	switch cfg.ReceiptStorage {
	case config.StorageDrive:
		return storage.NewDriveStore(ctx, cfg.DriveFolderID, googleOptions(cfg)...)
	case config.StorageGCS:
		return storage.NewGCSStore(ctx, cfg.GCSBucket, googleOptions(cfg)...)
	default:
		logger.Get().Info("Receipt storage disabled")
		return storage.NoopStore{}, nil
	}
}

func newCalendarMirror(ctx context.Context, cfg *config.Config) (calendar.Mirror, error) {
	if !cfg.CalendarEnabled() {
		logger.Get().Info("Calendar mirroring disabled")
		return calendar.NoopMirror{}, nil
	}
	return calendar.NewGoogleMirror(ctx, cfg.GoogleCalendarID, googleOptions(cfg)...)
}
