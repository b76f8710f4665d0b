package main

import (
	"fmt"
	"os"

	"leavedesk/internal/config"
	"leavedesk/internal/database"
	"leavedesk/internal/logger"
	"leavedesk/internal/services"
)

func main() {
	logger.Init(os.Getenv("ENV"), os.Getenv("LOG_LEVEL"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Seed error: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.AdminUsername == "" || cfg.AdminPassword == "" {
		return fmt.Errorf("ADMIN_USERNAME and ADMIN_PASSWORD must be set")
	}

	dbManager, err := database.NewManager(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer dbManager.Close()

	if err := dbManager.Migrate(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	accounts := services.NewAccountService(dbManager.DB(), cfg.Policy)
	account, created, err := accounts.EnsureAdmin(cfg.AdminUsername, cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("failed to create administrator: %w", err)
	}

	if created {
		logger.Get().Infow("Administrator created", "username", account.Username, "id", account.ID)
	} else {
		logger.Get().Infow("Administrator already exists", "username", account.Username, "id", account.ID)
	}
	return nil
}
