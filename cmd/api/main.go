package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kurihiro0119/github-access-portal/internal/access"
	"github.com/kurihiro0119/github-access-portal/internal/api"
	"github.com/kurihiro0119/github-access-portal/internal/config"
	"github.com/kurihiro0119/github-access-portal/internal/githubapp"
	"github.com/kurihiro0119/github-access-portal/internal/observability"
	"github.com/kurihiro0119/github-access-portal/internal/storage"
	"github.com/kurihiro0119/github-access-portal/internal/storage/postgres"
	"github.com/kurihiro0119/github-access-portal/internal/storage/sqlite"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := observability.NewLogger(os.Stdout, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid log level: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("Invalid configuration")
	}

	// Initialize storage
	var store storage.Storage
	switch cfg.StorageType {
	case "postgres":
		store, err = postgres.NewPostgresStorage(cfg.PostgresURL)
		if err != nil {
			log.WithError(err).Fatal("Failed to initialize PostgreSQL storage")
		}
	default:
		store, err = sqlite.NewSQLiteStorage(cfg.SQLitePath)
		if err != nil {
			log.WithError(err).Fatal("Failed to initialize SQLite storage")
		}
	}
	defer store.Close()

	// GitHub clients are created per grant
	factory, err := githubapp.NewFactory(log, githubapp.Options{
		AppID:          cfg.GitHubAppID,
		InstallationID: cfg.GitHubInstallationID,
		PrivateKey:     []byte(strings.ReplaceAll(cfg.GitHubPrivateKey, `\n`, "\n")),
		PrivateKeyPath: cfg.GitHubPrivateKeyPath,
		Token:          cfg.GitHubToken,
		APIURL:         cfg.GitHubAPIURL,
		MinDelay:       100 * time.Millisecond,
	})
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize GitHub client factory")
	}

	service := access.NewService(log, factory, store, cfg.GitHubHost)
	handler := api.NewHandler(log, service)

	// Setup routes
	router := api.SetupRoutes(log, handler, api.RouterConfig{
		JWTSecret:        cfg.AuthJWTSecret,
		RateLimitPerHour: cfg.RateLimitPerHour,
	})

	addr := fmt.Sprintf("%s:%s", cfg.APIHost, cfg.APIPort)
	log.WithFields(logrus.Fields{
		"addr":         addr,
		"storage_type": cfg.StorageType,
		"github_app":   cfg.UsesApp(),
		"auth":         cfg.AuthJWTSecret != "",
	}).Info("Starting API server")

	if err := router.Run(addr); err != nil {
		log.WithError(err).Error("Failed to start server")
		store.Close()
		os.Exit(1)
	}
}
