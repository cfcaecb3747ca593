package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds the application configuration
type Config struct {
	// GitHub App
	GitHubAppID          int64
	GitHubPrivateKey     string
	GitHubPrivateKeyPath string
	GitHubInstallationID int64
	GitHubToken          string // personal token fallback for local development
	GitHubHost           string
	GitHubAPIURL         string // empty means api.github.com

	// Storage
	StorageType string // "sqlite" or "postgres"
	SQLitePath  string
	PostgresURL string

	// API Server
	APIPort          string
	APIHost          string
	AuthJWTSecret    string
	RateLimitPerHour int

	// Catalog
	CatalogURL   string
	CatalogToken string
	CatalogFile  string

	// CLI
	APIEndpoint string
	APIToken    string

	LogLevel string
}

// Load loads the configuration from environment variables.
// Files are read in order; a missing file is not an error. With no files
// a .env in the working directory is tried.
func Load(files ...string) (*Config, error) {
	_ = godotenv.Load(files...)

	appID, err := getEnvInt64("GITHUB_APP_ID")
	if err != nil {
		return nil, err
	}
	installationID, err := getEnvInt64("GITHUB_INSTALLATION_ID")
	if err != nil {
		return nil, err
	}
	rateLimit, err := strconv.Atoi(getEnv("RATE_LIMIT_PER_HOUR", "100"))
	if err != nil {
		return nil, &ConfigError{Field: "RATE_LIMIT_PER_HOUR", Message: "must be an integer"}
	}

	return &Config{
		GitHubAppID:          appID,
		GitHubPrivateKey:     getEnv("GITHUB_APP_PRIVATE_KEY", ""),
		GitHubPrivateKeyPath: getEnv("GITHUB_APP_PRIVATE_KEY_PATH", ""),
		GitHubInstallationID: installationID,
		GitHubToken:          getEnv("GITHUB_TOKEN", ""),
		GitHubHost:           getEnv("GITHUB_HOST", "github.com"),
		GitHubAPIURL:         getEnv("GITHUB_API_URL", ""),
		StorageType:          getEnv("STORAGE_TYPE", "sqlite"),
		SQLitePath:           getEnv("SQLITE_PATH", "./access.db"),
		PostgresURL:          getEnv("POSTGRES_URL", ""),
		APIPort:              getEnv("API_PORT", "8080"),
		APIHost:              getEnv("API_HOST", "localhost"),
		AuthJWTSecret:        getEnv("AUTH_JWT_SECRET", ""),
		RateLimitPerHour:     rateLimit,
		CatalogURL:           getEnv("CATALOG_URL", ""),
		CatalogToken:         getEnv("CATALOG_TOKEN", ""),
		CatalogFile:          getEnv("CATALOG_FILE", ""),
		APIEndpoint:          getEnv("API_ENDPOINT", "http://localhost:8080"),
		APIToken:             getEnv("API_TOKEN", ""),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
	}, nil
}

// getEnv returns the value of an environment variable or a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string) (int64, error) {
	value := os.Getenv(key)
	if value == "" {
		return 0, nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, &ConfigError{Field: key, Message: "must be an integer"}
	}
	return n, nil
}

// UsesApp reports whether GitHub App credentials are configured
func (c *Config) UsesApp() bool {
	return c.GitHubAppID != 0
}

// Validate validates the server configuration
func (c *Config) Validate() error {
	if c.UsesApp() {
		if c.GitHubInstallationID == 0 {
			return &ConfigError{Field: "GITHUB_INSTALLATION_ID", Message: "installation ID is required with GITHUB_APP_ID"}
		}
		if c.GitHubPrivateKey == "" && c.GitHubPrivateKeyPath == "" {
			return &ConfigError{Field: "GITHUB_APP_PRIVATE_KEY", Message: "private key or GITHUB_APP_PRIVATE_KEY_PATH is required with GITHUB_APP_ID"}
		}
	} else if c.GitHubToken == "" {
		return &ConfigError{Field: "GITHUB_APP_ID", Message: "GitHub App credentials or GITHUB_TOKEN are required"}
	}
	if c.StorageType != "sqlite" && c.StorageType != "postgres" {
		return &ConfigError{Field: "STORAGE_TYPE", Message: "must be 'sqlite' or 'postgres'"}
	}
	if c.StorageType == "postgres" && c.PostgresURL == "" {
		return &ConfigError{Field: "POSTGRES_URL", Message: "PostgreSQL URL is required when STORAGE_TYPE is 'postgres'"}
	}
	if c.RateLimitPerHour < 0 {
		return &ConfigError{Field: "RATE_LIMIT_PER_HOUR", Message: "must not be negative"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
