package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Pricing  PricingConfig
	CORS     CORSConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port string
	Host string
	Addr string // Combined host:port for convenience
}

// DatabaseConfig holds database-specific configuration
type DatabaseConfig struct {
	Path string
}

// AuthConfig holds token issuing configuration
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// PricingConfig holds price provider configuration. FinnhubAPIKey from the
// environment is the bootstrap value; a key stored through the settings
// endpoint takes precedence. FernetKey encrypts stored keys at rest.
type PricingConfig struct {
	FinnhubAPIKey string
	FernetKey     string
}

// CORSConfig holds CORS-specific configuration
type CORSConfig struct {
	AllowedOrigins []string
}

// Load reads configuration from environment variables and .env file
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	expMinutes, err := strconv.Atoi(getEnv("JWT_EXP_MINUTES", "1440"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_EXP_MINUTES: %w", err)
	}

	config := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "50000"),
			Host: getEnv("SERVER_HOST", "localhost"),
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "./data/asset_tracker.db"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", "change-me"),
			TokenTTL:  time.Duration(expMinutes) * time.Minute,
		},
		Pricing: PricingConfig{
			FinnhubAPIKey: os.Getenv("FINNHUB_API_KEY"),
			FernetKey:     os.Getenv("FERNET_KEY"),
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{
				"http://localhost:50001",
				"http://127.0.0.1:50001",
			},
		},
	}

	// Combine host and port
	config.Server.Addr = fmt.Sprintf("%s:%s", config.Server.Host, config.Server.Port)

	return config, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
