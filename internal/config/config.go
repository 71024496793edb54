package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds all application configuration
type Config struct {
	// Server
	Port      string
	Env       string // development, production, test
	StaticDir string
	LogLevel  string

	// Database
	DBType         string // postgres, mysql, sqlite
	DatabaseURL    string
	DBMaxOpenConns int
	DBMaxIdleConns int

	// Session cookie
	SessionSecret    string
	SessionMaxAgeSec int

	// Frontend origins allowed by CORS
	FrontendURL           string
	ProductionFrontendURL string

	// 42 intranet OAuth
	FortyTwoClientID     string
	FortyTwoClientSecret string
	FortyTwoCallbackURL  string

	GrafanaEmbedURL string

	// Logins promoted to admin at startup
	AdminLogins []string
}

const devSessionSecret = "secret_key_change_me"

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:                  getEnv("PORT", "3000"),
		Env:                   strings.ToLower(getEnv("APP_ENV", "development")),
		StaticDir:             getEnv("STATIC_DIR", "./web/dist"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		DBType:                strings.ToLower(getEnv("DB_TYPE", "postgres")),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		DBMaxOpenConns:        getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns:        getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
		SessionSecret:         getEnv("SESSION_SECRET", ""),
		SessionMaxAgeSec:      getEnvAsInt("SESSION_MAX_AGE", 30*24*60*60),
		FrontendURL:           getEnv("FRONTEND_URL", "http://localhost:5174"),
		ProductionFrontendURL: getEnv("PRODUCTION_FRONTEND_URL", ""),
		FortyTwoClientID:      getEnv("FORTY_TWO_CLIENT_ID", ""),
		FortyTwoClientSecret:  getEnv("FORTY_TWO_CLIENT_SECRET", ""),
		FortyTwoCallbackURL:   getEnv("FORTY_TWO_CALLBACK_URL", "http://localhost:3000/api/auth/42/callback"),
		GrafanaEmbedURL:       getEnv("GRAFANA_EMBED_URL", "http://localhost:3001"),
		AdminLogins:           getEnvAsList("ADMIN_LOGINS"),
	}

	if cfg.DatabaseURL == "" {
		if cfg.DBType == "sqlite" {
			cfg.DatabaseURL = "ideaboard.db"
		} else {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
	}

	switch cfg.DBType {
	case "postgres", "postgresql", "mysql", "mariadb", "sqlite":
	default:
		return nil, fmt.Errorf("unsupported DB_TYPE: %s", cfg.DBType)
	}

	if cfg.SessionSecret == "" {
		if cfg.IsProduction() {
			return nil, fmt.Errorf("SESSION_SECRET is required in production")
		}
		cfg.SessionSecret = devSessionSecret
	}

	return cfg, nil
}

// IsProduction reports whether diagnostic details must be hidden from clients
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// IsDevelopment reports whether CORS accepts any origin
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// OAuthConfigured reports whether the 42 login strategy can be used
func (c *Config) OAuthConfigured() bool {
	return c.FortyTwoClientID != "" && c.FortyTwoClientSecret != ""
}

// AllowedOrigins returns the CORS allow-list used outside development
func (c *Config) AllowedOrigins() []string {
	origins := []string{
		"http://localhost:3000",
		"http://localhost:3001",
		"http://localhost:5173",
		"http://localhost:5174",
		"http://localhost:5175",
	}
	for _, o := range []string{c.FrontendURL, c.ProductionFrontendURL} {
		if o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList splits a comma separated variable, dropping blanks
func getEnvAsList(key string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
