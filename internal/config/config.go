package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Profiles
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Access models for event pages
const (
	AccessStaff       = "staff"
	AccessRestriction = "restriction"
)

// Category delete behaviours
const (
	OnDeleteProtect = "protect"
	OnDeleteSetNull = "set_null"
)

const insecureSecretKey = "insecure-dev-0qry-7qyipob0e6grc-jw-tyy-y48t5wyb-cz7"

// ViteConfig mirrors the asset manifest settings of each profile
type ViteConfig struct {
	DevMode         bool
	DevServerHost   string
	DevServerPort   int
	ManifestPath    string
	StaticURLPrefix string
}

// Config holds all application configuration
type Config struct {
	// Profile
	Env          string
	Debug        bool
	SecretKey    string
	AllowedHosts []string

	// Server configuration
	Port string

	// Database configuration
	DBType            string // mysql, postgres, sqlite, sqlserver
	DBHost            string
	DBPort            string
	DBDatabase        string
	DBUser            string
	DBPassword        string
	DBConnectionLimit int
	SQLiteDriver      string // cgo or pure

	// Authorizer configuration
	AuthzURL      string
	AuthzClientID string
	LoginURL      string

	// Content behaviour
	AccessModel      string
	CategoryOnDelete string

	// Media, search and cache
	MediaRoot       string
	MediaURL        string
	SearchIndexPath string
	RedisURL        string
	CacheTTLSeconds int

	LogLevel string

	Vite ViteConfig
}

// Load loads configuration from environment variables, after reading the
// optional env file named by ENV_FILE (or ./.env when present).
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, err
	}

	env := getEnv("APP_ENV", EnvDevelopment)
	if env != EnvDevelopment && env != EnvProduction {
		return nil, fmt.Errorf("APP_ENV must be %q or %q, got %q", EnvDevelopment, EnvProduction, env)
	}
	dev := env == EnvDevelopment

	cfg := &Config{
		Env:               env,
		Debug:             getEnvAsBool("DEBUG", dev),
		SecretKey:         getEnv("SECRET_KEY", ""),
		AllowedHosts:      getEnvAsList("ALLOWED_HOSTS", nil),
		Port:              getEnv("PORT", "3000"),
		DBType:            getEnv("DB_TYPE", "sqlite"),
		DBHost:            getEnv("DB_HOST", "localhost"),
		DBPort:            getEnv("DB_PORT", ""),
		DBDatabase:        getEnv("DB_DATABASE", "db.sqlite3"),
		DBUser:            getEnv("DB_USER", ""),
		DBPassword:        getEnv("DB_PASSWORD", ""),
		DBConnectionLimit: getEnvAsInt("DB_CONNECTION_LIMIT", 5),
		SQLiteDriver:      getEnv("SQLITE_DRIVER", "cgo"),
		AuthzURL:          getEnv("AUTHZ_URL", ""),
		AuthzClientID:     getEnv("AUTHZ_CLIENT_ID", ""),
		LoginURL:          getEnv("LOGIN_URL", "/login/"),
		AccessModel:       getEnv("ACCESS_MODEL", AccessRestriction),
		CategoryOnDelete:  getEnv("CATEGORY_ON_DELETE", OnDeleteProtect),
		MediaRoot:         getEnv("MEDIA_ROOT", "media"),
		MediaURL:          getEnv("MEDIA_URL", "/media/"),
		SearchIndexPath:   getEnv("SEARCH_INDEX_PATH", "search.bleve"),
		RedisURL:          getEnv("REDIS_URL", ""),
		CacheTTLSeconds:   getEnvAsInt("CACHE_TTL_SECONDS", 300),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
	}

	if dev {
		if cfg.SecretKey == "" {
			cfg.SecretKey = insecureSecretKey
		}
		if len(cfg.AllowedHosts) == 0 {
			cfg.AllowedHosts = []string{"*"}
		}
		cfg.Vite = ViteConfig{
			DevMode:       getEnvAsBool("VITE_DEV_MODE", cfg.Debug),
			DevServerHost: getEnv("VITE_DEV_SERVER_HOST", "localhost"),
			DevServerPort: getEnvAsInt("VITE_DEV_SERVER_PORT", 5173),
			ManifestPath:  getEnv("VITE_MANIFEST_PATH", "static/dist/.vite/manifest.json"),
		}
	} else {
		cfg.Vite = ViteConfig{
			ManifestPath:    getEnv("VITE_MANIFEST_PATH", "static/dist/.vite/manifest.json"),
			StaticURLPrefix: getEnv("VITE_STATIC_URL_PREFIX", "dist/"),
		}
	}

	if cfg.DBPort == "" {
		cfg.DBPort = defaultDBPort(cfg.DBType)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// IsProduction reports whether the production profile is active
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

func (c *Config) validate() error {
	// Validate required fields
	if c.IsProduction() {
		if c.SecretKey == "" {
			return fmt.Errorf("SECRET_KEY is required")
		}
		if len(c.AllowedHosts) == 0 {
			return fmt.Errorf("ALLOWED_HOSTS is required")
		}
		if c.AuthzURL == "" {
			return fmt.Errorf("AUTHZ_URL is required")
		}
		if c.AuthzClientID == "" {
			return fmt.Errorf("AUTHZ_CLIENT_ID is required")
		}
	}
	if c.DBDatabase == "" {
		return fmt.Errorf("DB_DATABASE is required")
	}
	switch c.AccessModel {
	case AccessStaff, AccessRestriction:
	default:
		return fmt.Errorf("ACCESS_MODEL must be %q or %q", AccessStaff, AccessRestriction)
	}
	switch c.CategoryOnDelete {
	case OnDeleteProtect, OnDeleteSetNull:
	default:
		return fmt.Errorf("CATEGORY_ON_DELETE must be %q or %q", OnDeleteProtect, OnDeleteSetNull)
	}
	switch c.SQLiteDriver {
	case "cgo", "pure":
	default:
		return fmt.Errorf("SQLITE_DRIVER must be \"cgo\" or \"pure\"")
	}
	return nil
}

func loadEnvFile() error {
	if name := os.Getenv("ENV_FILE"); name != "" {
		if err := godotenv.Load(name); err != nil {
			return fmt.Errorf("failed to load env file %s: %w", name, err)
		}
		return nil
	}
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

func defaultDBPort(dbType string) string {
	switch dbType {
	case "mysql", "mariadb":
		return "3306"
	case "postgres", "postgresql":
		return "5432"
	case "sqlserver", "mssql":
		return "1433"
	}
	return ""
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

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList splits a comma separated variable, dropping blanks
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, v := range strings.Split(valueStr, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
