package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server   ServerConfig
	DocStore DocStoreConfig
	Database DatabaseConfig
	Mongo    MongoConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Google   GoogleConfig
	Worker   WorkerConfig
	Log      LogConfig
	Metrics  MetricsConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
}

// DocStoreConfig selects the document store backend.
type DocStoreConfig struct {
	Driver string // postgres | mongo | memory
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is (e.g. postgres://localhost:5432/amphitryon?sslmode=disable)
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int32
}

// MongoConfig holds MongoDB connection settings.
type MongoConfig struct {
	URI      string
	Database string
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds session token settings.
type JWTConfig struct {
	Secret        string
	ExpireMinutes int
	Header        string // response/request header carrying "Bearer <token>"
}

// GoogleConfig holds Google ID token verification settings.
type GoogleConfig struct {
	ClientID  string
	Issuer    string
	TestToken string // accepted without verification when non-empty; development only
}

// WorkerConfig controls background chat purging.
type WorkerConfig struct {
	ChatPurgeAsync bool
}

// LogConfig controls zap output.
type LogConfig struct {
	Level string
	File  string // optional rotated log file, in addition to stdout
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()      // .env
	_ = godotenv.Load("env") // env (no leading dot)

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 30),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
		},
		DocStore: DocStoreConfig{
			Driver: strings.ToLower(getEnv("DOCSTORE_DRIVER", "postgres")),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "amphitryon"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: int32(getEnvInt("DB_MAX_CONNS", 10)),
		},
		Mongo: MongoConfig{
			URI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database: getEnv("MONGO_DATABASE", "amphitryon"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:        getEnv("JWT_SECRET", "change-me-in-production"),
			ExpireMinutes: getEnvInt("JWT_EXPIRE_MINUTES", 30),
			Header:        getEnv("SESSION_HEADER", "SESSION_TOKEN_AMPHITRYON"),
		},
		Google: GoogleConfig{
			ClientID:  getEnv("GOOGLE_CLIENT_ID", ""),
			Issuer:    getEnv("GOOGLE_ISSUER", "https://accounts.google.com"),
			TestToken: getEnv("AUTH_TEST_TOKEN", ""),
		},
		Worker: WorkerConfig{
			ChatPurgeAsync: getEnvBool("CHAT_PURGE_ASYNC", false),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			File:  getEnv("LOG_FILE", ""),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
		},
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DocStore.Driver {
	case "postgres", "mongo", "memory":
	default:
		return fmt.Errorf("DOCSTORE_DRIVER %q: want postgres, mongo or memory", c.DocStore.Driver)
	}
	if c.JWT.ExpireMinutes <= 0 {
		return fmt.Errorf("JWT_EXPIRE_MINUTES must be positive")
	}
	return nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
