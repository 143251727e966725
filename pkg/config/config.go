package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server struct {
		Port            string
		Env             string
		ShutdownTimeout time.Duration
		GRPCHealthPort  string
	}

	// Database configuration
	Database struct {
		Driver   string // sqlite or postgres
		Path     string // sqlite file
		Host     string
		Port     string
		User     string
		Password string
		Name     string
		SSLMode  string
		MaxConns int
	}

	// Security configuration
	Security struct {
		RateLimit      float64
		RateLimitBurst int
		AllowedOrigins []string
	}

	// Logging configuration
	Logging struct {
		Level  string
		Format string
	}

	// Uploads configuration
	Uploads struct {
		Dir       string
		URLPrefix string
		MaxBytes  int64
	}

	// AI responder configuration
	AI struct {
		APIKey      string
		BaseURL     string
		Model       string
		MaxTokens   int
		Temperature float32
		Timeout     time.Duration
	}

	// Cache settings for the story listing snapshot
	Cache struct {
		Enabled     bool
		Backend     string // memory or redis
		TTL         time.Duration
		MaxSize     int
		PurgeWindow time.Duration
	}

	// Redis settings, used when Cache.Backend is redis
	Redis struct {
		Addr     string
		Password string
		DB       int
	}

	// Feature flags
	Features struct {
		OpenAPIValidation bool
		Tracing           bool
		RateLimiting      bool
	}
}

// Load builds a Config from the environment, reading a .env file first if present
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{}

	// Server config
	cfg.Server.Port = getEnvString("PORT", "3000")
	cfg.Server.Env = getEnvString("APP_ENV", "development")
	cfg.Server.ShutdownTimeout = getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	cfg.Server.GRPCHealthPort = getEnvString("GRPC_HEALTH_PORT", "")

	// Database config
	cfg.Database.Driver = getEnvString("DB_DRIVER", "sqlite")
	cfg.Database.Path = getEnvString("DB_PATH", "data/newsflow.db")
	cfg.Database.Host = getEnvString("DB_HOST", "localhost")
	cfg.Database.Port = getEnvString("DB_PORT", "5432")
	cfg.Database.User = getEnvString("DB_USER", "postgres")
	cfg.Database.Password = getEnvString("DB_PASSWORD", "postgres")
	cfg.Database.Name = getEnvString("DB_NAME", "newsflow")
	cfg.Database.SSLMode = getEnvString("DB_SSL_MODE", "disable")
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 10)

	// Security config
	cfg.Security.RateLimit = getEnvFloat("RATE_LIMIT", 20)
	cfg.Security.RateLimitBurst = getEnvInt("RATE_LIMIT_BURST", 40)
	cfg.Security.AllowedOrigins = getEnvStringSlice("ALLOWED_ORIGINS", []string{"*"})

	// Logging config
	cfg.Logging.Level = getEnvString("LOG_LEVEL", "info")
	cfg.Logging.Format = getEnvString("LOG_FORMAT", "json")

	// Uploads config
	cfg.Uploads.Dir = getEnvString("UPLOAD_DIR", "public/uploads")
	cfg.Uploads.URLPrefix = getEnvString("UPLOAD_URL_PREFIX", "/uploads")
	cfg.Uploads.MaxBytes = getEnvInt64("UPLOAD_MAX_BYTES", 50<<20) // 50MB

	// AI config
	cfg.AI.APIKey = getEnvString("OPENAI_API_KEY", "")
	cfg.AI.BaseURL = getEnvString("OPENAI_BASE_URL", "")
	cfg.AI.Model = getEnvString("OPENAI_MODEL", "gpt-3.5-turbo")
	cfg.AI.MaxTokens = getEnvInt("OPENAI_MAX_TOKENS", 500)
	cfg.AI.Temperature = float32(getEnvFloat("OPENAI_TEMPERATURE", 0.7))
	cfg.AI.Timeout = getEnvDuration("AI_TIMEOUT", 30*time.Second)

	// Cache settings
	cfg.Cache.Enabled = getEnvBool("CACHE_ENABLED", true)
	cfg.Cache.Backend = getEnvString("CACHE_BACKEND", "memory")
	cfg.Cache.TTL = getEnvDuration("CACHE_TTL", 30*time.Second)
	cfg.Cache.MaxSize = getEnvInt("CACHE_MAX_SIZE", 100)
	cfg.Cache.PurgeWindow = getEnvDuration("CACHE_PURGE_WINDOW", time.Minute)

	// Redis settings
	cfg.Redis.Addr = getEnvString("REDIS_URL", "localhost:6379")
	cfg.Redis.Password = getEnvString("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	// Feature flags
	cfg.Features.OpenAPIValidation = getEnvBool("OPENAPI_VALIDATION", true)
	cfg.Features.Tracing = getEnvBool("TRACING_ENABLED", false)
	cfg.Features.RateLimiting = getEnvBool("RATE_LIMIT_ENABLED", true)

	return cfg
}

// IsProduction reports whether the server runs with APP_ENV=production
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Helper functions to read environment variables with default values

func getEnvString(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}
