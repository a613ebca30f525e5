package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

var (
	ErrMissingPort        = errors.New("server port is required")
	ErrMissingDatabaseURL = errors.New("database connection settings are required for the postgres store")
	ErrWeakJWTSecret      = errors.New("JWT secret must be set in production")
	ErrUnknownStore       = errors.New("unknown store driver")
	ErrUnknownStorage     = errors.New("unknown storage driver")
	ErrMissingBucket      = errors.New("minio endpoint and bucket are required for the minio storage driver")
)

const defaultJWTSecret = "change-me-in-production"

// Config represents application configuration
type Config struct {
	Server    ServerConfig    `json:"server"`
	Database  DatabaseConfig  `json:"database"`
	Redis     RedisConfig     `json:"redis"`
	Logging   LoggingConfig   `json:"logging"`
	Security  SecurityConfig  `json:"security"`
	Storage   StorageConfig   `json:"storage"`
	Scheduler SchedulerConfig `json:"scheduler"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Port         string        `json:"port"`
	Host         string        `json:"host"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
	Environment  string        `json:"environment"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Driver         string        `json:"driver"` // postgres, memory
	URL            string        `json:"url"`
	Host           string        `json:"host"`
	Port           int           `json:"port"`
	User           string        `json:"user"`
	Password       string        `json:"password"`
	DBName         string        `json:"dbname"`
	SSLMode        string        `json:"sslmode"`
	MaxConnections int           `json:"max_connections"`
	MaxIdleTime    time.Duration `json:"max_idle_time"`
	ConnectTimeout time.Duration `json:"connect_timeout"`
	MigrationsPath string        `json:"migrations_path"`
}

// RedisConfig represents Redis configuration
type RedisConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"` // json, text
}

// SecurityConfig represents security configuration
type SecurityConfig struct {
	JWTSecret          string        `json:"-"`
	JWTAlgorithm       string        `json:"jwt_algorithm"`
	JWTExpiration      time.Duration `json:"jwt_expiration"`
	BcryptCost         int           `json:"bcrypt_cost"`
	CORSOrigins        []string      `json:"cors_origins"`
	CORSCredentials    bool          `json:"cors_credentials"`
	RateLimitEnabled   bool          `json:"rate_limit_enabled"`
	RateLimitRequests  int           `json:"rate_limit_requests"`
	RateLimitWindow    time.Duration `json:"rate_limit_window"`
	LoginAttempts      int           `json:"login_attempts"`
	LoginWindow        time.Duration `json:"login_window"`
	LoginBlockDuration time.Duration `json:"login_block_duration"`
}

// StorageConfig selects where attachment content lives
type StorageConfig struct {
	Driver         string `json:"driver"` // local, minio
	UploadDir      string `json:"upload_dir"`
	MaxUploadBytes int64  `json:"max_upload_bytes"`
	MinioEndpoint  string `json:"minio_endpoint"`
	MinioAccessKey string `json:"-"`
	MinioSecretKey string `json:"-"`
	MinioBucket    string `json:"minio_bucket"`
	MinioUseSSL    bool   `json:"minio_use_ssl"`
	PDFFontPath    string `json:"pdf_font_path"`
}

// SchedulerConfig configures the contract expiry sweeper
type SchedulerConfig struct {
	ExpiryEnabled  bool   `json:"expiry_enabled"`
	ExpirySchedule string `json:"expiry_schedule"`
	SystemUsername string `json:"system_username"`
}

// Load loads configuration from environment variables and defaults
func Load() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			Environment:  getEnv("ENVIRONMENT", "development"),
		},
		Database: DatabaseConfig{
			Driver:         getEnv("STORE_DRIVER", "postgres"),
			URL:            getEnv("DATABASE_URL", ""),
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnvInt("DB_PORT", 5432),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", ""),
			DBName:         getEnv("DB_NAME", "contractflow"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			MaxConnections: getEnvInt("DB_MAX_CONNECTIONS", 20),
			MaxIdleTime:    getEnvDuration("DB_MAX_IDLE_TIME", 30*time.Minute),
			ConnectTimeout: getEnvDuration("DB_CONNECT_TIMEOUT", 10*time.Second),
			MigrationsPath: getEnv("DB_MIGRATIONS_PATH", "./migrations"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Security: SecurityConfig{
			JWTSecret:          getEnv("JWT_SECRET", defaultJWTSecret),
			JWTAlgorithm:       getEnv("JWT_ALGORITHM", "HS256"),
			JWTExpiration:      getEnvDuration("JWT_EXPIRATION", 24*time.Hour),
			BcryptCost:         getEnvInt("BCRYPT_COST", 10),
			CORSOrigins:        getEnvSlice("CORS_ORIGINS", []string{"http://localhost:5173"}),
			CORSCredentials:    getEnvBool("CORS_ALLOW_CREDENTIALS", true),
			RateLimitEnabled:   getEnvBool("RATE_LIMIT_ENABLED", false),
			RateLimitRequests:  getEnvInt("RATE_LIMIT_REQUESTS", 100),
			RateLimitWindow:    getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
			LoginAttempts:      getEnvInt("LOGIN_ATTEMPTS", 5),
			LoginWindow:        getEnvDuration("LOGIN_WINDOW", 15*time.Minute),
			LoginBlockDuration: getEnvDuration("LOGIN_BLOCK_DURATION", 30*time.Minute),
		},
		Storage: StorageConfig{
			Driver:         getEnv("STORAGE_DRIVER", "local"),
			UploadDir:      getEnv("UPLOAD_DIR", "uploads"),
			MaxUploadBytes: int64(getEnvInt("MAX_UPLOAD_BYTES", 20<<20)),
			MinioEndpoint:  getEnv("MINIO_ENDPOINT", ""),
			MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
			MinioBucket:    getEnv("MINIO_BUCKET", "contracts"),
			MinioUseSSL:    getEnvBool("MINIO_USE_SSL", false),
			PDFFontPath:    getEnv("PDF_FONT_PATH", ""),
		},
		Scheduler: SchedulerConfig{
			ExpiryEnabled:  getEnvBool("EXPIRY_ENABLED", true),
			ExpirySchedule: getEnv("EXPIRY_SCHEDULE", "0 0 2 * * *"),
			SystemUsername: getEnv("EXPIRY_SYSTEM_USERNAME", "admin"),
		},
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return ErrMissingPort
	}

	switch c.Database.Driver {
	case "postgres":
		if c.Database.URL == "" && (c.Database.Host == "" || c.Database.User == "" || c.Database.DBName == "") {
			return ErrMissingDatabaseURL
		}
	case "memory":
	default:
		return fmt.Errorf("%w: %s", ErrUnknownStore, c.Database.Driver)
	}

	switch c.Storage.Driver {
	case "local":
	case "minio":
		if c.Storage.MinioEndpoint == "" || c.Storage.MinioBucket == "" {
			return ErrMissingBucket
		}
	default:
		return fmt.Errorf("%w: %s", ErrUnknownStorage, c.Storage.Driver)
	}

	if c.IsProduction() && (c.Security.JWTSecret == "" || c.Security.JWTSecret == defaultJWTSecret) {
		return ErrWeakJWTSecret
	}

	return nil
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// GetDatabaseURL returns the database connection string
func (c *Config) GetDatabaseURL() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.SSLMode,
	)
}

// GetRedisAddr returns the Redis host:port
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// Helper functions for environment variables

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
