// Package config provides configuration management and environment variable handling for the application
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ariacomm/campfire/utils"
)

// ProductionConfig holds all configuration for production environment
type ProductionConfig struct {
	Database   DatabaseConfig   `json:"database"`
	Cache      CacheConfig      `json:"cache"`
	Engine     EngineConfig     `json:"engine"`
	FlowEngine FlowEngineConfig `json:"flow_engine"`
	Logging    LoggingConfig    `json:"logging"`
	Metrics    MetricsConfig    `json:"metrics"`
}

type DatabaseConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	Name            string        `json:"name"`
	User            string        `json:"user"`
	Password        string        `json:"password"`
	SSLMode         string        `json:"ssl_mode"`
	MaxOpenConns    int           `json:"max_open_conns"`
	MaxIdleConns    int           `json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `json:"conn_max_idle_time"`
}

type CacheConfig struct {
	Enabled             bool          `json:"enabled"`
	Provider            string        `json:"provider"` // redis, memory
	RedisURL            string        `json:"redis_url"`
	RedisPrefix         string        `json:"redis_prefix"`
	HealthCheckInterval time.Duration `json:"health_check_interval"`
}

// EngineConfig tunes the fire engine workers
type EngineConfig struct {
	ExecutorInterval   time.Duration `json:"executor_interval"`
	TrimInterval       time.Duration `json:"trim_interval"`
	FireRetention      time.Duration `json:"fire_retention"`
	MaterializeWorkers int           `json:"materialize_workers"`
}

// FlowEngineConfig points the executor at the flow-execution engine
type FlowEngineConfig struct {
	Provider string        `json:"provider"` // http, mock
	BaseURL  string        `json:"base_url"`
	APIToken string        `json:"api_token"`
	Timeout  time.Duration `json:"timeout"`
}

type LoggingConfig struct {
	Level    string `json:"level"`  // debug, info, warn, error
	Output   string `json:"output"` // stdout, file, both
	FilePath string `json:"file_path"`
}

type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Port    int    `json:"port"`
	Path    string `json:"path"`
}

// LoadProductionConfig loads and validates configuration from environment variables
func LoadProductionConfig() (*ProductionConfig, error) {
	// Load environment variables from .env file
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &ProductionConfig{
		Database: DatabaseConfig{
			Host:            getEnvString("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			Name:            getEnvString("DB_NAME", "campfire"),
			User:            getEnvString("DB_USER", "postgres"),
			Password:        getEnvString("DB_PASSWORD", ""),
			SSLMode:         getEnvString("DB_SSL_MODE", "require"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getEnvDuration("DB_CONN_MAX_IDLE_TIME", 15*time.Minute),
		},
		Cache: CacheConfig{
			Enabled:             getEnvBool("CACHE_ENABLED", true),
			Provider:            getEnvString("CACHE_PROVIDER", "redis"),
			RedisURL:            getEnvString("CACHE_REDIS_URL", "redis://localhost:6379/0"),
			RedisPrefix:         getEnvString("CACHE_REDIS_PREFIX", "campfire"),
			HealthCheckInterval: getEnvDuration("CACHE_HEALTHCHECK_INTERVAL", 30*time.Second),
		},
		Engine: EngineConfig{
			ExecutorInterval:   getEnvDuration("ENGINE_EXECUTOR_INTERVAL", utils.ExecutorInterval),
			TrimInterval:       getEnvDuration("ENGINE_TRIM_INTERVAL", utils.TrimInterval),
			FireRetention:      getEnvDuration("ENGINE_FIRE_RETENTION", utils.FireRetention),
			MaterializeWorkers: getEnvInt("ENGINE_MATERIALIZE_WORKERS", 4),
		},
		FlowEngine: FlowEngineConfig{
			Provider: getEnvString("FLOW_ENGINE_PROVIDER", "http"),
			BaseURL:  getEnvString("FLOW_ENGINE_BASE_URL", "http://localhost:8000"),
			APIToken: getEnvString("FLOW_ENGINE_API_TOKEN", ""),
			Timeout:  getEnvDuration("FLOW_ENGINE_TIMEOUT", 15*time.Second),
		},
		Logging: LoggingConfig{
			Level:    getEnvString("LOG_LEVEL", "info"),
			Output:   getEnvString("LOG_OUTPUT", "both"),
			FilePath: getEnvString("LOG_FILE_PATH", "data/campfire.log"),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Port:    getEnvInt("METRICS_PORT", 9091),
			Path:    getEnvString("METRICS_PATH", "/metrics"),
		},
	}

	if err := ValidateProductionConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ValidateProductionConfig checks that required settings are present and sane
func ValidateProductionConfig(cfg *ProductionConfig) error {
	var errors []string

	if cfg.Database.Host == "" {
		errors = append(errors, "DB_HOST is required")
	}
	if cfg.Database.Port <= 0 || cfg.Database.Port > 65535 {
		errors = append(errors, "DB_PORT must be between 1 and 65535")
	}
	if cfg.Database.Name == "" {
		errors = append(errors, "DB_NAME is required")
	}
	if cfg.Database.User == "" {
		errors = append(errors, "DB_USER is required")
	}

	if cfg.Cache.Enabled && cfg.Cache.Provider == "redis" && cfg.Cache.RedisURL == "" {
		errors = append(errors, "CACHE_REDIS_URL is required when the redis cache provider is enabled")
	}

	if cfg.Engine.ExecutorInterval <= 0 {
		errors = append(errors, "ENGINE_EXECUTOR_INTERVAL must be positive")
	}
	if cfg.Engine.TrimInterval <= 0 {
		errors = append(errors, "ENGINE_TRIM_INTERVAL must be positive")
	}
	if cfg.Engine.FireRetention <= 0 {
		errors = append(errors, "ENGINE_FIRE_RETENTION must be positive")
	}
	if cfg.Engine.MaterializeWorkers <= 0 {
		errors = append(errors, "ENGINE_MATERIALIZE_WORKERS must be positive")
	}

	if cfg.FlowEngine.Provider == "http" && cfg.FlowEngine.BaseURL == "" {
		errors = append(errors, "FLOW_ENGINE_BASE_URL is required when the http flow engine provider is used")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}

	return nil
}

func loadEnvFile() error {
	envFile := ".env"

	// Check if .env file exists
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		// .env file doesn't exist, continue with environment variables
		return nil
	}

	// Open .env file
	file, err := os.Open(envFile)
	if err != nil {
		return fmt.Errorf("failed to open .env file: %w", err)
	}
	defer file.Close()

	// Read file line by line
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse key=value pairs
		if strings.Contains(line, "=") {
			parts := strings.SplitN(line, "=", 2)
			if len(parts) == 2 {
				key := strings.TrimSpace(parts[0])
				value := strings.TrimSpace(parts[1])

				// Remove quotes if present
				if (strings.HasPrefix(value, `"`) && strings.HasSuffix(value, `"`)) ||
					(strings.HasPrefix(value, `'`) && strings.HasSuffix(value, `'`)) {
					value = value[1 : len(value)-1]
				}

				// Set environment variable if not already set
				if os.Getenv(key) == "" {
					os.Setenv(key, value)
				}
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("error reading .env file: %w", err)
	}

	return nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
