package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvConfigPath     = "CONFIG_PATH"
	EnvDBConnection   = "DB_CONNECTION"
	EnvJWTSecret      = "JWT_SECRET"
	EnvJWTExpiry      = "JWT_EXPIRY"
	EnvStorageRoot    = "STORAGE_ROOT"
	EnvStorageBaseURL = "STORAGE_BASE_URL"
	EnvAMQPURL        = "AMQP_URL"

	EnvCacheRedisAddr     = "CACHE_REDIS_ADDR"
	EnvCacheRedisPassword = "CACHE_REDIS_PASSWORD"
	EnvCacheRedisDB       = "CACHE_REDIS_DB"

	EnvAdminEmail    = "ADMIN_EMAIL"
	EnvAdminPassword = "ADMIN_PASSWORD"
)

// AppConfig holds resolved application configuration values.
type AppConfig struct {
	ConfigPath string
}

// LoadFromEnv loads app config from environment variables.
func LoadFromEnv() (AppConfig, error) {
	return AppConfig{ConfigPath: ResolveConfigPath(os.Getenv(EnvConfigPath))}, nil
}

// ResolveConfigPath normalizes the config path and applies defaults.
func ResolveConfigPath(p string) string {
	trimmed := strings.TrimSpace(p)
	if trimmed == "" {
		trimmed = "./config.yaml"
	}
	if abs, err := filepath.Abs(trimmed); err == nil {
		return abs
	}
	return trimmed
}

// ErrMissingDatabaseDSN indicates no database DSN is present in the config file.
var ErrMissingDatabaseDSN = errors.New("missing database dsn (set `database-dsn` or `database.dsn` in config file)")

// JWTConfig holds JWT secret and expiry settings.
type JWTConfig struct {
	Secret string        `yaml:"secret"`
	Expiry time.Duration `yaml:"expiry"`
}

// StorageConfig holds object storage settings.
type StorageConfig struct {
	Root    string `yaml:"root"`     // Filesystem root for stored objects.
	BaseURL string `yaml:"base-url"` // Public URL prefix for stored objects.
}

// CacheConfig holds shared cache backend settings.
type CacheConfig struct {
	RedisAddr     string `yaml:"redis-addr"`     // Redis address, empty selects the in-process cache.
	RedisPassword string `yaml:"redis-password"` // Redis password.
	RedisDB       int    `yaml:"redis-db"`       // Redis DB index.
	Prefix        string `yaml:"prefix"`         // Key prefix for cache entries.
}

// QueueConfig holds event broker settings.
type QueueConfig struct {
	AMQPURL string `yaml:"amqp-url"` // AMQP broker URL, empty disables events.
}

// LoadDatabaseDSN reads the database DSN from the YAML config file.
func LoadDatabaseDSN(configPath string) (string, error) {
	if dsn := strings.TrimSpace(os.Getenv(EnvDBConnection)); dsn != "" {
		return dsn, nil
	}

	// fileConfig maps the YAML fields needed for DSN resolution.
	type fileConfig struct {
		DatabaseDSN string `yaml:"database-dsn"`
		Database    struct {
			DSN string `yaml:"dsn"`
		} `yaml:"database"`
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return "", fmt.Errorf("read config file: %w", err)
	}

	var cfg fileConfig
	if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
		return "", fmt.Errorf("parse config file: %w", errUnmarshal)
	}

	if dsn := strings.TrimSpace(cfg.DatabaseDSN); dsn != "" {
		return dsn, nil
	}
	if dsn := strings.TrimSpace(cfg.Database.DSN); dsn != "" {
		return dsn, nil
	}
	return "", ErrMissingDatabaseDSN
}

// defaultJWTExpiry is used when the config omits or invalidates JWT expiry.
const defaultJWTExpiry = 30 * 24 * time.Hour

// LoadJWTConfig loads JWT settings from the YAML config file.
func LoadJWTConfig(configPath string) (JWTConfig, error) {
	// fileConfig maps the YAML fields needed for JWT settings.
	type fileConfig struct {
		JWT JWTConfig `yaml:"jwt"`
	}

	result := JWTConfig{Expiry: defaultJWTExpiry}

	data, errRead := os.ReadFile(configPath)
	if errRead == nil {
		var cfg fileConfig
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal == nil {
			result = cfg.JWT
		}
	}

	if secret := strings.TrimSpace(os.Getenv(EnvJWTSecret)); secret != "" {
		result.Secret = secret
	}
	if expiryRaw := strings.TrimSpace(os.Getenv(EnvJWTExpiry)); expiryRaw != "" {
		if expiry, errParse := time.ParseDuration(expiryRaw); errParse == nil && expiry > 0 {
			result.Expiry = expiry
		}
	}

	if result.Expiry <= 0 {
		result.Expiry = defaultJWTExpiry
	}
	return result, nil
}

// LoadStorageConfig loads object storage settings from the YAML config file.
func LoadStorageConfig(configPath string) (StorageConfig, error) {
	// fileConfig maps the YAML fields needed for storage settings.
	type fileConfig struct {
		Storage StorageConfig `yaml:"storage"`
	}

	result := StorageConfig{Root: "./data/assets", BaseURL: "/assets"}

	data, errRead := os.ReadFile(configPath)
	if errRead == nil {
		var cfg fileConfig
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal == nil {
			if strings.TrimSpace(cfg.Storage.Root) != "" {
				result.Root = cfg.Storage.Root
			}
			if strings.TrimSpace(cfg.Storage.BaseURL) != "" {
				result.BaseURL = cfg.Storage.BaseURL
			}
		}
	}

	if root := strings.TrimSpace(os.Getenv(EnvStorageRoot)); root != "" {
		result.Root = root
	}
	if baseURL := strings.TrimSpace(os.Getenv(EnvStorageBaseURL)); baseURL != "" {
		result.BaseURL = baseURL
	}

	if abs, errAbs := filepath.Abs(result.Root); errAbs == nil {
		result.Root = abs
	}
	result.BaseURL = strings.TrimRight(result.BaseURL, "/")
	return result, nil
}

// LoadCacheConfig loads shared cache settings from the YAML config file.
func LoadCacheConfig(configPath string) (CacheConfig, error) {
	// fileConfig maps the YAML fields needed for cache settings.
	type fileConfig struct {
		Cache CacheConfig `yaml:"cache"`
	}

	result := CacheConfig{Prefix: "fovdark:cache"}

	data, errRead := os.ReadFile(configPath)
	if errRead == nil {
		var cfg fileConfig
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal == nil {
			if strings.TrimSpace(cfg.Cache.RedisAddr) != "" {
				result.RedisAddr = cfg.Cache.RedisAddr
			}
			result.RedisPassword = cfg.Cache.RedisPassword
			if cfg.Cache.RedisDB > 0 {
				result.RedisDB = cfg.Cache.RedisDB
			}
			if strings.TrimSpace(cfg.Cache.Prefix) != "" {
				result.Prefix = cfg.Cache.Prefix
			}
		}
	}

	if addr := strings.TrimSpace(os.Getenv(EnvCacheRedisAddr)); addr != "" {
		result.RedisAddr = addr
	}
	if password := os.Getenv(EnvCacheRedisPassword); password != "" {
		result.RedisPassword = password
	}
	if dbRaw := strings.TrimSpace(os.Getenv(EnvCacheRedisDB)); dbRaw != "" {
		if dbIdx, errParse := strconv.Atoi(dbRaw); errParse == nil && dbIdx >= 0 {
			result.RedisDB = dbIdx
		}
	}
	return result, nil
}

// LoadQueueConfig loads event broker settings from the YAML config file.
func LoadQueueConfig(configPath string) (QueueConfig, error) {
	// fileConfig maps the YAML fields needed for queue settings.
	type fileConfig struct {
		Queue QueueConfig `yaml:"queue"`
	}

	var result QueueConfig

	data, errRead := os.ReadFile(configPath)
	if errRead == nil {
		var cfg fileConfig
		if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal == nil {
			result = cfg.Queue
		}
	}

	if url := strings.TrimSpace(os.Getenv(EnvAMQPURL)); url != "" {
		result.AMQPURL = url
	}
	return result, nil
}
