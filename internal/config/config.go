package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port        string `yaml:"port"`
	Environment string `yaml:"environment"`
	CORSOrigins string `yaml:"cors_origins"`

	// Backend selects the metadata store: "postgres" or "memory".
	// Memory mode runs without any infrastructure (dev/tests only).
	Backend     string `yaml:"backend"`
	DatabaseURL string `yaml:"database_url"`
	TablePrefix string `yaml:"table_prefix"`

	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	CacheTTL      time.Duration `yaml:"cache_ttl"`

	BlobEndpoint  string `yaml:"blob_endpoint"`
	BlobAccessKey string `yaml:"blob_access_key"`
	BlobSecretKey string `yaml:"blob_secret_key"`
	BlobBucket    string `yaml:"blob_bucket"`
	BlobRegion    string `yaml:"blob_region"`
	BlobUseSSL    bool   `yaml:"blob_use_ssl"`

	// Debug enables verbose logging and the memory-mode conveniences.
	Debug bool `yaml:"debug"`

	// LogDir, when set, mirrors server logs into timestamped files there.
	LogDir      string `yaml:"log_dir"`
	LogMaxFiles int    `yaml:"log_max_files"`
}

// Load builds the configuration from environment variables, optionally
// overlaid by a YAML file named in DOCTREE_CONFIG.
func Load() (*Config, error) {
	env := getEnv("ENVIRONMENT", "dev")

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: env,
		CORSOrigins: getEnv("CORS_ORIGINS", "http://localhost:3000"),

		Backend:     getEnv("BACKEND", "postgres"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		TablePrefix: getTablePrefix(env),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       0,
		CacheTTL:      5 * time.Minute,

		BlobEndpoint:  getEnv("BLOB_ENDPOINT", "localhost:9000"),
		BlobAccessKey: getEnv("BLOB_ACCESS_KEY", ""),
		BlobSecretKey: getEnv("BLOB_SECRET_KEY", ""),
		BlobBucket:    getEnv("BLOB_BUCKET", "doctree"),
		BlobRegion:    getEnv("BLOB_REGION", "us-east-1"),
		BlobUseSSL:    getEnv("BLOB_USE_SSL", "false") == "true",

		Debug: getEnv("DEBUG", getDefaultDebug(env)) == "true",

		LogDir:      getEnv("LOG_DIR", ""),
		LogMaxFiles: 10,
	}

	if ttl := os.Getenv("CACHE_TTL"); ttl != "" {
		d, err := time.ParseDuration(ttl)
		if err != nil {
			return nil, fmt.Errorf("parse CACHE_TTL: %w", err)
		}
		cfg.CacheTTL = d
	}

	if path := os.Getenv("DOCTREE_CONFIG"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

// applyFile overlays values from a YAML config file. Zero values in the
// file leave the environment-derived values untouched.
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	overlay(&c.Port, file.Port)
	overlay(&c.Environment, file.Environment)
	overlay(&c.CORSOrigins, file.CORSOrigins)
	overlay(&c.Backend, file.Backend)
	overlay(&c.DatabaseURL, file.DatabaseURL)
	overlay(&c.TablePrefix, file.TablePrefix)
	overlay(&c.RedisAddr, file.RedisAddr)
	overlay(&c.RedisPassword, file.RedisPassword)
	overlay(&c.BlobEndpoint, file.BlobEndpoint)
	overlay(&c.BlobAccessKey, file.BlobAccessKey)
	overlay(&c.BlobSecretKey, file.BlobSecretKey)
	overlay(&c.BlobBucket, file.BlobBucket)
	overlay(&c.BlobRegion, file.BlobRegion)
	overlay(&c.LogDir, file.LogDir)
	if file.LogMaxFiles != 0 {
		c.LogMaxFiles = file.LogMaxFiles
	}
	if file.RedisDB != 0 {
		c.RedisDB = file.RedisDB
	}
	if file.CacheTTL != 0 {
		c.CacheTTL = file.CacheTTL
	}
	if file.BlobUseSSL {
		c.BlobUseSSL = true
	}
	if file.Debug {
		c.Debug = true
	}

	return nil
}

func overlay(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

// getDefaultDebug returns the default debug setting based on environment
func getDefaultDebug(env string) string {
	if env == "prod" {
		return "false"
	}
	return "true"
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	// Allow manual override via TABLE_PREFIX env var
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
