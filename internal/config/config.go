// Package config provides centralized configuration for the runsheet data
// service. Values come from /etc/runsheet/config.yaml (overridable via
// RUNSHEET_CONFIG_DIR) with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/runsheet-systems/runsheet-data/internal/ingest"
	"github.com/runsheet-systems/runsheet-data/internal/store"
)

// Config is the service configuration.
type Config struct {
	Server     ServerConfig             `mapstructure:"server"`
	OpenSearch store.Config             `mapstructure:"opensearch"`
	Redis      RedisConfig              `mapstructure:"redis"`
	NATS       NATSConfig               `mapstructure:"nats"`
	Ingest     IngestConfig             `mapstructure:"ingest"`
	Resolver   ingest.ResolverConfig    `mapstructure:"resolver"`
	Batch      ingest.CoordinatorConfig `mapstructure:"batch"`
	Logging    LoggingConfig            `mapstructure:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedisConfig holds the demo-state Redis connection settings.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	ResetLockTTL time.Duration `mapstructure:"reset_lock_ttl"`
}

// NATSConfig holds the optional event-publishing settings.
type NATSConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

// IngestConfig holds upload limits and seeding behavior.
type IngestConfig struct {
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes"`
	SeedOnStart    bool  `mapstructure:"seed_on_start"`
	SheetsSeed     int64 `mapstructure:"sheets_seed"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	configDir := os.Getenv("RUNSHEET_CONFIG_DIR")
	if configDir == "" {
		configDir = "/etc/runsheet"
	}
	v.SetConfigFile(fmt.Sprintf("%s/config.yaml", configDir))
	v.SetConfigType("yaml")

	v.SetEnvPrefix("RUNSHEET")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
		// Missing config file is fine; defaults and env vars apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "15s")

	v.SetDefault("opensearch.url", "http://localhost:9200")
	v.SetDefault("opensearch.username", "")
	v.SetDefault("opensearch.password", "")
	v.SetDefault("opensearch.insecure", false)
	v.SetDefault("opensearch.index_prefix", "")
	v.SetDefault("opensearch.request_timeout", "10s")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.reset_lock_ttl", "30s")

	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.url", "nats://localhost:4222")

	v.SetDefault("ingest.max_upload_bytes", 10<<20)
	v.SetDefault("ingest.seed_on_start", true)
	v.SetDefault("ingest.sheets_seed", 1)

	v.SetDefault("resolver.conflict_retries", 3)
	v.SetDefault("resolver.store_retries", 3)
	v.SetDefault("resolver.retry_backoff", "100ms")

	v.SetDefault("batch.max_workers", 8)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}
