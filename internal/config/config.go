// Package config loads service configuration from configs/config.yaml, an
// optional .env file and HOMELOAN_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "HOMELOAN"

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Database DatabaseConfig `mapstructure:"database"`
	Session  SessionConfig  `mapstructure:"session"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

type ServerConfig struct {
	Address      string        `mapstructure:"address"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Address, c.Port)
}

type PipelineConfig struct {
	Source          string        `mapstructure:"source"` // file or postgres
	Path            string        `mapstructure:"path"`
	CacheTTL        time.Duration `mapstructure:"cache_ttl"`
	CacheMaxEntries int           `mapstructure:"cache_max_entries"`
}

type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

type SessionConfig struct {
	Backend    string        `mapstructure:"backend"` // memory or redis
	TTL        time.Duration `mapstructure:"ttl"`
	CookieName string        `mapstructure:"cookie_name"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type LoggingConfig struct {
	Level           string `mapstructure:"level"`
	OTELEnabled     bool   `mapstructure:"otel_enabled"`
	ServiceName     string `mapstructure:"service_name"`
	ErrorSampleRate int    `mapstructure:"error_sample_rate"`
}

// Load reads configuration. An explicit path must exist; otherwise
// configs/config.yaml is optional and defaults apply.
func Load(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// Unprefixed names kept for compatibility with common deploy setups
	_ = v.BindEnv("server.port", envPrefix+"_SERVER_PORT", "PORT")
	_ = v.BindEnv("database.url", envPrefix+"_DATABASE_URL", "DATABASE_URL")
	_ = v.BindEnv("logging.level", envPrefix+"_LOGGING_LEVEL", "LOG_LEVEL")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Pipeline.Source = strings.ToLower(cfg.Pipeline.Source)
	cfg.Session.Backend = strings.ToLower(cfg.Session.Backend)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.address", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)

	v.SetDefault("pipeline.source", "file")
	v.SetDefault("pipeline.path", "models/pipeline.yaml")
	v.SetDefault("pipeline.cache_ttl", time.Duration(0))
	v.SetDefault("pipeline.cache_max_entries", 10000)

	v.SetDefault("database.url", "")

	v.SetDefault("session.backend", "memory")
	v.SetDefault("session.ttl", 24*time.Hour)
	v.SetDefault("session.cookie_name", "homeloan_session")

	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.otel_enabled", false)
	v.SetDefault("logging.service_name", "homeloan")
	v.SetDefault("logging.error_sample_rate", 1)
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}

	switch c.Pipeline.Source {
	case "file":
		if c.Pipeline.Path == "" {
			return fmt.Errorf("pipeline.path is required for the file source")
		}
	case "postgres":
		if c.Database.URL == "" {
			return fmt.Errorf("database.url is required for the postgres pipeline source")
		}
	default:
		return fmt.Errorf("pipeline.source must be file or postgres, got %q", c.Pipeline.Source)
	}

	switch c.Session.Backend {
	case "memory":
	case "redis":
		if c.Redis.Address == "" {
			return fmt.Errorf("redis.address is required for the redis session backend")
		}
	default:
		return fmt.Errorf("session.backend must be memory or redis, got %q", c.Session.Backend)
	}

	if c.Session.CookieName == "" {
		return fmt.Errorf("session.cookie_name is required")
	}
	return nil
}

// loadEnvFile loads .env from the working directory when present.
func loadEnvFile() {
	if _, err := os.Stat(".env"); err != nil {
		return
	}
	if err := godotenv.Load(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
	}
}
