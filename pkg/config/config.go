// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Redis, Postgres, Kafka, Autocomplete, Resilience, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Redis        RedisConfig        `yaml:"redis"`
	Postgres     PostgresConfig     `yaml:"postgres"`
	Kafka        KafkaConfig        `yaml:"kafka"`
	Autocomplete AutocompleteConfig `yaml:"autocomplete"`
	Resilience   ResilienceConfig   `yaml:"resilience"`
	Auth         AuthConfig         `yaml:"auth"`
	RateLimit    RateLimitConfig    `yaml:"rateLimit"`
	Logging      LoggingConfig      `yaml:"logging"`
	Tracing      TracingConfig      `yaml:"tracing"`
	Metrics      MetricsConfig      `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	CORSOrigins     []string      `yaml:"corsOrigins"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr         string        `yaml:"addr"`
	Password     string        `yaml:"password"`
	DB           int           `yaml:"db"`
	PoolSize     int           `yaml:"poolSize"`
	DialTimeout  time.Duration `yaml:"dialTimeout"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
}

// PostgresConfig holds PostgreSQL connection parameters for the bulk
// reindex source.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
	// RedeliveryDelay is the pause before a message whose handler failed
	// is handed to the handler again.
	RedeliveryDelay time.Duration `yaml:"redeliveryDelay"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	TermIndex string `yaml:"termIndex"`
}

// AutocompleteConfig controls key namespacing, result limits and the bulk
// reindex job.
type AutocompleteConfig struct {
	Namespace      string `yaml:"namespace"`
	DefaultLimit   int    `yaml:"defaultLimit"`
	MaxLimit       int    `yaml:"maxLimit"`
	ReindexTable   string `yaml:"reindexTable"`
	ReindexWorkers int    `yaml:"reindexWorkers"`
}

// ResilienceConfig tunes the retry and circuit-breaker policy used by the
// Kafka index consumer.
type ResilienceConfig struct {
	RetryAttempts    int           `yaml:"retryAttempts"`
	RetryDelay       time.Duration `yaml:"retryDelay"`
	RetryMaxDelay    time.Duration `yaml:"retryMaxDelay"`
	BreakerThreshold int           `yaml:"breakerThreshold"`
	BreakerReset     time.Duration `yaml:"breakerReset"`
	IndexTimeout     time.Duration `yaml:"indexTimeout"`
}

// AuthConfig enables API-key checks. Keys live in the Postgres api_keys
// table; validated keys are cached in Redis for CacheTTL.
type AuthConfig struct {
	Enabled  bool          `yaml:"enabled"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// RateLimitConfig bounds per-client request rates on the autocomplete
// endpoint. Requests is the budget per Window for anonymous clients; keyed
// clients use their own limit.
type RateLimitConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig toggles span logging.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints that defaults alone cannot
// guarantee once a file or environment has been applied.
func (c *Config) Validate() error {
	a := c.Autocomplete
	if strings.TrimSpace(a.Namespace) == "" {
		return fmt.Errorf("autocomplete.namespace must not be empty")
	}
	if strings.ContainsAny(a.Namespace, ": \t\r\n") {
		return fmt.Errorf("autocomplete.namespace %q must not contain ':' or whitespace", a.Namespace)
	}
	if a.DefaultLimit < 1 {
		return fmt.Errorf("autocomplete.defaultLimit must be positive, got %d", a.DefaultLimit)
	}
	if a.MaxLimit < a.DefaultLimit {
		return fmt.Errorf("autocomplete.maxLimit (%d) must be >= defaultLimit (%d)", a.MaxLimit, a.DefaultLimit)
	}
	if a.ReindexWorkers < 1 {
		return fmt.Errorf("autocomplete.reindexWorkers must be positive, got %d", a.ReindexWorkers)
	}
	if c.RateLimit.Enabled && (c.RateLimit.Requests < 1 || c.RateLimit.Window <= 0) {
		return fmt.Errorf("rateLimit.requests and rateLimit.window must be positive when rate limiting is enabled")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers must be set when kafka is enabled")
	}
	return nil
}

// Default returns a Config with defaults suitable for local development.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			CORSOrigins:     []string{"*"},
		},
		Redis: RedisConfig{
			Addr:         "localhost:6379",
			PoolSize:     10,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "rtrie",
			User:            "rtrie",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "rtrie-indexer",
			Topics: KafkaTopics{
				TermIndex: "autocomplete-index",
			},
			RedeliveryDelay: time.Second,
		},
		Autocomplete: AutocompleteConfig{
			Namespace:      "rtrie",
			DefaultLimit:   20,
			MaxLimit:       100,
			ReindexTable:   "autocomplete_terms",
			ReindexWorkers: 8,
		},
		Resilience: ResilienceConfig{
			RetryAttempts:    3,
			RetryDelay:       100 * time.Millisecond,
			RetryMaxDelay:    5 * time.Second,
			BreakerThreshold: 5,
			BreakerReset:     30 * time.Second,
			IndexTimeout:     2 * time.Second,
		},
		Auth: AuthConfig{
			CacheTTL: time.Minute,
		},
		RateLimit: RateLimitConfig{
			Requests: 50,
			Window:   time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads RTRIE_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RTRIE_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("RTRIE_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("RTRIE_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("RTRIE_REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Redis.DB = db
		}
	}
	if v := os.Getenv("RTRIE_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("RTRIE_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("RTRIE_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("RTRIE_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("RTRIE_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("RTRIE_KAFKA_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Kafka.Enabled = enabled
		}
	}
	if v := os.Getenv("RTRIE_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("RTRIE_NAMESPACE"); v != "" {
		cfg.Autocomplete.Namespace = v
	}
	if v := os.Getenv("RTRIE_DEFAULT_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Autocomplete.DefaultLimit = n
		}
	}
	if v := os.Getenv("RTRIE_AUTH_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Auth.Enabled = enabled
		}
	}
	if v := os.Getenv("RTRIE_RATELIMIT_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.RateLimit.Enabled = enabled
		}
	}
	if v := os.Getenv("RTRIE_CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = strings.Split(v, ",")
	}
	if v := os.Getenv("RTRIE_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("RTRIE_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
