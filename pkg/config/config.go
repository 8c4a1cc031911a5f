// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Database, Redis, Kafka, TaskPool, Search, Autocomplete,
// Auth, etc.).
package config

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	Redis        RedisConfig        `yaml:"redis"`
	Kafka        KafkaConfig        `yaml:"kafka"`
	TaskPool     TaskPoolConfig     `yaml:"taskPool"`
	Tokenizer    TokenizerConfig    `yaml:"tokenizer"`
	Search       SearchConfig       `yaml:"search"`
	Autocomplete AutocompleteConfig `yaml:"autocomplete"`
	Auth         AuthConfig         `yaml:"auth"`
	RateLimit    RateLimitConfig    `yaml:"rateLimit"`
	Logging      LoggingConfig      `yaml:"logging"`
	Metrics      MetricsConfig      `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	RequestTimeout  time.Duration `yaml:"requestTimeout"`
	AllowOrigins    []string      `yaml:"allowOrigins"`
}

// DatabaseConfig selects the SQL driver backing the index store. Driver is
// either "postgres" or "sqlite3"; Path is only used by sqlite3.
type DatabaseConfig struct {
	Driver          string        `yaml:"driver"`
	Path            string        `yaml:"path"`
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

// DSN returns a data source name for the configured driver.
func (d DatabaseConfig) DSN() string {
	if d.Driver == "sqlite3" {
		return fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", d.Path)
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode,
	)
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled bool        `yaml:"enabled"`
	Brokers []string    `yaml:"brokers"`
	Topics  KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	SearchEvents string `yaml:"searchEvents"`
}

// TaskPoolConfig sizes the shared worker pool. Timeouts overrides the
// built-in per-task-type deadlines; PersistParallelism caps the number of
// inverted-index persistence shards (0 means GOMAXPROCS).
type TaskPoolConfig struct {
	Workers            int                      `yaml:"workers"`
	MaxQueueDepth      int                      `yaml:"maxQueueDepth"`
	Policy             string                   `yaml:"policy"`
	Timeouts           map[string]time.Duration `yaml:"timeouts"`
	PersistParallelism int                      `yaml:"persistParallelism"`
}

// TokenizerConfig controls text normalisation. Stem applies the Snowball
// English stemmer to both indexed and query terms; autocomplete then
// completes stems rather than surface words, so it is off by default.
type TokenizerConfig struct {
	Stem           bool `yaml:"stem"`
	MinTokenLength int  `yaml:"minTokenLength"`
}

// SearchConfig controls query result limits.
type SearchConfig struct {
	MaxResults   int `yaml:"maxResults"`
	DefaultLimit int `yaml:"defaultLimit"`
}

// AutocompleteConfig controls which vocabulary terms enter the prefix index.
// An empty Initials list admits every term.
type AutocompleteConfig struct {
	MaxTermLength int      `yaml:"maxTermLength"`
	Initials      []string `yaml:"initials"`
	Limit         int      `yaml:"limit"`
}

// AuthConfig toggles session checks on the search endpoints.
type AuthConfig struct {
	Enabled    bool          `yaml:"enabled"`
	SessionTTL time.Duration `yaml:"sessionTTL"`
}

// RateLimitConfig controls the per-client token bucket. Zero disables it.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requestsPerSecond"`
	Burst             int     `yaml:"burst"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with defaults for any missing
// values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
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

// Validate checks invariants the rest of the program relies on.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite3":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	if c.TaskPool.Workers < 1 {
		return fmt.Errorf("taskPool.workers must be >= 1, got %d", c.TaskPool.Workers)
	}
	if c.TaskPool.MaxQueueDepth < 0 {
		return fmt.Errorf("taskPool.maxQueueDepth must be >= 0, got %d", c.TaskPool.MaxQueueDepth)
	}
	switch strings.ToLower(c.TaskPool.Policy) {
	case "block", "discard", "throw":
	default:
		return fmt.Errorf("unknown taskPool.policy %q", c.TaskPool.Policy)
	}
	if c.Search.DefaultLimit > c.Search.MaxResults {
		return fmt.Errorf("search.defaultLimit %d exceeds search.maxResults %d", c.Search.DefaultLimit, c.Search.MaxResults)
	}
	return nil
}

// Warnings lists settings that pass Validate but are likely to hurt. The
// engine keeps no more persistence writes in flight than the pool holds,
// so a small pool under discard or throw serialises index writes and
// retries them when searches fill the queue.
func (c *Config) Warnings() []string {
	var out []string
	policy := strings.ToLower(strings.TrimSpace(c.TaskPool.Policy))
	fanOut := c.TaskPool.PersistParallelism
	if fanOut <= 0 {
		fanOut = runtime.GOMAXPROCS(0)
	}
	fanOut++ // forward index
	capacity := c.TaskPool.Workers + c.TaskPool.MaxQueueDepth
	if policy != "block" && policy != "" && capacity < fanOut {
		out = append(out, fmt.Sprintf(
			"taskPool.workers+maxQueueDepth (%d) is below the persistence fan-out (%d) under the %s policy",
			capacity, fanOut, policy,
		))
	}
	return out
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RequestTimeout:  10 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:          "postgres",
			Path:            "docsearch.db",
			Host:            "localhost",
			Port:            5432,
			Database:        "docsearch",
			User:            "docsearch",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Redis: RedisConfig{
			Enabled:  true,
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers: []string{"localhost:9092"},
			Topics: KafkaTopics{
				SearchEvents: "search-events",
			},
		},
		TaskPool: TaskPoolConfig{
			Workers:       8,
			MaxQueueDepth: 1000,
			Policy:        "block",
		},
		Tokenizer: TokenizerConfig{
			MinTokenLength: 2,
		},
		Search: SearchConfig{
			MaxResults:   100,
			DefaultLimit: 10,
		},
		Autocomplete: AutocompleteConfig{
			MaxTermLength: 255,
			Limit:         10,
		},
		Auth: AuthConfig{
			Enabled:    true,
			SessionTTL: 24 * time.Hour,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 20,
			Burst:             40,
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

// applyEnvOverrides reads SP_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SP_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SP_DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("SP_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("SP_DATABASE_HOST"); v != "" {
		cfg.Database.Host = v
	}
	if v := os.Getenv("SP_DATABASE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Database.Port = port
		}
	}
	if v := os.Getenv("SP_DATABASE_NAME"); v != "" {
		cfg.Database.Database = v
	}
	if v := os.Getenv("SP_DATABASE_USER"); v != "" {
		cfg.Database.User = v
	}
	if v := os.Getenv("SP_DATABASE_PASSWORD"); v != "" {
		cfg.Database.Password = v
	}
	if v := os.Getenv("SP_DATABASE_SSLMODE"); v != "" {
		cfg.Database.SSLMode = v
	}
	if v := os.Getenv("SP_REDIS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Redis.Enabled = b
		}
	}
	if v := os.Getenv("SP_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("SP_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("SP_KAFKA_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Kafka.Enabled = b
		}
	}
	if v := os.Getenv("SP_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("SP_TASKPOOL_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.TaskPool.Workers = n
		}
	}
	if v := os.Getenv("SP_TASKPOOL_MAX_QUEUE_DEPTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.TaskPool.MaxQueueDepth = n
		}
	}
	if v := os.Getenv("SP_TASKPOOL_POLICY"); v != "" {
		cfg.TaskPool.Policy = v
	}
	if v := os.Getenv("SP_AUTH_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Auth.Enabled = b
		}
	}
	if v := os.Getenv("SP_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SP_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
