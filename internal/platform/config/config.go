package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/qolzam/telar/apps/engagement/internal/kvstore"
)

// Config represents the engagement service configuration
type Config struct {
	Server     ServerConfig     `json:"server"`
	Store      StoreConfig      `json:"store"`
	Database   DatabaseConfig   `json:"database"`
	JWT        JWTConfig        `json:"jwt"`
	HMAC       HMACConfig       `json:"hmac"`
	Sessions   SessionsConfig   `json:"sessions"`
	Likes      LikesConfig      `json:"likes"`
	RateLimits RateLimitsConfig `json:"rateLimits"`
	Metrics    MetricsConfig    `json:"metrics"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	Debug           bool          `json:"debug"`
	CORSOrigins     string        `json:"corsOrigins"`
	ReadTimeout     time.Duration `json:"readTimeout"`
	WriteTimeout    time.Duration `json:"writeTimeout"`
	ShutdownTimeout time.Duration `json:"shutdownTimeout"`
}

// StoreConfig selects and configures the like store
type StoreConfig struct {
	Backend string      `json:"backend"`
	Redis   RedisConfig `json:"redis"`
}

// RedisConfig holds Redis-specific configuration
type RedisConfig struct {
	Address      string        `json:"address"`
	Password     string        `json:"password"`
	Database     int           `json:"database"`
	PoolSize     int           `json:"poolSize"`
	MinIdleConns int           `json:"minIdleConns"`
	MaxConnAge   time.Duration `json:"maxConnAge"`
	DialTimeout  time.Duration `json:"dialTimeout"`
	ReadTimeout  time.Duration `json:"readTimeout"`
	WriteTimeout time.Duration `json:"writeTimeout"`

	// ClusterEnabled is read only so Validate can refuse it: a toggle
	// spans two hash slots and cannot commit on a Redis cluster.
	ClusterEnabled bool `json:"clusterEnabled"`
}

// DatabaseConfig holds the relational content store used for owner lookups
type DatabaseConfig struct {
	Postgres PostgreSQLConfig `json:"postgres"`
}

// PostgreSQLConfig holds PostgreSQL-specific configuration.
// An empty DSN disables owner lookups.
type PostgreSQLConfig struct {
	DSN             string        `json:"dsn"`
	MaxOpenConns    int           `json:"maxOpenConns"`
	MaxIdleConns    int           `json:"maxIdleConns"`
	ConnMaxLifetime time.Duration `json:"connMaxLifetime"`
}

// JWTConfig holds JWT-related configuration
type JWTConfig struct {
	PublicKey string `json:"publicKey"`
}

// HMACConfig holds HMAC-related configuration
type HMACConfig struct {
	Secret string `json:"secret"`
}

// SessionsConfig controls the JWT session allowlist
type SessionsConfig struct {
	AllowlistEnabled bool `json:"allowlistEnabled"`
}

// LikesConfig holds the engagement ledger tuning
type LikesConfig struct {
	MaxRetries       int           `json:"maxRetries"`
	RetryBackoff     time.Duration `json:"retryBackoff"`
	OperationTimeout time.Duration `json:"operationTimeout"`
	MaxBatchSize     int           `json:"maxBatchSize"`
}

// RateLimitConfig holds rate limiting configuration for a specific endpoint
type RateLimitConfig struct {
	Enabled  bool          `json:"enabled"`
	Max      int           `json:"max"`
	Duration time.Duration `json:"duration"`
}

// RateLimitsConfig holds rate limiting configuration for all endpoints
type RateLimitsConfig struct {
	Toggle    RateLimitConfig `json:"toggle"`
	Summaries RateLimitConfig `json:"summaries"`
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// lookupFunc returns the raw value of a setting and whether it is set
type lookupFunc func(key string) (string, bool)

// LoadFromEnv loads configuration from the environment.
// Precedence:
// 1. Explicit Environment Variables (e.g., set in the shell or by CI)
// 2. Values from the .env file (if it exists)
// 3. Hardcoded defaults
func LoadFromEnv() (*Config, error) {
	// godotenv.Load never overrides variables that are already set
	envPaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	var loadErr error
	for _, envPath := range envPaths {
		loadErr = godotenv.Load(envPath)
		if loadErr == nil {
			break
		}
	}
	if loadErr != nil {
		fmt.Println("INFO: .env file not found, using environment variables and defaults.")
	}

	return load(func(key string) (string, bool) {
		value, ok := os.LookupEnv(key)
		return value, ok && value != ""
	})
}

// LoadFromMap loads configuration from an in-memory map. It has no side
// effects on the process environment.
func LoadFromMap(envMap map[string]string) (*Config, error) {
	return load(func(key string) (string, bool) {
		value, ok := envMap[key]
		return value, ok
	})
}

func load(lookup lookupFunc) (*Config, error) {
	get := func(key, defaultValue string) string {
		if value, ok := lookup(key); ok {
			return value
		}
		return defaultValue
	}

	getInt := func(key string, defaultValue int) int {
		if value, ok := lookup(key); ok {
			if intValue, err := strconv.Atoi(value); err == nil {
				return intValue
			}
		}
		return defaultValue
	}

	getBool := func(key string, defaultValue bool) bool {
		if value, ok := lookup(key); ok {
			if boolValue, err := strconv.ParseBool(value); err == nil {
				return boolValue
			}
		}
		return defaultValue
	}

	getDuration := func(key string, defaultValue time.Duration) time.Duration {
		if value, ok := lookup(key); ok {
			if duration, err := time.ParseDuration(value); err == nil {
				return duration
			}
		}
		return defaultValue
	}

	config := &Config{
		Server: ServerConfig{
			Host:            get("HOST", "0.0.0.0"),
			Port:            getInt("SERVER_PORT", 8080),
			Debug:           getBool("DEBUG", false),
			CORSOrigins:     get("CORS_ORIGINS", "*"),
			ReadTimeout:     getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Store: StoreConfig{
			Backend: get("LIKES_STORE_BACKEND", string(kvstore.StoreTypeRedis)),
			Redis: RedisConfig{
				Address:        get("REDIS_ADDRESS", "localhost:6379"),
				Password:       get("REDIS_PASSWORD", ""),
				Database:       getInt("REDIS_DATABASE", 0),
				PoolSize:       getInt("REDIS_POOL_SIZE", 10),
				MinIdleConns:   getInt("REDIS_MIN_IDLE_CONNS", 5),
				MaxConnAge:     getDuration("REDIS_MAX_CONN_AGE", 30*time.Minute),
				DialTimeout:    getDuration("REDIS_DIAL_TIMEOUT", 2*time.Second),
				ReadTimeout:    getDuration("REDIS_READ_TIMEOUT", time.Second),
				WriteTimeout:   getDuration("REDIS_WRITE_TIMEOUT", time.Second),
				ClusterEnabled: getBool("REDIS_CLUSTER_ENABLED", false),
			},
		},
		Database: DatabaseConfig{
			Postgres: PostgreSQLConfig{
				DSN:             get("POSTGRES_DSN", ""),
				MaxOpenConns:    getInt("POSTGRES_MAX_OPEN_CONNS", 25),
				MaxIdleConns:    getInt("POSTGRES_MAX_IDLE_CONNS", 25),
				ConnMaxLifetime: time.Duration(getInt("POSTGRES_CONN_MAX_LIFETIME", 300)) * time.Second,
			},
		},
		JWT: JWTConfig{
			PublicKey: get("JWT_PUBLIC_KEY", ""),
		},
		HMAC: HMACConfig{
			Secret: get("HMAC_SECRET", ""),
		},
		Sessions: SessionsConfig{
			AllowlistEnabled: getBool("SESSION_ALLOWLIST_ENABLED", false),
		},
		Likes: LikesConfig{
			MaxRetries:       getInt("LIKES_MAX_RETRIES", 5),
			RetryBackoff:     getDuration("LIKES_RETRY_BACKOFF", 5*time.Millisecond),
			OperationTimeout: getDuration("LIKES_OPERATION_TIMEOUT", 2*time.Second),
			MaxBatchSize:     getInt("LIKES_MAX_BATCH", 100),
		},
		RateLimits: RateLimitsConfig{
			Toggle: RateLimitConfig{
				Enabled:  getBool("RATE_LIMIT_TOGGLE_ENABLED", true),
				Max:      getInt("RATE_LIMIT_TOGGLE_MAX", 60),
				Duration: getDuration("RATE_LIMIT_TOGGLE_DURATION", time.Minute),
			},
			Summaries: RateLimitConfig{
				Enabled:  getBool("RATE_LIMIT_SUMMARIES_ENABLED", true),
				Max:      getInt("RATE_LIMIT_SUMMARIES_MAX", 120),
				Duration: getDuration("RATE_LIMIT_SUMMARIES_DURATION", time.Minute),
			},
		},
		Metrics: MetricsConfig{
			Enabled: getBool("METRICS_ENABLED", true),
			Path:    get("METRICS_PATH", "/metrics"),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errors []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errors = append(errors, fmt.Sprintf("SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port))
	}

	if strings.TrimSpace(c.JWT.PublicKey) == "" && strings.TrimSpace(c.HMAC.Secret) == "" {
		errors = append(errors, "at least one of JWT_PUBLIC_KEY or HMAC_SECRET is required")
	}
	if c.Sessions.AllowlistEnabled && strings.TrimSpace(c.JWT.PublicKey) == "" {
		errors = append(errors, "SESSION_ALLOWLIST_ENABLED requires JWT_PUBLIC_KEY")
	}

	backend := kvstore.StoreType(c.Store.Backend)
	if !backend.IsValid() {
		errors = append(errors, fmt.Sprintf("LIKES_STORE_BACKEND must be one of: %s, %s", kvstore.StoreTypeMemory, kvstore.StoreTypeRedis))
	}
	if backend == kvstore.StoreTypeRedis {
		if c.Store.Redis.ClusterEnabled {
			errors = append(errors, "REDIS_CLUSTER_ENABLED is not supported: like toggles need a single-node Redis")
		}
		if strings.TrimSpace(c.Store.Redis.Address) == "" {
			errors = append(errors, "REDIS_ADDRESS is required for the redis backend")
		}
	}

	if c.Likes.MaxRetries <= 0 {
		errors = append(errors, "LIKES_MAX_RETRIES must be positive")
	}
	if c.Likes.RetryBackoff < 0 {
		errors = append(errors, "LIKES_RETRY_BACKOFF must not be negative")
	}
	if c.Likes.OperationTimeout <= 0 {
		errors = append(errors, "LIKES_OPERATION_TIMEOUT must be positive")
	}
	if c.Likes.MaxBatchSize <= 0 || c.Likes.MaxBatchSize > 1000 {
		errors = append(errors, "LIKES_MAX_BATCH must be between 1 and 1000")
	}

	for name, limit := range map[string]RateLimitConfig{"TOGGLE": c.RateLimits.Toggle, "SUMMARIES": c.RateLimits.Summaries} {
		if limit.Enabled && (limit.Max <= 0 || limit.Duration <= 0) {
			errors = append(errors, fmt.Sprintf("RATE_LIMIT_%s_MAX and RATE_LIMIT_%s_DURATION must be positive", name, name))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("validation errors: %s", strings.Join(errors, "; "))
	}

	return nil
}

// KVStoreConfig converts the store section into the kvstore configuration
func (c *Config) KVStoreConfig() *kvstore.StoreConfig {
	return &kvstore.StoreConfig{
		Backend: kvstore.StoreType(c.Store.Backend),
		Redis: kvstore.RedisConfig{
			Address:      c.Store.Redis.Address,
			Password:     c.Store.Redis.Password,
			Database:     c.Store.Redis.Database,
			PoolSize:     c.Store.Redis.PoolSize,
			MinIdleConns: c.Store.Redis.MinIdleConns,
			MaxConnAge:   c.Store.Redis.MaxConnAge,
			DialTimeout:  c.Store.Redis.DialTimeout,
			ReadTimeout:  c.Store.Redis.ReadTimeout,
			WriteTimeout: c.Store.Redis.WriteTimeout,
		},
	}
}

// OwnerLookupEnabled reports whether a content database is configured
func (c *Config) OwnerLookupEnabled() bool {
	return strings.TrimSpace(c.Database.Postgres.DSN) != ""
}
