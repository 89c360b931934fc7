// Package config handles loading and validation of the push service
// configuration from environment variables and an optional config file.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/TreeBites/treebites-push/logger"
	"github.com/TreeBites/treebites-push/types"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Environment represents the application's running environment (development or production).
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"

	// DefaultBundleID is the topic used when APNS_BUNDLE_ID is not set.
	DefaultBundleID = "com.treebites.app"
)

// Storage backends for device registrations.
const (
	StoreBackendSupabase = "supabase"
	StoreBackendPostgres = "postgres"
)

// Provider token cache modes.
const (
	TokenCacheNone   = "none"
	TokenCacheMemory = "memory"
	TokenCacheRedis  = "redis"
)

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	Environment    Environment `mapstructure:"ENVIRONMENT" yaml:"environment"`
	Port           string      `mapstructure:"PORT" yaml:"port"`
	AllowedOrigins []string    `mapstructure:"ALLOWED_ORIGINS" yaml:"allowed_origins"`
	Version        string      `mapstructure:"VERSION" yaml:"version"`
	// ServiceAPIKey authenticates backend triggers (database webhooks, cron jobs).
	ServiceAPIKey string `mapstructure:"SERVICE_API_KEY" yaml:"service_api_key"`
}

// DatabaseConfig holds PostgreSQL connection details, used when STORE_BACKEND=postgres.
type DatabaseConfig struct {
	Host     string `mapstructure:"HOST" yaml:"host"`
	Port     int    `mapstructure:"PORT" yaml:"port"`
	User     string `mapstructure:"USER" yaml:"user"`
	Password string `mapstructure:"PASSWORD" yaml:"password"`
	Name     string `mapstructure:"NAME" yaml:"name"`
	SSLMode  string `mapstructure:"SSL_MODE" yaml:"ssl_mode"`
	MaxConns int32  `mapstructure:"MAX_CONNS" yaml:"max_conns"`
}

// URL returns a postgres:// connection URL suitable for pgxpool and golang-migrate.
func (c *DatabaseConfig) URL() string {
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		c.Name,
		sslmode,
	)
}

// RedisConfig holds Redis connection details, used by the shared token cache.
type RedisConfig struct {
	Address  string `mapstructure:"ADDRESS" yaml:"address"`
	Password string `mapstructure:"PASSWORD" yaml:"password"`
	DB       int    `mapstructure:"DB" yaml:"db"`
	UseTLS   bool   `mapstructure:"USE_TLS" yaml:"use_tls"`
}

// SupabaseConfig holds the hosted backend project settings.
type SupabaseConfig struct {
	URL        string `mapstructure:"URL" yaml:"url"`
	ServiceKey string `mapstructure:"SERVICE_KEY" yaml:"service_key"`
	AnonKey    string `mapstructure:"ANON_KEY" yaml:"anon_key"`
}

// APNSConfig holds the push gateway credential and client settings.
type APNSConfig struct {
	KeyID    string `mapstructure:"KEY_ID" yaml:"key_id"`
	TeamID   string `mapstructure:"TEAM_ID" yaml:"team_id"`
	Key      string `mapstructure:"KEY" yaml:"key"`
	BundleID string `mapstructure:"BUNDLE_ID" yaml:"bundle_id"`
	// Production selects the production gateway only when it is exactly "true".
	Production      string `mapstructure:"PRODUCTION" yaml:"production"`
	TimeoutSeconds  int    `mapstructure:"TIMEOUT_SECONDS" yaml:"timeout_seconds"`
	TokenCache      string `mapstructure:"TOKEN_CACHE" yaml:"token_cache"`
	TokenTTLMinutes int    `mapstructure:"TOKEN_TTL_MINUTES" yaml:"token_ttl_minutes"`
}

// Environment returns the gateway environment selected by the PRODUCTION flag.
func (c APNSConfig) Environment() types.PushEnvironment {
	if strings.TrimSpace(c.Production) == "true" {
		return types.PushEnvironmentProduction
	}
	return types.PushEnvironmentSandbox
}

// Credential builds the immutable credential bundle.
func (c APNSConfig) Credential() types.PushCredential {
	return types.PushCredential{
		KeyID:       strings.TrimSpace(c.KeyID),
		TeamID:      strings.TrimSpace(c.TeamID),
		SigningKey:  c.Key,
		BundleID:    c.BundleID,
		Environment: c.Environment(),
	}
}

// Timeout returns the outbound request timeout.
func (c APNSConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// TokenTTL returns how long a minted provider token may be reused.
func (c APNSConfig) TokenTTL() time.Duration {
	return time.Duration(c.TokenTTLMinutes) * time.Minute
}

// StoreConfig selects the device registration backend.
type StoreConfig struct {
	Backend string `mapstructure:"BACKEND" yaml:"backend"`
}

// RegistrationConfig controls the device token registration retry loop.
type RegistrationConfig struct {
	MaxRetries        int `mapstructure:"MAX_RETRIES" yaml:"max_retries"`
	BackoffUnitMillis int `mapstructure:"BACKOFF_UNIT_MS" yaml:"backoff_unit_ms"`
}

// BackoffUnit returns the linear backoff step.
func (c RegistrationConfig) BackoffUnit() time.Duration {
	return time.Duration(c.BackoffUnitMillis) * time.Millisecond
}

// RateLimitConfig bounds device token registrations per client. It needs Redis.
type RateLimitConfig struct {
	Enabled               bool `mapstructure:"ENABLED" yaml:"enabled"`
	DeviceTokensPerMinute int  `mapstructure:"DEVICE_TOKENS_PER_MINUTE" yaml:"device_tokens_per_minute"`
}

// WorkerPoolConfig holds configuration for the push worker pool.
type WorkerPoolConfig struct {
	// MaxWorkers is the number of concurrent workers (default: 10)
	MaxWorkers int `mapstructure:"MAX_WORKERS" yaml:"max_workers"`
	// QueueSize is the maximum number of pending jobs (default: 1000)
	QueueSize int `mapstructure:"QUEUE_SIZE" yaml:"queue_size"`
	// JobTimeoutSeconds bounds a single job (default: 30)
	JobTimeoutSeconds int `mapstructure:"JOB_TIMEOUT_SECONDS" yaml:"job_timeout_seconds"`
	// ShutdownTimeoutSeconds is the max time to wait for workers during shutdown (default: 30)
	ShutdownTimeoutSeconds int `mapstructure:"SHUTDOWN_TIMEOUT_SECONDS" yaml:"shutdown_timeout_seconds"`
}

// Config aggregates all application configuration sections.
type Config struct {
	Server       ServerConfig       `mapstructure:"SERVER" yaml:"server"`
	Database     DatabaseConfig     `mapstructure:"DATABASE" yaml:"database"`
	Redis        RedisConfig        `mapstructure:"REDIS" yaml:"redis"`
	Supabase     SupabaseConfig     `mapstructure:"SUPABASE" yaml:"supabase"`
	APNS         APNSConfig         `mapstructure:"APNS" yaml:"apns"`
	Store        StoreConfig        `mapstructure:"STORE" yaml:"store"`
	Registration RegistrationConfig `mapstructure:"REGISTRATION" yaml:"registration"`
	WorkerPool   WorkerPoolConfig   `mapstructure:"WORKER_POOL" yaml:"worker_pool"`
	RateLimit    RateLimitConfig    `mapstructure:"RATE_LIMIT" yaml:"rate_limit"`
}

// IsProduction returns true if the application is running in production environment.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == EnvProduction
}

// RedisRequired reports whether any component needs the Redis client.
func (c *Config) RedisRequired() bool {
	return c.APNS.TokenCache == TokenCacheRedis || c.RateLimit.Enabled
}

// RedactedYAML renders the configuration as YAML with every secret masked.
func (c Config) RedactedYAML() ([]byte, error) {
	c.Server.ServiceAPIKey = redact(c.Server.ServiceAPIKey)
	c.Database.Password = redact(c.Database.Password)
	c.Redis.Password = redact(c.Redis.Password)
	c.Supabase.ServiceKey = redact(c.Supabase.ServiceKey)
	c.Supabase.AnonKey = redact(c.Supabase.AnonKey)
	if c.APNS.Key != "" {
		c.APNS.Key = "<redacted>"
	}
	// The slice would otherwise be shared with the caller's copy.
	c.Server.AllowedOrigins = append([]string(nil), c.Server.AllowedOrigins...)

	out, err := yaml.Marshal(&c)
	if err != nil {
		return nil, fmt.Errorf("failed to render config: %w", err)
	}
	return out, nil
}

func redact(s string) string {
	return logger.MaskSensitiveString(s, 3, 2)
}

// PushEnabled reports whether a complete push credential is configured.
func (c *Config) PushEnabled() bool {
	return c.APNS.Credential().IsComplete()
}

// bindEnvVars binds multiple environment variables to config keys.
// Format: []{configKey, envVar}
func bindEnvVars(v *viper.Viper, bindings [][2]string) error {
	for _, b := range bindings {
		if err := v.BindEnv(b[0], b[1]); err != nil {
			return fmt.Errorf("failed to bind %s: %w", b[0], err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER.ENVIRONMENT", EnvDevelopment)
	v.SetDefault("SERVER.PORT", "8080")
	v.SetDefault("SERVER.ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("SERVER.VERSION", "dev")
	v.SetDefault("SERVER.SERVICE_API_KEY", "")
	v.SetDefault("DATABASE.HOST", "localhost")
	v.SetDefault("DATABASE.PORT", 5432)
	v.SetDefault("DATABASE.USER", "postgres")
	v.SetDefault("DATABASE.PASSWORD", "")
	v.SetDefault("DATABASE.NAME", "treebites")
	v.SetDefault("DATABASE.SSL_MODE", "disable")
	v.SetDefault("DATABASE.MAX_CONNS", 5)
	v.SetDefault("REDIS.ADDRESS", "localhost:6379")
	v.SetDefault("REDIS.PASSWORD", "")
	v.SetDefault("REDIS.DB", 0)
	v.SetDefault("REDIS.USE_TLS", false)
	v.SetDefault("SUPABASE.URL", "")
	v.SetDefault("SUPABASE.SERVICE_KEY", "")
	v.SetDefault("SUPABASE.ANON_KEY", "")
	v.SetDefault("APNS.KEY_ID", "")
	v.SetDefault("APNS.TEAM_ID", "")
	v.SetDefault("APNS.KEY", "")
	v.SetDefault("APNS.BUNDLE_ID", DefaultBundleID)
	v.SetDefault("APNS.PRODUCTION", "false")
	v.SetDefault("APNS.TIMEOUT_SECONDS", 10)
	v.SetDefault("APNS.TOKEN_CACHE", TokenCacheMemory)
	v.SetDefault("APNS.TOKEN_TTL_MINUTES", 50)
	v.SetDefault("STORE.BACKEND", StoreBackendSupabase)
	v.SetDefault("REGISTRATION.MAX_RETRIES", 3)
	v.SetDefault("REGISTRATION.BACKOFF_UNIT_MS", 1000)
	v.SetDefault("WORKER_POOL.MAX_WORKERS", 10)
	v.SetDefault("WORKER_POOL.QUEUE_SIZE", 1000)
	v.SetDefault("WORKER_POOL.JOB_TIMEOUT_SECONDS", 30)
	v.SetDefault("WORKER_POOL.SHUTDOWN_TIMEOUT_SECONDS", 30)
	v.SetDefault("RATE_LIMIT.ENABLED", false)
	v.SetDefault("RATE_LIMIT.DEVICE_TOKENS_PER_MINUTE", 30)
}

// LoadConfig loads configuration from environment variables using Viper,
// sets default values, binds environment variables to config struct fields,
// unmarshals the configuration, and validates it. If CONFIG_FILE is set the
// file is read first and environment variables override it.
func LoadConfig() (*Config, error) {
	v := viper.New()
	log := logger.GetLogger()

	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	envBindings := [][2]string{
		// Server config
		{"SERVER.ENVIRONMENT", "SERVER_ENVIRONMENT"},
		{"SERVER.PORT", "PORT"},
		{"SERVER.ALLOWED_ORIGINS", "ALLOWED_ORIGINS"},
		{"SERVER.VERSION", "VERSION"},
		{"SERVER.SERVICE_API_KEY", "SERVICE_API_KEY"},
		// Database config
		{"DATABASE.HOST", "DB_HOST"},
		{"DATABASE.PORT", "DB_PORT"},
		{"DATABASE.USER", "DB_USER"},
		{"DATABASE.PASSWORD", "DB_PASSWORD"},
		{"DATABASE.NAME", "DB_NAME"},
		{"DATABASE.SSL_MODE", "DB_SSL_MODE"},
		{"DATABASE.MAX_CONNS", "DB_MAX_CONNS"},
		// Redis config
		{"REDIS.ADDRESS", "REDIS_ADDRESS"},
		{"REDIS.PASSWORD", "REDIS_PASSWORD"},
		{"REDIS.DB", "REDIS_DB"},
		{"REDIS.USE_TLS", "REDIS_USE_TLS"},
		// Supabase
		{"SUPABASE.URL", "SUPABASE_URL"},
		{"SUPABASE.SERVICE_KEY", "SUPABASE_SERVICE_KEY"},
		{"SUPABASE.ANON_KEY", "SUPABASE_ANON_KEY"},
		// Push gateway
		{"APNS.KEY_ID", "APNS_KEY_ID"},
		{"APNS.TEAM_ID", "APNS_TEAM_ID"},
		{"APNS.KEY", "APNS_KEY"},
		{"APNS.BUNDLE_ID", "APNS_BUNDLE_ID"},
		{"APNS.PRODUCTION", "APNS_PRODUCTION"},
		{"APNS.TIMEOUT_SECONDS", "APNS_TIMEOUT_SECONDS"},
		{"APNS.TOKEN_CACHE", "APNS_TOKEN_CACHE"},
		{"APNS.TOKEN_TTL_MINUTES", "APNS_TOKEN_TTL_MINUTES"},
		// Storage
		{"STORE.BACKEND", "STORE_BACKEND"},
		// Registration tracker
		{"REGISTRATION.MAX_RETRIES", "REGISTRATION_MAX_RETRIES"},
		{"REGISTRATION.BACKOFF_UNIT_MS", "REGISTRATION_BACKOFF_UNIT_MS"},
		// WorkerPool config
		{"WORKER_POOL.MAX_WORKERS", "WORKER_POOL_MAX_WORKERS"},
		{"WORKER_POOL.QUEUE_SIZE", "WORKER_POOL_QUEUE_SIZE"},
		{"WORKER_POOL.JOB_TIMEOUT_SECONDS", "WORKER_POOL_JOB_TIMEOUT_SECONDS"},
		{"WORKER_POOL.SHUTDOWN_TIMEOUT_SECONDS", "WORKER_POOL_SHUTDOWN_TIMEOUT_SECONDS"},
		// Rate limiting
		{"RATE_LIMIT.ENABLED", "RATE_LIMIT_ENABLED"},
		{"RATE_LIMIT.DEVICE_TOKENS_PER_MINUTE", "RATE_LIMIT_DEVICE_TOKENS_PER_MINUTE"},
	}

	if err := bindEnvVars(v, envBindings); err != nil {
		return nil, err
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal failed: %w", err)
	}

	if err := validateConfig(&cfg, log); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	log.Infow("Configuration loaded",
		"environment", cfg.Server.Environment,
		"server_port", cfg.Server.Port,
		"store_backend", cfg.Store.Backend,
		"push_enabled", cfg.PushEnabled(),
		"push_environment", cfg.APNS.Environment(),
		"bundle_id", cfg.APNS.BundleID,
		"token_cache", cfg.APNS.TokenCache,
	)
	return &cfg, nil
}

// validateConfig checks if the loaded configuration values are valid.
func validateConfig(cfg *Config, log *zap.SugaredLogger) error {
	if cfg.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if cfg.Server.ServiceAPIKey == "" {
		if cfg.IsProduction() {
			return fmt.Errorf("service API key is required in production")
		}
		log.Warn("SERVICE_API_KEY is not set; notification trigger endpoints will reject all requests")
	}

	if err := validateStoreConfig(cfg); err != nil {
		return err
	}

	if err := validateAPNSConfig(&cfg.APNS, log); err != nil {
		return err
	}
	if cfg.APNS.TokenCache == TokenCacheRedis && cfg.Redis.Address == "" {
		return fmt.Errorf("redis address is required when the token cache is redis")
	}
	if cfg.RateLimit.Enabled {
		if cfg.Redis.Address == "" {
			return fmt.Errorf("redis address is required when rate limiting is enabled")
		}
		if cfg.RateLimit.DeviceTokensPerMinute <= 0 {
			return fmt.Errorf("device token rate limit must be positive")
		}
	}

	if cfg.Registration.MaxRetries < 0 {
		return fmt.Errorf("registration max retries must not be negative")
	}
	if cfg.Registration.BackoffUnitMillis <= 0 {
		return fmt.Errorf("registration backoff unit must be positive")
	}

	if cfg.WorkerPool.MaxWorkers <= 0 {
		return fmt.Errorf("worker pool max workers must be positive")
	}
	if cfg.WorkerPool.QueueSize <= 0 {
		return fmt.Errorf("worker pool queue size must be positive")
	}
	if cfg.WorkerPool.JobTimeoutSeconds <= 0 {
		return fmt.Errorf("worker pool job timeout must be positive")
	}
	if cfg.WorkerPool.ShutdownTimeoutSeconds <= 0 {
		return fmt.Errorf("worker pool shutdown timeout must be positive")
	}

	return nil
}

func validateStoreConfig(cfg *Config) error {
	switch cfg.Store.Backend {
	case StoreBackendSupabase:
		if cfg.Supabase.URL == "" {
			return fmt.Errorf("supabase URL is required for the supabase store")
		}
		if _, err := url.ParseRequestURI(cfg.Supabase.URL); err != nil {
			return fmt.Errorf("invalid supabase URL: %w", err)
		}
		if cfg.Supabase.ServiceKey == "" {
			return fmt.Errorf("supabase service key is required for the supabase store")
		}
	case StoreBackendPostgres:
		if cfg.Database.Host == "" {
			return fmt.Errorf("database host is required")
		}
		if cfg.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if cfg.Database.Name == "" {
			return fmt.Errorf("database name is required")
		}
	default:
		return fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
	return nil
}

// validateAPNSConfig validates the push gateway configuration. Missing
// credentials are not an error: push is disabled and sends are skipped.
func validateAPNSConfig(cfg *APNSConfig, log *zap.SugaredLogger) error {
	if cfg.BundleID == "" {
		cfg.BundleID = DefaultBundleID
	}
	if cfg.TimeoutSeconds <= 0 {
		return fmt.Errorf("APNs timeout must be positive")
	}
	switch cfg.TokenCache {
	case TokenCacheNone, TokenCacheMemory, TokenCacheRedis:
	default:
		return fmt.Errorf("unknown APNs token cache %q", cfg.TokenCache)
	}
	if cfg.TokenCache != TokenCacheNone && cfg.TokenTTLMinutes <= 0 {
		return fmt.Errorf("APNs token TTL must be positive")
	}
	// The gateway rejects provider tokens older than one hour.
	if cfg.TokenTTLMinutes > 55 {
		log.Warnw("APNs token TTL close to the gateway limit, clamping", "ttl_minutes", cfg.TokenTTLMinutes)
		cfg.TokenTTLMinutes = 55
	}

	if missing := cfg.Credential().MissingFields(); len(missing) > 0 {
		log.Warnw("APNs credentials incomplete, push notifications disabled", "missing", missing)
	}
	return nil
}
