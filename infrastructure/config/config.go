package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	domainservices "vaultgraph/domain/services"
)

const (
	MetadataSourceFile     = "file"
	MetadataSourceDynamoDB = "dynamodb"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string `yaml:"server_address" validate:"required"`
	Environment   string `yaml:"environment" validate:"oneof=development test staging production"`
	ServiceName   string `yaml:"service_name" validate:"required"`

	// Logging
	LogLevel string `yaml:"log_level" validate:"oneof=debug info warn error"`

	// Vault and metadata source
	DefaultVault   string `yaml:"default_vault" validate:"required,excludes=:"`
	MetadataSource string `yaml:"metadata_source" validate:"oneof=file dynamodb"`
	MetadataDir    string `yaml:"metadata_dir" validate:"required_if=MetadataSource file"`
	WatchMetadata  bool   `yaml:"watch_metadata"`

	// AWS configuration
	AWSRegion    string `yaml:"aws_region"`
	TableName    string `yaml:"table_name" validate:"required_if=MetadataSource dynamodb"`
	EventBusName string `yaml:"event_bus_name" validate:"required_if=EnableEvents true"`
	EnableEvents bool   `yaml:"enable_events"`

	// Graph engine
	CacheMaxItems  int           `yaml:"cache_max_items" validate:"gte=0"`
	CacheTTL       time.Duration `yaml:"cache_ttl" validate:"gte=0"`
	BuildTimeout   time.Duration `yaml:"build_timeout" validate:"gte=0"`
	IncludeTags    bool          `yaml:"include_tags"`
	IncludeOrphans bool          `yaml:"include_orphans"`
	MaxNodes       int           `yaml:"max_nodes" validate:"gte=0"`
	EagerRebuild   bool          `yaml:"eager_rebuild"`

	// Circuit breaker around the metadata provider
	BreakerMaxRequests      uint32        `yaml:"breaker_max_requests"`
	BreakerInterval         time.Duration `yaml:"breaker_interval"`
	BreakerTimeout          time.Duration `yaml:"breaker_timeout"`
	BreakerFailureThreshold uint32        `yaml:"breaker_failure_threshold" validate:"gte=1"`

	// Authentication
	JWTSecret  string `yaml:"jwt_secret"`
	JWTIssuer  string `yaml:"jwt_issuer"`
	EnableAuth bool   `yaml:"enable_auth"`

	// Feature flags
	EnableMetrics  bool     `yaml:"enable_metrics"`
	EnableTracing  bool     `yaml:"enable_tracing"`
	OTLPEndpoint   string   `yaml:"otlp_endpoint" validate:"required_if=EnableTracing true"`
	EnableCORS     bool     `yaml:"enable_cors"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// Default returns the configuration used when nothing overrides it
func Default() *Config {
	return &Config{
		ServerAddress:           ":8080",
		Environment:             "development",
		ServiceName:             "vaultgraph",
		LogLevel:                "info",
		DefaultVault:            "default",
		MetadataSource:          MetadataSourceFile,
		MetadataDir:             "./metadata",
		AWSRegion:               "us-west-2",
		TableName:               "vaultgraph",
		EventBusName:            "vaultgraph-events",
		CacheMaxItems:           64,
		CacheTTL:                10 * time.Minute,
		BuildTimeout:            5 * time.Second,
		IncludeTags:             true,
		IncludeOrphans:          true,
		EagerRebuild:            true,
		BreakerMaxRequests:      1,
		BreakerInterval:         time.Minute,
		BreakerTimeout:          30 * time.Second,
		BreakerFailureThreshold: 5,
		JWTIssuer:               "vaultgraph",
		EnableCORS:              true,
		AllowedOrigins:          []string{"*"},
	}
}

// LoadConfig loads configuration from, lowest priority first: defaults, a
// .env file, the YAML file named by CONFIG_FILE, and environment variables.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(getEnv("ENV_FILE", ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Load is an alias for LoadConfig
func Load() (*Config, error) {
	return LoadConfig()
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.ServerAddress = getEnv("SERVER_ADDRESS", c.ServerAddress)
	c.Environment = getEnv("ENVIRONMENT", c.Environment)
	c.ServiceName = getEnv("SERVICE_NAME", c.ServiceName)
	c.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", c.LogLevel))

	c.DefaultVault = getEnv("DEFAULT_VAULT", c.DefaultVault)
	c.MetadataSource = strings.ToLower(getEnv("METADATA_SOURCE", c.MetadataSource))
	c.MetadataDir = getEnv("METADATA_DIR", c.MetadataDir)
	c.WatchMetadata = getEnvBool("WATCH_METADATA", c.WatchMetadata)

	c.AWSRegion = getEnv("AWS_REGION", c.AWSRegion)
	c.TableName = getEnv("TABLE_NAME", c.TableName)
	c.EventBusName = getEnv("EVENT_BUS_NAME", c.EventBusName)
	c.EnableEvents = getEnvBool("ENABLE_EVENTS", c.EnableEvents)

	c.CacheMaxItems = getEnvInt("CACHE_MAX_ITEMS", c.CacheMaxItems)
	c.CacheTTL = getEnvDuration("CACHE_TTL", c.CacheTTL)
	c.BuildTimeout = getEnvDuration("BUILD_TIMEOUT", c.BuildTimeout)
	c.IncludeTags = getEnvBool("INCLUDE_TAGS", c.IncludeTags)
	c.IncludeOrphans = getEnvBool("INCLUDE_ORPHANS", c.IncludeOrphans)
	c.MaxNodes = getEnvInt("MAX_NODES", c.MaxNodes)
	c.EagerRebuild = getEnvBool("EAGER_REBUILD", c.EagerRebuild)

	c.BreakerMaxRequests = uint32(getEnvInt("BREAKER_MAX_REQUESTS", int(c.BreakerMaxRequests)))
	c.BreakerInterval = getEnvDuration("BREAKER_INTERVAL", c.BreakerInterval)
	c.BreakerTimeout = getEnvDuration("BREAKER_TIMEOUT", c.BreakerTimeout)
	c.BreakerFailureThreshold = uint32(getEnvInt("BREAKER_FAILURE_THRESHOLD", int(c.BreakerFailureThreshold)))

	c.JWTSecret = getEnv("JWT_SECRET", c.JWTSecret)
	c.JWTIssuer = getEnv("JWT_ISSUER", c.JWTIssuer)
	c.EnableAuth = getEnvBool("ENABLE_AUTH", c.EnableAuth)

	c.EnableMetrics = getEnvBool("ENABLE_METRICS", c.EnableMetrics)
	c.EnableTracing = getEnvBool("ENABLE_TRACING", c.EnableTracing)
	c.OTLPEndpoint = getEnv("OTLP_ENDPOINT", c.OTLPEndpoint)
	c.EnableCORS = getEnvBool("ENABLE_CORS", c.EnableCORS)
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		c.AllowedOrigins = strings.Split(origins, ",")
	}
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.EnableAuth && c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when ENABLE_AUTH is set")
	}
	if c.IsProduction() {
		if c.MetadataSource == MetadataSourceDynamoDB && c.AWSRegion == "" {
			return fmt.Errorf("AWS_REGION is required in production")
		}
		if c.EnableAuth && len(c.JWTSecret) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 characters in production")
		}
	}

	return nil
}

// BuildOptions returns the default graph build options
func (c *Config) BuildOptions() domainservices.BuildOptions {
	return domainservices.BuildOptions{
		IncludeTags:        c.IncludeTags,
		IncludeOrphanNodes: c.IncludeOrphans,
		MaxNodes:           c.MaxNodes,
	}
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes"
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration gets a duration environment variable ("750ms", "5m") with a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
