package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Store backends.
const (
	StoreJSON     = "json"
	StoreSQLite   = "sqlite"
	StoreMySQL    = "mysql"
	StorePostgres = "postgres"
	StoreMongoDB  = "mongodb"
)

const devJWTSecret = "redcode-dev-secret"

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server    ServerConfig
	App       AppConfig
	Auth      AuthConfig
	Cache     CacheConfig
	Store     StoreConfig
	Tracker   TrackerConfig
	Thumbnail ThumbnailConfig
	Script    ScriptConfig
	Events    EventsConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"3000"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
	StaticDir       string        `envconfig:"STATIC_DIR" default:"./static"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"redcode-api"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	LoginKey    string `envconfig:"LOGIN_KEY" default:""` // Admin endpoints key (X-Login-Key)
}

// AuthConfig holds session token settings.
type AuthConfig struct {
	JWTSecret    string        `envconfig:"JWT_SECRET" default:"redcode-dev-secret"`
	SessionTTL   time.Duration `envconfig:"JWT_SESSION_TTL" default:"24h"`
	RoleTokenTTL time.Duration `envconfig:"JWT_ROLE_TTL" default:"1h"`
}

// CacheConfig holds cache settings.
type CacheConfig struct {
	Type string `envconfig:"CACHE_TYPE" default:"memory"` // memory or redis

	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	RedisPrefix   string `envconfig:"REDIS_PREFIX" default:"redcode:cache"`
}

// StoreConfig selects and configures the record store.
type StoreConfig struct {
	Type     string `envconfig:"STORE_TYPE" default:"sqlite"` // json, sqlite, mysql, postgres, mongodb
	JSONPath string `envconfig:"STORE_JSON_PATH" default:"./data/database.json"`
	Path     string `envconfig:"STORE_SQLITE_PATH" default:"./data/redcode.db"`
	// MySQL / PostgreSQL settings
	Host     string `envconfig:"STORE_DB_HOST" default:"localhost"`
	Port     int    `envconfig:"STORE_DB_PORT" default:"0"`
	Name     string `envconfig:"STORE_DB_NAME" default:"redcode"`
	User     string `envconfig:"STORE_DB_USER" default:""`
	Password string `envconfig:"STORE_DB_PASS" default:""`
	SSLMode  string `envconfig:"STORE_DB_SSLMODE" default:"disable"`
	// MongoDB settings
	MongoURI      string `envconfig:"MONGODB_URI" default:""`
	MongoDatabase string `envconfig:"MONGODB_DATABASE" default:"redcode"`
}

// TrackerConfig holds liveness and ingestion settings.
type TrackerConfig struct {
	SweepInterval     time.Duration `envconfig:"TRACKER_SWEEP_INTERVAL" default:"30s"`
	BotTimeout        time.Duration `envconfig:"TRACKER_BOT_TIMEOUT" default:"2m"`
	LookupConcurrency int           `envconfig:"TRACKER_LOOKUP_CONCURRENCY" default:"8"`
	ResolveIcons      bool          `envconfig:"TRACKER_RESOLVE_ICONS" default:"true"`
	IngestRate        float64       `envconfig:"TRACKER_INGEST_RATE" default:"50"` // reports per second, 0 disables
	IngestBurst       int           `envconfig:"TRACKER_INGEST_BURST" default:"100"`
}

// ThumbnailConfig holds image lookup API settings.
type ThumbnailConfig struct {
	BaseURL  string        `envconfig:"THUMBNAIL_API_URL" default:"https://apiweb.wintercode.dev/api/thumbnail"`
	Secret   string        `envconfig:"THUMBNAIL_JWT_SECRET" default:""` // Falls back to JWT_SECRET
	Role     string        `envconfig:"THUMBNAIL_ROLE" default:"user"`
	Timeout  time.Duration `envconfig:"THUMBNAIL_TIMEOUT" default:"10s"`
	CacheTTL time.Duration `envconfig:"THUMBNAIL_CACHE_TTL" default:"1h"`
}

// ScriptConfig selects where the control script is loaded from.
type ScriptConfig struct {
	Source string `envconfig:"SCRIPT_SOURCE" default:"file"` // file or s3
	Path   string `envconfig:"SCRIPT_PATH" default:"./sc.lua"`
	// S3 / MinIO settings
	S3Region       string `envconfig:"S3_REGION" default:"us-east-1"`
	S3BaseEndpoint string `envconfig:"S3_BASE_ENDPOINT" default:""`
	S3AccessKey    string `envconfig:"S3_ACCESS_KEY" default:""`
	S3SecretKey    string `envconfig:"S3_SECRET_KEY" default:""`
	S3Bucket       string `envconfig:"S3_BUCKET" default:""`
	S3Key          string `envconfig:"S3_SCRIPT_KEY" default:"sc.lua"`
}

// EventsConfig selects the bot event publisher.
type EventsConfig struct {
	Type         string        `envconfig:"EVENTS_TYPE" default:"log"` // none, log, mqtt
	MQTTBroker   string        `envconfig:"MQTT_BROKER" default:"tcp://localhost:1883"`
	MQTTClientID string        `envconfig:"MQTT_CLIENT_ID" default:""`
	MQTTUsername string        `envconfig:"MQTT_USERNAME" default:""`
	MQTTPassword string        `envconfig:"MQTT_PASSWORD" default:""`
	MQTTTopic    string        `envconfig:"MQTT_TOPIC_PREFIX" default:"redcode"`
	MQTTQoS      int           `envconfig:"MQTT_QOS" default:"0"`
	MQTTTimeout  time.Duration `envconfig:"MQTT_TIMEOUT" default:"5s"`
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedisAddress returns the Redis address in host:port format.
func (c *CacheConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// MySQLDSN returns the MySQL data source name.
func (s *StoreConfig) MySQLDSN() string {
	port := s.Port
	if port == 0 {
		port = 3306
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&clientFoundRows=true",
		s.User, s.Password, s.Host, port, s.Name)
}

// PostgresDSN returns the PostgreSQL connection string.
func (s *StoreConfig) PostgresDSN() string {
	port := s.Port
	if port == 0 {
		port = 5432
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		s.User, s.Password, s.Host, port, s.Name, s.SSLMode)
}

// ThumbnailSecret returns the key used to sign image API tokens.
func (c *Config) ThumbnailSecret() []byte {
	if c.Thumbnail.Secret != "" {
		return []byte(c.Thumbnail.Secret)
	}
	return []byte(c.Auth.JWTSecret)
}

// IsDevelopment returns true if running in development mode.
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (a *AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// Validate checks option values that envconfig cannot.
func (c *Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.Store.Type) {
	case StoreJSON, StoreSQLite, StoreMySQL, StorePostgres:
	case StoreMongoDB:
		if c.Store.MongoURI == "" {
			errs = append(errs, errors.New("MONGODB_URI is required for the mongodb store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_TYPE %q", c.Store.Type))
	}

	switch c.Cache.Type {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("unknown CACHE_TYPE %q", c.Cache.Type))
	}

	switch c.Script.Source {
	case "file":
	case "s3":
		if c.Script.S3Bucket == "" {
			errs = append(errs, errors.New("S3_BUCKET is required for the s3 script source"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown SCRIPT_SOURCE %q", c.Script.Source))
	}

	switch c.Events.Type {
	case "none", "log", "mqtt":
	default:
		errs = append(errs, fmt.Errorf("unknown EVENTS_TYPE %q", c.Events.Type))
	}

	if c.Events.MQTTQoS < 0 || c.Events.MQTTQoS > 2 {
		errs = append(errs, fmt.Errorf("MQTT_QOS must be 0, 1 or 2, got %d", c.Events.MQTTQoS))
	}
	if c.Tracker.SweepInterval <= 0 || c.Tracker.BotTimeout <= 0 {
		errs = append(errs, errors.New("tracker interval and timeout must be positive"))
	}
	if c.Auth.JWTSecret == "" || (c.App.IsProduction() && c.Auth.JWTSecret == devJWTSecret) {
		errs = append(errs, errors.New("JWT_SECRET must be set"))
	}

	return errors.Join(errs...)
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Store.Type = strings.ToLower(cfg.Store.Type)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
