package utils

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StoreDriverSupabase = "supabase"
	StoreDriverPostgres = "postgres"
	StoreDriverMongo    = "mongo"
)

type Config struct {
	ServerPort string
	Store      StoreConfig
	Upstream   UpstreamConfig
	Logging    LoggingConfig
}

type StoreConfig struct {
	Driver   string
	Supabase SupabaseConfig
	Postgres PostgresConfig
	Mongo    MongoConfig
}

type SupabaseConfig struct {
	URL            string
	AnonKey        string
	RequestTimeout time.Duration
}

type PostgresConfig struct {
	DSN               string
	Host              string
	Port              int
	User              string
	Password          string
	Database          string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	ConnectTimeout    time.Duration
}

type MongoConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

type LoggingConfig struct {
	Level        string
	Encoding     string
	Development  bool
	EnableCaller bool
	ServiceName  string
}

// UpstreamConfig points at an OpenAI-compatible chat completion API.
type UpstreamConfig struct {
	BaseURL        string
	APIKey         string
	ConnectTimeout time.Duration
}

func LoadConfig() (*Config, error) {
	cfg := readConfig()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadStoreConfig is used by tools that read prompts without calling the
// upstream API.
func LoadStoreConfig() (StoreConfig, error) {
	cfg := readConfig()
	missing, err := cfg.Store.missing()
	if err != nil {
		return StoreConfig{}, err
	}
	if len(missing) > 0 {
		return StoreConfig{}, fmt.Errorf("config: missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return cfg.Store, nil
}

func readConfig() *Config {
	pgPort, _ := strconv.Atoi(envOrDefault("POSTGRES_PORT", "5432"))

	cfg := &Config{
		ServerPort: envOrDefault("PORT", "8080"),
		Store: StoreConfig{
			Driver: strings.ToLower(strings.TrimSpace(envOrDefault("STORE_DRIVER", StoreDriverSupabase))),
			Supabase: SupabaseConfig{
				URL:            strings.TrimRight(strings.TrimSpace(os.Getenv("SUPABASE_URL")), "/"),
				AnonKey:        strings.TrimSpace(os.Getenv("SUPABASE_ANON_KEY")),
				RequestTimeout: parseDuration(envOrDefault("SUPABASE_TIMEOUT", "10s"), 10*time.Second),
			},
			Postgres: PostgresConfig{
				DSN:               os.Getenv("POSTGRES_DSN"),
				Host:              envOrDefault("POSTGRES_HOST", "localhost"),
				Port:              pgPort,
				User:              envOrDefault("POSTGRES_USER", "postgres"),
				Password:          os.Getenv("POSTGRES_PASSWORD"),
				Database:          envOrDefault("POSTGRES_DB", "postgres"),
				MaxConns:          parseInt32(envOrDefault("POSTGRES_MAX_CONNS", "8"), 8),
				MinConns:          parseInt32(envOrDefault("POSTGRES_MIN_CONNS", "1"), 1),
				MaxConnLifetime:   parseDuration(envOrDefault("POSTGRES_MAX_CONN_LIFETIME", "1h"), time.Hour),
				MaxConnIdleTime:   parseDuration(envOrDefault("POSTGRES_MAX_CONN_IDLE", "30m"), 30*time.Minute),
				HealthCheckPeriod: parseDuration(envOrDefault("POSTGRES_HEALTH_CHECK_PERIOD", "1m"), time.Minute),
				ConnectTimeout:    parseDuration(envOrDefault("POSTGRES_CONNECT_TIMEOUT", "5s"), 5*time.Second),
			},
			Mongo: MongoConfig{
				URI:            envOrDefault("MONGO_URI", "mongodb://localhost:27017"),
				Database:       envOrDefault("MONGO_DATABASE", "feedback"),
				ConnectTimeout: parseDuration(envOrDefault("MONGO_CONNECT_TIMEOUT", "5s"), 5*time.Second),
			},
		},
		Upstream: UpstreamConfig{
			BaseURL:        strings.TrimRight(envOrDefault("OPENAI_BASE_URL", "https://api.openai.com/v1"), "/"),
			APIKey:         strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
			ConnectTimeout: parseDuration(envOrDefault("UPSTREAM_CONNECT_TIMEOUT", "10s"), 10*time.Second),
		},
		Logging: LoggingConfig{
			Level:        strings.ToLower(envOrDefault("LOG_LEVEL", "info")),
			Encoding:     strings.ToLower(envOrDefault("LOG_ENCODING", "json")),
			Development:  parseBool(envOrDefault("LOG_DEVELOPMENT", "false"), false),
			EnableCaller: parseBool(envOrDefault("LOG_CALLER", "false"), false),
			ServiceName:  envOrDefault("SERVICE_NAME", "feedback-relay"),
		},
	}

	return cfg
}

// Validate reports the secrets missing for the selected store driver and
// the upstream API.
func (c *Config) Validate() error {
	missing, err := c.Store.missing()
	if err != nil {
		return err
	}

	if c.Upstream.APIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}

	if len(missing) > 0 {
		return fmt.Errorf("config: missing required environment variables: %s", strings.Join(missing, ", "))
	}

	return nil
}

func (s StoreConfig) missing() ([]string, error) {
	missing := make([]string, 0, 3)

	switch s.Driver {
	case StoreDriverSupabase:
		if s.Supabase.URL == "" {
			missing = append(missing, "SUPABASE_URL")
		}
		if s.Supabase.AnonKey == "" {
			missing = append(missing, "SUPABASE_ANON_KEY")
		}
	case StoreDriverPostgres:
		// host, user and database all have local defaults
	case StoreDriverMongo:
		if s.Mongo.URI == "" {
			missing = append(missing, "MONGO_URI")
		}
	default:
		return nil, fmt.Errorf("config: unsupported STORE_DRIVER %q", s.Driver)
	}

	return missing, nil
}

func (c PostgresConfig) BuildDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s", c.User, c.Password, c.Host, c.Port, c.Database)
}

func envOrDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

func parseInt32(value string, fallback int32) int32 {
	i, err := strconv.ParseInt(strings.TrimSpace(value), 10, 32)
	if err != nil {
		return fallback
	}
	return int32(i)
}

func parseBool(value string, fallback bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return v
}
