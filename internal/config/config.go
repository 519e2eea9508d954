package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Notifier backends.
const (
	NotifierRedis  = "redis"
	NotifierNATS   = "nats"
	NotifierPubSub = "pubsub"
)

type Config struct {
	// Server
	Port int
	Env  string

	// CORS
	AllowedOrigins []string

	// Database URLs
	PostgresURL   string
	ClickHouseURL string // optional, enables match history
	RedisURL      string

	// Engine
	PollInterval     time.Duration
	QueueConcurrency int
	ProjectionTTL    time.Duration

	// Allocation
	AllocatorRegions       string // region=host:port,...
	AllocatorDefaultRegion string
	AgonesNamespace        string
	AgonesFleet            string

	// Notification
	NotifierBackends []string
	NATSURL          string
	PubSubProjectID  string
	PubSubTopic      string
	GoogleCredsFile  string

	// Tracing
	OTLPEndpoint string
	OTLPInsecure bool
}

// Load loads configuration from environment variables.
// It returns an error if critical configuration is missing.
func Load() (*Config, error) {
	cfg := &Config{
		Port: getEnvInt("PORT", 8080),
		Env:  getEnv("ENV", "development"),

		ClickHouseURL: os.Getenv("CLICKHOUSE_URL"),

		PollInterval:     getEnvDuration("POLL_INTERVAL", 1*time.Second),
		QueueConcurrency: getEnvInt("QUEUE_CONCURRENCY", 4),
		ProjectionTTL:    getEnvDuration("PROJECTION_TTL", time.Hour),

		AllocatorRegions:       getEnv("ALLOCATOR_REGIONS", ""),
		AllocatorDefaultRegion: getEnv("ALLOCATOR_DEFAULT_REGION", ""),
		AgonesNamespace:        getEnv("AGONES_NAMESPACE", "default"),
		AgonesFleet:            getEnv("AGONES_FLEET", ""),

		NATSURL:         getEnv("NATS_URL", ""),
		PubSubProjectID: getEnv("PUBSUB_PROJECT_ID", ""),
		PubSubTopic:     getEnv("PUBSUB_TOPIC", "matchmaking-events"),
		GoogleCredsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTLPInsecure: getEnvBool("OTEL_EXPORTER_OTLP_INSECURE", false),
	}

	// CORS
	cfg.AllowedOrigins = splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000"))
	cfg.NotifierBackends = splitList(getEnv("NOTIFIER_BACKEND", NotifierRedis))

	// Critical configuration - fail if missing
	var err error
	if cfg.PostgresURL, err = getEnvRequired("POSTGRES_URL"); err != nil {
		return nil, err
	}
	if cfg.RedisURL, err = getEnvRequired("REDIS_URL"); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive, got %s", c.PollInterval)
	}
	if c.QueueConcurrency < 1 {
		return fmt.Errorf("QUEUE_CONCURRENCY must be at least 1, got %d", c.QueueConcurrency)
	}
	for _, b := range c.NotifierBackends {
		switch b {
		case NotifierRedis:
		case NotifierNATS:
			if c.NATSURL == "" {
				return fmt.Errorf("NOTIFIER_BACKEND=nats requires NATS_URL")
			}
		case NotifierPubSub:
			if c.PubSubProjectID == "" {
				return fmt.Errorf("NOTIFIER_BACKEND=pubsub requires PUBSUB_PROJECT_ID")
			}
		default:
			return fmt.Errorf("unknown notifier backend %q", b)
		}
	}
	return nil
}

// IsDevelopment reports whether ENV selects development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Redacted returns the configuration with credentials stripped, for logging.
func (c *Config) Redacted() map[string]interface{} {
	return map[string]interface{}{
		"port":             c.Port,
		"env":              c.Env,
		"postgres":         redactURL(c.PostgresURL),
		"redis":            redactURL(c.RedisURL),
		"clickhouse":       redactURL(c.ClickHouseURL),
		"pollInterval":     c.PollInterval.String(),
		"queueConcurrency": c.QueueConcurrency,
		"allocatorRegions": c.AllocatorRegions,
		"agonesFleet":      c.AgonesFleet,
		"notifiers":        c.NotifierBackends,
		"nats":             redactURL(c.NATSURL),
		"pubsubProject":    c.PubSubProjectID,
		"otlpEndpoint":     c.OTLPEndpoint,
	}
}

func redactURL(raw string) string {
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "<redacted>"
	}
	if u.User != nil {
		u.User = url.User("xxxxx")
	}
	return u.Redacted()
}

func splitList(raw string) []string {
	var out []string
	for _, o := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(o); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvRequired(key string) (string, error) {
	if value := os.Getenv(key); value != "" {
		return value, nil
	}
	return "", fmt.Errorf("missing required environment variable: %s", key)
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
