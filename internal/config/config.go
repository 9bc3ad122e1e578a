package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	minPollInterval = 3 * time.Second
	maxPollInterval = 10 * time.Second
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	PublicBaseURL string
	LogLevel      string

	DatabaseURL    string
	UseMemoryStore bool
	UseMemoryQueue bool

	AdminJWTSecret     string
	CORSAllowedOrigins []string

	// Client dashboard polling cadence handed to the dashboard page and leadchat.
	PollInterval   time.Duration
	RequestTimeout time.Duration

	RedisAddr                 string
	RedisPassword             string
	RedisTLS                  bool
	IntakeRateLimitPerMinute  int
	MessageRateLimitPerMinute int

	AWSRegion            string
	AWSAccessKeyID       string
	AWSSecretAccessKey   string
	AWSEndpointOverride  string
	NotificationQueueURL string

	// Email notifications
	EmailProvider     string
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	SESFromEmail      string
	StudioInboxEmail  string

	// Example-site gallery object storage
	GalleryProvider       string
	GalleryBucket         string
	GalleryURLExpiry      time.Duration
	GalleryMaxUploadBytes int64
	MinioEndpoint         string
	MinioAccessKey        string
	MinioSecretKey        string
	MinioUseSSL           bool
}

// Load reads configuration from environment variables. Outside production a
// local .env file is merged in first; real environment variables win.
func Load() *Config {
	if !strings.EqualFold(os.Getenv("ENV"), "production") {
		_ = godotenv.Load()
	}

	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),

		DatabaseURL:    getEnv("DATABASE_URL", ""),
		UseMemoryStore: getEnvAsBool("USE_MEMORY_STORE", false),
		UseMemoryQueue: getEnvAsBool("USE_MEMORY_QUEUE", true),

		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),

		PollInterval:   getEnvAsDuration("POLL_INTERVAL", 5*time.Second),
		RequestTimeout: getEnvAsDuration("REQUEST_TIMEOUT", 15*time.Second),

		RedisAddr:                 getEnv("REDIS_ADDR", ""),
		RedisPassword:             getEnv("REDIS_PASSWORD", ""),
		RedisTLS:                  getEnvAsBool("REDIS_TLS", false),
		IntakeRateLimitPerMinute:  getEnvAsInt("INTAKE_RATE_LIMIT_PER_MINUTE", 5),
		MessageRateLimitPerMinute: getEnvAsInt("MESSAGE_RATE_LIMIT_PER_MINUTE", 30),

		AWSRegion:            getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:       getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride:  getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		NotificationQueueURL: getEnv("NOTIFICATION_QUEUE_URL", ""),

		EmailProvider:     strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "auto"))),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "Sitecraft Studio"),
		SESFromEmail:      getEnv("SES_FROM_EMAIL", ""),
		StudioInboxEmail:  getEnv("STUDIO_INBOX_EMAIL", ""),

		GalleryProvider:       strings.ToLower(strings.TrimSpace(getEnv("GALLERY_PROVIDER", ""))),
		GalleryBucket:         getEnv("GALLERY_BUCKET", ""),
		GalleryURLExpiry:      getEnvAsDuration("GALLERY_URL_EXPIRY", time.Hour),
		GalleryMaxUploadBytes: int64(getEnvAsInt("GALLERY_MAX_UPLOAD_BYTES", 5<<20)),
		MinioEndpoint:         getEnv("MINIO_ENDPOINT", ""),
		MinioAccessKey:        getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey:        getEnv("MINIO_SECRET_KEY", ""),
		MinioUseSSL:           getEnvAsBool("MINIO_USE_SSL", false),
	}
}

// Validate reports configuration that must stop the process at startup.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config: missing")
	}
	var problems []string
	if strings.TrimSpace(c.DatabaseURL) == "" && !c.UseMemoryStore {
		problems = append(problems, "DATABASE_URL is required (set USE_MEMORY_STORE=true for local runs)")
	}
	if strings.TrimSpace(c.PublicBaseURL) == "" {
		problems = append(problems, "PUBLIC_BASE_URL is required")
	}
	if !c.UseMemoryQueue && strings.TrimSpace(c.NotificationQueueURL) == "" {
		problems = append(problems, "NOTIFICATION_QUEUE_URL is required when USE_MEMORY_QUEUE=false")
	}
	switch c.GalleryProvider {
	case "":
	case "s3":
		if c.GalleryBucket == "" {
			problems = append(problems, "GALLERY_BUCKET is required for the s3 gallery")
		}
	case "minio":
		if c.GalleryBucket == "" || c.MinioEndpoint == "" {
			problems = append(problems, "GALLERY_BUCKET and MINIO_ENDPOINT are required for the minio gallery")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown GALLERY_PROVIDER %q", c.GalleryProvider))
	}
	if len(problems) > 0 {
		return fmt.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// EffectivePollInterval clamps the configured poll interval to 3-10s.
func (c *Config) EffectivePollInterval() time.Duration {
	switch {
	case c.PollInterval < minPollInterval:
		return minPollInterval
	case c.PollInterval > maxPollInterval:
		return maxPollInterval
	default:
		return c.PollInterval
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
