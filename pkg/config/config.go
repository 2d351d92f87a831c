package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds environment driven settings for the API server.
type Config struct {
	Env            string
	Host           string
	Port           string
	AllowedOrigins []string
	LogLevel       string
	Version        string

	Auth     AuthConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Stripe   StripeConfig
	Jobs     JobsConfig
}

// AuthConfig contains token signing settings.
type AuthConfig struct {
	JWTSecret          string
	JWTRefreshSecret   string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration
	GoogleClientID     string
	RateLimitPerMinute int
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	TimeZone        string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime int // seconds
	ConnMaxIdleTime int // seconds
	RunMigrations   bool
}

// RedisConfig contains cache connection settings. An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	FactsTTL time.Duration
}

// StripeConfig contains payment processor settings. An empty SecretKey
// disables paid checkout.
type StripeConfig struct {
	SecretKey string
	BaseURL   string
	Currency  string
}

// JobsConfig contains background job schedules.
type JobsConfig struct {
	StalePaymentSchedule string
	StalePaymentAge      time.Duration
}

// Load builds a Config from environment variables with sensible defaults.
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("EDTECH_SERVER_ENV", "development"),
		Host:     getEnv("EDTECH_SERVER_HOST", "0.0.0.0"),
		Port:     getEnv("EDTECH_SERVER_PORT", "5000"),
		LogLevel: getEnv("EDTECH_LOG_LEVEL", "info"),
		Version:  getEnv("EDTECH_VERSION", "1.0.0"),
	}
	cfg.AllowedOrigins = splitAndTrim(os.Getenv("EDTECH_ALLOWED_ORIGINS"))

	cfg.Auth = AuthConfig{
		JWTSecret:          getEnv("JWT_SECRET", "your-secret-key-change-me"),
		JWTRefreshSecret:   getEnv("JWT_REFRESH_SECRET", "your-refresh-secret-change-me"),
		AccessTokenTTL:     getEnvAsDuration("JWT_ACCESS_TTL", 24*time.Hour),
		RefreshTokenTTL:    getEnvAsDuration("JWT_REFRESH_TTL", 30*24*time.Hour),
		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		RateLimitPerMinute: getEnvAsInt("EDTECH_RATE_LIMIT_PER_MINUTE", 100),
	}

	db, err := loadDatabaseConfig()
	if err != nil {
		return nil, err
	}
	cfg.Database = db

	cfg.Redis = RedisConfig{
		Addr:     os.Getenv("EDTECH_REDIS_ADDR"),
		Password: os.Getenv("EDTECH_REDIS_PASSWORD"),
		DB:       getEnvAsInt("EDTECH_REDIS_DB", 0),
		FactsTTL: getEnvAsDuration("EDTECH_COURSE_FACTS_TTL", 5*time.Minute),
	}

	cfg.Stripe = StripeConfig{
		SecretKey: os.Getenv("STRIPE_SECRET_KEY"),
		BaseURL:   getEnv("STRIPE_API_BASE", "https://api.stripe.com"),
		Currency:  strings.ToLower(getEnv("STRIPE_CURRENCY", "usd")),
	}

	cfg.Jobs = JobsConfig{
		StalePaymentSchedule: getEnv("EDTECH_STALE_PAYMENT_SCHEDULE", "@every 5m"),
		StalePaymentAge:      getEnvAsDuration("EDTECH_STALE_PAYMENT_AGE", 15*time.Minute),
	}

	if cfg.IsProduction() && cfg.Auth.JWTSecret == "your-secret-key-change-me" {
		return nil, fmt.Errorf("JWT_SECRET must be set in production")
	}

	return cfg, nil
}

// ServerAddress joins the host and port into a listen address.
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// IsProduction reports whether the app is running in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// DSN builds a PostgreSQL DSN for gorm.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		d.Host,
		d.Port,
		d.User,
		d.Password,
		d.Name,
		d.SSLMode,
		d.TimeZone,
	)
}

func loadDatabaseConfig() (DatabaseConfig, error) {
	cfg := DatabaseConfig{
		Host:            getEnv("EDTECH_DB_HOST", "127.0.0.1"),
		Port:            getEnv("EDTECH_DB_PORT", "5432"),
		User:            getEnv("EDTECH_DB_USER", "postgres"),
		Password:        os.Getenv("EDTECH_DB_PASSWORD"),
		Name:            getEnv("EDTECH_DB_NAME", "edtech"),
		SSLMode:         getEnv("EDTECH_DB_SSLMODE", "disable"),
		TimeZone:        getEnv("EDTECH_DB_TIMEZONE", "UTC"),
		MaxIdleConns:    getEnvAsInt("EDTECH_DB_MAX_IDLE_CONNS", 5),
		MaxOpenConns:    getEnvAsInt("EDTECH_DB_MAX_OPEN_CONNS", 20),
		ConnMaxLifetime: getEnvAsInt("EDTECH_DB_CONN_MAX_LIFETIME", 1800),
		ConnMaxIdleTime: getEnvAsInt("EDTECH_DB_CONN_MAX_IDLE_TIME", 300),
		RunMigrations:   getEnvAsBool("EDTECH_DB_RUN_MIGRATIONS", false),
	}

	// DATABASE_URL wins over the individual variables.
	if raw := os.Getenv("DATABASE_URL"); raw != "" {
		if err := cfg.applyURL(raw); err != nil {
			return DatabaseConfig{}, err
		}
	}
	return cfg, nil
}

// applyURL overrides connection fields from a postgres:// URL.
func (d *DatabaseConfig) applyURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("parse DATABASE_URL: %w", err)
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return fmt.Errorf("DATABASE_URL: unsupported scheme %q", u.Scheme)
	}

	if host := u.Hostname(); host != "" {
		d.Host = host
	}
	if port := u.Port(); port != "" {
		d.Port = port
	}
	if u.User != nil {
		d.User = u.User.Username()
		if pw, ok := u.User.Password(); ok {
			d.Password = pw
		}
	}
	if name := strings.TrimPrefix(u.Path, "/"); name != "" {
		d.Name = name
	}

	q := u.Query()
	if v := q.Get("sslmode"); v != "" {
		d.SSLMode = v
	}
	if v := q.Get("timezone"); v != "" {
		d.TimeZone = v
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
	}
	return fallback
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}

	parts := strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == ';'
	})

	var cleaned []string
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}
