package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	NATS     NATSConfig
	Storage  StorageConfig
	Sentry   SentryConfig
	Patrol   PatrolConfig
	Scoring  ScoringConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port         string
	Environment  string
	ServiceName  string
	ReadTimeout  int
	WriteTimeout int
	CORSOrigins  string // Comma-separated list of allowed origins
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	MaxConns       int
	MinConns       int
	MigrateOnStart bool

	// ApplicationName shows up in pg_stat_activity next to each patrol connection
	ApplicationName  string
	StatementTimeout time.Duration
	ConnectAttempts  int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// NATSConfig holds NATS configuration
type NATSConfig struct {
	URL     string
	Enabled bool
}

// StorageConfig holds evidence archive configuration
type StorageConfig struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Enabled   bool
}

// SentryConfig holds Sentry configuration
type SentryConfig struct {
	DSN string
}

// PatrolConfig holds collection and triage tuning
type PatrolConfig struct {
	Platforms      []string
	KeepThreshold  float64
	BatchSize      int
	ScrapeInterval time.Duration
	StartTimeout   time.Duration
	StopTimeout    time.Duration
	ClaimTTL       time.Duration
	DedupeCapacity int
	Workers        int
	WatchDomains   []string
}

// ScoringConfig holds scoring engine configuration
type ScoringConfig struct {
	RulesFile         string
	ClassifierURL     string
	ClassifierTimeout time.Duration
	ClassifierWeight  float64
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			Environment:  getEnv("ENVIRONMENT", "development"),
			ServiceName:  serviceName,
			ReadTimeout:  getEnvAsInt("READ_TIMEOUT", 10),
			WriteTimeout: getEnvAsInt("WRITE_TIMEOUT", 10),
			CORSOrigins:  getEnv("CORS_ORIGINS", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			Host:             getEnv("DB_HOST", "localhost"),
			Port:             getEnv("DB_PORT", "5432"),
			User:             getEnv("DB_USER", "postgres"),
			Password:         getEnv("DB_PASSWORD", "postgres"),
			DBName:           getEnv("DB_NAME", "cyberpatrol"),
			SSLMode:          getEnv("DB_SSLMODE", "disable"),
			MaxConns:         getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:         getEnvAsInt("DB_MIN_CONNS", 5),
			MigrateOnStart:   getEnvAsBool("DB_MIGRATE_ON_START", true),
			ApplicationName:  serviceName,
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 30*time.Second),
			ConnectAttempts:  getEnvAsInt("DB_CONNECT_ATTEMPTS", 5),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
		},
		NATS: NATSConfig{
			URL:     getEnv("NATS_URL", "nats://localhost:4222"),
			Enabled: getEnvAsBool("NATS_ENABLED", true),
		},
		Storage: StorageConfig{
			Bucket:    getEnv("EVIDENCE_BUCKET", "patrol-evidence"),
			Region:    getEnv("AWS_REGION", "ap-south-1"),
			Endpoint:  getEnv("S3_ENDPOINT", ""),
			AccessKey: getEnv("S3_ACCESS_KEY", ""),
			SecretKey: getEnv("S3_SECRET_KEY", ""),
			Enabled:   getEnvAsBool("EVIDENCE_ARCHIVE_ENABLED", false),
		},
		Sentry: SentryConfig{
			DSN: getEnv("SENTRY_DSN", ""),
		},
		Patrol: PatrolConfig{
			Platforms:      getEnvAsList("PATROL_PLATFORMS", []string{"facebook", "instagram", "twitter", "telegram", "domains"}),
			KeepThreshold:  getEnvAsFloat("PATROL_KEEP_THRESHOLD", 0.5),
			BatchSize:      getEnvAsInt("PATROL_BATCH_SIZE", 25),
			ScrapeInterval: getEnvAsDuration("PATROL_SCRAPE_INTERVAL", 300*time.Second),
			StartTimeout:   getEnvAsDuration("PATROL_START_TIMEOUT", 10*time.Second),
			StopTimeout:    getEnvAsDuration("PATROL_STOP_TIMEOUT", 30*time.Second),
			ClaimTTL:       getEnvAsDuration("PATROL_CLAIM_TTL", 24*time.Hour),
			DedupeCapacity: getEnvAsInt("PATROL_DEDUPE_CAPACITY", 10000),
			Workers:        getEnvAsInt("PATROL_WORKERS", 8),
			WatchDomains:   getEnvAsList("PATROL_WATCH_DOMAINS", nil),
		},
		Scoring: ScoringConfig{
			RulesFile:         getEnv("SCORING_RULES_FILE", ""),
			ClassifierURL:     getEnv("CLASSIFIER_URL", ""),
			ClassifierTimeout: getEnvAsDuration("CLASSIFIER_TIMEOUT", 5*time.Second),
			ClassifierWeight:  getEnvAsFloat("CLASSIFIER_WEIGHT", 0.2),
		},
	}

	if cfg.Patrol.KeepThreshold < 0 || cfg.Patrol.KeepThreshold > 1 {
		return nil, fmt.Errorf("PATROL_KEEP_THRESHOLD must be within [0,1], got %v", cfg.Patrol.KeepThreshold)
	}

	return cfg, nil
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// URL returns the database connection string in URL form, as expected by migrate
func (c *DatabaseConfig) URL() string {
	return fmt.Sprintf("pgx5://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsDuration accepts Go duration strings ("30s") or bare seconds ("30")
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(valueStr); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
