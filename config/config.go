package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Config struct {
	Port        string
	BindAddress string

	RedisHost     string
	RedisPort     string
	RedisDB       int
	RedisPassword string

	// DatabaseURL enables the Postgres archive mirror; empty disables it.
	DatabaseURL string

	JWTSecret    string
	AdminKeyHash string // bcrypt hash of the admin API key

	Timezone       string
	PosterInterval time.Duration
	CloserInterval time.Duration
	GraceWindow    time.Duration
	HistoryTTL     time.Duration

	WebhookURL string
}

func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		BindAddress: getEnv("BIND_ADDRESS", ""),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		JWTSecret:    getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		AdminKeyHash: getEnv("ADMIN_KEY_HASH", ""),

		Timezone:       getEnv("TRIVIA_TIMEZONE", "America/Los_Angeles"),
		PosterInterval: getEnvDuration("POSTER_INTERVAL", 10*time.Minute),
		CloserInterval: getEnvDuration("CLOSER_INTERVAL", 1*time.Minute),
		GraceWindow:    getEnvDuration("POSTER_GRACE_WINDOW", 20*time.Minute),
		HistoryTTL:     getEnvDuration("HISTORY_TTL", 7*24*time.Hour),

		WebhookURL: getEnv("DELIVERY_WEBHOOK_URL", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// InitDB opens the Postgres archive database. Returns nil when no
// DATABASE_URL is configured; archiving is then disabled.
func InitDB(cfg *Config) (*gorm.DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, nil
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// InitRedis builds the shared-store client. Pool sizing and timeouts are
// tuned for many small operations from several replicas.
func InitRedis(cfg *Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		PoolSize:     20,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	})
}
