package config

import (
	"crypto/rand"
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config holds the application configuration.
type Config struct {
	ServerPort  int
	Env         string
	LogLevel    string
	DBDriver    string // "sqlite" or "mysql"
	DatabaseURL string
	UploadDir   string // Uploaded photos live here and are served under /uploads/

	SessionSecret    []byte
	SessionStore     string // "sql" or "redis"
	SessionSweepCron string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	KafkaBrokers     []string
	KafkaEventsTopic string

	CORSAllowedOrigins []string
	AuthRatePerMinute  int
	AuthRateBurst      int
}

// IsProduction reports whether the app runs with APP_ENV=production.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load loads configuration from an optional .env file and environment variables, with defaults.
func Load() (*Config, error) {
	// A missing .env file is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	port, err := strconv.Atoi(getEnv("PORT", "3000"))
	if err != nil {
		return nil, err
	}
	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, err
	}
	ratePerMinute, err := strconv.Atoi(getEnv("AUTH_RATE_PER_MINUTE", "10"))
	if err != nil {
		return nil, err
	}
	rateBurst, err := strconv.Atoi(getEnv("AUTH_RATE_BURST", "5"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ServerPort:         port,
		Env:                getEnv("APP_ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DBDriver:           getEnv("DB_DRIVER", "sqlite"),
		DatabaseURL:        getEnv("DATABASE_URL", "./unseen-britain.db"),
		UploadDir:          getEnv("UPLOAD_DIR", "./static/uploads"),
		SessionStore:       getEnv("SESSION_STORE", "sql"),
		SessionSweepCron:   getEnv("SESSION_SWEEP_CRON", "@every 15m"),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            redisDB,
		KafkaBrokers:       splitList(getEnv("KAFKA_BROKERS", "")),
		KafkaEventsTopic:   getEnv("KAFKA_EVENTS_TOPIC", "unseen-britain.events"),
		CORSAllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		AuthRatePerMinute:  ratePerMinute,
		AuthRateBurst:      rateBurst,
	}

	switch cfg.DBDriver {
	case "sqlite", "mysql":
	default:
		return nil, errors.New("DB_DRIVER must be sqlite or mysql")
	}
	switch cfg.SessionStore {
	case "sql", "redis":
	default:
		return nil, errors.New("SESSION_STORE must be sql or redis")
	}

	secret := os.Getenv("SESSION_SECRET")
	switch {
	case secret != "":
		cfg.SessionSecret = []byte(secret)
	case cfg.IsProduction():
		return nil, errors.New("SESSION_SECRET is required in production")
	default:
		// Development only: sessions will not survive a restart.
		cfg.SessionSecret = make([]byte, 32)
		if _, err := rand.Read(cfg.SessionSecret); err != nil {
			return nil, err
		}
		log.Warn().Msg("SESSION_SECRET not set, using a random per-process secret")
	}

	return cfg, nil
}

// Helper to get an environment variable with a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
