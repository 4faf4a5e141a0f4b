package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server   ServerConfig
	Firebase FirebaseConfig
	Cashfree CashfreeConfig
	Redis    RedisConfig
	Payment  PaymentConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int // seconds
	WriteTimeout       int // seconds; must exceed the verify polling bound
	CORSAllowedOrigins string
}

// FirebaseConfig holds identity provider / Firestore project settings.
type FirebaseConfig struct {
	ProjectID       string
	CredentialsFile string // empty = application default credentials
}

// CashfreeConfig holds payment gateway credentials.
type CashfreeConfig struct {
	ClientID     string
	ClientSecret string
	Mode         string // "sandbox" or "production"
}

// RedisConfig holds Redis connection settings. An empty Addr disables Redis
// and falls back to in-process locking.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// PaymentConfig bounds the verification polling loop.
type PaymentConfig struct {
	PollDelay       time.Duration
	MaxPollAttempts int
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	readTimeout, _ := strconv.Atoi(getEnv("READ_TIMEOUT_SEC", "30"))
	writeTimeout, _ := strconv.Atoi(getEnv("WRITE_TIMEOUT_SEC", "60"))
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	pollDelaySec, _ := strconv.Atoi(getEnv("PAYMENT_POLL_DELAY_SEC", "5"))
	pollAttempts, _ := strconv.Atoi(getEnv("PAYMENT_MAX_POLL_ATTEMPTS", "5"))

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        readTimeout,
			WriteTimeout:       writeTimeout,
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
		},
		Firebase: FirebaseConfig{
			ProjectID:       getEnv("FIREBASE_PROJECT_ID", ""),
			CredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		},
		Cashfree: CashfreeConfig{
			ClientID:     getEnv("CASHFREE_CLIENT_ID", ""),
			ClientSecret: getEnv("CASHFREE_CLIENT_SECRET", ""),
			Mode:         getEnv("CASHFREE_MODE", "sandbox"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Payment: PaymentConfig{
			PollDelay:       time.Duration(pollDelaySec) * time.Second,
			MaxPollAttempts: pollAttempts,
		},
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
