package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv         string
	Port           string
	AllowedOrigins string

	DatabaseURL string
	RedisURL    string

	MeiliSearchHost string
	MeiliMasterKey  string

	JWTSecret string
	JWTTTL    time.Duration

	AWSRegion    string
	S3Bucket     string
	S3Endpoint   string
	RapidAPIKey  string
	RapidAPIHost string
	GeminiAPIKey string

	ProcessingInterval time.Duration
	ProcessingBatch    int

	RateLimitMessage time.Duration
}

func Load() (*Config, error) {
	// Don't fail if .env doesn't exist (might be prod env vars)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:3000,http://localhost:8081"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),

		MeiliSearchHost: getEnv("MEILISEARCH_HOST", "http://localhost:7700"),
		MeiliMasterKey:  os.Getenv("MEILI_MASTER_KEY"),

		JWTSecret: getEnv("JWT_SECRET", "dev-secret-key-change-in-production"),

		AWSRegion:    getEnv("AWS_REGION", "us-east-1"),
		S3Bucket:     getEnv("AWS_S3_BUCKET", "classroom-assistant-audio"),
		S3Endpoint:   os.Getenv("S3_ENDPOINT"),
		RapidAPIKey:  os.Getenv("RAPIDAPI_KEY"),
		RapidAPIHost: getEnv("RAPIDAPI_HOST", "speech-to-text-api.p.rapidapi.com"),
		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
	}

	ttlMinutes := 60
	if ttlStr := os.Getenv("JWT_TTL_MINUTES"); ttlStr != "" {
		minutes, err := strconv.Atoi(ttlStr)
		if err != nil {
			return nil, fmt.Errorf("invalid JWT_TTL_MINUTES: %w", err)
		}
		ttlMinutes = minutes
	}
	cfg.JWTTTL = time.Duration(ttlMinutes) * time.Minute

	var err error
	cfg.ProcessingInterval, err = time.ParseDuration(getEnv("PROCESSING_INTERVAL", "5m"))
	if err != nil {
		return nil, fmt.Errorf("invalid PROCESSING_INTERVAL: %w", err)
	}

	cfg.ProcessingBatch, err = strconv.Atoi(getEnv("PROCESSING_BATCH", "5"))
	if err != nil {
		return nil, fmt.Errorf("invalid PROCESSING_BATCH: %w", err)
	}
	if cfg.ProcessingBatch < 1 {
		return nil, fmt.Errorf("PROCESSING_BATCH must be at least 1")
	}

	cfg.RateLimitMessage, err = time.ParseDuration(getEnv("RATE_LIMIT_MESSAGE", "1s"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_MESSAGE: %w", err)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
