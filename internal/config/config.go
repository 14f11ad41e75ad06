package config

import (
	"errors"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config is the server's environment configuration.
type Config struct {
	Port           string
	DatabaseURL    string
	JWTSecret      string
	LogLevel       zerolog.Level
	DoctorTokenTTL time.Duration

	// Optional assistant endpoint (OpenAI-compatible vLLM server).
	VLLMBaseURL string
	VLLMAPIKey  string
	VLLMModel   string
}

// Load reads .env if present, then the process environment. DATABASE_URL
// and JWT_SECRET are required.
func Load() (*Config, error) {
	// Missing .env is fine; the environment may be set directly.
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getenv("PORT", "8080"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		DoctorTokenTTL: 30 * 24 * time.Hour,
		VLLMBaseURL:    os.Getenv("VLLM_BASE_URL"),
		VLLMAPIKey:     os.Getenv("VLLM_API_KEY"),
		VLLMModel:      os.Getenv("VLLM_MODEL"),
	}

	level, err := zerolog.ParseLevel(getenv("LOG_LEVEL", "info"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	cfg.LogLevel = level

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
