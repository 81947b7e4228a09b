package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	APIPort            string
	BackendAPIKey      string // API key for authenticating requests (empty = no auth, dev mode)
	CorsAllowedOrigins string // Comma-separated allowed origins (empty = *, dev mode)

	// Job status store: "memory" (default), "redis" or "postgres"
	StatusStore string
	RedisURL    string
	DatabaseURL string

	// Gemini (persona image generation)
	GeminiKey     string
	GeminiBaseURL string

	// FishAudio (TTS)
	FishAudioKey         string
	FishAudioBaseURL     string
	FishAudioReferenceID string

	// Hedra (lip-sync video synthesis)
	HedraKey     string
	HedraBaseURL string

	// OpenAI — hosted text-to-video (Sora) and optional script polish
	OpenAIKey   string
	SoraBaseURL string

	// Webhook
	WebhookSecret string

	// Local storage
	UploadDir string
	OutputDir string
	TempDir   string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	cfg := &Config{
		APIPort:            getEnv("API_PORT", "8000"),
		BackendAPIKey:      getEnv("BACKEND_API_KEY", ""),
		CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", ""),

		StatusStore: getEnv("STATUS_STORE", "memory"),
		RedisURL:    getEnv("REDIS_URL", "redis://localhost:6379"),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		GeminiKey:     getEnv("GEMINI_API_KEY", ""),
		GeminiBaseURL: getEnv("GEMINI_BASE_URL", ""),

		FishAudioKey:         getEnv("FISHAUDIO_API_KEY", ""),
		FishAudioBaseURL:     getEnv("FISHAUDIO_BASE_URL", ""),
		FishAudioReferenceID: getEnv("FISHAUDIO_REFERENCE_ID", ""),

		HedraKey:     getEnv("HEDRA_API_KEY", ""),
		HedraBaseURL: getEnv("HEDRA_BASE_URL", ""),

		OpenAIKey:   getEnv("OPENAI_API_KEY", ""),
		SoraBaseURL: getEnv("SORA_BASE_URL", ""),

		WebhookSecret: getEnv("WEBHOOK_SECRET", ""),

		UploadDir: getEnv("UPLOAD_DIR", "uploads"),
		OutputDir: getEnv("OUTPUT_DIR", "outputs"),
		TempDir:   getEnv("TEMP_DIR", "temp"),
	}

	// Vendor keys are optional — missing keys degrade to placeholders in the
	// pipeline adapters. The store backend must be consistent though.
	switch cfg.StatusStore {
	case "memory":
	case "redis":
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("REDIS_URL is required when STATUS_STORE=redis")
		}
	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when STATUS_STORE=postgres")
		}
	default:
		return nil, fmt.Errorf("invalid STATUS_STORE %q (allowed: memory, redis, postgres)", cfg.StatusStore)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return defaultValue
}
