package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    string
	DatabaseURL string

	// AI provider
	AIProvider    string
	GeminiAPIKey  string
	GeminiModel   string
	OllamaBaseURL string
	OllamaModel   string

	// Agent
	MaxAgentIterations int
	DefaultTimezone    string

	// Google OAuth (calendar + gmail)
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRefreshToken string
	GoogleCalendarID   string
	GmailAddress       string

	// Chroma (semantic memory)
	ChromaAPIKey   string
	ChromaTenant   string
	ChromaDatabase string

	// IMAP (inbox reading)
	ImapHost     string
	ImapPort     int
	ImapUser     string
	ImapPassword string

	// Admin surface
	AdminJWTSecret string

	// Draft expiry sweep
	DraftSweepInterval time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	sweepInterval := 5 * time.Minute
	if v := os.Getenv("DRAFT_SWEEP_INTERVAL"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			sweepInterval = parsed
		}
	}

	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		AIProvider:    getEnv("AI_PROVIDER", "auto"),
		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		OllamaBaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		OllamaModel:   getEnv("OLLAMA_MODEL", "llama3"),

		MaxAgentIterations: getEnvInt("MAX_AGENT_ITERATIONS", 8),
		DefaultTimezone:    getEnv("DEFAULT_TIMEZONE", "UTC"),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRefreshToken: getEnv("GOOGLE_REFRESH_TOKEN", ""),
		GoogleCalendarID:   getEnv("GOOGLE_CALENDAR_ID", "primary"),
		GmailAddress:       getEnv("GMAIL_ADDRESS", ""),

		ChromaAPIKey:   getEnv("CHROMA_API_KEY", ""),
		ChromaTenant:   getEnv("CHROMA_TENANT", ""),
		ChromaDatabase: getEnv("CHROMA_DATABASE", ""),

		ImapHost:     getEnv("IMAP_HOST", "imap.gmail.com"),
		ImapPort:     getEnvInt("IMAP_PORT", 993),
		ImapUser:     getEnv("IMAP_USER", ""),
		ImapPassword: getEnv("IMAP_PASSWORD", ""),

		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),

		DraftSweepInterval: sweepInterval,
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
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
