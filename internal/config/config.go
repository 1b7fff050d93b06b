package config

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv           string
	AppName          string
	APIPrefix        string
	AppPort          string
	DatabaseURL      string
	CORSAllowOrigins []string
	GeminiAPIKey     string
	GeminiModel      string
	GeminiBaseURL    string
	AITimeoutSeconds int
}

func Load() Config {
	_ = godotenv.Load(".env")

	return Config{
		AppEnv:      getEnv("APP_ENV", "local"),
		AppName:     getEnv("APP_NAME", "KeepTalking API"),
		APIPrefix:   getEnv("API_PREFIX", "/api/chat"),
		AppPort:     getEnv("APP_PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		CORSAllowOrigins: getEnvCSV(
			"CORS_ALLOW_ORIGINS",
			[]string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:3000"},
		),
		GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
		GeminiModel:      getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiBaseURL:    getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		AITimeoutSeconds: getEnvInt("AI_TIMEOUT_SECONDS", 20),
	}
}

// Validate checks the values the server cannot run without. An absent
// GEMINI_API_KEY is fine (the AI client falls back to mock responses), and
// an absent DATABASE_URL selects the in-memory store.
func (c Config) Validate() error {
	if !strings.HasPrefix(strings.TrimSpace(c.APIPrefix), "/") {
		return errors.New("API_PREFIX must start with /")
	}
	if strings.TrimSpace(c.AppPort) == "" {
		return errors.New("APP_PORT is required")
	}
	if strings.TrimSpace(c.GeminiBaseURL) == "" {
		return errors.New("GEMINI_BASE_URL is required")
	}
	if strings.TrimSpace(c.GeminiModel) == "" {
		return errors.New("GEMINI_MODEL is required")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvCSV(key string, fallback []string) []string {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, item := range parts {
		trimmed := strings.TrimSpace(item)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return fallback
	}
	return result
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return parsed
}
