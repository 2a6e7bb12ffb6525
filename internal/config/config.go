package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all service configuration, read from environment variables.
// godotenv is loaded by main before this runs.
type Config struct {
	Port        string
	DatabaseURL string

	// Model options. An empty APIKey is a valid configuration and means
	// the mechanic model is unavailable; it is never a startup error.
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	OpenAIModel       string
	OpenAITemperature float32
	OpenAIMaxTokens   int

	// Optional path to a YAML keyword-rule file overriding the embedded
	// classifier rules.
	ClassifierRulesPath string
}

// Load reads configuration from the environment. DATABASE_URL is the only
// required variable.
func Load() (Config, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return Config{}, fmt.Errorf("DATABASE_URL is not set")
	}

	maxTokens := envIntOrDefault("OPENAI_MAX_TOKENS", 2048)
	if maxTokens < 0 {
		return Config{}, fmt.Errorf("OPENAI_MAX_TOKENS must be >= 0")
	}

	return Config{
		Port:                envOrDefault("PORT", "8080"),
		DatabaseURL:         dsn,
		OpenAIAPIKey:        os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:       os.Getenv("OPENAI_BASE_URL"),
		OpenAIModel:         envOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAITemperature:   envFloatOrDefault("OPENAI_TEMPERATURE", 0.7),
		OpenAIMaxTokens:     maxTokens,
		ClassifierRulesPath: os.Getenv("CLASSIFIER_RULES_PATH"),
	}, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOrDefault(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envFloatOrDefault(key string, fallback float32) float32 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 32)
	if err != nil {
		return fallback
	}
	return float32(f)
}
