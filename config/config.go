// Package config centralizes the engine's policy constants and collaborator
// credentials. Everything that looks like a magic number in the dialogue
// logic (history bound, session timeout, interruption budget, cache TTL,
// rate limits) is a field here so deployments can tune it.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all tunables for the concierge engine.
type Config struct {
	// Session memory
	MaxTurns     int           // ring buffer size per session
	SessionTTL   time.Duration // idle time before lazy eviction
	RecentWindow int           // turns bundled into collaborator context

	// Booking state machine
	OffTopicThreshold  int // consecutive unrelated turns before auto-cancel
	MaxRecommendations int // discovery candidates cached per booking

	// Text-generation throttling
	MaxCallsPerMinute int
	MinCallSpacing    time.Duration
	CacheTTL          time.Duration
	GenerateTimeout   time.Duration

	// Collaborator credentials / endpoints
	OpenAIKey     string
	AnthropicKey  string
	ResendKey     string
	EmailFrom     string
	InquiryEmail  string
	PlacesBaseURL string
	PlacesToken   string

	// HTTP surface
	ListenAddr string
}

// Load reads configuration from the environment, consulting a .env file
// when present, and applies defaults per field.
func Load() (*Config, error) {
	_ = godotenv.Load() // optional; absence is fine

	cfg := &Config{
		MaxTurns:           getEnvInt("CONCIERGE_MAX_TURNS", 8),
		SessionTTL:         getEnvDuration("CONCIERGE_SESSION_TTL", 24*time.Hour),
		RecentWindow:       getEnvInt("CONCIERGE_RECENT_WINDOW", 6),
		OffTopicThreshold:  getEnvInt("CONCIERGE_OFF_TOPIC_THRESHOLD", 3),
		MaxRecommendations: getEnvInt("CONCIERGE_MAX_RECOMMENDATIONS", 5),
		MaxCallsPerMinute:  getEnvInt("CONCIERGE_LLM_CALLS_PER_MINUTE", 60),
		MinCallSpacing:     getEnvDuration("CONCIERGE_LLM_MIN_SPACING", 100*time.Millisecond),
		CacheTTL:           getEnvDuration("CONCIERGE_LLM_CACHE_TTL", 5*time.Minute),
		GenerateTimeout:    getEnvDuration("CONCIERGE_LLM_TIMEOUT", 30*time.Second),
		OpenAIKey:          os.Getenv("OPENAI_API_KEY"),
		AnthropicKey:       os.Getenv("ANTHROPIC_API_KEY"),
		ResendKey:          os.Getenv("RESEND_API_KEY"),
		EmailFrom:          getEnv("CONCIERGE_EMAIL_FROM", "noreply@tripwise.example"),
		InquiryEmail:       os.Getenv("CONCIERGE_INQUIRY_EMAIL"),
		PlacesBaseURL:      os.Getenv("CONCIERGE_PLACES_BASE_URL"),
		PlacesToken:        os.Getenv("CONCIERGE_PLACES_TOKEN"),
		ListenAddr:         getEnv("CONCIERGE_LISTEN_ADDR", ":8080"),
	}

	return cfg, cfg.Validate()
}

// Default returns the built-in configuration without touching the
// environment. Used by tests and embedded setups.
func Default() *Config {
	return &Config{
		MaxTurns:           8,
		SessionTTL:         24 * time.Hour,
		RecentWindow:       6,
		OffTopicThreshold:  3,
		MaxRecommendations: 5,
		MaxCallsPerMinute:  60,
		MinCallSpacing:     100 * time.Millisecond,
		CacheTTL:           5 * time.Minute,
		GenerateTimeout:    30 * time.Second,
		EmailFrom:          "noreply@tripwise.example",
		ListenAddr:         ":8080",
	}
}

// Validate rejects configurations that would break engine invariants.
func (c *Config) Validate() error {
	if c.MaxTurns < 2 {
		return fmt.Errorf("CONCIERGE_MAX_TURNS must be >= 2, got %d", c.MaxTurns)
	}
	if c.OffTopicThreshold < 1 {
		return fmt.Errorf("CONCIERGE_OFF_TOPIC_THRESHOLD must be >= 1, got %d", c.OffTopicThreshold)
	}
	if c.MaxCallsPerMinute < 1 {
		return fmt.Errorf("CONCIERGE_LLM_CALLS_PER_MINUTE must be >= 1, got %d", c.MaxCallsPerMinute)
	}
	if c.MaxRecommendations < 1 {
		return fmt.Errorf("CONCIERGE_MAX_RECOMMENDATIONS must be >= 1, got %d", c.MaxRecommendations)
	}
	return nil
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
