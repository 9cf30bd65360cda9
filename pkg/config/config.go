package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// LLMProvider defines the backend LLM service type
type LLMProvider string

const (
	ProviderNone       LLMProvider = "none"       // No LLM, heuristics only
	ProviderGroq       LLMProvider = "groq"       // Groq (high-speed inference, default for the honeypot)
	ProviderOpenRouter LLMProvider = "openrouter" // OpenRouter (has free tier)
	ProviderOllama     LLMProvider = "ollama"     // Local Ollama server
	ProviderCustom     LLMProvider = "custom"     // Custom OpenAI-compatible endpoint
)

// SessionBackend selects the session store implementation
type SessionBackend string

const (
	BackendMemory SessionBackend = "memory" // In-memory store (default, single node)
	BackendRedis  SessionBackend = "redis"  // Redis-backed store (survives restarts)
)

// Config holds global settings for the Hivetrap gateway.
// All settings can be configured via environment variables or programmatically.
type Config struct {
	// === Core Settings ===
	APIKey string // Shared secret for the X-API-Key header (env: HIVETRAP_API_KEY)
	Host   string
	Port   int

	// === LLM Provider Configuration ===
	// These settings control both the scam classifier and the persona engine.
	LLMProvider LLMProvider
	LLMAPIKey   string
	LLMModel    string
	LLMBaseURL  string // Custom base URL for self-hosted or custom providers

	// LLMTimeout bounds every model call. Timeouts degrade to heuristics,
	// they never fail the request.
	LLMTimeout time.Duration

	// === Detection Thresholds (0.0 - 1.0) ===
	ScamThreshold float64 // Confidence at or above this = scam (default: 0.5)

	// === Engagement Policy ===
	// Termination thresholds for the persona engine. Policy, not invariants.
	MaxTurns          int // Hard cap on conversation turns (default: 20)
	StaleIntelTurns   int // End after this many turns with no new intelligence (default: 6)
	ClearVerdictTurns int // End after this many consecutive sub-threshold verdicts post-detection (default: 4)

	// === Feature Flags ===
	EnableSemantics bool // Enable embedding-similarity scam detection (requires an embedding source)

	// === Session Management ===
	SessionBackend  SessionBackend
	SessionTTL      time.Duration // Idle sessions are evicted after this (default: 24h)
	CleanupInterval time.Duration // How often the eviction loop runs (default: 10m)
	RedisAddr       string
	RedisDB         int

	// === Persona ===
	PersonaPath string // Optional YAML persona profile; built-in default when empty
}

// NewDefaultConfig creates a Config with sensible defaults.
// All settings can be overridden via environment variables.
func NewDefaultConfig() *Config {
	cfg := &Config{
		APIKey: GetEnv("HIVETRAP_API_KEY", ""),
		Host:   GetEnv("HIVETRAP_HOST", "0.0.0.0"),
		Port:   GetEnvInt("HIVETRAP_PORT", 8000),

		LLMProvider: detectLLMProvider(),
		LLMAPIKey:   GetEnv("HIVETRAP_LLM_API_KEY", GetEnv("GROQ_API_KEY", os.Getenv("OPENROUTER_API_KEY"))),
		LLMModel:    GetEnv("HIVETRAP_LLM_MODEL", "llama-3.1-8b-instant"),
		LLMBaseURL:  GetEnv("HIVETRAP_LLM_BASE_URL", ""),
		LLMTimeout:  time.Duration(GetEnvInt("HIVETRAP_LLM_TIMEOUT_MS", 10000)) * time.Millisecond,

		ScamThreshold: GetEnvFloat("HIVETRAP_SCAM_THRESHOLD", 0.5),

		MaxTurns:          clampInt(GetEnvInt("HIVETRAP_MAX_TURNS", 20), 1, 1000),
		StaleIntelTurns:   clampInt(GetEnvInt("HIVETRAP_STALE_INTEL_TURNS", 6), 1, 1000),
		ClearVerdictTurns: clampInt(GetEnvInt("HIVETRAP_CLEAR_VERDICT_TURNS", 4), 1, 1000),

		EnableSemantics: GetEnvBool("HIVETRAP_ENABLE_SEMANTICS", false),

		SessionBackend: SessionBackend(GetEnv("HIVETRAP_SESSION_BACKEND", "memory")),
		// Floors keep sessions loadable: a zero TTL would make every
		// lookup read as absent and restart the conversation each turn.
		SessionTTL:      time.Duration(clampInt(GetEnvInt("HIVETRAP_SESSION_TTL_SECONDS", 86400), 60, 604800)) * time.Second,
		CleanupInterval: time.Duration(clampInt(GetEnvInt("HIVETRAP_CLEANUP_INTERVAL_SECONDS", 600), 5, 3600)) * time.Second,
		RedisAddr:       GetEnv("HIVETRAP_REDIS_ADDR", "localhost:6379"),
		RedisDB:         GetEnvInt("HIVETRAP_REDIS_DB", 0),

		PersonaPath: GetEnv("HIVETRAP_PERSONA_PATH", ""),
	}

	return cfg
}

// clampInt ensures a value is within bounds
func clampInt(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

func detectLLMProvider() LLMProvider {
	// Check explicit provider setting first
	if p := os.Getenv("HIVETRAP_LLM_PROVIDER"); p != "" {
		return LLMProvider(p)
	}
	// Auto-detect based on available keys
	if os.Getenv("GROQ_API_KEY") != "" {
		return ProviderGroq
	}
	if os.Getenv("OPENROUTER_API_KEY") != "" || os.Getenv("HIVETRAP_LLM_API_KEY") != "" {
		return ProviderOpenRouter
	}
	// No cloud keys: heuristics-only operation still works
	return ProviderNone
}

// Helper functions for environment variable parsing
// These are exported for use by other packages (e.g., pkg/ml)

// GetEnv returns the value of an environment variable or a default value.
func GetEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// GetEnvBool returns the boolean value of an environment variable or a default value.
func GetEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

// GetEnvFloat returns the float64 value of an environment variable or a default value.
func GetEnvFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return defaultValue
}

// GetEnvInt returns the integer value of an environment variable or a default value.
func GetEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return defaultValue
}

// RequiredSecret defines a required environment variable for startup validation
type RequiredSecret struct {
	Name        string // Environment variable name
	Description string // Human-readable description
	Production  bool   // Required in production only (false = required always)
}

// CriticalSecrets returns the list of secrets required for the gateway to operate
func CriticalSecrets() []RequiredSecret {
	return []RequiredSecret{
		{Name: "HIVETRAP_API_KEY", Description: "Shared secret for honeypot API authentication", Production: true},
	}
}

// Validate checks that all required configuration is present.
// In production mode, this returns an error if critical secrets are missing.
// In development mode, it logs warnings but allows startup for local testing.
func (c *Config) Validate() error {
	env := strings.ToLower(os.Getenv("HIVETRAP_ENV"))
	isProduction := env == "production" || env == "prod"

	var missing []string
	for _, secret := range CriticalSecrets() {
		if os.Getenv(secret.Name) != "" {
			continue
		}
		if secret.Production && !isProduction {
			log.Printf("[STARTUP] Warning: missing optional secret: %s (%s)", secret.Name, secret.Description)
			continue
		}
		missing = append(missing, secret.Name+" ("+secret.Description+")")
	}

	if c.ScamThreshold < 0 || c.ScamThreshold > 1 {
		return fmt.Errorf("HIVETRAP_SCAM_THRESHOLD must be in [0,1], got %v", c.ScamThreshold)
	}

	if c.SessionBackend != BackendMemory && c.SessionBackend != BackendRedis {
		return fmt.Errorf("HIVETRAP_SESSION_BACKEND must be %q or %q, got %q",
			BackendMemory, BackendRedis, c.SessionBackend)
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required secrets: %s", strings.Join(missing, ", "))
	}

	return nil
}

// MustValidate calls Validate and fatally exits if validation fails.
// Call this at startup before starting the server.
func (c *Config) MustValidate() {
	if err := c.Validate(); err != nil {
		log.Fatalf("[STARTUP] FATAL: configuration validation failed: %v", err)
	}
	log.Println("[STARTUP] Configuration validated successfully")
}
