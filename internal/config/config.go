package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var ErrEmptyEnvironmentVariable = errors.New("empty environment variable")

var ErrUnknownProvider = errors.New("unknown answer provider")

var ErrInvalidValue = errors.New("invalid configuration value")

// minOperatorSecretLen is the shortest HS256 key accepted for operator tokens.
const minOperatorSecretLen = 32

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Twilio   TwilioConfig
	Voice    VoiceConfig
	Answer   AnswerConfig
	Services ServicesConfig
	Redis    RedisConfig
	Database DatabaseConfig
	Recorder RecorderConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int
	// PublicBaseURL is the externally visible scheme+host Twilio signs requests against.
	PublicBaseURL string
	AllowOrigins  []string
	// AskRatePerSecond and AskBurst limit POST /api/ask per client IP.
	AskRatePerSecond float64
	AskBurst         int
	// TrustedProxies lists the proxy IPs or CIDRs whose X-Forwarded-For is
	// believed. Empty trusts none and the client IP is the peer address.
	TrustedProxies []string
	// TrustedPlatformHeader names a header set by the edge in front of the
	// server, such as CloudFront-Viewer-Address, that carries the client IP.
	TrustedPlatformHeader string
	// OperatorJWTSecret signs the bearer tokens that guard the turn log API.
	// Empty leaves the turn log API closed.
	OperatorJWTSecret string
}

// TwilioConfig holds webhook verification settings
type TwilioConfig struct {
	AuthToken         string
	ValidateSignature bool
}

// VoiceConfig holds the spoken messages and synthesis settings
type VoiceConfig struct {
	Language        string
	VoiceProfile    string
	GreetingMessage string
	PromptMessage   string
	NoSpeechMessage string
	ApologyMessage  string
	MaxReprompts    int
}

// AnswerConfig holds settings for the question-answering backend
type AnswerConfig struct {
	Provider       string
	Model          string
	EmbeddingModel string
	Timeout        time.Duration
	MaxTurns       int
	TopK           int
	IndexDir       string
	CacheTTL       time.Duration

	BreakerFailures int
	BreakerCooldown time.Duration
}

// ServicesConfig holds external service API keys
type ServicesConfig struct {
	OpenAIAPIKey   string
	GoogleAIAPIKey string
}

// RedisConfig holds the answer cache connection settings
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// DatabaseConfig holds database connection settings for the turn log
type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Username string
	Password string
	Name     string
}

// RecorderConfig sizes the turn log worker pool
type RecorderConfig struct {
	Workers   int
	QueueSize int
}

// Load reads and validates all required environment variables
func Load() (*Config, error) {
	// Load env.local in non-production environments
	if os.Getenv("GO_ENV") != "production" {
		if err := godotenv.Load("env.local"); err != nil {
			log.Printf("env.local not loaded, using process environment: %v", err)
		}
	}

	cfg := &Config{}
	var err error

	// Server configuration
	if cfg.Server.Port, err = intEnv("SERVER_PORT", "8080"); err != nil {
		return nil, err
	}
	cfg.Server.PublicBaseURL = os.Getenv("PUBLIC_BASE_URL")
	cfg.Server.AllowOrigins = splitList(getEnvWithDefault("CORS_ALLOW_ORIGINS", "http://localhost:3000"))
	if cfg.Server.AskRatePerSecond, err = floatEnv("ASK_RATE_PER_SECOND", "1"); err != nil {
		return nil, err
	}
	if cfg.Server.AskRatePerSecond <= 0 {
		return nil, fmt.Errorf("ASK_RATE_PER_SECOND must be positive, got %v: %w", cfg.Server.AskRatePerSecond, ErrInvalidValue)
	}
	if cfg.Server.AskBurst, err = intEnv("ASK_RATE_BURST", "5"); err != nil {
		return nil, err
	}
	if cfg.Server.AskBurst < 1 {
		return nil, fmt.Errorf("ASK_RATE_BURST must be at least 1, got %d: %w", cfg.Server.AskBurst, ErrInvalidValue)
	}
	cfg.Server.TrustedProxies = splitList(os.Getenv("TRUSTED_PROXIES"))
	cfg.Server.TrustedPlatformHeader = os.Getenv("TRUSTED_PLATFORM_HEADER")
	cfg.Server.OperatorJWTSecret = os.Getenv("OPERATOR_JWT_SECRET")
	if s := cfg.Server.OperatorJWTSecret; s != "" && len(s) < minOperatorSecretLen {
		return nil, fmt.Errorf("OPERATOR_JWT_SECRET must be at least %d bytes: %w", minOperatorSecretLen, ErrInvalidValue)
	}

	// Twilio configuration
	cfg.Twilio.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	if cfg.Twilio.ValidateSignature, err = boolEnv("TWILIO_VALIDATE_SIGNATURE", strconv.FormatBool(cfg.Twilio.AuthToken != "")); err != nil {
		return nil, err
	}
	if cfg.Twilio.ValidateSignature && cfg.Twilio.AuthToken == "" {
		return nil, fmt.Errorf("TWILIO_AUTH_TOKEN is required when signature validation is on: %w", ErrEmptyEnvironmentVariable)
	}

	// Voice configuration
	cfg.Voice.Language = getEnvWithDefault("VOICE_LANGUAGE", "en-US")
	cfg.Voice.VoiceProfile = getEnvWithDefault("VOICE_PROFILE", "alice")
	cfg.Voice.GreetingMessage = getEnvWithDefault("VOICE_GREETING", "Hello, please ask your question about Rapamycin.")
	cfg.Voice.PromptMessage = getEnvWithDefault("VOICE_PROMPT", "Please ask your question about Rapamycin.")
	cfg.Voice.NoSpeechMessage = getEnvWithDefault("VOICE_NO_SPEECH", "I didn't catch that. Please call again and try your question.")
	cfg.Voice.ApologyMessage = getEnvWithDefault("VOICE_APOLOGY", "I apologize, but I encountered an error processing your request.")
	if cfg.Voice.MaxReprompts, err = intEnv("VOICE_MAX_REPROMPTS", "2"); err != nil {
		return nil, err
	}

	// Answer backend configuration
	cfg.Answer.Provider = getEnvWithDefault("ANSWER_PROVIDER", ProviderOpenAI)
	if cfg.Answer.Provider != ProviderOpenAI && cfg.Answer.Provider != ProviderGemini {
		return nil, fmt.Errorf("ANSWER_PROVIDER=%q: %w", cfg.Answer.Provider, ErrUnknownProvider)
	}
	defaultModel := "gpt-4"
	if cfg.Answer.Provider == ProviderGemini {
		defaultModel = "gemini-1.5-pro"
	}
	cfg.Answer.Model = getEnvWithDefault("ANSWER_MODEL", defaultModel)
	cfg.Answer.EmbeddingModel = getEnvWithDefault("ANSWER_EMBEDDING_MODEL", "text-embedding-3-small")
	if cfg.Answer.Timeout, err = durationEnv("ANSWER_TIMEOUT", "12s"); err != nil {
		return nil, err
	}
	if cfg.Answer.MaxTurns, err = intEnv("ANSWER_MAX_TURNS", "10"); err != nil {
		return nil, err
	}
	if cfg.Answer.TopK, err = intEnv("ANSWER_TOP_K", "3"); err != nil {
		return nil, err
	}
	cfg.Answer.IndexDir = getEnvWithDefault("ANSWER_INDEX_DIR", "./storage")
	if cfg.Answer.CacheTTL, err = durationEnv("ANSWER_CACHE_TTL", "1h"); err != nil {
		return nil, err
	}
	if cfg.Answer.BreakerFailures, err = intEnv("ANSWER_BREAKER_FAILURES", "5"); err != nil {
		return nil, err
	}
	if cfg.Answer.BreakerCooldown, err = durationEnv("ANSWER_BREAKER_COOLDOWN", "30s"); err != nil {
		return nil, err
	}

	// Services configuration. Embeddings always come from OpenAI.
	if cfg.Services.OpenAIAPIKey, err = requireEnv("OPENAI_API_KEY"); err != nil {
		return nil, err
	}
	if cfg.Answer.Provider == ProviderGemini {
		if cfg.Services.GoogleAIAPIKey, err = requireEnv("GOOGLE_AI_API_KEY"); err != nil {
			return nil, err
		}
	}

	// Redis configuration
	if cfg.Redis.Enabled, err = boolEnv("REDIS_ENABLED", "false"); err != nil {
		return nil, err
	}
	cfg.Redis.Host = getEnvWithDefault("REDIS_HOST", "localhost")
	if cfg.Redis.Port, err = intEnv("REDIS_PORT", "6379"); err != nil {
		return nil, err
	}
	cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
	if cfg.Redis.DB, err = intEnv("REDIS_DB", "0"); err != nil {
		return nil, err
	}

	// Database configuration
	if cfg.Database.Enabled, err = boolEnv("DB_ENABLED", "false"); err != nil {
		return nil, err
	}
	if cfg.Database.Enabled {
		if cfg.Database.Host, err = requireEnv("DB_HOST"); err != nil {
			return nil, err
		}
		if cfg.Database.Username, err = requireEnv("DB_USERNAME"); err != nil {
			return nil, err
		}
		if cfg.Database.Password, err = requireEnv("DB_PASSWORD"); err != nil {
			return nil, err
		}
		if cfg.Database.Name, err = requireEnv("DB_NAME"); err != nil {
			return nil, err
		}
	}

	// Turn recorder configuration
	if cfg.Recorder.Workers, err = intEnv("RECORDER_WORKERS", "4"); err != nil {
		return nil, err
	}
	if cfg.Recorder.QueueSize, err = intEnv("RECORDER_QUEUE_SIZE", "256"); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ConnectionString returns a PostgreSQL connection string
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s/%s",
		c.Username, c.Password, c.Host, c.Name)
}

// requireEnv retrieves an environment variable or returns an error if empty
func requireEnv(key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("%s is not set: %w", key, ErrEmptyEnvironmentVariable)
	}
	return value, nil
}

// getEnvWithDefault retrieves an environment variable or returns a default value
func getEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func intEnv(key, defaultValue string) (int, error) {
	v, err := strconv.Atoi(getEnvWithDefault(key, defaultValue))
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", key, err)
	}
	return v, nil
}

func boolEnv(key, defaultValue string) (bool, error) {
	v, err := strconv.ParseBool(getEnvWithDefault(key, defaultValue))
	if err != nil {
		return false, fmt.Errorf("failed to parse %s: %w", key, err)
	}
	return v, nil
}

func floatEnv(key, defaultValue string) (float64, error) {
	v, err := strconv.ParseFloat(getEnvWithDefault(key, defaultValue), 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", key, err)
	}
	return v, nil
}

func durationEnv(key, defaultValue string) (time.Duration, error) {
	v, err := time.ParseDuration(getEnvWithDefault(key, defaultValue))
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", key, err)
	}
	return v, nil
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
