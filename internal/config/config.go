package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Database     DatabaseConfig
	Redis        RedisConfig
	Auth         AuthConfig
	Server       ServerConfig
	LLM          LLMConfig
	Conversation ConversationConfig
	Slack        SlackConfig
	DemoMode     bool
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string //nolint:gosec // G117: DB connection config
	DBName   string
	SSLMode  string
	MaxConns int
}

// RedisConfig holds Redis connection settings. An empty Addr disables pub/sub.
type RedisConfig struct {
	Addr     string
	Password string //nolint:gosec // G117: Redis connection config
	DB       int
}

// AuthConfig holds JWT settings. An empty secret disables authentication.
type AuthConfig struct {
	JWTSecret string //nolint:gosec // G117: JWT signing secret config
	TokenTTL  time.Duration
}

// Enabled reports whether requests must carry a bearer token.
func (a AuthConfig) Enabled() bool {
	return a.JWTSecret != ""
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string
	RateLimit    float64
	RateBurst    int
	// ChatTurnsPerMinute bounds model-backed turns per caller; 0 disables.
	ChatTurnsPerMinute int
	WebDir             string // optional directory with a built front-end
}

// LLMConfig selects the chat model backing the assistant.
type LLMConfig struct {
	Provider        string // "openai", "anthropic", "ollama"
	Model           string
	OpenAIAPIKey    string //nolint:gosec // G117: provider credential
	OpenAIBaseURL   string
	AnthropicAPIKey string //nolint:gosec // G117: provider credential
	OllamaHost      string
	MaxSteps        int
	RequestTimeout  time.Duration
}

// ConversationConfig controls conversation identity and retention.
type ConversationConfig struct {
	AgentID       string
	Expiration    time.Duration
	SweepInterval time.Duration
	TimeZone      *time.Location
	// TurnTimeout bounds one exchange with the model, all steps included.
	// It stays below the server write timeout so a saved turn is always
	// answered.
	TurnTimeout time.Duration
}

// SlackConfig holds the HR notification channel settings.
type SlackConfig struct {
	BotToken  string
	ChannelID string
}

// Enabled reports whether issue notifications are posted to Slack.
func (s SlackConfig) Enabled() bool {
	return s.BotToken != "" && s.ChannelID != ""
}

// Load reads configuration from environment variables.
// Defaults are safe for local development only.
func Load() (*Config, error) {
	dbPort, err := getEnvInt("HRDESK_DB_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	dbMaxConns, err := getEnvInt("HRDESK_DB_MAX_CONNS", 25)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	redisDB, err := getEnvInt("HRDESK_REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	tokenTTL, err := getEnvDuration("HRDESK_JWT_TTL", 12*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	readTimeout, err := getEnvDuration("HRDESK_SERVER_READ_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	// Streamed turns hold the response open while the model reasons.
	writeTimeout, err := getEnvDuration("HRDESK_SERVER_WRITE_TIMEOUT", 2*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	rateLimit, err := getEnvFloat("HRDESK_RATE_LIMIT", 5)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	rateBurst, err := getEnvInt("HRDESK_RATE_BURST", 20)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	chatTurns, err := getEnvInt("HRDESK_CHAT_TURNS_PER_MINUTE", 20)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	maxSteps, err := getEnvInt("HRDESK_LLM_MAX_STEPS", 8)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	llmTimeout, err := getEnvDuration("HRDESK_LLM_TIMEOUT", 90*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	turnTimeout, err := getEnvDuration("HRDESK_TURN_TIMEOUT", 100*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	expiration, err := getEnvDuration("HRDESK_CONVERSATION_TTL", 30*24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	sweepInterval, err := getEnvDuration("HRDESK_CONVERSATION_SWEEP_INTERVAL", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	loc, err := getEnvLocation("HRDESK_TIMEZONE", time.Local)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	demoMode, err := getEnvBool("HRDESK_DEMO_MODE", false)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("HRDESK_DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("HRDESK_DB_USER", "hrdesk"),
			Password: getEnv("HRDESK_DB_PASSWORD", ""),
			DBName:   getEnv("HRDESK_DB_NAME", "hrdesk_dev"),
			SSLMode:  getEnv("HRDESK_DB_SSLMODE", "disable"),
			MaxConns: dbMaxConns,
		},
		Redis: RedisConfig{
			Addr:     getEnv("HRDESK_REDIS_ADDR", ""),
			Password: getEnv("HRDESK_REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("HRDESK_JWT_SECRET", ""),
			TokenTTL:  tokenTTL,
		},
		Server: ServerConfig{
			Addr:               getEnv("HRDESK_SERVER_ADDR", ":5258"),
			ReadTimeout:        readTimeout,
			WriteTimeout:       writeTimeout,
			CORSOrigins:        getEnvList("HRDESK_CORS_ORIGINS", []string{"http://localhost:3000"}),
			RateLimit:          rateLimit,
			RateBurst:          rateBurst,
			ChatTurnsPerMinute: chatTurns,
			WebDir:             getEnv("HRDESK_WEB_DIR", ""),
		},
		LLM: LLMConfig{
			Provider:        getEnv("HRDESK_LLM_PROVIDER", "openai"),
			Model:           getEnv("HRDESK_LLM_MODEL", "gpt-4o-mini"),
			OpenAIAPIKey:    getEnv("HRDESK_OPENAI_API_KEY", os.Getenv("OPENAI_API_KEY")),
			OpenAIBaseURL:   getEnv("HRDESK_OPENAI_BASE_URL", ""),
			AnthropicAPIKey: getEnv("HRDESK_ANTHROPIC_API_KEY", os.Getenv("ANTHROPIC_API_KEY")),
			OllamaHost:      getEnv("HRDESK_OLLAMA_HOST", "http://localhost:11434"),
			MaxSteps:        maxSteps,
			RequestTimeout:  llmTimeout,
		},
		Conversation: ConversationConfig{
			AgentID:       getEnv("HRDESK_AGENT_ID", "hr-assistant"),
			Expiration:    expiration,
			SweepInterval: sweepInterval,
			TimeZone:      loc,
			TurnTimeout:   turnTimeout,
		},
		Slack: SlackConfig{
			BotToken:  getEnv("HRDESK_SLACK_BOT_TOKEN", ""),
			ChannelID: getEnv("HRDESK_SLACK_CHANNEL_ID", ""),
		},
		DemoMode: demoMode,
	}

	err = cfg.validate()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return cfg, nil
}

// validate checks required fields and value bounds.
func (c *Config) validate() error {
	if c.Auth.JWTSecret == "" {
		log.Warn().Msg("HRDESK_JWT_SECRET is not set; API authentication is disabled")
	} else if len(c.Auth.JWTSecret) < 32 {
		return errors.New("HRDESK_JWT_SECRET must be at least 32 characters")
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("HRDESK_DB_PORT must be 1-65535, got %d", c.Database.Port)
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("HRDESK_DB_MAX_CONNS must be >= 1, got %d", c.Database.MaxConns)
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("HRDESK_JWT_TTL must be positive, got %s", c.Auth.TokenTTL)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("HRDESK_SERVER_READ_TIMEOUT must be positive, got %s", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("HRDESK_SERVER_WRITE_TIMEOUT must be positive, got %s", c.Server.WriteTimeout)
	}
	if c.Server.RateLimit <= 0 {
		return fmt.Errorf("HRDESK_RATE_LIMIT must be positive, got %g", c.Server.RateLimit)
	}
	if c.Server.RateBurst < 1 {
		return fmt.Errorf("HRDESK_RATE_BURST must be >= 1, got %d", c.Server.RateBurst)
	}
	if c.Server.ChatTurnsPerMinute < 0 {
		return fmt.Errorf("HRDESK_CHAT_TURNS_PER_MINUTE must be >= 0, got %d", c.Server.ChatTurnsPerMinute)
	}

	switch c.LLM.Provider {
	case "openai", "anthropic", "ollama":
	default:
		return fmt.Errorf("HRDESK_LLM_PROVIDER must be openai, anthropic or ollama, got %q", c.LLM.Provider)
	}
	if c.LLM.MaxSteps < 1 {
		return fmt.Errorf("HRDESK_LLM_MAX_STEPS must be >= 1, got %d", c.LLM.MaxSteps)
	}
	if c.LLM.RequestTimeout <= 0 {
		return fmt.Errorf("HRDESK_LLM_TIMEOUT must be positive, got %s", c.LLM.RequestTimeout)
	}

	if c.Conversation.AgentID == "" {
		return errors.New("HRDESK_AGENT_ID must not be empty")
	}
	if c.Conversation.Expiration <= 0 {
		return fmt.Errorf("HRDESK_CONVERSATION_TTL must be positive, got %s", c.Conversation.Expiration)
	}
	if c.Conversation.SweepInterval <= 0 {
		return fmt.Errorf("HRDESK_CONVERSATION_SWEEP_INTERVAL must be positive, got %s", c.Conversation.SweepInterval)
	}
	if c.Conversation.TurnTimeout <= 0 {
		return fmt.Errorf("HRDESK_TURN_TIMEOUT must be positive, got %s", c.Conversation.TurnTimeout)
	}
	if c.Conversation.TurnTimeout >= c.Server.WriteTimeout {
		return fmt.Errorf("HRDESK_TURN_TIMEOUT (%s) must be below HRDESK_SERVER_WRITE_TIMEOUT (%s)",
			c.Conversation.TurnTimeout, c.Server.WriteTimeout)
	}

	if (c.Slack.BotToken == "") != (c.Slack.ChannelID == "") {
		log.Warn().Msg("Slack notifications need both HRDESK_SLACK_BOT_TOKEN and HRDESK_SLACK_CHANNEL_ID; notifications disabled")
	}

	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as int: %w", key, v, err)
	}
	return n, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as float: %w", key, v, err)
	}
	return f, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parsing %s=%q as bool: %w", key, v, err)
	}
	return b, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as duration: %w", key, v, err)
	}
	return d, nil
}

func getEnvLocation(key string, fallback *time.Location) (*time.Location, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	loc, err := time.LoadLocation(v)
	if err != nil {
		return nil, fmt.Errorf("parsing %s=%q as time zone: %w", key, v, err)
	}
	return loc, nil
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
