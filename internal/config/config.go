package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

var knownWeakTokens = []string{
	"change-me", "dev-secret-change-me", "secret", "token", "verify",
}

type Config struct {
	Port        int    `env:"PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL,required"`
	RedisURL    string `env:"REDIS_URL,required"`

	WhatsAppToken      string `env:"WHATSAPP_TOKEN,required"`
	WhatsAppPhoneID    string `env:"WHATSAPP_PHONE_ID,required"`
	WhatsAppCatalogID  string `env:"WHATSAPP_CATALOG_ID"`
	WebhookVerifyToken string `env:"WEBHOOK_VERIFY_TOKEN,required"`
	WebhookAppSecret   string `env:"WEBHOOK_APP_SECRET"`

	AIAPIKey  string `env:"AI_API_KEY,required"`
	AIBaseURL string `env:"AI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	AIModel   string `env:"AI_MODEL" envDefault:"gpt-4o-mini"`

	FulfillmentURL   string `env:"FULFILLMENT_URL"`
	FulfillmentToken string `env:"FULFILLMENT_TOKEN"`

	TranscriptionEnabled bool `env:"TRANSCRIPTION_ENABLED" envDefault:"false"`

	DedupBackend  string `env:"DEDUP_BACKEND" envDefault:"memory"`
	DedupCapacity int    `env:"DEDUP_CAPACITY" envDefault:"1000"`

	SessionTTLDays        int    `env:"SESSION_TTL_DAYS" envDefault:"7"`
	HistoryLimit          int    `env:"HISTORY_LIMIT" envDefault:"50"`
	StaleThresholdSeconds int    `env:"STALE_THRESHOLD_SECONDS" envDefault:"120"`
	AITimeoutSeconds      int    `env:"AI_TIMEOUT_SECONDS" envDefault:"30"`
	SendTimeoutSeconds    int    `env:"SEND_TIMEOUT_SECONDS" envDefault:"15"`
	WebhookRatePerMin     int    `env:"WEBHOOK_RATE_PER_MIN" envDefault:"120"`
	LogLevel              string `env:"LOG_LEVEL" envDefault:"info"`
}

func (c *Config) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLDays) * 24 * time.Hour
}

func (c *Config) StaleThreshold() time.Duration {
	return time.Duration(c.StaleThresholdSeconds) * time.Second
}

func (c *Config) AITimeout() time.Duration {
	return time.Duration(c.AITimeoutSeconds) * time.Second
}

func (c *Config) SendTimeout() time.Duration {
	return time.Duration(c.SendTimeoutSeconds) * time.Second
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) Validate(isProduction bool) error {
	switch c.DedupBackend {
	case "memory", "redis":
	default:
		return fmt.Errorf("DEDUP_BACKEND must be \"memory\" or \"redis\", got %q", c.DedupBackend)
	}
	if c.DedupCapacity <= 0 {
		return fmt.Errorf("DEDUP_CAPACITY must be positive")
	}

	if isProduction {
		if err := validateToken("WEBHOOK_VERIFY_TOKEN", c.WebhookVerifyToken); err != nil {
			return err
		}
		if c.WebhookAppSecret == "" {
			log.Warn().Msg("WEBHOOK_APP_SECRET is empty in production: webhook signature verification disabled")
		}
		if c.FulfillmentURL == "" {
			log.Warn().Msg("FULFILLMENT_URL is empty in production: confirmed orders will not reach operators")
		}
		if strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
	}

	return nil
}

func validateToken(name, value string) error {
	if len(value) < 16 {
		return fmt.Errorf("%s must be at least 16 characters in production (generate with: openssl rand -base64 16)", name)
	}
	for _, weak := range knownWeakTokens {
		if value == weak {
			return fmt.Errorf("%s is a known weak default; set a strong token in production", name)
		}
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
