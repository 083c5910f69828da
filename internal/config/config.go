package config

import (
	"fmt"

	"github.com/Netflix/go-env"
)

type Config struct {
	NovuAPIKey    string `env:"NOVU_API_KEY,required=true"`
	NovuServerURL string `env:"NOVU_SERVER_URL,default=https://api.novu.co"`

	DatabaseDSN string `env:"DATABASE_DSN,required=true"`
	RedisURL    string `env:"REDIS_URL,required=true"`

	// RabbitMQURL is only needed by the queue consumer binary.
	RabbitMQURL string `env:"RABBITMQ_URL"`

	// WebhookSecret enables HMAC verification of inbound webhooks when set.
	WebhookSecret string `env:"WEBHOOK_SECRET"`

	IngestConcurrency      int    `env:"INGEST_CONCURRENCY,default=8"`
	TriggerRateLimitPerSec int    `env:"TRIGGER_RATE_LIMIT_PER_SEC,default=100"`
	APIPort                int    `env:"API_PORT,default=8080"`
	LogLevel               string `env:"LOG_LEVEL,default=info"`
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
