// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type ServerConfig struct {
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	PoolSize int    `yaml:"pool_size"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type AuthConfig struct {
	// JWTSecret verifies tokens minted by the session module. The engine only
	// reads the already-verified subject claim.
	JWTSecret string `yaml:"jwt_secret"`
}

// UnknownSubscriptionPolicy selects what happens when a non-creation event
// references a subscription that has not been created locally yet (provider
// creation/update webhook race).
type UnknownSubscriptionPolicy string

const (
	UnknownSubscriptionUpsert UnknownSubscriptionPolicy = "upsert"
	UnknownSubscriptionReject UnknownSubscriptionPolicy = "reject"
)

type BillingConfig struct {
	// WebhookSecret signs inbound webhook bodies (HMAC-SHA256, hex).
	WebhookSecret string `yaml:"webhook_secret"`
	WebhookPath   string `yaml:"webhook_path"`
	// CatalogSync: when true, unknown products are upserted from event
	// attributes; when false an unknown product id is a hard error.
	CatalogSync         bool                      `yaml:"catalog_sync"`
	UnknownSubscription UnknownSubscriptionPolicy `yaml:"unknown_subscription"`
	DedupTTL            time.Duration             `yaml:"dedup_ttl"`
}

type Config struct {
	Log      LogConfig      `yaml:"log"`
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Auth     AuthConfig     `yaml:"auth"`
	Billing  BillingConfig  `yaml:"billing"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RequestTimeout <= 0 {
		cfg.Server.RequestTimeout = 15 * time.Second
	}
	if cfg.Database.PoolSize <= 0 {
		cfg.Database.PoolSize = 10
	}
	if cfg.Billing.WebhookPath == "" {
		cfg.Billing.WebhookPath = "/webhook/billing"
	}
	if cfg.Billing.UnknownSubscription == "" {
		cfg.Billing.UnknownSubscription = UnknownSubscriptionUpsert
	}
	if cfg.Billing.DedupTTL <= 0 {
		cfg.Billing.DedupTTL = 72 * time.Hour
	}

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Billing.WebhookSecret == "" {
		return nil, errors.New("billing.webhook_secret is required")
	}
	switch cfg.Billing.UnknownSubscription {
	case UnknownSubscriptionUpsert, UnknownSubscriptionReject:
	default:
		return nil, fmt.Errorf("billing.unknown_subscription: unknown policy %q", cfg.Billing.UnknownSubscription)
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
