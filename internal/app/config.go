package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (SHOP_ prefix), flags, or YAML config files.
type Config struct {
	Addr          string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL   string `usage:"PostgreSQL connection URL (SHOP_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	RedisURL      string `default:"redis://localhost:6379/0" usage:"Redis URL for carts (SHOP_REDIS_URL or REDIS_URL)" flag:"redis-url"`
	ImageBaseURL  string `default:"" usage:"Base URL for relative product image paths" flag:"image-base-url"`
	APIKeyPepper  string `usage:"HMAC pepper for API key hashing (SHOP_API_KEY_PEPPER)" flag:"api-key-pepper"`
	SecureCookies bool   `default:"false" usage:"Mark the cart session cookie Secure" flag:"secure-cookies"`
	Cart          CartConfig
	Checkout      CheckoutConfig
	Kafka         KafkaConfig
	RateLimit     RateLimitConfig
	CORS          CORSConfig
	Graceful      GracefulConfig
}

// CartConfig controls cart storage.
type CartConfig struct {
	TTL time.Duration `default:"0s" usage:"Idle cart expiry; 0 keeps carts until checkout or clear" flag:"cart-ttl"`
}

// CheckoutConfig controls the checkout pipeline.
type CheckoutConfig struct {
	StrictPricing bool `default:"false" usage:"Reject checkouts with unaccepted price changes" flag:"strict-pricing"`
}

// KafkaConfig controls order event publishing. Publishing is disabled when
// Brokers is empty.
type KafkaConfig struct {
	Brokers string `default:"" usage:"Comma-separated Kafka brokers for order events" flag:"kafka-brokers"`
	Topic   string `default:"storefront.orders" usage:"Kafka topic for order events" flag:"kafka-topic"`
}

// RateLimitConfig controls the per-client rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "SHOP",
		Files:     []string{"config.yaml", "/etc/storefront/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults(os.Getenv)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.DatabaseURL == "":
		return errors.New("database URL is required: set SHOP_DATABASE_URL or DATABASE_URL")
	case c.RedisURL == "":
		return errors.New("redis URL is required: set SHOP_REDIS_URL or REDIS_URL")
	case c.Cart.TTL < 0:
		return errors.New("cart TTL must not be negative")
	}
	return nil
}

// applyPlatformDefaults maps platform-provided variables (Railway, Render,
// etc.) such as DATABASE_URL, REDIS_URL and PORT onto the configuration.
func (c *Config) applyPlatformDefaults(getenv func(string) string) {
	if c.DatabaseURL == "" {
		c.DatabaseURL = getenv("DATABASE_URL")
	}
	if v := getenv("REDIS_URL"); v != "" && getenv("SHOP_REDIS_URL") == "" {
		c.RedisURL = v
	}
	if port := getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}
