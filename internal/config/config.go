package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"go.uber.org/zap/zapcore"

	"pipay/internal/domain/webhooks"
	"pipay/internal/payments"
	"pipay/internal/ratelimiter"
)

const EnvProduction = "production"

type Config struct {
	Port            string        `env:"PORT" envDefault:"3000"`
	Addr            string        `env:"ADDR"`
	Env             string        `env:"ENV" envDefault:"development"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	APIBasePath     string        `env:"API_BASE_PATH" envDefault:"/api"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"5s"`
	AllowedOrigins  []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"*"`

	Pi          PiConfig
	Webhook     WebhookConfig
	RateLimiter ratelimiter.Config
	Auth        BasicAuthConfig
	Kafka       KafkaConfig
}

type PiConfig struct {
	APIKey      string        `env:"PI_API_KEY"`
	PrivateKey  string        `env:"PI_APP_PRIV_KEY"`
	AppSlug     string        `env:"PI_APP_SLUG"`
	AppDomain   string        `env:"PI_APP_DOMAIN"`
	Sandbox     bool          `env:"PI_SANDBOX" envDefault:"true"`
	BaseURL     string        `env:"PI_API_BASE"`
	Timeout     time.Duration `env:"PI_TIMEOUT" envDefault:"30s"`
	AutoApprove bool          `env:"PI_AUTO_APPROVE" envDefault:"false"`
}

type WebhookConfig struct {
	Delay   time.Duration `env:"WEBHOOK_DELAY" envDefault:"100ms"`
	Timeout time.Duration `env:"WEBHOOK_TIMEOUT" envDefault:"30s"`
}

// BasicAuthConfig guards operational endpoints. Empty credentials leave them open.
type BasicAuthConfig struct {
	User string `env:"AUTH_BASIC_USER"`
	Pass string `env:"AUTH_BASIC_PASS"`
}

type KafkaConfig struct {
	Brokers []string `env:"KAFKA_BROKERS" envSeparator:","`
	Topic   string   `env:"KAFKA_TOPIC" envDefault:"pi.payments"`
}

// Load reads the environment, fills derived defaults and validates the result.
// Missing provider credentials are not an error; see HasProviderConfig.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	if cfg.Addr == "" {
		cfg.Addr = ":" + cfg.Port
	}
	cfg.APIBasePath = normalizeBasePath(cfg.APIBasePath)
	if cfg.Pi.BaseURL == "" {
		cfg.Pi.BaseURL = payments.ProductionBaseURL
		if cfg.Pi.Sandbox {
			cfg.Pi.BaseURL = payments.SandboxBaseURL
		}
	}
	cfg.Kafka.Brokers = compact(cfg.Kafka.Brokers)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("ADDR or PORT is required"))
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("invalid LOG_LEVEL %q", c.LogLevel))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("SHUTDOWN_TIMEOUT must be positive"))
	}
	if c.Pi.Timeout <= 0 {
		errs = append(errs, errors.New("PI_TIMEOUT must be positive"))
	}
	if !strings.HasPrefix(c.Pi.BaseURL, "http://") && !strings.HasPrefix(c.Pi.BaseURL, "https://") {
		errs = append(errs, fmt.Errorf("invalid PI_API_BASE %q", c.Pi.BaseURL))
	}
	if c.Webhook.Delay < 0 {
		errs = append(errs, errors.New("WEBHOOK_DELAY must not be negative"))
	}
	if c.Webhook.Timeout <= 0 {
		errs = append(errs, errors.New("WEBHOOK_TIMEOUT must be positive"))
	}
	if c.RateLimiter.Enabled && (c.RateLimiter.RequestsPerTimeFrame <= 0 || c.RateLimiter.TimeFrame <= 0) {
		errs = append(errs, errors.New("RATELIMITER_REQUESTS_COUNT and RATELIMITER_WINDOW must be positive"))
	}
	if (c.Auth.User == "") != (c.Auth.Pass == "") {
		errs = append(errs, errors.New("AUTH_BASIC_USER and AUTH_BASIC_PASS must be set together"))
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.Topic == "" {
		errs = append(errs, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set"))
	}
	return errors.Join(errs...)
}

// HasProviderConfig reports whether both the API key and the signing key are set.
func (c Config) HasProviderConfig() bool {
	return c.Pi.APIKey != "" && c.Pi.PrivateKey != ""
}

// Environment names the provider network in use.
func (c Config) Environment() string {
	if c.Pi.Sandbox {
		return "sandbox"
	}
	return "production"
}

func (c Config) IsProduction() bool { return c.Env == EnvProduction }

func (c Config) Level() zapcore.Level {
	lvl, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}

func (c Config) PaymentsConfig() payments.PiConfig {
	return payments.PiConfig{
		APIKey:    c.Pi.APIKey,
		AppSlug:   c.Pi.AppSlug,
		AppDomain: c.Pi.AppDomain,
		Sandbox:   c.Pi.Sandbox,
		BaseURL:   c.Pi.BaseURL,
		Timeout:   c.Pi.Timeout,
	}
}

func (c Config) ReconcilerConfig() webhooks.Config {
	return webhooks.Config{
		AutoApprove: c.Pi.AutoApprove,
		Delay:       c.Webhook.Delay,
		Timeout:     c.Webhook.Timeout,
	}
}

func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	p = strings.TrimRight(p, "/")
	if p == "" {
		return ""
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

func compact(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
