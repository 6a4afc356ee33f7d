package internal

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"http_server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Gateway       GatewayConfig       `mapstructure:"gateway" validate:"required"`
	Notification  NotificationConfig  `mapstructure:"notification"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port"`
	BaseURL           string        `mapstructure:"base_url"`
	AllowedOrigins    string        `mapstructure:"allowed_origins"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"required,min=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"required,min=1"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" validate:"required,min=1m"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" validate:"required,min=1m"`
	Source          string        `mapstructure:"source"`
}

// GatewayConfig covers both directions of gateway traffic: the shared secret
// the webhook verifier checks inbound deliveries against, and the API the
// reconciliation path queries for an authoritative payment status.
type GatewayConfig struct {
	WebhookSecret      string        `mapstructure:"webhook_secret" validate:"required"`
	APIURL             string        `mapstructure:"api_url" validate:"required,url"`
	APIKey             string        `mapstructure:"api_key"`
	RequestTimeout     time.Duration `mapstructure:"request_timeout"`
	SignatureTolerance time.Duration `mapstructure:"signature_tolerance"`
}

type NotificationConfig struct {
	BaseURL         string        `mapstructure:"base_url" validate:"required,url"`
	PlatformFeeRate float64       `mapstructure:"platform_fee_rate" validate:"min=0,max=1"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
}

type ObservabilityConfig struct {
	Logging LoggingConfig `mapstructure:"logging"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"required,oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"required,oneof=json text"`
}

// ----------------- VALIDATION -----------------

func (c *Config) Validate() error {
	var errs []string

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("database config: %v", err))
	}

	if err := c.Gateway.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("gateway config: %v", err))
	}

	if err := c.Notification.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("notification config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.AllowedOrigins != "" {
		origins := strings.Split(c.AllowedOrigins, ",")
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin == "*" {
				continue
			}
			if _, err := url.Parse(origin); err != nil {
				return fmt.Errorf("invalid allowed origin %s: %w", origin, err)
			}
		}
	}
	if c.ReadTimeout < c.ReadHeaderTimeout {
		return errors.New("read_timeout must be >= read_header_timeout")
	}
	return nil
}

func (c *DatabaseConfig) Validate() error {
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

func (c *GatewayConfig) Validate() error {
	if c.WebhookSecret == "" {
		return errors.New("webhook_secret is required")
	}
	if c.APIURL == "" {
		return errors.New("api_url is required")
	}
	return nil
}

// SignatureToleranceOrDefault bounds how stale a signed delivery may be.
func (c *GatewayConfig) SignatureToleranceOrDefault() time.Duration {
	if c.SignatureTolerance <= 0 {
		return 5 * time.Minute
	}
	return c.SignatureTolerance
}

func (c *NotificationConfig) Validate() error {
	if c.BaseURL == "" {
		return errors.New("base_url is required")
	}
	if c.PlatformFeeRate < 0 || c.PlatformFeeRate >= 1 {
		return errors.New("platform_fee_rate must be in [0, 1)")
	}
	return nil
}
