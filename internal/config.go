package internal

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"http_server" envPrefix:"HTTP_"`
	Database      DatabaseConfig      `mapstructure:"database" envPrefix:"DB_"`
	Security      SecurityConfig      `mapstructure:"security" envPrefix:"SECURITY_"`
	Observability ObservabilityConfig `mapstructure:"observability" envPrefix:"OBS_"`
	Visibility    VisibilityConfig    `mapstructure:"visibility" envPrefix:"VISIBILITY_"`
	Notification  NotificationConfig  `mapstructure:"notification" envPrefix:"NOTIFICATION_"`
	RateLimit     RateLimitConfig     `mapstructure:"rate_limit" envPrefix:"RATE_LIMIT_"`
	Env           string              `mapstructure:"env" env:"APP_ENV" envDefault:"development"`
}

type ServerConfig struct {
	Port              int           `mapstructure:"port" env:"PORT" envDefault:"8080"`
	BaseURL           string        `mapstructure:"base_url" env:"BASE_URL"`
	AllowedOrigins    string        `mapstructure:"allowed_origins" env:"ALLOWED_ORIGINS" envDefault:"*"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" env:"READ_HEADER_TIMEOUT" envDefault:"5s"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout" env:"READ_TIMEOUT" envDefault:"15s"`
	IdleTimeout       time.Duration `mapstructure:"idle_timeout" env:"IDLE_TIMEOUT" envDefault:"60s"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout" env:"WRITE_TIMEOUT" envDefault:"15s"`
}

type DatabaseConfig struct {
	MaxOpenConns    int           `mapstructure:"max_open_conns" env:"MAX_OPEN_CONNS" envDefault:"20"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" env:"MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" env:"CONN_MAX_LIFETIME" envDefault:"30m"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" env:"CONN_MAX_IDLE_TIME" envDefault:"5m"`
	Source          string        `mapstructure:"source" env:"SOURCE,required"`
}

type SecurityConfig struct {
	AccessTokenSecret    string        `mapstructure:"access_token_secret" env:"ACCESS_TOKEN_SECRET,required"`
	RefreshTokenSecret   string        `mapstructure:"refresh_token_secret" env:"REFRESH_TOKEN_SECRET,required"`
	AccessTokenDuration  time.Duration `mapstructure:"access_token_duration" env:"ACCESS_TOKEN_DURATION" envDefault:"15m"`
	RefreshTokenDuration time.Duration `mapstructure:"refresh_token_duration" env:"REFRESH_TOKEN_DURATION" envDefault:"168h"`
	BCryptCost           int           `mapstructure:"bcrypt_cost" env:"BCRYPT_COST" envDefault:"10"`
}

type ObservabilityConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics" envPrefix:"METRICS_"`
	Tracing TracingConfig `mapstructure:"tracing" envPrefix:"TRACING_"`
	Logging LoggingConfig `mapstructure:"logging" envPrefix:"LOG_"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" env:"ENABLED" envDefault:"true"`
	Path    string `mapstructure:"path" env:"PATH" envDefault:"/metrics"`
}

type TracingConfig struct {
	Enabled      bool    `mapstructure:"enabled" env:"ENABLED"`
	ServiceName  string  `mapstructure:"service_name" env:"SERVICE_NAME" envDefault:"opsboard"`
	SamplingRate float64 `mapstructure:"sampling_rate" env:"SAMPLING_RATE" envDefault:"0.1"`
	Endpoint     string  `mapstructure:"endpoint" env:"ENDPOINT"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level" env:"LEVEL" envDefault:"info"`
	Format string `mapstructure:"format" env:"FORMAT" envDefault:"json"`
}

// VisibilityConfig selects how far down the reporting chain a non-elevated
// user can see. "direct" only covers direct reports.
type VisibilityConfig struct {
	Mode     string `mapstructure:"mode" env:"MODE" envDefault:"direct"`
	MaxDepth int    `mapstructure:"max_depth" env:"MAX_DEPTH" envDefault:"32"`
}

type NotificationConfig struct {
	MaxWorkers int `mapstructure:"max_workers" env:"MAX_WORKERS" envDefault:"4"`
	QueueSize  int `mapstructure:"queue_size" env:"QUEUE_SIZE" envDefault:"100"`
}

type RateLimitConfig struct {
	// Login uses the limiter formatted rate, e.g. "10-M".
	Login string `mapstructure:"login" env:"LOGIN" envDefault:"10-M"`
}

// LoadConfigFromEnv reads an optional .env file and then parses the process
// environment into Config.
func LoadConfigFromEnv() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("error parsing environment: %w", err)
	}
	return &cfg, nil
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

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if err := c.Visibility.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("visibility config: %v", err))
	}

	if err := c.Observability.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("observability config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

func (c *ServerConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	if c.AllowedOrigins != "" {
		for _, origin := range c.Origins() {
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

// Origins splits AllowedOrigins into trimmed entries.
func (c *ServerConfig) Origins() []string {
	if c.AllowedOrigins == "" {
		return nil
	}
	var origins []string
	for _, origin := range strings.Split(c.AllowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

func (c *DatabaseConfig) Validate() error {
	if c.Source == "" {
		return errors.New("source is required")
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return errors.New("max_idle_conns cannot be greater than max_open_conns")
	}
	return nil
}

func (c *DatabaseConfig) GetDSN() string {
	return c.Source
}

func (c *SecurityConfig) Validate() error {
	if len(c.AccessTokenSecret) < 32 {
		return errors.New("access token secret must be at least 32 characters")
	}
	if len(c.RefreshTokenSecret) < 32 {
		return errors.New("refresh token secret must be at least 32 characters")
	}
	if c.AccessTokenSecret == c.RefreshTokenSecret {
		return errors.New("access and refresh token secrets must differ")
	}
	if c.BCryptCost != 0 && (c.BCryptCost < 10 || c.BCryptCost > 15) {
		return errors.New("bcrypt_cost must be between 10 and 15")
	}
	return nil
}

func (c *VisibilityConfig) Validate() error {
	switch c.Mode {
	case "", "direct", "transitive":
	default:
		return fmt.Errorf("mode must be direct or transitive, got %q", c.Mode)
	}
	if c.MaxDepth < 0 {
		return errors.New("max_depth cannot be negative")
	}
	return nil
}

func (c *ObservabilityConfig) Validate() error {
	if c.Tracing.Enabled && c.Tracing.Endpoint == "" {
		return errors.New("tracing endpoint is required when tracing is enabled")
	}
	if c.Tracing.SamplingRate < 0 || c.Tracing.SamplingRate > 1 {
		return errors.New("sampling_rate must be between 0 and 1")
	}
	if c.Metrics.Enabled && c.Metrics.Path == "" {
		return errors.New("metrics path is required when metrics are enabled")
	}
	return nil
}
