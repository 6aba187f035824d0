// Package config defines the process configuration. A Config is built once
// in main, validated, and handed to constructors; nothing reads it globally.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"sanctions-gateway/internal/decision"
)

// Config is the full service configuration.
type Config struct {
	Service    Service             `koanf:"service"`
	Server     Server              `koanf:"server"`
	Matcher    Matcher             `koanf:"matcher"`
	Thresholds decision.Thresholds `koanf:"thresholds"`
	Response   Response            `koanf:"response"`
	Audit      Audit               `koanf:"audit"`
	Cache      Cache               `koanf:"cache"`
	Log        Log                 `koanf:"log"`
}

// Service identifies the deployment in responses and logs.
type Service struct {
	Name    string `koanf:"name"`
	Version string `koanf:"version"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr              string        `koanf:"addr"`
	ReadHeaderTimeout time.Duration `koanf:"read_header_timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
	// RequestTimeout bounds one screening end to end, all dataset queries included.
	RequestTimeout time.Duration `koanf:"request_timeout"`
}

// Matcher configures the external entity-matching service.
type Matcher struct {
	BaseURL          string        `koanf:"base_url"`
	Timeout          time.Duration `koanf:"timeout"`
	ConnectTimeout   time.Duration `koanf:"connect_timeout"`
	Datasets         []string      `koanf:"datasets"`
	MaxRetries       uint64        `koanf:"max_retries"`
	RetryBackoff     time.Duration `koanf:"retry_backoff"`
	MaxConcurrency   int           `koanf:"max_concurrency"`
	BreakerFailures  int           `koanf:"breaker_failures"`
	BreakerSuccesses int           `koanf:"breaker_successes"`
	BreakerCooldown  time.Duration `koanf:"breaker_cooldown"`
	// ReadinessCheck calls /readyz before every screening.
	ReadinessCheck bool `koanf:"readiness_check"`
}

// Response shapes the screening response.
type Response struct {
	MaxMatches int `koanf:"max_matches"`
}

// Audit configures the audit trail sinks.
type Audit struct {
	Dir        string `koanf:"dir"`
	FileName   string `koanf:"file_name"`
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
	MaxAgeDays int    `koanf:"max_age_days"`
	BufferSize int    `koanf:"buffer_size"`
	Kafka      Kafka  `koanf:"kafka"`
}

// Kafka enables the audit topic sink when Brokers is non-empty.
type Kafka struct {
	Brokers []string `koanf:"brokers"`
	Topic   string   `koanf:"topic"`
}

// Cache enables the matcher response cache when RedisURL is set.
type Cache struct {
	RedisURL     string        `koanf:"redis_url"`
	TTL          time.Duration `koanf:"ttl"`
	PoolSize     int           `koanf:"pool_size"`
	DialTimeout  time.Duration `koanf:"dial_timeout"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

// Log configures the process logger.
type Log struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		Service: Service{
			Name:    "Sanctions Screening API",
			Version: "1.0.0",
		},
		Server: Server{
			Addr:              ":8080",
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			RequestTimeout:    30 * time.Second,
		},
		Matcher: Matcher{
			BaseURL:          "http://127.0.0.1:5000",
			Timeout:          15 * time.Second,
			ConnectTimeout:   5 * time.Second,
			Datasets:         []string{"us_ofac_sdn", "un_sc_sanctions"},
			MaxRetries:       2,
			RetryBackoff:     200 * time.Millisecond,
			MaxConcurrency:   4,
			BreakerFailures:  5,
			BreakerSuccesses: 2,
			BreakerCooldown:  10 * time.Second,
			ReadinessCheck:   true,
		},
		Thresholds: decision.DefaultThresholds(),
		Response: Response{
			MaxMatches: 10,
		},
		Audit: Audit{
			Dir:        "logs/audit",
			FileName:   "screening.log",
			MaxSizeMB:  100,
			MaxBackups: 90,
			MaxAgeDays: 90,
			BufferSize: 1024,
			Kafka: Kafka{
				Topic: "sanctions.audit",
			},
		},
		Cache: Cache{
			TTL:          5 * time.Minute,
			PoolSize:     10,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  500 * time.Millisecond,
			WriteTimeout: 500 * time.Millisecond,
		},
		Log: Log{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate rejects configurations the service must not start with. Invalid
// thresholds are fatal: the process exits before accepting traffic.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Thresholds.Validate(); err != nil {
		errs = append(errs, err)
	}
	if strings.TrimSpace(c.Server.Addr) == "" {
		errs = append(errs, errors.New("server.addr must not be empty"))
	}
	if c.Server.RequestTimeout <= 0 {
		errs = append(errs, errors.New("server.request_timeout must be positive"))
	}

	if u, err := url.Parse(c.Matcher.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("matcher.base_url %q is not an absolute URL", c.Matcher.BaseURL))
	}
	if c.Matcher.Timeout <= 0 || c.Matcher.ConnectTimeout <= 0 {
		errs = append(errs, errors.New("matcher timeouts must be positive"))
	}
	if len(c.Matcher.Datasets) == 0 {
		errs = append(errs, errors.New("matcher.datasets must list at least one dataset"))
	}
	seen := make(map[string]struct{}, len(c.Matcher.Datasets))
	for _, ds := range c.Matcher.Datasets {
		if strings.TrimSpace(ds) == "" {
			errs = append(errs, errors.New("matcher.datasets contains an empty name"))
			continue
		}
		if _, dup := seen[ds]; dup {
			errs = append(errs, fmt.Errorf("matcher.datasets lists %q twice", ds))
		}
		seen[ds] = struct{}{}
	}
	if c.Matcher.MaxConcurrency < 1 {
		errs = append(errs, errors.New("matcher.max_concurrency must be at least 1"))
	}

	if c.Response.MaxMatches < 1 {
		errs = append(errs, errors.New("response.max_matches must be at least 1"))
	}
	if c.Audit.MaxSizeMB < 1 || c.Audit.BufferSize < 1 {
		errs = append(errs, errors.New("audit.max_size_mb and audit.buffer_size must be at least 1"))
	}
	if len(c.Audit.Kafka.Brokers) > 0 && c.Audit.Kafka.Topic == "" {
		errs = append(errs, errors.New("audit.kafka.topic is required when brokers are set"))
	}
	if c.Cache.RedisURL != "" && c.Cache.TTL <= 0 {
		errs = append(errs, errors.New("cache.ttl must be positive when the cache is enabled"))
	}

	return errors.Join(errs...)
}
