package core

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
)

// DefaultURL is the production WebSocket endpoint.
const DefaultURL = "wss://ws.cex.io/ws"

// Config contains the options for a WebSocket session: endpoint, keepalive,
// reconnection, outbound rate limiting and the auth circuit breaker.
// Credentials are deliberately not part of Config; they are supplied as
// signers so the secret never sits in a serializable struct.
type Config struct {
	URL string `json:"url" yaml:"url" validate:"required,url"`

	// ReadTimeout bounds the silence between two inbound frames. The server
	// pings roughly every 15 seconds, so this should comfortably exceed that.
	ReadTimeout       time.Duration `json:"read_timeout" yaml:"read_timeout" validate:"min=1ms"`
	RequestTimeout    time.Duration `json:"request_timeout" yaml:"request_timeout" validate:"min=1ms"`
	ReconnectEnabled  bool          `json:"reconnect_enabled" yaml:"reconnect_enabled"`
	ReconnectBaseWait time.Duration `json:"reconnect_base_wait" yaml:"reconnect_base_wait" validate:"min=0"`
	ReconnectMaxWait  time.Duration `json:"reconnect_max_wait" yaml:"reconnect_max_wait" validate:"min=0"`
	BufferSize        int           `json:"buffer_size" yaml:"buffer_size" validate:"min=1"`

	RateLimitRequests int           `json:"rate_limit_requests" yaml:"rate_limit_requests" validate:"min=1"`
	RateLimitPeriod   time.Duration `json:"rate_limit_period" yaml:"rate_limit_period" validate:"min=1ms"`

	CircuitBreakerEnabled          bool          `json:"circuit_breaker_enabled" yaml:"circuit_breaker_enabled"`
	CircuitBreakerFailThreshold    int           `json:"circuit_breaker_fail_threshold" yaml:"circuit_breaker_fail_threshold"`
	CircuitBreakerSuccessThreshold int           `json:"circuit_breaker_success_threshold" yaml:"circuit_breaker_success_threshold"`
	CircuitBreakerTimeout          time.Duration `json:"circuit_breaker_timeout" yaml:"circuit_breaker_timeout"`

	LogLevel string `json:"log_level" yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
}

// DefaultConfig returns a Config initialized with sensible defaults.
// Default values: 30s read timeout, 10s request timeout, reconnect with 1s-30s
// backoff, 600 requests per 10 minutes, breaker opening after 3 failed auths
// for 1 minute.
func DefaultConfig() *Config {
	return &Config{
		URL:               DefaultURL,
		ReadTimeout:       30 * time.Second,
		RequestTimeout:    10 * time.Second,
		ReconnectEnabled:  true,
		ReconnectBaseWait: 1 * time.Second,
		ReconnectMaxWait:  30 * time.Second,
		BufferSize:        256,

		RateLimitRequests: 600,
		RateLimitPeriod:   10 * time.Minute,

		CircuitBreakerEnabled:          true,
		CircuitBreakerFailThreshold:    3,
		CircuitBreakerSuccessThreshold: 1,
		CircuitBreakerTimeout:          time.Minute,

		LogLevel: "info",
	}
}

var validate = validator.New()

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.ReconnectEnabled && c.ReconnectMaxWait < c.ReconnectBaseWait {
		return errors.New("ReconnectMaxWait must not be below ReconnectBaseWait")
	}
	if c.CircuitBreakerEnabled {
		if c.CircuitBreakerFailThreshold <= 0 {
			return errors.New("CircuitBreakerFailThreshold must be positive when enabled")
		}
		if c.CircuitBreakerSuccessThreshold <= 0 {
			return errors.New("CircuitBreakerSuccessThreshold must be positive when enabled")
		}
		if c.CircuitBreakerTimeout <= 0 {
			return errors.New("CircuitBreakerTimeout must be positive when enabled")
		}
	}
	return nil
}

// WithURL sets the WebSocket endpoint and returns the config for chaining.
func (c *Config) WithURL(url string) *Config {
	c.URL = url
	return c
}

// WithRequestTimeout sets how long a request waits for its response and returns the config for chaining.
func (c *Config) WithRequestTimeout(timeout time.Duration) *Config {
	c.RequestTimeout = timeout
	return c
}

// WithRateLimit sets the outbound rate limit and returns the config for chaining.
func (c *Config) WithRateLimit(requests int, period time.Duration) *Config {
	c.RateLimitRequests = requests
	c.RateLimitPeriod = period
	return c
}

// WithReconnect enables or disables automatic reconnection and returns the config for chaining.
func (c *Config) WithReconnect(enabled bool) *Config {
	c.ReconnectEnabled = enabled
	return c
}

// WithLogLevel sets the log level and returns the config for chaining.
func (c *Config) WithLogLevel(level string) *Config {
	c.LogLevel = level
	return c
}
