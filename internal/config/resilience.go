package config

import (
	"fmt"
	"strings"
	"time"
)

// ResilienceConfig configures the client transport guards. None of them retries a request.
type ResilienceConfig struct {
	RateLimit      RateLimitConfig      `koanf:"ratelimit"`
	CircuitBreaker CircuitBreakerConfig `koanf:"circuitbreaker"`
}

// RateLimitConfig limits outgoing requests per second. RPS of 0 disables the limiter.
type RateLimitConfig struct {
	RPS   float64 `koanf:"rps"`
	Burst int     `koanf:"burst"`
}

type CircuitBreakerConfig struct {
	Enabled             bool          `koanf:"enabled"`
	ConsecutiveFailures uint32        `koanf:"consecutivefailures"`
	OpenTimeout         time.Duration `koanf:"opentimeout"`
}

// String returns a string representation of the ResilienceConfig.
func (c *ResilienceConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Rate Limit ---\n")
	b.WriteString(fmt.Sprintf("  rps: %v\n", c.RateLimit.RPS))
	b.WriteString(fmt.Sprintf("  burst: %d\n", c.RateLimit.Burst))
	b.WriteString("\n--- Circuit Breaker ---\n")
	b.WriteString(fmt.Sprintf("  enabled: %t\n", c.CircuitBreaker.Enabled))
	b.WriteString(fmt.Sprintf("  consecutivefailures: %d\n", c.CircuitBreaker.ConsecutiveFailures))
	b.WriteString(fmt.Sprintf("  opentimeout: %v\n", c.CircuitBreaker.OpenTimeout))
	return b.String()
}

func (c *ResilienceConfig) Validate() error {
	if c.RateLimit.RPS < 0 {
		return fmt.Errorf("ratelimit.rps must not be negative")
	}
	if c.RateLimit.RPS > 0 && c.RateLimit.Burst <= 0 {
		return fmt.Errorf("ratelimit.burst must be greater than 0 when the limiter is enabled")
	}
	if !c.CircuitBreaker.Enabled {
		return nil
	}
	if c.CircuitBreaker.ConsecutiveFailures == 0 {
		return fmt.Errorf("circuitbreaker.consecutivefailures must be greater than 0")
	}
	if c.CircuitBreaker.OpenTimeout <= 0 {
		return fmt.Errorf("circuitbreaker.opentimeout must be greater than 0")
	}
	return nil
}
