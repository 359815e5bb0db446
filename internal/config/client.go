package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ClientEnvPrefix is the environment prefix of the productctl configuration.
const ClientEnvPrefix = "PRODUCTCTL_"

// DefaultBaseURL is the API endpoint used when nothing else is configured.
const DefaultBaseURL = "http://localhost:8000/api"

const (
	CreateModeServer     = "server"
	CreateModeOptimistic = "optimistic"
)

var _ Validator = (*ClientConfig)(nil)

// ClientConfig is the configuration of the productctl command line client.
type ClientConfig struct {
	API struct {
		BaseURL string        `koanf:"baseurl"`
		Timeout time.Duration `koanf:"timeout"`
	} `koanf:"api"`

	Session struct {
		Path string `koanf:"path"`
	} `koanf:"session"`

	UI struct {
		CreateMode string `koanf:"createmode"`
		Lang       string `koanf:"lang"`
		Currency   string `koanf:"currency"`
	} `koanf:"ui"`

	Resilience ResilienceConfig `koanf:"resilience"`
	Telemetry  TelemetryConfig  `koanf:"telemetry"`
	Log        LogConfig        `koanf:"log"`
}

// ClientDefaults returns the built-in client defaults.
func ClientDefaults() map[string]any {
	return map[string]any{
		"api.baseurl":                       DefaultBaseURL,
		"api.timeout":                       "10s",
		"session.path":                      "productctl.db",
		"ui.createmode":                     CreateModeServer,
		"ui.lang":                           "en",
		"ui.currency":                       "BRL",
		"resilience.ratelimit.rps":          0,
		"resilience.ratelimit.burst":        1,
		"resilience.circuitbreaker.enabled": false,
		"resilience.circuitbreaker.consecutivefailures": 5,
		"resilience.circuitbreaker.opentimeout":         "30s",
		"telemetry.traces.otlphttp.timeout":             "5s",
		"log.level":                                     "warn",
	}
}

// LoadClient loads the client configuration from defaults, configFile and the environment.
func LoadClient(configFile string) (*ClientConfig, error) {
	return Load[ClientConfig](ClientEnvPrefix, configFile, ClientDefaults())
}

func (c *ClientConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- API ---\n")
	b.WriteString(fmt.Sprintf("  baseurl: %s\n", c.API.BaseURL))
	b.WriteString(fmt.Sprintf("  timeout: %v\n", c.API.Timeout))
	b.WriteString("\n--- Session ---\n")
	b.WriteString(fmt.Sprintf("  path: %s\n", c.Session.Path))
	b.WriteString("\n--- UI ---\n")
	b.WriteString(fmt.Sprintf("  createmode: %s\n", c.UI.CreateMode))
	b.WriteString(fmt.Sprintf("  lang: %s\n", c.UI.Lang))
	b.WriteString(fmt.Sprintf("  currency: %s\n", c.UI.Currency))
	b.WriteString(c.Resilience.String())
	b.WriteString(c.Telemetry.String())
	b.WriteString(c.Log.String())
	return b.String()
}

// Validate checks if the configuration values are valid
func (c *ClientConfig) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("api.baseurl must be an absolute http(s) URL: %q", c.API.BaseURL)
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be greater than 0")
	}
	if c.Session.Path == "" {
		return fmt.Errorf("session.path cannot be empty")
	}
	switch c.UI.CreateMode {
	case CreateModeServer, CreateModeOptimistic:
	default:
		return fmt.Errorf("ui.createmode must be %q or %q, got %q", CreateModeServer, CreateModeOptimistic, c.UI.CreateMode)
	}
	if c.UI.Lang == "" {
		return fmt.Errorf("ui.lang cannot be empty")
	}
	if len(c.UI.Currency) != 3 {
		return fmt.Errorf("ui.currency must be an ISO 4217 code: %q", c.UI.Currency)
	}
	if err := c.Resilience.Validate(); err != nil {
		return err
	}
	if err := c.Telemetry.Validate(); err != nil {
		return err
	}
	return c.Log.Validate()
}
