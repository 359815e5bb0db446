package config

import (
	"fmt"
	"strings"
)

// ServerEnvPrefix is the environment prefix of the product service configuration.
const ServerEnvPrefix = "PRODUCT_SVC_"

var _ Validator = (*ServerConfig)(nil)

// ServerConfig is the configuration of the product service backend.
type ServerConfig struct {
	HTTPServer HTTPConfig       `koanf:"server"`
	Database   DatabaseConfig   `koanf:"database"`
	Auth       AuthConfig       `koanf:"auth"`
	Pagination PaginationConfig `koanf:"pagination"`
	Chaos      ChaosConfig      `koanf:"chaos"`
	Log        LogConfig        `koanf:"log"`
	PProf      PProfConfig      `koanf:"pprof"`
	Telemetry  TelemetryConfig  `koanf:"telemetry"`
	Shutdown   ShutdownConfig   `koanf:"shutdown"`
}

type PaginationConfig struct {
	DefaultLimit int32 `koanf:"defaultlimit"`
	MaxLimit     int32 `koanf:"maxlimit"`
}

// ChaosConfig enables random failure injection. A zero FailureRate disables it.
type ChaosConfig struct {
	FailureRate float64 `koanf:"failurerate"`
}

// ServerDefaults returns the built-in backend defaults.
func ServerDefaults() map[string]any {
	return map[string]any{
		"server.port":                       8000,
		"server.maxheaderbytes":             1 << 20,
		"server.timeout.read":               "10s",
		"server.timeout.write":              "10s",
		"server.timeout.idle":               "60s",
		"server.timeout.readheader":         "5s",
		"database.timeout":                  "10s",
		"auth.issuer":                       "productdesk",
		"auth.accessttl":                    "5m",
		"auth.refreshttl":                   "24h",
		"auth.username":                     "admin",
		"auth.password":                     "admin",
		"pagination.defaultlimit":           100,
		"pagination.maxlimit":               1000,
		"chaos.failurerate":                 0,
		"log.level":                         "info",
		"telemetry.traces.otlphttp.timeout": "5s",
		"shutdown.timeout":                  "30s",
	}
}

// LoadServer loads the backend configuration from defaults, configFile and the environment.
func LoadServer(configFile string) (*ServerConfig, error) {
	return Load[ServerConfig](ServerEnvPrefix, configFile, ServerDefaults())
}

func (c *ServerConfig) String() string {
	var b strings.Builder
	b.WriteString(c.HTTPServer.String())
	b.WriteString(c.Database.String())
	b.WriteString(c.Auth.String())
	b.WriteString("\n--- Pagination ---\n")
	b.WriteString(fmt.Sprintf("  defaultlimit: %d\n", c.Pagination.DefaultLimit))
	b.WriteString(fmt.Sprintf("  maxlimit: %d\n", c.Pagination.MaxLimit))
	b.WriteString("\n--- Chaos ---\n")
	b.WriteString(fmt.Sprintf("  failurerate: %v\n", c.Chaos.FailureRate))
	b.WriteString(c.Log.String())
	b.WriteString(c.PProf.String())
	b.WriteString(c.Telemetry.String())
	b.WriteString(c.Shutdown.String())
	return b.String()
}

// Validate checks if the configuration values are valid
func (c *ServerConfig) Validate() error {
	if err := c.HTTPServer.Validate(); err != nil {
		return err
	}
	if err := c.Database.Validate(); err != nil {
		return err
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if c.Pagination.DefaultLimit <= 0 {
		return fmt.Errorf("pagination.defaultlimit must be greater than 0")
	}
	if c.Pagination.MaxLimit < c.Pagination.DefaultLimit {
		return fmt.Errorf("pagination.maxlimit must not be lower than pagination.defaultlimit")
	}
	if c.Chaos.FailureRate < 0 || c.Chaos.FailureRate > 1 {
		return fmt.Errorf("chaos.failurerate must be between 0 and 1")
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}
	if err := c.PProf.Validate(); err != nil {
		return err
	}
	if err := c.Telemetry.Validate(); err != nil {
		return err
	}
	return c.Shutdown.Validate()
}
