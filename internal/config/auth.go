package config

import (
	"fmt"
	"strings"
	"time"
)

// AuthConfig configures the token issuer of the backend and its single login account.
type AuthConfig struct {
	Secret     string        `koanf:"secret"`
	Issuer     string        `koanf:"issuer"`
	AccessTTL  time.Duration `koanf:"accessttl"`
	RefreshTTL time.Duration `koanf:"refreshttl"`
	Username   string        `koanf:"username"`
	Password   string        `koanf:"password"`
}

// String returns a string representation of the auth configuration with secrets masked.
func (c *AuthConfig) String() string {
	var b strings.Builder
	b.WriteString("\n--- Auth ---\n")
	b.WriteString("  secret: ****\n")
	b.WriteString(fmt.Sprintf("  issuer: %s\n", c.Issuer))
	b.WriteString(fmt.Sprintf("  accessttl: %v\n", c.AccessTTL))
	b.WriteString(fmt.Sprintf("  refreshttl: %v\n", c.RefreshTTL))
	b.WriteString(fmt.Sprintf("  username: %s\n", c.Username))
	return b.String()
}

func (c *AuthConfig) Validate() error {
	if len(c.Secret) < 16 {
		return fmt.Errorf("auth secret must be at least 16 bytes long")
	}
	if c.Issuer == "" {
		return fmt.Errorf("auth issuer cannot be empty")
	}
	if c.AccessTTL <= 0 {
		return fmt.Errorf("auth access token TTL must be greater than 0")
	}
	if c.RefreshTTL <= c.AccessTTL {
		return fmt.Errorf("auth refresh token TTL must be greater than the access token TTL")
	}
	if c.Username == "" || c.Password == "" {
		return fmt.Errorf("auth username and password must be configured")
	}
	return nil
}
