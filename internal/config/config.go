// Package config loads deployment settings for the identity provider and the
// translation endpoint from KAMEKAI_* environment variables.
package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/caarlos0/env/v11"

	"github.com/oukeidos/kamekai/internal/apperrors"
)

const (
	DefaultRedirectURI = "http://127.0.0.1:53682/callback"
	DefaultLogoutURI   = "http://127.0.0.1:53682/"
	DefaultEndpoint    = "http://127.0.0.1:3000"
)

// Config holds the OIDC client settings and the translation endpoint.
type Config struct {
	// Identity provider
	Authority            string   `env:"KAMEKAI_AUTHORITY"`
	ClientID             string   `env:"KAMEKAI_CLIENT_ID"`
	Domain               string   `env:"KAMEKAI_DOMAIN"`
	RedirectURI          string   `env:"KAMEKAI_REDIRECT_URI" envDefault:"http://127.0.0.1:53682/callback"`
	LogoutURI            string   `env:"KAMEKAI_LOGOUT_URI" envDefault:"http://127.0.0.1:53682/"`
	Scopes               []string `env:"KAMEKAI_SCOPES" envSeparator:"," envDefault:"openid,email,profile"`
	AutomaticSilentRenew bool     `env:"KAMEKAI_SILENT_RENEW" envDefault:"true"`

	// Translation service
	Endpoint string `env:"KAMEKAI_ENDPOINT" envDefault:"http://127.0.0.1:3000"`

	// Keychain persists the refresh token between runs.
	Keychain bool `env:"KAMEKAI_KEYCHAIN" envDefault:"true"`
	Debug    bool `env:"KAMEKAI_DEBUG" envDefault:"false"`
}

// Load parses environment variables into a Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	c.Authority = strings.TrimRight(strings.TrimSpace(c.Authority), "/")
	c.ClientID = strings.TrimSpace(c.ClientID)
	c.Domain = strings.TrimSpace(c.Domain)
	c.Endpoint = strings.TrimRight(strings.TrimSpace(c.Endpoint), "/")
	scopes := c.Scopes[:0]
	for _, s := range c.Scopes {
		if s = strings.TrimSpace(s); s != "" {
			scopes = append(scopes, s)
		}
	}
	c.Scopes = scopes
}

// ValidateIdentity reports the first missing or malformed identity provider setting.
func (c *Config) ValidateIdentity() error {
	var missing []string
	if c.Authority == "" {
		missing = append(missing, "KAMEKAI_AUTHORITY")
	}
	if c.ClientID == "" {
		missing = append(missing, "KAMEKAI_CLIENT_ID")
	}
	if c.Domain == "" {
		missing = append(missing, "KAMEKAI_DOMAIN")
	}
	if len(missing) > 0 {
		return apperrors.Config("missing identity provider settings: " + strings.Join(missing, ", "))
	}
	if _, err := url.ParseRequestURI(c.Authority); err != nil {
		return apperrors.Config("KAMEKAI_AUTHORITY is not a valid URL")
	}
	redirect, err := url.ParseRequestURI(c.RedirectURI)
	if err != nil || redirect.Host == "" {
		return apperrors.Config("KAMEKAI_REDIRECT_URI is not a valid URL")
	}
	if strings.Contains(c.Domain, "/") {
		return apperrors.Config("KAMEKAI_DOMAIN must be a bare host name")
	}
	return nil
}

// ValidateEndpoint checks the translation endpoint base URL.
func (c *Config) ValidateEndpoint() error {
	u, err := url.ParseRequestURI(c.Endpoint)
	if err != nil || u.Host == "" {
		return apperrors.Config("KAMEKAI_ENDPOINT is not a valid URL")
	}
	return nil
}
