package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oukeidos/kamekai/internal/apperrors"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultRedirectURI, cfg.RedirectURI)
	assert.Equal(t, DefaultLogoutURI, cfg.LogoutURI)
	assert.Equal(t, DefaultEndpoint, cfg.Endpoint)
	assert.Equal(t, []string{"openid", "email", "profile"}, cfg.Scopes)
	assert.True(t, cfg.AutomaticSilentRenew)
	assert.True(t, cfg.Keychain)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("KAMEKAI_AUTHORITY", "https://cognito-idp.us-east-1.amazonaws.com/us-east-1_example/")
	t.Setenv("KAMEKAI_CLIENT_ID", " client-123 ")
	t.Setenv("KAMEKAI_DOMAIN", "auth.example.com")
	t.Setenv("KAMEKAI_SCOPES", "openid, email,,phone")
	t.Setenv("KAMEKAI_SILENT_RENEW", "false")
	t.Setenv("KAMEKAI_ENDPOINT", "https://api.example.com/")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://cognito-idp.us-east-1.amazonaws.com/us-east-1_example", cfg.Authority)
	assert.Equal(t, "client-123", cfg.ClientID)
	assert.Equal(t, []string{"openid", "email", "phone"}, cfg.Scopes)
	assert.False(t, cfg.AutomaticSilentRenew)
	assert.Equal(t, "https://api.example.com", cfg.Endpoint)
	require.NoError(t, cfg.ValidateIdentity())
	require.NoError(t, cfg.ValidateEndpoint())
}

func TestLoad_InvalidBool(t *testing.T) {
	t.Setenv("KAMEKAI_SILENT_RENEW", "sometimes")
	_, err := Load()
	require.Error(t, err)
}

func TestValidateIdentity(t *testing.T) {
	valid := func() Config {
		return Config{
			Authority:   "https://idp.example.com/pool",
			ClientID:    "client",
			Domain:      "auth.example.com",
			RedirectURI: DefaultRedirectURI,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing all", mutate: func(c *Config) { *c = Config{RedirectURI: DefaultRedirectURI} }, wantErr: "KAMEKAI_AUTHORITY, KAMEKAI_CLIENT_ID, KAMEKAI_DOMAIN"},
		{name: "bad authority", mutate: func(c *Config) { c.Authority = "not a url" }, wantErr: "KAMEKAI_AUTHORITY"},
		{name: "bad redirect", mutate: func(c *Config) { c.RedirectURI = "callback" }, wantErr: "KAMEKAI_REDIRECT_URI"},
		{name: "domain with scheme", mutate: func(c *Config) { c.Domain = "https://auth.example.com" }, wantErr: "bare host"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.ValidateIdentity()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			kind, ok := apperrors.KindOf(err)
			require.True(t, ok)
			assert.Equal(t, apperrors.KindConfig, kind)
		})
	}
}
