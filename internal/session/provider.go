package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"

	"github.com/oukeidos/kamekai/internal/apperrors"
	"github.com/oukeidos/kamekai/internal/config"
	"github.com/oukeidos/kamekai/internal/httpclient"
)

const discoveryPath = "/.well-known/openid-configuration"

// Provider is the identity provider as the Manager sees it.
type Provider interface {
	AuthCodeURL(state, nonce, verifier string) string
	Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error)
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// Discovery is the subset of the OpenID provider metadata the client uses.
type Discovery struct {
	Issuer                string `json:"issuer"`
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	EndSessionEndpoint    string `json:"end_session_endpoint,omitempty"`
}

// Discover fetches {authority}/.well-known/openid-configuration.
func Discover(ctx context.Context, authority string) (*Discovery, error) {
	authority = strings.TrimRight(authority, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, authority+discoveryPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create discovery request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	body, resp, err := httpclient.DoAndRead(httpclient.GetDefaultClient(), req)
	if resp == nil {
		return nil, apperrors.AuthProvider("Could not reach the identity provider.", err)
	}
	if !httpclient.IsSuccess(resp.StatusCode) {
		return nil, apperrors.AuthProvider(
			fmt.Sprintf("Identity provider configuration is unavailable (HTTP %d).", resp.StatusCode),
			fmt.Errorf("discovery status=%s", resp.Status),
		)
	}
	if err != nil {
		return nil, apperrors.AuthProvider("Identity provider configuration could not be read.", err)
	}

	var doc Discovery
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, apperrors.AuthProvider("Identity provider configuration is malformed.", err)
	}
	if doc.AuthorizationEndpoint == "" || doc.TokenEndpoint == "" {
		return nil, apperrors.AuthProvider("Identity provider configuration is missing endpoints.", nil)
	}
	if doc.Issuer != "" && strings.TrimRight(doc.Issuer, "/") != authority {
		return nil, apperrors.AuthProvider("Identity provider issuer does not match the configured authority.",
			fmt.Errorf("issuer %q, authority %q", doc.Issuer, authority))
	}
	return &doc, nil
}

// OIDCProvider runs the authorization code flow with PKCE against an
// OpenID Connect provider. The client is public: no secret is sent.
type OIDCProvider struct {
	conf *oauth2.Config
}

// NewOIDCProvider discovers the provider endpoints for cfg.Authority.
func NewOIDCProvider(ctx context.Context, cfg *config.Config) (*OIDCProvider, error) {
	doc, err := Discover(ctx, cfg.Authority)
	if err != nil {
		return nil, err
	}
	return NewOIDCProviderFromDiscovery(doc, cfg), nil
}

func NewOIDCProviderFromDiscovery(doc *Discovery, cfg *config.Config) *OIDCProvider {
	return &OIDCProvider{conf: &oauth2.Config{
		ClientID:    cfg.ClientID,
		RedirectURL: cfg.RedirectURI,
		Scopes:      cfg.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   doc.AuthorizationEndpoint,
			TokenURL:  doc.TokenEndpoint,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}}
}

func (p *OIDCProvider) AuthCodeURL(state, nonce, verifier string) string {
	return p.conf.AuthCodeURL(state,
		oauth2.S256ChallengeOption(verifier),
		oauth2.SetAuthURLParam("nonce", nonce),
	)
}

func (p *OIDCProvider) Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	return p.conf.Exchange(withHTTPClient(ctx), code, oauth2.VerifierOption(verifier))
}

func (p *OIDCProvider) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	return p.conf.TokenSource(withHTTPClient(ctx), &oauth2.Token{RefreshToken: refreshToken}).Token()
}

func withHTTPClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, httpclient.GetDefaultClient())
}

// providerError turns a provider failure into the ErrorInfo shown to the
// user. Provider error codes and descriptions are kept verbatim.
func providerError(err error) ErrorInfo {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		info := ErrorInfo{Code: re.ErrorCode, Description: re.ErrorDescription}
		switch {
		case re.ErrorDescription != "":
			info.Message = re.ErrorDescription
		case re.ErrorCode != "":
			info.Message = re.ErrorCode
		case re.Response != nil:
			info.Message = fmt.Sprintf("Identity provider rejected the request (HTTP %d).", re.Response.StatusCode)
		default:
			info.Message = "Identity provider rejected the request."
		}
		return info
	}
	if _, ok := apperrors.KindOf(err); ok {
		return ErrorInfo{Message: apperrors.PublicMessage(err)}
	}
	return ErrorInfo{Message: "Could not reach the identity provider."}
}
