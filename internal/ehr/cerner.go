package ehr

import (
	"context"
	"net/http"
	"net/url"

	"github.com/rs/zerolog/log"
)

// DefaultCernerScope is requested when no scope is configured.
const DefaultCernerScope = "system/DocumentReference.write"

// CernerClient is a FHIR R4 client for Cerner using the SMART on FHIR
// client credentials grant.
type CernerClient struct {
	baseClient
	tokenURL     string
	clientID     string
	clientSecret string
	scope        string
}

// CernerConfig configures a CernerClient.
type CernerConfig struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	// Scope defaults to DefaultCernerScope.
	Scope      string
	HTTPClient *http.Client
}

// NewCernerClient constructs a CernerClient.
func NewCernerClient(cfg CernerConfig) *CernerClient {
	scope := cfg.Scope
	if scope == "" {
		scope = DefaultCernerScope
	}
	return &CernerClient{
		baseClient:   newBaseClient("cerner", cfg.BaseURL, cfg.HTTPClient),
		tokenURL:     cfg.TokenURL,
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		scope:        scope,
	}
}

// Authenticate obtains an access token using the client credentials grant.
func (c *CernerClient) Authenticate(ctx context.Context) (string, error) {
	token, err := c.requestToken(ctx, c.tokenURL, url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"scope":         {c.scope},
	})
	if err != nil {
		return "", err
	}

	log.Info().Str("system", "cerner").Msg("EHR token acquired")
	return token, nil
}
