package ehr

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const epicTokenPath = "/oauth2/token"

// EpicClient is a FHIR R4 client for Epic using the backend services OAuth2
// flow: a JWT client assertion signed with the app's RSA private key is
// exchanged for an access token at the Epic token endpoint.
type EpicClient struct {
	baseClient
	tokenURL   string
	clientID   string
	privateKey []byte
}

// EpicConfig configures an EpicClient.
type EpicConfig struct {
	BaseURL string
	// TokenURL defaults to BaseURL + /oauth2/token.
	TokenURL string
	ClientID string
	// PrivateKey is the PEM-encoded RSA key; PrivateKeyPath is read when
	// PrivateKey is empty.
	PrivateKey     []byte
	PrivateKeyPath string
	HTTPClient     *http.Client
}

// NewEpicClient constructs an EpicClient.
func NewEpicClient(cfg EpicConfig) (*EpicClient, error) {
	key := cfg.PrivateKey
	if len(key) == 0 {
		if cfg.PrivateKeyPath == "" {
			return nil, fmt.Errorf("ehr: epic client needs PrivateKey or PrivateKeyPath")
		}
		b, err := os.ReadFile(cfg.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("ehr: read epic private key: %w", err)
		}
		key = b
	}

	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = cfg.BaseURL + epicTokenPath
	}

	return &EpicClient{
		baseClient: newBaseClient("epic", cfg.BaseURL, cfg.HTTPClient),
		tokenURL:   tokenURL,
		clientID:   cfg.ClientID,
		privateKey: key,
	}, nil
}

// Authenticate obtains an access token via the backend services flow. The
// client assertion is signed RS384 with a 5-minute expiry per Epic's spec.
func (c *EpicClient) Authenticate(ctx context.Context) (string, error) {
	signingKey, err := jwt.ParseRSAPrivateKeyFromPEM(c.privateKey)
	if err != nil {
		return "", fmt.Errorf("ehr: parse epic private key: %w", err)
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"iss": c.clientID,
		"sub": c.clientID,
		"aud": c.tokenURL,
		"jti": uuid.NewString(),
		"iat": now.Unix(),
		"exp": now.Add(5 * time.Minute).Unix(),
	}

	assertion, err := jwt.NewWithClaims(jwt.SigningMethodRS384, claims).SignedString(signingKey)
	if err != nil {
		return "", fmt.Errorf("ehr: sign epic client assertion: %w", err)
	}

	token, err := c.requestToken(ctx, c.tokenURL, url.Values{
		"grant_type":            {"client_credentials"},
		"client_assertion_type": {"urn:ietf:params:oauth:client-assertion-type:jwt-bearer"},
		"client_assertion":      {assertion},
	})
	if err != nil {
		return "", err
	}

	log.Info().Str("system", "epic").Msg("EHR token acquired")
	return token, nil
}
