// Package ehr provides FHIR R4 REST clients for submitting
// DocumentReference resources to EHR systems. Epic uses the backend
// services JWT flow, Cerner the SMART client credentials grant; both share
// the same submission surface.
package ehr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"clinical-ehr-bridge/internal/fhir"
	"clinical-ehr-bridge/internal/observability/metrics"
)

// ErrNotAuthenticated is returned when a submission is attempted before a
// token has been acquired.
var ErrNotAuthenticated = errors.New("ehr: not authenticated, call Authenticate first")

// Client is the common submission surface for EHR FHIR endpoints.
type Client interface {
	// Authenticate obtains an OAuth2 access token and caches it for
	// subsequent calls. Returns the token string.
	Authenticate(ctx context.Context) (string, error)

	// SubmitDocumentReference POSTs a validated DocumentReference.
	SubmitDocumentReference(ctx context.Context, doc *fhir.DocumentReference) (*SubmitResult, error)
}

// SubmitResult carries the EHR's response to a resource submission.
type SubmitResult struct {
	StatusCode int
	Location   string // Location header of the created resource, if any
	Body       []byte
}

// Created reports whether the EHR accepted the resource.
func (r *SubmitResult) Created() bool {
	return r.StatusCode == http.StatusCreated || r.StatusCode == http.StatusOK
}

// baseClient implements the shared HTTP plumbing for EHR FHIR endpoints.
type baseClient struct {
	system      string // metric label: epic, cerner
	baseURL     string
	httpClient  *http.Client
	accessToken string
	metrics     *metrics.Metrics
}

func newBaseClient(system, baseURL string, httpClient *http.Client) baseClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return baseClient{
		system:     system,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		metrics:    metrics.DefaultMetrics,
	}
}

// SubmitDocumentReference POSTs the resource as application/fhir+json.
func (c *baseClient) SubmitDocumentReference(ctx context.Context, doc *fhir.DocumentReference) (*SubmitResult, error) {
	if c.accessToken == "" {
		return nil, ErrNotAuthenticated
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("ehr: marshal DocumentReference: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/DocumentReference", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/fhir+json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	c.metrics.RecordEHRSubmission(c.system, err, time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("ehr: submit to %s: %w", c.system, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &SubmitResult{
		StatusCode: resp.StatusCode,
		Location:   resp.Header.Get("Location"),
		Body:       body,
	}, nil
}

// tokenResponse is the OAuth2 token endpoint response shape.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// requestToken POSTs a form-encoded token request and extracts the access
// token.
func (c *baseClient) requestToken(ctx context.Context, tokenURL string, form url.Values) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	c.metrics.RecordTokenRefresh(c.system, err)
	if err != nil {
		return "", fmt.Errorf("ehr: token request to %s: %w", c.system, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ehr: token endpoint returned %d: %s", resp.StatusCode, raw)
	}

	var tok tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", fmt.Errorf("ehr: decode token response: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("ehr: token endpoint returned empty access_token")
	}

	c.accessToken = tok.AccessToken
	return tok.AccessToken, nil
}
