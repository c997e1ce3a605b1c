// Package idp provides a client for the identity provider's per-user
// custom attribute API.
package idp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// AttributeAPI is the identity provider's custom-attribute surface for the
// current user. Implementations must be safe for concurrent use.
type AttributeAPI interface {
	// FetchAttributes returns the user's full custom attribute set.
	FetchAttributes(ctx context.Context) (map[string]string, error)

	// UpdateAttributes applies a partial attribute update in one request.
	UpdateAttributes(ctx context.Context, patch map[string]string) error
}

// TokenSource returns a bearer token for the current user session.
type TokenSource func(ctx context.Context) (string, error)

// Config holds identity provider client configuration.
type Config struct {
	// BaseURL is the attribute API root, e.g. "https://idp.example.com".
	BaseURL string

	// TokenSource supplies the user's access token (required).
	TokenSource TokenSource

	// Timeout for individual requests (default: 10s).
	Timeout time.Duration
}

// Client talks to a Cognito-style user attribute endpoint.
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates a new identity provider attribute client.
func NewClient(config Config) *Client {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type attributesResponse struct {
	Attributes map[string]string `json:"attributes"`
}

type attributesPatch struct {
	Attributes map[string]string `json:"attributes"`
}

// FetchAttributes retrieves the current user's full attribute set.
func (c *Client) FetchAttributes(ctx context.Context) (map[string]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/users/me/attributes", nil)
	if err != nil {
		return nil, err
	}
	if err := c.authorize(ctx, req); err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("fetch attributes failed: status %d: %s", resp.StatusCode, string(body))
	}

	var parsed attributesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	if parsed.Attributes == nil {
		parsed.Attributes = map[string]string{}
	}
	return parsed.Attributes, nil
}

// UpdateAttributes sets the given attributes on the current user's profile.
// All keys in the patch are applied in a single provider call.
func (c *Client) UpdateAttributes(ctx context.Context, patch map[string]string) error {
	payload, err := json.Marshal(attributesPatch{Attributes: patch})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, c.config.BaseURL+"/users/me/attributes", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if err := c.authorize(ctx, req); err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusNoContent {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("update attributes failed: status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

func (c *Client) authorize(ctx context.Context, req *http.Request) error {
	if c.config.TokenSource == nil {
		return fmt.Errorf("idp: token source not configured")
	}
	token, err := c.config.TokenSource(ctx)
	if err != nil {
		return fmt.Errorf("idp: token source: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}
