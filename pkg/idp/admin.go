package idp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// AdminAPI reads attributes for arbitrary users using service credentials,
// the way the tenant authority inspects a user's provider profile
// server-side.
type AdminAPI interface {
	FetchUserAttributes(ctx context.Context, userID string) (map[string]string, error)
}

// AdminConfig holds admin client configuration.
type AdminConfig struct {
	BaseURL      string
	ServiceToken string
	Timeout      time.Duration
}

// AdminClient talks to the provider's administrative user API.
type AdminClient struct {
	config     AdminConfig
	httpClient *http.Client
}

// NewAdminClient creates an admin attribute client.
func NewAdminClient(config AdminConfig) *AdminClient {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &AdminClient{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// FetchUserAttributes retrieves the full attribute set for the given user.
func (c *AdminClient) FetchUserAttributes(ctx context.Context, userID string) (map[string]string, error) {
	endpoint := c.config.BaseURL + "/admin/users/" + userID + "/attributes"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.config.ServiceToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("fetch user attributes failed: status %d: %s", resp.StatusCode, string(body))
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
