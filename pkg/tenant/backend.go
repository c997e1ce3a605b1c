package tenant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Backend is a thin client for the tenant authority API.
type Backend struct {
	baseURL     string
	httpClient  *http.Client
	tokenSource func(ctx context.Context) (string, error)
}

// BackendConfig holds tenant authority client configuration.
type BackendConfig struct {
	// BaseURL is the API root, e.g. "https://api.example.com".
	BaseURL string

	// TokenSource supplies the user's access token for authenticated
	// endpoints (required).
	TokenSource func(ctx context.Context) (string, error)

	// Timeout for individual requests (default: 10s).
	Timeout time.Duration
}

// NewBackend creates a tenant authority client.
func NewBackend(config BackendConfig) *Backend {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Backend{
		baseURL:     config.BaseURL,
		httpClient:  &http.Client{Timeout: timeout},
		tokenSource: config.TokenSource,
	}
}

// VerifyResponse is the payload of GET /api/tenant/verify.
type VerifyResponse struct {
	Valid           bool            `json:"valid"`
	Tenant          json.RawMessage `json:"tenant,omitempty"`
	CorrectTenantID string          `json:"correctTenantId,omitempty"`
}

// EnsureRequest is the payload of POST /api/tenant/ensure-db-record and
// POST /api/tenant/init.
type EnsureRequest struct {
	TenantID        string `json:"tenantId,omitempty"`
	UserID          string `json:"userId,omitempty"`
	Email           string `json:"email,omitempty"`
	BusinessName    string `json:"businessName,omitempty"`
	BusinessType    string `json:"businessType,omitempty"`
	BusinessCountry string `json:"businessCountry,omitempty"`
	ForceCreate     bool   `json:"forceCreate"`
}

// EnsureResponse is the payload returned by the ensure and init endpoints.
type EnsureResponse struct {
	Success    bool   `json:"success"`
	Exists     bool   `json:"exists,omitempty"`
	TenantID   string `json:"tenantId,omitempty"`
	Name       string `json:"name,omitempty"`
	SchemaName string `json:"schemaName,omitempty"`
	Message    string `json:"message,omitempty"`
}

// SourceResponse is the payload of the cognito and fallback endpoints.
type SourceResponse struct {
	Success  bool   `json:"success"`
	TenantID string `json:"tenantId,omitempty"`
	Source   string `json:"source,omitempty"`
}

// VerifyTenant issues the lightweight existence/ownership check.
func (b *Backend) VerifyTenant(ctx context.Context, tenantID string) (*VerifyResponse, error) {
	endpoint := b.baseURL + "/api/tenant/verify?tenantId=" + url.QueryEscape(tenantID)
	var parsed VerifyResponse
	if err := b.get(ctx, endpoint, &parsed); err != nil {
		return nil, err
	}
	return &parsed, nil
}

// EnsureRecord issues the heavier get-or-create call for a durable tenant
// record.
func (b *Backend) EnsureRecord(ctx context.Context, req EnsureRequest) (*EnsureResponse, error) {
	var parsed EnsureResponse
	if err := b.post(ctx, b.baseURL+"/api/tenant/ensure-db-record", req, &parsed); err != nil {
		return nil, err
	}
	return &parsed, nil
}

// InitTenant calls the tenant initialization endpoint, used when no tenant
// exists yet at all.
func (b *Backend) InitTenant(ctx context.Context, req EnsureRequest) (*EnsureResponse, error) {
	req.ForceCreate = true
	var parsed EnsureResponse
	if err := b.post(ctx, b.baseURL+"/api/tenant/init", req, &parsed); err != nil {
		return nil, err
	}
	return &parsed, nil
}

// CognitoTenant asks the identity-specific reconciliation endpoint for the
// user's tenant ID.
func (b *Backend) CognitoTenant(ctx context.Context) (*SourceResponse, error) {
	var parsed SourceResponse
	if err := b.get(ctx, b.baseURL+"/api/tenant/cognito", &parsed); err != nil {
		return nil, err
	}
	return &parsed, nil
}

// FallbackTenant asks the generic fallback endpoint for the user's tenant ID.
func (b *Backend) FallbackTenant(ctx context.Context) (*SourceResponse, error) {
	var parsed SourceResponse
	if err := b.get(ctx, b.baseURL+"/api/tenant/fallback", &parsed); err != nil {
		return nil, err
	}
	return &parsed, nil
}

func (b *Backend) get(ctx context.Context, endpoint string, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	return b.do(ctx, req, dest)
}

func (b *Backend) post(ctx context.Context, endpoint string, payload, dest interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return b.do(ctx, req, dest)
}

func (b *Backend) do(ctx context.Context, req *http.Request, dest interface{}) error {
	if b.tokenSource != nil {
		token, err := b.tokenSource(ctx)
		if err != nil {
			return fmt.Errorf("token source: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// 404 with a JSON body is a meaningful answer (explicit non-existence),
	// not a transport failure.
	if resp.StatusCode >= 500 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s: status %d: %s", req.Method, req.URL.Path, resp.StatusCode, string(body))
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s %s: status %d: %s", req.Method, req.URL.Path, resp.StatusCode, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(dest)
}
