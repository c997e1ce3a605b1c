// Package dott wires the tenant resolution core into a single client that
// UI collaborators call before any tenant-scoped API request.
//
// Route guards and data-fetching layers must not read identity provider
// attributes or caches directly; this client is the only entry point.
//
// Basic usage:
//
//	client, err := dott.New(dott.Config{
//	    APIBaseURL:  "https://api.dottapps.com",
//	    IDPBaseURL:  "https://idp.dottapps.com",
//	    TokenSource: session.AccessToken,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	tenantID, ok := client.EffectiveTenantID(ctx, r.URL.Path)
//	if !ok {
//	    // no tenant anywhere: route to onboarding, do not retry
//	}
package dott

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/KuolDimDeng/dott-tenant/pkg/idp"
	"github.com/KuolDimDeng/dott-tenant/pkg/tenant"
)

// Config holds the configuration for the tenant resolution client.
type Config struct {
	// APIBaseURL is the tenant authority root (required).
	APIBaseURL string

	// IDPBaseURL is the identity provider attribute API root (required).
	IDPBaseURL string

	// TokenSource supplies the current user's access token (required).
	TokenSource func(ctx context.Context) (string, error)

	// CacheTTL is how long resolved IDs are served from the local cache
	// (default: 5 minutes).
	CacheTTL time.Duration

	// Retry bounds the retry policy for all network calls.
	Retry tenant.RetryConfig

	// Logger is the structured logger (default: slog.Default()).
	Logger *slog.Logger
}

// Client is the tenant resolution entry point.
type Client struct {
	resolver *tenant.Resolver
	verifier *tenant.Verifier
}

// New creates a tenant resolution client with the given configuration.
func New(cfg Config) (*Client, error) {
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	retrier := tenant.NewRetrier(cfg.Retry, cfg.Logger)
	cache := tenant.NewCache()

	idpClient := idp.NewClient(idp.Config{
		BaseURL:     cfg.IDPBaseURL,
		TokenSource: idp.TokenSource(cfg.TokenSource),
	})
	attrs := tenant.NewAttributeStore(idpClient, retrier, cfg.Logger)

	backend := tenant.NewBackend(tenant.BackendConfig{
		BaseURL:     cfg.APIBaseURL,
		TokenSource: cfg.TokenSource,
	})

	resolver := tenant.NewResolver(
		tenant.ResolverConfig{CacheTTL: cfg.CacheTTL},
		cache, attrs, backend, retrier, cfg.Logger,
	)
	verifier := tenant.NewVerifier(backend, attrs, retrier, cfg.Logger)

	return &Client{
		resolver: resolver,
		verifier: verifier,
	}, nil
}

// EffectiveTenantID resolves the tenant ID for the current navigation.
// (uuid.Nil, false) means the user needs onboarding, never an error.
func (c *Client) EffectiveTenantID(ctx context.Context, path string) (uuid.UUID, bool) {
	return c.resolver.ResolveEffective(ctx, path)
}

// Verify checks a candidate tenant ID against the backend authority. A
// Corrected outcome is automatically propagated to the local cache and
// the identity provider so subsequent resolutions converge.
func (c *Client) Verify(ctx context.Context, candidate uuid.UUID) tenant.VerificationResult {
	res := c.verifier.Verify(ctx, candidate)
	if res.Status == tenant.StatusCorrected {
		c.resolver.ApplyCorrection(res.TenantID)
	}
	return res
}

// CreateTenant asks the backend to mint a tenant for a user who has none.
func (c *Client) CreateTenant(ctx context.Context, candidate uuid.UUID, profile tenant.UserProfile) (uuid.UUID, bool) {
	id, ok := c.verifier.CreateForUser(ctx, candidate, profile)
	if ok {
		c.resolver.ApplyCorrection(id)
	}
	return id, ok
}

// SignOut discards the locally cached tenant ID.
func (c *Client) SignOut() {
	c.resolver.Invalidate()
}

func validateConfig(cfg *Config) error {
	if cfg.APIBaseURL == "" {
		return fmt.Errorf("dott: APIBaseURL is required")
	}
	if cfg.IDPBaseURL == "" {
		return fmt.Errorf("dott: IDPBaseURL is required")
	}
	if cfg.TokenSource == nil {
		return fmt.Errorf("dott: TokenSource is required")
	}
	return nil
}
