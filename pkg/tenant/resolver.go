// Package tenant implements tenant identity resolution: determining,
// caching, validating and persisting the tenant ID that every
// tenant-scoped data access depends on, reconciled across the identity
// provider's custom attributes, a local cache, URL path segments and the
// backend authority.
//
// Callers obtain the effective tenant ID through Resolver.ResolveEffective
// before any tenant-scoped call; they must not read provider attributes or
// caches directly.
package tenant

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/KuolDimDeng/dott-tenant/pkg/domain"
)

// legacyPathPrefix is the old /tenant/<id>/... URL scheme still emitted by
// bookmarks and stale emails.
const legacyPathPrefix = "/tenant/"

// ResolverConfig holds resolver tuning.
type ResolverConfig struct {
	// CacheTTL is how long a resolved ID may be served from the local
	// cache (default: 5 minutes).
	CacheTTL time.Duration

	// WriteBackTimeout bounds each detached write-back (default: 15s).
	WriteBackTimeout time.Duration
}

func (c ResolverConfig) withDefaults() ResolverConfig {
	if c.CacheTTL <= 0 {
		c.CacheTTL = 5 * time.Minute
	}
	if c.WriteBackTimeout <= 0 {
		c.WriteBackTimeout = 15 * time.Second
	}
	return c
}

// Resolver produces the single effective tenant ID for the current
// session, consulting sources in strict priority order: URL path, local
// cache, identity provider attributes, backend reconciliation endpoints.
// Whoever answers first wins; disagreeing sources are converged afterward
// by detached correction writes.
type Resolver struct {
	config  ResolverConfig
	cache   *Cache
	attrs   *AttributeStore
	backend *Backend
	retrier *Retrier
	logger  *slog.Logger

	// writeBacks tracks detached tasks so tests can await them.
	writeBacks sync.WaitGroup
}

// NewResolver creates a resolver over the given collaborators.
func NewResolver(config ResolverConfig, cache *Cache, attrs *AttributeStore, backend *Backend, retrier *Retrier, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		config:  config.withDefaults(),
		cache:   cache,
		attrs:   attrs,
		backend: backend,
		retrier: retrier,
		logger:  logger,
	}
}

// ResolveEffective returns the effective tenant ID for the current
// navigation, or (uuid.Nil, false) when no source yields one. The latter
// means the user still needs onboarding; it is never an error condition.
// Checks are sequential and short-circuit on the first hit, so cheaper
// sources suppress network calls entirely.
func (r *Resolver) ResolveEffective(ctx context.Context, path string) (uuid.UUID, bool) {
	// 1. URL-derived: authoritative for this navigation. Converge the
	// durable stores toward it without blocking.
	if id, ok := TenantIDFromPath(path); ok {
		r.logger.Debug("tenant resolved from url", "tenant_id", id)
		r.scheduleWriteBack(id)
		return id, true
	}

	// 2. Local cache.
	if id, ok := r.cache.Get(); ok {
		return id, true
	}

	// 3. Identity provider attributes.
	if id, ok := r.attrs.ReadTenantID(ctx); ok {
		r.cache.Set(id, r.config.CacheTTL)
		return id, true
	}

	// 4. Backend reconciliation: identity-specific endpoint first, then
	// the generic fallback.
	if id, ok := r.resolveFromBackend(ctx); ok {
		r.scheduleWriteBack(id)
		return id, true
	}

	// 5. Nothing anywhere: the not-onboarded signal.
	r.logger.Info("tenant id not found in any source, onboarding required")
	return uuid.Nil, false
}

// ApplyCorrection moves all stores toward the backend-declared value,
// typically after a Corrected verification outcome. Idempotent.
func (r *Resolver) ApplyCorrection(id uuid.UUID) {
	r.scheduleWriteBack(id)
}

// Invalidate clears the local cache, used on sign-out.
func (r *Resolver) Invalidate() {
	r.cache.Clear()
}

func (r *Resolver) resolveFromBackend(ctx context.Context) (uuid.UUID, bool) {
	type fetch struct {
		name string
		call func(ctx context.Context) (*SourceResponse, error)
	}
	sources := []fetch{
		{"backend.cognito", r.backend.CognitoTenant},
		{"backend.fallback", r.backend.FallbackTenant},
	}

	for _, src := range sources {
		var resp *SourceResponse
		res := r.retrier.Do(ctx, src.name, func(ctx context.Context) error {
			got, err := src.call(ctx)
			if err != nil {
				return err
			}
			resp = got
			return nil
		})
		if !res.OK || !resp.Success {
			continue
		}
		id, err := domain.ParseTenantID(resp.TenantID)
		if err != nil {
			continue
		}
		r.logger.Info("tenant resolved from backend", "tenant_id", id, "source", resp.Source)
		return id, true
	}
	return uuid.Nil, false
}

// scheduleWriteBack propagates id to the cache and the identity provider
// as a detached task. The main resolution path never waits on it and a
// failure here never fails resolution; writes are idempotent
// last-write-wins, so a task outliving its navigation is harmless.
func (r *Resolver) scheduleWriteBack(id uuid.UUID) {
	r.cache.Set(id, r.config.CacheTTL)

	r.writeBacks.Add(1)
	go func() {
		defer r.writeBacks.Done()

		ctx, cancel := context.WithTimeout(context.Background(), r.config.WriteBackTimeout)
		defer cancel()

		if ok := r.attrs.WriteTenantID(ctx, id.String()); !ok {
			r.logger.Warn("detached attribute write-back failed", "tenant_id", id)
		}
	}()
}

// TenantIDFromPath extracts a tenant ID from a URL path: either the first
// segment, or the segment after a legacy /tenant/ prefix. Only canonical
// UUID segments match.
func TenantIDFromPath(path string) (uuid.UUID, bool) {
	trimmed := strings.TrimPrefix(path, legacyPathPrefix)
	if trimmed == path {
		trimmed = strings.TrimPrefix(path, "/")
	}

	segment := trimmed
	if i := strings.IndexByte(trimmed, '/'); i >= 0 {
		segment = trimmed[:i]
	}

	id, err := domain.ParseTenantID(segment)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
