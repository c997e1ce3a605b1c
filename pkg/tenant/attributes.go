package tenant

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/KuolDimDeng/dott-tenant/pkg/domain"
	"github.com/KuolDimDeng/dott-tenant/pkg/idp"
)

// AttributeStore reads and writes the tenant ID on the identity provider's
// per-user custom attributes, the long-lived source of truth. Expected
// failures (network, missing attribute, malformed value) never cross this
// boundary as errors; reads degrade to a miss and writes report false.
type AttributeStore struct {
	api     idp.AttributeAPI
	retrier *Retrier
	logger  *slog.Logger
	now     func() time.Time
}

// NewAttributeStore creates an attribute store over the given provider API.
func NewAttributeStore(api idp.AttributeAPI, retrier *Retrier, logger *slog.Logger) *AttributeStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &AttributeStore{
		api:     api,
		retrier: retrier,
		logger:  logger,
		now:     time.Now,
	}
}

// ReadTenantID fetches the user's attribute set and extracts the tenant ID
// by checking each alias key in priority order. The first value passing
// canonical UUID validation wins. A failed fetch is a miss, not an error.
func (s *AttributeStore) ReadTenantID(ctx context.Context) (uuid.UUID, bool) {
	var attrs map[string]string
	res := s.retrier.Do(ctx, "idp.fetch_attributes", func(ctx context.Context) error {
		fetched, err := s.api.FetchAttributes(ctx)
		if err != nil {
			return err
		}
		attrs = fetched
		return nil
	})
	if !res.OK {
		s.logger.Warn("attribute fetch unavailable", "error", res.Err, "attempts", res.Attempts)
		return uuid.Nil, false
	}

	for _, alias := range domain.TenantIDAliases {
		value, ok := attrs[alias]
		if !ok || value == "" {
			continue
		}
		id, err := domain.ParseTenantID(value)
		if err != nil {
			s.logger.Debug("ignoring malformed tenant id attribute", "alias", alias, "value", value)
			continue
		}
		return id, true
	}
	return uuid.Nil, false
}

// WriteTenantID persists tenantID to every known alias key plus an
// updated_at timestamp in a single provider call. Malformed values are
// rejected before any network traffic. Returns true only when the provider
// confirms the update; writes are idempotent.
func (s *AttributeStore) WriteTenantID(ctx context.Context, tenantID string) bool {
	if !domain.IsValidTenantID(tenantID) {
		s.logger.Debug("refusing to persist malformed tenant id", "value", tenantID)
		return false
	}

	patch := make(map[string]string, len(domain.TenantIDAliases)+1)
	for _, alias := range domain.TenantIDAliases {
		patch[alias] = tenantID
	}
	patch[domain.AttrUpdatedAt] = s.now().UTC().Format(time.RFC3339)

	res := s.retrier.Do(ctx, "idp.update_attributes", func(ctx context.Context) error {
		return s.api.UpdateAttributes(ctx, patch)
	})
	if !res.OK {
		s.logger.Warn("attribute write failed", "tenant_id", tenantID, "error", res.Err, "attempts", res.Attempts)
		return false
	}
	return true
}
