package tenant

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/KuolDimDeng/dott-tenant/pkg/domain"
)

// ensureTenant returns the durable tenant record for candidateID, creating
// it when absent and create is set. A candidate record owned by a
// different user is never returned: the caller's own tenant wins, matching
// the verify correction semantics. Only one tenant per owner, and callers
// converge on the backend-declared value.
// The returned bool reports whether a record was created.
func ensureTenant(
	ctx context.Context,
	tenants TenantStore,
	candidateID uuid.UUID,
	ownerUserID uuid.UUID,
	name string,
	create bool,
) (*domain.Tenant, bool, error) {
	if candidateID != uuid.Nil {
		existing, err := tenants.GetByID(ctx, candidateID)
		switch {
		case err == nil && existing.OwnerUserID == ownerUserID:
			return existing, false, nil
		case err == nil:
			// Someone else's tenant. The candidate is unusable for this
			// caller, so converge on their own record instead.
			candidateID = uuid.Nil
		case !errors.Is(err, domain.ErrTenantNotFound):
			return nil, false, err
		}
	}

	// Candidate missing or absent from the database; the owner's existing
	// tenant, if any, is authoritative.
	owned, err := tenants.GetByOwner(ctx, ownerUserID)
	if err == nil {
		return owned, false, nil
	}
	if !errors.Is(err, domain.ErrTenantNotFound) {
		return nil, false, err
	}

	if !create {
		return nil, false, domain.ErrTenantNotFound
	}

	id := candidateID
	if id == uuid.Nil {
		id = uuid.New()
	}
	if name == "" {
		name = "My Business"
	}

	now := time.Now()
	tenant := &domain.Tenant{
		ID:          id,
		Name:        name,
		Status:      domain.TenantStatusActive,
		OwnerUserID: ownerUserID,
		SchemaName:  domain.SchemaName(id),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := tenants.Create(ctx, tenant); err != nil {
		// A concurrent init may have won the insert; their record stands.
		if errors.Is(err, domain.ErrTenantAlreadyExists) {
			if owned, getErr := tenants.GetByOwner(ctx, ownerUserID); getErr == nil {
				return owned, false, nil
			}
		}
		return nil, false, err
	}
	return tenant, true, nil
}
