package domain

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// tenantIDPattern is the canonical 8-4-4-4-12 textual UUID form. Values in
// any other form accepted by uuid.Parse (braces, URN prefix, missing
// hyphens) are never treated as tenant IDs.
var tenantIDPattern = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// IsValidTenantID reports whether s is a canonical UUID tenant identifier.
func IsValidTenantID(s string) bool {
	return tenantIDPattern.MatchString(s)
}

// ParseTenantID parses a canonical tenant identifier.
func ParseTenantID(s string) (uuid.UUID, error) {
	if !IsValidTenantID(s) {
		return uuid.Nil, ErrInvalidTenantID
	}
	return uuid.Parse(s)
}

// TenantStatus is the lifecycle state of a tenant.
type TenantStatus string

const (
	TenantStatusActive    TenantStatus = "active"
	TenantStatusSuspended TenantStatus = "suspended"
)

// Tenant represents an isolated organization account.
type Tenant struct {
	ID          uuid.UUID
	Name        string
	Status      TenantStatus
	OwnerUserID uuid.UUID
	SchemaName  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}

// SchemaName derives the per-tenant isolation schema name,
// tenant_<uuid with underscores>.
func SchemaName(id uuid.UUID) string {
	return "tenant_" + strings.ReplaceAll(id.String(), "-", "_")
}
