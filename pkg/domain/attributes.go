package domain

import "github.com/google/uuid"

// Identity-provider custom attribute keys that may carry the tenant ID.
// Several legacy naming conventions are still in use; consumers may read
// any of them, so every write must set all of them to the same value.
const (
	AttrTenantIDUpper = "custom:tenant_ID"
	AttrTenantIDLower = "custom:tenant_id"
	AttrTenantIDCamel = "custom:tenantId"
	AttrBusinessID    = "custom:businessid"

	// AttrUpdatedAt records when the tenant ID attributes were last written.
	AttrUpdatedAt = "custom:updated_at"
)

// TenantIDAliases lists the alias keys in read-priority order. Reads take
// the first alias holding a valid tenant ID; writes set every alias.
var TenantIDAliases = []string{
	AttrTenantIDUpper,
	AttrTenantIDLower,
	AttrTenantIDCamel,
	AttrBusinessID,
}

// TenantIDFromAttributes scans an attribute bag for the tenant ID,
// checking each alias in priority order. Only canonical UUID values count.
func TenantIDFromAttributes(attrs map[string]string) (uuid.UUID, bool) {
	for _, alias := range TenantIDAliases {
		value, ok := attrs[alias]
		if !ok {
			continue
		}
		id, err := ParseTenantID(value)
		if err != nil {
			continue
		}
		return id, true
	}
	return uuid.Nil, false
}
