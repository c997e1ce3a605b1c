package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/KuolDimDeng/dott-tenant/pkg/domain"
)

// TenantsRepository handles tenant record persistence.
type TenantsRepository struct {
	db *sql.DB
}

// NewTenantsRepository creates a new tenants repository.
func NewTenantsRepository(db *sql.DB) *TenantsRepository {
	return &TenantsRepository{db: db}
}

// Create creates a new tenant record.
func (r *TenantsRepository) Create(ctx context.Context, tenant *domain.Tenant) error {
	query := `
		INSERT INTO tenants (id, name, status, owner_user_id, schema_name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		tenant.ID,
		tenant.Name,
		tenant.Status,
		tenant.OwnerUserID,
		tenant.SchemaName,
		tenant.CreatedAt,
		tenant.UpdatedAt,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return domain.ErrTenantAlreadyExists
	}
	return err
}

// GetByID retrieves a tenant by ID.
func (r *TenantsRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error) {
	query := `
		SELECT id, name, status, owner_user_id, schema_name, created_at, updated_at, deleted_at
		FROM tenants
		WHERE id = $1 AND deleted_at IS NULL
	`

	var tenant domain.Tenant
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&tenant.ID,
		&tenant.Name,
		&tenant.Status,
		&tenant.OwnerUserID,
		&tenant.SchemaName,
		&tenant.CreatedAt,
		&tenant.UpdatedAt,
		&tenant.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTenantNotFound
		}
		return nil, err
	}

	return &tenant, nil
}

// GetByOwner retrieves the tenant owned by the given user. Each user owns
// at most one tenant.
func (r *TenantsRepository) GetByOwner(ctx context.Context, ownerUserID uuid.UUID) (*domain.Tenant, error) {
	query := `
		SELECT id, name, status, owner_user_id, schema_name, created_at, updated_at, deleted_at
		FROM tenants
		WHERE owner_user_id = $1 AND deleted_at IS NULL
		ORDER BY created_at
		LIMIT 1
	`

	var tenant domain.Tenant
	err := r.db.QueryRowContext(ctx, query, ownerUserID).Scan(
		&tenant.ID,
		&tenant.Name,
		&tenant.Status,
		&tenant.OwnerUserID,
		&tenant.SchemaName,
		&tenant.CreatedAt,
		&tenant.UpdatedAt,
		&tenant.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrTenantNotFound
		}
		return nil, err
	}

	return &tenant, nil
}
