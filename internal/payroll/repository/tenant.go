package repository

import (
	"context"
	"database/sql"
	stderrors "errors"

	"github.com/opsdesk/opsdesk-backend/internal/payroll/domain"
	"github.com/opsdesk/opsdesk-backend/pkg/database"
	"github.com/opsdesk/opsdesk-backend/pkg/errors"
)

// TenantRepository reads the tenant registry
type TenantRepository struct {
	db *database.DB
}

// NewTenantRepository creates a new tenant repository
func NewTenantRepository(db *database.DB) *TenantRepository {
	return &TenantRepository{db: db}
}

// GetByID returns the tenant's payroll settings.
// The registry is global and has no tenant policy.
func (r *TenantRepository) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	var t domain.Tenant

	query := `
		SELECT id, name, country_code, default_currency_code
		FROM tenants
		WHERE id = $1
	`
	err := r.db.WithSchema(ctx, func(ctx context.Context) error {
		return r.db.GetContext(ctx, &t, query, id)
	})
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFound("tenant")
	}
	if err != nil {
		return nil, err
	}

	return &t, nil
}
