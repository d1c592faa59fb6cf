package repository

import (
	"context"

	"github.com/opsdesk/opsdesk-backend/internal/payroll/domain"
	"github.com/opsdesk/opsdesk-backend/pkg/database"
)

// ElementRepository reads the pay element catalog
type ElementRepository struct {
	db *database.DB
}

// NewElementRepository creates a new element repository
func NewElementRepository(db *database.DB) *ElementRepository {
	return &ElementRepository{db: db}
}

// ListSystemDefined returns the read-only system elements shared by all tenants
func (r *ElementRepository) ListSystemDefined(ctx context.Context) ([]domain.PayElement, error) {
	var elements []domain.PayElement

	err := r.db.WithSchema(ctx, func(ctx context.Context) error {
		query := `
			SELECT id, key, name, kind, is_system_defined
			FROM pay_elements
			WHERE is_system_defined
			ORDER BY key
		`
		return r.db.SelectContext(ctx, &elements, query)
	})
	if err != nil {
		return nil, err
	}

	return elements, nil
}
