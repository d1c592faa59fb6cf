package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/opsdesk/opsdesk-backend/internal/payroll/domain"
)

// FixtureFactory inserts payroll fixtures directly, bypassing repositories
type FixtureFactory struct {
	db *sqlx.DB
}

// NewFixtureFactory creates a new fixture factory
func NewFixtureFactory(db *sqlx.DB) *FixtureFactory {
	return &FixtureFactory{db: db}
}

// Employee inserts an active employee without a contract
func (f *FixtureFactory) Employee(t *testing.T, ctx context.Context, tenantID, firstName, lastName string) string {
	t.Helper()
	id := uuid.New().String()
	_, err := f.db.ExecContext(ctx,
		`INSERT INTO payroll.employees (id, tenant_id, first_name, last_name) VALUES ($1, $2, $3, $4)`,
		id, tenantID, firstName, lastName,
	)
	if err != nil {
		t.Fatalf("failed to insert employee: %v", err)
	}
	return id
}

// PayableEmployee inserts an employee with an active contract carrying a
// Basic Salary element of the given amount.
func (f *FixtureFactory) PayableEmployee(t *testing.T, ctx context.Context, tenantID, firstName, lastName, basicSalary string) string {
	t.Helper()
	employeeID := f.Employee(t, ctx, tenantID, firstName, lastName)

	contractID := uuid.New().String()
	if _, err := f.db.ExecContext(ctx,
		`INSERT INTO payroll.contracts (id, tenant_id, employee_id) VALUES ($1, $2, $3)`,
		contractID, tenantID, employeeID,
	); err != nil {
		t.Fatalf("failed to insert contract: %v", err)
	}

	if _, err := f.db.ExecContext(ctx, `
		INSERT INTO payroll.contract_elements (tenant_id, contract_id, element_id, amount, currency)
		SELECT $1, $2, id, $3, 'UGX' FROM payroll.pay_elements
		WHERE key = $4 AND is_system_defined`,
		tenantID, contractID, basicSalary, string(domain.ElementBasicSalary),
	); err != nil {
		t.Fatalf("failed to insert contract element: %v", err)
	}

	return employeeID
}
