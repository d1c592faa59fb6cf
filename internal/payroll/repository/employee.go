package repository

import (
	"context"

	"github.com/opsdesk/opsdesk-backend/internal/payroll/domain"
	"github.com/opsdesk/opsdesk-backend/pkg/database"
	"github.com/opsdesk/opsdesk-backend/pkg/tenant"
	"github.com/shopspring/decimal"
)

// EmployeeRepository reads employees with their active contracts
type EmployeeRepository struct {
	db *database.DB
}

// NewEmployeeRepository creates a new employee repository
func NewEmployeeRepository(db *database.DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

// employeeRow is one line of the employee/contract/element join
type employeeRow struct {
	EmployeeID string              `db:"employee_id"`
	FirstName  string              `db:"first_name"`
	LastName   string              `db:"last_name"`
	ContractID *string             `db:"contract_id"`
	LineID     *string             `db:"contract_element_id"`
	ElementID  *string             `db:"element_id"`
	Amount     decimal.NullDecimal `db:"amount"`
	Currency   *string             `db:"currency"`
}

// ListActiveWithContracts returns every active employee, each with its
// active contract and contract elements when it has one.
// TENANT-ISOLATED: rows are filtered by the RLS policy on each table
func (r *EmployeeRepository) ListActiveWithContracts(ctx context.Context) ([]domain.Employee, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var rows []employeeRow
	err = r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `
			SELECT e.id AS employee_id, e.first_name, e.last_name,
			       c.id AS contract_id,
			       ce.id AS contract_element_id, ce.element_id, ce.amount, ce.currency
			FROM employees e
			LEFT JOIN contracts c ON c.employee_id = e.id AND c.is_active
			LEFT JOIN contract_elements ce ON ce.contract_id = c.id
			WHERE e.is_active
			ORDER BY e.last_name, e.first_name, e.id, ce.id
		`
		return r.db.SelectContext(ctx, &rows, query)
	})
	if err != nil {
		return nil, err
	}

	return foldEmployees(rows), nil
}

// foldEmployees groups join rows, which arrive ordered by employee, into
// one Employee per ID.
func foldEmployees(rows []employeeRow) []domain.Employee {
	var employees []domain.Employee

	for _, row := range rows {
		if n := len(employees); n == 0 || employees[n-1].ID != row.EmployeeID {
			employees = append(employees, domain.Employee{
				ID:        row.EmployeeID,
				FirstName: row.FirstName,
				LastName:  row.LastName,
			})
		}
		emp := &employees[len(employees)-1]

		if row.ContractID == nil {
			continue
		}
		if emp.Contract == nil {
			emp.Contract = &domain.Contract{ID: *row.ContractID}
		}
		if row.LineID == nil || row.ElementID == nil || !row.Amount.Valid {
			continue
		}

		line := domain.ContractElement{
			ID:         *row.LineID,
			ContractID: *row.ContractID,
			ElementID:  *row.ElementID,
			Amount:     row.Amount.Decimal,
		}
		if row.Currency != nil {
			line.Currency = *row.Currency
		}
		emp.Contract.Elements = append(emp.Contract.Elements, line)
	}

	return employees
}
