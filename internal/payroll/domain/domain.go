// Package domain holds the payroll data model shared by the calculator,
// the repositories and the run lifecycle services.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RunStatus is the lifecycle state of a payroll run
type RunStatus string

const (
	RunStatusPendingApproval RunStatus = "PENDING_APPROVAL"
	RunStatusApproved        RunStatus = "APPROVED"
)

// ElementKind classifies how a pay element affects a payslip
type ElementKind string

const (
	ElementKindEarning              ElementKind = "EARNING"
	ElementKindDeduction            ElementKind = "DEDUCTION"
	ElementKindEmployerContribution ElementKind = "EMPLOYER_CONTRIBUTION"
)

// Side tells whether a detail line is borne by the employee or the employer
type Side string

const (
	SideEmployee Side = "EMPLOYEE"
	SideEmployer Side = "EMPLOYER"
)

// Tenant is the subset of the tenant registry payroll needs
type Tenant struct {
	ID                  string `db:"id" json:"id"`
	Name                string `db:"name" json:"name"`
	CountryCode         string `db:"country_code" json:"country_code"`
	DefaultCurrencyCode string `db:"default_currency_code" json:"default_currency_code"`
}

// PayElement is a catalog entry such as Basic Salary or PAYE
type PayElement struct {
	ID              string      `db:"id" json:"id"`
	Key             ElementKey  `db:"key" json:"key"`
	Name            string      `db:"name" json:"name"`
	Kind            ElementKind `db:"kind" json:"kind"`
	IsSystemDefined bool        `db:"is_system_defined" json:"is_system_defined"`
}

// ContractElement binds a pay element to a contract with an amount
type ContractElement struct {
	ID         string          `json:"id"`
	ContractID string          `json:"contract_id"`
	ElementID  string          `json:"element_id"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
}

// Contract is an employee's active employment contract
type Contract struct {
	ID       string            `json:"id"`
	Elements []ContractElement `json:"elements"`
}

// Element returns the contract element bound to elementID, if any
func (c *Contract) Element(elementID string) (ContractElement, bool) {
	for _, el := range c.Elements {
		if el.ElementID == elementID {
			return el, true
		}
	}
	return ContractElement{}, false
}

// Employee is an active employee with at most one active contract
type Employee struct {
	ID        string    `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Contract  *Contract `json:"contract,omitempty"`
}

// DetailLine is one signed contribution on a calculation result.
// Employee-side deductions are negative; employer contributions are
// positive and informational.
type DetailLine struct {
	ElementID string          `json:"element_id"`
	Amount    decimal.Decimal `json:"amount"`
	Side      Side            `json:"side"`
}

// CalculationResult is the in-memory outcome of calculating one employee
type CalculationResult struct {
	EmployeeID                 string          `json:"employee_id"`
	Currency                   string          `json:"currency"`
	GrossEarnings              decimal.Decimal `json:"gross_earnings"`
	NetPay                     decimal.Decimal `json:"net_pay"`
	TotalDeductions            decimal.Decimal `json:"total_deductions"`
	TotalEmployerContributions decimal.Decimal `json:"total_employer_contributions"`
	Details                    []DetailLine    `json:"details"`
}

// PayrollRun is the header record of one tenant's payroll for a period
type PayrollRun struct {
	ID          string     `db:"id" json:"id"`
	TenantID    string     `db:"tenant_id" json:"tenant_id"`
	PeriodStart time.Time  `db:"period_start" json:"period_start"`
	PeriodEnd   time.Time  `db:"period_end" json:"period_end"`
	Status      RunStatus  `db:"status" json:"status"`
	CreatedBy   *string    `db:"created_by" json:"created_by,omitempty"`
	ApprovedBy  *string    `db:"approved_by" json:"approved_by,omitempty"`
	ApprovedAt  *time.Time `db:"approved_at" json:"approved_at,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// Payslip is one employee's persisted result within a run
type Payslip struct {
	ID                         string          `db:"id" json:"id"`
	TenantID                   string          `db:"tenant_id" json:"-"`
	RunID                      string          `db:"run_id" json:"run_id"`
	EmployeeID                 string          `db:"employee_id" json:"employee_id"`
	Currency                   string          `db:"currency" json:"currency"`
	GrossEarnings              decimal.Decimal `db:"gross_earnings" json:"gross_earnings"`
	NetPay                     decimal.Decimal `db:"net_pay" json:"net_pay"`
	TotalDeductions            decimal.Decimal `db:"total_deductions" json:"total_deductions"`
	TotalEmployerContributions decimal.Decimal `db:"total_employer_contributions" json:"total_employer_contributions"`
	Details                    []PayslipDetail `db:"-" json:"details,omitempty"`
}

// PayslipDetail is one non-zero element line of a payslip
type PayslipDetail struct {
	ID        string          `db:"id" json:"id"`
	TenantID  string          `db:"tenant_id" json:"-"`
	PayslipID string          `db:"payslip_id" json:"payslip_id"`
	ElementID string          `db:"element_id" json:"element_id"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
}
