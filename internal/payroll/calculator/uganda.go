package calculator

import (
	"github.com/opsdesk/opsdesk-backend/internal/payroll/domain"
	"github.com/opsdesk/opsdesk-backend/internal/payroll/rules"
	"github.com/shopspring/decimal"
)

// moneyPlaces matches the NUMERIC(18,2) money columns
const moneyPlaces = 2

// Uganda applies NSSF contributions and progressive PAYE
type Uganda struct {
	table *rules.Table
}

// NewUganda builds the calculator from a validated rule table
func NewUganda(table *rules.Table) *Uganda {
	return &Uganda{table: table}
}

// Calculate derives gross from the Basic Salary element, then:
//
//	employee NSSF = gross * employee rate (deduction)
//	employer NSSF = gross * employer rate (informational, not deducted)
//	taxable       = gross - employee NSSF
//	PAYE          = bracket tax on taxable (deduction)
//	net           = gross - (employee NSSF + PAYE)
//
// Zero-valued lines are left out of Details. Currency is the Basic Salary
// element's, else defaultCurrency, else the rule table's.
func (u *Uganda) Calculate(emp domain.Employee, elements domain.SystemElements, defaultCurrency string) domain.CalculationResult {
	currency := defaultCurrency
	if currency == "" {
		currency = u.table.Currency
	}

	result := domain.CalculationResult{
		EmployeeID:                 emp.ID,
		Currency:                   currency,
		GrossEarnings:              decimal.Zero,
		NetPay:                     decimal.Zero,
		TotalDeductions:            decimal.Zero,
		TotalEmployerContributions: decimal.Zero,
		Details:                    []domain.DetailLine{},
	}

	gross := decimal.Zero
	if emp.Contract != nil {
		if basic, ok := emp.Contract.Element(elements.BasicSalary); ok {
			gross = basic.Amount.Round(moneyPlaces)
			if basic.Currency != "" {
				result.Currency = basic.Currency
			}
		}
	}
	if !gross.IsPositive() {
		return result
	}

	nssfEmployee := gross.Mul(u.table.NSSFEmployeeRate).Round(moneyPlaces)
	nssfEmployer := gross.Mul(u.table.NSSFEmployerRate).Round(moneyPlaces)
	taxable := gross.Sub(nssfEmployee)
	paye := u.table.BracketFor(taxable).Tax(taxable).Round(moneyPlaces)

	deductions := nssfEmployee.Add(paye)

	result.GrossEarnings = gross
	result.TotalDeductions = deductions
	result.NetPay = gross.Sub(deductions)
	result.TotalEmployerContributions = nssfEmployer

	result.Details = appendNonZero(result.Details, elements.BasicSalary, gross, domain.SideEmployee)
	result.Details = appendNonZero(result.Details, elements.NSSFEmployee, nssfEmployee.Neg(), domain.SideEmployee)
	result.Details = appendNonZero(result.Details, elements.PAYE, paye.Neg(), domain.SideEmployee)
	result.Details = appendNonZero(result.Details, elements.NSSFEmployer, nssfEmployer, domain.SideEmployer)

	return result
}

func appendNonZero(lines []domain.DetailLine, elementID string, amount decimal.Decimal, side domain.Side) []domain.DetailLine {
	if amount.IsZero() {
		return lines
	}
	return append(lines, domain.DetailLine{ElementID: elementID, Amount: amount, Side: side})
}
