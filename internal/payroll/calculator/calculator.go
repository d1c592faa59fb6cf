// Package calculator turns one employee's contracted pay into statutory
// contributions, tax and net pay. Calculators are pure: no I/O, no clock,
// and identical inputs always yield identical results.
package calculator

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/opsdesk/opsdesk-backend/internal/payroll/domain"
	"github.com/opsdesk/opsdesk-backend/internal/payroll/rules"
)

// Calculator computes a single employee's payslip figures for one jurisdiction.
// defaultCurrency is the tenant's currency, used when the contract does not
// state one.
type Calculator interface {
	Calculate(emp domain.Employee, elements domain.SystemElements, defaultCurrency string) domain.CalculationResult
}

// Registry selects a Calculator by ISO country code
type Registry struct {
	mu          sync.RWMutex
	calculators map[string]Calculator
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{calculators: make(map[string]Calculator)}
}

// Register adds or replaces the calculator for a country code
func (r *Registry) Register(countryCode string, c Calculator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calculators[countryCode] = c
}

// Select returns the calculator registered for exactly countryCode
func (r *Registry) Select(countryCode string) (Calculator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.calculators[countryCode]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedJurisdiction, countryCode)
	}
	return c, nil
}

// Countries lists registered country codes in sorted order
func (r *Registry) Countries() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	codes := make([]string, 0, len(r.calculators))
	for code := range r.calculators {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// constructors maps a country code to the calculator built from its rule table
var constructors = map[string]func(*rules.Table) Calculator{
	"UG": func(t *rules.Table) Calculator { return NewUganda(t) },
}

// DefaultRegistry loads every embedded rule table and registers its calculator.
// It fails if a table is invalid or has no calculator implementation.
func DefaultRegistry() (*Registry, error) {
	codes, err := rules.Countries()
	if err != nil {
		return nil, err
	}

	r := NewRegistry()
	for _, code := range codes {
		code = strings.ToUpper(code)
		build, ok := constructors[code]
		if !ok {
			return nil, fmt.Errorf("rule table %s has no calculator", code)
		}
		table, err := rules.Load(code)
		if err != nil {
			return nil, err
		}
		r.Register(code, build(table))
	}
	return r, nil
}
