// Package rules loads the statutory rule tables (contribution rates and
// progressive tax brackets) that drive the per-country calculators.
package rules

import (
	"embed"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed tables/*.yaml
var tables embed.FS

// Bracket is one band of a progressive tax table. Upper is nil for the
// unbounded top band.
type Bracket struct {
	Upper *decimal.Decimal
	Lower decimal.Decimal
	Rate  decimal.Decimal
	Base  decimal.Decimal
}

// Contains reports whether taxable falls at or below the bracket's upper bound
func (b Bracket) Contains(taxable decimal.Decimal) bool {
	return b.Upper == nil || b.Upper.GreaterThanOrEqual(taxable)
}

// Tax applies the bracket to a taxable amount. A zero-rate band yields no tax.
func (b Bracket) Tax(taxable decimal.Decimal) decimal.Decimal {
	if b.Rate.IsZero() {
		return decimal.Zero
	}
	return b.Base.Add(taxable.Sub(b.Lower).Mul(b.Rate))
}

// Table is a validated rule table for one country
type Table struct {
	CountryCode      string
	Currency         string
	NSSFEmployeeRate decimal.Decimal
	NSSFEmployerRate decimal.Decimal
	Brackets         []Bracket
}

// BracketFor returns the first bracket, in ascending order, whose upper bound
// is >= taxable. A taxable amount on a boundary therefore takes the lower band.
func (t *Table) BracketFor(taxable decimal.Decimal) Bracket {
	for _, b := range t.Brackets {
		if b.Contains(taxable) {
			return b
		}
	}
	// Unreachable for a validated table: the last bracket is unbounded.
	return t.Brackets[len(t.Brackets)-1]
}

type rawBracket struct {
	Upper *string `yaml:"upper"`
	Lower string  `yaml:"lower"`
	Rate  string  `yaml:"rate"`
	Base  string  `yaml:"base"`
}

type rawTable struct {
	CountryCode string `yaml:"country_code"`
	Currency    string `yaml:"currency"`
	NSSF        struct {
		EmployeeRate string `yaml:"employee_rate"`
		EmployerRate string `yaml:"employer_rate"`
	} `yaml:"nssf"`
	PAYE []rawBracket `yaml:"paye"`
}

// Load reads and validates the embedded table for a country code
func Load(countryCode string) (*Table, error) {
	data, err := tables.ReadFile("tables/" + strings.ToUpper(countryCode) + ".yaml")
	if err != nil {
		return nil, fmt.Errorf("no rule table for %s: %w", countryCode, err)
	}
	return Parse(data)
}

// Countries lists the country codes with an embedded rule table
func Countries() ([]string, error) {
	entries, err := tables.ReadDir("tables")
	if err != nil {
		return nil, err
	}
	codes := make([]string, 0, len(entries))
	for _, e := range entries {
		codes = append(codes, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	return codes, nil
}

// Parse decodes a YAML rule table and validates it
func Parse(data []byte) (*Table, error) {
	var raw rawTable
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse rule table: %w", err)
	}

	t := &Table{
		CountryCode: raw.CountryCode,
		Currency:    raw.Currency,
	}

	var err error
	if t.NSSFEmployeeRate, err = decimal.NewFromString(raw.NSSF.EmployeeRate); err != nil {
		return nil, fmt.Errorf("nssf.employee_rate: %w", err)
	}
	if t.NSSFEmployerRate, err = decimal.NewFromString(raw.NSSF.EmployerRate); err != nil {
		return nil, fmt.Errorf("nssf.employer_rate: %w", err)
	}

	for i, rb := range raw.PAYE {
		b, err := rb.decode()
		if err != nil {
			return nil, fmt.Errorf("paye[%d]: %w", i, err)
		}
		t.Brackets = append(t.Brackets, b)
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

func (rb rawBracket) decode() (Bracket, error) {
	var b Bracket
	var err error

	if rb.Upper != nil {
		upper, err := decimal.NewFromString(*rb.Upper)
		if err != nil {
			return b, fmt.Errorf("upper: %w", err)
		}
		b.Upper = &upper
	}
	if b.Lower, err = decimal.NewFromString(rb.Lower); err != nil {
		return b, fmt.Errorf("lower: %w", err)
	}
	if b.Rate, err = decimal.NewFromString(rb.Rate); err != nil {
		return b, fmt.Errorf("rate: %w", err)
	}
	if b.Base, err = decimal.NewFromString(rb.Base); err != nil {
		return b, fmt.Errorf("base: %w", err)
	}
	return b, nil
}

// Validate checks the table is usable for progressive taxation:
//   - at least one bracket, starting at zero
//   - each bracket starts where the previous one ends and ends above its start
//   - only the last bracket is unbounded
//   - rates are within [0, 1] and base tax is not negative
//
// Base tax is taken as configured; see Warnings for bands whose base does
// not carry the previous band's tax.
func (t *Table) Validate() error {
	if t.CountryCode == "" {
		return fmt.Errorf("rule table: country_code is required")
	}
	if len(t.Brackets) == 0 {
		return fmt.Errorf("rule table %s: no brackets", t.CountryCode)
	}
	for name, rate := range map[string]decimal.Decimal{
		"nssf.employee_rate": t.NSSFEmployeeRate,
		"nssf.employer_rate": t.NSSFEmployerRate,
	} {
		if !validRate(rate) {
			return fmt.Errorf("rule table %s: %s %s out of range", t.CountryCode, name, rate)
		}
	}

	if !t.Brackets[0].Lower.IsZero() {
		return fmt.Errorf("rule table %s: first bracket must start at 0", t.CountryCode)
	}

	last := len(t.Brackets) - 1
	for i, b := range t.Brackets {
		if !validRate(b.Rate) {
			return fmt.Errorf("rule table %s: bracket %d rate %s out of range", t.CountryCode, i, b.Rate)
		}
		if b.Base.IsNegative() {
			return fmt.Errorf("rule table %s: bracket %d has negative base", t.CountryCode, i)
		}
		if b.Upper == nil {
			if i != last {
				return fmt.Errorf("rule table %s: only the last bracket may be unbounded", t.CountryCode)
			}
		} else if !b.Upper.GreaterThan(b.Lower) {
			return fmt.Errorf("rule table %s: bracket %d upper must exceed lower", t.CountryCode, i)
		}

		if i == 0 {
			continue
		}
		prev := t.Brackets[i-1]
		if !b.Lower.Equal(*prev.Upper) {
			return fmt.Errorf("rule table %s: bracket %d starts at %s, previous ends at %s",
				t.CountryCode, i, b.Lower, prev.Upper)
		}
	}

	if t.Brackets[last].Upper != nil {
		return fmt.Errorf("rule table %s: last bracket must be unbounded", t.CountryCode)
	}
	return nil
}

// Warnings lists brackets whose base tax differs from the tax due at the
// end of the previous bracket. Such a table is still used as configured, but
// tax jumps (or drops) at that boundary.
func (t *Table) Warnings() []string {
	var warnings []string
	for i := 1; i < len(t.Brackets); i++ {
		prev := t.Brackets[i-1]
		if prev.Upper == nil {
			continue
		}
		if want := prev.Tax(*prev.Upper); !t.Brackets[i].Base.Equal(want) {
			warnings = append(warnings, fmt.Sprintf("rule table %s: bracket %d base %s, previous bracket ends at tax %s",
				t.CountryCode, i, t.Brackets[i].Base, want))
		}
	}
	return warnings
}

func validRate(r decimal.Decimal) bool {
	return !r.IsNegative() && r.LessThanOrEqual(decimal.NewFromInt(1))
}
