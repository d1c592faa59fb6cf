package rules

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestLoadUganda(t *testing.T) {
	table, err := Load("ug")
	require.NoError(t, err)

	assert.Equal(t, "UG", table.CountryCode)
	assert.Equal(t, "UGX", table.Currency)
	assert.True(t, table.NSSFEmployeeRate.Equal(d("0.05")))
	assert.True(t, table.NSSFEmployerRate.Equal(d("0.10")))
	require.Len(t, table.Brackets, 4)
	assert.Nil(t, table.Brackets[3].Upper)
	assert.Empty(t, table.Warnings())
}

func TestLoadUnknownCountry(t *testing.T) {
	_, err := Load("ZZ")
	assert.Error(t, err)
}

func TestCountries(t *testing.T) {
	codes, err := Countries()
	require.NoError(t, err)
	assert.Contains(t, codes, "UG")
}

func TestBracketFor(t *testing.T) {
	table, err := Load("UG")
	require.NoError(t, err)

	tests := []struct {
		taxable string
		lower   string
	}{
		{"0", "0"},
		{"310000", "0"},
		{"310000.01", "310000"},
		{"410000", "310000"},
		{"410000.01", "410000"},
		{"475000", "410000"},
		{"10000000", "410000"},
		{"25000000", "10000000"},
	}

	for _, tt := range tests {
		t.Run(tt.taxable, func(t *testing.T) {
			b := table.BracketFor(d(tt.taxable))
			assert.True(t, b.Lower.Equal(d(tt.lower)), "lower = %s", b.Lower)
		})
	}
}

func TestBracketTax(t *testing.T) {
	table, err := Load("UG")
	require.NoError(t, err)

	assert.True(t, table.BracketFor(d("200000")).Tax(d("200000")).IsZero())
	// 410,000 to 10,000,000 at 20% on top of 10,000
	assert.True(t, table.BracketFor(d("475000")).Tax(d("475000")).Equal(d("23000")))
	assert.True(t, table.BracketFor(d("410000")).Tax(d("410000")).Equal(d("10000")))
}

func TestParse_BaseDiscontinuityIsWarning(t *testing.T) {
	table, err := Parse([]byte(`
country_code: XX
currency: XXX
nssf: {employee_rate: "0.05", employer_rate: "0.1"}
paye:
  - {upper: "100", lower: "0", rate: "0.1", base: "0"}
  - {lower: "100", rate: "0.2", base: "50"}
`))
	require.NoError(t, err)

	warnings := table.Warnings()
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "bracket 1 base 50")
	// configured base is used as is
	assert.True(t, table.BracketFor(d("200")).Tax(d("200")).Equal(d("70")))
}

const validYAML = `
country_code: XX
currency: XXX
nssf:
  employee_rate: "0.05"
  employer_rate: "0.10"
paye:
  - upper: "100"
    lower: "0"
    rate: "0"
    base: "0"
  - lower: "100"
    rate: "0.5"
    base: "0"
`

func TestParse(t *testing.T) {
	table, err := Parse([]byte(validYAML))
	require.NoError(t, err)
	assert.Equal(t, "XX", table.CountryCode)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"malformed yaml", "paye: ["},
		{"bad rate literal", `
country_code: XX
nssf: {employee_rate: "abc", employer_rate: "0.1"}
paye: [{lower: "0", rate: "0", base: "0"}]
`},
		{"no brackets", `
country_code: XX
nssf: {employee_rate: "0.05", employer_rate: "0.1"}
`},
		{"gap between brackets", `
country_code: XX
nssf: {employee_rate: "0.05", employer_rate: "0.1"}
paye:
  - {upper: "100", lower: "0", rate: "0", base: "0"}
  - {lower: "150", rate: "0.2", base: "0"}
`},
		{"bounded last bracket", `
country_code: XX
nssf: {employee_rate: "0.05", employer_rate: "0.1"}
paye:
  - {upper: "100", lower: "0", rate: "0.1", base: "0"}
`},
		{"unbounded middle bracket", `
country_code: XX
nssf: {employee_rate: "0.05", employer_rate: "0.1"}
paye:
  - {lower: "0", rate: "0.1", base: "0"}
  - {lower: "100", rate: "0.2", base: "10"}
`},
		{"negative rate", `
country_code: XX
nssf: {employee_rate: "0.05", employer_rate: "0.1"}
paye:
  - {lower: "0", rate: "-0.1", base: "0"}
`},
		{"rate above one", `
country_code: XX
nssf: {employee_rate: "1.5", employer_rate: "0.1"}
paye:
  - {lower: "0", rate: "0.1", base: "0"}
`},
		{"first bracket not at zero", `
country_code: XX
nssf: {employee_rate: "0.05", employer_rate: "0.1"}
paye:
  - {lower: "10", rate: "0.1", base: "0"}
`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}
