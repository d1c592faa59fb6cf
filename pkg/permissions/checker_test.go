package permissions

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasPermission(t *testing.T) {
	tests := []struct {
		name     string
		perms    []string
		required string
		want     bool
	}{
		{"full access", []string{"*"}, PayrollRunsApprove, true},
		{"exact match", []string{PayrollRunsApprove}, PayrollRunsApprove, true},
		{"resource wildcard", []string{"payroll.*"}, PayrollRunsApprove, true},
		{"nested wildcard", []string{"payroll.runs.*"}, PayrollRunsRead, true},
		{"other resource wildcard", []string{"inventory.*"}, PayrollRunsApprove, false},
		{"prefix without dot is not a match", []string{"pay.*"}, PayrollRunsApprove, false},
		{"read does not grant approve", []string{PayrollRunsRead}, PayrollRunsApprove, false},
		{"nothing required", nil, "", true},
		{"no permissions", nil, PayrollRunsCreate, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasPermission(tt.perms, tt.required))
		})
	}
}

func TestParse(t *testing.T) {
	assert.Equal(t, []string{"payroll.runs.read", "payroll.runs.approve"}, Parse(" payroll.runs.read, ,payroll.runs.approve "))
	assert.Nil(t, Parse(""))
}
