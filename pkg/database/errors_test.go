package database

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapPQError(t *testing.T) {
	t.Run("duplicate run for period", func(t *testing.T) {
		err := fmt.Errorf("insert run: %w", &pq.Error{Code: "23505", Constraint: "payroll_runs_tenant_period_key"})

		appErr := MapPQError(err)
		require.NotNil(t, appErr)
		assert.Equal(t, http.StatusConflict, appErr.StatusCode)
		assert.Equal(t, "a payroll run for this period already exists", appErr.Message)
	})

	t.Run("foreign key", func(t *testing.T) {
		appErr := MapPQError(&pq.Error{Code: "23503"})
		require.NotNil(t, appErr)
		assert.Equal(t, http.StatusBadRequest, appErr.StatusCode)
	})

	t.Run("period check", func(t *testing.T) {
		appErr := MapPQError(&pq.Error{Code: "23514", Constraint: "payroll_runs_period_valid"})
		require.NotNil(t, appErr)
		assert.Contains(t, appErr.Details, "period_end")
	})

	t.Run("unmapped code", func(t *testing.T) {
		assert.Nil(t, MapPQError(&pq.Error{Code: "40001"}))
	})

	t.Run("not a pq error", func(t *testing.T) {
		assert.Nil(t, MapPQError(fmt.Errorf("boom")))
	})
}
