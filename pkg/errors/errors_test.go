package errors_test

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/opsdesk/opsdesk-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap_KeepsCauseReachable(t *testing.T) {
	cause := stderrors.New("payslip insert failed")
	err := errors.Wrap(cause, "PAYROLL_PERSISTENCE_FAILED", "failed to save payslips", http.StatusInternalServerError)

	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "failed to save payslips: payslip insert failed", err.Error())

	var appErr *errors.AppError
	require.True(t, errors.As(fmt.Errorf("outer: %w", err), &appErr))
	assert.Equal(t, "PAYROLL_PERSISTENCE_FAILED", appErr.Code)
	assert.Equal(t, http.StatusInternalServerError, appErr.StatusCode)
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		name   string
		err    *errors.AppError
		status int
		target error
	}{
		{"not found", errors.NotFound("payroll run"), http.StatusNotFound, errors.ErrNotFound},
		{"bad request", errors.BadRequest("period_end before period_start"), http.StatusBadRequest, errors.ErrBadRequest},
		{"conflict", errors.Conflict("run exists"), http.StatusConflict, errors.ErrConflict},
		{"forbidden", errors.Forbidden("missing permission"), http.StatusForbidden, errors.ErrForbidden},
		{"unprocessable", errors.Unprocessable("UNSUPPORTED_JURISDICTION", "no calculator"), http.StatusUnprocessableEntity, errors.ErrUnprocessable},
		{"validation", errors.Validation(map[string]string{"period_start": "this field is required"}), http.StatusBadRequest, errors.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.StatusCode)
			assert.True(t, errors.Is(tt.err, tt.target))
		})
	}

	assert.Equal(t, "payroll run not found", errors.NotFound("payroll run").Message)
}
