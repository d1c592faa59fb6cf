package database

import (
	stderrors "errors"
	"strings"

	"github.com/lib/pq"
	"github.com/opsdesk/opsdesk-backend/pkg/errors"
)

// MapPQError converts a PostgreSQL error to an AppError with meaningful messages.
// Returns nil if the error is not a pq.Error or has no user-facing mapping.
func MapPQError(err error) *errors.AppError {
	var pqErr *pq.Error
	if !stderrors.As(err, &pqErr) {
		return nil
	}

	switch pqErr.Code {
	// Unique constraint violation
	case "23505":
		return errors.Conflict(formatConstraintMessage(pqErr))

	// Foreign key violation
	case "23503":
		return errors.BadRequest("referenced record does not exist")

	// Check constraint violation
	case "23514":
		return mapCheckConstraint(pqErr)

	// Not null violation
	case "23502":
		col := pqErr.Column
		if col == "" {
			col = "required field"
		}
		return errors.Validation(map[string]string{
			col: "must not be empty",
		})

	default:
		return nil
	}
}

func mapCheckConstraint(pqErr *pq.Error) *errors.AppError {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "period_valid"):
		return errors.Validation(map[string]string{
			"period_end": "must not be before period_start",
		})
	case strings.Contains(constraint, "status_valid"):
		return errors.Validation(map[string]string{
			"status": "must be one of: PENDING_APPROVAL, APPROVED",
		})
	default:
		return errors.BadRequest("data validation failed: " + constraint)
	}
}

func formatConstraintMessage(pqErr *pq.Error) string {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "payroll_runs_tenant_period"):
		return "a payroll run for this period already exists"
	case strings.Contains(constraint, "payslips_run_employee"):
		return "an employee can only have one payslip per run"
	default:
		return "a record with these values already exists"
	}
}
