package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/opsdesk/opsdesk-backend/internal/payroll/domain"
	"github.com/opsdesk/opsdesk-backend/pkg/database"
	"github.com/opsdesk/opsdesk-backend/pkg/errors"
	"github.com/opsdesk/opsdesk-backend/pkg/tenant"
)

// batchSize keeps multi-row INSERTs well under the 65535 bind parameter limit
const batchSize = 500

// RunRepository persists payroll runs, payslips and payslip details
type RunRepository struct {
	db *database.DB
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *database.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a run header.
// TENANT-ISOLATED: the row's tenant_id must match the RLS tenant
func (r *RunRepository) Create(ctx context.Context, run *domain.PayrollRun) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}
	run.TenantID = tenantID

	err = r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `
			INSERT INTO payroll_runs (id, tenant_id, period_start, period_end, status, created_by)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING created_at, updated_at
		`
		return r.db.QueryRowxContext(ctx, query,
			run.ID, run.TenantID, run.PeriodStart, run.PeriodEnd, run.Status, run.CreatedBy,
		).Scan(&run.CreatedAt, &run.UpdatedAt)
	})
	if appErr := database.MapPQError(err); appErr != nil {
		return appErr
	}
	return err
}

// CreatePayslips inserts payslips in batches within one transaction
func (r *RunRepository) CreatePayslips(ctx context.Context, payslips []domain.Payslip) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	return r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `
			INSERT INTO payslips (
				id, tenant_id, run_id, employee_id, currency,
				gross_earnings, net_pay, total_deductions, total_employer_contributions
			) VALUES (
				:id, :tenant_id, :run_id, :employee_id, :currency,
				:gross_earnings, :net_pay, :total_deductions, :total_employer_contributions
			)
		`
		for start := 0; start < len(payslips); start += batchSize {
			end := min(start+batchSize, len(payslips))
			if _, err := r.db.NamedExecContext(ctx, query, payslips[start:end]); err != nil {
				return err
			}
		}
		return nil
	})
}

// CreateDetails inserts payslip detail lines in batches within one transaction
func (r *RunRepository) CreateDetails(ctx context.Context, details []domain.PayslipDetail) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	return r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `
			INSERT INTO payslip_details (id, tenant_id, payslip_id, element_id, amount)
			VALUES (:id, :tenant_id, :payslip_id, :element_id, :amount)
		`
		for start := 0; start < len(details); start += batchSize {
			end := min(start+batchSize, len(details))
			if _, err := r.db.NamedExecContext(ctx, query, details[start:end]); err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes a run; payslips and details go with it via ON DELETE CASCADE.
// Deleting a run that does not exist is not an error.
func (r *RunRepository) Delete(ctx context.Context, id string) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}

	return r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		_, err := r.db.ExecContext(ctx, `DELETE FROM payroll_runs WHERE id = $1`, id)
		return err
	})
}

// GetByID returns a run header
func (r *RunRepository) GetByID(ctx context.Context, id string) (*domain.PayrollRun, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	var run domain.PayrollRun
	err = r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `
			SELECT id, tenant_id, period_start, period_end, status,
			       created_by, approved_by, approved_at, created_at, updated_at
			FROM payroll_runs
			WHERE id = $1
		`
		return r.db.GetContext(ctx, &run, query, id)
	})
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NotFound("payroll run")
	}
	if err != nil {
		return nil, err
	}

	return &run, nil
}

// List lists runs, newest period first, with pagination
func (r *RunRepository) List(ctx context.Context, page, perPage int) ([]domain.PayrollRun, int64, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	runs := []domain.PayrollRun{}

	err = r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM payroll_runs`); err != nil {
			return err
		}

		offset := (page - 1) * perPage
		query := `
			SELECT id, tenant_id, period_start, period_end, status,
			       created_by, approved_by, approved_at, created_at, updated_at
			FROM payroll_runs
			ORDER BY period_start DESC, created_at DESC
			LIMIT $1 OFFSET $2
		`
		return r.db.SelectContext(ctx, &runs, query, perPage, offset)
	})
	if err != nil {
		return nil, 0, err
	}

	return runs, total, nil
}

// UpdateStatus moves a run from one status to another only if it is still
// in the expected status. It reports whether a row was changed.
// approvedBy and approvedAt are written as given, so a revert clears them.
func (r *RunRepository) UpdateStatus(ctx context.Context, id string, from, to domain.RunStatus, approvedBy *string, approvedAt *time.Time) (bool, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return false, err
	}

	var changed bool
	err = r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `
			UPDATE payroll_runs
			SET status = $3, approved_by = $4, approved_at = $5, updated_at = NOW()
			WHERE id = $1 AND status = $2
		`
		result, err := r.db.ExecContext(ctx, query, id, from, to, approvedBy, approvedAt)
		if err != nil {
			return err
		}

		affected, _ := result.RowsAffected()
		changed = affected > 0
		return nil
	})
	return changed, err
}

// ListPayslips returns a run's payslips with their detail lines
func (r *RunRepository) ListPayslips(ctx context.Context, runID string) ([]domain.Payslip, error) {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return nil, err
	}

	payslips := []domain.Payslip{}
	var details []domain.PayslipDetail

	err = r.db.WithTenantRLS(ctx, tenantID, func(ctx context.Context) error {
		query := `
			SELECT id, tenant_id, run_id, employee_id, currency,
			       gross_earnings, net_pay, total_deductions, total_employer_contributions
			FROM payslips
			WHERE run_id = $1
			ORDER BY employee_id
		`
		if err := r.db.SelectContext(ctx, &payslips, query, runID); err != nil {
			return err
		}

		detailQuery := `
			SELECT d.id, d.tenant_id, d.payslip_id, d.element_id, d.amount
			FROM payslip_details d
			JOIN payslips p ON p.id = d.payslip_id
			WHERE p.run_id = $1
			ORDER BY d.payslip_id, d.id
		`
		return r.db.SelectContext(ctx, &details, detailQuery, runID)
	})
	if err != nil {
		return nil, err
	}

	index := make(map[string]int, len(payslips))
	for i, p := range payslips {
		index[p.ID] = i
	}
	for _, d := range details {
		if i, ok := index[d.PayslipID]; ok {
			payslips[i].Details = append(payslips[i].Details, d)
		}
	}

	return payslips, nil
}
