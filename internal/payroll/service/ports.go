package service

import (
	"context"
	"time"

	"github.com/opsdesk/opsdesk-backend/internal/payroll/domain"
)

// TenantReader reads the tenant registry
type TenantReader interface {
	GetByID(ctx context.Context, id string) (*domain.Tenant, error)
}

// EmployeeReader lists the employees a run is calculated for
type EmployeeReader interface {
	ListActiveWithContracts(ctx context.Context) ([]domain.Employee, error)
}

// ElementCatalog reads the system-defined pay elements
type ElementCatalog interface {
	ListSystemDefined(ctx context.Context) ([]domain.PayElement, error)
}

// RunStore persists runs and their payslips. Implementations read the tenant
// from the context.
type RunStore interface {
	Create(ctx context.Context, run *domain.PayrollRun) error
	CreatePayslips(ctx context.Context, payslips []domain.Payslip) error
	CreateDetails(ctx context.Context, details []domain.PayslipDetail) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.PayrollRun, error)
	List(ctx context.Context, page, perPage int) ([]domain.PayrollRun, int64, error)
	UpdateStatus(ctx context.Context, id string, from, to domain.RunStatus, approvedBy *string, approvedAt *time.Time) (bool, error)
	ListPayslips(ctx context.Context, runID string) ([]domain.Payslip, error)
}

// RunEvents publishes best-effort run lifecycle events
type RunEvents interface {
	PublishRunCreated(ctx context.Context, run *domain.PayrollRun, payslipCount int)
	PublishRunApproved(ctx context.Context, run *domain.PayrollRun)
}

// JobTrigger hands an approved run to the downstream processor. A nil error
// means the broker accepted the job.
type JobTrigger interface {
	TriggerRunProcessing(ctx context.Context, runID, tenantID string) error
}
