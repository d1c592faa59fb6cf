package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/opsdesk/opsdesk-backend/internal/payroll/calculator"
	"github.com/opsdesk/opsdesk-backend/internal/payroll/domain"
	"github.com/opsdesk/opsdesk-backend/pkg/actor"
	"github.com/opsdesk/opsdesk-backend/pkg/logger"
	"github.com/opsdesk/opsdesk-backend/pkg/tenant"
)

const (
	stagePayslips = "payslips"
	stageDetails  = "payslip_details"
)

// RunService creates payroll runs and serves their read side
type RunService struct {
	tenants    TenantReader
	employees  EmployeeReader
	elements   ElementCatalog
	runs       RunStore
	registry   *calculator.Registry
	events     RunEvents
	compensate RetryPolicy
	logger     *logger.Logger
}

// NewRunService creates a new run service
func NewRunService(
	tenants TenantReader,
	employees EmployeeReader,
	elements ElementCatalog,
	runs RunStore,
	registry *calculator.Registry,
	events RunEvents,
	compensate RetryPolicy,
	log *logger.Logger,
) *RunService {
	return &RunService{
		tenants:    tenants,
		employees:  employees,
		elements:   elements,
		runs:       runs,
		registry:   registry,
		events:     events,
		compensate: compensate,
		logger:     log.WithComponent("run_orchestrator"),
	}
}

// runInputs is everything CreateRun reads before it writes anything
type runInputs struct {
	tenant    *domain.Tenant
	employees []domain.Employee
	catalog   []domain.PayElement
}

func (s *RunService) load(ctx context.Context, tenantID string) (*runInputs, error) {
	var in runInputs

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := s.tenants.GetByID(gctx, tenantID)
		if err != nil {
			return fmt.Errorf("tenant: %w", err)
		}
		in.tenant = t
		return nil
	})
	g.Go(func() error {
		emps, err := s.employees.ListActiveWithContracts(gctx)
		if err != nil {
			return fmt.Errorf("employees: %w", err)
		}
		in.employees = emps
		return nil
	})
	g.Go(func() error {
		els, err := s.elements.ListSystemDefined(gctx)
		if err != nil {
			return fmt.Errorf("pay elements: %w", err)
		}
		in.catalog = els
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrDataLoad, err)
	}
	return &in, nil
}

// CreateRun calculates every payable employee of the tenant and persists the
// run header, payslips and details. Either all three are stored or, after
// compensation, none are.
func (s *RunService) CreateRun(ctx context.Context, tenantID string, periodStart, periodEnd time.Time) (string, error) {
	ctx = tenant.WithTenantID(ctx, tenantID)
	log := s.logger.WithTenantID(tenantID)

	in, err := s.load(ctx, tenantID)
	if err != nil {
		log.Error().Err(err).Msg("failed to load payroll inputs")
		return "", err
	}

	calc, err := s.registry.Select(in.tenant.CountryCode)
	if err != nil {
		return "", err
	}
	elements, err := domain.ResolveSystemElements(in.catalog)
	if err != nil {
		return "", err
	}

	results := make([]domain.CalculationResult, 0, len(in.employees))
	for _, emp := range in.employees {
		if emp.Contract == nil {
			log.Warn().
				Str("employee_id", emp.ID).
				Msg("employee has no active contract, skipped")
			continue
		}
		results = append(results, calc.Calculate(emp, elements, in.tenant.DefaultCurrencyCode))
	}

	run := &domain.PayrollRun{
		ID:          uuid.NewString(),
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		Status:      domain.RunStatusPendingApproval,
		CreatedBy:   actor.FromContext(ctx).IDOrNil(),
	}
	if err := s.runs.Create(ctx, run); err != nil {
		log.Error().Err(err).Msg("failed to save payroll run")
		return "", err
	}
	log = log.WithRunID(run.ID)

	payslips, details := buildPayslips(run, results)

	if len(payslips) == 0 {
		log.Warn().Msg("no employee with an active contract, run has no payslips")
	} else {
		if err := s.runs.CreatePayslips(ctx, payslips); err != nil {
			return "", s.rollback(ctx, log, run, stagePayslips, err)
		}
		if len(details) > 0 {
			if err := s.runs.CreateDetails(ctx, details); err != nil {
				return "", s.rollback(ctx, log, run, stageDetails, err)
			}
		}
	}

	log.Info().
		Int("payslips", len(payslips)).
		Int("details", len(details)).
		Time("period_start", periodStart).
		Time("period_end", periodEnd).
		Msg("payroll run created")

	s.events.PublishRunCreated(ctx, run, len(payslips))

	return run.ID, nil
}

// rollback deletes the run header, which cascades to any payslips already
// written, and returns the caller-facing persistence error
func (s *RunService) rollback(ctx context.Context, log *logger.Logger, run *domain.PayrollRun, stage string, cause error) error {
	log.Error().
		Err(cause).
		Str("stage", stage).
		Time("period_start", run.PeriodStart).
		Time("period_end", run.PeriodEnd).
		Msg("payroll run persistence failed, compensating")

	err := s.compensate.run(ctx, func(ctx context.Context) error {
		return s.runs.Delete(ctx, run.ID)
	})
	if err != nil {
		log.Error().
			Err(err).
			Str("stage", stage).
			Bool("integrity_violation", true).
			Msg("failed to delete partial payroll run, manual reconciliation required")
	}

	if stage == stagePayslips {
		return fmt.Errorf("failed to save payslips: %w", domain.ErrPersistence)
	}
	return fmt.Errorf("failed to save payslip details: %w", domain.ErrPersistence)
}

// buildPayslips assigns IDs and turns calculation results into rows.
// Zero amount lines are already absent from the results.
func buildPayslips(run *domain.PayrollRun, results []domain.CalculationResult) ([]domain.Payslip, []domain.PayslipDetail) {
	payslips := make([]domain.Payslip, 0, len(results))
	details := make([]domain.PayslipDetail, 0, len(results)*4)

	for _, res := range results {
		slip := domain.Payslip{
			ID:                         uuid.NewString(),
			TenantID:                   run.TenantID,
			RunID:                      run.ID,
			EmployeeID:                 res.EmployeeID,
			Currency:                   res.Currency,
			GrossEarnings:              res.GrossEarnings,
			NetPay:                     res.NetPay,
			TotalDeductions:            res.TotalDeductions,
			TotalEmployerContributions: res.TotalEmployerContributions,
		}
		payslips = append(payslips, slip)

		for _, line := range res.Details {
			details = append(details, domain.PayslipDetail{
				ID:        uuid.NewString(),
				TenantID:  run.TenantID,
				PayslipID: slip.ID,
				ElementID: line.ElementID,
				Amount:    line.Amount,
			})
		}
	}
	return payslips, details
}

// Preview calculates a single gross salary under the tenant's jurisdiction
// without persisting anything
func (s *RunService) Preview(ctx context.Context, tenantID string, gross decimal.Decimal) (*domain.CalculationResult, error) {
	ctx = tenant.WithTenantID(ctx, tenantID)

	t, err := s.tenants.GetByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	calc, err := s.registry.Select(t.CountryCode)
	if err != nil {
		return nil, err
	}
	catalog, err := s.elements.ListSystemDefined(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrDataLoad, err)
	}
	elements, err := domain.ResolveSystemElements(catalog)
	if err != nil {
		return nil, err
	}

	emp := domain.Employee{
		ID: "preview",
		Contract: &domain.Contract{
			Elements: []domain.ContractElement{{
				ElementID: elements.BasicSalary,
				Amount:    gross,
			}},
		},
	}
	result := calc.Calculate(emp, elements, t.DefaultCurrencyCode)
	return &result, nil
}

// GetRun returns a run of the tenant in ctx
func (s *RunService) GetRun(ctx context.Context, id string) (*domain.PayrollRun, error) {
	return s.runs.GetByID(ctx, id)
}

// ListRuns returns a page of the tenant's runs, newest period first
func (s *RunService) ListRuns(ctx context.Context, page, perPage int) ([]domain.PayrollRun, int64, error) {
	return s.runs.List(ctx, page, perPage)
}

// ListPayslips returns the payslips of a run with their detail lines
func (s *RunService) ListPayslips(ctx context.Context, runID string) ([]domain.Payslip, error) {
	if _, err := s.runs.GetByID(ctx, runID); err != nil {
		return nil, err
	}
	return s.runs.ListPayslips(ctx, runID)
}
