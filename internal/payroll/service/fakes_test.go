package service

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/opsdesk/opsdesk-backend/internal/payroll/calculator"
	"github.com/opsdesk/opsdesk-backend/internal/payroll/domain"
	"github.com/opsdesk/opsdesk-backend/pkg/errors"
	"github.com/opsdesk/opsdesk-backend/pkg/tenant"
)

const (
	testTenantID = "11111111-1111-1111-1111-111111111111"

	elBasic       = "el-basic"
	elPAYE        = "el-paye"
	elNSSFEmp     = "el-nssf-employee"
	elNSSFEmpr    = "el-nssf-employer"
	fastRetry     = 1 * time.Millisecond
	retryAttempts = 2
)

var errBoom = stderrors.New("boom")

func catalog() []domain.PayElement {
	return []domain.PayElement{
		{ID: elBasic, Key: domain.ElementBasicSalary, IsSystemDefined: true},
		{ID: elPAYE, Key: domain.ElementPAYE, IsSystemDefined: true},
		{ID: elNSSFEmp, Key: domain.ElementNSSFEmployee, IsSystemDefined: true},
		{ID: elNSSFEmpr, Key: domain.ElementNSSFEmployer, IsSystemDefined: true},
	}
}

func payable(id string, basic int64) domain.Employee {
	return domain.Employee{
		ID:        id,
		FirstName: "Test",
		LastName:  id,
		Contract: &domain.Contract{
			ID: "contract-" + id,
			Elements: []domain.ContractElement{{
				ElementID: elBasic,
				Amount:    decimal.NewFromInt(basic),
				Currency:  "UGX",
			}},
		},
	}
}

type fakeTenants struct {
	tenant *domain.Tenant
	err    error
}

func (f *fakeTenants) GetByID(_ context.Context, id string) (*domain.Tenant, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.tenant == nil || f.tenant.ID != id {
		return nil, errors.NotFound("tenant")
	}
	return f.tenant, nil
}

type fakeEmployees struct {
	employees []domain.Employee
	err       error
}

func (f *fakeEmployees) ListActiveWithContracts(ctx context.Context) ([]domain.Employee, error) {
	if _, err := tenant.TenantID(ctx); err != nil {
		return nil, err
	}
	return f.employees, f.err
}

type fakeCatalog struct {
	elements []domain.PayElement
	err      error
}

func (f *fakeCatalog) ListSystemDefined(context.Context) ([]domain.PayElement, error) {
	return f.elements, f.err
}

// fakeRunStore keeps runs in memory and emulates the FK cascade on Delete
type fakeRunStore struct {
	mu       sync.Mutex
	runs     map[string]*domain.PayrollRun
	payslips map[string][]domain.Payslip
	details  map[string][]domain.PayslipDetail

	createErr       error
	payslipsErr     error
	detailsErr      error
	deleteFailures  int
	revertFailures  int
	deleteCalls     int
	updateCalls     int
	payslipsWritten []domain.Payslip
}

func newFakeRunStore() *fakeRunStore {
	return &fakeRunStore{
		runs:     map[string]*domain.PayrollRun{},
		payslips: map[string][]domain.Payslip{},
		details:  map[string][]domain.PayslipDetail{},
	}
}

func (f *fakeRunStore) Create(ctx context.Context, run *domain.PayrollRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}
	run.TenantID = tenantID
	run.CreatedAt = time.Now()
	run.UpdatedAt = run.CreatedAt
	stored := *run
	f.runs[run.ID] = &stored
	return nil
}

func (f *fakeRunStore) CreatePayslips(_ context.Context, payslips []domain.Payslip) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.payslipsErr != nil {
		return f.payslipsErr
	}
	for _, p := range payslips {
		f.payslips[p.RunID] = append(f.payslips[p.RunID], p)
	}
	f.payslipsWritten = append(f.payslipsWritten, payslips...)
	return nil
}

func (f *fakeRunStore) CreateDetails(_ context.Context, details []domain.PayslipDetail) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.detailsErr != nil {
		return f.detailsErr
	}
	for _, d := range details {
		f.details[d.PayslipID] = append(f.details[d.PayslipID], d)
	}
	return nil
}

func (f *fakeRunStore) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	if f.deleteFailures > 0 {
		f.deleteFailures--
		return errBoom
	}
	for _, p := range f.payslips[id] {
		delete(f.details, p.ID)
	}
	delete(f.payslips, id)
	delete(f.runs, id)
	return nil
}

func (f *fakeRunStore) GetByID(_ context.Context, id string) (*domain.PayrollRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	run, ok := f.runs[id]
	if !ok {
		return nil, errors.NotFound("payroll run")
	}
	copied := *run
	return &copied, nil
}

func (f *fakeRunStore) List(_ context.Context, _, _ int) ([]domain.PayrollRun, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	runs := make([]domain.PayrollRun, 0, len(f.runs))
	for _, r := range f.runs {
		runs = append(runs, *r)
	}
	return runs, int64(len(runs)), nil
}

func (f *fakeRunStore) UpdateStatus(_ context.Context, id string, from, to domain.RunStatus, approvedBy *string, approvedAt *time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateCalls++
	if to == domain.RunStatusPendingApproval && f.revertFailures > 0 {
		f.revertFailures--
		return false, errBoom
	}
	run, ok := f.runs[id]
	if !ok || run.Status != from {
		return false, nil
	}
	run.Status = to
	run.ApprovedBy = approvedBy
	run.ApprovedAt = approvedAt
	return true, nil
}

func (f *fakeRunStore) ListPayslips(_ context.Context, runID string) ([]domain.Payslip, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Payslip, 0, len(f.payslips[runID]))
	for _, p := range f.payslips[runID] {
		p.Details = f.details[p.ID]
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeRunStore) detailCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, d := range f.details {
		n += len(d)
	}
	return n
}

type fakeEvents struct {
	mu       sync.Mutex
	created  []string
	approved []string
}

func (f *fakeEvents) PublishRunCreated(_ context.Context, run *domain.PayrollRun, _ int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, run.ID)
}

func (f *fakeEvents) PublishRunApproved(_ context.Context, run *domain.PayrollRun) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.approved = append(f.approved, run.ID)
}

type fakeTrigger struct {
	mu    sync.Mutex
	err   error
	calls []string
}

func (f *fakeTrigger) TriggerRunProcessing(_ context.Context, runID, tenantID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, runID+"/"+tenantID)
	return f.err
}

func testRegistry(t *testing.T) *calculator.Registry {
	t.Helper()
	r, err := calculator.DefaultRegistry()
	require.NoError(t, err)
	return r
}

func testRetry() RetryPolicy {
	return RetryPolicy{MaxRetries: retryAttempts, InitialInterval: fastRetry}
}
