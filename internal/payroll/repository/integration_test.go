//go:build integration

package repository_test

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/opsdesk/opsdesk-backend/internal/payroll/domain"
	"github.com/opsdesk/opsdesk-backend/internal/payroll/repository"
	"github.com/opsdesk/opsdesk-backend/pkg/errors"
	"github.com/opsdesk/opsdesk-backend/pkg/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var suite *testutil.IntegrationSuite

func TestMain(m *testing.M) {
	ctx := context.Background()

	var err error
	suite, err = testutil.NewIntegrationSuite(ctx)
	if err != nil {
		log.Fatalf("failed to create integration suite: %v", err)
	}

	code := m.Run()
	testutil.TerminateContainer(ctx)
	os.Exit(code)
}

func newRun(start time.Time) *domain.PayrollRun {
	return &domain.PayrollRun{
		ID:          uuid.New().String(),
		PeriodStart: start,
		PeriodEnd:   start.AddDate(0, 1, -1),
		Status:      domain.RunStatusPendingApproval,
	}
}

func TestIntegration_EmployeeFold(t *testing.T) {
	ctx := testutil.DefaultTestContext(t)
	tt := suite.SetupTenant(t, ctx, "fold", "UG")
	tenantCtx := suite.TenantContext(tt)

	paid := suite.Fixtures.PayableEmployee(t, ctx, tt.ID, "Amina", "Akello", "500000")
	suite.Fixtures.Employee(t, ctx, tt.ID, "Brian", "Bukenya")

	employees, err := repository.NewEmployeeRepository(suite.DB).ListActiveWithContracts(tenantCtx)
	require.NoError(t, err)
	require.Len(t, employees, 2)

	assert.Equal(t, paid, employees[0].ID)
	require.NotNil(t, employees[0].Contract)
	require.Len(t, employees[0].Contract.Elements, 1)
	assert.True(t, employees[0].Contract.Elements[0].Amount.Equal(decimal.NewFromInt(500000)))
	assert.Nil(t, employees[1].Contract)
}

func TestIntegration_DeleteRunCascades(t *testing.T) {
	ctx := testutil.DefaultTestContext(t)
	tt := suite.SetupTenant(t, ctx, "cascade", "UG")
	tenantCtx := suite.TenantContext(tt)
	empID := suite.Fixtures.PayableEmployee(t, ctx, tt.ID, "Amina", "Akello", "500000")

	elements, err := repository.NewElementRepository(suite.DB).ListSystemDefined(ctx)
	require.NoError(t, err)
	system, err := domain.ResolveSystemElements(elements)
	require.NoError(t, err)

	repo := repository.NewRunRepository(suite.DB)
	run := newRun(time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, repo.Create(tenantCtx, run))

	payslip := domain.Payslip{
		ID: uuid.New().String(), TenantID: tt.ID, RunID: run.ID, EmployeeID: empID, Currency: "UGX",
		GrossEarnings: decimal.NewFromInt(500000), NetPay: decimal.NewFromInt(452000),
		TotalDeductions: decimal.NewFromInt(48000), TotalEmployerContributions: decimal.NewFromInt(50000),
	}
	require.NoError(t, repo.CreatePayslips(tenantCtx, []domain.Payslip{payslip}))
	require.NoError(t, repo.CreateDetails(tenantCtx, []domain.PayslipDetail{
		{ID: uuid.New().String(), TenantID: tt.ID, PayslipID: payslip.ID, ElementID: system.PAYE, Amount: decimal.NewFromInt(-23000)},
	}))

	require.NoError(t, repo.Delete(tenantCtx, run.ID))
	require.NoError(t, repo.Delete(tenantCtx, run.ID), "delete is idempotent")

	assert.Zero(t, suite.Count(t, ctx, "payslips", "run_id = $1", run.ID))
	assert.Zero(t, suite.Count(t, ctx, "payslip_details", "payslip_id = $1", payslip.ID))
}

func TestIntegration_DuplicatePeriodConflicts(t *testing.T) {
	ctx := testutil.DefaultTestContext(t)
	tt := suite.SetupTenant(t, ctx, "duplicate", "UG")
	tenantCtx := suite.TenantContext(tt)

	repo := repository.NewRunRepository(suite.DB)
	start := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(tenantCtx, newRun(start)))

	err := repo.Create(tenantCtx, newRun(start))
	assert.ErrorIs(t, err, errors.ErrConflict)
}

func TestIntegration_ConditionalStatusUpdate(t *testing.T) {
	ctx := testutil.DefaultTestContext(t)
	tt := suite.SetupTenant(t, ctx, "status", "UG")
	tenantCtx := suite.TenantContext(tt)

	repo := repository.NewRunRepository(suite.DB)
	run := newRun(time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, repo.Create(tenantCtx, run))

	now := time.Now()
	changed, err := repo.UpdateStatus(tenantCtx, run.ID, domain.RunStatusPendingApproval, domain.RunStatusApproved, nil, &now)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.UpdateStatus(tenantCtx, run.ID, domain.RunStatusPendingApproval, domain.RunStatusApproved, nil, &now)
	require.NoError(t, err)
	assert.False(t, changed)

	got, err := repo.GetByID(tenantCtx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusApproved, got.Status)
	assert.NotNil(t, got.ApprovedAt)
}
