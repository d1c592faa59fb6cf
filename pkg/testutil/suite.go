package testutil

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/opsdesk/opsdesk-backend/pkg/database"
	"github.com/opsdesk/opsdesk-backend/pkg/logger"
	"github.com/opsdesk/opsdesk-backend/pkg/tenant"
)

var (
	// Global test container (shared across all integration tests)
	globalContainer *PostgresContainer
	globalDB        *sqlx.DB
	containerOnce   sync.Once
	containerErr    error
)

// TestTenant represents a tenant created for testing
type TestTenant struct {
	ID          string
	Name        string
	CountryCode string
	Currency    string
}

// IntegrationSuite provides a base for integration tests with real PostgreSQL
type IntegrationSuite struct {
	Container *PostgresContainer
	RawDB     *sqlx.DB
	DB        *database.DB
	Fixtures  *FixtureFactory
	Logger    *logger.Logger
}

// NewIntegrationSuite creates a new integration test suite.
// Call this in TestMain to set up shared test infrastructure.
//
// Usage:
//
//	var suite *testutil.IntegrationSuite
//
//	func TestMain(m *testing.M) {
//	    ctx := context.Background()
//	    var err error
//	    suite, err = testutil.NewIntegrationSuite(ctx)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer testutil.TerminateContainer(ctx)
//	    os.Exit(m.Run())
//	}
//
//	func TestSomething(t *testing.T) {
//	    ctx := context.Background()
//	    tenant := suite.SetupTenant(t, ctx, "acme", "UG")
//	    // ... run tests with suite.TenantContext(tenant)
//	}
func NewIntegrationSuite(ctx context.Context) (*IntegrationSuite, error) {
	container, db, err := getOrCreateContainer(ctx)
	if err != nil {
		return nil, err
	}

	if err := container.ApplyMigrations(ctx, db); err != nil {
		return nil, err
	}

	log := logger.Nop()

	return &IntegrationSuite{
		Container: container,
		RawDB:     db,
		DB:        database.Wrap(db, TestSearchPath, log),
		Fixtures:  NewFixtureFactory(db),
		Logger:    log,
	}, nil
}

// getOrCreateContainer returns the shared test container
func getOrCreateContainer(ctx context.Context) (*PostgresContainer, *sqlx.DB, error) {
	containerOnce.Do(func() {
		globalContainer, containerErr = NewPostgresContainer(ctx, DefaultPostgresConfig())
		if containerErr != nil {
			return
		}
		globalDB, containerErr = globalContainer.Connect(ctx)
	})

	return globalContainer, globalDB, containerErr
}

// SetupTenant registers a tenant for a specific test and removes all of its
// rows when the test ends. Each test should use its own tenant for isolation.
func (s *IntegrationSuite) SetupTenant(t *testing.T, ctx context.Context, name, countryCode string) *TestTenant {
	t.Helper()

	tt := &TestTenant{
		ID:          uuid.New().String(),
		Name:        name,
		CountryCode: strings.ToUpper(countryCode),
		Currency:    "UGX",
	}

	_, err := s.RawDB.ExecContext(ctx,
		`INSERT INTO payroll.tenants (id, name, country_code, default_currency_code) VALUES ($1, $2, $3, $4)`,
		tt.ID, tt.Name, tt.CountryCode, tt.Currency,
	)
	if err != nil {
		t.Fatalf("failed to create tenant: %v", err)
	}

	t.Cleanup(func() {
		if err := s.dropTenant(context.Background(), tt.ID); err != nil {
			t.Logf("warning: failed to drop tenant %s: %v", tt.Name, err)
		}
	})

	return tt
}

func (s *IntegrationSuite) dropTenant(ctx context.Context, tenantID string) error {
	for _, table := range []string{
		"payroll_runs", // cascades to payslips and payslip_details
		"contract_elements",
		"contracts",
		"employees",
		"tenants",
	} {
		column := "tenant_id"
		if table == "tenants" {
			column = "id"
		}
		if _, err := s.RawDB.ExecContext(ctx, "DELETE FROM payroll."+table+" WHERE "+column+" = $1", tenantID); err != nil {
			return err
		}
	}
	return nil
}

// TenantContext returns a context with the tenant set
func (s *IntegrationSuite) TenantContext(tt *TestTenant) context.Context {
	return tenant.WithTenantID(context.Background(), tt.ID)
}

// Count returns the number of rows in a payroll table matching a where clause
func (s *IntegrationSuite) Count(t *testing.T, ctx context.Context, table, where string, args ...interface{}) int {
	t.Helper()
	var n int
	if err := s.RawDB.GetContext(ctx, &n, "SELECT COUNT(*) FROM payroll."+table+" WHERE "+where, args...); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

// TerminateContainer terminates the shared container.
// Only call this in TestMain after all tests have completed.
func TerminateContainer(ctx context.Context) {
	if globalContainer != nil {
		globalContainer.Terminate(ctx)
	}
}

// UnitTestSuite provides a base for unit tests with mocked dependencies
type UnitTestSuite struct {
	MockDB *MockDB
	t      *testing.T
}

// NewUnitTestSuite creates a new unit test suite
func NewUnitTestSuite(t *testing.T) *UnitTestSuite {
	return &UnitTestSuite{
		MockDB: NewMockDB(t),
		t:      t,
	}
}

// Cleanup verifies expectations and cleans up
func (s *UnitTestSuite) Cleanup() {
	s.MockDB.ExpectationsWereMet(s.t)
	s.MockDB.Close()
}
