package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/opsdesk/opsdesk-backend/internal/payroll/domain"
	"github.com/opsdesk/opsdesk-backend/pkg/errors"
	"github.com/opsdesk/opsdesk-backend/pkg/httputil"
	"github.com/opsdesk/opsdesk-backend/pkg/logger"
	"github.com/opsdesk/opsdesk-backend/pkg/permissions"
	"github.com/opsdesk/opsdesk-backend/pkg/tenant"
)

const (
	dateLayout     = "2006-01-02"
	defaultPerPage = 20
	maxPerPage     = 100
)

// Runs is the run orchestration and read side used by the handler
type Runs interface {
	CreateRun(ctx context.Context, tenantID string, periodStart, periodEnd time.Time) (string, error)
	Preview(ctx context.Context, tenantID string, gross decimal.Decimal) (*domain.CalculationResult, error)
	GetRun(ctx context.Context, id string) (*domain.PayrollRun, error)
	ListRuns(ctx context.Context, page, perPage int) ([]domain.PayrollRun, int64, error)
	ListPayslips(ctx context.Context, runID string) ([]domain.Payslip, error)
}

// Approver approves runs
type Approver interface {
	Approve(ctx context.Context, runID string) error
}

// RunHandler handles payroll run endpoints
type RunHandler struct {
	runs     Runs
	approver Approver
	logger   *logger.Logger
}

// NewRunHandler creates a new run handler
func NewRunHandler(runs Runs, approver Approver, log *logger.Logger) *RunHandler {
	return &RunHandler{
		runs:     runs,
		approver: approver,
		logger:   log,
	}
}

// Routes mounts under /api/v1/payroll. Tenant and actor middleware must run first.
func (h *RunHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/runs", func(r chi.Router) {
		r.With(httputil.RequirePermission(permissions.PayrollRunsRead)).Get("/", h.List)
		r.With(httputil.RequirePermission(permissions.PayrollRunsCreate)).Post("/", h.Create)
		r.With(httputil.RequirePermission(permissions.PayrollRunsRead)).Get("/{id}", h.Get)
		r.With(httputil.RequirePermission(permissions.PayrollRunsRead)).Get("/{id}/payslips", h.Payslips)
		r.With(httputil.RequirePermission(permissions.PayrollRunsApprove)).Post("/{id}/approve", h.Approve)
	})
	r.With(httputil.RequirePermission(permissions.PayrollRunsRead)).Post("/preview", h.Preview)

	return r
}

// CreateRunRequest is the body of POST /runs
type CreateRunRequest struct {
	PeriodStart string `json:"period_start" validate:"required,datetime=2006-01-02"`
	PeriodEnd   string `json:"period_end" validate:"required,datetime=2006-01-02"`
}

// PreviewRequest is the body of POST /preview
type PreviewRequest struct {
	GrossSalary decimal.Decimal `json:"gross_salary"`
}

// Create calculates and stores a run for the requested period
func (h *RunHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRunRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(req); err != nil {
		httputil.Error(w, err)
		return
	}

	// datetime validation already passed
	start, _ := time.Parse(dateLayout, req.PeriodStart)
	end, _ := time.Parse(dateLayout, req.PeriodEnd)
	if end.Before(start) {
		httputil.Error(w, errors.Validation(map[string]string{
			"period_end": "must not be before period_start",
		}))
		return
	}

	tenantID := tenant.MustTenantID(r.Context())

	runID, err := h.runs.CreateRun(r.Context(), tenantID, start, end)
	if err != nil {
		h.error(w, r, err)
		return
	}

	run, err := h.runs.GetRun(r.Context(), runID)
	if err != nil {
		h.error(w, r, err)
		return
	}

	httputil.Created(w, run)
}

// List lists the tenant's runs
func (h *RunHandler) List(w http.ResponseWriter, r *http.Request) {
	page := httputil.QueryInt(r, "page", 1)
	perPage := min(httputil.QueryInt(r, "per_page", defaultPerPage), maxPerPage)

	runs, total, err := h.runs.ListRuns(r.Context(), page, perPage)
	if err != nil {
		h.error(w, r, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, runs, httputil.NewMeta(page, perPage, total))
}

// Get returns a run
func (h *RunHandler) Get(w http.ResponseWriter, r *http.Request) {
	run, err := h.runs.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.error(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, run)
}

// Payslips returns a run's payslips with detail lines
func (h *RunHandler) Payslips(w http.ResponseWriter, r *http.Request) {
	payslips, err := h.runs.ListPayslips(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.error(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, payslips)
}

// Approve approves a run and hands it to processing
func (h *RunHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.approver.Approve(r.Context(), id); err != nil {
		h.error(w, r, err)
		return
	}

	run, err := h.runs.GetRun(r.Context(), id)
	if err != nil {
		h.error(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, run)
}

// Preview calculates one gross salary without storing anything
func (h *RunHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if req.GrossSalary.IsNegative() {
		httputil.Error(w, errors.Validation(map[string]string{
			"gross_salary": "must not be negative",
		}))
		return
	}

	result, err := h.runs.Preview(r.Context(), tenant.MustTenantID(r.Context()), req.GrossSalary)
	if err != nil {
		h.error(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, result)
}

func (h *RunHandler) error(w http.ResponseWriter, r *http.Request, err error) {
	appErr := toAppError(err)
	if appErr.StatusCode >= http.StatusInternalServerError {
		h.logger.WithRequestID(httputil.GetRequestID(r.Context())).Error().
			Err(err).
			Str("path", r.URL.Path).
			Msg("payroll request failed")
	}
	httputil.Error(w, appErr)
}

// toAppError maps payroll failures to API errors. AppErrors raised below
// the service (not found, conflict) pass through unchanged.
func toAppError(err error) *errors.AppError {
	var appErr *errors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	switch {
	case errors.Is(err, domain.ErrUnsupportedJurisdiction):
		return errors.Unprocessable("UNSUPPORTED_JURISDICTION", "no payroll rules for the tenant's country")
	case errors.Is(err, domain.ErrMissingSystemElement):
		return errors.Unprocessable("MISSING_SYSTEM_ELEMENT", "a required system pay element is missing")
	case errors.Is(err, domain.ErrDataLoad):
		return errors.Wrap(err, "DATA_LOAD_FAILED", "failed to load payroll data", http.StatusServiceUnavailable)
	case errors.Is(err, domain.ErrPersistence):
		return errors.Wrap(err, "PERSISTENCE_FAILED", err.Error(), http.StatusInternalServerError)
	case errors.Is(err, domain.ErrTransition):
		return errors.Wrap(err, "PROCESSING_TRIGGER_FAILED", "payroll run could not be handed to processing", http.StatusServiceUnavailable)
	default:
		return errors.Wrap(err, "INTERNAL_ERROR", "an unexpected error occurred", http.StatusInternalServerError)
	}
}
