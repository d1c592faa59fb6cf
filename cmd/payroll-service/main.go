package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/opsdesk/opsdesk-backend/internal/payroll/calculator"
	"github.com/opsdesk/opsdesk-backend/internal/payroll/domain"
	"github.com/opsdesk/opsdesk-backend/internal/payroll/events"
	"github.com/opsdesk/opsdesk-backend/internal/payroll/handler"
	"github.com/opsdesk/opsdesk-backend/internal/payroll/repository"
	"github.com/opsdesk/opsdesk-backend/internal/payroll/rules"
	"github.com/opsdesk/opsdesk-backend/internal/payroll/service"
	"github.com/opsdesk/opsdesk-backend/pkg/config"
	"github.com/opsdesk/opsdesk-backend/pkg/database"
	"github.com/opsdesk/opsdesk-backend/pkg/httputil"
	"github.com/opsdesk/opsdesk-backend/pkg/logger"
	"github.com/opsdesk/opsdesk-backend/pkg/messaging"
)

const serviceName = "payroll-service"

func main() {
	// Load configuration
	cfg, err := config.LoadWithValidation(serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(serviceName, cfg.Server.Environment)
	log.Info().Msg("starting Payroll Service")

	// Statutory rule tables are validated before anything connects
	registry, err := calculator.DefaultRegistry()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid payroll rule tables")
	}
	log.Info().Strs("countries", registry.Countries()).Msg("payroll calculators registered")
	for _, code := range registry.Countries() {
		table, err := rules.Load(code)
		if err != nil {
			log.Fatal().Err(err).Str("country", code).Msg("failed to load payroll rule table")
		}
		for _, warning := range table.Warnings() {
			log.Warn().Str("country", code).Msg(warning)
		}
	}

	// Connect to database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Connect to RabbitMQ
	rmq, err := messaging.New(&cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rmq.Close()

	// Initialize event publisher and job dispatcher
	publisher, err := events.NewPayrollEventPublisher(rmq, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event publisher")
	}

	dispatcher, err := messaging.NewDispatcher(rmq, cfg.Payroll.JobExchange, serviceName,
		[]string{messaging.JobPayrollRunProcess}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create job dispatcher")
	}
	defer dispatcher.Close()

	trigger := events.NewJobTrigger(dispatcher, cfg.Payroll.TriggerTimeout)

	// Initialize repositories
	tenantRepo := repository.NewTenantRepository(db)
	employeeRepo := repository.NewEmployeeRepository(db)
	elementRepo := repository.NewElementRepository(db)
	runRepo := repository.NewRunRepository(db)

	// System pay elements must exist before any run can be calculated
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 10*time.Second)
	catalog, err := elementRepo.ListSystemDefined(startupCtx)
	startupCancel()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load system pay elements")
	}
	if _, err := domain.ResolveSystemElements(catalog); err != nil {
		log.Fatal().Err(err).Msg("system pay element catalog is incomplete")
	}

	// Initialize services
	retry := service.RetryPolicy{
		MaxRetries:      cfg.Payroll.CompensationMaxRetries,
		InitialInterval: cfg.Payroll.CompensationBackoff,
	}
	runService := service.NewRunService(tenantRepo, employeeRepo, elementRepo, runRepo, registry, publisher, retry, log)
	approvalService := service.NewApprovalService(runRepo, trigger, publisher, retry, log)

	// Initialize handlers
	runHandler := handler.NewRunHandler(runService, approvalService, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-Tenant-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(httputil.TenantMiddleware) // Tenant middleware with /health exception
	r.Use(httputil.ActorMiddleware)

	// Health check (no tenant required - handled by middleware)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"service":  serviceName,
			"database": db.Health(r.Context()),
			"rabbitmq": rmq.Health(),
		})
	})

	// API routes (tenant required)
	r.Mount("/api/v1/payroll", runHandler.Routes())

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
