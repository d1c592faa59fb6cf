package events

import (
	"context"

	"github.com/opsdesk/opsdesk-backend/internal/payroll/domain"
	"github.com/opsdesk/opsdesk-backend/pkg/logger"
	"github.com/opsdesk/opsdesk-backend/pkg/messaging"
)

// EventPublisher is the fire-and-forget side of pkg/messaging
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, data interface{}) error
}

// PayrollEventPublisher publishes payroll domain events. Failures are logged
// and swallowed: events inform other services, they never gate a run.
type PayrollEventPublisher struct {
	publisher EventPublisher
	logger    *logger.Logger
}

// NewPayrollEventPublisher creates a publisher on the payroll events exchange
func NewPayrollEventPublisher(rmq *messaging.RabbitMQ, log *logger.Logger) (*PayrollEventPublisher, error) {
	publisher, err := messaging.NewPublisher(rmq, messaging.ExchangePayrollEvents, "payroll-service", log)
	if err != nil {
		return nil, err
	}
	return NewPayrollEventPublisherWith(publisher, log), nil
}

// NewPayrollEventPublisherWith wraps an existing publisher
func NewPayrollEventPublisherWith(publisher EventPublisher, log *logger.Logger) *PayrollEventPublisher {
	return &PayrollEventPublisher{
		publisher: publisher,
		logger:    log,
	}
}

// PublishRunCreated publishes a run created event
func (p *PayrollEventPublisher) PublishRunCreated(ctx context.Context, run *domain.PayrollRun, payslipCount int) {
	data := messaging.PayrollRunCreatedEvent{
		RunID:        run.ID,
		TenantID:     run.TenantID,
		PeriodStart:  run.PeriodStart,
		PeriodEnd:    run.PeriodEnd,
		PayslipCount: payslipCount,
		CreatedBy:    run.CreatedBy,
	}

	if err := p.publisher.Publish(ctx, messaging.EventPayrollRunCreated, data); err != nil {
		p.logger.Error().Err(err).Str("run_id", run.ID).Msg("failed to publish payroll run created event")
	}
}

// PublishRunApproved publishes a run approved event
func (p *PayrollEventPublisher) PublishRunApproved(ctx context.Context, run *domain.PayrollRun) {
	data := messaging.PayrollRunApprovedEvent{
		RunID:      run.ID,
		TenantID:   run.TenantID,
		ApprovedBy: run.ApprovedBy,
	}

	if err := p.publisher.Publish(ctx, messaging.EventPayrollRunApproved, data); err != nil {
		p.logger.Error().Err(err).Str("run_id", run.ID).Msg("failed to publish payroll run approved event")
	}
}
