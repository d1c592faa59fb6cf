package service

import (
	"context"
	"fmt"
	"time"

	"github.com/opsdesk/opsdesk-backend/internal/payroll/domain"
	"github.com/opsdesk/opsdesk-backend/pkg/actor"
	"github.com/opsdesk/opsdesk-backend/pkg/errors"
	"github.com/opsdesk/opsdesk-backend/pkg/logger"
	"github.com/opsdesk/opsdesk-backend/pkg/tenant"
)

// ApprovalService moves runs from PENDING_APPROVAL to APPROVED and hands
// them to the downstream processor
type ApprovalService struct {
	runs    RunStore
	trigger JobTrigger
	events  RunEvents
	revert  RetryPolicy
	logger  *logger.Logger
	now     func() time.Time
}

// NewApprovalService creates a new approval service
func NewApprovalService(runs RunStore, trigger JobTrigger, events RunEvents, revert RetryPolicy, log *logger.Logger) *ApprovalService {
	return &ApprovalService{
		runs:    runs,
		trigger: trigger,
		events:  events,
		revert:  revert,
		logger:  log.WithComponent("approval"),
		now:     time.Now,
	}
}

// Approve approves a pending run of the tenant in ctx and triggers its
// processing. If the trigger fails the run is put back to PENDING_APPROVAL.
// Approving an already approved run triggers processing again.
func (s *ApprovalService) Approve(ctx context.Context, runID string) error {
	tenantID, err := tenant.TenantID(ctx)
	if err != nil {
		return err
	}
	log := s.logger.WithTenantID(tenantID).WithRunID(runID)

	run, err := s.runs.GetByID(ctx, runID)
	if err != nil {
		return err
	}

	if run.Status == domain.RunStatusApproved {
		if err := s.trigger.TriggerRunProcessing(ctx, run.ID, tenantID); err != nil {
			log.Error().Err(err).Msg("re-trigger of approved payroll run failed")
			return fmt.Errorf("%w: %w", domain.ErrTransition, err)
		}
		log.Info().Msg("approved payroll run re-triggered")
		return nil
	}

	approvedBy := actor.FromContext(ctx).IDOrNil()
	approvedAt := s.now().UTC()

	ok, err := s.runs.UpdateStatus(ctx, run.ID, domain.RunStatusPendingApproval, domain.RunStatusApproved, approvedBy, &approvedAt)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Conflict("payroll run is no longer pending approval")
	}

	if err := s.trigger.TriggerRunProcessing(ctx, run.ID, tenantID); err != nil {
		log.Error().Err(err).Msg("payroll processing trigger failed, reverting approval")

		revertErr := s.revert.run(ctx, func(ctx context.Context) error {
			_, err := s.runs.UpdateStatus(ctx, run.ID, domain.RunStatusApproved, domain.RunStatusPendingApproval, nil, nil)
			return err
		})
		if revertErr != nil {
			log.Error().
				Err(revertErr).
				Bool("integrity_violation", true).
				Msg("failed to revert approval of untriggered payroll run, manual reconciliation required")
		}
		return fmt.Errorf("%w: %w", domain.ErrTransition, err)
	}

	run.Status = domain.RunStatusApproved
	run.ApprovedBy = approvedBy
	run.ApprovedAt = &approvedAt

	log.Info().Msg("payroll run approved")
	s.events.PublishRunApproved(ctx, run)

	return nil
}
