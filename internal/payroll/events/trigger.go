package events

import (
	"context"
	"fmt"
	"time"

	"github.com/opsdesk/opsdesk-backend/pkg/messaging"
)

// JobDispatcher publishes a job and returns only once the broker has
// accepted it. *messaging.Dispatcher is the production implementation.
type JobDispatcher interface {
	Dispatch(ctx context.Context, jobType string, payload interface{}) error
}

// JobTrigger hands approved runs to the asynchronous payroll processor
type JobTrigger struct {
	dispatcher JobDispatcher
	timeout    time.Duration
}

// NewJobTrigger creates a trigger that waits at most timeout for a broker confirm
func NewJobTrigger(dispatcher JobDispatcher, timeout time.Duration) *JobTrigger {
	return &JobTrigger{dispatcher: dispatcher, timeout: timeout}
}

// TriggerRunProcessing enqueues the payroll.run.process job for a run
func (t *JobTrigger) TriggerRunProcessing(ctx context.Context, runID, tenantID string) error {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	job := messaging.PayrollRunProcessJob{RunID: runID, TenantID: tenantID}
	if err := t.dispatcher.Dispatch(ctx, messaging.JobPayrollRunProcess, job); err != nil {
		return fmt.Errorf("trigger %s for run %s: %w", messaging.JobPayrollRunProcess, runID, err)
	}
	return nil
}
