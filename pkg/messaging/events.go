package messaging

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Event types
const (
	EventPayrollRunCreated  = "payroll.run.created"
	EventPayrollRunApproved = "payroll.run.approved"
)

// Job types. Jobs differ from events: the publisher waits for the broker
// to confirm them and treats a nack as a failed hand-off.
const (
	JobPayrollRunProcess = "payroll.run.process"
)

// Exchange names
const (
	ExchangePayrollEvents = "payroll.events"
	ExchangePayrollJobs   = "payroll.jobs"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            GenerateEventID(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// PayrollRunCreatedEvent is published after a run and all its payslips are persisted
type PayrollRunCreatedEvent struct {
	RunID        string    `json:"run_id"`
	TenantID     string    `json:"tenant_id"`
	PeriodStart  time.Time `json:"period_start"`
	PeriodEnd    time.Time `json:"period_end"`
	PayslipCount int       `json:"payslip_count"`
	CreatedBy    *string   `json:"created_by,omitempty"`
}

// PayrollRunApprovedEvent is published once the processing job has been confirmed
type PayrollRunApprovedEvent struct {
	RunID      string  `json:"run_id"`
	TenantID   string  `json:"tenant_id"`
	ApprovedBy *string `json:"approved_by,omitempty"`
}

// PayrollRunProcessJob is the payload consumed by the disbursement processor
type PayrollRunProcessJob struct {
	RunID    string `json:"run_id"`
	TenantID string `json:"tenant_id"`
}

// GenerateEventID generates a unique event ID
func GenerateEventID() string {
	return uuid.NewString()
}
