package messaging

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/goccy/go-json"
	"github.com/opsdesk/opsdesk-backend/pkg/logger"
	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrNotConfirmed is returned when the broker nacks a job or the wait for its confirm is cut short
var ErrNotConfirmed = errors.New("job not confirmed by broker")

// ErrUnroutable is returned when the broker hands a mandatory job back because no queue is bound for it
var ErrUnroutable = errors.New("job returned unroutable by broker")

const returnBuffer = 16

// Dispatcher publishes jobs on a confirm-mode channel and blocks until the
// broker acks each one.
type Dispatcher struct {
	mu       sync.Mutex
	rmq      *RabbitMQ
	channel  *amqp.Channel
	returns  chan amqp.Return
	exchange string
	source   string
	logger   *logger.Logger
}

// NewDispatcher declares the job exchange and, for every job type, a durable
// queue bound to it so a confirmed job is never dropped as unroutable.
func NewDispatcher(rmq *RabbitMQ, exchange, source string, jobTypes []string, log *logger.Logger) (*Dispatcher, error) {
	if err := rmq.DeclareExchange(exchange); err != nil {
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}
	if err := rmq.DeclareDeadLetterQueue(source); err != nil {
		return nil, err
	}
	for _, jobType := range jobTypes {
		if _, err := rmq.DeclareQueue(jobType); err != nil {
			return nil, fmt.Errorf("failed to declare queue %s: %w", jobType, err)
		}
		if err := rmq.BindQueue(jobType, exchange, jobType); err != nil {
			return nil, fmt.Errorf("failed to bind queue %s: %w", jobType, err)
		}
	}

	ch, err := rmq.ConfirmChannel()
	if err != nil {
		return nil, err
	}

	return &Dispatcher{
		rmq:      rmq,
		channel:  ch,
		returns:  ch.NotifyReturn(make(chan amqp.Return, returnBuffer)),
		exchange: exchange,
		source:   source,
		logger:   log,
	}, nil
}

// Dispatch publishes a job and waits for the broker confirm or ctx expiry.
// A nil return means the broker has taken responsibility for the message.
func (d *Dispatcher) Dispatch(ctx context.Context, jobType string, payload interface{}) error {
	event, err := NewEvent(jobType, d.source, getCorrelationID(ctx), payload)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	// Deferred confirms are tracked by delivery tag and returns arrive on a
	// shared channel; serialize publish and wait so neither is matched to the
	// wrong caller.
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.ensureChannel(ctx); err != nil {
		return err
	}
	drainReturns(d.returns)
	confirm, err := d.channel.PublishWithDeferredConfirmWithContext(ctx,
		d.exchange,
		jobType,
		true,  // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp.Persistent,
			CorrelationId: event.CorrelationID,
			MessageId:     event.ID,
			Body:          body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish job: %w", err)
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNotConfirmed, err)
	}
	if !acked {
		return ErrNotConfirmed
	}
	// The broker sends basic.return ahead of the ack, so it is already buffered here.
	if ret, ok := returned(d.returns, event.ID); ok {
		d.logger.Error().
			Str("job_type", jobType).
			Str("job_id", event.ID).
			Uint16("reply_code", ret.ReplyCode).
			Str("reply_text", ret.ReplyText).
			Msg("job returned unroutable")
		return fmt.Errorf("%w: %w: %s", ErrNotConfirmed, ErrUnroutable, ret.ReplyText)
	}

	d.logger.Info().
		Str("job_type", jobType).
		Str("job_id", event.ID).
		Msg("job confirmed")

	return nil
}

// ensureChannel reopens the confirm channel after the broker closed it,
// reconnecting first if the connection itself is gone. Callers hold d.mu.
func (d *Dispatcher) ensureChannel(ctx context.Context) error {
	if d.channel != nil && !d.channel.IsClosed() {
		return nil
	}

	d.logger.Warn().Msg("confirm channel closed, reopening")

	ch, err := d.rmq.ConfirmChannel()
	if err != nil {
		if err := d.rmq.Reconnect(ctx); err != nil {
			return fmt.Errorf("failed to reconnect: %w", err)
		}
		if ch, err = d.rmq.ConfirmChannel(); err != nil {
			return err
		}
	}
	d.channel = ch
	d.returns = ch.NotifyReturn(make(chan amqp.Return, returnBuffer))
	return nil
}

// returned reports whether a return for messageID is waiting on returns.
// Returns for other messages are stale and discarded.
func returned(returns <-chan amqp.Return, messageID string) (amqp.Return, bool) {
	for {
		select {
		case ret, ok := <-returns:
			if !ok {
				return amqp.Return{}, false
			}
			if ret.MessageId == messageID {
				return ret, true
			}
		default:
			return amqp.Return{}, false
		}
	}
}

func drainReturns(returns <-chan amqp.Return) {
	for {
		select {
		case _, ok := <-returns:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

// Close closes the confirm channel
func (d *Dispatcher) Close() error {
	return d.channel.Close()
}
