package messaging

import (
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
)

func TestReturned(t *testing.T) {
	t.Run("matching return is reported", func(t *testing.T) {
		returns := make(chan amqp.Return, returnBuffer)
		returns <- amqp.Return{MessageId: "job-1", ReplyCode: amqp.NoRoute, ReplyText: "NO_ROUTE"}

		ret, ok := returned(returns, "job-1")
		assert.True(t, ok)
		assert.Equal(t, uint16(amqp.NoRoute), ret.ReplyCode)
		assert.Equal(t, "NO_ROUTE", ret.ReplyText)
	})

	t.Run("stale returns are discarded", func(t *testing.T) {
		returns := make(chan amqp.Return, returnBuffer)
		returns <- amqp.Return{MessageId: "old-job"}

		_, ok := returned(returns, "job-1")
		assert.False(t, ok)
		assert.Empty(t, returns)
	})

	t.Run("routed job has no return", func(t *testing.T) {
		returns := make(chan amqp.Return, returnBuffer)

		_, ok := returned(returns, "job-1")
		assert.False(t, ok)
	})

	t.Run("closed channel", func(t *testing.T) {
		returns := make(chan amqp.Return)
		close(returns)

		_, ok := returned(returns, "job-1")
		assert.False(t, ok)
	})
}

func TestDrainReturns(t *testing.T) {
	returns := make(chan amqp.Return, returnBuffer)
	returns <- amqp.Return{MessageId: "a"}
	returns <- amqp.Return{MessageId: ""}
	returns <- amqp.Return{MessageId: "b"}

	drainReturns(returns)
	assert.Empty(t, returns)
}
