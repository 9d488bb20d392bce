package helpers

import (
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
)

func TestRabbitPublisher_PingWithoutConnection(t *testing.T) {
	assert.ErrorIs(t, (&RabbitPublisher{}).Ping(), amqp.ErrClosed)
}
