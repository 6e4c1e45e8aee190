package kafka

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTopicsMatchConstants(t *testing.T) {
	topics := DefaultTopics()

	assert.Equal(t, TopicOrderCreated, topics.OrderCreated)
	assert.Equal(t, TopicOrderStatus, topics.OrderStatus)
	assert.Equal(t, TopicTicketUpdated, topics.TicketUpdated)
	assert.Equal(t, TopicTableUpdated, topics.TableUpdated)

	assert.Equal(t, []string{
		TopicOrderCreated,
		TopicOrderStatus,
		TopicTicketUpdated,
		TopicTableUpdated,
	}, topics.List())
}

func TestNewProducerKeepsConfiguredTopics(t *testing.T) {
	topics := Topics{
		OrderCreated:  "env.order.created",
		OrderStatus:   "env.order.status",
		TicketUpdated: "env.ticket.updated",
		TableUpdated:  "env.table.updated",
	}

	producer := NewProducer([]string{"localhost:9092"}, topics)
	defer producer.Close()

	require.NotNil(t, producer.Writer)
	assert.Equal(t, topics, producer.Topics)
	assert.Contains(t, topics.List(), "env.ticket.updated")
}
