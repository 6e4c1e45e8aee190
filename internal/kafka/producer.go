package kafka

import (
	"context"
	"encoding/json"
	"strconv"

	"ms-tableside/internal/models"

	"github.com/segmentio/kafka-go"
)

// Default topic names for the outward lifecycle event stream. Dashboards
// are fed in-process over SSE; kafka carries the same events to external
// consumers (kitchen displays, reporting).
const (
	TopicOrderCreated  = "tableside.order.created"
	TopicOrderStatus   = "tableside.order.status"
	TopicTicketUpdated = "tableside.ticket.updated"
	TopicTableUpdated  = "tableside.table.updated"
)

// Topics names the streams the producer publishes to. Deployments
// override them through KAFKA_TOPIC_* config.
type Topics struct {
	OrderCreated  string
	OrderStatus   string
	TicketUpdated string
	TableUpdated  string
}

// DefaultTopics returns the tableside.* topic names.
func DefaultTopics() Topics {
	return Topics{
		OrderCreated:  TopicOrderCreated,
		OrderStatus:   TopicOrderStatus,
		TicketUpdated: TopicTicketUpdated,
		TableUpdated:  TopicTableUpdated,
	}
}

// List returns every topic name, for bootstrap.
func (t Topics) List() []string {
	return []string{t.OrderCreated, t.OrderStatus, t.TicketUpdated, t.TableUpdated}
}

type Producer struct {
	Writer *kafka.Writer
	Topics Topics
}

func NewProducer(brokers []string, topics Topics) *Producer {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Balancer: &kafka.LeastBytes{},
	}
	return &Producer{Writer: writer, Topics: topics}
}

// Publish writes a raw message to the given topic.
func (p *Producer) Publish(topic string, key string, value []byte) error {
	return p.Writer.WriteMessages(context.Background(),
		kafka.Message{
			Topic: topic,
			Key:   []byte(key),
			Value: value,
		},
	)
}

func (p *Producer) publishJSON(topic, key string, payload interface{}) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.Publish(topic, key, value)
}

// PublishOrderCreated streams the order creation event.
func (p *Producer) PublishOrderCreated(order models.Order) error {
	return p.publishJSON(p.Topics.OrderCreated, order.ID, order)
}

// PublishOrderStatus streams an order status or item change.
func (p *Producer) PublishOrderStatus(order models.Order) error {
	return p.publishJSON(p.Topics.OrderStatus, order.ID, order)
}

// PublishTicketUpdated streams any ticket mutation.
func (p *Producer) PublishTicketUpdated(ticket models.Ticket) error {
	return p.publishJSON(p.Topics.TicketUpdated, ticket.ID, ticket)
}

// PublishTableUpdated streams table occupancy changes.
func (p *Producer) PublishTableUpdated(table models.Table) error {
	return p.publishJSON(p.Topics.TableUpdated, strconv.Itoa(table.TableNumber), table)
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}
