// Package notify publishes order events to an external broker.
package notify

import (
	"context"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/segmentio/kafka-go"

	"github.com/galerie-tech/galerie/core/logger"
)

// OrderEvent is the payload published when an order has been created.
type OrderEvent struct {
	OrderID   int64     `json:"order_id"`
	UserID    int64     `json:"user_id"`
	Amount    float64   `json:"amount"`
	Items     int       `json:"items"`
	CreatedAt time.Time `json:"created_at"`
}

// Notifier receives order events after they have been committed.
type Notifier interface {
	OrderCreated(ctx context.Context, event OrderEvent) error
	Close() error
}

// messageWriter is the part of kafka.Writer the notifier needs.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier publishes order events to a kafka topic.
type KafkaNotifier struct {
	writer messageWriter
}

// NewKafkaNotifier creates a notifier writing to the given brokers and topic.
func NewKafkaNotifier(brokers []string, topic string) *KafkaNotifier {
	logger.Default().Infoln("order notifications enabled, topic:", topic)
	return &KafkaNotifier{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

// OrderCreated publishes the event, keyed by order id.
func (n *KafkaNotifier) OrderCreated(ctx context.Context, event OrderEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(event.OrderID, 10)),
		Value: payload,
	})
}

// Close closes the underlying writer.
func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}

// NopNotifier drops all events. It is used when no brokers are configured.
type NopNotifier struct{}

// OrderCreated does nothing.
func (NopNotifier) OrderCreated(ctx context.Context, event OrderEvent) error { return nil }

// Close does nothing.
func (NopNotifier) Close() error { return nil }
