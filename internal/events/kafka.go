// Package events publishes order lifecycle events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/segmentio/kafka-go"

	"github.com/xenking/storefront/internal/domain/order"
)

// Event types.
const (
	TypeOrderCreated       = "order.created"
	TypeOrderStatusChanged = "order.status_changed"
)

// Event is the message envelope. Orders are keyed by order ID so all events
// of one order land on the same partition.
type Event struct {
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Order      Order     `json:"order"`
	FromStatus string    `json:"from_status,omitempty"`
}

// Order is the event view of an order.
type Order struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id,omitempty"`
	Status        string    `json:"status"`
	TotalAmount   string    `json:"total_amount"`
	CustomerName  string    `json:"customer_name"`
	CustomerEmail string    `json:"customer_email"`
	Items         []Item    `json:"items"`
	CreatedAt     time.Time `json:"created_at"`
}

// Item is the event view of an order item.
type Item struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	Subtotal    string `json:"subtotal"`
}

// MessageWriter is the subset of *kafka.Writer used by Publisher.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

var _ order.Publisher = (*Publisher)(nil)

// Publisher writes order events to a topic.
type Publisher struct {
	w   MessageWriter
	now func() time.Time
}

// NewPublisher wraps w.
func NewPublisher(w MessageWriter) *Publisher {
	return &Publisher{w: w, now: time.Now}
}

// NewWriter returns a kafka writer for topic on the comma-separated brokers,
// or nil if brokers is empty.
func NewWriter(brokersCSV, topic string) *kafka.Writer {
	var brokers []string
	for _, b := range strings.Split(brokersCSV, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	if len(brokers) == 0 {
		return nil
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
	}
}

func (p *Publisher) OrderCreated(ctx context.Context, o *order.Order) error {
	return p.publish(ctx, Event{Type: TypeOrderCreated, Order: orderView(o)})
}

func (p *Publisher) StatusChanged(ctx context.Context, o *order.Order, from order.Status) error {
	return p.publish(ctx, Event{
		Type:       TypeOrderStatusChanged,
		Order:      orderView(o),
		FromStatus: string(from),
	})
}

// Close flushes pending messages.
func (p *Publisher) Close() error {
	return p.w.Close()
}

func (p *Publisher) publish(ctx context.Context, e Event) error {
	e.OccurredAt = p.now().UTC()
	data, err := json.Marshal(e)
	if err != nil {
		return errors.Wrap(err, "marshal event")
	}
	err = p.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.Order.ID),
		Value: data,
		Time:  e.OccurredAt,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(e.Type)},
		},
	})
	if err != nil {
		return errors.Wrapf(err, "write %s", e.Type)
	}
	return nil
}

func orderView(o *order.Order) Order {
	items := make([]Item, len(o.Items))
	for i, it := range o.Items {
		items[i] = Item{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice.StringFixed(2),
			Subtotal:    it.Subtotal.StringFixed(2),
		}
	}
	return Order{
		ID:            o.ID,
		UserID:        o.UserID,
		Status:        string(o.Status),
		TotalAmount:   o.TotalAmount.StringFixed(2),
		CustomerName:  o.Customer.Name,
		CustomerEmail: o.Customer.Email,
		Items:         items,
		CreatedAt:     o.CreatedAt,
	}
}
