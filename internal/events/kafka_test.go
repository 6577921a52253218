package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/storefront/internal/domain/order"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func testOrder() *order.Order {
	return &order.Order{
		ID:          "0b6f3c1e-8a4e-4f55-9d4b-2f0f9f2f7a10",
		Status:      order.StatusProcessing,
		TotalAmount: decimal.RequireFromString("49"),
		Customer:    order.Customer{Name: "Asha", Email: "asha@example.com"},
		Items: []order.Item{{
			ProductID:   "kettle",
			ProductName: "Kettle",
			Quantity:    2,
			UnitPrice:   decimal.RequireFromString("24.5"),
			Subtotal:    decimal.RequireFromString("49"),
		}},
	}
}

func TestPublisher_StatusChanged(t *testing.T) {
	w := &fakeWriter{}
	p := NewPublisher(w)
	p.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	require.NoError(t, p.StatusChanged(context.Background(), testOrder(), order.StatusPending))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "0b6f3c1e-8a4e-4f55-9d4b-2f0f9f2f7a10", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, TypeOrderStatusChanged, string(msg.Headers[0].Value))

	var e Event
	require.NoError(t, json.Unmarshal(msg.Value, &e))
	assert.Equal(t, TypeOrderStatusChanged, e.Type)
	assert.Equal(t, "pending", e.FromStatus)
	assert.Equal(t, "processing", e.Order.Status)
	assert.Equal(t, "49.00", e.Order.TotalAmount)
	require.Len(t, e.Order.Items, 1)
	assert.Equal(t, "24.50", e.Order.Items[0].UnitPrice)
	assert.True(t, e.OccurredAt.Equal(p.now()))
}

func TestPublisher_OrderCreatedError(t *testing.T) {
	w := &fakeWriter{err: errors.New("leader not available")}
	err := NewPublisher(w).OrderCreated(context.Background(), testOrder())
	require.Error(t, err)
	assert.Contains(t, err.Error(), TypeOrderCreated)
}

func TestNewWriter(t *testing.T) {
	assert.Nil(t, NewWriter(" , ", "orders"))

	w := NewWriter("kafka-1:9092, kafka-2:9092", "orders")
	require.NotNil(t, w)
	assert.Equal(t, "orders", w.Topic)
	assert.NotNil(t, w.Addr)
	assert.IsType(t, &kafka.Hash{}, w.Balancer)
}
