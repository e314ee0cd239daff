package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/middleware"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
)

// EventType represents the type of checkout event.
type EventType string

const (
	EventTypeOrderPlaced      EventType = "order.placed"
	EventTypePaymentFailed    EventType = "checkout.payment_failed"
	EventTypeRetractionFailed EventType = "cart.retraction_failed"
)

// Event is the envelope written to Kafka.
type Event struct {
	ID            string          `json:"id"`
	Type          EventType       `json:"type"`
	UserID        string          `json:"user_id"`
	TransactionID string          `json:"transaction_id,omitempty"`
	IntentID      string          `json:"intent_id,omitempty"`
	Data          json.RawMessage `json:"data,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id,omitempty"`
}

// Publisher announces checkout outcomes. Publishing is best effort; callers
// log failures and carry on.
type Publisher interface {
	PublishOrderPlaced(ctx context.Context, order *models.Order) error
	PublishPaymentFailed(ctx context.Context, req *models.PaymentRequest, reason string) error
	PublishRetractionFailed(ctx context.Context, intent *models.CheckoutIntent) error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Ensure KafkaPublisher implements Publisher
var _ Publisher = (*KafkaPublisher)(nil)

// KafkaPublisher publishes checkout events to Kafka. Order and payment events
// go to the checkout topic; retraction failures go to their own topic so the
// reconciler can consume them.
type KafkaPublisher struct {
	writer          messageWriter
	checkoutTopic   string
	retractionTopic string
	logger          *logging.Logger
}

// NewKafkaPublisher creates a new Kafka-based event publisher.
func NewKafkaPublisher(cfg config.KafkaConfig, logger *logging.Logger) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		WriteTimeout: 10 * time.Second,
		RequiredAcks: kafka.RequireOne,
	}

	return newKafkaPublisher(writer, cfg, logger)
}

func newKafkaPublisher(writer messageWriter, cfg config.KafkaConfig, logger *logging.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer:          writer,
		checkoutTopic:   cfg.CheckoutTopic,
		retractionTopic: cfg.RetractedTopic,
		logger:          logger,
	}
}

// PublishOrderPlaced publishes an order placed event.
func (p *KafkaPublisher) PublishOrderPlaced(ctx context.Context, order *models.Order) error {
	data, err := json.Marshal(order)
	if err != nil {
		return err
	}

	event := newEvent(ctx, EventTypeOrderPlaced, order.UserID, data)
	event.TransactionID = order.TransactionID
	return p.publish(ctx, p.checkoutTopic, event)
}

// PublishPaymentFailed publishes a declined or failed payment.
func (p *KafkaPublisher) PublishPaymentFailed(ctx context.Context, req *models.PaymentRequest, reason string) error {
	payload := struct {
		Items      []models.OrderItem `json:"items"`
		TotalPrice float64            `json:"total_price"`
		Reason     string             `json:"reason"`
	}{
		Items:      req.Items,
		TotalPrice: req.TotalPrice,
		Reason:     reason,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return p.publish(ctx, p.checkoutTopic, newEvent(ctx, EventTypePaymentFailed, req.UserID, data))
}

// PublishRetractionFailed announces a paid checkout whose cart still holds the
// charged items.
func (p *KafkaPublisher) PublishRetractionFailed(ctx context.Context, intent *models.CheckoutIntent) error {
	event := newEvent(ctx, EventTypeRetractionFailed, intent.UserID, nil)
	event.TransactionID = intent.TransactionID
	event.IntentID = intent.ID
	return p.publish(ctx, p.retractionTopic, event)
}

func newEvent(ctx context.Context, eventType EventType, userID string, data []byte) *Event {
	return &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		UserID:        userID,
		Data:          data,
		Timestamp:     time.Now().UTC(),
		CorrelationID: middleware.RequestIDFromContext(ctx),
	}
}

func (p *KafkaPublisher) publish(ctx context.Context, topic string, event *Event) error {
	eventData, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(event.UserID),
		Value: eventData,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
			{Key: "event_id", Value: []byte(event.ID)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to publish event", logging.Fields{
			"event_id":   event.ID,
			"event_type": event.Type,
			"user_id":    event.UserID,
			"error":      err.Error(),
		})
		return err
	}

	p.logger.Info("Event published", logging.Fields{
		"event_id":   event.ID,
		"event_type": event.Type,
		"topic":      topic,
	})

	return nil
}

// Close closes the Kafka writer.
func (p *KafkaPublisher) Close() error {
	p.logger.Info("Closing Kafka publisher")
	return p.writer.Close()
}

// LogPublisher only logs events. It stands in for Kafka when checkout events
// are disabled.
type LogPublisher struct {
	logger *logging.Logger
}

func NewLogPublisher(logger *logging.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) PublishOrderPlaced(ctx context.Context, order *models.Order) error {
	p.logger.Debug("Order placed", logging.Fields{"user_id": order.UserID, "transaction_id": order.TransactionID})
	return nil
}

func (p *LogPublisher) PublishPaymentFailed(ctx context.Context, req *models.PaymentRequest, reason string) error {
	p.logger.Debug("Payment failed", logging.Fields{"user_id": req.UserID, "reason": reason})
	return nil
}

func (p *LogPublisher) PublishRetractionFailed(ctx context.Context, intent *models.CheckoutIntent) error {
	p.logger.Debug("Cart retraction failed", logging.Fields{"user_id": intent.UserID, "intent_id": intent.ID})
	return nil
}

// MockEventPublisher is a mock implementation for testing.
type MockEventPublisher struct {
	mu     sync.Mutex
	events []*Event
	Err    error
}

func NewMockEventPublisher() *MockEventPublisher {
	return &MockEventPublisher{events: make([]*Event, 0)}
}

func (m *MockEventPublisher) PublishOrderPlaced(ctx context.Context, order *models.Order) error {
	return m.record(&Event{Type: EventTypeOrderPlaced, UserID: order.UserID, TransactionID: order.TransactionID})
}

func (m *MockEventPublisher) PublishPaymentFailed(ctx context.Context, req *models.PaymentRequest, reason string) error {
	return m.record(&Event{Type: EventTypePaymentFailed, UserID: req.UserID})
}

func (m *MockEventPublisher) PublishRetractionFailed(ctx context.Context, intent *models.CheckoutIntent) error {
	return m.record(&Event{
		Type:          EventTypeRetractionFailed,
		UserID:        intent.UserID,
		TransactionID: intent.TransactionID,
		IntentID:      intent.ID,
	})
}

func (m *MockEventPublisher) record(e *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.events = append(m.events, e)
	return nil
}

// Types returns the recorded event types in publish order.
func (m *MockEventPublisher) Types() []EventType {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]EventType, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.Type)
	}
	return out
}

// Events returns a copy of the recorded events.
func (m *MockEventPublisher) Events() []*Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Event, len(m.events))
	copy(out, m.events)
	return out
}
