package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/segmentio/kafka-go"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
)

const (
	fetchRetryInitialWait = 200 * time.Millisecond
	fetchRetryMaxWait     = 10 * time.Second
)

// IntentReconciler resumes one unfinished checkout intent.
type IntentReconciler interface {
	ReconcileIntent(ctx context.Context, intentID string) error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConsumer reads retraction failures and hands them to the reconciler.
// Messages are committed once handled; an intent the reconciler could not
// finish here is picked up again by the periodic sweep.
type KafkaConsumer struct {
	reader     messageReader
	reconciler IntentReconciler
	logger     *logging.Logger
	stopCh     chan struct{}

	retryInitialWait time.Duration
	retryMaxWait     time.Duration
}

// NewKafkaConsumer creates a new Kafka-based event consumer.
func NewKafkaConsumer(cfg config.KafkaConfig, reconciler IntentReconciler, logger *logging.Logger) *KafkaConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.RetractedTopic,
		GroupID:  cfg.ConsumerGroup,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  time.Second,
	})

	return newKafkaConsumer(reader, reconciler, logger)
}

func newKafkaConsumer(reader messageReader, reconciler IntentReconciler, logger *logging.Logger) *KafkaConsumer {
	return &KafkaConsumer{
		reader:     reader,
		reconciler: reconciler,
		logger:     logger,
		stopCh:     make(chan struct{}),

		retryInitialWait: fetchRetryInitialWait,
		retryMaxWait:     fetchRetryMaxWait,
	}
}

// Start consumes until ctx is cancelled or Stop is called.
func (c *KafkaConsumer) Start(ctx context.Context) error {
	c.logger.Info("Starting Kafka consumer")

	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = c.retryInitialWait
	expo.MaxInterval = c.retryMaxWait

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.stopCh:
			c.logger.Info("Kafka consumer stopped")
			return nil
		default:
		}

		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			select {
			case <-c.stopCh:
				c.logger.Info("Kafka consumer stopped")
				return nil
			default:
			}
			wait := expo.NextBackOff()
			c.logger.Error("Failed to read message", logging.Fields{
				"error":   err.Error(),
				"wait_ms": wait.Milliseconds(),
			})
			if stopped, err := c.pause(ctx, wait); stopped {
				return err
			}
			continue
		}
		expo.Reset()

		c.handleMessage(ctx, msg)

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			c.logger.Error("Failed to commit message", logging.Fields{
				"offset": msg.Offset,
				"error":  err.Error(),
			})
		}
	}
}

// pause waits d between failed fetches. It reports whether the consumer was
// stopped or cancelled meanwhile.
func (c *KafkaConsumer) pause(ctx context.Context, d time.Duration) (bool, error) {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return true, ctx.Err()
	case <-c.stopCh:
		c.logger.Info("Kafka consumer stopped")
		return true, nil
	case <-timer.C:
		return false, nil
	}
}

// Stop stops the consumer.
func (c *KafkaConsumer) Stop() {
	close(c.stopCh)
	c.reader.Close()
}

func (c *KafkaConsumer) handleMessage(ctx context.Context, msg kafka.Message) {
	c.logger.Debug("Received message", logging.Fields{
		"topic":     msg.Topic,
		"partition": msg.Partition,
		"offset":    msg.Offset,
	})

	var event Event
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		c.logger.Error("Failed to unmarshal event", logging.Fields{"error": err.Error()})
		return
	}

	if event.Type != EventTypeRetractionFailed || event.IntentID == "" {
		c.logger.Debug("Ignoring event", logging.Fields{"type": event.Type})
		return
	}

	c.logger.Info("Handling retraction failure", logging.Fields{
		"intent_id":      event.IntentID,
		"transaction_id": event.TransactionID,
	})

	if err := c.reconciler.ReconcileIntent(ctx, event.IntentID); err != nil {
		c.logger.Warn("Reconcile from event failed", logging.Fields{
			"intent_id": event.IntentID,
			"error":     err.Error(),
		})
	}
}
