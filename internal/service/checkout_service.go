package service

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/clients"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/events"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/repository"
)

const notificationTimeout = 10 * time.Second

// CheckoutService runs one checkout attempt:
//
//	COLLECTING -> SUBMITTING -> SUCCEEDED | FAILED
//
// Nothing is written before the payment outcome is known. After a successful
// payment the order write and the cart retraction are separate store calls;
// a CheckoutIntent records which of them happened so the Reconciler can
// finish the rest.
type CheckoutService struct {
	materializer *Materializer
	carts        *CartService
	orders       *OrderService
	intents      repository.IntentRepository
	gateway      clients.PaymentGateway
	notifier     clients.NotificationSender
	publisher    events.Publisher
	config       config.CheckoutConfig
	metrics      *metrics.Metrics
	logger       *logging.Logger
	now          func() time.Time
}

// NewCheckoutService creates a checkout service. notifier may be nil. The
// materializer's catalog is used without its cache layer.
func NewCheckoutService(
	materializer *Materializer,
	carts *CartService,
	orders *OrderService,
	intents repository.IntentRepository,
	gateway clients.PaymentGateway,
	notifier clients.NotificationSender,
	publisher events.Publisher,
	cfg config.CheckoutConfig,
	m *metrics.Metrics,
	logger *logging.Logger,
) *CheckoutService {
	return &CheckoutService{
		materializer: materializer.Live(),
		carts:        carts,
		orders:       orders,
		intents:      intents,
		gateway:      gateway,
		notifier:     notifier,
		publisher:    publisher,
		config:       cfg,
		metrics:      m,
		logger:       logger,
		now:          time.Now,
	}
}

// Checkout charges the principal for the catalog-valid subset of
// req.ItemIDs and, on success, records the order and retracts exactly the
// charged ids from the cart.
//
// Errors: ValidationError for bad input, ErrEmptyCart when no requested id is
// still in the catalog, ErrNothingToCharge for a zero total,
// ErrPaymentDeclined when the gateway did not approve. A failed order write
// after a successful payment returns an OrderPendingError; the intent stays
// pending for the Reconciler.
func (s *CheckoutService) Checkout(ctx context.Context, p models.Principal, req *models.CheckoutRequest) (*models.CheckoutResult, error) {
	if err := ValidateCheckoutRequest(req); err != nil {
		s.metrics.Checkout("rejected")
		return nil, err
	}

	// COLLECTING
	slots, err := s.materializer.MaterializeIDs(ctx, req.ItemIDs)
	if err != nil {
		return nil, err
	}
	products, stale := SplitSlots(slots)
	if len(stale) > 0 {
		s.logger.Info("Dropping stale checkout items", logging.Fields{
			"user_id": p.UserID,
			"ids":     stale,
		})
	}
	if len(products) == 0 {
		s.metrics.Checkout("empty")
		return nil, errors.ErrEmptyCart
	}

	grouped := GroupItems(products)
	total := CalculateTotal(grouped)
	if len(grouped) == 0 || total <= 0 {
		s.metrics.Checkout("empty")
		return nil, errors.ErrNothingToCharge
	}

	payment := &models.PaymentRequest{
		UserID:        p.UserID,
		Email:         req.Email,
		PaymentMethod: req.PaymentMethod,
		Items:         OrderItems(grouped),
		TotalPrice:    total,
	}

	// SUBMITTING
	s.logger.Info("Submitting payment", logging.Fields{
		"user_id": p.UserID,
		"total":   total,
		"items":   len(products),
	})

	started := time.Now()
	result, err := s.gateway.Process(ctx, payment)
	if err != nil || result == nil || !result.Success {
		return nil, s.failed(ctx, payment, time.Since(started), err)
	}
	s.metrics.Payment("success", time.Since(started))

	// SUCCEEDED. The customer has been charged, so the remaining writes
	// outlive a caller that goes away.
	ctx = context.WithoutCancel(ctx)

	charged := make([]string, 0, len(products))
	for _, prod := range products {
		charged = append(charged, prod.ID)
	}

	order := &models.Order{
		UserID:        p.UserID,
		Items:         payment.Items,
		TransactionID: result.TransactionID,
		TotalCost:     total,
		PaymentMethod: req.PaymentMethod,
		DateReceived:  s.now().UTC(),
	}

	intent := s.recordIntent(ctx, p, req.Email, charged, order)

	if err := s.CommitOrder(ctx, intent, order); err != nil {
		s.metrics.Checkout("order_failed")
		return nil, &errors.OrderPendingError{TransactionID: order.TransactionID, Err: err}
	}

	retracted := s.RetractCartItems(ctx, p, intent, charged)

	s.metrics.Checkout(string(models.CheckoutStateSucceeded))
	s.afterSuccess(ctx, order, req.Email)

	return &models.CheckoutResult{
		State:         models.CheckoutStateSucceeded,
		TransactionID: order.TransactionID,
		Order:         order,
		Rejected:      stale,
		CartRetracted: retracted,
		RedirectAfter: s.config.RedirectAfter,
	}, nil
}

// CommitOrder appends the order and advances the intent to order_committed.
func (s *CheckoutService) CommitOrder(ctx context.Context, intent *models.CheckoutIntent, order *models.Order) error {
	if err := s.orders.Record(ctx, order); err != nil {
		s.advance(ctx, intent, models.IntentPhasePaid, err)
		return fmt.Errorf("commit order %s: %w", order.TransactionID, err)
	}
	s.advance(ctx, intent, models.IntentPhaseOrderCommitted, nil)
	return nil
}

// RetractCartItems removes the charged multiset from the cart, retrying with
// exponential backoff. It reports whether the removal went through. Ids added
// to the cart while the checkout ran are left alone.
func (s *CheckoutService) RetractCartItems(ctx context.Context, p models.Principal, intent *models.CheckoutIntent, charged []string) bool {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = s.config.RetractInitialWait
	expo.MaxInterval = s.config.RetractMaxWait

	tries := s.config.RetractMaxTries
	if tries < 1 {
		tries = 1
	}

	_, err := backoff.Retry(ctx, func() (*models.CartRemoveResult, error) {
		return s.carts.removeIDs(ctx, p, charged)
	},
		backoff.WithBackOff(expo),
		backoff.WithMaxTries(uint(tries)),
		backoff.WithNotify(func(err error, wait time.Duration) {
			s.metrics.RetractionRetry()
			s.logger.Warn("Retrying cart retraction", logging.Fields{
				"user_id": p.UserID,
				"wait_ms": wait.Milliseconds(),
				"error":   err.Error(),
			})
		}),
	)

	if err != nil {
		s.logger.Error("Cart retraction failed after payment", logging.Fields{
			"user_id":        p.UserID,
			"transaction_id": intent.TransactionID,
			"error":          err.Error(),
		})
		s.advance(ctx, intent, models.IntentPhaseOrderCommitted, err)
		if intent.ID == "" {
			s.logger.Error("No intent recorded for failed retraction", logging.Fields{
				"user_id":        p.UserID,
				"transaction_id": intent.TransactionID,
			})
			return false
		}
		if perr := s.publisher.PublishRetractionFailed(ctx, intent); perr != nil {
			s.logger.Warn("Failed to publish retraction failure", logging.Fields{"error": perr.Error()})
		}
		return false
	}

	s.advance(ctx, intent, models.IntentPhaseCompleted, nil)
	return true
}

func (s *CheckoutService) failed(ctx context.Context, payment *models.PaymentRequest, elapsed time.Duration, cause error) error {
	reason := "declined"
	if cause != nil {
		reason = cause.Error()
		s.metrics.Payment("error", elapsed)
	} else {
		s.metrics.Payment("declined", elapsed)
	}
	s.metrics.Checkout(string(models.CheckoutStateFailed))

	s.logger.Warn("Payment not approved", logging.Fields{
		"user_id": payment.UserID,
		"total":   payment.TotalPrice,
		"reason":  reason,
	})

	if err := s.publisher.PublishPaymentFailed(ctx, payment, reason); err != nil {
		s.logger.Warn("Failed to publish payment failure", logging.Fields{"error": err.Error()})
	}

	if cause != nil {
		return fmt.Errorf("%w: %w", errors.ErrPaymentDeclined, cause)
	}
	return errors.ErrPaymentDeclined
}

// recordIntent stores the paid intent. If the intent store is down the
// checkout still proceeds; only the reconciliation record is lost.
func (s *CheckoutService) recordIntent(ctx context.Context, p models.Principal, email string, charged []string, order *models.Order) *models.CheckoutIntent {
	now := s.now().UTC()
	intent := &models.CheckoutIntent{
		ID:            uuid.NewString(),
		UserID:        p.UserID,
		TransactionID: order.TransactionID,
		Email:         email,
		ItemIDs:       charged,
		Order:         order,
		Phase:         models.IntentPhasePaid,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.intents.Create(ctx, intent); err != nil {
		s.logger.Error("Failed to record checkout intent", logging.Fields{
			"user_id":        p.UserID,
			"transaction_id": order.TransactionID,
			"error":          err.Error(),
		})
		intent.ID = ""
	}
	return intent
}

func (s *CheckoutService) advance(ctx context.Context, intent *models.CheckoutIntent, phase models.IntentPhase, cause error) {
	intent.Phase = phase
	if intent.ID == "" {
		return
	}

	lastError := ""
	if cause != nil {
		lastError = cause.Error()
	}
	intent.LastError = lastError

	if err := s.intents.UpdatePhase(ctx, intent.ID, phase, lastError); err != nil {
		s.logger.Error("Failed to advance checkout intent", logging.Fields{
			"intent_id": intent.ID,
			"phase":     phase,
			"error":     err.Error(),
		})
	}
}

func (s *CheckoutService) afterSuccess(ctx context.Context, order *models.Order, email string) {
	if err := s.publisher.PublishOrderPlaced(ctx, order); err != nil {
		s.logger.Warn("Failed to publish order placed event", logging.Fields{
			"transaction_id": order.TransactionID,
			"error":          err.Error(),
		})
	}

	if s.notifier == nil {
		return
	}

	go func() {
		nctx, cancel := context.WithTimeout(context.Background(), notificationTimeout)
		defer cancel()

		if err := s.notifier.SendOrderConfirmation(nctx, email, order); err != nil {
			s.logger.Error("Failed to send order confirmation", logging.Fields{
				"transaction_id": order.TransactionID,
				"error":          err.Error(),
			})
		}
	}()
}
