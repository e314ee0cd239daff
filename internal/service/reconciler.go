package service

import (
	"context"
	"fmt"
	"time"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/metrics"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/repository"
)

// Reconciler finishes checkout intents that stopped after payment: it
// commits the order if no order with the intent's transaction id exists, then
// retracts the charged ids from the cart.
//
// A retraction whose Save reached the store but whose phase update did not
// will be applied again on the next pass. That removes one more occurrence of
// each charged id if the customer has re-added them since.
type Reconciler struct {
	intents repository.IntentRepository
	orders  *OrderService
	carts   *CartService
	config  config.ReconcilerConfig
	metrics *metrics.Metrics
	logger  *logging.Logger
	now     func() time.Time
}

func NewReconciler(
	intents repository.IntentRepository,
	orders *OrderService,
	carts *CartService,
	cfg config.ReconcilerConfig,
	m *metrics.Metrics,
	logger *logging.Logger,
) *Reconciler {
	return &Reconciler{
		intents: intents,
		orders:  orders,
		carts:   carts,
		config:  cfg,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

// Run sweeps every interval until ctx is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	interval := r.config.Interval
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	r.logger.Info("Reconciler started", logging.Fields{"interval": interval.String()})
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Reconciler stopped")
			return
		case <-ticker.C:
			if _, err := r.Sweep(ctx); err != nil {
				r.logger.Error("Reconcile sweep failed", logging.Fields{"error": err.Error()})
			}
		}
	}
}

// Sweep resumes pending intents untouched for longer than the grace age and
// returns how many it completed.
func (r *Reconciler) Sweep(ctx context.Context) (int, error) {
	limit := r.config.BatchSize
	if limit <= 0 {
		limit = 50
	}

	stale, err := r.intents.ListStale(ctx, r.now().Add(-r.config.GraceAge), limit)
	if err != nil {
		return 0, err
	}

	completed := 0
	for _, intent := range stale {
		if err := r.resume(ctx, intent); err != nil {
			continue
		}
		completed++
	}

	if len(stale) > 0 {
		r.logger.Info("Reconcile sweep finished", logging.Fields{
			"pending":   len(stale),
			"completed": completed,
		})
	}
	return completed, nil
}

// ReconcileIntent resumes a single intent. Completed intents are a no-op.
func (r *Reconciler) ReconcileIntent(ctx context.Context, intentID string) error {
	intent, err := r.intents.Get(ctx, intentID)
	if err != nil {
		return err
	}
	if !intent.Pending() {
		return nil
	}
	return r.resume(ctx, intent)
}

func (r *Reconciler) resume(ctx context.Context, intent *models.CheckoutIntent) error {
	fields := logging.Fields{
		"intent_id":      intent.ID,
		"transaction_id": intent.TransactionID,
		"phase":          intent.Phase,
		"attempts":       intent.Attempts,
	}

	if intent.Phase == models.IntentPhasePaid {
		if err := r.commitIfAbsent(ctx, intent); err != nil {
			r.fail(ctx, intent, err, fields)
			return err
		}
		if err := r.intents.UpdatePhase(ctx, intent.ID, models.IntentPhaseOrderCommitted, ""); err != nil {
			r.fail(ctx, intent, err, fields)
			return err
		}
		intent.Phase = models.IntentPhaseOrderCommitted
	}

	p := models.Principal{UserID: intent.UserID}
	if _, err := r.carts.removeIDs(ctx, p, intent.ItemIDs); err != nil {
		r.fail(ctx, intent, err, fields)
		return err
	}

	if err := r.intents.UpdatePhase(ctx, intent.ID, models.IntentPhaseCompleted, ""); err != nil {
		r.fail(ctx, intent, err, fields)
		return err
	}

	r.metrics.IntentReconciled("completed")
	r.logger.Info("Checkout intent reconciled", fields)
	return nil
}

func (r *Reconciler) commitIfAbsent(ctx context.Context, intent *models.CheckoutIntent) error {
	exists, err := r.orders.Exists(ctx, intent.UserID, intent.TransactionID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if intent.Order == nil {
		return fmt.Errorf("intent %s: %w: no order payload", intent.ID, errors.ErrNotFound)
	}
	return r.orders.Record(ctx, intent.Order)
}

func (r *Reconciler) fail(ctx context.Context, intent *models.CheckoutIntent, cause error, fields logging.Fields) {
	r.metrics.IntentReconciled("failed")
	r.logger.Warn("Checkout intent not reconciled", fields, logging.Fields{"error": cause.Error()})

	if err := r.intents.UpdatePhase(ctx, intent.ID, intent.Phase, cause.Error()); err != nil {
		r.logger.Error("Failed to record reconcile error", logging.Fields{
			"intent_id": intent.ID,
			"error":     err.Error(),
		})
	}
}
