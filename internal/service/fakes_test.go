package service

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/catalog"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/clients"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/config"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/errors"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/events"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
)

var errStoreDown = errors.StoreError("save cart", stderrors.New("connection refused"))

func seedCatalog() *catalog.Static {
	return catalog.NewStatic(
		&models.Product{ID: "111", Name: "T-Shirt", Price: 25},
		&models.Product{ID: "123", Name: "Hat", Price: 29},
		&models.Product{ID: "234", Name: "Mug", Price: 16},
		&models.Product{ID: "345", Name: "Tote", Price: 18},
		&models.Product{ID: "000", Name: "Sticker", Price: 0},
	)
}

type memCartRepo struct {
	mu        sync.Mutex
	carts     map[string][]string
	saves     int
	failSaves int
	loadErr   error
}

func newMemCartRepo() *memCartRepo {
	return &memCartRepo{carts: make(map[string][]string)}
}

func (r *memCartRepo) Load(ctx context.Context, userID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	ids, ok := r.carts[userID]
	if !ok {
		ids = []string{}
		r.carts[userID] = ids
	}
	return append([]string{}, ids...), nil
}

func (r *memCartRepo) Save(ctx context.Context, userID string, ids []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failSaves > 0 {
		r.failSaves--
		return errStoreDown
	}
	r.saves++
	r.carts[userID] = append([]string{}, ids...)
	return nil
}

func (r *memCartRepo) set(userID string, ids ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.carts[userID] = ids
}

func (r *memCartRepo) get(userID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string{}, r.carts[userID]...)
}

func (r *memCartRepo) saveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.saves
}

func (r *memCartRepo) failNextSaves(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failSaves = n
}

type memOrderRepo struct {
	mu        sync.Mutex
	orders    []*models.Order
	appendErr error
}

func (r *memOrderRepo) Append(ctx context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.appendErr != nil {
		return r.appendErr
	}
	r.orders = append(r.orders, order)
	return nil
}

func (r *memOrderRepo) ListByUser(ctx context.Context, userID string) ([]*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.Order, 0)
	for _, o := range r.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *memOrderRepo) GetByTransactionID(ctx context.Context, userID, transactionID string) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.UserID == userID && o.TransactionID == transactionID {
			return o, nil
		}
	}
	return nil, errors.ErrNotFound
}

func (r *memOrderRepo) DeleteByTransactionID(ctx context.Context, userID, transactionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, o := range r.orders {
		if o.UserID == userID && o.TransactionID == transactionID {
			r.orders = append(r.orders[:i], r.orders[i+1:]...)
			return nil
		}
	}
	return errors.ErrNotFound
}

func (r *memOrderRepo) count(userID string) int {
	orders, _ := r.ListByUser(context.Background(), userID)
	return len(orders)
}

type memIntentRepo struct {
	mu        sync.Mutex
	intents   map[string]*models.CheckoutIntent
	createErr error
	now       func() time.Time
}

func newMemIntentRepo() *memIntentRepo {
	return &memIntentRepo{intents: make(map[string]*models.CheckoutIntent), now: time.Now}
}

func (r *memIntentRepo) Create(ctx context.Context, intent *models.CheckoutIntent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	cp := *intent
	r.intents[intent.ID] = &cp
	return nil
}

func (r *memIntentRepo) Get(ctx context.Context, id string) (*models.CheckoutIntent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	intent, ok := r.intents[id]
	if !ok {
		return nil, errors.ErrNotFound
	}
	cp := *intent
	return &cp, nil
}

func (r *memIntentRepo) UpdatePhase(ctx context.Context, id string, phase models.IntentPhase, lastError string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	intent, ok := r.intents[id]
	if !ok {
		return errors.ErrNotFound
	}
	intent.Phase = phase
	intent.LastError = lastError
	intent.Attempts++
	intent.UpdatedAt = r.now()
	return nil
}

func (r *memIntentRepo) ListStale(ctx context.Context, olderThan time.Time, limit int) ([]*models.CheckoutIntent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.CheckoutIntent, 0)
	for _, intent := range r.intents {
		if intent.Pending() && intent.UpdatedAt.Before(olderThan) && len(out) < limit {
			cp := *intent
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memIntentRepo) only() *models.CheckoutIntent {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, intent := range r.intents {
		cp := *intent
		return &cp
	}
	return nil
}

func (r *memIntentRepo) put(intent *models.CheckoutIntent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.intents[intent.ID] = intent
}

var _ clients.PaymentGateway = (*fakeGateway)(nil)

type fakeGateway struct {
	mu        sync.Mutex
	calls     int
	approve   bool
	err       error
	txID      string
	onProcess func()
}

func (g *fakeGateway) Process(ctx context.Context, req *models.PaymentRequest) (*models.PaymentResult, error) {
	g.mu.Lock()
	g.calls++
	hook := g.onProcess
	g.mu.Unlock()

	if hook != nil {
		hook()
	}
	if g.err != nil {
		return nil, g.err
	}
	if !g.approve {
		return &models.PaymentResult{Success: false}, nil
	}
	return &models.PaymentResult{Success: true, TransactionID: g.txID}, nil
}

func (g *fakeGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type checkoutFixture struct {
	catalog   *catalog.Static
	carts     *memCartRepo
	orders    *memOrderRepo
	intents   *memIntentRepo
	gateway   *fakeGateway
	notifier  *clients.NoopNotificationSender
	publisher *events.MockEventPublisher

	cfg          *config.Config
	cartService  *CartService
	orderService *OrderService
	checkout     *CheckoutService
	reconciler   *Reconciler
}

func newCheckoutFixture() *checkoutFixture {
	logger := logging.NewNopLogger()
	f := &checkoutFixture{
		catalog:   seedCatalog(),
		carts:     newMemCartRepo(),
		orders:    &memOrderRepo{},
		intents:   newMemIntentRepo(),
		gateway:   &fakeGateway{approve: true, txID: "mock-alice-abc123xyz"},
		notifier:  clients.NewNoopNotificationSender(),
		publisher: events.NewMockEventPublisher(),
	}

	cfg := &config.Config{
		Checkout: config.CheckoutConfig{
			RetractMaxTries:    3,
			RetractInitialWait: time.Millisecond,
			RetractMaxWait:     2 * time.Millisecond,
			RedirectAfter:      30 * time.Second,
		},
		Reconciler: config.ReconcilerConfig{GraceAge: time.Minute, BatchSize: 10},
	}

	f.cfg = cfg
	f.cartService = NewCartService(f.carts, f.catalog, nil, logger)
	f.orderService = NewOrderService(f.orders, nil, cfg, logger)
	f.checkout = f.checkoutOn(f.catalog)
	f.reconciler = NewReconciler(f.intents, f.orderService, f.cartService, cfg.Reconciler, nil, logger)
	return f
}

// checkoutOn builds a checkout service whose materializer reads cat.
func (f *checkoutFixture) checkoutOn(cat catalog.Accessor) *CheckoutService {
	return NewCheckoutService(
		NewMaterializer(f.carts, cat),
		f.cartService,
		f.orderService,
		f.intents,
		f.gateway,
		f.notifier,
		f.publisher,
		f.cfg.Checkout,
		nil,
		logging.NewNopLogger(),
	)
}
