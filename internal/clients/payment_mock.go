package clients

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/logging"
	"github.com/tm-acme-shop/acme-shop-storefront-service/internal/models"
)

var _ PaymentGateway = (*MockPaymentGateway)(nil)

const txSuffixAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// MockPaymentGateway simulates a gateway that succeeds with probability
// successRate after a fixed delay.
type MockPaymentGateway struct {
	successRate float64
	delay       time.Duration
	logger      *logging.Logger

	mu  sync.Mutex
	rnd *rand.Rand
}

// NewMockPaymentGateway creates a mock gateway. A nil rnd seeds from the clock.
func NewMockPaymentGateway(successRate float64, delay time.Duration, rnd *rand.Rand, logger *logging.Logger) *MockPaymentGateway {
	if rnd == nil {
		rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &MockPaymentGateway{
		successRate: successRate,
		delay:       delay,
		logger:      logger,
		rnd:         rnd,
	}
}

func (g *MockPaymentGateway) Process(ctx context.Context, req *models.PaymentRequest) (*models.PaymentResult, error) {
	g.logger.Debug("Processing mock payment", logging.Fields{
		"user_id": req.UserID,
		"total":   req.TotalPrice,
		"method":  req.PaymentMethod,
	})

	if g.delay > 0 {
		timer := time.NewTimer(g.delay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	g.mu.Lock()
	approved := g.rnd.Float64() < g.successRate
	suffix := g.suffix(9)
	g.mu.Unlock()

	if !approved {
		g.logger.Info("Mock payment declined", logging.Fields{"user_id": req.UserID})
		return &models.PaymentResult{Success: false}, nil
	}

	txID := "mock-" + emailLocalPart(req.Email) + "-" + suffix
	g.logger.Info("Mock payment approved", logging.Fields{
		"user_id":        req.UserID,
		"transaction_id": txID,
	})
	return &models.PaymentResult{Success: true, TransactionID: txID}, nil
}

func (g *MockPaymentGateway) suffix(n int) string {
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte(txSuffixAlphabet[g.rnd.Intn(len(txSuffixAlphabet))])
	}
	return b.String()
}

func emailLocalPart(email string) string {
	if i := strings.IndexByte(email, '@'); i >= 0 {
		return email[:i]
	}
	return email
}
