package gateway

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/ayo6706/payment-ledger/internal/domain"
	"github.com/google/uuid"
)

// MockGateway simulates an external payment processor for local runs and
// tests. It supports a coarser precision than the ledger (2 decimal digits,
// card-processor style), optionally injects latency, and fails a
// configurable fraction of calls with ErrCommunication.
type MockGateway struct {
	// FailureRate is the probability (0.0 to 1.0) that a network call
	// fails with ErrCommunication. Default: 0.
	FailureRate float64
	// PendingRate is the probability that a status inquiry reports the
	// transaction still pending. Default: 0.
	PendingRate float64
	// MaxDelay caps the simulated network latency. Zero disables it.
	MaxDelay time.Duration
	// Precision is the number of fractional digits the processor
	// supports. Default: 2.
	Precision int32
	// Backoff is the settle-after increment suggested on pending results.
	Backoff time.Duration

	fees uuid.UUID
}

// NewMockGateway creates a mock with card-processor defaults.
func NewMockGateway() *MockGateway {
	return &MockGateway{
		Precision: 2,
		Backoff:   5 * time.Minute,
		fees:      uuid.MustParse(domain.FeesAccountID),
	}
}

func (g *MockGateway) simulateCall(ctx context.Context) error {
	if g.MaxDelay > 0 {
		delay := time.Duration(rand.Int63n(int64(g.MaxDelay)))
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", ErrCommunication, ctx.Err())
		}
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrCommunication, err)
	}
	if rand.Float64() < g.FailureRate {
		return fmt.Errorf("%w: processor unavailable", ErrCommunication)
	}
	return nil
}

func mockRef() string {
	return fmt.Sprintf("MOCK-%s-%05d", time.Now().Format("20060102-150405"), rand.Intn(100000))
}

// CreatePaymentToken tokenizes any source with a non-empty reference.
func (g *MockGateway) CreatePaymentToken(ctx context.Context, source PaymentSource) (*PaymentToken, error) {
	if err := g.simulateCall(ctx); err != nil {
		return nil, err
	}
	if source.Reference == "" {
		return nil, fmt.Errorf("%w: empty source reference", ErrNotVerified)
	}
	return &PaymentToken{
		Token:     mockRef(),
		Reference: source.Reference,
		Verified:  true,
	}, nil
}

// ChargeDepositSource approves every charge.
func (g *MockGateway) ChargeDepositSource(ctx context.Context, txn *domain.Transaction) (*Result, error) {
	return g.approve(ctx)
}

// HoldDepositFunds approves every hold.
func (g *MockGateway) HoldDepositFunds(ctx context.Context, txn *domain.Transaction) (*Result, error) {
	return g.approve(ctx)
}

// CaptureDepositFunds approves every capture.
func (g *MockGateway) CaptureDepositFunds(ctx context.Context, txn *domain.Transaction) (*Result, error) {
	return g.approve(ctx)
}

// CreditWithdrawalDestination approves every credit.
func (g *MockGateway) CreditWithdrawalDestination(ctx context.Context, txn *domain.Transaction, amount domain.Money) (*Result, error) {
	if amount.IsNegative() {
		return nil, fmt.Errorf("%w: negative credit amount", ErrDeclined)
	}
	return g.approve(ctx)
}

func (g *MockGateway) approve(ctx context.Context) (*Result, error) {
	if err := g.simulateCall(ctx); err != nil {
		return nil, err
	}
	return &Result{
		RefID:        mockRef(),
		ApprovalCode: fmt.Sprintf("%06d", rand.Intn(1000000)),
	}, nil
}

// GetTransactionStatus reports settled unless PendingRate keeps the
// transaction in flight.
func (g *MockGateway) GetTransactionStatus(ctx context.Context, txn *domain.Transaction) (*StatusResult, error) {
	if err := g.simulateCall(ctx); err != nil {
		return nil, err
	}
	if rand.Float64() < g.PendingRate {
		return &StatusResult{Status: StatusPending, SettleAfterIncrement: g.Backoff}, nil
	}
	return &StatusResult{Status: StatusSettled}, nil
}

// AddDepositPayees appends the processor's card-style fee schedule:
// 2.9% + 0.30 on top of the deposit, payable to the fees account. The
// reserved group prefix marks them as system-internal rules.
func (g *MockGateway) AddDepositPayees(ctx context.Context, payees []domain.Payee) ([]domain.Payee, error) {
	return append(payees,
		domain.Payee{
			Destination: g.fees,
			Currency:    "USD",
			RateType:    domain.RatePercentage,
			Rate:        domain.MustMoney("2.9"),
			ApplyType:   domain.ApplyExclusively,
			Group:       []string{"authorityGatewayPercentFee"},
		},
		domain.Payee{
			Destination: g.fees,
			Currency:    "USD",
			RateType:    domain.RateFlat,
			Rate:        domain.MustMoney("0.30"),
			ApplyType:   domain.ApplyExclusively,
			Group:       []string{"authorityGatewayFlatFee"},
		},
	), nil
}

// AddWithdrawalPayees appends a flat ACH-style fee.
func (g *MockGateway) AddWithdrawalPayees(ctx context.Context, payees []domain.Payee) ([]domain.Payee, error) {
	return append(payees, domain.Payee{
		Destination: g.fees,
		Currency:    "USD",
		RateType:    domain.RateFlat,
		Rate:        domain.MustMoney("0.25"),
		ApplyType:   domain.ApplyExclusively,
		Group:       []string{"authorityGatewayWithdrawalFee"},
	}), nil
}

// AdjustDepositPrecision rounds the charged amount generously to the
// processor precision; the surplus is routed to the rounding account so
// the ledger never under-collects.
func (g *MockGateway) AdjustDepositPrecision(txn *domain.Transaction) error {
	charged := txn.Amount.Generous(g.Precision)
	diff := charged.Sub(txn.Amount)
	if diff.IsZero() {
		return nil
	}
	txn.Transfers = append(txn.Transfers, domain.Transfer{
		ID:          uuid.New(),
		Source:      uuid.MustParse(domain.ExternalAccountID),
		Destination: uuid.MustParse(domain.RoundingAccountID),
		Amount:      diff,
		Currency:    txn.Currency,
	})
	txn.Amount = charged
	return nil
}

// AdjustWithdrawalPrecision rounds the credited amount stingily to the
// processor precision; the remainder stays on the rounding account so the
// ledger never over-pays.
func (g *MockGateway) AdjustWithdrawalPrecision(txn *domain.Transaction) error {
	credited := txn.Amount.Stingy(g.Precision)
	diff := txn.Amount.Sub(credited)
	if diff.IsZero() {
		return nil
	}
	txn.Transfers = append(txn.Transfers, domain.Transfer{
		ID:          uuid.New(),
		Source:      uuid.MustParse(domain.ExternalAccountID),
		Destination: uuid.MustParse(domain.RoundingAccountID),
		Amount:      diff,
		Currency:    txn.Currency,
	})
	txn.Amount = credited
	return nil
}
