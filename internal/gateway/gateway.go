// Package gateway defines the contract between the ledger and an external
// payment processor. Only the abstract behavior is modeled here; concrete
// wire formats belong to the adapter implementations.
package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/ayo6706/payment-ledger/internal/domain"
)

// Gateway error taxonomy. Communication failures are retryable and drive
// the pending path of the settlement state machine; declines and failed
// verifications are terminal.
var (
	// ErrCommunication marks a timeout or transport failure; the
	// transaction stays pending and is retried later.
	ErrCommunication = errors.New("gateway communication error")
	// ErrDeclined marks a processor rejection; the transaction voids.
	ErrDeclined = errors.New("gateway declined")
	// ErrNotVerified marks a payment source that failed verification;
	// token creation fails terminally.
	ErrNotVerified = errors.New("payment source not verified")
)

// TransactionStatus is the processor-side view of a transaction.
type TransactionStatus string

const (
	StatusSettled TransactionStatus = "settled"
	StatusVoided  TransactionStatus = "voided"
	StatusPending TransactionStatus = "pending"
	StatusError   TransactionStatus = "error"
)

// PaymentSource describes an external funding source to tokenize.
type PaymentSource struct {
	Reference string
	Kind      string
	Currency  string
}

// PaymentToken is an opaque processor token for a verified source.
type PaymentToken struct {
	Token     string
	Reference string
	Verified  bool
}

// Result is the processor acknowledgement of a charge, hold, capture, or
// credit operation.
type Result struct {
	RefID        string
	ApprovalCode string
}

// StatusResult is the processor answer to a status inquiry.
// SettleAfterIncrement, when positive, overrides the configured backoff
// before the next inquiry.
type StatusResult struct {
	Status               TransactionStatus
	SettleAfterIncrement time.Duration
}

// Gateway is the external payment processor boundary. Implementations must
// honor the context deadline on every call and surface transport failures
// as ErrCommunication.
type Gateway interface {
	// CreatePaymentToken verifies and tokenizes a funding source.
	CreatePaymentToken(ctx context.Context, source PaymentSource) (*PaymentToken, error)

	// ChargeDepositSource charges the full deposit amount in one phase.
	ChargeDepositSource(ctx context.Context, txn *domain.Transaction) (*Result, error)
	// HoldDepositFunds reserves deposit funds without capturing them.
	HoldDepositFunds(ctx context.Context, txn *domain.Transaction) (*Result, error)
	// CaptureDepositFunds finalizes a previously held deposit.
	CaptureDepositFunds(ctx context.Context, txn *domain.Transaction) (*Result, error)

	// CreditWithdrawalDestination pays out the given amount externally.
	CreditWithdrawalDestination(ctx context.Context, txn *domain.Transaction, amount domain.Money) (*Result, error)

	// GetTransactionStatus asks the processor whether the transaction has
	// cleared.
	GetTransactionStatus(ctx context.Context, txn *domain.Transaction) (*StatusResult, error)

	// AddDepositPayees appends the processor's own fee payees to a deposit
	// before distribution. Returned payees may use reserved group tags.
	AddDepositPayees(ctx context.Context, payees []domain.Payee) ([]domain.Payee, error)
	// AddWithdrawalPayees appends the processor's fee payees to a
	// withdrawal before distribution.
	AddWithdrawalPayees(ctx context.Context, payees []domain.Payee) ([]domain.Payee, error)

	// AdjustDepositPrecision aligns a deposit with the processor's coarser
	// precision, rounding the external amount generously and adding a
	// rounding-adjustment transfer absorbing the difference.
	AdjustDepositPrecision(txn *domain.Transaction) error
	// AdjustWithdrawalPrecision aligns a withdrawal, rounding the credited
	// amount stingily.
	AdjustWithdrawalPrecision(txn *domain.Transaction) error
}
