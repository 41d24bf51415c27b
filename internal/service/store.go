package service

import (
	"context"
	"time"

	"github.com/ayo6706/payment-ledger/internal/domain"
	"github.com/google/uuid"
)

// TransactionStore defines the minimal data access contract required by the
// transaction and settlement services.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, txn *domain.Transaction) error
	GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	ClaimDue(ctx context.Context, owner string, lease time.Duration, limit int32) ([]domain.Transaction, error)
	ReleaseLease(ctx context.Context, id uuid.UUID, owner string, settleAfter time.Time) error
	IncrementStatusChecks(ctx context.Context, id uuid.UUID) (int32, error)
	RecordGatewayResult(ctx context.Context, id uuid.UUID, operation, refID, approvalCode string, authorized bool) error
	AppendTransactionError(ctx context.Context, id uuid.UUID, message string) error
	FinalizeSettled(ctx context.Context, txn *domain.Transaction) (bool, error)
	FinalizeVoided(ctx context.Context, id uuid.UUID, reason string) (bool, error)
}

// AccountStore defines the account access contract required by the account
// and reconciliation services.
type AccountStore interface {
	CreateAccount(ctx context.Context, acct *domain.FinancialAccount) error
	GetAccount(ctx context.Context, id uuid.UUID) (*domain.FinancialAccount, error)
	ListAccountsByOwner(ctx context.Context, owner uuid.UUID) ([]domain.FinancialAccount, error)
	BalanceDrifts(ctx context.Context) ([]domain.BalanceDrift, error)
}
