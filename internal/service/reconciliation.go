package service

import (
	"context"
	"fmt"

	"github.com/ayo6706/payment-ledger/internal/domain"
	"github.com/ayo6706/payment-ledger/internal/observability"
	"go.uber.org/zap"
)

// ReconciliationService verifies double-entry bookkeeping: every account
// balance must equal the net of its settled transfers. Drift is reported,
// never auto-corrected; a divergence means a bug and needs eyes on it.
type ReconciliationService struct {
	accounts AccountStore
}

func NewReconciliationService(accounts AccountStore) *ReconciliationService {
	return &ReconciliationService{accounts: accounts}
}

// Check returns every drifted account and records each one.
func (s *ReconciliationService) Check(ctx context.Context) ([]domain.BalanceDrift, error) {
	drifts, err := s.accounts.BalanceDrifts(ctx)
	if err != nil {
		return nil, fmt.Errorf("check balance drifts: %w", err)
	}

	for _, drift := range drifts {
		observability.IncrementLedgerImbalance(drift.Currency)
		zap.L().Error("ledger imbalance detected",
			zap.String("account_id", drift.AccountID.String()),
			zap.String("currency", drift.Currency),
			zap.String("balance", drift.Balance.String()),
			zap.String("net", drift.Net.String()))
	}
	return drifts, nil
}
