package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ayo6706/payment-ledger/internal/domain"
	"github.com/ayo6706/payment-ledger/internal/events"
	"github.com/ayo6706/payment-ledger/internal/gateway"
	"github.com/ayo6706/payment-ledger/internal/observability"
	"go.uber.org/zap"
)

// SettlementService drives claimed transactions to a terminal state. It is
// safe to run concurrently across processes: the store's lease claim keeps
// any transaction with at most one active worker, and finalizations are
// idempotent, so even a duplicate pass after lease expiry settles funds
// exactly once.
type SettlementService struct {
	store   TransactionStore
	gateway gateway.Gateway
	bus     *events.Bus

	owner           string
	lease           time.Duration
	gatewayTimeout  time.Duration
	backoff         time.Duration
	maxStatusChecks int32
}

// SettlementConfig tunes the settlement service. Zero values fall back to
// defaults.
type SettlementConfig struct {
	// Owner identifies this worker on leases, typically hostname plus pid.
	Owner string
	// Lease is how long a claim lasts before another worker may steal it.
	Lease time.Duration
	// GatewayTimeout bounds each gateway call.
	GatewayTimeout time.Duration
	// Backoff is the settle-after increment between status checks.
	Backoff time.Duration
	// MaxStatusChecks voids a transaction whose status can never be
	// determined.
	MaxStatusChecks int32
}

const (
	defaultLease           = 24 * time.Hour
	defaultStatusBackoff   = 5 * time.Minute
	defaultMaxStatusChecks = 10
)

func NewSettlementService(store TransactionStore, gw gateway.Gateway, bus *events.Bus, cfg SettlementConfig) *SettlementService {
	if cfg.Owner == "" {
		cfg.Owner = "settlement"
	}
	if cfg.Lease <= 0 {
		cfg.Lease = defaultLease
	}
	if cfg.GatewayTimeout <= 0 {
		cfg.GatewayTimeout = defaultGatewayTimeout
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = defaultStatusBackoff
	}
	if cfg.MaxStatusChecks <= 0 {
		cfg.MaxStatusChecks = defaultMaxStatusChecks
	}
	return &SettlementService{
		store:           store,
		gateway:         gw,
		bus:             bus,
		owner:           cfg.Owner,
		lease:           cfg.Lease,
		gatewayTimeout:  cfg.GatewayTimeout,
		backoff:         cfg.Backoff,
		maxStatusChecks: cfg.MaxStatusChecks,
	}
}

// ProcessDue claims a batch of due transactions and advances each one.
func (s *SettlementService) ProcessDue(ctx context.Context, batchSize int32) error {
	claimed, err := s.store.ClaimDue(ctx, s.owner, s.lease, batchSize)
	if err != nil {
		return err
	}
	observability.SetClaimedBatchSize(len(claimed))

	for i := range claimed {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.processOne(ctx, &claimed[i]); err != nil {
			zap.L().Error("settlement pass failed",
				zap.Error(err),
				zap.String("transaction_id", claimed[i].ID.String()),
				zap.String("type", claimed[i].Type))
		}
	}
	return nil
}

func (s *SettlementService) processOne(ctx context.Context, txn *domain.Transaction) error {
	// Contracts are internal; there is no processor to wait for.
	if txn.Type == domain.TxTypeContract {
		return s.settle(ctx, txn)
	}

	if txn.HeldUncaptured() {
		if err := s.capture(ctx, txn); err != nil {
			return err
		}
	}

	gctx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()
	status, err := s.gateway.GetTransactionStatus(gctx, txn)
	if err != nil {
		observability.IncrementStatusCheck("error")
		return s.handleStatusCheckError(ctx, txn, err)
	}

	switch status.Status {
	case gateway.StatusSettled:
		observability.IncrementStatusCheck("settled")
		return s.settle(ctx, txn)
	case gateway.StatusVoided:
		observability.IncrementStatusCheck("voided")
		return s.void(ctx, txn, "voided by gateway")
	case gateway.StatusPending:
		observability.IncrementStatusCheck("pending")
		backoff := s.backoff
		if status.SettleAfterIncrement > 0 {
			backoff = status.SettleAfterIncrement
		}
		return s.store.ReleaseLease(ctx, txn.ID, s.owner, time.Now().Add(backoff))
	default:
		observability.IncrementStatusCheck("error")
		return s.handleStatusCheckError(ctx, txn, fmt.Errorf("unrecognized gateway status %q", status.Status))
	}
}

// capture finalizes a held deposit before the status inquiry. A decline
// voids the deposit; a communication failure backs off and retries, since
// the held funds are not lost.
func (s *SettlementService) capture(ctx context.Context, txn *domain.Transaction) error {
	gctx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()
	result, err := s.gateway.CaptureDepositFunds(gctx, txn)
	if err != nil {
		if appendErr := s.store.AppendTransactionError(ctx, txn.ID, err.Error()); appendErr != nil {
			zap.L().Error("failed to record capture error", zap.Error(appendErr),
				zap.String("transaction_id", txn.ID.String()))
		}
		if errors.Is(err, gateway.ErrDeclined) {
			if voidErr := s.void(ctx, txn, err.Error()); voidErr != nil {
				return voidErr
			}
			return err
		}
		if releaseErr := s.store.ReleaseLease(ctx, txn.ID, s.owner, time.Now().Add(s.backoff)); releaseErr != nil {
			return releaseErr
		}
		return err
	}

	if err := s.store.RecordGatewayResult(ctx, txn.ID, domain.GatewayOpCapture, result.RefID, result.ApprovalCode, true); err != nil {
		return err
	}
	txn.GatewayOperation = domain.GatewayOpCapture
	txn.GatewayRefID = result.RefID
	txn.GatewayApprovalCode = result.ApprovalCode
	return nil
}

// handleStatusCheckError counts the failed inquiry and either backs off or,
// once MaxStatusChecks is reached, voids the transaction.
func (s *SettlementService) handleStatusCheckError(ctx context.Context, txn *domain.Transaction, gwErr error) error {
	if appendErr := s.store.AppendTransactionError(ctx, txn.ID, gwErr.Error()); appendErr != nil {
		zap.L().Error("failed to record status check error", zap.Error(appendErr),
			zap.String("transaction_id", txn.ID.String()))
	}

	count, err := s.store.IncrementStatusChecks(ctx, txn.ID)
	if err != nil {
		return err
	}
	if count < s.maxStatusChecks {
		return s.store.ReleaseLease(ctx, txn.ID, s.owner, time.Now().Add(s.backoff))
	}

	observability.IncrementChecksExceeded()
	voided, err := s.store.FinalizeVoided(ctx, txn.ID, fmt.Sprintf("status checks exceeded after %d attempts", count))
	if err != nil {
		return err
	}
	if voided {
		observability.IncrementSettlement(txn.Type, "voided")
		s.bus.Publish(events.Event{
			Type:          events.TransactionChecksExceeded,
			TransactionID: txn.ID,
			Detail:        map[string]string{"checks": fmt.Sprintf("%d", count)},
		})
	}
	return nil
}

func (s *SettlementService) settle(ctx context.Context, txn *domain.Transaction) error {
	if !canTransition(txn.Status, domain.TxStatusSettled) {
		return fmt.Errorf("invalid transaction state transition: %s -> %s", txn.Status, domain.TxStatusSettled)
	}
	applied, err := s.store.FinalizeSettled(ctx, txn)
	if err != nil {
		return err
	}
	if !applied {
		return nil
	}
	observability.IncrementSettlement(txn.Type, "settled")
	s.bus.Publish(events.Event{
		Type:          events.TransactionSettled,
		TransactionID: txn.ID,
	})
	return nil
}

func (s *SettlementService) void(ctx context.Context, txn *domain.Transaction, reason string) error {
	voided, err := s.store.FinalizeVoided(ctx, txn.ID, reason)
	if err != nil {
		return err
	}
	if !voided {
		return nil
	}
	observability.IncrementSettlement(txn.Type, "voided")
	s.bus.Publish(events.Event{
		Type:          events.TransactionVoided,
		TransactionID: txn.ID,
		Detail:        map[string]string{"reason": reason},
	})
	failure := events.DepositFailure
	if txn.Type == domain.TxTypeWithdrawal {
		failure = events.WithdrawalFailure
	}
	s.bus.Publish(events.Event{
		Type:          failure,
		TransactionID: txn.ID,
		Detail:        map[string]string{"reason": reason},
	})
	return nil
}
