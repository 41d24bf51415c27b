package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ayo6706/payment-ledger/internal/domain"
	"github.com/ayo6706/payment-ledger/internal/events"
	"github.com/ayo6706/payment-ledger/internal/gateway"
	"github.com/ayo6706/payment-ledger/internal/payee"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TransactionService creates deposits, withdrawals, and contracts. Creation
// runs distribution, persists the immutable transfer set, and issues the
// first gateway operation; settlement is finished asynchronously by the
// settlement worker.
type TransactionService struct {
	store          TransactionStore
	gateway        gateway.Gateway
	bus            *events.Bus
	gatewayTimeout time.Duration
}

var (
	ErrInvalidAmount     = errors.New("transaction amount must be positive")
	ErrMissingCurrency   = errors.New("transaction currency is required")
	ErrUnallocatedAmount = errors.New("transaction amount is not fully allocated to transfers")
)

const defaultGatewayTimeout = 45 * time.Second

func NewTransactionService(store TransactionStore, gw gateway.Gateway, bus *events.Bus, gatewayTimeout time.Duration) *TransactionService {
	if gatewayTimeout <= 0 {
		gatewayTimeout = defaultGatewayTimeout
	}
	return &TransactionService{
		store:          store,
		gateway:        gw,
		bus:            bus,
		gatewayTimeout: gatewayTimeout,
	}
}

// CreateDepositRequest holds the parameters for moving external funds into
// the ledger.
type CreateDepositRequest struct {
	Amount   domain.Money
	Currency string
	Payees   []domain.Payee
	// Hold reserves the funds without capturing; the settlement worker
	// captures before finalizing.
	Hold bool
}

// CreateWithdrawalRequest holds the parameters for paying ledger funds out
// to an external destination.
type CreateWithdrawalRequest struct {
	Source   uuid.UUID
	Amount   domain.Money
	Currency string
	Payees   []domain.Payee
}

// CreateContractRequest holds the parameters for an internal value exchange
// between ledger accounts. Contracts never touch the gateway.
type CreateContractRequest struct {
	Source   uuid.UUID
	Amount   domain.Money
	Currency string
	Payees   []domain.Payee
}

// CreateDeposit validates and distributes a deposit, persists it, and
// issues the gateway charge (or hold). A declined charge voids the
// transaction immediately; a communication failure leaves it pending for
// the settlement worker to resolve.
func (s *TransactionService) CreateDeposit(ctx context.Context, req CreateDepositRequest) (*domain.Transaction, error) {
	if err := validateRequest(req.Amount, req.Currency); err != nil {
		return nil, err
	}
	// Caller payees must not use reserved groups; the processor fee
	// schedule is appended afterwards and may.
	if _, err := payee.Resolve(req.Payees); err != nil {
		return nil, err
	}

	combined, err := s.gateway.AddDepositPayees(ctx, req.Payees)
	if err != nil {
		return nil, fmt.Errorf("add deposit payees: %w", err)
	}
	txn, err := s.buildTransaction(domain.TxTypeDeposit, req.Amount, req.Currency, uuid.MustParse(domain.ExternalAccountID), combined)
	if err != nil {
		return nil, err
	}
	if err := s.gateway.AdjustDepositPrecision(txn); err != nil {
		return nil, fmt.Errorf("adjust deposit precision: %w", err)
	}

	if err := s.store.CreateTransaction(ctx, txn); err != nil {
		return nil, err
	}

	op := domain.GatewayOpCharge
	charge := s.gateway.ChargeDepositSource
	if req.Hold {
		op = domain.GatewayOpHold
		charge = s.gateway.HoldDepositFunds
	}

	gctx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()
	result, err := charge(gctx, txn)
	if err != nil {
		return txn, s.handleGatewayFailure(ctx, txn, op, events.DepositFailure, err)
	}

	if err := s.store.RecordGatewayResult(ctx, txn.ID, op, result.RefID, result.ApprovalCode, true); err != nil {
		return nil, err
	}
	txn.Status = domain.TxStatusAuthorized
	txn.GatewayOperation = op
	txn.GatewayRefID = result.RefID
	txn.GatewayApprovalCode = result.ApprovalCode
	return txn, nil
}

// CreateWithdrawal validates and distributes a withdrawal, persists it, and
// issues the external credit for the precision-adjusted amount.
func (s *TransactionService) CreateWithdrawal(ctx context.Context, req CreateWithdrawalRequest) (*domain.Transaction, error) {
	if err := validateRequest(req.Amount, req.Currency); err != nil {
		return nil, err
	}
	if _, err := payee.Resolve(req.Payees); err != nil {
		return nil, err
	}

	combined, err := s.gateway.AddWithdrawalPayees(ctx, req.Payees)
	if err != nil {
		return nil, fmt.Errorf("add withdrawal payees: %w", err)
	}
	txn, err := s.buildTransaction(domain.TxTypeWithdrawal, req.Amount, req.Currency, req.Source, combined)
	if err != nil {
		return nil, err
	}
	if err := s.gateway.AdjustWithdrawalPrecision(txn); err != nil {
		return nil, fmt.Errorf("adjust withdrawal precision: %w", err)
	}

	if err := s.store.CreateTransaction(ctx, txn); err != nil {
		return nil, err
	}

	gctx, cancel := context.WithTimeout(ctx, s.gatewayTimeout)
	defer cancel()
	result, err := s.gateway.CreditWithdrawalDestination(gctx, txn, txn.Amount)
	if err != nil {
		return txn, s.handleGatewayFailure(ctx, txn, domain.GatewayOpCredit, events.WithdrawalFailure, err)
	}

	if err := s.store.RecordGatewayResult(ctx, txn.ID, domain.GatewayOpCredit, result.RefID, result.ApprovalCode, true); err != nil {
		return nil, err
	}
	txn.Status = domain.TxStatusAuthorized
	txn.GatewayOperation = domain.GatewayOpCredit
	txn.GatewayRefID = result.RefID
	txn.GatewayApprovalCode = result.ApprovalCode
	return txn, nil
}

// CreateContract distributes and persists an internal transaction. The
// settlement worker finalizes it on its next pass without any gateway
// involvement.
func (s *TransactionService) CreateContract(ctx context.Context, req CreateContractRequest) (*domain.Transaction, error) {
	if err := validateRequest(req.Amount, req.Currency); err != nil {
		return nil, err
	}
	txn, err := s.buildTransaction(domain.TxTypeContract, req.Amount, req.Currency, req.Source, req.Payees)
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateTransaction(ctx, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

// GetTransaction loads one transaction with its transfers.
func (s *TransactionService) GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	return s.store.GetTransaction(ctx, id)
}

func (s *TransactionService) buildTransaction(txType string, amount domain.Money, currency string, source uuid.UUID, payees []domain.Payee) (*domain.Transaction, error) {
	ordered, err := payee.Resolve(payees, payee.AllowReserved())
	if err != nil {
		return nil, err
	}
	dist, err := payee.Distribute(amount, source, ordered)
	if err != nil {
		return nil, err
	}
	// Gateway-facing transactions must allocate the full external amount:
	// every cent charged or credited needs a matching ledger transfer, or
	// funds move on the processor side with no balance ever reflecting it.
	if txType != domain.TxTypeContract {
		allocated := domain.Zero
		for _, tr := range dist.Transfers {
			allocated = allocated.Add(tr.Amount)
		}
		if !allocated.Equal(dist.Total) {
			return nil, ErrUnallocatedAmount
		}
	}
	return &domain.Transaction{
		ID:          uuid.New(),
		Type:        txType,
		Amount:      dist.Total,
		Currency:    currency,
		Transfers:   dist.Transfers,
		Status:      domain.TxStatusCreated,
		SettleAfter: time.Now(),
	}, nil
}

// handleGatewayFailure maps a gateway error on the initial operation: a
// decline voids the transaction, anything else leaves it pending so the
// settlement worker can find out what actually happened.
func (s *TransactionService) handleGatewayFailure(ctx context.Context, txn *domain.Transaction, op string, failureEvent events.Type, gwErr error) error {
	if appendErr := s.store.AppendTransactionError(ctx, txn.ID, gwErr.Error()); appendErr != nil {
		zap.L().Error("failed to record gateway error",
			zap.Error(appendErr),
			zap.String("transaction_id", txn.ID.String()))
	}

	if errors.Is(gwErr, gateway.ErrDeclined) {
		voided, voidErr := s.store.FinalizeVoided(ctx, txn.ID, gwErr.Error())
		if voidErr != nil {
			return voidErr
		}
		if voided {
			txn.Status = domain.TxStatusVoided
			s.bus.Publish(events.Event{
				Type:          failureEvent,
				TransactionID: txn.ID,
				Detail:        map[string]string{"reason": gwErr.Error(), "operation": op},
			})
		}
		return gwErr
	}

	zap.L().Warn("gateway operation outcome unknown, leaving transaction pending",
		zap.Error(gwErr),
		zap.String("transaction_id", txn.ID.String()),
		zap.String("operation", op))
	return nil
}

func validateRequest(amount domain.Money, currency string) error {
	if amount.IsNegative() || amount.IsZero() {
		return ErrInvalidAmount
	}
	if currency == "" {
		return ErrMissingCurrency
	}
	return nil
}
