package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ayo6706/payment-ledger/internal/domain"
	"github.com/ayo6706/payment-ledger/internal/gateway"
	"github.com/google/uuid"
)

// fakeStore is an in-memory TransactionStore and AccountStore with the same
// lease and idempotency semantics as the Postgres implementation.
type fakeStore struct {
	mu           sync.Mutex
	transactions map[uuid.UUID]*domain.Transaction
	accounts     map[uuid.UUID]*domain.FinancialAccount
	drifts       []domain.BalanceDrift
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		transactions: make(map[uuid.UUID]*domain.Transaction),
		accounts:     make(map[uuid.UUID]*domain.FinancialAccount),
	}
}

func copyTransaction(txn *domain.Transaction) *domain.Transaction {
	cp := *txn
	cp.Transfers = append([]domain.Transfer(nil), txn.Transfers...)
	cp.Errors = append([]string(nil), txn.Errors...)
	return &cp
}

func (f *fakeStore) CreateTransaction(ctx context.Context, txn *domain.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transactions[txn.ID] = copyTransaction(txn)
	return nil
}

func (f *fakeStore) GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	txn, ok := f.transactions[id]
	if !ok {
		return nil, fmt.Errorf("transaction %s not found", id)
	}
	return copyTransaction(txn), nil
}

func (f *fakeStore) ClaimDue(ctx context.Context, owner string, lease time.Duration, limit int32) ([]domain.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := time.Now()
	var claimed []domain.Transaction
	for _, txn := range f.transactions {
		if int32(len(claimed)) >= limit {
			break
		}
		if txn.SettleAfter.After(now) {
			continue
		}
		if txn.Status != domain.TxStatusCreated && txn.Status != domain.TxStatusAuthorized {
			continue
		}
		if txn.LeaseOwner != "" && txn.LeaseExpires != nil && txn.LeaseExpires.After(now) {
			continue
		}
		expires := now.Add(lease)
		txn.LeaseOwner = owner
		txn.LeaseExpires = &expires
		claimed = append(claimed, *copyTransaction(txn))
	}
	return claimed, nil
}

func (f *fakeStore) ReleaseLease(ctx context.Context, id uuid.UUID, owner string, settleAfter time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	txn, ok := f.transactions[id]
	if !ok || txn.LeaseOwner != owner {
		return nil
	}
	txn.LeaseOwner = ""
	txn.LeaseExpires = nil
	txn.SettleAfter = settleAfter
	return nil
}

func (f *fakeStore) IncrementStatusChecks(ctx context.Context, id uuid.UUID) (int32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	txn, ok := f.transactions[id]
	if !ok {
		return 0, fmt.Errorf("transaction %s not found", id)
	}
	txn.StatusCheckCount++
	return txn.StatusCheckCount, nil
}

func (f *fakeStore) RecordGatewayResult(ctx context.Context, id uuid.UUID, operation, refID, approvalCode string, authorized bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	txn, ok := f.transactions[id]
	if !ok {
		return fmt.Errorf("transaction %s not found", id)
	}
	if txn.Settled != nil || txn.Voided != nil {
		return nil
	}
	txn.GatewayOperation = operation
	txn.GatewayRefID = refID
	txn.GatewayApprovalCode = approvalCode
	if authorized {
		txn.Status = domain.TxStatusAuthorized
		if txn.Authorized == nil {
			now := time.Now()
			txn.Authorized = &now
		}
	}
	return nil
}

func (f *fakeStore) AppendTransactionError(ctx context.Context, id uuid.UUID, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	txn, ok := f.transactions[id]
	if !ok {
		return fmt.Errorf("transaction %s not found", id)
	}
	txn.Errors = append(txn.Errors, message)
	return nil
}

func (f *fakeStore) FinalizeSettled(ctx context.Context, txn *domain.Transaction) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.transactions[txn.ID]
	if !ok {
		return false, fmt.Errorf("transaction %s not found", txn.ID)
	}
	if stored.Settled != nil || stored.Voided != nil {
		return false, nil
	}
	now := time.Now()
	stored.Status = domain.TxStatusSettled
	stored.Settled = &now
	stored.LeaseOwner = ""
	stored.LeaseExpires = nil
	for _, tr := range txn.Transfers {
		if tr.Amount.IsZero() {
			continue
		}
		f.account(tr.Source).Balance = f.account(tr.Source).Balance.Sub(tr.Amount)
		f.account(tr.Destination).Balance = f.account(tr.Destination).Balance.Add(tr.Amount)
	}
	return true, nil
}

func (f *fakeStore) FinalizeVoided(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	txn, ok := f.transactions[id]
	if !ok {
		return false, fmt.Errorf("transaction %s not found", id)
	}
	if txn.Settled != nil || txn.Voided != nil {
		return false, nil
	}
	now := time.Now()
	txn.Status = domain.TxStatusVoided
	txn.Voided = &now
	txn.LeaseOwner = ""
	txn.LeaseExpires = nil
	txn.Errors = append(txn.Errors, reason)
	return true, nil
}

// account creates missing accounts on the fly so tests only seed what they
// assert on.
func (f *fakeStore) account(id uuid.UUID) *domain.FinancialAccount {
	acct, ok := f.accounts[id]
	if !ok {
		acct = &domain.FinancialAccount{ID: id, Balance: domain.Zero, Currency: "USD"}
		f.accounts[id] = acct
	}
	return acct
}

func (f *fakeStore) CreateAccount(ctx context.Context, acct *domain.FinancialAccount) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.accounts[acct.ID]; exists {
		return fmt.Errorf("account %s already exists", acct.ID)
	}
	cp := *acct
	f.accounts[acct.ID] = &cp
	return nil
}

func (f *fakeStore) GetAccount(ctx context.Context, id uuid.UUID) (*domain.FinancialAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	acct, ok := f.accounts[id]
	if !ok {
		return nil, fmt.Errorf("account %s not found", id)
	}
	cp := *acct
	return &cp, nil
}

func (f *fakeStore) ListAccountsByOwner(ctx context.Context, owner uuid.UUID) ([]domain.FinancialAccount, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.FinancialAccount
	for _, acct := range f.accounts {
		if acct.Owner == owner {
			out = append(out, *acct)
		}
	}
	return out, nil
}

func (f *fakeStore) BalanceDrifts(ctx context.Context) ([]domain.BalanceDrift, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.BalanceDrift(nil), f.drifts...), nil
}

func (f *fakeStore) balance(id uuid.UUID) domain.Money {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.account(id).Balance
}

func (f *fakeStore) stored(id uuid.UUID) *domain.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	return copyTransaction(f.transactions[id])
}

func (f *fakeStore) setSettleAfter(id uuid.UUID, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transactions[id].SettleAfter = at
}

// fakeGateway scripts processor behavior per operation.
type fakeGateway struct {
	mu sync.Mutex

	tokenErr   error
	chargeErr  error
	holdErr    error
	captureErr error
	creditErr  error
	statusErr  error
	status     gateway.TransactionStatus
	backoff    time.Duration

	depositPayees    []domain.Payee
	withdrawalPayees []domain.Payee

	chargeCalls  int
	holdCalls    int
	captureCalls int
	creditCalls  int
	statusCalls  int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{status: gateway.StatusSettled}
}

func (g *fakeGateway) result() *gateway.Result {
	return &gateway.Result{RefID: "REF-" + uuid.NewString()[:8], ApprovalCode: "123456"}
}

func (g *fakeGateway) CreatePaymentToken(ctx context.Context, source gateway.PaymentSource) (*gateway.PaymentToken, error) {
	if g.tokenErr != nil {
		return nil, g.tokenErr
	}
	return &gateway.PaymentToken{Token: "TOK", Reference: source.Reference, Verified: true}, nil
}

func (g *fakeGateway) ChargeDepositSource(ctx context.Context, txn *domain.Transaction) (*gateway.Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.chargeCalls++
	if g.chargeErr != nil {
		return nil, g.chargeErr
	}
	return g.result(), nil
}

func (g *fakeGateway) HoldDepositFunds(ctx context.Context, txn *domain.Transaction) (*gateway.Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.holdCalls++
	if g.holdErr != nil {
		return nil, g.holdErr
	}
	return g.result(), nil
}

func (g *fakeGateway) CaptureDepositFunds(ctx context.Context, txn *domain.Transaction) (*gateway.Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.captureCalls++
	if g.captureErr != nil {
		return nil, g.captureErr
	}
	return g.result(), nil
}

func (g *fakeGateway) CreditWithdrawalDestination(ctx context.Context, txn *domain.Transaction, amount domain.Money) (*gateway.Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.creditCalls++
	if g.creditErr != nil {
		return nil, g.creditErr
	}
	return g.result(), nil
}

func (g *fakeGateway) GetTransactionStatus(ctx context.Context, txn *domain.Transaction) (*gateway.StatusResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.statusCalls++
	if g.statusErr != nil {
		return nil, g.statusErr
	}
	return &gateway.StatusResult{Status: g.status, SettleAfterIncrement: g.backoff}, nil
}

func (g *fakeGateway) AddDepositPayees(ctx context.Context, payees []domain.Payee) ([]domain.Payee, error) {
	return append(append([]domain.Payee(nil), payees...), g.depositPayees...), nil
}

func (g *fakeGateway) AddWithdrawalPayees(ctx context.Context, payees []domain.Payee) ([]domain.Payee, error) {
	return append(append([]domain.Payee(nil), payees...), g.withdrawalPayees...), nil
}

func (g *fakeGateway) AdjustDepositPrecision(txn *domain.Transaction) error {
	return nil
}

func (g *fakeGateway) AdjustWithdrawalPrecision(txn *domain.Transaction) error {
	return nil
}
