package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransactionType distinguishes the three transaction families.
const (
	TxTypeDeposit    = "deposit"
	TxTypeWithdrawal = "withdrawal"
	TxTypeContract   = "contract"
)

// Transaction statuses. CREATED and AUTHORIZED are live states processed by
// settlement workers; SETTLED and VOIDED are terminal.
const (
	TxStatusCreated    = "CREATED"
	TxStatusAuthorized = "AUTHORIZED"
	TxStatusSettled    = "SETTLED"
	TxStatusVoided     = "VOIDED"
)

// Gateway operations recorded on a transaction for two-phase flows.
const (
	GatewayOpCharge  = "charge"
	GatewayOpHold    = "hold"
	GatewayOpCapture = "capture"
	GatewayOpCredit  = "credit"
)

// Transaction is the immutable ledger record of a Deposit, Withdrawal, or
// Contract. Its transfers are fixed once distribution completes; only status
// fields and gateway bookkeeping mutate afterwards.
type Transaction struct {
	ID        uuid.UUID  `json:"id"`
	Type      string     `json:"type"`
	Amount    Money      `json:"amount"`
	Currency  string     `json:"currency"`
	Transfers []Transfer `json:"transfer"`

	Status     string     `json:"status"`
	Created    time.Time  `json:"created"`
	Authorized *time.Time `json:"authorized,omitempty"`
	Settled    *time.Time `json:"settled,omitempty"`
	Voided     *time.Time `json:"voided,omitempty"`

	GatewayRefID        string `json:"gatewayRefId,omitempty"`
	GatewayApprovalCode string `json:"gatewayApprovalCode,omitempty"`
	GatewayOperation    string `json:"gatewayOperation,omitempty"`

	// SettleAfter is the earliest time a worker should re-check status.
	SettleAfter      time.Time `json:"settleAfter"`
	StatusCheckCount int32     `json:"statusCheckCount"`

	LeaseOwner   string     `json:"-"`
	LeaseExpires *time.Time `json:"-"`

	// Errors accumulates gateway error descriptions for diagnostics; it
	// never drives control flow on its own.
	Errors []string `json:"errors,omitempty"`
}

// IsTerminal reports whether the transaction reached a final state.
func (t *Transaction) IsTerminal() bool {
	return t.Status == TxStatusSettled || t.Status == TxStatusVoided
}

// HeldUncaptured reports whether funds were reserved with a hold that has
// not been captured yet.
func (t *Transaction) HeldUncaptured() bool {
	return t.GatewayOperation == GatewayOpHold && t.Status == TxStatusAuthorized
}

// FinancialAccount is a balance-carrying ledger account. Balance mutates
// only by applying settled transfers; Version guards concurrent updates.
type FinancialAccount struct {
	ID       uuid.UUID `json:"id"`
	Owner    uuid.UUID `json:"owner"`
	Balance  Money     `json:"balance"`
	Currency string    `json:"currency"`
	Version  int64     `json:"version"`
	Created  time.Time `json:"created"`
}

// BalanceDrift reports a reconciliation divergence between an account's
// stored balance and the net of its settled transfers.
type BalanceDrift struct {
	AccountID uuid.UUID
	Currency  string
	Balance   Money
	Net       Money
}
