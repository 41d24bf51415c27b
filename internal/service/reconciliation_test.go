package service

import (
	"context"
	"testing"

	"github.com/ayo6706/payment-ledger/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestReconciliationReportsDrifts(t *testing.T) {
	store := newFakeStore()
	store.drifts = []domain.BalanceDrift{{
		AccountID: uuid.New(),
		Currency:  "USD",
		Balance:   domain.MustMoney("10"),
		Net:       domain.MustMoney("9.5"),
	}}
	svc := NewReconciliationService(store)

	drifts, err := svc.Check(context.Background())
	require.NoError(t, err)
	require.Len(t, drifts, 1)
	require.True(t, drifts[0].Balance.Equal(domain.MustMoney("10")))
}

func TestReconciliationCleanLedger(t *testing.T) {
	svc := NewReconciliationService(newFakeStore())

	drifts, err := svc.Check(context.Background())
	require.NoError(t, err)
	require.Empty(t, drifts)
}

func TestAccountServiceCreateAndList(t *testing.T) {
	store := newFakeStore()
	svc := NewAccountService(store)
	ctx := context.Background()

	owner := uuid.New()
	acct, err := svc.CreateAccount(ctx, owner, "USD")
	require.NoError(t, err)
	require.True(t, acct.Balance.IsZero())

	got, err := svc.GetAccount(ctx, acct.ID)
	require.NoError(t, err)
	require.Equal(t, acct.ID, got.ID)

	accounts, err := svc.ListAccounts(ctx, owner)
	require.NoError(t, err)
	require.Len(t, accounts, 1)

	_, err = svc.CreateAccount(ctx, uuid.Nil, "USD")
	require.ErrorIs(t, err, ErrMissingOwner)

	_, err = svc.CreateAccount(ctx, owner, "")
	require.ErrorIs(t, err, ErrMissingCurrency)
}

func TestTransactionStateTransitions(t *testing.T) {
	require.True(t, canTransition(domain.TxStatusCreated, domain.TxStatusAuthorized))
	require.True(t, canTransition(domain.TxStatusCreated, domain.TxStatusSettled))
	require.True(t, canTransition(domain.TxStatusAuthorized, domain.TxStatusVoided))
	require.False(t, canTransition(domain.TxStatusSettled, domain.TxStatusVoided))
	require.False(t, canTransition(domain.TxStatusVoided, domain.TxStatusAuthorized))
	require.True(t, canTransition(" created ", "AUTHORIZED"))
}
