package service

import (
	"context"
	"errors"

	"github.com/ayo6706/payment-ledger/internal/domain"
	"github.com/google/uuid"
)

// AccountService manages balance-carrying ledger accounts.
type AccountService struct {
	accounts AccountStore
}

var ErrMissingOwner = errors.New("account owner is required")

func NewAccountService(accounts AccountStore) *AccountService {
	return &AccountService{accounts: accounts}
}

// CreateAccount opens a zero-balance account for an owner.
func (s *AccountService) CreateAccount(ctx context.Context, owner uuid.UUID, currency string) (*domain.FinancialAccount, error) {
	if owner == uuid.Nil {
		return nil, ErrMissingOwner
	}
	if currency == "" {
		return nil, ErrMissingCurrency
	}
	acct := &domain.FinancialAccount{
		ID:       uuid.New(),
		Owner:    owner,
		Balance:  domain.Zero,
		Currency: currency,
	}
	if err := s.accounts.CreateAccount(ctx, acct); err != nil {
		return nil, err
	}
	return acct, nil
}

// GetAccount loads one account.
func (s *AccountService) GetAccount(ctx context.Context, id uuid.UUID) (*domain.FinancialAccount, error) {
	return s.accounts.GetAccount(ctx, id)
}

// ListAccounts returns every account an owner holds.
func (s *AccountService) ListAccounts(ctx context.Context, owner uuid.UUID) ([]domain.FinancialAccount, error) {
	return s.accounts.ListAccountsByOwner(ctx, owner)
}
