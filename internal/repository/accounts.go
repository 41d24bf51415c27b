package repository

import (
	"context"
	"fmt"

	"github.com/ayo6706/payment-ledger/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// CreateAccount inserts a financial account with a zero starting balance.
func (s *Store) CreateAccount(ctx context.Context, acct *domain.FinancialAccount) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO accounts (id, owner, balance, currency, version, created_at)
		VALUES ($1, $2, $3, $4, 0, now())
	`, ToPgUUID(acct.ID), ToPgUUID(acct.Owner), acct.Balance, acct.Currency)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// GetAccount loads an account by id.
func (s *Store) GetAccount(ctx context.Context, id uuid.UUID) (*domain.FinancialAccount, error) {
	var (
		acct    domain.FinancialAccount
		acctID  pgtype.UUID
		ownerID pgtype.UUID
	)
	err := s.db.QueryRow(ctx, `
		SELECT id, owner, balance, currency, version, created_at
		FROM accounts WHERE id = $1
	`, ToPgUUID(id)).Scan(&acctID, &ownerID, &acct.Balance, &acct.Currency, &acct.Version, &acct.Created)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("account %s not found", id)
		}
		return nil, fmt.Errorf("get account: %w", err)
	}
	acct.ID = FromPgUUID(acctID)
	acct.Owner = FromPgUUID(ownerID)
	return &acct, nil
}

// ListAccountsByOwner returns every account held by an owner.
func (s *Store) ListAccountsByOwner(ctx context.Context, owner uuid.UUID) ([]domain.FinancialAccount, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, owner, balance, currency, version, created_at
		FROM accounts WHERE owner = $1 ORDER BY created_at
	`, ToPgUUID(owner))
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []domain.FinancialAccount
	for rows.Next() {
		var (
			acct    domain.FinancialAccount
			acctID  pgtype.UUID
			ownerID pgtype.UUID
		)
		if err := rows.Scan(&acctID, &ownerID, &acct.Balance, &acct.Currency, &acct.Version, &acct.Created); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		acct.ID = FromPgUUID(acctID)
		acct.Owner = FromPgUUID(ownerID)
		accounts = append(accounts, acct)
	}
	return accounts, rows.Err()
}

// BalanceDrifts compares every account balance against the net of its
// settled transfers and returns the accounts where the two diverge. A
// non-empty result means double-entry bookkeeping was violated somewhere.
func (s *Store) BalanceDrifts(ctx context.Context) ([]domain.BalanceDrift, error) {
	rows, err := s.db.Query(ctx, `
		WITH settled AS (
			SELECT tr.source, tr.destination, tr.amount
			FROM transfers tr
			JOIN transactions tx ON tx.id = tr.transaction_id
			WHERE tx.settled_at IS NOT NULL
		),
		net AS (
			SELECT account_id, SUM(delta) AS net FROM (
				SELECT destination AS account_id, amount AS delta FROM settled
				UNION ALL
				SELECT source AS account_id, -amount AS delta FROM settled
			) deltas GROUP BY account_id
		)
		SELECT a.id, a.currency, a.balance, COALESCE(n.net, 0)
		FROM accounts a
		LEFT JOIN net n ON n.account_id = a.id
		WHERE a.balance <> COALESCE(n.net, 0)
	`)
	if err != nil {
		return nil, fmt.Errorf("query balance drifts: %w", err)
	}
	defer rows.Close()

	var drifts []domain.BalanceDrift
	for rows.Next() {
		var (
			drift  domain.BalanceDrift
			acctID pgtype.UUID
		)
		if err := rows.Scan(&acctID, &drift.Currency, &drift.Balance, &drift.Net); err != nil {
			return nil, fmt.Errorf("scan balance drift: %w", err)
		}
		drift.AccountID = FromPgUUID(acctID)
		drifts = append(drifts, drift)
	}
	return drifts, rows.Err()
}
