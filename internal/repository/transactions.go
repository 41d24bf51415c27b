package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/ayo6706/payment-ledger/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const transactionColumns = `id, type, amount, currency, status, created_at, authorized_at,
	settled_at, voided_at, gateway_ref_id, gateway_approval_code, gateway_operation,
	settle_after, status_check_count, lease_owner, lease_expires, errors`

// CreateTransaction persists a transaction and its transfers atomically.
// The transfer list is immutable from this point on.
func (s *Store) CreateTransaction(ctx context.Context, txn *domain.Transaction) error {
	return s.RunInTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO transactions (id, type, amount, currency, status, created_at, settle_after, status_check_count)
			VALUES ($1, $2, $3, $4, $5, now(), $6, 0)
		`, ToPgUUID(txn.ID), txn.Type, txn.Amount, txn.Currency, txn.Status, txn.SettleAfter)
		if err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}

		for i, tr := range txn.Transfers {
			_, err := tx.Exec(ctx, `
				INSERT INTO transfers (id, transaction_id, position, source, destination, amount, currency)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
			`, ToPgUUID(tr.ID), ToPgUUID(txn.ID), i, ToPgUUID(tr.Source), ToPgUUID(tr.Destination), tr.Amount, tr.Currency)
			if err != nil {
				return fmt.Errorf("insert transfer %d: %w", i, err)
			}
		}
		return nil
	})
}

// GetTransaction loads a transaction with its transfers.
func (s *Store) GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	row := s.db.QueryRow(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, ToPgUUID(id))
	txn, err := scanTransaction(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("transaction %s not found", id)
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	if err := s.loadTransfers(ctx, txn); err != nil {
		return nil, err
	}
	return txn, nil
}

// ClaimDue atomically leases due, unleased (or lease-expired) transactions
// for the given owner. The conditional update is the entire coordination
// mechanism: a crashed worker's lease expires and the transaction becomes
// claimable again.
func (s *Store) ClaimDue(ctx context.Context, owner string, lease time.Duration, limit int32) ([]domain.Transaction, error) {
	rows, err := s.db.Query(ctx, `
		UPDATE transactions SET lease_owner = $1, lease_expires = now() + make_interval(secs => $2)
		WHERE id IN (
			SELECT id FROM transactions
			WHERE settle_after <= now()
			  AND status IN ($3, $4)
			  AND (lease_owner IS NULL OR lease_expires < now())
			ORDER BY settle_after
			LIMIT $5
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+transactionColumns,
		owner, lease.Seconds(), domain.TxStatusCreated, domain.TxStatusAuthorized, limit)
	if err != nil {
		return nil, fmt.Errorf("claim due transactions: %w", err)
	}
	defer rows.Close()

	var claimed []domain.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan claimed transaction: %w", err)
		}
		claimed = append(claimed, *txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("claim due transactions: %w", err)
	}

	for i := range claimed {
		if err := s.loadTransfers(ctx, &claimed[i]); err != nil {
			return nil, err
		}
	}
	return claimed, nil
}

// ReleaseLease gives up a lease and schedules the next status check. Only
// the current owner can release; a stale owner's release is a no-op.
func (s *Store) ReleaseLease(ctx context.Context, id uuid.UUID, owner string, settleAfter time.Time) error {
	_, err := s.db.Exec(ctx, `
		UPDATE transactions SET lease_owner = NULL, lease_expires = NULL, settle_after = $1
		WHERE id = $2 AND lease_owner = $3
	`, settleAfter, ToPgUUID(id), owner)
	if err != nil {
		return fmt.Errorf("release lease: %w", err)
	}
	return nil
}

// IncrementStatusChecks bumps the inquiry counter and returns the new value.
func (s *Store) IncrementStatusChecks(ctx context.Context, id uuid.UUID) (int32, error) {
	var count int32
	err := s.db.QueryRow(ctx, `
		UPDATE transactions SET status_check_count = status_check_count + 1
		WHERE id = $1
		RETURNING status_check_count
	`, ToPgUUID(id)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("increment status checks: %w", err)
	}
	return count, nil
}

// RecordGatewayResult stores the processor acknowledgement for an
// operation, optionally marking the transaction authorized.
func (s *Store) RecordGatewayResult(ctx context.Context, id uuid.UUID, operation, refID, approvalCode string, authorized bool) error {
	var err error
	if authorized {
		_, err = s.db.Exec(ctx, `
			UPDATE transactions
			SET gateway_operation = $1, gateway_ref_id = $2, gateway_approval_code = $3,
			    status = $4, authorized_at = COALESCE(authorized_at, now())
			WHERE id = $5 AND settled_at IS NULL AND voided_at IS NULL
		`, operation, refID, approvalCode, domain.TxStatusAuthorized, ToPgUUID(id))
	} else {
		_, err = s.db.Exec(ctx, `
			UPDATE transactions
			SET gateway_operation = $1, gateway_ref_id = $2, gateway_approval_code = $3
			WHERE id = $4 AND settled_at IS NULL AND voided_at IS NULL
		`, operation, refID, approvalCode, ToPgUUID(id))
	}
	if err != nil {
		return fmt.Errorf("record gateway result: %w", err)
	}
	return nil
}

// AppendTransactionError records a gateway error description for
// diagnostics.
func (s *Store) AppendTransactionError(ctx context.Context, id uuid.UUID, message string) error {
	_, err := s.db.Exec(ctx, `
		UPDATE transactions SET errors = array_append(errors, $1) WHERE id = $2
	`, message, ToPgUUID(id))
	if err != nil {
		return fmt.Errorf("append transaction error: %w", err)
	}
	return nil
}

// FinalizeSettled marks the transaction settled and applies every transfer
// to account balances in one database transaction: all post or none do.
// Returns false without side effects when the transaction already reached a
// terminal state, making replayed finalizations no-ops.
func (s *Store) FinalizeSettled(ctx context.Context, txn *domain.Transaction) (bool, error) {
	applied := false
	err := s.RunInTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE transactions
			SET status = $1, settled_at = now(), lease_owner = NULL, lease_expires = NULL
			WHERE id = $2 AND settled_at IS NULL AND voided_at IS NULL
		`, domain.TxStatusSettled, ToPgUUID(txn.ID))
		if err != nil {
			return fmt.Errorf("mark transaction settled: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return nil
		}

		for _, tr := range txn.Transfers {
			if tr.Amount.IsZero() {
				continue
			}
			debit, err := tx.Exec(ctx, `
				UPDATE accounts SET balance = balance - $1, version = version + 1 WHERE id = $2
			`, tr.Amount, ToPgUUID(tr.Source))
			if err != nil {
				return fmt.Errorf("debit account %s: %w", tr.Source, err)
			}
			if err := requireExactlyOne(debit.RowsAffected(), "debit account"); err != nil {
				return err
			}

			credit, err := tx.Exec(ctx, `
				UPDATE accounts SET balance = balance + $1, version = version + 1 WHERE id = $2
			`, tr.Amount, ToPgUUID(tr.Destination))
			if err != nil {
				return fmt.Errorf("credit account %s: %w", tr.Destination, err)
			}
			if err := requireExactlyOne(credit.RowsAffected(), "credit account"); err != nil {
				return err
			}
		}
		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

// FinalizeVoided marks the transaction voided with no balance changes.
// Returns false when the transaction already reached a terminal state.
func (s *Store) FinalizeVoided(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	tag, err := s.db.Exec(ctx, `
		UPDATE transactions
		SET status = $1, voided_at = now(), lease_owner = NULL, lease_expires = NULL,
		    errors = array_append(errors, $2)
		WHERE id = $3 AND settled_at IS NULL AND voided_at IS NULL
	`, domain.TxStatusVoided, reason, ToPgUUID(id))
	if err != nil {
		return false, fmt.Errorf("mark transaction voided: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) loadTransfers(ctx context.Context, txn *domain.Transaction) error {
	rows, err := s.db.Query(ctx, `
		SELECT id, source, destination, amount, currency
		FROM transfers WHERE transaction_id = $1 ORDER BY position
	`, ToPgUUID(txn.ID))
	if err != nil {
		return fmt.Errorf("load transfers: %w", err)
	}
	defer rows.Close()

	txn.Transfers = txn.Transfers[:0]
	for rows.Next() {
		var (
			tr           domain.Transfer
			id, src, dst pgtype.UUID
		)
		if err := rows.Scan(&id, &src, &dst, &tr.Amount, &tr.Currency); err != nil {
			return fmt.Errorf("scan transfer: %w", err)
		}
		tr.ID = FromPgUUID(id)
		tr.Source = FromPgUUID(src)
		tr.Destination = FromPgUUID(dst)
		txn.Transfers = append(txn.Transfers, tr)
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var (
		txn             domain.Transaction
		id              pgtype.UUID
		authorized      pgtype.Timestamptz
		settled         pgtype.Timestamptz
		voided          pgtype.Timestamptz
		gatewayRef      pgtype.Text
		gatewayApproval pgtype.Text
		gatewayOp       pgtype.Text
		leaseOwner      pgtype.Text
		leaseExpires    pgtype.Timestamptz
	)
	err := row.Scan(&id, &txn.Type, &txn.Amount, &txn.Currency, &txn.Status, &txn.Created,
		&authorized, &settled, &voided, &gatewayRef, &gatewayApproval, &gatewayOp,
		&txn.SettleAfter, &txn.StatusCheckCount, &leaseOwner, &leaseExpires, &txn.Errors)
	if err != nil {
		return nil, err
	}

	txn.ID = FromPgUUID(id)
	if authorized.Valid {
		txn.Authorized = &authorized.Time
	}
	if settled.Valid {
		txn.Settled = &settled.Time
	}
	if voided.Valid {
		txn.Voided = &voided.Time
	}
	txn.GatewayRefID = gatewayRef.String
	txn.GatewayApprovalCode = gatewayApproval.String
	txn.GatewayOperation = gatewayOp.String
	txn.LeaseOwner = leaseOwner.String
	if leaseExpires.Valid {
		txn.LeaseExpires = &leaseExpires.Time
	}
	return &txn, nil
}
