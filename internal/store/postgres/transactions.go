package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"parking-facility/internal/parking"
	"parking-facility/internal/recorder"
)

const transactionColumns = `id, session_id, amount_cents, payment_method, status, created_at`

// TransactionStore implements recorder.Store. The unique session_id
// constraint makes Record idempotent across redelivered jobs.
type TransactionStore struct {
	pool *pgxpool.Pool
}

func NewTransactionStore(pool *pgxpool.Pool) *TransactionStore {
	return &TransactionStore{pool: pool}
}

func (s *TransactionStore) Record(ctx context.Context, tx recorder.Transaction) (*recorder.Transaction, error) {
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}

	var out *recorder.Transaction
	err := withTx(ctx, s.pool, func(ctx context.Context) error {
		const insert = `
INSERT INTO transactions (id, session_id, amount_cents, payment_method, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (session_id) DO NOTHING
RETURNING ` + transactionColumns

		created, err := scanTransaction(db(ctx, s.pool).QueryRow(ctx, insert,
			tx.ID, tx.SessionID, int64(tx.Amount), tx.PaymentMethod, string(tx.Status), tx.CreatedAt))
		if err == nil {
			out = created
			return nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return err
		}

		existing, err := s.GetBySession(ctx, tx.SessionID)
		if err != nil {
			return err
		}
		out = existing
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("record transaction: %w", err)
	}
	return out, nil
}

func (s *TransactionStore) GetBySession(ctx context.Context, sessionID string) (*recorder.Transaction, error) {
	const query = `SELECT ` + transactionColumns + ` FROM transactions WHERE session_id = $1`

	tx, err := scanTransaction(db(ctx, s.pool).QueryRow(ctx, query, sessionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || isInvalidUUID(err) {
			return nil, fmt.Errorf("postgres: session %s: %w", sessionID, recorder.ErrNotFound)
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return tx, nil
}

func (s *TransactionStore) List(ctx context.Context) ([]*recorder.Transaction, error) {
	const query = `SELECT ` + transactionColumns + ` FROM transactions ORDER BY created_at DESC, id`

	rows, err := db(ctx, s.pool).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	txs := []*recorder.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func scanTransaction(row pgx.Row) (*recorder.Transaction, error) {
	var (
		tx     recorder.Transaction
		amount int64
		status string
	)
	if err := row.Scan(&tx.ID, &tx.SessionID, &amount, &tx.PaymentMethod, &status, &tx.CreatedAt); err != nil {
		return nil, err
	}
	tx.Amount = parking.Money(amount)
	tx.Status = recorder.Status(status)
	tx.CreatedAt = tx.CreatedAt.UTC()
	return &tx, nil
}
