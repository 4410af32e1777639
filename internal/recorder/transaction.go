package recorder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"parking-facility/internal/parking"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

var (
	ErrNotFound   = errors.New("recorder: transaction not found")
	ErrBufferFull = errors.New("recorder: buffer full")
	ErrStopped    = errors.New("recorder: stopped")
)

// Transaction is the payment record derived 1:1 from a closed session.
type Transaction struct {
	ID            string        `json:"id"`
	SessionID     string        `json:"session_id"`
	Amount        parking.Money `json:"amount"`
	PaymentMethod string        `json:"payment_method"`
	Status        Status        `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
}

// Store persists transactions. Record is idempotent on SessionID: a second
// call returns the existing row.
type Store interface {
	Record(ctx context.Context, tx Transaction) (*Transaction, error)
	GetBySession(ctx context.Context, sessionID string) (*Transaction, error)
	// List returns transactions newest first.
	List(ctx context.Context) ([]*Transaction, error)
}

func newTransaction(event parking.BillingClosedEvent, method string) Transaction {
	return Transaction{
		SessionID:     event.SessionID,
		Amount:        event.Amount,
		PaymentMethod: method,
		Status:        StatusCompleted,
		CreatedAt:     event.ClosedAt,
	}
}

const timeLayout = time.RFC3339Nano

func (a RecordTransactionArgs) event() (parking.BillingClosedEvent, error) {
	closedAt, err := time.Parse(timeLayout, a.ClosedAt)
	if err != nil {
		return parking.BillingClosedEvent{}, fmt.Errorf("recorder: closed_at %q: %w", a.ClosedAt, err)
	}
	return parking.BillingClosedEvent{
		SessionID: a.SessionID,
		Amount:    parking.Money(a.AmountCents),
		ClosedAt:  closedAt,
	}, nil
}
