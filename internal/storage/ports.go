package storage

import (
	"context"
	"errors"
	"time"

	"tagihan/internal/core"
)

// ErrNotFound is returned when a card or transaction does not exist.
var ErrNotFound = errors.New("not found")

// Reminder kinds.
const (
	KindOverdue  = "overdue"
	KindUpcoming = "upcoming"
)

// Reminder records that a bill notification went out for one cycle.
type Reminder struct {
	CardID  string
	DueDate time.Time
	Kind    string
	SentAt  time.Time
}

// Ports implemented by the SQLite repository and the in-memory store.
type (
	CardStore interface {
		CreateCard(ctx context.Context, c core.Card) error
		UpdateCard(ctx context.Context, c core.Card) error
		DeleteCard(ctx context.Context, id string) error
		GetCard(ctx context.Context, id string) (core.Card, error)
		// ListCards returns cards ordered by creation time.
		ListCards(ctx context.Context) ([]core.Card, error)
	}

	TransactionStore interface {
		CreateTransaction(ctx context.Context, t core.Transaction) error
		GetTransaction(ctx context.Context, id string) (core.Transaction, error)
		UpdateTransactionStatus(ctx context.Context, id string, status core.Status) error
		DeleteTransaction(ctx context.Context, id string) error
		// ListTransactions returns the card's transactions oldest first, or
		// every transaction when cardID is empty.
		ListTransactions(ctx context.Context, cardID string) ([]core.Transaction, error)
	}

	ReminderLog interface {
		// MarkReminded records r and reports whether it was new. A second
		// call for the same card, due date and kind returns false.
		MarkReminded(ctx context.Context, r Reminder) (bool, error)
		// ForgetReminder removes the record so the reminder can be retried.
		ForgetReminder(ctx context.Context, r Reminder) error
	}

	Store interface {
		CardStore
		TransactionStore
		ReminderLog
		Ping(ctx context.Context) error
		Close() error
	}
)
