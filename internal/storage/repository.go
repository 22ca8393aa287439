package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"tagihan/internal/core"
	applog "tagihan/internal/log"

	_ "modernc.org/sqlite"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const (
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
	dateLayout = "2006-01-02"
)

type SQLiteRepository struct {
	db *sql.DB
}

var _ Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; avoids SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// formatDate keeps the calendar date of t in its own zone. Dates come back
// as midnight UTC of that day.
func formatDate(t time.Time) string {
	return t.Format(dateLayout)
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}

const cardColumns = `id, bank_name, card_name, last4_digits, credit_limit, billing_day, due_day,
	interest_rate, limit_increase_reminder, created_at, updated_at`

func (r *SQLiteRepository) CreateCard(ctx context.Context, c core.Card) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO cards (`+cardColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.BankName, c.CardName, c.Last4Digits, c.CreditLimit.String(),
		c.BillingDay, c.DueDay, c.InterestRate.String(), reminderOrNone(c.LimitIncreaseReminder),
		formatTime(c.CreatedAt), formatTime(c.UpdatedAt))
	if err != nil {
		return fmt.Errorf("create card: %w", err)
	}
	slog.InfoContext(ctx, "Card saved to SQLite", applog.FieldComponent, applog.ComponentStorage, applog.FieldCardID, c.ID, applog.FieldCardName, c.CardName)
	return nil
}

func (r *SQLiteRepository) UpdateCard(ctx context.Context, c core.Card) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE cards SET bank_name = ?, card_name = ?, last4_digits = ?, credit_limit = ?,
			billing_day = ?, due_day = ?, interest_rate = ?, limit_increase_reminder = ?, updated_at = ?
		WHERE id = ?`,
		c.BankName, c.CardName, c.Last4Digits, c.CreditLimit.String(),
		c.BillingDay, c.DueDay, c.InterestRate.String(), reminderOrNone(c.LimitIncreaseReminder),
		formatTime(c.UpdatedAt), c.ID)
	if err != nil {
		return fmt.Errorf("update card %s: %w", c.ID, err)
	}
	return expectOneRow(res, "card", c.ID)
}

func (r *SQLiteRepository) DeleteCard(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM cards WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete card %s: %w", id, err)
	}
	return expectOneRow(res, "card", id)
}

func (r *SQLiteRepository) GetCard(ctx context.Context, id string) (core.Card, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+cardColumns+` FROM cards WHERE id = ?`, id)
	c, err := scanCard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Card{}, fmt.Errorf("card %s: %w", id, ErrNotFound)
	}
	return c, err
}

func (r *SQLiteRepository) ListCards(ctx context.Context) ([]core.Card, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+cardColumns+` FROM cards ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	defer rows.Close()

	var cards []core.Card
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, c)
	}
	return cards, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCard(s scanner) (core.Card, error) {
	var (
		c                     core.Card
		limit, rate, reminder string
		createdAt, updatedAt  string
	)
	err := s.Scan(&c.ID, &c.BankName, &c.CardName, &c.Last4Digits, &limit,
		&c.BillingDay, &c.DueDay, &rate, &reminder, &createdAt, &updatedAt)
	if err != nil {
		return core.Card{}, err
	}
	if c.CreditLimit, err = decimal.NewFromString(limit); err != nil {
		return core.Card{}, fmt.Errorf("card %s credit limit: %w", c.ID, err)
	}
	if c.InterestRate, err = decimal.NewFromString(rate); err != nil {
		return core.Card{}, fmt.Errorf("card %s interest rate: %w", c.ID, err)
	}
	c.LimitIncreaseReminder = core.LimitReminder(reminder)
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return core.Card{}, fmt.Errorf("card %s created_at: %w", c.ID, err)
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return core.Card{}, fmt.Errorf("card %s updated_at: %w", c.ID, err)
	}
	return c, nil
}

const txColumns = `id, card_id, occurred_at, description, amount, category, status,
	installment_monthly, installment_tenor, created_at`

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) error {
	var monthly sql.NullString
	var tenor sql.NullInt64
	if t.Installment != nil {
		monthly = sql.NullString{String: t.Installment.MonthlyInstallment.String(), Valid: true}
		tenor = sql.NullInt64{Int64: int64(t.Installment.Tenor), Valid: true}
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (`+txColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.CardID, formatDate(t.Date), t.Description, t.Amount.String(),
		string(t.Category), string(t.Status), monthly, tenor, formatTime(t.CreatedAt))
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	slog.InfoContext(ctx, "Transaction saved to SQLite",
		applog.FieldComponent, applog.ComponentStorage,
		applog.FieldTransactionID, t.ID,
		applog.FieldCardID, t.CardID,
		applog.FieldCategory, t.Category,
		applog.FieldAmount, t.Amount.String())
	return nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+txColumns+` FROM transactions WHERE id = ?`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, ErrNotFound)
	}
	return t, err
}

func (r *SQLiteRepository) UpdateTransactionStatus(ctx context.Context, id string, status core.Status) error {
	res, err := r.db.ExecContext(ctx, `UPDATE transactions SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("update transaction %s: %w", id, err)
	}
	return expectOneRow(res, "transaction", id)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	return expectOneRow(res, "transaction", id)
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, cardID string) ([]core.Transaction, error) {
	query := `SELECT ` + txColumns + ` FROM transactions`
	var args []any
	if cardID != "" {
		query += ` WHERE card_id = ?`
		args = append(args, cardID)
	}
	query += ` ORDER BY occurred_at, created_at, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTransaction(s scanner) (core.Transaction, error) {
	var (
		t                        core.Transaction
		occurredAt, createdAt    string
		amount, category, status string
		monthly                  sql.NullString
		tenor                    sql.NullInt64
	)
	err := s.Scan(&t.ID, &t.CardID, &occurredAt, &t.Description, &amount,
		&category, &status, &monthly, &tenor, &createdAt)
	if err != nil {
		return core.Transaction{}, err
	}
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s amount: %w", t.ID, err)
	}
	if t.Date, err = parseDate(occurredAt); err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s occurred_at: %w", t.ID, err)
	}
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s created_at: %w", t.ID, err)
	}
	t.Category = core.Category(category)
	t.Status = core.Status(status)
	if monthly.Valid && tenor.Valid {
		m, err := decimal.NewFromString(monthly.String)
		if err != nil {
			return core.Transaction{}, fmt.Errorf("transaction %s installment: %w", t.ID, err)
		}
		t.Installment = &core.InstallmentDetails{MonthlyInstallment: m, Tenor: int(tenor.Int64)}
	}
	return t, nil
}

func (r *SQLiteRepository) MarkReminded(ctx context.Context, rem Reminder) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO reminders (card_id, due_date, kind, sent_at) VALUES (?, ?, ?, ?)`,
		rem.CardID, formatDate(rem.DueDate), rem.Kind, formatTime(rem.SentAt))
	if err != nil {
		return false, fmt.Errorf("record reminder: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("record reminder: %w", err)
	}
	return n == 1, nil
}

func (r *SQLiteRepository) ForgetReminder(ctx context.Context, rem Reminder) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM reminders WHERE card_id = ? AND due_date = ? AND kind = ?`,
		rem.CardID, formatDate(rem.DueDate), rem.Kind)
	if err != nil {
		return fmt.Errorf("forget reminder: %w", err)
	}
	return nil
}

func expectOneRow(res sql.Result, what, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %s: %w", what, id, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
	}
	return nil
}

func reminderOrNone(r core.LimitReminder) string {
	if r == "" {
		return string(core.NoLimitReminder)
	}
	return string(r)
}
