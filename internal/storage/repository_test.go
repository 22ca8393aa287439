package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tagihan/internal/core"
)

func newTestRepo(t *testing.T) (*SQLiteRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "tagihan.db")
	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo, path
}

func sampleCard(id string, created time.Time) core.Card {
	return core.Card{
		ID:           id,
		BankName:     "BCA",
		CardName:     "Card " + id,
		Last4Digits:  "4321",
		CreditLimit:  decimal.RequireFromString("15000000"),
		BillingDay:   25,
		DueDay:       31,
		InterestRate: decimal.RequireFromString("1.75"),
		CreatedAt:    created,
		UpdatedAt:    created,
	}
}

func TestMigrationsApplied(t *testing.T) {
	_, path := newTestRepo(t)

	version, dirty, err := SchemaVersion(path)
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if version != 1 || dirty {
		t.Fatalf("version=%d dirty=%v, want 1/false", version, dirty)
	}
	// Idempotent on an up-to-date schema.
	if err := RunMigrations(path); err != nil {
		t.Fatalf("second RunMigrations: %v", err)
	}
}

func TestCardLifecycle(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	created := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)

	if err := repo.CreateCard(ctx, sampleCard("b", created.Add(time.Minute))); err != nil {
		t.Fatalf("CreateCard: %v", err)
	}
	if err := repo.CreateCard(ctx, sampleCard("a", created)); err != nil {
		t.Fatalf("CreateCard: %v", err)
	}

	got, err := repo.GetCard(ctx, "a")
	if err != nil {
		t.Fatalf("GetCard: %v", err)
	}
	if got.CardName != "Card a" || !got.CreditLimit.Equal(decimal.RequireFromString("15000000")) ||
		!got.InterestRate.Equal(decimal.RequireFromString("1.75")) || got.DueDay != 31 {
		t.Fatalf("unexpected card %+v", got)
	}
	if got.LimitIncreaseReminder != core.NoLimitReminder {
		t.Errorf("empty reminder should be stored as none, got %q", got.LimitIncreaseReminder)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %s, want %s", got.CreatedAt, created)
	}

	cards, err := repo.ListCards(ctx)
	if err != nil || len(cards) != 2 || cards[0].ID != "a" || cards[1].ID != "b" {
		t.Fatalf("ListCards = %+v, %v", cards, err)
	}

	got.CardName = "Renamed"
	got.LimitIncreaseReminder = core.LimitReminder3Months
	got.UpdatedAt = created.Add(time.Hour)
	if err := repo.UpdateCard(ctx, got); err != nil {
		t.Fatalf("UpdateCard: %v", err)
	}
	got, _ = repo.GetCard(ctx, "a")
	if got.CardName != "Renamed" || got.LimitIncreaseReminder != core.LimitReminder3Months {
		t.Errorf("update not persisted: %+v", got)
	}

	if err := repo.DeleteCard(ctx, "a"); err != nil {
		t.Fatalf("DeleteCard: %v", err)
	}
	if _, err := repo.GetCard(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	if err := repo.DeleteCard(ctx, "a"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound deleting twice, got %v", err)
	}
	if err := repo.UpdateCard(ctx, sampleCard("missing", created)); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound updating missing card, got %v", err)
	}
}

func TestTransactions(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	txs := []core.Transaction{
		{ID: "t2", CardID: "a", Date: base.AddDate(0, 0, 2), Description: "dinner", Amount: decimal.RequireFromString("125000.50"), Category: core.Food, Status: core.Unpaid, CreatedAt: base},
		{ID: "t1", CardID: "a", Date: base, Description: "laptop", Amount: decimal.RequireFromString("3060000"), Category: core.Other, Status: core.Unpaid, CreatedAt: base,
			Installment: &core.InstallmentDetails{MonthlyInstallment: decimal.RequireFromString("540000"), Tenor: 6}},
		{ID: "t3", CardID: "b", Date: base.AddDate(0, 0, 1), Description: "payment", Amount: decimal.RequireFromString("50000"), Category: core.Payment, Status: core.Paid, CreatedAt: base},
	}
	for _, tx := range txs {
		if err := repo.CreateTransaction(ctx, tx); err != nil {
			t.Fatalf("CreateTransaction(%s): %v", tx.ID, err)
		}
	}

	forA, err := repo.ListTransactions(ctx, "a")
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(forA) != 2 || forA[0].ID != "t1" || forA[1].ID != "t2" {
		t.Fatalf("card a transactions out of order: %+v", forA)
	}
	if forA[0].Installment == nil || forA[0].Installment.Tenor != 6 ||
		!forA[0].Installment.MonthlyInstallment.Equal(decimal.RequireFromString("540000")) {
		t.Errorf("installment details lost: %+v", forA[0].Installment)
	}
	if forA[1].Installment != nil {
		t.Errorf("plain charge gained installment details")
	}
	if !forA[1].Amount.Equal(decimal.RequireFromString("125000.5")) {
		t.Errorf("amount = %s, want 125000.5", forA[1].Amount)
	}

	all, err := repo.ListTransactions(ctx, "")
	if err != nil || len(all) != 3 {
		t.Fatalf("ListTransactions(all) = %d, %v", len(all), err)
	}

	if err := repo.UpdateTransactionStatus(ctx, "t2", core.Paid); err != nil {
		t.Fatalf("UpdateTransactionStatus: %v", err)
	}
	got, err := repo.GetTransaction(ctx, "t2")
	if err != nil || got.Status != core.Paid {
		t.Fatalf("status not updated: %+v, %v", got, err)
	}

	if err := repo.DeleteTransaction(ctx, "t2"); err != nil {
		t.Fatalf("DeleteTransaction: %v", err)
	}
	if _, err := repo.GetTransaction(ctx, "t2"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := repo.UpdateTransactionStatus(ctx, "t2", core.Unpaid); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTransactionDateKeepsCalendarDay(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	wib := time.FixedZone("WIB", 7*60*60)
	posted := time.Date(2025, 6, 10, 0, 0, 0, 0, wib)

	tx := core.Transaction{
		ID: "t1", CardID: "a", Date: posted, Description: "lunch",
		Amount: decimal.RequireFromString("45000"), Category: core.Food, Status: core.Unpaid, CreatedAt: posted,
	}
	if err := repo.CreateTransaction(ctx, tx); err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	got, err := repo.GetTransaction(ctx, "t1")
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if y, m, d := got.Date.Date(); y != 2025 || m != time.June || d != 10 {
		t.Fatalf("stored date = %s, want 2025-06-10", got.Date)
	}
	if got.Date.Format(dateLayout) != "2025-06-10" {
		t.Errorf("formatted date = %s", got.Date.Format(dateLayout))
	}
}

func TestMarkReminded(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()
	r := Reminder{
		CardID:  "a",
		DueDate: time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC),
		Kind:    KindUpcoming,
		SentAt:  time.Now(),
	}

	first, err := repo.MarkReminded(ctx, r)
	if err != nil || !first {
		t.Fatalf("first MarkReminded = %v, %v", first, err)
	}
	again, err := repo.MarkReminded(ctx, r)
	if err != nil || again {
		t.Fatalf("second MarkReminded = %v, %v", again, err)
	}

	r.Kind = KindOverdue
	if other, err := repo.MarkReminded(ctx, r); err != nil || !other {
		t.Fatalf("different kind should be new, got %v, %v", other, err)
	}

	if err := repo.ForgetReminder(ctx, r); err != nil {
		t.Fatalf("ForgetReminder: %v", err)
	}
	if retry, err := repo.MarkReminded(ctx, r); err != nil || !retry {
		t.Fatalf("forgotten reminder should be new again, got %v, %v", retry, err)
	}
}
