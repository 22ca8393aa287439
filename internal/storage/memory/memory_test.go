package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"tagihan/internal/core"
	"tagihan/internal/storage"
)

func TestCardsRoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	for _, id := range []string{"b", "a"} {
		err := s.CreateCard(ctx, core.Card{ID: id, CardName: id, DueDay: 5, BillingDay: 20, CreatedAt: now})
		if err != nil {
			t.Fatalf("CreateCard(%s): %v", id, err)
		}
	}
	if err := s.CreateCard(ctx, core.Card{ID: "a"}); err == nil {
		t.Fatalf("expected duplicate id to fail")
	}

	cards, _ := s.ListCards(ctx)
	if len(cards) != 2 || cards[0].ID != "b" || cards[1].ID != "a" {
		t.Fatalf("same CreatedAt should keep insertion order, got %+v", cards)
	}
	if cards[0].LimitIncreaseReminder != core.NoLimitReminder {
		t.Errorf("reminder default = %q, want none", cards[0].LimitIncreaseReminder)
	}

	if err := s.UpdateCard(ctx, core.Card{ID: "a", CardName: "renamed"}); err != nil {
		t.Fatalf("UpdateCard: %v", err)
	}
	got, _ := s.GetCard(ctx, "a")
	if got.CardName != "renamed" || !got.CreatedAt.Equal(now) {
		t.Errorf("update lost data: %+v", got)
	}

	if err := s.DeleteCard(ctx, "a"); err != nil {
		t.Fatalf("DeleteCard: %v", err)
	}
	if _, err := s.GetCard(ctx, "a"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTransactionsAreCopied(t *testing.T) {
	s := New()
	ctx := context.Background()
	tx := core.Transaction{
		ID: "t1", CardID: "a", Date: time.Now(), Amount: decimal.NewFromInt(10),
		Category: core.Other, Status: core.Unpaid,
		Installment: &core.InstallmentDetails{MonthlyInstallment: decimal.NewFromInt(5), Tenor: 3},
	}
	if err := s.CreateTransaction(ctx, tx); err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	tx.Installment.Tenor = 99

	list, _ := s.ListTransactions(ctx, "a")
	if len(list) != 1 || list[0].Installment.Tenor != 3 {
		t.Fatalf("stored transaction was mutated through caller pointer: %+v", list)
	}
	list[0].Installment.Tenor = 42
	again, _ := s.GetTransaction(ctx, "t1")
	if again.Installment.Tenor != 3 {
		t.Fatalf("stored transaction was mutated through returned pointer")
	}

	if err := s.UpdateTransactionStatus(ctx, "t1", core.Paid); err != nil {
		t.Fatalf("UpdateTransactionStatus: %v", err)
	}
	if err := s.DeleteTransaction(ctx, "t1"); err != nil {
		t.Fatalf("DeleteTransaction: %v", err)
	}
	if err := s.DeleteTransaction(ctx, "t1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMarkReminded(t *testing.T) {
	s := New()
	r := storage.Reminder{CardID: "a", DueDate: time.Date(2025, 6, 12, 0, 0, 0, 0, time.UTC), Kind: storage.KindUpcoming}
	if ok, _ := s.MarkReminded(context.Background(), r); !ok {
		t.Fatalf("first reminder should be new")
	}
	if ok, _ := s.MarkReminded(context.Background(), r); ok {
		t.Fatalf("repeat reminder should not be new")
	}
	if err := s.ForgetReminder(context.Background(), r); err != nil {
		t.Fatalf("ForgetReminder: %v", err)
	}
	if ok, _ := s.MarkReminded(context.Background(), r); !ok {
		t.Fatalf("forgotten reminder should be new again")
	}
}
