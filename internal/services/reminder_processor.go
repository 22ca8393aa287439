package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tagihan/internal/amqp"
	"tagihan/internal/ledger"
	applog "tagihan/internal/log"
	"tagihan/internal/storage"
)

// Publisher hands a reminder to whoever delivers it: the AMQP client, or the
// reminder worker directly when no broker is configured.
type Publisher interface {
	PublishReminder(ctx context.Context, msg *amqp.ReminderMessage) error
}

// ReminderRun summarises one classification pass.
type ReminderRun struct {
	Overdue   int
	Upcoming  int
	Published int
	Skipped   int
	Failed    int
}

// ReminderProcessor classifies bills and publishes one reminder per card,
// due date and kind. Reruns inside the same cycle publish nothing new.
type ReminderProcessor struct {
	debts     *DebtService
	log       storage.ReminderLog
	publisher Publisher
	now       func() time.Time
}

func NewReminderProcessor(debts *DebtService, log storage.ReminderLog, publisher Publisher) *ReminderProcessor {
	return &ReminderProcessor{
		debts:     debts,
		log:       log,
		publisher: publisher,
		now:       time.Now,
	}
}

// Run classifies today's bills and publishes reminders that have not gone
// out yet. A failed publish is forgotten so the next run retries it; the
// error is returned after every bill has been attempted.
func (p *ReminderProcessor) Run(ctx context.Context) (ReminderRun, error) {
	bills, err := p.debts.Bills(ctx)
	if err != nil {
		return ReminderRun{}, fmt.Errorf("classify bills: %w", err)
	}

	run := ReminderRun{Overdue: len(bills.Overdue), Upcoming: len(bills.Upcoming)}
	var firstErr error
	for _, group := range []struct {
		kind  string
		bills []ledger.Bill
	}{
		{storage.KindOverdue, bills.Overdue},
		{storage.KindUpcoming, bills.Upcoming},
	} {
		for _, bill := range group.bills {
			sent, err := p.remind(ctx, group.kind, bill)
			switch {
			case err != nil:
				run.Failed++
				if firstErr == nil {
					firstErr = err
				}
			case sent:
				run.Published++
			default:
				run.Skipped++
			}
		}
	}

	slog.InfoContext(ctx, "Reminder run completed",
		applog.FieldComponent, applog.ComponentReminder,
		applog.FieldOperation, applog.OpClassify,
		"overdue", run.Overdue,
		"upcoming", run.Upcoming,
		"published", run.Published,
		"skipped", run.Skipped,
		"failed", run.Failed)
	return run, firstErr
}

func (p *ReminderProcessor) remind(ctx context.Context, kind string, bill ledger.Bill) (bool, error) {
	rec := storage.Reminder{
		CardID:  bill.Card.ID,
		DueDate: bill.DueDate,
		Kind:    kind,
		SentAt:  p.now(),
	}
	isNew, err := p.log.MarkReminded(ctx, rec)
	if err != nil {
		return false, fmt.Errorf("record reminder for card %s: %w", bill.Card.ID, err)
	}
	if !isNew {
		return false, nil
	}

	msg := amqp.NewReminderMessage(bill.Card.ID, bill.Card.CardName, bill.Card.BankName,
		kind, bill.DueDate, bill.OutstandingBalance)
	if err := p.publisher.PublishReminder(ctx, msg); err != nil {
		if ferr := p.log.ForgetReminder(ctx, rec); ferr != nil {
			slog.ErrorContext(ctx, "Failed to forget unsent reminder", applog.FieldCardID, bill.Card.ID, applog.FieldError, ferr)
		}
		return false, fmt.Errorf("publish reminder for card %s: %w", bill.Card.ID, err)
	}
	return true, nil
}
