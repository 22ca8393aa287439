package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tagihan/internal/advice"
	"tagihan/internal/amqp"
	applog "tagihan/internal/log"
	"tagihan/internal/notify"
	"tagihan/internal/storage"
)

// Recipient is who receives bill reminders.
type Recipient struct {
	Name  string
	Email string
}

// ReminderWorker turns reminder messages into delivered e-mails.
type ReminderWorker struct {
	advisor   *advice.Advisor
	sender    notify.Sender
	recipient Recipient
	loc       *time.Location
}

func NewReminderWorker(advisor *advice.Advisor, sender notify.Sender, recipient Recipient, loc *time.Location) *ReminderWorker {
	if loc == nil {
		loc = time.UTC
	}
	return &ReminderWorker{
		advisor:   advisor,
		sender:    sender,
		recipient: recipient,
		loc:       loc,
	}
}

// HandleReminder writes and sends the e-mail for one message. It is the
// amqp.Handler used by the queue consumer.
func (w *ReminderWorker) HandleReminder(ctx context.Context, msg *amqp.ReminderMessage) error {
	slog.InfoContext(ctx, "Processing reminder message",
		applog.FieldCardID, msg.CardID,
		applog.FieldReminderKind, msg.Kind,
		applog.FieldDueDate, msg.DueDate)

	due, err := msg.Due(w.loc)
	if err != nil {
		return fmt.Errorf("parse due date: %w", err)
	}

	mail, err := w.advisor.ReminderEmail(ctx, advice.ReminderInput{
		RecipientName: w.recipient.Name,
		BankName:      msg.BankName,
		CardName:      msg.CardName,
		Overdue:       msg.Kind == storage.KindOverdue,
		DueDate:       due,
		Outstanding:   msg.OutstandingBalance,
	})
	if err != nil {
		return fmt.Errorf("render reminder: %w", err)
	}

	if err := w.sender.Send(ctx, notify.Message{
		To:       w.recipient.Email,
		Subject:  mail.Subject,
		HTMLBody: mail.HTMLBody,
		TextBody: mail.TextBody,
	}); err != nil {
		return fmt.Errorf("send reminder: %w", err)
	}

	slog.InfoContext(ctx, "Reminder delivered",
		applog.FieldOperation, applog.OpNotify,
		applog.FieldCardID, msg.CardID,
		applog.FieldReminderKind, msg.Kind,
		"subject", mail.Subject)
	return nil
}

// PublishReminder delivers the message in-process. It lets the worker stand
// in for the broker when no AMQP URL is configured.
func (w *ReminderWorker) PublishReminder(ctx context.Context, msg *amqp.ReminderMessage) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	return w.HandleReminder(ctx, msg)
}
