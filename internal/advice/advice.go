// Package advice produces the free-text parts of the application: plan
// commentary and reminder e-mail copy. A language model is used when one is
// configured; every call falls back to fixed templates when it is not, or
// when the model fails.
package advice

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"tagihan/internal/amortization"
	applog "tagihan/internal/log"
)

// TextGenerator turns a prompt into text.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Email is a rendered message ready for delivery.
type Email struct {
	Subject  string
	HTMLBody string
	TextBody string
}

// ReminderInput describes one bill to remind about.
type ReminderInput struct {
	RecipientName string
	BankName      string
	CardName      string
	Overdue       bool
	DueDate       time.Time
	Outstanding   decimal.Decimal
}

// Advisor combines an optional generator with template fallbacks.
type Advisor struct {
	gen     TextGenerator
	timeout time.Duration
}

// NewAdvisor returns an Advisor. gen may be nil, in which case only the
// templates are used.
func NewAdvisor(gen TextGenerator) *Advisor {
	return &Advisor{gen: gen, timeout: 20 * time.Second}
}

// PlanAdvice comments on a computed plan. It never fails; generator errors
// are logged and answered with the template text.
func (a *Advisor) PlanAdvice(ctx context.Context, plan amortization.Plan) string {
	fallback := renderPlanAdvice(plan)
	if a == nil || a.gen == nil {
		return fallback
	}

	text, err := a.generate(ctx, planPrompt(plan))
	if err != nil {
		slog.WarnContext(ctx, "Plan advice generation failed, using template",
			applog.FieldComponent, applog.ComponentAdvice, applog.FieldError, err)
		return fallback
	}
	return text
}

// ReminderEmail writes the subject and body of a bill reminder.
func (a *Advisor) ReminderEmail(ctx context.Context, in ReminderInput) (Email, error) {
	fallback, err := renderReminder(in)
	if err != nil {
		return Email{}, err
	}
	if a == nil || a.gen == nil {
		return fallback, nil
	}

	text, err := a.generate(ctx, reminderPrompt(in))
	if err != nil {
		slog.WarnContext(ctx, "Reminder copy generation failed, using template",
			applog.FieldComponent, applog.ComponentAdvice, applog.FieldError, err)
		return fallback, nil
	}
	subject, body, ok := splitSubject(text)
	if !ok {
		return fallback, nil
	}
	fallback.Subject = subject
	fallback.HTMLBody = body
	return fallback, nil
}

func (a *Advisor) generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	text, err := a.gen.Generate(ctx, prompt)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("empty response")
	}
	return text, nil
}

// splitSubject expects "Subject: ...\n<body>".
func splitSubject(text string) (subject, body string, ok bool) {
	first, rest, found := strings.Cut(text, "\n")
	if !found {
		return "", "", false
	}
	subject, ok = strings.CutPrefix(strings.TrimSpace(first), "Subject:")
	subject = strings.TrimSpace(subject)
	body = strings.TrimSpace(rest)
	if !ok || subject == "" || body == "" {
		return "", "", false
	}
	return subject, body, true
}

func planPrompt(p amortization.Plan) string {
	var b strings.Builder
	b.WriteString("You are a personal finance assistant. In at most four sentences, ")
	b.WriteString("explain whether this credit card installment plan is a sensible choice ")
	b.WriteString("and what the borrower should watch out for. Do not repeat the table.\n\n")
	fmt.Fprintf(&b, "Convention: %s (rate quoted %s)\n", p.Convention, p.RateUnit)
	fmt.Fprintf(&b, "Principal: %s\n", p.Principal)
	fmt.Fprintf(&b, "Rate: %s%%\n", p.RatePercent)
	fmt.Fprintf(&b, "Tenor: %d months\n", p.Tenor)
	fmt.Fprintf(&b, "Monthly installment: %s\n", p.MonthlyInstallment)
	fmt.Fprintf(&b, "Total interest: %s\n", p.TotalInterest)
	fmt.Fprintf(&b, "Total payment: %s\n", p.TotalPayment)
	return b.String()
}

func reminderPrompt(in ReminderInput) string {
	state := "due on"
	if in.Overdue {
		state = "overdue since"
	}
	return fmt.Sprintf("Write a short, polite credit card payment reminder e-mail.\n"+
		"The first line must be \"Subject: <subject>\", followed by the body as simple HTML.\n\n"+
		"Recipient: %s\nCard: %s %s\nOutstanding balance: %s\nStatus: %s %s\n",
		in.RecipientName, in.BankName, in.CardName, in.Outstanding, state, in.DueDate.Format("2 January 2006"))
}
