package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"tagihan/internal/amortization"
	"tagihan/internal/core"
	"tagihan/internal/ledger"
	applog "tagihan/internal/log"
	"tagihan/internal/services"
)

type errorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to a status code. Unexpected errors are logged and
// reported without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verrs  validator.ValidationErrors
		fields fieldErrors
		tooBig *http.MaxBytesError
	)
	switch {
	case errors.As(err, &tooBig):
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "request body too large"})
	case errors.Is(err, errDecode):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.As(err, &verrs):
		details := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			details[fe.Field()] = "failed '" + fe.Tag() + "' validation"
		}
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "validation failed", Details: details})
	case errors.As(err, &fields):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "validation failed", Details: fields})
	case services.IsInvalid(err):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: err.Error()})
	case services.IsNotFound(err):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	default:
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			applog.FieldError, err.Error(),
			applog.FieldPath, r.URL.Path)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

type cardView struct {
	ID                    string          `json:"id"`
	BankName              string          `json:"bank_name"`
	CardName              string          `json:"card_name"`
	Last4Digits           string          `json:"last4_digits,omitempty"`
	CreditLimit           decimal.Decimal `json:"credit_limit"`
	BillingDay            int             `json:"billing_day"`
	DueDay                int             `json:"due_day"`
	InterestRate          decimal.Decimal `json:"interest_rate"`
	LimitIncreaseReminder string          `json:"limit_increase_reminder"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

func newCardView(c core.Card) cardView {
	return cardView{
		ID:                    c.ID,
		BankName:              c.BankName,
		CardName:              c.CardName,
		Last4Digits:           c.Last4Digits,
		CreditLimit:           c.CreditLimit,
		BillingDay:            c.BillingDay,
		DueDay:                c.DueDay,
		InterestRate:          c.InterestRate,
		LimitIncreaseReminder: string(c.LimitIncreaseReminder),
		CreatedAt:             c.CreatedAt,
		UpdatedAt:             c.UpdatedAt,
	}
}

type installmentView struct {
	MonthlyInstallment decimal.Decimal `json:"monthly_installment"`
	Tenor              int             `json:"tenor"`
}

type transactionView struct {
	ID          string           `json:"id"`
	CardID      string           `json:"card_id"`
	Date        string           `json:"date"`
	Description string           `json:"description"`
	Amount      decimal.Decimal  `json:"amount"`
	Category    string           `json:"category"`
	Status      string           `json:"status"`
	Installment *installmentView `json:"installment,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

func newTransactionView(t core.Transaction) transactionView {
	v := transactionView{
		ID:          t.ID,
		CardID:      t.CardID,
		Date:        formatDate(t.Date),
		Description: t.Description,
		Amount:      t.Amount,
		Category:    string(t.Category),
		Status:      string(t.Status),
		CreatedAt:   t.CreatedAt,
	}
	if t.Installment != nil {
		v.Installment = &installmentView{
			MonthlyInstallment: t.Installment.MonthlyInstallment,
			Tenor:              t.Installment.Tenor,
		}
	}
	return v
}

func newTransactionViews(txs []core.Transaction) []transactionView {
	out := make([]transactionView, 0, len(txs))
	for _, t := range txs {
		out = append(out, newTransactionView(t))
	}
	return out
}

type cardSummaryView struct {
	Card               cardView        `json:"card"`
	OutstandingBalance decimal.Decimal `json:"outstanding_balance"`
	TotalCharges       decimal.Decimal `json:"total_charges"`
	TotalPayments      decimal.Decimal `json:"total_payments"`
	AvailableCredit    decimal.Decimal `json:"available_credit"`
	Utilization        decimal.Decimal `json:"utilization_percent"`
	ActiveInstallment  decimal.Decimal `json:"active_monthly_installment"`
	NextDueDate        string          `json:"next_due_date"`
	TransactionCount   int             `json:"transaction_count"`
}

func newCardSummaryView(s ledger.CardSummary) cardSummaryView {
	return cardSummaryView{
		Card:               newCardView(s.Card),
		OutstandingBalance: s.Snapshot.Outstanding,
		TotalCharges:       s.Snapshot.Charges,
		TotalPayments:      s.Snapshot.Payments,
		AvailableCredit:    s.AvailableCredit,
		Utilization:        s.Utilization,
		ActiveInstallment:  s.ActiveInstallment,
		NextDueDate:        formatDate(s.NextDueDate),
		TransactionCount:   s.Snapshot.Transactions,
	}
}

type portfolioView struct {
	Cards             []cardSummaryView `json:"cards"`
	TotalDebt         decimal.Decimal   `json:"total_debt"`
	TotalLimit        decimal.Decimal   `json:"total_limit"`
	ActiveInstallment decimal.Decimal   `json:"active_monthly_installment"`
	NearestDueDate    string            `json:"nearest_due_date,omitempty"`
	NearestDueCard    string            `json:"nearest_due_card_id,omitempty"`
}

func newPortfolioView(p ledger.Portfolio) portfolioView {
	v := portfolioView{
		Cards:             make([]cardSummaryView, 0, len(p.Cards)),
		TotalDebt:         p.TotalDebt,
		TotalLimit:        p.TotalLimit,
		ActiveInstallment: p.ActiveInstallment,
		NearestDueDate:    formatDate(p.NearestDueDate),
		NearestDueCard:    p.NearestDueCard,
	}
	for _, c := range p.Cards {
		v.Cards = append(v.Cards, newCardSummaryView(c))
	}
	return v
}

type billView struct {
	CardID             string          `json:"card_id"`
	CardName           string          `json:"card_name"`
	BankName           string          `json:"bank_name"`
	OutstandingBalance decimal.Decimal `json:"outstanding_balance"`
	DueDate            string          `json:"due_date"`
	DaysUntilDue       int             `json:"days_until_due"`
}

type billsView struct {
	Overdue  []billView `json:"overdue"`
	Upcoming []billView `json:"upcoming"`
}

func newBillsView(b ledger.Bills, today time.Time) billsView {
	conv := func(in []ledger.Bill) []billView {
		out := make([]billView, 0, len(in))
		for _, bill := range in {
			out = append(out, billView{
				CardID:             bill.Card.ID,
				CardName:           bill.Card.CardName,
				BankName:           bill.Card.BankName,
				OutstandingBalance: bill.OutstandingBalance,
				DueDate:            formatDate(bill.DueDate),
				DaysUntilDue:       bill.DaysUntil(today),
			})
		}
		return out
	}
	return billsView{Overdue: conv(b.Overdue), Upcoming: conv(b.Upcoming)}
}

type scheduleRowView struct {
	Month            int             `json:"month"`
	PrincipalPayment decimal.Decimal `json:"principal_payment"`
	InterestPayment  decimal.Decimal `json:"interest_payment"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
}

type planView struct {
	Convention         string            `json:"convention"`
	RateUnit           string            `json:"rate_unit"`
	Principal          decimal.Decimal   `json:"principal"`
	RatePercent        decimal.Decimal   `json:"rate_percent"`
	Tenor              int               `json:"tenor"`
	MonthlyInstallment decimal.Decimal   `json:"monthly_installment"`
	TotalPayment       decimal.Decimal   `json:"total_payment"`
	TotalInterest      decimal.Decimal   `json:"total_interest"`
	Schedule           []scheduleRowView `json:"schedule"`
}

func newPlanView(p amortization.Plan) planView {
	v := planView{
		Convention:         string(p.Convention),
		RateUnit:           string(p.RateUnit),
		Principal:          p.Principal,
		RatePercent:        p.RatePercent,
		Tenor:              p.Tenor,
		MonthlyInstallment: p.MonthlyInstallment,
		TotalPayment:       p.TotalPayment,
		TotalInterest:      p.TotalInterest,
		Schedule:           make([]scheduleRowView, 0, len(p.Schedule)),
	}
	for _, row := range p.Schedule {
		v.Schedule = append(v.Schedule, scheduleRowView(row))
	}
	return v
}

type simulationView struct {
	Plan   planView `json:"plan"`
	Advice string   `json:"advice,omitempty"`
}

func newSimulationView(s services.Simulation) simulationView {
	return simulationView{Plan: newPlanView(s.Plan), Advice: s.Advice}
}

type applyView struct {
	Transaction transactionView `json:"transaction"`
	Simulation  simulationView  `json:"simulation"`
}

type suggestionView struct {
	Plan     planView `json:"plan"`
	Cheapest bool     `json:"cheapest"`
	Lightest bool     `json:"lightest"`
}

type nameSuggestionsView struct {
	Suggestions []string `json:"suggestions"`
}
