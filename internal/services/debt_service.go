package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tagihan/internal/advice"
	"tagihan/internal/amortization"
	"tagihan/internal/cache"
	"tagihan/internal/core"
	"tagihan/internal/ledger"
	applog "tagihan/internal/log"
	"tagihan/internal/storage"
)

// CardRateUnit is the unit of Card.InterestRate. Issuers quote card interest
// per month.
const CardRateUnit = amortization.Monthly

// DebtService orchestrates cards, transactions and installment plans on top
// of a storage.Store.
type DebtService struct {
	store   storage.Store
	plans   *cache.LRU[planKey, amortization.Plan]
	advisor *advice.Advisor
	now     func() time.Time
	loc     *time.Location
	newID   func() string
}

type Option func(*DebtService)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *DebtService) { s.now = now }
}

// WithLocation sets the zone used to decide what "today" is.
func WithLocation(loc *time.Location) Option {
	return func(s *DebtService) { s.loc = loc }
}

func WithAdvisor(a *advice.Advisor) Option {
	return func(s *DebtService) { s.advisor = a }
}

// WithPlanCache memoises computed plans.
func WithPlanCache(c *cache.LRU[planKey, amortization.Plan]) Option {
	return func(s *DebtService) { s.plans = c }
}

func WithIDGenerator(fn func() string) Option {
	return func(s *DebtService) { s.newID = fn }
}

func NewDebtService(store storage.Store, opts ...Option) *DebtService {
	s := &DebtService{
		store: store,
		now:   time.Now,
		loc:   time.Local,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewPlanCache returns a cache suitable for WithPlanCache.
func NewPlanCache(size int, ttl time.Duration) *cache.LRU[planKey, amortization.Plan] {
	return cache.NewLRU[planKey, amortization.Plan](size, ttl)
}

// Today is the current time in the service's location.
func (s *DebtService) Today() time.Time {
	return s.now().In(s.loc)
}

// CardInput carries the user-editable fields of a card.
type CardInput struct {
	BankName              string
	CardName              string
	Last4Digits           string
	CreditLimit           decimal.Decimal
	BillingDay            int
	DueDay                int
	InterestRate          decimal.Decimal
	LimitIncreaseReminder core.LimitReminder
}

func (in CardInput) apply(c *core.Card) {
	c.BankName = strings.TrimSpace(in.BankName)
	c.CardName = strings.TrimSpace(in.CardName)
	c.Last4Digits = strings.TrimSpace(in.Last4Digits)
	c.CreditLimit = in.CreditLimit
	c.BillingDay = in.BillingDay
	c.DueDay = in.DueDay
	c.InterestRate = in.InterestRate
	c.LimitIncreaseReminder = in.LimitIncreaseReminder
	if c.LimitIncreaseReminder == "" {
		c.LimitIncreaseReminder = core.NoLimitReminder
	}
}

func (s *DebtService) CreateCard(ctx context.Context, in CardInput) (core.Card, error) {
	now := s.now()
	card := core.Card{ID: s.newID(), CreatedAt: now, UpdatedAt: now}
	in.apply(&card)
	if err := card.Validate(); err != nil {
		return core.Card{}, err
	}
	if err := s.store.CreateCard(ctx, card); err != nil {
		return core.Card{}, fmt.Errorf("save card: %w", err)
	}
	slog.InfoContext(ctx, "Card created", applog.FieldCardID, card.ID, applog.FieldCardName, card.CardName)
	return card, nil
}

// UpdateCard replaces the editable fields of an existing card. ID and
// creation time never change.
func (s *DebtService) UpdateCard(ctx context.Context, id string, in CardInput) (core.Card, error) {
	card, err := s.store.GetCard(ctx, id)
	if err != nil {
		return core.Card{}, err
	}
	in.apply(&card)
	card.UpdatedAt = s.now()
	if err := card.Validate(); err != nil {
		return core.Card{}, err
	}
	if err := s.store.UpdateCard(ctx, card); err != nil {
		return core.Card{}, fmt.Errorf("update card: %w", err)
	}
	slog.InfoContext(ctx, "Card updated", applog.FieldCardID, card.ID)
	return card, nil
}

// DeleteCard removes the card. Its transactions stay in storage but no
// longer count towards any summary.
func (s *DebtService) DeleteCard(ctx context.Context, id string) error {
	if err := s.store.DeleteCard(ctx, id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Card deleted", applog.FieldCardID, id)
	return nil
}

func (s *DebtService) GetCard(ctx context.Context, id string) (core.Card, error) {
	return s.store.GetCard(ctx, id)
}

func (s *DebtService) ListCards(ctx context.Context) ([]core.Card, error) {
	return s.store.ListCards(ctx)
}

// TransactionInput describes a charge or payment to record. A zero Date
// means today; an empty Status means unpaid for charges and paid for
// payments.
type TransactionInput struct {
	CardID      string
	Date        time.Time
	Description string
	Amount      decimal.Decimal
	Category    core.Category
	Status      core.Status
}

func (s *DebtService) RecordTransaction(ctx context.Context, in TransactionInput) (core.Transaction, error) {
	return s.record(ctx, in, nil)
}

// RecordPayment records money paid towards the card's balance.
func (s *DebtService) RecordPayment(ctx context.Context, cardID string, amount decimal.Decimal, date time.Time, note string) (core.Transaction, error) {
	if strings.TrimSpace(note) == "" {
		note = "Payment"
	}
	return s.record(ctx, TransactionInput{
		CardID:      cardID,
		Date:        date,
		Description: note,
		Amount:      amount,
		Category:    core.Payment,
		Status:      core.Paid,
	}, nil)
}

func (s *DebtService) record(ctx context.Context, in TransactionInput, inst *core.InstallmentDetails) (core.Transaction, error) {
	if _, err := s.store.GetCard(ctx, in.CardID); err != nil {
		return core.Transaction{}, err
	}

	tx := core.Transaction{
		ID:          s.newID(),
		CardID:      in.CardID,
		Date:        in.Date,
		Description: strings.TrimSpace(in.Description),
		Amount:      in.Amount,
		Category:    in.Category,
		Status:      in.Status,
		Installment: inst,
		CreatedAt:   s.now(),
	}
	if tx.Date.IsZero() {
		tx.Date = s.Today()
	}
	// Transactions are dated by calendar day in the service's zone.
	y, m, d := tx.Date.In(s.loc).Date()
	tx.Date = time.Date(y, m, d, 0, 0, 0, 0, s.loc)
	if tx.Status == "" {
		tx.Status = core.Unpaid
		if tx.Category.IsPayment() {
			tx.Status = core.Paid
		}
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}

	if err := s.store.CreateTransaction(ctx, tx); err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	slog.InfoContext(ctx, "Transaction recorded", applog.NewFields().
		WithComponent(applog.ComponentDebt).
		WithTransaction(tx.ID, tx.CardID, string(tx.Category), tx.Amount.String()).
		ToSlice()...)
	return tx, nil
}

// SetTransactionStatus marks a transaction paid or unpaid. Status does not
// affect balances; it only decides whether an installment is still active.
func (s *DebtService) SetTransactionStatus(ctx context.Context, id string, status core.Status) (core.Transaction, error) {
	if !status.Valid() {
		return core.Transaction{}, core.ErrInvalidStatus
	}
	if err := s.store.UpdateTransactionStatus(ctx, id, status); err != nil {
		return core.Transaction{}, err
	}
	return s.store.GetTransaction(ctx, id)
}

func (s *DebtService) DeleteTransaction(ctx context.Context, id string) error {
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Transaction deleted", applog.FieldTransactionID, id)
	return nil
}

// ListTransactions returns a card's transactions oldest first, or all
// transactions when cardID is empty.
func (s *DebtService) ListTransactions(ctx context.Context, cardID string) ([]core.Transaction, error) {
	if cardID != "" {
		if _, err := s.store.GetCard(ctx, cardID); err != nil {
			return nil, err
		}
	}
	return s.store.ListTransactions(ctx, cardID)
}

// PaymentHistory lists a card's payments newest first.
func (s *DebtService) PaymentHistory(ctx context.Context, cardID string) ([]core.Transaction, error) {
	txs, err := s.ListTransactions(ctx, cardID)
	if err != nil {
		return nil, err
	}
	return ledger.PaymentHistory(cardID, txs), nil
}

func (s *DebtService) CardSummary(ctx context.Context, cardID string) (ledger.CardSummary, error) {
	card, err := s.store.GetCard(ctx, cardID)
	if err != nil {
		return ledger.CardSummary{}, err
	}
	txs, err := s.store.ListTransactions(ctx, cardID)
	if err != nil {
		return ledger.CardSummary{}, fmt.Errorf("list transactions: %w", err)
	}
	return ledger.SummarizeCard(card, txs, s.Today()), nil
}

// snapshot loads every card and transaction.
func (s *DebtService) snapshot(ctx context.Context) ([]core.Card, []core.Transaction, error) {
	cards, err := s.store.ListCards(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list cards: %w", err)
	}
	txs, err := s.store.ListTransactions(ctx, "")
	if err != nil {
		return nil, nil, fmt.Errorf("list transactions: %w", err)
	}
	return cards, txs, nil
}

func (s *DebtService) Dashboard(ctx context.Context) (ledger.Portfolio, error) {
	cards, txs, err := s.snapshot(ctx)
	if err != nil {
		return ledger.Portfolio{}, err
	}
	return ledger.Summarize(cards, txs, s.Today()), nil
}

// Bills classifies every card with debt as overdue or upcoming for today.
func (s *DebtService) Bills(ctx context.Context) (ledger.Bills, error) {
	cards, txs, err := s.snapshot(ctx)
	if err != nil {
		return ledger.Bills{}, err
	}
	return ledger.ClassifyBills(cards, txs, s.Today()), nil
}

// PlanRequest describes an installment conversion. Amount is the purchase
// price before fees. An empty RateUnit means the rate is already in the
// convention's native unit (annual for flat, monthly for annuity).
type PlanRequest struct {
	Convention            amortization.Convention
	Amount                decimal.Decimal
	BankFeePercent        decimal.Decimal
	MarketplaceFeePercent decimal.Decimal
	RatePercent           decimal.Decimal
	RateUnit              amortization.RateUnit
	Tenor                 int
	WithAdvice            bool
}

type Simulation struct {
	Plan   amortization.Plan
	Advice string
}

type planKey struct {
	convention amortization.Convention
	principal  string
	rate       string
	tenor      int
}

// resolve returns the calculator, fee-inclusive principal and native rate.
func (req PlanRequest) resolve() (amortization.Calculator, decimal.Decimal, decimal.Decimal, error) {
	calc, err := amortization.GetCalculator(req.Convention)
	if err != nil {
		return nil, decimal.Zero, decimal.Zero, err
	}
	principal, err := amortization.PrincipalWithFees(req.Amount, req.BankFeePercent, req.MarketplaceFeePercent)
	if err != nil {
		return nil, decimal.Zero, decimal.Zero, err
	}
	rate := req.RatePercent
	if req.RateUnit != "" {
		if rate, err = amortization.ConvertRate(rate, req.RateUnit, calc.Unit()); err != nil {
			return nil, decimal.Zero, decimal.Zero, err
		}
	}
	return calc, principal, rate, nil
}

func (s *DebtService) compute(calc amortization.Calculator, principal, rate decimal.Decimal, tenor int) (amortization.Plan, error) {
	key := planKey{
		convention: calc.Convention(),
		principal:  principal.String(),
		rate:       rate.String(),
		tenor:      tenor,
	}
	if s.plans != nil {
		if plan, ok := s.plans.Get(key); ok {
			return clonePlan(plan), nil
		}
	}
	plan, err := calc.Compute(principal, rate, tenor)
	if err != nil {
		return amortization.Plan{}, err
	}
	if s.plans != nil {
		s.plans.Set(key, clonePlan(plan))
	}
	return plan, nil
}

func clonePlan(p amortization.Plan) amortization.Plan {
	p.Schedule = append([]amortization.Installment(nil), p.Schedule...)
	return p
}

// SimulateInstallment computes a plan without recording anything.
func (s *DebtService) SimulateInstallment(ctx context.Context, req PlanRequest) (Simulation, error) {
	calc, principal, rate, err := req.resolve()
	if err != nil {
		return Simulation{}, err
	}
	plan, err := s.compute(calc, principal, rate, req.Tenor)
	if err != nil {
		return Simulation{}, err
	}

	sim := Simulation{Plan: plan}
	if req.WithAdvice {
		sim.Advice = s.advisor.PlanAdvice(ctx, plan)
	}
	slog.DebugContext(ctx, "Installment simulated",
		applog.FieldOperation, applog.OpSimulate,
		applog.FieldConvention, plan.Convention,
		applog.FieldTenor, plan.Tenor,
		"monthly_installment", plan.MonthlyInstallment.String())
	return sim, nil
}

// ApplyRequest converts a purchase on a card into an installment plan. When
// UseCardRate is set the card's monthly interest rate replaces RatePercent
// and RateUnit.
type ApplyRequest struct {
	PlanRequest
	CardID      string
	Description string
	Date        time.Time
	UseCardRate bool
}

// ApplyInstallment records the fee-inclusive principal as an unpaid charge
// that carries the plan's monthly installment and tenor.
func (s *DebtService) ApplyInstallment(ctx context.Context, req ApplyRequest) (core.Transaction, Simulation, error) {
	card, err := s.store.GetCard(ctx, req.CardID)
	if err != nil {
		return core.Transaction{}, Simulation{}, err
	}
	if strings.TrimSpace(req.Description) == "" {
		return core.Transaction{}, Simulation{}, core.ErrEmptyDescription
	}
	if req.UseCardRate {
		req.RatePercent = card.InterestRate
		req.RateUnit = CardRateUnit
	}

	sim, err := s.SimulateInstallment(ctx, req.PlanRequest)
	if err != nil {
		return core.Transaction{}, Simulation{}, err
	}

	tx, err := s.record(ctx, TransactionInput{
		CardID:      card.ID,
		Date:        req.Date,
		Description: "Installment: " + strings.TrimSpace(req.Description),
		Amount:      sim.Plan.Principal,
		Category:    core.Other,
		Status:      core.Unpaid,
	}, &core.InstallmentDetails{
		MonthlyInstallment: sim.Plan.MonthlyInstallment,
		Tenor:              sim.Plan.Tenor,
	})
	if err != nil {
		return core.Transaction{}, Simulation{}, err
	}
	slog.InfoContext(ctx, "Installment applied",
		applog.FieldOperation, applog.OpApply,
		applog.FieldTransactionID, tx.ID,
		applog.FieldTenor, sim.Plan.Tenor)
	return tx, sim, nil
}

// SuggestPlans compares the same purchase across tenors. Tenor in req is
// ignored; an empty tenors list means amortization.DefaultTenors.
func (s *DebtService) SuggestPlans(ctx context.Context, req PlanRequest, tenors []int) ([]amortization.Suggestion, error) {
	_, principal, rate, err := req.resolve()
	if err != nil {
		return nil, err
	}
	return amortization.SuggestPlans(req.Convention, principal, rate, tenors)
}

// SuggestBankNames autocompletes the bank field of a card form.
func (s *DebtService) SuggestBankNames(ctx context.Context, query string) []string {
	return s.advisor.SuggestBankNames(ctx, query)
}

// SuggestCardNames autocompletes the card name for a chosen bank.
func (s *DebtService) SuggestCardNames(ctx context.Context, bankName, query string) []string {
	return s.advisor.SuggestCardNames(ctx, bankName, query)
}

// IsNotFound reports whether err means a card or transaction is missing.
func IsNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}

// IsInvalid reports whether err was caused by bad input.
func IsInvalid(err error) bool {
	return errors.Is(err, core.ErrInvalid) || errors.Is(err, amortization.ErrInvalidArgument)
}
