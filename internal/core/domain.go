package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Shopping       Category = "shopping"
	Food           Category = "food"
	Transportation Category = "transportation"
	Entertainment  Category = "entertainment"
	Other          Category = "other"
	Payment        Category = "payment"
)

const (
	Paid   Status = "paid"
	Unpaid Status = "unpaid"
)

const (
	NoLimitReminder      LimitReminder = "none"
	LimitReminder3Months LimitReminder = "3-months"
	LimitReminder6Months LimitReminder = "6-months"
)

type (
	Category      string
	Status        string
	LimitReminder string

	// Card is one credit line. Only the numeric parameters matter to the
	// ledger and amortization packages; the rest is descriptive.
	Card struct {
		ID                    string
		BankName              string
		CardName              string
		Last4Digits           string
		CreditLimit           decimal.Decimal
		BillingDay            int // day of month the statement is cut
		DueDay                int // day of month payment is due
		InterestRate          decimal.Decimal
		LimitIncreaseReminder LimitReminder
		CreatedAt             time.Time
		UpdatedAt             time.Time
	}

	// InstallmentDetails marks a transaction as an applied installment plan
	// rather than a lump-sum charge.
	InstallmentDetails struct {
		MonthlyInstallment decimal.Decimal
		Tenor              int
	}

	Transaction struct {
		ID          string
		CardID      string
		Date        time.Time
		Description string
		Amount      decimal.Decimal // always a non-negative magnitude
		Category    Category
		Status      Status
		Installment *InstallmentDetails
		CreatedAt   time.Time
	}
)

// ErrInvalid is wrapped by every validation error in this package.
var ErrInvalid = errors.New("invalid")

var (
	ErrEmptyID           = fmt.Errorf("%w: empty id", ErrInvalid)
	ErrEmptyCardName     = fmt.Errorf("%w: empty card name", ErrInvalid)
	ErrNegativeLimit     = fmt.Errorf("%w: credit limit must not be negative", ErrInvalid)
	ErrInvalidDay        = fmt.Errorf("%w: day of month must be between 1 and 31", ErrInvalid)
	ErrNegativeRate      = fmt.Errorf("%w: interest rate must not be negative", ErrInvalid)
	ErrInvalidLast4      = fmt.Errorf("%w: last 4 digits must be exactly 4 digits", ErrInvalid)
	ErrInvalidReminder   = fmt.Errorf("%w: unknown limit increase reminder", ErrInvalid)
	ErrInvalidAmount     = fmt.Errorf("%w: amount must be positive", ErrInvalid)
	ErrInvalidCategory   = fmt.Errorf("%w: unknown category", ErrInvalid)
	ErrInvalidStatus     = fmt.Errorf("%w: unknown status", ErrInvalid)
	ErrEmptyDescription  = fmt.Errorf("%w: empty description", ErrInvalid)
	ErrZeroDate          = fmt.Errorf("%w: date cannot be zero", ErrInvalid)
	ErrInvalidInstalment = fmt.Errorf("%w: installment needs a positive monthly amount and tenor", ErrInvalid)
)

func (c Category) Valid() bool {
	switch c {
	case Shopping, Food, Transportation, Entertainment, Other, Payment:
		return true
	}
	return false
}

// IsPayment reports whether entries of this category reduce the balance.
func (c Category) IsPayment() bool {
	return c == Payment
}

func (s Status) Valid() bool {
	return s == Paid || s == Unpaid
}

func (r LimitReminder) Valid() bool {
	switch r {
	case "", NoLimitReminder, LimitReminder3Months, LimitReminder6Months:
		return true
	}
	return false
}

// Categories lists every category in display order.
func Categories() []Category {
	return []Category{Shopping, Food, Transportation, Entertainment, Other, Payment}
}

func validDay(d int) bool {
	return d >= 1 && d <= 31
}

func (c Card) Validate() error {
	if strings.TrimSpace(c.CardName) == "" {
		return ErrEmptyCardName
	}
	if len(c.CardName) > 100 {
		return fmt.Errorf("%w: card name too long (max 100 characters)", ErrInvalid)
	}
	if c.CreditLimit.IsNegative() {
		return ErrNegativeLimit
	}
	if !validDay(c.BillingDay) || !validDay(c.DueDay) {
		return ErrInvalidDay
	}
	if c.InterestRate.IsNegative() {
		return ErrNegativeRate
	}
	if c.Last4Digits != "" {
		if len(c.Last4Digits) != 4 {
			return ErrInvalidLast4
		}
		for _, r := range c.Last4Digits {
			if r < '0' || r > '9' {
				return ErrInvalidLast4
			}
		}
	}
	if !c.LimitIncreaseReminder.Valid() {
		return ErrInvalidReminder
	}
	return nil
}

func (d InstallmentDetails) Validate() error {
	if !d.MonthlyInstallment.IsPositive() || d.Tenor < 1 {
		return ErrInvalidInstalment
	}
	return nil
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.CardID) == "" {
		return ErrEmptyID
	}
	if t.Date.IsZero() {
		return ErrZeroDate
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return fmt.Errorf("%w: description too long (max 200 characters)", ErrInvalid)
	}
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if !t.Category.Valid() {
		return ErrInvalidCategory
	}
	if !t.Status.Valid() {
		return ErrInvalidStatus
	}
	if t.Installment != nil {
		if err := t.Installment.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// IsActiveInstallment reports whether the transaction is an installment plan
// that still contributes to the card's monthly obligation.
func (t Transaction) IsActiveInstallment() bool {
	return t.Installment != nil && t.Status == Unpaid
}
