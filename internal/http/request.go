package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"tagihan/internal/amortization"
	"tagihan/internal/core"
	"tagihan/internal/services"
)

const (
	maxBodyBytes = 1 << 20
	dateLayout   = "2006-01-02"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func init() {
	// Report JSON field names in validation details.
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = validate.RegisterValidation("convention", func(fl validator.FieldLevel) bool {
		for _, c := range amortization.Conventions() {
			if fl.Field().String() == string(c) {
				return true
			}
		}
		return false
	})
	_ = validate.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		for _, c := range core.Categories() {
			if fl.Field().String() == string(c) {
				return true
			}
		}
		return false
	})
}

// errDecode marks malformed request bodies.
var errDecode = errors.New("malformed request body")

// fieldErrors maps JSON field names to problems found after structural
// validation, such as unparsable amounts.
type fieldErrors map[string]string

func (f fieldErrors) Error() string {
	parts := make([]string, 0, len(f))
	for k, v := range f {
		parts = append(parts, k+": "+v)
	}
	return "invalid fields: " + strings.Join(parts, ", ")
}

func (f fieldErrors) orNil() error {
	if len(f) == 0 {
		return nil
	}
	return f
}

// decodeJSON reads a single JSON object into dst and validates it.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %w", errDecode, err)
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("%w: trailing data", errDecode)
	}
	return validate.Struct(dst)
}

func (f fieldErrors) amount(field, s string) decimal.Decimal {
	d, err := core.ParseAmount(s)
	if err != nil {
		f[field] = "must be a positive amount"
	}
	return d
}

// percent also serves non-negative amounts such as a zero credit limit.
func (f fieldErrors) percent(field, s string) decimal.Decimal {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero
	}
	d, err := core.ParsePercent(s)
	if err != nil {
		f[field] = "must be a non-negative number"
	}
	return d
}

func (f fieldErrors) date(field, s string, loc *time.Location) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.ParseInLocation(dateLayout, s, loc)
	if err != nil {
		f[field] = "must be a date in YYYY-MM-DD format"
	}
	return t
}

type cardRequest struct {
	BankName              string `json:"bank_name" validate:"max=100"`
	CardName              string `json:"card_name" validate:"required,max=100"`
	Last4Digits           string `json:"last4_digits" validate:"omitempty,len=4,numeric"`
	CreditLimit           string `json:"credit_limit" validate:"required"`
	BillingDay            int    `json:"billing_day" validate:"required,min=1,max=31"`
	DueDay                int    `json:"due_day" validate:"required,min=1,max=31"`
	InterestRate          string `json:"interest_rate"`
	LimitIncreaseReminder string `json:"limit_increase_reminder" validate:"omitempty,oneof=none 3-months 6-months"`
}

func (req cardRequest) toInput() (services.CardInput, error) {
	errs := fieldErrors{}
	in := services.CardInput{
		BankName:              req.BankName,
		CardName:              req.CardName,
		Last4Digits:           req.Last4Digits,
		CreditLimit:           errs.percent("credit_limit", req.CreditLimit),
		BillingDay:            req.BillingDay,
		DueDay:                req.DueDay,
		InterestRate:          errs.percent("interest_rate", req.InterestRate),
		LimitIncreaseReminder: core.LimitReminder(req.LimitIncreaseReminder),
	}
	return in, errs.orNil()
}

type transactionRequest struct {
	CardID      string `json:"card_id" validate:"required"`
	Date        string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Description string `json:"description" validate:"required,max=200"`
	Amount      string `json:"amount" validate:"required"`
	Category    string `json:"category" validate:"required,category"`
	Status      string `json:"status" validate:"omitempty,oneof=paid unpaid"`
}

func (req transactionRequest) toInput(loc *time.Location) (services.TransactionInput, error) {
	errs := fieldErrors{}
	in := services.TransactionInput{
		CardID:      req.CardID,
		Date:        errs.date("date", req.Date, loc),
		Description: req.Description,
		Amount:      errs.amount("amount", req.Amount),
		Category:    core.Category(req.Category),
		Status:      core.Status(req.Status),
	}
	return in, errs.orNil()
}

type paymentRequest struct {
	Amount string `json:"amount" validate:"required"`
	Date   string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Note   string `json:"note" validate:"max=200"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required,oneof=paid unpaid"`
}

type planRequest struct {
	Convention            string `json:"convention" validate:"required,convention"`
	Amount                string `json:"amount" validate:"required"`
	BankFeePercent        string `json:"bank_fee_percent"`
	MarketplaceFeePercent string `json:"marketplace_fee_percent"`
	RatePercent           string `json:"rate_percent"`
	RateUnit              string `json:"rate_unit" validate:"omitempty,oneof=annual monthly"`
	WithAdvice            bool   `json:"with_advice"`
}

func (req planRequest) toPlan(errs fieldErrors) services.PlanRequest {
	return services.PlanRequest{
		Convention:            amortization.Convention(req.Convention),
		Amount:                errs.amount("amount", req.Amount),
		BankFeePercent:        errs.percent("bank_fee_percent", req.BankFeePercent),
		MarketplaceFeePercent: errs.percent("marketplace_fee_percent", req.MarketplaceFeePercent),
		RatePercent:           errs.percent("rate_percent", req.RatePercent),
		RateUnit:              amortization.RateUnit(req.RateUnit),
		WithAdvice:            req.WithAdvice,
	}
}

type simulateRequest struct {
	planRequest
	Tenor int `json:"tenor" validate:"required,min=1,max=360"`
}

func (req simulateRequest) toInput() (services.PlanRequest, error) {
	errs := fieldErrors{}
	plan := req.planRequest.toPlan(errs)
	plan.Tenor = req.Tenor
	return plan, errs.orNil()
}

type applyRequest struct {
	simulateRequest
	CardID      string `json:"card_id" validate:"required"`
	Description string `json:"description" validate:"required,max=180"`
	Date        string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	UseCardRate bool   `json:"use_card_rate"`
}

func (req applyRequest) toInput(loc *time.Location) (services.ApplyRequest, error) {
	errs := fieldErrors{}
	plan := req.planRequest.toPlan(errs)
	plan.Tenor = req.Tenor
	in := services.ApplyRequest{
		PlanRequest: plan,
		CardID:      req.CardID,
		Description: req.Description,
		Date:        errs.date("date", req.Date, loc),
		UseCardRate: req.UseCardRate,
	}
	return in, errs.orNil()
}

type suggestionsRequest struct {
	planRequest
	Tenors []int `json:"tenors" validate:"omitempty,max=12,dive,min=1,max=360"`
}

func (req suggestionsRequest) toInput() (services.PlanRequest, []int, error) {
	errs := fieldErrors{}
	plan := req.planRequest.toPlan(errs)
	return plan, req.Tenors, errs.orNil()
}
