package amortization

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultTenors are the tenors offered when a caller does not pick any.
var DefaultTenors = []int{3, 6, 12, 18, 24}

// PrincipalWithFees adds percentage admin fees charged by the bank and the
// marketplace to a purchase amount. The fees are taken on the original
// amount, not compounded, and the result is rounded to whole units.
func PrincipalWithFees(amount, bankFeePercent, marketplaceFeePercent decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: amount must be positive, got %s", ErrInvalidArgument, amount)
	}
	if bankFeePercent.IsNegative() || marketplaceFeePercent.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: fees must not be negative", ErrInvalidArgument)
	}
	fees := amount.Mul(bankFeePercent.Add(marketplaceFeePercent)).Div(hundred)
	return amount.Add(fees).Round(places), nil
}

// Suggestion is one candidate plan in a comparison.
type Suggestion struct {
	Plan Plan
	// Cheapest marks the plan(s) with the lowest total interest.
	Cheapest bool
	// Lightest marks the plan(s) with the lowest monthly installment.
	Lightest bool
}

// SuggestPlans computes one plan per tenor under the same convention and rate
// so they can be compared side by side. Tenors are evaluated in the order
// given; an empty list means DefaultTenors.
func SuggestPlans(c Convention, principal, ratePercent decimal.Decimal, tenors []int) ([]Suggestion, error) {
	calc, err := GetCalculator(c)
	if err != nil {
		return nil, err
	}
	if len(tenors) == 0 {
		tenors = DefaultTenors
	}

	out := make([]Suggestion, 0, len(tenors))
	for _, n := range tenors {
		plan, err := calc.Compute(principal, ratePercent, n)
		if err != nil {
			return nil, err
		}
		out = append(out, Suggestion{Plan: plan})
	}

	minInterest, minInstallment := out[0].Plan.TotalInterest, out[0].Plan.MonthlyInstallment
	for _, s := range out[1:] {
		minInterest = decimal.Min(minInterest, s.Plan.TotalInterest)
		minInstallment = decimal.Min(minInstallment, s.Plan.MonthlyInstallment)
	}
	for i := range out {
		out[i].Cheapest = out[i].Plan.TotalInterest.Equal(minInterest)
		out[i].Lightest = out[i].Plan.MonthlyInstallment.Equal(minInstallment)
	}
	return out, nil
}
