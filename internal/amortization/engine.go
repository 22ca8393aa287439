// Package amortization computes fixed-payment installment plans.
//
// Two conventions are supported and they are not interchangeable:
// flat-rate plans charge interest on the original principal for the whole
// term and take an annual rate, annuity plans charge interest on the
// declining balance and take a per-period (monthly) rate.
//
// All amounts are rounded to whole currency units. Every function here is
// pure; nothing is cached and inputs are never mutated.
package amortization

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// places is the number of decimal places money is rounded to.
const places = 0

// ErrInvalidArgument is returned when a plan cannot be computed from its
// inputs. It is always wrapped with the offending field.
var ErrInvalidArgument = errors.New("invalid argument")

var (
	one           = decimal.NewFromInt(1)
	hundred       = decimal.NewFromInt(100)
	twelve        = decimal.NewFromInt(12)
	twelveHundred = decimal.NewFromInt(1200)
)

// Installment is one period of a schedule.
type Installment struct {
	Month            int
	PrincipalPayment decimal.Decimal
	InterestPayment  decimal.Decimal
	RemainingBalance decimal.Decimal
}

// Plan is the result of a schedule computation.
type Plan struct {
	Convention         Convention
	RateUnit           RateUnit
	Principal          decimal.Decimal
	RatePercent        decimal.Decimal
	Tenor              int
	MonthlyInstallment decimal.Decimal
	TotalPayment       decimal.Decimal
	TotalInterest      decimal.Decimal
	Schedule           []Installment
}

func validate(principal, rate decimal.Decimal, tenor int) error {
	if !principal.IsPositive() {
		return fmt.Errorf("%w: principal must be positive, got %s", ErrInvalidArgument, principal)
	}
	if rate.IsNegative() {
		return fmt.Errorf("%w: rate must not be negative, got %s", ErrInvalidArgument, rate)
	}
	if tenor < 1 {
		return fmt.Errorf("%w: tenor must be at least 1 month, got %d", ErrInvalidArgument, tenor)
	}
	return nil
}

// ComputeFlatSchedule builds a flat-rate plan from an annual rate.
//
// Principal and interest portions are the same in every period. The
// remaining balance of period m is principal*(tenor-m)/tenor, so the last
// period always ends at exactly zero.
func ComputeFlatSchedule(principal, annualRatePercent decimal.Decimal, tenorMonths int) (Plan, error) {
	if err := validate(principal, annualRatePercent, tenorMonths); err != nil {
		return Plan{}, err
	}

	n := decimal.NewFromInt(int64(tenorMonths))
	totalInterest := principal.Mul(annualRatePercent).Mul(n).Div(twelveHundred)
	totalPayment := principal.Add(totalInterest)

	monthlyPrincipal := principal.Div(n).Round(places)
	monthlyInterest := totalInterest.Div(n).Round(places)

	schedule := make([]Installment, 0, tenorMonths)
	for m := 1; m <= tenorMonths; m++ {
		left := decimal.NewFromInt(int64(tenorMonths - m))
		schedule = append(schedule, Installment{
			Month:            m,
			PrincipalPayment: monthlyPrincipal,
			InterestPayment:  monthlyInterest,
			RemainingBalance: principal.Mul(left).Div(n).Round(places),
		})
	}

	return Plan{
		Convention:         Flat,
		RateUnit:           Annual,
		Principal:          principal,
		RatePercent:        annualRatePercent,
		Tenor:              tenorMonths,
		MonthlyInstallment: totalPayment.Div(n).Round(places),
		TotalPayment:       totalPayment.Round(places),
		TotalInterest:      totalInterest.Round(places),
		Schedule:           schedule,
	}, nil
}

// ComputeAnnuitySchedule builds a declining-balance plan from a monthly rate.
//
// The installment is rounded once and the schedule is walked period by
// period, so the final remaining balance may be off zero by the accumulated
// rounding residue. That residue is reported as is.
func ComputeAnnuitySchedule(principal, monthlyRatePercent decimal.Decimal, tenorMonths int) (Plan, error) {
	if err := validate(principal, monthlyRatePercent, tenorMonths); err != nil {
		return Plan{}, err
	}

	n := decimal.NewFromInt(int64(tenorMonths))
	i := monthlyRatePercent.Div(hundred)

	var installment decimal.Decimal
	if i.IsZero() {
		installment = principal.Div(n).Round(places)
	} else {
		// P * i(1+i)^n / ((1+i)^n - 1)
		factor := one.Add(i).Pow(n)
		installment = principal.Mul(i).Mul(factor).Div(factor.Sub(one)).Round(places)
	}

	schedule := make([]Installment, 0, tenorMonths)
	balance := principal
	for m := 1; m <= tenorMonths; m++ {
		interest := balance.Mul(i).Round(places)
		principalPart := installment.Sub(interest)
		balance = balance.Sub(principalPart)
		schedule = append(schedule, Installment{
			Month:            m,
			PrincipalPayment: principalPart,
			InterestPayment:  interest,
			RemainingBalance: balance,
		})
	}

	totalPayment := installment.Mul(n)
	totalInterest := totalPayment.Sub(principal)
	if i.IsZero() {
		totalPayment = principal
		totalInterest = decimal.Zero
	}

	return Plan{
		Convention:         Annuity,
		RateUnit:           Monthly,
		Principal:          principal,
		RatePercent:        monthlyRatePercent,
		Tenor:              tenorMonths,
		MonthlyInstallment: installment,
		TotalPayment:       totalPayment,
		TotalInterest:      totalInterest,
		Schedule:           schedule,
	}, nil
}
