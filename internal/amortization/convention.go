package amortization

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Convention names an interest convention.
type Convention string

// RateUnit names the period a nominal rate is quoted for.
type RateUnit string

const (
	Flat    Convention = "flat"
	Annuity Convention = "annuity"
)

const (
	Annual  RateUnit = "annual"
	Monthly RateUnit = "monthly"
)

// Calculator is implemented once per convention. Compute expects the rate in
// the calculator's own Unit; callers holding a rate in another unit convert
// it explicitly with ConvertRate first.
type Calculator interface {
	Convention() Convention
	Unit() RateUnit
	Compute(principal, ratePercent decimal.Decimal, tenorMonths int) (Plan, error)
}

type flatCalculator struct{}

func (flatCalculator) Convention() Convention { return Flat }
func (flatCalculator) Unit() RateUnit         { return Annual }
func (flatCalculator) Compute(p, r decimal.Decimal, n int) (Plan, error) {
	return ComputeFlatSchedule(p, r, n)
}

type annuityCalculator struct{}

func (annuityCalculator) Convention() Convention { return Annuity }
func (annuityCalculator) Unit() RateUnit         { return Monthly }
func (annuityCalculator) Compute(p, r decimal.Decimal, n int) (Plan, error) {
	return ComputeAnnuitySchedule(p, r, n)
}

var calculators = map[Convention]Calculator{
	Flat:    flatCalculator{},
	Annuity: annuityCalculator{},
}

// GetCalculator returns the calculator for a convention.
func GetCalculator(c Convention) (Calculator, error) {
	calc, ok := calculators[c]
	if !ok {
		return nil, fmt.Errorf("%w: unknown convention %q", ErrInvalidArgument, c)
	}
	return calc, nil
}

// Conventions lists the supported conventions.
func Conventions() []Convention {
	return []Convention{Flat, Annuity}
}

func (u RateUnit) Valid() bool {
	return u == Annual || u == Monthly
}

// ConvertRate converts a nominal percentage between units (monthly x 12 =
// annual). It does not compound.
func ConvertRate(ratePercent decimal.Decimal, from, to RateUnit) (decimal.Decimal, error) {
	if !from.Valid() || !to.Valid() {
		return decimal.Zero, fmt.Errorf("%w: unknown rate unit %q -> %q", ErrInvalidArgument, from, to)
	}
	switch {
	case from == to:
		return ratePercent, nil
	case from == Monthly:
		return ratePercent.Mul(twelve), nil
	default:
		return ratePercent.Div(twelve), nil
	}
}
