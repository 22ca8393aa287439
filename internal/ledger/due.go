package ledger

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"tagihan/internal/core"
)

// UpcomingDays is how many days ahead a due date counts as upcoming.
const UpcomingDays = 7

// DueDateIn returns the given day of month, clamped to the month's last day.
// Day 31 in February falls on the 28th (or 29th).
func DueDateIn(year int, month time.Month, day int, loc *time.Location) time.Time {
	if day < 1 {
		day = 1
	}
	if last := time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day(); day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, loc)
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// CycleDueDate is this month's occurrence of the card's due day, whether or
// not it has already passed.
func CycleDueDate(card core.Card, today time.Time) time.Time {
	return DueDateIn(today.Year(), today.Month(), card.DueDay, today.Location())
}

// NextDueDate is the first occurrence of the card's due day on or after
// today.
func NextDueDate(card core.Card, today time.Time) time.Time {
	today = midnight(today)
	due := CycleDueDate(card, today)
	if due.Before(today) {
		first := time.Date(today.Year(), today.Month()+1, 1, 0, 0, 0, 0, today.Location())
		due = DueDateIn(first.Year(), first.Month(), card.DueDay, today.Location())
	}
	return due
}

// Bill is a card that needs paying.
type Bill struct {
	Card               core.Card
	OutstandingBalance decimal.Decimal
	DueDate            time.Time
}

// DaysUntil is negative for overdue bills.
func (b Bill) DaysUntil(today time.Time) int {
	return int(math.Round(b.DueDate.Sub(midnight(today)).Hours() / 24))
}

type Bills struct {
	Overdue  []Bill
	Upcoming []Bill
}

// ClassifyBills splits cards with a positive balance by this cycle's due
// date. Overdue bills are ordered most recently missed first, upcoming ones
// soonest first; equal dates are ordered by card ID. Cards whose due date is
// more than a week away, and cards with no debt, are left out.
func ClassifyBills(cards []core.Card, txs []core.Transaction, today time.Time) Bills {
	today = midnight(today)
	horizon := today.AddDate(0, 0, UpcomingDays)

	var out Bills
	for _, card := range cards {
		balance := OutstandingBalance(card.ID, txs)
		if !balance.IsPositive() {
			continue
		}
		due := CycleDueDate(card, today)
		bill := Bill{Card: card, OutstandingBalance: balance, DueDate: due}
		switch {
		case due.Before(today):
			out.Overdue = append(out.Overdue, bill)
		case !due.After(horizon):
			out.Upcoming = append(out.Upcoming, bill)
		}
	}

	sort.Slice(out.Overdue, func(i, j int) bool {
		a, b := out.Overdue[i], out.Overdue[j]
		if !a.DueDate.Equal(b.DueDate) {
			return a.DueDate.After(b.DueDate)
		}
		return a.Card.ID < b.Card.ID
	})
	sort.Slice(out.Upcoming, func(i, j int) bool {
		a, b := out.Upcoming[i], out.Upcoming[j]
		if !a.DueDate.Equal(b.DueDate) {
			return a.DueDate.Before(b.DueDate)
		}
		return a.Card.ID < b.Card.ID
	})
	return out
}
