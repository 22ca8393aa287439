// Package ledger reduces card transactions into balances and due-date
// classifications. It works on plain snapshots supplied by the caller and
// never performs I/O.
package ledger

import (
	"sort"

	"github.com/shopspring/decimal"

	"tagihan/internal/core"
)

// OutstandingBalance is charges minus payments for one card. A negative
// result is a surplus and is returned as is.
func OutstandingBalance(cardID string, txs []core.Transaction) decimal.Decimal {
	return Snapshot(cardID, txs).Outstanding
}

// DebtSnapshot breaks a card's balance into its two sides.
type DebtSnapshot struct {
	CardID      string
	Charges     decimal.Decimal
	Payments    decimal.Decimal
	Outstanding decimal.Decimal
	// Transactions counts the entries that belong to the card.
	Transactions int
}

func Snapshot(cardID string, txs []core.Transaction) DebtSnapshot {
	s := DebtSnapshot{CardID: cardID, Charges: decimal.Zero, Payments: decimal.Zero}
	for _, tx := range txs {
		if tx.CardID != cardID {
			continue
		}
		s.Transactions++
		if tx.Category.IsPayment() {
			s.Payments = s.Payments.Add(tx.Amount)
		} else {
			s.Charges = s.Charges.Add(tx.Amount)
		}
	}
	s.Outstanding = s.Charges.Sub(s.Payments)
	return s
}

// ActiveMonthlyInstallment sums the monthly amounts of the card's unpaid
// installment plans.
func ActiveMonthlyInstallment(cardID string, txs []core.Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txs {
		if tx.CardID == cardID && tx.IsActiveInstallment() {
			total = total.Add(tx.Installment.MonthlyInstallment)
		}
	}
	return total
}

// AvailableCredit is the limit minus a positive balance. A surplus raises
// the available amount above the limit.
func AvailableCredit(card core.Card, balance decimal.Decimal) decimal.Decimal {
	return card.CreditLimit.Sub(balance)
}

// Utilization is the balance as a percentage of the limit, rounded to two
// places. Cards without a limit and cards in surplus report zero.
func Utilization(card core.Card, balance decimal.Decimal) decimal.Decimal {
	if !card.CreditLimit.IsPositive() || !balance.IsPositive() {
		return decimal.Zero
	}
	return balance.Mul(decimal.NewFromInt(100)).Div(card.CreditLimit).Round(2)
}

// PaymentHistory returns the card's payments, newest first. Entries with the
// same date keep their input order.
func PaymentHistory(cardID string, txs []core.Transaction) []core.Transaction {
	var out []core.Transaction
	for _, tx := range txs {
		if tx.CardID == cardID && tx.Category.IsPayment() {
			out = append(out, tx)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date)
	})
	return out
}
