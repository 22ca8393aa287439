package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"tagihan/internal/core"
)

// CardSummary is everything the dashboard shows for one card.
type CardSummary struct {
	Card              core.Card
	Snapshot          DebtSnapshot
	AvailableCredit   decimal.Decimal
	Utilization       decimal.Decimal
	ActiveInstallment decimal.Decimal
	NextDueDate       time.Time
}

// Portfolio aggregates all known cards. Transactions whose card is not in
// the card set are ignored.
type Portfolio struct {
	Cards             []CardSummary
	TotalDebt         decimal.Decimal
	TotalLimit        decimal.Decimal
	ActiveInstallment decimal.Decimal
	// NearestDueDate is the soonest NextDueDate across cards; zero when
	// there are no cards.
	NearestDueDate time.Time
	NearestDueCard string
}

func SummarizeCard(card core.Card, txs []core.Transaction, today time.Time) CardSummary {
	snap := Snapshot(card.ID, txs)
	return CardSummary{
		Card:              card,
		Snapshot:          snap,
		AvailableCredit:   AvailableCredit(card, snap.Outstanding),
		Utilization:       Utilization(card, snap.Outstanding),
		ActiveInstallment: ActiveMonthlyInstallment(card.ID, txs),
		NextDueDate:       NextDueDate(card, today),
	}
}

// Summarize builds per-card summaries in input order plus portfolio totals.
// TotalDebt is the plain sum of card balances, so surpluses offset debt on
// other cards.
func Summarize(cards []core.Card, txs []core.Transaction, today time.Time) Portfolio {
	p := Portfolio{
		Cards:             make([]CardSummary, 0, len(cards)),
		TotalDebt:         decimal.Zero,
		TotalLimit:        decimal.Zero,
		ActiveInstallment: decimal.Zero,
	}
	for _, card := range cards {
		s := SummarizeCard(card, txs, today)
		p.Cards = append(p.Cards, s)
		p.TotalDebt = p.TotalDebt.Add(s.Snapshot.Outstanding)
		p.TotalLimit = p.TotalLimit.Add(card.CreditLimit)
		p.ActiveInstallment = p.ActiveInstallment.Add(s.ActiveInstallment)

		if p.NearestDueDate.IsZero() || s.NextDueDate.Before(p.NearestDueDate) ||
			(s.NextDueDate.Equal(p.NearestDueDate) && card.ID < p.NearestDueCard) {
			p.NearestDueDate = s.NextDueDate
			p.NearestDueCard = card.ID
		}
	}
	return p
}
