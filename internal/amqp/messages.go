package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"tagihan/internal/storage"
)

// ReminderMessage asks the worker to notify the user about one bill.
// It carries everything needed to write the e-mail so the worker does not
// have to read the database.
type ReminderMessage struct {
	CardID             string          `json:"card_id"`
	CardName           string          `json:"card_name"`
	BankName           string          `json:"bank_name"`
	Kind               string          `json:"kind"` // storage.KindOverdue or storage.KindUpcoming
	DueDate            string          `json:"due_date"`
	OutstandingBalance decimal.Decimal `json:"outstanding_balance"`
	Timestamp          time.Time       `json:"timestamp"`
}

const dueDateLayout = "2006-01-02"

func NewReminderMessage(cardID, cardName, bankName, kind string, due time.Time, outstanding decimal.Decimal) *ReminderMessage {
	return &ReminderMessage{
		CardID:             cardID,
		CardName:           cardName,
		BankName:           bankName,
		Kind:               kind,
		DueDate:            due.Format(dueDateLayout),
		OutstandingBalance: outstanding,
		Timestamp:          time.Now(),
	}
}

// Due parses DueDate in loc.
func (m *ReminderMessage) Due(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(dueDateLayout, m.DueDate, loc)
}

func (m *ReminderMessage) Validate() error {
	if m.CardID == "" {
		return errors.New("reminder message: missing card id")
	}
	if m.Kind != storage.KindOverdue && m.Kind != storage.KindUpcoming {
		return fmt.Errorf("reminder message: unknown kind %q", m.Kind)
	}
	if _, err := time.Parse(dueDateLayout, m.DueDate); err != nil {
		return fmt.Errorf("reminder message: bad due date %q", m.DueDate)
	}
	return nil
}

func (m *ReminderMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReminderMessageFromJSON decodes and validates a message body.
func ReminderMessageFromJSON(data []byte) (*ReminderMessage, error) {
	var msg ReminderMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
