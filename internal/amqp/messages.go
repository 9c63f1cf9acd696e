package amqp

import (
	"encoding/json"
	"time"

	"moneta/internal/core"
)

// Event type values carried in ledger event messages.
const (
	EventTransactionApplied  = "transaction.applied"
	EventTransactionReverted = "transaction.reverted"
)

// TransactionEventMessage is published whenever a transaction is applied to
// or reverted from the monthly aggregates. Consumers get the full snapshot
// so they never have to read the database back.
type TransactionEventMessage struct {
	Event       string    `json:"event"`
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Type        string    `json:"type"`
	AmountCents int64     `json:"amount_cents"`
	Categories  []string  `json:"categories"`
	PaymentMode string    `json:"payment_mode"`
	Date        string    `json:"date"`
	Timestamp   time.Time `json:"timestamp"`
}

func NewTransactionEventMessage(event string, tx core.Transaction) *TransactionEventMessage {
	return &TransactionEventMessage{
		Event:       event,
		ID:          tx.ID,
		UserID:      tx.UserID,
		Type:        string(tx.Type),
		AmountCents: tx.Amount.Cents,
		Categories:  tx.Categories(),
		PaymentMode: tx.PaymentMode,
		Date:        tx.CreatedAtLocal.Format("2006-01-02"),
		Timestamp:   time.Now(),
	}
}

func (m *TransactionEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecurringDueMessage tells notification consumers that a recurring template
// has reached its execution date and the owner has not been reminded yet.
type RecurringDueMessage struct {
	TemplateID    string    `json:"template_id"`
	UserID        string    `json:"user_id"`
	Description   string    `json:"description"`
	AmountCents   int64     `json:"amount_cents"`
	Type          string    `json:"type"`
	ExecutionDate string    `json:"execution_date"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewRecurringDueMessage(tpl core.RecurringTemplate) *RecurringDueMessage {
	return &RecurringDueMessage{
		TemplateID:    tpl.ID,
		UserID:        tpl.UserID,
		Description:   tpl.Description,
		AmountCents:   tpl.Amount.Cents,
		Type:          string(tpl.Type),
		ExecutionDate: tpl.ExecutionDate.Format("2006-01-02"),
		Timestamp:     time.Now(),
	}
}

func (m *RecurringDueMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func RecurringDueMessageFromJSON(data []byte) (*RecurringDueMessage, error) {
	var msg RecurringDueMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
