package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hance08/purse/internal/constants"
	"github.com/hance08/purse/internal/model"
	"github.com/hance08/purse/internal/utils"
)

const (
	TypeTransactionCompleted = "transaction.completed"
	TypeTransactionFailed    = "transaction.failed"
)

// Event is what downstream notification and chat-activity consumers see of
// a transfer outcome.
type Event struct {
	EventType     string    `json:"event_type"`
	TransactionID string    `json:"transaction_id"`
	Reference     string    `json:"reference"`
	Kind          string    `json:"kind"`
	Status        string    `json:"status"`
	Amount        string    `json:"amount"`
	Currency      string    `json:"currency,omitempty"`
	SenderID      string    `json:"sender_id,omitempty"`
	ReceiverID    string    `json:"receiver_id"`
	Description   string    `json:"description,omitempty"`
	ErrorMessage  string    `json:"error_message,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

// FromTransaction builds the event for a transaction in a terminal status.
func FromTransaction(tx *model.Transaction, currency string) Event {
	eventType := TypeTransactionCompleted
	if tx.Status == constants.StatusFailed {
		eventType = TypeTransactionFailed
	}

	return Event{
		EventType:     eventType,
		TransactionID: tx.ID,
		Reference:     tx.Reference,
		Kind:          tx.Kind,
		Status:        tx.Status,
		Amount:        utils.FormatFromCents(tx.Amount),
		Currency:      currency,
		SenderID:      tx.Sender(),
		ReceiverID:    tx.ReceiverID,
		Description:   tx.Description,
		ErrorMessage:  tx.FailureReason,
		Timestamp:     tx.UpdatedAt,
	}
}

// Key orders events of one transaction on partitioned transports.
func (e Event) Key() string {
	return e.TransactionID
}

func (e Event) Marshal() ([]byte, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return payload, nil
}

// Counterparty returns the other party as seen by accountID; empty for top-ups.
func (e Event) Counterparty(accountID string) string {
	switch accountID {
	case e.SenderID:
		return e.ReceiverID
	case e.ReceiverID:
		return e.SenderID
	}
	return ""
}

// Recipients lists the accounts that should be told about the event.
func (e Event) Recipients() []string {
	if e.SenderID == "" {
		return []string{e.ReceiverID}
	}
	if e.Status == constants.StatusFailed {
		return []string{e.SenderID}
	}
	return []string{e.SenderID, e.ReceiverID}
}

// Message renders the notification text shown to accountID.
func (e Event) Message(accountID string) string {
	amount := e.Amount
	if e.Currency != "" {
		amount = e.Amount + " " + e.Currency
	}

	switch {
	case e.Status == constants.StatusFailed && e.Kind == constants.KindTopUp:
		return fmt.Sprintf("Your top-up of %s failed", amount)
	case e.Status == constants.StatusFailed:
		return fmt.Sprintf("Your transfer of %s to %s failed", amount, e.ReceiverID)
	case e.Kind == constants.KindTopUp:
		return fmt.Sprintf("Your account has been topped up with %s", amount)
	case accountID == e.SenderID:
		return fmt.Sprintf("You sent %s to %s", amount, e.ReceiverID)
	default:
		return fmt.Sprintf("You received %s from %s", amount, e.SenderID)
	}
}
