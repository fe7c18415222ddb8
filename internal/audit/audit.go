package audit

import (
	"encoding/json"
	"log"
	"time"
)

type Event struct {
	Timestamp    time.Time `json:"timestamp"`
	EventType    string    `json:"event_type"`
	Reference    string    `json:"reference"`
	AccountID    string    `json:"account_id,omitempty"`
	Direction    string    `json:"direction,omitempty"`
	Subtype      string    `json:"subtype,omitempty"`
	Amount       int64     `json:"amount,omitempty"`
	Fee          int64     `json:"fee,omitempty"`
	BalanceAfter int64     `json:"balance_after,omitempty"`
	Status       string    `json:"status"`
	Details      any       `json:"details,omitempty"`
}

// Logger emits structured audit events for every balance-affecting attempt,
// successful or not. Escalations (inconsistency, failed compensation) carry
// the full context needed for manual reconciliation.
type Logger struct{}

func NewLogger() *Logger {
	return &Logger{}
}

func (l *Logger) LogPosting(reference, accountID, direction, subtype string, amount, balanceAfter int64) {
	l.log(Event{
		Timestamp:    time.Now(),
		EventType:    "POSTING",
		Reference:    reference,
		AccountID:    accountID,
		Direction:    direction,
		Subtype:      subtype,
		Amount:       amount,
		BalanceAfter: balanceAfter,
		Status:       "COMPLETED",
	})
}

func (l *Logger) LogRejected(reference, accountID, direction, subtype string, amount int64, reason string) {
	l.log(Event{
		Timestamp: time.Now(),
		EventType: "POSTING",
		Reference: reference,
		AccountID: accountID,
		Direction: direction,
		Subtype:   subtype,
		Amount:    amount,
		Status:    "REJECTED",
		Details:   map[string]string{"reason": reason},
	})
}

func (l *Logger) LogTransfer(reference, fromAccount, toAccount string, amount, fee int64, status string) {
	l.log(Event{
		Timestamp: time.Now(),
		EventType: "TRANSFER",
		Reference: reference,
		Amount:    amount,
		Fee:       fee,
		Status:    status,
		Details: map[string]string{
			"from_account": fromAccount,
			"to_account":   toAccount,
		},
	})
}

func (l *Logger) LogInconsistency(reference, accountID, direction, subtype string, amount, balanceAfter int64, err error) {
	l.log(Event{
		Timestamp:    time.Now(),
		EventType:    "LEDGER_INCONSISTENCY",
		Reference:    reference,
		AccountID:    accountID,
		Direction:    direction,
		Subtype:      subtype,
		Amount:       amount,
		BalanceAfter: balanceAfter,
		Status:       "ESCALATED",
		Details:      map[string]string{"error": err.Error()},
	})
}

func (l *Logger) LogError(reference, accountID string, err error) {
	l.log(Event{
		Timestamp: time.Now(),
		EventType: "ERROR",
		Reference: reference,
		AccountID: accountID,
		Status:    "FAILED",
		Details:   map[string]string{"error": err.Error()},
	})
}

func (l *Logger) log(event Event) {
	data, _ := json.Marshal(event)
	log.Printf("AUDIT: %s", string(data))
}
