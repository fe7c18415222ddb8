package models

import (
	"time"
)

// EntryType is the direction of a ledger entry. Amounts are always stored
// positive; the direction carries the sign.
type EntryType string

const (
	Credit EntryType = "credit"
	Debit  EntryType = "debit"
)

// Subtypes of ledger entries.
const (
	SubtypeDeposit          = "deposit"
	SubtypeWithdrawal       = "withdrawal"
	SubtypeTransferIn       = "transfer_in"
	SubtypeTransferOut      = "transfer_out"
	SubtypeTransferReversal = "transfer_reversal"
	SubtypeAdminAdjust      = "admin_adjust"
)

// TransactionStatus is the lifecycle state of a ledger entry. Only an entry
// in Completed contributes to an account balance. An entry never leaves
// Completed; undoing one takes a new reversal entry.
type TransactionStatus string

const (
	Pending   TransactionStatus = "pending"
	Completed TransactionStatus = "completed"
	Failed    TransactionStatus = "failed"
	Hold      TransactionStatus = "hold"
	Cancelled TransactionStatus = "cancelled"
	Reversed  TransactionStatus = "reversed"
)

// Transaction is an immutable ledger entry for a single balance-affecting
// event. BalanceAfter snapshots the account balance immediately after the
// entry was applied and is only meaningful when Status is Completed.
type Transaction struct {
	ID           string            `json:"id" db:"id"`
	AccountID    string            `json:"account_id" db:"account_id"`
	Type         EntryType         `json:"type" db:"type"`
	Subtype      string            `json:"subtype" db:"subtype"`
	Amount       int64             `json:"amount" db:"amount"` // in minor units, always positive
	Status       TransactionStatus `json:"status" db:"status"`
	BalanceAfter int64             `json:"balance_after" db:"balance_after"`
	Reference    string            `json:"reference" db:"reference"`
	Description  string            `json:"description,omitempty" db:"description"`
	CreatedAt    time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at" db:"updated_at"`
}

// Signed returns the amount signed by direction: positive for credits,
// negative for debits.
func (t *Transaction) Signed() int64 {
	if t.Type == Debit {
		return -t.Amount
	}
	return t.Amount
}

// TransferType selects the fee schedule for a transfer.
type TransferType string

const (
	TransferDomestic      TransferType = "domestic"
	TransferInternational TransferType = "international"
)
